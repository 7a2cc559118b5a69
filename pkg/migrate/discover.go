package migrate

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gobwas/glob"
	ignore "github.com/sabhiram/go-gitignore"
	"github.com/src-d/enry/v2"

	"github.com/Sumatoshi-tech/esmport/pkg/textutil"
)

// SourceExt is the extension of the files the migration rewrites.
const SourceExt = ".js"

// ErrBadPattern indicates an exclude or manual-file glob that does not
// compile.
var ErrBadPattern = errors.New("invalid glob pattern")

// defaultIgnores are skipped in every project, on top of .gitignore.
var defaultIgnores = []string{
	".git/",
	".github/",
	"node_modules/",
	"*.min.js",
}

// SkipReason explains why a candidate file was left out.
type SkipReason string

// Skip reasons.
const (
	SkipIgnored  SkipReason = "ignored"
	SkipExcluded SkipReason = "excluded"
	SkipVendored SkipReason = "vendored"
	SkipBinary   SkipReason = "binary"
)

// Skipped is a script file left out of the migration.
type Skipped struct {
	Path   string     `json:"path"   yaml:"path"`
	Reason SkipReason `json:"reason" yaml:"reason"`
}

// Discovery is the classified file list of a project, in walk order.
// Paths are slash-separated and relative to the root.
type Discovery struct {
	Sources []string
	Manual  []string
	Skipped []Skipped
}

// DiscoverOptions selects the files to migrate.
type DiscoverOptions struct {
	// ManualFiles are base-name globs of files that are flagged for manual
	// review instead of being rewritten.
	ManualFiles []string

	// Excludes are root-relative globs of files and directories to leave
	// out.
	Excludes []string

	// NoGitignore disables reading the project's .gitignore.
	NoGitignore bool

	// SkipDirs are root-relative directories never descended into, such as
	// an output directory nested under the root.
	SkipDirs []string
}

type matcher struct {
	ignore   *ignore.GitIgnore
	excludes []glob.Glob
	manual   []glob.Glob
}

// Discover walks root and sorts its script files into sources, manual-review
// files and skipped files.
func Discover(root string, opts DiscoverOptions) (*Discovery, error) {
	m, err := newMatcher(root, opts)
	if err != nil {
		return nil, err
	}

	disc := &Discovery{}

	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return fmt.Errorf("relative path of %s: %w", p, relErr)
		}

		if rel == "." {
			return nil
		}

		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if slices.Contains(opts.SkipDirs, rel) || m.ignore.MatchesPath(rel+"/") || m.excluded(rel) {
				return filepath.SkipDir
			}

			return nil
		}

		if !d.Type().IsRegular() || path.Ext(rel) != SourceExt {
			return nil
		}

		reason, skip, classifyErr := m.classify(p, rel)
		if classifyErr != nil {
			return classifyErr
		}

		switch {
		case skip:
			disc.Skipped = append(disc.Skipped, Skipped{Path: rel, Reason: reason})
		case m.isManual(rel):
			disc.Manual = append(disc.Manual, rel)
		default:
			disc.Sources = append(disc.Sources, rel)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	return disc, nil
}

func newMatcher(root string, opts DiscoverOptions) (*matcher, error) {
	lines := slices.Clone(defaultIgnores)

	if !opts.NoGitignore {
		data, err := os.ReadFile(filepath.Join(root, ".gitignore"))
		if err == nil {
			lines = append(lines, strings.Split(string(data), "\n")...)
		}
	}

	excludes, err := compileGlobs(opts.Excludes)
	if err != nil {
		return nil, err
	}

	manual, err := compileGlobs(opts.ManualFiles)
	if err != nil {
		return nil, err
	}

	return &matcher{
		ignore:   ignore.CompileIgnoreLines(lines...),
		excludes: excludes,
		manual:   manual,
	}, nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))

	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("%w %q: %w", ErrBadPattern, pattern, err)
		}

		globs = append(globs, g)
	}

	return globs, nil
}

func (m *matcher) classify(p, rel string) (SkipReason, bool, error) {
	switch {
	case m.ignore.MatchesPath(rel):
		return SkipIgnored, true, nil
	case m.excluded(rel):
		return SkipExcluded, true, nil
	case enry.IsVendor(rel):
		return SkipVendored, true, nil
	}

	binary, err := sniffBinary(p)
	if err != nil {
		return "", false, err
	}

	if binary {
		return SkipBinary, true, nil
	}

	return "", false, nil
}

func (m *matcher) excluded(rel string) bool {
	return slices.ContainsFunc(m.excludes, func(g glob.Glob) bool { return g.Match(rel) })
}

func (m *matcher) isManual(rel string) bool {
	base := path.Base(rel)

	return slices.ContainsFunc(m.manual, func(g glob.Glob) bool { return g.Match(base) })
}

func sniffBinary(p string) (bool, error) {
	f, err := os.Open(p)
	if err != nil {
		return false, fmt.Errorf("open %s: %w", p, err)
	}
	defer f.Close()

	buf := make([]byte, textutil.BinarySniffLength)

	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read %s: %w", p, err)
	}

	return textutil.IsBinary(buf[:n]), nil
}
