// Package migrate runs the ES module migration over a whole extension tree:
// it loads the metadata, discovers the sources, rewrites them in parallel
// and aggregates a report.
package migrate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/esmport/pkg/metadata"
	"github.com/Sumatoshi-tech/esmport/pkg/observability"
	"github.com/Sumatoshi-tech/esmport/pkg/rewrite"
)

// Defaults.
const (
	DefaultDirSuffix = ".GNOME45"
	DefaultEntryFile = "extension.js"
	DefaultPrefsFile = "prefs.js"
)

const (
	spanRun  = "esmport.migrate.run"
	spanFile = "esmport.migrate.file"

	outputFileMode = 0o644
	outputDirMode  = 0o755
)

// ErrFatalConfiguration wraps the metadata failures that halt a run before
// any file is touched.
var ErrFatalConfiguration = errors.New("fatal configuration error")

// Options configures a migration run.
type Options struct {
	// Root is the extension directory.
	Root string

	// Output is the mirror directory. Empty means Root + DirSuffix.
	Output    string
	DirSuffix string

	// FileSuffix switches to in-place mode: each rewritten file is written
	// next to its source as <name><FileSuffix>.js and no mirror is created.
	FileSuffix string

	DryRun  bool
	Workers int

	EntryFile   string
	ManualFiles []string
	Excludes    []string
	NoGitignore bool

	// Rewrite is the per-file template; path, entry and extension identity
	// fields are filled in for each file.
	Rewrite rewrite.Options

	Logger  *slog.Logger
	Tracer  trace.Tracer
	Metrics *observability.MigrationMetrics
}

// DefaultOptions returns Options for root with the stock layout.
func DefaultOptions(root string) Options {
	return Options{
		Root:        root,
		DirSuffix:   DefaultDirSuffix,
		Workers:     1,
		EntryFile:   DefaultEntryFile,
		ManualFiles: []string{DefaultPrefsFile},
		Rewrite:     rewrite.DefaultOptions(),
	}
}

// OutputDir returns the mirror directory, or "" in in-place mode.
func (o Options) OutputDir() string {
	if o.FileSuffix != "" {
		return ""
	}

	if o.Output != "" {
		return o.Output
	}

	suffix := o.DirSuffix
	if suffix == "" {
		suffix = DefaultDirSuffix
	}

	root := o.Root
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}

	return filepath.Clean(root) + suffix
}

func (o Options) withDefaults() Options {
	if o.Workers < 1 {
		o.Workers = 1
	}

	if o.EntryFile == "" {
		o.EntryFile = DefaultEntryFile
	}

	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}

	if o.Tracer == nil {
		o.Tracer = nooptrace.NewTracerProvider().Tracer("esmport")
	}

	return o
}

// ManualAction is the action item raised for a manual-review file.
func ManualAction(rel string) string {
	return fmt.Sprintf("Please manually update `%s`", rel)
}

// ShellVersionAction is raised when metadata.json does not list the target
// shell release.
func ShellVersionAction() string {
	return fmt.Sprintf("Add %q to `shell-version` in `%s`", metadata.TargetShellVersion, metadata.FileName)
}

type runner struct {
	opts   Options
	md     *metadata.Metadata
	output string
}

// Run migrates the tree under opts.Root. Missing or invalid metadata returns
// an error wrapping ErrFatalConfiguration; per-file problems are recorded on
// the report instead.
func Run(ctx context.Context, opts Options) (*Report, error) {
	opts = opts.withDefaults()
	started := time.Now()

	ctx, span := opts.Tracer.Start(ctx, spanRun, trace.WithAttributes(
		attribute.Int("esmport.workers", opts.Workers),
		attribute.Bool("esmport.dry_run", opts.DryRun),
	))
	defer span.End()

	md, err := metadata.Load(opts.Root)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "metadata")

		return nil, fmt.Errorf("%w: %w", ErrFatalConfiguration, err)
	}

	r := &runner{opts: opts, md: md, output: opts.OutputDir()}

	disc, err := Discover(opts.Root, r.discoverOptions())
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}

	opts.Logger.InfoContext(ctx, "discovered sources",
		"root", opts.Root, "sources", len(disc.Sources), "manual", len(disc.Manual), "skipped", len(disc.Skipped))

	if !opts.DryRun && r.output != "" {
		err = copyTree(opts.Root, r.output)
		if err != nil {
			return nil, fmt.Errorf("mirror %s: %w", opts.Root, err)
		}
	}

	files := make([]FileReport, len(disc.Sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for i, rel := range disc.Sources {
		g.Go(func() error {
			if ctxErr := gctx.Err(); ctxErr != nil {
				return ctxErr
			}

			files[i] = r.migrateFile(gctx, rel)

			return nil
		})
	}

	err = g.Wait()
	if err != nil {
		return nil, fmt.Errorf("migrate files: %w", err)
	}

	rep := &Report{
		Root:      opts.Root,
		Output:    r.output,
		DryRun:    opts.DryRun,
		UUID:      md.UUID,
		ClassName: md.ClassName(),
		Files:     files,
		Skipped:   disc.Skipped,
	}

	for _, f := range files {
		rep.addActions(f.Actions...)
	}

	for _, rel := range disc.Manual {
		action := ManualAction(rel)
		rep.Files = append(rep.Files, FileReport{Path: rel, Status: StatusManual, Actions: []string{action}})
		rep.addActions(action)
		opts.Metrics.RecordFile(ctx, string(StatusManual), 0)
	}

	if !md.SupportsShell(metadata.TargetShellVersion) {
		rep.addActions(ShellVersionAction())
	}

	rep.Duration = time.Since(started)

	return rep, nil
}

func (r *runner) discoverOptions() DiscoverOptions {
	disc := DiscoverOptions{
		ManualFiles: r.opts.ManualFiles,
		Excludes:    r.opts.Excludes,
		NoGitignore: r.opts.NoGitignore,
	}

	if r.opts.FileSuffix != "" {
		disc.Excludes = append(disc.Excludes[:len(disc.Excludes):len(disc.Excludes)],
			"**"+glob.QuoteMeta(r.opts.FileSuffix+SourceExt))
	}

	if r.output != "" {
		rel, err := filepath.Rel(r.opts.Root, r.output)
		if err == nil && rel != "." && !strings.HasPrefix(rel, "..") {
			disc.SkipDirs = append(disc.SkipDirs, filepath.ToSlash(rel))
		}
	}

	return disc
}

func (r *runner) migrateFile(ctx context.Context, rel string) (fr FileReport) {
	started := time.Now()

	ctx, span := r.opts.Tracer.Start(ctx, spanFile, trace.WithAttributes(attribute.String("esmport.file", rel)))
	defer span.End()

	fr = FileReport{Path: rel, Entry: rel == r.opts.EntryFile}

	defer func() {
		fr.Duration = time.Since(started)
		r.opts.Metrics.RecordFile(ctx, string(fr.Status), fr.Duration)
	}()

	source := filepath.Join(r.opts.Root, filepath.FromSlash(rel))

	data, err := os.ReadFile(source)
	if err != nil {
		return r.fail(ctx, span, fr, err)
	}

	ropts := r.opts.Rewrite
	ropts.Path = rel
	ropts.Entry = fr.Entry
	ropts.RootRel = relRoot(rel)
	ropts.ClassName = r.md.ClassName()
	ropts.UUID = r.md.UUID
	ropts.HasGettextDomain = r.md.HasGettextDomain()

	src := string(data)
	res := rewrite.Transform(src, ropts)

	fr.Original = src
	fr.Content = res.Content
	fr.Wrapped = res.Wrapped
	fr.Changes = res.State.Changes
	fr.Errors = res.State.Errors
	fr.Actions = res.State.Actions
	fr.BytesIn = int64(len(src))
	fr.BytesOut = int64(len(res.Content))

	fr.Status = StatusUnchanged
	if res.Changed(src) {
		fr.Status = StatusRewritten
	}

	for _, c := range fr.Changes {
		r.opts.Metrics.RecordChange(ctx, c.Class)
	}

	for _, e := range fr.Errors {
		r.opts.Metrics.RecordError(ctx, e.Kind.String())
		r.opts.Logger.WarnContext(ctx, "rewrite problem", "path", rel, "line", e.Line, "kind", e.Kind.String(), "reason", e.Reason)
	}

	if !r.opts.DryRun {
		target := r.target(rel)
		if fr.Status == StatusRewritten || r.output != "" {
			fr.Output = target
		}

		if fr.Status == StatusRewritten {
			err = os.WriteFile(target, []byte(res.Content), outputFileMode)
			if err != nil {
				return r.fail(ctx, span, fr, err)
			}
		}
	}

	span.SetAttributes(
		attribute.String("esmport.status", string(fr.Status)),
		attribute.Int("esmport.changes", len(fr.Changes)),
	)

	r.opts.Logger.DebugContext(ctx, "file migrated", "path", rel, "status", fr.Status, "changes", len(fr.Changes))

	return fr
}

func (r *runner) fail(ctx context.Context, span trace.Span, fr FileReport, err error) FileReport {
	span.RecordError(err)
	span.SetStatus(codes.Error, "io")

	fr.Status = StatusFailed
	fr.Failure = err.Error()
	fr.Output = ""

	r.opts.Logger.ErrorContext(ctx, "file failed", "path", fr.Path, "error", err)

	return fr
}

func (r *runner) target(rel string) string {
	if r.output != "" {
		return filepath.Join(r.output, filepath.FromSlash(rel))
	}

	source := filepath.Join(r.opts.Root, filepath.FromSlash(rel))

	return strings.TrimSuffix(source, SourceExt) + r.opts.FileSuffix + SourceExt
}

// relRoot is the relative path from rel's directory back to the root.
func relRoot(rel string) string {
	dir := path.Dir(rel)
	if dir == "." {
		return "."
	}

	depth := strings.Count(dir, "/") + 1

	return strings.TrimSuffix(strings.Repeat("../", depth), "/")
}

// copyTree mirrors every regular file under root into dst, skipping VCS
// metadata and dst itself when it is nested.
func copyTree(root, dst string) error {
	absDst, err := filepath.Abs(dst)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", dst, err)
	}

	return filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return fmt.Errorf("relative path of %s: %w", p, relErr)
		}

		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}

			if abs, absErr := filepath.Abs(p); absErr == nil && abs == absDst {
				return filepath.SkipDir
			}

			return os.MkdirAll(filepath.Join(dst, rel), outputDirMode)
		}

		if !d.Type().IsRegular() {
			return nil
		}

		return copyFile(p, filepath.Join(dst, rel))
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	_, err = io.Copy(out, in)

	return errors.Join(err, out.Close())
}
