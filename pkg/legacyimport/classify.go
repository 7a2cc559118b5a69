// Package legacyimport recognises legacy GJS import declarations
// (`const X = imports.a.b;`) and classifies each one into the rewrite class
// that decides its ES module replacement.
package legacyimport

import (
	"regexp"
	"slices"
	"strings"

	"github.com/Sumatoshi-tech/esmport/pkg/textutil"
)

// Default accessor and directory names of the GNOME Shell legacy namespace.
const (
	DefaultSingletonAccessor = "getCurrentExtension"
	DefaultDomainAccessor    = "domain"
	DefaultNativeRoot        = "gi"
)

// DefaultSubmoduleDirs are the shell module directories rewritten to
// resource:// file imports.
var DefaultSubmoduleDirs = []string{"misc", "ui"}

// statementPattern matches one declaration whose initializer starts at the
// legacy import root. Groups: keyword, binding, expression, accessor, path,
// invocation tail.
var statementPattern = regexp.MustCompile(
	`(?m)^[ \t]*(const|let|var)[ \t]+(\{[\w$\s,]*\}|[\w$]+)[ \t]*=[ \t]*` +
		`((?:([\w$]+)\.)?imports(?:\.([\w$]+(?:\.[\w$]+)*))?)` +
		`(\([^;\n]*)?[ \t]*;?`,
)

// declarationPattern matches any declaration whose initializer reaches the
// legacy import root, including forms statementPattern does not accept.
var declarationPattern = regexp.MustCompile(
	`\b(?:const|let|var)\b[^=\n;]*=[ \t]*(?:[\w$]+\.)?imports\b`,
)

// Occurrence is one matched legacy import statement.
type Occurrence struct {
	Class Class

	// Keyword is the declaration keyword: const, let or var.
	Keyword string

	// Names are the bound identifiers in declaration order.
	Names []string

	// Statement is the exact original statement text, spanning
	// [Start, End) of the source.
	Statement string

	// Expression is the right-hand import expression without the
	// invocation tail.
	Expression string

	// Accessor is the local accessor in front of `.imports` (e.g. "Me").
	Accessor string

	// Tail is the trailing call-expression text of an invoked import.
	Tail string

	// Path holds the dotted segments below the import root.
	Path []string

	Start int
	End   int
	Line  int

	// Destructured is true for the `{ a, b }` binding form.
	Destructured bool

	// Local is true when the import goes through a project-local accessor.
	Local bool
}

// Invoked reports whether the import expression is immediately called.
func (o Occurrence) Invoked() bool {
	return o.Tail != ""
}

// Classifier finds and classifies legacy import occurrences.
type Classifier struct {
	SingletonAccessor string
	DomainAccessor    string
	NativeRoot        string
	SubmoduleDirs     []string
}

// NewClassifier returns a Classifier configured for the GNOME Shell layout.
func NewClassifier() *Classifier {
	return &Classifier{
		SingletonAccessor: DefaultSingletonAccessor,
		DomainAccessor:    DefaultDomainAccessor,
		NativeRoot:        DefaultNativeRoot,
		SubmoduleDirs:     slices.Clone(DefaultSubmoduleDirs),
	}
}

// Classify returns every legacy import statement of src in source order.
// It does not modify src.
func (c *Classifier) Classify(src string) []Occurrence {
	matches := statementPattern.FindAllStringSubmatchIndex(src, -1)
	occurrences := make([]Occurrence, 0, len(matches))

	for _, m := range matches {
		start, end := m[2], m[1]
		if !statementEndsLine(src, end) {
			continue
		}

		occ := Occurrence{
			Keyword:    src[m[2]:m[3]],
			Statement:  src[start:end],
			Expression: src[m[6]:m[7]],
			Start:      start,
			End:        end,
			Line:       textutil.LineAt(src, start),
		}

		occ.Names, occ.Destructured = parseBinding(src[m[4]:m[5]])
		if len(occ.Names) == 0 {
			continue
		}

		if m[8] >= 0 {
			occ.Accessor = src[m[8]:m[9]]
			occ.Local = true
		}

		if m[10] >= 0 {
			occ.Path = strings.Split(src[m[10]:m[11]], ".")
		}

		if m[12] >= 0 {
			occ.Tail = strings.TrimSpace(src[m[12]:m[13]])
		}

		occ.Class = c.classOf(occ)
		occurrences = append(occurrences, occ)
	}

	return occurrences
}

// Stray is a declaration that reaches the legacy import root in a form the
// statement grammar does not cover: several statements on one line, renamed
// destructuring or comma-joined declarators.
type Stray struct {
	// Text runs from the declaration keyword to the end of the statement.
	Text  string
	Start int
	Line  int
}

// Strays returns the legacy import declarations of src that are not covered
// by occurrences, skipping commented-out lines.
func (c *Classifier) Strays(src string, occurrences []Occurrence) []Stray {
	var strays []Stray

	for _, m := range declarationPattern.FindAllStringIndex(src, -1) {
		start := m[0]
		if covered(start, occurrences) || commented(src, start) {
			continue
		}

		end := strings.IndexAny(src[start:], ";\n")
		switch {
		case end < 0:
			end = len(src)
		case src[start+end] == ';':
			end += start + 1
		default:
			end += start
		}

		strays = append(strays, Stray{
			Text:  strings.TrimRight(src[start:end], " \t\r"),
			Start: start,
			Line:  textutil.LineAt(src, start),
		})
	}

	return strays
}

func covered(off int, occurrences []Occurrence) bool {
	for _, occ := range occurrences {
		if off >= occ.Start && off < occ.End {
			return true
		}
	}

	return false
}

// commented reports whether off sits behind a line comment or on a block
// comment continuation line.
func commented(src string, off int) bool {
	prefix := src[strings.LastIndexByte(src[:off], '\n')+1 : off]
	if strings.Contains(prefix, "//") {
		return true
	}

	trimmed := strings.TrimSpace(prefix)

	return strings.HasPrefix(trimmed, "*") || strings.HasPrefix(trimmed, "/*")
}

func (c *Classifier) classOf(occ Occurrence) Class {
	last := ""
	if len(occ.Path) > 0 {
		last = occ.Path[len(occ.Path)-1]
	}

	switch {
	case occ.Local:
		return LocalRelative{}
	case occ.Invoked() && last == c.SingletonAccessor:
		return Singleton{}
	case occ.Invoked() && last == c.DomainAccessor:
		return GettextDomain{}
	case len(occ.Path) > 0 && len(occ.Path) <= 2 && occ.Path[0] == c.NativeRoot:
		native := NativeBinding{}
		if len(occ.Path) == 2 {
			native.Library = occ.Path[1]
		}

		return native
	case len(occ.Path) > 0 && slices.Contains(c.SubmoduleDirs, occ.Path[0]):
		sub := Submodule{Dir: occ.Path[0]}
		if len(occ.Path) > 1 {
			sub.File = occ.Path[1]
		}

		if len(occ.Path) > 2 {
			sub.Member = strings.Join(occ.Path[2:], ".")
		}

		return sub
	default:
		return Generic{Path: strings.Join(occ.Path, "/")}
	}
}

// parseBinding splits `{ a, b }` or `a` into identifiers.
func parseBinding(binding string) ([]string, bool) {
	destructured := strings.HasPrefix(binding, "{")
	inner := strings.Trim(binding, "{}")

	var names []string

	for part := range strings.SplitSeq(inner, ",") {
		name := strings.TrimSpace(part)
		if name != "" {
			names = append(names, name)
		}
	}

	return names, destructured
}

// statementEndsLine reports whether only blanks or a comment follow end on
// its line, so partial expressions such as `imports.a.b || x` are skipped.
func statementEndsLine(src string, end int) bool {
	rest := src[end:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[:nl]
	}

	rest = strings.TrimSpace(rest)

	return rest == "" || strings.HasPrefix(rest, "//") || strings.HasPrefix(rest, "/*")
}
