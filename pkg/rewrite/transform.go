package rewrite

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Sumatoshi-tech/esmport/pkg/legacyimport"
	"github.com/Sumatoshi-tech/esmport/pkg/lifecycle"
	"github.com/Sumatoshi-tech/esmport/pkg/textutil"
)

// NativeStyle selects the binding form of gi:// imports.
type NativeStyle string

// Native binding styles.
const (
	// NativeDefault emits `import GLib from 'gi://GLib'`.
	NativeDefault NativeStyle = "default"
	// NativeNamespace emits `import * as GLib from 'gi://GLib'`.
	NativeNamespace NativeStyle = "namespace"
)

// DefaultShellRoot is the resource root of the shell's own modules.
const DefaultShellRoot = "resource:///org/gnome/shell"

// FallbackClassName names the entry class when no usable name is given. The
// base type name is replaced by it since the class extends that type.
const FallbackClassName = "MyExtension"

const baseClassName = "Extension"

// Default module lists.
var (
	DefaultNamespaceModules = []string{"Main", "Util"}
	DefaultBuiltinModules   = []string{"gettext", "system", "cairo"}
	DefaultObsoleteModules  = []string{"byteArray"}
)

// Options configures the pass over one file.
type Options struct {
	// Path is the file path relative to the extension root, used in
	// messages.
	Path string

	// Entry marks the extension entry file.
	Entry bool

	// RootRel is the relative path from the file's directory to the
	// extension root: "." for top-level files.
	RootRel string

	ClassName        string
	UUID             string
	HasGettextDomain bool

	NativeStyle      NativeStyle
	NamespaceModules []string
	BuiltinModules   []string
	ObsoleteModules  []string
	ExtensionModule  string
	ShellRoot        string
	Lifecycle        []string

	Classifier *legacyimport.Classifier
}

// DefaultOptions returns Options for a top-level non-entry file.
func DefaultOptions() Options {
	return Options{
		RootRel:          ".",
		ClassName:        FallbackClassName,
		NativeStyle:      NativeDefault,
		NamespaceModules: slices.Clone(DefaultNamespaceModules),
		BuiltinModules:   slices.Clone(DefaultBuiltinModules),
		ObsoleteModules:  slices.Clone(DefaultObsoleteModules),
		ExtensionModule:  lifecycle.DefaultExtensionModule,
		ShellRoot:        DefaultShellRoot,
		Lifecycle:        slices.Clone(lifecycle.DefaultLifecycle),
		Classifier:       legacyimport.NewClassifier(),
	}
}

// InstanceName returns the exported singleton binding of the entry file.
func (o Options) InstanceName() string {
	return o.ClassName + "Instance"
}

// normalized fills the fields whose zero value cannot produce a valid
// specifier.
func (o Options) normalized() Options {
	if o.Classifier == nil {
		o.Classifier = legacyimport.NewClassifier()
	}

	if o.RootRel == "" {
		o.RootRel = "."
	}

	if o.ShellRoot == "" {
		o.ShellRoot = DefaultShellRoot
	}

	if o.ExtensionModule == "" {
		o.ExtensionModule = lifecycle.DefaultExtensionModule
	}

	if o.ClassName == "" || o.ClassName == baseClassName {
		o.ClassName = FallbackClassName
	}

	return o
}

func (o Options) singletonAccessor() string {
	if o.Classifier != nil {
		return o.Classifier.SingletonAccessor
	}

	return legacyimport.DefaultSingletonAccessor
}

// Result is the outcome of Transform.
type Result struct {
	Content     string
	State       *State
	Occurrences []legacyimport.Occurrence

	// Wrapped is true when the entry file was restructured into a class.
	Wrapped bool

	// Exported counts the declarations that gained an export keyword.
	Exported int
}

// Changed reports whether the content differs from src.
func (r Result) Changed(src string) bool {
	return r.Content != src
}

// Transform runs the whole per-file pass over src: classification, import
// rewriting into a fresh buffer, usage remaps and, for the entry file, class
// synthesis. It never fails; problems are recorded on the returned State.
func Transform(src string, opts Options) Result {
	opts = opts.normalized()

	st := NewState()
	st.ExtensionImported = lifecycle.HasExtensionImport(src)

	occurrences := opts.Classifier.Classify(src)
	versions := legacyimport.IndexVersions(src)
	rw := NewRewriter(src, occurrences, opts)

	// kept are the statements that must reach the output unchanged.
	var kept []string

	for _, stray := range opts.Classifier.Strays(src, occurrences) {
		st.AddError(UnclassifiedImportError, stray.Line, stray.Text,
			"unsupported declaration form; put each import in its own statement without renaming")

		kept = append(kept, stray.Text)
	}

	var b strings.Builder

	cursor := 0

	for _, occ := range occurrences {
		replacement, ok := rw.Rewrite(occ, versions, st)
		if !ok {
			kept = append(kept, occ.Statement)

			continue
		}

		start, end := occ.Start, occ.End
		if replacement == "" {
			start, end = lineSpan(src, start, end)
		}

		b.WriteString(src[cursor:start])
		b.WriteString(replacement)

		cursor = end

		st.AddChange(occ.Line, occ.Class.Name(), occ.Statement, replacement)
	}

	b.WriteString(src[cursor:])

	content := queueAlwaysOn(b.String(), st, opts)
	content = applyRemaps(content, st, st.Remaps)

	res := Result{State: st, Occurrences: occurrences}

	if opts.Entry {
		content, res.Wrapped = wrapEntry(content, st, opts)
	} else {
		var exports []Change

		content, exports = ExportDeclarations(content, kept)
		st.Changes = append(st.Changes, exports...)
		res.Exported = len(exports)
	}

	res.Content = content

	return res
}

// queueAlwaysOn queues the fixed remaps that apply to content and injects
// the Extension import the lookup remap depends on.
func queueAlwaysOn(content string, st *State, opts Options) string {
	if strings.Contains(content, lookupRemap.Old) {
		st.QueueRemap(lookupRemap)

		if !st.ExtensionImported && !lifecycle.HasExtensionImport(content) {
			stmt := fmt.Sprintf("import { Extension } from '%s';", opts.ExtensionModule)
			content = lifecycle.InsertImport(content, stmt+"\n")
			st.ExtensionImported = true
			st.AddChange(0, ClassRemap, "", stmt)
		}
	}

	for _, r := range decoderRemaps {
		if strings.Contains(content, r.Old) {
			st.QueueRemap(r)
		}
	}

	return content
}

// applyRemaps applies remaps in order and records a change for each one
// that matched.
func applyRemaps(content string, st *State, remaps []Remap) string {
	for _, r := range remaps {
		at := r.Index(content)
		if at < 0 {
			continue
		}

		st.AddChange(textutil.LineAt(content, at), ClassRemap, r.Old, r.New)
		content = r.Apply(content)
	}

	return content
}

// wrapEntry restructures the entry file and moves the singleton alias onto
// the class instance.
func wrapEntry(content string, st *State, opts Options) (string, bool) {
	w := lifecycle.NewWrapper(opts.ClassName, opts.UUID)
	w.InstanceName = opts.InstanceName()
	w.ExtensionModule = opts.ExtensionModule

	if len(opts.Lifecycle) > 0 {
		w.Lifecycle = opts.Lifecycle
	}

	res, err := w.Wrap(content, st.ExtensionImported)
	if err != nil {
		st.AddError(StructuralScanError, 0, "", err.Error())

		return bindSingleton(content, st, opts), false
	}

	if res.ImportedExtension {
		st.ExtensionImported = true
	}

	names := make([]string, 0, len(res.Functions))
	for _, fn := range res.Functions {
		names = append(names, fn.Name)
	}

	st.AddChange(textutil.LineAt(content, res.Functions[0].Start), ClassLifecycle,
		"function "+strings.Join(names, ", function "),
		fmt.Sprintf("export default class %s extends Extension", opts.ClassName))

	alias := st.SingletonAlias
	if alias == "" {
		alias = DefaultSingletonAlias
	}

	instance := Remap{Old: alias + ".", New: "this.", Word: true}

	out := res.Content
	if st.QueueRemap(instance) {
		out = applyRemaps(out, st, []Remap{instance})
	}

	if len(res.Moved) > 0 {
		st.AddAction(fmt.Sprintf("Review the functions moved into class `%s` in `%s`: %s",
			opts.ClassName, entryPath(opts), strings.Join(res.Moved, ", ")))
	}

	return out, true
}

// bindSingleton declares the singleton alias of an entry file that could not
// be wrapped, since its legacy declaration was already removed.
func bindSingleton(content string, st *State, opts Options) string {
	alias := st.SingletonAlias
	if alias == "" || alias == "this" {
		return content
	}

	decl := fmt.Sprintf("const %s = Extension.lookupByUUID('%s');", alias, opts.UUID)
	block := decl + "\n"

	if !st.ExtensionImported && !lifecycle.HasExtensionImport(content) {
		stmt := fmt.Sprintf("import { Extension } from '%s';", opts.ExtensionModule)
		block = stmt + "\n" + block
		st.ExtensionImported = true
		st.AddChange(0, ClassRemap, "", stmt)
	}

	st.AddChange(0, ClassLifecycle, "", decl)

	return lifecycle.InsertImport(content, block)
}

func entryPath(opts Options) string {
	if opts.Path != "" {
		return opts.Path
	}

	return "extension.js"
}

// lineSpan widens [start, end) to the whole line when nothing else shares
// it, so a statement replaced by nothing leaves no blank line behind.
func lineSpan(src string, start, end int) (int, int) {
	lineStart := strings.LastIndexByte(src[:start], '\n') + 1
	if strings.TrimSpace(src[lineStart:start]) != "" {
		return start, end
	}

	lineEnd := len(src)
	if nl := strings.IndexByte(src[end:], '\n'); nl >= 0 {
		lineEnd = end + nl
	}

	if strings.TrimSpace(src[end:lineEnd]) != "" {
		return start, end
	}

	if lineEnd < len(src) {
		lineEnd++
	}

	return lineStart, lineEnd
}
