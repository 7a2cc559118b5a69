// Package rewrite turns classified legacy import statements into ES module
// imports, fixes up their usage sites and sequences the per-file pass.
package rewrite

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Sumatoshi-tech/esmport/pkg/legacyimport"
	"github.com/Sumatoshi-tech/esmport/pkg/levenshtein"
	"github.com/Sumatoshi-tech/esmport/pkg/textutil"
)

// DefaultSingletonAlias is the local name of the running extension instance
// when no declaration names it.
const DefaultSingletonAlias = "Me"

// ActionGettextDomain asks the user to declare the text domain.
const ActionGettextDomain = "Set the `gettext-domain` key in `metadata.json`"

// extensionUtilsFile is the shell module whose per-extension helpers moved
// onto the Extension instance.
const extensionUtilsFile = "extensionUtils"

// maxSuggestDistance bounds the edit distance of a "did you mean" hint.
const maxSuggestDistance = 2

// instanceMethods maps extensionUtils helpers to their Extension methods.
var instanceMethods = map[string]string{
	"getSettings":      "getSettings",
	"initTranslations": "initTranslations",
	"openPrefs":        "openPreferences",
}

// Rewriter produces the replacement of each occurrence in one file.
type Rewriter struct {
	opts  Options
	src   string
	spans [][2]int
}

// NewRewriter returns a Rewriter for src. occurrences are the classified
// statements of src; usage scans ignore their spans.
func NewRewriter(src string, occurrences []legacyimport.Occurrence, opts Options) *Rewriter {
	spans := make([][2]int, 0, len(occurrences))
	for _, occ := range occurrences {
		spans = append(spans, [2]int{occ.Start, occ.End})
	}

	return &Rewriter{opts: opts, src: src, spans: spans}
}

// Rewrite returns the replacement text of occ. ok is false when the
// statement must stay as it is; the reason is recorded on st.
func (r *Rewriter) Rewrite(occ legacyimport.Occurrence, versions legacyimport.VersionIndex, st *State) (string, bool) {
	switch class := occ.Class.(type) {
	case legacyimport.LocalRelative:
		return r.local(occ, st)
	case legacyimport.Singleton:
		return r.singleton(occ, st)
	case legacyimport.GettextDomain:
		return r.gettext(occ, st)
	case legacyimport.NativeBinding:
		return r.native(occ, class, versions, st)
	case legacyimport.Submodule:
		return r.submodule(occ, class, st)
	case legacyimport.Generic:
		return r.generic(occ, class, st)
	default:
		return r.unclassified(occ, st, "unknown import class")
	}
}

func (r *Rewriter) local(occ legacyimport.Occurrence, st *State) (string, bool) {
	if occ.Invoked() {
		return r.unclassified(occ, st, "invoked local import")
	}

	dir := strings.Join(occ.Path, "/")

	if !occ.Destructured && dir != "" {
		return namespaceImport(occ.Names[0], fmt.Sprintf("%s/%s.js", r.opts.RootRel, dir)), true
	}

	lines := make([]string, 0, len(occ.Names))

	for _, name := range occ.Names {
		target := name
		if dir != "" {
			target = dir + "/" + name
		}

		lines = append(lines, namespaceImport(name, fmt.Sprintf("%s/%s.js", r.opts.RootRel, target)))
	}

	return strings.Join(lines, "\n"), true
}

func (r *Rewriter) singleton(occ legacyimport.Occurrence, st *State) (string, bool) {
	if len(occ.Names) != 1 {
		return r.invalid(occ, st, "current-extension import must bind exactly one name")
	}

	name := occ.Names[0]

	if r.opts.Entry {
		if st.SingletonAlias == "" {
			st.SingletonAlias = name
		}

		return "", true
	}

	return r.injectSingleton(name, st), true
}

// injectSingleton returns the singleton import bound to alias unless one was
// already emitted. A second alias is remapped onto the first.
func (r *Rewriter) injectSingleton(alias string, st *State) string {
	if st.SingletonImported {
		if alias != st.SingletonAlias {
			st.QueueRemap(Remap{Old: alias + ".", New: st.SingletonAlias + ".", Word: true})
		}

		return ""
	}

	st.MarkSingletonImported(alias)

	return fmt.Sprintf("import { %s } from '%s/extension.js';", aliased(r.opts.InstanceName(), alias), r.opts.RootRel)
}

func (r *Rewriter) gettext(occ legacyimport.Occurrence, st *State) (string, bool) {
	if len(occ.Names) != 1 {
		return r.invalid(occ, st, "text-domain import must bind exactly one name")
	}

	if !r.opts.HasGettextDomain {
		st.AddAction(ActionGettextDomain)
	}

	binding := aliased("gettext", occ.Names[0])

	if !st.ExtensionImported {
		st.ExtensionImported = true

		return fmt.Sprintf("import { Extension, %s } from '%s';", binding, r.opts.ExtensionModule), true
	}

	return fmt.Sprintf("import { %s } from '%s';", binding, r.opts.ExtensionModule), true
}

func (r *Rewriter) native(occ legacyimport.Occurrence, class legacyimport.NativeBinding,
	versions legacyimport.VersionIndex, st *State,
) (string, bool) {
	if occ.Invoked() {
		return r.unclassified(occ, st, "invoked introspection import")
	}

	if class.Library != "" {
		spec := r.giSpecifier(class.Library, versions, st)

		if !occ.Destructured {
			return r.nativeImport(occ.Names[0], spec), true
		}

		return fmt.Sprintf("%s\n%s { %s } = %s;",
			r.nativeImport(class.Library, spec), occ.Keyword, strings.Join(occ.Names, ", "), class.Library), true
	}

	lines := make([]string, 0, len(occ.Names))
	for _, name := range occ.Names {
		lines = append(lines, r.nativeImport(name, r.giSpecifier(name, versions, st)))
	}

	return strings.Join(lines, "\n"), true
}

// giSpecifier returns the gi:// specifier of library and drops the pragma
// that pinned it, since the version moves into the specifier.
func (r *Rewriter) giSpecifier(library string, versions legacyimport.VersionIndex, st *State) string {
	pragma, ok := versions.Lookup(library)
	if !ok {
		return "gi://" + library
	}

	st.QueueRemap(Remap{Old: pragma.Statement, New: ""})

	return fmt.Sprintf("gi://%s?version=%s", library, pragma.Version)
}

func (r *Rewriter) nativeImport(name, spec string) string {
	if r.opts.NativeStyle == NativeNamespace {
		return namespaceImport(name, spec)
	}

	return fmt.Sprintf("import %s from '%s';", name, spec)
}

func (r *Rewriter) submodule(occ legacyimport.Occurrence, class legacyimport.Submodule, st *State) (string, bool) {
	if occ.Invoked() {
		return r.unclassified(occ, st, "invoked shell module import")
	}

	if strings.Contains(class.Member, ".") || (class.Member != "" && occ.Destructured) {
		return r.unclassified(occ, st, "nested shell module member")
	}

	var (
		lines []string
		named []string
		utils []string
	)

	addNamespace := func(name, file string) {
		lines = append(lines, namespaceImport(name, r.shellSpecifier(class.Dir, file)))
		if file == extensionUtilsFile {
			utils = append(utils, name)
		}
	}

	switch {
	case class.Member != "":
		lines = append(lines, fmt.Sprintf("import { %s } from '%s';",
			aliased(class.Member, occ.Names[0]), r.shellSpecifier(class.Dir, class.File)))
	case class.File != "" && !occ.Destructured:
		addNamespace(occ.Names[0], class.File)
	case class.File != "":
		for _, name := range occ.Names {
			if textutil.LowerFirst(name) == class.File {
				addNamespace(name, class.File)
			} else {
				named = append(named, name)
			}
		}
	default:
		for _, name := range occ.Names {
			addNamespace(name, textutil.LowerFirst(name))
		}
	}

	if len(named) > 0 {
		lines = append(lines, fmt.Sprintf("import { %s } from '%s';",
			strings.Join(named, ", "), r.shellSpecifier(class.Dir, class.File)))
	}

	for _, receiver := range utils {
		if injected := r.remapExtensionUtils(receiver, st); injected != "" {
			lines = append(lines, injected)
		}
	}

	return strings.Join(lines, "\n"), true
}

// remapExtensionUtils queues remaps moving extensionUtils calls onto the
// extension instance. It returns the singleton import to inject, if any.
func (r *Rewriter) remapExtensionUtils(receiver string, st *State) string {
	sites := FindCallSites(r.src, receiver, r.spans)

	var injected []string

	for _, site := range sites {
		if site.Method != r.opts.singletonAccessor() {
			continue
		}

		alias := r.instanceReceiver(st)
		if decl, name, ok := DeclarationOf(r.src, site); ok {
			st.QueueRemap(Remap{Old: decl, New: ""})

			alias = name
		} else {
			st.QueueRemap(Remap{Old: site.Text, New: alias})
		}

		if r.opts.Entry {
			if st.SingletonAlias == "" {
				st.SingletonAlias = alias
			}

			continue
		}

		if imp := r.injectSingleton(alias, st); imp != "" {
			injected = append(injected, imp)
		}
	}

	for _, site := range sites {
		method, ok := instanceMethods[site.Method]
		if !ok {
			continue
		}

		if !r.opts.Entry {
			if imp := r.injectSingleton(r.instanceReceiver(st), st); imp != "" {
				injected = append(injected, imp)
			}
		}

		st.QueueRemap(Remap{
			Old: site.Text,
			New: fmt.Sprintf("%s.%s(%s)", r.instanceReceiver(st), method, site.Args),
		})
	}

	return strings.Join(injected, "\n")
}

// instanceReceiver is the expression that reaches the extension instance.
func (r *Rewriter) instanceReceiver(st *State) string {
	if r.opts.Entry {
		return "this"
	}

	if st.SingletonAlias != "" {
		return st.SingletonAlias
	}

	return DefaultSingletonAlias
}

func (r *Rewriter) generic(occ legacyimport.Occurrence, class legacyimport.Generic, st *State) (string, bool) {
	if occ.Invoked() {
		return r.unclassified(occ, st, "invoked import")
	}

	if len(occ.Path) == 0 {
		return r.unclassified(occ, st, "bare import root")
	}

	if slices.Contains(r.opts.ObsoleteModules, occ.Path[len(occ.Path)-1]) {
		return "", true
	}

	spec := r.opts.ShellRoot + "/" + class.Path + ".js"
	if slices.Contains(r.opts.BuiltinModules, class.Path) {
		spec = class.Path
	}

	switch {
	case occ.Destructured:
		return fmt.Sprintf("import { %s } from '%s';", strings.Join(occ.Names, ", "), spec), true
	case slices.Contains(r.opts.NamespaceModules, occ.Names[0]):
		return namespaceImport(occ.Names[0], spec), true
	default:
		return fmt.Sprintf("import %s from '%s';", occ.Names[0], spec), true
	}
}

func (r *Rewriter) shellSpecifier(dir, file string) string {
	return fmt.Sprintf("%s/%s/%s.js", r.opts.ShellRoot, dir, file)
}

func (r *Rewriter) unclassified(occ legacyimport.Occurrence, st *State, reason string) (string, bool) {
	if occ.Invoked() && len(occ.Path) > 0 {
		if s, ok := levenshtein.Closest(occ.Path[len(occ.Path)-1], r.accessors(), maxSuggestDistance); ok {
			reason += fmt.Sprintf("; did you mean %s()?", s)
		}
	}

	st.AddError(UnclassifiedImportError, occ.Line, occ.Statement, reason)

	return "", false
}

// accessors are the invoked forms the classifier understands.
func (r *Rewriter) accessors() []string {
	domain := legacyimport.DefaultDomainAccessor
	if r.opts.Classifier != nil {
		domain = r.opts.Classifier.DomainAccessor
	}

	return []string{r.opts.singletonAccessor(), domain}
}

func (r *Rewriter) invalid(occ legacyimport.Occurrence, st *State, reason string) (string, bool) {
	st.AddError(ValidationError, occ.Line, occ.Statement,
		fmt.Sprintf("%s, found %d", reason, len(occ.Names)))

	return "", false
}

func namespaceImport(name, spec string) string {
	return fmt.Sprintf("import * as %s from '%s';", name, spec)
}

// aliased renders `member as alias`, or just member when both agree.
func aliased(member, alias string) string {
	if member == alias {
		return member
	}

	return member + " as " + alias
}
