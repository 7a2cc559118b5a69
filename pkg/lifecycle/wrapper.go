// Package lifecycle restructures an extension entry file: it locates the
// top-level function declarations with a balanced-delimiter scanner and moves
// them into one exported class extending the shell's Extension type.
package lifecycle

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/Sumatoshi-tech/esmport/pkg/textutil"
)

// ErrNoFunctions indicates an entry file without any top-level function.
var ErrNoFunctions = errors.New("no top-level functions found")

// DefaultExtensionModule is the specifier of the shell's Extension base type.
const DefaultExtensionModule = "resource:///org/gnome/shell/extensions/extension.js"

// DefaultLifecycle lists the functions that receive the instance capture.
var DefaultLifecycle = []string{"enable", "disable"}

var (
	extensionImportPattern = regexp.MustCompile(`import\s*\{[^}]*\bExtension\b[^}]*\}\s*from`)
	importLinePattern      = regexp.MustCompile(`(?m)^import\b[^\n]*\n?`)
)

// Wrapper synthesizes the entry-file class.
type Wrapper struct {
	// ClassName is the name of the generated class.
	ClassName string
	// InstanceName is the exported binding holding the running instance.
	InstanceName string
	// UUID identifies the extension in the lookup call.
	UUID string

	Lifecycle       []string
	ExtensionModule string
	Indent          string
}

// NewWrapper returns a Wrapper with the default lifecycle set, module and a
// four-space indent.
func NewWrapper(className, uuid string) *Wrapper {
	return &Wrapper{
		ClassName:       className,
		InstanceName:    className + "Instance",
		UUID:            uuid,
		Lifecycle:       slices.Clone(DefaultLifecycle),
		ExtensionModule: DefaultExtensionModule,
		Indent:          "    ",
	}
}

// Result is the outcome of a successful Wrap.
type Result struct {
	Content   string
	Functions []Function

	// Moved names the non-lifecycle functions that became methods.
	Moved []string

	// ImportedExtension is true when the wrapper added the Extension import.
	ImportedExtension bool
}

// Wrap rewrites src so that every top-level function becomes a method of the
// generated class. extensionImported tells the wrapper that an earlier stage
// already emitted the Extension import. On error src is left as is and the
// returned Result is empty.
func (w *Wrapper) Wrap(src string, extensionImported bool) (Result, error) {
	functions, err := ScanFunctions(src)
	if err != nil {
		return Result{}, fmt.Errorf("scan %s: %w", w.ClassName, err)
	}

	if len(functions) == 0 {
		return Result{}, ErrNoFunctions
	}

	var (
		members []string
		hoisted []string
		moved   []string
		pending string
	)

	for i, fn := range functions {
		if i > 0 {
			gap := src[functions[i-1].End:fn.Start]

			switch {
			case strings.TrimSpace(gap) == "":
			case IsCommentOnly(gap):
				pending = strings.TrimSpace(gap)
			default:
				hoisted = append(hoisted, strings.TrimSpace(gap))
			}
		}

		method := w.method(src, fn)
		if pending != "" {
			method = pending + "\n" + method
			pending = ""
		}

		members = append(members, textutil.Indent(method, w.Indent))

		if !slices.Contains(w.Lifecycle, fn.Name) {
			moved = append(moved, fn.Name)
		}
	}

	first, last := functions[0], functions[len(functions)-1]
	prefix := src[:first.Start]

	imported := extensionImported || HasExtensionImport(src)
	if !imported {
		prefix = InsertImport(prefix, fmt.Sprintf("import { Extension } from '%s';\n", w.ExtensionModule))
	}

	var b strings.Builder

	b.WriteString(prefix)

	for _, h := range hoisted {
		b.WriteString(h)
		b.WriteString("\n\n")
	}

	fmt.Fprintf(&b, "export let %s = Extension.lookupByUUID('%s');\n\n", w.InstanceName, w.UUID)
	fmt.Fprintf(&b, "export default class %s extends Extension {\n", w.ClassName)
	b.WriteString(strings.Join(members, "\n\n"))
	b.WriteString("\n}")
	b.WriteString(src[last.End:])

	return Result{
		Content:           b.String(),
		Functions:         functions,
		Moved:             moved,
		ImportedExtension: !imported,
	}, nil
}

// method renders fn as a class member at column zero.
func (w *Wrapper) method(src string, fn Function) string {
	var b strings.Builder

	if fn.Async {
		b.WriteString("async ")
	}

	if fn.Generator {
		b.WriteString("*")
	}

	b.WriteString(src[fn.NameStart : fn.BodyStart+1])

	body := src[fn.BodyStart+1 : fn.End]

	if slices.Contains(w.Lifecycle, fn.Name) {
		indent := bodyIndent(body, w.Indent)
		fmt.Fprintf(&b, "\n%s%s = this;", indent, w.InstanceName)

		body = breakOpeningLine(body, indent)
	}

	b.WriteString(body)

	return b.String()
}

// breakOpeningLine moves code that shares the line of the opening brace onto
// its own line at indent. A one-line body also gets its closing brace on a
// line of its own.
func breakOpeningLine(body, indent string) string {
	first, rest, multiline := strings.Cut(body, "\n")
	if !multiline {
		inner := strings.TrimSpace(strings.TrimSuffix(body, "}"))
		if inner == "" {
			return "\n}"
		}

		return "\n" + indent + inner + "\n}"
	}

	if strings.TrimSpace(first) == "" {
		return "\n" + rest
	}

	return "\n" + indent + strings.TrimSpace(first) + "\n" + rest
}

// bodyIndent returns the indentation of the first non-blank body line, or
// fallback when the body has none.
func bodyIndent(body, fallback string) string {
	lines := strings.Split(body, "\n")
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) != "" && strings.TrimSpace(line) != "}" {
			return textutil.LeadingSpace(line)
		}
	}

	return fallback
}

// HasExtensionImport reports whether src already imports the Extension
// base type by name.
func HasExtensionImport(src string) bool {
	return extensionImportPattern.MatchString(src)
}

// InsertImport places stmt after the last column-zero import line of src, or
// at the start when src has none. stmt should end with a line break.
func InsertImport(src, stmt string) string {
	locs := importLinePattern.FindAllStringIndex(src, -1)
	if len(locs) == 0 {
		return stmt + src
	}

	at := locs[len(locs)-1][1]
	if at > 0 && src[at-1] != '\n' {
		stmt = "\n" + stmt
	}

	return src[:at] + stmt + src[at:]
}
