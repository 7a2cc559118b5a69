package rewrite

import (
	"regexp"
	"slices"
	"strings"

	"github.com/Sumatoshi-tech/esmport/pkg/textutil"
)

const textDecoderCall = "new TextDecoder().decode("

// lookupRemap replaces the legacy extension manager lookup with the static
// Extension lookup.
var lookupRemap = Remap{Old: "Main.extensionManager.lookup", New: "Extension.lookupByUUID"}

// decoderRemaps replace the byte-array string conversions. The fully
// qualified form goes first so that the shorter forms never split it.
var decoderRemaps = []Remap{
	{Old: "imports.byteArray.toString(", New: textDecoderCall},
	{Old: "ByteArray.toString(", New: textDecoderCall},
	{Old: "byteArray.toString(", New: textDecoderCall},
}

// exportPattern matches a column-zero declaration that is not exported yet.
var exportPattern = regexp.MustCompile(`(?m)^(async[ \t]+function|function|class|let|var|const)\b`)

// Apply replaces every match of r in src.
func (r Remap) Apply(src string) string {
	if r.Old == "" {
		return src
	}

	if r.Word {
		return ReplaceWord(src, r.Old, r.New)
	}

	return strings.ReplaceAll(src, r.Old, r.New)
}

// Index returns the offset of the first match of r in src, or -1.
func (r Remap) Index(src string) int {
	if r.Old == "" {
		return -1
	}

	if !r.Word {
		return strings.Index(src, r.Old)
	}

	for off := 0; off < len(src); {
		i := strings.Index(src[off:], r.Old)
		if i < 0 {
			return -1
		}

		at := off + i
		if wordStart(src, at) {
			return at
		}

		off = at + 1
	}

	return -1
}

// ApplyRemaps applies remaps to src in order.
func ApplyRemaps(src string, remaps []Remap) string {
	for _, r := range remaps {
		src = r.Apply(src)
	}

	return src
}

// ReplaceWord replaces every occurrence of old in src that is not preceded
// by an identifier character or a dot.
func ReplaceWord(src, old, replacement string) string {
	if old == "" {
		return src
	}

	var b strings.Builder

	last := 0

	for off := 0; off < len(src); {
		i := strings.Index(src[off:], old)
		if i < 0 {
			break
		}

		at := off + i
		if !wordStart(src, at) {
			off = at + 1

			continue
		}

		b.WriteString(src[last:at])
		b.WriteString(replacement)

		last = at + len(old)
		off = last
	}

	b.WriteString(src[last:])

	return b.String()
}

// ExportDeclarations prefixes every column-zero function, class and variable
// declaration of src with `export`. Lines starting with one of kept are left
// alone. It returns the new text and one Change per added prefix.
func ExportDeclarations(src string, kept []string) (string, []Change) {
	var (
		b       strings.Builder
		changes []Change
	)

	last := 0

	for _, m := range exportPattern.FindAllStringIndex(src, -1) {
		lineEnd := len(src)
		if nl := strings.IndexByte(src[m[0]:], '\n'); nl >= 0 {
			lineEnd = m[0] + nl
		}

		line := src[m[0]:lineEnd]
		if slices.ContainsFunc(kept, func(k string) bool { return k != "" && strings.HasPrefix(line, k) }) {
			continue
		}

		b.WriteString(src[last:m[0]])
		b.WriteString("export ")

		last = m[0]

		changes = append(changes, Change{
			Line:  textutil.LineAt(src, m[0]),
			Class: ClassExport,
			Old:   line,
			New:   "export " + line,
		})
	}

	if len(changes) == 0 {
		return src, nil
	}

	b.WriteString(src[last:])

	return b.String(), changes
}

func wordStart(src string, at int) bool {
	if at == 0 {
		return true
	}

	prev := src[at-1]

	return !textutil.IsIdentByte(prev) && prev != '.'
}
