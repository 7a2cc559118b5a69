package rewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplaceWord(t *testing.T) {
	t.Parallel()

	got := ReplaceWord("Me.a + TheMe.b + x.Me.c + (Me.d)\nMe.e", "Me.", "this.")

	assert.Equal(t, "this.a + TheMe.b + x.Me.c + (this.d)\nthis.e", got)
}

func TestReplaceWord_Empty(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "abc", ReplaceWord("abc", "", "x"))
	assert.Equal(t, "", ReplaceWord("", "Me.", "this."))
}

func TestRemap_Index(t *testing.T) {
	t.Parallel()

	word := Remap{Old: "Me.", New: "this.", Word: true}
	assert.Equal(t, 6, word.Index("xxMe. Me.y"))
	assert.Equal(t, -1, word.Index("TheMe.x"))

	literal := Remap{Old: "Me.", New: "this."}
	assert.Equal(t, 3, literal.Index("TheMe.x"))
	assert.Equal(t, -1, Remap{}.Index("x"))
}

func TestApplyRemaps_Order(t *testing.T) {
	t.Parallel()

	remaps := []Remap{
		{Old: "imports.byteArray.toString(", New: textDecoderCall},
		{Old: "byteArray.toString(", New: textDecoderCall},
	}

	got := ApplyRemaps("a(imports.byteArray.toString(x)); b(byteArray.toString(y));", remaps)

	assert.Equal(t, "a(new TextDecoder().decode(x)); b(new TextDecoder().decode(y));", got)
}

func TestExportDeclarations(t *testing.T) {
	t.Parallel()

	src := "function a() {}\nexport function b() {}\n  let inner;\nasync function c() {}\nclass D {}\nconst e = 1;\nvar f;\nimport X from 'x';\n"

	got, changes := ExportDeclarations(src, nil)
	require.Len(t, changes, 5)
	assert.Equal(t, Change{Line: 5, Class: ClassExport, Old: "class D {}", New: "export class D {}"}, changes[2])

	want := "export function a() {}\nexport function b() {}\n  let inner;\nexport async function c() {}\n" +
		"export class D {}\nexport const e = 1;\nexport var f;\nimport X from 'x';\n"
	assert.Equal(t, want, got)
}

func TestExportDeclarations_None(t *testing.T) {
	t.Parallel()

	got, changes := ExportDeclarations("import X from 'x';\n", nil)

	assert.Empty(t, changes)
	assert.Equal(t, "import X from 'x';\n", got)
}

func TestExportDeclarations_KeepsListedStatements(t *testing.T) {
	t.Parallel()

	src := "const X = imports.foo.bar();\nconst y = 1;\nconst Main = imports.ui.main; const L = imports.lang;\n"

	got, changes := ExportDeclarations(src, []string{"const X = imports.foo.bar();", "const Main = imports.ui.main;"})

	assert.Equal(t, "const X = imports.foo.bar();\nexport const y = 1;\nconst Main = imports.ui.main; const L = imports.lang;\n", got)
	require.Len(t, changes, 1)
	assert.Equal(t, 2, changes[0].Line)
}
