package legacyimport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func classifyOne(t *testing.T, src string) Occurrence {
	t.Helper()

	occs := NewClassifier().Classify(src)
	require.Len(t, occs, 1)

	return occs[0]
}

func TestClassify_LocalRelative(t *testing.T) {
	t.Parallel()

	occ := classifyOne(t, "const { utils, uiUtils } = Me.imports;\n")

	assert.Equal(t, LocalRelative{}, occ.Class)
	assert.True(t, occ.Local)
	assert.True(t, occ.Destructured)
	assert.Equal(t, "Me", occ.Accessor)
	assert.Equal(t, []string{"utils", "uiUtils"}, occ.Names)
	assert.Empty(t, occ.Path)
}

func TestClassify_LocalRelativeWithPath(t *testing.T) {
	t.Parallel()

	occ := classifyOne(t, "const dev = Me.imports.devUtils;")

	assert.Equal(t, LocalRelative{}, occ.Class)
	assert.Equal(t, []string{"devUtils"}, occ.Path)
	assert.False(t, occ.Destructured)
}

func TestClassify_LocalWinsOverSingleton(t *testing.T) {
	t.Parallel()

	occ := classifyOne(t, "const x = Me.imports.misc.getCurrentExtension();")

	assert.Equal(t, LocalRelative{}, occ.Class)
}

func TestClassify_Singleton(t *testing.T) {
	t.Parallel()

	occ := classifyOne(t, "const Me = imports.misc.extensionUtils.getCurrentExtension();")

	assert.Equal(t, Singleton{}, occ.Class)
	assert.Equal(t, "()", occ.Tail)
	assert.Equal(t, "imports.misc.extensionUtils.getCurrentExtension", occ.Expression)
}

func TestClassify_SingletonRequiresInvocation(t *testing.T) {
	t.Parallel()

	occ := classifyOne(t, "const get = imports.misc.extensionUtils.getCurrentExtension;")

	assert.Equal(t, Submodule{Dir: "misc", File: "extensionUtils", Member: "getCurrentExtension"}, occ.Class)
}

func TestClassify_GettextDomain(t *testing.T) {
	t.Parallel()

	occ := classifyOne(t, "const _ = imports.gettext.domain(Me.metadata['gettext-domain']).gettext;")

	assert.Equal(t, GettextDomain{}, occ.Class)
	assert.Equal(t, "(Me.metadata['gettext-domain']).gettext", occ.Tail)
	assert.Equal(t, []string{"_"}, occ.Names)
}

func TestClassify_NativeBindingDestructured(t *testing.T) {
	t.Parallel()

	occ := classifyOne(t, "const { Meta, GLib, Gio } = imports.gi;")

	assert.Equal(t, NativeBinding{}, occ.Class)
	assert.Equal(t, []string{"Meta", "GLib", "Gio"}, occ.Names)
}

func TestClassify_NativeBindingNamedLibrary(t *testing.T) {
	t.Parallel()

	occ := classifyOne(t, "var Gtk = imports.gi.Gtk;")

	assert.Equal(t, NativeBinding{Library: "Gtk"}, occ.Class)
	assert.Equal(t, "var", occ.Keyword)
}

func TestClassify_Submodule(t *testing.T) {
	t.Parallel()

	tests := []struct {
		src  string
		want Class
	}{
		{"const Main = imports.ui.main;", Submodule{Dir: "ui", File: "main"}},
		{"const { modalDialog, shellEntry } = imports.ui;", Submodule{Dir: "ui"}},
		{"const { FileMonitor } = imports.misc;", Submodule{Dir: "misc"}},
		{"const CheckBox  = imports.ui.checkBox.CheckBox;", Submodule{Dir: "ui", File: "checkBox", Member: "CheckBox"}},
	}

	for _, tt := range tests {
		occ := classifyOne(t, tt.src)
		assert.Equal(t, tt.want, occ.Class, tt.src)
	}
}

func TestClassify_Generic(t *testing.T) {
	t.Parallel()

	occ := classifyOne(t, "let Gettext = imports.gettext;")

	assert.Equal(t, Generic{Path: "gettext"}, occ.Class)
	assert.Equal(t, "let", occ.Keyword)
}

func TestClassify_SkipsPartialExpressions(t *testing.T) {
	t.Parallel()

	occs := NewClassifier().Classify("const x = imports.foo.bar || fallback;\nconst y = importsFoo;\n")

	assert.Empty(t, occs)
}

func TestClassify_AllowsTrailingComment(t *testing.T) {
	t.Parallel()

	occ := classifyOne(t, "const Main = imports.ui.main; // shell\n")

	assert.Equal(t, "const Main = imports.ui.main;", occ.Statement)
}

func TestClassify_SpansAndLines(t *testing.T) {
	t.Parallel()

	src := "// header\n  const Main = imports.ui.main;\nconst { GLib } = imports.gi;\n"
	occs := NewClassifier().Classify(src)

	require.Len(t, occs, 2)
	assert.Equal(t, 2, occs[0].Line)
	assert.Equal(t, 3, occs[1].Line)

	for _, occ := range occs {
		assert.Equal(t, occ.Statement, src[occ.Start:occ.End])
	}
}

func TestClassify_Totality(t *testing.T) {
	t.Parallel()

	src := `
const Me = imports.misc.extensionUtils.getCurrentExtension();
const _ = imports.gettext.domain('x').gettext;
const { utils } = Me.imports;
const { GLib } = imports.gi;
const Main = imports.ui.main;
const Lang = imports.lang;
const spawn = imports.misc.util.spawn();
`
	occs := NewClassifier().Classify(src)
	require.Len(t, occs, 7)

	for _, occ := range occs {
		require.NotNil(t, occ.Class, occ.Statement)
		assert.Contains(t, Names, occ.Class.Name())
	}
}

func TestClassify_CustomSubmoduleDirs(t *testing.T) {
	t.Parallel()

	c := NewClassifier()
	c.SubmoduleDirs = []string{"ui"}

	occs := c.Classify("const Util = imports.misc.util;")
	require.Len(t, occs, 1)

	assert.Equal(t, Generic{Path: "misc/util"}, occs[0].Class)
}

func TestIndexVersions(t *testing.T) {
	t.Parallel()

	src := "imports.gi.versions.Gdk = '3.0';\nimports.gi.versions.Gtk = \"3.0\";\nimports.gi.versions.Gtk = '4.0';\n"
	index := IndexVersions(src)

	require.Len(t, index, 2)

	gtk, ok := index.Lookup("Gtk")
	require.True(t, ok)
	assert.Equal(t, "4.0", gtk.Version)
	assert.Equal(t, "imports.gi.versions.Gtk = '4.0';\n", gtk.Statement)

	_, ok = index.Lookup("GLib")
	assert.False(t, ok)
}

func TestIndexVersions_Empty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, IndexVersions("const x = 1;"))
}

func TestStrays_UncoveredForms(t *testing.T) {
	t.Parallel()

	src := "const Main = imports.ui.main; const Lang = imports.lang;\n" +
		"const { PopupMenuItem: Item } = imports.ui.popupMenu;\n" +
		"var Util = imports.misc.util, Foo = 1;\n" +
		"const x = imports.foo.bar || fallback;\n"

	c := NewClassifier()
	occs := c.Classify(src)
	require.Empty(t, occs)

	strays := c.Strays(src, occs)
	require.Len(t, strays, 5)

	assert.Equal(t, "const Main = imports.ui.main;", strays[0].Text)
	assert.Equal(t, "const Lang = imports.lang;", strays[1].Text)
	assert.Equal(t, 1, strays[1].Line)
	assert.Equal(t, "const { PopupMenuItem: Item } = imports.ui.popupMenu;", strays[2].Text)
	assert.Equal(t, "var Util = imports.misc.util, Foo = 1;", strays[3].Text)
	assert.Equal(t, 4, strays[4].Line)
}

func TestStrays_SkipsCoveredAndCommented(t *testing.T) {
	t.Parallel()

	src := "const Main = imports.ui.main;\n" +
		"// const Old = imports.ui.old;\n" +
		" * var Doc = imports.doc;\n" +
		"let n = 1; // let m = imports.m;\n" +
		"const y = importsFoo;\n"

	c := NewClassifier()

	assert.Empty(t, c.Strays(src, c.Classify(src)))
}
