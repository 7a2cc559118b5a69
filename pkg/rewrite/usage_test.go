package rewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindCallSites(t *testing.T) {
	t.Parallel()

	src := "ExtensionUtils.getSettings('a', f(b));\nx.ExtensionUtils.openPrefs();\nMyExtensionUtils.getSettings();\n"

	sites := FindCallSites(src, "ExtensionUtils", nil)
	require.Len(t, sites, 1)

	site := sites[0]
	assert.Equal(t, "getSettings", site.Method)
	assert.Equal(t, "'a', f(b)", site.Args)
	assert.Equal(t, "ExtensionUtils.getSettings('a', f(b))", site.Text)
	assert.Equal(t, site.Text, src[site.Start:site.End])
	assert.Equal(t, 1, site.Line)
}

func TestFindCallSites_MultilineArgs(t *testing.T) {
	t.Parallel()

	src := "let s = utils.getSettings(\n    'org.x',\n    { a: ')' });\n"

	sites := FindCallSites(src, "utils", nil)
	require.Len(t, sites, 1)
	assert.Equal(t, "\n    'org.x',\n    { a: ')' }", sites[0].Args)
}

func TestFindCallSites_SkipsSpans(t *testing.T) {
	t.Parallel()

	src := "const a = U.get();\nU.get();\n"

	sites := FindCallSites(src, "U", [][2]int{{0, 18}})
	require.Len(t, sites, 1)
	assert.Equal(t, 2, sites[0].Line)
}

func TestFindCallSites_Unbalanced(t *testing.T) {
	t.Parallel()

	assert.Empty(t, FindCallSites("U.get(a, b\n", "U", nil))
}

func TestDeclarationOf(t *testing.T) {
	t.Parallel()

	src := "let x;\n  const Me = EU.getCurrentExtension();\nfoo(EU.getCurrentExtension().path);\n"
	sites := FindCallSites(src, "EU", nil)
	require.Len(t, sites, 2)

	decl, name, ok := DeclarationOf(src, sites[0])
	require.True(t, ok)
	assert.Equal(t, "  const Me = EU.getCurrentExtension();\n", decl)
	assert.Equal(t, "Me", name)

	_, _, ok = DeclarationOf(src, sites[1])
	assert.False(t, ok)
}
