package migrate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscover_Classifies(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{
		"extension.js":               "const A = 1;\n",
		"prefs.js":                   "const B = 2;\n",
		"widgets/panel.js":           "const C = 3;\n",
		"widgets/panel.min.js":       "const D=4;\n",
		"node_modules/x/index.js":    "module.exports = 1;\n",
		"vendor/jquery.js":           "var $ = 1;\n",
		"build/out.js":               "const E = 5;\n",
		"schemas/gschemas.compiled":  "GVariant\x00",
		"blob.js":                    "\x00\x01\x02binary",
		"tests/fixture.js":           "const F = 6;\n",
		".gitignore":                 "build/\n",
		"widgets/stylesheet.css":     "a {}\n",
		".github/workflows/check.js": "x\n",
	})

	disc, err := Discover(root, DiscoverOptions{
		ManualFiles: []string{"prefs.js"},
		Excludes:    []string{"tests/**"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"extension.js", "widgets/panel.js"}, disc.Sources)
	assert.Equal(t, []string{"prefs.js"}, disc.Manual)

	reasons := map[string]SkipReason{}
	for _, s := range disc.Skipped {
		reasons[s.Path] = s.Reason
	}

	assert.Equal(t, SkipBinary, reasons["blob.js"])
	assert.Equal(t, SkipIgnored, reasons["widgets/panel.min.js"])
	assert.Equal(t, SkipVendored, reasons["vendor/jquery.js"])
	assert.NotContains(t, reasons, "build/out.js")
	assert.Equal(t, SkipExcluded, reasons["tests/fixture.js"])
	assert.NotContains(t, reasons, "node_modules/x/index.js")
}

func TestDiscover_ExcludedFile(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{
		"extension.js": "const A = 1;\n",
		"legacy.js":    "const B = 2;\n",
	})

	disc, err := Discover(root, DiscoverOptions{Excludes: []string{"legacy.js"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"extension.js"}, disc.Sources)
	assert.Equal(t, []Skipped{{Path: "legacy.js", Reason: SkipExcluded}}, disc.Skipped)
}

func TestDiscover_NoGitignore(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{
		".gitignore":   "generated.js\n",
		"generated.js": "const A = 1;\n",
	})

	disc, err := Discover(root, DiscoverOptions{})
	require.NoError(t, err)
	assert.Empty(t, disc.Sources)

	disc, err = Discover(root, DiscoverOptions{NoGitignore: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"generated.js"}, disc.Sources)
}

func TestDiscover_SkipDirs(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{
		"extension.js":     "const A = 1;\n",
		"out/extension.js": "const A = 1;\n",
	})

	disc, err := Discover(root, DiscoverOptions{SkipDirs: []string{"out"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"extension.js"}, disc.Sources)
}

func TestDiscover_BadPattern(t *testing.T) {
	t.Parallel()

	_, err := Discover(t.TempDir(), DiscoverOptions{Excludes: []string{"[unclosed"}})
	require.ErrorIs(t, err, ErrBadPattern)
}

func TestDiscover_MissingRoot(t *testing.T) {
	t.Parallel()

	_, err := Discover(filepath.Join(t.TempDir(), "absent"), DiscoverOptions{})
	require.ErrorIs(t, err, os.ErrNotExist)
}
