package commands

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspectCommand_Directory(t *testing.T) {
	t.Parallel()

	root, cfg := writeExtension(t, map[string]string{
		"metadata.json":    testMetadata,
		"extension.js":     testEntry,
		"prefs.js":         "const Gtk = imports.gi.Gtk;\n",
		"vendor/jquery.js": "const X = imports.gi.X;\n",
		"lib/plain.js":     "export const x = 1;\n",
	})

	run, err := execute(t, NewInspectCommand(), "", "inspect", root, "--config", cfg, "--format", "json")
	require.NoError(t, err)

	var doc []struct {
		Path        string `json:"path"`
		Occurrences []struct {
			Class  string `json:"class"`
			Target string `json:"target"`
		} `json:"occurrences"`
	}

	require.NoError(t, json.Unmarshal(run.stdout.Bytes(), &doc))
	require.Len(t, doc, 3)

	assert.Equal(t, "extension.js", doc[0].Path)
	require.Len(t, doc[0].Occurrences, 2)
	assert.Equal(t, "native-binding", doc[0].Occurrences[0].Class)
	assert.Equal(t, "submodule", doc[0].Occurrences[1].Class)
	assert.Equal(t, "ui/main", doc[0].Occurrences[1].Target)

	assert.Equal(t, "lib/plain.js", doc[1].Path)
	assert.Empty(t, doc[1].Occurrences)

	assert.Equal(t, "prefs.js", doc[2].Path)
	assert.Equal(t, "Gtk", doc[2].Occurrences[0].Target)
}

func TestInspectCommand_SingleFileText(t *testing.T) {
	t.Parallel()

	root, cfg := defaultExtension(t)

	run, err := execute(t, NewInspectCommand(), "", "inspect", filepath.Join(root, "extension.js"), "--config", cfg, "--no-color")
	require.NoError(t, err)

	out := run.stdout.String()
	assert.Contains(t, out, "extension.js")
	assert.Contains(t, out, "native-binding")
	assert.Contains(t, out, "1 files, 2 legacy imports")
	assert.NoFileExists(t, filepath.Join(root, "extension.esm.js"))
}

func TestInspectCommand_MissingTarget(t *testing.T) {
	t.Parallel()

	_, cfg := defaultExtension(t)

	_, err := execute(t, NewInspectCommand(), "", "inspect", filepath.Join(t.TempDir(), "nope"), "--config", cfg)
	require.Error(t, err)
}
