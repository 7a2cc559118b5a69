package report

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/esmport/pkg/legacyimport"
)

const inspectSource = `const { GLib, Gio } = imports.gi;
const Main = imports.ui.main;
const Me = imports.misc.extensionUtils.getCurrentExtension();
`

func sampleInspection() []Inspection {
	return []Inspection{
		{Path: "extension.js", Occurrences: legacyimport.NewClassifier().Classify(inspectSource)},
		{Path: "empty.js"},
		{Path: "broken.js", Failure: "permission denied"},
	}
}

func TestRenderInspection_Text(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, RenderInspection(&buf, sampleInspection(), Options{NoColor: true}))

	out := buf.String()
	assert.Contains(t, out, "native-binding")
	assert.Contains(t, out, "GLib, Gio")
	assert.Contains(t, out, "ui/main")
	assert.Contains(t, out, "singleton")
	assert.Contains(t, out, "(...)")
	assert.Contains(t, out, "no legacy imports")
	assert.Contains(t, out, "failed: permission denied")
	assert.Contains(t, out, "3 files, 3 legacy imports")
}

func TestRenderInspection_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, RenderInspection(&buf, sampleInspection(), Options{Format: FormatJSON}))

	var doc []struct {
		Path        string `json:"path"`
		Occurrences []struct {
			Line    int      `json:"line"`
			Class   string   `json:"class"`
			Names   []string `json:"names"`
			Target  string   `json:"target"`
			Invoked bool     `json:"invoked"`
		} `json:"occurrences"`
	}

	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc, 3)
	require.Len(t, doc[0].Occurrences, 3)

	main := doc[0].Occurrences[1]
	assert.Equal(t, 2, main.Line)
	assert.Equal(t, legacyimport.NameSubmodule, main.Class)
	assert.Equal(t, []string{"Main"}, main.Names)
	assert.Equal(t, "ui/main", main.Target)

	assert.True(t, doc[0].Occurrences[2].Invoked)
	assert.Empty(t, doc[1].Occurrences)
}

func TestRenderInspection_UnknownFormat(t *testing.T) {
	t.Parallel()

	err := RenderInspection(&bytes.Buffer{}, nil, Options{Format: "csv"})
	require.ErrorIs(t, err, ErrUnknownFormat)
}
