package metadata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMetadata(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o600))

	return dir
}

func TestLoad(t *testing.T) {
	t.Parallel()

	dir := writeMetadata(t, `{
  "uuid": "worksets@blipk.xyz",
  "name": "Worksets",
  "gettext-domain": "worksets",
  "shell-version": ["3.38", "44", "45.1"]
}`)

	md, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "worksets@blipk.xyz", md.UUID)
	assert.Equal(t, "Worksets", md.Name)
	assert.True(t, md.HasGettextDomain())
	assert.True(t, md.SupportsShell("45"))
	assert.True(t, md.SupportsShell("44"))
	assert.False(t, md.SupportsShell("4"))
	assert.Equal(t, "Worksets", md.ClassName())
	assert.Equal(t, "WorksetsInstance", md.InstanceName())
}

func TestLoad_Missing(t *testing.T) {
	t.Parallel()

	_, err := Load(t.TempDir())
	require.ErrorIs(t, err, ErrMissing)
}

func TestLoad_InvalidJSON(t *testing.T) {
	t.Parallel()

	_, err := Load(writeMetadata(t, `{"uuid": `))
	require.ErrorIs(t, err, ErrInvalid)
}

func TestParse_SchemaViolations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
		want string
	}{
		{"missing uuid", `{"name": "x"}`, "uuid"},
		{"empty name", `{"uuid": "a@b", "name": ""}`, "name"},
		{"bad shell-version", `{"uuid": "a@b", "name": "x", "shell-version": [45]}`, "shell-version"},
		{"bad uuid", `{"uuid": "a b", "name": "x"}`, "uuid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Parse([]byte(tt.data))
			require.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestClassName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		md   Metadata
		want string
	}{
		{Metadata{Name: "Dash to Panel", UUID: "dash-to-panel@jderose9.github.com"}, "DashToPanel"},
		{Metadata{Name: "gTile", UUID: "gTile@vibou"}, "GTile"},
		{Metadata{Name: "Caffeine (fork)", UUID: "c@x"}, "CaffeineFork"},
		{Metadata{Name: "★ ★", UUID: "worksets@blipk.xyz"}, "Worksets"},
		{Metadata{Name: "", UUID: "WORKSETS@blipk.xyz"}, "Worksets"},
		{Metadata{Name: "3 Finger", UUID: "9@x"}, "MyExtension"},
		{Metadata{Name: "Extension", UUID: "tiler@x"}, "Tiler"},
		{Metadata{Name: "extension", UUID: "extension@x"}, "MyExtension"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.md.ClassName(), tt.md.Name)
	}
}
