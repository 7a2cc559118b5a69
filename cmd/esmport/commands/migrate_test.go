package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/esmport/pkg/observability"
	"github.com/Sumatoshi-tech/esmport/pkg/report"
)

const (
	testMetadata = `{"uuid": "worksets@blipk.xyz", "name": "Worksets", "shell-version": ["44"]}`

	testEntry = `const { GLib } = imports.gi;
const Main = imports.ui.main;

function enable() {
    Main.notify(GLib.get_user_name());
}

function disable() {}
`
)

func noopTelemetry(observability.Config) (observability.Providers, error) {
	return observability.Providers{
		Tracer:   nooptrace.NewTracerProvider().Tracer("test"),
		Meter:    noopmetric.NewMeterProvider().Meter("test"),
		Logger:   slog.New(slog.DiscardHandler),
		Shutdown: func(context.Context) error { return nil },
	}, nil
}

func never(io.Reader) bool  { return false }
func always(io.Reader) bool { return true }

// writeExtension creates an extension directory inside a fresh temp dir and
// an empty config file next to it.
func writeExtension(t *testing.T, files map[string]string) (root, configPath string) {
	t.Helper()

	base := t.TempDir()
	root = filepath.Join(base, "worksets@blipk.xyz")

	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	}

	configPath = filepath.Join(base, ".esmport.yaml")
	require.NoError(t, os.WriteFile(configPath, nil, 0o600))

	return root, configPath
}

func defaultExtension(t *testing.T) (root, configPath string) {
	t.Helper()

	return writeExtension(t, map[string]string{
		"metadata.json": testMetadata,
		"extension.js":  testEntry,
		"prefs.js":      "const Gtk = imports.gi.Gtk;\n",
	})
}

type cliRun struct {
	stdout bytes.Buffer
	stderr bytes.Buffer
}

func execute(t *testing.T, sub *cobra.Command, stdin string, args ...string) (*cliRun, error) {
	t.Helper()

	root := &cobra.Command{Use: "esmport", SilenceUsage: true, SilenceErrors: true}
	AddGlobalFlags(root)
	root.AddCommand(sub)

	run := &cliRun{}
	root.SetOut(&run.stdout)
	root.SetErr(&run.stderr)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)

	return run, root.ExecuteContext(context.Background())
}

func readOutput(t *testing.T, p string) string {
	t.Helper()

	data, err := os.ReadFile(p)
	require.NoError(t, err)

	return string(data)
}

func TestMigrateCommand_MirrorsExtension(t *testing.T) {
	t.Parallel()

	root, cfg := defaultExtension(t)

	run, err := execute(t, newMigrateCommandWithDeps(noopTelemetry, never), "",
		"migrate", root, "--config", cfg, "--no-color")
	require.NoError(t, err)

	out := readOutput(t, filepath.Join(root+".GNOME45", "extension.js"))
	assert.Contains(t, out, "import GLib from 'gi://GLib';")
	assert.Contains(t, out, "import * as Main from 'resource:///org/gnome/shell/ui/main.js';")
	assert.Contains(t, out, "export default class Worksets extends Extension {")
	assert.FileExists(t, filepath.Join(root+".GNOME45", "metadata.json"))

	assert.Contains(t, run.stdout.String(), "1 rewritten")
	assert.Contains(t, run.stdout.String(), "Please manually update `prefs.js`")
	assert.NotContains(t, run.stdout.String(), "\x1b[")
}

func TestMigrateCommand_ExplicitOutputArgument(t *testing.T) {
	t.Parallel()

	root, cfg := defaultExtension(t)
	out := filepath.Join(t.TempDir(), "ported")

	_, err := execute(t, newMigrateCommandWithDeps(noopTelemetry, never), "",
		"migrate", root, out, "--config", cfg)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(out, "extension.js"))
	assert.NoDirExists(t, root+".GNOME45")
}

func TestMigrateCommand_ExistingOutputNeedsForce(t *testing.T) {
	t.Parallel()

	root, cfg := defaultExtension(t)
	out := root + ".GNOME45"
	stale := filepath.Join(out, "stale.js")

	require.NoError(t, os.MkdirAll(out, 0o755))
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0o600))

	_, err := execute(t, newMigrateCommandWithDeps(noopTelemetry, never), "", "migrate", root, "--config", cfg)
	require.ErrorIs(t, err, ErrOutputExists)
	assert.FileExists(t, stale)

	_, err = execute(t, newMigrateCommandWithDeps(noopTelemetry, never), "", "migrate", root, "--config", cfg, "--force")
	require.NoError(t, err)
	assert.NoFileExists(t, stale)
	assert.FileExists(t, filepath.Join(out, "extension.js"))
}

func TestMigrateCommand_InteractiveOverwrite(t *testing.T) {
	t.Parallel()

	root, cfg := defaultExtension(t)
	out := root + ".GNOME45"
	require.NoError(t, os.MkdirAll(out, 0o755))

	run, err := execute(t, newMigrateCommandWithDeps(noopTelemetry, always), "n\n", "migrate", root, "--config", cfg)
	require.ErrorIs(t, err, ErrOutputExists)
	assert.Contains(t, run.stderr.String(), "Overwrite? [y/N]")

	_, err = execute(t, newMigrateCommandWithDeps(noopTelemetry, always), "yes\n", "migrate", root, "--config", cfg)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(out, "extension.js"))
}

func TestMigrateCommand_OutputOverlapsSource(t *testing.T) {
	t.Parallel()

	root, cfg := defaultExtension(t)

	_, err := execute(t, newMigrateCommandWithDeps(noopTelemetry, never), "",
		"migrate", root, filepath.Dir(root), "--config", cfg, "--force")
	require.ErrorIs(t, err, ErrOutputIsSource)
	assert.FileExists(t, filepath.Join(root, "extension.js"))
}

func TestMigrateCommand_ConflictingOutput(t *testing.T) {
	t.Parallel()

	root, cfg := defaultExtension(t)

	_, err := execute(t, newMigrateCommandWithDeps(noopTelemetry, never), "",
		"migrate", root, "a", "--output", "b", "--config", cfg)
	require.ErrorIs(t, err, ErrConflictingOutput)

	_, err = execute(t, newMigrateCommandWithDeps(noopTelemetry, never), "",
		"migrate", root, "--output", "b", "--suffix", ".esm", "--config", cfg)
	require.ErrorIs(t, err, ErrConflictingOutput)
}

func TestMigrateCommand_DryRunJSON(t *testing.T) {
	t.Parallel()

	root, cfg := defaultExtension(t)

	run, err := execute(t, newMigrateCommandWithDeps(noopTelemetry, never), "",
		"migrate", root, "--config", cfg, "--dry-run", "--format", "json")
	require.NoError(t, err)

	var doc struct {
		DryRun  bool `json:"dry_run"`
		Summary struct {
			Rewritten int `json:"rewritten"`
		} `json:"summary"`
	}

	require.NoError(t, json.Unmarshal(run.stdout.Bytes(), &doc))
	assert.True(t, doc.DryRun)
	assert.Equal(t, 1, doc.Summary.Rewritten)
	assert.NoDirExists(t, root+".GNOME45")
}

func TestMigrateCommand_SuffixMode(t *testing.T) {
	t.Parallel()

	root, cfg := defaultExtension(t)

	_, err := execute(t, newMigrateCommandWithDeps(noopTelemetry, never), "",
		"migrate", root, "--config", cfg, "--suffix", ".esm", "-q")
	require.NoError(t, err)

	assert.Contains(t, readOutput(t, filepath.Join(root, "extension.esm.js")), "extends Extension")
	assert.NoDirExists(t, root+".GNOME45")
}

func TestMigrateCommand_QuietSuppressesText(t *testing.T) {
	t.Parallel()

	root, cfg := defaultExtension(t)

	run, err := execute(t, newMigrateCommandWithDeps(noopTelemetry, never), "",
		"migrate", root, "--config", cfg, "--dry-run", "--quiet")
	require.NoError(t, err)
	assert.Empty(t, run.stdout.String())
}

func TestMigrateCommand_Strict(t *testing.T) {
	t.Parallel()

	root, cfg := writeExtension(t, map[string]string{
		"metadata.json": testMetadata,
		"extension.js":  testEntry,
		"lib.js":        "const { A, B } = imports.misc.extensionUtils.getCurrentExtension();\n",
	})

	_, err := execute(t, newMigrateCommandWithDeps(noopTelemetry, never), "",
		"migrate", root, "--config", cfg, "--dry-run")
	require.NoError(t, err)

	_, err = execute(t, newMigrateCommandWithDeps(noopTelemetry, never), "",
		"migrate", root, "--config", cfg, "--dry-run", "--strict")
	require.ErrorIs(t, err, ErrMigrationProblems)
}

func TestMigrateCommand_MissingMetadata(t *testing.T) {
	t.Parallel()

	root, cfg := writeExtension(t, map[string]string{"extension.js": testEntry})

	_, err := execute(t, newMigrateCommandWithDeps(noopTelemetry, never), "", "migrate", root, "--config", cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fatal configuration error")
}

func TestMigrateCommand_TelemetryFlags(t *testing.T) {
	t.Parallel()

	root, cfg := defaultExtension(t)
	textfile := filepath.Join(t.TempDir(), "esmport.prom")

	var got observability.Config

	capture := func(c observability.Config) (observability.Providers, error) {
		got = c

		return noopTelemetry(c)
	}

	_, err := execute(t, newMigrateCommandWithDeps(capture, never), "",
		"migrate", root, "--config", cfg, "--dry-run", "-v",
		"--metrics-textfile", textfile, "--otlp-endpoint", "localhost:4317")
	require.NoError(t, err)

	assert.Equal(t, textfile, got.MetricsTextfile)
	assert.Equal(t, "localhost:4317", got.OTLPEndpoint)
	assert.Equal(t, slog.LevelDebug, got.LogLevel)
	assert.Equal(t, "esmport", got.ServiceName)
}

func TestMigrateCommand_InvalidFormat(t *testing.T) {
	t.Parallel()

	root, cfg := defaultExtension(t)

	_, err := execute(t, newMigrateCommandWithDeps(noopTelemetry, never), "",
		"migrate", root, "--config", cfg, "--format", "jsno")
	require.ErrorIs(t, err, report.ErrUnknownFormat)
	assert.Contains(t, err.Error(), `did you mean "json"?`)
}

func TestCheckOverlap(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	root := filepath.Join(base, "ext")

	require.ErrorIs(t, checkOverlap(root, root), ErrOutputIsSource)
	require.ErrorIs(t, checkOverlap(root, base), ErrOutputIsSource)
	require.NoError(t, checkOverlap(root, root+".GNOME45"))
	require.NoError(t, checkOverlap(root, filepath.Join(root, "out")))
}

func TestConfirm(t *testing.T) {
	t.Parallel()

	for answer, want := range map[string]bool{"y\n": true, "YES\n": true, "n\n": false, "": false, "maybe\n": false} {
		var prompt bytes.Buffer

		ok, err := confirm(strings.NewReader(answer), &prompt, "Overwrite?")
		require.NoError(t, err)
		assert.Equal(t, want, ok, answer)
		assert.Equal(t, "Overwrite? [y/N] ", prompt.String())
	}
}
