// Package commands implements CLI command handlers for esmport.
package commands

import (
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/esmport/pkg/config"
	"github.com/Sumatoshi-tech/esmport/pkg/observability"
	"github.com/Sumatoshi-tech/esmport/pkg/version"
)

// Persistent flag names.
const (
	flagConfig  = "config"
	flagVerbose = "verbose"
	flagQuiet   = "quiet"
	flagNoColor = "no-color"
)

var (
	// ErrMigrationProblems is returned by --strict runs that recorded
	// per-file errors.
	ErrMigrationProblems = errors.New("migration finished with errors")
	// ErrOutputExists indicates the output directory exists and overwriting
	// was not confirmed.
	ErrOutputExists = errors.New("output directory already exists")
	// ErrOutputIsSource indicates the output directory would replace or
	// contain the sources.
	ErrOutputIsSource = errors.New("output directory overlaps the extension directory")
	// ErrConflictingOutput indicates two incompatible output selections.
	ErrConflictingOutput = errors.New("conflicting output options")
)

// AddGlobalFlags registers the flags shared by every subcommand on root.
func AddGlobalFlags(root *cobra.Command) {
	pf := root.PersistentFlags()
	pf.String(flagConfig, "", "config file (default .esmport.yaml in the working directory or $HOME)")
	pf.BoolP(flagVerbose, "v", false, "verbose output")
	pf.BoolP(flagQuiet, "q", false, "suppress the text report")
	pf.Bool(flagNoColor, false, "disable colored output")
}

type globalFlags struct {
	configPath string
	verbose    bool
	quiet      bool
	noColor    bool
}

// readGlobalFlags reads the persistent flags; subcommands executed without
// a root see the zero values.
func readGlobalFlags(cmd *cobra.Command) globalFlags {
	var g globalFlags

	if f := cmd.Flags().Lookup(flagConfig); f != nil {
		g.configPath = f.Value.String()
	}

	g.verbose = boolFlag(cmd, flagVerbose)
	g.quiet = boolFlag(cmd, flagQuiet)
	g.noColor = boolFlag(cmd, flagNoColor)

	return g
}

func boolFlag(cmd *cobra.Command, name string) bool {
	f := cmd.Flags().Lookup(name)

	return f != nil && f.Value.String() == "true"
}

// telemetryConfig maps the loaded configuration onto observability settings.
// Verbose and quiet override the configured log level.
func telemetryConfig(cfg *config.Config, g globalFlags, logOutput io.Writer) (observability.Config, error) {
	level, err := cfg.Logging.SlogLevel()
	if err != nil {
		return observability.Config{}, err
	}

	switch {
	case g.verbose:
		level = slog.LevelDebug
	case g.quiet:
		level = slog.LevelError
	}

	obs := observability.DefaultConfig()
	obs.ServiceVersion = version.Version
	obs.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	obs.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	obs.OTLPHeaders = observability.ParseOTLPHeaders(cfg.Telemetry.OTLPHeaders)
	obs.MetricsTextfile = cfg.Telemetry.MetricsTextfile
	obs.SampleRatio = cfg.Telemetry.SampleRatio
	obs.LogLevel = level
	obs.LogJSON = cfg.Logging.JSON
	obs.LogOutput = logOutput

	return obs, nil
}

// isTerminal reports whether r is an interactive terminal.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
