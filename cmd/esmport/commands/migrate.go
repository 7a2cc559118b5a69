package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/esmport/pkg/config"
	"github.com/Sumatoshi-tech/esmport/pkg/migrate"
	"github.com/Sumatoshi-tech/esmport/pkg/observability"
	"github.com/Sumatoshi-tech/esmport/pkg/report"
)

type telemetryInit func(observability.Config) (observability.Providers, error)

type terminalCheck func(io.Reader) bool

// MigrateCommand holds configuration and dependencies for the migrate command.
type MigrateCommand struct {
	output          string
	suffix          string
	format          string
	workers         int
	excludes        []string
	dryRun          bool
	diff            bool
	force           bool
	strict          bool
	noGitignore     bool
	metricsTextfile string
	otlpEndpoint    string

	initTelemetry telemetryInit
	isTerminal    terminalCheck
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand() *cobra.Command {
	return newMigrateCommandWithDeps(observability.Init, isTerminal)
}

func newMigrateCommandWithDeps(initFn telemetryInit, termFn terminalCheck) *cobra.Command {
	mc := &MigrateCommand{
		initTelemetry: initFn,
		isTerminal:    termFn,
	}

	cmd := &cobra.Command{
		Use:   "migrate <dir> [out]",
		Short: "Port an extension from legacy imports to ES modules",
		Long: `Rewrite every legacy imports.* statement of a GNOME Shell extension into an
ES module import and wrap extension.js into an exported Extension class.

By default the migrated tree is written to <dir>.GNOME45. With --suffix the
rewritten files are written next to their sources instead.

Examples:
  esmport migrate ~/src/worksets@blipk.xyz
  esmport migrate ./my-ext ./my-ext-45 --diff
  esmport migrate ./my-ext --suffix .esm --dry-run --format json`,
		Args: cobra.RangeArgs(1, 2),
		RunE: mc.run,
	}

	cmd.Flags().StringVarP(&mc.output, "output", "o", "", "output directory (default <dir>.GNOME45)")
	cmd.Flags().StringVar(&mc.suffix, "suffix", "", "write each rewritten file next to its source as <name><suffix>.js")
	cmd.Flags().StringVarP(&mc.format, "format", "f", config.DefaultFormat, "report format: text, json, yaml")
	cmd.Flags().IntVarP(&mc.workers, "workers", "w", config.DefaultWorkers, "parallel file workers (0 = one per CPU)")
	cmd.Flags().StringSliceVar(&mc.excludes, "exclude", nil, "glob of files to leave untouched (repeatable)")
	cmd.Flags().BoolVarP(&mc.dryRun, "dry-run", "n", false, "report what would change without writing")
	cmd.Flags().BoolVar(&mc.diff, "diff", false, "include a unified diff of each rewritten file")
	cmd.Flags().BoolVar(&mc.force, "force", false, "replace an existing output directory without asking")
	cmd.Flags().BoolVar(&mc.strict, "strict", false, "exit non-zero when any file reports an error")
	cmd.Flags().BoolVar(&mc.noGitignore, "no-gitignore", false, "do not honour .gitignore files")
	cmd.Flags().StringVar(&mc.metricsTextfile, "metrics-textfile", "", "write run metrics in Prometheus text format to this path")
	cmd.Flags().StringVar(&mc.otlpEndpoint, "otlp-endpoint", "", "OTLP gRPC collector address for traces and metrics")

	return cmd
}

func (mc *MigrateCommand) run(cmd *cobra.Command, args []string) (err error) {
	g := readGlobalFlags(cmd)

	cfg, err := config.LoadConfig(g.configPath)
	if err != nil {
		return err
	}

	mc.applyFlags(cmd, cfg)

	format, err := report.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}

	err = cfg.Validate()
	if err != nil {
		return fmt.Errorf("validate flags: %w", err)
	}

	opts, err := mc.options(cfg, args)
	if err != nil {
		return err
	}

	obsCfg, err := telemetryConfig(cfg, g, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	providers, err := mc.initTelemetry(obsCfg)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}

	defer func() {
		err = errors.Join(err, providers.Shutdown(context.WithoutCancel(cmd.Context())))
	}()

	metrics, err := observability.NewMigrationMetrics(providers.Meter)
	if err != nil {
		return fmt.Errorf("create metrics: %w", err)
	}

	opts.Logger = providers.Logger
	opts.Tracer = providers.Tracer
	opts.Metrics = metrics

	err = mc.prepareOutput(cmd, opts)
	if err != nil {
		return err
	}

	rep, err := migrate.Run(cmd.Context(), opts)
	if err != nil {
		return err
	}

	if !g.quiet || format != report.FormatText {
		err = report.Render(cmd.OutOrStdout(), rep, report.Options{
			Format:  format,
			Diff:    mc.diff,
			NoColor: g.noColor,
			Verbose: g.verbose,
		})
		if err != nil {
			return err
		}
	}

	if mc.strict && rep.HasErrors() {
		return ErrMigrationProblems
	}

	return nil
}

// applyFlags overrides cfg with the flags set on the command line.
func (mc *MigrateCommand) applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	if flags.Changed("suffix") {
		cfg.Output.FileSuffix = mc.suffix
	}

	if flags.Changed("format") {
		cfg.Output.Format = mc.format
	}

	if flags.Changed("workers") {
		cfg.Run.Workers = mc.workers
	}

	if flags.Changed("exclude") {
		cfg.Run.Excludes = append(cfg.Run.Excludes, mc.excludes...)
	}

	if flags.Changed("no-gitignore") {
		cfg.Run.NoGitignore = mc.noGitignore
	}

	if flags.Changed("metrics-textfile") {
		cfg.Telemetry.MetricsTextfile = mc.metricsTextfile
	}

	if flags.Changed("otlp-endpoint") {
		cfg.Telemetry.OTLPEndpoint = mc.otlpEndpoint
	}
}

// options builds the run options from the merged configuration.
func (mc *MigrateCommand) options(cfg *config.Config, args []string) (migrate.Options, error) {
	output := mc.output

	if len(args) > 1 {
		if output != "" && output != args[1] {
			return migrate.Options{}, fmt.Errorf("%w: --output %s and argument %s", ErrConflictingOutput, output, args[1])
		}

		output = args[1]
	}

	if output != "" && cfg.Output.FileSuffix != "" {
		return migrate.Options{}, fmt.Errorf("%w: an output directory cannot be combined with --suffix", ErrConflictingOutput)
	}

	workers := cfg.Run.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}

	opts := migrate.DefaultOptions(args[0])
	opts.Output = output
	opts.DirSuffix = cfg.Output.DirSuffix
	opts.FileSuffix = cfg.Output.FileSuffix
	opts.DryRun = mc.dryRun
	opts.Workers = workers
	opts.EntryFile = cfg.Migration.EntryFile
	opts.ManualFiles = nil
	opts.Excludes = cfg.Run.Excludes
	opts.NoGitignore = cfg.Run.NoGitignore
	opts.Rewrite = cfg.Migration.RewriteOptions()

	if cfg.Migration.PrefsFile != "" {
		opts.ManualFiles = []string{cfg.Migration.PrefsFile}
	}

	return opts, nil
}

// prepareOutput clears an existing output directory once the user agreed
// to replace it.
func (mc *MigrateCommand) prepareOutput(cmd *cobra.Command, opts migrate.Options) error {
	dir := opts.OutputDir()
	if opts.DryRun || dir == "" {
		return nil
	}

	err := checkOverlap(opts.Root, dir)
	if err != nil {
		return err
	}

	_, err = os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("stat output directory: %w", err)
	}

	if !mc.force {
		if !mc.isTerminal(cmd.InOrStdin()) {
			return fmt.Errorf("%w: %s (use --force to replace it)", ErrOutputExists, dir)
		}

		ok, confirmErr := confirm(cmd.InOrStdin(), cmd.ErrOrStderr(), fmt.Sprintf("Output directory %s exists. Overwrite?", dir))
		if confirmErr != nil {
			return confirmErr
		}

		if !ok {
			return fmt.Errorf("%w: %s", ErrOutputExists, dir)
		}
	}

	err = os.RemoveAll(dir)
	if err != nil {
		return fmt.Errorf("remove output directory: %w", err)
	}

	return nil
}

// checkOverlap rejects an output directory equal to, or containing, root.
func checkOverlap(root, dir string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve extension directory: %w", err)
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve output directory: %w", err)
	}

	rel, err := filepath.Rel(absDir, absRoot)
	if err == nil && (rel == "." || !strings.HasPrefix(rel, "..")) {
		return fmt.Errorf("%w: %s", ErrOutputIsSource, dir)
	}

	return nil
}

func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N] ", question)

	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read answer: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
