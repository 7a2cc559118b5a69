package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/esmport/pkg/config"
	"github.com/Sumatoshi-tech/esmport/pkg/legacyimport"
	"github.com/Sumatoshi-tech/esmport/pkg/migrate"
	"github.com/Sumatoshi-tech/esmport/pkg/report"
)

// InspectCommand holds configuration for the inspect command.
type InspectCommand struct {
	format      string
	excludes    []string
	noGitignore bool
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand() *cobra.Command {
	ic := &InspectCommand{}

	cmd := &cobra.Command{
		Use:   "inspect <file|dir>",
		Short: "List the legacy imports of a file or extension without changing it",
		Long: `Classify every legacy imports.* statement and print its rewrite class,
bound names and target. Nothing is written.`,
		Args: cobra.ExactArgs(1),
		RunE: ic.run,
	}

	cmd.Flags().StringVarP(&ic.format, "format", "f", config.DefaultFormat, "output format: text, json, yaml")
	cmd.Flags().StringSliceVar(&ic.excludes, "exclude", nil, "glob of files to skip (repeatable)")
	cmd.Flags().BoolVar(&ic.noGitignore, "no-gitignore", false, "do not honour .gitignore files")

	return cmd
}

func (ic *InspectCommand) run(cmd *cobra.Command, args []string) error {
	g := readGlobalFlags(cmd)

	cfg, err := config.LoadConfig(g.configPath)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("format") {
		cfg.Output.Format = ic.format
	}

	if cmd.Flags().Changed("no-gitignore") {
		cfg.Run.NoGitignore = ic.noGitignore
	}

	format, err := report.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}

	classifier := cfg.Migration.RewriteOptions().Classifier

	items, err := ic.inspect(args[0], cfg, classifier)
	if err != nil {
		return err
	}

	return report.RenderInspection(cmd.OutOrStdout(), items, report.Options{
		Format:  format,
		NoColor: g.noColor,
		Verbose: g.verbose,
	})
}

func (ic *InspectCommand) inspect(target string, cfg *config.Config, classifier *legacyimport.Classifier) ([]report.Inspection, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, fmt.Errorf("inspect: %w", err)
	}

	if !info.IsDir() {
		return []report.Inspection{inspectFile(target, filepath.Base(target), classifier)}, nil
	}

	var manual []string
	if cfg.Migration.PrefsFile != "" {
		manual = []string{cfg.Migration.PrefsFile}
	}

	found, err := migrate.Discover(target, migrate.DiscoverOptions{
		ManualFiles: manual,
		Excludes:    append(slices.Clone(cfg.Run.Excludes), ic.excludes...),
		NoGitignore: cfg.Run.NoGitignore,
	})
	if err != nil {
		return nil, err
	}

	rels := slices.Concat(found.Sources, found.Manual)
	slices.Sort(rels)

	items := make([]report.Inspection, 0, len(rels))
	for _, rel := range rels {
		items = append(items, inspectFile(filepath.Join(target, filepath.FromSlash(rel)), rel, classifier))
	}

	return items, nil
}

func inspectFile(path, rel string, classifier *legacyimport.Classifier) report.Inspection {
	src, err := os.ReadFile(path)
	if err != nil {
		return report.Inspection{Path: rel, Failure: err.Error()}
	}

	return report.Inspection{Path: rel, Occurrences: classifier.Classify(string(src))}
}
