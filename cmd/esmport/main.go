// Package main provides the entry point for the esmport CLI tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/esmport/cmd/esmport/commands"
	"github.com/Sumatoshi-tech/esmport/pkg/version"
)

// Exit codes.
const (
	exitError    = 1
	exitProblems = 2
)

func main() {
	version.InitBinaryVersion()

	// A missing .env is the common case.
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error: load .env: %v\n", err)
		os.Exit(exitError)
	}

	rootCmd := &cobra.Command{
		Use:   "esmport",
		Short: "esmport - port GNOME Shell extensions to ES modules",
		Long: `esmport rewrites the legacy imports.* statements of a GNOME Shell extension
into ES module imports and wraps extension.js into an Extension class.

Commands:
  migrate   Rewrite an extension tree
  inspect   List the legacy imports of a file or tree
  version   Show version information`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	commands.AddGlobalFlags(rootCmd)

	rootCmd.AddCommand(commands.NewMigrateCommand())
	rootCmd.AddCommand(commands.NewInspectCommand())
	rootCmd.AddCommand(versionCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err = rootCmd.ExecuteContext(ctx)

	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		if errors.Is(err, commands.ErrMigrationProblems) {
			os.Exit(exitProblems)
		}

		os.Exit(exitError)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "esmport %s\n", version.String())
		},
	}
}
