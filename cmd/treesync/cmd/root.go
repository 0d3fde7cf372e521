package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/corey/treesync/internal/app"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:           "treesync",
	Short:         "treesync — change validation for indexed source trees",
	Long:          "Filters file system notifications through project rules and decides how an index must be updated.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// projectRoot returns the project root (cwd by default).
func projectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	return dir
}

// loadConfig resolves the configuration for the current project. One-shot
// commands log to stderr at Warn unless --verbose.
func loadConfig() (app.Config, error) {
	cfg, err := app.LoadConfig(projectRoot())
	if err != nil {
		return app.Config{}, err
	}
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	cfg.Logger = app.NewLogger(os.Stderr, level)
	return cfg, nil
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(configCmd)
}
