package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"aura/internal/version"
)

var (
	rootFlag      string
	verbosityFlag int
	quietFlag     bool
)

var rootCmd = &cobra.Command{
	Use:   "aura",
	Short: "aura - refactoring and navigation tool server",
	Long: `aura exposes code search, navigation, refactoring, generation and
build validation to MCP clients as a small set of meta-tools.

Each meta-tool takes an "operation" argument; "aura tools" lists them.`,
	Version:       version.Info(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("aura version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", "", "Repository root (default: current directory)")
	rootCmd.PersistentFlags().CountVarP(&verbosityFlag, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress all logging")
}

// repoRoot returns the absolute --root, or the working directory.
func repoRoot() (string, error) {
	if rootFlag != "" {
		return filepath.Abs(rootFlag)
	}
	return os.Getwd()
}
