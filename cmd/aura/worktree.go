package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"aura/internal/config"
	"aura/internal/worktree"
)

var worktreeCmd = &cobra.Command{
	Use:   "worktree [path]",
	Short: "Show git worktree information for a path",
	Long: `Print whether a path lies in a linked git worktree, and the main
repository the worktree belongs to. Defaults to the repository root.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWorktree,
}

func init() {
	rootCmd.AddCommand(worktreeCmd)
}

func runWorktree(cmd *cobra.Command, args []string) error {
	root, err := repoRoot()
	if err != nil {
		return err
	}
	path := root
	if len(args) == 1 {
		path = config.ResolvePath(root, args[0])
	}

	cfg, err := config.LoadConfig(root)
	if err != nil {
		return err
	}
	info, err := worktree.NewResolver(cfg.Worktree.CaseInsensitive).Resolve(path)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
