package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"aura/internal/mcp"
	"aura/internal/version"
)

var toolsJSONFlag bool

var toolsCmd = &cobra.Command{
	Use:   "tools [name]",
	Short: "List available MCP tools",
	Long: `List the MCP tools and their operations.

With a tool name, shows the operations and the languages that have a
dedicated handler for each.

Examples:
  aura tools
  aura tools refactor
  aura tools --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTools,
}

func init() {
	toolsCmd.Flags().BoolVar(&toolsJSONFlag, "json", false, "Output tool definitions as JSON")
	rootCmd.AddCommand(toolsCmd)
}

func runTools(cmd *cobra.Command, args []string) error {
	server := mcp.NewMCPServer(version.Info(), mcp.Options{}, nil)
	out := cmd.OutOrStdout()

	if toolsJSONFlag {
		data, err := json.MarshalIndent(server.GetToolDefinitions(), "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	if len(args) == 1 {
		for _, r := range server.Catalog() {
			if r.Tool() != args[0] {
				continue
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "OPERATION\tLANGUAGES")
			for _, op := range r.Operations() {
				langs := "default"
				if l := r.Languages(op); len(l) > 0 {
					langs = "default, " + strings.Join(l, ", ")
				}
				fmt.Fprintf(w, "%s\t%s\n", op, langs)
			}
			return w.Flush()
		}
		for _, t := range server.GetToolDefinitions() {
			if t.Name == args[0] {
				fmt.Fprintf(out, "%s: %s\n", t.Name, t.Description)
				return nil
			}
		}
		return fmt.Errorf("unknown tool: %s\n\nUse 'aura tools' to see available tools", args[0])
	}

	return printToolSummary(out, server.GetToolDefinitions())
}

func printToolSummary(out io.Writer, tools []mcp.Tool) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TOOL\tDESCRIPTION")
	for _, t := range tools {
		desc := t.Description
		if i := strings.Index(desc, ". "); i > 0 {
			desc = desc[:i+1]
		}
		fmt.Fprintf(w, "%s\t%s\n", t.Name, desc)
	}
	return w.Flush()
}
