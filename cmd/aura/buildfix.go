package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"aura/internal/buildfix"
	"aura/internal/config"
	auraerrors "aura/internal/errors"
)

var (
	buildfixEcosystemFlag string
	buildfixMaxIterFlag   int
	buildfixJSONFlag      bool
	buildfixLimitFlag     int
)

var buildfixCmd = &cobra.Command{
	Use:   "buildfix",
	Short: "Run and inspect build-fix loops",
}

var buildfixRunCmd = &cobra.Command{
	Use:   "run [path]",
	Short: "Build, ask the fixer for patches and rebuild until clean",
	Long: `Run the build-fix loop against a project directory.

The ecosystem is detected from the project files (*.sln/*.csproj, Cargo.toml,
go.mod, package.json) unless --ecosystem is given. Without an enabled fixer
the loop stops after the first build and reports the parsed errors.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBuildfix,
}

var buildfixHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent build-fix runs",
	Args:  cobra.NoArgs,
	RunE:  runBuildfixHistory,
}

var buildfixShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a recorded build-fix run",
	Args:  cobra.ExactArgs(1),
	RunE:  runBuildfixShow,
}

func init() {
	buildfixRunCmd.Flags().StringVar(&buildfixEcosystemFlag, "ecosystem", "", "Build ecosystem: dotnet, cargo, go or npm (default: detect)")
	buildfixRunCmd.Flags().IntVar(&buildfixMaxIterFlag, "max-iterations", 0, "Override buildFix.maxIterations")
	buildfixRunCmd.Flags().BoolVar(&buildfixJSONFlag, "json", false, "Output the result as JSON")
	buildfixHistoryCmd.Flags().IntVar(&buildfixLimitFlag, "limit", 20, "Number of runs to list")
	buildfixShowCmd.Flags().BoolVar(&buildfixJSONFlag, "json", false, "Output the result as JSON")

	buildfixCmd.AddCommand(buildfixRunCmd, buildfixHistoryCmd, buildfixShowCmd)
	rootCmd.AddCommand(buildfixCmd)
}

func runBuildfix(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	dir := a.root
	if len(args) == 1 {
		dir = config.ResolvePath(a.root, args[0])
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	loop := buildfix.NewLoop(a.runner, a.fixer(), a.recorder(), buildfix.OptionsFromConfig(a.cfg.BuildFix), a.logger)
	res, err := loop.Run(ctx, buildfix.Request{
		Root:          dir,
		Ecosystem:     buildfixEcosystemFlag,
		MaxIterations: buildfixMaxIterFlag,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if buildfixJSONFlag {
		if err := printJSON(out, res); err != nil {
			return err
		}
	} else {
		printResult(out, res)
	}
	if !res.Success {
		return fmt.Errorf("build-fix did not converge: %s", res.Reason)
	}
	return nil
}

func runBuildfixHistory(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()
	if a.runs == nil {
		return auraerrors.NewBackendUnavailableError("run history", "check storage.path in .aura/config.json")
	}

	runs, err := a.runs.Recent(context.Background(), buildfixLimitFlag)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No build-fix runs recorded.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTARTED\tECOSYSTEM\tRESULT\tITERATIONS\tDURATION\tROOT")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), r.Ecosystem, r.Reason,
			r.Iterations, r.Duration.Round(time.Millisecond), r.Root)
	}
	return w.Flush()
}

func runBuildfixShow(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()
	if a.runs == nil {
		return auraerrors.NewBackendUnavailableError("run history", "check storage.path in .aura/config.json")
	}

	res, err := a.runs.Get(context.Background(), args[0])
	if err != nil {
		return err
	}
	if buildfixJSONFlag {
		return printJSON(cmd.OutOrStdout(), res)
	}
	printResult(cmd.OutOrStdout(), res)
	return nil
}

func printResult(out io.Writer, res *buildfix.Result) {
	fmt.Fprintf(out, "Run %s (%s) in %s\n", res.RunID, res.Ecosystem, res.Root)
	for _, it := range res.History {
		line := fmt.Sprintf("  #%d %s: %d error(s)", it.Index, it.Status, it.ErrorCount)
		if len(it.FilesTouched) > 0 {
			line += fmt.Sprintf(", touched %v", it.FilesTouched)
		}
		if it.Note != "" {
			line += " (" + it.Note + ")"
		}
		fmt.Fprintln(out, line)
	}
	for _, e := range res.FinalErrors {
		fmt.Fprintf(out, "  %s:%d:%d: %s %s\n", e.FilePath, e.Line, e.Column, e.Code, e.Message)
	}
	fmt.Fprintf(out, "Result: %s after %d iteration(s), %s\n",
		res.Reason, res.Iterations, res.Duration.Round(time.Millisecond))
}

func printJSON(out io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(out, string(data))
	return nil
}
