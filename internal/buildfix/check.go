package buildfix

import (
	"context"
	"time"

	auraerrors "aura/internal/errors"
)

// CheckResult is the outcome of a single build or test run.
type CheckResult struct {
	Ecosystem string        `json:"ecosystem"`
	Command   string        `json:"command"`
	ExitCode  int           `json:"exitCode"`
	Passed    bool          `json:"passed"`
	Errors    []BuildError  `json:"errors"`
	Warnings  int           `json:"warnings"`
	Output    string        `json:"output,omitempty"`
	Duration  time.Duration `json:"durationNs"`
}

// Compile runs the build command once and parses its diagnostics. The
// fixer is never consulted.
func (l *Loop) Compile(ctx context.Context, req Request) (*CheckResult, error) {
	return l.check(ctx, req, false)
}

// Test runs the ecosystem's test command once. Errors holds whatever
// compiler diagnostics the output carries.
func (l *Loop) Test(ctx context.Context, req Request) (*CheckResult, error) {
	return l.check(ctx, req, true)
}

func (l *Loop) check(ctx context.Context, req Request, tests bool) (*CheckResult, error) {
	eco, root, err := l.resolve(req)
	if err != nil {
		return nil, err
	}
	cmd := eco.BuildCommand(root)
	if tests {
		cmd = eco.TestRunCommand(root)
	}
	cmd.Timeout = l.opts.BuildTimeout

	out, err := l.runner.Run(ctx, cmd)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if auraerrors.Is(err, auraerrors.Timeout) {
			return nil, auraerrors.NewTimeoutError(cmd.String(), l.opts.BuildTimeout.Milliseconds(), err)
		}
		return nil, auraerrors.NewOperationError(cmd.Name, err)
	}

	raw := out.Combined()
	diags := eco.Parse(raw)
	errs := Errors(diags)
	res := &CheckResult{
		Ecosystem: eco.Name,
		Command:   cmd.String(),
		ExitCode:  out.ExitCode,
		Passed:    out.ExitCode == 0,
		Errors:    errs,
		Warnings:  len(diags) - len(errs),
		Duration:  out.Duration,
	}
	if res.Errors == nil {
		res.Errors = []BuildError{}
	}
	if !res.Passed {
		res.Output = truncate(raw, l.opts.OutputLimit)
	}
	l.logger.Info("check finished", "command", res.Command, "exitCode", out.ExitCode, "errors", len(errs))
	return res, nil
}
