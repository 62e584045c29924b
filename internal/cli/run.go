package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/stagehand-dev/stagehand/internal/element"
	"github.com/stagehand-dev/stagehand/internal/media"
	"github.com/stagehand-dev/stagehand/internal/runtime"
	"github.com/stagehand-dev/stagehand/internal/scriptrunner"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Clicks []string // button labels, one rerun pass per click
}

// PassReport is the JSON payload for one executed pass.
type PassReport struct {
	Pass     int                 `json:"pass"`
	State    string              `json:"state"`
	Elements []element.Element   `json:"elements"`
	Fault    *scriptrunner.Fault `json:"fault,omitempty"`
}

// RunReport is the JSON payload for the whole run.
type RunReport struct {
	Script  string       `json:"script"`
	Session string       `json:"session"`
	Passes  []PassReport `json:"passes"`
	Faulted bool         `json:"faulted"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <script>",
		Short: "Execute a script and print its element tree",
		Long: `Execute a script pass by pass and print the element tree of each pass.

The script runs with an in-memory session store and in-memory media storage.
Each --click queues a button press and triggers one additional rerun pass,
in the order given on the command line.

Exit codes:
  0 - Final pass completed
  1 - Final pass faulted
  2 - Command error (missing script, etc.)

Examples:
  stagehand run ./app.st.js
  stagehand run ./counter.st.js --click increment --click increment
  stagehand run ./app.st.js --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScript(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Clicks, "click", nil, "button label to click before a rerun pass (repeatable)")

	return cmd
}

func runScript(opts *RunOptions, scriptPath string, cmd *cobra.Command) error {
	// Configure logging based on verbose flag
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))

	if _, err := os.Stat(scriptPath); err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("script not found: %s", scriptPath), err)
	}

	storage := media.NewStorage()
	if err := runtime.Install(runtime.New(storage)); err != nil {
		return WrapExitError(ExitCommandError, "failed to install runtime", err)
	}
	defer runtime.Uninstall()

	runner, err := scriptrunner.New(scriptPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create runner", err)
	}
	defer func() {
		if closeErr := runner.Close(); closeErr != nil {
			slog.Error("error closing session store", "error", closeErr)
		}
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	report := RunReport{
		Script:  scriptPath,
		Session: runner.SessionID(),
	}

	slog.Debug("running initial pass", "script", scriptPath)
	res, err := runner.Run(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "script execution failed", err)
	}
	report.Passes = append(report.Passes, toPassReport(1, res))

	for i, label := range opts.Clicks {
		slog.Debug("running rerun pass", "pass", i+2, "click", label)
		runner.Click(label)
		res, err = runner.Run(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "script execution failed", err)
		}
		report.Passes = append(report.Passes, toPassReport(i+2, res))
	}

	report.Faulted = res.Faulted()

	if opts.Format == "json" {
		return outputRunJSON(cmd, report)
	}
	return outputRunText(cmd, report)
}

// toPassReport converts a runner result into the report form.
func toPassReport(pass int, res *scriptrunner.Result) PassReport {
	return PassReport{
		Pass:     pass,
		State:    string(res.State),
		Elements: res.Tree.Elements,
		Fault:    res.Fault,
	}
}

// outputRunJSON outputs the run report as JSON.
func outputRunJSON(cmd *cobra.Command, report RunReport) error {
	formatter := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}

	if report.Faulted {
		final := report.Passes[len(report.Passes)-1]
		if err := formatter.Error(
			"E_SCRIPT_FAULTED",
			fmt.Sprintf("%s: %s", final.Fault.Kind, final.Fault.Message),
			report,
		); err != nil {
			return err
		}
		return NewExitError(ExitFailure, "script faulted")
	}

	return formatter.Success(report)
}

// outputRunText outputs the run report as human-readable text.
func outputRunText(cmd *cobra.Command, report RunReport) error {
	w := cmd.OutOrStdout()

	for _, pass := range report.Passes {
		fmt.Fprintf(w, "Pass %d (%s):\n", pass.Pass, pass.State)
		for _, el := range pass.Elements {
			if el.MediaHandle != "" {
				fmt.Fprintf(w, "  [%d] %s %s (%s)\n", el.Seq, el.Kind, el.MediaHandle, el.ContentKind)
				continue
			}
			fmt.Fprintf(w, "  [%d] %s %q\n", el.Seq, el.Kind, el.Text)
		}
		if pass.Fault != nil {
			fmt.Fprintf(w, "  Fault: %s: %s\n", pass.Fault.Kind, pass.Fault.Message)
			if pass.Fault.Location != "" {
				fmt.Fprintf(w, "    at %s\n", pass.Fault.Location)
			}
		}
	}

	if report.Faulted {
		return NewExitError(ExitFailure, "script faulted")
	}
	return nil
}
