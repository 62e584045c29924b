package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/stagehand-dev/stagehand/internal/element"
	"github.com/stagehand-dev/stagehand/internal/media"
	"github.com/stagehand-dev/stagehand/internal/runtime"
	"github.com/stagehand-dev/stagehand/internal/scriptrunner"
	"github.com/stagehand-dev/stagehand/internal/scriptsource"
)

// Config adjusts scenario execution.
type Config struct {
	// FixtureDir is the directory script_file names resolve against.
	// Defaults to "testdata/scripts".
	FixtureDir string

	// Logger receives execution diagnostics. Defaults to a discard logger so
	// scenario runs stay silent inside tests.
	Logger *slog.Logger
}

// PassTrace is the recorded outcome of one pass.
type PassTrace struct {
	// Elements is the ordered element tree of the pass.
	Elements []element.Element `json:"trace"`

	// Fault is the captured script fault, nil when the pass completed.
	Fault *scriptrunner.Fault `json:"fault,omitempty"`

	// State is the pass's terminal state.
	State scriptrunner.TerminalState `json:"state"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: every assertion held.
	Pass bool `json:"pass"`

	// Passes holds one trace per pass, in execution order: the initial pass
	// first, then one per interaction.
	Passes []PassTrace `json:"passes"`

	// Errors contains assertion failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{Pass: true, Passes: []PassTrace{}, Errors: []string{}}
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Final returns the trace of the final pass.
func (r *Result) Final() PassTrace {
	return r.Passes[len(r.Passes)-1]
}

// Run executes a scenario with default configuration.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithConfig(scenario, Config{})
}

// RunWithConfig executes a test scenario and returns the result.
//
// Each scenario runs hermetically: a fresh scratch directory for inline
// scripts, fresh in-memory media storage, a runtime singleton installed for
// the duration of the run only, and a fresh session store inside the runner.
//
// Execution flow:
//  1. Materialize the script (inline via dedent+scratch write, or fixture)
//  2. Install the runtime singleton wired to in-memory media storage
//  3. Run the initial pass
//  4. For each interaction, queue the click and run another pass
//  5. Uninstall the singleton, evaluate assertions against the final pass
//
// Setup failures (unwritable scratch dir, missing fixture, leaked singleton)
// return an error; script faults land in the result's pass traces.
func RunWithConfig(scenario *Scenario, cfg Config) (*Result, error) {
	if cfg.FixtureDir == "" {
		cfg.FixtureDir = "testdata/scripts"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	scratchDir, err := os.MkdirTemp("", "stagehand-harness-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer os.RemoveAll(scratchDir)

	provider := scriptsource.NewProvider(scratchDir, cfg.FixtureDir)
	var scriptPath string
	if scenario.Script != "" {
		scriptPath, err = provider.FromString(scenario.Name+".st.js", scenario.Script)
	} else {
		scriptPath, err = provider.FromFixture(scenario.ScriptFile)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to materialize script: %w", err)
	}

	// Install the singleton for this run only. A failure here means a prior
	// test leaked its runtime - a setup error, fatal and never retried.
	storage := media.NewStorage()
	if err := runtime.Install(runtime.New(storage)); err != nil {
		return nil, fmt.Errorf("failed to install runtime singleton: %w", err)
	}
	defer runtime.Uninstall()

	runner, err := scriptrunner.New(scriptPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create runner: %w", err)
	}
	defer runner.Close()

	ctx := context.Background()
	result := NewResult()

	res, err := runner.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("initial pass: %w", err)
	}
	result.Passes = append(result.Passes, toPassTrace(res))
	logger.Info("initial pass finished",
		"scenario", scenario.Name,
		"state", res.State,
		"elements", res.Tree.Len(),
	)

	for i, interaction := range scenario.Interactions {
		runner.Click(interaction.Click)
		res, err = runner.Run(ctx)
		if err != nil {
			return nil, fmt.Errorf("pass %d: %w", i+2, err)
		}
		result.Passes = append(result.Passes, toPassTrace(res))
		logger.Info("rerun pass finished",
			"scenario", scenario.Name,
			"pass", i+2,
			"click", interaction.Click,
			"state", res.State,
		)
	}

	actx := &AssertionContext{
		Store:     runner.SessionStore(),
		SessionID: runner.SessionID(),
		Ctx:       ctx,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// toPassTrace converts a runner result into a recorded pass trace.
func toPassTrace(res *scriptrunner.Result) PassTrace {
	return PassTrace{
		Elements: res.Tree.Elements,
		Fault:    res.Fault,
		State:    res.State,
	}
}
