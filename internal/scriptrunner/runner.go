// Package scriptrunner executes an application script in a controlled context
// and captures the declarative element tree it produces.
//
// Each pass runs the script's full text inside a fresh goja VM: the script has
// no access to the calling test's locals, only to whatever it declares and to
// the st library bound into its global namespace. Script faults are captured
// as data on the Result; only infrastructure failures (unreadable script file,
// session store errors) propagate as errors from Run.
//
// Rerun support: a second Run on the same runner shares exactly the
// session-scoped state the script explicitly persisted via st.session, plus
// any widget interaction queued with Click. Nothing else crosses passes.
package scriptrunner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/dop251/goja"
	"github.com/google/uuid"

	"github.com/stagehand-dev/stagehand/internal/element"
	"github.com/stagehand-dev/stagehand/internal/session"
)

// State tracks the runner lifecycle: Created -> Running -> {Completed, Faulted}.
// A rerun moves a terminal runner back to Running.
type State int

const (
	// StateCreated means the runner holds a script path but has not run.
	StateCreated State = iota

	// StateRunning means a pass is executing.
	StateRunning

	// StateCompleted means the last pass ran to its natural end.
	StateCompleted

	// StateFaulted means the last pass ended with an unhandled script error.
	StateFaulted
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFaulted:
		return "faulted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Runner executes one script within one logical session.
//
// Single-threaded, synchronous: one pass runs to completion or fault before
// Run returns; there is no preemption and no mid-run cancellation.
type Runner struct {
	mu sync.Mutex

	scriptPath string
	state      State
	clock      *clock

	// Session state carried across passes.
	sessionID string
	store     *session.Store

	// Widget interactions queued for the next pass, consumed when it ends.
	pendingClicks map[string]bool
}

// New creates a runner for the script at path.
//
// The runner owns a fresh in-memory session store; the session ID is a UUIDv7
// so traces from overlapping test processes stay distinguishable.
func New(scriptPath string) (*Runner, error) {
	store, err := session.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	return &Runner{
		scriptPath:    scriptPath,
		state:         StateCreated,
		clock:         newClock(),
		sessionID:     uuid.Must(uuid.NewV7()).String(),
		store:         store,
		pendingClicks: make(map[string]bool),
	}, nil
}

// Close releases the runner's session store, discarding all session state.
func (r *Runner) Close() error {
	return r.store.Close()
}

// ScriptPath returns the path of the script under test.
func (r *Runner) ScriptPath() string {
	return r.scriptPath
}

// SessionID returns the logical session identifier shared by all passes.
func (r *Runner) SessionID() string {
	return r.sessionID
}

// State returns the runner's current lifecycle state.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// SessionStore exposes the session state store for assertions.
func (r *Runner) SessionStore() *session.Store {
	return r.store
}

// Click queues a button interaction for the next pass: st.button(label)
// returns true on that pass only. Simulates a user pressing a previously
// rendered widget to trigger a rerun.
func (r *Runner) Click(label string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pendingClicks[label] = true
}

// Run executes one pass of the script and returns its result.
//
// The script's source is read and compiled fresh each pass, then executed in
// a new VM. Script faults (including syntax errors) terminate the pass as
// FAULTED and are returned as data; infrastructure failures return an error
// with no result.
//
// Determinism: given the same script text and no externally observed
// nondeterminism inside it, two passes on fresh runners produce structurally
// identical results.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	r.mu.Lock()
	if r.state == StateRunning {
		r.mu.Unlock()
		return nil, fmt.Errorf("runner for %s is already running", r.scriptPath)
	}
	prev := r.state
	r.state = StateRunning
	r.mu.Unlock()

	src, err := os.ReadFile(r.scriptPath)
	if err != nil {
		// Infrastructure failure: the pass never happened, so the runner
		// keeps its prior lifecycle state. FAULTED is reserved for scripts.
		r.setState(prev)
		return nil, fmt.Errorf("read script %s: %w", r.scriptPath, err)
	}

	r.clock.Reset()
	pass := &passState{
		ctx:    ctx,
		tree:   &element.Tree{},
		clock:  r.clock,
		runner: r,
	}

	prog, err := goja.Compile(r.scriptPath, string(src), false)
	if err != nil {
		// A script that does not parse is a faulty script, not broken
		// infrastructure: the author gets a FAULTED result to assert on.
		return r.finish(pass, &Fault{Kind: "SyntaxError", Message: err.Error()}), nil
	}

	vm := goja.New()
	if err := bindLibrary(vm, pass); err != nil {
		r.setState(prev)
		return nil, fmt.Errorf("bind script library: %w", err)
	}

	if _, err := vm.RunProgram(prog); err != nil {
		var ex *goja.Exception
		if errors.As(err, &ex) {
			if isStopSignal(ex) {
				// st.stop() reached the top uncaught: a clean early halt,
				// not a fault. The tree keeps everything emitted before it.
				res := r.finish(pass, nil)
				res.State = TerminalStopped
				return res, nil
			}
			return r.finish(pass, faultFromException(ex)), nil
		}
		// Interrupts and other engine-level failures are infrastructure.
		r.setState(prev)
		return nil, fmt.Errorf("execute script %s: %w", r.scriptPath, err)
	}

	return r.finish(pass, nil), nil
}

// finish seals a pass: consumes queued clicks, records the terminal state,
// and assembles the result.
func (r *Runner) finish(pass *passState, fault *Fault) *Result {
	r.mu.Lock()
	r.pendingClicks = make(map[string]bool)
	if fault != nil {
		r.state = StateFaulted
	} else {
		r.state = StateCompleted
	}
	r.mu.Unlock()

	res := &Result{Tree: pass.tree, Fault: fault, State: TerminalCompleted}
	if fault != nil {
		res.State = TerminalFaulted
	}
	return res
}

func (r *Runner) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// clicked reports whether a click is queued for label on the current pass.
func (r *Runner) clicked(label string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pendingClicks[label]
}

// passState is the per-pass execution context the st bindings close over.
type passState struct {
	ctx    context.Context
	tree   *element.Tree
	clock  *clock
	runner *Runner
}

// emit appends an element stamped with the next sequence number.
func (p *passState) emit(e element.Element) {
	e.Seq = p.clock.Next()
	p.tree.Append(e)
}
