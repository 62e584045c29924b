package scriptrunner

import (
	"strings"

	"github.com/dop251/goja"

	"github.com/stagehand-dev/stagehand/internal/element"
)

// TerminalState is the state a pass ended in.
type TerminalState string

const (
	// TerminalCompleted means the script ran to its natural end.
	TerminalCompleted TerminalState = "completed"

	// TerminalFaulted means an error propagated out of the script unhandled.
	TerminalFaulted TerminalState = "faulted"

	// TerminalStopped means the script halted itself early via st.stop().
	TerminalStopped TerminalState = "stopped"
)

// Fault is a captured script error: data, not control flow.
//
// From the caller's perspective the runner never raises for a script-internal
// fault; tests assert on Fault fields instead of writing fault-handling
// boilerplate.
type Fault struct {
	// Kind is the error's class name ("TypeError", "RangeError", "Error";
	// "SyntaxError" for scripts that do not parse).
	Kind string `json:"kind"`

	// Message is the error's message, without the kind prefix.
	Message string `json:"message"`

	// Location is the originating script position, best effort
	// ("script.st.js:3:9"). Empty when unavailable.
	Location string `json:"location,omitempty"`
}

// Result is the output of one script execution pass.
// Owned by the caller after Run returns; the runner never mutates it again.
type Result struct {
	// Tree is the ordered element tree assembled from every declarative call
	// the script made. Partial when the pass faulted.
	Tree *element.Tree

	// Fault is the captured unhandled error, nil when the pass completed.
	Fault *Fault

	// State is the terminal state of the pass.
	State TerminalState
}

// Faulted reports whether the pass ended with an unhandled script error.
func (r *Result) Faulted() bool {
	return r.State == TerminalFaulted
}

// faultFromException extracts fault data from a goja exception.
//
// For Error-derived values the kind and message come from the error object's
// own name/message properties; for primitive throws (`throw "boom"`) the kind
// defaults to "Error" and the message is the value's string form.
func faultFromException(ex *goja.Exception) *Fault {
	v := ex.Value()
	f := &Fault{Kind: "Error", Message: v.String()}

	obj, ok := v.(*goja.Object)
	if !ok {
		return f
	}
	if name := obj.Get("name"); name != nil && !goja.IsUndefined(name) {
		f.Kind = name.String()
	}
	if msg := obj.Get("message"); msg != nil && !goja.IsUndefined(msg) {
		f.Message = msg.String()
	}
	if stack := obj.Get("stack"); stack != nil && !goja.IsUndefined(stack) {
		f.Location = locationFromStack(stack.String())
	}
	return f
}

// locationFromStack pulls the innermost script position out of a stack string.
// goja stack frames look like "\tat main (script.st.js:3:9(5))".
func locationFromStack(stack string) string {
	for _, line := range strings.Split(stack, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "at ") {
			continue
		}
		open := strings.IndexByte(line, '(')
		if open < 0 {
			return strings.TrimPrefix(line, "at ")
		}
		loc := line[open+1:]
		loc = strings.TrimSuffix(loc, ")")
		// Strip the trailing program-counter suffix "(5)" if present.
		if i := strings.IndexByte(loc, '('); i >= 0 {
			loc = loc[:i]
		}
		return loc
	}
	return ""
}
