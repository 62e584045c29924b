package scriptrunner

import (
	"fmt"
	"strings"

	"github.com/dop251/goja"

	"github.com/stagehand-dev/stagehand/internal/element"
	"github.com/stagehand-dev/stagehand/internal/runtime"
)

// bindLibrary installs the st object into the VM's global namespace.
//
// This is the execution-boundary seam for the ambient-lookup pattern: the
// bindings close over the pass, and service resolution happens at call time
// against the process-wide runtime singleton - structurally the same lookup a
// production script performs, so scripts need zero modification under test.
func bindLibrary(vm *goja.Runtime, pass *passState) error {
	st := vm.NewObject()

	funcs := map[string]func(goja.FunctionCall) goja.Value{
		"write":    pass.stWrite(vm),
		"markdown": pass.stText(element.KindMarkdown),
		"text":     pass.stText(element.KindText),
		"image":    pass.stMedia(vm, element.KindImage, "image/png"),
		"audio":    pass.stMedia(vm, element.KindAudio, "audio/wav"),
		"button":   pass.stButton(vm),
		"stop":     stStop(vm),
	}
	for name, fn := range funcs {
		if err := st.Set(name, fn); err != nil {
			return fmt.Errorf("bind st.%s: %w", name, err)
		}
	}

	sess, err := pass.sessionObject(vm)
	if err != nil {
		return err
	}
	if err := st.Set("session", sess); err != nil {
		return fmt.Errorf("bind st.session: %w", err)
	}

	if err := vm.Set("st", st); err != nil {
		return fmt.Errorf("bind st: %w", err)
	}
	return nil
}

// stWrite renders every argument to text and emits a write element.
func (p *passState) stWrite(vm *goja.Runtime) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		p.emit(element.Element{Kind: element.KindWrite, Text: strings.Join(parts, " ")})
		return goja.Undefined()
	}
}

// stText emits a single-argument text element of the given kind.
func (p *passState) stText(kind element.Kind) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		p.emit(element.Element{Kind: kind, Text: call.Argument(0).String()})
		return goja.Undefined()
	}
}

// stMedia stores the argument bytes via the ambient media manager and emits
// an element carrying the stable handle.
func (p *passState) stMedia(vm *goja.Runtime, kind element.Kind, defaultContentKind string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		data, err := bytesFromValue(call.Argument(0))
		if err != nil {
			panic(vm.NewTypeError("st.%s: %s", kind, err.Error()))
		}

		contentKind := defaultContentKind
		if ck := call.Argument(1); !goja.IsUndefined(ck) {
			contentKind = ck.String()
		}

		// Ambient lookup: resolve the current runtime at call time, exactly
		// as the production library does. An uncaught failure here becomes a
		// script fault on the run result.
		rt, err := runtime.Current()
		if err != nil {
			panic(vm.NewGoError(err))
		}
		handle, err := rt.MediaFileManager().Store(data, contentKind)
		if err != nil {
			panic(vm.NewGoError(err))
		}

		p.emit(element.Element{Kind: kind, MediaHandle: handle, ContentKind: contentKind})
		return goja.Undefined()
	}
}

// stButton emits a button element and reports whether this pass was triggered
// by a click on it.
func (p *passState) stButton(vm *goja.Runtime) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		label := call.Argument(0).String()
		p.emit(element.Element{Kind: element.KindButton, Text: label})
		return vm.ToValue(p.runner.clicked(label))
	}
}

// stopSignalName marks the control-flow value st.stop throws. It travels
// through the script as an ordinary exception, so a script that catches it
// simply keeps running; uncaught, the runner ends the pass as STOPPED.
const stopSignalName = "StagehandStop"

// stStop halts the pass at the call site, keeping the tree built so far.
func stStop(vm *goja.Runtime) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		signal := vm.NewObject()
		if err := signal.Set("name", stopSignalName); err != nil {
			panic(vm.NewGoError(err))
		}
		panic(signal)
	}
}

// isStopSignal reports whether an exception carries the st.stop signal.
func isStopSignal(ex *goja.Exception) bool {
	obj, ok := ex.Value().(*goja.Object)
	if !ok {
		return false
	}
	name := obj.Get("name")
	return name != nil && !goja.IsUndefined(name) && name.String() == stopSignalName
}

// sessionObject builds the st.session binding over the runner's session store.
func (p *passState) sessionObject(vm *goja.Runtime) (*goja.Object, error) {
	r := p.runner
	sess := vm.NewObject()

	funcs := map[string]func(goja.FunctionCall) goja.Value{
		"get": func(call goja.FunctionCall) goja.Value {
			key := call.Argument(0).String()
			value, ok, err := r.store.Get(p.ctx, r.sessionID, key)
			if err != nil {
				panic(vm.NewGoError(err))
			}
			if !ok {
				return goja.Undefined()
			}
			return vm.ToValue(value)
		},
		"set": func(call goja.FunctionCall) goja.Value {
			key := call.Argument(0).String()
			if err := r.store.Set(p.ctx, r.sessionID, key, call.Argument(1).Export()); err != nil {
				panic(vm.NewGoError(err))
			}
			return goja.Undefined()
		},
		"has": func(call goja.FunctionCall) goja.Value {
			key := call.Argument(0).String()
			ok, err := r.store.Has(p.ctx, r.sessionID, key)
			if err != nil {
				panic(vm.NewGoError(err))
			}
			return vm.ToValue(ok)
		},
	}
	for name, fn := range funcs {
		if err := sess.Set(name, fn); err != nil {
			return nil, fmt.Errorf("bind st.session.%s: %w", name, err)
		}
	}
	return sess, nil
}

// bytesFromValue extracts a byte buffer from a script value.
// Accepts strings, ArrayBuffers, and plain arrays of byte-range integers.
func bytesFromValue(v goja.Value) ([]byte, error) {
	switch val := v.Export().(type) {
	case string:
		return []byte(val), nil
	case []byte:
		buf := make([]byte, len(val))
		copy(buf, val)
		return buf, nil
	case goja.ArrayBuffer:
		src := val.Bytes()
		buf := make([]byte, len(src))
		copy(buf, src)
		return buf, nil
	case []any:
		buf := make([]byte, len(val))
		for i, elem := range val {
			n, ok := elem.(int64)
			if !ok || n < 0 || n > 255 {
				return nil, fmt.Errorf("array element %d is not a byte value", i)
			}
			buf[i] = byte(n)
		}
		return buf, nil
	default:
		return nil, fmt.Errorf("expected string, ArrayBuffer, or byte array, got %T", val)
	}
}
