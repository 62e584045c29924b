package scriptrunner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stagehand-dev/stagehand/internal/element"
	"github.com/stagehand-dev/stagehand/internal/media"
	"github.com/stagehand-dev/stagehand/internal/runtime"
	"github.com/stagehand-dev/stagehand/internal/scriptsource"
)

// newTestRunner materializes script text through the source provider and
// returns a runner for it, closed at test end.
func newTestRunner(t *testing.T, script string) *Runner {
	t.Helper()
	provider := scriptsource.NewProvider(t.TempDir(), "")
	path, err := provider.FromString("script.st.js", script)
	require.NoError(t, err)

	r, err := New(path)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

// installTestRuntime installs a fresh runtime singleton wired to in-memory
// media storage and registers teardown.
func installTestRuntime(t *testing.T) *media.Storage {
	t.Helper()
	storage := media.NewStorage()
	require.NoError(t, runtime.Install(runtime.New(storage)))
	t.Cleanup(runtime.Uninstall)
	return storage
}

func TestRun_EmptyScript(t *testing.T) {
	r := newTestRunner(t, "")

	res, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, TerminalCompleted, res.State)
	assert.Nil(t, res.Fault)
	assert.Equal(t, 0, res.Tree.Len())
	assert.Equal(t, StateCompleted, r.State())
}

func TestRun_WriteHello(t *testing.T) {
	r := newTestRunner(t, `st.write("hello")`)

	res, err := r.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, TerminalCompleted, res.State)
	require.Equal(t, 1, res.Tree.Len())
	assert.Equal(t, element.Element{Kind: element.KindWrite, Seq: 1, Text: "hello"}, res.Tree.Elements[0])
}

func TestRun_WriteJoinsArguments(t *testing.T) {
	r := newTestRunner(t, `st.write("answer:", 42)`)

	res, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"answer: 42"}, res.Tree.Texts(element.KindWrite))
}

func TestRun_FaultBeforeOutput(t *testing.T) {
	r := newTestRunner(t, `throw new TypeError("boom")`)

	res, err := r.Run(context.Background())
	require.NoError(t, err, "script faults are data, not errors from Run")

	assert.Equal(t, TerminalFaulted, res.State)
	assert.Equal(t, 0, res.Tree.Len())
	require.NotNil(t, res.Fault)
	assert.Equal(t, "TypeError", res.Fault.Kind)
	assert.Equal(t, "boom", res.Fault.Message)
	assert.Equal(t, StateFaulted, r.State())
}

func TestRun_FaultAfterPartialOutput(t *testing.T) {
	r := newTestRunner(t, `
        st.write("before")
        throw new RangeError("late")
    `)

	res, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, TerminalFaulted, res.State)
	assert.Equal(t, []string{"before"}, res.Tree.Texts(element.KindWrite))
	require.NotNil(t, res.Fault)
	assert.Equal(t, "RangeError", res.Fault.Kind)
	assert.Equal(t, "late", res.Fault.Message)
}

func TestRun_PrimitiveThrow(t *testing.T) {
	r := newTestRunner(t, `throw "bare string"`)

	res, err := r.Run(context.Background())
	require.NoError(t, err)

	require.NotNil(t, res.Fault)
	assert.Equal(t, "Error", res.Fault.Kind)
	assert.Equal(t, "bare string", res.Fault.Message)
}

func TestRun_SyntaxErrorIsFault(t *testing.T) {
	r := newTestRunner(t, `st.write("unterminated`)

	res, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, TerminalFaulted, res.State)
	require.NotNil(t, res.Fault)
	assert.Equal(t, "SyntaxError", res.Fault.Kind)
}

func TestRun_MissingScriptFileIsInfrastructureError(t *testing.T) {
	r, err := New(filepath.Join(t.TempDir(), "missing.st.js"))
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read script")

	// The pass never happened: FAULTED is reserved for script errors, so the
	// runner keeps its prior lifecycle state.
	assert.Equal(t, StateCreated, r.State())
}

func TestRun_InfrastructureErrorKeepsPriorTerminalState(t *testing.T) {
	scratch := t.TempDir()
	provider := scriptsource.NewProvider(scratch, "")
	path, err := provider.FromString("script.st.js", `st.write("ok")`)
	require.NoError(t, err)

	r, err := New(path)
	require.NoError(t, err)
	defer r.Close()
	ctx := context.Background()

	_, err = r.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, StateCompleted, r.State())

	// The script file vanishing between passes is an infrastructure failure;
	// the runner stays in the terminal state of its last real pass.
	require.NoError(t, os.Remove(path))
	_, err = r.Run(ctx)
	require.Error(t, err)
	assert.Equal(t, StateCompleted, r.State())
}

func TestRun_Deterministic(t *testing.T) {
	script := `
        st.write("one")
        st.markdown("# two")
        st.text("three")
    `
	a := newTestRunner(t, script)
	b := newTestRunner(t, script)

	resA, err := a.Run(context.Background())
	require.NoError(t, err)
	resB, err := b.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, resA.Tree, resB.Tree)
	assert.Equal(t, resA.State, resB.State)
}

func TestRun_HermeticBetweenPasses(t *testing.T) {
	// Globals declared by one pass must not leak into the next: each pass
	// executes in a fresh VM.
	r := newTestRunner(t, `
        if (typeof leaked === "undefined") {
            st.write("clean")
            leaked = 1
        } else {
            st.write("dirty")
        }
    `)
	ctx := context.Background()

	first, err := r.Run(ctx)
	require.NoError(t, err)
	second, err := r.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"clean"}, first.Tree.Texts(element.KindWrite))
	assert.Equal(t, []string{"clean"}, second.Tree.Texts(element.KindWrite))
}

func TestRun_MediaWithoutRuntimeBecomesFault(t *testing.T) {
	runtime.Uninstall()
	r := newTestRunner(t, `st.image("bytes", "image/png")`)

	res, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, TerminalFaulted, res.State)
	require.NotNil(t, res.Fault)
	assert.Contains(t, res.Fault.Message, "ILLEGAL_STATE")
}

func TestRun_ImageStoresMedia(t *testing.T) {
	storage := installTestRuntime(t)
	r := newTestRunner(t, `st.image("png-bytes", "image/png")`)

	res, err := r.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, TerminalCompleted, res.State)
	img, ok := res.Tree.First(element.KindImage)
	require.True(t, ok)
	assert.Equal(t, "image/png", img.ContentKind)

	data, err := storage.Get(img.MediaHandle)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)
}

func TestRun_AudioDefaultContentKind(t *testing.T) {
	installTestRuntime(t)
	r := newTestRunner(t, `st.audio("clip")`)

	res, err := r.Run(context.Background())
	require.NoError(t, err)

	audio, ok := res.Tree.First(element.KindAudio)
	require.True(t, ok)
	assert.Equal(t, "audio/wav", audio.ContentKind)
}

func TestRun_ScriptCanCatchLookupError(t *testing.T) {
	// A lookup error thrown by a stub propagates through the script exactly
	// as a production error would, so a script can handle it itself.
	installTestRuntime(t)
	r := newTestRunner(t, `
        try {
            st.image(12345)
        } catch (e) {
            st.write("caught")
        }
    `)

	res, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TerminalCompleted, res.State)
	assert.Equal(t, []string{"caught"}, res.Tree.Texts(element.KindWrite))
}

func TestRun_StopHaltsEarlyKeepingTree(t *testing.T) {
	r := newTestRunner(t, `
        st.write("before")
        st.stop()
        st.write("after")
    `)

	res, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, TerminalStopped, res.State)
	assert.Nil(t, res.Fault)
	assert.Equal(t, []string{"before"}, res.Tree.Texts(element.KindWrite))
	assert.Equal(t, StateCompleted, r.State())
}

func TestRun_StopBeforeAnyOutput(t *testing.T) {
	r := newTestRunner(t, `st.stop()`)

	res, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, TerminalStopped, res.State)
	assert.Equal(t, 0, res.Tree.Len())
}

func TestRun_CaughtStopContinuesExecution(t *testing.T) {
	// The stop signal travels as an ordinary exception: a script that catches
	// it keeps running and the pass completes normally.
	r := newTestRunner(t, `
        try {
            st.stop()
        } catch (e) {
            st.write("swallowed")
        }
        st.write("after")
    `)

	res, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, TerminalCompleted, res.State)
	assert.Equal(t, []string{"swallowed", "after"}, res.Tree.Texts(element.KindWrite))
}

func TestRun_FaultLocationPointsAtScript(t *testing.T) {
	r := newTestRunner(t, `
        st.write("a")
        throw new Error("where am i")
    `)

	res, err := r.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, res.Fault)
	assert.Contains(t, res.Fault.Location, "script.st.js")
}
