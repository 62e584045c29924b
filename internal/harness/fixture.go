package harness

import (
	"testing"

	"github.com/stagehand-dev/stagehand/internal/media"
	"github.com/stagehand-dev/stagehand/internal/runtime"
	"github.com/stagehand-dev/stagehand/internal/scriptrunner"
	"github.com/stagehand-dev/stagehand/internal/scriptsource"
)

// defaultFixtureDir is where ScriptFromFixture resolves script names,
// relative to the test package's own location.
const defaultFixtureDir = "testdata/scripts"

// Fixture is the per-test harness environment for driving scripts directly
// from Go tests, without the scenario layer.
//
// New installs the runtime singleton at setup and registers its teardown, so
// each test starts with a clean slate and leaked setup is caught by the
// double-install guard.
type Fixture struct {
	// Provider materializes script sources in the test's scratch directory.
	Provider *scriptsource.Provider

	// Media is the in-memory storage the installed runtime serves.
	Media *media.Storage
}

// New creates a fixture: scratch directory from t.TempDir, runtime singleton
// installed and wired to fresh in-memory media storage, teardown registered
// via t.Cleanup.
func New(t *testing.T) *Fixture {
	return NewWithFixtureDir(t, defaultFixtureDir)
}

// NewWithFixtureDir is New with an explicit fixture directory for
// ScriptFromFixture resolution.
func NewWithFixtureDir(t *testing.T, fixtureDir string) *Fixture {
	t.Helper()

	storage := media.NewStorage()
	if err := runtime.Install(runtime.New(storage)); err != nil {
		t.Fatalf("failed to install runtime singleton: %v", err)
	}
	t.Cleanup(runtime.Uninstall)

	return &Fixture{
		Provider: scriptsource.NewProvider(t.TempDir(), fixtureDir),
		Media:    storage,
	}
}

// ScriptFromString creates a runner for a script with the contents from a
// string.
//
// Useful for testing short scripts that fit comfortably as an inline string
// in the test itself, without having to create a separate file for them.
func (f *Fixture) ScriptFromString(t *testing.T, name, script string) *scriptrunner.Runner {
	t.Helper()

	path, err := f.Provider.FromString(name, script)
	if err != nil {
		t.Fatalf("failed to materialize inline script: %v", err)
	}
	return f.newRunner(t, path)
}

// ScriptFromFixture creates a runner for the fixture script with the given
// name.
func (f *Fixture) ScriptFromFixture(t *testing.T, name string) *scriptrunner.Runner {
	t.Helper()

	path, err := f.Provider.FromFixture(name)
	if err != nil {
		t.Fatalf("failed to resolve fixture script: %v", err)
	}
	return f.newRunner(t, path)
}

func (f *Fixture) newRunner(t *testing.T, path string) *scriptrunner.Runner {
	t.Helper()

	runner, err := scriptrunner.New(path)
	if err != nil {
		t.Fatalf("failed to create runner: %v", err)
	}
	t.Cleanup(func() { runner.Close() })
	return runner
}
