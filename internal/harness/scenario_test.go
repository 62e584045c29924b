package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScenarioFile writes YAML content to a temp file and returns its path.
func writeScenarioFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_Valid(t *testing.T) {
	path := writeScenarioFile(t, `
name: hello_write
description: Write emits a single text element
script: |
  st.write("hello")
assertions:
  - type: element_contains
    kind: write
    text: hello
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "hello_write", scenario.Name)
	assert.Equal(t, "Write emits a single text element", scenario.Description)
	assert.Contains(t, scenario.Script, `st.write("hello")`)
	require.Len(t, scenario.Assertions, 1)
	assert.Equal(t, AssertElementContains, scenario.Assertions[0].Type)
	assert.Equal(t, "write", scenario.Assertions[0].Kind)
	assert.Equal(t, "hello", scenario.Assertions[0].Text)
}

func TestLoadScenario_WithInteractions(t *testing.T) {
	path := writeScenarioFile(t, `
name: counter
description: Button clicks trigger reruns
script: |
  st.button("increment")
interactions:
  - click: increment
  - click: increment
assertions: []
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	require.Len(t, scenario.Interactions, 2)
	assert.Equal(t, "increment", scenario.Interactions[0].Click)
}

func TestLoadScenario_ScriptFile(t *testing.T) {
	path := writeScenarioFile(t, `
name: fixture_run
description: Runs a fixture script unchanged
script_file: counter.st.js
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "counter.st.js", scenario.ScriptFile)
	assert.Empty(t, scenario.Script)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	// KnownFields(true) catches the "assertion:" typo.
	path := writeScenarioFile(t, `
name: typo
description: has a typoed field
script: st.write("x")
assertion:
  - type: fault
    kind: TypeError
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_MalformedYAML(t *testing.T) {
	path := writeScenarioFile(t, "name: [unclosed")

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestValidateScenario(t *testing.T) {
	valid := func() Scenario {
		return Scenario{
			Name:        "s",
			Description: "d",
			Script:      `st.write("x")`,
		}
	}

	t.Run("valid scenario passes", func(t *testing.T) {
		s := valid()
		assert.NoError(t, validateScenario(&s))
	})

	t.Run("name required", func(t *testing.T) {
		s := valid()
		s.Name = ""
		err := validateScenario(&s)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "name is required")
	})

	t.Run("description required", func(t *testing.T) {
		s := valid()
		s.Description = ""
		err := validateScenario(&s)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "description is required")
	})

	t.Run("script or script_file required", func(t *testing.T) {
		s := valid()
		s.Script = ""
		err := validateScenario(&s)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "one of script or script_file")
	})

	t.Run("script and script_file exclusive", func(t *testing.T) {
		s := valid()
		s.ScriptFile = "other.st.js"
		err := validateScenario(&s)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "mutually exclusive")
	})

	t.Run("interaction click required", func(t *testing.T) {
		s := valid()
		s.Interactions = []Interaction{{Click: ""}}
		err := validateScenario(&s)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "interactions[0]: click is required")
	})
}

func TestValidateAssertion(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		wantErr   string
	}{
		{
			name:      "element_contains requires kind",
			assertion: Assertion{Type: AssertElementContains},
			wantErr:   "kind is required",
		},
		{
			name:      "element_order requires kinds",
			assertion: Assertion{Type: AssertElementOrder},
			wantErr:   "kinds list is required",
		},
		{
			name:      "element_count requires kind",
			assertion: Assertion{Type: AssertElementCount, Count: 1},
			wantErr:   "kind is required",
		},
		{
			name:      "element_count rejects negative count",
			assertion: Assertion{Type: AssertElementCount, Kind: "write", Count: -1},
			wantErr:   "count must be non-negative",
		},
		{
			name:      "fault requires kind",
			assertion: Assertion{Type: AssertFault},
			wantErr:   "kind is required",
		},
		{
			name:      "session_state requires key",
			assertion: Assertion{Type: AssertSessionState, Value: 1},
			wantErr:   "key is required",
		},
		{
			name:      "unknown type rejected",
			assertion: Assertion{Type: "element_matches"},
			wantErr:   "unknown assertion type",
		},
		{
			name:      "missing type rejected",
			assertion: Assertion{},
			wantErr:   "type is required",
		},
		{
			name:      "valid fault assertion",
			assertion: Assertion{Type: AssertFault, Kind: "TypeError"},
		},
		{
			name:      "valid count of zero",
			assertion: Assertion{Type: AssertElementCount, Kind: "button", Count: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateAssertion(0, &tt.assertion)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
