package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario: one script, an optional
// sequence of widget interactions (each triggering a rerun), and assertions
// over the final pass.
type Scenario struct {
	// Name uniquely identifies this scenario. Used for golden file names.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Script is the inline script text. Dedented before execution, so it can
	// be indented naturally inside the YAML block scalar.
	// Exactly one of Script and ScriptFile must be set.
	Script string `yaml:"script,omitempty"`

	// ScriptFile names a fixture script resolved against the fixture
	// directory. The file is executed without modification.
	ScriptFile string `yaml:"script_file,omitempty"`

	// Interactions are widget interactions applied between passes.
	// The scenario executes one initial pass plus one pass per interaction.
	Interactions []Interaction `yaml:"interactions,omitempty"`

	// Assertions validate the final pass. May be empty for scenarios
	// exercised purely through golden comparison.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Interaction is a single simulated user action.
type Interaction struct {
	// Click is the label of the button to press before the next pass.
	Click string `yaml:"click"`
}

// Assertion validates the element tree, fault, or session state of the
// final pass.
type Assertion struct {
	// Type specifies the assertion type:
	// - "element_contains": an element of Kind (with Text, if set) exists
	// - "element_order": element kinds appear in the order given by Kinds
	// - "element_count": elements of Kind appear exactly Count times
	// - "fault": the pass faulted with Kind (and Message, if set)
	// - "session_state": session Key holds Value
	Type string `yaml:"type"`

	// Kind is the element kind (element_*) or fault kind (fault).
	Kind string `yaml:"kind,omitempty"`

	// Text is the expected element text (element_contains).
	Text string `yaml:"text,omitempty"`

	// Kinds is the expected relative kind order (element_order).
	Kinds []string `yaml:"kinds,omitempty"`

	// Count is the expected number of occurrences (element_count).
	Count int `yaml:"count,omitempty"`

	// Message is the expected fault message (fault).
	Message string `yaml:"message,omitempty"`

	// Key and Value identify expected session state (session_state).
	Key   string `yaml:"key,omitempty"`
	Value any    `yaml:"value,omitempty"`
}

// Assertion type constants.
const (
	AssertElementContains = "element_contains"
	AssertElementOrder    = "element_order"
	AssertElementCount    = "element_count"
	AssertFault           = "fault"
	AssertSessionState    = "session_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed, contains unknown
// fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Script == "" && s.ScriptFile == "" {
		return fmt.Errorf("one of script or script_file is required")
	}
	if s.Script != "" && s.ScriptFile != "" {
		return fmt.Errorf("script and script_file are mutually exclusive")
	}

	for i, interaction := range s.Interactions {
		if interaction.Click == "" {
			return fmt.Errorf("interactions[%d]: click is required", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertElementContains:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for element_contains", index)
		}
	case AssertElementOrder:
		if len(a.Kinds) == 0 {
			return fmt.Errorf("assertions[%d]: kinds list is required for element_order", index)
		}
	case AssertElementCount:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for element_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for element_count", index)
		}
	case AssertFault:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for fault", index)
		}
	case AssertSessionState:
		if a.Key == "" {
			return fmt.Errorf("assertions[%d]: key is required for session_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
