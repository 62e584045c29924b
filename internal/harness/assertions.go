package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/stagehand-dev/stagehand/internal/element"
	"github.com/stagehand-dev/stagehand/internal/session"
)

// AssertionError is returned when an assertion fails.
// It includes the final pass's trace so failures are debuggable in isolation.
type AssertionError struct {
	Type     string            // Assertion type for categorization
	Expected string            // Human-readable expected outcome
	Actual   string            // Human-readable actual outcome
	Trace    []element.Element // Final pass trace for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFinal pass trace:\n")
	for i, el := range e.Trace {
		if el.MediaHandle != "" {
			fmt.Fprintf(&buf, "  [%d] %s %s (%s)\n", i+1, el.Kind, el.MediaHandle, el.ContentKind)
			continue
		}
		fmt.Fprintf(&buf, "  [%d] %s %q\n", i+1, el.Kind, el.Text)
	}

	return buf.String()
}

// assertElementContains checks the final pass for an element of the given
// kind whose text matches, if a text was specified.
func assertElementContains(final PassTrace, assertion Assertion) error {
	for _, el := range final.Elements {
		if string(el.Kind) != assertion.Kind {
			continue
		}
		if assertion.Text == "" || el.Text == assertion.Text {
			return nil
		}
	}

	expected := fmt.Sprintf("element of kind %s", assertion.Kind)
	if assertion.Text != "" {
		expected += fmt.Sprintf(" with text %q", assertion.Text)
	}
	return &AssertionError{
		Type:     AssertElementContains,
		Expected: expected,
		Actual:   "not found in final pass",
		Trace:    final.Elements,
	}
}

// assertElementOrder checks that element kinds appear in the given relative
// order. Kinds don't need to be consecutive; intervening elements are allowed.
func assertElementOrder(final PassTrace, assertion Assertion) error {
	next := 0
	for _, el := range final.Elements {
		if next < len(assertion.Kinds) && string(el.Kind) == assertion.Kinds[next] {
			next++
		}
	}
	if next == len(assertion.Kinds) {
		return nil
	}

	return &AssertionError{
		Type:     AssertElementOrder,
		Expected: fmt.Sprintf("element kinds in order: %v", assertion.Kinds),
		Actual:   fmt.Sprintf("order broken at %q", assertion.Kinds[next]),
		Trace:    final.Elements,
	}
}

// assertElementCount checks that elements of the kind appear exactly the
// specified number of times.
func assertElementCount(final PassTrace, assertion Assertion) error {
	count := 0
	for _, el := range final.Elements {
		if string(el.Kind) == assertion.Kind {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertElementCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Kind),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    final.Elements,
		}
	}

	return nil
}

// assertFault checks that the final pass faulted with the expected kind and,
// if given, message.
func assertFault(final PassTrace, assertion Assertion) error {
	expected := fmt.Sprintf("fault of kind %s", assertion.Kind)
	if assertion.Message != "" {
		expected += fmt.Sprintf(" with message %q", assertion.Message)
	}

	if final.Fault == nil {
		return &AssertionError{
			Type:     AssertFault,
			Expected: expected,
			Actual:   fmt.Sprintf("pass %s without fault", final.State),
			Trace:    final.Elements,
		}
	}
	if final.Fault.Kind != assertion.Kind ||
		(assertion.Message != "" && final.Fault.Message != assertion.Message) {
		return &AssertionError{
			Type:     AssertFault,
			Expected: expected,
			Actual:   fmt.Sprintf("fault %s: %q", final.Fault.Kind, final.Fault.Message),
			Trace:    final.Elements,
		}
	}

	return nil
}

// assertSessionState checks that a session key holds the expected value
// after the final pass.
//
// Reads through the store's parameterized SQL passthrough rather than the
// script-facing Get, so the assertion inspects the persisted row the same way
// production state inspection does.
func assertSessionState(ctx context.Context, store *session.Store, sessionID string, assertion Assertion) error {
	rows, err := store.Query(ctx,
		`SELECT value FROM session_state WHERE session_id = ? AND key = ?`,
		sessionID, assertion.Key)
	if err != nil {
		return fmt.Errorf("session_state: query key %q: %w", assertion.Key, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return fmt.Errorf("session_state: query key %q: %w", assertion.Key, err)
		}
		return &AssertionError{
			Type:     AssertSessionState,
			Expected: fmt.Sprintf("session key %q = %v", assertion.Key, assertion.Value),
			Actual:   "key not set",
		}
	}

	var encoded string
	if err := rows.Scan(&encoded); err != nil {
		return fmt.Errorf("session_state: scan key %q: %w", assertion.Key, err)
	}
	var actual any
	if err := json.Unmarshal([]byte(encoded), &actual); err != nil {
		return fmt.Errorf("session_state: decode key %q: %w", assertion.Key, err)
	}

	if !stateValuesEqual(assertion.Value, actual) {
		return &AssertionError{
			Type:     AssertSessionState,
			Expected: fmt.Sprintf("session key %q = %v (type %T)", assertion.Key, assertion.Value, assertion.Value),
			Actual:   fmt.Sprintf("session key %q = %v (type %T)", assertion.Key, actual, actual),
		}
	}

	return nil
}

// stateValuesEqual compares an expected YAML-parsed value against an actual
// JSON-decoded session value.
//
// YAML parses integers as int while the session store round-trips numbers as
// float64, so numeric comparison coerces both sides.
func stateValuesEqual(expected, actual any) bool {
	if expected == nil && actual == nil {
		return true
	}
	if expected == nil || actual == nil {
		return false
	}

	if ef, eok := toFloat(expected); eok {
		af, aok := toFloat(actual)
		return aok && ef == af
	}

	switch exp := expected.(type) {
	case string:
		actualStr, ok := actual.(string)
		return ok && exp == actualStr
	case bool:
		actualBool, ok := actual.(bool)
		return ok && exp == actualBool
	case []any:
		actualSlice, ok := actual.([]any)
		if !ok || len(exp) != len(actualSlice) {
			return false
		}
		for i := range exp {
			if !stateValuesEqual(exp[i], actualSlice[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		actualMap, ok := actual.(map[string]any)
		if !ok || len(exp) != len(actualMap) {
			return false
		}
		for k, v := range exp {
			av, present := actualMap[k]
			if !present || !stateValuesEqual(v, av) {
				return false
			}
		}
		return true
	}

	return reflect.DeepEqual(expected, actual)
}

// toFloat coerces numeric types to float64 for comparison.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}

// AssertionContext provides session store access for state assertions.
type AssertionContext struct {
	Store     *session.Store
	SessionID string
	Ctx       context.Context
}

// EvaluateAssertions evaluates all assertions against the result's final
// pass. Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string
	final := result.Final()

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertElementContains:
			err = assertElementContains(final, assertion)
		case AssertElementOrder:
			err = assertElementOrder(final, assertion)
		case AssertElementCount:
			err = assertElementCount(final, assertion)
		case AssertFault:
			err = assertFault(final, assertion)
		case AssertSessionState:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: session_state requires session context", i)
			} else {
				err = assertSessionState(actx.Ctx, actx.Store, actx.SessionID, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
