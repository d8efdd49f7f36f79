package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/objcore/internal/object"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	calls := 0
	for _, event := range e.Trace {
		if event.Type != EventCall {
			continue
		}
		if calls == 0 {
			fmt.Fprintf(&buf, "\nRecorded calls:\n")
		}
		calls++
		fmt.Fprintf(&buf, "  [%d] %s.%s %s\n", calls, event.Object, event.Method, formatValue(argsValue(event.Args)))
	}

	return buf.String()
}

// AssertionContext provides the final object state for assertions.
type AssertionContext struct {
	Objects map[string]*object.Object
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertCallCount:
			err = assertCallCount(result.Trace, assertion)
		case AssertCallOrder:
			err = assertCallOrder(result.Trace, assertion)
		case AssertMetaCount:
			if actx == nil {
				err = fmt.Errorf("assertion[%d]: meta_count requires object context", i)
			} else {
				err = assertMetaCount(actx, assertion)
			}
		case AssertOutcomeCount:
			err = assertOutcomeCount(result.Trace, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

// assertCallCount checks that a method ran on an object exactly Count times.
func assertCallCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Type == EventCall && event.Object == assertion.Object && event.Method == assertion.Method {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertCallCount,
			Expected: fmt.Sprintf("%d calls of %s.%s", assertion.Count, assertion.Object, assertion.Method),
			Actual:   fmt.Sprintf("%d calls", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertCallOrder checks that calls appear in the given order.
// Calls don't need to be consecutive (intervening calls are allowed), and
// each expected call matches a later trace entry than the one before it.
func assertCallOrder(trace []TraceEvent, assertion Assertion) error {
	next := 0
	for _, event := range trace {
		if next == len(assertion.Calls) {
			break
		}
		if event.Type == EventCall && event.Object+"."+event.Method == assertion.Calls[next] {
			next++
		}
	}

	if next < len(assertion.Calls) {
		return &AssertionError{
			Type:     AssertCallOrder,
			Expected: fmt.Sprintf("calls in order: %v", assertion.Calls),
			Actual:   fmt.Sprintf("%s not found after %v", assertion.Calls[next], assertion.Calls[:next]),
			Trace:    trace,
		}
	}
	return nil
}

// assertMetaCount checks how many metadata entries an object ends with.
// A freed object has none.
func assertMetaCount(actx *AssertionContext, assertion Assertion) error {
	obj, ok := actx.Objects[assertion.Object]
	if !ok {
		return fmt.Errorf("meta_count: unknown object %q", assertion.Object)
	}

	keys := obj.GetMetaList()
	if len(keys) != assertion.Count {
		return &AssertionError{
			Type:     AssertMetaCount,
			Expected: fmt.Sprintf("%d metadata entries on %s", assertion.Count, assertion.Object),
			Actual:   fmt.Sprintf("%d entries %v", len(keys), keys),
		}
	}
	return nil
}

// assertOutcomeCount checks how many dispatches ended with an outcome.
func assertOutcomeCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Type == EventDispatch && event.Outcome == assertion.Outcome {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertOutcomeCount,
			Expected: fmt.Sprintf("%d dispatches with outcome %s", assertion.Count, assertion.Outcome),
			Actual:   fmt.Sprintf("%d dispatches", count),
			Trace:    trace,
		}
	}
	return nil
}
