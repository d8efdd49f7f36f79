package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/objcore/internal/object"
)

// Scenario defines an object scenario.
// It declares classes and objects, drives the objects through steps, and
// asserts on the resulting trace and final state.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Classes lists CUE manifests to compile. Paths are relative to the
	// scenario file; LoadScenario resolves them.
	Classes []string `yaml:"classes,omitempty"`

	// Objects are created in order before the first step.
	Objects []ObjectDecl `yaml:"objects"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions are evaluated after the last step.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// ObjectDecl names an object and its class.
type ObjectDecl struct {
	Name  string `yaml:"name"`
	Class string `yaml:"class"`
}

// Step is one operation on a named object.
type Step struct {
	// Op is the operation, one of the Op* constants.
	Op string `yaml:"op"`

	// Object is the object the operation applies to. Unused by
	// flush_deferred.
	Object string `yaml:"object,omitempty"`

	// Key is the metadata key (set_meta, get_meta, remove_meta).
	Key string `yaml:"key,omitempty"`

	// Value is the metadata value for set_meta. Maps of the form
	// {color: [r, g, b]} and {vector2: [x, y]} become typed values.
	Value any `yaml:"value,omitempty"`

	// Signal is the signal name (connect, disconnect, is_connected,
	// has_signal, add_user_signal, emit).
	Signal string `yaml:"signal,omitempty"`

	// Target and Method identify the callable (connect, disconnect,
	// is_connected). Method alone is used by has_method.
	Target string `yaml:"target,omitempty"`
	Method string `yaml:"method,omitempty"`

	// Flags are connect flags by name: deferred, one_shot,
	// reference_counted.
	Flags []string `yaml:"flags,omitempty"`

	// Args are the emission arguments, or bound arguments for connect.
	Args []any `yaml:"args,omitempty"`

	// Class is the class name for is_class.
	Class string `yaml:"class,omitempty"`

	// Enabled is the switch for block_signals and set_edited.
	Enabled bool `yaml:"enabled,omitempty"`

	// Expect checks the outcome of the step.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect specifies the expected outcome of a step. Unset fields are not
// checked, except Error: a step that fails without an expected error fails
// the scenario.
type Expect struct {
	OK    *bool  `yaml:"ok,omitempty"`
	Error string `yaml:"error,omitempty"`
	Value any    `yaml:"value,omitempty"`
	Count *int   `yaml:"count,omitempty"`
}

// Assertion validates the trace or the final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Object and Method select calls (call_count) or the object whose
	// metadata is counted (meta_count).
	Object string `yaml:"object,omitempty"`
	Method string `yaml:"method,omitempty"`

	// Calls is the expected call order as "object.method" (call_order).
	Calls []string `yaml:"calls,omitempty"`

	// Outcome is the dispatch outcome counted by outcome_count.
	Outcome string `yaml:"outcome,omitempty"`

	// Count is the expected number (call_count, meta_count, outcome_count).
	Count int `yaml:"count"`
}

// Step operations.
const (
	OpSetMeta       = "set_meta"
	OpGetMeta       = "get_meta"
	OpRemoveMeta    = "remove_meta"
	OpMetaList      = "meta_list"
	OpConnect       = "connect"
	OpDisconnect    = "disconnect"
	OpIsConnected   = "is_connected"
	OpHasSignal     = "has_signal"
	OpHasMethod     = "has_method"
	OpIsClass       = "is_class"
	OpAddUserSignal = "add_user_signal"
	OpBlockSignals  = "block_signals"
	OpEmit          = "emit"
	OpSetEdited     = "set_edited"
	OpEditedVersion = "edited_version"
	OpFree          = "free"
	OpFlushDeferred = "flush_deferred"
)

// Assertion type constants.
const (
	AssertCallCount    = "call_count"
	AssertCallOrder    = "call_order"
	AssertMetaCount    = "meta_count"
	AssertOutcomeCount = "outcome_count"
)

var errorKinds = map[string]bool{
	"invalid_argument":   true,
	"not_found":          true,
	"already_connected":  true,
	"dangling_reference": true,
}

var outcomes = map[string]bool{
	string(object.OutcomeOK):       true,
	string(object.OutcomeError):    true,
	string(object.OutcomeDangling): true,
	string(object.OutcomeDeferred): true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// Class paths are resolved relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	base := filepath.Dir(path)
	for i, p := range scenario.Classes {
		if !filepath.IsAbs(p) {
			scenario.Classes[i] = filepath.Join(base, p)
		}
	}
	for _, p := range scenario.Classes {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("invalid scenario: class file not found: %s", p)
		}
	}

	return scenario, nil
}

// ParseScenario decodes and validates scenario YAML. Class paths are left
// as written.
func ParseScenario(data []byte) (*Scenario, error) {
	// Parse YAML with strict field validation (catches typos like "step:" vs "steps:")
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
	if len(s.Objects) == 0 {
		return fmt.Errorf("objects list is required and must be non-empty")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	declared := make(map[string]bool, len(s.Objects))
	for i, obj := range s.Objects {
		if obj.Name == "" {
			return fmt.Errorf("objects[%d]: name is required", i)
		}
		if obj.Class == "" {
			return fmt.Errorf("objects[%d]: class is required", i)
		}
		if declared[obj.Name] {
			return fmt.Errorf("objects[%d]: duplicate object name %q", i, obj.Name)
		}
		declared[obj.Name] = true
	}

	for i := range s.Steps {
		if err := validateStep(i, &s.Steps[i], declared); err != nil {
			return err
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i], declared); err != nil {
			return err
		}
	}
	return nil
}

// validateStep validates a single step based on its op.
func validateStep(index int, st *Step, declared map[string]bool) error {
	if st.Op == "" {
		return fmt.Errorf("steps[%d]: op is required", index)
	}
	if st.Op != OpFlushDeferred && !declared[st.Object] {
		return fmt.Errorf("steps[%d]: unknown object %q", index, st.Object)
	}

	switch st.Op {
	case OpSetMeta, OpGetMeta, OpRemoveMeta:
		// An empty key is a valid key.
	case OpMetaList, OpBlockSignals, OpSetEdited, OpEditedVersion, OpFree, OpFlushDeferred:
	case OpConnect, OpDisconnect, OpIsConnected:
		if st.Signal == "" {
			return fmt.Errorf("steps[%d]: signal is required for %s", index, st.Op)
		}
		if !declared[st.Target] {
			return fmt.Errorf("steps[%d]: unknown target %q", index, st.Target)
		}
		if st.Method == "" {
			return fmt.Errorf("steps[%d]: method is required for %s", index, st.Op)
		}
	case OpHasSignal, OpAddUserSignal, OpEmit, OpHasMethod, OpIsClass:
		// Names may be empty: malformed names are part of what is tested.
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, st.Op)
	}

	for _, name := range st.Flags {
		if st.Op != OpConnect {
			return fmt.Errorf("steps[%d]: flags are only valid for connect", index)
		}
		if _, ok := object.ParseConnectFlag(name); !ok {
			return fmt.Errorf("steps[%d]: unknown connect flag %q", index, name)
		}
	}

	if st.Expect != nil && st.Expect.Error != "" && !errorKinds[st.Expect.Error] {
		return fmt.Errorf("steps[%d].expect: unknown error kind %q", index, st.Expect.Error)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, declared map[string]bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Count < 0 {
		return fmt.Errorf("assertions[%d]: count must be non-negative", index)
	}

	switch a.Type {
	case AssertCallCount:
		if !declared[a.Object] {
			return fmt.Errorf("assertions[%d]: unknown object %q", index, a.Object)
		}
		if a.Method == "" {
			return fmt.Errorf("assertions[%d]: method is required for call_count", index)
		}
	case AssertCallOrder:
		if len(a.Calls) == 0 {
			return fmt.Errorf("assertions[%d]: calls list is required for call_order", index)
		}
	case AssertMetaCount:
		if !declared[a.Object] {
			return fmt.Errorf("assertions[%d]: unknown object %q", index, a.Object)
		}
	case AssertOutcomeCount:
		if !outcomes[a.Outcome] {
			return fmt.Errorf("assertions[%d]: unknown outcome %q", index, a.Outcome)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
