package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a bridge conformance scenario.
// A scenario binds a deep bridge to a form, installs watch effects,
// mutates the form step by step, and asserts on what the effects saw.
type Scenario struct {
	// Name uniquely identifies this scenario. Also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Form is the path to a CUE file holding a form: block.
	// Relative paths are resolved against the scenario file location.
	Form string `yaml:"form,omitempty"`

	// FormSource is inline CUE, used instead of Form.
	FormSource string `yaml:"form_source,omitempty"`

	// FormName picks a form when the source defines several.
	FormName string `yaml:"form_name,omitempty"`

	// Root is the dotted path of the control to bind. Empty binds the
	// form root.
	Root string `yaml:"root,omitempty"`

	// Session is an optional fixed session id for deterministic traces.
	// If empty, defaults to "test-session-default".
	Session string `yaml:"session,omitempty"`

	// EagerNotify binds the bridge in eager mode.
	EagerNotify bool `yaml:"eager_notify,omitempty"`

	// Watches are effects installed before the first step.
	Watches []Watch `yaml:"watches"`

	// Steps mutate the form. Effects flush after every step.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state.
	Assertions []Assertion `yaml:"assertions"`
}

// Watch is an effect that reads one axis of one bridge and records every
// run in the trace.
type Watch struct {
	Name string `yaml:"name"`

	// Path is the dotted path from the bound root. Empty reads the root.
	Path string `yaml:"path,omitempty"`

	// Mode is "live" (only the target's own cells are dependencies) or
	// "snapshot" (every children list along the path is tracked too).
	Mode string `yaml:"mode,omitempty"`

	// Read selects what the effect reads. Defaults to "snapshot".
	Read string `yaml:"read,omitempty"`
}

// Watch modes.
const (
	ModeLive     = "live"
	ModeSnapshot = "snapshot"
)

// Watch reads.
const (
	ReadValue    = "value"
	ReadRawValue = "raw_value"
	ReadStatus   = "status"
	ReadTouched  = "touched"
	ReadDirty    = "dirty"
	ReadErrors   = "errors"
	ReadSnapshot = "snapshot"
	ReadChildren = "children"
)

var watchReads = map[string]bool{
	ReadValue: true, ReadRawValue: true, ReadStatus: true, ReadTouched: true,
	ReadDirty: true, ReadErrors: true, ReadSnapshot: true, ReadChildren: true,
}

// Step is one mutation of the form.
type Step struct {
	// Op names the operation. See the Op constants.
	Op string `yaml:"op"`

	// Path is the dotted path of the target control, relative to the
	// currently bound root. For rebind it is relative to the form root.
	Path string `yaml:"path,omitempty"`

	// Key is the group key for add_control, set_control and
	// remove_control.
	Key string `yaml:"key,omitempty"`

	// Index is the list position for insert and remove_at.
	Index *int `yaml:"index,omitempty"`

	// Value is the argument of set_value and patch_value. A YAML null is
	// a real null value.
	Value yaml.Node `yaml:"value,omitempty"`

	// Pending is the argument of set_pending.
	Pending bool `yaml:"pending,omitempty"`

	// Errors is the argument of set_errors. Empty clears.
	Errors map[string]any `yaml:"errors,omitempty"`

	// Control is the new control for add_control, set_control, push,
	// insert, and rebind.
	Control *ControlDef `yaml:"control,omitempty"`

	// Absent makes rebind bind nothing.
	Absent bool `yaml:"absent,omitempty"`

	// As names the bridge captured by remember.
	As string `yaml:"as,omitempty"`

	// Steps are the nested steps of a batch. They flush once, together.
	Steps []Step `yaml:"steps,omitempty"`

	// Error, when set, expects the step to fail with a message
	// containing it.
	Error string `yaml:"error,omitempty"`

	// Expect holds assertions evaluated after the step has flushed.
	Expect []Assertion `yaml:"expect,omitempty"`
}

// Step operations.
const (
	OpSetValue      = "set_value"
	OpPatchValue    = "patch_value"
	OpReset         = "reset"
	OpMarkTouched   = "mark_touched"
	OpMarkUntouched = "mark_untouched"
	OpMarkDirty     = "mark_dirty"
	OpMarkPristine  = "mark_pristine"
	OpDisable       = "disable"
	OpEnable        = "enable"
	OpSetPending    = "set_pending"
	OpSetErrors     = "set_errors"
	OpAddControl    = "add_control"
	OpSetControl    = "set_control"
	OpRemoveControl = "remove_control"
	OpPush          = "push"
	OpInsert        = "insert"
	OpRemoveAt      = "remove_at"
	OpRebind        = "rebind"
	OpRemember      = "remember"
	OpBatch         = "batch"
	OpFlush         = "flush"
)

// Assertion validates bridge state or effect history.
type Assertion struct {
	// Type specifies the assertion type:
	// - "snapshot": the bridge at Path reads Expect (subset match)
	// - "effect_runs": Watch has run exactly Count times
	// - "children": the bridge at Path has children Keys (groups) or
	//   Count items (lists); Absent expects no children at all
	// - "same_bridge": the bridge at Path is the one remembered as As
	// - "fresh_bridge": the bridge at Path exists and is not the one
	//   remembered as As
	// - "subscribers": the control at Path, or the one remembered as As,
	//   has Count live subscriptions
	Type string `yaml:"type"`

	Path   string         `yaml:"path,omitempty"`
	Watch  string         `yaml:"watch,omitempty"`
	As     string         `yaml:"as,omitempty"`
	Count  *int           `yaml:"count,omitempty"`
	Keys   []string       `yaml:"keys,omitempty"`
	Absent bool           `yaml:"absent,omitempty"`
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertSnapshot    = "snapshot"
	AssertEffectRuns  = "effect_runs"
	AssertChildren    = "children"
	AssertSameBridge  = "same_bridge"
	AssertFreshBridge = "fresh_bridge"
	AssertSubscribers = "subscribers"
)

// DefaultSession is the session id used when a scenario names none.
const DefaultSession = "test-session-default"

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A relative form path is resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Form != "" && !filepath.IsAbs(scenario.Form) {
		scenario.Form = filepath.Join(filepath.Dir(path), scenario.Form)
	}
	if scenario.Form != "" {
		if _, err := os.Stat(scenario.Form); os.IsNotExist(err) {
			return nil, fmt.Errorf("invalid scenario: form file not found: %s", scenario.Form)
		}
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML. Form paths are left as written.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
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
	if (s.Form == "") == (s.FormSource == "") {
		return fmt.Errorf("exactly one of form or form_source is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	watches := make(map[string]bool, len(s.Watches))
	for i := range s.Watches {
		w := &s.Watches[i]
		if w.Name == "" {
			return fmt.Errorf("watches[%d]: name is required", i)
		}
		if watches[w.Name] {
			return fmt.Errorf("watches[%d]: duplicate name %q", i, w.Name)
		}
		watches[w.Name] = true
		if w.Mode == "" {
			w.Mode = ModeLive
		}
		if w.Mode != ModeLive && w.Mode != ModeSnapshot {
			return fmt.Errorf("watches[%d]: mode must be live or snapshot, got %q", i, w.Mode)
		}
		if w.Read == "" {
			w.Read = ReadSnapshot
		}
		if !watchReads[w.Read] {
			return fmt.Errorf("watches[%d]: unknown read %q", i, w.Read)
		}
	}

	if err := validateSteps("steps", s.Steps, watches, false); err != nil {
		return err
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(fmt.Sprintf("assertions[%d]", i), a, watches); err != nil {
			return err
		}
	}
	return nil
}

func validateSteps(prefix string, steps []Step, watches map[string]bool, nested bool) error {
	for i, step := range steps {
		at := fmt.Sprintf("%s[%d]", prefix, i)
		if err := validateStep(at, step, nested); err != nil {
			return err
		}
		if step.Op == OpBatch {
			if err := validateSteps(at+".steps", step.Steps, watches, true); err != nil {
				return err
			}
		}
		for j, a := range step.Expect {
			if err := validateAssertion(fmt.Sprintf("%s.expect[%d]", at, j), a, watches); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateStep(at string, step Step, nested bool) error {
	hasValue := step.Value.Kind != 0
	switch step.Op {
	case OpSetValue, OpPatchValue:
		if !hasValue {
			return fmt.Errorf("%s: value is required for %s", at, step.Op)
		}
	case OpReset, OpMarkTouched, OpMarkUntouched, OpMarkDirty, OpMarkPristine,
		OpDisable, OpEnable, OpSetPending, OpSetErrors, OpFlush:
	case OpAddControl, OpSetControl:
		if step.Key == "" {
			return fmt.Errorf("%s: key is required for %s", at, step.Op)
		}
		if step.Control == nil {
			return fmt.Errorf("%s: control is required for %s", at, step.Op)
		}
	case OpRemoveControl:
		if step.Key == "" {
			return fmt.Errorf("%s: key is required for remove_control", at)
		}
	case OpPush:
		if step.Control == nil {
			return fmt.Errorf("%s: control is required for push", at)
		}
	case OpInsert:
		if step.Control == nil || step.Index == nil {
			return fmt.Errorf("%s: control and index are required for insert", at)
		}
	case OpRemoveAt:
		if step.Index == nil {
			return fmt.Errorf("%s: index is required for remove_at", at)
		}
	case OpRebind:
		set := 0
		for _, ok := range []bool{step.Control != nil, step.Absent, step.Path != ""} {
			if ok {
				set++
			}
		}
		if set > 1 {
			return fmt.Errorf("%s: rebind takes only one of control, absent, or path", at)
		}
	case OpRemember:
		if step.As == "" {
			return fmt.Errorf("%s: as is required for remember", at)
		}
	case OpBatch:
		if nested {
			return fmt.Errorf("%s: batches do not nest", at)
		}
		if len(step.Steps) == 0 {
			return fmt.Errorf("%s: batch needs steps", at)
		}
	case "":
		return fmt.Errorf("%s: op is required", at)
	default:
		return fmt.Errorf("%s: unknown op %q", at, step.Op)
	}
	if nested && len(step.Expect) > 0 {
		return fmt.Errorf("%s: steps inside a batch cannot expect", at)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(at string, a Assertion, watches map[string]bool) error {
	switch a.Type {
	case AssertSnapshot:
		if len(a.Expect) == 0 {
			return fmt.Errorf("%s: expect is required for snapshot", at)
		}
	case AssertEffectRuns:
		if !watches[a.Watch] {
			return fmt.Errorf("%s: unknown watch %q", at, a.Watch)
		}
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("%s: non-negative count is required for effect_runs", at)
		}
	case AssertChildren:
		if a.Absent && (a.Keys != nil || a.Count != nil) {
			return fmt.Errorf("%s: absent children cannot have keys or count", at)
		}
		if !a.Absent && a.Keys == nil && a.Count == nil {
			return fmt.Errorf("%s: keys, count, or absent is required for children", at)
		}
	case AssertSameBridge, AssertFreshBridge:
		if a.As == "" {
			return fmt.Errorf("%s: as is required for %s", at, a.Type)
		}
	case AssertSubscribers:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("%s: non-negative count is required for subscribers", at)
		}
	case "":
		return fmt.Errorf("%s: type is required", at)
	default:
		return fmt.Errorf("%s: unknown assertion type %q", at, a.Type)
	}
	return nil
}
