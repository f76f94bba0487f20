package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/roach88/formsignal/internal/ir"
)

const profileForm = `form: profile: { group: { a: {value: "A"} } }`

func TestLoadScenario_ValidFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "forms"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "forms", "profile.cue"), []byte(profileForm), 0644))

	scenarioPath := filepath.Join(dir, "test.yaml")
	content := `
name: test_scenario
description: "Test scenario for validation"
form: forms/profile.cue
watches:
  - name: live_a
    path: a
    read: value
steps:
  - op: set_value
    path: a
    value: "B"
assertions:
  - type: effect_runs
    watch: live_a
    count: 2
`
	require.NoError(t, os.WriteFile(scenarioPath, []byte(content), 0644))

	scenario, err := LoadScenario(scenarioPath)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "Test scenario for validation", scenario.Description)
	assert.Equal(t, filepath.Join(dir, "forms", "profile.cue"), scenario.Form)
	require.Len(t, scenario.Watches, 1)
	assert.Equal(t, ModeLive, scenario.Watches[0].Mode, "mode defaults to live")
	assert.Equal(t, ReadValue, scenario.Watches[0].Read)
	require.Len(t, scenario.Steps, 1)
	assert.Equal(t, OpSetValue, scenario.Steps[0].Op)
	assert.Len(t, scenario.Assertions, 1)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_MissingForm(t *testing.T) {
	dir := t.TempDir()
	scenarioPath := filepath.Join(dir, "test.yaml")
	content := `
name: missing_form
description: "Form file does not exist"
form: nope.cue
steps:
  - op: flush
assertions:
  - type: snapshot
    expect: { valid: true }
`
	require.NoError(t, os.WriteFile(scenarioPath, []byte(content), 0644))

	_, err := LoadScenario(scenarioPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "form file not found")
}

func TestParseScenario_InlineForm(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: inline
description: "Inline form source"
form_source: 'form: profile: { group: { a: {value: "A"} } }'
watches:
  - name: all
steps:
  - op: flush
assertions:
  - type: snapshot
    expect: { valid: true }
`))
	require.NoError(t, err)

	assert.Empty(t, scenario.Form)
	assert.Contains(t, scenario.FormSource, "profile")
	assert.Equal(t, ReadSnapshot, scenario.Watches[0].Read, "read defaults to snapshot")
}

func TestParseScenario_UnknownFieldRejected(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: typo
description: "Typo in assertions"
form_source: 'x'
steps:
  - op: flush
assertion:
  - type: snapshot
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_ValueNodes(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: values
description: "Value arguments"
form_source: 'x'
steps:
  - op: set_value
    value: null
  - op: patch_value
    value: { a: 1 }
assertions:
  - type: snapshot
    expect: { valid: true }
`))
	require.NoError(t, err)

	null, err := valueFromYAML(&scenario.Steps[0].Value)
	require.NoError(t, err)
	assert.Equal(t, ir.Null{}, null, "an explicit null is a value")

	obj, err := valueFromYAML(&scenario.Steps[1].Value)
	require.NoError(t, err)
	assert.Equal(t, ir.Object{"a": ir.Int(1)}, obj)
}

func TestParseScenario_ValidationErrors(t *testing.T) {
	base := func(body string) string {
		return "name: bad\ndescription: \"bad\"\nform_source: 'x'\n" + body
	}
	ok := "\nassertions:\n  - type: snapshot\n    expect: { valid: true }\n"

	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing name",
			yaml:    "description: d\nform_source: 'x'\nsteps:\n  - op: flush" + ok,
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    "name: n\nform_source: 'x'\nsteps:\n  - op: flush" + ok,
			wantErr: "description is required",
		},
		{
			name:    "form and form_source",
			yaml:    "name: n\ndescription: d\nform: a.cue\nform_source: 'x'\nsteps:\n  - op: flush" + ok,
			wantErr: "exactly one of form or form_source",
		},
		{
			name:    "no steps",
			yaml:    base("steps: []" + ok),
			wantErr: "steps list is required",
		},
		{
			name:    "no assertions",
			yaml:    base("steps:\n  - op: flush\nassertions: []\n"),
			wantErr: "assertions list is required",
		},
		{
			name:    "duplicate watch",
			yaml:    base("watches:\n  - name: w\n  - name: w\nsteps:\n  - op: flush" + ok),
			wantErr: `duplicate name "w"`,
		},
		{
			name:    "bad mode",
			yaml:    base("watches:\n  - name: w\n    mode: eager\nsteps:\n  - op: flush" + ok),
			wantErr: "mode must be live or snapshot",
		},
		{
			name:    "bad read",
			yaml:    base("watches:\n  - name: w\n    read: colour\nsteps:\n  - op: flush" + ok),
			wantErr: `unknown read "colour"`,
		},
		{
			name:    "unknown op",
			yaml:    base("steps:\n  - op: explode" + ok),
			wantErr: `unknown op "explode"`,
		},
		{
			name:    "missing op",
			yaml:    base("steps:\n  - path: a" + ok),
			wantErr: "op is required",
		},
		{
			name:    "set_value without value",
			yaml:    base("steps:\n  - op: set_value" + ok),
			wantErr: "value is required for set_value",
		},
		{
			name:    "add_control without key",
			yaml:    base("steps:\n  - op: add_control\n    control: { value: 1 }" + ok),
			wantErr: "key is required for add_control",
		},
		{
			name:    "insert without index",
			yaml:    base("steps:\n  - op: insert\n    control: { value: 1 }" + ok),
			wantErr: "control and index are required for insert",
		},
		{
			name:    "rebind with two targets",
			yaml:    base("steps:\n  - op: rebind\n    absent: true\n    path: a" + ok),
			wantErr: "rebind takes only one of",
		},
		{
			name:    "nested batch",
			yaml:    base("steps:\n  - op: batch\n    steps:\n      - op: batch\n        steps:\n          - op: flush" + ok),
			wantErr: "batches do not nest",
		},
		{
			name:    "expect inside batch",
			yaml:    base("steps:\n  - op: batch\n    steps:\n      - op: flush\n        expect:\n          - type: snapshot\n            expect: { valid: true }" + ok),
			wantErr: "steps inside a batch cannot expect",
		},
		{
			name:    "effect_runs on unknown watch",
			yaml:    base("steps:\n  - op: flush\nassertions:\n  - type: effect_runs\n    watch: ghost\n    count: 1\n"),
			wantErr: `unknown watch "ghost"`,
		},
		{
			name:    "children without expectation",
			yaml:    base("steps:\n  - op: flush\nassertions:\n  - type: children\n"),
			wantErr: "keys, count, or absent is required",
		},
		{
			name:    "unknown assertion type",
			yaml:    base("steps:\n  - op: flush\nassertions:\n  - type: vibes\n"),
			wantErr: `unknown assertion type "vibes"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestControlDef_Shapes(t *testing.T) {
	var def ControlDef
	require.NoError(t, yaml.Unmarshal([]byte(`
group:
  zip: { value: "", validators: { required: true, pattern: "[0-9]{5}" } }
  street: { value: "", disabled: true }
  phones:
    list:
      - value: "555"
`), &def))

	spec := def.Spec
	assert.Equal(t, ir.KindGroup, spec.Kind)
	assert.Equal(t, []string{"zip", "street", "phones"}, spec.Keys, "group keys keep YAML order")

	zip := spec.Controls["zip"]
	assert.Equal(t, ir.KindLeaf, zip.Kind)
	assert.Equal(t, ir.String(""), zip.Value)
	assert.Equal(t, []ir.ValidatorSpec{
		{Kind: "required"},
		{Kind: "pattern", Arg: ir.String("[0-9]{5}")},
	}, zip.Validators)

	assert.True(t, spec.Controls["street"].Disabled)

	phones := spec.Controls["phones"]
	assert.Equal(t, ir.KindList, phones.Kind)
	require.Len(t, phones.Items, 1)
	assert.Equal(t, ir.String("555"), phones.Items[0].Value)
}

func TestControlDef_RequiredFalseDropped(t *testing.T) {
	var def ControlDef
	require.NoError(t, yaml.Unmarshal([]byte(`{ value: "", validators: { required: false } }`), &def))
	assert.Empty(t, def.Spec.Validators)
}

func TestControlDef_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"not a mapping", `"leaf"`, "control must be a mapping"},
		{"no shape", `{ disabled: true }`, "exactly one of value, group, or list"},
		{"two shapes", `{ value: 1, list: [] }`, "exactly one of value, group, or list"},
		{"unknown field", `{ value: 1, colour: red }`, "control.colour: unknown field"},
		{"group not mapping", `{ group: [1] }`, "group must be a mapping"},
		{"list not sequence", `{ list: { a: 1 } }`, "list must be a sequence"},
		{"nested error path", `{ group: { a: { vale: 1 } } }`, "control.a.vale: unknown field"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var def ControlDef
			err := yaml.Unmarshal([]byte(tt.yaml), &def)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
