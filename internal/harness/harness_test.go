package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/formsignal/internal/ir"
	"github.com/roach88/formsignal/internal/metrics"
	"github.com/roach88/formsignal/internal/store"
)

// inlineScenario parses a scenario bound to the one-key profile form.
func inlineScenario(t *testing.T, body string) *Scenario {
	t.Helper()
	src := "form_source: '" + profileForm + "'\n" + body
	scenario, err := ParseScenario([]byte(src))
	require.NoError(t, err)
	return scenario
}

func runInline(t *testing.T, body string, opts ...Option) *Result {
	t.Helper()
	result, err := Run(context.Background(), inlineScenario(t, body), opts...)
	require.NoError(t, err)
	return result
}

func TestRun_MinimalScenario(t *testing.T) {
	result := runInline(t, `
name: minimal
description: "Set a leaf value"
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
  - type: snapshot
    path: a
    expect: { value: "B", valid: true }
`)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, DefaultSession, result.Session)
	assert.Equal(t, 2, result.Runs["live_a"])

	require.Len(t, result.Trace, 2)
	assert.Equal(t, TraceEvent{Seq: 1, Step: 0, Watch: "live_a", Path: "a", Run: 1, Reading: ir.String("A")}, result.Trace[0])
	assert.Equal(t, TraceEvent{Seq: 2, Step: 1, Watch: "live_a", Path: "a", Run: 2, Reading: ir.String("B")}, result.Trace[1])
}

func TestRun_StepExpectFailure(t *testing.T) {
	result := runInline(t, `
name: step_expect
description: "A failing step expect is reported with its step"
steps:
  - op: set_value
    path: a
    value: "B"
    expect:
      - type: snapshot
        path: a
        expect: { value: "C" }
assertions:
  - type: snapshot
    path: a
    expect: { value: "B" }
`)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "step 1: Assertion failed: snapshot at a")
	assert.Contains(t, result.Errors[0], `Expected: value = "C"`)
	assert.Contains(t, result.Errors[0], `Actual: value = "B"`)
}

func TestRun_ExpectedError(t *testing.T) {
	tests := []struct {
		name     string
		step     string
		wantPass bool
		wantErr  string
	}{
		{
			name:     "matching error",
			step:     "  - op: set_value\n    value: { b: 1 }\n    error: unknown key\n",
			wantPass: true,
		},
		{
			name:    "no error raised",
			step:    "  - op: set_value\n    path: a\n    value: 1\n    error: unknown key\n",
			wantErr: "expected error containing \"unknown key\", got success",
		},
		{
			name:    "different error",
			step:    "  - op: remove_control\n    key: zz\n    error: unknown key\n",
			wantErr: "control not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := runInline(t, "name: expected_error\ndescription: d\nsteps:\n"+tt.step+
				"assertions:\n  - type: snapshot\n    expect: { valid: true }\n")

			assert.Equal(t, tt.wantPass, result.Pass, "errors: %v", result.Errors)
			if tt.wantErr != "" {
				require.NotEmpty(t, result.Errors)
				assert.Contains(t, result.Errors[0], tt.wantErr)
			}
		})
	}
}

func TestRun_UnexpectedErrorStopsExecution(t *testing.T) {
	result := runInline(t, `
name: stops
description: "An unexpected step error skips the remaining steps and assertions"
watches:
  - name: live_a
    path: a
    read: value
steps:
  - op: remove_control
    key: zz
  - op: set_value
    path: a
    value: "B"
assertions:
  - type: effect_runs
    watch: live_a
    count: 99
`)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1, "final assertions are not evaluated")
	assert.Contains(t, result.Errors[0], "step 1 (remove_control)")
	assert.Equal(t, 1, result.Runs["live_a"], "the second step never ran")
}

func TestRun_BatchFlushesOnce(t *testing.T) {
	result := runInline(t, `
name: batch
description: "Steps in a batch share one flush"
watches:
  - name: live_a
    path: a
    read: value
steps:
  - op: batch
    steps:
      - op: set_value
        path: a
        value: "B"
      - op: set_value
        path: a
        value: "C"
assertions:
  - type: effect_runs
    watch: live_a
    count: 2
`)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	trace := result.WatchTrace("live_a")
	require.Len(t, trace, 2)
	assert.Equal(t, ir.String("C"), trace[1].Reading)
}

func TestRun_LiveAndSnapshotWatches(t *testing.T) {
	result := runInline(t, `
name: modes
description: "Snapshot lookups track the children lists they cross"
watches:
  - name: live_a
    path: a
    mode: live
    read: value
  - name: snap_a
    path: a
    mode: snapshot
    read: value
steps:
  - op: add_control
    key: b
    control: { value: "B" }
  - op: set_value
    path: b
    value: "BB"
assertions:
  - type: effect_runs
    watch: live_a
    count: 1
  - type: effect_runs
    watch: snap_a
    count: 2
  - type: children
    keys: [a, b]
`)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_MissingChildReadsNull(t *testing.T) {
	result := runInline(t, `
name: missing_child
description: "A live watch on a path that does not exist reads null"
watches:
  - name: ghost
    path: nope
    read: value
steps:
  - op: flush
assertions:
  - type: effect_runs
    watch: ghost
    count: 1
`)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Trace, 1)
	assert.Equal(t, ir.Null{}, result.Trace[0].Reading)
}

func TestRun_RebindToInlineControl(t *testing.T) {
	result := runInline(t, `
name: rebind_inline
description: "Rebinding to a new control rebuilds the children"
watches:
  - name: keys
    mode: snapshot
    read: children
steps:
  - op: rebind
    control: { group: { x: { value: 1 }, y: { value: 2 } } }
    expect:
      - type: children
        keys: [x, y]
      - type: snapshot
        expect: { value: { x: 1, y: 2 } }
  - op: rebind
    absent: true
    expect:
      - type: children
        absent: true
assertions:
  - type: effect_runs
    watch: keys
    count: 3
`)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	keys := result.WatchTrace("keys")
	require.Len(t, keys, 3)
	assert.Equal(t, ir.List{ir.String("a")}, keys[0].Reading)
	assert.Equal(t, ir.List{ir.String("x"), ir.String("y")}, keys[1].Reading)
	assert.Equal(t, ir.Null{}, keys[2].Reading)
}

func TestRun_NoControlBound(t *testing.T) {
	result := runInline(t, `
name: unbound
description: "Mutations fail while nothing is bound"
steps:
  - op: rebind
    absent: true
  - op: set_value
    path: a
    value: "B"
    error: no control is bound
assertions:
  - type: snapshot
    expect: { status: "" }
`)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_RecordsObservations(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(filepath.Join(t.TempDir(), "trace.db"))
	require.NoError(t, err)
	defer st.Close()

	result := runInline(t, `
name: recorded
description: "Every watch run lands in the store"
watches:
  - name: live_a
    path: a
    read: value
  - name: status
    read: status
steps:
  - op: set_value
    path: a
    value: "B"
assertions:
  - type: effect_runs
    watch: live_a
    count: 2
`, WithStore(st))
	require.True(t, result.Pass, "errors: %v", result.Errors)

	sess, err := st.ReadSession(ctx, DefaultSession)
	require.NoError(t, err)
	assert.Equal(t, "recorded", sess.Scenario)
	assert.Equal(t, "profile", sess.Form)
	assert.NotEmpty(t, sess.FormHash)
	assert.Equal(t, ir.EngineVersion, sess.EngineVersion)
	assert.Equal(t, int64(len(result.Trace)), sess.Seq)

	all, err := st.ReadObservations(ctx, DefaultSession, "")
	require.NoError(t, err)
	require.Len(t, all, len(result.Trace))
	for i, obs := range all {
		assert.Equal(t, result.Trace[i].Seq, obs.Seq)
		assert.Equal(t, result.Trace[i].Watch, obs.Watch)
		assert.True(t, ir.Equal(result.Trace[i].Reading, obs.Reading))
		assert.NotEmpty(t, obs.Fingerprint)
	}

	liveA, err := st.ReadObservations(ctx, DefaultSession, "live_a")
	require.NoError(t, err)
	assert.Len(t, liveA, 2)

	mismatches, err := st.Verify(ctx, DefaultSession)
	require.NoError(t, err)
	assert.Empty(t, mismatches)
}

func TestRun_SessionIDs(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(filepath.Join(t.TempDir(), "trace.db"))
	require.NoError(t, err)
	defer st.Close()

	body := `
name: sessions
description: "Repeated runs record separate sessions"
watches:
  - name: live_a
    path: a
    read: value
steps:
  - op: flush
assertions:
  - type: effect_runs
    watch: live_a
    count: 1
`
	ids := store.NewFixedGenerator("run-1", "run-2")
	first := runInline(t, body, WithStore(st), WithSessionIDs(ids))
	second := runInline(t, body, WithStore(st), WithSessionIDs(ids))

	assert.Equal(t, "run-1", first.Session)
	assert.Equal(t, "run-2", second.Session)

	sessions, err := st.ListSessions(ctx, "sessions")
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
}

func TestRun_Deterministic(t *testing.T) {
	body := `
name: deterministic
description: "Identical runs produce identical traces"
watches:
  - name: all
    mode: snapshot
steps:
  - op: add_control
    key: b
    control: { value: "B" }
  - op: mark_touched
    path: b
  - op: set_pending
    path: a
    pending: true
assertions:
  - type: snapshot
    expect: { pending: true, touched: true }
`
	first := runInline(t, body)
	second := runInline(t, body)
	require.True(t, first.Pass, "errors: %v", first.Errors)

	a, err := MarshalTrace("deterministic", first)
	require.NoError(t, err)
	b, err := MarshalTrace("deterministic", second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRun_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	result := runInline(t, `
name: metered
description: "Effect runs and subscriptions are counted"
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
`, WithMetrics(m))
	require.True(t, result.Pass, "errors: %v", result.Errors)

	summary, err := metrics.Summary(reg)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, summary["formsignal_reactive_effect_runs_total"], float64(2))
	assert.Positive(t, summary["formsignal_bridge_subscriptions_total{axis=value}"])
}

func TestRun_FormErrors(t *testing.T) {
	t.Run("compile", func(t *testing.T) {
		scenario, err := ParseScenario([]byte(`
name: broken
description: "Form does not compile"
form_source: 'form: {'
steps:
  - op: flush
assertions:
  - type: snapshot
    expect: { valid: true }
`))
		require.NoError(t, err)

		_, err = Run(context.Background(), scenario)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "compile form")
	})

	t.Run("unknown root", func(t *testing.T) {
		scenario := inlineScenario(t, `
name: bad_root
description: "Root path does not resolve"
root: nope
steps:
  - op: flush
assertions:
  - type: snapshot
    expect: { valid: true }
`)
		_, err := Run(context.Background(), scenario)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "root:")
	})
}

func TestRun_BoundSubtree(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: subtree
description: "Root binds a subtree and paths are relative to it"
form_source: 'form: nested: { group: { inner: { group: { x: { value: 1 } } } } }'
root: inner
watches:
  - name: x
    path: x
    read: value
steps:
  - op: set_value
    path: x
    value: 2
assertions:
  - type: snapshot
    expect: { value: { x: 2 } }
  - type: effect_runs
    watch: x
    count: 2
`))
	require.NoError(t, err)

	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestResult_AddError(t *testing.T) {
	result := NewResult("s")
	assert.True(t, result.Pass)

	result.AddError("boom")
	assert.False(t, result.Pass)
	assert.Equal(t, []string{"boom"}, result.Errors)
}

func TestTraceEvent_ObjectNullReading(t *testing.T) {
	obj := TraceEvent{Seq: 1, Watch: "w"}.Object()
	assert.Equal(t, ir.Null{}, obj["reading"])
	assert.Equal(t, ir.String("w"), obj["watch"])
}

func TestRun_WithEagerNotify(t *testing.T) {
	body := `
name: eager_override
description: "Eager mode re-runs readers even when the value is unchanged"
watches:
  - name: live_a
    path: a
    read: value
steps:
  - op: set_value
    path: a
    value: "A"
assertions:
  - type: snapshot
    path: a
    expect: { value: "A" }
`
	memoized := runInline(t, body)
	eager := runInline(t, body, WithEagerNotify())

	assert.Equal(t, 1, memoized.Runs["live_a"])
	assert.Equal(t, 2, eager.Runs["live_a"])
}
