package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/roach88/formsignal/internal/bridge"
	"github.com/roach88/formsignal/internal/compiler"
	"github.com/roach88/formsignal/internal/control"
	"github.com/roach88/formsignal/internal/ir"
	"github.com/roach88/formsignal/internal/metrics"
	"github.com/roach88/formsignal/internal/reactive"
	"github.com/roach88/formsignal/internal/store"
	"github.com/roach88/formsignal/internal/testutil"
)

// Option configures Run.
type Option func(*runConfig)

type runConfig struct {
	store          *store.Store
	logger         *slog.Logger
	metrics        *metrics.Bridge
	sessions       store.SessionIDGenerator
	maxFlushPasses int
	eagerNotify    bool
}

// WithStore records the session into st instead of a throwaway in-memory
// database.
func WithStore(st *store.Store) Option {
	return func(c *runConfig) {
		c.store = st
	}
}

// WithLogger sets the logger. Logs are discarded by default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *runConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records bridge and effect metrics.
func WithMetrics(m *metrics.Bridge) Option {
	return func(c *runConfig) {
		c.metrics = m
	}
}

// WithSessionIDs overrides the scenario's fixed session id.
func WithSessionIDs(gen store.SessionIDGenerator) Option {
	return func(c *runConfig) {
		c.sessions = gen
	}
}

// WithMaxFlushPasses bounds effect re-execution per step.
func WithMaxFlushPasses(n int) Option {
	return func(c *runConfig) {
		c.maxFlushPasses = n
	}
}

// WithEagerNotify binds every scenario in eager mode, whatever the
// scenario file says.
func WithEagerNotify() Option {
	return func(c *runConfig) {
		c.eagerNotify = true
	}
}

// Harness is the scenario execution engine.
// It drives one reactive runtime from a single goroutine, with a
// deterministic clock and session id.
type Harness struct {
	scenario *Scenario
	store    *store.Store
	clock    *testutil.DeterministicClock
	logger   *slog.Logger
	session  string

	rt     *reactive.Runtime
	scope  *reactive.Scope
	form   *control.Control
	bound  *control.Control // nil while rebound to nothing
	source *reactive.Signal[ir.Node]
	deep   *bridge.Deep

	watches    map[string]*watch
	remembered map[string]remembered

	step    int
	pending []ir.Observation
	result  *Result
}

type watch struct {
	def  Watch
	runs int
}

type remembered struct {
	bridge *bridge.Deep
	node   ir.Node
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Compile the form and build the control tree
//  2. Bind a deep bridge and install the watch effects
//  3. Apply each step, flushing effects after it, then check its expects
//  4. Evaluate the final assertions
//
// Every watch run is recorded as an observation of one session. Without
// WithStore the session goes to a fresh in-memory database.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	st := cfg.store
	if st == nil {
		mem, err := store.Open(store.MemoryPath, store.WithLogger(cfg.logger))
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
		defer mem.Close()
		st = mem
	}

	spec, err := LoadForm(scenario)
	if err != nil {
		return nil, err
	}
	form, err := control.Build(spec.Root)
	if err != nil {
		return nil, fmt.Errorf("build form %s: %w", spec.Name, err)
	}
	bound, err := form.Find(scenario.Root)
	if err != nil {
		return nil, fmt.Errorf("root: %w", err)
	}
	formHash, err := ir.FormHash(spec.Root)
	if err != nil {
		return nil, err
	}

	sessions := cfg.sessions
	if sessions == nil {
		sessions = testutil.NewFixedSessionGenerator(scenario.Session)
	}
	h := &Harness{
		scenario:   scenario,
		store:      st,
		clock:      testutil.NewDeterministicClock(),
		logger:     cfg.logger,
		session:    sessions.Generate(),
		form:       form,
		bound:      bound,
		watches:    make(map[string]*watch, len(scenario.Watches)),
		remembered: make(map[string]remembered),
	}
	h.result = NewResult(h.session)
	h.result.Scenario = scenario.Name

	if err := st.WriteSession(ctx, ir.Session{
		ID:            h.session,
		Scenario:      scenario.Name,
		Form:          spec.Name,
		FormHash:      formHash,
		EngineVersion: ir.EngineVersion,
	}); err != nil {
		return nil, err
	}

	rtOpts := []reactive.RuntimeOption{reactive.WithLogger(cfg.logger)}
	if cfg.metrics != nil {
		rtOpts = append(rtOpts, reactive.WithEffectHook(cfg.metrics.EffectRan))
	}
	if cfg.maxFlushPasses > 0 {
		rtOpts = append(rtOpts, reactive.WithMaxFlushPasses(cfg.maxFlushPasses))
	}
	h.rt = reactive.NewRuntime(rtOpts...)
	h.scope = h.rt.NewScope()
	defer h.scope.Dispose()

	h.source = reactive.NewSignal[ir.Node](h.rt, bound)
	h.deep, err = bridge.BindDeep(h.source.ReadOnly(),
		bridge.WithScope(h.scope),
		bridge.WithEagerNotify(scenario.EagerNotify || cfg.eagerNotify),
		bridge.WithLogger(cfg.logger),
		bridge.WithMetrics(cfg.metrics),
	)
	if err != nil {
		return nil, fmt.Errorf("bind: %w", err)
	}

	for _, w := range scenario.Watches {
		h.install(w)
	}
	if err := h.commit(ctx); err != nil {
		return nil, err
	}

	completed := true
	for i, step := range scenario.Steps {
		h.step = i + 1
		err := h.runStep(step)
		if cerr := h.commit(ctx); cerr != nil {
			return nil, cerr
		}

		if !h.checkStepError(step, err) {
			completed = false
			break
		}
		for _, msg := range h.evaluate(step.Expect) {
			h.result.AddError(fmt.Sprintf("step %d: %s", h.step, msg))
		}

		h.logger.Debug("step applied",
			"step", h.step,
			"op", step.Op,
			"path", step.Path,
			"observations", len(h.result.Trace),
		)
	}

	if completed {
		for _, msg := range h.evaluate(scenario.Assertions) {
			h.result.AddError(msg)
		}
	}

	if err := st.FinishSession(ctx, h.session, h.clock.Current()); err != nil {
		return nil, err
	}

	h.logger.Info("scenario completed",
		"scenario", scenario.Name,
		"session", h.session,
		"pass", h.result.Pass,
		"observations", len(h.result.Trace),
	)
	return h.result, nil
}

// LoadForm compiles the scenario's form.
func LoadForm(scenario *Scenario) (*ir.FormSpec, error) {
	src := scenario.FormSource
	if scenario.Form != "" {
		data, err := os.ReadFile(scenario.Form)
		if err != nil {
			return nil, fmt.Errorf("failed to read form file: %w", err)
		}
		src = string(data)
	}

	spec, err := compiler.CompileFormString(src, scenario.FormName)
	if err != nil {
		return nil, fmt.Errorf("compile form: %w", err)
	}
	if errs := compiler.Validate(spec); len(errs) > 0 {
		return nil, fmt.Errorf("form %s: %w", spec.Name, errs[0])
	}
	return spec, nil
}

// checkStepError records a step failure. It reports whether execution
// should continue.
func (h *Harness) checkStepError(step Step, err error) bool {
	switch {
	case step.Error == "" && err == nil:
		return true
	case step.Error == "":
		h.result.AddError(fmt.Sprintf("step %d (%s): %v", h.step, step.Op, err))
		return false
	case err == nil:
		h.result.AddError(fmt.Sprintf("step %d (%s): expected error containing %q, got success",
			h.step, step.Op, step.Error))
	case !strings.Contains(err.Error(), step.Error):
		h.result.AddError(fmt.Sprintf("step %d (%s): expected error containing %q, got %q",
			h.step, step.Op, step.Error, err.Error()))
	}
	return true
}

// runStep applies a step and flushes. A batch applies all of its steps
// before the single flush.
func (h *Harness) runStep(step Step) error {
	var opErr error
	flushErr := h.rt.Batch(func() {
		if step.Op != OpBatch {
			opErr = h.apply(step)
			return
		}
		for j, s := range step.Steps {
			if err := h.apply(s); err != nil {
				opErr = fmt.Errorf("steps[%d] (%s): %w", j, s.Op, err)
				return
			}
		}
	})
	if opErr != nil {
		return opErr
	}
	return flushErr
}

func (h *Harness) apply(step Step) error {
	switch step.Op {
	case OpFlush:
		return nil
	case OpRebind:
		return h.rebind(step)
	case OpRemember:
		return h.remember(step)
	}

	target, err := h.target(step.Path)
	if err != nil {
		return err
	}

	switch step.Op {
	case OpSetValue, OpPatchValue:
		v, err := valueFromYAML(&step.Value)
		if err != nil {
			return fmt.Errorf("value: %w", err)
		}
		if step.Op == OpPatchValue {
			return target.Patch(v)
		}
		return target.SetValue(v)
	case OpReset:
		target.Reset()
	case OpMarkTouched:
		target.MarkTouched()
	case OpMarkUntouched:
		target.MarkUntouched()
	case OpMarkDirty:
		target.MarkDirty()
	case OpMarkPristine:
		target.MarkPristine()
	case OpDisable:
		target.Disable()
	case OpEnable:
		target.Enable()
	case OpSetPending:
		target.SetPending(step.Pending)
	case OpSetErrors:
		errs, err := errorsFromAny(step.Errors)
		if err != nil {
			return err
		}
		target.SetErrors(errs)
	case OpAddControl, OpSetControl:
		child, err := h.build(step.Control)
		if err != nil {
			return err
		}
		if step.Op == OpSetControl {
			return target.SetControl(step.Key, child)
		}
		return target.AddControl(step.Key, child)
	case OpRemoveControl:
		return target.RemoveControl(step.Key)
	case OpPush:
		child, err := h.build(step.Control)
		if err != nil {
			return err
		}
		return target.Push(child)
	case OpInsert:
		child, err := h.build(step.Control)
		if err != nil {
			return err
		}
		return target.Insert(*step.Index, child)
	case OpRemoveAt:
		return target.RemoveAt(*step.Index)
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
	return nil
}

func (h *Harness) target(path string) (*control.Control, error) {
	if h.bound == nil {
		return nil, fmt.Errorf("no control is bound")
	}
	return h.bound.Find(path)
}

func (h *Harness) build(def *ControlDef) (*control.Control, error) {
	if errs := compiler.Validate(def.Spec); len(errs) > 0 {
		return nil, errs[0]
	}
	return control.Build(def.Spec)
}

// rebind points the bridge source at a new control, at nothing, or at
// the form control at the step path. The bridge follows on the next
// flush.
func (h *Harness) rebind(step Step) error {
	switch {
	case step.Absent:
		h.bound = nil
		h.source.Set(nil)
		return nil
	case step.Control != nil:
		c, err := h.build(step.Control)
		if err != nil {
			return err
		}
		h.bound = c
	default:
		c, err := h.form.Find(step.Path)
		if err != nil {
			return err
		}
		h.bound = c
	}
	h.source.Set(h.bound)
	return nil
}

// remember captures the bridge and control at a path for later identity
// and subscription assertions.
func (h *Harness) remember(step Step) error {
	r := remembered{bridge: h.deep.Path(step.Path)}
	if h.bound != nil {
		if c, err := h.bound.Find(step.Path); err == nil {
			r.node = c
		}
	}
	if r.bridge == nil && r.node == nil {
		return fmt.Errorf("remember %s: nothing at path %q", step.As, step.Path)
	}
	h.remembered[step.As] = r
	return nil
}

func (h *Harness) install(def Watch) {
	w := &watch{def: def}
	h.watches[def.Name] = w
	h.scope.Effect(func(func(func())) {
		w.runs++
		h.record(def, w.runs, h.read(def))
	})
}

// read is the body of a watch effect. What it reads becomes the effect's
// dependencies.
func (h *Harness) read(def Watch) ir.Value {
	target := h.locate(def)
	if target == nil {
		return ir.Null{}
	}

	switch def.Read {
	case ReadValue:
		return orNull(target.Value())
	case ReadRawValue:
		return orNull(target.RawValue())
	case ReadStatus:
		return ir.String(target.Status().String())
	case ReadTouched:
		return ir.Bool(target.Touched())
	case ReadDirty:
		return ir.Bool(target.Dirty())
	case ReadErrors:
		return target.Errors().Object()
	case ReadChildren:
		return childrenReading(target.Children())
	}
	return target.Snapshot().Object()
}

// locate resolves the watch target. Live lookups never track the
// children lists they pass through; snapshot lookups track each one.
func (h *Harness) locate(def Watch) *bridge.Deep {
	if def.Mode == ModeLive || def.Path == "" {
		return h.deep.Path(def.Path)
	}

	cur := h.deep
	for _, seg := range strings.Split(def.Path, ".") {
		view := cur.Children()
		if view.Kind() == ir.KindList {
			i, err := strconv.Atoi(seg)
			if err != nil {
				return nil
			}
			cur = view.At(i)
		} else {
			cur = view.Get(seg)
		}
		if cur == nil {
			return nil
		}
	}
	return cur
}

func (h *Harness) record(def Watch, run int, reading ir.Value) {
	seq := h.clock.Next()
	h.result.Trace = append(h.result.Trace, TraceEvent{
		Seq:     seq,
		Step:    h.step,
		Watch:   def.Name,
		Path:    def.Path,
		Run:     run,
		Reading: reading,
	})
	h.result.Runs[def.Name] = run
	h.pending = append(h.pending, ir.Observation{
		SessionID: h.session,
		Seq:       seq,
		Step:      h.step,
		Watch:     def.Name,
		Path:      def.Path,
		Run:       run,
		Reading:   reading,
	})
}

// commit writes the observations recorded since the last commit.
func (h *Harness) commit(ctx context.Context) error {
	if len(h.pending) == 0 {
		return nil
	}
	if err := h.store.WriteObservations(ctx, h.pending); err != nil {
		return fmt.Errorf("step %d: %w", h.step, err)
	}
	h.pending = nil
	return nil
}

// childrenReading renders a children list: keys for groups, the length
// for lists, null when there are none.
func childrenReading(view *bridge.ChildrenView) ir.Value {
	if view == nil {
		return ir.Null{}
	}
	if view.Kind() == ir.KindList {
		return ir.Int(view.Len())
	}
	keys := make(ir.List, 0, view.Len())
	for _, k := range view.Keys() {
		keys = append(keys, ir.String(k))
	}
	return keys
}

func errorsFromAny(m map[string]any) (ir.Errors, error) {
	if len(m) == 0 {
		return nil, nil
	}
	errs := make(ir.Errors, len(m))
	for k, raw := range m {
		v, err := ir.FromAny(raw)
		if err != nil {
			return nil, fmt.Errorf("errors.%s: %w", k, err)
		}
		errs[k] = v
	}
	return errs, nil
}

func orNull(v ir.Value) ir.Value {
	if v == nil {
		return ir.Null{}
	}
	return v
}
