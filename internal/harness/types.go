package harness

import (
	"github.com/roach88/formsignal/internal/ir"
)

// TraceEvent is one recorded watch run.
type TraceEvent struct {
	Seq     int64    `json:"seq"`
	Step    int      `json:"step"` // 0 for the initial run of each watch
	Watch   string   `json:"watch"`
	Path    string   `json:"path"`
	Run     int      `json:"run"`
	Reading ir.Value `json:"reading"`
}

// Object renders the event for canonical serialization.
func (e TraceEvent) Object() ir.Object {
	reading := e.Reading
	if reading == nil {
		reading = ir.Null{}
	}
	return ir.Object{
		"seq":     ir.Int(e.Seq),
		"step":    ir.Int(e.Step),
		"watch":   ir.String(e.Watch),
		"path":    ir.String(e.Path),
		"run":     ir.Int(e.Run),
		"reading": reading,
	}
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every step and assertion succeeded.
	Pass bool `json:"pass"`

	// Scenario is the name of the scenario that produced the result.
	Scenario string `json:"scenario,omitempty"`

	// Session is the id the trace was recorded under.
	Session string `json:"session"`

	// Trace contains all watch runs in order.
	Trace []TraceEvent `json:"trace"`

	// Runs is the final run count per watch.
	Runs map[string]int `json:"runs"`

	// Errors contains failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult(session string) *Result {
	return &Result{
		Pass:    true,
		Session: session,
		Trace:   []TraceEvent{},
		Runs:    make(map[string]int),
		Errors:  []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// WatchTrace returns the events recorded for one watch.
func (r *Result) WatchTrace(watch string) []TraceEvent {
	var out []TraceEvent
	for _, ev := range r.Trace {
		if ev.Watch == watch {
			out = append(out, ev)
		}
	}
	return out
}
