package harness

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/formsignal/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Path     string
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s at %s\n", e.Type, displayPath(e.Path))
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

func displayPath(path string) string {
	if path == "" {
		return "root"
	}
	return path
}

// evaluate runs assertions against the current bridge state.
// Returns a message per failed assertion.
func (h *Harness) evaluate(assertions []Assertion) []string {
	var errors []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertSnapshot:
			err = h.assertSnapshot(a)
		case AssertEffectRuns:
			err = h.assertEffectRuns(a)
		case AssertChildren:
			err = h.assertChildren(a)
		case AssertSameBridge, AssertFreshBridge:
			err = h.assertBridge(a)
		case AssertSubscribers:
			err = h.assertSubscribers(a)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}
		if err != nil {
			errors = append(errors, err.Error())
		}
	}
	return errors
}

// assertSnapshot compares the listed snapshot fields of the bridge at
// the path. Fields not listed are ignored.
func (h *Harness) assertSnapshot(a Assertion) error {
	target := h.deep.Path(a.Path)
	if target == nil {
		return &AssertionError{Type: a.Type, Path: a.Path, Expected: "a bridge", Actual: "no such child"}
	}
	got := target.Snapshot().Object()

	fields := make([]string, 0, len(a.Expect))
	for k := range a.Expect {
		fields = append(fields, k)
	}
	sort.Strings(fields)

	for _, field := range fields {
		want, err := ir.FromAny(a.Expect[field])
		if err != nil {
			return fmt.Errorf("snapshot at %s: expect.%s: %w", displayPath(a.Path), field, err)
		}
		actual, ok := got[field]
		if !ok {
			return &AssertionError{
				Type:     a.Type,
				Path:     a.Path,
				Expected: fmt.Sprintf("field %s", field),
				Actual:   "no such snapshot field",
			}
		}
		if !ir.Equal(want, actual) {
			return &AssertionError{
				Type:     a.Type,
				Path:     a.Path,
				Expected: fmt.Sprintf("%s = %s", field, render(want)),
				Actual:   fmt.Sprintf("%s = %s", field, render(actual)),
			}
		}
	}
	return nil
}

func (h *Harness) assertEffectRuns(a Assertion) error {
	w := h.watches[a.Watch]
	if w == nil {
		return fmt.Errorf("effect_runs: unknown watch %q", a.Watch)
	}
	if w.runs != *a.Count {
		return &AssertionError{
			Type:     a.Type,
			Path:     w.def.Path,
			Expected: fmt.Sprintf("%d runs of %s", *a.Count, a.Watch),
			Actual:   fmt.Sprintf("%d runs", w.runs),
		}
	}
	return nil
}

func (h *Harness) assertChildren(a Assertion) error {
	view := h.deep.Path(a.Path).Children()
	if a.Absent {
		if view != nil {
			return &AssertionError{
				Type:     a.Type,
				Path:     a.Path,
				Expected: "no children",
				Actual:   fmt.Sprintf("%d %s children", view.Len(), view.Kind()),
			}
		}
		return nil
	}
	if view == nil {
		return &AssertionError{Type: a.Type, Path: a.Path, Expected: "children", Actual: "none"}
	}

	if a.Keys != nil && !slices.Equal(view.Keys(), a.Keys) {
		return &AssertionError{
			Type:     a.Type,
			Path:     a.Path,
			Expected: fmt.Sprintf("keys %v", a.Keys),
			Actual:   fmt.Sprintf("keys %v", view.Keys()),
		}
	}
	if a.Count != nil && view.Len() != *a.Count {
		return &AssertionError{
			Type:     a.Type,
			Path:     a.Path,
			Expected: fmt.Sprintf("%d children", *a.Count),
			Actual:   fmt.Sprintf("%d children", view.Len()),
		}
	}
	return nil
}

func (h *Harness) assertBridge(a Assertion) error {
	r, ok := h.remembered[a.As]
	if !ok || r.bridge == nil {
		return fmt.Errorf("%s: no bridge remembered as %q", a.Type, a.As)
	}
	current := h.deep.Path(a.Path)

	if a.Type == AssertSameBridge && current != r.bridge {
		return &AssertionError{
			Type:     a.Type,
			Path:     a.Path,
			Expected: fmt.Sprintf("the bridge remembered as %s", a.As),
			Actual:   describeBridge(current != nil),
		}
	}
	if a.Type == AssertFreshBridge && (current == nil || current == r.bridge) {
		return &AssertionError{
			Type:     a.Type,
			Path:     a.Path,
			Expected: fmt.Sprintf("a bridge other than %s", a.As),
			Actual:   describeBridge(current != nil) + " " + a.As,
		}
	}
	return nil
}

func describeBridge(exists bool) string {
	if exists {
		return "another bridge"
	}
	return "no bridge"
}

// counted is implemented by nodes that report their subscriber count,
// such as *control.Control.
type counted interface {
	Subscribers() int
}

func (h *Harness) assertSubscribers(a Assertion) error {
	var node ir.Node
	if a.As != "" {
		r, ok := h.remembered[a.As]
		if !ok || r.node == nil {
			return fmt.Errorf("subscribers: no control remembered as %q", a.As)
		}
		node = r.node
	} else {
		c, err := h.target(a.Path)
		if err != nil {
			return fmt.Errorf("subscribers: %w", err)
		}
		node = c
	}

	n, ok := node.(counted)
	if !ok {
		return fmt.Errorf("subscribers: %T does not count subscriptions", node)
	}
	if n.Subscribers() != *a.Count {
		return &AssertionError{
			Type:     a.Type,
			Path:     a.Path,
			Expected: fmt.Sprintf("%d subscriptions", *a.Count),
			Actual:   fmt.Sprintf("%d subscriptions", n.Subscribers()),
		}
	}
	return nil
}

func render(v ir.Value) string {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
