package control

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/roach88/formsignal/internal/ir"
)

// Validator inspects a control value and returns errors, or nil when the
// value is acceptable.
type Validator func(v ir.Value) ir.Errors

// Required fails on null, the empty string, and the empty list.
func Required() Validator {
	return func(v ir.Value) ir.Errors {
		if isEmpty(v) {
			return ir.Errors{"required": ir.Bool(true)}
		}
		return nil
	}
}

// MinLength fails when a string or list is shorter than n. Empty values
// pass; combine with Required to reject them.
func MinLength(n int) Validator {
	return func(v ir.Value) ir.Errors {
		l, ok := length(v)
		if !ok || isEmpty(v) || l >= n {
			return nil
		}
		return ir.Errors{"minlength": ir.Object{
			"required_length": ir.Int(n),
			"actual_length":   ir.Int(l),
		}}
	}
}

// MaxLength fails when a string or list is longer than n.
func MaxLength(n int) Validator {
	return func(v ir.Value) ir.Errors {
		l, ok := length(v)
		if !ok || l <= n {
			return nil
		}
		return ir.Errors{"maxlength": ir.Object{
			"required_length": ir.Int(n),
			"actual_length":   ir.Int(l),
		}}
	}
}

// Pattern fails when a non-empty string does not fully match expr.
func Pattern(expr string) (Validator, error) {
	re, err := regexp.Compile("^(?:" + expr + ")$")
	if err != nil {
		return nil, fmt.Errorf("pattern %q: %w", expr, err)
	}
	return func(v ir.Value) ir.Errors {
		s, ok := v.(ir.String)
		if !ok || s == "" || re.MatchString(string(s)) {
			return nil
		}
		return ir.Errors{"pattern": ir.Object{
			"required_pattern": ir.String(expr),
			"actual_value":     s,
		}}
	}, nil
}

// Min fails when an integer is below n.
func Min(n int64) Validator {
	return func(v ir.Value) ir.Errors {
		i, ok := v.(ir.Int)
		if !ok || int64(i) >= n {
			return nil
		}
		return ir.Errors{"min": ir.Object{"min": ir.Int(n), "actual": i}}
	}
}

// Max fails when an integer is above n.
func Max(n int64) Validator {
	return func(v ir.Value) ir.Errors {
		i, ok := v.(ir.Int)
		if !ok || int64(i) <= n {
			return nil
		}
		return ir.Errors{"max": ir.Object{"max": ir.Int(n), "actual": i}}
	}
}

func isEmpty(v ir.Value) bool {
	switch val := v.(type) {
	case nil, ir.Null:
		return true
	case ir.String:
		return val == ""
	case ir.List:
		return len(val) == 0
	}
	return false
}

func length(v ir.Value) (int, bool) {
	switch val := v.(type) {
	case ir.String:
		return utf8.RuneCountInString(string(val)), true
	case ir.List:
		return len(val), true
	}
	return 0, false
}

// FromSpec builds a built-in validator from its compiled form.
func FromSpec(spec ir.ValidatorSpec) (Validator, error) {
	switch spec.Kind {
	case "required":
		return Required(), nil
	case "min_length", "max_length", "min", "max":
		n, ok := spec.Arg.(ir.Int)
		if !ok {
			return nil, fmt.Errorf("validator %s needs an int argument, got %T", spec.Kind, spec.Arg)
		}
		switch spec.Kind {
		case "min_length":
			return MinLength(int(n)), nil
		case "max_length":
			return MaxLength(int(n)), nil
		case "min":
			return Min(int64(n)), nil
		}
		return Max(int64(n)), nil
	case "pattern":
		s, ok := spec.Arg.(ir.String)
		if !ok {
			return nil, fmt.Errorf("validator pattern needs a string argument, got %T", spec.Arg)
		}
		return Pattern(string(s))
	}
	return nil, fmt.Errorf("unknown validator %q", spec.Kind)
}
