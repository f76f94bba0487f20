package compiler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/formsignal/internal/ir"
)

// Validation error codes (E100-E199)
const (
	// General validation errors (E100)
	ErrUnsupportedIRType = "E100" // unsupported IR type for validation

	// FormSpec errors (E101-E109)
	ErrFormNameEmpty    = "E101" // form name is required
	ErrInvalidKind      = "E102" // unknown control kind
	ErrShapeMismatch    = "E103" // fields do not match the kind
	ErrUnknownValidator = "E104" // validator name not built in
	ErrValidatorArg     = "E105" // validator argument has the wrong type
	ErrInvalidPattern   = "E106" // pattern does not compile
	ErrValidatorKind    = "E107" // validator does not apply to the control kind
	ErrEmptyKey         = "E108" // group key is empty or missing

	// Bound errors (E110-E119)
	ErrNegativeBound     = "E110" // length bound below zero
	ErrContradictoryRule = "E111" // min above max
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate validates compiled IR against schema rules.
// Returns all errors found (does not fail-fast).
// Supports FormSpec and ControlSpec.
func Validate(v any) []ValidationError {
	switch spec := v.(type) {
	case *ir.FormSpec:
		return validateFormSpec(spec)
	case ir.FormSpec:
		return validateFormSpec(&spec)
	case ir.ControlSpec:
		return validateControl(spec, "root")
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported IR type: %T", v),
			Code:    ErrUnsupportedIRType,
		}}
	}
}

func validateFormSpec(spec *ir.FormSpec) []ValidationError {
	var errs []ValidationError

	// E101: name is required
	if strings.TrimSpace(spec.Name) == "" {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: "form name is required and must be non-empty",
			Code:    ErrFormNameEmpty,
		})
	}

	return append(errs, validateControl(spec.Root, "root")...)
}

func validateControl(c ir.ControlSpec, path string) []ValidationError {
	var errs []ValidationError

	switch c.Kind {
	case ir.KindLeaf:
		if len(c.Keys) > 0 || len(c.Controls) > 0 || len(c.Items) > 0 {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: "leaf must not have children",
				Code:    ErrShapeMismatch,
			})
		}
	case ir.KindGroup:
		if len(c.Items) > 0 || c.Value != nil {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: "group must only have keyed controls",
				Code:    ErrShapeMismatch,
			})
		}
		seen := make(map[string]bool, len(c.Keys))
		found := 0
		for _, k := range c.Keys {
			if strings.TrimSpace(k) == "" {
				errs = append(errs, ValidationError{
					Field:   path,
					Message: "group key must be non-empty",
					Code:    ErrEmptyKey,
				})
				continue
			}
			if seen[k] {
				errs = append(errs, ValidationError{
					Field:   path + "." + k,
					Message: fmt.Sprintf("duplicate key %q", k),
					Code:    ErrShapeMismatch,
				})
				continue
			}
			seen[k] = true
			child, ok := c.Controls[k]
			if !ok {
				errs = append(errs, ValidationError{
					Field:   path + "." + k,
					Message: fmt.Sprintf("key %q has no control", k),
					Code:    ErrEmptyKey,
				})
				continue
			}
			found++
			errs = append(errs, validateControl(child, path+"."+k)...)
		}
		if len(c.Controls) != found {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: "controls and keys disagree",
				Code:    ErrShapeMismatch,
			})
		}
	case ir.KindList:
		if len(c.Keys) > 0 || len(c.Controls) > 0 || c.Value != nil {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: "list must only have items",
				Code:    ErrShapeMismatch,
			})
		}
		for i, item := range c.Items {
			errs = append(errs, validateControl(item, fmt.Sprintf("%s.%d", path, i))...)
		}
	default:
		errs = append(errs, ValidationError{
			Field:   path + ".kind",
			Message: fmt.Sprintf("invalid kind %q, must be \"leaf\", \"group\", or \"list\"", c.Kind.String()),
			Code:    ErrInvalidKind,
		})
	}

	return append(errs, validateValidators(c, path+".validators")...)
}

// validatorKinds lists which control kinds each built-in validator
// applies to.
var validatorKinds = map[string][]ir.Kind{
	"required":   {ir.KindLeaf, ir.KindGroup, ir.KindList},
	"min_length": {ir.KindLeaf, ir.KindList},
	"max_length": {ir.KindLeaf, ir.KindList},
	"pattern":    {ir.KindLeaf},
	"min":        {ir.KindLeaf},
	"max":        {ir.KindLeaf},
}

func validateValidators(c ir.ControlSpec, path string) []ValidationError {
	var errs []ValidationError
	bounds := make(map[string]int64)

	for _, v := range c.Validators {
		field := path + "." + v.Kind
		kinds, ok := validatorKinds[v.Kind]
		if !ok {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("unknown validator %q", v.Kind),
				Code:    ErrUnknownValidator,
			})
			continue
		}
		if !containsKind(kinds, c.Kind) {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("validator %q does not apply to a %s", v.Kind, c.Kind),
				Code:    ErrValidatorKind,
			})
		}

		switch v.Kind {
		case "required":
			if v.Arg != nil {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: "required takes no argument",
					Code:    ErrValidatorArg,
				})
			}
		case "min_length", "max_length", "min", "max":
			n, ok := v.Arg.(ir.Int)
			if !ok {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: fmt.Sprintf("%s needs an int argument, got %T", v.Kind, v.Arg),
					Code:    ErrValidatorArg,
				})
				continue
			}
			if (v.Kind == "min_length" || v.Kind == "max_length") && n < 0 {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: fmt.Sprintf("%s must not be negative", v.Kind),
					Code:    ErrNegativeBound,
				})
			}
			bounds[v.Kind] = int64(n)
		case "pattern":
			s, ok := v.Arg.(ir.String)
			if !ok {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: fmt.Sprintf("pattern needs a string argument, got %T", v.Arg),
					Code:    ErrValidatorArg,
				})
				continue
			}
			if _, err := regexp.Compile(string(s)); err != nil {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: fmt.Sprintf("invalid pattern: %v", err),
					Code:    ErrInvalidPattern,
				})
			}
		}
	}

	for _, pair := range [][2]string{{"min_length", "max_length"}, {"min", "max"}} {
		lo, hasLo := bounds[pair[0]]
		hi, hasHi := bounds[pair[1]]
		if hasLo && hasHi && lo > hi {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: fmt.Sprintf("%s %d is above %s %d", pair[0], lo, pair[1], hi),
				Code:    ErrContradictoryRule,
			})
		}
	}
	return errs
}

func containsKind(kinds []ir.Kind, k ir.Kind) bool {
	for _, kind := range kinds {
		if kind == k {
			return true
		}
	}
	return false
}
