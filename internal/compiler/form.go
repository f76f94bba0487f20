package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/formsignal/internal/ir"
)

// Control struct fields. A control sets exactly one of value, group, or
// list.
var controlFields = map[string]bool{
	"value":      true,
	"group":      true,
	"list":       true,
	"disabled":   true,
	"validators": true,
}

// CompileForm parses a CUE value into a FormSpec.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the form struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`form: signup: { group: { name: { value: "" } } }`)
//	spec, err := CompileForm(v.LookupPath(cue.ParsePath("form.signup")))
func CompileForm(v cue.Value) (*ir.FormSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if !v.Exists() {
		return nil, &CompileError{Field: "form", Message: "form not found"}
	}

	spec := &ir.FormSpec{}

	// Form name from the struct label (the path selector)
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		spec.Name = unquote(labels[len(labels)-1].String())
	}

	root, err := compileControl(v, "")
	if err != nil {
		return nil, err
	}
	spec.Root = root
	return spec, nil
}

// CompileFormString compiles a CUE source holding a single form: block and
// returns the form called name. An empty name is accepted when the source
// defines exactly one form.
func CompileFormString(src, name string) (*ir.FormSpec, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename("form.cue"))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	forms, err := CompileForms(v)
	if err != nil {
		return nil, err
	}
	return pick(forms, name)
}

// CompileForms compiles every field under the top-level form: struct of v,
// in declaration order. It fails on the first error.
func CompileForms(v cue.Value) ([]ir.FormSpec, error) {
	formsVal := v.LookupPath(cue.ParsePath("form"))
	if !formsVal.Exists() {
		return nil, &CompileError{Field: "form", Message: "no form block found", Pos: v.Pos()}
	}
	iter, err := formsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var forms []ir.FormSpec
	for iter.Next() {
		spec, err := CompileForm(iter.Value())
		if err != nil {
			return nil, err
		}
		forms = append(forms, *spec)
	}
	return forms, nil
}

func pick(forms []ir.FormSpec, name string) (*ir.FormSpec, error) {
	if name == "" {
		if len(forms) != 1 {
			return nil, &CompileError{
				Field:   "form",
				Message: fmt.Sprintf("found %d forms, name the one to use", len(forms)),
			}
		}
		return &forms[0], nil
	}
	for i := range forms {
		if forms[i].Name == name {
			return &forms[i], nil
		}
	}
	return nil, &CompileError{Field: "form", Message: fmt.Sprintf("form %q not found", name)}
}

// compileControl parses one control struct. path is the dotted location
// used in error fields.
func compileControl(v cue.Value, path string) (ir.ControlSpec, error) {
	var spec ir.ControlSpec
	if v.IncompleteKind() != cue.StructKind {
		return spec, &CompileError{
			Field:   fieldPath(path, ""),
			Message: "control must be a struct",
			Pos:     v.Pos(),
		}
	}

	iter, err := v.Fields()
	if err != nil {
		return spec, formatCUEError(err)
	}
	var shapes []string
	for iter.Next() {
		label := unquote(iter.Label())
		if !controlFields[label] {
			return spec, &CompileError{
				Field:   fieldPath(path, label),
				Message: "unknown control field",
				Pos:     iter.Value().Pos(),
			}
		}
		if label == "value" || label == "group" || label == "list" {
			shapes = append(shapes, label)
		}
	}
	if len(shapes) != 1 {
		return spec, &CompileError{
			Field:   fieldPath(path, ""),
			Message: fmt.Sprintf("control needs exactly one of value, group, list (found %d)", len(shapes)),
			Pos:     v.Pos(),
		}
	}

	switch shapes[0] {
	case "value":
		spec.Kind = ir.KindLeaf
		spec.Value, err = valueFromCUE(v.LookupPath(cue.ParsePath("value")), fieldPath(path, "value"))
		if err != nil {
			return spec, err
		}
	case "group":
		spec.Kind = ir.KindGroup
		spec.Controls = make(map[string]ir.ControlSpec)
		spec.Keys = []string{}
		groupIter, err := v.LookupPath(cue.ParsePath("group")).Fields()
		if err != nil {
			return spec, formatCUEError(err)
		}
		for groupIter.Next() {
			key := unquote(groupIter.Label())
			child, err := compileControl(groupIter.Value(), join(path, key))
			if err != nil {
				return spec, err
			}
			spec.Keys = append(spec.Keys, key)
			spec.Controls[key] = child
		}
	case "list":
		spec.Kind = ir.KindList
		spec.Items = []ir.ControlSpec{}
		listIter, err := v.LookupPath(cue.ParsePath("list")).List()
		if err != nil {
			return spec, formatCUEError(err)
		}
		for i := 0; listIter.Next(); i++ {
			item, err := compileControl(listIter.Value(), join(path, fmt.Sprint(i)))
			if err != nil {
				return spec, err
			}
			spec.Items = append(spec.Items, item)
		}
	}

	// Parse disabled (optional)
	if dv := v.LookupPath(cue.ParsePath("disabled")); dv.Exists() {
		disabled, err := dv.Bool()
		if err != nil {
			return spec, &CompileError{
				Field:   fieldPath(path, "disabled"),
				Message: "disabled must be a bool",
				Pos:     dv.Pos(),
			}
		}
		spec.Disabled = disabled
	}

	// Parse validators (optional)
	if vv := v.LookupPath(cue.ParsePath("validators")); vv.Exists() {
		spec.Validators, err = compileValidators(vv, fieldPath(path, "validators"))
		if err != nil {
			return spec, err
		}
	}
	return spec, nil
}

// compileValidators reads a validators struct in declaration order.
// required: false is dropped.
func compileValidators(v cue.Value, field string) ([]ir.ValidatorSpec, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, &CompileError{Field: field, Message: "validators must be a struct", Pos: v.Pos()}
	}

	var out []ir.ValidatorSpec
	for iter.Next() {
		kind := unquote(iter.Label())
		arg, err := valueFromCUE(iter.Value(), field+"."+kind)
		if err != nil {
			return nil, err
		}
		if kind == "required" {
			b, ok := arg.(ir.Bool)
			if !ok {
				return nil, &CompileError{
					Field:   field + "." + kind,
					Message: "required must be a bool",
					Pos:     iter.Value().Pos(),
				}
			}
			if !b {
				continue
			}
			arg = nil
		}
		out = append(out, ir.ValidatorSpec{Kind: kind, Arg: arg})
	}
	return out, nil
}

// valueFromCUE converts a concrete CUE value to an ir.Value.
// Floats are forbidden: every number in a form must be an int.
func valueFromCUE(v cue.Value, field string) (ir.Value, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if !v.IsConcrete() {
		return nil, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("value must be concrete, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}

	switch v.Kind() {
	case cue.NullKind:
		return ir.Null{}, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Bool(b), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Int(n), nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.String(s), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		list := ir.List{}
		for i := 0; iter.Next(); i++ {
			item, err := valueFromCUE(iter.Value(), fmt.Sprintf("%s.%d", field, i))
			if err != nil {
				return nil, err
			}
			list = append(list, item)
		}
		return list, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		obj := ir.Object{}
		for iter.Next() {
			key := unquote(iter.Label())
			item, err := valueFromCUE(iter.Value(), field+"."+key)
			if err != nil {
				return nil, err
			}
			obj[key] = item
		}
		return obj, nil
	case cue.FloatKind, cue.NumberKind:
		return nil, &CompileError{
			Field:   field,
			Message: "float values are forbidden, use int instead",
			Pos:     v.Pos(),
		}
	}
	return nil, &CompileError{
		Field:   field,
		Message: fmt.Sprintf("unsupported value kind: %v", v.Kind()),
		Pos:     v.Pos(),
	}
}

func join(path, seg string) string {
	if path == "" {
		return seg
	}
	return path + "." + seg
}

// fieldPath names a control field for errors, e.g. "address.zip.value".
func fieldPath(path, field string) string {
	switch {
	case path == "" && field == "":
		return "root"
	case path == "":
		return field
	case field == "":
		return path
	}
	return path + "." + field
}

// unquote strips the quotes CUE adds to labels that are not identifiers.
func unquote(label string) string {
	if len(label) >= 2 && strings.HasPrefix(label, `"`) && strings.HasSuffix(label, `"`) {
		return label[1 : len(label)-1]
	}
	return label
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
