package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/formsignal/internal/ir"
)

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidateCompiledForm(t *testing.T) {
	spec, err := CompileFormString(signupCUE, "signup")
	require.NoError(t, err)
	assert.Empty(t, Validate(spec))
	assert.Empty(t, Validate(*spec))
}

func TestValidateFormName(t *testing.T) {
	errs := Validate(ir.FormSpec{Name: "  ", Root: ir.ControlSpec{Kind: ir.KindLeaf}})
	require.Len(t, errs, 1)
	assert.Equal(t, ErrFormNameEmpty, errs[0].Code)
	assert.Equal(t, "name", errs[0].Field)
}

func TestValidateUnsupportedType(t *testing.T) {
	errs := Validate(42)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrUnsupportedIRType, errs[0].Code)
}

func TestValidateValidators(t *testing.T) {
	tests := []struct {
		name string
		spec ir.ControlSpec
		want []string
	}{
		{
			name: "unknown validator",
			spec: ir.ControlSpec{Validators: []ir.ValidatorSpec{{Kind: "email"}}},
			want: []string{ErrUnknownValidator},
		},
		{
			name: "wrong arg type",
			spec: ir.ControlSpec{Validators: []ir.ValidatorSpec{{Kind: "min", Arg: ir.String("3")}}},
			want: []string{ErrValidatorArg},
		},
		{
			name: "required with arg",
			spec: ir.ControlSpec{Validators: []ir.ValidatorSpec{{Kind: "required", Arg: ir.Bool(true)}}},
			want: []string{ErrValidatorArg},
		},
		{
			name: "bad pattern",
			spec: ir.ControlSpec{Validators: []ir.ValidatorSpec{{Kind: "pattern", Arg: ir.String("[")}}},
			want: []string{ErrInvalidPattern},
		},
		{
			name: "pattern on group",
			spec: ir.ControlSpec{
				Kind:       ir.KindGroup,
				Validators: []ir.ValidatorSpec{{Kind: "pattern", Arg: ir.String("x")}},
			},
			want: []string{ErrValidatorKind},
		},
		{
			name: "negative length",
			spec: ir.ControlSpec{Validators: []ir.ValidatorSpec{{Kind: "max_length", Arg: ir.Int(-1)}}},
			want: []string{ErrNegativeBound},
		},
		{
			name: "min above max",
			spec: ir.ControlSpec{Validators: []ir.ValidatorSpec{
				{Kind: "min", Arg: ir.Int(10)},
				{Kind: "max", Arg: ir.Int(1)},
			}},
			want: []string{ErrContradictoryRule},
		},
		{
			name: "all errors are collected",
			spec: ir.ControlSpec{Validators: []ir.ValidatorSpec{
				{Kind: "email"},
				{Kind: "min_length", Arg: ir.Null{}},
			}},
			want: []string{ErrUnknownValidator, ErrValidatorArg},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, codes(Validate(tt.spec)))
		})
	}
}

func TestValidateShape(t *testing.T) {
	leafWithItems := ir.ControlSpec{Kind: ir.KindLeaf, Items: []ir.ControlSpec{{}}}
	assert.Equal(t, []string{ErrShapeMismatch}, codes(Validate(leafWithItems)))

	missing := ir.ControlSpec{Kind: ir.KindGroup, Keys: []string{"a"}, Controls: map[string]ir.ControlSpec{}}
	assert.Equal(t, []string{ErrEmptyKey}, codes(Validate(missing)))

	badKind := ir.ControlSpec{Kind: ir.Kind(9)}
	errs := Validate(badKind)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrInvalidKind, errs[0].Code)
	assert.Equal(t, "root.kind", errs[0].Field)

	nested := ir.ControlSpec{
		Kind: ir.KindList,
		Items: []ir.ControlSpec{
			{Kind: ir.KindLeaf},
			{Kind: ir.KindLeaf, Validators: []ir.ValidatorSpec{{Kind: "nope"}}},
		},
	}
	errs = Validate(nested)
	require.Len(t, errs, 1)
	assert.Equal(t, "root.1.validators.nope", errs[0].Field)
}

func TestValidationErrorFormat(t *testing.T) {
	e := ValidationError{Field: "root", Message: "bad", Code: ErrShapeMismatch}
	assert.Equal(t, "[E103] root: bad", e.Error())
	e.Line = 4
	assert.Equal(t, "[E103] line 4: root: bad", e.Error())
}
