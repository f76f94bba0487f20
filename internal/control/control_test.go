package control

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/formsignal/internal/ir"
)

// newProfile builds {name, address: {zip, street}, tags: [x]}.
func newProfile() *Control {
	return NewGroup([]Entry{
		E("name", NewLeaf(ir.String("ada"), WithValidators(Required()))),
		E("address", NewGroup([]Entry{
			E("zip", NewLeaf(ir.String("12345"))),
			E("street", NewLeaf(ir.String("Main"))),
		})),
		E("tags", NewList([]*Control{NewLeaf(ir.String("x"))})),
	})
}

type recorder struct {
	events []ir.EventKind
}

func (r *recorder) on(ev ir.Event) { r.events = append(r.events, ev.Kind) }

func TestCompositeValue(t *testing.T) {
	form := newProfile()

	assert.Equal(t, ir.KindGroup, form.Kind())
	assert.Equal(t, ir.Object{
		"name":    ir.String("ada"),
		"address": ir.Object{"zip": ir.String("12345"), "street": ir.String("Main")},
		"tags":    ir.List{ir.String("x")},
	}, form.Value())
	assert.Equal(t, ir.StatusValid, form.Status())
	assert.Equal(t, []string{"name", "address", "tags"}, form.Keys())
}

func TestSetValueBubblesEvents(t *testing.T) {
	form := newProfile()
	zip, err := form.Find("address.zip")
	require.NoError(t, err)

	var rootEvents, zipEvents recorder
	form.Subscribe(ir.EventAll, rootEvents.on)
	zip.Subscribe(ir.EventValue, zipEvents.on)

	require.NoError(t, zip.SetValue(ir.String("99999")))

	assert.Equal(t, []ir.EventKind{ir.EventValue}, zipEvents.events)
	assert.Equal(t, []ir.EventKind{ir.EventValue, ir.EventStatus}, rootEvents.events)
	assert.Equal(t, ir.String("99999"), form.Value().(ir.Object)["address"].(ir.Object)["zip"])
}

func TestEventsDoNotReachDescendants(t *testing.T) {
	form := newProfile()
	zip := form.Get("address").Get("zip")
	var zipEvents recorder
	zip.Subscribe(ir.EventAll, zipEvents.on)

	require.NoError(t, form.Get("name").SetValue(ir.String("grace")))
	assert.Empty(t, zipEvents.events)
}

func TestSetValueShapeChecks(t *testing.T) {
	form := newProfile()

	err := form.SetValue(ir.Object{"name": ir.String("x")})
	require.ErrorIs(t, err, ErrShape)

	err = form.Get("tags").SetValue(ir.List{})
	require.ErrorIs(t, err, ErrShape)

	err = form.Get("address").SetValue(ir.String("flat"))
	require.ErrorIs(t, err, ErrShape)

	assert.Equal(t, ir.String("ada"), form.Get("name").Value(), "failed SetValue must not mutate")
}

func TestPatch(t *testing.T) {
	form := newProfile()
	require.NoError(t, form.Patch(ir.Object{
		"address": ir.Object{"zip": ir.String("00000")},
		"unknown": ir.Int(1),
	}))

	assert.Equal(t, ir.String("00000"), form.Get("address").Get("zip").Value())
	assert.Equal(t, ir.String("Main"), form.Get("address").Get("street").Value())
}

func TestValidatorsDriveStatus(t *testing.T) {
	form := newProfile()
	name := form.Get("name")

	require.NoError(t, name.SetValue(ir.String("")))
	assert.Equal(t, ir.StatusInvalid, name.Status())
	assert.Equal(t, ir.Errors{"required": ir.Bool(true)}, name.Errors())
	assert.Equal(t, ir.StatusInvalid, form.Status())
	assert.Nil(t, form.Errors(), "aggregate status does not copy child errors")

	require.NoError(t, name.SetValue(ir.String("ok")))
	assert.Equal(t, ir.StatusValid, form.Status())
	assert.Nil(t, name.Errors())
}

func TestDisableExcludesFromValue(t *testing.T) {
	form := newProfile()
	street := form.Get("address").Get("street")

	street.Disable()
	assert.Equal(t, ir.StatusDisabled, street.Status())
	assert.Equal(t, ir.Object{"zip": ir.String("12345")}, form.Get("address").Value())
	assert.Equal(t, ir.Object{"zip": ir.String("12345"), "street": ir.String("Main")}, form.Get("address").RawValue())

	form.Get("address").Get("zip").Disable()
	assert.Equal(t, ir.StatusDisabled, form.Get("address").Status(), "all children disabled")
	assert.Equal(t, ir.Object{"zip": ir.String("12345"), "street": ir.String("Main")}, form.Get("address").Value())

	form.Get("address").Enable()
	assert.Equal(t, ir.StatusValid, street.Status())
}

func TestDisabledControlHasNoErrors(t *testing.T) {
	name := NewLeaf(ir.String(""), WithValidators(Required()))
	assert.Equal(t, ir.StatusInvalid, name.Status())

	name.Disable()
	assert.Equal(t, ir.StatusDisabled, name.Status())
	assert.Nil(t, name.Errors())
}

func TestEmptyGroupIsValid(t *testing.T) {
	g := NewGroup(nil)
	assert.Equal(t, ir.StatusValid, g.Status())
	assert.Equal(t, ir.Object{}, g.Value())
}

func TestTouchedAndDirtyAggregate(t *testing.T) {
	form := newProfile()
	zip := form.Get("address").Get("zip")
	var rootEvents recorder
	form.Subscribe(ir.EventTouched|ir.EventPristine, rootEvents.on)

	zip.MarkTouched()
	zip.MarkDirty()
	assert.True(t, form.Touched())
	assert.True(t, form.Get("address").Dirty())
	assert.False(t, form.Get("name").Dirty())
	assert.Equal(t, []ir.EventKind{ir.EventTouched, ir.EventPristine}, rootEvents.events)

	form.MarkPristine()
	form.MarkUntouched()
	assert.False(t, zip.Dirty())
	assert.False(t, form.Touched())
}

func TestReset(t *testing.T) {
	form := newProfile()
	name := form.Get("name")
	require.NoError(t, name.SetValue(ir.String("changed")))
	name.MarkDirty()
	name.MarkTouched()

	form.Reset()
	assert.Equal(t, ir.String("ada"), name.Value())
	assert.False(t, form.Dirty())
	assert.False(t, form.Touched())
}

func TestSetErrorsAndPending(t *testing.T) {
	form := newProfile()
	zip := form.Get("address").Get("zip")
	var statusEvents recorder
	form.Subscribe(ir.EventAll, statusEvents.on)

	zip.SetErrors(ir.Errors{"server": ir.String("unknown zip")})
	assert.Equal(t, ir.StatusInvalid, zip.Status())
	assert.Equal(t, ir.StatusInvalid, form.Status())
	assert.Equal(t, []ir.EventKind{ir.EventStatus}, statusEvents.events)

	zip.SetErrors(nil)
	zip.SetPending(true)
	assert.Equal(t, ir.StatusPending, form.Status())
	zip.SetPending(false)
	assert.Equal(t, ir.StatusValid, form.Status())
}

func TestAddAndRemoveControl(t *testing.T) {
	form := NewGroup([]Entry{E("a", NewLeaf(ir.String("A")))})
	var events recorder
	form.Subscribe(ir.EventAll, events.on)

	b := NewLeaf(ir.String("B"))
	require.NoError(t, form.AddControl("b", b))
	assert.Equal(t, ir.Object{"a": ir.String("A"), "b": ir.String("B")}, form.Value())
	assert.Same(t, form, b.Parent())
	assert.Equal(t, []ir.EventKind{ir.EventValue, ir.EventStatus}, events.events)

	require.ErrorIs(t, form.AddControl("b", NewLeaf(nil)), ErrDuplicateKey)
	require.ErrorIs(t, form.AddControl("c", b), ErrAttached)

	require.NoError(t, form.RemoveControl("b"))
	assert.Nil(t, b.Parent())
	assert.Equal(t, []string{"a"}, form.Keys())
	require.ErrorIs(t, form.RemoveControl("b"), ErrNotFound)

	require.ErrorIs(t, form.Get("a").AddControl("x", NewLeaf(nil)), ErrWrongKind)
}

func TestSetControlReplaces(t *testing.T) {
	form := NewGroup([]Entry{E("a", NewLeaf(ir.String("A")))})
	old := form.Get("a")

	require.NoError(t, form.SetControl("a", NewLeaf(ir.String("A2"))))
	assert.Nil(t, old.Parent())
	assert.Equal(t, ir.Object{"a": ir.String("A2")}, form.Value())
}

func TestListOperations(t *testing.T) {
	list := NewList(nil)
	require.NoError(t, list.Push(NewLeaf(ir.Int(1))))
	require.NoError(t, list.Push(NewLeaf(ir.Int(3))))
	require.NoError(t, list.Insert(1, NewLeaf(ir.Int(2))))
	assert.Equal(t, ir.List{ir.Int(1), ir.Int(2), ir.Int(3)}, list.Value())

	require.NoError(t, list.RemoveAt(0))
	assert.Equal(t, ir.List{ir.Int(2), ir.Int(3)}, list.Value())
	assert.Equal(t, 2, list.Len())

	require.ErrorIs(t, list.RemoveAt(5), ErrNotFound)
	require.ErrorIs(t, list.Insert(-1, NewLeaf(nil)), ErrNotFound)
	require.ErrorIs(t, list.AddControl("k", NewLeaf(nil)), ErrWrongKind)
}

func TestChildrenSnapshot(t *testing.T) {
	form := newProfile()

	ch := form.Children()
	assert.Equal(t, ir.KindGroup, ch.Kind)
	assert.Equal(t, 3, ch.Len())
	assert.Same(t, form.Get("name"), ch.ByKey["name"])

	tags := form.Get("tags").Children()
	assert.Equal(t, ir.KindList, tags.Kind)
	require.Len(t, tags.Nodes(), 1)

	assert.Zero(t, form.Get("name").Children().Len())
}

func TestFind(t *testing.T) {
	form := newProfile()

	c, err := form.Find("tags.0")
	require.NoError(t, err)
	assert.Equal(t, ir.String("x"), c.Value())

	self, err := form.Find("")
	require.NoError(t, err)
	assert.Same(t, form, self)

	_, err = form.Find("address.country")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = form.Find("tags.one")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUnsubscribe(t *testing.T) {
	leaf := NewLeaf(ir.Int(0))
	var events recorder
	sub := leaf.Subscribe(ir.EventValue, events.on)
	assert.Equal(t, 1, leaf.Subscribers())

	sub.Unsubscribe()
	sub.Unsubscribe()
	assert.True(t, sub.Closed())
	assert.Zero(t, leaf.Subscribers())

	require.NoError(t, leaf.SetValue(ir.Int(1)))
	assert.Empty(t, events.events)
}

func TestBuildFromSpec(t *testing.T) {
	spec := ir.ControlSpec{
		Kind: ir.KindGroup,
		Keys: []string{"email", "age", "emails"},
		Controls: map[string]ir.ControlSpec{
			"email": {Kind: ir.KindLeaf, Value: ir.String("a"), Validators: []ir.ValidatorSpec{
				{Kind: "pattern", Arg: ir.String(`[^@]+@[^@]+`)},
			}},
			"age": {Kind: ir.KindLeaf, Value: ir.Int(10), Validators: []ir.ValidatorSpec{
				{Kind: "min", Arg: ir.Int(18)},
			}},
			"emails": {Kind: ir.KindList, Disabled: true, Items: []ir.ControlSpec{{Kind: ir.KindLeaf}}},
		},
	}

	form, err := Build(spec)
	require.NoError(t, err)
	assert.True(t, form.Get("email").Errors().Has("pattern"))
	assert.Equal(t, ir.Errors{"min": ir.Object{"min": ir.Int(18), "actual": ir.Int(10)}}, form.Get("age").Errors())
	assert.Equal(t, ir.StatusDisabled, form.Get("emails").Status())
	assert.Equal(t, ir.StatusDisabled, form.Get("emails").At(0).Status())

	_, err = Build(ir.ControlSpec{Validators: []ir.ValidatorSpec{{Kind: "nope"}}})
	require.Error(t, err)
}
