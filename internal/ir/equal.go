package ir

// Equal reports whether two values are structurally equal.
// A nil interface and Null are equal. Object key order never matters.
func Equal(a, b Value) bool {
	if IsNull(a) || IsNull(b) {
		return IsNull(a) && IsNull(b)
	}

	switch av := a.(type) {
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Int:
		bv, ok := b.(Int)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case List:
		bv, ok := b.(List)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Object:
		bv, ok := b.(Object)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, ae := range av {
			be, present := bv[k]
			if !present || !Equal(ae, be) {
				return false
			}
		}
		return true
	}
	return false
}

// Errors is the validation-error map carried by a control.
// A nil map means the control has no errors.
type Errors map[string]Value

// Has reports whether the error key is present.
func (e Errors) Has(key string) bool {
	_, ok := e[key]
	return ok
}

// Object returns the errors as an Object, or Null when empty.
func (e Errors) Object() Value {
	if len(e) == 0 {
		return Null{}
	}
	obj := make(Object, len(e))
	for k, v := range e {
		obj[k] = v
	}
	return obj
}

// Merge returns a new map holding the entries of e and other.
// Keys in other win. Returns nil if both are empty.
func (e Errors) Merge(other Errors) Errors {
	if len(e) == 0 && len(other) == 0 {
		return nil
	}
	out := make(Errors, len(e)+len(other))
	for k, v := range e {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// ErrorsEqual reports whether two error maps hold the same keys and values.
// Nil and empty maps are equal.
func ErrorsEqual(a, b Errors) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !Equal(av, bv) {
			return false
		}
	}
	return true
}
