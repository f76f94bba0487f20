package ir

// FormSpec is a compiled form definition: a named root control tree.
type FormSpec struct {
	Name string      `json:"name"`
	Root ControlSpec `json:"root"`
}

// ControlSpec describes one control and, for composites, its children.
// Exactly one of Value (leaf), Controls (group), or Items (list) is
// meaningful, selected by Kind.
type ControlSpec struct {
	Kind       Kind            `json:"kind"`
	Value      Value           `json:"value,omitempty"`
	Disabled   bool            `json:"disabled,omitempty"`
	Validators []ValidatorSpec `json:"validators,omitempty"`

	// Keys preserves declaration order of Controls.
	Keys     []string               `json:"keys,omitempty"`
	Controls map[string]ControlSpec `json:"controls,omitempty"`
	Items    []ControlSpec          `json:"items,omitempty"`
}

// ValidatorSpec names a built-in validator and its argument.
type ValidatorSpec struct {
	Kind string `json:"kind"`
	Arg  Value  `json:"arg,omitempty"`
}

// Object renders the spec as a Value tree for canonical hashing and
// compile output.
func (c ControlSpec) Object() Object {
	obj := Object{"kind": String(c.Kind.String())}
	if c.Disabled {
		obj["disabled"] = Bool(true)
	}
	if len(c.Validators) > 0 {
		vs := make(List, len(c.Validators))
		for i, v := range c.Validators {
			vo := Object{"kind": String(v.Kind)}
			if v.Arg != nil {
				vo["arg"] = v.Arg
			}
			vs[i] = vo
		}
		obj["validators"] = vs
	}

	switch c.Kind {
	case KindGroup:
		controls := make(Object, len(c.Controls))
		keys := make(List, len(c.Keys))
		for i, k := range c.Keys {
			keys[i] = String(k)
			controls[k] = c.Controls[k].Object()
		}
		obj["keys"] = keys
		obj["controls"] = controls
	case KindList:
		items := make(List, len(c.Items))
		for i, item := range c.Items {
			items[i] = item.Object()
		}
		obj["items"] = items
	default:
		if c.Value == nil {
			obj["value"] = Null{}
		} else {
			obj["value"] = c.Value
		}
	}
	return obj
}

// Session is one recorded harness run.
type Session struct {
	ID            string `json:"id"`
	Scenario      string `json:"scenario"`
	Form          string `json:"form"`
	FormHash      string `json:"form_hash"`
	EngineVersion string `json:"engine_version"`
	Seq           int64  `json:"seq"`
}

// Observation is one effect run recorded during a session: the watch that
// ran, the step it ran after, and the projected reading.
type Observation struct {
	ID          string `json:"id"`
	SessionID   string `json:"session_id"`
	Seq         int64  `json:"seq"`
	Step        int    `json:"step"`
	Watch       string `json:"watch"`
	Path        string `json:"path"`
	Run         int    `json:"run"`
	Reading     Value  `json:"reading"`
	Fingerprint string `json:"fingerprint"`
}
