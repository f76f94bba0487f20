package harness

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/roach88/formsignal/internal/ir"
)

// ControlDef is a control written inline in a scenario. It has the shape of
// a CUE form control: exactly one of value, group, or list, plus optional
// disabled and validators. Group keys keep their YAML order.
//
//	control:
//	  group:
//	    street: { value: "" }
//	    zip: { value: "", validators: { pattern: "[0-9]{5}" } }
type ControlDef struct {
	Spec ir.ControlSpec
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *ControlDef) UnmarshalYAML(node *yaml.Node) error {
	spec, err := controlFromYAML(node, "control")
	if err != nil {
		return err
	}
	d.Spec = spec
	return nil
}

func controlFromYAML(node *yaml.Node, path string) (ir.ControlSpec, error) {
	var spec ir.ControlSpec
	if node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	if node.Kind != yaml.MappingNode {
		return spec, fmt.Errorf("line %d: %s: control must be a mapping", node.Line, path)
	}

	shapes := 0
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		field := path + "." + key.Value

		switch key.Value {
		case "value":
			shapes++
			v, err := valueFromYAML(val)
			if err != nil {
				return spec, fmt.Errorf("line %d: %s: %w", val.Line, field, err)
			}
			spec.Kind = ir.KindLeaf
			spec.Value = v

		case "group":
			shapes++
			if val.Kind != yaml.MappingNode {
				return spec, fmt.Errorf("line %d: %s: group must be a mapping", val.Line, field)
			}
			spec.Kind = ir.KindGroup
			spec.Keys = []string{}
			spec.Controls = make(map[string]ir.ControlSpec, len(val.Content)/2)
			for j := 0; j+1 < len(val.Content); j += 2 {
				k := val.Content[j].Value
				child, err := controlFromYAML(val.Content[j+1], path+"."+k)
				if err != nil {
					return spec, err
				}
				spec.Keys = append(spec.Keys, k)
				spec.Controls[k] = child
			}

		case "list":
			shapes++
			if val.Kind != yaml.SequenceNode {
				return spec, fmt.Errorf("line %d: %s: list must be a sequence", val.Line, field)
			}
			spec.Kind = ir.KindList
			spec.Items = []ir.ControlSpec{}
			for j, item := range val.Content {
				child, err := controlFromYAML(item, fmt.Sprintf("%s.%d", path, j))
				if err != nil {
					return spec, err
				}
				spec.Items = append(spec.Items, child)
			}

		case "disabled":
			if err := val.Decode(&spec.Disabled); err != nil {
				return spec, fmt.Errorf("line %d: %s: %w", val.Line, field, err)
			}

		case "validators":
			vs, err := validatorsFromYAML(val, field)
			if err != nil {
				return spec, err
			}
			spec.Validators = vs

		default:
			return spec, fmt.Errorf("line %d: %s: unknown field", key.Line, field)
		}
	}

	if shapes != 1 {
		return spec, fmt.Errorf("line %d: %s: exactly one of value, group, or list is required", node.Line, path)
	}
	return spec, nil
}

// validatorsFromYAML reads a validators mapping in declaration order.
// required: false is dropped.
func validatorsFromYAML(node *yaml.Node, field string) ([]ir.ValidatorSpec, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: %s: validators must be a mapping", node.Line, field)
	}
	var out []ir.ValidatorSpec
	for i := 0; i+1 < len(node.Content); i += 2 {
		name, val := node.Content[i].Value, node.Content[i+1]
		if name == "required" {
			var on bool
			if err := val.Decode(&on); err != nil {
				return nil, fmt.Errorf("line %d: %s.required: %w", val.Line, field, err)
			}
			if on {
				out = append(out, ir.ValidatorSpec{Kind: name})
			}
			continue
		}
		arg, err := valueFromYAML(val)
		if err != nil {
			return nil, fmt.Errorf("line %d: %s.%s: %w", val.Line, field, name, err)
		}
		out = append(out, ir.ValidatorSpec{Kind: name, Arg: arg})
	}
	return out, nil
}

func valueFromYAML(node *yaml.Node) (ir.Value, error) {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return nil, err
	}
	return ir.FromAny(raw)
}
