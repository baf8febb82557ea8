package schema

import (
	"encoding/json"
	"fmt"

	"github.com/BaSui01/schemaflow/types"
)

// descriptor is the wire form of one schema node. Older producers emitted
// the array element and wrapper inner node under different keys, so each
// position keeps its full alias list.
type descriptor struct {
	Type        string            `json:"type"`
	Description string            `json:"description,omitempty"`
	Fields      []fieldDescriptor `json:"fields,omitempty"`

	// array element aliases, newest first
	Element json.RawMessage `json:"element,omitempty"`
	Items   json.RawMessage `json:"items,omitempty"`
	Item    json.RawMessage `json:"item,omitempty"`

	// wrapper inner-node aliases, newest first
	Inner     json.RawMessage `json:"inner,omitempty"`
	InnerType json.RawMessage `json:"innerType,omitempty"`
	Schema    json.RawMessage `json:"schema,omitempty"`

	Key     json.RawMessage   `json:"key,omitempty"`
	Value   json.RawMessage   `json:"value,omitempty"`
	Values  []string          `json:"values,omitempty"`
	Options []json.RawMessage `json:"options,omitempty"`
	Brand   string            `json:"brand,omitempty"`
	Target  json.RawMessage   `json:"target,omitempty"`
}

type fieldDescriptor struct {
	Name        string          `json:"name"`
	Schema      json.RawMessage `json:"schema"`
	Description string          `json:"description,omitempty"`
}

// Decode parses a JSON schema descriptor into a Node. Lazy nodes carry a
// resolver function and have no wire form, so they cannot appear in a
// descriptor.
func Decode(data []byte) (*Node, error) {
	return decode(data, "$")
}

func decode(data []byte, path string) (*Node, error) {
	var d descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, types.NewTranslationError("malformed schema descriptor").
			WithPath(path).WithCause(err)
	}

	node, err := d.toNode(path)
	if err != nil {
		return nil, err
	}
	if d.Description != "" {
		node.Desc = d.Description
	}
	return node, nil
}

func (d *descriptor) toNode(path string) (*Node, error) {
	switch d.Type {
	case "string":
		return String(), nil
	case "int", "integer":
		return Int(), nil
	case "float", "number":
		return Float(), nil
	case "bool", "boolean":
		return Bool(), nil
	case "null":
		return Null(), nil

	case "literal":
		var value any
		if len(d.Value) > 0 {
			if err := json.Unmarshal(d.Value, &value); err != nil {
				return nil, types.NewTranslationError("malformed literal value").
					WithPath(path).WithCause(err)
			}
		}
		return LiteralOf(value), nil

	case "enum":
		return EnumOf(d.Values...), nil
	case "nativeEnum":
		return NativeEnumOf(d.Values...), nil

	case "object":
		fields := make([]Field, 0, len(d.Fields))
		for i, fd := range d.Fields {
			fieldPath := fmt.Sprintf("%s.%s", path, fd.Name)
			if len(fd.Schema) == 0 {
				return nil, types.NewTranslationError(
					fmt.Sprintf("object field %d has no schema", i)).WithPath(fieldPath)
			}
			child, err := decode(fd.Schema, fieldPath)
			if err != nil {
				return nil, err
			}
			if fd.Description != "" && child.Desc == "" {
				child.Desc = fd.Description
			}
			fields = append(fields, Field{Name: fd.Name, Schema: child})
		}
		return Object(fields...), nil

	case "array":
		elem, err := d.firstOf(path+".element", d.Element, d.Items, d.Item)
		if err != nil {
			return nil, err
		}
		if elem == nil {
			return nil, types.NewTranslationError("array descriptor has no element").
				WithPath(path)
		}
		return Array(elem), nil

	case "record":
		if len(d.Value) == 0 {
			return nil, types.NewTranslationError("record descriptor has no value type").
				WithPath(path)
		}
		value, err := decode(d.Value, path+".value")
		if err != nil {
			return nil, err
		}
		var key *Node
		if len(d.Key) > 0 {
			if key, err = decode(d.Key, path+".key"); err != nil {
				return nil, err
			}
		}
		return Record(key, value), nil

	case "union":
		options := make([]*Node, 0, len(d.Options))
		for i, raw := range d.Options {
			opt, err := decode(raw, fmt.Sprintf("%s.options[%d]", path, i))
			if err != nil {
				return nil, err
			}
			options = append(options, opt)
		}
		return Union(options...), nil

	case "optional", "nullable", "default", "catch", "readonly", "branded", "effects", "pipeline":
		return d.toWrapper(path)

	case "":
		return nil, types.NewTranslationError("schema descriptor missing type").WithPath(path)
	default:
		return nil, types.NewUnsupportedTypeError(d.Type).WithPath(path)
	}
}

func (d *descriptor) toWrapper(path string) (*Node, error) {
	inner, err := d.firstOf(path+".inner", d.Inner, d.InnerType, d.Schema)
	if err != nil {
		return nil, err
	}
	if inner == nil {
		return nil, types.NewTranslationError(
			fmt.Sprintf("%s descriptor has no inner schema", d.Type)).WithPath(path)
	}

	switch Kind(d.Type) {
	case KindOptional:
		return inner.Optional(), nil
	case KindNullable:
		return inner.Nullable(), nil
	case KindDefault:
		var value any
		if len(d.Value) > 0 {
			if err := json.Unmarshal(d.Value, &value); err != nil {
				return nil, types.NewTranslationError("malformed default value").
					WithPath(path).WithCause(err)
			}
		}
		return inner.Default(value), nil
	case KindCatch:
		var value any
		if len(d.Value) > 0 {
			if err := json.Unmarshal(d.Value, &value); err != nil {
				return nil, types.NewTranslationError("malformed catch value").
					WithPath(path).WithCause(err)
			}
		}
		return inner.Catch(value), nil
	case KindReadonly:
		return inner.Readonly(), nil
	case KindBranded:
		return inner.Brand(d.Brand), nil
	case KindEffects:
		return inner.Effects(), nil
	case KindPipeline:
		var target *Node
		if len(d.Target) > 0 {
			if target, err = decode(d.Target, path+".target"); err != nil {
				return nil, err
			}
		}
		return inner.Pipe(target), nil
	}
	return nil, types.NewUnsupportedTypeError(d.Type).WithPath(path)
}

// firstOf decodes the first non-empty alias. All aliases are tried in
// order; only the first present one is used.
func (d *descriptor) firstOf(path string, aliases ...json.RawMessage) (*Node, error) {
	for _, raw := range aliases {
		if len(raw) > 0 {
			return decode(raw, path)
		}
	}
	return nil, nil
}
