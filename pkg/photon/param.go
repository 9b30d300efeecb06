package photon

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"

	"github.com/danielgtaylor/huma/v2"
	"github.com/quatton/photon/pkg/qerr"
)

// maxExactInt is the largest integer a JSON number decodes to exactly.
const maxExactInt = 1 << 53

// ParamType is one of the kinds a handler parameter can declare.
type ParamType string

const (
	String  ParamType = "string"
	Integer ParamType = "integer"
	Float   ParamType = "float"
	Boolean ParamType = "boolean"
	Enum    ParamType = "enum"
	Array   ParamType = "array"
	Object  ParamType = "object"
)

func (t ParamType) valid() bool {
	switch t {
	case String, Integer, Float, Boolean, Enum, Array, Object:
		return true
	}
	return false
}

func (t ParamType) schemaType() string {
	switch t {
	case Integer:
		return huma.TypeInteger
	case Float:
		return huma.TypeNumber
	case Boolean:
		return huma.TypeBoolean
	case Array:
		return huma.TypeArray
	case Object:
		return huma.TypeObject
	default:
		return huma.TypeString
	}
}

// Field is one (name, type, description) triple of an object-array element.
type Field struct {
	Name        string    `json:"name"`
	Type        ParamType `json:"type"`
	Description string    `json:"description,omitempty"`
}

// Param describes one input of a typed handler.
type Param struct {
	Name        string
	Type        ParamType
	Description string
	Example     any
	// Enum lists allowed values when Type is Enum.
	Enum []string
	// Elem is the element type of an Array.
	Elem ParamType
	// Fields turns an Array into an array of objects.
	Fields   []Field
	Optional bool
	Default  any
}

func (p Param) validate() error {
	if p.Name == "" {
		return qerr.Newf(qerr.CodeValidation, "parameter name must not be empty")
	}
	if !p.Type.valid() {
		return qerr.Newf(qerr.CodeValidation, "parameter %q: unsupported type %q", p.Name, p.Type)
	}
	switch p.Type {
	case Enum:
		if len(p.Enum) == 0 {
			return qerr.Newf(qerr.CodeValidation, "parameter %q: enum without values", p.Name)
		}
	case Array:
		if len(p.Fields) == 0 && p.Elem == "" {
			return qerr.Newf(qerr.CodeValidation, "parameter %q: array needs an element type or fields", p.Name)
		}
		if len(p.Fields) > 0 {
			for _, f := range p.Fields {
				if f.Name == "" || !f.Type.valid() || f.Type == Array || f.Type == Object || f.Type == Enum {
					return qerr.Newf(qerr.CodeValidation, "parameter %q: field %q has unsupported type %q", p.Name, f.Name, f.Type)
				}
			}
		} else if !p.Elem.valid() || p.Elem == Array || p.Elem == Enum {
			return qerr.Newf(qerr.CodeValidation, "parameter %q: unsupported element type %q", p.Name, p.Elem)
		}
	}
	return nil
}

func (p Param) required() bool {
	return !p.Optional && p.Default == nil
}

// Schema renders the parameter as a JSON schema property.
func (p Param) Schema() *huma.Schema {
	s := &huma.Schema{
		Type:        p.Type.schemaType(),
		Description: p.Description,
	}
	if p.Example != nil {
		s.Examples = []any{p.Example}
	}
	if p.Default != nil {
		s.Default = p.Default
	}
	switch p.Type {
	case Enum:
		for _, v := range p.Enum {
			s.Enum = append(s.Enum, v)
		}
	case Array:
		if len(p.Fields) > 0 {
			item := &huma.Schema{Type: huma.TypeObject, Properties: map[string]*huma.Schema{}}
			for _, f := range p.Fields {
				item.Properties[f.Name] = &huma.Schema{Type: f.Type.schemaType(), Description: f.Description}
				item.Required = append(item.Required, f.Name)
			}
			s.Items = item
		} else {
			s.Items = &huma.Schema{Type: p.Elem.schemaType()}
		}
	}
	return s
}

// requestSchema builds the object schema of a handler request body.
func requestSchema(params []Param) *huma.Schema {
	s := &huma.Schema{Type: huma.TypeObject, Properties: map[string]*huma.Schema{}}
	for _, p := range params {
		s.Properties[p.Name] = p.Schema()
		if p.required() {
			s.Required = append(s.Required, p.Name)
		}
	}
	return s
}

// Bind decodes a JSON request body and checks it against params.
func Bind(params []Param, body []byte) (Args, error) {
	raw := map[string]any{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, qerr.Newf(qerr.CodeValidation, "request body must be a JSON object: %w", err)
		}
	}

	args := Args{}
	for _, p := range params {
		v, ok := raw[p.Name]
		if !ok || v == nil {
			if p.Default != nil {
				args[p.Name] = p.Default
				continue
			}
			if p.Optional {
				continue
			}
			return nil, qerr.Newf(qerr.CodeValidation, "missing required parameter %q", p.Name)
		}
		coerced, err := coerce(p.Name, p.Type, p, v)
		if err != nil {
			return nil, err
		}
		args[p.Name] = coerced
	}
	return args, nil
}

func coerce(name string, t ParamType, p Param, v any) (any, error) {
	mismatch := func() error {
		return qerr.Newf(qerr.CodeValidation, "parameter %q: expected %s, got %T", name, t, v)
	}
	switch t {
	case String:
		s, ok := v.(string)
		if !ok {
			return nil, mismatch()
		}
		return s, nil
	case Enum:
		s, ok := v.(string)
		if !ok {
			return nil, mismatch()
		}
		if !slices.Contains(p.Enum, s) {
			return nil, qerr.Newf(qerr.CodeValidation, "parameter %q: %q is not one of %v", name, s, p.Enum)
		}
		return s, nil
	case Integer:
		f, ok := v.(float64)
		if !ok || f != math.Trunc(f) {
			return nil, mismatch()
		}
		if math.Abs(f) > maxExactInt {
			return nil, qerr.Newf(qerr.CodeValidation, "parameter %q: %v is outside ±2^53", name, f)
		}
		return int64(f), nil
	case Float:
		f, ok := v.(float64)
		if !ok {
			return nil, mismatch()
		}
		return f, nil
	case Boolean:
		b, ok := v.(bool)
		if !ok {
			return nil, mismatch()
		}
		return b, nil
	case Object:
		m, ok := v.(map[string]any)
		if !ok {
			return nil, mismatch()
		}
		return m, nil
	case Array:
		items, ok := v.([]any)
		if !ok {
			return nil, mismatch()
		}
		out := make([]any, 0, len(items))
		for i, item := range items {
			elemName := fmt.Sprintf("%s[%d]", name, i)
			if len(p.Fields) > 0 {
				obj, ok := item.(map[string]any)
				if !ok {
					return nil, qerr.Newf(qerr.CodeValidation, "parameter %q: expected object, got %T", elemName, item)
				}
				bound := map[string]any{}
				for _, f := range p.Fields {
					fv, ok := obj[f.Name]
					if !ok {
						return nil, qerr.Newf(qerr.CodeValidation, "parameter %q: missing field %q", elemName, f.Name)
					}
					c, err := coerce(elemName+"."+f.Name, f.Type, Param{}, fv)
					if err != nil {
						return nil, err
					}
					bound[f.Name] = c
				}
				out = append(out, bound)
				continue
			}
			c, err := coerce(elemName, p.Elem, Param{}, item)
			if err != nil {
				return nil, err
			}
			out = append(out, c)
		}
		return out, nil
	}
	return nil, mismatch()
}
