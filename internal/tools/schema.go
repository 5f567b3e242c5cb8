package tools

import (
	"fmt"
	"math"
	"strings"

	"minerva/pkg/errors"
)

// Parameter types understood by schema validation
const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
	TypeArray   = "array"
)

// Parameter declares one tool argument
type Parameter struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Description string      `json:"description"`
	Required    bool        `json:"required"`
	Enum        []string    `json:"enum,omitempty"`
	Default     interface{} `json:"default,omitempty"`
}

// Schema declares a tool's callable surface: its name, purpose and the
// ordered parameter list an LLM (or any caller) must satisfy.
type Schema struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  []Parameter `json:"parameters"`
	Returns     string      `json:"returns,omitempty"`
}

// Validate checks args against the schema and returns a normalized copy:
// defaults applied, types coerced where safe (JSON numbers to int for
// integer parameters), unknown names rejected.
func (s Schema) Validate(args map[string]interface{}) (map[string]interface{}, error) {
	if args == nil {
		args = map[string]interface{}{}
	}

	declared := make(map[string]Parameter, len(s.Parameters))
	for _, p := range s.Parameters {
		declared[p.Name] = p
	}

	for name := range args {
		if _, ok := declared[name]; !ok {
			return nil, errors.Wrapf(errors.ErrToolValidation, "unknown parameter '%s' for tool '%s'", name, s.Name)
		}
	}

	validated := make(map[string]interface{}, len(s.Parameters))
	for _, p := range s.Parameters {
		raw, present := args[p.Name]
		if !present || raw == nil {
			if p.Default != nil {
				validated[p.Name] = p.Default
				continue
			}
			if p.Required {
				return nil, errors.Wrapf(errors.ErrToolValidation, "required parameter '%s' is missing", p.Name)
			}
			continue
		}

		value, err := coerce(p, raw)
		if err != nil {
			return nil, err
		}

		if len(p.Enum) > 0 {
			str, ok := value.(string)
			if !ok || !contains(p.Enum, str) {
				return nil, errors.Wrapf(errors.ErrToolValidation,
					"parameter '%s' must be one of %v, got '%v'", p.Name, p.Enum, raw)
			}
		}

		validated[p.Name] = value
	}

	return validated, nil
}

// coerce checks a raw argument against the declared type. JSON decoding
// produces float64 for every number, so integer parameters accept whole
// float64 values.
func coerce(p Parameter, raw interface{}) (interface{}, error) {
	switch p.Type {
	case TypeString:
		if v, ok := raw.(string); ok {
			return v, nil
		}
	case TypeNumber:
		switch v := raw.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		case int64:
			return float64(v), nil
		}
	case TypeInteger:
		switch v := raw.(type) {
		case int:
			return v, nil
		case int64:
			return int(v), nil
		case float64:
			if v == math.Trunc(v) {
				return int(v), nil
			}
		}
	case TypeBoolean:
		if v, ok := raw.(bool); ok {
			return v, nil
		}
	case TypeArray:
		switch v := raw.(type) {
		case []interface{}:
			return v, nil
		case []string:
			out := make([]interface{}, len(v))
			for i, s := range v {
				out[i] = s
			}
			return out, nil
		}
	default:
		return nil, errors.Wrapf(errors.ErrToolValidation, "parameter '%s' declares unsupported type '%s'", p.Name, p.Type)
	}

	return nil, errors.Wrapf(errors.ErrToolValidation,
		"parameter '%s' must be of type %s, got %T", p.Name, p.Type, raw)
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

// ExampleArgs builds a representative argument map for the schema, used when
// rendering tool catalogs for LLM prompts.
func (s Schema) ExampleArgs(symbol string) map[string]interface{} {
	example := map[string]interface{}{}
	for _, p := range s.Parameters {
		if !p.Required && p.Default == nil {
			continue
		}
		switch {
		case p.Default != nil:
			example[p.Name] = p.Default
		case len(p.Enum) > 0:
			example[p.Name] = p.Enum[0]
		case p.Type == TypeString:
			if symbol != "" && strings.Contains(strings.ToLower(p.Name), "symbol") {
				example[p.Name] = symbol
			} else {
				example[p.Name] = fmt.Sprintf("<%s>", p.Name)
			}
		case p.Type == TypeInteger:
			example[p.Name] = 5
		case p.Type == TypeNumber:
			example[p.Name] = 5.0
		case p.Type == TypeBoolean:
			example[p.Name] = false
		case p.Type == TypeArray:
			example[p.Name] = []interface{}{}
		}
	}
	return example
}
