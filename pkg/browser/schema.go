package browser

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FieldKind is the expected type of one schema field.
type FieldKind string

const (
	KindString FieldKind = "string"
	KindNumber FieldKind = "number"
	KindBool   FieldKind = "bool"
	KindObject FieldKind = "object"
	KindArray  FieldKind = "array"
)

// Field describes one expected field of an extraction payload.
type Field struct {
	// Name is the JSON key.
	Name string

	// Kind is the expected value type.
	Kind FieldKind

	// Required makes a missing or null value a validation failure. Optional
	// fields may be absent but must still conform when present.
	Required bool

	// Fields describes the nested object shape for KindObject.
	Fields []Field

	// Elem describes the element shape for KindArray. The element Field's
	// Name is ignored.
	Elem *Field
}

// Schema is the declarative contract an extraction payload must satisfy:
// a JSON object with the given fields.
type Schema struct {
	Fields []Field
}

// Check verifies the schema itself is well-formed: non-empty field names,
// known kinds, object fields with shapes, array fields with element types.
func (s *Schema) Check() error {
	if s == nil || len(s.Fields) == 0 {
		return fmt.Errorf("schema must declare at least one field")
	}
	return checkFields(s.Fields, "")
}

func checkFields(fields []Field, path string) error {
	for _, f := range fields {
		p := joinPath(path, f.Name)
		if f.Name == "" {
			return fmt.Errorf("schema field at %q has no name", path)
		}
		switch f.Kind {
		case KindString, KindNumber, KindBool:
		case KindObject:
			if len(f.Fields) == 0 {
				return fmt.Errorf("object field %q declares no nested fields", p)
			}
			if err := checkFields(f.Fields, p); err != nil {
				return err
			}
		case KindArray:
			if f.Elem == nil {
				return fmt.Errorf("array field %q declares no element type", p)
			}
			elem := *f.Elem
			elem.Name = "[]"
			if err := checkFields([]Field{elem}, p); err != nil {
				return err
			}
		default:
			return fmt.Errorf("field %q has unknown kind %q", p, f.Kind)
		}
	}
	return nil
}

// Validate checks a raw payload against the schema. On the first violation
// it returns a Violation naming the offending field path; the payload is
// otherwise untouched.
func (s *Schema) Validate(raw json.RawMessage) *Violation {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return &Violation{Path: "", Reason: "payload is not a JSON object"}
	}
	return validateObject(payload, s.Fields, "")
}

// Violation reports the first schema mismatch found in a payload.
type Violation struct {
	// Path is the dotted path of the offending field, for example
	// "items[2].price". Empty when the payload root itself is malformed.
	Path string

	// Reason says what was wrong at Path.
	Reason string
}

func (v *Violation) Error() string {
	if v.Path == "" {
		return v.Reason
	}
	return fmt.Sprintf("field %s: %s", v.Path, v.Reason)
}

func validateObject(obj map[string]any, fields []Field, path string) *Violation {
	for _, f := range fields {
		p := joinPath(path, f.Name)
		value, present := obj[f.Name]
		if !present || value == nil {
			if f.Required {
				return &Violation{Path: p, Reason: "required field is missing"}
			}
			continue
		}
		if v := validateValue(value, f, p); v != nil {
			return v
		}
	}
	return nil
}

func validateValue(value any, f Field, path string) *Violation {
	switch f.Kind {
	case KindString:
		if _, ok := value.(string); !ok {
			return &Violation{Path: path, Reason: fmt.Sprintf("expected string, got %s", jsonKind(value))}
		}
	case KindNumber:
		if _, ok := value.(float64); !ok {
			return &Violation{Path: path, Reason: fmt.Sprintf("expected number, got %s", jsonKind(value))}
		}
	case KindBool:
		if _, ok := value.(bool); !ok {
			return &Violation{Path: path, Reason: fmt.Sprintf("expected bool, got %s", jsonKind(value))}
		}
	case KindObject:
		nested, ok := value.(map[string]any)
		if !ok {
			return &Violation{Path: path, Reason: fmt.Sprintf("expected object, got %s", jsonKind(value))}
		}
		return validateObject(nested, f.Fields, path)
	case KindArray:
		items, ok := value.([]any)
		if !ok {
			return &Violation{Path: path, Reason: fmt.Sprintf("expected array, got %s", jsonKind(value))}
		}
		elem := *f.Elem
		for i, item := range items {
			p := fmt.Sprintf("%s[%d]", path, i)
			if item == nil {
				return &Violation{Path: p, Reason: "array element is null"}
			}
			if v := validateValue(item, elem, p); v != nil {
				return v
			}
		}
	}
	return nil
}

// MarshalJSON renders the schema in the wire shape handed to the
// interpreter, so the remote service can shape its answer.
func (s *Schema) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{"fields": marshalFields(s.Fields)})
}

func marshalFields(fields []Field) []map[string]any {
	out := make([]map[string]any, 0, len(fields))
	for _, f := range fields {
		m := map[string]any{
			"name":     f.Name,
			"kind":     string(f.Kind),
			"required": f.Required,
		}
		if len(f.Fields) > 0 {
			m["fields"] = marshalFields(f.Fields)
		}
		if f.Elem != nil {
			elem := marshalFields([]Field{*f.Elem})
			m["elem"] = elem[0]
		}
		out = append(out, m)
	}
	return out
}

func jsonKind(value any) string {
	switch value.(type) {
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "bool"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	default:
		return "unknown"
	}
}

func joinPath(path, name string) string {
	if path == "" {
		return name
	}
	return strings.Join([]string{path, name}, ".")
}
