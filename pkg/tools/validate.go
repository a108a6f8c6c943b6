package tools

import (
	"fmt"

	"github.com/shubhambhiwapurkar/aep-power-tools-ext/pkg/llm"
)

// ValidationError reports an argument that failed schema validation for a
// tool call proposed by the model.
type ValidationError struct {
	Tool   string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %s: %s", e.Tool, e.Field, e.Reason)
}

// ValidateArgs checks model-proposed arguments against the tool's declared
// parameter schema before execution. Required fields must be present and
// every supplied field must match its declared type. Fields not declared in
// the schema are rejected so a hallucinated parameter never reaches the
// platform.
func ValidateArgs(def *Definition, args map[string]any) error {
	schema := def.Parameters
	for _, req := range schema.Required {
		if _, ok := args[req]; !ok {
			return &ValidationError{Tool: def.Name, Field: req, Reason: "required field missing"}
		}
	}
	for name, value := range args {
		prop, ok := schema.Properties[name]
		if !ok {
			return &ValidationError{Tool: def.Name, Field: name, Reason: "unknown field"}
		}
		if err := checkType(def.Name, name, prop, value); err != nil {
			return err
		}
	}
	return nil
}

func checkType(tool, field string, prop llm.Property, value any) error {
	if value == nil {
		return &ValidationError{Tool: tool, Field: field, Reason: "null value"}
	}
	switch prop.Type {
	case "string":
		if _, ok := value.(string); !ok {
			return &ValidationError{Tool: tool, Field: field, Reason: fmt.Sprintf("expected string, got %T", value)}
		}
		if len(prop.Enum) > 0 {
			s := value.(string)
			for _, allowed := range prop.Enum {
				if s == allowed {
					return nil
				}
			}
			return &ValidationError{Tool: tool, Field: field, Reason: fmt.Sprintf("value %q not in enum", s)}
		}
	case "number":
		switch value.(type) {
		case float64, int, int64:
		default:
			return &ValidationError{Tool: tool, Field: field, Reason: fmt.Sprintf("expected number, got %T", value)}
		}
	case "integer":
		switch v := value.(type) {
		case int, int64:
		case float64:
			if v != float64(int64(v)) {
				return &ValidationError{Tool: tool, Field: field, Reason: "expected integer, got fractional number"}
			}
		default:
			return &ValidationError{Tool: tool, Field: field, Reason: fmt.Sprintf("expected integer, got %T", value)}
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return &ValidationError{Tool: tool, Field: field, Reason: fmt.Sprintf("expected boolean, got %T", value)}
		}
	case "array":
		if _, ok := value.([]any); !ok {
			return &ValidationError{Tool: tool, Field: field, Reason: fmt.Sprintf("expected array, got %T", value)}
		}
	case "object":
		if _, ok := value.(map[string]any); !ok {
			return &ValidationError{Tool: tool, Field: field, Reason: fmt.Sprintf("expected object, got %T", value)}
		}
	}
	return nil
}
