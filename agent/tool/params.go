package tool

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/schema"
)

// Param describes one tool argument.
type Param struct {
	Name     string
	Type     schema.DataType
	Desc     string
	Required bool
	Enum     []string
}

// ValidationError reports arguments that do not match a tool's params.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func invalid(field, format string, a ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, a...)}
}

func validate(params []Param, args Args) error {
	for _, p := range params {
		v, present := args[p.Name]
		if !present || v == nil {
			if p.Required {
				return invalid(p.Name, "is required")
			}
			continue
		}
		switch p.Type {
		case schema.String:
			s, ok := v.(string)
			if !ok {
				return invalid(p.Name, "must be a string")
			}
			if p.Required && strings.TrimSpace(s) == "" {
				return invalid(p.Name, "must not be empty")
			}
			if len(p.Enum) > 0 && !slices.Contains(p.Enum, s) {
				return invalid(p.Name, "must be one of %s", strings.Join(p.Enum, ", "))
			}
		case schema.Integer:
			if _, ok := asInt(v); !ok {
				return invalid(p.Name, "must be an integer")
			}
		case schema.Number:
			if _, ok := asFloat(v); !ok {
				return invalid(p.Name, "must be a number")
			}
		case schema.Boolean:
			if _, ok := v.(bool); !ok {
				return invalid(p.Name, "must be a boolean")
			}
		}
	}
	return nil
}

// Args are the decoded arguments of one tool call.
type Args map[string]any

func (a Args) String(name string) string {
	s, _ := a[name].(string)
	return strings.TrimSpace(s)
}

// Int returns the integer argument, or def when it is absent.
func (a Args) Int(name string, def int) int {
	if n, ok := asInt(a[name]); ok {
		return n
	}
	return def
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		return i, err == nil
	default:
		return 0, false
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
