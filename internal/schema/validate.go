package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

var fieldValidator = validator.New()

// Validate checks a payload against the entity's field schema. It runs to
// completion and returns every violation, not just the first. On success the
// returned map holds the coerced values for all known fields.
//
// Internal entities carry no schema and accept payloads as-is: their tables
// are written only by the engine, never through free-form user input.
func Validate(e *Entity, payload map[string]any) (map[string]any, []string) {
	if e.Internal {
		return payload, nil
	}

	normalized := make(map[string]any, len(payload))
	var errs []string

	for _, f := range e.WritableFields() {
		raw, present := payload[f.Name]
		if !present || raw == nil {
			if f.Required {
				errs = append(errs, fmt.Sprintf("%q is required", f.Name))
			}
			continue
		}

		value, fieldErrs := coerceField(f, raw)
		if len(fieldErrs) > 0 {
			errs = append(errs, fieldErrs...)
			continue
		}
		normalized[f.Name] = value
	}

	// Unknown keys are rejected, same as unknown fields in a write plan.
	for _, key := range unknownKeys(e, payload) {
		errs = append(errs, fmt.Sprintf("%q is not allowed", key))
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return normalized, nil
}

func coerceField(f Field, raw any) (any, []string) {
	switch f.Type {
	case "int":
		n, ok := toInt(raw)
		if !ok {
			return nil, []string{fmt.Sprintf("%q must be an integer", f.Name)}
		}
		if f.Min != nil && float64(n) < *f.Min {
			return nil, []string{fmt.Sprintf("%q must be greater than or equal to %d", f.Name, int64(*f.Min))}
		}
		return n, nil

	case "decimal":
		n, ok := toFloat(raw)
		if !ok {
			return nil, []string{fmt.Sprintf("%q must be a number", f.Name)}
		}
		if f.Min != nil && n < *f.Min {
			return nil, []string{fmt.Sprintf("%q must be greater than or equal to %g", f.Name, *f.Min)}
		}
		return n, nil

	case "date":
		s, ok := raw.(string)
		if !ok {
			return nil, []string{fmt.Sprintf("%q must be a valid date", f.Name)}
		}
		t, err := parseDate(s)
		if err != nil {
			return nil, []string{fmt.Sprintf("%q must be a valid date", f.Name)}
		}
		return t, nil

	default: // string, text
		s, ok := raw.(string)
		if !ok {
			return nil, []string{fmt.Sprintf("%q must be a string", f.Name)}
		}

		var errs []string
		if f.Required && s == "" {
			errs = append(errs, fmt.Sprintf("%q is not allowed to be empty", f.Name))
		}
		if f.MaxLen > 0 && len(s) > f.MaxLen {
			errs = append(errs, fmt.Sprintf("%q length must be less than or equal to %d characters long", f.Name, f.MaxLen))
		}
		if f.Email && fieldValidator.Var(s, "required,email") != nil {
			errs = append(errs, fmt.Sprintf("%q must be a valid email", f.Name))
		}
		if len(f.Enum) > 0 && !contains(f.Enum, s) {
			errs = append(errs, fmt.Sprintf("%q must be one of %v", f.Name, f.Enum))
		}
		if len(errs) > 0 {
			return nil, errs
		}
		return s, nil
	}
}

func unknownKeys(e *Entity, payload map[string]any) []string {
	var keys []string
	for key := range payload {
		if key == e.PrimaryKey.Field {
			continue
		}
		f := e.GetField(key)
		if f == nil || f.IsAuto() {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// toInt accepts JSON numbers (float64), json.Number, native ints and numeric
// strings, rejecting anything with a fractional part.
func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}

func toFloat(v any) (float64, bool) {
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
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
