// Package catalog – parameter validation and coercion.
//
// This file validates a caller-supplied parameter map against an
// ActionDefinition and normalizes each value to the declared type. Errors are
// attributed to the specific offending field (never a generic failure) so the
// presentation layer can highlight the right input.
package catalog

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParameterError reports a missing or malformed parameter. Field names the
// offending parameter.
type ParameterError struct {
	Field string
	Msg   string
}

// Error implements the error interface.
func (e *ParameterError) Error() string {
	return fmt.Sprintf("parameter %q: %s", e.Field, e.Msg)
}

// ValidateParams checks that every required parameter is present and that all
// supplied values match the declared types, returning a normalized copy of
// the map. Unknown parameters are rejected; optional parameters with a
// declared default are filled in when absent.
//
// The returned error is always a *ParameterError for validation failures.
func ValidateParams(def *ActionDefinition, params map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(def.Parameters))

	for name := range params {
		if _, known := def.Parameters[name]; !known {
			return nil, &ParameterError{Field: name, Msg: "not declared by " + def.Identity()}
		}
	}

	for name, p := range def.Parameters {
		raw, present := params[name]
		if !present || raw == nil {
			if p.Required {
				return nil, &ParameterError{Field: name, Msg: "required"}
			}
			if p.Default != nil {
				out[name] = p.Default
			}
			continue
		}
		v, err := Coerce(raw, p.Type)
		if err != nil {
			return nil, &ParameterError{Field: name, Msg: err.Error()}
		}
		out[name] = v
	}
	return out, nil
}

// Coerce normalizes a raw value to the declared parameter type:
//
//	string   → string
//	number   → float64
//	boolean  → bool
//	datetime → time.Time (accepts RFC 3339, with date-only fallback)
//
// String inputs are parsed for number/boolean/datetime so values extracted
// from free text arrive at the executor already typed.
func Coerce(raw any, typ string) (any, error) {
	switch typ {
	case TypeString:
		switch v := raw.(type) {
		case string:
			return v, nil
		default:
			return fmt.Sprintf("%v", v), nil
		}

	case TypeNumber:
		switch v := raw.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		case int64:
			return float64(v), nil
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return nil, fmt.Errorf("not a number: %q", v)
			}
			return f, nil
		default:
			return nil, fmt.Errorf("not a number: %v", raw)
		}

	case TypeBoolean:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return nil, fmt.Errorf("not a boolean: %q", v)
			}
			return b, nil
		default:
			return nil, fmt.Errorf("not a boolean: %v", raw)
		}

	case TypeDatetime:
		switch v := raw.(type) {
		case time.Time:
			return v, nil
		case string:
			return ParseDatetime(v)
		default:
			return nil, fmt.Errorf("not a datetime: %v", raw)
		}
	}
	return nil, fmt.Errorf("unknown type %q", typ)
}

// ParseDatetime parses an ISO-8601 value. Full RFC 3339 timestamps are
// preferred; a bare "YYYY-MM-DD" date is accepted and interpreted as midnight
// UTC.
func ParseDatetime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("not an ISO-8601 datetime: %q", s)
}
