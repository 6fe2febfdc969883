// Package args coerces loosely typed tool arguments into Go values.
package args

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/saturnines/newrelic-mcp/pkg/errors"
)

// Args is the decoded argument object of one tool call
type Args map[string]any

// Has reports whether key is present with a non-nil value
func (a Args) Has(key string) bool {
	v, ok := a[key]
	return ok && v != nil
}

// String returns the trimmed string form of key, or def when absent or blank
func (a Args) String(key, def string) string {
	if !a.Has(key) {
		return def
	}
	s, err := ToString(a[key])
	if err != nil || strings.TrimSpace(s) == "" {
		return def
	}
	return strings.TrimSpace(s)
}

// RequiredString returns key or an error naming it
func (a Args) RequiredString(key string) (string, error) {
	s := a.String(key, "")
	if s == "" {
		return "", missing(key)
	}
	return s, nil
}

// Int returns key as an int, or def when absent
func (a Args) Int(key string, def int) (int, error) {
	if !a.Has(key) {
		return def, nil
	}
	n, err := ToInt(a[key])
	if err != nil {
		return 0, invalid(key, err)
	}
	return n, nil
}

// Float returns key as a float64, or def when absent
func (a Args) Float(key string, def float64) (float64, error) {
	if !a.Has(key) {
		return def, nil
	}
	f, err := ToFloat(a[key])
	if err != nil {
		return 0, invalid(key, err)
	}
	return f, nil
}

// RequiredFloat returns key as a float64 or an error naming it
func (a Args) RequiredFloat(key string) (float64, error) {
	if !a.Has(key) {
		return 0, missing(key)
	}
	return a.Float(key, 0)
}

// Bool returns key as a bool, or def when absent
func (a Args) Bool(key string, def bool) (bool, error) {
	if !a.Has(key) {
		return def, nil
	}
	b, err := ToBool(a[key])
	if err != nil {
		return false, invalid(key, err)
	}
	return b, nil
}

// Strings returns key as a string list. A comma separated string is split.
func (a Args) Strings(key string) ([]string, error) {
	if !a.Has(key) {
		return nil, nil
	}
	switch v := a[key].(type) {
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, err := ToString(item)
			if err != nil {
				return nil, invalid(key, err)
			}
			out = append(out, s)
		}
		return out, nil
	case string:
		var out []string
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	default:
		return nil, invalid(key, fmt.Errorf("cannot convert %T to a list", v))
	}
}

// Map returns key as an object. A JSON string holding an object is decoded.
func (a Args) Map(key string) (map[string]any, error) {
	if !a.Has(key) {
		return nil, nil
	}
	switch v := a[key].(type) {
	case map[string]any:
		return v, nil
	case map[string]string:
		out := make(map[string]any, len(v))
		for k, s := range v {
			out[k] = s
		}
		return out, nil
	case string:
		var out map[string]any
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			return nil, invalid(key, fmt.Errorf("expected a JSON object: %w", err))
		}
		return out, nil
	default:
		return nil, invalid(key, fmt.Errorf("cannot convert %T to an object", v))
	}
}

// ToString converts scalars to strings. Integral floats print without a
// fraction so JSON numbers like 1234567 round-trip as ids.
func ToString(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1e15 {
			return strconv.FormatInt(int64(v), 10), nil
		}
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case json.Number:
		return v.String(), nil
	case int, int64, int32, bool:
		return fmt.Sprintf("%v", v), nil
	default:
		return "", fmt.Errorf("cannot convert %T to string", value)
	}
}

// ToInt converts numbers and numeric strings to int
func ToInt(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case int32:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%v is not a whole number", v)
		}
		return int(v), nil
	case json.Number:
		n, err := v.Int64()
		return int(n), err
	case string:
		return strconv.Atoi(strings.TrimSpace(v))
	default:
		return 0, fmt.Errorf("cannot convert %T to int", value)
	}
}

// ToFloat converts numbers and numeric strings to float64
func ToFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to float", value)
	}
}

// ToBool converts booleans, boolean strings and numbers to bool
func ToBool(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		return strconv.ParseBool(strings.TrimSpace(v))
	case int:
		return v != 0, nil
	case float64:
		return v != 0, nil
	default:
		return false, fmt.Errorf("cannot convert %T to bool", value)
	}
}

func missing(key string) error {
	return errors.WrapError(fmt.Errorf("%s is required", key), errors.ErrValidation, "missing argument")
}

func invalid(key string, err error) error {
	return errors.WrapError(err, errors.ErrValidation, "invalid argument "+key)
}
