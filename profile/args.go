package profile

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// GetString extracts a string argument, returning an error if missing or wrong type.
func GetString(cmd map[string]interface{}, key string) (string, error) {
	val, ok := cmd[key]
	if !ok {
		return "", fmt.Errorf("missing required argument: %s", key)
	}
	strVal, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("argument '%s' must be a string, got %T", key, val)
	}
	if strings.TrimSpace(strVal) == "" {
		return "", fmt.Errorf("argument '%s' must not be empty", key)
	}
	return strVal, nil
}

// GetOptionalString extracts an optional string argument.
func GetOptionalString(cmd map[string]interface{}, key, defaultVal string) string {
	strVal, ok := cmd[key].(string)
	if !ok || strVal == "" {
		return defaultVal
	}
	return strVal
}

// GetFloat64 extracts a float64 argument, returning an error if missing or wrong type.
func GetFloat64(cmd map[string]interface{}, key string) (float64, error) {
	val, ok := cmd[key]
	if !ok {
		return 0, fmt.Errorf("missing required argument: %s", key)
	}
	floatVal, ok := toFloat64(val)
	if !ok {
		return 0, fmt.Errorf("argument '%s' must be a number (float64), got %T", key, val)
	}
	if math.IsNaN(floatVal) || math.IsInf(floatVal, 0) {
		return 0, fmt.Errorf("argument '%s' must be a finite number, got %v", key, val)
	}
	return floatVal, nil
}

// GetOptionalFloat64 extracts an optional float64 argument. NaN and infinities are returned as
// given, callers range-check the result.
func GetOptionalFloat64(cmd map[string]interface{}, key string, defaultVal float64) float64 {
	val, ok := cmd[key]
	if !ok {
		return defaultVal
	}
	floatVal, ok := toFloat64(val)
	if !ok {
		return defaultVal
	}
	return floatVal
}

// GetOptionalBool extracts an optional boolean argument.
func GetOptionalBool(cmd map[string]interface{}, key string, defaultVal bool) bool {
	val, ok := cmd[key]
	if !ok {
		return defaultVal
	}
	switch v := val.(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

// GetStringList extracts an argument that is either a single string or a list of strings.
func GetStringList(cmd map[string]interface{}, key string) ([]string, error) {
	val, ok := cmd[key]
	if !ok {
		return nil, fmt.Errorf("missing required argument: %s", key)
	}
	switch v := val.(type) {
	case string:
		return []string{v}, nil
	case []string:
		return v, nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("argument '%s' must only contain strings, got %T", key, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("argument '%s' must be a string or a list of strings, got %T", key, val)
	}
}

func toFloat64(val interface{}) (float64, bool) {
	switch v := val.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		// command line arguments arrive as strings
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
