package authclient

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// decodeLenient normalizes the registry's permissive response shapes
// (spec.md §4.2): a JSON array (use the first element), a bare JSON
// scalar, a plain integer, or a plain success string. It returns the
// normalized value as `any` (float64/string/bool/map[string]any), ready
// for a second, strongly-typed decode step.
func decodeLenient(body []byte) (any, error) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return nil, fmt.Errorf("authclient: empty response body")
	}

	// Fast path: a bare integer with no surrounding JSON syntax, which
	// encoding/json would otherwise happily parse as a float64 anyway,
	// but some endpoints send it without quotes AND without being valid
	// standalone JSON (e.g. leading zeros). Try strconv first.
	if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return float64(n), nil
	}

	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		// Not JSON at all: treat the raw trimmed text as a plain
		// success string (spec.md §4.2).
		return trimmed, nil
	}

	if arr, ok := v.([]any); ok {
		if len(arr) == 0 {
			return nil, fmt.Errorf("authclient: empty array response")
		}
		return arr[0], nil
	}
	return v, nil
}

// asMap requires the lenient value to be a JSON object, returning a
// descriptive error otherwise.
func asMap(v any) (map[string]any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("authclient: expected object, got %T", v)
	}
	return m, nil
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key]; ok {
		switch t := v.(type) {
		case string:
			return t
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64)
		}
	}
	return ""
}

func uintField(m map[string]any, key string) uint32 {
	switch v := m[key].(type) {
	case float64:
		return uint32(v)
	case string:
		n, _ := strconv.ParseUint(v, 10, 32)
		return uint32(n)
	}
	return 0
}

func boolField(m map[string]any, key string) bool {
	switch v := m[key].(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		lv := strings.ToLower(v)
		return lv == "true" || lv == "1" || lv == "yes"
	}
	return false
}

// asBoolSuccess interprets a lenient value as a "truthy" success
// response (check_reg, add_user_authorization): booleans, non-zero
// numbers, and the strings "ok"/"success"/"1"/"true"/"yes" all count as
// success.
func asBoolSuccess(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "ok", "success", "true", "1", "yes":
			return true
		}
	}
	return false
}
