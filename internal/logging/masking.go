// Package logging sets up structured logging and masks secrets before they
// reach a log line.
package logging

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SensitiveFields are JSON body fields never written to logs in clear.
var SensitiveFields = []string{"password", "code", "token"}

// MaskHeader redacts sensitive header values based on header name.
//
// Rules:
// - Password/secret headers: "[REDACTED]" (no partial reveal)
// - Authorization and cookies: "****" + last4chars (e.g., "****ab3f")
// - Other headers: returned unchanged
func MaskHeader(name, value string) string {
	lowerName := strings.ToLower(name)

	if strings.Contains(lowerName, "password") ||
		strings.Contains(lowerName, "secret") {
		return "[REDACTED]"
	}

	if lowerName == "authorization" ||
		lowerName == "cookie" ||
		lowerName == "set-cookie" {
		if len(value) < 12 {
			return "****"
		}
		return "****" + value[len(value)-4:]
	}

	return value
}

// MaskJSONFields replaces the values of denylisted fields, at any depth,
// with "[REDACTED]". Field names match case-insensitively.
//
// Bodies that are empty or not JSON are returned unchanged.
func MaskJSONFields(body []byte, denylist []string) []byte {
	if len(body) == 0 || len(denylist) == 0 {
		return body
	}

	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return body
	}

	deny := make(map[string]bool, len(denylist))
	for _, field := range denylist {
		deny[strings.ToLower(field)] = true
	}

	result, err := json.Marshal(maskJSONValue(data, deny))
	if err != nil {
		return body
	}
	return result
}

func maskJSONValue(value any, deny map[string]bool) any {
	switch v := value.(type) {
	case map[string]any:
		result := make(map[string]any, len(v))
		for key, val := range v {
			if deny[strings.ToLower(key)] {
				result[key] = "[REDACTED]"
				continue
			}
			result[key] = maskJSONValue(val, deny)
		}
		return result
	case []any:
		result := make([]any, len(v))
		for i, item := range v {
			result[i] = maskJSONValue(item, deny)
		}
		return result
	default:
		return value
	}
}

// TruncateBody shortens large bodies for debug output.
func TruncateBody(body []byte, limit int) string {
	if limit <= 0 || len(body) <= limit {
		return string(body)
	}
	return string(body[:limit]) + fmt.Sprintf("...[%d more bytes]", len(body)-limit)
}
