package exec

import (
	"encoding/json"
	"fmt"
	"strings"
)

// transientErrors are venue-side conditions worth retrying. Anything else
// in a failed ack is permanent.
var transientErrors = []string{
	"price too far from oracle",
	"could not immediately match",
}

// AckOK reports whether an acknowledgment payload is a success. An ack is
// ok iff the token "error" appears nowhere in its structure, including
// keys, string values, nested maps and lists. Documented loose heuristic:
// swap this function for venue-typed parsing without touching the
// dispatcher.
func AckOK(payload interface{}) bool {
	return !containsErrorToken(payload)
}

func containsErrorToken(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return strings.Contains(strings.ToLower(val), "error")
	case map[string]interface{}:
		for key, nested := range val {
			if strings.Contains(strings.ToLower(key), "error") {
				return true
			}
			if containsErrorToken(nested) {
				return true
			}
		}
		return false
	case []interface{}:
		for _, item := range val {
			if containsErrorToken(item) {
				return true
			}
		}
		return false
	case map[string]string:
		for key, nested := range val {
			if strings.Contains(strings.ToLower(key), "error") || strings.Contains(strings.ToLower(nested), "error") {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// IsTransient reports whether a failed payload matches a known-transient
// venue error. Matching is textual against the rendered payload.
func IsTransient(payload interface{}) bool {
	text := strings.ToLower(renderPayload(payload))
	for _, marker := range transientErrors {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

func renderPayload(payload interface{}) string {
	if payload == nil {
		return ""
	}
	if raw, err := json.Marshal(payload); err == nil {
		return string(raw)
	}
	return fmt.Sprintf("%v", payload)
}
