package exec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAckOK(t *testing.T) {
	tests := []struct {
		name    string
		payload interface{}
		want    bool
	}{
		{"nil payload", nil, true},
		{"clean ack", map[string]interface{}{"ack": map[string]interface{}{"status": "filled"}}, true},
		{"top-level error key", map[string]interface{}{"error": "boom"}, false},
		{"nested error key", map[string]interface{}{"ack": map[string]interface{}{"errorCode": 42}}, false},
		{"error in string value", map[string]interface{}{"status": "order error: rejected"}, false},
		{"error inside list", map[string]interface{}{"statuses": []interface{}{"resting", "Error: bad px"}}, false},
		{"case insensitive", map[string]interface{}{"Status": "ERROR"}, false},
		{"string map value", map[string]string{"status": "internal error"}, false},
		{"unrelated words pass", map[string]interface{}{"status": "resting", "oid": 7}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AckOK(tt.payload))
		})
	}
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(map[string]interface{}{
		"error": "Order price too far from oracle price",
	}))
	assert.True(t, IsTransient(map[string]interface{}{
		"ack": map[string]interface{}{"error": "Order could not immediately match against any resting orders"},
	}))
	assert.False(t, IsTransient(map[string]interface{}{
		"error": "insufficient margin",
	}))
	assert.False(t, IsTransient(nil))
}
