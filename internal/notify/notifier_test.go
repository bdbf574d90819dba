package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatPayload_StableOrder(t *testing.T) {
	payload := map[string]interface{}{
		"level":     "high",
		"ip":        "203.0.113.4",
		"attack":    "ddos",
		"mitigated": true,
	}

	got := formatPayload(payload)
	want := "Argus security alert\nattack: ddos\nip: 203.0.113.4\nlevel: high\nmitigated: true"
	assert.Equal(t, want, got)
}

func TestShoutrrrNotifier_NoURLs(t *testing.T) {
	n := NewShoutrrrNotifier(nil)
	assert.NoError(t, n.Alert(map[string]interface{}{"level": "low"}))
}

func TestNopNotifier(t *testing.T) {
	assert.NoError(t, NopNotifier{}.Alert(nil))
}
