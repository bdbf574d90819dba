// Package notify delivers admin alerts; delivery is fire-and-forget and a
// failed send never propagates to the admission path.
package notify

import (
	"fmt"
	"sort"
	"strings"

	"github.com/containrrr/shoutrrr"

	"github.com/argussec/argus/internal/logger"
)

// Notifier sends an alert payload to the configured channels.
type Notifier interface {
	Alert(payload map[string]interface{}) error
}

// ShoutrrrNotifier pushes alerts to one or more shoutrrr service URLs
// (discord, slack, smtp, generic webhooks, ...).
type ShoutrrrNotifier struct {
	urls []string
}

// NewShoutrrrNotifier builds a notifier for the given service URLs.
func NewShoutrrrNotifier(urls []string) *ShoutrrrNotifier {
	return &ShoutrrrNotifier{urls: urls}
}

// Alert formats the payload and sends it to every configured URL. Failures
// are logged per destination and the first error is returned for metrics;
// callers do not roll anything back on error.
func (n *ShoutrrrNotifier) Alert(payload map[string]interface{}) error {
	if len(n.urls) == 0 {
		return nil
	}

	message := formatPayload(payload)

	var firstErr error
	for _, url := range n.urls {
		if err := shoutrrr.Send(url, message); err != nil {
			logger.WithFields(map[string]interface{}{"error": err.Error()}).
				Warn("Failed to deliver security alert")
			if firstErr == nil {
				firstErr = fmt.Errorf("send alert: %w", err)
			}
		}
	}
	return firstErr
}

func formatPayload(payload map[string]interface{}) string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("Argus security alert")
	for _, k := range keys {
		fmt.Fprintf(&b, "\n%s: %v", k, payload[k])
	}
	return b.String()
}

// NopNotifier discards alerts; used when no alert URLs are configured.
type NopNotifier struct{}

func (NopNotifier) Alert(map[string]interface{}) error { return nil }
