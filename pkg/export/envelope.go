package export

import "github.com/esgarath/wardenlevel/pkg/changelog"

// Envelope wraps a change event with its store-assigned document key. The
// key gives downstream consumers a stable idempotency handle, so a
// redelivered envelope archives as a no-op.
type Envelope struct {
	ID    string          `json:"id"`
	Event changelog.Event `json:"event"`
}
