package messaging

import "time"

// SessionEventPayload is the JSON body of a session event.
type SessionEventPayload struct {
	Event      SessionEventType `json:"event"`
	UserID     string           `json:"user_id"`
	Count      int64            `json:"count"`
	OccurredAt time.Time        `json:"occurred_at"`
}
