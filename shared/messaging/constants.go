package messaging

// Exchange Names
const (
	// SessionEventsExchangeName - fanout exchange с событиями жизненного цикла сессий.
	SessionEventsExchangeName = "auth.sessions"
	sessionEventsExchangeType = "fanout"
)

// SessionEventType определяет тип события сессии.
type SessionEventType string

const (
	SessionEventRevoked SessionEventType = "sessions.revoked"
)
