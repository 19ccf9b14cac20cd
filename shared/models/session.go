package models

import "time"

// SessionMetadata - данные клиента, сохраняемые вместе с refresh-сессией.
type SessionMetadata struct {
	UserAgent string    `json:"user_agent"`
	IP        string    `json:"ip"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionRecord is one live refresh session as listed for a user.
type SessionRecord struct {
	UserID   string          `json:"user_id"`
	TokenID  string          `json:"token_id"`
	Metadata SessionMetadata `json:"metadata"`
	// TTL is the remaining lifetime reported by the store.
	TTL time.Duration `json:"-"`
}
