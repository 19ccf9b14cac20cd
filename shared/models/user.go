package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a user in the system.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	Name         string    `db:"name" json:"name"`
	PasswordHash string    `db:"password_hash" json:"-"` // Не отдаем хеш пароля
	RoleID       *int      `db:"role_id" json:"role_id,omitempty"`
	Role         *Role     `db:"-" json:"role,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// Identity is what the token service needs about an authenticated user:
// the id and the permission snapshot taken at authentication time.
type Identity struct {
	UserID      string   `json:"id"`
	Email       string   `json:"email"`
	Name        string   `json:"name"`
	Permissions []string `json:"-"`
	// DisplayRole is the role name, or UnknownRole.
	DisplayRole string `json:"role"`
}

// UserUpdate carries the optional fields of an admin user edit.
type UserUpdate struct {
	ID     uuid.UUID
	Email  *string
	Name   *string
	RoleID *int
}
