package service

import (
	"context"

	"storefront/shared/models"
)

// AuthService covers registration and the session lifecycle behind the cookie transport.
type AuthService interface {
	Register(ctx context.Context, email, name, password string) (*models.User, error)
	// Login returns a new token pair. Wrong email and wrong password both yield models.ErrInvalidCredentials.
	Login(ctx context.Context, email, password string, meta models.SessionMetadata) (*models.TokenPair, error)
	// Refresh rotates the refresh token; a replayed token yields models.ErrSessionRevoked.
	Refresh(ctx context.Context, refreshToken string, meta models.SessionMetadata) (*models.TokenPair, error)
	// Logout revokes the session of this refresh token only.
	Logout(ctx context.Context, refreshToken string) error
	// LogoutAll revokes every session of the token's owner and returns how many were removed.
	LogoutAll(ctx context.Context, refreshToken string) (int64, error)
	Me(ctx context.Context, userID string) (*models.Identity, error)
	Sessions(ctx context.Context, userID string) ([]models.SessionRecord, error)
}

// RoleService - управление ролями, разрешениями и пользователями (для manager.manager).
type RoleService interface {
	ListRoles(ctx context.Context) ([]models.Role, error)
	CreateRole(ctx context.Context, name, description string, permissions []string) (*models.Role, error)
	CreatePermission(ctx context.Context, code, description string) (*models.Permission, error)
	UpdateUser(ctx context.Context, upd models.UserUpdate) (*models.User, error)
}
