package interfaces

import (
	"context"

	"storefront/shared/models"
)

// IdentityProvider resolves credentials or a verified user id into an identity
// with its permission snapshot.
type IdentityProvider interface {
	// FindByCredentials returns models.ErrInvalidCredentials for an unknown email
	// and for a wrong password alike.
	FindByCredentials(ctx context.Context, email, password string) (*models.Identity, error)
	// FindByID returns models.ErrUserNotFound when the user does not exist.
	FindByID(ctx context.Context, userID string) (*models.Identity, error)
}

// AccessVerifier is everything the request boundary needs from the token service.
type AccessVerifier interface {
	VerifyAccess(tokenString string) (*models.Claims, error)
}
