package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront/shared/interfaces"
	"storefront/shared/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var _ interfaces.IdentityProvider = (*identityProvider)(nil)

// identityProvider resolves users stored in PostgreSQL into identities with a
// permission snapshot taken from their role.
type identityProvider struct {
	users  interfaces.UserRepository
	pepper string
	// dummyHash сравнивается при неизвестном email, чтобы время ответа не выдавало
	// существование пользователя.
	dummyHash string
	logger    *zap.Logger
}

// NewIdentityProvider creates the PostgreSQL-backed identity provider.
func NewIdentityProvider(users interfaces.UserRepository, pepper string, logger *zap.Logger) (interfaces.IdentityProvider, error) {
	dummyHash, err := hashPassword("timing-equalizer", pepper)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare password hasher: %w", err)
	}
	return &identityProvider{
		users:     users,
		pepper:    pepper,
		dummyHash: dummyHash,
		logger:    logger.Named("IdentityProvider"),
	}, nil
}

func (p *identityProvider) FindByCredentials(ctx context.Context, email, password string) (*models.Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := p.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			checkPasswordHash(password, p.dummyHash, p.pepper)
			p.logger.Info("Login attempt for unknown email", zap.String("email", email))
			return nil, models.ErrInvalidCredentials
		}
		p.logger.Error("Failed to load user for login", zap.String("email", email), zap.Error(err))
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if !checkPasswordHash(password, user.PasswordHash, p.pepper) {
		p.logger.Info("Login attempt with wrong password", zap.Stringer("userID", user.ID))
		return nil, models.ErrInvalidCredentials
	}
	return identityFromUser(user), nil
}

func (p *identityProvider) FindByID(ctx context.Context, userID string) (*models.Identity, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		p.logger.Warn("Malformed user id", zap.String("userID", userID))
		return nil, models.ErrUserNotFound
	}
	user, err := p.users.GetUserByID(ctx, id)
	if err != nil {
		if !errors.Is(err, models.ErrUserNotFound) {
			p.logger.Error("Failed to load user by id", zap.String("userID", userID), zap.Error(err))
		}
		return nil, err
	}
	return identityFromUser(user), nil
}

func identityFromUser(user *models.User) *models.Identity {
	identity := &models.Identity{
		UserID:      user.ID.String(),
		Email:       user.Email,
		Name:        user.Name,
		Permissions: user.Role.PermissionCodes(),
		DisplayRole: models.UnknownRole,
	}
	if user.Role != nil {
		identity.DisplayRole = user.Role.Name
	}
	return identity
}
