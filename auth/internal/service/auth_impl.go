package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"storefront/shared/authutils"
	"storefront/shared/interfaces"
	"storefront/shared/models"

	"go.uber.org/zap"
)

const (
	minPasswordLength = 8
	minNameLength     = 2
	maxNameLength     = 100
)

// Compile-time check to ensure authServiceImpl implements AuthService
var _ AuthService = (*authServiceImpl)(nil)

type authServiceImpl struct {
	users     interfaces.UserRepository
	roles     interfaces.RoleRepository
	identity  interfaces.IdentityProvider
	tokens    *authutils.TokenService
	publisher interfaces.SessionEventPublisher
	pepper    string
	logger    *zap.Logger
}

// NewAuthService creates a new instance of authServiceImpl.
func NewAuthService(
	users interfaces.UserRepository,
	roles interfaces.RoleRepository,
	identity interfaces.IdentityProvider,
	tokens *authutils.TokenService,
	publisher interfaces.SessionEventPublisher,
	pepper string,
	logger *zap.Logger,
) AuthService {
	return &authServiceImpl{
		users:     users,
		roles:     roles,
		identity:  identity,
		tokens:    tokens,
		publisher: publisher,
		pepper:    pepper,
		logger:    logger.Named("AuthService"),
	}
}

// Register creates a new user with the default "user" role.
func (s *authServiceImpl) Register(ctx context.Context, email, name, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	logFields := []zap.Field{zap.String("email", email)}
	s.logger.Info("Registering new user", logFields...)

	if _, err := mail.ParseAddress(email); err != nil {
		s.logger.Warn("Registration attempt with invalid email format", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("%w: invalid email format", models.ErrInvalidInput)
	}
	if n := utf8.RuneCountInString(name); n < minNameLength || n > maxNameLength {
		return nil, fmt.Errorf("%w: name must be %d to %d characters", models.ErrInvalidInput, minNameLength, maxNameLength)
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", models.ErrInvalidInput, minPasswordLength)
	}

	hashedPassword, err := hashPassword(password, s.pepper)
	if err != nil {
		s.logger.Error("Failed to hash password during registration", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{Email: email, Name: name, PasswordHash: hashedPassword}
	role, err := s.roles.GetRoleByName(ctx, models.RoleUser)
	switch {
	case err == nil:
		user.RoleID = &role.ID
		user.Role = role
	case errors.Is(err, models.ErrRoleNotFound):
		s.logger.Warn("Default role is missing, registering user without role", logFields...)
	default:
		return nil, fmt.Errorf("failed to load default role: %w", err)
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("User registered successfully", zap.Stringer("userID", user.ID), zap.String("email", user.Email))
	return user, nil
}

// Login authenticates the user and opens a new refresh session.
func (s *authServiceImpl) Login(ctx context.Context, email, password string, meta models.SessionMetadata) (*models.TokenPair, error) {
	identity, err := s.identity.FindByCredentials(ctx, email, password)
	if err != nil {
		return nil, err
	}
	pair, err := s.tokens.IssuePair(ctx, identity.UserID, identity.Permissions, meta)
	if err != nil {
		s.logger.Error("Failed to issue tokens on login", zap.String("userID", identity.UserID), zap.Error(err))
		return nil, err
	}
	s.logger.Info("User logged in", zap.String("userID", identity.UserID), zap.String("ip", meta.IP))
	return pair, nil
}

// Refresh rotates the refresh token. Разрешения переносятся из старого токена без обращения к БД.
func (s *authServiceImpl) Refresh(ctx context.Context, refreshToken string, meta models.SessionMetadata) (*models.TokenPair, error) {
	if refreshToken == "" {
		return nil, models.ErrUnauthorized
	}
	pair, _, err := s.tokens.Rotate(ctx, refreshToken, meta)
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// Logout удаляет одну сессию. Ошибки возвращаются, но обработчик все равно чистит cookies.
func (s *authServiceImpl) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return models.ErrUnauthorized
	}
	claims, err := s.tokens.VerifyRefresh(ctx, refreshToken)
	if err != nil {
		return err
	}
	if err := s.tokens.RevokeOne(ctx, claims.UserID, claims.ID); err != nil {
		return err
	}
	s.logger.Info("User logged out", zap.String("userID", claims.UserID))
	return nil
}

// LogoutAll revokes every session of the token's owner and announces it.
func (s *authServiceImpl) LogoutAll(ctx context.Context, refreshToken string) (int64, error) {
	if refreshToken == "" {
		return 0, models.ErrUnauthorized
	}
	claims, err := s.tokens.VerifyRefresh(ctx, refreshToken)
	if err != nil {
		return 0, err
	}
	count, err := s.tokens.RevokeAll(ctx, claims.UserID)
	if err != nil {
		return 0, err
	}
	// Публикация best-effort: сессии уже удалены.
	if err := s.publisher.PublishSessionsRevoked(ctx, claims.UserID, count); err != nil {
		s.logger.Warn("Failed to publish sessions revoked event", zap.String("userID", claims.UserID), zap.Error(err))
	}
	s.logger.Info("User logged out from all devices", zap.String("userID", claims.UserID), zap.Int64("sessions", count))
	return count, nil
}

func (s *authServiceImpl) Me(ctx context.Context, userID string) (*models.Identity, error) {
	return s.identity.FindByID(ctx, userID)
}

func (s *authServiceImpl) Sessions(ctx context.Context, userID string) ([]models.SessionRecord, error) {
	return s.tokens.ListSessions(ctx, userID)
}
