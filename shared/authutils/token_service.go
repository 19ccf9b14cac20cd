package authutils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/shared/interfaces"
	"storefront/shared/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TokenService issues, verifies, rotates and revokes token pairs.
// A refresh token is valid only while its session record exists in the store.
// Access tokens are never looked up in the store.
type TokenService struct {
	codec      *JWTCodec
	sessions   interfaces.SessionRepository
	accessTTL  time.Duration
	refreshTTL time.Duration
	newID      func() string
	logger     *zap.Logger
}

// NewTokenService создает сервис токенов.
func NewTokenService(
	codec *JWTCodec,
	sessions interfaces.SessionRepository,
	accessTTL, refreshTTL time.Duration,
	logger *zap.Logger,
) (*TokenService, error) {
	if codec == nil || sessions == nil {
		return nil, errors.New("token service requires a codec and a session repository")
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, fmt.Errorf("token TTLs must be positive (access=%s, refresh=%s)", accessTTL, refreshTTL)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenService{
		codec:      codec,
		sessions:   sessions,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		newID:      uuid.NewString,
		logger:     logger.Named("TokenService"),
	}, nil
}

func (s *TokenService) AccessTTL() time.Duration  { return s.accessTTL }
func (s *TokenService) RefreshTTL() time.Duration { return s.refreshTTL }

// IssueAccess signs a short-lived access token. Nothing is persisted.
func (s *TokenService) IssueAccess(userID string, permissions []string) (string, error) {
	token, _, err := s.sign(userID, permissions, models.TokenTypeAccess, s.accessTTL)
	return token, err
}

// IssueRefresh signs a refresh token and records its session.
// If the session cannot be stored no token is returned.
func (s *TokenService) IssueRefresh(ctx context.Context, userID string, permissions []string, meta models.SessionMetadata) (string, error) {
	token, tokenID, err := s.sign(userID, permissions, models.TokenTypeRefresh, s.refreshTTL)
	if err != nil {
		return "", err
	}
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = s.codec.Now().UTC()
	}
	if err := s.sessions.Save(ctx, userID, tokenID, meta, s.refreshTTL); err != nil {
		s.logger.Error("Failed to persist refresh session",
			zap.String("userID", userID), zap.String("tokenID", tokenID), zap.Error(err))
		return "", err
	}
	s.logger.Debug("Refresh session created", zap.String("userID", userID), zap.String("tokenID", tokenID))
	return token, nil
}

// IssuePair issues an access token and a refresh token carrying the same permission snapshot.
func (s *TokenService) IssuePair(ctx context.Context, userID string, permissions []string, meta models.SessionMetadata) (*models.TokenPair, error) {
	access, err := s.IssueAccess(userID, permissions)
	if err != nil {
		return nil, err
	}
	refresh, err := s.IssueRefresh(ctx, userID, permissions, meta)
	if err != nil {
		return nil, err
	}
	return &models.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessTTL:    s.accessTTL,
		RefreshTTL:   s.refreshTTL,
	}, nil
}

// VerifyAccess is a pure signature, expiry and type check.
func (s *TokenService) VerifyAccess(tokenString string) (*models.Claims, error) {
	claims, err := s.codec.Decode(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != models.TokenTypeAccess {
		return nil, models.ErrWrongTokenType
	}
	return claims, nil
}

// VerifyRefresh checks the token and then that its session is still present.
func (s *TokenService) VerifyRefresh(ctx context.Context, tokenString string) (*models.Claims, error) {
	claims, err := s.codec.Decode(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != models.TokenTypeRefresh {
		return nil, models.ErrWrongTokenType
	}
	_, found, err := s.sessions.Get(ctx, claims.UserID, claims.ID)
	if err != nil {
		s.logger.Error("Failed to look up refresh session",
			zap.String("userID", claims.UserID), zap.String("tokenID", claims.ID), zap.Error(err))
		return nil, err
	}
	if !found {
		s.logger.Info("Refresh token presented for a revoked session",
			zap.String("userID", claims.UserID), zap.String("tokenID", claims.ID))
		return nil, models.ErrSessionRevoked
	}
	return claims, nil
}

// Rotate exchanges a live refresh token for a new pair.
// The old session is consumed before the new one is written. Only the caller
// whose delete actually removed the record may mint, so a refresh token is
// rotated at most once even under concurrent requests. The permission
// snapshot is carried over unchanged.
func (s *TokenService) Rotate(ctx context.Context, refreshToken string, meta models.SessionMetadata) (*models.TokenPair, *models.Claims, error) {
	claims, err := s.VerifyRefresh(ctx, refreshToken)
	if err != nil {
		return nil, nil, err
	}
	removed, err := s.sessions.Delete(ctx, claims.UserID, claims.ID)
	if err != nil {
		s.logger.Error("Failed to delete rotated session",
			zap.String("userID", claims.UserID), zap.String("tokenID", claims.ID), zap.Error(err))
		return nil, nil, err
	}
	if !removed {
		s.logger.Warn("Refresh session consumed by a concurrent rotation",
			zap.String("userID", claims.UserID), zap.String("tokenID", claims.ID))
		return nil, nil, models.ErrSessionRevoked
	}
	pair, err := s.IssuePair(ctx, claims.UserID, claims.Permissions, meta)
	if err != nil {
		return nil, nil, err
	}
	s.logger.Info("Refresh token rotated", zap.String("userID", claims.UserID), zap.String("oldTokenID", claims.ID))
	return pair, claims, nil
}

// RevokeOne deletes a single session. Unknown sessions are not an error.
func (s *TokenService) RevokeOne(ctx context.Context, userID, tokenID string) error {
	if _, err := s.sessions.Delete(ctx, userID, tokenID); err != nil {
		s.logger.Error("Failed to revoke session",
			zap.String("userID", userID), zap.String("tokenID", tokenID), zap.Error(err))
		return err
	}
	s.logger.Info("Session revoked", zap.String("userID", userID), zap.String("tokenID", tokenID))
	return nil
}

// RevokeAll deletes every session of the user and returns how many were removed.
func (s *TokenService) RevokeAll(ctx context.Context, userID string) (int64, error) {
	count, err := s.sessions.DeleteAll(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to revoke all sessions", zap.String("userID", userID), zap.Error(err))
		return 0, err
	}
	s.logger.Info("All sessions revoked", zap.String("userID", userID), zap.Int64("count", count))
	return count, nil
}

// ListSessions returns the live sessions of the user.
func (s *TokenService) ListSessions(ctx context.Context, userID string) ([]models.SessionRecord, error) {
	return s.sessions.List(ctx, userID)
}

func (s *TokenService) sign(userID string, permissions []string, tokenType models.TokenType, ttl time.Duration) (string, string, error) {
	if userID == "" {
		return "", "", errors.New("cannot issue a token without user id")
	}
	now := s.codec.Now()
	tokenID := s.newID()
	claims := &models.Claims{
		UserID:      userID,
		Permissions: append(make([]string, 0, len(permissions)), permissions...),
		TokenType:   tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token, err := s.codec.Encode(claims)
	if err != nil {
		return "", "", err
	}
	return token, tokenID, nil
}
