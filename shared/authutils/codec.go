package authutils

import (
	"errors"
	"fmt"
	"time"

	"storefront/shared/models"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// JWTCodec signs and verifies claim sets with a shared HMAC secret.
// It has no I/O and no mutable state, so one instance is shared by all requests.
type JWTCodec struct {
	secret []byte
	method jwt.SigningMethod
	now    func() time.Time
	logger *zap.Logger
}

// CodecOption tunes a JWTCodec.
type CodecOption func(*JWTCodec)

// WithClock replaces time.Now for issuing and expiry checks.
func WithClock(now func() time.Time) CodecOption {
	return func(c *JWTCodec) {
		if now != nil {
			c.now = now
		}
	}
}

// NewJWTCodec создает кодек. Поддерживаются только HMAC алгоритмы (HS256, HS384, HS512).
func NewJWTCodec(secret, algorithm string, logger *zap.Logger, opts ...CodecOption) (*JWTCodec, error) {
	if secret == "" {
		return nil, errors.New("JWT secret cannot be empty")
	}
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported JWT algorithm %q", algorithm)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &JWTCodec{
		secret: []byte(secret),
		method: method,
		now:    time.Now,
		logger: logger.Named("JWTCodec"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Now returns the codec's notion of the current time.
func (c *JWTCodec) Now() time.Time {
	return c.now()
}

// Encode signs the claims. IssuedAt and ExpiresAt must already be set.
func (c *JWTCodec) Encode(claims *models.Claims) (string, error) {
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return "", errors.New("claims must carry issued_at and expires_at")
	}
	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
	if err != nil {
		c.logger.Error("Failed to sign token", zap.Error(err), zap.String("userID", claims.UserID))
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies signature and expiry and returns the claims.
// Every failure, forged or expired alike, is reported as models.ErrTokenInvalid.
func (c *JWTCodec) Decode(tokenString string) (*models.Claims, error) {
	claims := &models.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (interface{}, error) {
			return c.secret, nil
		},
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		c.logger.Debug("Token rejected", zap.Error(err), zap.String("tokenSnippet", tokenSnippet(tokenString)))
		return nil, models.ErrTokenInvalid
	}
	if !token.Valid || claims.UserID == "" || claims.ID == "" {
		c.logger.Debug("Token rejected: incomplete claims", zap.String("tokenSnippet", tokenSnippet(tokenString)))
		return nil, models.ErrTokenInvalid
	}
	return claims, nil
}

// tokenSnippet возвращает безопасную для логгирования часть токена.
func tokenSnippet(tokenString string) string {
	limit := 15
	if len(tokenString) > limit {
		return tokenString[:limit] + "..."
	}
	return tokenString
}
