package authutils

import (
	"strings"
	"testing"
	"time"

	"storefront/shared/models"
	"storefront/shared/testutil"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret-for-unit-tests"

func newTestClaims(now time.Time, ttl time.Duration) *models.Claims {
	return &models.Claims{
		UserID:      "0b5f6a3c-8c44-4a5e-9d7e-3f1f0c9c2a11",
		Permissions: []string{"user.user", "manager.manager"},
		TokenType:   models.TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "tid-1",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}

func TestNewJWTCodec_Validation(t *testing.T) {
	_, err := NewJWTCodec("", "HS256", zap.NewNop())
	assert.Error(t, err, "empty secret must be rejected")

	_, err = NewJWTCodec(testSecret, "RS256", zap.NewNop())
	assert.Error(t, err, "asymmetric algorithms are not supported")

	_, err = NewJWTCodec(testSecret, "none", zap.NewNop())
	assert.Error(t, err)

	for _, alg := range []string{"HS256", "HS384", "HS512"} {
		codec, err := NewJWTCodec(testSecret, alg, zap.NewNop())
		require.NoError(t, err, alg)
		assert.NotNil(t, codec)
	}
}

func TestJWTCodec_RoundTrip(t *testing.T) {
	clock := testutil.NewClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	codec, err := NewJWTCodec(testSecret, "HS256", zap.NewNop(), WithClock(clock.Now))
	require.NoError(t, err)

	claims := newTestClaims(clock.Now(), 15*time.Minute)
	token, err := codec.Encode(claims)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	decoded, err := codec.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, claims.UserID, decoded.UserID)
	assert.Equal(t, claims.Permissions, decoded.Permissions)
	assert.Equal(t, claims.TokenType, decoded.TokenType)
	assert.Equal(t, claims.ID, decoded.ID)
	assert.True(t, claims.ExpiresAt.Equal(decoded.ExpiresAt.Time))
	assert.True(t, claims.IssuedAt.Equal(decoded.IssuedAt.Time))
}

func TestJWTCodec_Encode_RequiresTimestamps(t *testing.T) {
	codec, err := NewJWTCodec(testSecret, "HS256", zap.NewNop())
	require.NoError(t, err)

	claims := newTestClaims(time.Now(), time.Minute)
	claims.ExpiresAt = nil
	_, err = codec.Encode(claims)
	assert.Error(t, err)
}

func TestJWTCodec_Decode_Expired(t *testing.T) {
	clock := testutil.NewClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	codec, err := NewJWTCodec(testSecret, "HS256", zap.NewNop(), WithClock(clock.Now))
	require.NoError(t, err)

	token, err := codec.Encode(newTestClaims(clock.Now(), 15*time.Minute))
	require.NoError(t, err)

	clock.Advance(14 * time.Minute)
	_, err = codec.Decode(token)
	require.NoError(t, err, "token must still be valid before expiry")

	clock.Advance(2 * time.Minute)
	_, err = codec.Decode(token)
	assert.ErrorIs(t, err, models.ErrTokenInvalid)
}

func TestJWTCodec_Decode_Forged(t *testing.T) {
	now := time.Now()
	codec, err := NewJWTCodec(testSecret, "HS256", zap.NewNop())
	require.NoError(t, err)
	other, err := NewJWTCodec("some-other-secret", "HS256", zap.NewNop())
	require.NoError(t, err)

	forged, err := other.Encode(newTestClaims(now, time.Hour))
	require.NoError(t, err)
	_, err = codec.Decode(forged)
	assert.ErrorIs(t, err, models.ErrTokenInvalid, "token signed with a foreign secret")

	valid, err := codec.Encode(newTestClaims(now, time.Hour))
	require.NoError(t, err)
	parts := strings.Split(valid, ".")
	require.Len(t, parts, 3)
	tamperedSig := parts[0] + "." + parts[1] + "." + flipFirstChar(parts[2])
	_, err = codec.Decode(tamperedSig)
	assert.ErrorIs(t, err, models.ErrTokenInvalid, "tampered signature")

	_, err = codec.Decode("not-a-jwt")
	assert.ErrorIs(t, err, models.ErrTokenInvalid, "garbage input")

	_, err = codec.Decode("")
	assert.ErrorIs(t, err, models.ErrTokenInvalid, "empty input")
}

func TestJWTCodec_Decode_RejectsOtherAlgorithms(t *testing.T) {
	now := time.Now()
	codec, err := NewJWTCodec(testSecret, "HS256", zap.NewNop())
	require.NoError(t, err)

	hs512, err := NewJWTCodec(testSecret, "HS512", zap.NewNop())
	require.NoError(t, err)
	token, err := hs512.Encode(newTestClaims(now, time.Hour))
	require.NoError(t, err)
	_, err = codec.Decode(token)
	assert.ErrorIs(t, err, models.ErrTokenInvalid, "same secret but a different algorithm")

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, newTestClaims(now, time.Hour)).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = codec.Decode(unsigned)
	assert.ErrorIs(t, err, models.ErrTokenInvalid, "alg=none")
}

func TestJWTCodec_Decode_MissingClaims(t *testing.T) {
	now := time.Now()
	codec, err := NewJWTCodec(testSecret, "HS256", zap.NewNop())
	require.NoError(t, err)

	noUser := newTestClaims(now, time.Hour)
	noUser.UserID = ""
	token, err := codec.Encode(noUser)
	require.NoError(t, err)
	_, err = codec.Decode(token)
	assert.ErrorIs(t, err, models.ErrTokenInvalid)

	noID := newTestClaims(now, time.Hour)
	noID.ID = ""
	token, err = codec.Encode(noID)
	require.NoError(t, err)
	_, err = codec.Decode(token)
	assert.ErrorIs(t, err, models.ErrTokenInvalid)
}

// flipFirstChar меняет первый символ сегмента. Последний символ base64 может
// нести неиспользуемые биты, поэтому его замена не всегда меняет подпись.
func flipFirstChar(s string) string {
	replacement := "A"
	if s[0] == 'A' {
		replacement = "B"
	}
	return replacement + s[1:]
}
