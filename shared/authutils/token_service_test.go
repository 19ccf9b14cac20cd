package authutils

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"storefront/shared/models"
	"storefront/shared/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testAccessTTL  = 15 * time.Minute
	testRefreshTTL = 7 * 24 * time.Hour
	testUserID     = "5d1f2b4e-6a0c-4c39-8a5b-2c8f7e0d9b31"
)

type tokenFixture struct {
	clock    *testutil.Clock
	sessions *testutil.MemorySessions
	tokens   *TokenService
}

func newTokenFixture(t *testing.T) *tokenFixture {
	t.Helper()
	clock := testutil.NewClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	codec, err := NewJWTCodec(testSecret, "HS256", zap.NewNop(), WithClock(clock.Now))
	require.NoError(t, err)
	sessions := testutil.NewMemorySessions(clock)
	tokens, err := NewTokenService(codec, sessions, testAccessTTL, testRefreshTTL, zap.NewNop())
	require.NoError(t, err)
	return &tokenFixture{clock: clock, sessions: sessions, tokens: tokens}
}

func testMeta() models.SessionMetadata {
	return models.SessionMetadata{UserAgent: "Mozilla/5.0 (X11; Linux x86_64)", IP: "203.0.113.7"}
}

func TestNewTokenService_Validation(t *testing.T) {
	codec, err := NewJWTCodec(testSecret, "HS256", zap.NewNop())
	require.NoError(t, err)
	sessions := testutil.NewMemorySessions(testutil.NewClock(time.Now()))

	_, err = NewTokenService(nil, sessions, time.Minute, time.Hour, nil)
	assert.Error(t, err)
	_, err = NewTokenService(codec, nil, time.Minute, time.Hour, nil)
	assert.Error(t, err)
	_, err = NewTokenService(codec, sessions, 0, time.Hour, nil)
	assert.Error(t, err)
	_, err = NewTokenService(codec, sessions, time.Minute, -time.Hour, nil)
	assert.Error(t, err)
}

func TestVerifyAccess_RoundTripAndExpiry(t *testing.T) {
	f := newTokenFixture(t)

	token, err := f.tokens.IssueAccess(testUserID, []string{models.PermissionUser})
	require.NoError(t, err)

	claims, err := f.tokens.VerifyAccess(token)
	require.NoError(t, err)
	assert.Equal(t, testUserID, claims.UserID)
	assert.Equal(t, []string{models.PermissionUser}, claims.Permissions)
	assert.Equal(t, models.TokenTypeAccess, claims.TokenType)
	assert.Equal(t, 0, f.sessions.Count(testUserID), "access tokens are never persisted")

	f.clock.Advance(16 * time.Minute)
	_, err = f.tokens.VerifyAccess(token)
	assert.ErrorIs(t, err, models.ErrTokenInvalid)
}

func TestIssueAccess_CopiesPermissions(t *testing.T) {
	f := newTokenFixture(t)
	perms := []string{models.PermissionUser, models.PermissionManager}

	token, err := f.tokens.IssueAccess(testUserID, perms)
	require.NoError(t, err)
	perms[0] = "tampered"

	claims, err := f.tokens.VerifyAccess(token)
	require.NoError(t, err)
	assert.Equal(t, []string{models.PermissionUser, models.PermissionManager}, claims.Permissions)
}

func TestIssueAccess_EmptyUserID(t *testing.T) {
	f := newTokenFixture(t)
	_, err := f.tokens.IssueAccess("", nil)
	assert.Error(t, err)
}

func TestWrongTokenType(t *testing.T) {
	f := newTokenFixture(t)
	ctx := context.Background()

	access, err := f.tokens.IssueAccess(testUserID, nil)
	require.NoError(t, err)
	refresh, err := f.tokens.IssueRefresh(ctx, testUserID, nil, testMeta())
	require.NoError(t, err)

	_, err = f.tokens.VerifyRefresh(ctx, access)
	assert.ErrorIs(t, err, models.ErrWrongTokenType)
	_, err = f.tokens.VerifyAccess(refresh)
	assert.ErrorIs(t, err, models.ErrWrongTokenType)
	assert.True(t, models.IsAuthError(err))
}

func TestIssueRefresh_PersistsSession(t *testing.T) {
	f := newTokenFixture(t)
	ctx := context.Background()

	refresh, err := f.tokens.IssueRefresh(ctx, testUserID, []string{models.PermissionUser}, testMeta())
	require.NoError(t, err)

	claims, err := f.tokens.VerifyRefresh(ctx, refresh)
	require.NoError(t, err)
	assert.Equal(t, models.TokenTypeRefresh, claims.TokenType)

	meta, found, err := f.sessions.Get(ctx, testUserID, claims.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "203.0.113.7", meta.IP)
	assert.Equal(t, f.clock.Now(), meta.CreatedAt)

	records, err := f.tokens.ListSessions(ctx, testUserID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, claims.ID, records[0].TokenID)
	assert.Equal(t, testRefreshTTL, records[0].TTL)
}

func TestIssueRefresh_FailsClosed(t *testing.T) {
	f := newTokenFixture(t)
	storeErr := errors.Join(models.ErrStoreUnavailable, context.DeadlineExceeded)
	f.sessions.Err = storeErr

	token, err := f.tokens.IssueRefresh(context.Background(), testUserID, nil, testMeta())
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
	assert.Empty(t, token, "no token may be handed out without a session")

	pair, err := f.tokens.IssuePair(context.Background(), testUserID, nil, testMeta())
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
	assert.Nil(t, pair)
}

func TestVerifyRefresh_StoreErrorIsNotAuthError(t *testing.T) {
	f := newTokenFixture(t)
	ctx := context.Background()
	refresh, err := f.tokens.IssueRefresh(ctx, testUserID, nil, testMeta())
	require.NoError(t, err)

	f.sessions.Err = models.ErrStoreUnavailable
	_, err = f.tokens.VerifyRefresh(ctx, refresh)
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
	assert.False(t, models.IsAuthError(err), "a store outage must not look like a revoked session")
}

func TestRotate_OneTimeUse(t *testing.T) {
	f := newTokenFixture(t)
	ctx := context.Background()
	perms := []string{models.PermissionUser, models.PermissionManager}

	original, err := f.tokens.IssueRefresh(ctx, testUserID, perms, testMeta())
	require.NoError(t, err)
	originalClaims, err := f.tokens.VerifyRefresh(ctx, original)
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	newMeta := models.SessionMetadata{UserAgent: "curl/8.5.0", IP: "198.51.100.4"}
	pair, oldClaims, err := f.tokens.Rotate(ctx, original, newMeta)
	require.NoError(t, err)
	require.NotNil(t, pair)
	assert.Equal(t, originalClaims.ID, oldClaims.ID)
	assert.Equal(t, testAccessTTL, pair.AccessTTL)
	assert.Equal(t, testRefreshTTL, pair.RefreshTTL)

	_, found, err := f.sessions.Get(ctx, testUserID, originalClaims.ID)
	require.NoError(t, err)
	assert.False(t, found, "old session must be gone after rotation")

	newRefresh, err := f.tokens.VerifyRefresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, originalClaims.ID, newRefresh.ID)
	assert.Equal(t, testUserID, newRefresh.UserID)
	assert.Equal(t, perms, newRefresh.Permissions)

	newAccess, err := f.tokens.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, testUserID, newAccess.UserID)
	assert.Equal(t, perms, newAccess.Permissions)

	meta, found, err := f.sessions.Get(ctx, testUserID, newRefresh.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "curl/8.5.0", meta.UserAgent)

	_, _, err = f.tokens.Rotate(ctx, original, newMeta)
	assert.ErrorIs(t, err, models.ErrSessionRevoked, "replay of a rotated token")
	assert.Equal(t, 1, f.sessions.Count(testUserID))
}

// gatedSessions задерживает Get, пока его не вызовут все участники гонки.
type gatedSessions struct {
	*testutil.MemorySessions
	arrivals sync.WaitGroup
}

func (g *gatedSessions) Get(ctx context.Context, userID, tokenID string) (*models.SessionMetadata, bool, error) {
	meta, found, err := g.MemorySessions.Get(ctx, userID, tokenID)
	g.arrivals.Done()
	g.arrivals.Wait()
	return meta, found, err
}

func TestRotate_ConcurrentRotationsOfOneToken(t *testing.T) {
	const racers = 4
	f := newTokenFixture(t)
	ctx := context.Background()

	refresh, err := f.tokens.IssueRefresh(ctx, testUserID, []string{models.PermissionUser}, testMeta())
	require.NoError(t, err)

	gated := &gatedSessions{MemorySessions: f.sessions}
	gated.arrivals.Add(racers)
	tokens, err := NewTokenService(f.tokens.codec, gated, testAccessTTL, testRefreshTTL, zap.NewNop())
	require.NoError(t, err)

	var succeeded, revoked atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := tokens.Rotate(ctx, refresh, testMeta())
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, models.ErrSessionRevoked):
				revoked.Add(1)
			default:
				t.Errorf("unexpected rotation error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load(), "a refresh token rotates at most once")
	assert.Equal(t, int32(racers-1), revoked.Load())
	assert.Equal(t, 1, f.sessions.Count(testUserID))
}

func TestRotate_RejectsAccessToken(t *testing.T) {
	f := newTokenFixture(t)
	access, err := f.tokens.IssueAccess(testUserID, nil)
	require.NoError(t, err)

	_, _, err = f.tokens.Rotate(context.Background(), access, testMeta())
	assert.ErrorIs(t, err, models.ErrWrongTokenType)
}

func TestRefreshExpiry(t *testing.T) {
	f := newTokenFixture(t)
	ctx := context.Background()
	refresh, err := f.tokens.IssueRefresh(ctx, testUserID, nil, testMeta())
	require.NoError(t, err)

	f.clock.Advance(testRefreshTTL + time.Second)
	_, err = f.tokens.VerifyRefresh(ctx, refresh)
	assert.ErrorIs(t, err, models.ErrTokenInvalid, "codec expiry fires before the store lookup")
}

func TestRevokeOne(t *testing.T) {
	f := newTokenFixture(t)
	ctx := context.Background()

	require.NoError(t, f.tokens.RevokeOne(ctx, testUserID, "no-such-token-id"))

	refresh, err := f.tokens.IssueRefresh(ctx, testUserID, nil, testMeta())
	require.NoError(t, err)
	claims, err := f.tokens.VerifyRefresh(ctx, refresh)
	require.NoError(t, err)

	require.NoError(t, f.tokens.RevokeOne(ctx, testUserID, claims.ID))
	_, err = f.tokens.VerifyRefresh(ctx, refresh)
	assert.ErrorIs(t, err, models.ErrSessionRevoked)

	require.NoError(t, f.tokens.RevokeOne(ctx, testUserID, claims.ID), "second revoke is a no-op")
}

func TestRevokeAll(t *testing.T) {
	f := newTokenFixture(t)
	ctx := context.Background()
	const otherUser = "e2a8a4a1-0f3e-4d1b-9a54-7d0b2c6f1e90"

	var issued []string
	for i := 0; i < 3; i++ {
		token, err := f.tokens.IssueRefresh(ctx, testUserID, nil, testMeta())
		require.NoError(t, err)
		issued = append(issued, token)
	}
	otherToken, err := f.tokens.IssueRefresh(ctx, otherUser, nil, testMeta())
	require.NoError(t, err)

	count, err := f.tokens.RevokeAll(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	for _, token := range issued {
		_, err := f.tokens.VerifyRefresh(ctx, token)
		assert.ErrorIs(t, err, models.ErrSessionRevoked)
	}

	_, err = f.tokens.VerifyRefresh(ctx, otherToken)
	assert.NoError(t, err, "other users keep their sessions")

	fresh, err := f.tokens.IssueRefresh(ctx, testUserID, nil, testMeta())
	require.NoError(t, err)
	_, err = f.tokens.VerifyRefresh(ctx, fresh)
	assert.NoError(t, err, "a token issued after revoke_all is valid")

	count, err = f.tokens.RevokeAll(ctx, "unknown-user")
	require.NoError(t, err)
	assert.Zero(t, count)
}
