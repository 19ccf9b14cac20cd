package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront/shared/authutils"
	"storefront/shared/models"
	"storefront/shared/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const gateUserID = "9f0c1d2e-3b4a-4c5d-8e7f-6a5b4c3d2e1f"

type gateFixture struct {
	clock  *testutil.Clock
	tokens *authutils.TokenService
	router *gin.Engine
}

func newGateFixture(t *testing.T) *gateFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clock := testutil.NewClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	codec, err := authutils.NewJWTCodec("gate-test-secret", "HS256", zap.NewNop(), authutils.WithClock(clock.Now))
	require.NoError(t, err)
	tokens, err := authutils.NewTokenService(codec, testutil.NewMemorySessions(clock), 15*time.Minute, time.Hour, zap.NewNop())
	require.NoError(t, err)

	router := gin.New()
	router.GET("/me", RequireAccess(tokens, zap.NewNop()), func(c *gin.Context) {
		claims, ok := ClaimsFromContext(c)
		require.True(t, ok)
		ctxUserID, ok := models.GetUserIDFromContext(c.Request.Context())
		require.True(t, ok)
		assert.Equal(t, claims.UserID, ctxUserID)
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString(ContextUserIDKey)})
	})
	router.GET("/manage", RequireAccess(tokens, zap.NewNop(), models.PermissionManager), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	router.GET("/both", RequireAccess(tokens, zap.NewNop(), models.PermissionUser, models.PermissionManager), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	return &gateFixture{clock: clock, tokens: tokens, router: router}
}

func (f *gateFixture) do(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func accessCookie(token string) *http.Cookie {
	return &http.Cookie{Name: AccessTokenCookie, Value: token}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var body models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRequireAccess_NoCookie(t *testing.T) {
	f := newGateFixture(t)
	rec := f.do("/me")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, models.ErrCodeUnauthenticated, body.Code)
	assert.Equal(t, "authentication required", body.Message)
}

func TestRequireAccess_ValidToken(t *testing.T) {
	f := newGateFixture(t)
	token, err := f.tokens.IssueAccess(gateUserID, []string{models.PermissionUser})
	require.NoError(t, err)

	rec := f.do("/me", accessCookie(token))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":"`+gateUserID+`"}`, rec.Body.String())
}

func TestRequireAccess_UniformUnauthenticated(t *testing.T) {
	f := newGateFixture(t)
	ctx := t.Context()

	refresh, err := f.tokens.IssueRefresh(ctx, gateUserID, nil, models.SessionMetadata{})
	require.NoError(t, err)
	expired, err := f.tokens.IssueAccess(gateUserID, nil)
	require.NoError(t, err)
	f.clock.Advance(16 * time.Minute)

	cases := map[string]string{
		"garbage":       "not-a-token",
		"refresh token": refresh,
		"expired":       expired,
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			rec := f.do("/me", accessCookie(token))
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "authentication required", decodeError(t, rec).Message, "all failures look the same")
		})
	}
}

func TestRequireAccess_MissingPermission(t *testing.T) {
	f := newGateFixture(t)
	token, err := f.tokens.IssueAccess(gateUserID, []string{models.PermissionUser})
	require.NoError(t, err)

	rec := f.do("/manage", accessCookie(token))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, models.ErrCodeForbidden, body.Code)
	assert.Equal(t, "insufficient permission", body.Message)
}

func TestRequireAccess_AllPermissionsRequired(t *testing.T) {
	f := newGateFixture(t)

	onlyManager, err := f.tokens.IssueAccess(gateUserID, []string{models.PermissionManager})
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, f.do("/both", accessCookie(onlyManager)).Code)

	both, err := f.tokens.IssueAccess(gateUserID, []string{models.PermissionUser, models.PermissionManager})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, f.do("/both", accessCookie(both)).Code)
	assert.Equal(t, http.StatusNoContent, f.do("/manage", accessCookie(both)).Code)
}
