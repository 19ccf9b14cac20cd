package middleware

import (
	"net/http"

	"storefront/shared/interfaces"
	"storefront/shared/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Cookie names of the token transport.
const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
)

// Keys under which the gate stores the verified identity in gin.Context.
const (
	ContextUserIDKey      = "user_id"
	ContextPermissionsKey = "permissions"
	ContextClaimsKey      = "claims"
)

const (
	msgAuthenticationRequired = "authentication required"
	msgInsufficientPermission = "insufficient permission"
)

// RequireAccess создает gin middleware, которое пропускает запрос только с валидным
// access токеном из cookie и со всеми перечисленными кодами разрешений.
// Любая ошибка токена отдается одинаковым 401, нехватка разрешения - 403.
// Хранилище сессий не трогается.
func RequireAccess(verifier interfaces.AccessVerifier, logger *zap.Logger, permissions ...string) gin.HandlerFunc {
	log := logger.Named("AccessGate")
	required := append([]string(nil), permissions...)

	return func(c *gin.Context) {
		tokenString, err := c.Cookie(AccessTokenCookie)
		if err != nil || tokenString == "" {
			log.Debug("Access token cookie missing", zap.String("path", c.FullPath()))
			gateDecisions.WithLabelValues("unauthenticated").Inc()
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
				Code:    models.ErrCodeUnauthenticated,
				Message: msgAuthenticationRequired,
			})
			return
		}

		claims, err := verifier.VerifyAccess(tokenString)
		if err != nil {
			if !models.IsAuthError(err) {
				log.Error("Unexpected access token verification error", zap.Error(err))
			} else {
				log.Debug("Access token rejected", zap.Error(err), zap.String("path", c.FullPath()))
			}
			gateDecisions.WithLabelValues("unauthenticated").Inc()
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
				Code:    models.ErrCodeUnauthenticated,
				Message: msgAuthenticationRequired,
			})
			return
		}

		for _, code := range required {
			if !claims.HasPermission(code) {
				log.Info("Permission denied",
					zap.String("userID", claims.UserID),
					zap.String("required", code),
					zap.String("path", c.FullPath()),
				)
				gateDecisions.WithLabelValues("forbidden").Inc()
				c.AbortWithStatusJSON(http.StatusForbidden, models.ErrorResponse{
					Code:    models.ErrCodeForbidden,
					Message: msgInsufficientPermission,
				})
				return
			}
		}

		c.Set(ContextUserIDKey, claims.UserID)
		c.Set(ContextPermissionsKey, claims.Permissions)
		c.Set(ContextClaimsKey, claims)
		c.Request = c.Request.WithContext(models.WithIdentity(c.Request.Context(), claims))

		gateDecisions.WithLabelValues("allowed").Inc()
		c.Next()
	}
}

// ClaimsFromContext возвращает claims, положенные RequireAccess.
func ClaimsFromContext(c *gin.Context) (*models.Claims, bool) {
	value, exists := c.Get(ContextClaimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*models.Claims)
	return claims, ok && claims != nil
}
