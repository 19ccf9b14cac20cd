package handler

import (
	"errors"
	"net/http"

	"storefront/shared/middleware"
	"storefront/shared/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *AuthHandler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	user, err := h.authService.Register(c.Request.Context(), req.Email, req.FullName, req.Password)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	registrationsTotal.Inc()
	c.JSON(http.StatusCreated, userResponse{
		ID:    user.ID.String(),
		Email: user.Email,
		Name:  user.Name,
		Role:  roleName(user.Role),
	})
}

func (h *AuthHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		loginsTotal.WithLabelValues("invalid_request").Inc()
		h.bindError(c, err)
		return
	}

	meta := sessionMetadata(c, req.UserAgent, req.IPAddress)
	pair, err := h.authService.Login(c.Request.Context(), req.Email, req.Password, meta)
	if err != nil {
		if errors.Is(err, models.ErrInvalidCredentials) {
			loginsTotal.WithLabelValues("invalid_credentials").Inc()
		} else {
			loginsTotal.WithLabelValues("error").Inc()
		}
		h.handleServiceError(c, err)
		return
	}

	loginsTotal.WithLabelValues("success").Inc()
	h.setTokenCookies(c, pair)
	c.JSON(http.StatusOK, models.MessageResponse{Message: "login successful"})
}

// refresh меняет пару токенов. При ошибке cookies не трогаем.
func (h *AuthHandler) refresh(c *gin.Context) {
	refreshToken, err := c.Cookie(middleware.RefreshTokenCookie)
	if err != nil || refreshToken == "" {
		refreshesTotal.WithLabelValues("unauthorized").Inc()
		h.handleServiceError(c, models.ErrUnauthorized)
		return
	}

	pair, err := h.authService.Refresh(c.Request.Context(), refreshToken, sessionMetadata(c, "", ""))
	if err != nil {
		if models.IsAuthError(err) {
			refreshesTotal.WithLabelValues("unauthorized").Inc()
		} else {
			refreshesTotal.WithLabelValues("error").Inc()
		}
		h.handleServiceError(c, err)
		return
	}

	refreshesTotal.WithLabelValues("success").Inc()
	h.setTokenCookies(c, pair)
	c.JSON(http.StatusOK, models.MessageResponse{Message: "tokens refreshed"})
}

// logout всегда отвечает 200 и чистит cookies, даже если сессию удалить не вышло.
func (h *AuthHandler) logout(c *gin.Context) {
	refreshToken, _ := c.Cookie(middleware.RefreshTokenCookie)
	if err := h.authService.Logout(c.Request.Context(), refreshToken); err != nil {
		h.logCleanupFailure("logout", err)
	}
	logoutsTotal.WithLabelValues("one").Inc()
	h.clearTokenCookies(c)
	c.JSON(http.StatusOK, models.MessageResponse{Message: "logged out"})
}

func (h *AuthHandler) logoutAll(c *gin.Context) {
	refreshToken, _ := c.Cookie(middleware.RefreshTokenCookie)
	count, err := h.authService.LogoutAll(c.Request.Context(), refreshToken)
	if err != nil {
		h.logCleanupFailure("logout_all", err)
	}
	logoutsTotal.WithLabelValues("all").Inc()
	h.clearTokenCookies(c)
	c.JSON(http.StatusOK, logoutAllResponse{Message: "logged out from all devices", SessionsRevoked: count})
}

func (h *AuthHandler) logCleanupFailure(op string, err error) {
	if models.IsAuthError(err) {
		h.logger.Info("Logout with unusable refresh token", zap.String("op", op), zap.Error(err))
		return
	}
	h.logger.Error("Failed to revoke sessions on logout", zap.String("op", op), zap.Error(err))
}

func (h *AuthHandler) getMe(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		h.handleServiceError(c, models.ErrUnauthorized)
		return
	}
	identity, err := h.authService.Me(c.Request.Context(), claims.UserID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, userResponse{
		ID:    identity.UserID,
		Email: identity.Email,
		Name:  identity.Name,
		Role:  identity.DisplayRole,
	})
}

func (h *AuthHandler) listSessions(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		h.handleServiceError(c, models.ErrUnauthorized)
		return
	}
	records, err := h.authService.Sessions(c.Request.Context(), claims.UserID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	resp := make([]sessionResponse, 0, len(records))
	for _, r := range records {
		resp = append(resp, sessionResponse{
			TokenID:          r.TokenID,
			UserAgent:        r.Metadata.UserAgent,
			IP:               r.Metadata.IP,
			CreatedAt:        r.Metadata.CreatedAt,
			ExpiresInSeconds: int64(r.TTL.Seconds()),
		})
	}
	c.JSON(http.StatusOK, resp)
}

func roleName(role *models.Role) string {
	if role == nil {
		return models.UnknownRole
	}
	return role.Name
}
