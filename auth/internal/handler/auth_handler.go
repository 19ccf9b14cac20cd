package handler

import (
	"net/http"
	"time"

	"storefront/auth/internal/config"
	"storefront/auth/internal/service"
	"storefront/shared/interfaces"
	"storefront/shared/middleware"
	"storefront/shared/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// cookieSettings - параметры token cookies, общие для access и refresh.
type cookieSettings struct {
	secure   bool
	domain   string
	sameSite http.SameSite
}

type AuthHandler struct {
	authService  service.AuthService
	roleService  service.RoleService
	verifier     interfaces.AccessVerifier
	loginLimiter *middleware.IPRateLimiter
	cookies      cookieSettings
	logger       *zap.Logger
}

func NewAuthHandler(
	authService service.AuthService,
	roleService service.RoleService,
	verifier interfaces.AccessVerifier,
	cfg *config.Config,
	logger *zap.Logger,
) *AuthHandler {
	registerValidators()
	return &AuthHandler{
		authService:  authService,
		roleService:  roleService,
		verifier:     verifier,
		loginLimiter: middleware.NewIPRateLimiter(cfg.LoginRateLimit, cfg.LoginRateLimit),
		cookies: cookieSettings{
			secure:   cfg.CookieSecure,
			domain:   cfg.CookieDomain,
			sameSite: cfg.SameSite(),
		},
		logger: logger.Named("AuthHandler"),
	}
}

func (h *AuthHandler) RegisterRoutes(router *gin.Engine) {
	authenticated := middleware.RequireAccess(h.verifier, h.logger)
	manager := middleware.RequireAccess(h.verifier, h.logger, models.PermissionManager)

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", h.register)
		authGroup.POST("/login", middleware.RateLimitByIP(h.loginLimiter, h.logger), h.login)
		authGroup.POST("/refresh", h.refresh)
		authGroup.POST("/logout", h.logout)
		authGroup.POST("/logout_all", h.logoutAll)
		authGroup.GET("/me", authenticated, h.getMe)
		authGroup.GET("/sessions", authenticated, h.listSessions)
	}

	rolesGroup := router.Group("/roles", manager)
	{
		rolesGroup.GET("/all", h.listRoles)
		rolesGroup.POST("/add_role", h.addRole)
		rolesGroup.POST("/add_permission", h.addPermission)
	}

	usersGroup := router.Group("/users", manager)
	{
		usersGroup.PUT("/put_user", h.updateUser)
	}
}

// setTokenCookies кладет оба токена в HttpOnly cookies с Max-Age = TTL.
func (h *AuthHandler) setTokenCookies(c *gin.Context, pair *models.TokenPair) {
	c.SetSameSite(h.cookies.sameSite)
	c.SetCookie(middleware.AccessTokenCookie, pair.AccessToken, int(pair.AccessTTL/time.Second), "/", h.cookies.domain, h.cookies.secure, true)
	c.SetCookie(middleware.RefreshTokenCookie, pair.RefreshToken, int(pair.RefreshTTL/time.Second), "/", h.cookies.domain, h.cookies.secure, true)
}

// clearTokenCookies удаляет оба cookie. Вызывается безусловно при logout.
func (h *AuthHandler) clearTokenCookies(c *gin.Context) {
	c.SetSameSite(h.cookies.sameSite)
	c.SetCookie(middleware.AccessTokenCookie, "", -1, "/", h.cookies.domain, h.cookies.secure, true)
	c.SetCookie(middleware.RefreshTokenCookie, "", -1, "/", h.cookies.domain, h.cookies.secure, true)
}

// sessionMetadata берет метаданные из тела запроса, если клиент их прислал, иначе из самого запроса.
func sessionMetadata(c *gin.Context, userAgent, ip string) models.SessionMetadata {
	if userAgent == "" {
		userAgent = c.Request.UserAgent()
	}
	if ip == "" {
		ip = c.ClientIP()
	}
	return models.SessionMetadata{UserAgent: userAgent, IP: ip}
}
