package models

import "context"

// contextKey - приватный тип для ключей контекста, чтобы избежать коллизий.
type contextKey string

const (
	// UserContextKey используется как ключ для хранения UserID в контексте запроса.
	UserContextKey contextKey = "userID"
	// PermissionsContextKey хранит []string кодов разрешений из access токена.
	PermissionsContextKey contextKey = "userPermissions"
	// ClaimsContextKey хранит *Claims целиком.
	ClaimsContextKey contextKey = "claims"
)

// WithIdentity returns a child context carrying the verified identity.
func WithIdentity(ctx context.Context, claims *Claims) context.Context {
	ctx = context.WithValue(ctx, UserContextKey, claims.UserID)
	ctx = context.WithValue(ctx, PermissionsContextKey, claims.Permissions)
	return context.WithValue(ctx, ClaimsContextKey, claims)
}

// GetUserIDFromContext извлекает UserID из контекста.
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserContextKey).(string)
	return userID, ok && userID != ""
}

// GetPermissionsFromContext извлекает срез разрешений из контекста.
func GetPermissionsFromContext(ctx context.Context) ([]string, bool) {
	perms, ok := ctx.Value(PermissionsContextKey).([]string)
	return perms, ok
}

// GetClaimsFromContext returns the verified access claims, if any.
func GetClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsContextKey).(*Claims)
	return claims, ok && claims != nil
}
