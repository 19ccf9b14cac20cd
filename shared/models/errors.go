package models

import "errors"

// Application-wide standard errors
var (
	// Common Resource/DB Errors
	ErrNotFound = errors.New("resource not found")

	// User & Authentication Errors
	ErrUserNotFound            = errors.New("user not found")
	ErrEmailAlreadyExists      = errors.New("user with this email already exists")
	ErrInvalidCredentials      = errors.New("invalid email or password")
	ErrUnauthorized            = errors.New("unauthorized") // Authentication required or failed
	ErrForbidden               = errors.New("forbidden")    // Authenticated, but lacks permission
	ErrRoleNotFound            = errors.New("role not found")
	ErrRoleAlreadyExists       = errors.New("role with this name already exists")
	ErrPermissionAlreadyExists = errors.New("permission with this code already exists")

	// Token Errors
	// ErrTokenInvalid covers both a bad signature and an expired token.
	ErrTokenInvalid   = errors.New("token is invalid")
	ErrWrongTokenType = errors.New("wrong token type")
	ErrSessionRevoked = errors.New("refresh session revoked or expired")

	// Infrastructure
	// ErrStoreUnavailable wraps session store / codec backend failures.
	// It must never be treated as an authentication failure.
	ErrStoreUnavailable = errors.New("session store unavailable")

	// General Request/Server Errors
	ErrInternalServer = errors.New("internal server error")
	ErrBadRequest     = errors.New("bad request")
	ErrInvalidInput   = errors.New("invalid input data")
)

// IsAuthError reports whether err is one of the token/session failures that
// the request boundary collapses into a single "unauthenticated" answer.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrTokenInvalid) ||
		errors.Is(err, ErrWrongTokenType) ||
		errors.Is(err, ErrSessionRevoked) ||
		errors.Is(err, ErrUnauthorized)
}
