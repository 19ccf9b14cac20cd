package handler

import "time"

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"full_name" binding:"required,min=2,max=100"`
}

// UserAgent и IPAddress необязательны, по умолчанию берутся из запроса.
type loginRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required"`
	UserAgent string `json:"user_agent"`
	IPAddress string `json:"ip_address"`
}

type createRoleRequest struct {
	Name        string   `json:"name" binding:"required,max=64"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions" binding:"omitempty,dive,permcode"`
}

type createPermissionRequest struct {
	Code        string `json:"code" binding:"required,max=128,permcode"`
	Description string `json:"description"`
}

type updateUserRequest struct {
	ID     string  `json:"id" binding:"required,uuid"`
	Email  *string `json:"email,omitempty"`
	Name   *string `json:"name,omitempty"`
	RoleID *int    `json:"role_id,omitempty"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

type sessionResponse struct {
	TokenID          string    `json:"token_id"`
	UserAgent        string    `json:"user_agent"`
	IP               string    `json:"ip"`
	CreatedAt        time.Time `json:"created_at"`
	ExpiresInSeconds int64     `json:"expires_in"`
}

type logoutAllResponse struct {
	Message         string `json:"message"`
	SessionsRevoked int64  `json:"sessions_revoked"`
}
