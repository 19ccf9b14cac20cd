package models

// Error codes returned in ErrorResponse.Code.
const (
	ErrCodeBadRequest       = 40000
	ErrCodeValidation       = 40001
	ErrCodeUnauthenticated  = 40100
	ErrCodeWrongCredentials = 40101
	ErrCodeForbidden        = 40300
	ErrCodeNotFound         = 40400
	ErrCodeUserNotFound     = 40401
	ErrCodeConflict         = 40900
	ErrCodeDuplicateEmail   = 40901
	ErrCodeTooManyRequests  = 42900
	ErrCodeInternal         = 50000
	ErrCodeUnavailable      = 50300
)

// ErrorResponse - стандартная структура для ответа об ошибке в формате JSON.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// MessageResponse is the body of endpoints that only report an outcome.
type MessageResponse struct {
	Message string `json:"message"`
}
