package handler

import (
	"errors"
	"net/http"

	"storefront/shared/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *AuthHandler) bindError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Code: models.ErrCodeValidation, Message: describeBindError(err)})
}

func (h *AuthHandler) handleServiceError(c *gin.Context, err error) {
	var statusCode int
	var errResp models.ErrorResponse

	switch {
	case errors.Is(err, models.ErrInvalidCredentials):
		statusCode = http.StatusUnauthorized
		errResp = models.ErrorResponse{Code: models.ErrCodeWrongCredentials, Message: "invalid email or password"}
	case models.IsAuthError(err):
		// Причину (подпись, срок, тип, отзыв) наружу не отдаем.
		statusCode = http.StatusUnauthorized
		errResp = models.ErrorResponse{Code: models.ErrCodeUnauthenticated, Message: "authentication required"}
	case errors.Is(err, models.ErrForbidden):
		statusCode = http.StatusForbidden
		errResp = models.ErrorResponse{Code: models.ErrCodeForbidden, Message: "insufficient permission"}
	case errors.Is(err, models.ErrEmailAlreadyExists):
		statusCode = http.StatusConflict
		errResp = models.ErrorResponse{Code: models.ErrCodeDuplicateEmail, Message: "email already exists"}
	case errors.Is(err, models.ErrRoleAlreadyExists), errors.Is(err, models.ErrPermissionAlreadyExists):
		statusCode = http.StatusConflict
		errResp = models.ErrorResponse{Code: models.ErrCodeConflict, Message: err.Error()}
	case errors.Is(err, models.ErrUserNotFound):
		statusCode = http.StatusNotFound
		errResp = models.ErrorResponse{Code: models.ErrCodeUserNotFound, Message: "user not found"}
	case errors.Is(err, models.ErrRoleNotFound), errors.Is(err, models.ErrNotFound):
		statusCode = http.StatusNotFound
		errResp = models.ErrorResponse{Code: models.ErrCodeNotFound, Message: err.Error()}
	case errors.Is(err, models.ErrInvalidInput):
		statusCode = http.StatusBadRequest
		errResp = models.ErrorResponse{Code: models.ErrCodeValidation, Message: err.Error()}
	case errors.Is(err, models.ErrBadRequest):
		statusCode = http.StatusBadRequest
		errResp = models.ErrorResponse{Code: models.ErrCodeBadRequest, Message: err.Error()}
	case errors.Is(err, models.ErrStoreUnavailable):
		h.logger.Error("Session store unavailable", zap.String("path", c.FullPath()), zap.Error(err))
		statusCode = http.StatusServiceUnavailable
		errResp = models.ErrorResponse{Code: models.ErrCodeUnavailable, Message: "service temporarily unavailable, retry later"}
	default:
		h.logger.Error("Unhandled internal error in handleServiceError", zap.String("path", c.FullPath()), zap.Error(err))
		statusCode = http.StatusInternalServerError
		errResp = models.ErrorResponse{Code: models.ErrCodeInternal, Message: "an unexpected internal error occurred"}
	}

	c.AbortWithStatusJSON(statusCode, errResp)
}
