package handler

import (
	"net/http"

	"storefront/shared/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func (h *AuthHandler) listRoles(c *gin.Context) {
	roles, err := h.roleService.ListRoles(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, roles)
}

func (h *AuthHandler) addRole(c *gin.Context) {
	var req createRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}
	role, err := h.roleService.CreateRole(c.Request.Context(), req.Name, req.Description, req.Permissions)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, role)
}

func (h *AuthHandler) addPermission(c *gin.Context) {
	var req createPermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}
	perm, err := h.roleService.CreatePermission(c.Request.Context(), req.Code, req.Description)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, perm)
}

func (h *AuthHandler) updateUser(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		h.handleServiceError(c, models.ErrInvalidInput)
		return
	}
	user, err := h.roleService.UpdateUser(c.Request.Context(), models.UserUpdate{
		ID:     id,
		Email:  req.Email,
		Name:   req.Name,
		RoleID: req.RoleID,
	})
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, userResponse{
		ID:    user.ID.String(),
		Email: user.Email,
		Name:  user.Name,
		Role:  roleName(user.Role),
	})
}
