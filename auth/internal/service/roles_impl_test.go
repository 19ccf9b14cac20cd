package service

import (
	"context"
	"testing"

	"storefront/auth/internal/mocks"
	"storefront/shared/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRoleService(t *testing.T) (RoleService, *mocks.RoleRepository, *mocks.UserRepository) {
	t.Helper()
	roles := new(mocks.RoleRepository)
	users := new(mocks.UserRepository)
	t.Cleanup(func() {
		roles.AssertExpectations(t)
		users.AssertExpectations(t)
	})
	return NewRoleService(roles, users, zap.NewNop()), roles, users
}

func TestCreatePermission_Validation(t *testing.T) {
	svc, roles, _ := newRoleService(t)
	ctx := context.Background()

	for _, code := range []string{"", "nodot", "Upper.Case", "too.many.dots", ".leading"} {
		_, err := svc.CreatePermission(ctx, code, "")
		assert.ErrorIs(t, err, models.ErrInvalidInput, code)
	}

	roles.On("CreatePermission", mock.Anything, "catalog.edit", "Edit").
		Return(&models.Permission{ID: 7, Code: "catalog.edit", Description: "Edit"}, nil).Once()
	perm, err := svc.CreatePermission(ctx, " catalog.edit ", " Edit ")
	require.NoError(t, err)
	assert.Equal(t, 7, perm.ID)
}

func TestCreateRole(t *testing.T) {
	svc, roles, _ := newRoleService(t)
	ctx := context.Background()

	_, err := svc.CreateRole(ctx, "  ", "", nil)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	_, err = svc.CreateRole(ctx, "editor", "", []string{"bad code"})
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	roles.On("CreateRole", mock.Anything, "editor", "Edits", []string{"catalog.edit"}).
		Return(nil, models.ErrRoleAlreadyExists).Once()
	_, err = svc.CreateRole(ctx, "editor", "Edits", []string{"catalog.edit"})
	assert.ErrorIs(t, err, models.ErrRoleAlreadyExists)
}

func TestUpdateUser(t *testing.T) {
	svc, _, users := newRoleService(t)
	ctx := context.Background()
	id := uuid.New()

	_, err := svc.UpdateUser(ctx, models.UserUpdate{ID: id})
	assert.ErrorIs(t, err, models.ErrInvalidInput, "empty update")

	_, err = svc.UpdateUser(ctx, models.UserUpdate{ID: id, Email: models.StringPtr("nope")})
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	upd := models.UserUpdate{ID: id, RoleID: models.IntPtr(2)}
	users.On("UpdateUser", mock.Anything, upd).Return(&models.User{ID: id, RoleID: upd.RoleID}, nil).Once()
	user, err := svc.UpdateUser(ctx, upd)
	require.NoError(t, err)
	assert.Equal(t, id, user.ID)
}
