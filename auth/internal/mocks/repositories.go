package mocks

import (
	"context"

	"storefront/shared/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// Mock UserRepository
type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *UserRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *UserRepository) UpdateUser(ctx context.Context, upd models.UserUpdate) (*models.User, error) {
	args := m.Called(ctx, upd)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

// Mock RoleRepository
type RoleRepository struct {
	mock.Mock
}

func (m *RoleRepository) ListRolesWithPermissions(ctx context.Context) ([]models.Role, error) {
	args := m.Called(ctx)
	roles, _ := args.Get(0).([]models.Role)
	return roles, args.Error(1)
}

func (m *RoleRepository) GetRoleByName(ctx context.Context, name string) (*models.Role, error) {
	args := m.Called(ctx, name)
	role, _ := args.Get(0).(*models.Role)
	return role, args.Error(1)
}

func (m *RoleRepository) CreateRole(ctx context.Context, name, description string, codes []string) (*models.Role, error) {
	args := m.Called(ctx, name, description, codes)
	role, _ := args.Get(0).(*models.Role)
	return role, args.Error(1)
}

func (m *RoleRepository) GetPermissionByCode(ctx context.Context, code string) (*models.Permission, error) {
	args := m.Called(ctx, code)
	perm, _ := args.Get(0).(*models.Permission)
	return perm, args.Error(1)
}

func (m *RoleRepository) CreatePermission(ctx context.Context, code, description string) (*models.Permission, error) {
	args := m.Called(ctx, code, description)
	perm, _ := args.Get(0).(*models.Permission)
	return perm, args.Error(1)
}
