package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"storefront/shared/interfaces"
	"storefront/shared/models"

	"go.uber.org/zap"
)

var _ RoleService = (*roleServiceImpl)(nil)

type roleServiceImpl struct {
	roles  interfaces.RoleRepository
	users  interfaces.UserRepository
	logger *zap.Logger
}

// NewRoleService creates the role and user administration service.
func NewRoleService(roles interfaces.RoleRepository, users interfaces.UserRepository, logger *zap.Logger) RoleService {
	return &roleServiceImpl{
		roles:  roles,
		users:  users,
		logger: logger.Named("RoleService"),
	}
}

func (s *roleServiceImpl) ListRoles(ctx context.Context) ([]models.Role, error) {
	return s.roles.ListRolesWithPermissions(ctx)
}

func (s *roleServiceImpl) CreateRole(ctx context.Context, name, description string, permissions []string) (*models.Role, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 64 {
		return nil, fmt.Errorf("%w: role name must be 1 to 64 characters", models.ErrInvalidInput)
	}
	for _, code := range permissions {
		if !models.IsValidPermissionCode(code) {
			return nil, fmt.Errorf("%w: malformed permission code %q", models.ErrInvalidInput, code)
		}
	}
	role, err := s.roles.CreateRole(ctx, name, strings.TrimSpace(description), permissions)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Role created", zap.String("name", role.Name), zap.Strings("permissions", role.PermissionCodes()))
	return role, nil
}

func (s *roleServiceImpl) CreatePermission(ctx context.Context, code, description string) (*models.Permission, error) {
	code = strings.TrimSpace(code)
	if !models.IsValidPermissionCode(code) {
		return nil, fmt.Errorf("%w: malformed permission code %q", models.ErrInvalidInput, code)
	}
	return s.roles.CreatePermission(ctx, code, strings.TrimSpace(description))
}

// UpdateUser меняет email, имя или роль. Новые разрешения попадут в токены только
// после следующего логина: уже выданные токены несут старый снимок.
func (s *roleServiceImpl) UpdateUser(ctx context.Context, upd models.UserUpdate) (*models.User, error) {
	if upd.Email == nil && upd.Name == nil && upd.RoleID == nil {
		return nil, fmt.Errorf("%w: nothing to update", models.ErrInvalidInput)
	}
	if upd.Email != nil {
		if _, err := mail.ParseAddress(strings.TrimSpace(*upd.Email)); err != nil {
			return nil, fmt.Errorf("%w: invalid email format", models.ErrInvalidInput)
		}
	}
	user, err := s.users.UpdateUser(ctx, upd)
	if err != nil {
		return nil, err
	}
	s.logger.Info("User updated by manager", zap.Stringer("userID", user.ID))
	return user, nil
}
