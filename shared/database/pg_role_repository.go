package database

import (
	"context"
	"errors"
	"fmt"

	"storefront/shared/interfaces"
	"storefront/shared/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

var _ interfaces.RoleRepository = (*pgRoleRepository)(nil)

type pgRoleRepository struct {
	db     interfaces.TxStarter
	logger *zap.Logger
}

// NewPgRoleRepository creates a PostgreSQL-backed RoleRepository.
func NewPgRoleRepository(db interfaces.TxStarter, logger *zap.Logger) interfaces.RoleRepository {
	return &pgRoleRepository{
		db:     db,
		logger: logger.Named("PgRoleRepo"),
	}
}

const (
	selectRoleQuery       = `SELECT id, name, COALESCE(description, '') AS description FROM roles `
	selectPermissionQuery = `SELECT id, code, COALESCE(description, '') AS description FROM permissions `
)

// rolePermissionRow - строка соединения roles_permissions с permissions.
type rolePermissionRow struct {
	RoleID      int    `db:"role_id"`
	ID          int    `db:"id"`
	Code        string `db:"code"`
	Description string `db:"description"`
}

// loadRole читает одну роль по условию where и подгружает ее разрешения.
func loadRole(ctx context.Context, db interfaces.DBTX, where string, args ...any) (*models.Role, error) {
	role := &models.Role{}
	if err := pgxscan.Get(ctx, db, role, selectRoleQuery+where, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, models.ErrRoleNotFound
		}
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	perms, err := loadPermissions(ctx, db, []int{role.ID})
	if err != nil {
		return nil, err
	}
	role.Permissions = perms[role.ID]
	if role.Permissions == nil {
		role.Permissions = []models.Permission{}
	}
	return role, nil
}

func loadPermissions(ctx context.Context, db interfaces.DBTX, roleIDs []int) (map[int][]models.Permission, error) {
	var rows []rolePermissionRow
	query := `SELECT rp.role_id, p.id, p.code, COALESCE(p.description, '') AS description
		FROM roles_permissions rp
		JOIN permissions p ON p.id = rp.permission_id
		WHERE rp.role_id = ANY($1)
		ORDER BY rp.role_id, p.code`
	if err := pgxscan.Select(ctx, db, &rows, query, roleIDs); err != nil {
		return nil, fmt.Errorf("failed to load role permissions: %w", err)
	}
	byRole := make(map[int][]models.Permission, len(roleIDs))
	for _, row := range rows {
		byRole[row.RoleID] = append(byRole[row.RoleID], models.Permission{ID: row.ID, Code: row.Code, Description: row.Description})
	}
	return byRole, nil
}

func (r *pgRoleRepository) ListRolesWithPermissions(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role
	if err := pgxscan.Select(ctx, r.db, &roles, selectRoleQuery+`ORDER BY id`); err != nil {
		r.logger.Error("Failed to list roles", zap.Error(err))
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	ids := make([]int, 0, len(roles))
	for _, role := range roles {
		ids = append(ids, role.ID)
	}
	perms, err := loadPermissions(ctx, r.db, ids)
	if err != nil {
		r.logger.Error("Failed to list role permissions", zap.Error(err))
		return nil, err
	}
	for i := range roles {
		roles[i].Permissions = perms[roles[i].ID]
		if roles[i].Permissions == nil {
			roles[i].Permissions = []models.Permission{}
		}
	}
	return roles, nil
}

func (r *pgRoleRepository) GetRoleByName(ctx context.Context, name string) (*models.Role, error) {
	role, err := loadRole(ctx, r.db, `WHERE name = $1`, name)
	if err != nil && !errors.Is(err, models.ErrRoleNotFound) {
		r.logger.Error("Failed to get role by name", zap.String("name", name), zap.Error(err))
	}
	return role, err
}

// CreateRole создает роль и привязывает существующие разрешения в одной транзакции.
func (r *pgRoleRepository) CreateRole(ctx context.Context, name, description string, codes []string) (*models.Role, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			r.logger.Warn("Rollback failed", zap.Error(rbErr))
		}
	}()

	var roleID int
	err = tx.QueryRow(ctx, `INSERT INTO roles (name, description) VALUES ($1, $2) RETURNING id`, name, description).Scan(&roleID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			r.logger.Warn("Attempted to create duplicate role", zap.String("name", name))
			return nil, models.ErrRoleAlreadyExists
		}
		r.logger.Error("Failed to insert role", zap.String("name", name), zap.Error(err))
		return nil, fmt.Errorf("failed to insert role: %w", err)
	}

	if len(codes) > 0 {
		_, err = tx.Exec(ctx, `INSERT INTO roles_permissions (role_id, permission_id)
			SELECT $1, id FROM permissions WHERE code = ANY($2)
			ON CONFLICT DO NOTHING`, roleID, codes)
		if err != nil {
			r.logger.Error("Failed to link role permissions", zap.String("name", name), zap.Error(err))
			return nil, fmt.Errorf("failed to link role permissions: %w", err)
		}
	}

	role, err := loadRole(ctx, tx, `WHERE id = $1`, roleID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit role: %w", err)
	}
	r.logger.Info("Role created", zap.String("name", name), zap.Strings("permissions", role.PermissionCodes()))
	return role, nil
}

func (r *pgRoleRepository) GetPermissionByCode(ctx context.Context, code string) (*models.Permission, error) {
	perm := &models.Permission{}
	if err := pgxscan.Get(ctx, r.db, perm, selectPermissionQuery+`WHERE code = $1`, code); err != nil {
		if pgxscan.NotFound(err) {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get permission", zap.String("code", code), zap.Error(err))
		return nil, fmt.Errorf("failed to get permission: %w", err)
	}
	return perm, nil
}

func (r *pgRoleRepository) CreatePermission(ctx context.Context, code, description string) (*models.Permission, error) {
	perm := &models.Permission{Code: code, Description: description}
	err := r.db.QueryRow(ctx, `INSERT INTO permissions (code, description) VALUES ($1, $2) RETURNING id`, code, description).Scan(&perm.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			r.logger.Warn("Attempted to create duplicate permission", zap.String("code", code))
			return nil, models.ErrPermissionAlreadyExists
		}
		r.logger.Error("Failed to insert permission", zap.String("code", code), zap.Error(err))
		return nil, fmt.Errorf("failed to insert permission: %w", err)
	}
	r.logger.Info("Permission created", zap.String("code", code))
	return perm, nil
}
