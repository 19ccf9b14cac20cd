package interfaces

import (
	"context"

	"storefront/shared/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxStarter is a DBTX that can also open transactions (*pgxpool.Pool).
type TxStarter interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// UserRepository defines the interface for user data persistence (PostgreSQL).
type UserRepository interface {
	// CreateUser inserts a new user. Returns models.ErrEmailAlreadyExists on duplicates.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail loads the user together with its role and the role's permissions.
	// Returns models.ErrUserNotFound if the user does not exist.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID loads the user together with its role and permissions.
	// Returns models.ErrUserNotFound if the user does not exist.
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// UpdateUser applies the non-nil fields of upd and returns the updated user.
	UpdateUser(ctx context.Context, upd models.UserUpdate) (*models.User, error)
}

// RoleRepository manages roles and permission codes.
type RoleRepository interface {
	ListRolesWithPermissions(ctx context.Context) ([]models.Role, error)
	GetRoleByName(ctx context.Context, name string) (*models.Role, error)
	// CreateRole creates the role and links the existing permissions among codes.
	// Unknown codes are ignored.
	CreateRole(ctx context.Context, name, description string, codes []string) (*models.Role, error)
	GetPermissionByCode(ctx context.Context, code string) (*models.Permission, error)
	CreatePermission(ctx context.Context, code, description string) (*models.Permission, error)
}
