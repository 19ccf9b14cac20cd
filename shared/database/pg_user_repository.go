package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront/shared/interfaces"
	"storefront/shared/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Compile-time check to ensure pgUserRepository implements UserRepository
var _ interfaces.UserRepository = (*pgUserRepository)(nil)

type pgUserRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

// NewPgUserRepository creates a new PostgreSQL-backed UserRepository.
func NewPgUserRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.UserRepository {
	return &pgUserRepository{
		db:     db,
		logger: logger.Named("PgUserRepo"),
	}
}

const selectUserQuery = `SELECT id, email, name, password_hash, role_id, created_at FROM users`

// CreateUser inserts a new user into the database.
// Email is stored lowercased; ID and CreatedAt are filled from the database when empty.
func (r *pgUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	query := `INSERT INTO users (id, email, name, password_hash, role_id) VALUES ($1, $2, $3, $4, $5) RETURNING created_at`
	r.logger.Debug("Executing query", zap.String("query", query), zap.String("email", user.Email))
	err := r.db.QueryRow(ctx, query, user.ID, user.Email, user.Name, user.PasswordHash, user.RoleID).Scan(&user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgUniqueViolation:
				r.logger.Warn("Attempted to create duplicate user by email", zap.String("email", user.Email))
				return models.ErrEmailAlreadyExists
			case pgForeignKeyViolation:
				r.logger.Warn("Attempted to create user with unknown role", zap.String("email", user.Email))
				return models.ErrRoleNotFound
			}
		}
		r.logger.Error("Failed to create user in postgres", zap.Error(err), zap.String("email", user.Email))
		return fmt.Errorf("failed to create user in postgres: %w", err)
	}
	r.logger.Info("User created successfully", zap.String("userID", user.ID.String()), zap.String("email", user.Email))
	return nil
}

// GetUserByEmail retrieves a user by email with its role and permissions.
func (r *pgUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.getUser(ctx, selectUserQuery+` WHERE email = $1`, email, zap.String("email", email))
}

// GetUserByID retrieves a user by ID with its role and permissions.
func (r *pgUserRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.getUser(ctx, selectUserQuery+` WHERE id = $1`, id, zap.Stringer("userID", id))
}

func (r *pgUserRepository) getUser(ctx context.Context, query string, arg any, field zap.Field) (*models.User, error) {
	user := &models.User{}
	r.logger.Debug("Executing query", zap.String("query", query), field)
	if err := pgxscan.Get(ctx, r.db, user, query, arg); err != nil {
		if pgxscan.NotFound(err) {
			r.logger.Debug("User not found", field)
			return nil, models.ErrUserNotFound
		}
		r.logger.Error("Failed to get user from postgres", zap.Error(err), field)
		return nil, fmt.Errorf("failed to get user from postgres: %w", err)
	}

	if user.RoleID != nil {
		role, err := loadRole(ctx, r.db, `WHERE id = $1`, *user.RoleID)
		if err != nil && !errors.Is(err, models.ErrRoleNotFound) {
			r.logger.Error("Failed to load user role", zap.Error(err), field, zap.Int("roleID", *user.RoleID))
			return nil, err
		}
		user.Role = role
	}
	return user, nil
}

// UpdateUser applies non-nil fields. Unknown role id → models.ErrRoleNotFound.
func (r *pgUserRepository) UpdateUser(ctx context.Context, upd models.UserUpdate) (*models.User, error) {
	var email *string
	if upd.Email != nil {
		normalized := strings.ToLower(strings.TrimSpace(*upd.Email))
		email = &normalized
	}

	query := `UPDATE users SET
		email = COALESCE($2, email),
		name = COALESCE($3, name),
		role_id = COALESCE($4, role_id)
		WHERE id = $1`
	r.logger.Debug("Executing query", zap.String("query", query), zap.Stringer("userID", upd.ID))
	tag, err := r.db.Exec(ctx, query, upd.ID, email, upd.Name, upd.RoleID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgUniqueViolation:
				return nil, models.ErrEmailAlreadyExists
			case pgForeignKeyViolation:
				return nil, models.ErrRoleNotFound
			}
		}
		r.logger.Error("Failed to update user", zap.Error(err), zap.Stringer("userID", upd.ID))
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, models.ErrUserNotFound
	}
	r.logger.Info("User updated", zap.Stringer("userID", upd.ID))
	return r.GetUserByID(ctx, upd.ID)
}
