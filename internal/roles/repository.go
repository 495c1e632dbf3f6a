package roles

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aegis-auth/aegis/internal/shared"
)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	CreateRole(ctx context.Context, id int64, parentID *int64) error
	GetRole(ctx context.Context, id int64) (Role, error)
	ListRoles(ctx context.Context) ([]Role, error)
	DeleteRole(ctx context.Context, id int64) error
	CountRoles(ctx context.Context) (int64, error)
	HasDependents(ctx context.Context, id int64) (bool, error)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateRole inserts a new role node.
func (r *Repository) CreateRole(ctx context.Context, id int64, parentID *int64) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO roles (role_id, parent_id) VALUES ($1, $2)`, id, parentID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return shared.ErrDuplicate
			case "23503":
				return shared.ErrNotFound
			}
		}
		return shared.Storage("roles.create", err)
	}
	return nil
}

// GetRole fetches a role by id.
func (r *Repository) GetRole(ctx context.Context, id int64) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx,
		`SELECT role_id, parent_id FROM roles WHERE role_id = $1`, id).
		Scan(&role.ID, &role.ParentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, shared.ErrNotFound
		}
		return Role{}, shared.Storage("roles.get", err)
	}
	return role, nil
}

// ListRoles returns all roles ordered by id.
func (r *Repository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT role_id, parent_id FROM roles ORDER BY role_id`)
	if err != nil {
		return nil, shared.Storage("roles.list", err)
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.ParentID); err != nil {
			return nil, shared.Storage("roles.list", err)
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Storage("roles.list", err)
	}
	return roles, nil
}

// DeleteRole removes a role by id.
func (r *Repository) DeleteRole(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE role_id = $1`, id)
	if err != nil {
		return shared.Storage("roles.delete", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CountRoles returns the number of role nodes, used to bound ancestry walks.
func (r *Repository) CountRoles(ctx context.Context) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM roles`).Scan(&count); err != nil {
		return 0, shared.Storage("roles.count", err)
	}
	return count, nil
}

// HasDependents reports whether any child role or user still references id.
func (r *Repository) HasDependents(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM roles WHERE parent_id = $1)
		    OR EXISTS (SELECT 1 FROM users WHERE role_id = $1)
		    OR EXISTS (SELECT 1 FROM permissions WHERE role_id = $1)`, id).
		Scan(&exists)
	if err != nil {
		return false, shared.Storage("roles.dependents", err)
	}
	return exists, nil
}

var _ RepositoryPort = (*Repository)(nil)
