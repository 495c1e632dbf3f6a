package permissions

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aegis-auth/aegis/internal/shared"
)

// RepositoryPort defines data access methods for permissions.
type RepositoryPort interface {
	CreatePermission(ctx context.Context, p Permission) error
	DeletePermission(ctx context.Context, id int64) error
	PermissionsOf(ctx context.Context, roleID int64) ([]string, error)
	ListByRole(ctx context.Context, roleID int64) ([]Permission, error)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreatePermission inserts a new grant.
func (r *Repository) CreatePermission(ctx context.Context, p Permission) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO permissions (permission_id, role_id, object_id) VALUES ($1, $2, $3)`,
		p.ID, p.RoleID, p.ObjectID)
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
		return shared.Storage("permissions.create", err)
	}
	return nil
}

// DeletePermission removes a grant by id.
func (r *Repository) DeletePermission(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM permissions WHERE permission_id = $1`, id)
	if err != nil {
		return shared.Storage("permissions.delete", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// PermissionsOf returns the object ids granted directly to roleID.
func (r *Repository) PermissionsOf(ctx context.Context, roleID int64) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT object_id FROM permissions WHERE role_id = $1 ORDER BY object_id`, roleID)
	if err != nil {
		return nil, shared.Storage("permissions.of", err)
	}
	defer rows.Close()

	var objects []string
	for rows.Next() {
		var object string
		if err := rows.Scan(&object); err != nil {
			return nil, shared.Storage("permissions.of", err)
		}
		objects = append(objects, object)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Storage("permissions.of", err)
	}
	return objects, nil
}

// ListByRole returns full grant records for the admin surface.
func (r *Repository) ListByRole(ctx context.Context, roleID int64) ([]Permission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT permission_id, role_id, object_id FROM permissions WHERE role_id = $1 ORDER BY permission_id`,
		roleID)
	if err != nil {
		return nil, shared.Storage("permissions.list", err)
	}
	defer rows.Close()

	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.RoleID, &p.ObjectID); err != nil {
			return nil, shared.Storage("permissions.list", err)
		}
		perms = append(perms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Storage("permissions.list", err)
	}
	return perms, nil
}

var _ RepositoryPort = (*Repository)(nil)
