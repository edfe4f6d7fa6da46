package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sopami/sopami/internal/platform/db"
	"github.com/sopami/sopami/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return shared.ErrDuplicateName
	}
	return err
}

const userWithRolesQuery = `
SELECT u.id, u.username, u.is_superadmin, u.created_at, u.updated_at, r.id, r.name
FROM users u
LEFT JOIN user_roles ur ON ur.user_id = u.id
LEFT JOIN roles r ON r.id = ur.role_id
`

func scanUsersWithRoles(rows pgx.Rows) ([]User, error) {
	var users []User
	index := make(map[int64]int)
	for rows.Next() {
		var user User
		var roleID *int64
		var roleName *string
		if err := rows.Scan(&user.ID, &user.Username, &user.IsSuperadmin, &user.CreatedAt, &user.UpdatedAt, &roleID, &roleName); err != nil {
			return nil, err
		}
		pos, ok := index[user.ID]
		if !ok {
			pos = len(users)
			index[user.ID] = pos
			users = append(users, user)
		}
		if roleID != nil {
			ref := RoleRef{ID: *roleID}
			if roleName != nil {
				ref.Name = *roleName
			}
			users[pos].Roles = append(users[pos].Roles, ref)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

// ListUsers returns all users with their roles attached.
func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, userWithRolesQuery+` ORDER BY u.id, r.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsersWithRoles(rows)
}

// GetUser fetches a user by ID with roles.
func (r *Repository) GetUser(ctx context.Context, id int64) (User, error) {
	rows, err := r.pool.Query(ctx, userWithRolesQuery+` WHERE u.id = $1 ORDER BY r.id`, id)
	if err != nil {
		return User{}, err
	}
	defer rows.Close()
	users, err := scanUsersWithRoles(rows)
	if err != nil {
		return User{}, err
	}
	if len(users) == 0 {
		return User{}, shared.ErrNotFound
	}
	return users[0], nil
}

// UsersByIDs fetches the users whose ids are in the given set, with roles.
func (r *Repository) UsersByIDs(ctx context.Context, ids []int64) ([]User, error) {
	rows, err := r.pool.Query(ctx, userWithRolesQuery+` WHERE u.id = ANY($1) ORDER BY u.id, r.id`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsersWithRoles(rows)
}

// CreateUser inserts a user row and attaches the role set in one
// transaction.
func (r *Repository) CreateUser(ctx context.Context, user NewUser) (User, error) {
	var created User
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx,
			`INSERT INTO users (username, password_hash, is_superadmin) VALUES ($1, $2, $3)
			 RETURNING id, username, is_superadmin, created_at, updated_at`,
			user.Username, user.PasswordHash, user.IsSuperadmin)
		if err := row.Scan(&created.ID, &created.Username, &created.IsSuperadmin, &created.CreatedAt, &created.UpdatedAt); err != nil {
			return mapWriteError(err)
		}
		if len(user.RoleIDs) > 0 {
			if _, err := tx.Exec(ctx,
				`INSERT INTO user_roles (user_id, role_id) SELECT $1, unnest($2::bigint[])`,
				created.ID, user.RoleIDs); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return User{}, err
	}
	return r.GetUser(ctx, created.ID)
}

// UpdateUser rewrites a user's fields and replaces the role set in one
// transaction.
func (r *Repository) UpdateUser(ctx context.Context, id int64, update UserUpdate) (User, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var tag pgconn.CommandTag
		var err error
		if update.PasswordHash != "" {
			tag, err = tx.Exec(ctx,
				`UPDATE users SET username = $2, password_hash = $3, updated_at = now() WHERE id = $1`,
				id, update.Username, update.PasswordHash)
		} else {
			tag, err = tx.Exec(ctx,
				`UPDATE users SET username = $2, updated_at = now() WHERE id = $1`,
				id, update.Username)
		}
		if err != nil {
			return mapWriteError(err)
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, id); err != nil {
			return err
		}
		if len(update.RoleIDs) > 0 {
			if _, err := tx.Exec(ctx,
				`INSERT INTO user_roles (user_id, role_id) SELECT $1, unnest($2::bigint[])`,
				id, update.RoleIDs); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return User{}, err
	}
	return r.GetUser(ctx, id)
}

// DeleteUsers removes the given users; role associations cascade away.
func (r *Repository) DeleteUsers(ctx context.Context, ids []int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = ANY($1)`, ids)
	return err
}

// ExistingRoleIDs returns the subset of the given role ids that exist.
func (r *Repository) ExistingRoleIDs(ctx context.Context, ids []int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM roles WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var found []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found = append(found, id)
	}
	return found, rows.Err()
}

// HasSuperadmin reports whether any superadmin-flagged user exists.
func (r *Repository) HasSuperadmin(ctx context.Context) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE is_superadmin)`).Scan(&exists)
	return exists, err
}

var _ RepositoryPort = (*Repository)(nil)
