package repository

import (
	"context"

	"github.com/spec-kit/store-management/internal/domain"
)

type userRepository struct {
	db querier
}

func (r *userRepository) Save(ctx context.Context, user *domain.User) error {
	if user.ID == 0 {
		const query = `
            INSERT INTO users (username, email, password_hash, enabled)
            VALUES ($1, $2, $3, $4)
            RETURNING id, created_at, updated_at`
		if err := r.db.QueryRow(ctx, query,
			user.Username,
			user.Email,
			user.PasswordHash,
			user.Enabled,
		).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return pgError("insert user", err)
		}
	} else {
		const query = `
            UPDATE users SET username=$1, email=$2, password_hash=$3, enabled=$4, updated_at=NOW()
            WHERE id=$5
            RETURNING updated_at`
		if err := r.db.QueryRow(ctx, query,
			user.Username,
			user.Email,
			user.PasswordHash,
			user.Enabled,
			user.ID,
		).Scan(&user.UpdatedAt); err != nil {
			return pgError("update user", err)
		}
	}

	const linkRole = `
        INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)
        ON CONFLICT (user_id, role_id) DO NOTHING`
	for _, role := range user.Roles {
		if _, err := r.db.Exec(ctx, linkRole, user.ID, role.ID); err != nil {
			return pgError("assign role", err)
		}
	}
	return nil
}

func (r *userRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	const query = `
        SELECT id, username, email, password_hash, enabled, created_at, updated_at
        FROM users WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	const query = `
        SELECT id, username, email, password_hash, enabled, created_at, updated_at
        FROM users WHERE username=$1`
	return r.fetchSingle(ctx, query, username)
}

func (r *userRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username=$1)`, username)
}

func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email=$1)`, email)
}

func (r *userRepository) exists(ctx context.Context, query string, arg any) (bool, error) {
	var found bool
	if err := r.db.QueryRow(ctx, query, arg).Scan(&found); err != nil {
		return false, pgError("check user", err)
	}
	return found, nil
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.User, error) {
	var user domain.User
	if err := r.db.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Enabled,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, pgError("find user", err)
	}

	roles, err := r.roles(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	user.Roles = roles
	return &user, nil
}

func (r *userRepository) roles(ctx context.Context, userID int64) ([]domain.Role, error) {
	const query = `
        SELECT r.id, r.name FROM roles r
        JOIN user_roles ur ON ur.role_id = r.id
        WHERE ur.user_id=$1
        ORDER BY r.id`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, pgError("list user roles", err)
	}
	defer rows.Close()

	var roles []domain.Role
	for rows.Next() {
		var role domain.Role
		if err := rows.Scan(&role.ID, &role.Name); err != nil {
			return nil, pgError("scan role", err)
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, pgError("list user roles", err)
	}
	return roles, nil
}

type roleRepository struct {
	db querier
}

func (r *roleRepository) FindByName(ctx context.Context, name domain.RoleName) (*domain.Role, error) {
	var role domain.Role
	if err := r.db.QueryRow(ctx, `SELECT id, name FROM roles WHERE name=$1`, string(name)).Scan(&role.ID, &role.Name); err != nil {
		return nil, pgError("find role", err)
	}
	return &role, nil
}
