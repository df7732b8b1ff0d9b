package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/coaltrack/apiserver/types"
)

// UserRepository handles persistence for users.
type UserRepository struct {
	pool Pool
}

func NewUserRepository(pool Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// FindByUsername looks a user up by exact email or display name. If the
// identifier matches different rows by email and by name, whichever row the
// database returns first wins.
func (r *UserRepository) FindByUsername(ctx context.Context, identifier string) (types.User, error) {
	const query = `
		SELECT id, uuid, name, email, password_hash, role
		FROM users
		WHERE email = $1 OR name = $1
		LIMIT 1`
	return r.getOne(ctx, query, identifier)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	const query = `
		SELECT id, uuid, name, email, password_hash, role
		FROM users
		WHERE email = $1`
	return r.getOne(ctx, query, email)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (types.User, error) {
	conn, err := acquire(ctx, r.pool)
	if err != nil {
		return types.User{}, err
	}

	var user types.User
	err = conn.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.UUID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, fmt.Errorf("query user: %w", err)
	}
	return user, nil
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	conn, err := acquire(ctx, r.pool)
	if err != nil {
		return types.User{}, err
	}

	const query = `
		INSERT INTO users (uuid, name, email, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	if err := conn.QueryRowContext(
		ctx,
		query,
		user.UUID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role,
	).Scan(&user.ID); err != nil {
		return types.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}
