package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/my-app/apiserver/types"
)

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, name, avatar, password_hash, reset_password_token, reset_password_expires, created_at, updated_at`

func scanUser(row *sql.Row) (types.User, error) {
	var user types.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Avatar,
		&user.PasswordHash,
		&user.ResetPasswordToken,
		&user.ResetPasswordExpires,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

// Create inserts a new user. A concurrent insert with the same email loses
// the race on the unique index and is reported as ErrDuplicate.
func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	const query = `
		INSERT INTO users (email, name, avatar, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		user.Email,
		user.Name,
		user.Avatar,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID); err != nil {
		if isUniqueViolation(err) {
			return types.User{}, ErrDuplicate
		}
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) List(ctx context.Context, offset, limit int) ([]types.User, int, error) {
	const countQuery = `SELECT COUNT(*) FROM users`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, err
	}

	const query = `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY id
		OFFSET $1 LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := []types.User{}
	for rows.Next() {
		var user types.User
		if err := rows.Scan(
			&user.ID,
			&user.Email,
			&user.Name,
			&user.Avatar,
			&user.PasswordHash,
			&user.ResetPasswordToken,
			&user.ResetPasswordExpires,
			&user.CreatedAt,
			&user.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// UpdateProfile updates the mutable profile fields of a user.
func (r *UserRepository) UpdateProfile(ctx context.Context, id int, name string, avatar *string) (types.User, error) {
	const query = `
		UPDATE users
		SET name = $1,
			avatar = $2,
			updated_at = $3
		WHERE id = $4
		RETURNING ` + userColumns
	return scanUser(r.db.QueryRowContext(ctx, query, name, avatar, time.Now(), id))
}

// SetResetToken stores the digest and expiry of a freshly issued
// password-reset token, overwriting any previous pair.
func (r *UserRepository) SetResetToken(ctx context.Context, id int, digest string, expires time.Time) error {
	const query = `
		UPDATE users
		SET reset_password_token = $1,
			reset_password_expires = $2,
			updated_at = $3
		WHERE id = $4`
	result, err := r.db.ExecContext(ctx, query, digest, expires, time.Now(), id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ConsumeResetToken atomically swaps the password hash of the user whose
// stored reset digest matches and has not expired, clearing the reset pair
// in the same statement. A miss (wrong digest, expired, or already
// consumed) is reported uniformly as ErrNotFound.
func (r *UserRepository) ConsumeResetToken(ctx context.Context, digest, passwordHash string, now time.Time) (types.User, error) {
	const query = `
		UPDATE users
		SET password_hash = $1,
			reset_password_token = NULL,
			reset_password_expires = NULL,
			updated_at = $2
		WHERE reset_password_token = $3
			AND reset_password_expires > $4
		RETURNING ` + userColumns
	return scanUser(r.db.QueryRowContext(ctx, query, passwordHash, time.Now(), digest, now))
}

func (r *UserRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM users WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
