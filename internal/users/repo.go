package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ariefcatur/go-bookstore.git/internal/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

const userColumns = `
	SELECT id, username, display_name, email, role, password_hash, created_at, updated_at
	FROM users`

func (r *Repo) Create(ctx context.Context, u User) (User, error) {
	out, err := scanUser(r.DB.QueryRow(ctx, `
		INSERT INTO users (username, display_name, email, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id, username, display_name, email, role, password_hash, created_at, updated_at`,
		u.Username, u.DisplayName, u.Email, u.PasswordHash,
	))
	if err != nil {
		return User{}, uniqueErr("create user", err)
	}
	return out, nil
}

func (r *Repo) ByUsername(ctx context.Context, username string) (User, error) {
	return r.one(ctx, `WHERE username = $1`, username)
}

func (r *Repo) one(ctx context.Context, where string, arg any) (User, error) {
	u, err := scanUser(r.DB.QueryRow(ctx, userColumns+` `+where, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// Taken reports which of the given values already belong to a user other
// than exceptID.
func (r *Repo) Taken(ctx context.Context, exceptID int64, username, displayName, email string) ([]error, error) {
	var u, d, e bool
	err := r.DB.QueryRow(ctx, `
		SELECT
			EXISTS (SELECT 1 FROM users WHERE username = $2 AND id <> $1),
			EXISTS (SELECT 1 FROM users WHERE display_name = $3 AND id <> $1),
			EXISTS (SELECT 1 FROM users WHERE email = $4 AND id <> $1)`,
		exceptID, username, displayName, email,
	).Scan(&u, &d, &e)
	if err != nil {
		return nil, fmt.Errorf("check user conflicts: %w", err)
	}
	var out []error
	if u && username != "" {
		out = append(out, ErrUsernameTaken)
	}
	if d && displayName != "" {
		out = append(out, ErrDisplayNameTaken)
	}
	if e && email != "" {
		out = append(out, ErrEmailTaken)
	}
	return out, nil
}

// Update writes only the columns set in patch.
func (r *Repo) Update(ctx context.Context, id int64, patch UserPatch) (User, error) {
	var sets []string
	args := []any{id}
	add := func(col, v string) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if patch.Email != nil {
		add("email", *patch.Email)
	}
	if patch.Username != nil {
		add("username", *patch.Username)
	}
	if patch.DisplayName != nil {
		add("display_name", *patch.DisplayName)
	}
	if len(sets) == 0 {
		return User{}, ErrEmptyPatch
	}
	sets = append(sets, "updated_at = NOW()")

	u, err := scanUser(r.DB.QueryRow(ctx,
		`UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = $1
		RETURNING id, username, display_name, email, role, password_hash, created_at, updated_at`,
		args...,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, uniqueErr("update user", err)
	}
	return u, nil
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.DisplayName, &u.Email, &u.Role, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func uniqueErr(op string, err error) error {
	if !postgres.IsUniqueViolation(err) {
		return fmt.Errorf("%s: %w", op, err)
	}
	switch postgres.ConstraintName(err) {
	case "users_username_key":
		return ErrUsernameTaken
	case "users_email_key":
		return ErrEmailTaken
	case "users_display_name_key":
		return ErrDisplayNameTaken
	}
	return fmt.Errorf("%s: %w", op, ErrConflict)
}
