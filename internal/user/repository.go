package user

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"inkroom/internal/apperr"
	"inkroom/internal/db"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(conn *sql.DB) *Repository {
	return &Repository{db: conn}
}

func (r *Repository) CreateUser(ctx context.Context, u *User) (*User, error) {
	u.ID = uuid.NewString()
	query := "INSERT INTO users (id, email, name, password) VALUES ($1, $2, $3, $4)"

	_, err := r.db.ExecContext(ctx, query, u.ID, u.Email, u.Name, u.Password)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, apperr.Conflict("email already registered")
		}
		return nil, err
	}
	return u, nil
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	u := &User{}
	query := "SELECT id, email, name, avatar_url, password FROM users WHERE email = $1"

	err := r.db.QueryRowContext(ctx, query, email).Scan(&u.ID, &u.Email, &u.Name, &u.AvatarURL, &u.Password)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, err
	}
	return u, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*User, error) {
	u := &User{}
	query := "SELECT id, email, name, avatar_url, password FROM users WHERE id = $1"

	err := r.db.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Email, &u.Name, &u.AvatarURL, &u.Password)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, err
	}
	return u, nil
}

// UpdateProfile applies a partial update: nil fields keep their stored
// value, non-nil fields overwrite it (including with an empty string).
func (r *Repository) UpdateProfile(ctx context.Context, id string, name, avatarURL *string) (*User, error) {
	u := &User{}
	query := `
		UPDATE users
		SET name = COALESCE($2, name), avatar_url = COALESCE($3, avatar_url)
		WHERE id = $1
		RETURNING id, email, name, avatar_url
	`
	err := r.db.QueryRowContext(ctx, query, id, name, avatarURL).Scan(&u.ID, &u.Email, &u.Name, &u.AvatarURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, err
	}
	return u, nil
}

// EnsureByEmail finds or creates a user keyed on its unique email. Used
// for the reserved system identity; the stored password hash is not a
// valid bcrypt hash, so the account can never log in.
func (r *Repository) EnsureByEmail(ctx context.Context, email, name string) (*User, error) {
	u := &User{}
	query := `
		INSERT INTO users (id, email, name, password)
		VALUES ($1, $2, $3, '!')
		ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		RETURNING id, email, name, avatar_url
	`
	err := r.db.QueryRowContext(ctx, query, uuid.NewString(), email, name).
		Scan(&u.ID, &u.Email, &u.Name, &u.AvatarURL)
	if err != nil {
		return nil, err
	}
	return u, nil
}
