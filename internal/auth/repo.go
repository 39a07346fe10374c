package auth

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

type User struct {
	ID           string
	Phone        string
	TokenVersion int
	CreatedAt    time.Time
}

// LoginCode is a pending verification code for one phone number. Only the
// bcrypt hash of the code is stored.
type LoginCode struct {
	Phone     string
	CodeHash  string
	ExpiresAt time.Time
}

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

func (r *Repo) CreateUser(ctx context.Context, u User) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO users (id, phone)
		VALUES (?, ?)
	`, u.ID, u.Phone)

	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *Repo) GetByPhone(ctx context.Context, phone string) (*User, error) {
	phone = strings.TrimSpace(phone)
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, phone, token_version, created_at
		FROM users
		WHERE phone = ?
	`, phone)

	var u User
	if err := row.Scan(&u.ID, &u.Phone, &u.TokenVersion, &u.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get by phone: %w", err)
	}
	return &u, nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (*User, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, phone, token_version, created_at
		FROM users
		WHERE id = ?
	`, id)

	var u User
	if err := row.Scan(&u.ID, &u.Phone, &u.TokenVersion, &u.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get by id: %w", err)
	}
	return &u, nil
}

func (r *Repo) GetTokenVersion(ctx context.Context, id string) (int, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT token_version
		FROM users
		WHERE id = ?
	`, id)

	var version int
	if err := row.Scan(&version); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("get token version: %w", err)
	}
	return version, nil
}

func (r *Repo) BumpTokenVersion(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE users
		SET token_version = token_version + 1
		WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("bump token version: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("bump token version rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("bump token version: user not found")
	}
	return nil
}

// UpsertLoginCode replaces any pending code for the phone number; a new
// send always invalidates the previous code.
func (r *Repo) UpsertLoginCode(ctx context.Context, code LoginCode) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO login_codes (phone, code_hash, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT(phone) DO UPDATE SET
			code_hash = excluded.code_hash,
			expires_at = excluded.expires_at,
			created_at = CURRENT_TIMESTAMP
	`, code.Phone, code.CodeHash, code.ExpiresAt.UTC())
	if err != nil {
		return fmt.Errorf("upsert login code: %w", err)
	}
	return nil
}

func (r *Repo) GetLoginCode(ctx context.Context, phone string) (*LoginCode, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT phone, code_hash, expires_at
		FROM login_codes
		WHERE phone = ?
	`, phone)

	var lc LoginCode
	if err := row.Scan(&lc.Phone, &lc.CodeHash, &lc.ExpiresAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get login code: %w", err)
	}
	return &lc, nil
}

// DeleteLoginCode removes a pending code; codes are single use.
func (r *Repo) DeleteLoginCode(ctx context.Context, phone string) error {
	_, err := r.DB.ExecContext(ctx, `
		DELETE FROM login_codes WHERE phone = ?
	`, phone)
	if err != nil {
		return fmt.Errorf("delete login code: %w", err)
	}
	return nil
}
