package story

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"picbook/pkg/models"
)

// ErrNoOwner is returned when a save is attempted without an
// authenticated owner.
var ErrNoOwner = errors.New("no authenticated owner")

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// Save persists a finished book. ID and CreatedAt are filled here; the
// caller provides everything else. Stories are immutable after this.
func (r *Repo) Save(ctx context.Context, s models.Story) (models.Story, error) {
	if s.OwnerID == "" {
		return models.Story{}, ErrNoOwner
	}

	s.ID = uuid.NewString()
	s.CreatedAt = time.Now().UTC()

	pagesJSON, err := json.Marshal(s.Pages)
	if err != nil {
		return models.Story{}, fmt.Errorf("marshal pages: %w", err)
	}

	_, err = r.DB.ExecContext(ctx, `
		INSERT INTO stories (id, owner_id, title, theme, pages, style_id, aspect_ratio, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.OwnerID, s.Title, s.Theme, string(pagesJSON), s.StyleID, s.AspectRatio, s.CreatedAt)
	if err != nil {
		return models.Story{}, fmt.Errorf("insert story: %w", err)
	}
	return s, nil
}

func (r *Repo) ListByOwner(ctx context.Context, ownerID string) ([]models.Story, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, owner_id, title, theme, pages, style_id, aspect_ratio, created_at
		FROM stories
		WHERE owner_id = ?
		ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}
	defer rows.Close()

	out := make([]models.Story, 0, 8)
	for rows.Next() {
		s, err := scanStory(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan story: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows stories: %w", err)
	}
	return out, nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (*models.Story, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, owner_id, title, theme, pages, style_id, aspect_ratio, created_at
		FROM stories
		WHERE id = ?
	`, id)

	s, err := scanStory(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get story: %w", err)
	}
	return &s, nil
}

// DeleteByOwner removes a story only if it belongs to the owner. Reports
// whether a row was actually deleted.
func (r *Repo) DeleteByOwner(ctx context.Context, ownerID, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM stories WHERE id = ? AND owner_id = ?
	`, id, ownerID)
	if err != nil {
		return false, fmt.Errorf("delete story: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete story rows: %w", err)
	}
	return affected > 0, nil
}

func scanStory(scan func(...any) error) (models.Story, error) {
	var (
		s           models.Story
		pagesJSON   string
		styleID     sql.NullString
		aspectRatio sql.NullString
	)

	if err := scan(&s.ID, &s.OwnerID, &s.Title, &s.Theme, &pagesJSON, &styleID, &aspectRatio, &s.CreatedAt); err != nil {
		return models.Story{}, err
	}

	s.StyleID = styleID.String
	s.AspectRatio = aspectRatio.String
	if err := json.Unmarshal([]byte(pagesJSON), &s.Pages); err != nil {
		return models.Story{}, fmt.Errorf("unmarshal pages: %w", err)
	}
	return s, nil
}
