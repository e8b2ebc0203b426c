package rag

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound indicates the knowledge entry does not exist.
var ErrNotFound = errors.New("rag: knowledge entry not found")

// Document is one knowledge-base entry for a business.
type Document struct {
	ID         uuid.UUID
	BusinessID uuid.UUID
	Title      string
	Content    string
	Active     bool
}

// DB is the slice of pgxpool.Pool the repository needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists knowledge documents in Postgres.
type Repository struct {
	db DB
}

// NewRepository creates a knowledge repository.
func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

// ListActive returns the active documents for a business.
func (r *Repository) ListActive(ctx context.Context, businessID uuid.UUID) ([]Document, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, business_id, title, content, active
		FROM knowledge_base
		WHERE business_id = $1 AND active = TRUE
		ORDER BY created_at`, businessID)
	if err != nil {
		return nil, fmt.Errorf("rag: list knowledge: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.BusinessID, &d.Title, &d.Content, &d.Active); err != nil {
			return nil, fmt.Errorf("rag: scan knowledge row: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// Add inserts a new knowledge document and returns its id.
func (r *Repository) Add(ctx context.Context, businessID uuid.UUID, title, content string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := r.db.Exec(ctx, `
		INSERT INTO knowledge_base (id, business_id, title, content, active)
		VALUES ($1, $2, $3, $4, TRUE)`, id, businessID, title, content)
	if err != nil {
		return uuid.Nil, fmt.Errorf("rag: insert knowledge: %w", err)
	}
	return id, nil
}

// SetActive toggles a document on or off.
func (r *Repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE knowledge_base SET active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("rag: toggle knowledge: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
