// Package customers persists end-user records, created lazily on first contact.
package customers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound indicates the customer does not exist.
var ErrNotFound = errors.New("customers: not found")

// Customer is one end user of one business, keyed by phone.
type Customer struct {
	ID         uuid.UUID
	BusinessID uuid.UUID
	Phone      string
	Name       string
	Blocked    bool
	CreatedAt  time.Time
}

// DB is the subset of pgxpool.Pool the repository needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository reads and creates customer rows.
type Repository struct {
	db DB
}

// NewRepository creates a repository over a pgx pool (or mock).
func NewRepository(db DB) *Repository {
	if db == nil {
		panic("customers: db cannot be nil")
	}
	return &Repository{db: db}
}

// GetByPhone loads a customer of a business by phone number.
func (r *Repository) GetByPhone(ctx context.Context, businessID uuid.UUID, phone string) (*Customer, error) {
	var c Customer
	err := r.db.QueryRow(ctx,
		`SELECT id, business_id, phone, COALESCE(name, ''), blocked, created_at
		 FROM customers WHERE business_id = $1 AND phone = $2`,
		businessID, phone).
		Scan(&c.ID, &c.BusinessID, &c.Phone, &c.Name, &c.Blocked, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("customers: get by phone: %w", err)
	}
	return &c, nil
}

// EnsureByPhone returns the customer for (business, phone), creating the row
// on first contact. Two racing first messages both succeed; the insert is
// idempotent on the (business_id, phone) unique key.
func (r *Repository) EnsureByPhone(ctx context.Context, businessID uuid.UUID, phone string) (*Customer, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, errors.New("customers: phone required")
	}

	existing, err := r.GetByPhone(ctx, businessID, phone)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	id := uuid.New()
	_, err = r.db.Exec(ctx,
		`INSERT INTO customers (id, business_id, phone, blocked, created_at)
		 VALUES ($1, $2, $3, false, now())
		 ON CONFLICT (business_id, phone) DO NOTHING`,
		id, businessID, phone)
	if err != nil {
		return nil, fmt.Errorf("customers: create: %w", err)
	}

	// Re-read so a concurrent insert still resolves to the stored row.
	return r.GetByPhone(ctx, businessID, phone)
}

// SetBlocked flips the blocked flag for a customer.
func (r *Repository) SetBlocked(ctx context.Context, id uuid.UUID, blocked bool) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE customers SET blocked = $1 WHERE id = $2`, blocked, id)
	if err != nil {
		return fmt.Errorf("customers: set blocked: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
