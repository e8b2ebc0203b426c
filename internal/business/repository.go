package business

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound indicates the requested business or service does not exist.
var ErrNotFound = errors.New("business: not found")

// DB is the subset of pgxpool.Pool the repository needs. pgxmock satisfies it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository reads and mutates business configuration rows.
type Repository struct {
	db DB
}

// NewRepository creates a repository over a pgx pool (or mock).
func NewRepository(db DB) *Repository {
	if db == nil {
		panic("business: db cannot be nil")
	}
	return &Repository{db: db}
}

const businessColumns = `id, name, phone_number_id, access_token, root_admin_phone,
	system_prompt, rag_enabled, max_history, session_ttl_seconds, cache_ttl_seconds, business_hours`

func (r *Repository) scanBusiness(row pgx.Row) (*Business, error) {
	var b Business
	var hours []byte
	err := row.Scan(&b.ID, &b.Name, &b.PhoneNumberID, &b.AccessToken, &b.RootAdminPhone,
		&b.SystemPrompt, &b.RAGEnabled, &b.MaxHistory, &b.SessionTTLSecs, &b.CacheTTLSecs, &hours)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("business: scan: %w", err)
	}
	if len(hours) > 0 {
		if err := json.Unmarshal(hours, &b.Hours); err != nil {
			return nil, fmt.Errorf("business: decode hours: %w", err)
		}
	}
	return &b, nil
}

// GetByID loads one business.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Business, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+businessColumns+` FROM businesses WHERE id = $1`, id)
	return r.scanBusiness(row)
}

// GetByPhoneNumberID resolves a business from the WhatsApp number that
// received the webhook.
func (r *Repository) GetByPhoneNumberID(ctx context.Context, phoneNumberID string) (*Business, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+businessColumns+` FROM businesses WHERE phone_number_id = $1`, phoneNumberID)
	return r.scanBusiness(row)
}

// UpdateSystemPrompt replaces the default system prompt.
func (r *Repository) UpdateSystemPrompt(ctx context.Context, id uuid.UUID, prompt string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE businesses SET system_prompt = $1, updated_at = now() WHERE id = $2`, prompt, id)
	if err != nil {
		return fmt.Errorf("business: update prompt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetRAGEnabled toggles the retrieval layer for a business.
func (r *Repository) SetRAGEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE businesses SET rag_enabled = $1, updated_at = now() WHERE id = $2`, enabled, id)
	if err != nil {
		return fmt.Errorf("business: toggle rag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateHours persists the full weekly hours document.
func (r *Repository) UpdateHours(ctx context.Context, id uuid.UUID, hours WeekHours) error {
	data, err := json.Marshal(hours)
	if err != nil {
		return fmt.Errorf("business: encode hours: %w", err)
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE businesses SET business_hours = $1, updated_at = now() WHERE id = $2`, data, id)
	if err != nil {
		return fmt.Errorf("business: update hours: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListServices returns the services of a business, optionally only active ones,
// in stable name order so numbered listings stay consistent between messages.
func (r *Repository) ListServices(ctx context.Context, businessID uuid.UUID, onlyActive bool) ([]Service, error) {
	query := `SELECT id, business_id, name, COALESCE(description, ''), price, duration_minutes, active
		FROM services WHERE business_id = $1`
	if onlyActive {
		query += ` AND active`
	}
	query += ` ORDER BY name ASC`

	rows, err := r.db.Query(ctx, query, businessID)
	if err != nil {
		return nil, fmt.Errorf("business: list services: %w", err)
	}
	defer rows.Close()

	var services []Service
	for rows.Next() {
		var s Service
		if err := rows.Scan(&s.ID, &s.BusinessID, &s.Name, &s.Description, &s.Price, &s.DurationMinutes, &s.Active); err != nil {
			return nil, fmt.Errorf("business: scan service: %w", err)
		}
		services = append(services, s)
	}
	return services, rows.Err()
}

// GetService loads one service row.
func (r *Repository) GetService(ctx context.Context, id uuid.UUID) (*Service, error) {
	var s Service
	err := r.db.QueryRow(ctx,
		`SELECT id, business_id, name, COALESCE(description, ''), price, duration_minutes, active
		 FROM services WHERE id = $1`, id).
		Scan(&s.ID, &s.BusinessID, &s.Name, &s.Description, &s.Price, &s.DurationMinutes, &s.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("business: get service: %w", err)
	}
	return &s, nil
}

// CreateService inserts a new service and returns its id.
func (r *Repository) CreateService(ctx context.Context, businessID uuid.UUID, name string, price float64, durationMinutes int) (uuid.UUID, error) {
	id := uuid.New()
	_, err := r.db.Exec(ctx,
		`INSERT INTO services (id, business_id, name, price, duration_minutes, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, true, now(), now())`,
		id, businessID, name, price, durationMinutes)
	if err != nil {
		return uuid.Nil, fmt.Errorf("business: create service: %w", err)
	}
	return id, nil
}

// UpdateService replaces name, price and duration of a service.
func (r *Repository) UpdateService(ctx context.Context, id uuid.UUID, name string, price float64, durationMinutes int) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE services SET name = $1, price = $2, duration_minutes = $3, updated_at = now() WHERE id = $4`,
		name, price, durationMinutes, id)
	if err != nil {
		return fmt.Errorf("business: update service: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetServiceActive flips a service's availability without deleting history.
func (r *Repository) SetServiceActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE services SET active = $1, updated_at = now() WHERE id = $2`, active, id)
	if err != nil {
		return fmt.Errorf("business: toggle service: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// IsDelegatedAdmin reports whether the phone was granted admin rights for the
// business, beyond the root admin configured on the business row.
func (r *Repository) IsDelegatedAdmin(ctx context.Context, businessID uuid.UUID, phone string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM business_admins WHERE business_id = $1 AND phone = $2)`,
		businessID, phone).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("business: admin lookup: %w", err)
	}
	return exists, nil
}
