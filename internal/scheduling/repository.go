// Package scheduling computes availability and performs transactional
// booking against the relational store.
package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Appointment statuses.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusScheduled = "scheduled"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

var (
	// ErrSlotTaken is returned when the transactional re-check finds the
	// requested interval already occupied.
	ErrSlotTaken = errors.New("scheduling: slot taken")
	// ErrNotFound indicates the appointment or block does not exist.
	ErrNotFound = errors.New("scheduling: not found")
)

// Appointment is one booked interval.
type Appointment struct {
	ID          uuid.UUID
	BusinessID  uuid.UUID
	CustomerID  uuid.UUID
	ServiceID   uuid.UUID
	ServiceName string
	StartTime   time.Time
	EndTime     time.Time
	Status      string
}

// Block is an administrator-defined interval during which no bookings are
// permitted.
type Block struct {
	ID         uuid.UUID
	BusinessID uuid.UUID
	StartTime  time.Time
	EndTime    time.Time
	Reason     string
}

// Stats aggregates appointment counts for the admin stats command.
type Stats struct {
	Today         int
	Next7Days     int
	CancelledWeek int
}

// DB is the subset of pgxpool.Pool the repository needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Repository persists appointments and schedule blocks.
type Repository struct {
	db DB
}

// NewRepository creates a repository over a pgx pool (or mock).
func NewRepository(db DB) *Repository {
	if db == nil {
		panic("scheduling: db cannot be nil")
	}
	return &Repository{db: db}
}

// blocking statuses occupy their interval for availability purposes.
const activeStatuses = `('pending', 'confirmed', 'scheduled')`

// AppointmentsInRange lists active appointments overlapping [from, to).
func (r *Repository) AppointmentsInRange(ctx context.Context, businessID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	rows, err := r.db.Query(ctx,
		`SELECT a.id, a.business_id, a.customer_id, a.service_id, COALESCE(s.name, ''), a.start_time, a.end_time, a.status
		 FROM appointments a
		 LEFT JOIN services s ON s.id = a.service_id
		 WHERE a.business_id = $1 AND a.status IN `+activeStatuses+`
		   AND a.start_time < $3 AND a.end_time > $2
		 ORDER BY a.start_time ASC`,
		businessID, from, to)
	if err != nil {
		return nil, fmt.Errorf("scheduling: appointments in range: %w", err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

// BlocksInRange lists schedule blocks overlapping [from, to).
func (r *Repository) BlocksInRange(ctx context.Context, businessID uuid.UUID, from, to time.Time) ([]Block, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, business_id, start_time, end_time, COALESCE(reason, '')
		 FROM schedule_blocks
		 WHERE business_id = $1 AND start_time < $3 AND end_time > $2
		 ORDER BY start_time ASC`,
		businessID, from, to)
	if err != nil {
		return nil, fmt.Errorf("scheduling: blocks in range: %w", err)
	}
	defer rows.Close()

	var blocks []Block
	for rows.Next() {
		var b Block
		if err := rows.Scan(&b.ID, &b.BusinessID, &b.StartTime, &b.EndTime, &b.Reason); err != nil {
			return nil, fmt.Errorf("scheduling: scan block: %w", err)
		}
		blocks = append(blocks, b)
	}
	return blocks, rows.Err()
}

// CreateAppointmentTx books an interval as one transaction: the overlap
// re-check and the insert commit together, so two near-simultaneous bookings
// for the same slot cannot both succeed. The business row is locked first;
// locking matching appointments would not serialize two inserts racing for a
// slot that is still empty.
func (r *Repository) CreateAppointmentTx(ctx context.Context, businessID, customerID, serviceID uuid.UUID, start, end time.Time) (uuid.UUID, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("scheduling: begin booking: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var locked uuid.UUID
	err = tx.QueryRow(ctx,
		`SELECT id FROM businesses WHERE id = $1 FOR UPDATE`, businessID).Scan(&locked)
	if err != nil {
		return uuid.Nil, fmt.Errorf("scheduling: lock business: %w", err)
	}

	var conflicts int
	err = tx.QueryRow(ctx,
		`SELECT (SELECT COUNT(*) FROM appointments
		   WHERE business_id = $1 AND status IN `+activeStatuses+`
		     AND start_time < $3 AND end_time > $2)
		 + (SELECT COUNT(*) FROM schedule_blocks
		   WHERE business_id = $1 AND start_time < $3 AND end_time > $2)`,
		businessID, start, end).Scan(&conflicts)
	if err != nil {
		return uuid.Nil, fmt.Errorf("scheduling: availability re-check: %w", err)
	}
	if conflicts > 0 {
		return uuid.Nil, ErrSlotTaken
	}

	id := uuid.New()
	_, err = tx.Exec(ctx,
		`INSERT INTO appointments (id, business_id, customer_id, service_id, start_time, end_time, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())`,
		id, businessID, customerID, serviceID, start, end, StatusConfirmed)
	if err != nil {
		return uuid.Nil, fmt.Errorf("scheduling: insert appointment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("scheduling: commit booking: %w", err)
	}
	return id, nil
}

// CancelAppointment marks an appointment cancelled. Already finished or
// cancelled rows are left untouched and reported as not found.
func (r *Repository) CancelAppointment(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE appointments SET status = $1, updated_at = now()
		 WHERE id = $2 AND status NOT IN ('cancelled', 'completed')`,
		StatusCancelled, id)
	if err != nil {
		return fmt.Errorf("scheduling: cancel: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpcomingByCustomer lists a customer's future active appointments.
func (r *Repository) UpcomingByCustomer(ctx context.Context, businessID, customerID uuid.UUID, now time.Time) ([]Appointment, error) {
	rows, err := r.db.Query(ctx,
		`SELECT a.id, a.business_id, a.customer_id, a.service_id, COALESCE(s.name, ''), a.start_time, a.end_time, a.status
		 FROM appointments a
		 LEFT JOIN services s ON s.id = a.service_id
		 WHERE a.business_id = $1 AND a.customer_id = $2
		   AND a.status IN `+activeStatuses+` AND a.start_time > $3
		 ORDER BY a.start_time ASC`,
		businessID, customerID, now)
	if err != nil {
		return nil, fmt.Errorf("scheduling: upcoming: %w", err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

// CreateBlock inserts an administrative schedule block.
func (r *Repository) CreateBlock(ctx context.Context, businessID uuid.UUID, start, end time.Time, reason string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := r.db.Exec(ctx,
		`INSERT INTO schedule_blocks (id, business_id, start_time, end_time, reason, created_at)
		 VALUES ($1, $2, $3, $4, $5, now())`,
		id, businessID, start, end, reason)
	if err != nil {
		return uuid.Nil, fmt.Errorf("scheduling: create block: %w", err)
	}
	return id, nil
}

// DeleteBlock removes a schedule block.
func (r *Repository) DeleteBlock(ctx context.Context, businessID, blockID uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM schedule_blocks WHERE id = $1 AND business_id = $2`, blockID, businessID)
	if err != nil {
		return fmt.Errorf("scheduling: delete block: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListUpcomingBlocks lists future blocks for a business.
func (r *Repository) ListUpcomingBlocks(ctx context.Context, businessID uuid.UUID, now time.Time) ([]Block, error) {
	return r.BlocksInRange(ctx, businessID, now, now.AddDate(1, 0, 0))
}

// GetStats aggregates counts for the admin stats view.
func (r *Repository) GetStats(ctx context.Context, businessID uuid.UUID, now time.Time) (*Stats, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)
	weekEnd := dayStart.AddDate(0, 0, 7)
	weekAgo := dayStart.AddDate(0, 0, -7)

	var st Stats
	err := r.db.QueryRow(ctx,
		`SELECT
		   (SELECT COUNT(*) FROM appointments WHERE business_id = $1 AND status IN `+activeStatuses+` AND start_time >= $2 AND start_time < $3),
		   (SELECT COUNT(*) FROM appointments WHERE business_id = $1 AND status IN `+activeStatuses+` AND start_time >= $2 AND start_time < $4),
		   (SELECT COUNT(*) FROM appointments WHERE business_id = $1 AND status = 'cancelled' AND updated_at >= $5)`,
		businessID, dayStart, dayEnd, weekEnd, weekAgo).
		Scan(&st.Today, &st.Next7Days, &st.CancelledWeek)
	if err != nil {
		return nil, fmt.Errorf("scheduling: stats: %w", err)
	}
	return &st, nil
}

func scanAppointments(rows pgx.Rows) ([]Appointment, error) {
	var appts []Appointment
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(&a.ID, &a.BusinessID, &a.CustomerID, &a.ServiceID, &a.ServiceName, &a.StartTime, &a.EndTime, &a.Status); err != nil {
			return nil, fmt.Errorf("scheduling: scan appointment: %w", err)
		}
		appts = append(appts, a)
	}
	return appts, rows.Err()
}
