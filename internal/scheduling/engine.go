package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/atendezap/atendezap/internal/business"
	"github.com/atendezap/atendezap/pkg/logging"
)

// ErrPastTime is returned when a booking starts at or before the current time.
var ErrPastTime = errors.New("scheduling: start time in the past")

// TimeSlot is a discrete bookable unit within business hours.
type TimeSlot struct {
	Time      string // "HH:MM"
	Start     time.Time
	Available bool
}

// store is the persistence surface the engine consults. Small enough to fake
// in tests without a database.
type store interface {
	AppointmentsInRange(ctx context.Context, businessID uuid.UUID, from, to time.Time) ([]Appointment, error)
	BlocksInRange(ctx context.Context, businessID uuid.UUID, from, to time.Time) ([]Block, error)
	CreateAppointmentTx(ctx context.Context, businessID, customerID, serviceID uuid.UUID, start, end time.Time) (uuid.UUID, error)
	CancelAppointment(ctx context.Context, id uuid.UUID) error
	UpcomingByCustomer(ctx context.Context, businessID, customerID uuid.UUID, now time.Time) ([]Appointment, error)
}

// Engine computes free slots and performs bookings. It holds no state of its
// own; the conversation core drives it.
type Engine struct {
	store  store
	logger *logging.Logger
	now    func() time.Time
}

// EngineOption configures the engine.
type EngineOption func(*Engine)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates the availability/booking engine.
func NewEngine(st store, logger *logging.Logger, opts ...EngineOption) *Engine {
	if st == nil {
		panic("scheduling: store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	e := &Engine{store: st, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CheckAvailability generates the slots of one service on one date. Slots
// respect the weekday's business hours, step by the service duration, and are
// flagged unavailable when overlapping an active appointment or a schedule
// block. Past slots on the current day are dropped, rounding "now" up to the
// next slot boundary.
func (e *Engine) CheckAvailability(ctx context.Context, biz *business.Business, svc *business.Service, date time.Time) ([]TimeSlot, error) {
	hours := biz.Hours.HoursFor(date.Weekday())
	if hours == nil {
		return nil, nil
	}

	open, err := atClock(date, hours.Open)
	if err != nil {
		return nil, fmt.Errorf("scheduling: bad opening time %q: %w", hours.Open, err)
	}
	closeAt, err := atClock(date, hours.Close)
	if err != nil {
		return nil, fmt.Errorf("scheduling: bad closing time %q: %w", hours.Close, err)
	}
	if !open.Before(closeAt) {
		return nil, nil
	}

	duration := time.Duration(svc.DurationMinutes) * time.Minute
	if duration <= 0 {
		duration = 30 * time.Minute
	}

	appts, err := e.store.AppointmentsInRange(ctx, biz.ID, open, closeAt)
	if err != nil {
		return nil, err
	}
	blocks, err := e.store.BlocksInRange(ctx, biz.ID, open, closeAt)
	if err != nil {
		return nil, err
	}

	now := e.now()
	var slots []TimeSlot
	for start := open; !start.Add(duration).After(closeAt); start = start.Add(duration) {
		if !start.After(now) {
			// Today rounds up to the next slot boundary.
			continue
		}
		end := start.Add(duration)
		available := !overlapsAppointment(appts, start, end) && !overlapsBlock(blocks, start, end)
		slots = append(slots, TimeSlot{
			Time:      start.Format("15:04"),
			Start:     start,
			Available: available,
		})
	}
	return slots, nil
}

// BookAppointment books one slot. Starts at or before now fail with
// ErrPastTime without ever reaching the transactional insert; slot conflicts
// surface as ErrSlotTaken from the single transactional call.
func (e *Engine) BookAppointment(ctx context.Context, biz *business.Business, customerID uuid.UUID, svc *business.Service, start time.Time) (uuid.UUID, error) {
	if !start.After(e.now()) {
		return uuid.Nil, ErrPastTime
	}
	duration := time.Duration(svc.DurationMinutes) * time.Minute
	if duration <= 0 {
		duration = 30 * time.Minute
	}

	id, err := e.store.CreateAppointmentTx(ctx, biz.ID, customerID, svc.ID, start, start.Add(duration))
	if err != nil {
		if errors.Is(err, ErrSlotTaken) {
			return uuid.Nil, err
		}
		return uuid.Nil, fmt.Errorf("scheduling: booking failed: %w", err)
	}

	e.logger.Info("appointment booked",
		"business_id", biz.ID, "customer_id", customerID, "service", svc.Name, "start", start)
	return id, nil
}

// CancelAppointment cancels a booking.
func (e *Engine) CancelAppointment(ctx context.Context, id uuid.UUID) error {
	return e.store.CancelAppointment(ctx, id)
}

// UpcomingAppointments lists a customer's future bookings.
func (e *Engine) UpcomingAppointments(ctx context.Context, businessID, customerID uuid.UUID) ([]Appointment, error) {
	return e.store.UpcomingByCustomer(ctx, businessID, customerID, e.now())
}

func atClock(date time.Time, clock string) (time.Time, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, date.Location()), nil
}

func overlapsAppointment(appts []Appointment, start, end time.Time) bool {
	for _, a := range appts {
		if a.StartTime.Before(end) && a.EndTime.After(start) {
			return true
		}
	}
	return false
}

func overlapsBlock(blocks []Block, start, end time.Time) bool {
	for _, b := range blocks {
		if b.StartTime.Before(end) && b.EndTime.After(start) {
			return true
		}
	}
	return false
}
