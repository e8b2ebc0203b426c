package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atendezap/atendezap/internal/business"
	"github.com/atendezap/atendezap/pkg/logging"
)

type fakeStore struct {
	appointments []Appointment
	blocks       []Block
	bookErr      error
	bookedID     uuid.UUID
	bookCalls    int
	lastStart    time.Time
	lastEnd      time.Time
}

func (f *fakeStore) AppointmentsInRange(_ context.Context, _ uuid.UUID, _, _ time.Time) ([]Appointment, error) {
	return f.appointments, nil
}

func (f *fakeStore) BlocksInRange(_ context.Context, _ uuid.UUID, _, _ time.Time) ([]Block, error) {
	return f.blocks, nil
}

func (f *fakeStore) CreateAppointmentTx(_ context.Context, _, _, _ uuid.UUID, start, end time.Time) (uuid.UUID, error) {
	f.bookCalls++
	f.lastStart, f.lastEnd = start, end
	if f.bookErr != nil {
		return uuid.Nil, f.bookErr
	}
	if f.bookedID == uuid.Nil {
		f.bookedID = uuid.New()
	}
	return f.bookedID, nil
}

func (f *fakeStore) CancelAppointment(_ context.Context, _ uuid.UUID) error { return nil }

func (f *fakeStore) UpcomingByCustomer(_ context.Context, _, _ uuid.UUID, _ time.Time) ([]Appointment, error) {
	return f.appointments, nil
}

func testBusiness() *business.Business {
	return &business.Business{
		ID: uuid.New(),
		Hours: business.WeekHours{
			// 2026-09-07 is a Monday.
			Monday: &business.DayHours{Open: "09:00", Close: "12:00"},
		},
	}
}

func testService() *business.Service {
	return &business.Service{ID: uuid.New(), Name: "Corte", DurationMinutes: 60}
}

func fixedClock(t time.Time) EngineOption {
	return WithClock(func() time.Time { return t })
}

func TestCheckAvailabilityGeneratesSlots(t *testing.T) {
	st := &fakeStore{}
	day := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	engine := NewEngine(st, logging.New("error"), fixedClock(day))

	slots, err := engine.CheckAvailability(context.Background(), testBusiness(), testService(), day)
	require.NoError(t, err)
	require.Len(t, slots, 3)
	assert.Equal(t, "09:00", slots[0].Time)
	assert.Equal(t, "10:00", slots[1].Time)
	assert.Equal(t, "11:00", slots[2].Time)
	for _, s := range slots {
		assert.True(t, s.Available)
	}
}

func TestCheckAvailabilityClosedDay(t *testing.T) {
	st := &fakeStore{}
	engine := NewEngine(st, logging.New("error"))
	// Sunday has no hours configured.
	sunday := time.Date(2026, 9, 6, 0, 0, 0, 0, time.UTC)

	slots, err := engine.CheckAvailability(context.Background(), testBusiness(), testService(), sunday)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestCheckAvailabilityMarksConflicts(t *testing.T) {
	day := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	st := &fakeStore{
		appointments: []Appointment{{
			StartTime: time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC),
			EndTime:   time.Date(2026, 9, 7, 11, 0, 0, 0, time.UTC),
		}},
		blocks: []Block{{
			StartTime: time.Date(2026, 9, 7, 11, 0, 0, 0, time.UTC),
			EndTime:   time.Date(2026, 9, 7, 12, 0, 0, 0, time.UTC),
		}},
	}
	engine := NewEngine(st, logging.New("error"), fixedClock(day))

	slots, err := engine.CheckAvailability(context.Background(), testBusiness(), testService(), day)
	require.NoError(t, err)
	require.Len(t, slots, 3)
	assert.True(t, slots[0].Available)   // 09:00 free
	assert.False(t, slots[1].Available)  // 10:00 occupied by appointment
	assert.False(t, slots[2].Available)  // 11:00 blocked by admin
}

func TestCheckAvailabilityRoundsPastSlotsToday(t *testing.T) {
	day := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	// 10:15 on the same day: 09:00 and 10:00 already started.
	now := time.Date(2026, 9, 7, 10, 15, 0, 0, time.UTC)
	engine := NewEngine(&fakeStore{}, logging.New("error"), fixedClock(now))

	slots, err := engine.CheckAvailability(context.Background(), testBusiness(), testService(), day)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, "11:00", slots[0].Time)
}

func TestBookAppointmentRejectsPastWithoutInsert(t *testing.T) {
	st := &fakeStore{}
	now := time.Date(2026, 9, 7, 12, 0, 0, 0, time.UTC)
	engine := NewEngine(st, logging.New("error"), fixedClock(now))

	_, err := engine.BookAppointment(context.Background(), testBusiness(), uuid.New(), testService(), now.Add(-time.Hour))
	assert.ErrorIs(t, err, ErrPastTime)

	_, err = engine.BookAppointment(context.Background(), testBusiness(), uuid.New(), testService(), now)
	assert.ErrorIs(t, err, ErrPastTime)

	// The transactional insert must never have been reached.
	assert.Zero(t, st.bookCalls)
}

func TestBookAppointmentUsesServiceDuration(t *testing.T) {
	st := &fakeStore{}
	now := time.Date(2026, 9, 7, 8, 0, 0, 0, time.UTC)
	engine := NewEngine(st, logging.New("error"), fixedClock(now))

	start := time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC)
	id, err := engine.BookAppointment(context.Background(), testBusiness(), uuid.New(), testService(), start)
	require.NoError(t, err)
	assert.Equal(t, st.bookedID, id)
	assert.Equal(t, start, st.lastStart)
	assert.Equal(t, start.Add(time.Hour), st.lastEnd)
}

func TestBookAppointmentSurfacesSlotTaken(t *testing.T) {
	st := &fakeStore{bookErr: ErrSlotTaken}
	now := time.Date(2026, 9, 7, 8, 0, 0, 0, time.UTC)
	engine := NewEngine(st, logging.New("error"), fixedClock(now))

	_, err := engine.BookAppointment(context.Background(), testBusiness(), uuid.New(), testService(),
		time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, ErrSlotTaken)
}
