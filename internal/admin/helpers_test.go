package admin

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/atendezap/atendezap/internal/business"
	"github.com/atendezap/atendezap/internal/conversation"
	"github.com/atendezap/atendezap/internal/scheduling"
	"github.com/atendezap/atendezap/internal/session"
)

// Tuesday.
var fixedNow = time.Date(2026, 9, 1, 8, 0, 0, 0, time.Local)

var errStore = errors.New("store unavailable")

type createdService struct {
	name     string
	price    float64
	duration int
}

type updatedService struct {
	id       uuid.UUID
	name     string
	price    float64
	duration int
}

type fakeConfig struct {
	services []business.Service
	listErr  error
	saveErr  error

	prompt       string
	rag          *bool
	hours        *business.WeekHours
	created      []createdService
	updated      []updatedService
	activeStates map[uuid.UUID]bool
}

func (f *fakeConfig) UpdateSystemPrompt(_ context.Context, _ uuid.UUID, prompt string) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.prompt = prompt
	return nil
}

func (f *fakeConfig) SetRAGEnabled(_ context.Context, _ uuid.UUID, enabled bool) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.rag = &enabled
	return nil
}

func (f *fakeConfig) UpdateHours(_ context.Context, _ uuid.UUID, hours business.WeekHours) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.hours = &hours
	return nil
}

func (f *fakeConfig) ListServices(_ context.Context, _ uuid.UUID, onlyActive bool) ([]business.Service, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if !onlyActive {
		return f.services, nil
	}
	var active []business.Service
	for _, svc := range f.services {
		if svc.Active {
			active = append(active, svc)
		}
	}
	return active, nil
}

func (f *fakeConfig) CreateService(_ context.Context, _ uuid.UUID, name string, price float64, durationMinutes int) (uuid.UUID, error) {
	if f.saveErr != nil {
		return uuid.Nil, f.saveErr
	}
	f.created = append(f.created, createdService{name: name, price: price, duration: durationMinutes})
	return uuid.New(), nil
}

func (f *fakeConfig) UpdateService(_ context.Context, id uuid.UUID, name string, price float64, durationMinutes int) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.updated = append(f.updated, updatedService{id: id, name: name, price: price, duration: durationMinutes})
	return nil
}

func (f *fakeConfig) SetServiceActive(_ context.Context, id uuid.UUID, active bool) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	if f.activeStates == nil {
		f.activeStates = map[uuid.UUID]bool{}
	}
	f.activeStates[id] = active
	return nil
}

type fakeCache struct {
	invalidations int
}

func (f *fakeCache) Invalidate(_ context.Context, _ *business.Business) {
	f.invalidations++
}

type createdBlock struct {
	start  time.Time
	end    time.Time
	reason string
}

type fakeAgenda struct {
	blocks  []scheduling.Block
	stats   scheduling.Stats
	listErr error
	saveErr error

	created []createdBlock
	deleted []uuid.UUID
}

func (f *fakeAgenda) CreateBlock(_ context.Context, _ uuid.UUID, start, end time.Time, reason string) (uuid.UUID, error) {
	if f.saveErr != nil {
		return uuid.Nil, f.saveErr
	}
	f.created = append(f.created, createdBlock{start: start, end: end, reason: reason})
	return uuid.New(), nil
}

func (f *fakeAgenda) DeleteBlock(_ context.Context, _ uuid.UUID, blockID uuid.UUID) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.deleted = append(f.deleted, blockID)
	return nil
}

func (f *fakeAgenda) ListUpcomingBlocks(_ context.Context, _ uuid.UUID, _ time.Time) ([]scheduling.Block, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.blocks, nil
}

func (f *fakeAgenda) GetStats(_ context.Context, _ uuid.UUID, _ time.Time) (*scheduling.Stats, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	s := f.stats
	return &s, nil
}

type fixture struct {
	handler *Handler
	cfg     *fakeConfig
	cache   *fakeCache
	agenda  *fakeAgenda
	biz     *business.Business
}

func newFixture() *fixture {
	cfg := &fakeConfig{services: testServices()}
	cache := &fakeCache{}
	agenda := &fakeAgenda{}

	hours := business.WeekHours{}
	for _, day := range []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday"} {
		_ = hours.SetDay(day, &business.DayHours{Open: "09:00", Close: "18:00"})
	}

	return &fixture{
		handler: NewHandler(cfg, cache, agenda, nil, WithClock(func() time.Time { return fixedNow })),
		cfg:     cfg,
		cache:   cache,
		agenda:  agenda,
		biz: &business.Business{
			ID:           uuid.New(),
			Name:         "Barbearia do Zé",
			SystemPrompt: "Você é o atendente da Barbearia do Zé.",
			Hours:        hours,
		},
	}
}

func testServices() []business.Service {
	return []business.Service{
		{ID: uuid.New(), Name: "Corte", Price: 35, DurationMinutes: 30, Active: true},
		{ID: uuid.New(), Name: "Barba", Price: 25.5, DurationMinutes: 20, Active: true},
		{ID: uuid.New(), Name: "Sobrancelha", Price: 15, DurationMinutes: 15, Active: false},
	}
}

func (fx *fixture) ctx(st *session.State, text string) *conversation.FlowContext {
	return &conversation.FlowContext{
		Business: fx.biz,
		State:    st,
		Msg:      conversation.InboundMessage{Phone: "5511988887777", Text: text, MessageType: "text"},
	}
}
