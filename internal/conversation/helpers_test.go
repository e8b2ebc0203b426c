package conversation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/atendezap/atendezap/internal/business"
	"github.com/atendezap/atendezap/internal/customers"
	"github.com/atendezap/atendezap/internal/intent"
	"github.com/atendezap/atendezap/internal/llm"
	"github.com/atendezap/atendezap/internal/scheduling"
	"github.com/atendezap/atendezap/internal/session"
)

var errNotFound = errors.New("not found")

type fakeBusinesses struct {
	byID map[uuid.UUID]*business.Business
}

func (f *fakeBusinesses) Get(_ context.Context, id uuid.UUID) (*business.Business, error) {
	if b, ok := f.byID[id]; ok {
		return b, nil
	}
	return nil, errNotFound
}

type fakeAdmins struct {
	delegated map[string]bool
}

func (f *fakeAdmins) IsDelegatedAdmin(_ context.Context, _ uuid.UUID, phone string) (bool, error) {
	return f.delegated[phone], nil
}

type fakeCustomers struct {
	blocked map[string]bool
	ids     map[string]uuid.UUID
}

func (f *fakeCustomers) EnsureByPhone(_ context.Context, businessID uuid.UUID, phone string) (*customers.Customer, error) {
	if f.ids == nil {
		f.ids = make(map[string]uuid.UUID)
	}
	id, ok := f.ids[phone]
	if !ok {
		id = uuid.New()
		f.ids[phone] = id
	}
	return &customers.Customer{
		ID:         id,
		BusinessID: businessID,
		Phone:      phone,
		Blocked:    f.blocked[phone],
	}, nil
}

type fakeSessions struct {
	mu      sync.Mutex
	store   map[string]*session.State
	saves   int
	lastTTL time.Duration
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{store: make(map[string]*session.State)}
}

func (f *fakeSessions) key(businessID uuid.UUID, phone string) string {
	return businessID.String() + ":" + phone
}

func (f *fakeSessions) Load(_ context.Context, businessID uuid.UUID, phone string) (*session.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.store[f.key(businessID, phone)], nil
}

func (f *fakeSessions) Save(_ context.Context, businessID uuid.UUID, phone string, st *session.State, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	f.lastTTL = ttl
	f.store[f.key(businessID, phone)] = st
	return nil
}

type sentMessage struct {
	BusinessID uuid.UUID
	Phone      string
	Text       string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (f *fakeSender) SendText(_ context.Context, businessID uuid.UUID, phone, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, sentMessage{BusinessID: businessID, Phone: phone, Text: text})
	return "wamid.test", nil
}

func (f *fakeSender) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentMessage, len(f.sent))
	copy(out, f.sent)
	return out
}

type fakeCatalog struct {
	services []business.Service
	err      error
}

func (f *fakeCatalog) ListServices(_ context.Context, _ uuid.UUID, _ bool) ([]business.Service, error) {
	return f.services, f.err
}

func (f *fakeCatalog) GetService(_ context.Context, id uuid.UUID) (*business.Service, error) {
	for i := range f.services {
		if f.services[i].ID == id {
			return &f.services[i], nil
		}
	}
	return nil, errNotFound
}

type fakeScheduler struct {
	slots     []scheduling.TimeSlot
	slotsErr  error
	bookErr   error
	bookCalls int
	bookStart time.Time
	cancelled []uuid.UUID
	upcoming  []scheduling.Appointment
}

func (f *fakeScheduler) CheckAvailability(_ context.Context, _ *business.Business, _ *business.Service, _ time.Time) ([]scheduling.TimeSlot, error) {
	return f.slots, f.slotsErr
}

func (f *fakeScheduler) BookAppointment(_ context.Context, _ *business.Business, _ uuid.UUID, _ *business.Service, start time.Time) (uuid.UUID, error) {
	f.bookCalls++
	f.bookStart = start
	if f.bookErr != nil {
		return uuid.Nil, f.bookErr
	}
	return uuid.New(), nil
}

func (f *fakeScheduler) CancelAppointment(_ context.Context, id uuid.UUID) error {
	f.cancelled = append(f.cancelled, id)
	return nil
}

func (f *fakeScheduler) UpcomingAppointments(_ context.Context, _, _ uuid.UUID) ([]scheduling.Appointment, error) {
	return f.upcoming, nil
}

type stubLLM struct {
	text  string
	err   error
	calls int
	last  llm.Request
}

func (s *stubLLM) Complete(_ context.Context, req llm.Request) (llm.Response, error) {
	s.calls++
	s.last = req
	if s.err != nil {
		return llm.Response{}, s.err
	}
	return llm.Response{Text: s.text, StopReason: "stop"}, nil
}

type recordedStep struct {
	it    intent.Intent
	input string
}

type stubFlow struct {
	handles func(intent.Intent) bool
	reply   string
	err     error
	steps   []recordedStep
}

func (s *stubFlow) Handles(it intent.Intent) bool { return s.handles(it) }

func (s *stubFlow) Step(_ context.Context, fc *FlowContext) (string, error) {
	s.steps = append(s.steps, recordedStep{it: fc.State.CurrentIntent, input: fc.Msg.Text})
	return s.reply, s.err
}

func testBusiness() *business.Business {
	open, close := "09:00", "18:00"
	hours := business.WeekHours{}
	for _, day := range []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday"} {
		_ = hours.SetDay(day, &business.DayHours{Open: open, Close: close})
	}
	return &business.Business{
		ID:             uuid.New(),
		Name:           "Barbearia do Zé",
		PhoneNumberID:  "111222333",
		AccessToken:    "tok",
		RootAdminPhone: "5511988887777",
		SystemPrompt:   "Você é o atendente da Barbearia do Zé.",
		MaxHistory:     20,
		Hours:          hours,
	}
}

func testServices() []business.Service {
	return []business.Service{
		{ID: uuid.New(), Name: "Corte", Price: 35, DurationMinutes: 30, Active: true},
		{ID: uuid.New(), Name: "Barba", Price: 25, DurationMinutes: 20, Active: true},
	}
}
