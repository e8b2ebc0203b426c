// Package session holds the per-(business, phone) conversation state and its
// redis-backed store.
package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/atendezap/atendezap/internal/intent"
)

// History roles.
const (
	RoleUser = "user"
	RoleBot  = "bot"
)

// HistoryEntry is one logged exchange line.
type HistoryEntry struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ServiceOption is one row of the service list last presented to the user.
// Kept on the session so a numeric reply can be resolved against the exact
// list the user saw.
type ServiceOption struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Price           float64   `json:"price"`
	DurationMinutes int       `json:"duration_minutes"`
}

// Slot is a discrete bookable time within business hours.
type Slot struct {
	Time      string `json:"time"` // "HH:MM"
	Available bool   `json:"available"`
}

// SchedulingContext carries the working values of the customer scheduling flow.
type SchedulingContext struct {
	Options         []ServiceOption `json:"options,omitempty"`
	ServiceID       uuid.UUID       `json:"service_id,omitempty"`
	ServiceName     string          `json:"service_name,omitempty"`
	DurationMinutes int             `json:"duration_minutes,omitempty"`
	Date            string          `json:"date,omitempty"` // "DD/MM/YYYY", validated
	Time            string          `json:"time,omitempty"` // "HH:MM"
	Slots           []Slot          `json:"slots,omitempty"`
	// Attempts counts consecutive failed clarifications at the current step.
	Attempts int `json:"attempts,omitempty"`
	// RescheduleFrom holds the appointment being moved, when set the
	// confirm step cancels it after booking the new slot.
	RescheduleFrom uuid.UUID `json:"reschedule_from,omitempty"`
}

// ServiceDraft is the partial input of the add/update-service wizard.
type ServiceDraft struct {
	Name            string  `json:"name,omitempty"`
	Price           float64 `json:"price,omitempty"`
	PriceSet        bool    `json:"price_set,omitempty"`
	DurationMinutes int     `json:"duration_minutes,omitempty"`
}

// HoursDraft is the partial input of the business-hours wizard.
type HoursDraft struct {
	Weekday string `json:"weekday,omitempty"`
	Open    string `json:"open,omitempty"`
	Close   string `json:"close,omitempty"`
}

// BlockDraft is the partial input of the schedule-block wizard.
type BlockDraft struct {
	Date   string `json:"date,omitempty"`
	Start  string `json:"start,omitempty"`
	End    string `json:"end,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// AdminWizardContext tracks a multi-step admin command in progress.
type AdminWizardContext struct {
	Command         intent.Intent `json:"command"`
	Step            string        `json:"step"`
	TargetServiceID uuid.UUID     `json:"target_service_id,omitempty"`
	// Activate carries the direction of a toggle command from the message
	// that started it to the step that selects the target.
	Activate bool `json:"activate,omitempty"`
	Service         *ServiceDraft `json:"service,omitempty"`
	Hours           *HoursDraft   `json:"hours,omitempty"`
	Block           *BlockDraft   `json:"block,omitempty"`
}

// Context is a tagged union of flow-scoped working data. At most one variant
// is populated, selected by the session's current intent. It always
// serializes as an object, never as null.
type Context struct {
	Scheduling  *SchedulingContext  `json:"scheduling,omitempty"`
	AdminWizard *AdminWizardContext `json:"admin_wizard,omitempty"`
}

// State is the durable-but-ephemeral record of one conversation.
type State struct {
	CurrentIntent intent.Intent  `json:"current_intent"`
	Context       Context        `json:"context_data"`
	History       []HistoryEntry `json:"conversation_history"`
	IsAdmin       bool           `json:"is_admin"`
	UserID        *uuid.UUID     `json:"user_id,omitempty"`
	LastUpdated   time.Time      `json:"last_updated"`
}

// New returns a fresh session with no flow in progress.
func New(isAdmin bool) *State {
	return &State{
		CurrentIntent: intent.None,
		IsAdmin:       isAdmin,
		History:       []HistoryEntry{},
		LastUpdated:   time.Now().UTC(),
	}
}

// AddHistory appends an exchange line, evicting the oldest entries so the
// list never exceeds maxEntries. A non-positive cap keeps a single entry.
func (s *State) AddHistory(role, content string, maxEntries int) {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	s.History = append(s.History, HistoryEntry{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	})
	if over := len(s.History) - maxEntries; over > 0 {
		s.History = s.History[over:]
	}
}

// Scheduling returns the scheduling context variant, creating it if needed
// and discarding any admin wizard in progress.
func (s *State) Scheduling() *SchedulingContext {
	if s.Context.Scheduling == nil {
		s.Context = Context{Scheduling: &SchedulingContext{}}
	}
	return s.Context.Scheduling
}

// AdminWizard returns the admin wizard variant, creating it if needed and
// discarding any scheduling flow in progress.
func (s *State) AdminWizard() *AdminWizardContext {
	if s.Context.AdminWizard == nil {
		s.Context = Context{AdminWizard: &AdminWizardContext{}}
	}
	return s.Context.AdminWizard
}

// InAdminWizard reports whether an admin command is waiting for input.
func (s *State) InAdminWizard() bool {
	return s.Context.AdminWizard != nil && s.Context.AdminWizard.Step != ""
}

// ResetFlow clears the active intent and all flow context. Used on flow
// completion, user cancellation and unrecoverable handler errors so the next
// message starts fresh.
func (s *State) ResetFlow() {
	s.CurrentIntent = intent.None
	s.Context = Context{}
}

// View exposes the fields the intent classifier is allowed to consult.
func (s *State) View() intent.SessionView {
	if s == nil {
		return intent.SessionView{}
	}
	return intent.SessionView{
		ActiveIntent: s.CurrentIntent,
	}
}
