// Package business provides business configuration, its relational
// repository and the redis-backed config cache.
package business

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DayHours is the opening range for one weekday. Nil means closed.
type DayHours struct {
	Open  string `json:"open"`  // "09:00", 24-hour clock
	Close string `json:"close"` // "18:00"
}

// WeekHours maps weekday names to opening hours.
type WeekHours struct {
	Monday    *DayHours `json:"monday,omitempty"`
	Tuesday   *DayHours `json:"tuesday,omitempty"`
	Wednesday *DayHours `json:"wednesday,omitempty"`
	Thursday  *DayHours `json:"thursday,omitempty"`
	Friday    *DayHours `json:"friday,omitempty"`
	Saturday  *DayHours `json:"saturday,omitempty"`
	Sunday    *DayHours `json:"sunday,omitempty"`
}

// HoursFor returns the hours for a weekday, nil when closed.
func (w *WeekHours) HoursFor(day time.Weekday) *DayHours {
	if w == nil {
		return nil
	}
	switch day {
	case time.Monday:
		return w.Monday
	case time.Tuesday:
		return w.Tuesday
	case time.Wednesday:
		return w.Wednesday
	case time.Thursday:
		return w.Thursday
	case time.Friday:
		return w.Friday
	case time.Saturday:
		return w.Saturday
	case time.Sunday:
		return w.Sunday
	}
	return nil
}

// SetDay replaces the hours for a weekday name ("monday".."sunday").
// Passing nil closes the day.
func (w *WeekHours) SetDay(name string, hours *DayHours) error {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "monday":
		w.Monday = hours
	case "tuesday":
		w.Tuesday = hours
	case "wednesday":
		w.Wednesday = hours
	case "thursday":
		w.Thursday = hours
	case "friday":
		w.Friday = hours
	case "saturday":
		w.Saturday = hours
	case "sunday":
		w.Sunday = hours
	default:
		return fmt.Errorf("business: unknown weekday %q", name)
	}
	return nil
}

// Service is a bookable offering.
type Service struct {
	ID              uuid.UUID `json:"id"`
	BusinessID      uuid.UUID `json:"business_id"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	Price           float64   `json:"price"`
	DurationMinutes int       `json:"duration_minutes"`
	Active          bool      `json:"active"`
}

// Business is the read-mostly configuration of one tenant.
type Business struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	PhoneNumberID  string    `json:"phone_number_id"` // WhatsApp Cloud API number id
	AccessToken    string    `json:"access_token"`    // Cloud API token for outbound sends
	RootAdminPhone string    `json:"root_admin_phone"`
	SystemPrompt   string    `json:"system_prompt"`
	RAGEnabled     bool      `json:"rag_enabled"`
	MaxHistory     int       `json:"max_history"`
	SessionTTLSecs int       `json:"session_ttl_seconds"`
	CacheTTLSecs   int       `json:"cache_ttl_seconds"`
	Hours          WeekHours `json:"hours"`
}

// SessionTTL returns the session lifetime: the per-business setting when
// present, then the service default, then 2h.
func (b *Business) SessionTTL(def time.Duration) time.Duration {
	if b.SessionTTLSecs > 0 {
		return time.Duration(b.SessionTTLSecs) * time.Second
	}
	if def > 0 {
		return def
	}
	return 2 * time.Hour
}

// CacheTTL returns the config cache lifetime with the same fallback chain,
// ending at 5m.
func (b *Business) CacheTTL(def time.Duration) time.Duration {
	if b.CacheTTLSecs > 0 {
		return time.Duration(b.CacheTTLSecs) * time.Second
	}
	if def > 0 {
		return def
	}
	return 5 * time.Minute
}

// HistoryCap returns the bounded conversation history length, ending at 20.
func (b *Business) HistoryCap(def int) int {
	if b.MaxHistory > 0 {
		return b.MaxHistory
	}
	if def > 0 {
		return def
	}
	return 20
}

// HoursSummary renders the weekly hours as a short Portuguese listing.
func (b *Business) HoursSummary() string {
	days := []struct {
		label string
		hours *DayHours
	}{
		{"Segunda", b.Hours.Monday},
		{"Terça", b.Hours.Tuesday},
		{"Quarta", b.Hours.Wednesday},
		{"Quinta", b.Hours.Thursday},
		{"Sexta", b.Hours.Friday},
		{"Sábado", b.Hours.Saturday},
		{"Domingo", b.Hours.Sunday},
	}

	var sb strings.Builder
	for _, d := range days {
		if d.hours == nil {
			fmt.Fprintf(&sb, "%s: fechado\n", d.label)
			continue
		}
		fmt.Fprintf(&sb, "%s: %s às %s\n", d.label, d.hours.Open, d.hours.Close)
	}
	return strings.TrimRight(sb.String(), "\n")
}
