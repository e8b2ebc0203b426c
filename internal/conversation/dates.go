package conversation

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/atendezap/atendezap/internal/intent"
	"github.com/atendezap/atendezap/internal/llm"
)

// Date extraction outcomes.
var (
	ErrDateNotFound = errors.New("conversation: date not identified")
	ErrDatePast     = errors.New("conversation: date in the past")
)

var (
	dateExpr       = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{2,4}))?\b`)
	strictDateExpr = regexp.MustCompile(`^(\d{2})/(\d{2})/(\d{4})$`)
	clockExpr      = regexp.MustCompile(`\b(\d{1,2})(?:[:h](\d{2}))?h?\b`)
)

var weekdayNames = map[string]time.Weekday{
	"domingo": time.Sunday,
	"segunda": time.Monday,
	"terca":   time.Tuesday,
	"quarta":  time.Wednesday,
	"quinta":  time.Thursday,
	"sexta":   time.Friday,
	"sabado":  time.Saturday,
}

// dateParser resolves free-form Portuguese text to a calendar day. Cheap
// deterministic rules run first; the LLM is a last resort and its output is
// re-validated before being trusted.
type dateParser struct {
	llm llm.Client
	now func() time.Time
}

// Parse returns the day at midnight local time. ErrDateNotFound and
// ErrDatePast distinguish "no date in the text" from "a date we cannot book".
func (p *dateParser) Parse(ctx context.Context, text string) (time.Time, error) {
	now := p.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	norm := intent.Normalize(text)

	switch {
	case strings.Contains(norm, "depois de amanha"):
		return today.AddDate(0, 0, 2), nil
	case strings.Contains(norm, "amanha"):
		return today.AddDate(0, 0, 1), nil
	case strings.Contains(norm, "hoje"):
		return today, nil
	}

	for name, wd := range weekdayNames {
		if !strings.Contains(norm, name) {
			continue
		}
		days := (int(wd) - int(today.Weekday()) + 7) % 7
		if days == 0 {
			days = 7 // "terça" on a Tuesday means next week
		}
		return today.AddDate(0, 0, days), nil
	}

	if m := dateExpr.FindStringSubmatch(norm); m != nil {
		return p.fromParts(today, m[1], m[2], m[3])
	}

	if p.llm == nil {
		return time.Time{}, ErrDateNotFound
	}
	return p.parseWithLLM(ctx, text, today)
}

// parseWithLLM asks for a constrained DD/MM/YYYY answer and only accepts a
// reply that survives a strict syntactic and calendar check. Anything else,
// sentinels included, is a parse failure.
func (p *dateParser) parseWithLLM(ctx context.Context, text string, today time.Time) (time.Time, error) {
	instruction := fmt.Sprintf(
		"Hoje é %s. Extraia a data mencionada na mensagem do cliente e responda "+
			"APENAS com a data no formato DD/MM/AAAA, sem nenhuma outra palavra. "+
			"Se não houver data identificável, responda NAO_IDENTIFICADA. "+
			"Se a data já passou, responda DATA_PASSADA.",
		today.Format("02/01/2006"))

	resp, err := p.llm.Complete(ctx, llm.Request{
		System:      []string{instruction},
		Messages:    []llm.ChatMessage{{Role: llm.RoleUser, Content: text}},
		MaxTokens:   16,
		Temperature: 0,
		SkipCache:   true,
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("conversation: date extraction: %w", err)
	}

	answer := strings.TrimSpace(resp.Text)
	switch answer {
	case "DATA_PASSADA":
		return time.Time{}, ErrDatePast
	case "NAO_IDENTIFICADA":
		return time.Time{}, ErrDateNotFound
	}

	m := strictDateExpr.FindStringSubmatch(answer)
	if m == nil {
		return time.Time{}, ErrDateNotFound
	}
	return p.fromParts(today, m[1], m[2], m[3])
}

func (p *dateParser) fromParts(today time.Time, dayStr, monthStr, yearStr string) (time.Time, error) {
	day, _ := strconv.Atoi(dayStr)
	month, _ := strconv.Atoi(monthStr)
	year := today.Year()
	if yearStr != "" {
		y, _ := strconv.Atoi(yearStr)
		if y < 100 {
			y += 2000
		}
		year = y
	}

	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, today.Location())
	// time.Date normalizes overflow (32/13 rolls over), so reject silently
	// corrected inputs.
	if date.Day() != day || int(date.Month()) != month {
		return time.Time{}, ErrDateNotFound
	}

	// A day/month without a year that already passed means next year.
	if yearStr == "" && date.Before(today) {
		date = date.AddDate(1, 0, 0)
	}
	if date.Before(today) {
		return time.Time{}, ErrDatePast
	}
	return date, nil
}

// parseClock normalizes "14:00", "14h30", "14h" and "14" to "HH:MM".
func parseClock(text string) (string, bool) {
	norm := strings.TrimSpace(intent.Normalize(text))
	m := clockExpr.FindStringSubmatch(norm)
	if m == nil {
		return "", false
	}
	hour, _ := strconv.Atoi(m[1])
	minute := 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	if hour > 23 || minute > 59 {
		return "", false
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), true
}
