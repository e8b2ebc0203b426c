package admin

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/atendezap/atendezap/internal/intent"
)

var (
	priceExpr = regexp.MustCompile(`^(?:r\$\s*)?(\d+)(?:[.,](\d{1,2}))?$`)
	clockExpr = regexp.MustCompile(`^([01]?\d|2[0-3]):([0-5]\d)$`)
	dateExpr  = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})(?:/(\d{4}))?$`)
)

// parsePrice reads a Brazilian-format money value ("35,90", "R$ 35").
func parsePrice(text string) (float64, bool) {
	m := priceExpr.FindStringSubmatch(strings.ToLower(strings.TrimSpace(text)))
	if m == nil {
		return 0, false
	}
	normalized := m[1]
	if m[2] != "" {
		normalized += "." + m[2]
	}
	value, err := strconv.ParseFloat(normalized, 64)
	if err != nil || value <= 0 {
		return 0, false
	}
	return value, true
}

// parseDuration reads a positive integer (minutes, list indexes).
func parseDuration(text string) (int, bool) {
	value, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || value <= 0 {
		return 0, false
	}
	return value, true
}

// parseClock normalizes "9:30" to "09:30" and rejects anything that is not
// a 24-hour HH:MM.
func parseClock(text string) (string, bool) {
	m := clockExpr.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return "", false
	}
	hour, _ := strconv.Atoi(m[1])
	return fmt.Sprintf("%02d:%s", hour, m[2]), true
}

// parseDate reads "hoje", "amanhã" or a DD/MM[/YYYY] date, never in the
// past. A yearless date rolls into next year when the day already passed.
func parseDate(text string, now time.Time) (time.Time, bool) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)

	switch intent.Normalize(text) {
	case "hoje":
		return today, true
	case "amanha":
		return today.AddDate(0, 0, 1), true
	}

	m := dateExpr.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return time.Time{}, false
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])

	year := now.Year()
	explicitYear := m[3] != ""
	if explicitYear {
		year, _ = strconv.Atoi(m[3])
	}

	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local)
	// Overflowed values (32/01, 15/13) normalize to a different day.
	if date.Day() != day || date.Month() != time.Month(month) {
		return time.Time{}, false
	}
	if date.Before(today) {
		if explicitYear {
			return time.Time{}, false
		}
		date = date.AddDate(1, 0, 0)
	}
	return date, true
}

// weekdayKey maps a Portuguese weekday to the english key the config
// schema uses. Accent-insensitive.
func weekdayKey(text string) (string, bool) {
	norm := intent.Normalize(text)
	norm = strings.TrimSuffix(norm, "-feira")
	norm = strings.TrimSuffix(norm, " feira")
	switch norm {
	case "segunda":
		return "monday", true
	case "terca":
		return "tuesday", true
	case "quarta":
		return "wednesday", true
	case "quinta":
		return "thursday", true
	case "sexta":
		return "friday", true
	case "sabado":
		return "saturday", true
	case "domingo":
		return "sunday", true
	}
	return "", false
}

// weekdayLabel is the inverse of weekdayKey, for replies.
func weekdayLabel(key string) string {
	switch key {
	case "monday":
		return "segunda-feira"
	case "tuesday":
		return "terça-feira"
	case "wednesday":
		return "quarta-feira"
	case "thursday":
		return "quinta-feira"
	case "friday":
		return "sexta-feira"
	case "saturday":
		return "sábado"
	case "sunday":
		return "domingo"
	}
	return key
}

// formatPrice renders "35,90" / "35" the way prices read in Portuguese.
func formatPrice(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strings.Replace(fmt.Sprintf("%.2f", v), ".", ",", 1)
}
