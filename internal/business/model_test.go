package business

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHoursFor(t *testing.T) {
	hours := WeekHours{
		Monday: &DayHours{Open: "09:00", Close: "18:00"},
		Sunday: nil,
	}

	mon := hours.HoursFor(time.Monday)
	require.NotNil(t, mon)
	assert.Equal(t, "09:00", mon.Open)

	assert.Nil(t, hours.HoursFor(time.Sunday))
	assert.Nil(t, hours.HoursFor(time.Wednesday))

	var nilHours *WeekHours
	assert.Nil(t, nilHours.HoursFor(time.Monday))
}

func TestSetDay(t *testing.T) {
	var hours WeekHours

	require.NoError(t, hours.SetDay("Tuesday", &DayHours{Open: "08:00", Close: "17:00"}))
	require.NotNil(t, hours.Tuesday)
	assert.Equal(t, "08:00", hours.Tuesday.Open)

	require.NoError(t, hours.SetDay("tuesday", nil))
	assert.Nil(t, hours.Tuesday)

	assert.Error(t, hours.SetDay("someday", nil))
}

func TestBusinessDefaults(t *testing.T) {
	b := &Business{}

	assert.Equal(t, 2*time.Hour, b.SessionTTL(0))
	assert.Equal(t, 5*time.Minute, b.CacheTTL(0))
	assert.Equal(t, 20, b.HistoryCap(0))

	// Service-level defaults apply when the row leaves the value unset.
	assert.Equal(t, time.Hour, b.SessionTTL(time.Hour))
	assert.Equal(t, 10*time.Minute, b.CacheTTL(10*time.Minute))
	assert.Equal(t, 50, b.HistoryCap(50))

	// The per-business setting beats both.
	b.SessionTTLSecs = 900
	b.CacheTTLSecs = 60
	b.MaxHistory = 8
	assert.Equal(t, 15*time.Minute, b.SessionTTL(time.Hour))
	assert.Equal(t, time.Minute, b.CacheTTL(10*time.Minute))
	assert.Equal(t, 8, b.HistoryCap(50))
}

func TestHoursSummary(t *testing.T) {
	b := &Business{Hours: WeekHours{
		Monday: &DayHours{Open: "09:00", Close: "18:00"},
	}}

	summary := b.HoursSummary()
	assert.Contains(t, summary, "Segunda: 09:00 às 18:00")
	assert.Contains(t, summary, "Domingo: fechado")
}
