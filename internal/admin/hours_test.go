package admin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atendezap/atendezap/internal/intent"
)

func TestUpdateHoursWizard(t *testing.T) {
	fx := newFixture()
	st := stateWith(intent.AdminUpdateHours)

	reply, err := fx.handler.Step(context.Background(), fx.ctx(st, "editar horários"))
	require.NoError(t, err)
	assert.Contains(t, reply, "dia da semana")
	require.True(t, st.InAdminWizard())

	reply, err = fx.handler.Step(context.Background(), fx.ctx(st, "terça"))
	require.NoError(t, err)
	assert.Contains(t, reply, "terça-feira")
	assert.Equal(t, "tuesday", st.AdminWizard().Hours.Weekday)

	reply, err = fx.handler.Step(context.Background(), fx.ctx(st, "10:00-19:00"))
	require.NoError(t, err)
	assert.Contains(t, reply, "✅")

	require.NotNil(t, fx.cfg.hours)
	require.NotNil(t, fx.cfg.hours.Tuesday)
	assert.Equal(t, "10:00", fx.cfg.hours.Tuesday.Open)
	assert.Equal(t, "19:00", fx.cfg.hours.Tuesday.Close)
	// Other days untouched.
	require.NotNil(t, fx.cfg.hours.Monday)
	assert.Equal(t, "09:00", fx.cfg.hours.Monday.Open)
	assert.Equal(t, 1, fx.cache.invalidations)
	assert.False(t, st.InAdminWizard())
}

func TestUpdateHoursFechadoClosesDay(t *testing.T) {
	fx := newFixture()
	st := stateWith(intent.AdminUpdateHours)

	_, err := fx.handler.Step(context.Background(), fx.ctx(st, "editar horários"))
	require.NoError(t, err)
	_, err = fx.handler.Step(context.Background(), fx.ctx(st, "sábado"))
	require.NoError(t, err)

	reply, err := fx.handler.Step(context.Background(), fx.ctx(st, "fechado"))
	require.NoError(t, err)
	assert.Contains(t, reply, "fechada para sábado")

	require.NotNil(t, fx.cfg.hours)
	assert.Nil(t, fx.cfg.hours.Saturday)
}

func TestUpdateHoursUnknownWeekdayReprompts(t *testing.T) {
	fx := newFixture()
	st := stateWith(intent.AdminUpdateHours)

	_, err := fx.handler.Step(context.Background(), fx.ctx(st, "editar horários"))
	require.NoError(t, err)

	reply, err := fx.handler.Step(context.Background(), fx.ctx(st, "feriado"))
	require.NoError(t, err)
	assert.Contains(t, reply, "Não reconheci o dia")
	assert.Equal(t, stepWeekday, st.AdminWizard().Step)
}

func TestUpdateHoursRejectsInvertedRange(t *testing.T) {
	fx := newFixture()
	st := stateWith(intent.AdminUpdateHours)

	_, err := fx.handler.Step(context.Background(), fx.ctx(st, "editar horários"))
	require.NoError(t, err)
	_, err = fx.handler.Step(context.Background(), fx.ctx(st, "segunda"))
	require.NoError(t, err)

	reply, err := fx.handler.Step(context.Background(), fx.ctx(st, "18:00-09:00"))
	require.NoError(t, err)
	assert.Contains(t, reply, "Não entendi")
	assert.Equal(t, stepRange, st.AdminWizard().Step)
	assert.Nil(t, fx.cfg.hours)
}

func TestParseHourRangeForms(t *testing.T) {
	cases := []struct {
		in        string
		open, end string
		ok        bool
	}{
		{"09:00-18:00", "09:00", "18:00", true},
		{"9:00 às 18:00", "09:00", "18:00", true},
		{"8:30 ate 12:00", "08:30", "12:00", true},
		{"18:00-09:00", "", "", false},
		{"09:00", "", "", false},
		{"tarde toda", "", "", false},
	}
	for _, tc := range cases {
		open, end, ok := parseHourRange(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.open, open, tc.in)
		assert.Equal(t, tc.end, end, tc.in)
	}
}

func TestWeekdayKeyVariants(t *testing.T) {
	cases := map[string]string{
		"segunda":       "monday",
		"Segunda-feira": "monday",
		"terca":         "tuesday",
		"Terça":         "tuesday",
		"sábado":        "saturday",
		"DOMINGO":       "sunday",
	}
	for in, want := range cases {
		got, ok := weekdayKey(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	_, ok := weekdayKey("feriado")
	assert.False(t, ok)
}
