package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDateParser(llmStub *stubLLM) *dateParser {
	p := &dateParser{now: func() time.Time { return fixedNow }}
	if llmStub != nil {
		p.llm = llmStub
	}
	return p
}

func TestDateParserKeywords(t *testing.T) {
	p := newDateParser(nil)
	ctx := context.Background()

	cases := map[string]time.Time{
		"hoje":                  time.Date(2026, 9, 1, 0, 0, 0, 0, time.Local),
		"amanhã de manhã":       time.Date(2026, 9, 2, 0, 0, 0, 0, time.Local),
		"pode ser depois de amanhã": time.Date(2026, 9, 3, 0, 0, 0, 0, time.Local),
		"na segunda-feira":      time.Date(2026, 9, 7, 0, 0, 0, 0, time.Local),
		"sábado":                time.Date(2026, 9, 5, 0, 0, 0, 0, time.Local),
	}
	for input, want := range cases {
		got, err := p.Parse(ctx, input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}
}

func TestDateParserSameWeekdayMeansNextWeek(t *testing.T) {
	p := newDateParser(nil)

	// fixedNow is a Tuesday; "terça" points at the next one.
	got, err := p.Parse(context.Background(), "terça")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 9, 8, 0, 0, 0, 0, time.Local), got)
}

func TestDateParserNumericFormats(t *testing.T) {
	p := newDateParser(nil)
	ctx := context.Background()

	got, err := p.Parse(ctx, "dia 12/09")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 9, 12, 0, 0, 0, 0, time.Local), got)

	got, err = p.Parse(ctx, "15/10/2026")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 15, 0, 0, 0, 0, time.Local), got)

	// Day/month already past this year rolls to the next year.
	got, err = p.Parse(ctx, "05/01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2027, 1, 5, 0, 0, 0, 0, time.Local), got)
}

func TestDateParserRejectsPast(t *testing.T) {
	p := newDateParser(nil)

	_, err := p.Parse(context.Background(), "10/08/2026")
	assert.ErrorIs(t, err, ErrDatePast)
}

func TestDateParserRejectsImpossibleDate(t *testing.T) {
	p := newDateParser(nil)

	_, err := p.Parse(context.Background(), "32/13")
	assert.ErrorIs(t, err, ErrDateNotFound)
}

func TestDateParserLLMValidOutput(t *testing.T) {
	p := newDateParser(&stubLLM{text: "12/09/2026"})

	got, err := p.Parse(context.Background(), "no próximo feriado talvez")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 9, 12, 0, 0, 0, 0, time.Local), got)
}

func TestDateParserLLMSentinels(t *testing.T) {
	_, err := newDateParser(&stubLLM{text: "NAO_IDENTIFICADA"}).Parse(context.Background(), "sei lá")
	assert.ErrorIs(t, err, ErrDateNotFound)

	_, err = newDateParser(&stubLLM{text: "DATA_PASSADA"}).Parse(context.Background(), "semana passada")
	assert.ErrorIs(t, err, ErrDatePast)
}

func TestDateParserLLMNonConformingOutput(t *testing.T) {
	// Free-form model chatter is a parse failure, never trusted as a date.
	stub := &stubLLM{text: "Acho que o cliente quis dizer 12/09/2026."}

	_, err := newDateParser(stub).Parse(context.Background(), "aquele dia que te falei")
	assert.ErrorIs(t, err, ErrDateNotFound)
}

func TestParseClock(t *testing.T) {
	cases := map[string]string{
		"14:00":            "14:00",
		"14h30":            "14:30",
		"às 9h":            "09:00",
		"pode ser 10":      "10:00",
		"meio-dia não sei": "",
	}
	for input, want := range cases {
		got, ok := parseClock(input)
		if want == "" {
			assert.False(t, ok, input)
			continue
		}
		require.True(t, ok, input)
		assert.Equal(t, want, got, input)
	}
}
