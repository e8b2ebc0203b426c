package session

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/atendezap/atendezap/internal/intent"
)

func TestAddHistoryCap(t *testing.T) {
	st := New(false)

	for i := 0; i < 50; i++ {
		st.AddHistory(RoleUser, fmt.Sprintf("mensagem %d", i), 10)
	}

	assert.Len(t, st.History, 10)
	// Oldest entries evicted first.
	assert.Equal(t, "mensagem 40", st.History[0].Content)
	assert.Equal(t, "mensagem 49", st.History[9].Content)
}

func TestAddHistoryNonPositiveCap(t *testing.T) {
	st := New(false)
	st.AddHistory(RoleUser, "a", 0)
	st.AddHistory(RoleBot, "b", 0)
	assert.Len(t, st.History, 1)
	assert.Equal(t, "b", st.History[0].Content)
}

func TestContextVariantsAreExclusive(t *testing.T) {
	st := New(true)

	sched := st.Scheduling()
	sched.ServiceName = "Corte"
	assert.NotNil(t, st.Context.Scheduling)
	assert.Nil(t, st.Context.AdminWizard)

	// Switching to the admin wizard discards the scheduling variant.
	wiz := st.AdminWizard()
	wiz.Command = intent.AdminAddService
	wiz.Step = "name"
	assert.Nil(t, st.Context.Scheduling)
	assert.NotNil(t, st.Context.AdminWizard)
	assert.True(t, st.InAdminWizard())
}

func TestResetFlow(t *testing.T) {
	st := New(false)
	st.CurrentIntent = intent.CollectDate
	st.Scheduling().Date = "10/09/2026"
	st.AddHistory(RoleUser, "oi", 10)

	st.ResetFlow()

	assert.Equal(t, intent.None, st.CurrentIntent)
	assert.Nil(t, st.Context.Scheduling)
	assert.Nil(t, st.Context.AdminWizard)
	// History survives a flow reset.
	assert.Len(t, st.History, 1)
}

func TestView(t *testing.T) {
	st := New(true)
	st.CurrentIntent = intent.CollectTime

	view := st.View()
	assert.Equal(t, intent.CollectTime, view.ActiveIntent)

	var nilState *State
	assert.Equal(t, intent.SessionView{}, nilState.View())
}
