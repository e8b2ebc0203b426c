package admin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atendezap/atendezap/internal/intent"
	"github.com/atendezap/atendezap/internal/session"
)

func stateWith(it intent.Intent) *session.State {
	st := session.New(true)
	st.CurrentIntent = it
	return st
}

func TestHelpListsCommandsAndResets(t *testing.T) {
	fx := newFixture()
	st := stateWith(intent.AdminHelp)

	reply, err := fx.handler.Step(context.Background(), fx.ctx(st, "ajuda"))
	require.NoError(t, err)
	assert.Contains(t, reply, "Comandos disponíveis")
	assert.Contains(t, reply, "*bloquear agenda*")
	assert.Equal(t, intent.None, st.CurrentIntent)
	assert.False(t, st.InAdminWizard())
}

func TestViewPromptShowsCurrentText(t *testing.T) {
	fx := newFixture()
	st := stateWith(intent.AdminViewPrompt)

	reply, err := fx.handler.Step(context.Background(), fx.ctx(st, "ver prompt"))
	require.NoError(t, err)
	assert.Contains(t, reply, "Você é o atendente da Barbearia do Zé.")
	assert.Equal(t, intent.None, st.CurrentIntent)
}

func TestUpdatePromptWizard(t *testing.T) {
	fx := newFixture()
	st := stateWith(intent.AdminUpdatePrompt)

	reply, err := fx.handler.Step(context.Background(), fx.ctx(st, "editar prompt"))
	require.NoError(t, err)
	assert.Contains(t, reply, "novo prompt")
	require.True(t, st.InAdminWizard())

	// Too short keeps the step.
	reply, err = fx.handler.Step(context.Background(), fx.ctx(st, "oi"))
	require.NoError(t, err)
	assert.Contains(t, reply, "muito curto")
	assert.True(t, st.InAdminWizard())
	assert.Empty(t, fx.cfg.prompt)

	reply, err = fx.handler.Step(context.Background(), fx.ctx(st, "Você é o assistente simpático da barbearia."))
	require.NoError(t, err)
	assert.Contains(t, reply, "✅")
	assert.Equal(t, "Você é o assistente simpático da barbearia.", fx.cfg.prompt)
	assert.Equal(t, 1, fx.cache.invalidations)
	assert.False(t, st.InAdminWizard())
	assert.Equal(t, intent.None, st.CurrentIntent)
}

func TestUpdatePromptSaveFailureResetsWizard(t *testing.T) {
	fx := newFixture()
	fx.cfg.saveErr = errStore
	st := stateWith(intent.AdminUpdatePrompt)

	_, err := fx.handler.Step(context.Background(), fx.ctx(st, "editar prompt"))
	require.NoError(t, err)

	reply, err := fx.handler.Step(context.Background(), fx.ctx(st, "Você é o assistente simpático da barbearia."))
	require.NoError(t, err)
	assert.Equal(t, msgSaveFailed, reply)
	assert.False(t, st.InAdminWizard())
	assert.Zero(t, fx.cache.invalidations)
}

func TestListServicesShowsInactiveToo(t *testing.T) {
	fx := newFixture()
	st := stateWith(intent.AdminListServices)

	reply, err := fx.handler.Step(context.Background(), fx.ctx(st, "listar serviços"))
	require.NoError(t, err)
	assert.Contains(t, reply, "1. Corte (R$ 35 - 30min) [ativo]")
	assert.Contains(t, reply, "2. Barba (R$ 25,50 - 20min) [ativo]")
	assert.Contains(t, reply, "3. Sobrancelha (R$ 15 - 15min) [inativo]")
	assert.Equal(t, intent.None, st.CurrentIntent)
}

func TestToggleRAGOneShot(t *testing.T) {
	fx := newFixture()
	st := stateWith(intent.AdminToggleRAG)

	reply, err := fx.handler.Step(context.Background(), fx.ctx(st, "ativar rag"))
	require.NoError(t, err)
	assert.Contains(t, reply, "ativada")
	require.NotNil(t, fx.cfg.rag)
	assert.True(t, *fx.cfg.rag)
	assert.Equal(t, 1, fx.cache.invalidations)

	st = stateWith(intent.AdminToggleRAG)
	reply, err = fx.handler.Step(context.Background(), fx.ctx(st, "desativar base de conhecimento"))
	require.NoError(t, err)
	assert.Contains(t, reply, "desativada")
	assert.False(t, *fx.cfg.rag)
}

func TestShowHoursRendersSummary(t *testing.T) {
	fx := newFixture()
	st := stateWith(intent.AdminShowHours)

	reply, err := fx.handler.Step(context.Background(), fx.ctx(st, "ver horários"))
	require.NoError(t, err)
	assert.Contains(t, reply, "Segunda: 09:00 às 18:00")
	assert.Contains(t, reply, "Domingo: fechado")
}

func TestStatsSummarizesAgenda(t *testing.T) {
	fx := newFixture()
	fx.agenda.stats.Today = 4
	fx.agenda.stats.Next7Days = 17
	fx.agenda.stats.CancelledWeek = 2
	st := stateWith(intent.AdminStats)

	reply, err := fx.handler.Step(context.Background(), fx.ctx(st, "estatísticas"))
	require.NoError(t, err)
	assert.Contains(t, reply, "Hoje: 4")
	assert.Contains(t, reply, "Próximos 7 dias: 17")
	assert.Contains(t, reply, "Cancelados na última semana: 2")
}

func TestStatsQueryFailureDegrades(t *testing.T) {
	fx := newFixture()
	fx.agenda.listErr = errStore
	st := stateWith(intent.AdminStats)

	reply, err := fx.handler.Step(context.Background(), fx.ctx(st, "estatísticas"))
	require.NoError(t, err)
	assert.Equal(t, msgLoadFailed, reply)
}

func TestUnknownWizardCommandResets(t *testing.T) {
	fx := newFixture()
	st := stateWith(intent.AdminHelp)
	w := st.AdminWizard()
	w.Command = intent.General // corrupted state
	w.Step = stepName

	reply, err := fx.handler.Step(context.Background(), fx.ctx(st, "qualquer coisa"))
	require.NoError(t, err)
	assert.Equal(t, msgUnknownState, reply)
	assert.False(t, st.InAdminWizard())
}
