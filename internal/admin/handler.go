// Package admin implements the business-owner command flows: one-shot
// commands when every parameter fits in a single message, step wizards
// otherwise. It mutates business configuration and the agenda, never
// customer data.
package admin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/atendezap/atendezap/internal/business"
	"github.com/atendezap/atendezap/internal/conversation"
	"github.com/atendezap/atendezap/internal/intent"
	"github.com/atendezap/atendezap/internal/scheduling"
	"github.com/atendezap/atendezap/pkg/logging"
)

const (
	msgSaveFailed   = "Desculpe, não consegui salvar a alteração agora. Tente novamente em instantes."
	msgLoadFailed   = "Desculpe, não consegui consultar os dados agora. Tente novamente em instantes."
	msgUnknownState = "Não entendi em que ponto estávamos. Vamos recomeçar: envie *ajuda* para ver os comandos."
)

// Wizard step names. The active command disambiguates them.
const (
	stepText     = "text"
	stepSelect   = "select"
	stepName     = "name"
	stepPrice    = "price"
	stepDuration = "duration"
	stepWeekday  = "weekday"
	stepRange    = "range"
	stepDate     = "date"
	stepStart    = "start"
	stepEnd      = "end"
	stepReason   = "reason"
)

// ConfigStore is the subset of business.Repository the handler mutates.
type ConfigStore interface {
	UpdateSystemPrompt(ctx context.Context, id uuid.UUID, prompt string) error
	SetRAGEnabled(ctx context.Context, id uuid.UUID, enabled bool) error
	UpdateHours(ctx context.Context, id uuid.UUID, hours business.WeekHours) error
	ListServices(ctx context.Context, businessID uuid.UUID, onlyActive bool) ([]business.Service, error)
	CreateService(ctx context.Context, businessID uuid.UUID, name string, price float64, durationMinutes int) (uuid.UUID, error)
	UpdateService(ctx context.Context, id uuid.UUID, name string, price float64, durationMinutes int) error
	SetServiceActive(ctx context.Context, id uuid.UUID, active bool) error
}

// CacheInvalidator drops the cached config after a mutation so the next
// message sees it.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, b *business.Business)
}

// Agenda is the subset of scheduling.Repository behind blocks and stats.
type Agenda interface {
	CreateBlock(ctx context.Context, businessID uuid.UUID, start, end time.Time, reason string) (uuid.UUID, error)
	DeleteBlock(ctx context.Context, businessID, blockID uuid.UUID) error
	ListUpcomingBlocks(ctx context.Context, businessID uuid.UUID, now time.Time) ([]scheduling.Block, error)
	GetStats(ctx context.Context, businessID uuid.UUID, now time.Time) (*scheduling.Stats, error)
}

// Handler drives every administrative command. It satisfies the same flow
// contract as the customer flows and is only dispatched to for sessions the
// engine resolved as admin.
type Handler struct {
	cfg    ConfigStore
	cache  CacheInvalidator
	agenda Agenda
	logger *logging.Logger
	now    func() time.Time
}

// Option tweaks a Handler.
type Option func(*Handler)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

// NewHandler wires the admin command flows.
func NewHandler(cfg ConfigStore, cache CacheInvalidator, agenda Agenda, logger *logging.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	h := &Handler{cfg: cfg, cache: cache, agenda: agenda, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handles accepts the whole administrative intent family.
func (h *Handler) Handles(it intent.Intent) bool {
	return it.IsAdmin()
}

// Step continues a wizard in progress or starts the command named by the
// session intent.
func (h *Handler) Step(ctx context.Context, fc *conversation.FlowContext) (string, error) {
	if fc.State.InAdminWizard() {
		return h.continueWizard(ctx, fc)
	}
	return h.startCommand(ctx, fc)
}

func (h *Handler) startCommand(ctx context.Context, fc *conversation.FlowContext) (string, error) {
	switch fc.State.CurrentIntent {
	case intent.AdminHelp:
		fc.State.ResetFlow()
		return helpText, nil

	case intent.AdminViewPrompt:
		fc.State.ResetFlow()
		return fmt.Sprintf("Prompt atual do assistente:\n\n%s", fc.Business.SystemPrompt), nil

	case intent.AdminUpdatePrompt:
		w := fc.State.AdminWizard()
		w.Command = intent.AdminUpdatePrompt
		w.Step = stepText
		return "Envie o novo prompt do assistente (mínimo 10 caracteres).", nil

	case intent.AdminListServices:
		fc.State.ResetFlow()
		return h.renderServiceList(ctx, fc.Business.ID)

	case intent.AdminAddService:
		return h.startAddService(ctx, fc)

	case intent.AdminUpdateService:
		return h.startServiceSelect(ctx, fc, intent.AdminUpdateService,
			"Qual serviço você quer editar? Responda com o número.")

	case intent.AdminToggleService:
		return h.startToggleService(ctx, fc)

	case intent.AdminToggleRAG:
		return h.toggleRAG(ctx, fc)

	case intent.AdminShowHours:
		fc.State.ResetFlow()
		return "Horários de funcionamento:\n" + fc.Business.HoursSummary(), nil

	case intent.AdminUpdateHours:
		w := fc.State.AdminWizard()
		w.Command = intent.AdminUpdateHours
		w.Step = stepWeekday
		return "Qual dia da semana você quer alterar? (segunda, terça, quarta, quinta, sexta, sábado ou domingo)", nil

	case intent.AdminBlockSchedule:
		return h.startBlock(ctx, fc)

	case intent.AdminListBlocks:
		fc.State.ResetFlow()
		return h.renderBlockList(ctx, fc.Business.ID)

	case intent.AdminDeleteBlock:
		return h.startDeleteBlock(ctx, fc)

	case intent.AdminStats:
		fc.State.ResetFlow()
		return h.renderStats(ctx, fc.Business.ID)
	}

	fc.State.ResetFlow()
	return msgUnknownState, nil
}

func (h *Handler) continueWizard(ctx context.Context, fc *conversation.FlowContext) (string, error) {
	w := fc.State.AdminWizard()
	switch w.Command {
	case intent.AdminUpdatePrompt:
		return h.stepUpdatePrompt(ctx, fc)
	case intent.AdminAddService:
		return h.stepAddService(ctx, fc)
	case intent.AdminUpdateService:
		return h.stepUpdateService(ctx, fc)
	case intent.AdminToggleService:
		return h.stepToggleService(ctx, fc)
	case intent.AdminUpdateHours:
		return h.stepUpdateHours(ctx, fc)
	case intent.AdminBlockSchedule:
		return h.stepBlock(ctx, fc)
	case intent.AdminDeleteBlock:
		return h.stepDeleteBlock(ctx, fc)
	}
	fc.State.ResetFlow()
	return msgUnknownState, nil
}

func (h *Handler) stepUpdatePrompt(ctx context.Context, fc *conversation.FlowContext) (string, error) {
	text := strings.TrimSpace(fc.Msg.Text)
	if len([]rune(text)) < 10 {
		return "O prompt ficou muito curto. Envie um texto com pelo menos 10 caracteres.", nil
	}
	if err := h.cfg.UpdateSystemPrompt(ctx, fc.Business.ID, text); err != nil {
		return h.saveFailed(fc, "update system prompt", err), nil
	}
	h.cache.Invalidate(ctx, fc.Business)
	fc.State.ResetFlow()
	return "✅ Prompt atualizado! As próximas respostas já usam o novo texto.", nil
}

func (h *Handler) toggleRAG(ctx context.Context, fc *conversation.FlowContext) (string, error) {
	fc.State.ResetFlow()

	enable := !fc.Business.RAGEnabled
	norm := intent.Normalize(fc.Msg.Text)
	if strings.Contains(norm, "ativar") && !strings.Contains(norm, "desativar") {
		enable = true
	} else if strings.Contains(norm, "desativar") {
		enable = false
	}

	if err := h.cfg.SetRAGEnabled(ctx, fc.Business.ID, enable); err != nil {
		return h.saveFailed(fc, "toggle rag", err), nil
	}
	h.cache.Invalidate(ctx, fc.Business)
	if enable {
		return "✅ Base de conhecimento ativada nas respostas.", nil
	}
	return "✅ Base de conhecimento desativada nas respostas.", nil
}

func (h *Handler) renderStats(ctx context.Context, businessID uuid.UUID) (string, error) {
	stats, err := h.agenda.GetStats(ctx, businessID, h.now())
	if err != nil {
		h.logger.Error("stats query failed", "business_id", businessID, "error", err)
		return msgLoadFailed, nil
	}
	return fmt.Sprintf("📊 Resumo da agenda\nHoje: %d agendamento(s)\nPróximos 7 dias: %d\nCancelados na última semana: %d",
		stats.Today, stats.Next7Days, stats.CancelledWeek), nil
}

// saveFailed logs the failure and resets the wizard so the next message
// starts clean.
func (h *Handler) saveFailed(fc *conversation.FlowContext, op string, err error) string {
	h.logger.Error("admin mutation failed", "op", op, "business_id", fc.Business.ID, "error", err)
	fc.State.ResetFlow()
	return msgSaveFailed
}

var helpText = strings.Join([]string{
	"🛠 Comandos disponíveis:",
	"",
	"*ver prompt* / *editar prompt* — texto-base do assistente",
	"*listar serviços* / *adicionar serviço* / *editar serviço* / *ativar serviço* / *desativar serviço*",
	"*ativar rag* / *desativar rag* — base de conhecimento nas respostas",
	"*ver horários* / *editar horários* — funcionamento por dia da semana",
	"*bloquear agenda* / *ver bloqueios* / *remover bloqueio*",
	"*estatísticas* — resumo da agenda",
}, "\n")
