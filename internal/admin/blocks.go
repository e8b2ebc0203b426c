package admin

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/atendezap/atendezap/internal/conversation"
	"github.com/atendezap/atendezap/internal/intent"
	"github.com/atendezap/atendezap/internal/session"
)

// skipReason ends the block wizard without a note.
const skipReason = "pular"

// oneShotBlockExpr matches "bloquear agenda 25/12/2026 09:00-12:00 feriado".
var oneShotBlockExpr = regexp.MustCompile(`(?i)\bbloquear\s+(?:agenda|hor[aá]rio|dia)\s+(\S+)\s+(\d{1,2}:\d{2})\s*(?:-|às|as|a)\s*(\d{1,2}:\d{2})\s*(.*)$`)

func (h *Handler) startBlock(ctx context.Context, fc *conversation.FlowContext) (string, error) {
	if m := oneShotBlockExpr.FindStringSubmatch(fc.Msg.Text); m != nil {
		date, dateOK := parseDate(m[1], h.now())
		start, startOK := parseClock(m[2])
		end, endOK := parseClock(m[3])
		if dateOK && startOK && endOK && start < end {
			return h.createBlock(ctx, fc, date, start, end, strings.TrimSpace(m[4]))
		}
	}

	w := fc.State.AdminWizard()
	w.Command = intent.AdminBlockSchedule
	w.Step = stepDate
	w.Block = &session.BlockDraft{}
	return "Vamos bloquear um período da agenda. Qual a data? (DD/MM/AAAA, *hoje* ou *amanhã*)", nil
}

func (h *Handler) stepBlock(ctx context.Context, fc *conversation.FlowContext) (string, error) {
	w := fc.State.AdminWizard()
	if w.Block == nil {
		w.Block = &session.BlockDraft{}
	}
	text := strings.TrimSpace(fc.Msg.Text)

	switch w.Step {
	case stepDate:
		date, ok := parseDate(text, h.now())
		if !ok {
			return "Não entendi a data. Envie no formato DD/MM/AAAA, ou *hoje* / *amanhã*.", nil
		}
		w.Block.Date = date.Format("02/01/2006")
		w.Step = stepStart
		return "A partir de que horário? (ex: 09:00)", nil

	case stepStart:
		start, ok := parseClock(text)
		if !ok {
			return "Não entendi. Envie o horário inicial no formato HH:MM, como 09:00.", nil
		}
		w.Block.Start = start
		w.Step = stepEnd
		return "Até que horário? (ex: 12:00)", nil

	case stepEnd:
		end, ok := parseClock(text)
		if !ok {
			return "Não entendi. Envie o horário final no formato HH:MM, como 12:00.", nil
		}
		if end <= w.Block.Start {
			return fmt.Sprintf("O horário final precisa ser depois de %s. Tente novamente.", w.Block.Start), nil
		}
		w.Block.End = end
		w.Step = stepReason
		return "Qual o motivo do bloqueio? (ou *pular*)", nil

	case stepReason:
		reason := text
		if strings.EqualFold(reason, skipReason) {
			reason = ""
		}
		date, err := time.ParseInLocation("02/01/2006", w.Block.Date, time.Local)
		if err != nil {
			fc.State.ResetFlow()
			return msgUnknownState, nil
		}
		return h.createBlock(ctx, fc, date, w.Block.Start, w.Block.End, reason)
	}

	fc.State.ResetFlow()
	return msgUnknownState, nil
}

func (h *Handler) createBlock(ctx context.Context, fc *conversation.FlowContext, date time.Time, startClock, endClock, reason string) (string, error) {
	start := atClock(date, startClock)
	end := atClock(date, endClock)
	if !end.After(h.now()) {
		fc.State.ResetFlow()
		return "Esse período já passou, então não precisa de bloqueio. Envie *bloquear agenda* para escolher outro.", nil
	}

	if _, err := h.agenda.CreateBlock(ctx, fc.Business.ID, start, end, reason); err != nil {
		return h.saveFailed(fc, "create block", err), nil
	}
	fc.State.ResetFlow()
	return fmt.Sprintf("✅ Agenda bloqueada em %s das %s às %s. Nenhum cliente consegue agendar nesse período.",
		date.Format("02/01/2006"), startClock, endClock), nil
}

func (h *Handler) renderBlockList(ctx context.Context, businessID uuid.UUID) (string, error) {
	blocks, err := h.agenda.ListUpcomingBlocks(ctx, businessID, h.now())
	if err != nil {
		h.logger.Error("block list failed", "business_id", businessID, "error", err)
		return msgLoadFailed, nil
	}
	if len(blocks) == 0 {
		return "Nenhum bloqueio futuro na agenda.", nil
	}

	var b strings.Builder
	b.WriteString("Bloqueios futuros:\n")
	for i, blk := range blocks {
		fmt.Fprintf(&b, "%d. %s das %s às %s", i+1,
			blk.StartTime.Format("02/01/2006"), blk.StartTime.Format("15:04"), blk.EndTime.Format("15:04"))
		if blk.Reason != "" {
			fmt.Fprintf(&b, " (%s)", blk.Reason)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (h *Handler) startDeleteBlock(ctx context.Context, fc *conversation.FlowContext) (string, error) {
	blocks, err := h.agenda.ListUpcomingBlocks(ctx, fc.Business.ID, h.now())
	if err != nil {
		h.logger.Error("block list failed", "business_id", fc.Business.ID, "error", err)
		fc.State.ResetFlow()
		return msgLoadFailed, nil
	}
	if len(blocks) == 0 {
		fc.State.ResetFlow()
		return "Nenhum bloqueio futuro na agenda.", nil
	}

	w := fc.State.AdminWizard()
	w.Command = intent.AdminDeleteBlock
	w.Step = stepSelect

	listing, _ := h.renderBlockList(ctx, fc.Business.ID)
	return listing + "\n\nQual bloqueio você quer remover? Responda com o número.", nil
}

func (h *Handler) stepDeleteBlock(ctx context.Context, fc *conversation.FlowContext) (string, error) {
	idx, ok := parseDuration(strings.TrimSpace(fc.Msg.Text))
	if !ok {
		return "Não entendi. Responda com o número do bloqueio na lista.", nil
	}

	// The list is re-read so the index resolves against current data.
	blocks, err := h.agenda.ListUpcomingBlocks(ctx, fc.Business.ID, h.now())
	if err != nil {
		h.logger.Error("block list failed", "business_id", fc.Business.ID, "error", err)
		fc.State.ResetFlow()
		return msgLoadFailed, nil
	}
	if idx < 1 || idx > len(blocks) {
		return "Não encontrei esse número na lista. Tente novamente.", nil
	}

	blk := blocks[idx-1]
	if err := h.agenda.DeleteBlock(ctx, fc.Business.ID, blk.ID); err != nil {
		return h.saveFailed(fc, "delete block", err), nil
	}
	fc.State.ResetFlow()
	return fmt.Sprintf("✅ Bloqueio de %s removido.", blk.StartTime.Format("02/01/2006")), nil
}

func atClock(date time.Time, clock string) time.Time {
	t, _ := time.ParseInLocation("15:04", clock, time.Local)
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, time.Local)
}
