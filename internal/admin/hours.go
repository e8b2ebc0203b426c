package admin

import (
	"context"
	"fmt"
	"strings"

	"github.com/atendezap/atendezap/internal/business"
	"github.com/atendezap/atendezap/internal/conversation"
	"github.com/atendezap/atendezap/internal/intent"
	"github.com/atendezap/atendezap/internal/session"
)

func (h *Handler) stepUpdateHours(ctx context.Context, fc *conversation.FlowContext) (string, error) {
	w := fc.State.AdminWizard()
	text := strings.TrimSpace(fc.Msg.Text)

	switch w.Step {
	case stepWeekday:
		key, ok := weekdayKey(text)
		if !ok {
			return "Não reconheci o dia. Envie segunda, terça, quarta, quinta, sexta, sábado ou domingo.", nil
		}
		w.Hours = &session.HoursDraft{Weekday: key}
		w.Step = stepRange
		return fmt.Sprintf("Qual o horário de %s? Envie no formato 09:00-18:00, ou *fechado* para não atender.", weekdayLabel(key)), nil

	case stepRange:
		if w.Hours == nil {
			fc.State.ResetFlow()
			return msgUnknownState, nil
		}
		if intent.Normalize(text) == "fechado" {
			return h.applyHours(ctx, fc, w.Hours.Weekday, nil)
		}
		open, close, ok := parseHourRange(text)
		if !ok {
			return "Não entendi. Envie abertura e fechamento como 09:00-18:00 (o fechamento depois da abertura), ou *fechado*.", nil
		}
		return h.applyHours(ctx, fc, w.Hours.Weekday, &business.DayHours{Open: open, Close: close})
	}

	fc.State.ResetFlow()
	return msgUnknownState, nil
}

func (h *Handler) applyHours(ctx context.Context, fc *conversation.FlowContext, weekday string, day *business.DayHours) (string, error) {
	hours := fc.Business.Hours
	if err := hours.SetDay(weekday, day); err != nil {
		return h.saveFailed(fc, "update hours", err), nil
	}
	if err := h.cfg.UpdateHours(ctx, fc.Business.ID, hours); err != nil {
		return h.saveFailed(fc, "update hours", err), nil
	}
	fc.Business.Hours = hours
	h.cache.Invalidate(ctx, fc.Business)
	fc.State.ResetFlow()

	if day == nil {
		return fmt.Sprintf("✅ Pronto! Agenda fechada para %s.\n\n%s", weekdayLabel(weekday), fc.Business.HoursSummary()), nil
	}
	return fmt.Sprintf("✅ Horário de %s atualizado para %s às %s.\n\n%s",
		weekdayLabel(weekday), day.Open, day.Close, fc.Business.HoursSummary()), nil
}

// parseHourRange reads "09:00-18:00", "9:00 as 18:00" and similar.
func parseHourRange(text string) (open, close string, ok bool) {
	norm := intent.Normalize(text)
	for _, sep := range []string{"-", " as ", " a ", " ate "} {
		parts := strings.SplitN(norm, sep, 2)
		if len(parts) != 2 {
			continue
		}
		o, okO := parseClock(parts[0])
		c, okC := parseClock(parts[1])
		if okO && okC && o < c {
			return o, c, true
		}
	}
	return "", "", false
}
