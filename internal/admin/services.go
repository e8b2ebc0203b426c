package admin

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/atendezap/atendezap/internal/business"
	"github.com/atendezap/atendezap/internal/conversation"
	"github.com/atendezap/atendezap/internal/intent"
	"github.com/atendezap/atendezap/internal/session"
)

const minServiceName = 3

// keepCurrent is the keyword that leaves a field untouched in the
// update-service wizard.
const keepCurrent = "manter"

// oneShotServiceExpr matches "adicionar servico Corte 35,90 30" style
// messages carrying every field inline.
var oneShotServiceExpr = regexp.MustCompile(`(?i)servi[çc]o\s+(.{3,}?)\s+(?:r\$\s*)?(\d+(?:[.,]\d{1,2})?)\s+(\d{1,3})\s*(?:min(?:utos)?)?\s*$`)

// oneShotToggleExpr matches "desativar servico 2".
var oneShotToggleExpr = regexp.MustCompile(`(?i)servi[çc]o\s+(\d{1,2})\s*$`)

func (h *Handler) renderServiceList(ctx context.Context, businessID uuid.UUID) (string, error) {
	services, err := h.cfg.ListServices(ctx, businessID, false)
	if err != nil {
		h.logger.Error("service list failed", "business_id", businessID, "error", err)
		return msgLoadFailed, nil
	}
	if len(services) == 0 {
		return "Nenhum serviço cadastrado ainda. Envie *adicionar serviço* para criar o primeiro.", nil
	}

	var b strings.Builder
	b.WriteString("Serviços cadastrados:\n")
	for i, svc := range services {
		status := "ativo"
		if !svc.Active {
			status = "inativo"
		}
		fmt.Fprintf(&b, "%d. %s (R$ %s - %dmin) [%s]\n", i+1, svc.Name, formatPrice(svc.Price), svc.DurationMinutes, status)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (h *Handler) startAddService(ctx context.Context, fc *conversation.FlowContext) (string, error) {
	if m := oneShotServiceExpr.FindStringSubmatch(fc.Msg.Text); m != nil {
		name := strings.TrimSpace(m[1])
		price, priceOK := parsePrice(m[2])
		duration, durOK := parseDuration(m[3])
		if len([]rune(name)) >= minServiceName && priceOK && durOK {
			return h.createService(ctx, fc, name, price, duration)
		}
	}

	w := fc.State.AdminWizard()
	w.Command = intent.AdminAddService
	w.Step = stepName
	w.Service = &session.ServiceDraft{}
	return "Vamos cadastrar um serviço. Qual é o nome? (mínimo 3 caracteres)", nil
}

func (h *Handler) stepAddService(ctx context.Context, fc *conversation.FlowContext) (string, error) {
	w := fc.State.AdminWizard()
	if w.Service == nil {
		w.Service = &session.ServiceDraft{}
	}
	text := strings.TrimSpace(fc.Msg.Text)

	switch w.Step {
	case stepName:
		if len([]rune(text)) < minServiceName {
			return "O nome precisa ter pelo menos 3 caracteres. Tente novamente.", nil
		}
		w.Service.Name = text
		w.Step = stepPrice
		return fmt.Sprintf("Qual o preço de *%s*? (ex: 35,90)", text), nil

	case stepPrice:
		price, ok := parsePrice(text)
		if !ok {
			return "Não entendi o preço. Envie um valor como 35,90.", nil
		}
		w.Service.Price = price
		w.Service.PriceSet = true
		w.Step = stepDuration
		return "E quantos minutos o serviço dura? (ex: 30)", nil

	case stepDuration:
		duration, ok := parseDuration(text)
		if !ok {
			return "Não entendi a duração. Envie o número de minutos, como 30.", nil
		}
		w.Service.DurationMinutes = duration
		return h.createService(ctx, fc, w.Service.Name, w.Service.Price, duration)
	}

	fc.State.ResetFlow()
	return msgUnknownState, nil
}

func (h *Handler) createService(ctx context.Context, fc *conversation.FlowContext, name string, price float64, duration int) (string, error) {
	if _, err := h.cfg.CreateService(ctx, fc.Business.ID, name, price, duration); err != nil {
		return h.saveFailed(fc, "create service", err), nil
	}
	h.cache.Invalidate(ctx, fc.Business)
	fc.State.ResetFlow()
	return fmt.Sprintf("✅ Serviço *%s* cadastrado: R$ %s, %dmin.", name, formatPrice(price), duration), nil
}

// startServiceSelect lists the services and waits for a 1-based pick.
func (h *Handler) startServiceSelect(ctx context.Context, fc *conversation.FlowContext, cmd intent.Intent, question string) (string, error) {
	services, err := h.cfg.ListServices(ctx, fc.Business.ID, false)
	if err != nil {
		h.logger.Error("service list failed", "business_id", fc.Business.ID, "error", err)
		fc.State.ResetFlow()
		return msgLoadFailed, nil
	}
	if len(services) == 0 {
		fc.State.ResetFlow()
		return "Nenhum serviço cadastrado ainda. Envie *adicionar serviço* para criar o primeiro.", nil
	}

	w := fc.State.AdminWizard()
	w.Command = cmd
	w.Step = stepSelect

	listing, _ := h.renderServiceList(ctx, fc.Business.ID)
	return listing + "\n\n" + question, nil
}

func (h *Handler) stepUpdateService(ctx context.Context, fc *conversation.FlowContext) (string, error) {
	w := fc.State.AdminWizard()
	text := strings.TrimSpace(fc.Msg.Text)

	switch w.Step {
	case stepSelect:
		svc, reply := h.pickService(ctx, fc, text)
		if svc == nil {
			return reply, nil
		}
		w.TargetServiceID = svc.ID
		w.Service = &session.ServiceDraft{
			Name:            svc.Name,
			Price:           svc.Price,
			PriceSet:        true,
			DurationMinutes: svc.DurationMinutes,
		}
		w.Step = stepName
		return fmt.Sprintf("Editando *%s*. Envie o novo nome, ou *manter* para não mudar.", svc.Name), nil

	case stepName:
		if !strings.EqualFold(text, keepCurrent) {
			if len([]rune(text)) < minServiceName {
				return "O nome precisa ter pelo menos 3 caracteres. Tente novamente, ou envie *manter*.", nil
			}
			w.Service.Name = text
		}
		w.Step = stepPrice
		return fmt.Sprintf("Preço atual: R$ %s. Envie o novo valor, ou *manter*.", formatPrice(w.Service.Price)), nil

	case stepPrice:
		if !strings.EqualFold(text, keepCurrent) {
			price, ok := parsePrice(text)
			if !ok {
				return "Não entendi o preço. Envie um valor como 35,90, ou *manter*.", nil
			}
			w.Service.Price = price
		}
		w.Step = stepDuration
		return fmt.Sprintf("Duração atual: %dmin. Envie a nova duração em minutos, ou *manter*.", w.Service.DurationMinutes), nil

	case stepDuration:
		if !strings.EqualFold(text, keepCurrent) {
			duration, ok := parseDuration(text)
			if !ok {
				return "Não entendi a duração. Envie o número de minutos, ou *manter*.", nil
			}
			w.Service.DurationMinutes = duration
		}
		if err := h.cfg.UpdateService(ctx, w.TargetServiceID, w.Service.Name, w.Service.Price, w.Service.DurationMinutes); err != nil {
			return h.saveFailed(fc, "update service", err), nil
		}
		h.cache.Invalidate(ctx, fc.Business)
		name := w.Service.Name
		fc.State.ResetFlow()
		return fmt.Sprintf("✅ Serviço *%s* atualizado.", name), nil
	}

	fc.State.ResetFlow()
	return msgUnknownState, nil
}

func (h *Handler) startToggleService(ctx context.Context, fc *conversation.FlowContext) (string, error) {
	activate := strings.Contains(intent.Normalize(fc.Msg.Text), "ativar") &&
		!strings.Contains(intent.Normalize(fc.Msg.Text), "desativar")

	if m := oneShotToggleExpr.FindStringSubmatch(fc.Msg.Text); m != nil {
		if svc, reply := h.serviceAtIndex(ctx, fc, m[1]); svc != nil {
			return h.applyToggle(ctx, fc, svc, activate)
		} else if reply != "" {
			fc.State.ResetFlow()
			return reply, nil
		}
	}

	question := "Qual serviço você quer desativar? Responda com o número."
	if activate {
		question = "Qual serviço você quer ativar? Responda com o número."
	}
	reply, err := h.startServiceSelect(ctx, fc, intent.AdminToggleService, question)
	if fc.State.InAdminWizard() {
		fc.State.AdminWizard().Activate = activate
	}
	return reply, err
}

func (h *Handler) stepToggleService(ctx context.Context, fc *conversation.FlowContext) (string, error) {
	w := fc.State.AdminWizard()
	svc, reply := h.pickService(ctx, fc, strings.TrimSpace(fc.Msg.Text))
	if svc == nil {
		return reply, nil
	}
	return h.applyToggle(ctx, fc, svc, w.Activate)
}

func (h *Handler) applyToggle(ctx context.Context, fc *conversation.FlowContext, svc *business.Service, activate bool) (string, error) {
	if err := h.cfg.SetServiceActive(ctx, svc.ID, activate); err != nil {
		return h.saveFailed(fc, "toggle service", err), nil
	}
	h.cache.Invalidate(ctx, fc.Business)
	fc.State.ResetFlow()
	if activate {
		return fmt.Sprintf("✅ Serviço *%s* ativado. Ele volta a aparecer para os clientes.", svc.Name), nil
	}
	return fmt.Sprintf("✅ Serviço *%s* desativado. Ele não será mais oferecido.", svc.Name), nil
}

// pickService resolves a 1-based index against the current service list.
// A nil service means the returned reply should be sent as-is.
func (h *Handler) pickService(ctx context.Context, fc *conversation.FlowContext, text string) (*business.Service, string) {
	svc, reply := h.serviceAtIndex(ctx, fc, text)
	if svc == nil && reply == "" {
		reply = "Não entendi. Responda com o número do serviço na lista."
	}
	return svc, reply
}

func (h *Handler) serviceAtIndex(ctx context.Context, fc *conversation.FlowContext, text string) (*business.Service, string) {
	idx, ok := parseDuration(strings.TrimSpace(text)) // positive integer
	if !ok {
		return nil, ""
	}
	services, err := h.cfg.ListServices(ctx, fc.Business.ID, false)
	if err != nil {
		h.logger.Error("service list failed", "business_id", fc.Business.ID, "error", err)
		fc.State.ResetFlow()
		return nil, msgLoadFailed
	}
	if idx < 1 || idx > len(services) {
		return nil, ""
	}
	return &services[idx-1], ""
}
