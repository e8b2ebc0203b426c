package intent

import (
	"regexp"
	"strings"
)

// SessionView is the slice of conversation state the classifier may consult.
// Keeping it here avoids an import cycle with the session package.
type SessionView struct {
	ActiveIntent Intent
}

type rule struct {
	intent    Intent
	patterns  []*regexp.Regexp
	excludes  []*regexp.Regexp
	adminOnly bool
	// condition, when set, marks the rule as flow-continuation specific.
	// Continuation rules are evaluated before the context-free ones so an
	// ambiguous follow-up ("terça", "14:00", "2") is read relative to the
	// active step instead of re-triggering global matching.
	condition func(SessionView) bool
}

func (r rule) matches(msg string) bool {
	for _, ex := range r.excludes {
		if ex.MatchString(msg) {
			return false
		}
	}
	for _, p := range r.patterns {
		if p.MatchString(msg) {
			return true
		}
	}
	return false
}

// Classifier maps a free-form message to an Intent using an ordered rule list.
// Detection is deterministic and side-effect free.
type Classifier struct {
	contextual  []rule
	contextFree []rule
}

// NewClassifier builds the default Portuguese rule set.
func NewClassifier() *Classifier {
	c := &Classifier{}

	active := func(i Intent) func(SessionView) bool {
		return func(s SessionView) bool { return s.ActiveIntent == i }
	}

	c.contextual = []rule{
		{intent: CollectService, condition: active(CollectService), patterns: pats(`^\d{1,2}$`, `\p{L}{3,}`)},
		{intent: CollectDate, condition: active(CollectDate), patterns: pats(
			`^\d{1,2}/\d{1,2}(/\d{2,4})?$`,
			`\b(hoje|amanha|depois de amanha)\b`,
			`\b(segunda|terca|quarta|quinta|sexta|sabado|domingo)(-feira)?\b`,
			`\bdia \d{1,2}\b`,
		)},
		{intent: CollectTime, condition: active(CollectTime), patterns: pats(
			`^\d{1,2}$`, `\b\d{1,2}:\d{2}\b`, `\b\d{1,2}\s?h(rs)?\b`, `\b\d{1,2} horas\b`,
		)},
		{intent: ConfirmBooking, condition: active(ConfirmBooking), patterns: pats(
			`\b(sim|confirmo|confirmar|pode ser|ok|isso|cancelar|nao)\b`,
		)},
	}

	c.contextFree = []rule{
		// Admin commands are declared first so that, for admins, command
		// keywords win over the customer-facing rules below.
		{intent: AdminHelp, adminOnly: true, patterns: pats(`^(ajuda|comandos|menu)$`)},
		{intent: AdminViewPrompt, adminOnly: true, patterns: pats(`\b(ver|mostrar|exibir) prompt\b`)},
		{intent: AdminUpdatePrompt, adminOnly: true, patterns: pats(`\b(editar|atualizar|alterar|mudar) prompt\b`)},
		{intent: AdminAddService, adminOnly: true, patterns: pats(`\b(adicionar|cadastrar|criar|novo) servico\b`)},
		{intent: AdminUpdateService, adminOnly: true, patterns: pats(`\b(editar|atualizar|alterar) servico\b`)},
		{intent: AdminToggleService, adminOnly: true, patterns: pats(`\b(ativar|desativar) servico\b`)},
		{intent: AdminListServices, adminOnly: true, patterns: pats(`\b(listar|ver|mostrar) servicos\b`)},
		{intent: AdminToggleRAG, adminOnly: true, patterns: pats(`\b(ativar|desativar) (rag|base de conhecimento)\b`)},
		{intent: AdminUpdateHours, adminOnly: true, patterns: pats(`\b(editar|atualizar|alterar|definir) horarios?\b`)},
		{intent: AdminShowHours, adminOnly: true, patterns: pats(`\b(ver|mostrar) horarios?( de funcionamento)?\b`)},
		{intent: AdminBlockSchedule, adminOnly: true, patterns: pats(`\bbloquear (agenda|horario|dia)\b`)},
		{intent: AdminDeleteBlock, adminOnly: true, patterns: pats(`\b(remover|excluir|apagar) bloqueio\b`)},
		{intent: AdminListBlocks, adminOnly: true, patterns: pats(`\b(ver|listar|mostrar) bloqueios\b`)},
		{intent: AdminStats, adminOnly: true, patterns: pats(`\b(estatisticas|relatorio|resumo do dia)\b`)},

		// Customer flows.
		{intent: RescheduleAppointment, patterns: pats(`\b(remarcar|reagendar)\b`, `\b(mudar|alterar|trocar) (o |meu )?(horario|agendamento)\b`)},
		{intent: CancelAppointment, patterns: pats(`\b(cancelar|desmarcar)\b`), excludes: pats(`\bbloqueio\b`)},
		{intent: CheckAppointment, patterns: pats(`\b(meus?|minhas?) (agendamentos?|horarios?|consultas?)\b`, `\b(ver|consultar|confirmar) (meu )?agendamento\b`)},
		{intent: StartScheduling, patterns: pats(`\b(agendar|marcar|agendamento|reservar)\b`, `\bquero (um |fazer um )?horario\b`)},
		{intent: FAQ, patterns: pats(
			`\b(preco|precos|valor|valores|quanto custa|tabela)\b`,
			`\bhorario de (funcionamento|atendimento)\b`,
			`\b(endereco|onde fica|localizacao)\b`,
			`\b(quais|que) servicos\b`,
		)},
	}

	return c
}

// Detect returns the Intent for a message. It never fails: when no rule
// matches, General is returned.
func (c *Classifier) Detect(message string, isAdmin bool, sess SessionView) Intent {
	msg := Normalize(message)
	if msg == "" {
		return General
	}

	for _, r := range c.contextual {
		if r.condition == nil || !r.condition(sess) {
			continue
		}
		if r.adminOnly && !isAdmin {
			continue
		}
		if r.matches(msg) {
			return r.intent
		}
	}

	for _, r := range c.contextFree {
		if r.adminOnly && !isAdmin {
			continue
		}
		if r.matches(msg) {
			return r.intent
		}
	}

	return General
}

func pats(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, regexp.MustCompile(e))
	}
	return out
}

var accentReplacer = strings.NewReplacer(
	"á", "a", "à", "a", "ã", "a", "â", "a",
	"é", "e", "ê", "e",
	"í", "i",
	"ó", "o", "õ", "o", "ô", "o",
	"ú", "u", "ü", "u",
	"ç", "c",
)

// Normalize lowercases a message and strips Portuguese diacritics so rule
// patterns can be written accent-free.
func Normalize(message string) string {
	msg := strings.ToLower(strings.TrimSpace(message))
	return accentReplacer.Replace(msg)
}
