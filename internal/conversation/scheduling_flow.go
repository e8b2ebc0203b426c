package conversation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/atendezap/atendezap/internal/business"
	"github.com/atendezap/atendezap/internal/intent"
	"github.com/atendezap/atendezap/internal/llm"
	"github.com/atendezap/atendezap/internal/observability/metrics"
	"github.com/atendezap/atendezap/internal/scheduling"
	"github.com/atendezap/atendezap/internal/session"
	"github.com/atendezap/atendezap/pkg/logging"
)

// ServiceCatalog is the slice of the business repository the flow needs.
type ServiceCatalog interface {
	ListServices(ctx context.Context, businessID uuid.UUID, onlyActive bool) ([]business.Service, error)
	GetService(ctx context.Context, id uuid.UUID) (*business.Service, error)
}

// Scheduler is the slice of the scheduling engine the flow needs.
type Scheduler interface {
	CheckAvailability(ctx context.Context, biz *business.Business, svc *business.Service, date time.Time) ([]scheduling.TimeSlot, error)
	BookAppointment(ctx context.Context, biz *business.Business, customerID uuid.UUID, svc *business.Service, start time.Time) (uuid.UUID, error)
	CancelAppointment(ctx context.Context, id uuid.UUID) error
	UpcomingAppointments(ctx context.Context, businessID, customerID uuid.UUID) ([]scheduling.Appointment, error)
}

// SchedulingFlow drives the customer booking conversation:
// start → collect service → collect date → collect time → confirm.
// Failed extractions re-prompt and keep the step unchanged, up to a cap of
// consecutive attempts, after which the flow resets rather than looping
// forever on non-cooperative input.
type SchedulingFlow struct {
	catalog    ServiceCatalog
	scheduler  Scheduler
	llm        llm.Client
	dates      *dateParser
	clarifyMax int
	now        func() time.Time
	logger     *logging.Logger
	metrics    *metrics.Metrics
}

// SchedulingFlowOption customizes the flow.
type SchedulingFlowOption func(*SchedulingFlow)

// WithFlowClock overrides the time source, for tests.
func WithFlowClock(now func() time.Time) SchedulingFlowOption {
	return func(f *SchedulingFlow) {
		f.now = now
		f.dates.now = now
	}
}

// WithClarifyMax sets how many consecutive failed clarifications are allowed
// before the flow gives up and resets. Zero disables the cap.
func WithClarifyMax(n int) SchedulingFlowOption {
	return func(f *SchedulingFlow) { f.clarifyMax = n }
}

// WithFlowMetrics enables booking outcome counters.
func WithFlowMetrics(m *metrics.Metrics) SchedulingFlowOption {
	return func(f *SchedulingFlow) { f.metrics = m }
}

// NewSchedulingFlow builds the customer scheduling flow handler.
func NewSchedulingFlow(catalog ServiceCatalog, scheduler Scheduler, client llm.Client, logger *logging.Logger, opts ...SchedulingFlowOption) *SchedulingFlow {
	if logger == nil {
		logger = logging.Default()
	}
	f := &SchedulingFlow{
		catalog:    catalog,
		scheduler:  scheduler,
		llm:        client,
		dates:      &dateParser{llm: client, now: time.Now},
		clarifyMax: 3,
		now:        time.Now,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Handles reports the intents this flow owns.
func (f *SchedulingFlow) Handles(it intent.Intent) bool {
	return it.IsSchedulingStep() ||
		it == intent.CheckAppointment || it == intent.CancelAppointment || it == intent.RescheduleAppointment
}

// Step advances the flow one message.
func (f *SchedulingFlow) Step(ctx context.Context, fc *FlowContext) (string, error) {
	switch fc.State.CurrentIntent {
	case intent.StartScheduling:
		return f.start(ctx, fc)
	case intent.CollectService:
		return f.collectService(ctx, fc)
	case intent.CollectDate:
		return f.collectDate(ctx, fc)
	case intent.CollectTime:
		return f.collectTime(ctx, fc)
	case intent.ConfirmBooking:
		return f.confirm(ctx, fc)
	case intent.CheckAppointment:
		return f.check(ctx, fc)
	case intent.CancelAppointment:
		return f.cancel(ctx, fc)
	case intent.RescheduleAppointment:
		return f.reschedule(ctx, fc)
	default:
		// Unrecognized step: restart from the entry point.
		fc.State.ResetFlow()
		fc.State.CurrentIntent = intent.StartScheduling
		return f.start(ctx, fc)
	}
}

func (f *SchedulingFlow) start(ctx context.Context, fc *FlowContext) (string, error) {
	services, err := f.catalog.ListServices(ctx, fc.Business.ID, true)
	if err != nil {
		return "", fmt.Errorf("conversation: list services: %w", err)
	}
	if len(services) == 0 {
		fc.State.ResetFlow()
		return "No momento não temos serviços disponíveis para agendamento. Por favor, tente novamente mais tarde.", nil
	}

	options := make([]session.ServiceOption, len(services))
	var list strings.Builder
	for i, svc := range services {
		options[i] = session.ServiceOption{
			ID:              svc.ID,
			Name:            svc.Name,
			Price:           svc.Price,
			DurationMinutes: svc.DurationMinutes,
		}
		fmt.Fprintf(&list, "%d. %s (%s - %dmin)\n", i+1, svc.Name, formatPrice(svc.Price), svc.DurationMinutes)
	}

	sc := fc.State.Scheduling()
	*sc = session.SchedulingContext{Options: options}
	fc.State.CurrentIntent = intent.CollectService

	return fmt.Sprintf("Claro! 😊 Estes são os nossos serviços:\n%s\nQual serviço você gostaria de agendar?", list.String()), nil
}

func (f *SchedulingFlow) collectService(ctx context.Context, fc *FlowContext) (string, error) {
	sc := fc.State.Scheduling()
	if len(sc.Options) == 0 {
		// Stale session without the presented list: restart cleanly.
		fc.State.CurrentIntent = intent.StartScheduling
		return f.start(ctx, fc)
	}

	opt, ok := matchService(ctx, f.llm, sc.Options, fc.Msg.Text)
	if !ok {
		return f.clarify(fc, "Não consegui identificar o serviço 😕 Responda com o número ou o nome de um dos serviços da lista, por favor."), nil
	}

	sc.ServiceID = opt.ID
	sc.ServiceName = opt.Name
	sc.DurationMinutes = opt.DurationMinutes
	sc.Attempts = 0
	fc.State.CurrentIntent = intent.CollectDate

	return fmt.Sprintf("Ótimo, *%s* então! Para qual dia você gostaria de agendar? (por exemplo: amanhã, sexta-feira ou 12/09)", opt.Name), nil
}

func (f *SchedulingFlow) collectDate(ctx context.Context, fc *FlowContext) (string, error) {
	sc := fc.State.Scheduling()
	if sc.ServiceID == uuid.Nil {
		fc.State.CurrentIntent = intent.StartScheduling
		return f.start(ctx, fc)
	}

	date, err := f.dates.Parse(ctx, fc.Msg.Text)
	switch {
	case errors.Is(err, ErrDatePast):
		return f.clarify(fc, "Essa data já passou 😅 Pode escolher uma data a partir de hoje?"), nil
	case errors.Is(err, ErrDateNotFound):
		return f.clarify(fc, "Não consegui identificar a data 😕 Pode enviá-la no formato DD/MM, ou dizer algo como \"amanhã\" ou \"sexta-feira\"?"), nil
	case err != nil:
		// LLM transport trouble is not the user's fault; re-prompt without
		// burning a clarification attempt.
		f.logger.Error("date extraction failed", "error", err)
		return "Tive um problema para entender a data. Pode enviá-la no formato DD/MM/AAAA?", nil
	}

	slots, err := f.scheduler.CheckAvailability(ctx, fc.Business, f.serviceFromContext(sc), date)
	if err != nil {
		return "", fmt.Errorf("conversation: check availability: %w", err)
	}

	available := availableTimes(slots)
	if len(available) == 0 {
		return fmt.Sprintf("Poxa, não temos horários livres em %s 😕 Pode escolher outra data?", date.Format("02/01/2006")), nil
	}

	sc.Date = date.Format("02/01/2006")
	sc.Slots = make([]session.Slot, len(slots))
	for i, slot := range slots {
		sc.Slots[i] = session.Slot{Time: slot.Time, Available: slot.Available}
	}
	sc.Attempts = 0
	fc.State.CurrentIntent = intent.CollectTime

	return fmt.Sprintf("Estes são os horários disponíveis para %s:\n%s\nQual horário você prefere?",
		date.Format("02/01/2006"), strings.Join(available, ", ")), nil
}

func (f *SchedulingFlow) collectTime(ctx context.Context, fc *FlowContext) (string, error) {
	sc := fc.State.Scheduling()
	if sc.Date == "" {
		fc.State.CurrentIntent = intent.CollectDate
		return "Para qual dia você gostaria de agendar?", nil
	}

	available := sessionAvailableTimes(sc.Slots)
	clock, ok := parseClock(fc.Msg.Text)
	if !ok {
		return f.clarify(fc, fmt.Sprintf("Não entendi o horário 😕 Os horários disponíveis são: %s. Qual prefere?",
			strings.Join(available, ", "))), nil
	}

	if !containsTime(available, clock) {
		// The user picked a taken or nonexistent slot: stay on this step and
		// list only what is actually free.
		return f.clarify(fc, fmt.Sprintf("O horário %s não está disponível 😕 Os horários livres são: %s. Qual prefere?",
			clock, strings.Join(available, ", "))), nil
	}

	sc.Time = clock
	sc.Attempts = 0
	fc.State.CurrentIntent = intent.ConfirmBooking

	return fmt.Sprintf("Perfeito! Confirmando: *%s* em %s às %s. Posso confirmar? (sim/não)",
		sc.ServiceName, sc.Date, sc.Time), nil
}

func (f *SchedulingFlow) confirm(ctx context.Context, fc *FlowContext) (string, error) {
	sc := fc.State.Scheduling()
	norm := intent.Normalize(fc.Msg.Text)

	// Negatives win: "quero cancelar" carries an affirmative token but is
	// a refusal.
	switch {
	case isNegative(norm):
		fc.State.ResetFlow()
		return "Sem problemas, agendamento cancelado! Se mudar de ideia, é só enviar *agendar* 😊", nil
	case isAffirmative(norm):
		return f.book(ctx, fc, sc)
	default:
		return f.clarify(fc, "Responda *sim* para confirmar ou *não* para cancelar 🙂"), nil
	}
}

func (f *SchedulingFlow) book(ctx context.Context, fc *FlowContext, sc *session.SchedulingContext) (string, error) {
	if fc.State.UserID == nil {
		fc.State.ResetFlow()
		return msgTechnicalTrouble, nil
	}

	start, err := time.ParseInLocation("02/01/2006 15:04", sc.Date+" "+sc.Time, f.now().Location())
	if err != nil {
		fc.State.ResetFlow()
		return msgTechnicalTrouble, nil
	}

	svc := f.serviceFromContext(sc)
	_, err = f.scheduler.BookAppointment(ctx, fc.Business, *fc.State.UserID, svc, start)
	switch {
	case errors.Is(err, scheduling.ErrSlotTaken):
		f.metrics.ObserveBooking("slot_taken")
		return f.slotTaken(ctx, fc, sc, start)
	case errors.Is(err, scheduling.ErrPastTime):
		f.metrics.ObserveBooking("past_time")
		sc.Date, sc.Time, sc.Slots = "", "", nil
		fc.State.CurrentIntent = intent.CollectDate
		return "Esse horário já passou 😅 Para qual dia você gostaria de agendar?", nil
	case err != nil:
		f.metrics.ObserveBooking("error")
		return "", fmt.Errorf("conversation: book appointment: %w", err)
	}
	f.metrics.ObserveBooking("confirmed")

	if sc.RescheduleFrom != uuid.Nil {
		if err := f.scheduler.CancelAppointment(ctx, sc.RescheduleFrom); err != nil {
			f.logger.Error("failed to cancel rescheduled appointment",
				"appointment_id", sc.RescheduleFrom, "error", err)
		}
	}

	reply := fmt.Sprintf("Agendamento confirmado! ✅\n*%s* em %s às %s.\nAté lá! 😊", sc.ServiceName, sc.Date, sc.Time)
	fc.State.ResetFlow()
	return reply, nil
}

// slotTaken handles the race where the chosen slot was booked between listing
// and confirming: re-check availability and drop back to time collection.
func (f *SchedulingFlow) slotTaken(ctx context.Context, fc *FlowContext, sc *session.SchedulingContext, start time.Time) (string, error) {
	date := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	slots, err := f.scheduler.CheckAvailability(ctx, fc.Business, f.serviceFromContext(sc), date)
	if err != nil {
		f.logger.Error("failed to refresh availability", "error", err)
		slots = nil
	}

	available := availableTimes(slots)
	sc.Time = ""
	if len(available) == 0 {
		sc.Date, sc.Slots = "", nil
		fc.State.CurrentIntent = intent.CollectDate
		return "Esse horário acabou de ser reservado e não sobraram horários livres nesse dia 😔 Pode escolher outra data?", nil
	}

	sc.Slots = make([]session.Slot, len(slots))
	for i, slot := range slots {
		sc.Slots[i] = session.Slot{Time: slot.Time, Available: slot.Available}
	}
	fc.State.CurrentIntent = intent.CollectTime
	return fmt.Sprintf("Esse horário acabou de ser reservado 😔 Os horários ainda livres são: %s. Qual prefere?",
		strings.Join(available, ", ")), nil
}

func (f *SchedulingFlow) check(ctx context.Context, fc *FlowContext) (string, error) {
	appts, err := f.upcoming(ctx, fc)
	if err != nil {
		return "", err
	}
	fc.State.ResetFlow()
	if len(appts) == 0 {
		return "Você não tem agendamentos marcados. Quer marcar um? É só enviar *agendar* 😊", nil
	}

	var list strings.Builder
	list.WriteString("Seus próximos agendamentos:\n")
	for i, appt := range appts {
		fmt.Fprintf(&list, "%d. %s — %s\n", i+1, appt.ServiceName, appt.StartTime.Format("02/01/2006 às 15:04"))
	}
	return strings.TrimRight(list.String(), "\n"), nil
}

func (f *SchedulingFlow) cancel(ctx context.Context, fc *FlowContext) (string, error) {
	appts, err := f.upcoming(ctx, fc)
	if err != nil {
		return "", err
	}
	if len(appts) == 0 {
		fc.State.ResetFlow()
		return "Você não tem agendamentos para cancelar 🙂", nil
	}

	appt, prompt := pickAppointment(appts, fc.Msg.Text, "cancelar")
	if appt == nil {
		// Stay on this intent; the next message should carry the number.
		return prompt, nil
	}

	if err := f.scheduler.CancelAppointment(ctx, appt.ID); err != nil {
		return "", fmt.Errorf("conversation: cancel appointment: %w", err)
	}
	fc.State.ResetFlow()
	return fmt.Sprintf("Pronto! Seu agendamento de *%s* em %s foi cancelado.",
		appt.ServiceName, appt.StartTime.Format("02/01/2006 às 15:04")), nil
}

func (f *SchedulingFlow) reschedule(ctx context.Context, fc *FlowContext) (string, error) {
	appts, err := f.upcoming(ctx, fc)
	if err != nil {
		return "", err
	}
	if len(appts) == 0 {
		fc.State.ResetFlow()
		return "Você não tem agendamentos para remarcar. Quer marcar um? É só enviar *agendar* 😊", nil
	}

	appt, prompt := pickAppointment(appts, fc.Msg.Text, "remarcar")
	if appt == nil {
		return prompt, nil
	}

	svc, err := f.catalog.GetService(ctx, appt.ServiceID)
	if err != nil {
		return "", fmt.Errorf("conversation: load service for reschedule: %w", err)
	}

	sc := fc.State.Scheduling()
	*sc = session.SchedulingContext{
		ServiceID:       svc.ID,
		ServiceName:     svc.Name,
		DurationMinutes: svc.DurationMinutes,
		RescheduleFrom:  appt.ID,
	}
	fc.State.CurrentIntent = intent.CollectDate

	return fmt.Sprintf("Vamos remarcar seu *%s* de %s. Para qual dia você gostaria?",
		svc.Name, appt.StartTime.Format("02/01/2006 às 15:04")), nil
}

func (f *SchedulingFlow) upcoming(ctx context.Context, fc *FlowContext) ([]scheduling.Appointment, error) {
	if fc.State.UserID == nil {
		return nil, nil
	}
	appts, err := f.scheduler.UpcomingAppointments(ctx, fc.Business.ID, *fc.State.UserID)
	if err != nil {
		return nil, fmt.Errorf("conversation: list appointments: %w", err)
	}
	return appts, nil
}

// clarify re-prompts without advancing, resetting the whole flow once the
// attempt cap is hit.
func (f *SchedulingFlow) clarify(fc *FlowContext, prompt string) string {
	sc := fc.State.Scheduling()
	sc.Attempts++
	if f.clarifyMax > 0 && sc.Attempts >= f.clarifyMax {
		fc.State.ResetFlow()
		return "Não consegui entender 😕 Vamos recomeçar: quando quiser marcar um horário, é só enviar *agendar*."
	}
	return prompt
}

func (f *SchedulingFlow) serviceFromContext(sc *session.SchedulingContext) *business.Service {
	return &business.Service{
		ID:              sc.ServiceID,
		Name:            sc.ServiceName,
		DurationMinutes: sc.DurationMinutes,
	}
}

// pickAppointment resolves which appointment the user means: the only one, or
// a 1-based index from the message. Returns a selection prompt otherwise.
func pickAppointment(appts []scheduling.Appointment, text, verb string) (*scheduling.Appointment, string) {
	if len(appts) == 1 {
		return &appts[0], ""
	}
	if m := leadingIndexExpr.FindStringSubmatch(intent.Normalize(text)); m != nil {
		if idx, err := strconv.Atoi(m[1]); err == nil && idx >= 1 && idx <= len(appts) {
			return &appts[idx-1], ""
		}
	}

	var list strings.Builder
	fmt.Fprintf(&list, "Você tem mais de um agendamento. Qual deles quer %s?\n", verb)
	for i, appt := range appts {
		fmt.Fprintf(&list, "%d. %s — %s\n", i+1, appt.ServiceName, appt.StartTime.Format("02/01/2006 às 15:04"))
	}
	list.WriteString("Responda com o número, por favor.")
	return nil, list.String()
}

func availableTimes(slots []scheduling.TimeSlot) []string {
	var out []string
	for _, slot := range slots {
		if slot.Available {
			out = append(out, slot.Time)
		}
	}
	return out
}

func sessionAvailableTimes(slots []session.Slot) []string {
	var out []string
	for _, slot := range slots {
		if slot.Available {
			out = append(out, slot.Time)
		}
	}
	return out
}

func containsTime(times []string, clock string) bool {
	for _, t := range times {
		if t == clock {
			return true
		}
	}
	return false
}

var affirmatives = []string{"sim", "confirmo", "confirmar", "pode ser", "pode confirmar", "ok", "claro", "isso", "bora", "quero"}
var negatives = []string{"nao", "cancela", "cancelar", "deixa", "desisto", "esquece"}

func isAffirmative(norm string) bool { return containsAnyWord(norm, affirmatives) }
func isNegative(norm string) bool    { return containsAnyWord(norm, negatives) }

// containsAnyWord matches on whole-word boundaries so "simpatia" never reads
// as "sim".
func containsAnyWord(norm string, words []string) bool {
	for _, w := range words {
		if hasWord(norm, w) {
			return true
		}
	}
	return false
}

func hasWord(norm, w string) bool {
	for idx := 0; ; {
		i := strings.Index(norm[idx:], w)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(w)
		if (start == 0 || !isWordByte(norm[start-1])) && (end == len(norm) || !isWordByte(norm[end])) {
			return true
		}
		idx = start + 1
	}
}

// Normalized text is lowercased with accents stripped, so word bytes are
// plain ASCII letters and digits.
func isWordByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}

func formatPrice(price float64) string {
	return "R$ " + strings.Replace(fmt.Sprintf("%.2f", price), ".", ",", 1)
}
