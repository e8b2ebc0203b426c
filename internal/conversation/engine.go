package conversation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/atendezap/atendezap/internal/business"
	"github.com/atendezap/atendezap/internal/intent"
	"github.com/atendezap/atendezap/internal/session"
	"github.com/atendezap/atendezap/pkg/logging"
)

// User-facing fallback messages. All externally visible failures resolve to a
// Portuguese apology, never a raw error.
const (
	msgTechnicalTrouble = "Desculpe, estamos com dificuldades técnicas no momento. Por favor, tente novamente em alguns minutos."
	msgTextOnly         = "Por enquanto só consigo entender mensagens de texto. Pode escrever sua mensagem? 🙂"
)

// EngineDeps wires the collaborators of the core dispatcher.
type EngineDeps struct {
	Businesses BusinessSource
	Admins     AdminChecker
	Customers  CustomerStore
	Sessions   SessionStore
	Classifier *intent.Classifier
	Sender     Messenger
	Events     ExchangeLogger // optional
	Logger     *logging.Logger
	// Service-level defaults, overridable per business row.
	SessionTTL time.Duration
	MaxHistory int
}

// Engine dispatches inbound messages to the registered flows.
type Engine struct {
	deps  EngineDeps
	flows []FlowHandler
	// admin handles the administrative family, kept apart so the family
	// guard applies before any dispatch.
	admin FlowHandler
	// general is the catch-all for unrecognized or stale intents.
	general FlowHandler
}

// NewEngine builds the dispatcher. The general handler is mandatory; admin
// may be nil for deployments without admin commands.
func NewEngine(deps EngineDeps, general FlowHandler, admin FlowHandler, flows ...FlowHandler) *Engine {
	if deps.Businesses == nil || deps.Sessions == nil || deps.Classifier == nil || deps.Sender == nil {
		panic("conversation: missing engine dependency")
	}
	if general == nil {
		panic("conversation: general flow handler is required")
	}
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}
	return &Engine{deps: deps, flows: flows, admin: admin, general: general}
}

// HandleIncomingMessage runs one full dispatch cycle: guards, session
// load/create, intent adoption, flow step, unconditional save, reply send and
// exchange logging.
func (e *Engine) HandleIncomingMessage(ctx context.Context, msg InboundMessage) error {
	log := e.deps.Logger.With("business_id", msg.BusinessID, "phone", msg.Phone)

	// Guards with no side effect beyond logging.
	if msg.FromMe || msg.IsGroup {
		log.Debug("ignoring message", "from_me", msg.FromMe, "is_group", msg.IsGroup)
		return nil
	}
	if msg.BusinessID == uuid.Nil || msg.Phone == "" {
		log.Debug("ignoring message without routing data")
		return nil
	}

	biz, err := e.deps.Businesses.Get(ctx, msg.BusinessID)
	if err != nil {
		log.Error("business config unavailable", "error", err)
		// Best effort: without config the send may lack credentials too.
		e.send(ctx, msg.BusinessID, msg.Phone, msgTechnicalTrouble, log)
		return err
	}

	st, blocked, err := e.loadSession(ctx, biz, msg.Phone, log)
	if err != nil {
		e.send(ctx, msg.BusinessID, msg.Phone, msgTechnicalTrouble, log)
		return err
	}
	if blocked {
		log.Info("dropping message from blocked customer")
		return nil
	}

	if msg.MessageType != "" && msg.MessageType != "text" {
		e.send(ctx, msg.BusinessID, msg.Phone, msgTextOnly, log)
		return nil
	}

	detected := e.deps.Classifier.Detect(msg.Text, st.IsAdmin, st.View())
	if st.CurrentIntent == intent.None || st.CurrentIntent == intent.General {
		st.CurrentIntent = detected
	}

	// Stale admin intents on a non-admin session never reach the admin flow.
	if st.CurrentIntent.IsAdmin() && !st.IsAdmin {
		st.ResetFlow()
		st.CurrentIntent = intent.General
	}

	fc := &FlowContext{Business: biz, State: st, Msg: msg, Detected: detected}
	reply, stepErr := e.step(ctx, fc)
	if stepErr != nil {
		log.Error("flow handler failed", "intent", st.CurrentIntent, "error", stepErr)
		reply = msgTechnicalTrouble
	}

	histCap := biz.HistoryCap(e.deps.MaxHistory)
	st.AddHistory(session.RoleUser, msg.Text, histCap)
	if reply != "" {
		st.AddHistory(session.RoleBot, reply, histCap)
	}

	// Saved even when the handler failed, so a user is never trapped in a
	// flow that cannot be exited.
	if err := e.deps.Sessions.Save(ctx, msg.BusinessID, msg.Phone, st, biz.SessionTTL(e.deps.SessionTTL)); err != nil {
		log.Error("failed to save session", "error", err)
	}

	if reply != "" {
		e.send(ctx, msg.BusinessID, msg.Phone, reply, log)
	}

	if e.deps.Events != nil {
		if err := e.deps.Events.AppendExchange(ctx, msg.BusinessID, msg.Phone, msg.Text, reply); err != nil {
			log.Error("failed to log exchange", "error", err)
		}
	}

	return stepErr
}

func (e *Engine) step(ctx context.Context, fc *FlowContext) (string, error) {
	st := fc.State

	if st.IsAdmin && e.admin != nil && (st.CurrentIntent.IsAdmin() || st.InAdminWizard()) {
		return e.admin.Step(ctx, fc)
	}

	for _, flow := range e.flows {
		if flow.Handles(st.CurrentIntent) {
			return flow.Step(ctx, fc)
		}
	}

	// Unrecognized or stale intent: fall back to general chat.
	if !e.general.Handles(st.CurrentIntent) {
		st.ResetFlow()
	}
	return e.general.Step(ctx, fc)
}

// loadSession returns the session for the phone, creating it on first touch.
// Admin status is resolved once, at creation. Non-admin first touch lazily
// creates the customer record; blocked customers are reported to the caller.
func (e *Engine) loadSession(ctx context.Context, biz *business.Business, phone string, log *logging.Logger) (*session.State, bool, error) {
	st, err := e.deps.Sessions.Load(ctx, biz.ID, phone)
	if err != nil {
		// Degrade to a fresh session rather than dropping the message.
		log.Error("failed to load session", "error", err)
		st = nil
	}

	if st == nil {
		isAdmin := phone == biz.RootAdminPhone
		if !isAdmin && e.deps.Admins != nil {
			delegated, err := e.deps.Admins.IsDelegatedAdmin(ctx, biz.ID, phone)
			if err != nil {
				log.Error("failed to check delegated admin", "error", err)
			}
			isAdmin = delegated
		}
		st = session.New(isAdmin)
	}

	if !st.IsAdmin && e.deps.Customers != nil {
		c, err := e.deps.Customers.EnsureByPhone(ctx, biz.ID, phone)
		if err != nil {
			return nil, false, err
		}
		if c.Blocked {
			return nil, true, nil
		}
		st.UserID = &c.ID
	}

	return st, false, nil
}

func (e *Engine) send(ctx context.Context, businessID uuid.UUID, phone, text string, log *logging.Logger) {
	if _, err := e.deps.Sender.SendText(ctx, businessID, phone, text); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("failed to send reply", "error", err)
	}
}
