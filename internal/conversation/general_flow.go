package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/atendezap/atendezap/internal/intent"
	"github.com/atendezap/atendezap/internal/llm"
	"github.com/atendezap/atendezap/internal/session"
	"github.com/atendezap/atendezap/pkg/logging"
)

// GeneralFlow answers plain conversation and FAQ messages with the LLM,
// optionally grounding the prompt on retrieved business knowledge.
type GeneralFlow struct {
	llm       llm.Client
	retriever ContextRetriever // optional
	catalog   ServiceCatalog
	logger    *logging.Logger
}

// NewGeneralFlow builds the catch-all handler.
func NewGeneralFlow(client llm.Client, retriever ContextRetriever, catalog ServiceCatalog, logger *logging.Logger) *GeneralFlow {
	if logger == nil {
		logger = logging.Default()
	}
	return &GeneralFlow{llm: client, retriever: retriever, catalog: catalog, logger: logger}
}

// Handles accepts general chat, FAQ, and the no-flow marker.
func (f *GeneralFlow) Handles(it intent.Intent) bool {
	return it == intent.General || it == intent.FAQ || it == intent.None
}

// Step produces an LLM reply. On LLM failure it degrades to a static answer
// built from business data instead of surfacing an error.
func (f *GeneralFlow) Step(ctx context.Context, fc *FlowContext) (string, error) {
	// A general answer ends any flow; the next message starts fresh.
	defer fc.State.ResetFlow()

	builder := llm.NewPromptBuilder(fc.Business.SystemPrompt).
		WithHistory(renderHistory(fc.State.History))

	if fc.Business.RAGEnabled && f.retriever != nil {
		block, err := f.retriever.Context(ctx, fc.Business.ID, fc.Msg.Text, 3)
		if err != nil {
			f.logger.Error("knowledge retrieval failed", "business_id", fc.Business.ID, "error", err)
		} else {
			builder = builder.WithContext(block)
		}
	}

	resp, err := f.llm.Complete(ctx, builder.Build(fc.Msg.Text))
	if err != nil {
		f.logger.Error("llm reply failed", "business_id", fc.Business.ID, "error", err)
		return f.staticFallback(ctx, fc), nil
	}
	return resp.Text, nil
}

// staticFallback answers without the LLM: business hours plus the service
// list, when available.
func (f *GeneralFlow) staticFallback(ctx context.Context, fc *FlowContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Olá! Aqui é o atendimento de %s 😊\n", fc.Business.Name)
	b.WriteString(fc.Business.HoursSummary())

	if f.catalog != nil {
		if services, err := f.catalog.ListServices(ctx, fc.Business.ID, true); err == nil && len(services) > 0 {
			b.WriteString("\nNossos serviços:\n")
			for _, svc := range services {
				fmt.Fprintf(&b, "- %s (%s)\n", svc.Name, formatPrice(svc.Price))
			}
		}
	}

	b.WriteString("\nPara marcar um horário, é só enviar *agendar*.")
	return b.String()
}

func renderHistory(history []session.HistoryEntry) []llm.ChatMessage {
	out := make([]llm.ChatMessage, 0, len(history))
	for _, entry := range history {
		role := llm.RoleUser
		if entry.Role == session.RoleBot {
			role = llm.RoleAssistant
		}
		out = append(out, llm.ChatMessage{Role: role, Content: entry.Content})
	}
	return out
}
