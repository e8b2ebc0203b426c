package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/atendezap/atendezap/cmd/mainconfig"
	"github.com/atendezap/atendezap/internal/admin"
	"github.com/atendezap/atendezap/internal/business"
	appconfig "github.com/atendezap/atendezap/internal/config"
	"github.com/atendezap/atendezap/internal/conversation"
	"github.com/atendezap/atendezap/internal/customers"
	"github.com/atendezap/atendezap/internal/intent"
	"github.com/atendezap/atendezap/internal/messaging"
	"github.com/atendezap/atendezap/internal/observability/metrics"
	"github.com/atendezap/atendezap/internal/rag"
	"github.com/atendezap/atendezap/internal/scheduling"
	"github.com/atendezap/atendezap/internal/session"
	"github.com/atendezap/atendezap/pkg/logging"
)

// Pipeline is the fully wired conversation stack shared by the api and
// worker binaries.
type Pipeline struct {
	Businesses   *business.Store
	Engine       *conversation.Engine
	Orchestrator *conversation.Orchestrator
}

// BuildPipeline wires repositories, flows, the dispatch engine and the
// queue-backed orchestrator.
func BuildPipeline(ctx context.Context, cfg *appconfig.Config, pool *pgxpool.Pool, redisClient *redis.Client, m *metrics.Metrics, logger *logging.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = logging.Default()
	}

	bizRepo := business.NewRepository(pool)
	bizStore := business.NewStore(bizRepo, redisClient, logger,
		business.WithDefaultCacheTTL(cfg.BusinessCacheTTL))
	custRepo := customers.NewRepository(pool)
	sessions := session.NewStore(redisClient, logger)
	schedRepo := scheduling.NewRepository(pool)
	schedEngine := scheduling.NewEngine(schedRepo, logger)
	ragRepo := rag.NewRepository(pool)
	retriever := rag.NewRetriever(ragRepo, logger)

	sender := messaging.NewCloudAPISender(
		messaging.NewBusinessRegistry(bizStore),
		logger,
		messaging.WithBaseURL(cfg.WhatsAppAPIBaseURL),
		messaging.WithAttempts(cfg.WhatsAppRetryAttempts),
		messaging.WithHTTPClient(&http.Client{Timeout: cfg.WhatsAppSendTimeout}),
		messaging.WithMetrics(m),
	)

	llmClient, err := BuildLLMClient(ctx, cfg, redisClient, m, logger)
	if err != nil {
		return nil, err
	}

	generalFlow := conversation.NewGeneralFlow(llmClient, retriever, bizRepo, logger)
	schedulingFlow := conversation.NewSchedulingFlow(bizRepo, schedEngine, llmClient, logger,
		conversation.WithClarifyMax(cfg.ClarifyMaxRetries),
		conversation.WithFlowMetrics(m),
	)
	adminFlow := admin.NewHandler(bizRepo, bizStore, schedRepo, logger)

	engine := conversation.NewEngine(conversation.EngineDeps{
		Businesses: bizStore,
		Admins:     bizRepo,
		Customers:  custRepo,
		Sessions:   sessions,
		Classifier: intent.NewClassifier(),
		Sender:     sender,
		Events:     conversation.NewEventLog(pool),
		Logger:     logger,
		SessionTTL: cfg.SessionTTL,
		MaxHistory: cfg.MaxHistory,
	}, generalFlow, adminFlow, schedulingFlow)

	orch, err := buildOrchestrator(ctx, cfg, engine, logger)
	if err != nil {
		return nil, err
	}

	return &Pipeline{Businesses: bizStore, Engine: engine, Orchestrator: orch}, nil
}

func buildOrchestrator(ctx context.Context, cfg *appconfig.Config, engine *conversation.Engine, logger *logging.Logger) (*conversation.Orchestrator, error) {
	opts := []conversation.OrchestratorOption{conversation.WithWorkerCount(cfg.WorkerCount)}

	if cfg.UseMemoryQueue {
		return conversation.NewOrchestrator(engine, conversation.NewMemoryQueue(256), logger, opts...), nil
	}

	if cfg.ConversationQueueURL == "" {
		return nil, fmt.Errorf("bootstrap: CONVERSATION_QUEUE_URL is required without USE_MEMORY_QUEUE")
	}
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: load aws config: %w", err)
	}
	queue := conversation.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.ConversationQueueURL)
	return conversation.NewOrchestrator(engine, queue, logger, opts...), nil
}
