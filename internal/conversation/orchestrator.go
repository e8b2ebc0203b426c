package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/atendezap/atendezap/pkg/logging"
)

// Processor handles one normalized inbound message end to end.
type Processor interface {
	HandleIncomingMessage(ctx context.Context, msg InboundMessage) error
}

// ErrOrchestratorClosed indicates the orchestrator is no longer accepting work.
var ErrOrchestratorClosed = errors.New("conversation: orchestrator closed")

type queueClient interface {
	Send(ctx context.Context, body string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]queueMessage, error)
	Delete(ctx context.Context, receiptHandle string) error
}

type queueMessage struct {
	ID            string
	Body          string
	ReceiptHandle string
}

const (
	defaultWorkers          = 2
	defaultReceiveWait      = 2 // seconds
	defaultReceiveMax       = 5 // messages
	maxReceiveWaitSeconds   = 20
	maxReceiveBatchMessages = 10
)

type orchestratorConfig struct {
	workers          int
	receiveWaitSecs  int
	receiveBatchSize int
}

// OrchestratorOption configures the orchestrator.
type OrchestratorOption func(*orchestratorConfig)

// WithWorkerCount overrides the number of queue polling goroutines.
func WithWorkerCount(workers int) OrchestratorOption {
	return func(cfg *orchestratorConfig) {
		if workers > 0 {
			cfg.workers = workers
		}
	}
}

// WithReceiveWaitSeconds sets the long-poll wait for Receive calls.
func WithReceiveWaitSeconds(seconds int) OrchestratorOption {
	return func(cfg *orchestratorConfig) {
		if seconds < 0 {
			return
		}
		if seconds > maxReceiveWaitSeconds {
			seconds = maxReceiveWaitSeconds
		}
		cfg.receiveWaitSecs = seconds
	}
}

// WithReceiveBatchSize overrides how many messages each poll may return.
func WithReceiveBatchSize(size int) OrchestratorOption {
	return func(cfg *orchestratorConfig) {
		if size <= 0 {
			return
		}
		if size > maxReceiveBatchMessages {
			size = maxReceiveBatchMessages
		}
		cfg.receiveBatchSize = size
	}
}

// Orchestrator decouples webhook acknowledgment from message processing: the
// HTTP handler enqueues and returns, workers drain the queue and run the
// engine. The queue is in-memory in development and SQS in production.
type Orchestrator struct {
	processor Processor
	queue     queueClient
	logger    *logging.Logger

	cfg orchestratorConfig

	// pollCtx only governs Receive long-polls; jobCtx stays live until the
	// workers drain so in-flight handlers never run on a cancelled context.
	pollCtx    context.Context
	stopPoll   context.CancelFunc
	jobCtx     context.Context
	cancelJobs context.CancelFunc
	wg         sync.WaitGroup
	closed     bool
	mu         sync.Mutex
}

// NewOrchestrator starts the worker pool around the supplied processor.
func NewOrchestrator(processor Processor, queue queueClient, logger *logging.Logger, opts ...OrchestratorOption) *Orchestrator {
	if processor == nil {
		panic("conversation: processor cannot be nil")
	}
	if queue == nil {
		panic("conversation: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}

	cfg := orchestratorConfig{
		workers:          defaultWorkers,
		receiveWaitSecs:  defaultReceiveWait,
		receiveBatchSize: defaultReceiveMax,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	pollCtx, stopPoll := context.WithCancel(context.Background())
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	o := &Orchestrator{
		processor:  processor,
		queue:      queue,
		logger:     logger,
		cfg:        cfg,
		pollCtx:    pollCtx,
		stopPoll:   stopPoll,
		jobCtx:     jobCtx,
		cancelJobs: cancelJobs,
	}

	for i := 0; i < cfg.workers; i++ {
		o.wg.Add(1)
		go o.runWorker(i + 1)
	}

	return o
}

// Enqueue submits a message for asynchronous processing. It returns once the
// message is queued; the reply is sent by a worker later.
func (o *Orchestrator) Enqueue(ctx context.Context, msg InboundMessage) error {
	o.mu.Lock()
	closed := o.closed
	o.mu.Unlock()
	if closed {
		return ErrOrchestratorClosed
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("conversation: encode job: %w", err)
	}
	if err := o.queue.Send(ctx, string(body)); err != nil {
		return fmt.Errorf("conversation: enqueue job: %w", err)
	}
	return nil
}

// Shutdown stops the polling loops and waits for in-flight jobs. Jobs keep a
// live context until the workers drain or the deadline fires; only then is the
// job context cancelled.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
	o.stopPoll()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		o.cancelJobs()
		return ctx.Err()
	case <-done:
		o.cancelJobs()
		return nil
	}
}

func (o *Orchestrator) runWorker(workerID int) {
	defer o.wg.Done()
	o.logger.Debug("conversation worker started", "worker_id", workerID)

	backoff := time.Second

	for {
		select {
		case <-o.pollCtx.Done():
			o.logger.Debug("conversation worker stopping", "worker_id", workerID)
			return
		default:
		}

		messages, err := o.queue.Receive(o.pollCtx, o.cfg.receiveBatchSize, o.cfg.receiveWaitSecs)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			o.logger.Error("failed to receive conversation jobs", "error", err, "worker_id", workerID)
			time.Sleep(backoff)
			if backoff < 5*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		for _, msg := range messages {
			o.handleQueueMessage(msg)
		}
	}
}

func (o *Orchestrator) handleQueueMessage(msg queueMessage) {
	// The job is deleted whether processing succeeded or not: a crashed
	// handler must not replay the same user message forever.
	defer func() {
		deleteCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := o.queue.Delete(deleteCtx, msg.ReceiptHandle); err != nil {
			o.logger.Error("failed to delete conversation job", "error", err)
		}
	}()

	var inbound InboundMessage
	if err := json.Unmarshal([]byte(msg.Body), &inbound); err != nil {
		o.logger.Error("failed to decode conversation job", "error", err)
		return
	}

	if err := o.processor.HandleIncomingMessage(o.jobCtx, inbound); err != nil {
		o.logger.Error("failed to process message",
			"business_id", inbound.BusinessID, "phone", inbound.Phone, "error", err)
	}
}
