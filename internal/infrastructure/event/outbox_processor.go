package event

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// OutboxProcessorConfig tunes the relay loop. Sent entries older than
// CleanupRetention are purged every CleanupInterval when cleanup is on.
// A claim older than ClaimLease is assumed abandoned and requeued.
type OutboxProcessorConfig struct {
	BatchSize        int
	PollInterval     time.Duration
	ClaimLease       time.Duration
	CleanupEnabled   bool
	CleanupRetention time.Duration
	CleanupInterval  time.Duration
}

func DefaultOutboxProcessorConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		BatchSize:        100,
		PollInterval:     2 * time.Second,
		ClaimLease:       5 * time.Minute,
		CleanupEnabled:   true,
		CleanupRetention: 7 * 24 * time.Hour,
		CleanupInterval:  time.Hour,
	}
}

// OutboxProcessor relays committed order events from the outbox table to
// the event bus. Delivery is at least once: an entry is marked SENT only
// after every subscriber returned without error, and subscribers are
// wrapped in an IdempotentHandler to absorb redeliveries.
type OutboxProcessor struct {
	repo       shared.OutboxRepository
	bus        shared.EventPublisher
	serializer *EventSerializer
	config     OutboxProcessorConfig
	tracer     trace.Tracer
	logger     *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewOutboxProcessor(
	repo shared.OutboxRepository,
	bus shared.EventPublisher,
	serializer *EventSerializer,
	config OutboxProcessorConfig,
	logger *zap.Logger,
) *OutboxProcessor {
	defaults := DefaultOutboxProcessorConfig()
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.ClaimLease <= 0 {
		config.ClaimLease = defaults.ClaimLease
	}
	return &OutboxProcessor{
		repo:       repo,
		bus:        bus,
		serializer: serializer,
		config:     config,
		tracer:     otel.Tracer("storefront/outbox"),
		logger:     logger.With(zap.String("component", "outbox_processor")),
	}
}

// Start launches the relay loop; it runs until Stop or ctx is cancelled
func (p *OutboxProcessor) Start(ctx context.Context) error {
	ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run(ctx)

	p.logger.Info("outbox processor started",
		zap.Int("batch_size", p.config.BatchSize),
		zap.Duration("poll_interval", p.config.PollInterval),
		zap.Duration("claim_lease", p.config.ClaimLease),
		zap.Bool("cleanup", p.cleanupOn()),
	)
	return nil
}

// Stop cancels the loop and waits for the batch in flight
func (p *OutboxProcessor) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("outbox processor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *OutboxProcessor) cleanupOn() bool {
	return p.config.CleanupEnabled && p.config.CleanupInterval > 0
}

func (p *OutboxProcessor) run(ctx context.Context) {
	defer p.wg.Done()

	poll := time.NewTicker(p.config.PollInterval)
	defer poll.Stop()

	// A nil channel never fires, which disables cleanup.
	var purge <-chan time.Time
	if p.cleanupOn() {
		t := time.NewTicker(p.config.CleanupInterval)
		defer t.Stop()
		purge = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-poll.C:
			p.ProcessOnce(ctx)
		case <-purge:
			p.purgeSent(ctx)
		}
	}
}

// ProcessOnce requeues expired claims, then relays one batch of new entries
// and one batch of failed entries whose backoff has elapsed. It returns how
// many entries it claimed.
func (p *OutboxProcessor) ProcessOnce(ctx context.Context) int {
	p.releaseStale(ctx)

	pending, err := p.repo.FindPending(ctx, p.config.BatchSize)
	if err != nil {
		p.logger.Error("failed to load pending outbox entries", zap.Error(err))
		return 0
	}
	n := p.relayBatch(ctx, pending)

	due, err := p.repo.FindRetryable(ctx, time.Now(), p.config.BatchSize)
	if err != nil {
		p.logger.Error("failed to load retryable outbox entries", zap.Error(err))
		return n
	}
	return n + p.relayBatch(ctx, due)
}

func (p *OutboxProcessor) relayBatch(ctx context.Context, entries []*shared.OutboxEntry) int {
	if len(entries) == 0 {
		return 0
	}

	ids := make([]uuid.UUID, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	// Another replica may have claimed some of them already.
	claimed, err := p.repo.MarkProcessing(ctx, ids)
	if err != nil {
		p.logger.Error("failed to claim outbox entries", zap.Int("count", len(ids)), zap.Error(err))
		return 0
	}

	for _, entry := range claimed {
		p.relay(ctx, entry)
	}
	return len(claimed)
}

func (p *OutboxProcessor) relay(ctx context.Context, entry *shared.OutboxEntry) {
	ctx, span := p.tracer.Start(ctx, "outbox.relay", trace.WithAttributes(
		attribute.String("event.id", entry.EventID.String()),
		attribute.String("event.type", entry.EventType),
		attribute.String("aggregate.id", entry.AggregateID.String()),
		attribute.Int("outbox.retry_count", entry.RetryCount),
	))
	defer span.End()

	log := p.logger.With(
		zap.String("event_id", entry.EventID.String()),
		zap.String("event_type", entry.EventType),
	)

	ev, err := p.serializer.Deserialize(entry.EventType, entry.Payload)
	if err == nil {
		err = p.bus.Publish(ctx, ev)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.markFailed(ctx, log, entry, err)
		return
	}

	entry.MarkSent()
	if err := p.repo.Update(ctx, entry); err != nil {
		log.Error("failed to mark outbox entry sent", zap.Error(err))
		return
	}
	log.Debug("outbox entry relayed")
}

func (p *OutboxProcessor) markFailed(ctx context.Context, log *zap.Logger, entry *shared.OutboxEntry, cause error) {
	entry.MarkFailed(cause.Error())
	if entry.IsDead() {
		log.Warn("outbox entry exhausted its retries and is dead",
			zap.String("aggregate_id", entry.AggregateID.String()),
			zap.Int("retry_count", entry.RetryCount),
			zap.Error(cause),
		)
	} else {
		log.Error("failed to relay outbox entry",
			zap.Int("retry_count", entry.RetryCount),
			zap.Timep("next_retry_at", entry.NextRetryAt),
			zap.Error(cause),
		)
	}
	if err := p.repo.Update(ctx, entry); err != nil {
		log.Error("failed to record outbox failure", zap.Error(err))
	}
}

func (p *OutboxProcessor) releaseStale(ctx context.Context) {
	released, err := p.repo.ReleaseStale(ctx, time.Now().Add(-p.config.ClaimLease))
	if err != nil {
		p.logger.Error("failed to release stale outbox claims", zap.Error(err))
		return
	}
	if released > 0 {
		p.logger.Warn("requeued outbox entries abandoned mid-relay",
			zap.Int64("released", released),
			zap.Duration("claim_lease", p.config.ClaimLease),
		)
	}
}

func (p *OutboxProcessor) purgeSent(ctx context.Context) {
	cutoff := time.Now().Add(-p.config.CleanupRetention)
	deleted, err := p.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		p.logger.Error("failed to purge sent outbox entries", zap.Error(err))
		return
	}
	if deleted > 0 {
		p.logger.Info("purged sent outbox entries", zap.Int64("deleted", deleted), zap.Time("cutoff", cutoff))
	}
}
