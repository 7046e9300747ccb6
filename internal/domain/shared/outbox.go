package shared

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OutboxStatus represents the delivery state of an outbox entry
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "PENDING"
	OutboxStatusProcessing OutboxStatus = "PROCESSING"
	OutboxStatusSent       OutboxStatus = "SENT"
	OutboxStatusFailed     OutboxStatus = "FAILED"
	OutboxStatusDead       OutboxStatus = "DEAD"
)

const (
	DefaultOutboxMaxRetries = 5
	DefaultOutboxBackoff    = time.Second
	MaxOutboxBackoff        = 5 * time.Minute
)

// OutboxRetryDelay is the wait before relay attempt n+1 after n failures:
// DefaultOutboxBackoff doubled per failure, capped at MaxOutboxBackoff.
func OutboxRetryDelay(failures int) time.Duration {
	if failures < 1 {
		return 0
	}
	d := DefaultOutboxBackoff
	for i := 1; i < failures && d < MaxOutboxBackoff; i++ {
		d *= 2
	}
	return min(d, MaxOutboxBackoff)
}

// OutboxEntry is an order event stored in the transaction that committed
// the order change, waiting for the processor to relay it.
type OutboxEntry struct {
	ID            uuid.UUID
	EventID       uuid.UUID
	EventType     string
	AggregateID   uuid.UUID
	AggregateType string
	PartitionKey  string
	Payload       []byte
	Status        OutboxStatus
	RetryCount    int
	MaxRetries    int
	LastError     string
	NextRetryAt   *time.Time
	ProcessedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewOutboxEntry creates a pending entry for a serialized event
func NewOutboxEntry(event DomainEvent, payload []byte) *OutboxEntry {
	now := time.Now()
	return &OutboxEntry{
		ID:            uuid.New(),
		EventID:       event.EventID(),
		EventType:     event.EventType(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		PartitionKey:  event.PartitionKey(),
		Payload:       payload,
		Status:        OutboxStatusPending,
		MaxRetries:    DefaultOutboxMaxRetries,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// MarkSent records a successful relay
func (e *OutboxEntry) MarkSent() {
	now := time.Now()
	e.Status = OutboxStatusSent
	e.ProcessedAt = &now
	e.UpdatedAt = now
}

// MarkFailed records a failed relay attempt. The entry goes DEAD once
// MaxRetries attempts have failed and stays there until an operator
// requeues it.
func (e *OutboxEntry) MarkFailed(errMsg string) {
	e.RetryCount++
	e.LastError = errMsg
	e.UpdatedAt = time.Now()

	if e.RetryCount >= e.MaxRetries {
		e.Status = OutboxStatusDead
		e.NextRetryAt = nil
		return
	}

	e.Status = OutboxStatusFailed
	next := e.UpdatedAt.Add(OutboxRetryDelay(e.RetryCount))
	e.NextRetryAt = &next
}

// ResetForRetry requeues a DEAD entry with a fresh retry budget
func (e *OutboxEntry) ResetForRetry() error {
	if e.Status != OutboxStatusDead {
		return NewDomainError(CodeInvalidState,
			fmt.Sprintf("Outbox entry %s is %s; only DEAD entries can be retried", e.ID, e.Status))
	}
	e.Status = OutboxStatusPending
	e.RetryCount = 0
	e.LastError = ""
	e.NextRetryAt = nil
	e.UpdatedAt = time.Now()
	return nil
}

// IsDead reports whether the entry exhausted its retries
func (e *OutboxEntry) IsDead() bool {
	return e.Status == OutboxStatusDead
}

// OutboxRepository is what the relay loop needs from outbox storage
type OutboxRepository interface {
	Save(ctx context.Context, entries ...*OutboxEntry) error
	// FindPending returns the oldest PENDING entries
	FindPending(ctx context.Context, limit int) ([]*OutboxEntry, error)
	// FindRetryable returns FAILED entries whose NextRetryAt is before the
	// given time
	FindRetryable(ctx context.Context, before time.Time, limit int) ([]*OutboxEntry, error)
	// MarkProcessing flips the given entries to PROCESSING and returns only
	// those this caller won, so concurrent relays never share an entry
	MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*OutboxEntry, error)
	Update(ctx context.Context, entry *OutboxEntry) error
	// ReleaseStale returns PROCESSING entries claimed before the given time
	// to PENDING. A relay that died mid-batch leaves such claims behind.
	ReleaseStale(ctx context.Context, claimedBefore time.Time) (int64, error)
	// DeleteOlderThan purges SENT entries processed before the given time
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}
