package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Store is the slice of the outbox repository the admin operations need
type Store interface {
	FindDead(ctx context.Context, page, pageSize int) ([]*shared.OutboxEntry, int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*shared.OutboxEntry, error)
	Update(ctx context.Context, entry *shared.OutboxEntry) error
	RetryDead(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context) (map[shared.OutboxStatus]int64, error)
}

// Service lets operators inspect the outbox and requeue order events that
// exhausted their relay retries
type Service struct {
	store  Store
	logger *zap.Logger
}

// NewService creates a new outbox Service
func NewService(store Store, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
	}
}

// EntryResponse is an outbox entry as shown to operators
type EntryResponse struct {
	ID            uuid.UUID  `json:"id"`
	EventID       uuid.UUID  `json:"event_id"`
	EventType     string     `json:"event_type"`
	AggregateID   uuid.UUID  `json:"aggregate_id"`
	AggregateType string     `json:"aggregate_type"`
	Status        string     `json:"status"`
	RetryCount    int        `json:"retry_count"`
	MaxRetries    int        `json:"max_retries"`
	LastError     string     `json:"last_error,omitempty"`
	NextRetryAt   *time.Time `json:"next_retry_at,omitempty"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// ListFilter pages through dead entries
type ListFilter struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// StatsResponse counts entries per delivery status
type StatsResponse struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Sent       int64 `json:"sent"`
	Failed     int64 `json:"failed"`
	Dead       int64 `json:"dead"`
	Total      int64 `json:"total"`
}

// ListDead returns one page of dead entries and the total count
func (s *Service) ListDead(ctx context.Context, filter ListFilter) ([]EntryResponse, int64, error) {
	page := max(filter.Page, 1)
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	pageSize = min(pageSize, maxPageSize)

	entries, total, err := s.store.FindDead(ctx, page, pageSize)
	if err != nil {
		s.logger.Error("Failed to find dead outbox entries", zap.Error(err))
		return nil, 0, err
	}

	out := make([]EntryResponse, len(entries))
	for i, entry := range entries {
		out[i] = toEntryResponse(entry)
	}
	return out, total, nil
}

// GetEntry returns a single entry
func (s *Service) GetEntry(ctx context.Context, id uuid.UUID) (*EntryResponse, error) {
	entry, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toEntryResponse(entry)
	return &resp, nil
}

// RetryEntry moves a dead entry back to pending so the relay picks it up
func (s *Service) RetryEntry(ctx context.Context, id uuid.UUID) (*EntryResponse, error) {
	entry, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := entry.ResetForRetry(); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, entry); err != nil {
		s.logger.Error("Failed to requeue outbox entry", zap.Error(err), zap.String("id", id.String()))
		return nil, err
	}

	s.logger.Info("Dead outbox entry requeued",
		zap.String("id", id.String()),
		zap.String("event_type", entry.EventType),
	)
	resp := toEntryResponse(entry)
	return &resp, nil
}

// RetryAllDead requeues every dead entry and returns how many moved
func (s *Service) RetryAllDead(ctx context.Context) (int64, error) {
	moved, err := s.store.RetryDead(ctx)
	if err != nil {
		s.logger.Error("Failed to requeue dead outbox entries", zap.Error(err))
		return 0, err
	}
	s.logger.Info("Dead outbox entries requeued", zap.Int64("count", moved))
	return moved, nil
}

// Stats counts entries per status
func (s *Service) Stats(ctx context.Context) (*StatsResponse, error) {
	counts, err := s.store.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count outbox entries: %w", err)
	}

	var total int64
	for _, count := range counts {
		total += count
	}
	return &StatsResponse{
		Pending:    counts[shared.OutboxStatusPending],
		Processing: counts[shared.OutboxStatusProcessing],
		Sent:       counts[shared.OutboxStatusSent],
		Failed:     counts[shared.OutboxStatusFailed],
		Dead:       counts[shared.OutboxStatusDead],
		Total:      total,
	}, nil
}

func toEntryResponse(entry *shared.OutboxEntry) EntryResponse {
	return EntryResponse{
		ID:            entry.ID,
		EventID:       entry.EventID,
		EventType:     entry.EventType,
		AggregateID:   entry.AggregateID,
		AggregateType: entry.AggregateType,
		Status:        string(entry.Status),
		RetryCount:    entry.RetryCount,
		MaxRetries:    entry.MaxRetries,
		LastError:     entry.LastError,
		NextRetryAt:   entry.NextRetryAt,
		ProcessedAt:   entry.ProcessedAt,
		CreatedAt:     entry.CreatedAt,
		UpdatedAt:     entry.UpdatedAt,
	}
}
