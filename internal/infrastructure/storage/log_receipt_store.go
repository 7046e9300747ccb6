package storage

import (
	"context"
	"errors"

	apporder "github.com/storefront/backend/internal/application/order"
	"go.uber.org/zap"
)

var _ apporder.ReceiptStore = (*LogReceiptStore)(nil)

// LogReceiptStore stands in for object storage when it is disabled.
// Receipts are logged and discarded.
type LogReceiptStore struct {
	logger *zap.Logger
}

// NewLogReceiptStore creates a new LogReceiptStore
func NewLogReceiptStore(logger *zap.Logger) *LogReceiptStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogReceiptStore{logger: logger}
}

// Put logs the receipt key and size
func (s *LogReceiptStore) Put(_ context.Context, key string, body []byte, contentType string) error {
	if key == "" {
		return errors.New("receipt key is required")
	}
	s.logger.Info("Receipt storage disabled, receipt not archived",
		zap.String("key", key),
		zap.String("content_type", contentType),
		zap.Int("size", len(body)),
	)
	return nil
}
