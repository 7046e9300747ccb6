package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// LowStockAlert describes a product that fell to or below the threshold
type LowStockAlert struct {
	ProductID   uuid.UUID
	ProductName string
	Stock       int
	Threshold   int
	OrderNumber string
}

// LowStockNotifier delivers low stock alerts. Implementations may send
// email, chat messages, or only log.
type LowStockNotifier interface {
	NotifyLowStock(ctx context.Context, alert LowStockAlert) error
}

// LowStockHandler checks the products of every placed order and raises an
// alert for those now running low
type LowStockHandler struct {
	productRepo catalog.ProductRepository
	threshold   int
	notifier    LowStockNotifier
	logger      *zap.Logger
}

// NewLowStockHandler creates a new handler. Alerts are logged at warn
// level unless a notifier is set.
func NewLowStockHandler(productRepo catalog.ProductRepository, threshold int, logger *zap.Logger) *LowStockHandler {
	if threshold <= 0 {
		threshold = catalog.DefaultLowStockThreshold
	}
	return &LowStockHandler{
		productRepo: productRepo,
		threshold:   threshold,
		logger:      logger,
	}
}

// WithNotifier sets the notifier for sending alerts
func (h *LowStockHandler) WithNotifier(notifier LowStockNotifier) *LowStockHandler {
	h.notifier = notifier
	return h
}

// EventTypes returns the event types this handler is interested in
func (h *LowStockHandler) EventTypes() []string {
	return []string{order.EventTypeOrderPlaced}
}

// Handle loads the ordered products and alerts on the ones running low
func (h *LowStockHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	placed, ok := event.(*order.OrderPlacedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: %T", event)
	}

	ids := make([]uuid.UUID, 0, len(placed.Lines))
	for _, l := range placed.Lines {
		ids = append(ids, l.ProductID)
	}
	products, err := h.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("load products for order %s: %w", placed.OrderNumber, err)
	}

	for _, id := range ids {
		p, ok := products[id]
		if !ok || !p.IsActive || !p.IsLowStock(h.threshold) {
			continue
		}
		alert := LowStockAlert{
			ProductID:   p.ID,
			ProductName: p.Name,
			Stock:       p.Stock,
			Threshold:   h.threshold,
			OrderNumber: placed.OrderNumber,
		}
		h.logger.Warn("product stock is running low",
			zap.String("product_id", p.ID.String()),
			zap.String("product_name", p.Name),
			zap.Int("stock", p.Stock),
			zap.Int("threshold", h.threshold),
			zap.String("order_number", placed.OrderNumber),
		)
		if h.notifier != nil {
			if err := h.notifier.NotifyLowStock(ctx, alert); err != nil {
				return fmt.Errorf("notify low stock for %s: %w", p.Name, err)
			}
		}
	}
	return nil
}

var _ shared.EventHandler = (*LowStockHandler)(nil)
