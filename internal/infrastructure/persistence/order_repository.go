package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormOrderRepository implements order.Repository using GORM. Pending
// domain events are written to the outbox in the same transaction as the
// row change that raised them.
type GormOrderRepository struct {
	db     *gorm.DB
	outbox shared.OutboxEventSaver
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB, outbox shared.OutboxEventSaver) *GormOrderRepository {
	return &GormOrderRepository{db: db, outbox: outbox}
}

// FindByID returns the order with its lines
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var m models.OrderModel
	if err := r.db.WithContext(ctx).Preload("Items").Take(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.NewOrderNotFoundError(id.String())
		}
		return nil, fmt.Errorf("find order: %w", err)
	}
	return m.ToDomain(), nil
}

// FindByPaymentIntent returns the order that references intentID
func (r *GormOrderRepository) FindByPaymentIntent(ctx context.Context, intentID string) (*order.Order, error) {
	var m models.OrderModel
	if err := r.db.WithContext(ctx).Preload("Items").Take(&m, "payment_intent_id = ?", intentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.NewOrderNotFoundError("for payment intent " + intentID)
		}
		return nil, fmt.Errorf("find order by intent: %w", err)
	}
	return m.ToDomain(), nil
}

// FindAll lists orders newest first unless another sort is requested
func (r *GormOrderRepository) FindAll(ctx context.Context, filter order.Filter) ([]order.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.OrderModel{})
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		query = query.Where(`order_number LIKE ? ESCAPE '\'`, containsPattern(filter.Search))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	sortField := ValidateSortField(filter.OrderBy, OrderSortFields, "created_at")
	query = query.Order(sortField + " " + ValidateSortOrder(filter.OrderDir)).Order("id ASC")
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var rows []models.OrderModel
	if err := query.Preload("Items").Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}

	orders := make([]order.Order, 0, len(rows))
	for i := range rows {
		orders = append(orders, *rows[i].ToDomain())
	}
	return orders, total, nil
}

// Create inserts the order, its lines and its OrderPlaced event
func (r *GormOrderRepository) Create(ctx context.Context, o *order.Order) error {
	m := models.OrderModelFromDomain(o)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(m).Error; err != nil {
			return fmt.Errorf("insert order %s: %w", o.OrderNumber, err)
		}
		return r.flushEvents(ctx, tx, o)
	})
}

// SaveStatus persists the fulfillment status with an optimistic version check
func (r *GormOrderRepository) SaveStatus(ctx context.Context, o *order.Order, expectedVersion int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.OrderModel{}).
			Where("id = ? AND version = ?", o.ID, expectedVersion).
			UpdateColumns(map[string]any{
				"status":     o.Status,
				"version":    o.Version,
				"updated_at": time.Now(),
			})
		if result.Error != nil {
			return fmt.Errorf("update order status: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}
		return r.flushEvents(ctx, tx, o)
	})
}

// SavePayment persists the payment status only while the stored status is
// still from. Exactly one of several concurrent confirmations wins.
func (r *GormOrderRepository) SavePayment(ctx context.Context, o *order.Order, from order.PaymentStatus) (bool, error) {
	won := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.OrderModel{}).
			Where("id = ? AND payment_status = ?", o.ID, from).
			UpdateColumns(map[string]any{
				"payment_status": o.PaymentStatus,
				"paid_at":        o.PaidAt,
				"version":        gorm.Expr("version + 1"),
				"updated_at":     time.Now(),
			})
		if result.Error != nil {
			return fmt.Errorf("update payment status: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			o.ClearDomainEvents()
			return nil
		}
		won = true
		return r.flushEvents(ctx, tx, o)
	})
	return won, err
}

func (r *GormOrderRepository) flushEvents(ctx context.Context, tx *gorm.DB, o *order.Order) error {
	events := o.GetDomainEvents()
	if len(events) == 0 || r.outbox == nil {
		return nil
	}
	if err := r.outbox.SaveEvents(ctx, tx, events...); err != nil {
		return fmt.Errorf("save order events: %w", err)
	}
	o.ClearDomainEvents()
	return nil
}

// Ensure GormOrderRepository implements order.Repository
var _ order.Repository = (*GormOrderRepository)(nil)
