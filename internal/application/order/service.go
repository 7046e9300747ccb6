package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/payment"
	"github.com/storefront/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Service handles order queries, fulfillment updates and payment
// confirmation
type Service struct {
	repo    order.Repository
	gateway payment.Gateway
	strict  bool
	logger  *zap.Logger
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithStrictTransitions enforces the fulfillment transition table
func WithStrictTransitions(strict bool) ServiceOption {
	return func(s *Service) {
		s.strict = strict
	}
}

// NewService creates a new order Service
func NewService(repo order.Repository, gateway payment.Gateway, logger *zap.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		repo:    repo,
		gateway: gateway,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListOrders lists every order for admins and the caller's own otherwise
func (s *Service) ListOrders(ctx context.Context, actor Actor, filter OrderListFilter) ([]OrderResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	domainFilter := order.Filter{
		Filter: shared.Filter{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			OrderBy:  filter.OrderBy,
			OrderDir: filter.OrderDir,
			Search:   filter.Search,
		},
	}
	if filter.Status != "" {
		status, err := order.ParseStatus(filter.Status)
		if err != nil {
			return nil, 0, err
		}
		domainFilter.Status = status
	}
	if !actor.IsAdmin {
		domainFilter.UserID = &actor.UserID
	}

	orders, total, err := s.repo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToOrderResponses(orders), total, nil
}

// GetOrder returns an order visible to the actor. Orders owned by someone
// else are reported as not found.
func (s *Service) GetOrder(ctx context.Context, actor Actor, id uuid.UUID) (*OrderResponse, error) {
	o, err := s.loadVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	resp := ToOrderResponse(o)
	return &resp, nil
}

// UpdateStatus changes the fulfillment status. Admin only.
func (s *Service) UpdateStatus(ctx context.Context, actor Actor, id uuid.UUID, req UpdateStatusRequest) (*OrderResponse, error) {
	if !actor.IsAdmin {
		return nil, shared.NewDomainError(shared.CodeForbidden, "Only administrators can change order status")
	}

	target, err := order.ParseStatus(req.Status)
	if err != nil {
		return nil, err
	}

	o, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	expected := o.Version
	from := o.Status
	if err := o.UpdateStatus(target, s.strict); err != nil {
		return nil, err
	}
	if o.Version != expected {
		if err := s.repo.SaveStatus(ctx, o, expected); err != nil {
			return nil, err
		}
		s.logger.Info("order status updated",
			zap.String("order_id", o.ID.String()),
			zap.String("from", from.String()),
			zap.String("to", target.String()),
			zap.String("actor_id", actor.UserID.String()),
		)
	}

	resp := ToOrderResponse(o)
	return &resp, nil
}

// ConfirmPayment marks the caller's order as paid without a gateway
// callback. Only gateways that settle synchronously allow this.
func (s *Service) ConfirmPayment(ctx context.Context, actor Actor, id uuid.UUID) (*OrderResponse, error) {
	if !s.gateway.SupportsDirectConfirmation() {
		return nil, shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Payment for order %s is confirmed by the %s gateway callback", id, s.gateway.Name()))
	}

	o, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.BelongsTo(actor.UserID) {
		return nil, order.NewOrderNotFoundError(id.String())
	}

	o, _, err = s.confirm(ctx, o)
	if err != nil {
		return nil, err
	}
	resp := ToOrderResponse(o)
	return &resp, nil
}

// ConfirmPaymentByIntent completes payment for the order referencing the
// intent. It reports whether this call changed the order.
func (s *Service) ConfirmPaymentByIntent(ctx context.Context, intentID string) (bool, error) {
	o, err := s.repo.FindByPaymentIntent(ctx, intentID)
	if err != nil {
		return false, err
	}
	_, changed, err := s.confirm(ctx, o)
	return changed, err
}

// FailPaymentByIntent records a failed payment for the order referencing
// the intent. It reports whether this call changed the order.
func (s *Service) FailPaymentByIntent(ctx context.Context, intentID, reason string) (bool, error) {
	o, err := s.repo.FindByPaymentIntent(ctx, intentID)
	if err != nil {
		return false, err
	}
	if !o.FailPayment(reason) {
		return false, nil
	}

	won, err := s.repo.SavePayment(ctx, o, order.PaymentStatusPending)
	if err != nil {
		return false, err
	}
	if won {
		s.logger.Info("order payment failed",
			zap.String("order_id", o.ID.String()),
			zap.String("payment_intent_id", intentID),
			zap.String("reason", reason),
		)
	}
	return won, nil
}

// confirm applies ConfirmPayment and persists it unless another writer
// already moved the payment out of pending, in which case the stored
// order is returned.
func (s *Service) confirm(ctx context.Context, o *order.Order) (*order.Order, bool, error) {
	changed, err := o.ConfirmPayment()
	if err != nil || !changed {
		return o, false, err
	}

	won, err := s.repo.SavePayment(ctx, o, order.PaymentStatusPending)
	if err != nil {
		return nil, false, err
	}
	if !won {
		current, err := s.repo.FindByID(ctx, o.ID)
		if err != nil {
			return nil, false, err
		}
		if current.PaymentStatus == order.PaymentStatusFailed {
			return nil, false, shared.NewDomainError(shared.CodeInvalidState,
				fmt.Sprintf("Payment for order %s already failed", current.OrderNumber))
		}
		return current, false, nil
	}

	s.logger.Info("order payment completed",
		zap.String("order_id", o.ID.String()),
		zap.String("payment_intent_id", o.PaymentIntentID),
	)
	return o, true, nil
}

func (s *Service) loadVisible(ctx context.Context, actor Actor, id uuid.UUID) (*order.Order, error) {
	o, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin && !o.BelongsTo(actor.UserID) {
		return nil, order.NewOrderNotFoundError(id.String())
	}
	return o, nil
}

// IsNotFound reports whether err means no order matched
func IsNotFound(err error) bool {
	var de *shared.DomainError
	return errors.As(err, &de) && de.Code == shared.CodeOrderNotFound
}
