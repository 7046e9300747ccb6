package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	apporder "github.com/storefront/backend/internal/application/order"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/payment"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"go.uber.org/zap"
)

// Config holds checkout tuning
type Config struct {
	TaxRate        decimal.Decimal
	LockWait       time.Duration
	PaymentTimeout time.Duration
	CancelTimeout  time.Duration
}

// DefaultConfig returns the default checkout configuration
func DefaultConfig() Config {
	return Config{
		TaxRate:        order.DefaultTaxRate,
		LockWait:       5 * time.Second,
		PaymentTimeout: 10 * time.Second,
		CancelTimeout:  10 * time.Second,
	}
}

// Service turns a user's cart into a committed order. A checkout runs in
// six phases: preflight and stock re-validation under the user's cart
// lock, pricing, payment authorization with the lock released, then one
// transaction that creates the order, decrements stock and clears the
// cart. If the transaction fails after authorization, the intent is
// cancelled.
type Service struct {
	carts   cart.Repository
	orders  order.Repository
	ledger  catalog.StockLedger
	gateway payment.Gateway
	scope   TransactionScope
	locker  shared.Locker

	validate *validator.Validate
	metrics  Metrics
	config   Config
	logger   *zap.Logger
}

// Option configures a Service
type Option func(*Service)

// WithMetrics sets the metrics recorder
func WithMetrics(m Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithConfig overrides the default configuration
func WithConfig(cfg Config) Option {
	return func(s *Service) {
		defaults := DefaultConfig()
		if cfg.TaxRate.IsZero() {
			cfg.TaxRate = defaults.TaxRate
		}
		if cfg.LockWait <= 0 {
			cfg.LockWait = defaults.LockWait
		}
		if cfg.PaymentTimeout <= 0 {
			cfg.PaymentTimeout = defaults.PaymentTimeout
		}
		if cfg.CancelTimeout <= 0 {
			cfg.CancelTimeout = defaults.CancelTimeout
		}
		s.config = cfg
	}
}

// NewService creates a new checkout Service
func NewService(
	carts cart.Repository,
	orders order.Repository,
	ledger catalog.StockLedger,
	gateway payment.Gateway,
	scope TransactionScope,
	locker shared.Locker,
	logger *zap.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		carts:    carts,
		orders:   orders,
		ledger:   ledger,
		gateway:  gateway,
		scope:    scope,
		locker:   locker,
		validate: newValidator(),
		metrics:  NoopMetrics{},
		config:   DefaultConfig(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// preflight is the validated state a checkout commits against
type preflight struct {
	cart     *cart.Cart
	shipping valueobject.ShippingAddress
	lines    []order.LineInput
	quote    order.Quote
	key      string
}

// Checkout places an order for everything in the user's cart
func (s *Service) Checkout(ctx context.Context, userID uuid.UUID, req CheckoutRequest) (*CheckoutResult, error) {
	start := time.Now()
	result, err := s.checkout(ctx, userID, req)
	if err != nil {
		code := shared.CodeOf(err)
		if code == "" {
			code = "INTERNAL_ERROR"
		}
		s.metrics.CheckoutFailed(ctx, code)
		return nil, err
	}
	s.metrics.CheckoutCompleted(ctx, time.Since(start))
	return result, nil
}

func (s *Service) checkout(ctx context.Context, userID uuid.UUID, req CheckoutRequest) (*CheckoutResult, error) {
	pf, err := s.preflight(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	intent, err := s.authorize(ctx, userID, pf)
	if err != nil {
		return nil, err
	}

	o, err := s.commit(ctx, userID, pf, intent)
	if err != nil {
		if existing := s.orderForIntent(ctx, intent); existing != nil {
			return s.replay(userID, existing, intent)
		}
		s.compensate(ctx, userID, pf, intent, err)
		return nil, err
	}

	s.logger.Info("checkout committed",
		zap.String("user_id", userID.String()),
		zap.String("order_id", o.ID.String()),
		zap.String("order_number", o.OrderNumber),
		zap.String("payment_intent_id", intent.ID),
		zap.String("total", o.TotalAmount.StringFixed(2)),
	)
	return &CheckoutResult{Order: apporder.ToOrderResponse(o), ClientSecret: intent.ClientSecret}, nil
}

// preflight loads and validates the cart under the user's lock, checks
// stock for every line and prices the order. Nothing is mutated.
func (s *Service) preflight(ctx context.Context, userID uuid.UUID, req CheckoutRequest) (*preflight, error) {
	unlock, err := s.locker.Lock(ctx, cart.LockName(userID), s.config.LockWait)
	if err != nil {
		return nil, err
	}
	defer unlock()

	c, err := s.carts.FindOrCreateByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c.IsEmpty() {
		return nil, shared.ErrEmptyCart
	}

	shipping, err := s.shippingAddress(req)
	if err != nil {
		return nil, err
	}

	lines := make([]order.LineInput, 0, len(c.Lines))
	for _, l := range c.Lines {
		if err := s.ledger.Reserve(ctx, l.ProductID, l.Quantity); err != nil {
			return nil, err
		}
		lines = append(lines, order.LineInput{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
		})
	}

	snapshot := c.Snapshot()
	key := checkoutKey(userID, snapshot, req.IdempotencyKey)

	return &preflight{
		cart:     snapshot,
		shipping: shipping,
		lines:    lines,
		quote:    order.Price(lines, snapshot.Currency, s.config.TaxRate),
		key:      key,
	}, nil
}

// authorize creates the payment intent. No local state changes here, so a
// failure needs no compensation.
func (s *Service) authorize(ctx context.Context, userID uuid.UUID, pf *preflight) (*payment.Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.PaymentTimeout)
	defer cancel()

	intent, err := s.gateway.CreateIntent(ctx, payment.CreateIntentRequest{
		AmountMinor:    pf.quote.Total.MinorUnits(),
		Currency:       string(pf.quote.Total.Currency()),
		IdempotencyKey: pf.key,
		Description:    fmt.Sprintf("Order of %d items", pf.cart.ItemCount()),
		Metadata: map[string]string{
			"user_id":      userID.String(),
			"cart_id":      pf.cart.ID.String(),
			"checkout_key": pf.key,
		},
	})
	if err != nil {
		s.logger.Warn("payment authorization failed",
			zap.String("user_id", userID.String()),
			zap.String("gateway", s.gateway.Name()),
			zap.Error(err),
		)
		return nil, gatewayError(err)
	}
	if intent.Status == payment.IntentStatusCanceled {
		s.logger.Warn("payment intent for checkout key was already cancelled",
			zap.String("user_id", userID.String()),
			zap.String("payment_intent_id", intent.ID),
		)
		s.retire(ctx, pf)
		return nil, shared.NewDomainError(shared.CodeConcurrencyConflict,
			"Payment for this checkout attempt was cancelled, please retry checkout")
	}
	return intent, nil
}

// commit creates the order, decrements stock and clears the cart in one
// transaction
func (s *Service) commit(ctx context.Context, userID uuid.UUID, pf *preflight, intent *payment.Intent) (*order.Order, error) {
	var placed *order.Order
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		o, err := order.Place(order.PlaceParams{
			UserID:          userID,
			Shipping:        pf.shipping,
			Lines:           pf.lines,
			Currency:        pf.cart.Currency,
			TaxRate:         s.config.TaxRate,
			PaymentIntentID: intent.ID,
			CheckoutKey:     pf.key,
		})
		if err != nil {
			return err
		}
		if err := repos.Orders().Create(ctx, o); err != nil {
			return err
		}

		ledger := repos.Ledger()
		for _, l := range o.Lines {
			if err := ledger.CommitDecrement(ctx, l.ProductID, l.Quantity); err != nil {
				if shared.CodeOf(err) == shared.CodeInsufficientStock {
					return shared.NewDomainError(shared.CodeStockConflict,
						fmt.Sprintf("Stock for %s was taken by another order during checkout", l.ProductName))
				}
				return err
			}
		}

		cleared := pf.cart.Snapshot()
		expected := cleared.Version
		cleared.Clear()
		if err := repos.Carts().Save(ctx, cleared, expected); err != nil {
			if errors.Is(err, shared.ErrConcurrencyConflict) {
				return shared.NewDomainError(shared.CodeConcurrencyConflict,
					"Cart changed during checkout, please review it and try again")
			}
			return err
		}

		placed = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return placed, nil
}

// orderForIntent returns the order already committed for intent, if any
func (s *Service) orderForIntent(ctx context.Context, intent *payment.Intent) *order.Order {
	existing, err := s.orders.FindByPaymentIntent(ctx, intent.ID)
	if err != nil {
		return nil
	}
	return existing
}

// replay answers a checkout whose intent already backs a committed order.
// The intent is left alone either way: it pays for that order.
func (s *Service) replay(userID uuid.UUID, existing *order.Order, intent *payment.Intent) (*CheckoutResult, error) {
	fields := []zap.Field{
		zap.String("user_id", userID.String()),
		zap.String("order_id", existing.ID.String()),
		zap.String("payment_intent_id", intent.ID),
	}
	if !existing.BelongsTo(userID) {
		s.logger.Error("payment intent already backs another user's order", fields...)
		return nil, shared.NewDomainError(shared.CodeConcurrencyConflict,
			"Payment intent "+intent.ID+" is already attached to another order")
	}
	s.logger.Info("checkout replayed an already committed order", fields...)
	return &CheckoutResult{Order: apporder.ToOrderResponse(existing), ClientSecret: intent.ClientSecret}, nil
}

// compensate cancels an intent whose order could not be committed and
// retires the attempt's idempotency key. It runs detached from the request
// so a disconnecting client cannot skip it.
func (s *Service) compensate(ctx context.Context, userID uuid.UUID, pf *preflight, intent *payment.Intent, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.CancelTimeout)
	defer cancel()

	fields := []zap.Field{
		zap.String("user_id", userID.String()),
		zap.String("payment_intent_id", intent.ID),
		zap.String("gateway", s.gateway.Name()),
		zap.NamedError("cause", cause),
	}
	s.logger.Error("checkout commit failed, cancelling payment intent", fields...)

	if err := s.gateway.CancelIntent(ctx, intent.ID, "checkout_commit_failed"); err != nil {
		s.metrics.CompensationFailed(ctx, s.gateway.Name())
		s.logger.Error("payment intent cancellation failed, manual reversal required",
			append(fields, zap.Error(err))...)
	}
	s.retire(ctx, pf)
}

// retire bumps the cart version so the next checkout of the same lines
// derives a new idempotency key instead of replaying a cancelled intent.
// A version conflict means the cart already moved on, which is enough.
func (s *Service) retire(ctx context.Context, pf *preflight) {
	c := pf.cart.Snapshot()
	expected := c.Version
	c.Revise()
	if err := s.carts.Save(ctx, c, expected); err != nil && !errors.Is(err, shared.ErrConcurrencyConflict) {
		s.logger.Warn("failed to retire checkout key",
			zap.String("cart_id", c.ID.String()),
			zap.String("checkout_key", pf.key),
			zap.Error(err),
		)
	}
}

// checkoutKey scopes the payment idempotency key to the user and the cart
// version. Gateway keys are account wide, and every commit or cancelled
// attempt moves the version, so no two attempts can share an intent.
func checkoutKey(userID uuid.UUID, c *cart.Cart, clientKey string) string {
	key := fmt.Sprintf("checkout:%s:%s:%d", userID, c.ID, c.Version)
	if clientKey != "" {
		key += ":" + clientKey
	}
	return key
}

func gatewayError(err error) error {
	msg := "Payment authorization failed, please try again"
	var ge *payment.GatewayError
	if errors.As(err, &ge) && ge.Detail != "" {
		msg = "Payment authorization failed: " + ge.Detail
	}
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "Payment gateway did not respond in time, please try again"
	}
	return shared.NewDomainError(shared.CodePaymentGateway, msg)
}
