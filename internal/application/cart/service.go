package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"go.uber.org/zap"
)

const defaultLockWait = 5 * time.Second

// Service handles cart operations. Every mutation runs under the user's
// cart lock and is saved with an optimistic version check.
type Service struct {
	carts    cart.Repository
	products catalog.ProductRepository
	locker   shared.Locker
	lockWait time.Duration
	logger   *zap.Logger
}

// Option configures a Service
type Option func(*Service)

// WithLockWait sets how long a mutation waits for the user's cart lock
func WithLockWait(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.lockWait = d
		}
	}
}

// NewService creates a new cart Service
func NewService(carts cart.Repository, products catalog.ProductRepository, locker shared.Locker, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		carts:    carts,
		products: products,
		locker:   locker,
		lockWait: defaultLockWait,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetCart returns the user's cart, creating an empty one on first access
func (s *Service) GetCart(ctx context.Context, userID uuid.UUID) (*CartResponse, error) {
	c, err := s.carts.FindOrCreateByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := ToCartResponse(c)
	return &resp, nil
}

// AddItem adds qty units of a product, merging with an existing line
func (s *Service) AddItem(ctx context.Context, userID uuid.UUID, req AddItemRequest) (*CartResponse, error) {
	return s.mutate(ctx, userID, "add_item", func(c *cart.Cart) error {
		product, err := s.products.FindByID(ctx, req.ProductID)
		if err != nil {
			return err
		}
		_, err = c.AddItem(product, req.Quantity)
		return err
	})
}

// UpdateItem sets the quantity of one line
func (s *Service) UpdateItem(ctx context.Context, userID, lineID uuid.UUID, req UpdateItemRequest) (*CartResponse, error) {
	return s.mutate(ctx, userID, "update_item", func(c *cart.Cart) error {
		var product *catalog.Product
		if line, ok := c.Line(lineID); ok && req.Quantity >= 1 {
			p, err := s.products.FindByID(ctx, line.ProductID)
			if err != nil {
				return err
			}
			product = p
		}
		_, err := c.UpdateItem(lineID, req.Quantity, product)
		return err
	})
}

// RemoveItem deletes one line
func (s *Service) RemoveItem(ctx context.Context, userID, lineID uuid.UUID) (*CartResponse, error) {
	return s.mutate(ctx, userID, "remove_item", func(c *cart.Cart) error {
		return c.RemoveItem(lineID)
	})
}

// Clear removes every line
func (s *Service) Clear(ctx context.Context, userID uuid.UUID) (*CartResponse, error) {
	return s.mutate(ctx, userID, "clear", func(c *cart.Cart) error {
		c.Clear()
		return nil
	})
}

// mutate loads the cart under the user's lock, applies fn and saves the
// result against the version that was loaded
func (s *Service) mutate(ctx context.Context, userID uuid.UUID, op string, fn func(c *cart.Cart) error) (*CartResponse, error) {
	unlock, err := s.locker.Lock(ctx, cart.LockName(userID), s.lockWait)
	if err != nil {
		return nil, err
	}
	defer unlock()

	c, err := s.carts.FindOrCreateByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	expected := c.Version

	if err := fn(c); err != nil {
		return nil, err
	}
	if err := s.carts.Save(ctx, c, expected); err != nil {
		if shared.CodeOf(err) == shared.CodeConcurrencyConflict {
			s.logger.Warn("cart changed concurrently",
				zap.String("user_id", userID.String()),
				zap.String("op", op),
				zap.Int("expected_version", expected),
			)
		}
		return nil, err
	}

	s.logger.Debug("cart updated",
		zap.String("user_id", userID.String()),
		zap.String("op", op),
		zap.Int("version", c.Version),
	)
	resp := ToCartResponse(c)
	return &resp, nil
}
