package checkout

import (
	"context"
	"time"

	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/order"
)

// TransactionalRepositories provides repositories bound to one transaction
type TransactionalRepositories interface {
	Orders() order.Repository
	Carts() cart.Repository
	Ledger() catalog.StockLedger
}

// TransactionScope runs fn in a single database transaction. The
// transaction rolls back when fn returns an error.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// Metrics records checkout outcomes
type Metrics interface {
	CheckoutCompleted(ctx context.Context, duration time.Duration)
	CheckoutFailed(ctx context.Context, code string)
	CompensationFailed(ctx context.Context, gateway string)
}

// NoopMetrics discards every measurement
type NoopMetrics struct{}

func (NoopMetrics) CheckoutCompleted(context.Context, time.Duration) {}
func (NoopMetrics) CheckoutFailed(context.Context, string)           {}
func (NoopMetrics) CompensationFailed(context.Context, string)       {}
