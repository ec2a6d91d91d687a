package repository

import (
	"context"

	"github.com/jwalitptl/orders-api/internal/model"
	"github.com/jwalitptl/orders-api/pkg/filter"
	"github.com/jwalitptl/orders-api/pkg/pagination"
)

// ListQuery selects a filtered, ordered window of rows. Paths in Filter and
// Order are logical storage paths such as "customer" or "user.first_name".
type ListQuery struct {
	Filter *filter.Predicate
	Order  []pagination.OrderTerm
	// Limit 0 means no limit.
	Limit  int
	Offset int
	// Count requests the total number of rows matching Filter.
	Count bool
}

// All repository interfaces in one file
type (
	// OrderStore holds the order operations available inside and outside a transaction
	OrderStore interface {
		// List returns the page and, when q.Count is set, the total match count.
		List(ctx context.Context, q ListQuery) ([]*model.Order, int, error)
		Get(ctx context.Context, id int64) (*model.Order, error)
		// GetForUpdate locks the row for the rest of the transaction.
		GetForUpdate(ctx context.Context, id int64) (*model.Order, error)
		Create(ctx context.Context, order *model.Order) error
		Update(ctx context.Context, order *model.Order) error
		Delete(ctx context.Context, id int64) error
		// NextNumber reserves the next order sequence for year.
		NextNumber(ctx context.Context, year int) (int, error)
		UserExists(ctx context.Context, id int64) (bool, error)
	}

	OrderRepository interface {
		OrderStore
		// WithTx runs fn in a single transaction, committed only when fn returns nil.
		WithTx(ctx context.Context, fn func(OrderStore) error) error
		Ping(ctx context.Context) error
	}
)
