package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/orders-api/internal/model"
	"github.com/jwalitptl/orders-api/internal/repository"
	"github.com/jwalitptl/orders-api/pkg/metrics"
)

const orderFrom = ` FROM sc_order o JOIN auth_user u ON u.id = o.user_id`

const orderSelect = `SELECT o.id, o.customer, o.amount, o.price, o.notes, o.deleted,
	o.number_year, o.number_seq, o.user_id, o.date_created, o.date_last_updated,
	u.username AS "user.username", u.first_name AS "user.first_name", u.last_name AS "user.last_name"` + orderFrom

var orderColumns = columnSet{
	"id":                {expr: "o.id"},
	"customer":          {expr: "o.customer", text: true},
	"amount":            {expr: "o.amount"},
	"price":             {expr: "o.price"},
	"notes":             {expr: "o.notes", text: true},
	"deleted":           {expr: "o.deleted"},
	"number_year":       {expr: "o.number_year"},
	"number_seq":        {expr: "o.number_seq"},
	"date_created":      {expr: "o.date_created"},
	"date_last_updated": {expr: "o.date_last_updated"},
	"user.id":           {expr: "u.id"},
	"user.username":     {expr: "u.username", text: true},
	"user.first_name":   {expr: "u.first_name", text: true},
	"user.last_name":    {expr: "u.last_name", text: true},
}

type orderRepository struct {
	BaseRepository
	q sqlx.ExtContext
}

func NewOrderRepository(db *sqlx.DB, m *metrics.Metrics) repository.OrderRepository {
	return &orderRepository{
		BaseRepository: NewBaseRepository(db, m),
		q:              db,
	}
}

func (r *orderRepository) WithTx(ctx context.Context, fn func(repository.OrderStore) error) error {
	return r.BaseRepository.WithTx(ctx, func(tx *sqlx.Tx) error {
		return fn(&orderRepository{BaseRepository: r.BaseRepository, q: tx})
	})
}

func (r *orderRepository) List(ctx context.Context, lq repository.ListQuery) (orders []*model.Order, count int, err error) {
	defer func(start time.Time) { r.observe("order.list", start, err) }(time.Now())

	b := &whereBuilder{cols: orderColumns}
	where, err := b.where(lq.Filter)
	if err != nil {
		return nil, 0, err
	}

	if lq.Count {
		if err := sqlx.GetContext(ctx, r.q, &count, "SELECT COUNT(*)"+orderFrom+where, b.args...); err != nil {
			return nil, 0, fmt.Errorf("failed to count orders: %w", err)
		}
	}

	orderBy, err := orderColumns.orderBy(lq.Order)
	if err != nil {
		return nil, 0, err
	}
	query := orderSelect + where + orderBy + b.window(lq.Limit, lq.Offset)

	orders = []*model.Order{}
	if err := sqlx.SelectContext(ctx, r.q, &orders, query, b.args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	if !lq.Count {
		count = len(orders)
	}
	return orders, count, nil
}

func (r *orderRepository) Get(ctx context.Context, id int64) (*model.Order, error) {
	return r.get(ctx, "order.get", orderSelect+` WHERE o.id = $1`, id)
}

func (r *orderRepository) GetForUpdate(ctx context.Context, id int64) (*model.Order, error) {
	return r.get(ctx, "order.get_for_update", orderSelect+` WHERE o.id = $1 FOR UPDATE OF o`, id)
}

func (r *orderRepository) get(ctx context.Context, op, query string, id int64) (order *model.Order, err error) {
	defer func(start time.Time) { r.observe(op, start, err) }(time.Now())

	order = &model.Order{}
	if err := sqlx.GetContext(ctx, r.q, order, query, id); err != nil {
		return nil, fmt.Errorf("failed to get order %d: %w", id, err)
	}
	return order, nil
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) (err error) {
	defer func(start time.Time) { r.observe("order.create", start, err) }(time.Now())

	query := `
		INSERT INTO sc_order (
			user_id, customer, amount, price, notes, deleted,
			number_year, number_seq, date_created, date_last_updated
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING id, date_created, date_last_updated`

	row := r.q.QueryRowxContext(ctx, query,
		order.UserID, order.Customer, order.Amount, order.Price, order.Notes, order.Deleted,
		order.NumberYear, order.NumberSeq,
	)
	if err := row.Scan(&order.ID, &order.DateCreated, &order.DateLastUpdated); err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (r *orderRepository) Update(ctx context.Context, order *model.Order) (err error) {
	defer func(start time.Time) { r.observe("order.update", start, err) }(time.Now())

	query := `
		UPDATE sc_order SET
			user_id = $1, customer = $2, amount = $3, price = $4, notes = $5, deleted = $6,
			date_last_updated = NOW()
		WHERE id = $7
		RETURNING date_last_updated`

	row := r.q.QueryRowxContext(ctx, query,
		order.UserID, order.Customer, order.Amount, order.Price, order.Notes, order.Deleted,
		order.ID,
	)
	if err := row.Scan(&order.DateLastUpdated); err != nil {
		return fmt.Errorf("failed to update order %d: %w", order.ID, err)
	}
	return nil
}

func (r *orderRepository) Delete(ctx context.Context, id int64) (err error) {
	defer func(start time.Time) { r.observe("order.delete", start, err) }(time.Now())

	result, err := r.q.ExecContext(ctx, `DELETE FROM sc_order WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete order %d: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete order %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("failed to delete order %d: %w", id, sql.ErrNoRows)
	}
	return nil
}

// nextNumberQuery bumps the per-year counter. The row stays locked until the
// transaction ends, and numbers are never handed out twice, even after the
// highest order of a year is removed.
const nextNumberQuery = `INSERT INTO sc_order_number (year, seq) VALUES ($1, 1)
	ON CONFLICT (year) DO UPDATE SET seq = sc_order_number.seq + 1
	RETURNING seq`

func (r *orderRepository) NextNumber(ctx context.Context, year int) (seq int, err error) {
	defer func(start time.Time) { r.observe("order.next_number", start, err) }(time.Now())

	if err := sqlx.GetContext(ctx, r.q, &seq, nextNumberQuery, year); err != nil {
		return 0, fmt.Errorf("failed to allocate order number: %w", err)
	}
	return seq, nil
}

func (r *orderRepository) UserExists(ctx context.Context, id int64) (exists bool, err error) {
	defer func(start time.Time) { r.observe("user.exists", start, err) }(time.Now())

	if err := sqlx.GetContext(ctx, r.q, &exists, `SELECT EXISTS (SELECT 1 FROM auth_user WHERE id = $1)`, id); err != nil {
		return false, fmt.Errorf("failed to check user %d: %w", id, err)
	}
	return exists, nil
}
