package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/orders-api/internal/model"
	"github.com/jwalitptl/orders-api/internal/repository"
	apperrors "github.com/jwalitptl/orders-api/pkg/errors"
	"github.com/jwalitptl/orders-api/pkg/messaging"
	"github.com/jwalitptl/orders-api/pkg/validator"
)

// Messages returned to callers
const (
	MsgNothingToUpdate = "Nothing to update."
	MsgOrderDeleted    = "Order is deleted and cannot be modified."
)

type OrderServicer interface {
	ListOrders(ctx context.Context, q repository.ListQuery) ([]*model.Order, int, error)
	GetOrder(ctx context.Context, id int64) (*model.Order, error)
	CreateOrder(ctx context.Context, in model.OrderInput) (*model.Order, error)
	UpdateOrder(ctx context.Context, id int64, in model.OrderInput, partial bool) (*model.Order, error)
	DeleteOrder(ctx context.Context, id int64) error
}

type Service struct {
	repo      repository.OrderRepository
	publisher messaging.Publisher
	// prefetch holds retrieved orders with their user summary, keyed by id.
	prefetch *cache.Cache
	// epoch counts committed mutations. A read that overlaps one is not
	// stored in prefetch.
	mu     sync.Mutex
	epoch  uint64
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(repo repository.OrderRepository, publisher messaging.Publisher, prefetch *cache.Cache, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		prefetch:  prefetch,
		logger:    logger.With().Str("service", "order").Logger(),
		now:       time.Now,
	}
}

func cacheKey(id int64) string {
	return "order:" + strconv.FormatInt(id, 10)
}

func notFound(resource string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NotFound(resource, err)
	}
	return err
}

func (s *Service) ListOrders(ctx context.Context, q repository.ListQuery) ([]*model.Order, int, error) {
	orders, count, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, count, nil
}

func (s *Service) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	if cached, ok := s.prefetch.Get(cacheKey(id)); ok {
		o := *cached.(*model.Order)
		return &o, nil
	}

	s.mu.Lock()
	epoch := s.epoch
	s.mu.Unlock()

	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, notFound("order", err)
	}

	s.mu.Lock()
	if s.epoch == epoch {
		stored := *o
		s.prefetch.SetDefault(cacheKey(id), &stored)
	}
	s.mu.Unlock()
	return o, nil
}

// invalidate drops the cached order after a committed mutation.
func (s *Service) invalidate(id int64) {
	s.mu.Lock()
	s.epoch++
	s.prefetch.Delete(cacheKey(id))
	s.mu.Unlock()
}

// CreateOrder validates and stores a new order, assigning it the next number
// of the current year in the same transaction.
func (s *Service) CreateOrder(ctx context.Context, in model.OrderInput) (*model.Order, error) {
	var created *model.Order

	err := s.repo.WithTx(ctx, func(tx repository.OrderStore) error {
		if err := validator.Validate(&in); err != nil {
			return err
		}

		o := in.NewOrder()
		if err := s.checkUser(ctx, tx, o.UserID); err != nil {
			return err
		}

		o.NumberYear = s.now().Year()
		seq, err := tx.NextNumber(ctx, o.NumberYear)
		if err != nil {
			return err
		}
		o.NumberSeq = seq

		if err := tx.Create(ctx, o); err != nil {
			return err
		}

		created, err = tx.Get(ctx, o.ID)
		return notFound("order", err)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, model.EventOrderCreated, created)
	return created, nil
}

// UpdateOrder applies in to the order. A partial update only validates and
// writes the fields that were sent; one that sends nothing is accepted with
// the current order. A deleted order may only be restored.
func (s *Service) UpdateOrder(ctx context.Context, id int64, in model.OrderInput, partial bool) (*model.Order, error) {
	var updated *model.Order

	err := s.repo.WithTx(ctx, func(tx repository.OrderStore) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return notFound("order", err)
		}

		if partial {
			err = validator.ValidatePartial(&in)
		} else {
			err = validator.Validate(&in)
		}
		if err != nil {
			return err
		}

		if partial && in.IsEmpty() {
			return apperrors.Accepted(current, MsgNothingToUpdate)
		}
		if current.Deleted && !in.RestoresOnly() {
			return apperrors.InvalidData(MsgOrderDeleted)
		}
		if in.UserID != nil {
			if err := s.checkUser(ctx, tx, *in.UserID); err != nil {
				return err
			}
		}

		in.Apply(current)
		if err := tx.Update(ctx, current); err != nil {
			return notFound("order", err)
		}

		updated, err = tx.Get(ctx, id)
		return notFound("order", err)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(id)
	s.publish(ctx, model.EventOrderUpdated, updated)
	return updated, nil
}

func (s *Service) DeleteOrder(ctx context.Context, id int64) error {
	err := s.repo.WithTx(ctx, func(tx repository.OrderStore) error {
		return notFound("order", tx.Delete(ctx, id))
	})
	if err != nil {
		return err
	}

	s.invalidate(id)
	s.publish(ctx, model.EventOrderDeleted, map[string]int64{"id": id})
	return nil
}

func (s *Service) checkUser(ctx context.Context, tx repository.OrderStore, id int64) error {
	exists, err := tx.UserExists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return apperrors.NotFound("user", fmt.Errorf("user %d does not exist", id))
	}
	return nil
}

// publish runs after commit; a broker failure is logged and never fails the request.
func (s *Service) publish(ctx context.Context, eventType string, payload interface{}) {
	if err := s.publisher.Publish(ctx, eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event_type", eventType).Msg("failed to publish order event")
	}
}
