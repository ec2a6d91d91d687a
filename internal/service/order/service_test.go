package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/orders-api/internal/model"
	"github.com/jwalitptl/orders-api/internal/repository"
	apperrors "github.com/jwalitptl/orders-api/pkg/errors"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) WithTx(ctx context.Context, fn func(repository.OrderStore) error) error {
	if err := m.Called(ctx).Error(0); err != nil {
		return err
	}
	return fn(m)
}

func (m *mockRepo) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockRepo) List(ctx context.Context, q repository.ListQuery) ([]*model.Order, int, error) {
	args := m.Called(ctx, q)
	orders, _ := args.Get(0).([]*model.Order)
	return orders, args.Int(1), args.Error(2)
}

func (m *mockRepo) Get(ctx context.Context, id int64) (*model.Order, error) {
	args := m.Called(ctx, id)
	o, _ := args.Get(0).(*model.Order)
	return o, args.Error(1)
}

func (m *mockRepo) GetForUpdate(ctx context.Context, id int64) (*model.Order, error) {
	args := m.Called(ctx, id)
	o, _ := args.Get(0).(*model.Order)
	return o, args.Error(1)
}

func (m *mockRepo) Create(ctx context.Context, o *model.Order) error {
	return m.Called(ctx, o).Error(0)
}

func (m *mockRepo) Update(ctx context.Context, o *model.Order) error {
	return m.Called(ctx, o).Error(0)
}

func (m *mockRepo) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockRepo) NextNumber(ctx context.Context, year int) (int, error) {
	args := m.Called(ctx, year)
	return args.Int(0), args.Error(1)
}

func (m *mockRepo) UserExists(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, eventType string, payload interface{}) error {
	return m.Called(ctx, eventType, payload).Error(0)
}

func ptr[T any](v T) *T { return &v }

func newTestService(repo *mockRepo, pub *mockPublisher) *Service {
	s := NewService(repo, pub, cache.New(time.Minute, time.Minute), zerolog.Nop())
	s.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }
	return s
}

func validInput() model.OrderInput {
	return model.OrderInput{
		Customer: ptr("Acme"),
		Amount:   ptr(int64(3)),
		Price:    ptr("12.50"),
		Notes:    ptr("first"),
	}
}

func TestCreateOrder(t *testing.T) {
	ctx := context.Background()
	repo, pub := new(mockRepo), new(mockPublisher)
	stored := &model.Order{Base: model.Base{ID: 7}, Customer: "Acme", NumberYear: 2024, NumberSeq: 4}

	repo.On("WithTx", ctx).Return(nil)
	repo.On("UserExists", ctx, model.DefaultUserID).Return(true, nil)
	repo.On("NextNumber", ctx, 2024).Return(4, nil)
	repo.On("Create", ctx, mock.MatchedBy(func(o *model.Order) bool {
		return o.Customer == "Acme" && o.NumberYear == 2024 && o.NumberSeq == 4 && o.UserID == model.DefaultUserID
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*model.Order).ID = 7
	}).Return(nil)
	repo.On("Get", ctx, int64(7)).Return(stored, nil)
	pub.On("Publish", ctx, model.EventOrderCreated, stored).Return(nil)

	got, err := newTestService(repo, pub).CreateOrder(ctx, validInput())
	require.NoError(t, err)
	assert.Equal(t, stored, got)
	repo.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestCreateOrderValidation(t *testing.T) {
	ctx := context.Background()
	repo, pub := new(mockRepo), new(mockPublisher)
	repo.On("WithTx", ctx).Return(nil)

	in := validInput()
	in.Customer = nil
	in.Price = ptr("cheap")

	_, err := newTestService(repo, pub).CreateOrder(ctx, in)
	require.Error(t, err)

	appErr := apperrors.Classify(err)
	assert.Equal(t, apperrors.KindValidation, appErr.Kind)
	details := appErr.Details.(apperrors.FieldErrors)
	assert.Contains(t, details, "customer")
	assert.Contains(t, details, "price")
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateOrderMissingUser(t *testing.T) {
	ctx := context.Background()
	repo, pub := new(mockRepo), new(mockPublisher)
	repo.On("WithTx", ctx).Return(nil)
	repo.On("UserExists", ctx, int64(9)).Return(false, nil)

	in := validInput()
	in.UserID = ptr(int64(9))

	_, err := newTestService(repo, pub).CreateOrder(ctx, in)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestCreateOrderPublishFailureIsIgnored(t *testing.T) {
	ctx := context.Background()
	repo, pub := new(mockRepo), new(mockPublisher)
	stored := &model.Order{Base: model.Base{ID: 1}}

	repo.On("WithTx", ctx).Return(nil)
	repo.On("UserExists", ctx, model.DefaultUserID).Return(true, nil)
	repo.On("NextNumber", ctx, 2024).Return(1, nil)
	repo.On("Create", ctx, mock.Anything).Return(nil)
	repo.On("Get", ctx, int64(0)).Return(stored, nil)
	pub.On("Publish", ctx, model.EventOrderCreated, stored).Return(errors.New("redis down"))

	got, err := newTestService(repo, pub).CreateOrder(ctx, validInput())
	require.NoError(t, err)
	assert.Equal(t, stored, got)
}

func TestGetOrderCachesUntilMutation(t *testing.T) {
	ctx := context.Background()
	repo, pub := new(mockRepo), new(mockPublisher)
	svc := newTestService(repo, pub)

	first := &model.Order{Base: model.Base{ID: 5}, Notes: "old", User: model.UserSummary{FirstName: "Ada"}}
	repo.On("Get", ctx, int64(5)).Return(first, nil).Once()

	got, err := svc.GetOrder(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "old", got.Notes)

	got.Notes = "mutated by caller"
	again, err := svc.GetOrder(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "old", again.Notes)

	updated := &model.Order{Base: model.Base{ID: 5}, Notes: "new"}
	repo.On("WithTx", ctx).Return(nil)
	repo.On("GetForUpdate", ctx, int64(5)).Return(&model.Order{Base: model.Base{ID: 5}, Notes: "old"}, nil)
	repo.On("Update", ctx, mock.Anything).Return(nil)
	repo.On("Get", ctx, int64(5)).Return(updated, nil).Once()
	pub.On("Publish", ctx, model.EventOrderUpdated, updated).Return(nil)

	_, err = svc.UpdateOrder(ctx, 5, model.OrderInput{Notes: ptr("new")}, true)
	require.NoError(t, err)

	repo.On("Get", ctx, int64(5)).Return(updated, nil).Once()
	fresh, err := svc.GetOrder(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "new", fresh.Notes)
	repo.AssertExpectations(t)
}

func TestGetOrderOverlappingUpdateIsNotCached(t *testing.T) {
	ctx := context.Background()
	repo, pub := new(mockRepo), new(mockPublisher)
	svc := newTestService(repo, pub)

	stale := &model.Order{Base: model.Base{ID: 5}, Customer: "old"}
	updated := &model.Order{Base: model.Base{ID: 5}, Customer: "new"}

	reading, release := make(chan struct{}), make(chan struct{})
	repo.On("Get", ctx, int64(5)).Run(func(mock.Arguments) {
		close(reading)
		<-release
	}).Return(stale, nil).Once()
	repo.On("WithTx", ctx).Return(nil)
	repo.On("GetForUpdate", ctx, int64(5)).Return(&model.Order{Base: model.Base{ID: 5}, Customer: "old"}, nil)
	repo.On("Update", ctx, mock.Anything).Return(nil)
	repo.On("Get", ctx, int64(5)).Return(updated, nil).Twice()
	pub.On("Publish", ctx, model.EventOrderUpdated, updated).Return(nil)

	done := make(chan *model.Order)
	go func() {
		o, _ := svc.GetOrder(ctx, 5)
		done <- o
	}()

	<-reading
	_, err := svc.UpdateOrder(ctx, 5, model.OrderInput{Customer: ptr("new")}, true)
	require.NoError(t, err)
	close(release)
	assert.Equal(t, "old", (<-done).Customer)

	got, err := svc.GetOrder(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "new", got.Customer)
	repo.AssertExpectations(t)
}

func TestGetOrderNotFound(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepo)
	repo.On("Get", ctx, int64(3)).Return(nil, fmt.Errorf("failed to get order 3: %w", sql.ErrNoRows))

	_, err := newTestService(repo, new(mockPublisher)).GetOrder(ctx, 3)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestUpdateOrder(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		current  *model.Order
		getErr   error
		in       model.OrderInput
		partial  bool
		wantKind apperrors.Kind
		wantMsg  string
	}{
		{
			name:     "missing order",
			getErr:   sql.ErrNoRows,
			in:       model.OrderInput{Notes: ptr("x")},
			partial:  true,
			wantKind: apperrors.KindNotFound,
		},
		{
			name:     "empty partial update",
			current:  &model.Order{Base: model.Base{ID: 1}},
			partial:  true,
			wantKind: apperrors.KindAccepted,
			wantMsg:  MsgNothingToUpdate,
		},
		{
			name:     "full update requires every field",
			current:  &model.Order{Base: model.Base{ID: 1}},
			in:       model.OrderInput{Notes: ptr("x")},
			wantKind: apperrors.KindValidation,
		},
		{
			name:     "deleted order",
			current:  &model.Order{Base: model.Base{ID: 1}, Deleted: true},
			in:       model.OrderInput{Notes: ptr("x")},
			partial:  true,
			wantKind: apperrors.KindInvalidData,
			wantMsg:  MsgOrderDeleted,
		},
		{
			name:     "invalid partial field",
			current:  &model.Order{Base: model.Base{ID: 1}},
			in:       model.OrderInput{Amount: ptr(int64(-1))},
			partial:  true,
			wantKind: apperrors.KindValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, pub := new(mockRepo), new(mockPublisher)
			repo.On("WithTx", ctx).Return(nil)
			repo.On("GetForUpdate", ctx, int64(1)).Return(tt.current, tt.getErr)

			_, err := newTestService(repo, pub).UpdateOrder(ctx, 1, tt.in, tt.partial)
			require.Error(t, err)

			appErr := apperrors.Classify(err)
			assert.Equal(t, tt.wantKind, appErr.Kind)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, appErr.Message)
			}
			repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
			pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestUpdateOrderAcceptedCarriesCurrent(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepo)
	current := &model.Order{Base: model.Base{ID: 1}, Customer: "Acme"}
	repo.On("WithTx", ctx).Return(nil)
	repo.On("GetForUpdate", ctx, int64(1)).Return(current, nil)

	_, err := newTestService(repo, new(mockPublisher)).UpdateOrder(ctx, 1, model.OrderInput{}, true)
	assert.Same(t, current, apperrors.Classify(err).Object)
}

func TestUpdateOrderRestoresDeleted(t *testing.T) {
	ctx := context.Background()
	repo, pub := new(mockRepo), new(mockPublisher)
	restored := &model.Order{Base: model.Base{ID: 1}}

	repo.On("WithTx", ctx).Return(nil)
	repo.On("GetForUpdate", ctx, int64(1)).Return(&model.Order{Base: model.Base{ID: 1}, Deleted: true}, nil)
	repo.On("Update", ctx, mock.MatchedBy(func(o *model.Order) bool { return !o.Deleted })).Return(nil)
	repo.On("Get", ctx, int64(1)).Return(restored, nil)
	pub.On("Publish", ctx, model.EventOrderUpdated, restored).Return(nil)

	got, err := newTestService(repo, pub).UpdateOrder(ctx, 1, model.OrderInput{Deleted: ptr(false)}, true)
	require.NoError(t, err)
	assert.Equal(t, restored, got)
	repo.AssertExpectations(t)
}

func TestDeleteOrder(t *testing.T) {
	ctx := context.Background()
	repo, pub := new(mockRepo), new(mockPublisher)
	repo.On("WithTx", ctx).Return(nil)
	repo.On("Delete", ctx, int64(4)).Return(nil)
	repo.On("Delete", ctx, int64(5)).Return(fmt.Errorf("failed to delete order 5: %w", sql.ErrNoRows))
	pub.On("Publish", ctx, model.EventOrderDeleted, map[string]int64{"id": 4}).Return(nil)

	svc := newTestService(repo, pub)
	assert.NoError(t, svc.DeleteOrder(ctx, 4))
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(svc.DeleteOrder(ctx, 5)))
	pub.AssertNumberOfCalls(t, "Publish", 1)
}

func TestTransactionFailure(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepo)
	repo.On("WithTx", ctx).Return(errors.New("connection refused"))

	err := newTestService(repo, new(mockPublisher)).DeleteOrder(ctx, 1)
	assert.Equal(t, apperrors.KindOther, apperrors.KindOf(err))
}
