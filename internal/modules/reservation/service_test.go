package reservation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"cabinbook/internal/domain"
	"cabinbook/internal/events"
	"cabinbook/internal/pkg/logger"
	"cabinbook/internal/repository"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, e events.Event) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Invalidate(ctx context.Context, containerID int64) error {
	args := m.Called(ctx, containerID)
	return args.Error(0)
}

func TestAfterCommitFailuresAreNotSurfaced(t *testing.T) {
	f := newFixture(t)

	mockPublisher := new(MockPublisher)
	mockCache := new(MockCache)
	mockCache.On("Invalidate", mock.Anything, f.hall.ID).Return(errors.New("redis down"))
	mockPublisher.On("Publish", mock.Anything, mock.MatchedBy(func(e events.Event) bool {
		return e.Type == events.ReservationCreated && e.ResourceID == f.s1.ID
	})).Return(errors.New("broker down"))

	svc := NewService(Deps{
		Tx:           repository.NewTxManager(f.db),
		Catalog:      repository.NewCatalogRepository(f.db),
		Reservations: f.reservations,
		Publisher:    mockPublisher,
		Cache:        mockCache,
		Log:          logger.Discard(),
	}, Config{}).WithClock(f.now)

	receipt, err := svc.Create(context.Background(), daily(7, f.s1.ID, day(2024, 1, 15), 5))
	require.NoError(t, err)
	assert.Empty(t, receipt.PaymentURL)
	assert.Equal(t, domain.ReservationPending, f.get(t, receipt.ReservationID).Status)

	mockPublisher.AssertExpectations(t)
	mockCache.AssertExpectations(t)
}

func TestGet_AccessRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	receipt, err := f.svc.Create(ctx, daily(7, f.s1.ID, day(2024, 1, 15), 5))
	require.NoError(t, err)

	r, err := f.svc.Get(ctx, receipt.ReservationID, 7, false)
	require.NoError(t, err)
	assert.Equal(t, int64(7), r.UserID)

	_, err = f.svc.Get(ctx, receipt.ReservationID, 8, false)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.Get(ctx, receipt.ReservationID, 1, true)
	assert.NoError(t, err)

	_, err = f.svc.Get(ctx, 999, 7, false)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	mine, err := f.svc.ListMine(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}
