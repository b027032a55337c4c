package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kolapodev-a11y/PropertyHub/internal/listing/domain"
	"github.com/kolapodev-a11y/PropertyHub/internal/platform/apperr"
	"github.com/kolapodev-a11y/PropertyHub/internal/platform/metrics"
)

func newTestCatalog(api *MockListingAPI, store *MockListingStore) *Catalog {
	cfg := CatalogConfig{CallTimeout: time.Second, ReadRetries: 2, InitialInterval: time.Millisecond}
	return NewCatalog(api, store, cfg, metrics.NewMetricsManager("test"), zap.NewNop())
}

func TestCatalog_FetchByID(t *testing.T) {
	t.Run("not found is not an error", func(t *testing.T) {
		store := new(MockListingStore)
		store.On("FindByID", mock.Anything, "missing").Return(nil, domain.ErrListingNotFound).Once()

		got, err := newTestCatalog(nil, store).FetchByID(context.Background(), "missing")

		require.NoError(t, err)
		assert.Nil(t, got)
		store.AssertNumberOfCalls(t, "FindByID", 1)
	})

	t.Run("retries transient failures", func(t *testing.T) {
		store := new(MockListingStore)
		store.On("FindByID", mock.Anything, "l1").Return(nil, errors.New("timeout")).Once()
		store.On("FindByID", mock.Anything, "l1").Return(&domain.Listing{ID: "l1"}, nil).Once()

		got, err := newTestCatalog(nil, store).FetchByID(context.Background(), "l1")

		require.NoError(t, err)
		assert.Equal(t, "l1", got.ID)
		store.AssertExpectations(t)
	})

	t.Run("gives up after the retry budget", func(t *testing.T) {
		store := new(MockListingStore)
		store.On("FindByID", mock.Anything, "l1").Return(nil, errors.New("unavailable"))

		_, err := newTestCatalog(nil, store).FetchByID(context.Background(), "l1")

		assert.ErrorIs(t, err, apperr.ErrTransport)
		store.AssertNumberOfCalls(t, "FindByID", 3)
	})

	t.Run("empty id short-circuits", func(t *testing.T) {
		got, err := newTestCatalog(nil, new(MockListingStore)).FetchByID(context.Background(), "")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestCatalog_FetchLatest(t *testing.T) {
	store := new(MockListingStore)
	want := []*domain.Listing{{ID: "b"}, {ID: "a"}}
	store.On("FindLatest", mock.Anything, domain.Category(""), 8).Return(want, nil).Once()

	got, err := newTestCatalog(nil, store).FetchLatest(context.Background(), 0)

	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestCatalog_Writes(t *testing.T) {
	draft := domain.Draft{Title: "t", Category: domain.CategoryPhone, Price: "10"}

	t.Run("create without token never reaches the api", func(t *testing.T) {
		api := new(MockListingAPI)

		_, err := newTestCatalog(api, nil).Create(context.Background(), draft, "")

		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
		api.AssertNotCalled(t, "CreateListing", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("create is attempted once", func(t *testing.T) {
		api := new(MockListingAPI)
		api.On("CreateListing", mock.Anything, draft, "tok").Return("", apperr.Transport("Failed to create listing", nil)).Once()

		_, err := newTestCatalog(api, nil).Create(context.Background(), draft, "tok")

		assert.ErrorIs(t, err, apperr.ErrTransport)
		api.AssertNumberOfCalls(t, "CreateListing", 1)
	})

	t.Run("delete passes the token through", func(t *testing.T) {
		api := new(MockListingAPI)
		api.On("DeleteListing", mock.Anything, "l1", "tok").Return(nil).Once()

		require.NoError(t, newTestCatalog(api, nil).Delete(context.Background(), "l1", "tok"))
		api.AssertExpectations(t)
	})
}

func TestCatalog_SubscribeLive(t *testing.T) {
	store := new(MockListingStore)
	inner := &stubSubscription{}
	store.On("Watch", mock.Anything, domain.CategoryLand, mock.Anything).Return(inner, nil).Once()

	sub, err := newTestCatalog(nil, store).SubscribeLive(context.Background(), domain.CategoryLand, func([]*domain.Listing) {})
	require.NoError(t, err)

	sub.Close()
	sub.Close()
	assert.Equal(t, 1, inner.closed)
}
