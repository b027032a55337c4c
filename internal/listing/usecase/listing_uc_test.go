package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kolapodev-a11y/PropertyHub/internal/listing/domain"
	"github.com/kolapodev-a11y/PropertyHub/internal/platform/apperr"
	"github.com/kolapodev-a11y/PropertyHub/internal/platform/metrics"
)

type listingDeps struct {
	store     *MockListingStore
	cache     *MockListingCache
	publisher *MockEventPublisher
	notifier  *MockNotifier
}

func newListingUsecase() (*ListingUsecase, listingDeps) {
	d := listingDeps{
		store:     new(MockListingStore),
		cache:     new(MockListingCache),
		publisher: new(MockEventPublisher),
		notifier:  new(MockNotifier),
	}
	uc := NewListingUsecase(d.store, d.cache, d.publisher, d.notifier, metrics.NewMetricsManager("test"), zap.NewNop())
	return uc, d
}

func validDraft() domain.Draft {
	return domain.Draft{
		Title:    "Two bedroom flat",
		Category: domain.CategoryRent,
		Price:    "1200",
		Images:   []string{"https://cdn.example.com/a.jpg", "https://cdn.example.com/b.jpg"},
	}
}

var alice = Author{Owner: domain.Owner{ID: "u1", Name: "Alice", PhotoURL: "https://img/alice.png"}, Email: "alice@example.com"}

func TestListingUsecase_Create(t *testing.T) {
	t.Run("stores listing and fires side effects", func(t *testing.T) {
		uc, d := newListingUsecase()
		d.store.On("Insert", mock.Anything, mock.MatchedBy(func(l *domain.Listing) bool {
			return l.Owner.ID == "u1" && l.Owner.Name == "Alice" &&
				l.Images[0] == "https://cdn.example.com/a.jpg" && l.Images[1] == "https://cdn.example.com/b.jpg"
		})).Return("l1", nil).Once()
		d.cache.On("Set", mock.Anything, mock.AnythingOfType("*domain.Listing")).Return(nil).Once()
		d.publisher.On("PublishListingCreated", mock.Anything, mock.AnythingOfType("*domain.Listing")).Return(nil).Once()
		d.notifier.On("SendListingPosted", mock.Anything, "alice@example.com", mock.AnythingOfType("*domain.Listing")).Return(nil).Once()

		listing, err := uc.Create(context.Background(), alice, validDraft())

		require.NoError(t, err)
		assert.Equal(t, "l1", listing.ID)
		assert.Equal(t, domain.CategoryRent, listing.Category)
		d.store.AssertExpectations(t)
		d.cache.AssertExpectations(t)
		d.publisher.AssertExpectations(t)
		d.notifier.AssertExpectations(t)
	})

	t.Run("side effect failures are not fatal", func(t *testing.T) {
		uc, d := newListingUsecase()
		d.store.On("Insert", mock.Anything, mock.Anything).Return("l2", nil).Once()
		d.cache.On("Set", mock.Anything, mock.Anything).Return(errors.New("redis down")).Once()
		d.publisher.On("PublishListingCreated", mock.Anything, mock.Anything).Return(errors.New("nats down")).Once()
		d.notifier.On("SendListingPosted", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down")).Once()

		listing, err := uc.Create(context.Background(), alice, validDraft())

		require.NoError(t, err)
		assert.Equal(t, "l2", listing.ID)
	})

	t.Run("skips email without address", func(t *testing.T) {
		uc, d := newListingUsecase()
		d.store.On("Insert", mock.Anything, mock.Anything).Return("l3", nil).Once()
		d.cache.On("Set", mock.Anything, mock.Anything).Return(nil).Once()
		d.publisher.On("PublishListingCreated", mock.Anything, mock.Anything).Return(nil).Once()

		author := alice
		author.Email = ""
		_, err := uc.Create(context.Background(), author, validDraft())

		require.NoError(t, err)
		d.notifier.AssertNotCalled(t, "SendListingPosted", mock.Anything, mock.Anything, mock.Anything)
	})

	invalid := []struct {
		name   string
		mutate func(*domain.Draft)
	}{
		{"missing price", func(d *domain.Draft) { d.Price = "  " }},
		{"missing title", func(d *domain.Draft) { d.Title = "" }},
		{"unknown category", func(d *domain.Draft) { d.Category = "boat" }},
		{"half coordinates", func(d *domain.Draft) { lat := 1.0; d.Lat = &lat }},
		{"relative image url", func(d *domain.Draft) { d.Images = []string{"a.jpg"} }},
	}
	for _, tt := range invalid {
		t.Run("rejects "+tt.name, func(t *testing.T) {
			uc, d := newListingUsecase()
			draft := validDraft()
			tt.mutate(&draft)

			_, err := uc.Create(context.Background(), alice, draft)

			assert.ErrorIs(t, err, apperr.ErrValidation)
			d.store.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
		})
	}

	t.Run("requires an author", func(t *testing.T) {
		uc, _ := newListingUsecase()
		_, err := uc.Create(context.Background(), Author{}, validDraft())
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	})

	t.Run("wraps store errors", func(t *testing.T) {
		uc, d := newListingUsecase()
		storeErr := errors.New("write concern")
		d.store.On("Insert", mock.Anything, mock.Anything).Return("", storeErr).Once()

		_, err := uc.Create(context.Background(), alice, validDraft())

		assert.ErrorIs(t, err, storeErr)
		assert.Contains(t, err.Error(), "ListingUsecase.Create")
	})
}

func TestListingUsecase_Delete(t *testing.T) {
	owned := &domain.Listing{ID: "l1", Owner: domain.Owner{ID: "u1"}}

	t.Run("owner deletes", func(t *testing.T) {
		uc, d := newListingUsecase()
		d.store.On("FindByID", mock.Anything, "l1").Return(owned, nil).Once()
		d.store.On("Delete", mock.Anything, "l1").Return(nil).Once()
		d.cache.On("Delete", mock.Anything, "l1").Return(nil).Once()
		d.publisher.On("PublishListingDeleted", mock.Anything, "l1", "u1").Return(nil).Once()

		require.NoError(t, uc.Delete(context.Background(), "l1", "u1"))
		d.store.AssertExpectations(t)
		d.cache.AssertExpectations(t)
		d.publisher.AssertExpectations(t)
	})

	t.Run("other user is forbidden", func(t *testing.T) {
		uc, d := newListingUsecase()
		d.store.On("FindByID", mock.Anything, "l1").Return(owned, nil).Once()

		err := uc.Delete(context.Background(), "l1", "intruder")

		assert.ErrorIs(t, err, domain.ErrForbidden)
		d.store.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("missing listing", func(t *testing.T) {
		uc, d := newListingUsecase()
		d.store.On("FindByID", mock.Anything, "nope").Return(nil, domain.ErrListingNotFound).Once()

		err := uc.Delete(context.Background(), "nope", "u1")

		assert.ErrorIs(t, err, domain.ErrListingNotFound)
	})
}

func TestListingUsecase_Get(t *testing.T) {
	listing := &domain.Listing{ID: "l1", Title: "Phone"}

	t.Run("cache hit skips store", func(t *testing.T) {
		uc, d := newListingUsecase()
		d.cache.On("Get", mock.Anything, "l1").Return(listing, nil).Once()

		got, err := uc.Get(context.Background(), "l1")

		require.NoError(t, err)
		assert.Equal(t, listing, got)
		d.store.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})

	t.Run("cache miss reads store and fills cache", func(t *testing.T) {
		uc, d := newListingUsecase()
		d.cache.On("Get", mock.Anything, "l1").Return(nil, nil).Once()
		d.store.On("FindByID", mock.Anything, "l1").Return(listing, nil).Once()
		d.cache.On("Set", mock.Anything, listing).Return(nil).Once()

		got, err := uc.Get(context.Background(), "l1")

		require.NoError(t, err)
		assert.Equal(t, "Phone", got.Title)
		d.cache.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		uc, d := newListingUsecase()
		d.cache.On("Get", mock.Anything, "x").Return(nil, nil).Once()
		d.store.On("FindByID", mock.Anything, "x").Return(nil, domain.ErrListingNotFound).Once()

		_, err := uc.Get(context.Background(), "x")

		assert.ErrorIs(t, err, domain.ErrListingNotFound)
	})
}

func TestListingUsecase_Latest(t *testing.T) {
	uc, d := newListingUsecase()
	d.store.On("FindLatest", mock.Anything, domain.CategoryLand, DefaultLatestLimit).Return([]*domain.Listing{{ID: "a"}}, nil).Once()

	got, err := uc.Latest(context.Background(), domain.CategoryLand, 0)

	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = uc.Latest(context.Background(), "boat", 5)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
