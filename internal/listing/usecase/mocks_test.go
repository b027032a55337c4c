package usecase

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/kolapodev-a11y/PropertyHub/internal/listing/domain"
)

type MockListingStore struct{ mock.Mock }

func (m *MockListingStore) FindByID(ctx context.Context, id string) (*domain.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Listing), args.Error(1)
}
func (m *MockListingStore) FindLatest(ctx context.Context, category domain.Category, limit int) ([]*domain.Listing, error) {
	args := m.Called(ctx, category, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Listing), args.Error(1)
}
func (m *MockListingStore) Watch(ctx context.Context, category domain.Category, onChange domain.SnapshotFunc) (domain.Subscription, error) {
	args := m.Called(ctx, category, onChange)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.Subscription), args.Error(1)
}
func (m *MockListingStore) Insert(ctx context.Context, l *domain.Listing) (string, error) {
	args := m.Called(ctx, l)
	return args.String(0), args.Error(1)
}
func (m *MockListingStore) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockListingCache struct{ mock.Mock }

func (m *MockListingCache) Get(ctx context.Context, id string) (*domain.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Listing), args.Error(1)
}
func (m *MockListingCache) Set(ctx context.Context, l *domain.Listing) error {
	args := m.Called(ctx, l)
	return args.Error(0)
}
func (m *MockListingCache) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockEventPublisher struct{ mock.Mock }

func (m *MockEventPublisher) PublishListingCreated(ctx context.Context, l *domain.Listing) error {
	args := m.Called(ctx, l)
	return args.Error(0)
}
func (m *MockEventPublisher) PublishListingDeleted(ctx context.Context, id, ownerID string) error {
	args := m.Called(ctx, id, ownerID)
	return args.Error(0)
}

type MockNotifier struct{ mock.Mock }

func (m *MockNotifier) SendListingPosted(ctx context.Context, to string, l *domain.Listing) error {
	args := m.Called(ctx, to, l)
	return args.Error(0)
}

type MockObjectStorage struct{ mock.Mock }

func (m *MockObjectStorage) Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error) {
	args := m.Called(ctx, key, contentType, body, size)
	return args.String(0), args.Error(1)
}

type MockListingAPI struct{ mock.Mock }

func (m *MockListingAPI) CreateListing(ctx context.Context, draft domain.Draft, token string) (string, error) {
	args := m.Called(ctx, draft, token)
	return args.String(0), args.Error(1)
}
func (m *MockListingAPI) DeleteListing(ctx context.Context, id, token string) error {
	args := m.Called(ctx, id, token)
	return args.Error(0)
}

type stubSubscription struct{ closed int }

func (s *stubSubscription) Close() { s.closed++ }
