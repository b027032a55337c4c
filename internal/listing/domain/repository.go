package domain

import (
	"context"
	"io"
	"sync"
)

// Subscription detaches a live feed. Close is idempotent.
type Subscription interface {
	Close()
}

type subscription struct {
	once sync.Once
	stop func()
}

// NewSubscription wraps stop so that it runs at most once.
func NewSubscription(stop func()) Subscription {
	return &subscription{stop: stop}
}

func (s *subscription) Close() {
	s.once.Do(func() {
		if s.stop != nil {
			s.stop()
		}
	})
}

// SnapshotFunc receives the full ordered result set after every change.
type SnapshotFunc func([]*Listing)

// ListingReader is the read side of the document store. Results are newest first;
// an empty category means every category.
type ListingReader interface {
	FindByID(ctx context.Context, id string) (*Listing, error)
	FindLatest(ctx context.Context, category Category, limit int) ([]*Listing, error)
	// Watch delivers the current snapshot once and again after every change
	// until the subscription is closed or ctx is done.
	Watch(ctx context.Context, category Category, onChange SnapshotFunc) (Subscription, error)
}

type ListingWriter interface {
	// Insert stores l, assigning ID and CreatedAt on it, and returns the ID.
	Insert(ctx context.Context, l *Listing) (string, error)
	Delete(ctx context.Context, id string) error
}

type ListingStore interface {
	ListingReader
	ListingWriter
}

// ListingCache returns (nil, nil) on a miss.
type ListingCache interface {
	Get(ctx context.Context, id string) (*Listing, error)
	Set(ctx context.Context, l *Listing) error
	Delete(ctx context.Context, id string) error
}

type EventPublisher interface {
	PublishListingCreated(ctx context.Context, l *Listing) error
	PublishListingDeleted(ctx context.Context, id, ownerID string) error
}

// ObjectStorage stores one object under key and returns its public URL.
type ObjectStorage interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
}

type ListingNotifier interface {
	SendListingPosted(ctx context.Context, to string, l *Listing) error
}
