// Package memory keeps listings in process. It backs local development and
// tests; everything is lost on restart.
package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/kolapodev-a11y/PropertyHub/internal/listing/domain"
)

type ListingRepository struct {
	mu       sync.RWMutex
	listings map[string]*domain.Listing
	seq      uint64
	watchers map[uint64]*watcher
	nextW    uint64
	now      func() time.Time
}

type watcher struct {
	category domain.Category
	wake     chan struct{}
}

func NewListingRepository() *ListingRepository {
	return &ListingRepository{
		listings: make(map[string]*domain.Listing),
		watchers: make(map[uint64]*watcher),
		now:      time.Now,
	}
}

func (r *ListingRepository) Insert(_ context.Context, l *domain.Listing) (string, error) {
	r.mu.Lock()
	r.seq++
	l.ID = "l" + strconv.FormatUint(r.seq, 10)
	l.CreatedAt = r.now().UTC()
	r.listings[l.ID] = clone(l)
	r.mu.Unlock()

	r.notify(l.Category)
	return l.ID, nil
}

func (r *ListingRepository) FindByID(_ context.Context, id string) (*domain.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.listings[id]
	if !ok {
		return nil, domain.ErrListingNotFound
	}
	return clone(l), nil
}

func (r *ListingRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	l, ok := r.listings[id]
	if ok {
		delete(r.listings, id)
	}
	r.mu.Unlock()

	if !ok {
		return domain.ErrListingNotFound
	}
	r.notify(l.Category)
	return nil
}

func (r *ListingRepository) FindLatest(_ context.Context, category domain.Category, limit int) ([]*domain.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latestLocked(category, limit), nil
}

// Watch runs onChange on its own goroutine, once for the current contents and
// again after each write touching category. Bursts of writes may be coalesced.
func (r *ListingRepository) Watch(ctx context.Context, category domain.Category, onChange domain.SnapshotFunc) (domain.Subscription, error) {
	w := &watcher{category: category, wake: make(chan struct{}, 1)}
	w.wake <- struct{}{}

	r.mu.Lock()
	r.nextW++
	key := r.nextW
	r.watchers[key] = w
	r.mu.Unlock()

	watchCtx, cancel := context.WithCancel(ctx)
	go func() {
		defer func() {
			r.mu.Lock()
			delete(r.watchers, key)
			r.mu.Unlock()
		}()
		for {
			select {
			case <-watchCtx.Done():
				return
			case <-w.wake:
				snapshot, _ := r.FindLatest(watchCtx, category, 0)
				if watchCtx.Err() != nil {
					return
				}
				onChange(snapshot)
			}
		}
	}()
	return domain.NewSubscription(cancel), nil
}

func (r *ListingRepository) notify(category domain.Category) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, w := range r.watchers {
		if w.category != "" && w.category != category {
			continue
		}
		select {
		case w.wake <- struct{}{}:
		default:
		}
	}
}

func (r *ListingRepository) latestLocked(category domain.Category, limit int) []*domain.Listing {
	out := make([]*domain.Listing, 0, len(r.listings))
	for _, l := range r.listings {
		if category == "" || l.Category == category {
			out = append(out, clone(l))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return seqOf(out[i].ID) > seqOf(out[j].ID)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func seqOf(id string) uint64 {
	n, _ := strconv.ParseUint(id[1:], 10, 64)
	return n
}

func clone(l *domain.Listing) *domain.Listing {
	c := *l
	c.Images = append([]string{}, l.Images...)
	if l.Location.Coords != nil {
		coords := *l.Location.Coords
		c.Location.Coords = &coords
	}
	return &c
}
