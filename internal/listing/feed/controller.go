// Package feed drives one page's live listing feed: it owns the subscription,
// filters each snapshot by the page query and pushes display models to a container.
package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/kolapodev-a11y/PropertyHub/internal/listing/domain"
	"github.com/kolapodev-a11y/PropertyHub/internal/listing/render"
)

type State int

const (
	StateIdle State = iota
	StateLoading
	StateEmpty
	StatePopulated
	StateUnmounted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateEmpty:
		return "empty"
	case StatePopulated:
		return "populated"
	case StateUnmounted:
		return "unmounted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var ErrUnmounted = errors.New("feed controller is unmounted")

type EmptyState struct {
	Title string
	Hint  string
}

// Container is where the feed is drawn. Calls are serialised by the controller.
type Container interface {
	ShowLoading()
	ShowEmpty(EmptyState)
	ShowCards([]render.CardView)
}

type LiveSource interface {
	SubscribeLive(ctx context.Context, category domain.Category, onChange domain.SnapshotFunc) (domain.Subscription, error)
}

// Page describes what one feed shows.
type Page struct {
	Category domain.Category // empty for all categories
	Query    string
	Limit    int // 0 shows every match
	Empty    EmptyState
}

const HomeLimit = 8

func HomePage() Page {
	return Page{
		Limit: HomeLimit,
		Empty: EmptyState{Title: "No listings yet", Hint: "Be the first to post a property or phone!"},
	}
}

func CategoryPage(category domain.Category, query string) Page {
	return Page{
		Category: category,
		Query:    query,
		Empty:    EmptyState{Title: "No listings in this category yet.", Hint: "Check back soon or post the first listing!"},
	}
}

// emptyState echoes the query when one is active.
func (p Page) emptyState() EmptyState {
	if p.Query != "" {
		return EmptyState{Title: `No results for "` + p.Query + `"`, Hint: "Try a different search term."}
	}
	return p.Empty
}

type Controller struct {
	source LiveSource
	view   Container
	logger *zap.Logger

	mu    sync.Mutex
	state State
	page  Page
	sub   domain.Subscription
	gen   uint64
}

func NewController(source LiveSource, view Container, logger *zap.Logger) *Controller {
	return &Controller{source: source, view: view, logger: logger.Named("FeedController")}
}

// Mount starts the live feed for page. A previous feed on this controller is
// closed first, so at most one subscription is ever open.
func (c *Controller) Mount(ctx context.Context, page Page) error {
	c.mu.Lock()
	if c.state == StateUnmounted {
		c.mu.Unlock()
		return ErrUnmounted
	}
	c.detachLocked()
	c.gen++
	gen := c.gen
	c.page = page
	c.state = StateLoading
	c.view.ShowLoading()
	c.mu.Unlock()

	sub, err := c.source.SubscribeLive(ctx, page.Category, func(listings []*domain.Listing) {
		c.apply(gen, listings)
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		if gen == c.gen && c.state != StateUnmounted {
			c.state = StateIdle
		}
		c.logger.Error("subscribe failed", zap.String("category", string(page.Category)), zap.Error(err))
		return err
	}
	if gen != c.gen || c.state == StateUnmounted {
		// Remounted or unmounted while subscribing.
		sub.Close()
		return nil
	}
	c.sub = sub
	return nil
}

// Unmount closes the feed. The controller cannot be mounted again.
func (c *Controller) Unmount() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.detachLocked()
	c.gen++
	c.state = StateUnmounted
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) detachLocked() {
	if c.sub != nil {
		c.sub.Close()
		c.sub = nil
	}
}

func (c *Controller) apply(gen uint64, listings []*domain.Listing) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || c.state == StateUnmounted {
		return
	}

	matches := Filter(listings, c.page.Query)
	if c.page.Limit > 0 && len(matches) > c.page.Limit {
		matches = matches[:c.page.Limit]
	}
	if len(matches) == 0 {
		c.state = StateEmpty
		c.view.ShowEmpty(c.page.emptyState())
		return
	}
	c.state = StatePopulated
	c.view.ShowCards(render.Cards(matches))
}

// Filter keeps listings whose title, description or location name contains query,
// ignoring case. The query is matched as given, whitespace included; only an
// empty query keeps everything. Order is preserved.
func Filter(listings []*domain.Listing, query string) []*domain.Listing {
	if query == "" {
		return listings
	}
	q := strings.ToLower(query)
	out := make([]*domain.Listing, 0, len(listings))
	for _, l := range listings {
		if strings.Contains(strings.ToLower(l.Title), q) ||
			strings.Contains(strings.ToLower(l.Description), q) ||
			strings.Contains(strings.ToLower(l.Location.Name), q) {
			out = append(out, l)
		}
	}
	return out
}
