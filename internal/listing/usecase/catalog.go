package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/kolapodev-a11y/PropertyHub/internal/listing/domain"
	"github.com/kolapodev-a11y/PropertyHub/internal/platform/apperr"
	"github.com/kolapodev-a11y/PropertyHub/internal/platform/metrics"
)

const (
	DefaultLatestLimit = 8
	MaxImages          = 10
)

// ListingAPI is the bearer-authorised write surface of the backend.
type ListingAPI interface {
	CreateListing(ctx context.Context, draft domain.Draft, token string) (string, error)
	DeleteListing(ctx context.Context, id, token string) error
}

type CatalogConfig struct {
	CallTimeout     time.Duration
	ReadRetries     uint64
	InitialInterval time.Duration
}

func DefaultCatalogConfig() CatalogConfig {
	return CatalogConfig{CallTimeout: 10 * time.Second, ReadRetries: 3, InitialInterval: 200 * time.Millisecond}
}

// Catalog is the page-side listing repository: writes go through the backend API with
// the caller's bearer token, reads go straight to the document store.
// Reads are retried with backoff; writes are attempted once.
type Catalog struct {
	api     ListingAPI
	reader  domain.ListingReader
	cfg     CatalogConfig
	metrics *metrics.MetricsManager
	logger  *zap.Logger
}

func NewCatalog(api ListingAPI, reader domain.ListingReader, cfg CatalogConfig, m *metrics.MetricsManager, logger *zap.Logger) *Catalog {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCatalogConfig().CallTimeout
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = DefaultCatalogConfig().InitialInterval
	}
	return &Catalog{api: api, reader: reader, cfg: cfg, metrics: m, logger: logger.Named("Catalog")}
}

func (c *Catalog) Create(ctx context.Context, draft domain.Draft, token string) (string, error) {
	if token == "" {
		return "", apperr.Unauthorized("You must be signed in to post a listing.", nil)
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()
	return c.api.CreateListing(ctx, draft, token)
}

func (c *Catalog) Delete(ctx context.Context, id, token string) error {
	if token == "" {
		return apperr.Unauthorized("You must be signed in to delete a listing.", nil)
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()
	return c.api.DeleteListing(ctx, id, token)
}

// FetchByID returns (nil, nil) when no listing has that id.
func (c *Catalog) FetchByID(ctx context.Context, id string) (*domain.Listing, error) {
	if id == "" {
		return nil, nil
	}
	var listing *domain.Listing
	err := c.retryRead(ctx, "FetchByID", func(ctx context.Context) error {
		l, err := c.reader.FindByID(ctx, id)
		if err != nil {
			return err
		}
		listing = l
		return nil
	})
	if errors.Is(err, domain.ErrListingNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Transport("Could not load this listing.", err)
	}
	return listing, nil
}

func (c *Catalog) FetchLatest(ctx context.Context, limit int) ([]*domain.Listing, error) {
	if limit <= 0 {
		limit = DefaultLatestLimit
	}
	var listings []*domain.Listing
	err := c.retryRead(ctx, "FetchLatest", func(ctx context.Context) error {
		ls, err := c.reader.FindLatest(ctx, "", limit)
		if err != nil {
			return err
		}
		listings = ls
		return nil
	})
	if err != nil {
		return nil, apperr.Transport("Could not load listings.", err)
	}
	return listings, nil
}

// SubscribeLive starts a live feed. Every call opens a new feed; the caller
// must Close the returned subscription before replacing it.
func (c *Catalog) SubscribeLive(ctx context.Context, category domain.Category, onChange domain.SnapshotFunc) (domain.Subscription, error) {
	sub, err := c.reader.Watch(ctx, category, onChange)
	if err != nil {
		return nil, apperr.Transport("Could not open the live feed.", err)
	}
	if c.metrics == nil {
		return sub, nil
	}
	c.metrics.LiveFeeds.Inc()
	return domain.NewSubscription(func() {
		sub.Close()
		c.metrics.LiveFeeds.Dec()
	}), nil
}

func (c *Catalog) retryRead(ctx context.Context, op string, read func(ctx context.Context) error) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.cfg.InitialInterval
	b := backoff.WithContext(backoff.WithMaxRetries(eb, c.cfg.ReadRetries), ctx)

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		callCtx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
		defer cancel()

		err := read(callCtx)
		if err == nil {
			return nil
		}
		if errors.Is(err, domain.ErrListingNotFound) {
			return backoff.Permanent(err)
		}
		c.logger.Warn("read failed", zap.String("op", op), zap.Int("attempt", attempt), zap.Error(err))
		return err
	}, b)
}
