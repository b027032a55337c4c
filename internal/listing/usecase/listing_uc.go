package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/kolapodev-a11y/PropertyHub/internal/listing/domain"
	"github.com/kolapodev-a11y/PropertyHub/internal/platform/apperr"
	"github.com/kolapodev-a11y/PropertyHub/internal/platform/metrics"
)

var tracer = otel.Tracer("github.com/kolapodev-a11y/PropertyHub/internal/listing/usecase")

// ListingUsecase backs the /api/listings surface: it owns validation, ownership checks,
// and the cache, event and email side effects of writes.
type ListingUsecase struct {
	store     domain.ListingStore
	cache     domain.ListingCache
	publisher domain.EventPublisher
	notifier  domain.ListingNotifier
	metrics   *metrics.MetricsManager
	logger    *zap.Logger
}

// NewListingUsecase wires the use case. cache, publisher, notifier and m may be nil.
func NewListingUsecase(
	store domain.ListingStore,
	cache domain.ListingCache,
	publisher domain.EventPublisher,
	notifier domain.ListingNotifier,
	m *metrics.MetricsManager,
	logger *zap.Logger,
) *ListingUsecase {
	return &ListingUsecase{
		store:     store,
		cache:     cache,
		publisher: publisher,
		notifier:  notifier,
		metrics:   m,
		logger:    logger.Named("ListingUsecase"),
	}
}

// Author is the verified caller of a write.
type Author struct {
	domain.Owner
	Email string
}

func (uc *ListingUsecase) Create(ctx context.Context, author Author, draft domain.Draft) (*domain.Listing, error) {
	ctx, span := tracer.Start(ctx, "ListingUsecase.Create", trace.WithAttributes(attribute.String("owner_id", author.ID)))
	defer span.End()

	if author.ID == "" {
		return nil, apperr.Unauthorized("Sign in to post a listing.", nil)
	}
	if err := validateDraft(draft); err != nil {
		uc.logger.Info("rejected listing payload", zap.String("owner_id", author.ID), zap.Error(err))
		return nil, err
	}

	listing := draft.ToListing(author.Owner)
	id, err := uc.store.Insert(ctx, listing)
	if err != nil {
		uc.logger.Error("failed to insert listing", zap.String("owner_id", author.ID), zap.Error(err))
		return nil, fmt.Errorf("ListingUsecase.Create: insert: %w", err)
	}
	listing.ID = id
	uc.logger.Info("listing created", zap.String("listing_id", id), zap.String("owner_id", author.ID))
	if uc.metrics != nil {
		uc.metrics.ListingsCreated.Inc()
	}

	if uc.cache != nil {
		if err := uc.cache.Set(ctx, listing); err != nil {
			uc.logger.Warn("failed to cache new listing", zap.String("listing_id", id), zap.Error(err))
		}
	}
	if uc.publisher != nil {
		if err := uc.publisher.PublishListingCreated(ctx, listing); err != nil {
			uc.logger.Warn("failed to publish listing.created", zap.String("listing_id", id), zap.Error(err))
		}
	}
	if uc.notifier != nil && author.Email != "" {
		if err := uc.notifier.SendListingPosted(ctx, author.Email, listing); err != nil {
			uc.logger.Warn("failed to send listing confirmation", zap.String("listing_id", id), zap.Error(err))
		}
	}
	return listing, nil
}

// Delete removes the listing when userID owns it.
func (uc *ListingUsecase) Delete(ctx context.Context, id, userID string) error {
	ctx, span := tracer.Start(ctx, "ListingUsecase.Delete",
		trace.WithAttributes(attribute.String("listing_id", id), attribute.String("user_id", userID)))
	defer span.End()

	listing, err := uc.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrListingNotFound) {
			return domain.ErrListingNotFound
		}
		return fmt.Errorf("ListingUsecase.Delete: find: %w", err)
	}
	if listing.Owner.ID != userID {
		uc.logger.Warn("forbidden delete attempt",
			zap.String("listing_id", id),
			zap.String("owner_id", listing.Owner.ID),
			zap.String("user_id", userID))
		return domain.ErrForbidden
	}

	if err := uc.store.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrListingNotFound) {
			return domain.ErrListingNotFound
		}
		return fmt.Errorf("ListingUsecase.Delete: delete: %w", err)
	}
	uc.logger.Info("listing deleted", zap.String("listing_id", id), zap.String("user_id", userID))
	if uc.metrics != nil {
		uc.metrics.ListingsDeleted.Inc()
	}

	if uc.cache != nil {
		if err := uc.cache.Delete(ctx, id); err != nil {
			uc.logger.Warn("failed to evict deleted listing", zap.String("listing_id", id), zap.Error(err))
		}
	}
	if uc.publisher != nil {
		if err := uc.publisher.PublishListingDeleted(ctx, id, userID); err != nil {
			uc.logger.Warn("failed to publish listing.deleted", zap.String("listing_id", id), zap.Error(err))
		}
	}
	return nil
}

// Get reads through the cache.
func (uc *ListingUsecase) Get(ctx context.Context, id string) (*domain.Listing, error) {
	ctx, span := tracer.Start(ctx, "ListingUsecase.Get")
	defer span.End()

	if uc.cache != nil {
		cached, err := uc.cache.Get(ctx, id)
		if err != nil {
			uc.logger.Warn("cache read failed", zap.String("listing_id", id), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	listing, err := uc.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrListingNotFound) {
			return nil, domain.ErrListingNotFound
		}
		return nil, fmt.Errorf("ListingUsecase.Get: %w", err)
	}
	if uc.cache != nil {
		if err := uc.cache.Set(ctx, listing); err != nil {
			uc.logger.Warn("failed to cache listing", zap.String("listing_id", id), zap.Error(err))
		}
	}
	return listing, nil
}

func (uc *ListingUsecase) Latest(ctx context.Context, category domain.Category, limit int) ([]*domain.Listing, error) {
	ctx, span := tracer.Start(ctx, "ListingUsecase.Latest")
	defer span.End()

	if category != "" && !category.Valid() {
		return nil, apperr.Validation(fmt.Sprintf("unknown category %q", category))
	}
	if limit <= 0 {
		limit = DefaultLatestLimit
	}
	listings, err := uc.store.FindLatest(ctx, category, limit)
	if err != nil {
		return nil, fmt.Errorf("ListingUsecase.Latest: %w", err)
	}
	return listings, nil
}

func validateDraft(d domain.Draft) error {
	if missing := d.MissingFields(); len(missing) > 0 {
		return apperr.Validation("missing required fields: " + strings.Join(missing, ", "))
	}
	if !d.Category.Valid() {
		return apperr.Validation(fmt.Sprintf("unknown category %q", d.Category))
	}
	if (d.Lat == nil) != (d.Lng == nil) {
		return apperr.Validation("lat and lng must be provided together")
	}
	if d.Lat != nil && (*d.Lat < -90 || *d.Lat > 90 || *d.Lng < -180 || *d.Lng > 180) {
		return apperr.Validation("coordinates out of range")
	}
	if len(d.Images) > MaxImages {
		return apperr.Validation(fmt.Sprintf("at most %d images are allowed", MaxImages))
	}
	for _, u := range d.Images {
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			return apperr.Validation("images must be absolute URLs")
		}
	}
	return nil
}
