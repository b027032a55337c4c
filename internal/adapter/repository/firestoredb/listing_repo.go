// Package firestoredb stores listings in a Cloud Firestore collection, the
// layout the hosted PropertyHub deployment uses.
package firestoredb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kolapodev-a11y/PropertyHub/internal/listing/domain"
)

// ListingRepository stores listings. A snapshotLimit of zero or less leaves
// live snapshots unbounded.
type ListingRepository struct {
	collection    *firestore.CollectionRef
	snapshotLimit int
	logger        *zap.Logger
}

func NewListingRepository(client *firestore.Client, collection string, snapshotLimit int, logger *zap.Logger) *ListingRepository {
	return &ListingRepository{
		collection:    client.Collection(collection),
		snapshotLimit: snapshotLimit,
		logger:        logger.Named("FirestoreListingRepository"),
	}
}

func (r *ListingRepository) Insert(ctx context.Context, l *domain.Listing) (string, error) {
	l.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
	ref, _, err := r.collection.Add(ctx, toListingDocument(l))
	if err != nil {
		return "", fmt.Errorf("ListingRepository.Insert: %w", err)
	}
	l.ID = ref.ID
	return l.ID, nil
}

func (r *ListingRepository) FindByID(ctx context.Context, id string) (*domain.Listing, error) {
	if id == "" {
		return nil, domain.ErrListingNotFound
	}
	snap, err := r.collection.Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, domain.ErrListingNotFound
		}
		return nil, fmt.Errorf("ListingRepository.FindByID: %w", err)
	}
	var doc listingDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("ListingRepository.FindByID: decode: %w", err)
	}
	return toListingEntity(snap.Ref.ID, &doc), nil
}

// Delete fails with ErrListingNotFound when the document does not exist, which
// Firestore would otherwise treat as a successful no-op.
func (r *ListingRepository) Delete(ctx context.Context, id string) error {
	if id == "" {
		return domain.ErrListingNotFound
	}
	_, err := r.collection.Doc(id).Delete(ctx, firestore.Exists)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return domain.ErrListingNotFound
		}
		return fmt.Errorf("ListingRepository.Delete: %w", err)
	}
	return nil
}

func (r *ListingRepository) FindLatest(ctx context.Context, category domain.Category, limit int) ([]*domain.Listing, error) {
	docs, err := r.query(category, limit).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("ListingRepository.FindLatest: %w", err)
	}
	return decodeAll(docs)
}

// Watch follows the query with a snapshot listener. Filtering by category
// together with ordering by createdAt needs a composite index.
func (r *ListingRepository) Watch(ctx context.Context, category domain.Category, onChange domain.SnapshotFunc) (domain.Subscription, error) {
	watchCtx, cancel := context.WithCancel(ctx)
	it := r.query(category, r.snapshotLimit).Snapshots(watchCtx)

	go func() {
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil {
				if errors.Is(err, iterator.Done) || watchCtx.Err() != nil || status.Code(err) == codes.Canceled {
					return
				}
				r.logger.Error("snapshot listener stopped", zap.String("category", string(category)), zap.Error(err))
				return
			}
			docs, err := snap.Documents.GetAll()
			if err != nil {
				r.logger.Warn("snapshot read failed", zap.String("category", string(category)), zap.Error(err))
				continue
			}
			listings, err := decodeAll(docs)
			if err != nil {
				r.logger.Warn("snapshot decode failed", zap.String("category", string(category)), zap.Error(err))
				continue
			}
			onChange(listings)
		}
	}()

	return domain.NewSubscription(func() {
		cancel()
		it.Stop()
	}), nil
}

func (r *ListingRepository) query(category domain.Category, limit int) firestore.Query {
	q := r.collection.Query
	if category != "" {
		q = q.Where("category", "==", string(category))
	}
	q = q.OrderBy("createdAt", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}
	return q
}

func decodeAll(docs []*firestore.DocumentSnapshot) ([]*domain.Listing, error) {
	listings := make([]*domain.Listing, 0, len(docs))
	for _, snap := range docs {
		var doc listingDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", snap.Ref.ID, err)
		}
		listings = append(listings, toListingEntity(snap.Ref.ID, &doc))
	}
	return listings, nil
}
