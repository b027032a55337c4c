package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/kolapodev-a11y/PropertyHub/internal/listing/domain"
)

// ListingRepository stores listings. A snapshotLimit of zero or less leaves
// live snapshots unbounded.
type ListingRepository struct {
	collection    *mongo.Collection
	snapshotLimit int
	logger        *zap.Logger
}

func NewListingRepository(db *mongo.Database, collection string, snapshotLimit int, logger *zap.Logger) *ListingRepository {
	return &ListingRepository{
		collection:    db.Collection(collection),
		snapshotLimit: snapshotLimit,
		logger:        logger.Named("MongoListingRepository"),
	}
}

// EnsureIndexes creates the indexes the feed queries rely on.
func (r *ListingRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("ListingRepository.EnsureIndexes: %w", err)
	}
	return nil
}

func (r *ListingRepository) Insert(ctx context.Context, l *domain.Listing) (string, error) {
	l.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	doc := toListingDocument(l)

	res, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("ListingRepository.Insert: %w", err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("ListingRepository.Insert: unexpected id type %T", res.InsertedID)
	}
	l.ID = oid.Hex()
	return l.ID, nil
}

func (r *ListingRepository) FindByID(ctx context.Context, id string) (*domain.Listing, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrListingNotFound
	}
	var doc listingDocument
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrListingNotFound
		}
		return nil, fmt.Errorf("ListingRepository.FindByID: %w", err)
	}
	return toListingEntity(&doc), nil
}

func (r *ListingRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrListingNotFound
	}
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("ListingRepository.Delete: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrListingNotFound
	}
	return nil
}

func (r *ListingRepository) FindLatest(ctx context.Context, category domain.Category, limit int) ([]*domain.Listing, error) {
	filter := bson.M{}
	if category != "" {
		filter["category"] = string(category)
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("ListingRepository.FindLatest: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []listingDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("ListingRepository.FindLatest: decode: %w", err)
	}
	listings := make([]*domain.Listing, 0, len(docs))
	for i := range docs {
		listings = append(listings, toListingEntity(&docs[i]))
	}
	return listings, nil
}

// Watch opens a change stream and re-reads the matching listings on
// every relevant change. Change streams need a replica set or sharded cluster.
func (r *ListingRepository) Watch(ctx context.Context, category domain.Category, onChange domain.SnapshotFunc) (domain.Subscription, error) {
	watchCtx, cancel := context.WithCancel(ctx)

	stream, err := r.collection.Watch(watchCtx, changePipeline(category), options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("ListingRepository.Watch: open change stream: %w", err)
	}
	initial, err := r.FindLatest(watchCtx, category, r.snapshotLimit)
	if err != nil {
		_ = stream.Close(context.Background())
		cancel()
		return nil, err
	}

	go func() {
		defer stream.Close(context.Background())
		onChange(initial)
		for stream.Next(watchCtx) {
			snapshot, err := r.FindLatest(watchCtx, category, r.snapshotLimit)
			if err != nil {
				if watchCtx.Err() != nil {
					return
				}
				r.logger.Warn("snapshot re-read failed", zap.String("category", string(category)), zap.Error(err))
				continue
			}
			onChange(snapshot)
		}
		if err := stream.Err(); err != nil && watchCtx.Err() == nil {
			r.logger.Error("change stream stopped", zap.String("category", string(category)), zap.Error(err))
		}
	}()

	// Close only cancels; a snapshot already being delivered may still arrive.
	return domain.NewSubscription(cancel), nil
}

// changePipeline keeps changes to one category plus every delete, since a
// delete event carries no document to filter on.
func changePipeline(category domain.Category) mongo.Pipeline {
	if category == "" {
		return mongo.Pipeline{}
	}
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: "fullDocument.category", Value: string(category)}},
			bson.D{{Key: "operationType", Value: "delete"}},
		}}}}},
	}
}
