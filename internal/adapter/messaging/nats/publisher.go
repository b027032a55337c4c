package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/kolapodev-a11y/PropertyHub/internal/listing/domain"
)

const (
	SubjectListingCreated = "listing.created"
	SubjectListingDeleted = "listing.deleted"
)

type ListingCreatedEvent struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	Price     string    `json:"price"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

type ListingDeletedEvent struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`
}

type Publisher struct {
	conn   *nats.Conn
	logger *zap.Logger
}

func NewPublisher(url string, timeout time.Duration, logger *zap.Logger) (*Publisher, error) {
	log := logger.Named("NATSPublisher")
	conn, err := nats.Connect(url,
		nats.Name("propertyhub"),
		nats.Timeout(timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats at %s: %w", url, err)
	}
	return &Publisher{conn: conn, logger: log}, nil
}

func (p *Publisher) PublishListingCreated(ctx context.Context, l *domain.Listing) error {
	return p.publish(ctx, SubjectListingCreated, ListingCreatedEvent{
		ID:        l.ID,
		Title:     l.Title,
		Category:  string(l.Category),
		Price:     l.Price,
		OwnerID:   l.Owner.ID,
		CreatedAt: l.CreatedAt,
	})
}

func (p *Publisher) PublishListingDeleted(ctx context.Context, id, ownerID string) error {
	return p.publish(ctx, SubjectListingDeleted, ListingDeletedEvent{ID: id, OwnerID: ownerID})
}

func (p *Publisher) publish(ctx context.Context, subject string, event any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("Publisher.publish %s: encode: %w", subject, err)
	}
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("Publisher.publish %s: %w", subject, err)
	}
	return nil
}

// Close flushes pending messages before disconnecting.
func (p *Publisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.logger.Warn("drain failed", zap.Error(err))
		p.conn.Close()
	}
}
