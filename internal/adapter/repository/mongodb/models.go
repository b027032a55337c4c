package mongodb

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kolapodev-a11y/PropertyHub/internal/listing/domain"
)

type listingDocument struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Title        string             `bson:"title"`
	Category     string             `bson:"category"`
	Price        string             `bson:"price"`
	Description  string             `bson:"description,omitempty"`
	Contact      string             `bson:"contact,omitempty"`
	Images       []string           `bson:"images"`
	LocationName string             `bson:"location_name,omitempty"`
	Lat          *float64           `bson:"lat,omitempty"`
	Lng          *float64           `bson:"lng,omitempty"`
	OwnerID      string             `bson:"owner_id"`
	OwnerName    string             `bson:"owner_name,omitempty"`
	OwnerPhoto   string             `bson:"owner_photo,omitempty"`
	CreatedAt    time.Time          `bson:"created_at"`
}

// toListingDocument leaves ID unset so Mongo assigns it on insert.
func toListingDocument(l *domain.Listing) *listingDocument {
	images := l.Images
	if images == nil {
		images = []string{}
	}
	doc := &listingDocument{
		Title:        l.Title,
		Category:     string(l.Category),
		Price:        l.Price,
		Description:  l.Description,
		Contact:      l.Contact,
		Images:       images,
		LocationName: l.Location.Name,
		OwnerID:      l.Owner.ID,
		OwnerName:    l.Owner.Name,
		OwnerPhoto:   l.Owner.PhotoURL,
		CreatedAt:    l.CreatedAt,
	}
	if c := l.Location.Coords; c != nil {
		lat, lng := c.Lat, c.Lng
		doc.Lat, doc.Lng = &lat, &lng
	}
	return doc
}

func toListingEntity(d *listingDocument) *domain.Listing {
	l := &domain.Listing{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Category:    domain.Category(d.Category),
		Price:       d.Price,
		Description: d.Description,
		Contact:     d.Contact,
		Images:      d.Images,
		Location:    domain.Location{Name: d.LocationName},
		Owner:       domain.Owner{ID: d.OwnerID, Name: d.OwnerName, PhotoURL: d.OwnerPhoto},
		CreatedAt:   d.CreatedAt,
	}
	if l.Images == nil {
		l.Images = []string{}
	}
	if d.Lat != nil && d.Lng != nil {
		l.Location.Coords = &domain.Coordinates{Lat: *d.Lat, Lng: *d.Lng}
	}
	return l
}
