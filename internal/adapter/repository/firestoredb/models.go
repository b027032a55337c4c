package firestoredb

import (
	"time"

	"github.com/kolapodev-a11y/PropertyHub/internal/listing/domain"
)

// listingDocument mirrors the field names the web client has always written.
type listingDocument struct {
	Title        string    `firestore:"title"`
	Category     string    `firestore:"category"`
	Price        string    `firestore:"price"`
	Description  string    `firestore:"description"`
	Contact      string    `firestore:"contact"`
	Images       []string  `firestore:"images"`
	LocationName string    `firestore:"locationName"`
	Lat          *float64  `firestore:"lat"`
	Lng          *float64  `firestore:"lng"`
	OwnerID      string    `firestore:"ownerId"`
	OwnerName    string    `firestore:"ownerName"`
	OwnerPhoto   string    `firestore:"ownerPhoto"`
	CreatedAt    time.Time `firestore:"createdAt"`
}

func toListingDocument(l *domain.Listing) *listingDocument {
	doc := &listingDocument{
		Title:        l.Title,
		Category:     string(l.Category),
		Price:        l.Price,
		Description:  l.Description,
		Contact:      l.Contact,
		Images:       l.Images,
		LocationName: l.Location.Name,
		OwnerID:      l.Owner.ID,
		OwnerName:    l.Owner.Name,
		OwnerPhoto:   l.Owner.PhotoURL,
		CreatedAt:    l.CreatedAt,
	}
	if doc.Images == nil {
		doc.Images = []string{}
	}
	if c := l.Location.Coords; c != nil {
		lat, lng := c.Lat, c.Lng
		doc.Lat, doc.Lng = &lat, &lng
	}
	return doc
}

func toListingEntity(id string, d *listingDocument) *domain.Listing {
	l := &domain.Listing{
		ID:          id,
		Title:       d.Title,
		Category:    domain.Category(d.Category),
		Price:       d.Price,
		Description: d.Description,
		Contact:     d.Contact,
		Images:      d.Images,
		Location:    domain.Location{Name: d.LocationName},
		Owner:       domain.Owner{ID: d.OwnerID, Name: d.OwnerName, PhotoURL: d.OwnerPhoto},
		CreatedAt:   d.CreatedAt.UTC(),
	}
	if l.Images == nil {
		l.Images = []string{}
	}
	if d.Lat != nil && d.Lng != nil {
		l.Location.Coords = &domain.Coordinates{Lat: *d.Lat, Lng: *d.Lng}
	}
	return l
}
