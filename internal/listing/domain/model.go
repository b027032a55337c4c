package domain

import (
	"strings"
	"time"
)

type Category string

const (
	CategoryPhone Category = "phone"
	CategoryLand  Category = "land"
	CategoryRent  Category = "rent"
	CategoryHouse Category = "sell_house"
)

// Categories lists every tag in display order.
var Categories = []Category{CategoryPhone, CategoryLand, CategoryRent, CategoryHouse}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

type Coordinates struct {
	Lat float64
	Lng float64
}

type Location struct {
	Name   string
	Coords *Coordinates
}

// Owner is denormalised onto the listing when it is created.
type Owner struct {
	ID       string
	Name     string
	PhotoURL string
}

type Listing struct {
	ID          string
	Title       string
	Category    Category
	Price       string // numeric-as-text, kept verbatim
	Description string
	Contact     string
	Images      []string // Images[0] is the cover
	Location    Location
	Owner       Owner
	CreatedAt   time.Time
}

// Cover returns the first image URL, or "" when the listing has none.
func (l *Listing) Cover() string {
	if len(l.Images) == 0 {
		return ""
	}
	return l.Images[0]
}

// Draft is the payload a client submits to create a listing.
// The store assigns the ID and creation time; the owner comes from the bearer token.
type Draft struct {
	Title        string   `json:"title"`
	Category     Category `json:"category"`
	Price        string   `json:"price"`
	Description  string   `json:"description,omitempty"`
	Contact      string   `json:"contact,omitempty"`
	Images       []string `json:"images"`
	LocationName string   `json:"locationName,omitempty"`
	Lat          *float64 `json:"lat,omitempty"`
	Lng          *float64 `json:"lng,omitempty"`
}

// MissingFields names the required fields that are blank.
func (d Draft) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(d.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(string(d.Category)) == "" {
		missing = append(missing, "category")
	}
	if strings.TrimSpace(d.Price) == "" {
		missing = append(missing, "price")
	}
	return missing
}

// ToListing builds the record to store for owner. ID and CreatedAt stay zero.
func (d Draft) ToListing(owner Owner) *Listing {
	l := &Listing{
		Title:       strings.TrimSpace(d.Title),
		Category:    d.Category,
		Price:       strings.TrimSpace(d.Price),
		Description: strings.TrimSpace(d.Description),
		Contact:     strings.TrimSpace(d.Contact),
		Images:      append([]string{}, d.Images...),
		Location:    Location{Name: strings.TrimSpace(d.LocationName)},
		Owner:       owner,
	}
	if d.Lat != nil && d.Lng != nil {
		l.Location.Coords = &Coordinates{Lat: *d.Lat, Lng: *d.Lng}
	}
	return l
}

// MediaFile is one selected binary file awaiting upload.
type MediaFile struct {
	Name        string
	ContentType string
	Data        []byte
}
