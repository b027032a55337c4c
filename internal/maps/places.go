package maps

import (
	"context"
	"errors"
	"strings"
	"time"

	googlemaps "googlemaps.github.io/maps"

	"github.com/kolapodev-a11y/PropertyHub/internal/listing/domain"
	"github.com/kolapodev-a11y/PropertyHub/internal/platform/apperr"
)

// ErrNoGeometry means the input matched nothing with coordinates.
var ErrNoGeometry = errors.New("no location details for that selection")

// Place is a resolved place choice. Coords is nil when nothing matched.
type Place struct {
	Name   string
	Coords *domain.Coordinates
}

type PlaceResolver interface {
	Resolve(ctx context.Context, input string) (Place, error)
}

type geocoder interface {
	Geocode(ctx context.Context, r *googlemaps.GeocodingRequest) ([]googlemaps.GeocodingResult, error)
}

// GooglePlaces resolves free text through the Google Geocoding API.
type GooglePlaces struct {
	client  geocoder
	timeout time.Duration
}

func NewGooglePlaces(apiKey string, timeout time.Duration) (*GooglePlaces, error) {
	c, err := googlemaps.NewClient(googlemaps.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &GooglePlaces{client: c, timeout: timeout}, nil
}

// Resolve returns the best match for input. With no match it returns a Place
// named after the input together with ErrNoGeometry.
func (g *GooglePlaces) Resolve(ctx context.Context, input string) (Place, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Place{}, ErrNoGeometry
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	results, err := g.client.Geocode(ctx, &googlemaps.GeocodingRequest{Address: input})
	if err != nil {
		return Place{Name: input}, apperr.Transport("Could not look up that place.", err)
	}
	if len(results) == 0 {
		return Place{Name: input}, ErrNoGeometry
	}
	best := results[0]
	name := best.FormattedAddress
	if name == "" {
		name = input
	}
	loc := best.Geometry.Location
	return Place{Name: name, Coords: &domain.Coordinates{Lat: loc.Lat, Lng: loc.Lng}}, nil
}
