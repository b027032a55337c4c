package maps

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	googlemaps "googlemaps.github.io/maps"

	"github.com/kolapodev-a11y/PropertyHub/internal/listing/domain"
	"github.com/kolapodev-a11y/PropertyHub/internal/platform/apperr"
)

func TestRenderDetailMap(t *testing.T) {
	t.Run("absent coordinates hide the map", func(t *testing.T) {
		m := RenderDetailMap(nil, "Lekki")
		assert.False(t, m.Visible)
		assert.Equal(t, "Location not available for this listing.", m.Fallback)
	})

	t.Run("coordinates give a marker with open popup", func(t *testing.T) {
		c := &domain.Coordinates{Lat: 6.45, Lng: 3.39}
		m := RenderDetailMap(c, "Lekki Phase 1")

		assert.True(t, m.Visible)
		assert.Equal(t, 15, m.Zoom)
		assert.Equal(t, *c, m.Center)
		assert.Equal(t, "Lekki Phase 1", m.Marker.Title)
		assert.True(t, m.Info.Open)
		assert.Equal(t, "Listed on PropertyHub", m.Info.Subtitle)
	})

	t.Run("label fallbacks", func(t *testing.T) {
		m := RenderDetailMap(&domain.Coordinates{}, "")
		assert.Equal(t, "Property Location", m.Marker.Title)
		assert.Equal(t, "Property", m.Info.Heading)
	})
}

func TestRenderStreetView(t *testing.T) {
	assert.Nil(t, RenderStreetView(nil))

	sv := RenderStreetView(&domain.Coordinates{Lat: 1, Lng: 2})
	require.NotNil(t, sv)
	assert.Equal(t, float64(34), sv.Heading)
	assert.Equal(t, float64(10), sv.Pitch)
	assert.Equal(t, 1, sv.Zoom)
}

func TestStaticThumbnailURL(t *testing.T) {
	got := StaticThumbnailURL(domain.Coordinates{Lat: 40.7128, Lng: -74.006}, 0, "", "KEY")
	assert.Equal(t,
		"https://maps.googleapis.com/maps/api/staticmap?center=40.7128,-74.006&zoom=13&size=400x200&markers=color:blue%7C40.7128,-74.006&key=KEY",
		got)

	got = StaticThumbnailURL(domain.Coordinates{Lat: 1.5, Lng: 2}, 9, "200x100", "")
	assert.Contains(t, got, "zoom=9&size=200x100")
}

func TestUploadMapFocus(t *testing.T) {
	m := NewUploadMap()
	assert.Equal(t, UploadDefaultCenter, m.Center)
	assert.Equal(t, 10, m.Zoom)

	m.Focus(Place{Name: "Nowhere"})
	assert.Nil(t, m.Marker)

	m.Focus(Place{Name: "Accra", Coords: &domain.Coordinates{Lat: 5.6, Lng: -0.19}})
	assert.Equal(t, 15, m.Zoom)
	require.NotNil(t, m.Marker)
	assert.Equal(t, "Accra", m.Info.Heading)
}

type fakeGeocoder struct {
	results []googlemaps.GeocodingResult
	err     error
}

func (f fakeGeocoder) Geocode(context.Context, *googlemaps.GeocodingRequest) ([]googlemaps.GeocodingResult, error) {
	return f.results, f.err
}

func TestGooglePlacesResolve(t *testing.T) {
	t.Run("formatted address and coordinates", func(t *testing.T) {
		g := &GooglePlaces{client: fakeGeocoder{results: []googlemaps.GeocodingResult{{
			FormattedAddress: "Ikeja, Lagos, Nigeria",
			Geometry:         googlemaps.AddressGeometry{Location: googlemaps.LatLng{Lat: 6.6, Lng: 3.35}},
		}}}}

		p, err := g.Resolve(context.Background(), "ikeja")

		require.NoError(t, err)
		assert.Equal(t, "Ikeja, Lagos, Nigeria", p.Name)
		assert.Equal(t, &domain.Coordinates{Lat: 6.6, Lng: 3.35}, p.Coords)
	})

	t.Run("no match keeps raw input", func(t *testing.T) {
		g := &GooglePlaces{client: fakeGeocoder{}}

		p, err := g.Resolve(context.Background(), "zzzz")

		assert.ErrorIs(t, err, ErrNoGeometry)
		assert.Equal(t, "zzzz", p.Name)
		assert.Nil(t, p.Coords)
	})

	t.Run("provider failure", func(t *testing.T) {
		g := &GooglePlaces{client: fakeGeocoder{err: errors.New("OVER_QUERY_LIMIT")}}

		_, err := g.Resolve(context.Background(), "x")

		assert.ErrorIs(t, err, apperr.ErrTransport)
	})
}
