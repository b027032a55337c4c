// Package maps builds the view models for map widgets and resolves free-text places.
package maps

import (
	"net/url"
	"strconv"

	"github.com/kolapodev-a11y/PropertyHub/internal/listing/domain"
)

const (
	DetailZoom        = 15
	PlaceZoom         = 15
	UploadDefaultZoom = 10
	StaticZoom        = 13
	StaticSize        = "400x200"

	StreetHeading = 34
	StreetPitch   = 10
	StreetZoom    = 1

	staticMapEndpoint = "https://maps.googleapis.com/maps/api/staticmap"
	defaultMarkerName = "Property Location"
	defaultPopupName  = "Property"
	popupSubtitle     = "Listed on PropertyHub"
	noLocationMessage = "Location not available for this listing."
)

// UploadDefaultCenter is New York.
var UploadDefaultCenter = domain.Coordinates{Lat: 40.7128, Lng: -74.006}

type Marker struct {
	Position domain.Coordinates
	Title    string
}

type InfoPopup struct {
	Heading  string
	Subtitle string
	Open     bool
}

// DetailMap is the listing page map. When Visible is false only Fallback is shown.
type DetailMap struct {
	Visible  bool
	Fallback string
	Center   domain.Coordinates
	Zoom     int
	Marker   Marker
	Info     InfoPopup
}

func RenderDetailMap(coords *domain.Coordinates, label string) DetailMap {
	if coords == nil {
		return DetailMap{Fallback: noLocationMessage}
	}
	title, heading := label, label
	if title == "" {
		title = defaultMarkerName
		heading = defaultPopupName
	}
	return DetailMap{
		Visible: true,
		Center:  *coords,
		Zoom:    DetailZoom,
		Marker:  Marker{Position: *coords, Title: title},
		Info:    InfoPopup{Heading: heading, Subtitle: popupSubtitle, Open: true},
	}
}

type StreetView struct {
	Position domain.Coordinates
	Heading  float64
	Pitch    float64
	Zoom     int
}

// RenderStreetView returns nil when there is nothing to show.
func RenderStreetView(coords *domain.Coordinates) *StreetView {
	if coords == nil {
		return nil
	}
	return &StreetView{Position: *coords, Heading: StreetHeading, Pitch: StreetPitch, Zoom: StreetZoom}
}

// StaticThumbnailURL builds a static map image URL with a blue marker at coords.
// zoom <= 0 and an empty size fall back to the defaults.
func StaticThumbnailURL(coords domain.Coordinates, zoom int, size, apiKey string) string {
	if zoom <= 0 {
		zoom = StaticZoom
	}
	if size == "" {
		size = StaticSize
	}
	point := formatCoord(coords.Lat) + "," + formatCoord(coords.Lng)
	return staticMapEndpoint +
		"?center=" + point +
		"&zoom=" + strconv.Itoa(zoom) +
		"&size=" + url.QueryEscape(size) +
		"&markers=color:blue%7C" + point +
		"&key=" + url.QueryEscape(apiKey)
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// UploadMap is the upload form's map state. It starts on UploadDefaultCenter and
// moves to each picked place.
type UploadMap struct {
	Center domain.Coordinates
	Zoom   int
	Marker *Marker
	Info   *InfoPopup
}

func NewUploadMap() UploadMap {
	return UploadMap{Center: UploadDefaultCenter, Zoom: UploadDefaultZoom}
}

// Focus recentres on place and drops a marker with an open popup.
// Places without coordinates leave the map unchanged.
func (m *UploadMap) Focus(p Place) {
	if p.Coords == nil {
		return
	}
	m.Center = *p.Coords
	m.Zoom = PlaceZoom
	m.Marker = &Marker{Position: *p.Coords, Title: p.Name}
	m.Info = &InfoPopup{Heading: p.Name, Open: true}
}
