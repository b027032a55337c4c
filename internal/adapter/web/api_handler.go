package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kolapodev-a11y/PropertyHub/internal/listing/domain"
	"github.com/kolapodev-a11y/PropertyHub/internal/listing/usecase"
	"github.com/kolapodev-a11y/PropertyHub/internal/platform/apperr"
)

const maxDraftBytes = 1 << 20

type listingResponse struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Category     string    `json:"category"`
	Price        string    `json:"price"`
	Description  string    `json:"description,omitempty"`
	Contact      string    `json:"contact,omitempty"`
	Images       []string  `json:"images"`
	LocationName string    `json:"locationName,omitempty"`
	Lat          *float64  `json:"lat,omitempty"`
	Lng          *float64  `json:"lng,omitempty"`
	OwnerID      string    `json:"ownerId"`
	OwnerName    string    `json:"ownerName,omitempty"`
	OwnerPhoto   string    `json:"ownerPhoto,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

func toListingResponse(l *domain.Listing) listingResponse {
	resp := listingResponse{
		ID:           l.ID,
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
	if c := l.Location.Coords; c != nil {
		lat, lng := c.Lat, c.Lng
		resp.Lat, resp.Lng = &lat, &lng
	}
	if resp.Images == nil {
		resp.Images = []string{}
	}
	return resp
}

func (s *Server) handleAPICreate(w http.ResponseWriter, r *http.Request) {
	principal := principalFrom(r.Context())
	if principal == nil {
		writeJSONError(w, http.StatusUnauthorized, "Missing token")
		return
	}

	var draft domain.Draft
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxDraftBytes))
	if err := dec.Decode(&draft); err != nil {
		s.logger.Info("invalid listing payload", zap.Error(err))
		writeJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	author := usecase.Author{
		Owner: domain.Owner{ID: principal.UserID, Name: principal.Name, PhotoURL: principal.PhotoURL},
		Email: principal.Email,
	}
	listing, err := s.deps.Listings.Create(r.Context(), author, draft)
	if err != nil {
		s.writeAPIError(w, err, "Failed to create listing")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": listing.ID})
}

func (s *Server) handleAPIDelete(w http.ResponseWriter, r *http.Request) {
	principal := principalFrom(r.Context())
	if principal == nil {
		writeJSONError(w, http.StatusUnauthorized, "Missing token")
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.deps.Listings.Delete(r.Context(), id, principal.UserID); err != nil {
		s.writeAPIError(w, err, "Failed to delete listing")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAPIGet(w http.ResponseWriter, r *http.Request) {
	listing, err := s.deps.Listings.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeAPIError(w, err, "Failed to load listing")
		return
	}
	writeJSON(w, http.StatusOK, toListingResponse(listing))
}

func (s *Server) handleAPIList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSONError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	listings, err := s.deps.Listings.Latest(r.Context(), domain.Category(q.Get("category")), limit)
	if err != nil {
		s.writeAPIError(w, err, "Failed to load listings")
		return
	}
	out := make([]listingResponse, 0, len(listings))
	for _, l := range listings {
		out = append(out, toListingResponse(l))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) writeAPIError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrListingNotFound):
		writeJSONError(w, http.StatusNotFound, "Listing not found")
	case errors.Is(err, domain.ErrForbidden):
		writeJSONError(w, http.StatusForbidden, "You can only delete your own listings")
	case errors.Is(err, apperr.ErrValidation):
		writeJSONError(w, http.StatusBadRequest, apperr.Message(err, fallback))
	case errors.Is(err, apperr.ErrUnauthorized):
		writeJSONError(w, http.StatusUnauthorized, apperr.Message(err, fallback))
	default:
		s.logger.Error("api request failed", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, fallback)
	}
}
