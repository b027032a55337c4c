package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kolapodev-a11y/PropertyHub/internal/listing/domain"
	"github.com/kolapodev-a11y/PropertyHub/internal/listing/feed"
	"github.com/kolapodev-a11y/PropertyHub/internal/listing/render"
	"github.com/kolapodev-a11y/PropertyHub/internal/listing/upload"
	"github.com/kolapodev-a11y/PropertyHub/internal/maps"
	"github.com/kolapodev-a11y/PropertyHub/internal/platform/apperr"
)

const postedDateLayout = "Jan 2, 2006"

type homeData struct {
	pageData
	Feed feedView
}

type categoryData struct {
	pageData
	Query string
	Feed  feedView
}

type detailData struct {
	pageData
	Card         render.CardView
	Description  string
	Contact      string
	Gallery      []string
	PostedAt     string
	Map          maps.DetailMap
	StreetView   *maps.StreetView
	StaticMapURL string
	MapsAPIKey   string
	IsOwner      bool
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	page := feed.HomePage()
	data := homeData{pageData: s.base(r, ""), Feed: feedView{StreamURL: streamURL("", "", page.Limit)}}

	listings, err := s.deps.Catalog.FetchLatest(r.Context(), page.Limit)
	if err != nil {
		s.logger.Warn("home feed read failed", zap.Error(err))
		data.Notices = append(data.Notices, upload.Notice{Kind: upload.NoticeError, Message: apperr.Message(err, "Could not load listings.")})
	}
	if len(listings) == 0 {
		data.Feed.Empty = page.Empty
	} else {
		data.Feed.Cards = render.Cards(listings)
	}
	s.renderPage(w, http.StatusOK, "home", data)
}

func (s *Server) handleCategory(w http.ResponseWriter, r *http.Request) {
	category := domain.Category(chi.URLParam(r, "category"))
	if !category.Valid() {
		s.renderNotFound(w, r)
		return
	}
	query := r.URL.Query().Get("q")
	page := feed.CategoryPage(category, query)

	data := categoryData{pageData: s.base(r, render.CategoryLabel(category)), Query: query}
	data.Category = category
	if first, ok := s.firstFrame(r.Context(), page); ok {
		data.Feed = first
	} else {
		data.Feed.Loading = true
	}
	data.Feed.StreamURL = streamURL(category, query, 0)
	s.renderPage(w, http.StatusOK, "category", data)
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	s.renderDetail(w, r, chi.URLParam(r, "id"), http.StatusOK, nil)
}

// renderDetail draws the listing page with notices under status. Read
// failures and missing listings fall through to the not-found page.
func (s *Server) renderDetail(w http.ResponseWriter, r *http.Request, id string, status int, notices []upload.Notice) {
	l, err := s.deps.Catalog.FetchByID(r.Context(), id)
	if err != nil {
		s.logger.Warn("listing read failed", zap.String("listing_id", id), zap.Error(err))
		data := s.base(r, "Something went wrong")
		data.Notices = []upload.Notice{{Kind: upload.NoticeError, Message: apperr.Message(err, "Could not load this listing.")}}
		s.renderPage(w, statusFor(err), "notfound", data)
		return
	}
	if l == nil {
		s.renderNotFound(w, r)
		return
	}

	data := detailData{
		pageData:    s.base(r, l.Title),
		Card:        render.Card(l),
		Description: l.Description,
		Contact:     l.Contact,
		Gallery:     l.Images,
		Map:         maps.RenderDetailMap(l.Location.Coords, l.Location.Name),
		StreetView:  maps.RenderStreetView(l.Location.Coords),
		MapsAPIKey:  s.opts.MapsAPIKey,
	}
	data.Notices = notices
	if !l.CreatedAt.IsZero() {
		data.PostedAt = l.CreatedAt.Format(postedDateLayout)
	}
	if c := l.Location.Coords; c != nil && s.opts.MapsAPIKey != "" {
		data.StaticMapURL = maps.StaticThumbnailURL(*c, 0, "", s.opts.MapsAPIKey)
	}
	if data.Session != nil && data.Session.UserID == l.Owner.ID {
		data.IsOwner = true
	}
	s.renderPage(w, status, "detail", data)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sc := scopeFrom(r.Context())
	if sc == nil || currentSession(r) == nil {
		http.Redirect(w, r, s.loginURL(render.DetailURL(id)), http.StatusSeeOther)
		return
	}

	token, err := sc.gateway.Token(r.Context())
	if err == nil {
		err = s.deps.Catalog.Delete(r.Context(), id, token)
	}
	if err != nil {
		s.logger.Warn("delete failed", zap.String("listing_id", id), zap.Error(err))
		notice := upload.Notice{Kind: upload.NoticeError, Message: apperr.Message(err, "Failed to delete listing")}
		s.renderDetail(w, r, id, statusFor(err), []upload.Notice{notice})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
