// Package web serves PropertyHub over HTTP: the server-rendered pages, the
// live feed stream and the /api/listings backend.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kolapodev-a11y/PropertyHub/internal/adapter/identity/oauth"
	"github.com/kolapodev-a11y/PropertyHub/internal/listing/domain"
	"github.com/kolapodev-a11y/PropertyHub/internal/listing/feed"
	"github.com/kolapodev-a11y/PropertyHub/internal/listing/upload"
	"github.com/kolapodev-a11y/PropertyHub/internal/listing/usecase"
	"github.com/kolapodev-a11y/PropertyHub/internal/maps"
	"github.com/kolapodev-a11y/PropertyHub/internal/platform/metrics"
	"github.com/kolapodev-a11y/PropertyHub/internal/session"
)

// ListingService is the backend behind /api/listings.
type ListingService interface {
	Create(ctx context.Context, author usecase.Author, draft domain.Draft) (*domain.Listing, error)
	Delete(ctx context.Context, id, userID string) error
	Get(ctx context.Context, id string) (*domain.Listing, error)
	Latest(ctx context.Context, category domain.Category, limit int) ([]*domain.Listing, error)
}

// CatalogService is what the pages use to read and write listings.
type CatalogService interface {
	feed.LiveSource
	upload.Creator
	Delete(ctx context.Context, id, token string) error
	FetchByID(ctx context.Context, id string) (*domain.Listing, error)
	FetchLatest(ctx context.Context, limit int) ([]*domain.Listing, error)
}

type Deps struct {
	Listings ListingService
	Catalog  CatalogService
	Uploader upload.Uploader
	Places   maps.PlaceResolver
	Verifier session.TokenVerifier
	Provider session.IdentityProvider
	Sessions session.Store
	Google   *oauth.GoogleFlow // nil disables Google sign-in
	Metrics  *metrics.MetricsManager
}

type Options struct {
	SessionCookie  string
	SessionTTL     time.Duration
	SecureCookies  bool
	MaxUploadBytes int64
	MinifyHTML     bool
	LoginTarget    string
	UploadFolder   string
	SuccessDelay   time.Duration
	FeedHeartbeat  time.Duration
	MapsAPIKey     string
}

func DefaultOptions() Options {
	return Options{
		SessionCookie:  "ph_session",
		SessionTTL:     30 * 24 * time.Hour,
		MaxUploadBytes: 32 << 20,
		LoginTarget:    "/login",
		UploadFolder:   "listings",
		SuccessDelay:   1500 * time.Millisecond,
		FeedHeartbeat:  25 * time.Second,
	}
}

type Server struct {
	deps   Deps
	opts   Options
	views  *renderer
	logger *zap.Logger
}

func NewServer(deps Deps, opts Options, logger *zap.Logger) (*Server, error) {
	views, err := newRenderer(opts.MinifyHTML)
	if err != nil {
		return nil, err
	}
	defaults := DefaultOptions()
	if opts.FeedHeartbeat <= 0 {
		opts.FeedHeartbeat = defaults.FeedHeartbeat
	}
	if opts.SessionCookie == "" {
		opts.SessionCookie = defaults.SessionCookie
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaults.MaxUploadBytes
	}
	if opts.LoginTarget == "" {
		opts.LoginTarget = defaults.LoginTarget
	}
	if opts.UploadFolder == "" {
		opts.UploadFolder = defaults.UploadFolder
	}
	return &Server{deps: deps, opts: opts, views: views, logger: logger.Named("WebServer")}, nil
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	if s.deps.Metrics != nil {
		r.Use(metricsMiddleware(s.deps.Metrics))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/listings", func(r chi.Router) {
		r.Get("/", s.handleAPIList)
		r.Get("/{id}", s.handleAPIGet)
		r.Group(func(r chi.Router) {
			r.Use(bearerAuth(s.deps.Verifier, s.logger))
			r.Post("/", s.handleAPICreate)
			r.Delete("/{id}", s.handleAPIDelete)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(s.withSession)

		r.Get("/", s.handleHome)
		r.Get("/c/{category}", s.handleCategory)
		r.Get("/feed/stream", s.handleFeedStream)
		r.Get("/listings/{id}", s.handleDetail)
		r.Post("/listings/{id}/delete", s.handleDelete)

		r.Get("/upload", s.handleUploadForm)
		r.Post("/upload", s.handleUploadSubmit)
		r.Post("/upload/preview", s.handleUploadPreview)
		r.Get("/places/resolve", s.handlePlaceResolve)

		r.Get("/login", s.handleLoginForm)
		r.Post("/login", s.handleLogin)
		r.Get("/register", s.handleRegisterForm)
		r.Post("/register", s.handleRegister)
		r.Post("/logout", s.handleLogout)
		r.Get("/auth/google", s.handleGoogleStart)
		r.Get("/auth/google/callback", s.handleGoogleCallback)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.renderNotFound(w, r)
	})
	return r
}
