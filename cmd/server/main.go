package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/kolapodev-a11y/PropertyHub/internal/adapter/apiclient"
	"github.com/kolapodev-a11y/PropertyHub/internal/adapter/identity/firebaseid"
	"github.com/kolapodev-a11y/PropertyHub/internal/adapter/identity/jwtauth"
	"github.com/kolapodev-a11y/PropertyHub/internal/adapter/identity/oauth"
	natsAdapter "github.com/kolapodev-a11y/PropertyHub/internal/adapter/messaging/nats"
	"github.com/kolapodev-a11y/PropertyHub/internal/adapter/repository/cache"
	"github.com/kolapodev-a11y/PropertyHub/internal/adapter/repository/firestoredb"
	"github.com/kolapodev-a11y/PropertyHub/internal/adapter/repository/memory"
	mongoRepo "github.com/kolapodev-a11y/PropertyHub/internal/adapter/repository/mongodb"
	"github.com/kolapodev-a11y/PropertyHub/internal/adapter/storage/s3"
	"github.com/kolapodev-a11y/PropertyHub/internal/adapter/web"
	"github.com/kolapodev-a11y/PropertyHub/internal/config"
	"github.com/kolapodev-a11y/PropertyHub/internal/listing/domain"
	"github.com/kolapodev-a11y/PropertyHub/internal/listing/upload"
	"github.com/kolapodev-a11y/PropertyHub/internal/listing/usecase"
	"github.com/kolapodev-a11y/PropertyHub/internal/mailer"
	"github.com/kolapodev-a11y/PropertyHub/internal/maps"
	"github.com/kolapodev-a11y/PropertyHub/internal/platform/logger"
	"github.com/kolapodev-a11y/PropertyHub/internal/platform/metrics"
	"github.com/kolapodev-a11y/PropertyHub/internal/platform/tracer"
	"github.com/kolapodev-a11y/PropertyHub/internal/session"
)

const serviceName = "propertyhub"

func main() {
	cfg, err := config.LoadConfig(os.Getenv("CONFIG_PATH"))
	if err != nil {
		l := logger.NewLogger(logger.DefaultConfig())
		l.Fatal("Failed to load configuration", zap.Error(err))
	}

	appLogger := logger.NewLogger(cfg.Logger).Logger
	defer func() { _ = appLogger.Sync() }()
	appLogger.Info("Application starting...",
		zap.String("service_name", serviceName),
		zap.String("store_driver", cfg.Store.Driver),
		zap.String("auth_verifier", cfg.Auth.Verifier))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var tp *sdktrace.TracerProvider
	if cfg.Tracing.Enabled {
		tp, err = tracer.InitTracer(ctx, serviceName, cfg.Tracing.Endpoint)
		if err != nil {
			appLogger.Error("Failed to initialize tracer, continuing without tracing", zap.Error(err))
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := tp.Shutdown(shutdownCtx); err != nil {
					appLogger.Error("Failed to shutdown tracer provider", zap.Error(err))
				}
			}()
			appLogger.Info("OpenTelemetry tracer initialized", zap.String("endpoint", cfg.Tracing.Endpoint))
		}
	}

	metricsManager := metrics.NewMetricsManager(serviceName)
	go func() {
		if err := metrics.StartMetricsServer(ctx, cfg.Metrics.Addr, appLogger, metricsManager.Registry); err != nil {
			appLogger.Error("Prometheus metrics server failed", zap.Error(err))
		}
	}()

	var fbApp *firebase.App
	if cfg.Auth.Verifier == "firebase" || cfg.Store.Driver == "firestore" {
		fbApp, err = firebaseid.NewApp(ctx, cfg.Firebase)
		if err != nil {
			appLogger.Fatal("Failed to initialize Firebase", zap.Error(err))
		}
	}

	store, closeStore := openStore(ctx, cfg, fbApp, appLogger)
	defer closeStore()

	var listingCache domain.ListingCache
	var sessions session.Store = session.NewMemoryStore()
	if redisClient, err := cache.NewRedisClient(cfg.Redis); err != nil {
		appLogger.Warn("Redis unavailable, using in-process sessions and no listing cache", zap.Error(err))
	} else {
		defer redisClient.Close()
		listingCache = cache.NewListingCache(redisClient, cfg.Redis.ListingTTL)
		sessions = cache.NewSessionStore(redisClient, cfg.Auth.SessionTTL)
		appLogger.Info("Redis connected", zap.String("address", cfg.Redis.Address))
	}

	var publisher domain.EventPublisher
	if cfg.NATS.URL != "" {
		p, err := natsAdapter.NewPublisher(cfg.NATS.URL, cfg.NATS.ConnectTimeout, appLogger)
		if err != nil {
			appLogger.Warn("NATS unavailable, listing events will not be published", zap.Error(err))
		} else {
			defer p.Close()
			publisher = p
		}
	}

	var notifier domain.ListingNotifier
	if cfg.SMTP.Host != "" {
		notifier = mailer.NewSMTPMailer(cfg.SMTP, cfg.HTTP.PublicURL)
		appLogger.Info("SMTP mailer configured", zap.String("host", cfg.SMTP.Host))
	}

	var uploader upload.Uploader
	if cfg.MinIO.AccessKey != "" {
		storage, err := s3.NewS3Storage(ctx, cfg.MinIO, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to initialize object storage", zap.Error(err))
		}
		uploader = usecase.NewMediaUploader(storage, cfg.MinIO.UploadTimeout, metricsManager, appLogger)
	} else {
		appLogger.Warn("Object storage not configured, photo uploads are disabled")
	}

	var verifier session.TokenVerifier
	var provider session.IdentityProvider
	switch cfg.Auth.Verifier {
	case "firebase":
		authClient, err := fbApp.Auth(ctx)
		if err != nil {
			appLogger.Fatal("Failed to initialize Firebase Auth", zap.Error(err))
		}
		verifier = firebaseid.NewVerifier(authClient)
		provider = firebaseid.NewProvider(cfg.Firebase.IdentityURL, cfg.Firebase.TokenURL, cfg.Firebase.WebAPIKey, cfg.API.Timeout, appLogger)
	case "jwt":
		signer := jwtauth.NewSigner(cfg.Auth.JWTSecret)
		verifier = signer
		provider = jwtauth.NewLocalProvider(signer, jwtauth.DefaultTokenTTL)
	}

	var google *oauth.GoogleFlow
	if cfg.OAuth.GoogleClientID != "" {
		google = oauth.NewGoogleFlow(cfg.OAuth)
	}

	var places maps.PlaceResolver
	if cfg.Maps.APIKey != "" {
		gp, err := maps.NewGooglePlaces(cfg.Maps.APIKey, cfg.Maps.LookupTimeout)
		if err != nil {
			appLogger.Fatal("Failed to initialize place search", zap.Error(err))
		}
		places = gp
	}

	listings := usecase.NewListingUsecase(store, listingCache, publisher, notifier, metricsManager, appLogger)
	catalog := usecase.NewCatalog(
		apiclient.New(cfg.APIBaseURL(), cfg.API.Timeout),
		store,
		usecase.CatalogConfig{
			CallTimeout:     cfg.Store.CallTimeout,
			ReadRetries:     cfg.Store.ReadRetries,
			InitialInterval: cfg.Store.RetryInterval,
		},
		metricsManager,
		appLogger,
	)

	srv, err := web.NewServer(web.Deps{
		Listings: listings,
		Catalog:  catalog,
		Uploader: uploader,
		Places:   places,
		Verifier: verifier,
		Provider: provider,
		Sessions: sessions,
		Google:   google,
		Metrics:  metricsManager,
	}, web.Options{
		SessionCookie:  cfg.Auth.SessionCookie,
		SessionTTL:     cfg.Auth.SessionTTL,
		SecureCookies:  cfg.Auth.SecureCookies,
		MaxUploadBytes: cfg.HTTP.MaxUploadBytes,
		MinifyHTML:     cfg.HTTP.MinifyHTML,
		LoginTarget:    cfg.Pages.LoginTarget,
		UploadFolder:   cfg.MinIO.Folder,
		SuccessDelay:   cfg.Pages.SuccessDelay,
		FeedHeartbeat:  cfg.Pages.FeedHeartbeat,
		MapsAPIKey:     cfg.Maps.APIKey,
	}, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to build HTTP server", zap.Error(err))
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}
	go func() {
		appLogger.Info("Starting HTTP server", zap.String("addr", cfg.HTTP.Addr), zap.String("public_url", cfg.HTTP.PublicURL))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	appLogger.Info("Received shutdown signal, draining connections...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("HTTP server shutdown failed", zap.Error(err))
	}
	appLogger.Info("Application shut down")
}

// openStore connects the configured document store. The returned func releases it.
func openStore(ctx context.Context, cfg *config.Config, fbApp *firebase.App, log *zap.Logger) (domain.ListingStore, func()) {
	switch cfg.Store.Driver {
	case "mongo":
		client, err := mongoRepo.NewMongoDBConnection(cfg.Mongo)
		if err != nil {
			log.Fatal("Failed to connect to MongoDB", zap.Error(err))
		}
		repo := mongoRepo.NewListingRepository(client.Database(cfg.Mongo.Database), cfg.Mongo.Collection, cfg.Store.SnapshotLimit, log)
		if err := repo.EnsureIndexes(ctx); err != nil {
			log.Warn("Failed to ensure listing indexes", zap.Error(err))
		}
		log.Info("MongoDB connected", zap.String("database", cfg.Mongo.Database))
		return repo, func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Disconnect(disconnectCtx); err != nil {
				log.Error("Error disconnecting from MongoDB", zap.Error(err))
			}
		}
	case "firestore":
		client, err := fbApp.Firestore(ctx)
		if err != nil {
			log.Fatal("Failed to connect to Firestore", zap.Error(err))
		}
		log.Info("Firestore connected", zap.String("project_id", cfg.Firebase.ProjectID))
		repo := firestoredb.NewListingRepository(client, cfg.Firebase.Collection, cfg.Store.SnapshotLimit, log)
		return repo, func() { _ = client.Close() }
	default:
		log.Warn("Using the in-process listing store; data is lost on restart")
		return memory.NewListingRepository(), func() {}
	}
}
