package app

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/db"
	"github.com/xenking/storefront/internal/blob"
	"github.com/xenking/storefront/internal/domain/asset"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/handler"
	"github.com/xenking/storefront/internal/openapi"
	"github.com/xenking/storefront/internal/repository"
	"github.com/xenking/storefront/internal/storage"
	"github.com/xenking/storefront/internal/storage/memory"
	"github.com/xenking/storefront/internal/storage/mongo"
	"github.com/xenking/storefront/internal/storage/postgres"
	"github.com/xenking/storefront/internal/upload"
	"github.com/xenking/storefront/pkg/health"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

const (
	serviceName = "storefront"
	apiVersion  = "1.0.0"
)

// OpenStore connects to the document store named by rawURL. The scheme picks
// the backend.
func OpenStore(ctx context.Context, rawURL string) (storage.Store, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse store url")
	}
	switch u.Scheme {
	case "memory":
		return memory.New(), nil
	case "postgres", "postgresql":
		return postgres.Open(ctx, rawURL)
	case "mongodb", "mongodb+srv":
		return mongo.Open(ctx, rawURL)
	default:
		return nil, errors.Errorf("unsupported store scheme %q", u.Scheme)
	}
}

// Server is the wired HTTP application.
type Server struct {
	Handler  http.Handler
	Health   *health.Health
	Products *repository.ProductRepository
}

// NewServer builds repositories, services, routes and middleware on top of
// store. Background work started here stops when ctx is done.
func NewServer(ctx context.Context, lg *zap.Logger, t httpmiddleware.Telemetry, cfg *Config, store storage.Store) (*Server, error) {
	dir, err := blob.Open(cfg.UploadDir)
	if err != nil {
		return nil, errors.Wrap(err, "open upload dir")
	}
	writer := upload.NewWriter(dir)

	productRepo := repository.NewProductRepository(store)
	products := product.NewService(product.Config{
		MinImages: cfg.Upload.MinImages,
		MaxImages: cfg.Upload.MaxImages,
	}, productRepo, writer)
	assets := asset.NewService(repository.NewImageRepository(store), writer)

	hcfg := handler.DefaultConfig()
	hcfg.ProductUpload.MaxBytes = cfg.Upload.ProductMaxBytes
	hcfg.ProductUpload.MaxFiles = cfg.Upload.MaxImages
	hcfg.ImageUpload.MaxBytes = cfg.Upload.ImageMaxBytes
	hcfg.BlogUpload.MaxBytes = cfg.Upload.ImageMaxBytes

	h, err := handler.New(hcfg, products, assets, t.MeterProvider().Meter(serviceName))
	if err != nil {
		return nil, errors.Wrap(err, "create handler")
	}

	docs, err := openapi.Handler(openapi.Document(apiVersion, openapi.Limits{
		MinImages: cfg.Upload.MinImages,
		MaxImages: cfg.Upload.MaxImages,
	}))
	if err != nil {
		return nil, errors.Wrap(err, "openapi handler")
	}

	healthSvc := health.New()
	healthSvc.AddReadinessCheck("store", health.PingCheck(store), health.Options{Timeout: 5 * time.Second})
	healthSvc.AddReadinessCheck("uploads", dir.Writable, health.Options{})
	healthSvc.AddLivenessCheck("goroutines", health.GoroutineCountCheck(10000), health.Options{})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)
	mux.Handle("GET "+asset.PublicPrefix, http.StripPrefix("/uploads", dir.Handler()))
	mux.Handle("GET "+openapi.Path, docs)
	h.Register(mux, httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
		Max:    cfg.RateLimit.Max,
		Window: cfg.RateLimit.Window,
	}))

	routeFinder := httpmiddleware.MakeRouteFinder(mux)
	return &Server{
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", httpmiddleware.RequestIDHeader},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(lg),
			httpmiddleware.Instrument(serviceName, routeFinder, t),
			httpmiddleware.LogRequests(routeFinder),
			httpmiddleware.Labeler(routeFinder),
		),
		Health:   healthSvc,
		Products: productRepo,
	}, nil
}

// SeedCatalog inserts the embedded sample catalog when no products exist.
func SeedCatalog(ctx context.Context, repo product.Repository) error {
	catalog, err := product.DecodeList(db.SampleProducts)
	if err != nil {
		return errors.Wrap(err, "decode sample catalog")
	}
	n, err := product.SeedIfEmpty(ctx, repo, catalog)
	if err != nil {
		return errors.Wrap(err, "seed catalog")
	}
	if n > 0 {
		zctx.From(ctx).Info("Seeded sample catalog", zap.Int("products", n))
	}
	return nil
}

// Run opens the store, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, t httpmiddleware.Telemetry, cfg *Config) error {
	ctx = zctx.Base(ctx, lg)
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("upload_dir", cfg.UploadDir),
	)

	store, err := OpenStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "open store")
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			lg.Error("Close store", zap.Error(err))
		}
	}()

	srv, err := NewServer(ctx, lg, t, cfg, store)
	if err != nil {
		return err
	}
	if cfg.Seed {
		if err := SeedCatalog(ctx, srv.Products); err != nil {
			return err
		}
	}

	srv.Health.Start(ctx, 10*time.Second)
	srv.Health.SetReady(true)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           srv.Handler,
		// Requests outlive ctx during the drain, so they only inherit the logger.
		BaseContext: func(net.Listener) context.Context {
			return zctx.Base(context.Background(), lg)
		},
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		srv.Health.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		srv.Health.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
