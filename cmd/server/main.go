// @title           Room Staging Backend API
// @version         1.0.0
// @description     Backend API for virtual room staging. Photos of a room are uploaded or pasted into a per-user workspace, restyled by the Gemini image model in a chosen interior style, compared before/after with a slider and downloaded or exported.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"room-staging-backend/internal/config"
	"room-staging-backend/internal/database"
	"room-staging-backend/internal/gemini"
	"room-staging-backend/internal/handlers"
	"room-staging-backend/internal/ingest"
	"room-staging-backend/internal/logger"
	"room-staging-backend/internal/objectstore"
	"room-staging-backend/internal/ratelimit"
	"room-staging-backend/internal/services"
	"room-staging-backend/internal/styles"
	"room-staging-backend/internal/supabase"
	"room-staging-backend/internal/workspace"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", false)
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.New(cfg.LogLevel, cfg.IsProduction())

	// Set Gin mode
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog, err := styles.Load(cfg.StylesFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load style catalog")
	}

	geminiClient := gemini.NewClient(gemini.Options{
		APIKey:  cfg.GeminiAPIKey,
		BaseURL: cfg.GeminiBaseURL,
		Model:   cfg.GeminiModel,
		Timeout: cfg.GeminiTimeout,
		Catalog: catalog,
		Logger:  log,
	})
	if !geminiClient.HasCredentials() {
		log.Warn().Msg("GEMINI_API_KEY not set; staging requests will fail until it is configured")
	}

	var sinks []workspace.EventSink

	// Usage ledger (optional)
	var ledger handlers.AttemptLister
	if cfg.DatabaseURL == "" {
		log.Warn().Msg("DATABASE_URL not set; the usage ledger is disabled")
	} else if dbClient := openDatabase(ctx, cfg.DatabaseURL, log); dbClient != nil {
		defer dbClient.Close()
		ledger = dbClient
		sinks = append(sinks, dbClient)
	}

	// Realtime events (optional)
	if cfg.SupabaseURL != "" && cfg.SupabasePublishableKey != "" {
		supabaseClient, err := supabase.NewClient(cfg)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize Supabase client; realtime events are disabled")
		} else {
			sinks = append(sinks, supabase.NewRealtimePublisher(supabaseClient.Supabase))
		}
	}

	store, err := exportStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize export storage")
	}
	storageService := services.NewStorageService(store, log)

	deps := handlers.Deps{
		Catalog:      catalog,
		DefaultModel: cfg.GeminiModel,
		Registry: workspace.NewRegistry(workspace.Options{
			Catalog:      catalog,
			Gateway:      geminiClient,
			DefaultModel: cfg.GeminiModel,
			Sinks:        sinks,
			Logger:       log,
		}),
		Decoder:        ingest.NewDecoder(cfg.MaxImageBytes, log),
		StorageService: storageService,
		Ledger:         ledger,
		Logger:         log,
	}

	// Stage rate limit (optional)
	if cfg.RedisAddr != "" {
		limiter, err := ratelimit.NewFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, "", cfg.StageRateLimit, cfg.StageRateWindow)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize rate limiter")
		}
		defer limiter.Close()
		deps.Limiter = limiter
	}

	router := handlers.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("export_backend", cfg.ExportBackend).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// openDatabase connects the usage ledger and applies pending migrations.
// Failures disable the ledger instead of stopping the server.
func openDatabase(ctx context.Context, dbURL string, log zerolog.Logger) *supabase.DatabaseClient {
	migrator, err := database.NewMigrator(dbURL, log)
	if err != nil {
		log.Warn().Err(err).Msg("failed to initialize migrator; the usage ledger is disabled")
		return nil
	}
	defer migrator.Close()
	if err := migrator.Run(ctx); err != nil {
		log.Warn().Err(err).Msg("migration failed; the usage ledger is disabled")
		return nil
	}
	log.Info().Msg("migrations completed successfully")

	dbClient, err := supabase.NewDatabaseClient(dbURL)
	if err != nil {
		log.Warn().Err(err).Msg("failed to initialize database client; the usage ledger is disabled")
		return nil
	}
	return dbClient
}

// exportStore returns the object store named by EXPORT_BACKEND, or nil when
// export is disabled.
func exportStore(ctx context.Context, cfg *config.Config) (objectstore.Store, error) {
	switch cfg.ExportBackend {
	case config.ExportBackendSupabase:
		return supabase.NewStorageClient(cfg.SupabaseURL, cfg.SupabasePublishableKey, cfg.SupabaseStorageBucket), nil
	case config.ExportBackendMinio:
		store, err := objectstore.NewMinioStore(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, nil
	}
}
