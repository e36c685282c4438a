// Package app wires features, adapters, and routes into a runnable server.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"matchmail/backend/features/outreach"
	"matchmail/backend/features/profile"
	"matchmail/backend/features/stats"
	"matchmail/backend/features/user"
	"matchmail/backend/internal/adapter/fetch"
	"matchmail/backend/internal/adapter/gemini"
	wstore "matchmail/backend/internal/adapter/weaviate"
	"matchmail/backend/internal/compose"
	"matchmail/backend/internal/config"
	"matchmail/backend/internal/extract"
	"matchmail/backend/internal/gate"
	"matchmail/backend/internal/index"
	"matchmail/backend/internal/middleware"
	"matchmail/backend/internal/retrieval"
	"matchmail/backend/internal/settings"
	"matchmail/backend/internal/worker"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
)

type TaskPublisher interface {
	Publish(topic string, body []byte) error
}

type App struct {
	Handler       http.Handler
	IndexConsumer *worker.IndexConsumer
	Port          int
}

func New(cfg *config.Config, db *sql.DB, wClient *weaviate.Client, taskPub TaskPublisher) (*App, error) {
	vecStore := wstore.NewStore(wClient)

	// Feature: Settings
	settingsRepo := settings.NewPostgresRepo(db)
	settingsService := settings.NewService(settingsRepo)
	seedAPIKey(cfg, settingsService)
	settingsHandler := settings.NewHandler(settingsService)

	// Adapters: Dynamic
	embedder := gemini.NewDynamicEmbedder(settingsService)
	completer := gemini.NewDynamicCompleter(settingsService)

	// Auth
	issuer := middleware.NewTokenIssuer(cfg.JWTSecret, time.Duration(cfg.JWTExpiryMinutes)*time.Minute)

	// Feature: User
	userRepo := user.NewPostgresRepo(db)
	userService := user.NewService(userRepo, issuer)
	userHandler := user.NewHandler(userService)

	// Feature: Profile
	extractor := extract.NewExtractor(completer)
	profileRepo := profile.NewPostgresRepo(db)
	profileService := profile.NewService(profileRepo, extractor, taskPub)
	profileHandler := profile.NewHandler(profileService)

	// Feature: Outreach
	queryLogger, err := retrieval.NewFileQueryLogger(cfg.QueryLogPath)
	if err != nil {
		slog.Warn("failed to create query logger, falling back to stdout", "error", err)
		queryLogger = retrieval.NewQueryLogger(os.Stdout)
	}
	retrievalService := retrieval.NewService(embedder, vecStore, settingsService, queryLogger)
	gatekeeper := gate.New(completer)
	composer := compose.NewComposer(completer)
	fetcher := fetch.NewPageFetcher()

	outreachService := outreach.NewService(fetcher, extractor, profileService, gatekeeper, retrievalService, composer)
	outreachHandler := outreach.NewHandler(outreachService)

	// Feature: Stats
	statsHandler := stats.NewHandler(userRepo, profileRepo, vecStore)

	// Middleware: CORS
	enableCORS := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	authn := middleware.Auth(issuer)
	protect := func(next http.HandlerFunc) http.HandlerFunc {
		return authn(next).ServeHTTP
	}

	// Routes
	mux := http.NewServeMux()

	mux.Handle("POST /users", middleware.CorrelationID(enableCORS(userHandler.Register)))
	mux.Handle("POST /users/login", middleware.CorrelationID(enableCORS(userHandler.Login)))

	mux.Handle("POST /resume", middleware.CorrelationID(enableCORS(protect(profileHandler.SubmitResume))))
	mux.Handle("GET /profile", middleware.CorrelationID(enableCORS(protect(profileHandler.GetMe))))

	mux.Handle("POST /outreach/emails", middleware.CorrelationID(enableCORS(protect(outreachHandler.GenerateEmail))))

	mux.Handle("GET /settings", middleware.CorrelationID(enableCORS(protect(settingsHandler.GetSettings))))
	mux.Handle("PUT /settings", middleware.CorrelationID(enableCORS(protect(settingsHandler.UpdateSettings))))

	mux.Handle("GET /stats", middleware.CorrelationID(enableCORS(statsHandler.GetStats)))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Worker (Index Consumer) Setup
	indexer := index.NewIndexer(embedder, vecStore)
	indexConsumer := worker.NewIndexConsumer(profileService, indexer)

	return &App{
		Handler:       mux,
		IndexConsumer: indexConsumer,
		Port:          cfg.ServerPort,
	}, nil
}

// seedAPIKey copies the environment key into settings once, so the key can
// later be rotated at runtime without a redeploy.
func seedAPIKey(cfg *config.Config, svc *settings.Service) {
	if cfg.GeminiAPIKey == "" {
		return
	}
	ctx := context.Background()
	set, err := svc.Get(ctx)
	if err != nil {
		slog.Warn("failed to fetch settings for seeding", "error", err)
		return
	}
	if set.GeminiAPIKey != "" {
		return
	}
	set.GeminiAPIKey = cfg.GeminiAPIKey
	if err := svc.Update(ctx, set); err != nil {
		slog.Warn("failed to seed gemini api key", "error", err)
		return
	}
	slog.Info("seeded gemini api key from environment")
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.Port),
		Handler: a.Handler,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		if err := srv.Shutdown(context.Background()); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.Port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
