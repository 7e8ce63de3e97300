package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/labelscan/labelscan/internal/application"
	appanalysis "github.com/labelscan/labelscan/internal/application/analysis"
	"github.com/labelscan/labelscan/internal/config"
	domain "github.com/labelscan/labelscan/internal/domain/analysis"
	aiopenai "github.com/labelscan/labelscan/internal/infra/ai/openai"
	"github.com/labelscan/labelscan/internal/infra/cache"
	mysqlp "github.com/labelscan/labelscan/internal/infra/db/mysql"
	postgresp "github.com/labelscan/labelscan/internal/infra/db/postgres"
	"github.com/labelscan/labelscan/internal/infra/httpserver"
	minioStore "github.com/labelscan/labelscan/internal/infra/storage"
	"github.com/labelscan/labelscan/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}
	if cfg.Auth.JWTSecret == "" {
		log.Fatal("auth.jwtSecret is required")
	}

	ctx := context.Background()

	// connect primary store
	var (
		db   *sql.DB
		repo domain.Repository
	)
	switch cfg.Database.Driver {
	case "postgres":
		db, err = postgresp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			log.Fatalf("postgres connect error: %v", err)
		}
		repo = postgresp.NewAnalysisRepository(db)
	default:
		db, err = mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			log.Fatalf("mysql connect error: %v", err)
		}
		repo = mysqlp.NewAnalysisRepository(db)
	}
	defer db.Close()

	// local fallback history (advisory; the service runs without it)
	var localCache domain.Cache
	var cacheStore *cache.Store
	if cfg.Cache.Enabled {
		cacheStore, err = cache.New(cfg.Cache.Path, cfg.Cache.Capacity)
		if err != nil {
			log.Printf("local history disabled: %v", err)
		} else {
			defer cacheStore.Close()
			localCache = cacheStore
		}
	}

	// raw payload archive (optional)
	var archive domain.ArtifactStore
	if cfg.Archive.Enabled {
		store, err := minioStore.New(ctx,
			cfg.Archive.Endpoint,
			cfg.Archive.Region,
			cfg.Archive.BucketName,
			cfg.Archive.AccessKey,
			cfg.Archive.SecretKey,
			cfg.Archive.UseSSL,
		)
		if err != nil {
			log.Fatalf("archive init error: %v", err)
		}
		archive = store
	}

	// model client
	analyzer := aiopenai.NewClient(
		cfg.Model.APIKey,
		cfg.Model.BaseURL,
		cfg.Model.Name,
		time.Duration(cfg.Model.TimeoutSeconds)*time.Second,
	)

	// init service
	svc := &appanalysis.Service{
		Repo:            repo,
		Analyzer:        analyzer,
		Cache:           localCache,
		Archive:         archive,
		Clock:           application.SystemClock{},
		MaxAttempts:     cfg.Model.MaxAttempts,
		Backoff:         time.Duration(cfg.Model.BackoffSeconds) * time.Second,
		FallbackEnabled: true,
	}

	// init router
	authmw := middleware.BearerAuth([]byte(cfg.Auth.JWTSecret), cfg.Auth.Issuer)

	mux := chi.NewRouter()
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.MetricsMiddleware)
	if cfg.RateLimit.Capacity > 0 && cfg.RateLimit.RefillRate > 0 {
		mux.Use(middleware.RateLimitMiddleware(cfg.RateLimit.Capacity, cfg.RateLimit.RefillRate))
	}

	checkers := map[string]middleware.HealthChecker{
		"database": &middleware.DatabaseHealthChecker{DB: db},
	}
	if cacheStore != nil {
		checkers["local_history"] = middleware.CheckerFunc(cacheStore.Ping)
	}
	mux.Get("/healthz", middleware.HealthHandler(checkers))
	mux.Get("/metrics", middleware.MetricsHandler)
	mux.Mount("/", httpserver.NewRouter(svc, authmw))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
		// An analysis request can legitimately hold the connection through
		// several 60s model attempts plus backoff.
		WriteTimeout: 4 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		log.Printf("server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
