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
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/aulianza/mindsignal/internal/application"
	appanalysis "github.com/aulianza/mindsignal/internal/application/analysis"
	apptriage "github.com/aulianza/mindsignal/internal/application/triage"
	"github.com/aulianza/mindsignal/internal/config"
	"github.com/aulianza/mindsignal/internal/domain/analysis"
	"github.com/aulianza/mindsignal/internal/domain/triage"
	"github.com/aulianza/mindsignal/internal/infra/ai/openai"
	"github.com/aulianza/mindsignal/internal/infra/analyzers"
	mysqlp "github.com/aulianza/mindsignal/internal/infra/db/mysql"
	postgresp "github.com/aulianza/mindsignal/internal/infra/db/postgres"
	"github.com/aulianza/mindsignal/internal/infra/httpserver"
	minioStore "github.com/aulianza/mindsignal/internal/infra/storage"
	"github.com/aulianza/mindsignal/internal/middleware"
	"github.com/aulianza/mindsignal/internal/pkg/logger"
)

func main() {
	// optional .env for local runs
	_ = godotenv.Load()

	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	zlog := logger.New(cfg.Logging.File, cfg.Logging.Prod)
	defer zlog.Sync()

	ctx := context.Background()

	// connect database per configured driver
	var (
		db         *sql.DB
		triageRepo triage.Repository
		resultRepo analysis.Repository
	)
	switch cfg.Database.Driver {
	case "postgres":
		db, err = postgresp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			log.Fatalf("postgres connect error: %v", err)
		}
		triageRepo = postgresp.NewTriageRepository(db)
		resultRepo = postgresp.NewResultRepository(db)
	default:
		db, err = mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			log.Fatalf("mysql connect error: %v", err)
		}
		triageRepo = mysqlp.NewTriageRepository(db)
		resultRepo = mysqlp.NewResultRepository(db)
	}
	defer db.Close()

	// init minio media staging
	store, err := minioStore.New(ctx,
		cfg.Minio.Endpoint,
		cfg.Minio.Region,
		cfg.Minio.BucketName,
		cfg.Minio.AccessKey,
		cfg.Minio.SecretKey,
		cfg.Minio.UseSSL,
	)
	if err != nil {
		log.Fatalf("minio init error: %v", err)
	}

	// init inference client + modality analyzers
	aiClient := openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.VisionModel)
	modalityAnalyzers := analyzers.New(aiClient, store, cfg.Policy)

	// init services
	triageSvc := &apptriage.Service{
		Repo:  triageRepo,
		Clock: application.SystemClock{},
		Log:   zlog.Named("triage"),
	}
	analysisSvc := &appanalysis.Service{
		Analyzers:   modalityAnalyzers,
		Fuser:       appanalysis.NewFuser(cfg.Policy),
		Classifier:  appanalysis.NewClassifier(cfg.Policy),
		Recommender: appanalysis.NewRecommender(cfg.Catalog),
		Escalator:   triageSvc,
		Results:     resultRepo,
		Clock:       application.SystemClock{},
		Policy:      cfg.Policy,
		Log:         zlog.Named("analysis"),
	}

	// init router
	mux := chi.NewRouter()
	mux.Use(middleware.Logging(zlog.Named("http")))
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(middleware.APIKeyAuth(cfg.Viewers()))
	mux.Use(middleware.RateLimitMiddleware(30, 1))

	mux.Get("/health", middleware.HealthHandler(map[string]middleware.HealthChecker{
		"database": &middleware.DatabaseHealthChecker{DB: db},
		"media":    middleware.CheckerFunc(store.Check),
	}))
	mux.Get("/health/live", middleware.LivenessHandler)
	mux.Get("/health/ready", middleware.ReadinessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)
	mux.Mount("/", httpserver.NewRouter(analysisSvc, triageSvc, zlog.Named("http")))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Policy.OverallDeadline.Std() + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		zlog.Info("server listening", zap.String("addr", addr), zap.String("driver", cfg.Database.Driver))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	zlog.Info("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		zlog.Error("shutdown error", zap.Error(err))
	}
}
