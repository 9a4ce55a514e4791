package admin

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

	"github.com/frontline-hq/frontline/internal/api/handlers"
	"github.com/frontline-hq/frontline/internal/config"
	"github.com/frontline-hq/frontline/internal/database"
	"github.com/frontline-hq/frontline/internal/jobs"
	"github.com/frontline-hq/frontline/internal/openai"
	"github.com/frontline-hq/frontline/internal/repository"
	"github.com/frontline-hq/frontline/internal/server"
	"github.com/frontline-hq/frontline/internal/service"
	"github.com/frontline-hq/frontline/internal/storage"
	"github.com/frontline-hq/frontline/internal/telemetry"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
)

const (
	sweepInterval    = time.Minute
	followUpInterval = 30 * time.Second
	backfillInterval = 10 * time.Second
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the frontline API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	requestRepo := repository.NewRequestRepository(pool)
	knowledgeRepo := repository.NewKnowledgeRepository(pool)
	linkRepo := repository.NewLinkRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	// Keyword matching is always available; an embedding provider upgrades
	// lookups to semantic search with the keyword matcher as fallback.
	keywordMatcher := service.NewKeywordMatcher(knowledgeRepo, cfg.MatchThreshold, cfg.SearchLimit)
	var matcher service.Matcher = keywordMatcher

	var embeddingClient service.EmbeddingClient
	if cfg.HasOpenAI() {
		embeddingClient = openai.NewClient(cfg.OpenAIAPIKey)
		matcher = service.NewSemanticMatcher(knowledgeRepo, embeddingClient, cfg.MatchThreshold, keywordMatcher)
		log.Println("semantic matching enabled")
	}

	requestSvc := service.NewRequestService(requestRepo, knowledgeRepo, linkRepo, matcher, txRunner)

	var archive *storage.TranscriptArchive
	if cfg.HasS3() {
		archive, err = storage.NewTranscriptArchive(ctx, storage.TranscriptArchiveConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create transcript archive: %w", err)
		}
		if err := archive.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("transcript archive bucket '%s' ready", cfg.S3Bucket)
		requestSvc = requestSvc.WithTranscriptArchive(archive)
	}

	knowledgeSvc := service.NewKnowledgeService(knowledgeRepo)
	feedbackSvc := service.NewFeedbackService(knowledgeRepo, linkRepo)

	requestTimeout := time.Duration(cfg.RequestTimeoutHours) * time.Hour

	var archiveReader handlers.TranscriptArchive
	if archive != nil {
		archiveReader = archive
	}
	requestHandler := handlers.NewRequestHandler(requestSvc, archiveReader, requestTimeout)
	knowledgeHandler := handlers.NewKnowledgeHandler(knowledgeSvc, feedbackSvc, matcher)

	sweeper := jobs.NewWorker(jobs.NewTimeoutSweeper(requestSvc, requestTimeout), sweepInterval)
	go sweeper.Start(ctx)

	dispatcher := jobs.NewWorker(
		jobs.NewFollowUpDispatcher(requestRepo, jobs.LogNotifier{}, cfg.FollowUpMaxAttempts),
		followUpInterval,
	)
	go dispatcher.Start(ctx)

	var backfill *jobs.Worker
	if embeddingClient != nil {
		backfill = jobs.NewWorker(jobs.NewEmbeddingBackfill(knowledgeRepo, embeddingClient), backfillInterval)
		go backfill.Start(ctx)
		log.Println("embedding backfill worker started")
	}

	router := server.NewRouter(server.RouterConfig{
		RequestHandler:   requestHandler,
		KnowledgeHandler: knowledgeHandler,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	sweeper.Stop()
	dispatcher.Stop()
	if backfill != nil {
		backfill.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
