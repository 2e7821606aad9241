package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"time"

	"github.com/SscSPs/txn_ingest/internal/adapters/bankfeed"
	"github.com/SscSPs/txn_ingest/internal/adapters/gcs"
	"github.com/SscSPs/txn_ingest/internal/adapters/gemini"
	"github.com/SscSPs/txn_ingest/internal/adapters/gmail"
	"github.com/SscSPs/txn_ingest/internal/core/services"
	"github.com/SscSPs/txn_ingest/internal/handlers"
	"github.com/SscSPs/txn_ingest/internal/middleware"
	"github.com/SscSPs/txn_ingest/internal/platform/config"
	"github.com/SscSPs/txn_ingest/internal/repositories/database/pgsql"
	"github.com/SscSPs/txn_ingest/internal/utils"
	"github.com/SscSPs/txn_ingest/pkg/database"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// @title Transaction Ingest API
// @version 1.0
// @description Imports bank, card and statement transactions into a review queue.

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @security BearerAuth
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx := context.Background()

	dbPool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, cfg.EnableDBCheck)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer dbPool.Close()
	logger.Info("Database connection pool established.")

	if err := runMigrations(cfg.DatabaseURL, logger); err != nil {
		logger.Error("Failed to apply migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	collab, closeCollab, err := buildCollaborators(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize collaborators", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeCollab()

	repos := pgsql.NewRepositoryProvider(dbPool)
	serviceContainer := services.NewServiceContainer(cfg, repos, collab)

	posthogClient := utils.NewAnalyticsClient(cfg.PosthogAPIKey, cfg.PosthogEndpoint, logger)
	defer posthogClient.Close()

	rateLimiter, err := middleware.NewRateLimiter(cfg.RateLimit)
	if err != nil {
		logger.Error("Invalid rate limit", slog.String("rate", cfg.RateLimit), slog.String("error", err.Error()))
		os.Exit(1)
	}

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(
		middleware.StructuredLoggingMiddleware(logger),
		gin.Recovery(),
		middleware.MetricsMiddleware(),
		middleware.RateLimit(rateLimiter),
		middleware.PosthogMiddleware(posthogClient),
	)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSAllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	handlers.RegisterRoutes(r, cfg, serviceContainer, middleware.NewPosthogTracker(posthogClient))

	logger.Info("Server starting", slog.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Error("Server failed to run", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// runMigrations applies all pending "up" migrations from ./migrations over a
// temporary database/sql connection.
func runMigrations(databaseURL string, logger *slog.Logger) error {
	logger.Info("Running database migrations...")
	migrationDB, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := migrationDB.Close(); cerr != nil {
			logger.Error("Error closing migration DB connection", slog.String("error", cerr.Error()))
		}
	}()
	if err := migrationDB.Ping(); err != nil {
		return err
	}

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
	if err != nil {
		return err
	}

	upErr := m.Up()
	if upErr != nil && upErr != migrate.ErrNoChange {
		return upErr
	}
	sourceErr, dbErr := m.Close()
	if sourceErr != nil {
		return sourceErr
	}
	if dbErr != nil {
		return dbErr
	}

	if upErr == migrate.ErrNoChange {
		logger.Info("No new migrations to apply.")
	} else {
		logger.Info("Database migrations applied successfully.")
	}
	return nil
}

// buildCollaborators creates only the external clients that are configured.
// Unset collaborators stay nil interfaces so the services can detect them.
func buildCollaborators(ctx context.Context, cfg *config.Config, logger *slog.Logger) (services.Collaborators, func(), error) {
	var collab services.Collaborators
	var closers []func()
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	var rules *services.RuleCategorizer
	if cfg.CategoryRulesPath != "" {
		loaded, err := services.LoadRuleCategorizer(cfg.CategoryRulesPath)
		if err != nil {
			return collab, closeAll, err
		}
		rules = loaded
		logger.Info("Category rules loaded", slog.String("path", cfg.CategoryRulesPath))
	}

	var ai *gemini.Client
	if cfg.GeminiAPIKey != "" {
		client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, gemini.WithCategories(rules.Categories()))
		if err != nil {
			return collab, closeAll, err
		}
		ai = client
		collab.Text = client
		collab.Vision = client
		logger.Info("Gemini extraction enabled", slog.String("model", cfg.GeminiModel))
	}

	switch {
	case rules != nil && ai != nil:
		collab.Categorizer = services.ChainCategorizers(rules, ai)
	case rules != nil:
		collab.Categorizer = rules
	case ai != nil:
		collab.Categorizer = ai
	}

	if cfg.ArchiveBucket != "" {
		archive, err := gcs.NewArchive(ctx, cfg.ArchiveBucket)
		if err != nil {
			return collab, closeAll, err
		}
		closers = append(closers, func() {
			if err := archive.Close(); err != nil {
				logger.Warn("Failed to close storage client", slog.String("error", err.Error()))
			}
		})
		collab.Archive = archive
		logger.Info("Document archive enabled", slog.String("bucket", cfg.ArchiveBucket))
	}

	if cfg.GmailRefreshToken != "" {
		mailbox, err := gmail.NewMailbox(ctx, gmail.Config{
			ClientID:       cfg.GoogleClientID,
			ClientSecret:   cfg.GoogleClientSecret,
			RefreshToken:   cfg.GmailRefreshToken,
			ProcessedLabel: cfg.GmailProcessedTag,
		})
		if err != nil {
			return collab, closeAll, err
		}
		collab.Mailbox = mailbox
	}

	if cfg.BankFeedBaseURL != "" {
		collab.BankFeed = bankfeed.NewClient(cfg.BankFeedBaseURL, cfg.BankFeedAPIKey)
	}

	return collab, closeAll, nil
}
