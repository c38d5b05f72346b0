package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Amund211/advancements/internal/adapters/accountprovider"
	"github.com/Amund211/advancements/internal/adapters/accountrepository"
	"github.com/Amund211/advancements/internal/adapters/broadcast"
	"github.com/Amund211/advancements/internal/adapters/cache"
	"github.com/Amund211/advancements/internal/adapters/catalog"
	"github.com/Amund211/advancements/internal/adapters/completionstore"
	"github.com/Amund211/advancements/internal/adapters/database"
	"github.com/Amund211/advancements/internal/adapters/progress"
	"github.com/Amund211/advancements/internal/adapters/sidebar"
	"github.com/Amund211/advancements/internal/app"
	"github.com/Amund211/advancements/internal/config"
	"github.com/Amund211/advancements/internal/domain"
	"github.com/Amund211/advancements/internal/logging"
	"github.com/Amund211/advancements/internal/notification"
	"github.com/Amund211/advancements/internal/ports"
	"github.com/Amund211/advancements/internal/reporting"
	"github.com/Amund211/advancements/internal/scheduler"
	"github.com/Amund211/advancements/internal/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	// Mojang is reached over https, also from images without system roots
	_ "golang.org/x/crypto/x509roots/fallback"
)

const SERVICE_NAME = "advancements"

// newStores picks where completion counts and player names are kept
func newStores(ctx context.Context, conf config.Config, logger *slog.Logger) (completionstore.CompletionStore, accountrepository.AccountRepository, error) {
	switch conf.Store() {
	case config.StoreFile:
		store := completionstore.NewFileStore(conf.DataDir())
		logger.Info("Using file store", "path", store.Path())
		return store, accountrepository.NewMemory(), nil
	case config.StorePostgres:
		logger.Info("Initializing database connection")
		db, err := database.NewConfiguredPostgresDatabase(conf)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		logger.Info("Initialized database connection")

		schemaName := database.GetSchemaName(!conf.IsProduction())
		err = database.NewDatabaseMigrator(db, logger).Migrate(ctx, schemaName)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
		}

		logger.Info("Using postgres store", "schema", schemaName)
		return completionstore.NewPostgres(db, schemaName, time.Now), accountrepository.NewPostgres(db, schemaName), nil
	default:
		return nil, nil, fmt.Errorf("unknown store %s", conf.Store())
	}
}

func main() {
	instanceID := uuid.New().String()
	logger := slog.New(
		logging.NewTracingLogHandler(slog.NewJSONHandler(os.Stdout, nil)),
	).With("instanceID", instanceID)

	fail := func(msg string, args ...any) {
		logger.Error(msg, args...)
		os.Exit(1)
	}

	config, err := config.ConfigFromEnv()
	if err != nil {
		fail("Failed to load config", "error", err.Error())
	}
	logger.Info("Loaded config", "config", config.NonSensitiveString())

	ctx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	if !config.IsDevelopment() {
		shutdownOTel, err := telemetry.SetupOTelSDK(ctx, SERVICE_NAME)
		if err != nil {
			fail("Failed to initialize OpenTelemetry", "error", err.Error())
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownOTel(shutdownCtx); err != nil {
				logger.Error("Failed to shut down OpenTelemetry", "error", err.Error())
			}
		}()
		logger.Info("Initialized OpenTelemetry")
	}

	sentryMiddleware, flush, err := reporting.NewSentryMiddlewareOrMock(config)
	if err != nil {
		fail("Failed to initialize Sentry", "error", err.Error())
	}
	defer flush()
	logger.Info("Initialized Sentry middleware")

	// Background work (saves, broadcasts, name lookups) runs outside of requests
	// and must outlive the signal context so the final save can run
	backgroundCtx := reporting.WithHub(logging.AddToContext(context.WithoutCancel(ctx), logger))

	milestones, err := catalog.New(config.CatalogPath())
	if err != nil {
		fail("Failed to load milestone catalog", "error", err.Error(), "path", config.CatalogPath())
	}
	logger.Info("Loaded milestone catalog", "milestones", len(milestones.All()))

	store, accountRepo, err := newStores(backgroundCtx, config, logger)
	if err != nil {
		fail("Failed to initialize stores", "error", err.Error())
	}

	loop := scheduler.Start(backgroundCtx)

	httpClient := &http.Client{
		Timeout:   10 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	accountProvider := accountprovider.NewRateLimitedMojang(httpClient, time.Now)
	// Names rarely change, and a stale name on the sidebar is harmless
	accountByUUIDCache, stopAccountCache := cache.NewTTLCache[domain.Account]("accounts", 6*time.Hour)
	defer stopAccountCache()
	getAccountByUUID := app.BuildGetAccountByUUIDWithCache(accountByUUIDCache, accountProvider, accountRepo, time.Now)

	progressStore := progress.New(milestones, domain.HasDisplayCriterion)
	feed := broadcast.NewFeed(broadcast.DefaultFeedSize, logger)
	dispatcher := notification.New(
		loop,
		feed,
		notification.DefaultDelayTicks,
		config.PercentFormat(),
		time.Now,
		logger,
	)
	boards := sidebar.NewBoards()

	counter := app.NewCounter(
		loop,
		milestones,
		domain.HasDisplayCriterion,
		progressStore,
		store,
		dispatcher,
		boards,
		getAccountByUUID,
		accountRepo,
		app.BoardSettings{
			Capacity: config.BoardCapacity(),
			Format:   config.PercentFormat(),
		},
		config.SaveInterval(),
		time.Now,
		logger,
	)

	err = counter.Enable(backgroundCtx)
	if err != nil {
		fail("Failed to enable counter", "error", err.Error())
	}

	lookupCriteria := app.BuildLookupCriteria(milestones, domain.HasDisplayCriterion, progressStore)
	completeMilestones := app.BuildCompleteMilestones(milestones, domain.HasDisplayCriterion)

	mux := http.NewServeMux()

	mux.HandleFunc(
		"POST /v1/events/join",
		ports.MakeJoinHandler(counter.PlayerJoin, logger.With("port", "join"), sentryMiddleware),
	)
	mux.HandleFunc(
		"POST /v1/events/quit",
		ports.MakeQuitHandler(counter.PlayerQuit, logger.With("port", "quit"), sentryMiddleware),
	)
	mux.HandleFunc(
		"POST /v1/events/criterion",
		ports.MakeCriterionHandler(counter.CriterionGranted, logger.With("port", "criterion"), sentryMiddleware),
	)

	mux.HandleFunc(
		"GET /v1/leaderboard",
		ports.MakeLeaderboardHandler(counter.Leaderboard, logger.With("port", "leaderboard"), sentryMiddleware),
	)
	mux.HandleFunc(
		"GET /v1/sidebar/{uuid}",
		ports.MakeSidebarHandler(boards, logger.With("port", "sidebar"), sentryMiddleware),
	)
	mux.HandleFunc(
		"GET /v1/criteria/{advancement...}",
		ports.MakeCriteriaHandler(lookupCriteria, logger.With("port", "criteria"), sentryMiddleware),
	)
	mux.HandleFunc(
		"GET /v1/criteria",
		ports.MakeCompleteCriteriaHandler(completeMilestones, logger.With("port", "completecriteria"), sentryMiddleware),
	)
	mux.HandleFunc(
		"GET /v1/broadcasts",
		ports.MakeBroadcastsHandler(feed, logger.With("port", "broadcasts"), sentryMiddleware),
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", config.Port()),
		Handler:           otelhttp.NewHandler(mux, SERVICE_NAME),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Failed to shut down server", "error", err.Error())
		}
	}()

	logger.Info("Init complete")
	err = server.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		fail("Server error", "error", err.Error())
	}

	disableCtx, cancel := context.WithTimeout(backgroundCtx, 30*time.Second)
	defer cancel()
	err = counter.Disable(disableCtx)
	if err != nil {
		logger.Error("Failed to disable counter", "error", err.Error())
	}

	loop.Stop()
	<-loop.Done()
	logger.Info("Server shutdown")
}
