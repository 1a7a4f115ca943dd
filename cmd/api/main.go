package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"consultdesk/internal/api"
	"consultdesk/internal/auth"
	"consultdesk/internal/config"
	"consultdesk/internal/database"
	"consultdesk/internal/domain"
	"consultdesk/internal/events"
	"consultdesk/internal/google"
	"consultdesk/internal/logging"
	"consultdesk/internal/metrics"
	"consultdesk/internal/models"
	"consultdesk/internal/notify"
	"consultdesk/internal/postgres"
	"consultdesk/internal/repository"
	"consultdesk/internal/service"
	"consultdesk/internal/supabase"
	"consultdesk/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const identityCacheTTL = time.Minute

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	resyncSheets := flag.Bool("resync-sheets", false, "rewrite the spreadsheet mirror from the store on startup")
	flag.Parse()

	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, remote, err := openStore(ctx, cfg, &logger)
	if err != nil {
		return err
	}
	defer store.Close()

	redisClient := initRedis(ctx, cfg, &logger)
	if redisClient != nil {
		defer repository.Close(redisClient)
	}
	counters := initCounters(redisClient, &logger)

	if hosted, ok := store.(*supabase.Store); ok {
		hosted.UseCache(counters, models.DefaultCatalogCacheTTL*time.Second)
	}

	verifierOpts := auth.Options{JWTSecret: cfg.Supabase.JWTSecret, Cache: counters, CacheTTL: identityCacheTTL}
	if remote != nil {
		verifierOpts.Remote = remote
	}
	verifier := auth.NewVerifier(verifierOpts, &logger)
	if verifier == nil {
		return errors.New("no token verifier available: set supabase jwt_secret or url")
	}

	eventBus := events.NewEventBus()
	subscribeEvents(eventBus, &logger)
	initNotifier(cfg, eventBus, &logger)

	var syncWorker domain.SyncWorker
	if sheetsService := initGoogleSheets(ctx, cfg, &logger); sheetsService != nil {
		if *resyncSheets {
			resync(ctx, store, sheetsService, &logger)
		}
		go sheetsService.RefreshCache(ctx, time.Hour)

		w := worker.NewSheetsWorker(sheetsService, redisClient, worker.DefaultRetryPolicy(), &logger)
		go w.Start(ctx)
		syncWorker = w
	}

	services := api.Services{
		Users: service.NewUserService(store, &logger),
		Consultations: service.NewConsultationService(
			service.ConsultationStores{Users: store, Consultations: store, Availability: store},
			eventBus, syncWorker, &logger,
		),
		Availability: service.NewAvailabilityService(store, store, &logger),
		Stotras:      service.NewStotraService(store),
	}

	httpServer := api.NewHTTPServer(cfg.API, services, api.Options{
		Verifier:   verifier,
		RateLimits: counters,
		Ready:      store.Ping,
	}, &logger)

	startMetrics(ctx, cfg, &logger)

	return startServer(ctx, httpServer, cfg, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

// openStore opens the configured backend. The hosted client is returned as
// well when configured, for remote token verification.
func openStore(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (domain.Store, *supabase.Client, error) {
	var remote *supabase.Client
	if cfg.Supabase.URL != "" && cfg.Supabase.AnonKey != "" {
		remote = supabase.NewClient(cfg.Supabase, logger)
	}

	switch cfg.Store.Backend {
	case config.BackendSupabase:
		logger.Info().Str("url", cfg.Supabase.URL).Msg("using hosted store")
		return supabase.NewStore(remote), remote, nil
	case config.BackendPostgres:
		pg, err := postgres.Open(ctx, cfg.Database.Postgres, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		logger.Info().Msg("using postgres store")
		return pg, remote, nil
	default:
		db, err := database.NewDB(cfg.Database.Path, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		logger.Info().Str("db_path", cfg.Database.Path).Msg("using sqlite store")
		return db, remote, nil
	}
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	client := repository.NewRedisClient(cfg.Redis)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := repository.Ping(pingCtx, client); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = client.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return client
}

// initCounters backs rate limits and caches with redis when reachable and
// process memory otherwise.
func initCounters(client *redis.Client, logger *zerolog.Logger) domain.CounterRepository {
	memory := repository.NewMemoryRepository()
	if client == nil {
		return memory
	}
	return repository.NewFailoverRepository(repository.NewRedisRepository(client), memory, logger)
}

func subscribeEvents(bus *events.EventBus, logger *zerolog.Logger) {
	bus.OnError(func(e *events.Event, err error) {
		logger.Error().Err(err).Str("event_type", e.Type).Msg("event handler failed")
	})
	count := func(e *events.Event) error {
		metrics.IncConsultationEvent(e.Type)
		return nil
	}
	for _, t := range []string{
		events.EventConsultationCreated,
		events.EventConsultationCancelled,
		events.EventConsultationStatusChanged,
		events.EventConsultationPaid,
		events.EventSlotBooked,
	} {
		bus.Subscribe(t, count)
	}
}

func initNotifier(cfg *config.Config, bus *events.EventBus, logger *zerolog.Logger) {
	if cfg.Telegram.BotToken == "" {
		return
	}
	botAPI, err := notify.NewBotAPI(cfg.Telegram)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram init failed, continuing without notifications")
		return
	}
	notify.NewNotifier(botAPI, cfg.Telegram.AdminChatIDs, logger).Subscribe(bus)
	logger.Info().Str("bot", botAPI.Self.UserName).Int("chats", len(cfg.Telegram.AdminChatIDs)).Msg("telegram notifications enabled")
}

func initGoogleSheets(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *google.SheetsService {
	if cfg.Google.GoogleCredentialsFile == "" || cfg.Google.ConsultationsSpreadsheetID == "" {
		return nil
	}

	sheetsService, err := google.NewSheetsService(ctx, cfg.Google.GoogleCredentialsFile, cfg.Google.ConsultationsSpreadsheetID)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return nil
	}

	warmCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := sheetsService.WarmUpCache(warmCtx); err != nil {
		logger.Warn().Err(err).Msg("google sheets warm up failed")
	}

	logger.Info().Msg("google sheets connected")
	return sheetsService
}

func resync(ctx context.Context, store domain.Store, sheetsService *google.SheetsService, logger *zerolog.Logger) {
	list, err := store.GetAllConsultations(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("resync: list consultations")
		return
	}
	if err := sheetsService.ReplaceConsultationsSheet(ctx, list); err != nil {
		logger.Error().Err(err).Msg("resync: rewrite sheet")
		return
	}
	logger.Info().Int("rows", len(list)).Msg("spreadsheet mirror rewritten")
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func startServer(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Str("store", cfg.Store.Backend).Msg("API server started")

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
