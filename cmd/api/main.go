package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"appointly/internal/api"
	"appointly/internal/booking"
	"appointly/internal/bot"
	"appointly/internal/config"
	"appointly/internal/database"
	"appointly/internal/domain"
	"appointly/internal/events"
	"appointly/internal/export"
	"appointly/internal/google"
	"appointly/internal/logging"
	"appointly/internal/metrics"
	"appointly/internal/models"
	"appointly/internal/notify"
	"appointly/internal/repository"
	"appointly/internal/service"
	"appointly/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	if err := prepareDirectories(cfg, &logger); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := initDatabase(ctx, cfg, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient := initRedis(ctx, cfg, &logger)
	if redisClient != nil {
		defer (func() { _ = repository.Close(redisClient) })()
	}

	eventBus := events.NewEventBus(&logger)
	directory := service.NewDirectoryService(db, cfg.Scheduling.DirectoryCacheTTL, logging.Component(&logger, "directory"))
	if err := directory.Refresh(ctx); err != nil {
		logger.Warn().Err(err).Msg("directory preload failed")
	}

	tg := connectTelegram(cfg, &logger)
	reminders := initReminders(ctx, cfg, db, directory, tg, eventBus, &logger)
	initSheetsMirror(ctx, cfg, db, directory, eventBus, redisClient, &logger)

	pipeline := booking.NewPipeline(booking.NewValidator(cfg.Scheduling.Rules()))
	bookingService := service.NewBookingService(pipeline, db, reminders, eventBus, logging.Component(&logger, "bookings"))
	attendanceService := service.NewAttendanceService(db, eventBus, logging.Component(&logger, "attendance"))
	draftRepo := initDraftRepository(cfg, redisClient, &logger)
	draftService := service.NewDraftService(
		draftRepo,
		bookingService,
		cfg.Scheduling.DraftRateLimit,
		cfg.Scheduling.DraftRateWindow,
		logging.Component(&logger, "drafts"),
	)

	if cfg.Backup.Enabled {
		backupService := database.NewBackupService(db, cfg.Backup, logging.Component(&logger, "backup"))
		go backupService.Run(ctx)
	}

	startMetrics(ctx, cfg, &logger)

	if tg != nil && cfg.Telegram.PollUpdates {
		attendeeBot := bot.NewBot(tg, cfg.Telegram, directory, bookingService, attendanceService, draftRepo,
			bot.NewMetrics(nil), logging.Component(&logger, "bot"))
		eventBus.Subscribe(events.EventBookingSubmitted, attendeeBot.HandleBookingSubmitted())
		go attendeeBot.Start(ctx)
		defer attendeeBot.Stop()
	}

	if !cfg.API.Enabled {
		logger.Warn().Msg("API is disabled in config, but starting API application. Check your config.")
	}

	httpServer := api.NewHTTPServer(cfg.API, api.Services{
		Bookings:   bookingService,
		Attendance: attendanceService,
		Directory:  directory,
		Drafts:     draftService,
		Exporter:   export.NewExporter(directory, cfg.Exports.Path, logging.Component(&logger, "export")),
		Health:     db,
	}, logging.Component(&logger, "http"))

	return serve(ctx, httpServer, cfg, &logger)
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

func prepareDirectories(cfg *config.Config, logger *zerolog.Logger) error {
	if cfg.Database.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			logger.Error().Err(err).Msg("Ошибка создания директории для базы данных")
			return err
		}
	}
	if err := os.MkdirAll(cfg.Exports.Path, 0o755); err != nil {
		logger.Error().Err(err).Msg("Ошибка создания директории для экспорта")
		return err
	}
	return nil
}

func initDatabase(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return nil, err
	}

	if cfg.DirectoryFile == "" {
		return db, nil
	}
	snap, err := loadDirectory(cfg.DirectoryFile)
	if err != nil {
		db.Close()
		logger.Error().Err(err).Str("directory_file", cfg.DirectoryFile).Msg("load directory")
		return nil, err
	}
	if err := db.ImportDirectory(ctx, snap); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info().
		Int("employees", len(snap.Employees)).
		Int("clients", len(snap.Clients)).
		Int("services", len(snap.Services)).
		Msg("directory seeded")
	return db, nil
}

type seedEmployee struct {
	ID             string `yaml:"id"`
	Name           string `yaml:"name"`
	Email          string `yaml:"email"`
	TelegramChatID int64  `yaml:"telegram_chat_id"`
	Active         *bool  `yaml:"is_active"`
}

type seedClient struct {
	ID             string `yaml:"id"`
	Name           string `yaml:"name"`
	Phone          string `yaml:"phone"`
	TelegramChatID int64  `yaml:"telegram_chat_id"`
	Active         *bool  `yaml:"is_active"`
}

type seedService struct {
	ID              string `yaml:"id"`
	Name            string `yaml:"name"`
	DurationMinutes int    `yaml:"duration_minutes"`
	Active          *bool  `yaml:"is_active"`
}

// active: a record without is_active is active
func active(v *bool) bool {
	return v == nil || *v
}

func loadDirectory(path string) (models.DirectorySnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.DirectorySnapshot{}, err
	}

	var seed struct {
		Employees []seedEmployee `yaml:"employees"`
		Clients   []seedClient   `yaml:"clients"`
		Services  []seedService  `yaml:"services"`
	}
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return models.DirectorySnapshot{}, fmt.Errorf("parse %s: %w", path, err)
	}

	var snap models.DirectorySnapshot
	for _, e := range seed.Employees {
		snap.Employees = append(snap.Employees, models.Employee{
			ID: e.ID, Name: e.Name, Email: e.Email, TelegramChatID: e.TelegramChatID, IsActive: active(e.Active),
		})
	}
	for _, c := range seed.Clients {
		snap.Clients = append(snap.Clients, models.Client{
			ID: c.ID, Name: c.Name, Phone: c.Phone, TelegramChatID: c.TelegramChatID, IsActive: active(c.Active),
		})
	}
	for _, s := range seed.Services {
		snap.Services = append(snap.Services, models.Service{
			ID: s.ID, Name: s.Name, DurationMinutes: s.DurationMinutes, IsActive: active(s.Active),
		})
	}
	return snap, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = redisClient.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

func initDraftRepository(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) domain.DraftRepository {
	fallback := repository.NewMemoryDraftRepository(cfg.Scheduling.DraftTTL)
	if redisClient == nil {
		return fallback
	}
	primary := repository.NewRedisDraftRepository(redisClient, cfg.Scheduling.DraftTTL)
	return repository.NewFailoverDraftRepository(primary, fallback, logging.Component(logger, "drafts-repo"))
}

// connectTelegram returns nil when neither reminders nor the bot need Telegram
// or the Bot API is unreachable.
func connectTelegram(cfg *config.Config, logger *zerolog.Logger) *notify.BotWrapper {
	if !cfg.Reminders.Enabled && !cfg.Telegram.PollUpdates {
		return nil
	}
	tg, err := notify.NewBot(cfg.Telegram)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram unavailable")
		return nil
	}
	logger.Info().Str("bot", tg.GetSelf().UserName).Msg("telegram connected")
	return tg
}

// initReminders returns nil when reminders are off; bookings are then stored without one.
func initReminders(
	ctx context.Context,
	cfg *config.Config,
	db *database.DB,
	directory *service.DirectoryService,
	tg *notify.BotWrapper,
	bus *events.EventBus,
	logger *zerolog.Logger,
) domain.ReminderSender {
	if !cfg.Reminders.Enabled {
		return nil
	}

	var notifier domain.Notifier
	if tg == nil {
		logger.Warn().Msg("reminders go to the log")
		notifier = notify.NewLogNotifier(logging.Component(logger, "notify"))
	} else {
		notifier = notify.NewTelegramNotifier(tg, logging.Component(logger, "notify"))
	}

	reminderWorker := worker.NewReminderWorker(
		db, directory, notifier, bus,
		worker.PolicyFromConfig(cfg.Reminders),
		cfg.Reminders.QueueSize,
		logging.Component(logger, "reminders"),
	)
	go reminderWorker.Run(ctx)
	return reminderWorker
}

func initSheetsMirror(
	ctx context.Context,
	cfg *config.Config,
	db *database.DB,
	directory *service.DirectoryService,
	bus *events.EventBus,
	redisClient *redis.Client,
	logger *zerolog.Logger,
) {
	if !cfg.Google.Enabled() {
		return
	}

	sheetsService, err := google.NewSheetsService(ctx, cfg.Google.CredentialsFile, cfg.Google.BookingSpreadsheetID, cfg.Google.SheetName)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return
	}
	if err := sheetsService.TestConnection(ctx); err != nil {
		logger.Warn().Err(err).Msg("google sheets connection test failed, continuing without sheets")
		return
	}
	if err := sheetsService.WriteHeader(ctx); err != nil {
		logger.Warn().Err(err).Msg("write sheet header")
	}
	if err := sheetsService.WarmUpCache(ctx); err != nil {
		logger.Warn().Err(err).Msg("warm up sheet row cache")
	}

	retry := worker.RetryPolicy{MaxRetries: 5, InitialDelay: 2 * time.Second, MaxDelay: time.Minute, BackoffFactor: 2}
	sheetsWorker := worker.NewSheetsWorker(sheetsService, directory, redisClient, retry, logging.Component(logger, "sheets"))
	bus.Subscribe(events.EventBookingSubmitted, sheetsWorker.HandleBookingSubmitted(db))
	go sheetsWorker.Run(ctx)

	logger.Info().Msg("google sheets mirror started")
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func serve(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Msg("API server started")

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.API.HTTP.ShutdownTimeout)
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

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
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
