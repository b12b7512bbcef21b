package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"propdesk/internal/api"
	"propdesk/internal/config"
	"propdesk/internal/domain"
	"propdesk/internal/events"
	"propdesk/internal/logging"
	"propdesk/internal/metrics"
	"propdesk/internal/models"
	"propdesk/internal/notify"
	"propdesk/internal/otp"
	"propdesk/internal/repository"
	"propdesk/internal/service"

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

	seed, err := loadSeed(cfg, logger)
	if err != nil {
		return err
	}
	store := repository.NewMemoryStore(seed)

	redisClient := initRedis(cfg, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	issuer := initIssuer(cfg, redisClient, logger)

	eventBus := events.NewEventBus()
	eventBus.OnError(func(ev *events.Event, err error) {
		logger.Error().Err(err).Str("event", ev.Type).Str("event_id", ev.ID).Msg("event handler failed")
	})
	dispatcher := notify.NewDispatcher(
		notify.LogNotifier{Logger: logging.Component(logger, "notify")},
		store,
		notify.DefaultRetryPolicy(),
		logging.Component(logger, "dispatcher"),
	)
	dispatcher.Subscribe(eventBus)

	workflow := service.NewWorkflowService(store, issuer, eventBus, cfg.Workflow, logging.Component(logger, "workflow"))

	if !cfg.API.Enabled {
		logger.Warn().Msg("API is disabled in config, nothing to serve")
		return nil
	}
	httpServer := api.NewHTTPServer(cfg.API, workflow, workflow.SLAWindow(), logging.Component(logger, "http"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startMetrics(ctx, cfg, logger)

	return serve(ctx, httpServer, cfg, logger)
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}

	return cfg, logging.Component(baseLogger, "erp-main"), closer, nil
}

// loadSeed reads the seed file, falling back to the built-in demo data
// when none is configured or the file does not exist.
func loadSeed(cfg *config.Config, logger *zerolog.Logger) (models.Seed, error) {
	seedPath := os.Getenv("SEED_PATH")
	if seedPath == "" {
		seedPath = cfg.SeedPath
	}
	if seedPath == "" {
		logger.Info().Msg("no seed file configured, using demo data")
		return repository.DefaultSeed(), nil
	}

	data, err := os.ReadFile(seedPath)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn().Str("seed_path", seedPath).Msg("seed file not found, using demo data")
		return repository.DefaultSeed(), nil
	}
	if err != nil {
		logger.Error().Err(err).Str("seed_path", seedPath).Msg("read seed")
		return models.Seed{}, err
	}

	var seed models.Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		logger.Error().Err(err).Str("seed_path", seedPath).Msg("parse seed")
		return models.Seed{}, err
	}
	if err := config.ValidateSeed(seed); err != nil {
		return models.Seed{}, fmt.Errorf("seed %s: %w", seedPath, err)
	}

	logger.Info().
		Str("seed_path", seedPath).
		Int("brokers", len(seed.Brokers)).
		Int("customers", len(seed.Customers)).
		Int("properties", len(seed.Properties)).
		Msg("seed loaded")
	return seed, nil
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.OTP.Mode != config.OTPModeRandom || cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(context.Background(), redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, codes will be kept in memory until it recovers")
		return redisClient
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

func initIssuer(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) domain.CodeIssuer {
	if cfg.OTP.Mode != config.OTPModeRandom {
		logger.Info().Msg("otp mode demo, fixed code accepted")
		return otp.DemoIssuer{}
	}

	var store domain.CodeStore = repository.NewMemoryCodeStore()
	if redisClient != nil {
		store = repository.NewFailoverCodeStore(
			repository.NewRedisCodeStore(redisClient),
			store,
			logging.Component(logger, "code-store"),
		)
	}

	ttl := time.Duration(cfg.OTP.TTLHours) * time.Hour
	sender := otp.LogSender{Logger: logging.Component(logger, "otp")}
	logger.Info().Dur("ttl", ttl).Int("length", cfg.OTP.Length).Msg("otp mode random")
	return otp.NewRandomIssuer(store, sender, ttl, cfg.OTP.Length)
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

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Str("otp_mode", cfg.OTP.Mode).Msg("ERP server started")

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("ERP server stopped")
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
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
