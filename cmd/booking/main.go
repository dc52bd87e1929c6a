package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookingclient/internal/api"
	"bookingclient/internal/availability"
	"bookingclient/internal/booking"
	"bookingclient/internal/config"
	"bookingclient/internal/events"
	"bookingclient/internal/facilities"
	"bookingclient/internal/metrics"
	"bookingclient/internal/mybookings"
	"bookingclient/internal/session"
	"bookingclient/internal/storage"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// app wires the client components for one CLI invocation.
type app struct {
	cfg    *config.Config
	logger *zerolog.Logger

	rdb     *redis.Client
	store   storage.Store
	bus     *events.EventBus
	client  *api.Client
	session *session.Store
	guard   *session.Guard

	facilities   *facilities.Store
	availability *availability.Manager
	submitter    *booking.Submitter
	workflow     *booking.Workflow
	bookings     *mybookings.Manager
}

func main() {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn().Err(err).Msg("failed to load .env")
	}

	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Usage = usage
	flag.Parse()
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load(os.Getenv("BOOKING_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("init error")
	}
	defer a.close()

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	if err := a.run(ctx, flag.Arg(0), flag.Args()[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		a.close()
		os.Exit(1)
	}
}

func newApp(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	if cfg.Redis.Address != "" {
		a.rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	}

	st, err := storage.Open(storage.Options{
		Driver:       cfg.Storage.Driver,
		Path:         cfg.Storage.Path,
		Namespace:    cfg.Storage.Namespace,
		Redis:        a.rdb,
		FallbackPath: cfg.Storage.FallbackPath,
		Logger:       logger,
	})
	if err != nil {
		a.close()
		return nil, fmt.Errorf("open storage: %w", err)
	}
	a.store = st

	a.bus = events.NewEventBus(logger)
	a.client = api.NewClient(cfg.API.BaseURL, cfg.Timeout(), logger)
	a.client.ShareRefresh(cfg.SharedRefresh())
	if cfg.API.RateLimitPerSecond > 0 {
		a.client.UseRateLimit(cfg.API.RateLimitPerSecond, cfg.API.RateBurst)
	}
	if a.rdb != nil && cfg.CacheTTL() > 0 {
		a.client.UseRedisCache(a.rdb, cfg.CacheTTL())
	}

	a.session = session.NewStore(st, a.client, a.bus, logger)
	a.client.UseCredentials(a.session)
	a.guard = session.NewGuard(a.session)

	a.facilities = facilities.NewStore(a.client, cfg.Facilities.DetailConcurrency, logger)
	a.availability = availability.NewManager(a.client, logger)
	a.submitter = booking.NewSubmitter(a.client, logger)
	a.workflow = booking.NewWorkflow(a.availability, a.submitter, a.bus, logger)
	a.bookings = mybookings.NewManager(a.client, cfg.Bookings.PageSize, logger)
	a.bookings.Attach(ctx, a.bus)

	a.bus.Subscribe(events.LoggedOut, func(e events.Event) error {
		if e.Payload == "forced" {
			logger.Warn().Msg("session expired, please log in again")
		}
		return nil
	})

	state := a.session.Restore(ctx)
	logger.Debug().Str("state", string(state)).Msg("session restored")
	return a, nil
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("close storage")
		}
		a.store = nil
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
		a.rdb = nil
	}
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

func usage() {
	fmt.Fprint(os.Stderr, `usage: booking [-debug] <command> [args]

commands:
  login -email E -password P
  register -name N -email E -password P
  logout
  whoami
  facilities [search]
  facility <id>
  availability <facility-id> <YYYY-MM-DD>
  book [-notes N] <facility-id> <YYYY-MM-DD> <hour>
  bookings [-status booked|cancelled] [-sort asc|desc] [-pages N]
  cancel <booking-id>
  export [-pages N] <file.xlsx>
  backup
  health
`)
}
