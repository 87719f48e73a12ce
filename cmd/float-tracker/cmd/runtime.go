package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/donaldgifford/float-tracker/internal/api/handlers"
	"github.com/donaldgifford/float-tracker/internal/config"
	"github.com/donaldgifford/float-tracker/internal/csfloat"
	"github.com/donaldgifford/float-tracker/internal/dedup"
	"github.com/donaldgifford/float-tracker/internal/engine"
	"github.com/donaldgifford/float-tracker/internal/history"
	"github.com/donaldgifford/float-tracker/internal/notify"
	"github.com/donaldgifford/float-tracker/internal/rates"
	"github.com/donaldgifford/float-tracker/pkg/logger"
)

// runtime holds the wired components shared by serve and check.
type runtime struct {
	cfg       *config.Config
	log       *slog.Logger
	store     *history.Store
	limiter   *csfloat.RateLimiter
	rate      *rates.Rate
	refresher *rates.Refresher
	engine    *engine.Engine

	// checks are readiness probes for external dependencies.
	checks  map[string]handlers.PingFunc
	closers []func() error
}

type runtimeOptions struct {
	dryRun bool
}

func newLogger(cfg *config.Config) (*slog.Logger, io.Closer) {
	return logger.NewWithFile(cfg.Logging.Level, cfg.Logging.Format, logger.FileOptions{
		Path:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
}

func buildRuntime(
	ctx context.Context,
	cfg *config.Config,
	log *slog.Logger,
	opts runtimeOptions,
) (*runtime, error) {
	rt := &runtime{
		cfg:    cfg,
		log:    log,
		checks: map[string]handlers.PingFunc{},
	}

	backend, err := rt.openBackend(ctx, opts.dryRun)
	if err != nil {
		return nil, errors.Join(err, rt.Close())
	}
	if opts.dryRun {
		backend = readOnlyBackend{Backend: backend}
	}
	rt.store = history.Open(ctx, backend, history.WithLogger(log))

	rt.limiter = csfloat.NewRateLimiter(
		cfg.CSFloat.RateLimit.PerSecond,
		cfg.CSFloat.RateLimit.Burst,
		cfg.CSFloat.RateLimit.DailyLimit,
	)
	client := csfloat.NewListingsClient(cfg.CSFloat.Token,
		csfloat.WithBaseURL(cfg.CSFloat.BaseURL),
		csfloat.WithHTTPClient(&http.Client{Timeout: cfg.CSFloat.Timeout}),
		csfloat.WithRateLimiter(rt.limiter),
	)

	rt.rate = rates.NewRate(cfg.Exchange.DefaultRate)
	var provider rates.Provider = rates.StaticProvider{Value: cfg.Exchange.DefaultRate}
	if cfg.Exchange.AppID != "" {
		provider = rates.NewOpenExchangeRatesProvider(cfg.Exchange.AppID, cfg.Exchange.Currency,
			rates.WithBaseURL(cfg.Exchange.BaseURL),
		)
	}
	rt.refresher = rates.NewRefresher(rt.rate, provider, rates.WithLogger(log))

	var notifier notify.Notifier = notify.NewNoOpNotifier(log)
	if cfg.Notifications.Discord.Enabled && !opts.dryRun {
		notifier = notify.NewDiscordNotifier(cfg.Notifications.Discord.WebhookURL,
			notify.WithMention(cfg.Notifications.Discord.UserID),
			notify.WithCurrencySymbol(cfg.Exchange.Symbol),
		)
	}

	var reserver dedup.Reserver = dedup.Noop{}
	if cfg.Dedup.Redis.Enabled && !opts.dryRun {
		reserver = rt.openReserver(ctx)
	}

	rt.engine = engine.NewEngine(rt.store, client, notifier, rt.rate, cfg.Targets,
		engine.WithLogger(log),
		engine.WithStaggerOffset(cfg.Schedule.StaggerOffset),
		engine.WithReserver(reserver),
	)

	return rt, nil
}

func (rt *runtime) openBackend(ctx context.Context, dryRun bool) (history.Backend, error) {
	switch rt.cfg.History.Backend {
	case config.BackendPostgres:
		pg, err := history.NewPostgresBackend(ctx, rt.cfg.Database.DSN(),
			history.WithDocumentKey(rt.cfg.History.Key),
		)
		if err != nil {
			return nil, fmt.Errorf("connecting to history database: %w", err)
		}
		rt.closers = append(rt.closers, func() error { pg.Close(); return nil })
		if err := rt.prepareSchema(ctx, pg, dryRun); err != nil {
			return nil, err
		}
		rt.checks["history"] = pg.Ping
		rt.log.Info("history backend ready", "backend", "postgres", "host", rt.cfg.Database.Host)
		return pg, nil
	default:
		rt.log.Info("history backend ready", "backend", "file", "path", rt.cfg.History.Path)
		return history.NewFileBackend(rt.cfg.History.Path), nil
	}
}

// openReserver connects to Redis. An unreachable Redis is logged, not fatal:
// reservation errors fall back to sending.
func (rt *runtime) openReserver(ctx context.Context) *dedup.RedisReserver {
	rc := redis.NewClient(&redis.Options{
		Addr:     rt.cfg.Dedup.Redis.Addr,
		Password: rt.cfg.Dedup.Redis.Password,
		DB:       rt.cfg.Dedup.Redis.DB,
	})
	reserver := dedup.NewRedisReserver(rc, rt.cfg.Dedup.Redis.TTL)
	rt.closers = append(rt.closers, reserver.Close)
	rt.checks["redis"] = reserver.Ping

	if err := reserver.Ping(ctx); err != nil {
		rt.log.Warn("dedup redis unreachable, alerts will not be deduplicated until it recovers",
			"addr", rt.cfg.Dedup.Redis.Addr,
			"error", err,
		)
	}
	return reserver
}

// Close releases external connections in reverse order.
func (rt *runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		errs = append(errs, rt.closers[i]())
	}
	rt.closers = nil
	return errors.Join(errs...)
}

// readOnlyBackend loads the real history but discards writes.
type readOnlyBackend struct {
	history.Backend
}

func (readOnlyBackend) Save(context.Context, []byte) error { return nil }

type migrator interface {
	Migrate(ctx context.Context) ([]string, error)
}

// prepareSchema applies pending migrations. Dry runs leave the schema alone;
// a database that was never migrated then reads as empty history.
func (rt *runtime) prepareSchema(ctx context.Context, m migrator, dryRun bool) error {
	if dryRun {
		rt.log.Info("dry run, skipping history migrations")
		return nil
	}
	applied, err := m.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("migrating history database: %w", err)
	}
	if len(applied) > 0 {
		rt.log.Info("applied history migrations", "versions", applied)
	}
	return nil
}
