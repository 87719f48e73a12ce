package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humaecho"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/donaldgifford/float-tracker/internal/api/handlers"
	mw "github.com/donaldgifford/float-tracker/internal/api/middleware"
	"github.com/donaldgifford/float-tracker/internal/config"
	"github.com/donaldgifford/float-tracker/internal/console"
	"github.com/donaldgifford/float-tracker/internal/engine"
	"github.com/donaldgifford/float-tracker/internal/telemetry"
)

const shutdownTimeout = 30 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the poller, scheduler, and reporting API",
		RunE:  runServe,
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log, logCloser := newLogger(cfg)
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Setup(ctx, telemetry.Options{
		Enabled:        cfg.Telemetry.Enabled,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: Version,
		ExportInterval: cfg.Telemetry.ExportInterval,
	})
	if err != nil {
		return fmt.Errorf("setting up telemetry: %w", err)
	}

	rt, err := buildRuntime(ctx, cfg, log, runtimeOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			log.Error("closing connections", "error", err)
		}
	}()

	if err := rt.refresher.Refresh(ctx); err != nil {
		log.Warn("initial exchange rate refresh failed, using default", "rate", rt.rate.Get(), "error", err)
	}

	// A static rate never changes, so only a live provider is scheduled.
	var refresher engine.RateRefresher
	if cfg.Exchange.AppID != "" {
		refresher = rt.refresher
	}
	sched, err := engine.NewScheduler(rt.engine, refresher,
		cfg.Schedule.PollInterval, cfg.Exchange.RefreshInterval, log)
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}

	e := newServer(rt)
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	go func() {
		log.Info("starting server", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	log.Info("watching targets", "count", len(cfg.Targets), "poll_interval", cfg.Schedule.PollInterval)
	sched.Start()

	if cfg.Console.Enabled {
		go func() {
			report := func() string {
				st := rt.engine.Stats(24 * time.Hour)
				return engine.FormatStats(&st, cfg.Exchange.Symbol)
			}
			src := console.NewLineSource(os.Stdin)
			defer src.Close()
			if err := console.Listen(ctx, src, os.Stdout, report, log); err != nil {
				log.Warn("console listener stopped", "error", err)
			}
		}()
	}

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutting down server", "error", err)
	}

	select {
	case <-sched.Stop().Done():
	case <-shutdownCtx.Done():
		log.Warn("timed out waiting for the running cycle")
	}

	if err := rt.store.Persist(shutdownCtx); err != nil {
		log.Error("final history persist failed", "error", err)
	}

	if err := shutdownTelemetry(shutdownCtx); err != nil {
		log.Warn("flushing telemetry", "error", err)
	}

	log.Info("stopped")
	return nil
}

func newServer(rt *runtime) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(mw.Recovery(rt.log), mw.RequestLog(rt.log), mw.Metrics())

	health := handlers.NewHealthHandler()
	for name, check := range rt.checks {
		health.AddCheck(name, check)
	}
	handlers.RegisterHealthRoutes(e, health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := humaecho.New(e, huma.DefaultConfig("float-tracker API", Version))
	handlers.RegisterStatsRoutes(api, handlers.NewStatsHandler(rt.engine, rt.cfg.Exchange.Symbol))
	handlers.RegisterTargetsRoutes(api, handlers.NewTargetsHandler(rt.engine))
	handlers.RegisterHistoryRoutes(api, handlers.NewHistoryHandler(rt.store))
	handlers.RegisterStatusRoutes(api, handlers.NewStatusHandler(rt.engine))
	handlers.RegisterQuotaRoutes(api, handlers.NewQuotaHandler(rt.limiter))

	return e
}
