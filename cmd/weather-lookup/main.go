package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpapi "github.com/i474232898/weather-lookup/internal/api/http"
	"github.com/i474232898/weather-lookup/internal/config"
	"github.com/i474232898/weather-lookup/internal/geolocation"
	"github.com/i474232898/weather-lookup/internal/logger"
	"github.com/i474232898/weather-lookup/internal/lookup"
	"github.com/i474232898/weather-lookup/internal/metrics"
	"github.com/i474232898/weather-lookup/internal/scheduler"
	"github.com/i474232898/weather-lookup/internal/store"
	"github.com/i474232898/weather-lookup/internal/weather"
	"github.com/i474232898/weather-lookup/internal/weather/providers"
)

func main() {
	logger.InitLogger()
	log := logger.GetLogger()
	defer func() { _ = logger.Close() }()

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalw("failed to load config", "error", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.New(reg)

	// Shared HTTP client for outbound weather calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	gateway := providers.NewOpenWeatherGateway(httpClient, providers.OpenWeatherConfig{
		APIKey:  cfg.OpenWeatherAPIKey,
		BaseURL: cfg.OpenWeatherBaseURL,
		Lang:    cfg.Lang,
	})
	if cfg.OpenWeatherAPIKey == "" {
		log.Warnw("OPENWEATHER_API_KEY is not set; every weather fetch will fail")
	}

	source := positionSource(cfg, httpClient)

	// Each session gets its own resolver so last-known coordinates and
	// errors never leak between clients.
	newOrchestrator := func() *lookup.Orchestrator {
		o := lookup.New(
			geolocation.NewResolver(source, geolocation.WithTimeout(cfg.GeoTimeout)),
			gateway,
			lookup.WithMetrics(rec),
		)
		o.Subscribe(func(st lookup.State) {
			log.Debugw("lookup state changed", "status", st.Status, "loading", st.IsLoading)
		})
		return o
	}

	sessions := store.NewMemoryStore(cfg.SessionMaxCount, cfg.SessionMaxAge)

	// Janitor evicting idle sessions.
	sched := scheduler.New(sessions, cfg.SessionSweepInterval, rec)
	if err := sched.Start(); err != nil {
		log.Fatalw("failed to start scheduler", "error", err)
	}
	defer sched.Stop()

	app := httpapi.NewApp(httpapi.ServerConfig{
		ReadTimeout: 10 * time.Second,
		// Covers the location query plus the weather request.
		WriteTimeout:   cfg.GeoTimeout + cfg.HTTPTimeout + 5*time.Second,
		ProxyHeader:    cfg.ProxyHeader,
		TrustedProxies: cfg.TrustedProxies,
	})
	if cfg.ProxyHeader != "" && len(cfg.TrustedProxies) == 0 {
		log.Warnw("PROXY_HEADER is set without TRUSTED_PROXIES; forwarded addresses are ignored",
			"header", cfg.ProxyHeader)
	}

	app.Use(fiberlogger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-lookup",
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	httpapi.RegisterRoutes(app, sessions, newOrchestrator)

	go func() {
		log.Infow("weather-lookup started", "port", cfg.Port, "geoProvider", cfg.GeoProvider)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Errorw("fiber server stopped", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Errorw("error during shutdown", "error", err)
	}
}

// positionSource returns nil when location lookups are disabled, which the
// resolver reports as GEOLOCATION_UNAVAILABLE.
func positionSource(cfg *config.AppConfig, client *http.Client) geolocation.PositionSource {
	switch cfg.GeoProvider {
	case config.GeoProviderStatic:
		return geolocation.StaticSource{Coords: weather.Coordinates{Lat: cfg.StaticLat, Lon: cfg.StaticLon}}
	case config.GeoProviderNone:
		return nil
	default:
		return geolocation.NewIPAPISource(client, cfg.GeoIPAPIURL)
	}
}
