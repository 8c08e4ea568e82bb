package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/i474232898/weather-lookup/internal/logger"
)

// Geolocation providers selectable with GEO_PROVIDER.
const (
	GeoProviderIPAPI  = "ipapi"
	GeoProviderStatic = "static"
	GeoProviderNone   = "none"
)

type AppConfig struct {
	Port string `validate:"required,numeric"`

	OpenWeatherAPIKey  string
	OpenWeatherBaseURL string `validate:"omitempty,url"`
	Lang               string `validate:"required,max=5"`

	// HTTPTimeout bounds each outbound weather request.
	HTTPTimeout time.Duration `validate:"gt=0"`

	// GeoProvider selects the platform position source.
	GeoProvider string        `validate:"oneof=ipapi static none"`
	GeoIPAPIURL string        `validate:"omitempty,url"`
	GeoTimeout  time.Duration `validate:"gt=0"`
	StaticLat   float64       `validate:"latitude"`
	StaticLon   float64       `validate:"longitude"`

	// ProxyHeader is trusted only for requests from TrustedProxies.
	ProxyHeader    string   `validate:"omitempty,oneof=X-Forwarded-For X-Real-IP CF-Connecting-IP"`
	TrustedProxies []string `validate:"dive,cidr|ip"`

	// Session retention.
	SessionMaxCount      int           `validate:"gte=0"` // 0 = unlimited
	SessionMaxAge        time.Duration `validate:"gte=0"` // 0 = never evict
	SessionSweepInterval time.Duration `validate:"gt=0"`
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		logger.GetLogger().Infow("no .env file loaded", "error", err)
	}
	cfg := &AppConfig{}

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.OpenWeatherBaseURL = os.Getenv("OPENWEATHER_BASE_URL")
	cfg.Lang = getenvDefault("WEATHER_LANG", "en")

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}

	cfg.GeoProvider = strings.ToLower(getenvDefault("GEO_PROVIDER", GeoProviderIPAPI))
	cfg.GeoIPAPIURL = os.Getenv("GEO_IPAPI_URL")
	if cfg.GeoTimeout, err = getenvDuration("GEO_TIMEOUT", "8s"); err != nil {
		return nil, err
	}
	if cfg.GeoProvider == GeoProviderStatic {
		if cfg.StaticLat, err = getenvFloat("GEO_STATIC_LAT"); err != nil {
			return nil, err
		}
		if cfg.StaticLon, err = getenvFloat("GEO_STATIC_LON"); err != nil {
			return nil, err
		}
	}

	cfg.ProxyHeader = os.Getenv("PROXY_HEADER")
	cfg.TrustedProxies = getenvList("TRUSTED_PROXIES")

	cfg.SessionMaxCount = getenvInt("SESSION_MAX_COUNT", 1000)
	if cfg.SessionMaxAge, err = getenvDuration("SESSION_MAX_AGE", "30m"); err != nil {
		return nil, err
	}
	if cfg.SessionSweepInterval, err = getenvDuration("SESSION_SWEEP_INTERVAL", "5m"); err != nil {
		return nil, err
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

// getenvList splits a comma-separated value, dropping blanks.
func getenvList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getenvFloat(key string) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}
