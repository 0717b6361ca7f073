// Package config reads the service configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/TomasB/hostgeo/internal/geo"
	"github.com/TomasB/hostgeo/internal/icon"
	"github.com/TomasB/hostgeo/internal/resolver"
	"github.com/TomasB/hostgeo/internal/tab"
)

// Geo backends.
const (
	BackendAPI  = "api"
	BackendMMDB = "mmdb"
)

// Config holds the service settings.
type Config struct {
	LogLevel     slog.Level
	Port         string
	GRPCPort     string
	GeoBackend   string
	GeoAPIBase   string
	MMDBPath     string
	GoogleDoHURL string
	AliDNSURL    string
	FlagBaseURL  string
	MaxTabs      int
	HTTPTimeout  time.Duration
}

// Load reads the configuration using getenv, usually os.Getenv.
func Load(getenv func(string) string) (*Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	get := func(key, def string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		LogLevel:     ParseLogLevel(getenv("LOG_LEVEL")),
		Port:         get("PORT", "8080"),
		GRPCPort:     getenv("GRPC_PORT"),
		GeoBackend:   get("GEO_BACKEND", BackendAPI),
		GeoAPIBase:   get("GEO_API_BASE", geo.DefaultAPIBase),
		MMDBPath:     getenv("MMDB_PATH"),
		GoogleDoHURL: get("GOOGLE_DOH_URL", resolver.DefaultGoogleURL),
		AliDNSURL:    get("ALIDNS_DOH_URL", resolver.DefaultAliDNSURL),
		FlagBaseURL:  get("FLAG_BASE_URL", icon.DefaultFlagBase),
		MaxTabs:      tab.DefaultMaxTabs,
	}

	if v := getenv("MAX_TABS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid MAX_TABS %q", v)
		}
		cfg.MaxTabs = n
	}

	if v := getenv("HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return nil, fmt.Errorf("invalid HTTP_TIMEOUT %q", v)
		}
		cfg.HTTPTimeout = d
	}

	switch cfg.GeoBackend {
	case BackendAPI:
	case BackendMMDB:
		if cfg.MMDBPath == "" {
			return nil, fmt.Errorf("MMDB_PATH environment variable is required for the %s backend", BackendMMDB)
		}
	default:
		return nil, fmt.Errorf("invalid GEO_BACKEND %q", cfg.GeoBackend)
	}

	return cfg, nil
}

// ParseLogLevel converts string log level to slog.Level
func ParseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
