package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds runtime settings.
type Config struct {
	DatabaseURL    string        // empty selects the in-memory store
	DatabaseDriver string        // "postgres" (lib/pq) or "pgx"; sqlite URLs ignore it
	Port           string        // HTTP listen port
	TrustedOrigins []string      // CORS allow-list
	Aggregation    string        // aggregation policy name
	MaxDepth       int           // hierarchy walk bound
	OTelEndpoint   string        // OTLP/HTTP traces endpoint, empty disables tracing
	TreeCacheTTL   time.Duration // org tree response cache lifetime
}

type setting struct {
	key string
	env string
	def any
}

var settings = []setting{
	{"database_url", "DATABASE_URL", ""},
	{"database_driver", "ORGOALS_DATABASE_DRIVER", "postgres"},
	{"port", "PORT", "3000"},
	{"trusted_origins", "TRUSTED_ORIGINS", ""},
	{"aggregation", "ORGOALS_AGGREGATION", "sum"},
	{"max_depth", "ORGOALS_MAX_DEPTH", 256},
	{"otel_endpoint", "ORGOALS_OTEL_ENDPOINT", ""},
	{"tree_cache_ttl", "ORGOALS_TREE_CACHE_TTL", "30s"},
}

// Load reads configuration from the config file, then the environment, then
// defaults. A key present in the config file wins over its env variable.
func Load() (*Config, error) {
	return LoadWithOverrides("", "", "")
}

// LoadWithOverrides is Load with non-empty flag values taking precedence.
func LoadWithOverrides(databaseURL, port, aggregation string) (*Config, error) {
	file := newBaseViper()
	if err := file.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	env := viper.New()
	for _, s := range settings {
		env.SetDefault(s.key, s.def)
		if err := env.BindEnv(s.key, s.env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", s.env, err)
		}
	}

	get := func(key string) *viper.Viper {
		if file.IsSet(key) {
			return file
		}
		return env
	}

	cfg := &Config{
		DatabaseURL:    get("database_url").GetString("database_url"),
		DatabaseDriver: strings.ToLower(get("database_driver").GetString("database_driver")),
		Port:           get("port").GetString("port"),
		TrustedOrigins: parseTrustedOrigins(get("trusted_origins").GetString("trusted_origins")),
		Aggregation:    strings.ToLower(get("aggregation").GetString("aggregation")),
		MaxDepth:       get("max_depth").GetInt("max_depth"),
		OTelEndpoint:   get("otel_endpoint").GetString("otel_endpoint"),
		TreeCacheTTL:   get("tree_cache_ttl").GetDuration("tree_cache_ttl"),
	}

	if databaseURL != "" {
		cfg.DatabaseURL = databaseURL
	}
	if port != "" {
		cfg.Port = port
	}
	if aggregation != "" {
		cfg.Aggregation = strings.ToLower(aggregation)
	}

	if cfg.MaxDepth <= 0 {
		return nil, fmt.Errorf("max_depth must be positive, got %d", cfg.MaxDepth)
	}
	switch cfg.DatabaseDriver {
	case "postgres", "pgx":
	default:
		return nil, fmt.Errorf("unknown database_driver %q (valid: postgres, pgx)", cfg.DatabaseDriver)
	}

	return cfg, nil
}

// newBaseViper returns a viper instance searching the working directory and
// the XDG config directory for orgoals.toml.
func newBaseViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName("orgoals")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	if dir := configDir(); dir != "" {
		v.AddConfigPath(dir)
	}
	return v
}

func configDir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		if home, err := os.UserHomeDir(); err == nil {
			configHome = filepath.Join(home, ".config")
		}
	}
	if configHome == "" {
		return ""
	}
	return filepath.Join(configHome, "orgoals")
}

// parseTrustedOrigins splits a comma separated origin list, normalizing case
// and trailing slashes.
func parseTrustedOrigins(raw string) []string {
	origins := []string{}
	for _, part := range strings.Split(raw, ",") {
		origin := strings.ToLower(strings.TrimSpace(part))
		origin = strings.TrimRight(origin, "/")
		if origin == "" {
			continue
		}
		origins = append(origins, origin)
	}
	return origins
}
