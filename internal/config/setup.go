package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// SaveConfig writes cfg to a TOML file readable only by its owner
func SaveConfig(cfg *Config) error {
	// Determine config path
	configPath := ConfigPath()

	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Create viper instance
	v := viper.New()
	v.SetConfigType("toml")

	// Save database URL directly (not nested keys)
	if cfg.DatabaseURL != "" {
		v.Set("database_url", cfg.DatabaseURL)
	}

	if cfg.Port != "" {
		v.Set("port", cfg.Port)
	}

	if cfg.DatabaseDriver != "" {
		v.Set("database_driver", cfg.DatabaseDriver)
	}
	if cfg.Aggregation != "" {
		v.Set("aggregation", cfg.Aggregation)
	}
	if cfg.MaxDepth > 0 {
		v.Set("max_depth", cfg.MaxDepth)
	}
	if cfg.OTelEndpoint != "" {
		v.Set("otel_endpoint", cfg.OTelEndpoint)
	}
	if cfg.TreeCacheTTL > 0 {
		v.Set("tree_cache_ttl", cfg.TreeCacheTTL.String())
	}
	if len(cfg.TrustedOrigins) > 0 {
		v.Set("trusted_origins", strings.Join(cfg.TrustedOrigins, ","))
	}

	// Write config file
	if err := v.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	// Set restrictive permissions (config contains database password)
	if err := os.Chmod(configPath, 0600); err != nil {
		return fmt.Errorf("failed to set config permissions: %w", err)
	}

	return nil
}

// ConfigPath returns the file SaveConfig writes to: ./orgoals.toml when it
// exists, otherwise the XDG config location.
func ConfigPath() string {
	if _, err := os.Stat("orgoals.toml"); err == nil {
		return "orgoals.toml"
	}
	if dir := configDir(); dir != "" {
		return filepath.Join(dir, "orgoals.toml")
	}
	return "orgoals.toml"
}

// DatabaseConfig holds the parts of a database URL.
type DatabaseConfig struct {
	Type     string // "postgres" or "sqlite"
	Host     string
	Port     int
	Name     string // database name, or file path for sqlite
	User     string
	Password string
	SSLMode  string
}

// ParseDatabaseURL splits a postgres:// or sqlite:// URL into its parts.
// Unparseable input yields the postgres defaults.
func ParseDatabaseURL(raw string) DatabaseConfig {
	cfg := DatabaseConfig{
		Type:    "postgres",
		Host:    "localhost",
		Port:    5432,
		SSLMode: "disable",
	}

	if path, ok := SQLitePath(raw); ok {
		return DatabaseConfig{Type: "sqlite", Name: path}
	}

	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
		return cfg
	}

	if u.User != nil {
		cfg.User = u.User.Username()
		cfg.Password, _ = u.User.Password()
	}
	if host := u.Hostname(); host != "" {
		cfg.Host = host
	}
	if port := u.Port(); port != "" {
		if n, err := strconv.Atoi(port); err == nil {
			cfg.Port = n
		}
	}
	cfg.Name = strings.TrimPrefix(u.Path, "/")
	if mode := u.Query().Get("sslmode"); mode != "" {
		cfg.SSLMode = mode
	}
	return cfg
}

// SQLitePath reports whether raw names a sqlite database and returns its
// file path. Accepted forms are sqlite://path, sqlite:path and file:path.
func SQLitePath(raw string) (string, bool) {
	for _, prefix := range []string{"sqlite://", "sqlite3://", "sqlite:", "file:"} {
		if strings.HasPrefix(raw, prefix) {
			return strings.TrimPrefix(raw, prefix), true
		}
	}
	return "", false
}

// BuildDatabaseURL is the inverse of ParseDatabaseURL.
func BuildDatabaseURL(cfg DatabaseConfig) string {
	if cfg.Type == "sqlite" {
		return "sqlite://" + cfg.Name
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 5432
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}

	u := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     "/" + cfg.Name,
		RawQuery: "sslmode=" + url.QueryEscape(cfg.SSLMode),
	}
	switch {
	case cfg.User != "" && cfg.Password != "":
		u.User = url.UserPassword(cfg.User, cfg.Password)
	case cfg.User != "":
		u.User = url.User(cfg.User)
	}
	return u.String()
}

// RedactDatabaseURL masks the password of a postgres URL for display.
func RedactDatabaseURL(raw string) string {
	if _, ok := SQLitePath(raw); ok || raw == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid database url>"
	}
	return u.Redacted()
}
