package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/seuros/orgoals/internal/config"
	"github.com/seuros/orgoals/internal/propagation"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or write the orgoals configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file",
	Long: `Write orgoals.toml with the current settings plus any flags given.

The database URL comes from --database-url, or is assembled from the --db-*
flags when --db-name is set.

Examples:
  orgoals config init --database-url sqlite:///var/lib/orgoals/orgoals.db
  orgoals config init --db-host localhost --db-name orgoals --db-user app --db-password secret
  orgoals config init --aggregation average --trusted-origins https://org.example.com`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConfigInit()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConfigShow(configShowFormat)
	},
}

var (
	initDB             config.DatabaseConfig
	initPort           string
	initDriver         string
	initTrustedOrigins string
	initOTelEndpoint   string
	initMaxDepth       int
	initTreeCacheTTL   time.Duration
	configShowFormat   string
)

func runConfigInit() error {
	cfg, err := loadConfig(initPort)
	if err != nil {
		return err
	}
	if flagDatabaseURL == "" && initDB.Name != "" {
		cfg.DatabaseURL = config.BuildDatabaseURL(initDB)
	}
	if initDriver != "" {
		cfg.DatabaseDriver = strings.ToLower(initDriver)
	}
	if initTrustedOrigins != "" {
		cfg.TrustedOrigins = strings.Split(initTrustedOrigins, ",")
	}
	if initOTelEndpoint != "" {
		cfg.OTelEndpoint = initOTelEndpoint
	}
	if initMaxDepth > 0 {
		cfg.MaxDepth = initMaxDepth
	}
	if initTreeCacheTTL > 0 {
		cfg.TreeCacheTTL = initTreeCacheTTL
	}
	if _, err := propagation.PolicyByName(cfg.Aggregation); err != nil {
		return err
	}

	if err := config.SaveConfig(cfg); err != nil {
		return err
	}
	fmt.Printf("Configuration written to %s\n", config.ConfigPath())
	return nil
}

// shownConfig is the printable view of a Config with the password redacted.
type shownConfig struct {
	ConfigFile     string   `json:"config_file" yaml:"config_file"`
	Store          string   `json:"store" yaml:"store"`
	DatabaseURL    string   `json:"database_url" yaml:"database_url"`
	DatabaseDriver string   `json:"database_driver" yaml:"database_driver"`
	Port           string   `json:"port" yaml:"port"`
	TrustedOrigins []string `json:"trusted_origins" yaml:"trusted_origins"`
	Aggregation    string   `json:"aggregation" yaml:"aggregation"`
	MaxDepth       int      `json:"max_depth" yaml:"max_depth"`
	OTelEndpoint   string   `json:"otel_endpoint" yaml:"otel_endpoint"`
	TreeCacheTTL   string   `json:"tree_cache_ttl" yaml:"tree_cache_ttl"`
}

func runConfigShow(formatFlag string) error {
	format, err := resolveFormat(formatFlag)
	if err != nil {
		return err
	}
	cfg, err := loadConfig("")
	if err != nil {
		return err
	}

	shown := shownConfig{
		ConfigFile:     config.ConfigPath(),
		Store:          "memory",
		DatabaseURL:    config.RedactDatabaseURL(cfg.DatabaseURL),
		DatabaseDriver: cfg.DatabaseDriver,
		Port:           cfg.Port,
		TrustedOrigins: cfg.TrustedOrigins,
		Aggregation:    cfg.Aggregation,
		MaxDepth:       cfg.MaxDepth,
		OTelEndpoint:   cfg.OTelEndpoint,
		TreeCacheTTL:   cfg.TreeCacheTTL.String(),
	}
	if cfg.DatabaseURL != "" {
		shown.Store = config.ParseDatabaseURL(cfg.DatabaseURL).Type
	}
	if shown.TrustedOrigins == nil {
		shown.TrustedOrigins = []string{}
	}

	if format != "table" {
		return printStructured(os.Stdout, format, shown)
	}

	w := newTable()
	_, _ = fmt.Fprintf(w, "Config file:\t%s\n", shown.ConfigFile)
	_, _ = fmt.Fprintf(w, "Store:\t%s\n", shown.Store)
	if shown.DatabaseURL != "" {
		_, _ = fmt.Fprintf(w, "Database URL:\t%s\n", shown.DatabaseURL)
		_, _ = fmt.Fprintf(w, "Driver:\t%s\n", shown.DatabaseDriver)
	}
	_, _ = fmt.Fprintf(w, "Port:\t%s\n", shown.Port)
	_, _ = fmt.Fprintf(w, "Trusted origins:\t%s\n", strings.Join(shown.TrustedOrigins, ", "))
	_, _ = fmt.Fprintf(w, "Aggregation:\t%s\n", shown.Aggregation)
	_, _ = fmt.Fprintf(w, "Max depth:\t%d\n", shown.MaxDepth)
	_, _ = fmt.Fprintf(w, "OTel endpoint:\t%s\n", shown.OTelEndpoint)
	_, _ = fmt.Fprintf(w, "Tree cache TTL:\t%s\n", shown.TreeCacheTTL)
	return w.Flush()
}

func init() {
	f := configInitCmd.Flags()
	f.StringVar(&initDB.Type, "db-type", "postgres", "Database type for --db-* flags (postgres, sqlite)")
	f.StringVar(&initDB.Host, "db-host", "localhost", "Database host")
	f.IntVar(&initDB.Port, "db-port", 5432, "Database port")
	f.StringVar(&initDB.Name, "db-name", "", "Database name (sqlite: file path)")
	f.StringVar(&initDB.User, "db-user", "", "Database user")
	f.StringVar(&initDB.Password, "db-password", "", "Database password")
	f.StringVar(&initDB.SSLMode, "db-sslmode", "", "PostgreSQL sslmode")
	f.StringVarP(&initPort, "port", "p", "", "HTTP listen port")
	f.StringVar(&initDriver, "driver", "", "PostgreSQL driver (postgres, pgx)")
	f.StringVar(&initTrustedOrigins, "trusted-origins", "", "Comma-separated CORS origins")
	f.StringVar(&initOTelEndpoint, "otel-endpoint", "", "OTLP/HTTP traces endpoint")
	f.IntVar(&initMaxDepth, "max-depth", 0, "Hierarchy walk bound")
	f.DurationVar(&initTreeCacheTTL, "tree-cache-ttl", 0, "Org tree cache lifetime (e.g. 30s)")

	configShowCmd.Flags().StringVarP(&configShowFormat, "format", "f", "", "Output format (table, json, yaml)")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	RootCmd.AddCommand(configCmd)
}
