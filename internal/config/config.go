// Package config loads the tracker configuration from an optional YAML or
// TOML file, a .env file and the process environment, in that order of
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// ScraperConfig controls the scheduled Cardmarket price scrape.
type ScraperConfig struct {
	Enabled  bool          `yaml:"enabled" toml:"enabled"`
	Schedule string        `yaml:"schedule" toml:"schedule"`
	TTL      time.Duration `yaml:"ttl" toml:"ttl"`
	MinDelay time.Duration `yaml:"min_delay" toml:"min_delay"`
	MaxDelay time.Duration `yaml:"max_delay" toml:"max_delay"`
	// PageTimeout bounds a single page navigation
	PageTimeout time.Duration `yaml:"page_timeout" toml:"page_timeout"`
	SearchURL   string        `yaml:"search_url" toml:"search_url"`
	UserAgent   string        `yaml:"user_agent" toml:"user_agent"`
}

// OnlineConfig points the online catalog builder at the card-data API.
type OnlineConfig struct {
	BaseURL        string  `yaml:"base_url" toml:"base_url"`
	RequestsPerSec float64 `yaml:"requests_per_sec" toml:"requests_per_sec"`
}

type Config struct {
	Port             string        `yaml:"port" toml:"port"`
	DBPath           string        `yaml:"db_path" toml:"db_path"`
	CatalogPath      string        `yaml:"catalog_path" toml:"catalog_path"`
	FrontendDistPath string        `yaml:"frontend_dist_path" toml:"frontend_dist_path"`
	CORSOrigins      []string      `yaml:"cors_origins" toml:"cors_origins"`
	BasicAuthUser    string        `yaml:"basic_auth_user" toml:"basic_auth_user"`
	BasicAuthPass    string        `yaml:"basic_auth_pass" toml:"basic_auth_pass"`
	LogLevel         string        `yaml:"log_level" toml:"log_level"`
	SnapshotSchedule string        `yaml:"snapshot_schedule" toml:"snapshot_schedule"`
	Scraper          ScraperConfig `yaml:"scraper" toml:"scraper"`
	Online           OnlineConfig  `yaml:"online" toml:"online"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Port:             "8080",
		DBPath:           "./optcg_tracker.db",
		CatalogPath:      "./catalog/onepiece_cards.json",
		CORSOrigins:      []string{"http://localhost:5173", "http://localhost:3000"},
		LogLevel:         "info",
		SnapshotSchedule: "0 23 * * *",
		Scraper: ScraperConfig{
			Enabled:     false,
			Schedule:    "0 4 * * *",
			TTL:         24 * time.Hour,
			MinDelay:    350 * time.Millisecond,
			MaxDelay:    850 * time.Millisecond,
			PageTimeout: 45 * time.Second,
			SearchURL:   "https://www.cardmarket.com/en/OnePiece/Products/Search?searchString=%s",
			UserAgent:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120 Safari/537.36",
		},
		Online: OnlineConfig{
			BaseURL:        "https://optcgapi.com",
			RequestsPerSec: 1,
		},
	}
}

// Load builds the configuration. A missing .env or config file is not an error.
func Load() (Config, error) {
	// Load environment variables from .env file; it may not exist in production
	_ = godotenv.Load()

	cfg := Default()

	if err := loadFile(&cfg, os.Getenv("CONFIG_FILE")); err != nil {
		return cfg, err
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile reads path, or config.yaml then config.toml when path is empty.
func loadFile(cfg *Config, path string) error {
	candidates := []string{"config.yaml", "config.yml", "config.toml"}
	if path != "" {
		candidates = []string{path}
	}

	for _, p := range candidates {
		data, err := os.ReadFile(p)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) && path == "" {
				continue
			}
			return fmt.Errorf("failed to read config file %s: %w", p, err)
		}

		if strings.HasSuffix(strings.ToLower(p), ".toml") {
			if _, err := toml.Decode(string(data), cfg); err != nil {
				return fmt.Errorf("failed to parse TOML config %s: %w", p, err)
			}
		} else {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return fmt.Errorf("failed to parse YAML config %s: %w", p, err)
			}
		}
		return nil
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	setDuration := func(key string, dst *time.Duration) error {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = d
		return nil
	}

	setString("PORT", &cfg.Port)
	setString("DB_PATH", &cfg.DBPath)
	setString("CATALOG_PATH", &cfg.CatalogPath)
	setString("FRONTEND_DIST_PATH", &cfg.FrontendDistPath)
	setString("BASIC_AUTH_USER", &cfg.BasicAuthUser)
	setString("BASIC_AUTH_PASS", &cfg.BasicAuthPass)
	setString("LOG_LEVEL", &cfg.LogLevel)
	setString("SNAPSHOT_SCHEDULE", &cfg.SnapshotSchedule)
	setString("SCRAPE_SCHEDULE", &cfg.Scraper.Schedule)
	setString("ONLINE_BASE_URL", &cfg.Online.BaseURL)

	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		cfg.CORSOrigins = strings.Split(origins, ",")
	}
	if v := os.Getenv("SCRAPE_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid SCRAPE_ENABLED: %w", err)
		}
		cfg.Scraper.Enabled = enabled
	}
	if err := setDuration("SCRAPE_TTL", &cfg.Scraper.TTL); err != nil {
		return err
	}
	if err := setDuration("SCRAPE_MIN_DELAY", &cfg.Scraper.MinDelay); err != nil {
		return err
	}
	if err := setDuration("SCRAPE_MAX_DELAY", &cfg.Scraper.MaxDelay); err != nil {
		return err
	}
	return nil
}

// BasicAuthEnabled reports whether the static gate is on. Both credentials
// must be set; otherwise everything is open (local use).
func (c Config) BasicAuthEnabled() bool {
	return c.BasicAuthUser != "" && c.BasicAuthPass != ""
}

// Validate checks value ranges and cron expressions.
func (c Config) Validate() error {
	if c.Port == "" {
		return errors.New("port must not be empty")
	}
	if c.Scraper.TTL <= 0 {
		return fmt.Errorf("scraper ttl must be positive, got %s", c.Scraper.TTL)
	}
	if c.Scraper.MinDelay < 0 || c.Scraper.MaxDelay < c.Scraper.MinDelay {
		return fmt.Errorf("scraper delay range [%s, %s] is invalid", c.Scraper.MinDelay, c.Scraper.MaxDelay)
	}
	if c.Online.RequestsPerSec <= 0 {
		return fmt.Errorf("online requests_per_sec must be positive, got %v", c.Online.RequestsPerSec)
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for name, spec := range map[string]string{"scraper schedule": c.Scraper.Schedule, "snapshot schedule": c.SnapshotSchedule} {
		if _, err := parser.Parse(spec); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, spec, err)
		}
	}
	return nil
}
