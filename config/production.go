// Package config provides configuration management and environment variable handling for the application
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ProductionConfig holds all configuration for production environment
type ProductionConfig struct {
	Server   ServerConfig    `json:"server"`
	Engine   EngineConfig    `json:"engine"`
	Source   SourceConfig    `json:"source"`
	Google   GoogleAdsConfig `json:"google"`
	Meta     MetaAdsConfig   `json:"meta"`
	Database DatabaseConfig  `json:"database"`
	Cache    CacheConfig     `json:"cache"`
	Logging  LoggingConfig   `json:"logging"`
	Metrics  MetricsConfig   `json:"metrics"`
	Security SecurityConfig  `json:"security"`
}

type ServerConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	BodyLimit       int           `json:"body_limit"`
}

// EngineConfig holds every tunable of the reconciliation and campaign
// lifecycle engine. MajorThreshold is the number of impacted households at
// which an outage is classified major; 3000 and above is always critical.
// The 1000 default matches production; lowering it (for example to 50) is a
// pure configuration change.
type EngineConfig struct {
	PollInterval      time.Duration `json:"poll_interval"`
	CampaignDuration  time.Duration `json:"campaign_duration"`
	ResolvedRetention time.Duration `json:"resolved_retention"`
	BudgetWindow      time.Duration `json:"budget_window"`
	MajorThreshold    int           `json:"major_threshold"`

	MaxDailyBudgetGoogle float64 `json:"max_daily_budget_google"`
	MaxDailyBudgetMeta   float64 `json:"max_daily_budget_meta"`
	CeilingGoogle        float64 `json:"ceiling_google"`
	CeilingMeta          float64 `json:"ceiling_meta"`

	// PersistenceBackend selects the state store: "file" or "postgres"
	PersistenceBackend string `json:"persistence_backend"`
	StateDir           string `json:"state_dir"`

	// DryRun replaces both platform clients with mocks; campaigns are
	// registered locally but nothing is created remotely
	DryRun bool `json:"dry_run"`
}

// SourceConfig configures the normalized outage feed client
type SourceConfig struct {
	FeedURL string        `json:"feed_url"`
	APIKey  string        `json:"api_key"`
	Timeout time.Duration `json:"timeout"`
}

// GoogleAdsConfig configures the Google Ads platform client
type GoogleAdsConfig struct {
	APIDomain      string        `json:"api_domain"`
	DeveloperToken string        `json:"developer_token"`
	CustomerID     string        `json:"customer_id"`
	Timeout        time.Duration `json:"timeout"`
}

// MetaAdsConfig configures the Meta Ads platform client
type MetaAdsConfig struct {
	APIDomain   string        `json:"api_domain"`
	AccessToken string        `json:"access_token"`
	AdAccountID string        `json:"ad_account_id"`
	PageID      string        `json:"page_id"`
	Timeout     time.Duration `json:"timeout"`
}

type DatabaseConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Name            string        `json:"name"`
	User            string        `json:"user"`
	Password        string        `json:"password"`
	SSLMode         string        `json:"ssl_mode"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
}

type CacheConfig struct {
	Enabled         bool          `json:"enabled"`
	Provider        string        `json:"provider"` // redis, memory
	RedisURL        string        `json:"redis_url"`
	RedisDB         int           `json:"redis_db"`
	RedisPrefix     string        `json:"redis_prefix"`
	DefaultTTL      time.Duration `json:"default_ttl"`
	CleanupInterval time.Duration `json:"cleanup_interval"`
}

type LoggingConfig struct {
	Level      string `json:"level"`  // debug, info, warn, error
	Output     string `json:"output"` // stdout, file, both
	FilePath   string `json:"file_path"`
	MaxSize    int    `json:"max_size"` // MB
	MaxBackups int    `json:"max_backups"`
	MaxAge     int    `json:"max_age"` // days
	Compress   bool   `json:"compress"`
}

type MetricsConfig struct {
	Enabled        bool   `json:"enabled"`
	PrometheusPath string `json:"prometheus_path"`
}

type SecurityConfig struct {
	AllowedOrigins  []string      `json:"allowed_origins"`
	AllowedMethods  []string      `json:"allowed_methods"`
	AllowedHeaders  []string      `json:"allowed_headers"`
	GlobalRateLimit int           `json:"global_rate_limit"` // requests per window
	RateLimitWindow time.Duration `json:"rate_limit_window"`
	RequireAPIKey   bool          `json:"require_api_key"`
	APIKeyHeader    string        `json:"api_key_header"`
	AllowedAPIKeys  []string      `json:"allowed_api_keys"`
}

// LoadProductionConfig loads and validates configuration from environment variables
func LoadProductionConfig() (*ProductionConfig, error) {
	// Load environment variables from .env file
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &ProductionConfig{
		Server: ServerConfig{
			Host:            getEnvString("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			BodyLimit:       getEnvInt("SERVER_BODY_LIMIT", 1*1024*1024), // 1MB
		},
		Engine: EngineConfig{
			PollInterval:      getEnvDuration("ENGINE_POLL_INTERVAL", 5*time.Minute),
			CampaignDuration:  getEnvDuration("ENGINE_CAMPAIGN_DURATION", 48*time.Hour),
			ResolvedRetention: getEnvDuration("ENGINE_RESOLVED_RETENTION", 24*time.Hour),
			BudgetWindow:      getEnvDuration("ENGINE_BUDGET_WINDOW", 24*time.Hour),
			MajorThreshold:    getEnvInt("ENGINE_MAJOR_THRESHOLD", 1000),

			MaxDailyBudgetGoogle: getEnvFloat("ENGINE_MAX_DAILY_BUDGET_GOOGLE", 100),
			MaxDailyBudgetMeta:   getEnvFloat("ENGINE_MAX_DAILY_BUDGET_META", 100),
			CeilingGoogle:        getEnvFloat("ENGINE_CEILING_GOOGLE", 500),
			CeilingMeta:          getEnvFloat("ENGINE_CEILING_META", 500),

			PersistenceBackend: getEnvString("ENGINE_PERSISTENCE_BACKEND", "file"),
			StateDir:           getEnvString("ENGINE_STATE_DIR", "data/state"),
			DryRun:             getEnvBool("ENGINE_DRY_RUN", false),
		},
		Source: SourceConfig{
			FeedURL: getEnvString("SOURCE_FEED_URL", ""),
			APIKey:  getEnvString("SOURCE_API_KEY", ""),
			Timeout: getEnvDuration("SOURCE_TIMEOUT", 30*time.Second),
		},
		Google: GoogleAdsConfig{
			APIDomain:      getEnvString("GOOGLE_ADS_API_DOMAIN", "googleads.googleapis.com"),
			DeveloperToken: getEnvString("GOOGLE_ADS_DEVELOPER_TOKEN", ""),
			CustomerID:     getEnvString("GOOGLE_ADS_CUSTOMER_ID", ""),
			Timeout:        getEnvDuration("GOOGLE_ADS_TIMEOUT", 30*time.Second),
		},
		Meta: MetaAdsConfig{
			APIDomain:   getEnvString("META_ADS_API_DOMAIN", "graph.facebook.com"),
			AccessToken: getEnvString("META_ADS_ACCESS_TOKEN", ""),
			AdAccountID: getEnvString("META_ADS_AD_ACCOUNT_ID", ""),
			PageID:      getEnvString("META_ADS_PAGE_ID", ""),
			Timeout:     getEnvDuration("META_ADS_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:            getEnvString("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnvString("DB_NAME", "stroomalert"),
			User:            getEnvString("DB_USER", "postgres"),
			Password:        getEnvString("DB_PASSWORD", ""),
			SSLMode:         getEnvString("DB_SSL_MODE", "require"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 15*time.Minute),
		},
		Cache: CacheConfig{
			Enabled:         getEnvBool("CACHE_ENABLED", false),
			Provider:        getEnvString("CACHE_PROVIDER", "redis"),
			RedisURL:        getEnvString("CACHE_REDIS_URL", "redis://localhost:6379"),
			RedisDB:         getEnvInt("CACHE_REDIS_DB", 0),
			RedisPrefix:     getEnvString("CACHE_REDIS_PREFIX", "stroomalert:"),
			DefaultTTL:      getEnvDuration("CACHE_DEFAULT_TTL", 1*time.Hour),
			CleanupInterval: getEnvDuration("CACHE_CLEANUP_INTERVAL", 30*time.Second),
		},
		Logging: LoggingConfig{
			Level:      getEnvString("LOG_LEVEL", "info"),
			Output:     getEnvString("LOG_OUTPUT", "both"),
			FilePath:   getEnvString("LOG_FILE_PATH", "data/logs/stroomalert.log"),
			MaxSize:    getEnvInt("LOG_MAX_SIZE", 100),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 10),
			MaxAge:     getEnvInt("LOG_MAX_AGE", 30),
			Compress:   getEnvBool("LOG_COMPRESS", true),
		},
		Metrics: MetricsConfig{
			Enabled:        getEnvBool("METRICS_ENABLED", true),
			PrometheusPath: getEnvString("METRICS_PROMETHEUS_PATH", "/metrics"),
		},
		Security: SecurityConfig{
			AllowedOrigins:  getEnvStringSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods:  getEnvStringSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
			AllowedHeaders:  getEnvStringSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept", "X-API-Key"}),
			GlobalRateLimit: getEnvInt("GLOBAL_RATE_LIMIT", 300),
			RateLimitWindow: getEnvDuration("RATE_LIMIT_WINDOW", 1*time.Minute),
			RequireAPIKey:   getEnvBool("REQUIRE_API_KEY", false),
			APIKeyHeader:    getEnvString("API_KEY_HEADER", "X-API-Key"),
			AllowedAPIKeys:  getEnvStringSlice("ALLOWED_API_KEYS", []string{}),
		},
	}

	// Validate the loaded configuration
	if err := ValidateProductionConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadEnvFile loads environment variables from .env file if it exists
func loadEnvFile() error {
	envFile := ".env"

	// Check if .env file exists
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		// .env file doesn't exist, continue with environment variables
		return nil
	}

	// Open .env file
	file, err := os.Open(envFile)
	if err != nil {
		return fmt.Errorf("failed to open .env file: %w", err)
	}
	defer file.Close()

	// Read file line by line
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse key=value pairs
		if strings.Contains(line, "=") {
			parts := strings.SplitN(line, "=", 2)
			if len(parts) == 2 {
				key := strings.TrimSpace(parts[0])
				value := strings.TrimSpace(parts[1])

				// Remove quotes if present
				if (strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`)) ||
					(strings.HasPrefix(value, `'`) && strings.HasSuffix(value, `'`)) {
					value = value[1 : len(value)-1]
				}

				// Set environment variable if not already set
				if os.Getenv(key) == "" {
					os.Setenv(key, value)
				}
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading .env file: %w", err)
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var result []string
		for _, item := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

// ValidateProductionConfig validates the production configuration
func ValidateProductionConfig(cfg *ProductionConfig) error {
	var errors []string

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errors = append(errors, "SERVER_PORT must be between 1 and 65535")
	}

	if cfg.Engine.PollInterval <= 0 {
		errors = append(errors, "ENGINE_POLL_INTERVAL must be positive")
	}
	if cfg.Engine.CampaignDuration <= 0 {
		errors = append(errors, "ENGINE_CAMPAIGN_DURATION must be positive")
	}
	if cfg.Engine.ResolvedRetention <= 0 {
		errors = append(errors, "ENGINE_RESOLVED_RETENTION must be positive")
	}
	if cfg.Engine.BudgetWindow <= 0 {
		errors = append(errors, "ENGINE_BUDGET_WINDOW must be positive")
	}
	if cfg.Engine.MajorThreshold <= 0 {
		errors = append(errors, "ENGINE_MAJOR_THRESHOLD must be positive")
	}
	if cfg.Engine.MajorThreshold >= 3000 {
		errors = append(errors, "ENGINE_MAJOR_THRESHOLD must be below the critical threshold of 3000")
	}
	if cfg.Engine.MaxDailyBudgetGoogle <= 0 || cfg.Engine.MaxDailyBudgetMeta <= 0 {
		errors = append(errors, "per-platform max daily budgets must be positive")
	}
	if cfg.Engine.CeilingGoogle <= 0 || cfg.Engine.CeilingMeta <= 0 {
		errors = append(errors, "per-platform budget ceilings must be positive")
	}
	switch cfg.Engine.PersistenceBackend {
	case "file":
		if cfg.Engine.StateDir == "" {
			errors = append(errors, "ENGINE_STATE_DIR is required for the file backend")
		}
	case "postgres":
		if cfg.Database.Host == "" {
			errors = append(errors, "DB_HOST is required for the postgres backend")
		}
		if cfg.Database.Name == "" {
			errors = append(errors, "DB_NAME is required for the postgres backend")
		}
		if cfg.Database.User == "" {
			errors = append(errors, "DB_USER is required for the postgres backend")
		}
		if cfg.Database.Password == "" {
			errors = append(errors, "DB_PASSWORD is required for the postgres backend")
		}
	default:
		errors = append(errors, "ENGINE_PERSISTENCE_BACKEND must be \"file\" or \"postgres\"")
	}

	if !cfg.Engine.DryRun {
		if cfg.Source.FeedURL == "" {
			errors = append(errors, "SOURCE_FEED_URL is required")
		}
		if cfg.Google.DeveloperToken == "" || cfg.Google.CustomerID == "" {
			errors = append(errors, "Google Ads credentials are required unless ENGINE_DRY_RUN is set")
		}
		if cfg.Meta.AccessToken == "" || cfg.Meta.AdAccountID == "" {
			errors = append(errors, "Meta Ads credentials are required unless ENGINE_DRY_RUN is set")
		}
	}

	if cfg.Security.RequireAPIKey && len(cfg.Security.AllowedAPIKeys) == 0 {
		errors = append(errors, "ALLOWED_API_KEYS must be set when REQUIRE_API_KEY is enabled")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// RedisKey prefixes a cache key with the configured redis prefix
func RedisKey(cfg CacheConfig, key string) string {
	return cfg.RedisPrefix + key
}
