// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Stage names used as keys under `stages`.
const (
	StageClassifyQuery     = "classify-query"
	StageSynthesizeSQL     = "synthesize-sql"
	StageFetchProducts     = "fetch-products"
	StageSegmentCustomers  = "segment-customers"
	StageResolveTopSeller  = "resolve-top-seller"
	StageResolveSalesTrend = "resolve-sales-trend"
)

var DefaultAllowedTables = []string{"articles", "customers", "transactions"}

func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	// DATABASE_DRIVER overrides database.driver, LLM_API_KEY overrides llm.api_key
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // optional

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	overrideEmptyConfig(&cfg)
	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env", // test/e2e
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			// unset variables expand to "" so applyDefaults can fill them
			v.Set(key, os.ExpandEnv(strVal))
		}
	}
}

// overrideEmptyConfig fills gaps from the plain environment names the
// deployment scripts export.
func overrideEmptyConfig(cfg *Config) {
	setIfEmpty(&cfg.LLM.APIKey, "OPENAI_API_KEY")
	setIfEmpty(&cfg.LLM.BaseURL, "OPENAI_BASE_URL")

	setIfEmpty(&cfg.Database.Driver, "DB_DRIVER")

	// DATABASE* names apply to whichever dialect is selected.
	for _, target := range []struct {
		name, user, password, host *string
	}{
		{&cfg.Database.Postgres.Database, &cfg.Database.Postgres.User, &cfg.Database.Postgres.Password, &cfg.Database.Postgres.Host},
		{&cfg.Database.MySQL.Database, &cfg.Database.MySQL.User, &cfg.Database.MySQL.Password, &cfg.Database.MySQL.Host},
	} {
		setIfEmpty(target.name, "DATABASE")
		setIfEmpty(target.user, "DATABASE_USERNAME")
		setIfEmpty(target.password, "DATABASE_PASSWORD")
		setIfEmpty(target.host, "DATABASE_HOST")
	}

	setIfEmpty(&cfg.Loader.AccessKey, "AWS_ACCESS_KEY")
	setIfEmpty(&cfg.Loader.SecretKey, "AWS_SECRET_KEY")
}

func setIfEmpty(dst *string, envName string) {
	if *dst != "" {
		return
	}
	if val := os.Getenv(envName); val != "" {
		*dst = val
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "product-analytics"
	}

	// Server defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10000
	}

	// Database defaults
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.MySQL.Port == 0 {
		cfg.Database.MySQL.Port = 3306
	}
	if cfg.Database.MySQL.MaxConnections == 0 {
		cfg.Database.MySQL.MaxConnections = 25
	}
	if cfg.Database.MySQL.MaxIdle == 0 {
		cfg.Database.MySQL.MaxIdle = 5
	}

	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}

	// LLM defaults
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://api.openai.com/v1/"
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 60000
	}

	// Analytics defaults
	if len(cfg.Analytics.AllowedTables) == 0 {
		cfg.Analytics.AllowedTables = append([]string(nil), DefaultAllowedTables...)
	}
	if cfg.Analytics.ForecastedDemand == 0 {
		cfg.Analytics.ForecastedDemand = 4200000
	}
	if cfg.Analytics.ForecastText == "" {
		cfg.Analytics.ForecastText = "Expected increase in demand for next quarter."
	}
	if cfg.Analytics.TrendStart == "" {
		cfg.Analytics.TrendStart = "2018-08"
	}
	if cfg.Analytics.TrendEnd == "" {
		cfg.Analytics.TrendEnd = "2020-10"
	}
	if cfg.Analytics.WorkflowName == "" {
		cfg.Analytics.WorkflowName = "Analytics Agent Workflow"
	}

	if cfg.Stages == nil {
		cfg.Stages = make(map[string]StageConfig)
	}
	for key, stage := range cfg.Stages {
		if stage.Timeout == 0 {
			stage.Timeout = 30000
		}
		cfg.Stages[key] = stage
	}

	// Rate limit defaults
	if cfg.RateLimit.Requests == 0 {
		cfg.RateLimit.Requests = 30
	}
	if cfg.RateLimit.Window == 0 {
		cfg.RateLimit.Window = 60000
	}

	// Tracing defaults
	if cfg.Tracing.Exporter == "" {
		cfg.Tracing.Exporter = "none"
	}
	if cfg.Tracing.SampleRatio == 0 {
		cfg.Tracing.SampleRatio = 1.0
	}
	if cfg.Tracing.SpanBuffer == 0 {
		cfg.Tracing.SpanBuffer = 256
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = cfg.App.Name
	}

	// Loader defaults
	if cfg.Loader.Endpoint == "" {
		cfg.Loader.Endpoint = "s3.amazonaws.com"
	}
	if cfg.Loader.Region == "" {
		cfg.Loader.Region = "us-west-2"
	}
	if cfg.Loader.ChunkSize == 0 {
		cfg.Loader.ChunkSize = 10_000
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	switch cfg.Database.Driver {
	case "postgres":
		if cfg.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required")
		}
		if cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required")
		}
		if cfg.Database.Postgres.User == "" {
			return fmt.Errorf("database.postgres.user is required")
		}
	case "mysql":
		if cfg.Database.MySQL.Host == "" {
			return fmt.Errorf("database.mysql.host is required")
		}
		if cfg.Database.MySQL.Database == "" {
			return fmt.Errorf("database.mysql.database is required")
		}
		if cfg.Database.MySQL.User == "" {
			return fmt.Errorf("database.mysql.user is required")
		}
	default:
		return fmt.Errorf("database.driver must be postgres or mysql, got %q", cfg.Database.Driver)
	}

	if cfg.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required")
	}

	if cfg.RateLimit.Enabled && cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required when rate_limit.enabled")
	}

	if cfg.Tracing.SpanIndex != "" && cfg.Database.Elasticsearch.GetURL() == "" {
		return fmt.Errorf("database.elasticsearch.addresses or url is required when tracing.span_index is set")
	}

	switch cfg.Tracing.Exporter {
	case "none", "stdout", "otlp":
	default:
		return fmt.Errorf("tracing.exporter must be none, stdout or otlp, got %q", cfg.Tracing.Exporter)
	}

	if _, _, err := TrendWindow(cfg.Analytics); err != nil {
		return err
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetStageConfig retrieves stage-specific configuration with fallback to defaults
func GetStageConfig(cfg *Config, stageName string) StageConfig {
	if stage, exists := cfg.Stages[stageName]; exists {
		return stage
	}

	return StageConfig{Timeout: 30000}
}

// TrendWindow parses the configured month range into first-of-month dates.
func TrendWindow(a AnalyticsConfig) (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01", a.TrendStart)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("analytics.trend_start: %w", err)
	}
	end, err := time.Parse("2006-01", a.TrendEnd)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("analytics.trend_end: %w", err)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("analytics.trend_end %s is before trend_start %s", a.TrendEnd, a.TrendStart)
	}
	return start, end, nil
}
