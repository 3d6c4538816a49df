// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App       AppConfig              `mapstructure:"app"`
	Server    ServerConfig           `mapstructure:"server"`
	Database  DatabaseConfig         `mapstructure:"database"`
	LLM       LLMConfig              `mapstructure:"llm"`
	Analytics AnalyticsConfig        `mapstructure:"analytics"`
	Stages    map[string]StageConfig `mapstructure:"stages"`
	RateLimit RateLimitConfig        `mapstructure:"rate_limit"`
	Tracing   TracingConfig          `mapstructure:"tracing"`
	Loader    LoaderConfig           `mapstructure:"loader"`
	Logging   LoggingConfig          `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Port            int `mapstructure:"port"`
	ReadTimeout     int `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int `mapstructure:"write_timeout"`    // milliseconds, 0 disables (streaming)
	ShutdownTimeout int `mapstructure:"shutdown_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Driver        string              `mapstructure:"driver"` // postgres | mysql
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	MySQL         MySQLConfig         `mapstructure:"mysql"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// GetURL returns the postgres:// form used by pgx.
func (p PostgresConfig) GetURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode,
	)
}

type MySQLConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	TLS            string `mapstructure:"tls"`
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	SSLEnabled bool     `mapstructure:"ssl_enabled"`
	URL        string   `mapstructure:"url"` // Single URL for backwards compatibility
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LLMConfig holds settings for the chat completion service.
type LLMConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	APIKey       string `mapstructure:"api_key"`
	Timeout      int    `mapstructure:"timeout"` // milliseconds
	MaxRetries   int    `mapstructure:"max_retries"`
	RegistryPath string `mapstructure:"registry_path"` // empty uses the embedded registry
}

// AnalyticsConfig holds the product search and dashboard settings.
type AnalyticsConfig struct {
	AllowedTables []string `mapstructure:"allowed_tables"`
	// ForecastedDemand and ForecastText are placeholders; no forecast is computed.
	ForecastedDemand int64  `mapstructure:"forecasted_demand"`
	ForecastText     string `mapstructure:"forecast_text"`
	TrendStart       string `mapstructure:"trend_start"` // YYYY-MM
	TrendEnd         string `mapstructure:"trend_end"`   // YYYY-MM, inclusive
	WorkflowName     string `mapstructure:"workflow_name"`
}

// StageConfig holds the settings applicable to every pipeline stage.
// Every stage is mandatory, so there is no per-stage enable flag.
type StageConfig struct {
	Timeout int `mapstructure:"timeout"` // milliseconds
}

type RateLimitConfig struct {
	Enabled  bool `mapstructure:"enabled"`
	Requests int  `mapstructure:"requests"`
	Window   int  `mapstructure:"window"` // milliseconds
}

type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	Exporter     string  `mapstructure:"exporter"` // otlp | stdout | none
	Endpoint     string  `mapstructure:"endpoint"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	SpanIndex    string  `mapstructure:"span_index"` // elasticsearch index, empty disables
	SpanBuffer   int     `mapstructure:"span_buffer"`
	ServiceName  string  `mapstructure:"service_name"`
	InsecureOTLP bool    `mapstructure:"insecure_otlp"`
}

// LoaderConfig holds settings for the bulk data loader.
type LoaderConfig struct {
	Endpoint  string            `mapstructure:"endpoint"`
	Region    string            `mapstructure:"region"`
	Bucket    string            `mapstructure:"bucket"`
	AccessKey string            `mapstructure:"access_key"`
	SecretKey string            `mapstructure:"secret_key"`
	UseSSL    bool              `mapstructure:"use_ssl"`
	Prefixes  map[string]string `mapstructure:"prefixes"`
	ChunkSize int               `mapstructure:"chunk_size"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
