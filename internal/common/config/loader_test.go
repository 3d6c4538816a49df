package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  postgres:
    host: db.local
    database: shop
    user: reader
llm:
  api_key: sk-test
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, DefaultAllowedTables, cfg.Analytics.AllowedTables)
	assert.Equal(t, int64(4200000), cfg.Analytics.ForecastedDemand)
	assert.Equal(t, "Expected increase in demand for next quarter.", cfg.Analytics.ForecastText)
	assert.Equal(t, "2018-08", cfg.Analytics.TrendStart)
	assert.Equal(t, "2020-10", cfg.Analytics.TrendEnd)
	assert.Equal(t, 10_000, cfg.Loader.ChunkSize)
	assert.Equal(t, "none", cfg.Tracing.Exporter)
	assert.Equal(t, "Analytics Agent Workflow", cfg.Analytics.WorkflowName)
}

func TestLoadFromFile_ExpandsEnvPlaceholders(t *testing.T) {
	t.Setenv("TEST_PA_DB_HOST", "expanded.local")
	path := writeConfig(t, `
database:
  driver: ${TEST_PA_UNSET_DRIVER}
  postgres:
    host: ${TEST_PA_DB_HOST}
    database: shop
    user: reader
llm:
  api_key: sk-test
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "expanded.local", cfg.Database.Postgres.Host)
	assert.Equal(t, "postgres", cfg.Database.Driver)
}

func TestLoadFromFile_LegacyEnvNames(t *testing.T) {
	t.Setenv("DATABASE", "hm")
	t.Setenv("DATABASE_USERNAME", "planetscale")
	t.Setenv("DATABASE_HOST", "aws.connect.psdb.cloud")
	t.Setenv("OPENAI_API_KEY", "sk-env")
	path := writeConfig(t, `
database:
  driver: mysql
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hm", cfg.Database.MySQL.Database)
	assert.Equal(t, "planetscale", cfg.Database.MySQL.User)
	assert.Equal(t, 3306, cfg.Database.MySQL.Port)
	assert.Equal(t, "sk-env", cfg.LLM.APIKey)
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{
			Database: DatabaseConfig{
				Postgres: PostgresConfig{Host: "h", Database: "d", User: "u"},
			},
			LLM: LLMConfig{APIKey: "k"},
		}
		applyDefaults(cfg)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "sqlite" }, wantErr: "database.driver"},
		{name: "missing postgres host", mutate: func(c *Config) { c.Database.Postgres.Host = "" }, wantErr: "database.postgres.host"},
		{name: "missing mysql user", mutate: func(c *Config) {
			c.Database.Driver = "mysql"
			c.Database.MySQL = MySQLConfig{Host: "h", Database: "d"}
		}, wantErr: "database.mysql.user"},
		{name: "missing api key", mutate: func(c *Config) { c.LLM.APIKey = "" }, wantErr: "llm.api_key"},
		{name: "rate limit without redis", mutate: func(c *Config) { c.RateLimit.Enabled = true }, wantErr: "database.redis.address"},
		{name: "span index without elasticsearch", mutate: func(c *Config) { c.Tracing.SpanIndex = "spans" }, wantErr: "elasticsearch"},
		{name: "bad exporter", mutate: func(c *Config) { c.Tracing.Exporter = "jaeger" }, wantErr: "tracing.exporter"},
		{name: "inverted trend window", mutate: func(c *Config) { c.Analytics.TrendEnd = "2017-01" }, wantErr: "before trend_start"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := validateConfig(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTrendWindow(t *testing.T) {
	start, end, err := TrendWindow(AnalyticsConfig{TrendStart: "2018-08", TrendEnd: "2020-10"})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2018, 8, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2020, 10, 1, 0, 0, 0, 0, time.UTC), end)
}

func TestLoadFromFile_StageTimeouts(t *testing.T) {
	path := writeConfig(t, `
database:
  postgres:
    host: db.local
    database: shop
    user: reader
llm:
  api_key: sk-test
stages:
  segment-customers:
    timeout: 45000
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, StageConfig{Timeout: 45000}, GetStageConfig(cfg, StageSegmentCustomers))
	assert.Equal(t, StageConfig{Timeout: 30000}, GetStageConfig(cfg, StageClassifyQuery))
}

func TestGetStageConfig_Fallback(t *testing.T) {
	cfg := &Config{Stages: map[string]StageConfig{StageFetchProducts: {Timeout: 5000}}}

	assert.Equal(t, 5000, GetStageConfig(cfg, StageFetchProducts).Timeout)
	assert.Equal(t, 30000, GetStageConfig(cfg, StageSynthesizeSQL).Timeout)
	assert.Equal(t, 250*time.Millisecond, GetDuration(250))
}
