// internal/workers/analytics/stream-analytics/config.go
package streamanalytics

import "product-analytics/internal/common/config"

// Config carries the dashboard placeholders. ForecastedDemand and
// ForecastText are fixed values from configuration; nothing forecasts them.
type Config struct {
	WorkflowName     string
	ForecastedDemand int64
	ForecastText     string
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		WorkflowName:     cfg.Analytics.WorkflowName,
		ForecastedDemand: cfg.Analytics.ForecastedDemand,
		ForecastText:     cfg.Analytics.ForecastText,
	}
}
