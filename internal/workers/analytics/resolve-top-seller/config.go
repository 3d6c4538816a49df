// internal/workers/analytics/resolve-top-seller/config.go
package resolvetopseller

import (
	"time"

	"product-analytics/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	stage := config.GetStageConfig(cfg, config.StageResolveTopSeller)
	return &Config{
		Timeout: config.GetDuration(stage.Timeout),
	}
}
