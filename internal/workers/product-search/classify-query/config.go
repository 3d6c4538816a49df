// internal/workers/product-search/classify-query/config.go
package classifyquery

import (
	"time"

	"product-analytics/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	stage := config.GetStageConfig(cfg, config.StageClassifyQuery)
	return &Config{
		Timeout: config.GetDuration(stage.Timeout),
	}
}
