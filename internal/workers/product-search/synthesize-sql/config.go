// internal/workers/product-search/synthesize-sql/config.go
package synthesizesql

import (
	"time"

	"product-analytics/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	stage := config.GetStageConfig(cfg, config.StageSynthesizeSQL)
	return &Config{
		Timeout: config.GetDuration(stage.Timeout),
	}
}
