// internal/workers/analytics/segment-customers/config.go
package segmentcustomers

import (
	"time"

	"product-analytics/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	stage := config.GetStageConfig(cfg, config.StageSegmentCustomers)
	return &Config{
		Timeout: config.GetDuration(stage.Timeout),
	}
}
