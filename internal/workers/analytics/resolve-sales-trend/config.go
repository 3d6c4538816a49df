// internal/workers/analytics/resolve-sales-trend/config.go
package resolvesalestrend

import (
	"time"

	"product-analytics/internal/common/config"
)

// Config fixes the trend window; it does not follow the current date.
type Config struct {
	Timeout time.Duration
	Start   time.Time
	End     time.Time
}

func LoadConfig(cfg *config.Config) (*Config, error) {
	start, end, err := config.TrendWindow(cfg.Analytics)
	if err != nil {
		return nil, err
	}
	stage := config.GetStageConfig(cfg, config.StageResolveSalesTrend)
	return &Config{
		Timeout: config.GetDuration(stage.Timeout),
		Start:   start,
		End:     end,
	}, nil
}
