// internal/workers/product-search/fetch-products/config.go
package fetchproducts

import (
	"time"

	"product-analytics/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	stage := config.GetStageConfig(cfg, config.StageFetchProducts)
	return &Config{
		Timeout: config.GetDuration(stage.Timeout),
	}
}
