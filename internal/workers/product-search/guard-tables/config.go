// internal/workers/product-search/guard-tables/config.go
package guardtables

import (
	"strings"

	"product-analytics/internal/common/config"
)

type Config struct {
	AllowedTables map[string]bool
}

func LoadConfig(cfg *config.Config) *Config {
	return NewConfig(cfg.Analytics.AllowedTables)
}

func NewConfig(tables []string) *Config {
	allowed := make(map[string]bool, len(tables))
	for _, t := range tables {
		allowed[strings.ToLower(strings.TrimSpace(t))] = true
	}
	return &Config{AllowedTables: allowed}
}
