// internal/workers/product-search/guard-tables/models.go
package guardtables

import "product-analytics/internal/models"

type Input struct {
	Intents []models.QueryIntent `json:"intents"`
}

type Output struct {
	Tables []string `json:"tables"`
}
