// internal/workers/analytics/resolve-top-seller/models.go
package resolvetopseller

import "product-analytics/internal/models"

type Input struct {
	Candidates []models.Product `json:"candidates"`
}

type Output struct {
	Product    models.Product `json:"product"`
	TotalSales float64        `json:"totalSales"`
	// Skipped is set when there was a single candidate and no query ran.
	Skipped bool `json:"skipped"`
}
