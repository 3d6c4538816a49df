// internal/workers/product-search/classify-query/models.go
package classifyquery

import "product-analytics/internal/models"

type Input struct {
	Query string `json:"query"`
}

type Output struct {
	Verdict models.ClassifierVerdict `json:"verdict"`
}
