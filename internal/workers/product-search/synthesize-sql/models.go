// internal/workers/product-search/synthesize-sql/models.go
package synthesizesql

import "product-analytics/internal/models"

type Input struct {
	Query string `json:"query"`
}

// Output carries the intents in the order the model produced them. When the
// input guard rejects the query, Rejected is set, Intents is empty and the
// guard's reasoning is in Verdict.
type Output struct {
	Intents  []models.QueryIntent     `json:"intents"`
	Rejected bool                     `json:"rejected"`
	Verdict  models.ClassifierVerdict `json:"verdict"`
}

type mapperOutput struct {
	Queries []models.QueryIntent `json:"queries"`
}
