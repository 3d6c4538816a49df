// internal/workers/product-search/search-products/models.go
package searchproducts

import "product-analytics/internal/models"

type Input struct {
	Query string `json:"query"`
}

// Output is empty, not an error, when the query was rejected or produced no
// executable SQL.
type Output struct {
	Responses []models.DatabaseResponse `json:"responses"`
	Rejected  bool                      `json:"rejected"`
	Reasoning string                    `json:"reasoning,omitempty"`
}

// FirstResults returns the products of the first response, if any.
func (o *Output) FirstResults() []models.Product {
	if o == nil || len(o.Responses) == 0 {
		return nil
	}
	return o.Responses[0].Results
}
