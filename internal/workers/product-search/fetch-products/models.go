// internal/workers/product-search/fetch-products/models.go
package fetchproducts

import "product-analytics/internal/models"

type Input struct {
	Intents []models.QueryIntent `json:"intents"`
}

// Output holds one response per intent, in intent order.
type Output struct {
	Responses []models.DatabaseResponse `json:"responses"`
	RowCount  int                       `json:"rowCount"`
}

// expectedColumns is the positional contract for product rows.
var expectedColumns = [3]string{"article_id", "prod_name", "image_url"}
