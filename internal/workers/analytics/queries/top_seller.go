// internal/workers/analytics/queries/top_seller.go
package queries

import (
	"fmt"

	"product-analytics/internal/common/database"
)

// TopSeller sums transaction prices for exactly the candidate products and
// returns the single highest. Ties follow the database's ordering.
func TopSeller(d database.Dialect, p Params) (string, []interface{}, error) {
	if len(p.ProductIDs) == 0 {
		return "", nil, fmt.Errorf("%w: productIds", ErrMissingParam)
	}

	query := fmt.Sprintf(`SELECT article_id, SUM(price) AS total_sales
FROM transactions
WHERE article_id IN (%s)
GROUP BY article_id
ORDER BY total_sales DESC
LIMIT 1`, d.Placeholders(len(p.ProductIDs)))

	args := make([]interface{}, len(p.ProductIDs))
	for i, id := range p.ProductIDs {
		args[i] = id
	}
	return query, args, nil
}
