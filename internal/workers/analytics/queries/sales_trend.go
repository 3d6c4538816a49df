// internal/workers/analytics/queries/sales_trend.go
package queries

import (
	"fmt"

	"product-analytics/internal/common/database"
)

const postgresSalesTrend = `WITH RECURSIVE months AS (
    SELECT CAST($1 AS date) AS month
    UNION ALL
    SELECT CAST(month + INTERVAL '1 month' AS date)
    FROM months
    WHERE month < CAST($2 AS date)
),
monthly_sales AS (
    SELECT CAST(date_trunc('month', t_dat) AS date) AS month, SUM(price) AS total_sales
    FROM transactions
    WHERE article_id = $3
      AND t_dat >= CAST($1 AS date)
      AND t_dat < CAST($4 AS date)
    GROUP BY 1
)
SELECT to_char(m.month, 'YYYY-MM') AS month,
    CAST(SUM(COALESCE(ms.total_sales, 0))
        OVER (ORDER BY m.month ROWS BETWEEN UNBOUNDED PRECEDING AND CURRENT ROW) AS double precision) AS cumulative_sales
FROM months m
LEFT JOIN monthly_sales ms ON m.month = ms.month
ORDER BY m.month`

const mysqlSalesTrend = `WITH RECURSIVE months AS (
    SELECT CAST(? AS DATE) AS month
    UNION ALL
    SELECT DATE_ADD(month, INTERVAL 1 MONTH)
    FROM months
    WHERE month < CAST(? AS DATE)
),
monthly_sales AS (
    SELECT CAST(DATE_FORMAT(t_dat, '%Y-%m-01') AS DATE) AS month, SUM(price) AS total_sales
    FROM transactions
    WHERE article_id = ?
      AND t_dat >= ?
      AND t_dat < ?
    GROUP BY CAST(DATE_FORMAT(t_dat, '%Y-%m-01') AS DATE)
)
SELECT DATE_FORMAT(m.month, '%Y-%m') AS month,
    SUM(COALESCE(ms.total_sales, 0))
        OVER (ORDER BY m.month ROWS BETWEEN UNBOUNDED PRECEDING AND CURRENT ROW) AS cumulative_sales
FROM months m
LEFT JOIN monthly_sales ms ON m.month = ms.month
ORDER BY m.month`

// SalesTrend returns one row per calendar month from Start to End inclusive:
// the month label and the running total of sales up to that month.
func SalesTrend(d database.Dialect, p Params) (string, []interface{}, error) {
	if p.ProductID == 0 {
		return "", nil, fmt.Errorf("%w: productId", ErrMissingParam)
	}
	if p.Start.IsZero() || p.End.IsZero() {
		return "", nil, fmt.Errorf("%w: trend window", ErrMissingParam)
	}

	start := p.Start.Format("2006-01-02")
	end := p.End.Format("2006-01-02")
	endExclusive := p.End.AddDate(0, 1, 0).Format("2006-01-02")

	switch d {
	case database.DialectMySQL:
		return mysqlSalesTrend, []interface{}{start, end, p.ProductID, start, endExclusive}, nil
	default:
		return postgresSalesTrend, []interface{}{start, end, p.ProductID, endExclusive}, nil
	}
}

// MonthCount is the number of points SalesTrend yields for a window.
func MonthCount(p Params) int {
	return (p.End.Year()-p.Start.Year())*12 + int(p.End.Month()-p.Start.Month()) + 1
}
