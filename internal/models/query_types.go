// internal/models/query_types.go
package models

// QueryType names the fixed analytics queries run outside the generated SQL.
type QueryType string

const (
	QueryTypeTopSeller  QueryType = "top_seller"
	QueryTypeSalesTrend QueryType = "sales_trend"
)
