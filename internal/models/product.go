// internal/models/product.go
package models

import "strings"

// QueryIntent is one synthesized SQL statement and what it is meant to retrieve.
type QueryIntent struct {
	InfoToRetrieve string `json:"info_to_retrieve"`
	RawSQL         string `json:"raw_sql_query"`
}

// Product is built positionally from a result row: identifier, name, image URL.
type Product struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	ImageURL    string `json:"image_url"`
}

// DatabaseResponse wraps the outcome of one QueryIntent. Tables and Columns
// come from static parsing of the SQL text and are advisory only.
type DatabaseResponse struct {
	InfoToRetrieve string    `json:"info_to_retrieve"`
	Tables         []string  `json:"tables"`
	Columns        []string  `json:"columns"`
	Results        []Product `json:"db_result"`
}

// ClassifierVerdict gates SQL synthesis.
type ClassifierVerdict struct {
	IsProductQuery bool   `json:"is_product_query"`
	Reasoning      string `json:"reasoning"`
}

// HasExecutableSQL reports whether any intent carries non-blank SQL.
func HasExecutableSQL(intents []QueryIntent) bool {
	for _, q := range intents {
		if strings.TrimSpace(q.RawSQL) != "" {
			return true
		}
	}
	return false
}
