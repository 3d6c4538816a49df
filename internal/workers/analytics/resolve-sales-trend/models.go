// internal/workers/analytics/resolve-sales-trend/models.go
package resolvesalestrend

type Input struct {
	ProductID int64 `json:"productId"`
}

// Output holds the cumulative series in chronological order. Months are the
// YYYY-MM labels for each point.
type Output struct {
	Months []string  `json:"months"`
	Series []float64 `json:"series"`
}

// Total is the last cumulative value.
func (o *Output) Total() float64 {
	if o == nil || len(o.Series) == 0 {
		return 0
	}
	return o.Series[len(o.Series)-1]
}
