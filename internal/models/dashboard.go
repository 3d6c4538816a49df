// internal/models/dashboard.go
package models

// CustomerSegment is one generated audience for the resolved product.
type CustomerSegment struct {
	SegmentName       string `json:"segment_name"`
	Reasoning         string `json:"reasoning"`
	MarketingStrategy string `json:"marketing_strategy"`
}

// DashboardData is the second stream chunk. ForecastedDemand and
// ForecastText are configured placeholders, not forecasts.
type DashboardData struct {
	SalesTrends      []float64         `json:"sales_trends"`
	ForecastedDemand int64             `json:"forecasted_demand"`
	ForecastText     string            `json:"forecast_text"`
	CustomerSegments []CustomerSegment `json:"customer_segments"`
}

// ErrorChunk is the terminal stream chunk for soft failures.
type ErrorChunk struct {
	Error string `json:"error"`
}

const (
	NoProductFoundMessage       = "No product found."
	AnalyticsUnavailableMessage = "Analytics unavailable."
)
