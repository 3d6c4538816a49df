// internal/workers/analytics/segment-customers/models.go
package segmentcustomers

import "product-analytics/internal/models"

type Input struct {
	Query string `json:"query"`
}

type Output struct {
	Segments []models.CustomerSegment `json:"segments"`
}

type segmenterOutput struct {
	Segments []models.CustomerSegment `json:"segments"`
}
