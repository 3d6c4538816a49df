// internal/workers/analytics/stream-analytics/models.go
package streamanalytics

import "product-analytics/internal/models"

type Input struct {
	Query string `json:"query"`
}

// Outcome is how a stream ended.
type Outcome string

const (
	// OutcomeComplete: product chunk then dashboard chunk.
	OutcomeComplete Outcome = "complete"
	// OutcomeNoProduct: a single "No product found." chunk.
	OutcomeNoProduct Outcome = "no_product"
	// OutcomeAborted: a hard fault before any chunk; nothing was written.
	OutcomeAborted Outcome = "aborted"
	// OutcomeAnalyticsFailed: product chunk then "Analytics unavailable.".
	OutcomeAnalyticsFailed Outcome = "analytics_failed"
	// OutcomeClientGone: the caller went away before the stream finished.
	OutcomeClientGone Outcome = "client_gone"
)

type Output struct {
	Outcome Outcome         `json:"outcome"`
	Chunks  int             `json:"chunks"`
	Product *models.Product `json:"product,omitempty"`
}
