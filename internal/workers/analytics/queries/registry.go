// internal/workers/analytics/queries/registry.go
package queries

import (
	"errors"
	"fmt"
	"time"

	"product-analytics/internal/common/database"
	"product-analytics/internal/models"
)

var (
	ErrMissingParam     = errors.New("missing required parameter")
	ErrUnknownQueryType = errors.New("unknown query type")
)

// Params carries every argument any fixed query can take.
type Params struct {
	ProductIDs []int64
	ProductID  int64
	Start      time.Time // first month of the trend window
	End        time.Time // last month of the trend window, inclusive
}

// BuildFunc returns the statement text and its positional arguments.
type BuildFunc func(d database.Dialect, p Params) (string, []interface{}, error)

var Registry = map[models.QueryType]BuildFunc{
	models.QueryTypeTopSeller:  TopSeller,
	models.QueryTypeSalesTrend: SalesTrend,
}

func Build(queryType models.QueryType, d database.Dialect, p Params) (string, []interface{}, error) {
	fn, exists := Registry[queryType]
	if !exists {
		return "", nil, fmt.Errorf("%w: %s", ErrUnknownQueryType, queryType)
	}
	return fn(d, p)
}
