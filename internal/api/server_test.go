package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"product-analytics/internal/common/database"
	apperrors "product-analytics/internal/common/errors"
	"product-analytics/internal/common/logger"
	"product-analytics/internal/models"
	streamanalytics "product-analytics/internal/workers/analytics/stream-analytics"
)

type stubStreamer struct {
	chunks  []interface{}
	outcome streamanalytics.Outcome
	err     error
	query   string
}

func (s *stubStreamer) Execute(ctx context.Context, input *streamanalytics.Input, w streamanalytics.ChunkWriter) (*streamanalytics.Output, error) {
	s.query = input.Query
	out := &streamanalytics.Output{Outcome: s.outcome}
	for _, c := range s.chunks {
		if err := w.WriteChunk(c); err != nil {
			return out, nil
		}
		out.Chunks++
	}
	return out, s.err
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(ctx context.Context) error { return p.err }

type failingCounter struct{}

func (failingCounter) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	return 0, 0, errors.New("redis: connection refused")
}

func newTestServer(t *testing.T, stream Streamer, opts Options) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewServer(stream, stubPinger{}, logger.NewTestLogger(t), opts).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	var sb strings.Builder
	_, err = io.Copy(&sb, resp.Body)
	require.NoError(t, err)
	return resp, sb.String()
}

func TestHandleAnalytics_StreamsChunks(t *testing.T) {
	stream := &stubStreamer{
		outcome: streamanalytics.OutcomeComplete,
		chunks: []interface{}{
			&models.Product{ProductID: 706016001, ProductName: "Red Dress", ImageURL: "https://img/1.jpg"},
			&models.DashboardData{SalesTrends: []float64{0.1, 0.2}, ForecastedDemand: 4200000,
				ForecastText: "Expected increase in demand for next quarter.", CustomerSegments: []models.CustomerSegment{}},
		},
	}
	srv := newTestServer(t, stream, Options{})

	resp, body := get(t, srv.URL+"/api/analytics?query=red+dress")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	assert.Equal(t, "red dress", stream.query)

	events := strings.Split(strings.TrimSuffix(body, "\n\n\n"), "\n\n\n")
	require.Len(t, events, 2)
	assert.Equal(t, `data: {"product_id":706016001,"product_name":"Red Dress","image_url":"https://img/1.jpg"}`, events[0])
	assert.True(t, strings.HasPrefix(events[1], `data: {"sales_trends":[0.1,0.2],"forecasted_demand":4200000`))
}

func TestHandleAnalytics_EmptyQueryIsAllowed(t *testing.T) {
	stream := &stubStreamer{
		outcome: streamanalytics.OutcomeNoProduct,
		chunks:  []interface{}{models.ErrorChunk{Error: models.NoProductFoundMessage}},
	}
	srv := newTestServer(t, stream, Options{})

	resp, body := get(t, srv.URL+"/api/analytics")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "data: {\"error\":\"No product found.\"}\n\n\n", body)
}

func TestHandleAnalytics_HardFaultBeforeFirstChunk(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   apperrors.ErrorCode
	}{
		{"schema violation", apperrors.NewSchemaViolationError("tables: reviews", nil), http.StatusUnprocessableEntity, apperrors.ErrCodeSchemaViolation},
		{"non-read statement", apperrors.NewStatementNotAllowedError("intent 0: DELETE statement", nil), http.StatusUnprocessableEntity, apperrors.ErrCodeStatementNotAllowed},
		{"database failure", apperrors.NewDatabaseQueryFailedError("fetch-products", errors.New("gone")), http.StatusBadGateway, apperrors.ErrCodeDatabaseQueryFailed},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, apperrors.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &stubStreamer{outcome: streamanalytics.OutcomeAborted, err: tt.err}, Options{})

			resp, body := get(t, srv.URL+"/api/analytics?query=x")

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
			var errBody apperrors.ErrorBody
			require.NoError(t, json.Unmarshal([]byte(body), &errBody))
			assert.Equal(t, tt.wantCode, errBody.Code)
			assert.NotContains(t, body, "data:")
		})
	}
}

func TestHandleAnalytics_ClientGoneWritesNothing(t *testing.T) {
	srv := newTestServer(t, &stubStreamer{
		outcome: streamanalytics.OutcomeClientGone,
		err:     streamanalytics.ErrClientGone,
	}, Options{})

	resp, body := get(t, srv.URL+"/api/analytics?query=x")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body)
}

func TestHandleAnalytics_QueryTooLong(t *testing.T) {
	stream := &stubStreamer{}
	srv := newTestServer(t, stream, Options{})

	resp, _ := get(t, srv.URL+"/api/analytics?query="+strings.Repeat("a", 1001))

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, stream.query)
}

func TestRateLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := database.NewRedisFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	log := logger.NewTestLogger(t)
	limiter := NewRateLimiter(client, 2, time.Minute, apperrors.NewErrorHandler(log), log)

	stream := &stubStreamer{
		outcome: streamanalytics.OutcomeNoProduct,
		chunks:  []interface{}{models.ErrorChunk{Error: models.NoProductFoundMessage}},
	}
	srv := newTestServer(t, stream, Options{Limiter: limiter})

	for i := 0; i < 2; i++ {
		resp, _ := get(t, srv.URL+"/api/analytics?query=x")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, body := get(t, srv.URL+"/api/analytics?query=x")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "60", resp.Header.Get("Retry-After"))
	assert.Contains(t, body, "RATE_LIMITED")

	health, _ := get(t, srv.URL+"/health")
	assert.Equal(t, http.StatusOK, health.StatusCode)

	mr.FastForward(time.Minute)
	resp, _ = get(t, srv.URL+"/api/analytics?query=x")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRateLimiter_CounterFailureAllowsRequest(t *testing.T) {
	log := logger.NewTestLogger(t)
	limiter := NewRateLimiter(failingCounter{}, 1, time.Minute, apperrors.NewErrorHandler(log), log)
	stream := &stubStreamer{
		outcome: streamanalytics.OutcomeNoProduct,
		chunks:  []interface{}{models.ErrorChunk{Error: models.NoProductFoundMessage}},
	}
	srv := newTestServer(t, stream, Options{Limiter: limiter})

	resp, _ := get(t, srv.URL+"/api/analytics?query=x")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealthAndReady(t *testing.T) {
	log := logger.NewTestLogger(t)

	healthy := httptest.NewServer(NewServer(&stubStreamer{}, stubPinger{}, log, Options{}).Handler())
	defer healthy.Close()
	resp, body := get(t, healthy.URL+"/ready")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"status":"ready"`)

	resp, body = get(t, healthy.URL+"/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"status":"healthy"`)

	down := httptest.NewServer(NewServer(&stubStreamer{}, stubPinger{err: errors.New("dial tcp")}, log, Options{}).Handler())
	defer down.Close()
	resp, body = get(t, down.URL+"/ready")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, body, "database unreachable")
}

func TestRequestID_ReusesCallerHeader(t *testing.T) {
	srv := newTestServer(t, &stubStreamer{}, Options{})

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "req-123")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "req-123", resp.Header.Get("X-Request-ID"))
}
