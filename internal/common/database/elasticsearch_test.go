package database

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"product-analytics/internal/common/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newESServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		handler(w, r)
	}))
}

func TestElasticsearchIndex(t *testing.T) {
	var gotPath, gotBody string
	server := newESServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	})
	defer server.Close()

	client, err := NewElasticsearch(config.ElasticsearchConfig{URL: server.URL})
	require.NoError(t, err)

	err = client.Index(context.Background(), "analytics-spans", "span-1", []byte(`{"name":"get_product_data"}`))
	require.NoError(t, err)
	assert.Equal(t, "/analytics-spans/_doc/span-1", gotPath)
	assert.JSONEq(t, `{"name":"get_product_data"}`, gotBody)
}

func TestElasticsearchIndex_ErrorStatus(t *testing.T) {
	server := newESServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"boom"}`))
	})
	defer server.Close()

	client, err := NewElasticsearch(config.ElasticsearchConfig{Addresses: []string{server.URL}})
	require.NoError(t, err)

	err = client.Index(context.Background(), "analytics-spans", "span-1", []byte(`{}`))
	assert.Error(t, err)
}
