package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveDispatchRendersCountersAndHistogram(t *testing.T) {
	c := New()
	c.ObserveDispatch("get_company_news", 0, 1, 20*time.Millisecond)
	c.ObserveDispatch("get_company_news", 0, 1, 30*time.Millisecond)
	c.ObserveDispatch("get_crm_history", -32001, 2, 6*time.Second)
	c.ObserveCacheHit("get_company_news")

	assert.EqualValues(t, 2, c.DispatchCount("get_company_news", 0))
	assert.EqualValues(t, 1, c.DispatchCount("get_crm_history", -32001))

	out := c.Render()
	assert.Contains(t, out, `a2a_dispatch_total{method="get_company_news",code="0"} 2`)
	assert.Contains(t, out, `a2a_dispatch_total{method="get_crm_history",code="-32001"} 1`)
	assert.Contains(t, out, `a2a_dispatch_retries_total{method="get_crm_history"} 1`)
	assert.Contains(t, out, `a2a_cache_hits_total{method="get_company_news"} 1`)
	assert.Contains(t, out, `a2a_dispatch_duration_seconds_bucket{method="get_company_news",le="0.05"} 2`)
	assert.Contains(t, out, `a2a_dispatch_duration_seconds_bucket{method="get_crm_history",le="5"} 0`)
	assert.Contains(t, out, `a2a_dispatch_duration_seconds_bucket{method="get_crm_history",le="+Inf"} 1`)
	assert.Contains(t, out, `a2a_dispatch_duration_seconds_count{method="get_company_news"} 2`)
}

func TestHandlerServesExposition(t *testing.T) {
	c := New()
	c.ObserveHTTPRequest("/api/v1/query", http.MethodPost, http.StatusOK, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `a2a_http_requests_total{handler="/api/v1/query",method="POST",code="200"} 1`)
	assert.Contains(t, string(body), `a2a_http_request_duration_seconds_count{handler="/api/v1/query",method="POST"} 1`)
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.ObserveDispatch("m", 0, 1, time.Millisecond)
		c.ObserveCacheHit("m")
		c.ObserveHTTPRequest("/", http.MethodGet, 200, time.Millisecond)
	})
}

func TestEscapeLabelValues(t *testing.T) {
	assert.Equal(t, `a\"b\\c`, escape("a\"b\\c\n"))
}
