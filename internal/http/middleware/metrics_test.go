package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_RouteLabelsAndUnmatched(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics())
	r.GET("/conversations/:phone", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/empty", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	route := httpReqs.WithLabelValues("GET", "/conversations/:phone", "200")
	miss := httpReqs.WithLabelValues("GET", unmatchedPath, "404")
	baseRoute, baseMiss := testutil.ToFloat64(route), testutil.ToFloat64(miss)

	for _, p := range []string{"/conversations/5511999990000", "/conversations/5521988887777", "/nope/5511", "/empty"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}

	if got := testutil.ToFloat64(route) - baseRoute; got != 2 {
		t.Fatalf("route counter delta = %v, want 2", got)
	}
	if got := testutil.ToFloat64(miss) - baseMiss; got != 1 {
		t.Fatalf("unmatched counter delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(httpInflight); got != 0 {
		t.Fatalf("inflight = %v after requests", got)
	}
	// raw phone numbers never become label values
	if n := testutil.CollectAndCount(httpReqs, "http_requests_total"); n == 0 {
		t.Fatalf("no series collected")
	}
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/conversations/5511999990000", "200")); got != 0 {
		t.Fatalf("raw path leaked into labels")
	}
}
