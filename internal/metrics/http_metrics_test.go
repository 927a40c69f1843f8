package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddlewareLabelsByRouteTemplate(t *testing.T) {
	m := NewHTTPMetrics("crm")
	r := mux.NewRouter()
	r.Use(m.Middleware)
	r.HandleFunc("/api/jobs/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}).Methods(http.MethodGet)

	for _, id := range []string{"1", "2", "3"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/jobs/"+id, nil))
	}

	got := testutil.ToFloat64(m.requests.WithLabelValues("crm", http.MethodGet, "/api/jobs/{id}", "404"))
	if got != 3 {
		t.Fatalf("expected 3 requests on the template label, got %v", got)
	}
	if c := testutil.ToFloat64(m.category.WithLabelValues("crm", "4xx")); c != 3 {
		t.Fatalf("expected 3 4xx responses, got %v", c)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := NewHTTPMetrics("crm")
	r := mux.NewRouter()
	r.Use(m.Middleware)
	r.HandleFunc("/api/health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/health", nil))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	if !strings.Contains(body, `http_requests_total{method="GET",path="/api/health",service="crm",status="200"} 1`) {
		t.Fatalf("expected request counter in exposition, got:\n%s", body)
	}
	if !strings.Contains(body, "go_goroutines") {
		t.Fatalf("expected runtime collectors")
	}
}
