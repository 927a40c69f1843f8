package util

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func serveWithRequestID(t *testing.T, incoming string) (ctxID, headerID string) {
	t.Helper()
	h := WithRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	if incoming != "" {
		req.Header.Set(RequestIDHeader, incoming)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return ctxID, rec.Header().Get(RequestIDHeader)
}

func TestWithRequestIDKeepsFrontendID(t *testing.T) {
	ctxID, headerID := serveWithRequestID(t, "web-7f3a:42")
	if ctxID != "web-7f3a:42" || headerID != ctxID {
		t.Fatalf("ids = %q / %q", ctxID, headerID)
	}
}

func TestWithRequestIDReplacesMissingOrUnsafeIDs(t *testing.T) {
	for _, incoming := range []string{"", "bad id\nforged=1", strings.Repeat("a", 65)} {
		ctxID, headerID := serveWithRequestID(t, incoming)
		if ctxID == "" || ctxID == incoming || headerID != ctxID {
			t.Fatalf("incoming %q gave ids %q / %q", incoming, ctxID, headerID)
		}
		if len(ctxID) != 32 {
			t.Fatalf("generated id %q is not a 32 char hex id", ctxID)
		}
	}
}

func TestRequestIDFromContextWithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	if got := RequestIDFromContext(req.Context()); got != "" {
		t.Fatalf("expected empty id, got %q", got)
	}
}
