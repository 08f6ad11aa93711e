package requestlog_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/taskhub/internal/app/system/requestlog"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMiddleware_AssignsAndLogs(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := zap.New(core)

	var sawScoped bool
	h := requestlog.Middleware(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawScoped = requestlog.Logger(r, nil) != nil
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tasks", nil))

	if rec.Header().Get(requestlog.Header) == "" {
		t.Error("expected a request id header")
	}
	if !sawScoped {
		t.Error("expected a request-scoped logger in context")
	}
	entries := logs.FilterMessage("http_request").All()
	if len(entries) != 1 {
		t.Fatalf("got %d request log lines, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["status"] != int64(http.StatusTeapot) {
		t.Errorf("status field = %v, want %d", fields["status"], http.StatusTeapot)
	}
	if fields["path"] != "/tasks" {
		t.Errorf("path field = %v", fields["path"])
	}
}

func TestMiddleware_KeepsClientID(t *testing.T) {
	h := requestlog.Middleware(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestlog.Header, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get(requestlog.Header); got != "abc-123" {
		t.Errorf("request id = %q, want abc-123", got)
	}
}

func TestLogger_Fallback(t *testing.T) {
	fb := zap.NewNop()
	if got := requestlog.Logger(httptest.NewRequest(http.MethodGet, "/", nil), fb); got != fb {
		t.Error("expected fallback logger outside middleware")
	}
}
