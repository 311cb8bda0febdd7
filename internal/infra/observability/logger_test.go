package observability_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/boddenberg/pay-selfservice-go/internal/infra/observability"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_Levels(t *testing.T) {
	if l := observability.NewLogger("debug"); !l.Core().Enabled(zapcore.DebugLevel) {
		t.Error("expected debug enabled")
	}
	if l := observability.NewLogger("WARN"); l.Core().Enabled(zapcore.InfoLevel) {
		t.Error("expected info disabled at warn")
	}
	if l := observability.NewLogger("nonsense"); !l.Core().Enabled(zapcore.InfoLevel) || l.Core().Enabled(zapcore.DebugLevel) {
		t.Error("expected unknown level to fall back to info")
	}
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := chi.NewRouter()
	r.Use(observability.RequestLogger(zap.New(core)))
	r.Get("/service/{serviceExternalId}/dashboard", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/service/svc-123/dashboard", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	first := entries[0]
	if first.Level != zapcore.WarnLevel {
		t.Errorf("expected warn for 404, got %s", first.Level)
	}
	if route := first.ContextMap()["route"]; route != "/service/{serviceExternalId}/dashboard" {
		t.Errorf("expected route pattern, got %v", route)
	}
	if entries[1].Level != zapcore.DebugLevel {
		t.Errorf("expected debug for probe, got %s", entries[1].Level)
	}
}
