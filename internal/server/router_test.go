package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/singed2905/api/internal/config"
	"github.com/singed2905/api/internal/geometry"
	"github.com/singed2905/api/internal/observability"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	observability.Logger = zap.NewNop()
	if err := geometry.InitMetrics(); err != nil {
		t.Fatalf("initializing geometry metrics: %v", err)
	}

	provider, err := config.NewProvider("", "fx799")
	if err != nil {
		t.Fatalf("loading default tables: %v", err)
	}

	return NewRouter(provider)
}

func TestNewRouterHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	if body := w.Body.String(); body != "ok" {
		t.Fatalf("expected body %q, got %q", "ok", body)
	}
}

func TestNewRouterCalculateSetsHeaderAndReturnsResult(t *testing.T) {
	router := newTestRouter(t)

	body := []byte(`{
		"operation": "distance",
		"shape_a": {"kind": "point", "dimension": 3, "parameters": [1, 2, 3]},
		"shape_b": {"kind": "point", "dimension": 3, "parameters": [4, 5, 6]},
		"calculator_model": "fx799"
	}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/geometry/calculate", bytes.NewReader(body))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	requestID := w.Result().Header.Get("X-Request-ID")
	if requestID == "" {
		t.Fatal("expected X-Request-ID header to be set")
	}
	if _, err := uuid.Parse(requestID); err != nil {
		t.Fatalf("expected valid UUID in X-Request-ID, got %q: %v", requestID, err)
	}

	var payload map[string]any
	if err := json.NewDecoder(w.Result().Body).Decode(&payload); err != nil {
		t.Fatalf("decoding JSON response: %v", err)
	}

	if got, ok := payload["status"].(string); !ok || got != "completed" {
		t.Fatalf("expected status completed, got %#v", payload["status"])
	}

	calc, ok := payload["calculation"].(map[string]any)
	if !ok {
		t.Fatalf("expected calculation object, got %#v", payload["calculation"])
	}
	values, ok := calc["values"].(map[string]any)
	if !ok {
		t.Fatalf("expected values object, got %#v", calc["values"])
	}
	dist, ok := values["distance"].(float64)
	if !ok || dist < 5.19 || dist > 5.20 {
		t.Fatalf("expected distance ~5.196, got %#v", values["distance"])
	}
}

func TestNewRouterUnsupportedCombinationIsRejected(t *testing.T) {
	router := newTestRouter(t)

	body := []byte(`{
		"operation": "distance",
		"shape_a": {"kind": "circle", "dimension": 2, "parameters": [0, 0, 5]},
		"shape_b": {"kind": "circle", "dimension": 2, "parameters": [1, 1, 2]},
		"calculator_model": "fx799"
	}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/geometry/calculate", bytes.NewReader(body))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status %d, got %d: %s", http.StatusUnprocessableEntity, w.Code, w.Body.String())
	}

	var payload map[string]string
	if err := json.NewDecoder(w.Result().Body).Decode(&payload); err != nil {
		t.Fatalf("decoding JSON response: %v", err)
	}
	if payload["code"] != "unsupported_combination" {
		t.Fatalf("expected code unsupported_combination, got %q", payload["code"])
	}
}
