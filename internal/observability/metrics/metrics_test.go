package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"MicroFrontend-Portal/pkg/plugin"
)

func TestInstrumentRecordsStatus(t *testing.T) {
	h := Instrument("test_config", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/boom" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	for _, path := range []string{"/", "/", "/boom"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("test_config", "GET", "200")); got != 2 {
		t.Fatalf("expected 2 successful requests, got %v", got)
	}
	if got := testutil.ToFloat64(httpRequestErrors.WithLabelValues("test_config", "GET")); got != 1 {
		t.Fatalf("expected 1 server error, got %v", got)
	}
}

func TestPluginEventSink(t *testing.T) {
	sink := PluginEventSink()
	ctx := context.Background()
	sink(ctx, plugin.Event{Type: plugin.EventRegistered, Plugin: "SinkA"})
	sink(ctx, plugin.Event{Type: plugin.EventRegistered, Plugin: "SinkB"})
	sink(ctx, plugin.Event{Type: plugin.EventCompleted, Duration: 20 * time.Millisecond})
	sink(ctx, plugin.Event{Type: plugin.EventFailed, Plugin: "SinkC", Duration: time.Millisecond})

	if got := testutil.ToFloat64(pluginLoadsTotal.WithLabelValues("SinkA", "registered")); got != 1 {
		t.Fatalf("expected SinkA registered once, got %v", got)
	}
	if got := testutil.ToFloat64(pluginLoadsTotal.WithLabelValues("SinkC", "failed")); got != 1 {
		t.Fatalf("expected SinkC failure, got %v", got)
	}
	if got := testutil.ToFloat64(pluginsRegistered); got != 2 {
		t.Fatalf("expected gauge 2, got %v", got)
	}
}

func TestHandlerExposesRegistry(t *testing.T) {
	ObserveHTTPRequest("exposed", http.MethodGet, http.StatusOK, time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `mfe_http_requests_total{code="200",handler="exposed",method="GET"} 1`) {
		t.Fatalf("metrics output missing request counter:\n%s", rec.Body.String())
	}
}

func TestStartServerRequiresAddress(t *testing.T) {
	if err := StartServer(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty address")
	}
}
