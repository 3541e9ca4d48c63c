package server

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"mercator-hq/uidthrottle/pkg/config"
	"mercator-hq/uidthrottle/pkg/telemetry/health"
	"mercator-hq/uidthrottle/pkg/telemetry/logging"
	"mercator-hq/uidthrottle/pkg/telemetry/metrics"
	"mercator-hq/uidthrottle/pkg/telemetry/tracing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, control http.Handler) (*Server, *config.Config) {
	t.Helper()

	cfg := config.Default()
	cfg.Server.ListenAddress = "127.0.0.1:0"
	cfg.Server.ShutdownTimeout = time.Second
	cfg.Telemetry.Metrics.Namespace = "test"

	checker := health.New(time.Second)
	checker.RegisterCheck("table", health.TableCheck(func() bool { return true }))

	srv := NewServer(cfg, Routes{
		Control: control,
		Health:  checker,
		Metrics: metrics.NewCollector(&cfg.Telemetry.Metrics, prometheus.NewRegistry()),
		Build:   BuildInfo{Version: "1.0.0", Commit: "abc"},
	}, discardLogger())
	return srv, cfg
}

func TestServer_Routes(t *testing.T) {
	control := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "1000 4096 ts 0 qa 4096 stats_qa 0 slp 0s / W 1s last wr 0\n")
	})
	srv, cfg := newTestServer(t, control)
	h := srv.Handler()

	tests := []struct {
		name     string
		path     string
		wantCode int
		wantBody string
	}{
		{name: "control", path: cfg.Control.HTTP.Path, wantCode: http.StatusOK, wantBody: "1000 4096 ts"},
		{name: "liveness", path: "/health", wantCode: http.StatusOK, wantBody: `"status":"ok"`},
		{name: "readiness", path: "/ready", wantCode: http.StatusOK, wantBody: `"status":"ready"`},
		{name: "version", path: "/version", wantCode: http.StatusOK, wantBody: `"version":"1.0.0"`},
		{name: "metrics", path: "/metrics", wantCode: http.StatusOK, wantBody: "test_http_requests_in_flight"},
		{name: "unknown", path: "/nope", wantCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantBody != "" && !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body = %q, want substring %q", rec.Body.String(), tt.wantBody)
			}
			if rec.Header().Get(RequestIDHeader) == "" {
				t.Error("response missing request id")
			}
		})
	}
}

func TestServer_MetricsCountControlRequests(t *testing.T) {
	control := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	srv, cfg := newTestServer(t, control)
	h := srv.Handler()

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, cfg.Control.HTTP.Path, nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	want := `test_http_requests_total{code="204",method="post",route="control"} 1`
	if !strings.Contains(rec.Body.String(), want) {
		t.Errorf("scrape output missing %q", want)
	}
}

func TestServer_DisabledRoutes(t *testing.T) {
	srv, cfg := newTestServer(t, http.NotFoundHandler())
	cfg.Control.HTTP.Enabled = false
	cfg.Telemetry.Metrics.Enabled = false
	cfg.Telemetry.Health.Enabled = false
	h := srv.Handler()

	for _, path := range []string{"/metrics", "/health", "/ready"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s status = %d, want 404", path, rec.Code)
		}
	}
}

func TestServer_StartAndShutdown(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/health"
	deadline := time.Now().Add(3 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Errorf("status = %d, want 200", resp.StatusCode)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never answered: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	if !srv.IsRunning() {
		t.Error("IsRunning() = false while serving")
	}
	if srv.Addr() == nil {
		t.Error("Addr() = nil while serving")
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
	if srv.IsRunning() {
		t.Error("IsRunning() = true after shutdown")
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logging.GetRequestID(r.Context())
	}))

	tests := []struct {
		name     string
		header   string
		wantSame bool
	}{
		{name: "generated", header: ""},
		{name: "client supplied", header: "req-123", wantSame: true},
		{name: "too long", header: strings.Repeat("x", maxRequestIDLength+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(RequestIDHeader, tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			got := rec.Header().Get(RequestIDHeader)
			if got == "" || got != seen {
				t.Errorf("header %q, context %q", got, seen)
			}
			if (got == tt.header) != tt.wantSame {
				t.Errorf("request id = %q, header %q, wantSame %v", got, tt.header, tt.wantSame)
			}
		})
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	h := RecoveryMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(buf.String(), "panic in handler") {
		t.Errorf("log = %q, want panic entry", buf.String())
	}
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	h := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad", http.StatusBadRequest)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/ratelimit", nil))

	out := buf.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "status=400") {
		t.Errorf("log = %q", out)
	}
}

func TestServer_Tracing(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tracer, err := tracing.NewWithExporter(&config.TracingConfig{
		Enabled:     true,
		ServiceName: "test",
		Sampler:     tracing.SamplerAlways,
	}, "test", exporter)
	if err != nil {
		t.Fatalf("NewWithExporter() error = %v", err)
	}
	defer tracer.Shutdown(context.Background())

	cfg := config.Default()
	cfg.Telemetry.Metrics.Namespace = "test"
	srv := NewServer(cfg, Routes{
		Control: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}),
		Metrics: metrics.NewCollector(&cfg.Telemetry.Metrics, prometheus.NewRegistry()),
		Tracer:  tracer,
	}, discardLogger())

	const parent = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"
	req := httptest.NewRequest(http.MethodPost, cfg.Control.HTTP.Path, strings.NewReader("1000 64"))
	req.Header.Set("traceparent", parent)
	req.Header.Set(RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get(tracing.TraceIDHeader); got != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("%s = %q, want caller's trace id", tracing.TraceIDHeader, got)
	}

	if err := tracer.ForceFlush(context.Background()); err != nil {
		t.Fatalf("ForceFlush() error = %v", err)
	}
	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(spans))
	}

	attrs := make(map[string]string)
	for _, kv := range spans[0].Attributes {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	if attrs[tracing.AttrRequestID] != "req-42" {
		t.Errorf("%s = %q, want req-42", tracing.AttrRequestID, attrs[tracing.AttrRequestID])
	}
	if attrs[tracing.AttrHTTPStatusCode] != "200" {
		t.Errorf("%s = %q, want 200", tracing.AttrHTTPStatusCode, attrs[tracing.AttrHTTPStatusCode])
	}
}
