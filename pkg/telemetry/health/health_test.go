package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"reloadr-hq/reloadr/pkg/config"
)

func TestNew(t *testing.T) {
	if got := New(0).checkTimeout; got != 5*time.Second {
		t.Errorf("expected default timeout 5s, got %v", got)
	}
	if got := New(time.Second).checkTimeout; got != time.Second {
		t.Errorf("expected timeout 1s, got %v", got)
	}
}

func TestRegisterCheck(t *testing.T) {
	checker := New(time.Second)
	checker.RegisterCheck("b", func(ctx context.Context) error { return nil })
	checker.RegisterCheck("a", func(ctx context.Context) error { return nil })

	names := checker.ListChecks()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("expected [a b], got %v", names)
	}

	checker.UnregisterCheck("a")
	if names := checker.ListChecks(); len(names) != 1 {
		t.Errorf("expected 1 check after unregister, got %v", names)
	}
}

func TestCheckReadiness(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]CheckFunc
		want   string
	}{
		{name: "no checks", checks: nil, want: "ready"},
		{
			name:   "all healthy",
			checks: map[string]CheckFunc{"journal": func(ctx context.Context) error { return nil }},
			want:   "ready",
		},
		{
			name: "one unhealthy",
			checks: map[string]CheckFunc{
				"journal": func(ctx context.Context) error { return nil },
				"reloads": func(ctx context.Context) error { return errors.New("stale") },
			},
			want: "degraded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := New(time.Second)
			for name, check := range tt.checks {
				checker.RegisterCheck(name, check)
			}

			status := checker.CheckReadiness(context.Background())
			if status.Status != tt.want {
				t.Errorf("expected status %q, got %q", tt.want, status.Status)
			}
			if len(status.Checks) != len(tt.checks) {
				t.Errorf("expected %d results, got %d", len(tt.checks), len(status.Checks))
			}
		})
	}
}

func TestCheckReadiness_Timeout(t *testing.T) {
	checker := New(20 * time.Millisecond)
	checker.RegisterCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		return nil
	})

	status := checker.CheckReadiness(context.Background())
	if status.Status != "degraded" {
		t.Fatalf("expected degraded, got %q", status.Status)
	}
	if msg := status.Checks["slow"].Message; msg != ErrCheckTimeout.Error() {
		t.Errorf("expected timeout message, got %q", msg)
	}
}

func TestReloadTracker(t *testing.T) {
	tracker := NewReloadTracker()
	at := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

	tracker.Record("f", nil, at)
	if err := tracker.Check(context.Background()); err != nil {
		t.Fatalf("expected healthy tracker, got %v", err)
	}

	tracker.Record("Handler", errors.New("syntax error"), at)
	tracker.Record("f", errors.New("undefined: x"), at)

	failing := tracker.Failing()
	if len(failing) != 2 || failing[0] != "Handler" || failing[1] != "f" {
		t.Fatalf("expected [Handler f], got %v", failing)
	}
	err := tracker.Check(context.Background())
	if err == nil || !strings.Contains(err.Error(), "Handler (syntax error at 2026-10-16T12:00:00Z)") {
		t.Errorf("unexpected check error %v", err)
	}

	tracker.Record("Handler", nil, at)
	tracker.Record("f", nil, at)
	if err := tracker.Check(context.Background()); err != nil {
		t.Errorf("expected recovery after successful reloads, got %v", err)
	}
}

func TestHandlers(t *testing.T) {
	checker := New(time.Second)
	tracker := NewReloadTracker()
	checker.RegisterCheck("reloads", tracker.Check)

	mux := http.NewServeMux()
	cfg := config.Default().Telemetry.Health
	Mount(mux, checker, cfg, VersionInfo{Version: "1.2.3", Commit: "abc"})

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	if rec := get(cfg.LivenessPath); rec.Code != http.StatusOK {
		t.Errorf("expected liveness 200, got %d", rec.Code)
	}
	if rec := get(cfg.ReadinessPath); rec.Code != http.StatusOK {
		t.Errorf("expected readiness 200, got %d", rec.Code)
	}

	tracker.Record("f", errors.New("boom"), time.Now())
	rec := get(cfg.ReadinessPath)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected readiness 503, got %d", rec.Code)
	}
	var status HealthStatus
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("invalid readiness body: %v", err)
	}
	if status.Checks["reloads"].Status != "unhealthy" {
		t.Errorf("expected reloads check unhealthy, got %+v", status.Checks)
	}

	rec = get("/version")
	var info VersionInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("invalid version body: %v", err)
	}
	if info.Version != "1.2.3" || info.GoVersion == "" {
		t.Errorf("unexpected version info %+v", info)
	}

	post := httptest.NewRecorder()
	mux.ServeHTTP(post, httptest.NewRequest(http.MethodPost, cfg.LivenessPath, nil))
	if post.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for POST, got %d", post.Code)
	}
}
