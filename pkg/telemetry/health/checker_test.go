package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCheckReadinessAllPassing(t *testing.T) {
	checker := New(0)
	checker.Register("redis", func(ctx context.Context) error { return nil })
	checker.Register("rules", func(ctx context.Context) error { return nil })

	status := checker.CheckReadiness(context.Background())

	if status.Status != "ok" {
		t.Fatalf("status = %q, want ok", status.Status)
	}
	if len(status.Checks) != 2 {
		t.Fatalf("len(checks) = %d, want 2", len(status.Checks))
	}
	for name, result := range status.Checks {
		if result.Status != "ok" {
			t.Errorf("check %q status = %q, want ok", name, result.Status)
		}
	}
}

func TestCheckReadinessDegraded(t *testing.T) {
	checker := New(0)
	checker.Register("redis", func(ctx context.Context) error {
		return errors.New("connection refused")
	})
	checker.Register("rules", func(ctx context.Context) error { return nil })

	status := checker.CheckReadiness(context.Background())

	if status.Status != "degraded" {
		t.Fatalf("status = %q, want degraded", status.Status)
	}
	redis := status.Checks["redis"]
	if redis.Status != "unhealthy" {
		t.Errorf("redis status = %q, want unhealthy", redis.Status)
	}
	if redis.Message != "connection refused" {
		t.Errorf("redis message = %q, want connection refused", redis.Message)
	}
	if rules := status.Checks["rules"]; rules.Status != "ok" {
		t.Errorf("rules status = %q, want ok", rules.Status)
	}
}

func TestCheckTimeout(t *testing.T) {
	checker := New(50 * time.Millisecond)
	checker.Register("slow", func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
			return nil
		}
	})

	status := checker.CheckReadiness(context.Background())

	if status.Status != "degraded" {
		t.Fatalf("status = %q, want degraded", status.Status)
	}
	if status.Checks["slow"].Status != "unhealthy" {
		t.Errorf("slow status = %q, want unhealthy", status.Checks["slow"].Status)
	}
}

func TestRegisterReplaces(t *testing.T) {
	checker := New(0)
	checker.Register("dep", func(ctx context.Context) error {
		return errors.New("old")
	})
	checker.Register("dep", func(ctx context.Context) error { return nil })

	status := checker.CheckReadiness(context.Background())

	if status.Status != "ok" {
		t.Fatalf("status = %q, want ok", status.Status)
	}
}

func TestLivenessHandler(t *testing.T) {
	checker := New(0)
	checker.Register("redis", func(ctx context.Context) error {
		return errors.New("down")
	})

	rec := httptest.NewRecorder()
	checker.LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body Status
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("body status = %q, want ok", body.Status)
	}
}

func TestLivenessHandlerRejectsPost(t *testing.T) {
	checker := New(0)

	rec := httptest.NewRecorder()
	checker.LivenessHandler()(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestReadinessHandler(t *testing.T) {
	tests := []struct {
		name       string
		checkErr   error
		wantStatus int
		wantBody   string
	}{
		{name: "healthy", checkErr: nil, wantStatus: http.StatusOK, wantBody: "ok"},
		{name: "degraded", checkErr: errors.New("down"), wantStatus: http.StatusServiceUnavailable, wantBody: "degraded"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			checker := New(0)
			checker.Register("redis", func(ctx context.Context) error {
				return tc.checkErr
			})

			rec := httptest.NewRecorder()
			checker.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			var body Status
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Status != tc.wantBody {
				t.Errorf("body status = %q, want %q", body.Status, tc.wantBody)
			}
		})
	}
}

func TestReadinessHandlerHeadOmitsBody(t *testing.T) {
	checker := New(0)

	rec := httptest.NewRecorder()
	checker.ReadinessHandler()(rec, httptest.NewRequest(http.MethodHead, "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("body length = %d, want 0", rec.Body.Len())
	}
}
