package health

import (
	"context"
	"errors"
	"net/http"
	"testing"
)

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusHealthy, "healthy"},
		{StatusDegraded, "degraded"},
		{StatusUnhealthy, "unhealthy"},
		{Status(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("Status(%d).String() = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestStatus_HTTPStatus(t *testing.T) {
	if got := StatusHealthy.HTTPStatus(); got != http.StatusOK {
		t.Errorf("healthy = %d, want 200", got)
	}
	if got := StatusDegraded.HTTPStatus(); got != http.StatusOK {
		t.Errorf("degraded = %d, want 200", got)
	}
	if got := StatusUnhealthy.HTTPStatus(); got != http.StatusServiceUnavailable {
		t.Errorf("unhealthy = %d, want 503", got)
	}
}

func TestResultConstructors(t *testing.T) {
	err := errors.New("boom")

	if r := Healthy("ok"); r.Status != StatusHealthy || r.Message != "ok" || r.Timestamp.IsZero() {
		t.Errorf("Healthy() = %+v", r)
	}
	if r := Degraded("slow"); r.Status != StatusDegraded {
		t.Errorf("Degraded() = %+v", r)
	}
	if r := Unhealthy("down", err); r.Status != StatusUnhealthy || r.Error != err {
		t.Errorf("Unhealthy() = %+v", r)
	}

	r := Healthy("ok").WithDetails(map[string]any{"k": 1})
	if r.Details["k"] != 1 {
		t.Errorf("WithDetails() details = %v", r.Details)
	}
}

func TestCheckerFunc(t *testing.T) {
	c := NewCheckerFunc("fn", func(ctx context.Context) Result {
		return Degraded("meh")
	})

	if c.Name() != "fn" {
		t.Errorf("Name() = %q, want fn", c.Name())
	}
	if r := c.Check(context.Background()); r.Status != StatusDegraded {
		t.Errorf("Check() status = %v, want degraded", r.Status)
	}
}
