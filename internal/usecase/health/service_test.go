package health

import (
	"context"
	"errors"
	"testing"
)

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

type mockChecker struct {
	err error
}

func (m *mockChecker) HealthCheck(_ context.Context) error { return m.err }

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(&mockPinger{}, &mockChecker{})
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("status = %q, want %q", r.Status, Healthy)
	}
	if r.Checks["vector_store"] != CheckOK || r.Checks["embedding_provider"] != CheckOK {
		t.Errorf("checks = %v", r.Checks)
	}
}

func TestCheck_StoreDown(t *testing.T) {
	svc := New(&mockPinger{err: errors.New("conn refused")}, &mockChecker{})
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("status = %q, want %q", r.Status, Degraded)
	}
	if r.Checks["vector_store"] != CheckError {
		t.Errorf("vector_store = %q", r.Checks["vector_store"])
	}
	if r.Checks["embedding_provider"] != CheckOK {
		t.Errorf("embedding_provider = %q", r.Checks["embedding_provider"])
	}
}

func TestCheck_ProviderDown(t *testing.T) {
	svc := New(&mockPinger{}, &mockChecker{err: errors.New("timeout")})
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("status = %q, want %q", r.Status, Degraded)
	}
	if r.Checks["embedding_provider"] != CheckError {
		t.Errorf("embedding_provider = %q", r.Checks["embedding_provider"])
	}
}

func TestCheck_NoProviderConfigured(t *testing.T) {
	svc := New(&mockPinger{}, nil)
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("status = %q, want %q", r.Status, Healthy)
	}
	if _, ok := r.Checks["embedding_provider"]; ok {
		t.Error("provider check should be absent when provider is nil")
	}
}
