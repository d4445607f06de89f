// Package health aggregates readiness checks for the pipeline's external
// dependencies: the Redis vector store and the embedding provider. The
// generation provider is deliberately not probed; it is only reachable
// through billable calls.
package health

import "context"

// Status is the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates at least one component is failing.
	Degraded Status = "degraded"
)

// CheckResult is one component's health check outcome.
type CheckResult string

const (
	CheckOK    CheckResult = "ok"
	CheckError CheckResult = "error"
)

// Report aggregates per-component check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	store    StorePinger
	provider ProviderChecker
}

// New creates a Service. provider can be nil when no embedding provider
// check is wanted.
func New(store StorePinger, provider ProviderChecker) *Service {
	return &Service{store: store, provider: provider}
}

// Check probes every configured component and aggregates the results. Any
// failing component degrades the overall status; the service keeps serving
// because retrieval already degrades gracefully.
func (s *Service) Check(ctx context.Context) Report {
	checks := map[string]CheckResult{
		"vector_store": resultOf(s.store.Ping(ctx)),
	}
	if s.provider != nil {
		checks["embedding_provider"] = resultOf(s.provider.HealthCheck(ctx))
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}

func resultOf(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
