// Package health aggregates component health for the ops endpoint.
package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status   Status                 `json:"status"`
	Services []string               `json:"services"`
	Checks   map[string]CheckResult `json:"checks,omitempty"`
}

// Service coordinates health checks.
type Service struct {
	cache    CachePinger
	services []string
}

// New creates a Service. cache can be nil when no record cache is
// configured. services lists the hosted fact service names.
func New(cache CachePinger, services []string) *Service {
	return &Service{cache: cache, services: services}
}

// Check runs health checks against all optional components. Fact services
// themselves are in-process and always serving while the daemon runs.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if s.cache != nil {
		if err := s.cache.Ping(ctx); err != nil {
			checks["cache"] = CheckError
		} else {
			checks["cache"] = CheckOK
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Services: s.services, Checks: checks}
}
