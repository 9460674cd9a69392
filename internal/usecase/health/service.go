package health

import (
	"context"

	"go.uber.org/zap"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates a non-critical dependency is failing.
	Degraded Status = "degraded"
	// Unhealthy indicates a critical dependency is failing.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Check is one named dependency. A failing critical check makes the service Unhealthy.
type Check struct {
	Name     string
	Checker  Checker
	Critical bool
}

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	checks []Check
	logger *zap.Logger
}

// New creates a Service. Checks with a nil Checker are skipped.
func New(l *zap.Logger, checks ...Check) *Service {
	if l == nil {
		l = zap.NewNop()
	}
	kept := make([]Check, 0, len(checks))
	for _, c := range checks {
		if c.Checker != nil {
			kept = append(kept, c)
		}
	}
	return &Service{checks: kept, logger: l}
}

// Check runs every registered check in order.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, len(s.checks))
	status := Healthy

	for _, c := range s.checks {
		if err := c.Checker.HealthCheck(ctx); err != nil {
			s.logger.Warn("health check failed", zap.String("check", c.Name), zap.Error(err))
			checks[c.Name] = CheckError
			if c.Critical {
				status = Unhealthy
			} else if status == Healthy {
				status = Degraded
			}
			continue
		}
		checks[c.Name] = CheckOK
	}

	return Report{Status: status, Checks: checks}
}
