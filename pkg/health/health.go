// Package health reports the state of the topology store, the semantic
// graph and the IO-Tool gateway.
package health

import (
	"fmt"
	"time"
)

// Option configures a HealthChecker.
type Option func(*HealthChecker)

// WithVersion stamps every response with the build version.
func WithVersion(v string) Option {
	return func(hc *HealthChecker) { hc.version = v }
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(opts ...Option) *HealthChecker {
	hc := &HealthChecker{
		checks: map[Scope]map[string]CheckFunc{
			ScopeGeneral:   {},
			ScopeReadiness: {},
			ScopeLiveness:  {},
		},
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(hc)
	}
	return hc
}

// Register adds a check under scope, replacing any check of the same name.
func (hc *HealthChecker) Register(scope Scope, name string, check CheckFunc) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks[scope][name] = check
}

// RegisterCheck registers a check answered by /health.
func (hc *HealthChecker) RegisterCheck(name string, check CheckFunc) {
	hc.Register(ScopeGeneral, name, check)
}

// RegisterReadinessCheck registers a readiness check
func (hc *HealthChecker) RegisterReadinessCheck(name string, check CheckFunc) {
	hc.Register(ScopeReadiness, name, check)
}

// RegisterLivenessCheck registers a liveness check
func (hc *HealthChecker) RegisterLivenessCheck(name string, check CheckFunc) {
	hc.Register(ScopeLiveness, name, check)
}

// Check performs all general checks
func (hc *HealthChecker) Check() Response { return hc.Run(ScopeGeneral) }

// CheckReadiness performs readiness checks
func (hc *HealthChecker) CheckReadiness() Response { return hc.Run(ScopeReadiness) }

// CheckLiveness performs liveness checks
func (hc *HealthChecker) CheckLiveness() Response { return hc.Run(ScopeLiveness) }

// Run performs every check of scope. Checks run outside the registry lock;
// the worst status wins.
func (hc *HealthChecker) Run(scope Scope) Response {
	hc.mu.RLock()
	checks := make(map[string]CheckFunc, len(hc.checks[scope]))
	for name, fn := range hc.checks[scope] {
		checks[name] = fn
	}
	hc.mu.RUnlock()

	response := Response{
		Status:    StatusHealthy,
		Version:   hc.version,
		Timestamp: time.Now(),
		Checks:    make(map[string]Check, len(checks)),
		Uptime:    time.Since(hc.startTime).Seconds(),
	}

	for name, fn := range checks {
		start := time.Now()
		check := runCheck(name, fn)
		check.LastChecked = start
		check.Duration = time.Since(start)
		check.DurationMS = float64(check.Duration.Microseconds()) / 1000

		response.Checks[name] = check
		if check.Status.worse(response.Status) {
			response.Status = check.Status
		}
	}

	return response
}

// runCheck turns a panicking check into an unhealthy result.
func runCheck(name string, fn CheckFunc) (check Check) {
	defer func() {
		if r := recover(); r != nil {
			check = Check{Name: name, Status: StatusUnhealthy, Message: fmt.Sprintf("check panicked: %v", r)}
		}
	}()
	check = fn()
	if check.Name == "" {
		check.Name = name
	}
	return check
}
