package health

import (
	"sync"
	"time"
)

// Status represents the health status of a component
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// worse reports whether s outranks other.
func (s Status) worse(other Status) bool {
	rank := func(st Status) int {
		switch st {
		case StatusUnhealthy:
			return 2
		case StatusDegraded:
			return 1
		default:
			return 0
		}
	}
	return rank(s) > rank(other)
}

// Scope selects which endpoint a check answers for.
type Scope int

const (
	ScopeGeneral Scope = iota
	ScopeReadiness
	ScopeLiveness
)

// Check is the result of one named check.
type Check struct {
	Name        string         `json:"name"`
	Status      Status         `json:"status"`
	Message     string         `json:"message,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	LastChecked time.Time      `json:"last_checked"`
	Duration    time.Duration  `json:"-"`
	DurationMS  float64        `json:"duration_ms"`
}

// CheckFunc is a function that performs a health check
type CheckFunc func() Check

// HealthChecker holds the engine's checks per scope.
type HealthChecker struct {
	mu        sync.RWMutex
	checks    map[Scope]map[string]CheckFunc
	startTime time.Time
	version   string
}

// Response represents the overall health response
type Response struct {
	Status    Status           `json:"status"`
	Version   string           `json:"version,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Checks    map[string]Check `json:"checks"`
	Uptime    float64          `json:"uptime_seconds"`
}
