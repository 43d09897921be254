package health

import (
	"encoding/json"
	"net/http"
)

// servesTraffic admits degraded: the engine still answers while the
// IO-Tool is busy.
func servesTraffic(s Status) bool { return s != StatusUnhealthy }

func fullyHealthy(s Status) bool { return s == StatusHealthy }

// handler runs the checks of scope and answers 200 when ok accepts the
// aggregate status, 503 otherwise. HEAD gets the status line only.
func (hc *HealthChecker) handler(scope Scope, ok func(Status) bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := hc.Run(scope)

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		code := http.StatusOK
		if !ok(response.Status) {
			code = http.StatusServiceUnavailable
		}
		w.WriteHeader(code)
		if r.Method == http.MethodHead {
			return
		}
		json.NewEncoder(w).Encode(response)
	}
}

// HTTPHandler answers /health. Degraded still answers 200.
func (hc *HealthChecker) HTTPHandler() http.HandlerFunc {
	return hc.handler(ScopeGeneral, servesTraffic)
}

// ReadinessHandler answers /health/ready; anything short of healthy is 503.
func (hc *HealthChecker) ReadinessHandler() http.HandlerFunc {
	return hc.handler(ScopeReadiness, fullyHealthy)
}

// LivenessHandler answers /health/live.
func (hc *HealthChecker) LivenessHandler() http.HandlerFunc {
	return hc.handler(ScopeLiveness, fullyHealthy)
}
