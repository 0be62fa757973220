package health

import (
	"encoding/json"
	"net/http"
)

// HTTPHandler serves the full health report. A degraded daemon still answers
// 200 so orchestrators do not restart it over partial failures.
func (hc *HealthChecker) HTTPHandler() http.HandlerFunc {
	return hc.serve(hc.Check, true)
}

// ReadinessHandler serves the readiness probes. Anything short of healthy is
// not ready.
func (hc *HealthChecker) ReadinessHandler() http.HandlerFunc {
	return hc.serve(hc.CheckReadiness, false)
}

// LivenessHandler serves the liveness probes. Anything short of healthy is
// not alive.
func (hc *HealthChecker) LivenessHandler() http.HandlerFunc {
	return hc.serve(hc.CheckLiveness, false)
}

func (hc *HealthChecker) serve(run func() Response, degradedOK bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := run()

		code := http.StatusOK
		if resp.Status == StatusUnhealthy || (resp.Status == StatusDegraded && !degradedOK) {
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(resp)
	}
}
