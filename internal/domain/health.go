package domain

// ============================================================
// Operational responses
// ============================================================

// HealthStatus is returned by GET /readyz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded
	Backends []BackendHealth `json:"backends"`
}

// BackendHealth is the reachability of one backend service.
type BackendHealth struct {
	Name      string `json:"name"`
	Status    string `json:"status"`
	LatencyMs int64  `json:"latencyMs"`
	Error     string `json:"error,omitempty"`
}
