package observability

import (
	"context"
	"sort"
	"time"
)

// Version is reported by readiness checks
const Version = "1.0.0"

// HealthStatus represents the readiness of the narrator and its dependencies
type HealthStatus struct {
	Status       string                      `json:"status" yaml:"status"`
	Service      string                      `json:"service" yaml:"service"`
	Version      string                      `json:"version" yaml:"version"`
	Timestamp    string                      `json:"timestamp" yaml:"timestamp"`
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
}

// DependencyStatus represents the status of a dependency
type DependencyStatus struct {
	Status    string `json:"status" yaml:"status"`
	Message   string `json:"message,omitempty" yaml:"message,omitempty"`
	LatencyMs int64  `json:"latency_ms" yaml:"latency_ms"`
}

// Ready reports whether every dependency passed
func (s HealthStatus) Ready() bool {
	return s.Status == "ready"
}

// HealthCheckFunc checks one dependency. A non-nil error marks it unhealthy
// and its message is reported.
type HealthCheckFunc func(ctx context.Context) (bool, error)

// CheckReadiness runs the named checks one after another, in name order,
// sharing a single timeout.
func CheckReadiness(ctx context.Context, timeout time.Duration, checks map[string]HealthCheckFunc) HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	dependencies := make(map[string]DependencyStatus, len(checks))
	allHealthy := true

	for _, name := range names {
		check := checks[name]
		if check == nil {
			continue
		}

		start := time.Now()
		healthy, err := check(ctx)
		latency := time.Since(start).Milliseconds()

		status := "healthy"
		message := ""
		if err != nil || !healthy {
			status = "unhealthy"
			allHealthy = false
			if err != nil {
				message = err.Error()
			}
		}

		dependencies[name] = DependencyStatus{
			Status:    status,
			Message:   message,
			LatencyMs: latency,
		}
	}

	status := HealthStatus{
		Status:       "ready",
		Service:      "deck-narrator",
		Version:      Version,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Dependencies: dependencies,
	}
	if !allHealthy {
		status.Status = "not_ready"
	}
	return status
}
