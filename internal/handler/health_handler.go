package handler

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// Health returns basic health check
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// HealthCheckResult represents the result of a health check
type HealthCheckResult struct {
	Status    string `json:"status"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Check probes one dependency. Anything with a Ping method fits.
type Check func(ctx context.Context) error

// Ready returns readiness with every named dependency checked in parallel
func Ready(checks map[string]Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		var (
			mu      sync.Mutex
			wg      sync.WaitGroup
			results = make(map[string]HealthCheckResult, len(checks))
		)
		for name, check := range checks {
			wg.Add(1)
			go func(name string, check Check) {
				defer wg.Done()
				res := runCheck(ctx, check)
				mu.Lock()
				results[name] = res
				mu.Unlock()
			}(name, check)
		}
		wg.Wait()

		allHealthy := true
		for _, res := range results {
			if res.Status != "up" {
				allHealthy = false
			}
		}

		response := map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"checks":    results,
		}

		if allHealthy {
			response["status"] = "ready"
			writeJSON(w, http.StatusOK, response)
			return
		}
		response["status"] = "not_ready"
		writeJSON(w, http.StatusServiceUnavailable, response)
	}
}

func runCheck(ctx context.Context, check Check) HealthCheckResult {
	start := time.Now()
	err := check(ctx)
	latency := time.Since(start)

	if err != nil {
		return HealthCheckResult{
			Status:    "down",
			LatencyMs: latency.Milliseconds(),
			Error:     err.Error(),
		}
	}
	return HealthCheckResult{
		Status:    "up",
		LatencyMs: latency.Milliseconds(),
	}
}
