package handler

import (
	"net/http"
	"time"

	"github.com/dealradar/backend/internal/engine"
)

// SchedulerStatus reports next run times for the health endpoint.
type SchedulerStatus interface {
	IsRunning() bool
	NextRun(name string) time.Time
}

// HealthHandler exposes liveness plus last-run engine stats.
type HealthHandler struct {
	metrics   *engine.MetricsCollector
	scheduler SchedulerStatus
}

func NewHealthHandler(metrics *engine.MetricsCollector, scheduler SchedulerStatus) *HealthHandler {
	return &HealthHandler{metrics: metrics, scheduler: scheduler}
}

// Health is the plain liveness probe.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// EngineStatus reports per-job last-run metrics and upcoming schedule.
func (h *HealthHandler) EngineStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status": "ok",
	}
	if h.metrics != nil {
		status["jobs"] = h.metrics.Snapshot()
	}
	if h.scheduler != nil {
		next := map[string]time.Time{}
		for _, name := range []string{"rule_check", "price_drop_check", "daily_digest_flush", "weekly_digest_flush"} {
			if t := h.scheduler.NextRun(name); !t.IsZero() {
				next[name] = t
			}
		}
		status["running"] = h.scheduler.IsRunning()
		status["nextRuns"] = next
	}
	respondJSON(w, http.StatusOK, status)
}
