package handlers

import (
	"net/http"

	"github.com/wonny/arena/internal/orders"
	"github.com/wonny/arena/internal/positions"
	"github.com/wonny/arena/internal/scheduler"
	"github.com/wonny/arena/pkg/logger"
)

// StatusHandler aggregates operational state for dashboards
type StatusHandler struct {
	executor  *orders.Executor
	cache     *positions.Cache
	scheduler *scheduler.Scheduler
	logger    *logger.Logger
}

// NewStatusHandler creates a new status handler. Collaborators may be nil
// when the corresponding subsystem is not wired.
func NewStatusHandler(executor *orders.Executor, cache *positions.Cache, sched *scheduler.Scheduler, log *logger.Logger) *StatusHandler {
	return &StatusHandler{
		executor:  executor,
		cache:     cache,
		scheduler: sched,
		logger:    log,
	}
}

// GetStatus returns kill switch, position cache, and job status
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	status := make(map[string]interface{})

	if h.executor != nil {
		status["kill_switch"] = h.executor.KillSwitchEnabled()
	}
	if h.cache != nil {
		status["positions"] = map[string]interface{}{
			"count":   h.cache.Len(),
			"stale":   h.cache.Stale(),
			"age_sec": h.cache.Age().Seconds(),
		}
	}
	if h.scheduler != nil {
		status["jobs"] = h.scheduler.Stats()
	}

	respondJSON(w, http.StatusOK, status)
}
