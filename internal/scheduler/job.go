package scheduler

import (
	"context"
	"time"
)

// Job is one recurring unit of work
// ⭐ SSOT: 스케줄 작업 인터페이스는 여기서만 정의
type Job interface {
	Name() string
	Run(ctx context.Context) error

	// Schedule returns the cron expression (with seconds field),
	// e.g. "0 */15 * * * *" or "@hourly"
	Schedule() string
}

// JobResult is one recorded execution
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`
	Attempts  int           `json:"attempts"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// jobHistory keeps the last N results per job
type jobHistory struct {
	results []JobResult
	limit   int
}

func (h *jobHistory) add(result JobResult) {
	h.results = append(h.results, result)
	if h.limit > 0 && len(h.results) > h.limit {
		h.results = h.results[len(h.results)-h.limit:]
	}
}

func (h *jobHistory) successRate() float64 {
	if len(h.results) == 0 {
		return 0
	}
	ok := 0
	for _, r := range h.results {
		if r.Success {
			ok++
		}
	}
	return float64(ok) / float64(len(h.results))
}

// JobStats is the dashboard view of one job
type JobStats struct {
	JobName     string     `json:"job_name"`
	Schedule    string     `json:"schedule"`
	TotalRuns   int        `json:"total_runs"`
	Failures    int        `json:"failures"`
	SuccessRate float64    `json:"success_rate"`
	LastRun     *time.Time `json:"last_run,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
}
