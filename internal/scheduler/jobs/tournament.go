package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/arena/internal/tournament"
	"github.com/wonny/arena/pkg/logger"
)

// TournamentJob runs the promotion/demotion cycle on its configured interval
type TournamentJob struct {
	controller *tournament.Controller
	interval   time.Duration
	logger     *logger.Logger
}

// NewTournamentJob creates the recurring tournament cycle job
func NewTournamentJob(controller *tournament.Controller, interval time.Duration, log *logger.Logger) *TournamentJob {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &TournamentJob{
		controller: controller,
		interval:   interval,
		logger:     log,
	}
}

// Name returns the job name
func (j *TournamentJob) Name() string { return "tournament_cycle" }

// Schedule returns the cron descriptor for the configured interval
func (j *TournamentJob) Schedule() string {
	return fmt.Sprintf("@every %s", j.interval)
}

// Run executes one tournament cycle
func (j *TournamentJob) Run(ctx context.Context) error {
	records, err := j.controller.RunCycle(ctx)
	if err != nil {
		return fmt.Errorf("tournament cycle: %w", err)
	}

	promoted, demoted := 0, 0
	for _, r := range records {
		switch r.Decision {
		case tournament.DecisionPromote:
			promoted++
		case tournament.DecisionDemote:
			demoted++
		}
	}

	j.logger.WithFields(map[string]interface{}{
		"evaluated": len(records),
		"promoted":  promoted,
		"demoted":   demoted,
	}).Info("Tournament cycle job finished")

	return nil
}
