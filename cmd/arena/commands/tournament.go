package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/arena/pkg/config"
	"github.com/wonny/arena/pkg/logger"
)

// tournamentCmd represents the tournament command
var tournamentCmd = &cobra.Command{
	Use:   "tournament",
	Short: "토너먼트 사이클 실행",
	Long: `전략 승격/강등 사이클을 실행합니다.

--once 플래그로 한 번만 실행하거나, 기본값으로 스케줄러에 올려
설정된 간격(TOURNAMENT_CYCLE_INTERVAL)마다 반복 실행합니다.

Example:
  go run ./cmd/arena tournament --once
  go run ./cmd/arena tournament`,
	RunE: runTournament,
}

var tournamentOnce bool

func init() {
	rootCmd.AddCommand(tournamentCmd)

	tournamentCmd.Flags().BoolVar(&tournamentOnce, "once", false, "사이클을 한 번만 실행")
}

func runTournament(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	c, err := buildCore(cfg, log)
	if err != nil {
		return fmt.Errorf("build core: %w", err)
	}
	defer c.close()

	if tournamentOnce {
		records, err := c.tournament.RunCycle(context.Background())
		if err != nil {
			return fmt.Errorf("tournament cycle: %w", err)
		}

		out, _ := json.MarshalIndent(records, "", "  ")
		fmt.Println(string(out))
		return nil
	}

	fmt.Printf("=== Tournament scheduler (every %s) ===\n", cfg.Tournament.CycleInterval)
	c.scheduler.Start()
	defer c.scheduler.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Tournament scheduler stopped")
	return nil
}
