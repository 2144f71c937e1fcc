package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/arena/internal/tournament"
	"github.com/wonny/arena/pkg/config"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "설정 및 스테이지 사다리 출력",
	Long: `해석된 설정과 토너먼트 스테이지 사다리를 출력합니다.

배포 전 환경 변수 점검에 사용합니다.

Example:
  go run ./cmd/arena status`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	fmt.Println("=== Arena Configuration ===")
	fmt.Printf("env:                 %s\n", cfg.Env)
	fmt.Printf("port:                %s\n", cfg.Port)
	fmt.Printf("database enabled:    %v\n", cfg.Database.Enabled)
	fmt.Printf("redis enabled:       %v\n", cfg.Redis.Enabled)
	fmt.Printf("tournament interval: %s\n", cfg.Tournament.CycleInterval)
	fmt.Printf("kill switch:         %v\n", cfg.Orders.KillSwitch)

	fmt.Println("\n=== Stage Ladder ===")
	stages, _ := json.MarshalIndent(tournament.DefaultStages(), "", "  ")
	fmt.Println(string(stages))

	return nil
}
