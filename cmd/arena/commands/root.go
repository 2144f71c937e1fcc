package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "arena",
	Short: "Arena - 트레이드 승인 및 자본 거버넌스 엔진",
	Long: `Arena Unified CLI

거래 승인 게이트, 자본 풀 배분, 전략 토너먼트를 한 프로세스에서 운영합니다.

Usage:
  go run ./cmd/arena [command]

Examples:
  go run ./cmd/arena api
  go run ./cmd/arena tournament --once
  go run ./cmd/arena gate --symbol AAPL --qty 10 --price 150
  go run ./cmd/arena status`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "development", "environment (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
