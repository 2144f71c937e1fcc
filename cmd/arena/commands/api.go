package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/arena/internal/api"
	"github.com/wonny/arena/internal/api/handlers"
	"github.com/wonny/arena/pkg/config"
	"github.com/wonny/arena/pkg/logger"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `거버넌스 엔진과 REST API 서버를 시작합니다.

이 명령어는:
- 자본 풀/게이트/토너먼트 코어 초기화
- 토너먼트 사이클 스케줄러 시작
- HTTP API 및 websocket 이벤트 브로드캐스트 제공

Endpoints:
  GET  /health                     - Health check
  GET  /api/capital/pools          - 자본 풀 조회
  GET  /api/capital/allocations    - 활성 할당 조회
  GET  /api/capital/transactions   - 트랜잭션 감사 로그
  GET  /api/gate/rejections        - 게이트 거부 이력
  GET  /api/gate/stats             - 거부 사유 집계
  POST /api/gate/validate          - 게이트 검증 프로브
  POST /api/gate/signal            - 신호 검증 프로브
  GET  /api/tournament/stats       - 승격/강등 통계
  GET  /api/tournament/allocation  - 전략 가중치 배분
  POST /api/tournament/cycle       - 사이클 수동 실행
  GET  /api/status                 - 운영 상태
  GET  /ws                         - 이벤트 websocket

Example:
  go run ./cmd/arena api
  go run ./cmd/arena api --port 8080`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: config)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Arena API Server ===")

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if apiPort != "" {
		cfg.Port = apiPort
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Assemble the governance core
	c, err := buildCore(cfg, log)
	if err != nil {
		return fmt.Errorf("build core: %w", err)
	}
	defer c.close()

	// 4. Start background workers
	go c.hub.Run()
	c.scheduler.Start()
	defer c.scheduler.Stop()

	// 5. Router + server
	router := api.NewRouter(api.Handlers{
		Capital:    handlers.NewCapitalHandler(c.capital, log),
		Gate:       handlers.NewGateHandler(c.gate, c.validator, log),
		Tournament: handlers.NewTournamentHandler(c.tournament, c.strategies, log),
		Status:     handlers.NewStatusHandler(c.executor, c.cache, c.scheduler, log),
		Websocket:  c.hub.Handler(),
	}, log)

	server := api.New(cfg, log, router)

	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	// 6. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
