package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/arena/internal/contracts"
	"github.com/wonny/arena/pkg/config"
	"github.com/wonny/arena/pkg/logger"
)

// gateCmd represents the gate command
var gateCmd = &cobra.Command{
	Use:   "gate",
	Short: "게이트 검증 프로브",
	Long: `합성 주문 의도를 리스크 게이트에 통과시켜 판정을 출력합니다.

설정 튜닝 확인이나 운영 중 수동 점검에 사용합니다.

Example:
  go run ./cmd/arena gate --symbol AAPL --qty 10 --price 150
  go run ./cmd/arena gate --symbol TSLA --side SELL --qty 5 --price 240 --spread 12`,
	RunE: runGateProbe,
}

var (
	gateSymbol string
	gateSide   string
	gateQty    float64
	gatePrice  float64
	gateSpread float64
	gateEquity float64
	gateCash   float64
)

func init() {
	rootCmd.AddCommand(gateCmd)

	gateCmd.Flags().StringVar(&gateSymbol, "symbol", "AAPL", "심볼")
	gateCmd.Flags().StringVar(&gateSide, "side", "BUY", "방향 (BUY|SELL)")
	gateCmd.Flags().Float64Var(&gateQty, "qty", 10, "수량")
	gateCmd.Flags().Float64Var(&gatePrice, "price", 100, "가격 힌트")
	gateCmd.Flags().Float64Var(&gateSpread, "spread", 5, "스프레드 (bps)")
	gateCmd.Flags().Float64Var(&gateEquity, "equity", 100_000, "계좌 평가액")
	gateCmd.Flags().Float64Var(&gateCash, "cash", 50_000, "가용 현금")
}

func runGateProbe(cmd *cobra.Command, args []string) error {
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

	intent := &contracts.TradeIntent{
		Symbol:     gateSymbol,
		Side:       contracts.Side(gateSide),
		Quantity:   gateQty,
		Price:      gatePrice,
		SpreadBps:  gateSpread,
		StrategyID: "probe",
	}
	gctx := &contracts.GateContext{
		Equity:   gateEquity,
		Cash:     gateCash,
		BrokerUp: true,
		Regime:   contracts.RegimeNormal,
	}

	decision := c.gate.ValidateTrade(intent, gctx)

	out, _ := json.MarshalIndent(decision, "", "  ")
	fmt.Println(string(out))
	return nil
}
