package gate

import (
	"fmt"
	"sync"
	"time"

	"github.com/wonny/arena/internal/contracts"
	"github.com/wonny/arena/pkg/config"
	"github.com/wonny/arena/pkg/logger"
)

// RiskGate 사전 리스크 게이트
// ⭐ SSOT: 주문 전 리스크 체크는 여기서만
// Checks run in a fixed order and the first rejection wins (fail-fast,
// deterministic). Internal faults convert to a GATE_ERROR rejection; the
// gate never fails open.
type RiskGate struct {
	cfg        config.GateConfig
	classifier contracts.SectorClassifier
	logger     *logger.Logger
	market     *time.Location
	runID      string

	mu         sync.Mutex
	rejections []contracts.RejectionRecord
	rejHead    int
	rejCount   int
}

// check is one stage of the validation pipeline
type check struct {
	name string
	run  func(*contracts.TradeIntent, *contracts.GateContext) (reason string, ok bool)
}

// NewRiskGate creates a new pre-trade risk gate
func NewRiskGate(cfg config.GateConfig, classifier contracts.SectorClassifier, log *logger.Logger) *RiskGate {
	if cfg.RejectionHistory <= 0 {
		cfg.RejectionHistory = 100
	}
	if classifier == nil {
		classifier = DefaultClassifier()
	}

	market, err := time.LoadLocation("America/New_York")
	if err != nil {
		market = time.UTC
	}

	return &RiskGate{
		cfg:        cfg,
		classifier: classifier,
		logger:     log,
		market:     market,
		runID:      fmt.Sprintf("gate_%s", time.Now().Format("20060102_150405")),
		rejections: make([]contracts.RejectionRecord, cfg.RejectionHistory),
	}
}

// ValidateTrade runs the full pipeline against one intent
func (g *RiskGate) ValidateTrade(intent *contracts.TradeIntent, gctx *contracts.GateContext) (decision *contracts.GateDecision) {
	// 내부 오류는 fail-closed: 절대 통과시키지 않음
	defer func() {
		if r := recover(); r != nil {
			g.logger.WithFields(map[string]interface{}{
				"run_id": g.runID,
				"symbol": intent.Symbol,
				"panic":  fmt.Sprintf("%v", r),
			}).Error("Risk gate internal error, rejecting")

			decision = g.reject(intent, gctx, "internal", contracts.ReasonGateError)
		}
	}()

	for _, c := range g.pipeline() {
		if reason, ok := c.run(intent, gctx); !ok {
			return g.reject(intent, gctx, c.name, reason)
		}
	}

	return &contracts.GateDecision{
		Decision:  contracts.DecisionAccept,
		RoutedQty: intent.Quantity,
		CheckedAt: gctx.At(),
	}
}

// pipeline returns the ordered check list
func (g *RiskGate) pipeline() []check {
	return []check{
		{"health", g.checkHealth},
		{"trading_hours", g.checkTradingHours},
		{"liquidity", g.checkLiquidity},
		{"position_limits", g.checkPositionLimits},
		{"portfolio_risk", g.checkPortfolioRisk},
		{"strategy_limits", g.checkStrategyLimits},
		{"market_conditions", g.checkMarketConditions},
		{"size", g.checkSize},
	}
}

func (g *RiskGate) reject(intent *contracts.TradeIntent, gctx *contracts.GateContext, failedCheck, reason string) *contracts.GateDecision {
	record := contracts.RejectionRecord{
		Symbol:      intent.Symbol,
		StrategyID:  intent.StrategyID,
		Reason:      reason,
		FailedCheck: failedCheck,
		Context:     *gctx,
		RejectedAt:  gctx.At(),
	}

	g.mu.Lock()
	g.rejections[g.rejHead] = record
	g.rejHead = (g.rejHead + 1) % len(g.rejections)
	if g.rejCount < len(g.rejections) {
		g.rejCount++
	}
	g.mu.Unlock()

	g.logger.WithFields(map[string]interface{}{
		"run_id":   g.runID,
		"symbol":   intent.Symbol,
		"strategy": intent.StrategyID,
		"check":    failedCheck,
		"reason":   reason,
	}).Warn("Trade rejected by risk gate")

	return &contracts.GateDecision{
		Decision:    contracts.DecisionReject,
		Reason:      reason,
		FailedCheck: failedCheck,
		CheckedAt:   gctx.At(),
	}
}

// RejectionHistory returns the recent rejection records, oldest first
func (g *RiskGate) RejectionHistory() []contracts.RejectionRecord {
	g.mu.Lock()
	defer g.mu.Unlock()

	result := make([]contracts.RejectionRecord, 0, g.rejCount)
	size := len(g.rejections)
	start := (g.rejHead - g.rejCount + size) % size
	for i := 0; i < g.rejCount; i++ {
		result = append(result, g.rejections[(start+i)%size])
	}
	return result
}

// RejectionStats aggregates recent rejections by reason
func (g *RiskGate) RejectionStats() map[string]int {
	stats := make(map[string]int)
	for _, r := range g.RejectionHistory() {
		stats[r.Reason]++
	}
	return stats
}
