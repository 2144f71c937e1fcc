package gate

import (
	"math"
	"testing"
	"time"

	"github.com/wonny/arena/internal/contracts"
	"github.com/wonny/arena/pkg/config"
	"github.com/wonny/arena/pkg/logger"
)

func testGateConfig() config.GateConfig {
	return config.GateConfig{
		MaxQuoteStaleness:  10 * time.Second,
		MaxBrokerStaleness: 30 * time.Second,
		MaxSpreadBps:       50,
		MaxNotionalPct:     0.10,
		MaxOpenPositions:   20,
		MaxDailyVaR:        0.03,
		MaxCorrelationPct:  0.30,
		MaxStrategyDD:      0.10,
		MaxStrategyHeat:    0.80,
		MinQty:             1,
		DefaultVolatility:  0.20,
		RejectionHistory:   100,
	}
}

// marketOpen is a Wednesday 14:00 UTC = 10:00 New York (EDT)
var marketOpen = time.Date(2026, 6, 10, 14, 0, 0, 0, time.UTC)

func healthyContext() *contracts.GateContext {
	return &contracts.GateContext{
		Equity:        100000,
		Cash:          50000,
		BrokerUp:      true,
		QuoteAge:      time.Second,
		BrokerAge:     time.Second,
		OpenPositions: 3,
		Regime:        contracts.RegimeNormal,
		Now:           marketOpen,
	}
}

func smallIntent() *contracts.TradeIntent {
	return &contracts.TradeIntent{
		Symbol:     "AAPL",
		Side:       contracts.SideBuy,
		Quantity:   10,
		Price:      150,
		SpreadBps:  5,
		StrategyID: "s1",
	}
}

func TestValidateTrade_Accept(t *testing.T) {
	g := NewRiskGate(testGateConfig(), nil, logger.Nop())

	decision := g.ValidateTrade(smallIntent(), healthyContext())
	if !decision.Accepted() {
		t.Fatalf("expected ACCEPT, got %s (%s/%s)", decision.Decision, decision.FailedCheck, decision.Reason)
	}
	if decision.RoutedQty != 10 {
		t.Errorf("RoutedQty = %v, want 10", decision.RoutedQty)
	}
}

func TestValidateTrade_FirstRejectionWins(t *testing.T) {
	tests := []struct {
		name       string
		intent     func(*contracts.TradeIntent)
		ctx        func(*contracts.GateContext)
		wantCheck  string
		wantReason string
	}{
		{
			name:       "broker down",
			ctx:        func(c *contracts.GateContext) { c.BrokerUp = false },
			wantCheck:  "health",
			wantReason: contracts.ReasonBrokerDown,
		},
		{
			name:       "stale quote",
			ctx:        func(c *contracts.GateContext) { c.QuoteAge = time.Minute },
			wantCheck:  "health",
			wantReason: contracts.ReasonStaleQuote,
		},
		{
			name:       "weekend",
			ctx:        func(c *contracts.GateContext) { c.Now = time.Date(2026, 6, 13, 14, 0, 0, 0, time.UTC) },
			wantCheck:  "trading_hours",
			wantReason: contracts.ReasonMarketClosed,
		},
		{
			name:       "after hours",
			ctx:        func(c *contracts.GateContext) { c.Now = time.Date(2026, 6, 10, 23, 0, 0, 0, time.UTC) },
			wantCheck:  "trading_hours",
			wantReason: contracts.ReasonMarketClosed,
		},
		{
			name:       "spread too wide",
			intent:     func(i *contracts.TradeIntent) { i.SpreadBps = 80 },
			wantCheck:  "liquidity",
			wantReason: contracts.ReasonSpreadTooWide,
		},
		{
			name:       "notional exceeds max pct",
			intent:     func(i *contracts.TradeIntent) { i.Quantity = 100; i.Price = 150 },
			wantCheck:  "position_limits",
			wantReason: contracts.ReasonPositionSizeExceeded,
		},
		{
			name:       "too many open positions",
			ctx:        func(c *contracts.GateContext) { c.OpenPositions = 20 },
			wantCheck:  "position_limits",
			wantReason: contracts.ReasonTooManyPositions,
		},
		{
			name:       "var budget exhausted",
			ctx:        func(c *contracts.GateContext) { c.CurrentDailyVaR = 0.0295 },
			wantCheck:  "portfolio_risk",
			wantReason: contracts.ReasonVaRLimit,
		},
		{
			name: "correlation bucket full",
			ctx: func(c *contracts.GateContext) {
				c.BucketExposure = map[string]float64{"tech": 29500}
			},
			wantCheck:  "portfolio_risk",
			wantReason: contracts.ReasonCorrelationLimit,
		},
		{
			name:       "strategy drawdown",
			ctx:        func(c *contracts.GateContext) { c.StrategyDrawdown = 0.15 },
			wantCheck:  "strategy_limits",
			wantReason: contracts.ReasonStrategyDrawdown,
		},
		{
			name:       "strategy heat",
			ctx:        func(c *contracts.GateContext) { c.StrategyHeat = 0.9 },
			wantCheck:  "strategy_limits",
			wantReason: contracts.ReasonStrategyHeat,
		},
		{
			name:       "extreme volatility",
			ctx:        func(c *contracts.GateContext) { c.Regime = contracts.RegimeExtreme },
			wantCheck:  "market_conditions",
			wantReason: contracts.ReasonExtremeVolatility,
		},
		{
			name: "pending event",
			ctx: func(c *contracts.GateContext) {
				c.PendingEvents = map[string]bool{"AAPL": true}
			},
			wantCheck:  "market_conditions",
			wantReason: contracts.ReasonPendingEvent,
		},
		{
			name:       "quantity below minimum",
			intent:     func(i *contracts.TradeIntent) { i.Quantity = 0.5 },
			wantCheck:  "size",
			wantReason: contracts.ReasonQtyTooSmall,
		},
		{
			name: "insufficient cash",
			intent: func(i *contracts.TradeIntent) { i.Quantity = 60; i.Price = 100 },
			ctx: func(c *contracts.GateContext) { c.Cash = 5000 },
			wantCheck:  "size",
			wantReason: contracts.ReasonInsufficientCash,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewRiskGate(testGateConfig(), nil, logger.Nop())
			intent := smallIntent()
			gctx := healthyContext()
			if tt.intent != nil {
				tt.intent(intent)
			}
			if tt.ctx != nil {
				tt.ctx(gctx)
			}

			decision := g.ValidateTrade(intent, gctx)
			if decision.Accepted() {
				t.Fatal("expected REJECT")
			}
			if decision.FailedCheck != tt.wantCheck {
				t.Errorf("FailedCheck = %s, want %s", decision.FailedCheck, tt.wantCheck)
			}
			if decision.Reason != tt.wantReason {
				t.Errorf("Reason = %s, want %s", decision.Reason, tt.wantReason)
			}
		})
	}
}

func TestValidateTrade_OrderIsDeterministic(t *testing.T) {
	// Both health and size would reject; health comes first
	g := NewRiskGate(testGateConfig(), nil, logger.Nop())
	intent := smallIntent()
	intent.Quantity = 0.1
	gctx := healthyContext()
	gctx.BrokerUp = false

	decision := g.ValidateTrade(intent, gctx)
	if decision.FailedCheck != "health" {
		t.Errorf("FailedCheck = %s, want health (first in order)", decision.FailedCheck)
	}
}

func TestValidateTrade_VolTolerantPassesExtremeRegime(t *testing.T) {
	g := NewRiskGate(testGateConfig(), nil, logger.Nop())
	intent := smallIntent()
	intent.VolTolerant = true
	gctx := healthyContext()
	gctx.Regime = contracts.RegimeExtreme

	if decision := g.ValidateTrade(intent, gctx); !decision.Accepted() {
		t.Errorf("vol-tolerant intent rejected: %s", decision.Reason)
	}
}

func TestValidateTrade_BreakersDisabledBypassesHealth(t *testing.T) {
	cfg := testGateConfig()
	cfg.DisableBreakers = true
	g := NewRiskGate(cfg, nil, logger.Nop())
	gctx := healthyContext()
	gctx.BrokerUp = false

	if decision := g.ValidateTrade(smallIntent(), gctx); !decision.Accepted() {
		t.Errorf("expected health bypass with breakers disabled, got %s", decision.Reason)
	}
}

func TestValidateTrade_FailClosedOnPanic(t *testing.T) {
	g := NewRiskGate(testGateConfig(), panicClassifier{}, logger.Nop())

	decision := g.ValidateTrade(smallIntent(), healthyContext())
	if decision.Accepted() {
		t.Fatal("gate must fail closed on internal error")
	}
	if decision.Reason != contracts.ReasonGateError {
		t.Errorf("Reason = %s, want %s", decision.Reason, contracts.ReasonGateError)
	}
}

type panicClassifier struct{}

func (panicClassifier) Bucket(symbol string) string { panic("classifier broken") }

func TestEstimateTradeVaR(t *testing.T) {
	g := NewRiskGate(testGateConfig(), nil, logger.Nop())

	intent := &contracts.TradeIntent{Quantity: 100, Price: 100} // notional 10000
	// 10000 * 0.20 * 1.96 * sqrt(1) / 100000 = 0.0392
	got := g.EstimateTradeVaR(intent, 100000)
	if math.Abs(got-0.0392) > 1e-9 {
		t.Errorf("EstimateTradeVaR = %v, want 0.0392", got)
	}

	// explicit volatility and horizon
	intent.Volatility = 0.10
	intent.HorizonDays = 4
	// 10000 * 0.10 * 1.96 * 2 / 100000 = 0.0392
	got = g.EstimateTradeVaR(intent, 100000)
	if math.Abs(got-0.0392) > 1e-9 {
		t.Errorf("EstimateTradeVaR = %v, want 0.0392", got)
	}
}

func TestRejectionStats(t *testing.T) {
	g := NewRiskGate(testGateConfig(), nil, logger.Nop())

	gctx := healthyContext()
	gctx.BrokerUp = false
	for i := 0; i < 3; i++ {
		g.ValidateTrade(smallIntent(), gctx)
	}

	gctx2 := healthyContext()
	gctx2.StrategyHeat = 0.95
	g.ValidateTrade(smallIntent(), gctx2)

	stats := g.RejectionStats()
	if stats[contracts.ReasonBrokerDown] != 3 {
		t.Errorf("broker down count = %d, want 3", stats[contracts.ReasonBrokerDown])
	}
	if stats[contracts.ReasonStrategyHeat] != 1 {
		t.Errorf("heat count = %d, want 1", stats[contracts.ReasonStrategyHeat])
	}
}

func TestRejectionHistory_Bounded(t *testing.T) {
	cfg := testGateConfig()
	cfg.RejectionHistory = 5
	g := NewRiskGate(cfg, nil, logger.Nop())

	gctx := healthyContext()
	gctx.BrokerUp = false
	for i := 0; i < 12; i++ {
		g.ValidateTrade(smallIntent(), gctx)
	}

	if n := len(g.RejectionHistory()); n != 5 {
		t.Errorf("history length = %d, want 5", n)
	}
}
