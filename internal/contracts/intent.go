package contracts

import "time"

// Side 주문 방향
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// VolatilityRegime 시장 변동성 국면
type VolatilityRegime string

const (
	RegimeLow     VolatilityRegime = "low"
	RegimeNormal  VolatilityRegime = "normal"
	RegimeHigh    VolatilityRegime = "high"
	RegimeExtreme VolatilityRegime = "extreme"
)

// TradeIntent represents a proposed trade submitted to the risk gate
// ⭐ 계약: 전략 → RiskGate 입력
type TradeIntent struct {
	Symbol     string  `json:"symbol"`
	Side       Side    `json:"side"`
	Quantity   float64 `json:"quantity"`
	Price      float64 `json:"price"`      // price hint
	SpreadBps  float64 `json:"spread_bps"` // quoted spread in basis points
	StrategyID string  `json:"strategy_id"`

	// Optional risk inputs; zero values resolve to gate defaults
	Volatility  float64 `json:"volatility,omitempty"`   // annualized, e.g. 0.20
	HorizonDays float64 `json:"horizon_days,omitempty"` // VaR horizon, default 1

	// VolTolerant marks strategies designed for high-volatility regimes
	VolTolerant bool `json:"vol_tolerant,omitempty"`
}

// Notional returns the quantity × price notional of the intent
func (i *TradeIntent) Notional() float64 {
	return i.Quantity * i.Price
}

// GateContext carries the account and market snapshot the gate checks against
// ⭐ 계약: 호출자가 조립해서 전달, 게이트는 읽기만 함
type GateContext struct {
	Equity    float64 `json:"equity"`
	Cash      float64 `json:"cash"`
	DailyPnL  float64 `json:"daily_pnl"`

	QuoteAge  time.Duration `json:"quote_age"`
	BrokerAge time.Duration `json:"broker_age"`
	BrokerUp  bool          `json:"broker_up"`

	OpenPositions int `json:"open_positions"`

	StrategyDrawdown float64 `json:"strategy_drawdown"` // 0.0 ~ 1.0
	StrategyHeat     float64 `json:"strategy_heat"`     // 0.0 ~ 1.0

	Regime        VolatilityRegime `json:"regime"`
	PendingEvents map[string]bool  `json:"pending_events,omitempty"` // symbol → known upcoming event

	// Portfolio risk state
	CurrentDailyVaR float64            `json:"current_daily_var"`          // fraction of equity
	BucketExposure  map[string]float64 `json:"bucket_exposure,omitempty"`  // correlation bucket → notional

	Now time.Time `json:"now"` // zero means time.Now()
}

// At returns the evaluation time of the context
func (c *GateContext) At() time.Time {
	if c.Now.IsZero() {
		return time.Now()
	}
	return c.Now
}
