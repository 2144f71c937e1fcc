package contracts

import "time"

// Decision 게이트 판정 결과
type Decision string

const (
	DecisionAccept Decision = "ACCEPT"
	DecisionReject Decision = "REJECT"
)

// Rejection reason codes
// ⭐ 정책 거부는 에러가 아니라 데이터 (fail-closed)
const (
	ReasonGateError            = "GATE_ERROR"
	ReasonStaleQuote           = "STALE_QUOTE"
	ReasonBrokerDown           = "BROKER_DOWN"
	ReasonMarketClosed         = "MARKET_CLOSED"
	ReasonSpreadTooWide        = "SPREAD_TOO_WIDE"
	ReasonPositionSizeExceeded = "POSITION_SIZE_EXCEEDED"
	ReasonTooManyPositions     = "TOO_MANY_POSITIONS"
	ReasonVaRLimit             = "VAR_LIMIT_EXCEEDED"
	ReasonCorrelationLimit     = "CORRELATION_LIMIT_EXCEEDED"
	ReasonStrategyDrawdown     = "STRATEGY_DRAWDOWN_EXCEEDED"
	ReasonStrategyHeat         = "STRATEGY_HEAT_EXCEEDED"
	ReasonExtremeVolatility    = "EXTREME_VOLATILITY"
	ReasonPendingEvent         = "PENDING_EVENT"
	ReasonQtyTooSmall          = "QTY_BELOW_MINIMUM"
	ReasonInsufficientCash     = "INSUFFICIENT_CASH"

	// Hard stops checked before the gate
	ReasonKillSwitch     = "KILL_SWITCH_ENABLED"
	ReasonRateLimit      = "RATE_LIMIT"
	ReasonCircuitBreaker = "CIRCUIT_BREAKER"
)

// GateDecision is the outcome of a single validateTrade call
type GateDecision struct {
	Decision    Decision  `json:"decision"`
	Reason      string    `json:"reason,omitempty"`
	FailedCheck string    `json:"failed_check,omitempty"`
	RoutedQty   float64   `json:"routed_qty"`
	CheckedAt   time.Time `json:"checked_at"`
}

// Accepted reports whether the decision allows the trade
func (d *GateDecision) Accepted() bool {
	return d.Decision == DecisionAccept
}

// RejectionRecord is the audit snapshot kept for every rejection
type RejectionRecord struct {
	Symbol      string      `json:"symbol"`
	StrategyID  string      `json:"strategy_id"`
	Reason      string      `json:"reason"`
	FailedCheck string      `json:"failed_check"`
	Context     GateContext `json:"context"`
	RejectedAt  time.Time   `json:"rejected_at"`
}
