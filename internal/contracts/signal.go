package contracts

// SignalAction 시그널 종류
type SignalAction string

const (
	SignalBuy  SignalAction = "buy"
	SignalSell SignalAction = "sell"
)

// Signal represents a proposed buy/sell from a running strategy
type Signal struct {
	StrategyID string       `json:"strategy_id"`
	Symbol     string       `json:"symbol"`
	Action     SignalAction `json:"action"`
	Quantity   float64      `json:"quantity"`
	Price      float64      `json:"price"`
}

// SignalCheck is the structured answer to "can this signal execute right now"
// ⭐ 계약: SignalValidator → 호출자, IsValid만으로 판단 가능해야 함
type SignalCheck struct {
	HasPosition      bool     `json:"has_position"`
	PositionSize     float64  `json:"position_size"`
	CanBuy           bool     `json:"can_buy"`
	CanSell          bool     `json:"can_sell"`
	CapitalAvailable bool     `json:"capital_available"`
	RiskAllowed      bool     `json:"risk_allowed"`
	CircuitBreakerOk bool     `json:"circuit_breaker_ok"`
	Errors           []string `json:"errors,omitempty"`
	IsValid          bool     `json:"is_valid"`
}
