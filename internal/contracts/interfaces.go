package contracts

import (
	"context"
	"time"
)

// =============================================================================
// Collaborator Interfaces
// ⭐ SSOT: 외부 협력자 계약은 여기서만 정의
// =============================================================================

// Position represents a current holding reported by the broker
type Position struct {
	Symbol   string  `json:"symbol"`
	Qty      float64 `json:"qty"`
	AvgPrice float64 `json:"avg_price"`
}

// Broker is the position/price source collaborator
type Broker interface {
	GetPositions(ctx context.Context) ([]Position, error)
	GetCurrentPrice(ctx context.Context, symbol string) (float64, error)
}

// BreakerVerdict is the circuit breaker answer
type BreakerVerdict struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// CircuitBreaker halts trading under abnormal conditions
type CircuitBreaker interface {
	CanTrade(ctx context.Context) BreakerVerdict
}

// OrderRequest is the request passed to the order adapter
type OrderRequest struct {
	Symbol     string  `json:"symbol"`
	Side       Side    `json:"side"`
	Quantity   float64 `json:"quantity"`
	LimitPrice float64 `json:"limit_price,omitempty"`
	StrategyID string  `json:"strategy_id"`
}

// OrderResult is the recorded outcome of an order placement
type OrderResult struct {
	ID        string  `json:"id"`
	Status    string  `json:"status"`
	AvgPrice  float64 `json:"avg_price"`
	FilledQty float64 `json:"filled_qty"`
}

// OrderAdapter places orders with the execution venue
type OrderAdapter interface {
	PlaceOrder(ctx context.Context, req OrderRequest) (*OrderResult, error)
}

// PerformanceSource supplies per-strategy track records
type PerformanceSource interface {
	GetStats(ctx context.Context) (map[string]StrategyStats, error)
}

// Event is the outbound notification envelope
type Event struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// EventBus receives decision records and risk alerts from the core
type EventBus interface {
	Publish(event Event)
}

// StrategyOutcome is one strategy's tournament result forwarded as feedback
type StrategyOutcome struct {
	StrategyID string  `json:"strategy_id"`
	Stage      string  `json:"stage"`
	Decision   string  `json:"decision"`
	Sharpe     float64 `json:"sharpe"`
	Drawdown   float64 `json:"drawdown"`
}

// FeedbackBatch groups outcomes per tournament generation
type FeedbackBatch struct {
	Generation int               `json:"generation"`
	Results    []StrategyOutcome `json:"results"`
}

// FeedbackSink accepts aggregated tournament feedback for strategy generation
type FeedbackSink interface {
	SubmitFeedback(ctx context.Context, batch FeedbackBatch) error
}

// SectorClassifier maps a symbol to its correlation bucket.
// The default table-driven classifier is coarse; finer taxonomies plug in
// behind this interface.
type SectorClassifier interface {
	Bucket(symbol string) string
}
