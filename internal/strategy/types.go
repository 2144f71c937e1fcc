package strategy

import (
	"time"

	"github.com/wonny/arena/internal/contracts"
)

// AllocationContext 배분 시점의 시장/계좌 상태
type AllocationContext struct {
	Equity float64                   `json:"equity"`
	Regime contracts.VolatilityRegime `json:"regime"`
	Now    time.Time                 `json:"now"`
}

// At returns the context clock, defaulting to wall time
func (c *AllocationContext) At() time.Time {
	if c.Now.IsZero() {
		return time.Now()
	}
	return c.Now
}

// StrategyAllocation is one strategy's slice of the risk budget
type StrategyAllocation struct {
	StrategyID string  `json:"strategy_id"`
	Score      float64 `json:"score"`
	Weight     float64 `json:"weight"`        // Σ = 1.0 across selected strategies
	Dollar     float64 `json:"dollar"`        // weight × equity × totalRiskBudget
	VaRBudget  float64 `json:"var_budget"`    // weight × totalRiskBudget
	MaxPosSize float64 `json:"max_pos_size"`  // 단일 포지션 상한 (달러 배분의 10%)
}

// AllocationSummary aggregates one allocation cycle
type AllocationSummary struct {
	Candidates  int     `json:"candidates"`
	Eligible    int     `json:"eligible"`
	Selected    int     `json:"selected"`
	TotalScore  float64 `json:"total_score"`
	EqualWeight bool    `json:"equal_weight"` // true when score fallback was used
	TotalDollar float64 `json:"total_dollar"`
}

// AllocationResult is the full outcome of one allocateCapital call
type AllocationResult struct {
	Allocations []StrategyAllocation `json:"allocations"`
	Summary     AllocationSummary    `json:"summary"`
	Rejected    map[string]string    `json:"rejected"` // strategyId → reason
	Emergency   bool                 `json:"emergency,omitempty"`
	ComputedAt  time.Time            `json:"computed_at"`
}

// historyRecord 배분 이력 (안정성 계산용)
type historyRecord struct {
	selected   map[string]bool
	computedAt time.Time
}
