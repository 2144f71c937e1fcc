package capital

import "time"

// RiskLevel 실험 리스크 등급
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// PoolPurpose 풀 용도
type PoolPurpose string

const (
	PurposeResearch    PoolPurpose = "research"
	PurposeCompetition PoolPurpose = "competition"
	PurposeValidation  PoolPurpose = "validation"
	PurposeLive        PoolPurpose = "live"
)

// AllocationStatus 할당 상태
type AllocationStatus string

const (
	StatusActive   AllocationStatus = "active"
	StatusReleased AllocationStatus = "released"
	StatusLocked   AllocationStatus = "locked"
)

// Pool is a named capital pool
// 불변식: AllocatedCapital + AvailableCapital + LockedCapital == TotalCapital
// (실현 손익은 release 시점에 TotalCapital로 반영)
type Pool struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	TotalCapital     float64     `json:"total_capital"`
	AvailableCapital float64     `json:"available_capital"`
	AllocatedCapital float64     `json:"allocated_capital"`
	LockedCapital    float64     `json:"locked_capital"`
	RiskLevel        RiskLevel   `json:"risk_level"`
	Purpose          PoolPurpose `json:"purpose"`
	MaxDrawdown      float64     `json:"max_drawdown"`
	CurrentDrawdown  float64     `json:"current_drawdown"`
	LastUpdated      time.Time   `json:"last_updated"`
}

// Allocation is one strategy's active slice of a pool
type Allocation struct {
	ID          string           `json:"id"`
	PoolID      string           `json:"pool_id"`
	StrategyID  string           `json:"strategy_id"`
	Amount      float64          `json:"amount"`
	AllocatedAt time.Time        `json:"allocated_at"`
	ReleasedAt  *time.Time       `json:"released_at,omitempty"`
	Status      AllocationStatus `json:"status"`
	PnL         float64          `json:"pnl"`
	RiskLevel   RiskLevel        `json:"risk_level"`
}

// TransactionType 자본 트랜잭션 유형
type TransactionType string

const (
	TxAllocation TransactionType = "allocation"
	TxRelease    TransactionType = "release"
	TxPnLUpdate  TransactionType = "pnl_update"
	TxTransfer   TransactionType = "transfer"
)

// Transaction is an immutable audit record of a pool mutation
type Transaction struct {
	Type        TransactionType `json:"type"`
	PoolID      string          `json:"pool_id"`
	StrategyID  string          `json:"strategy_id,omitempty"`
	Amount      float64         `json:"amount"`
	Timestamp   time.Time       `json:"timestamp"`
	Description string          `json:"description"`
}

// Limits holds the allocator-wide caps
type Limits struct {
	MaxPerExperiment  map[RiskLevel]float64
	MaxConcurrent     int
	MaxTotalDrawdown  float64
	EmergencyStopLoss float64 // fraction of pool total
}
