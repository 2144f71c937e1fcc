package tournament

import "github.com/wonny/arena/internal/capital"

// Stage 토너먼트 라운드 (자본 티어)
type Stage string

const (
	StageR1   Stage = "R1"
	StageR2   Stage = "R2"
	StageR3   Stage = "R3"
	StageLive Stage = "LIVE"
)

// Next returns the promotion target. LIVE has no next stage.
func (s Stage) Next() (Stage, bool) {
	switch s {
	case StageR1:
		return StageR2, true
	case StageR2:
		return StageR3, true
	case StageR3:
		return StageLive, true
	default:
		return s, false
	}
}

// Criteria are the thresholds a strategy must clear to leave a stage.
// For LIVE they are the probation floors instead.
type Criteria struct {
	MinSharpe         float64 `json:"min_sharpe"`
	MinProfitFactor   float64 `json:"min_profit_factor"`
	MaxDrawdown       float64 `json:"max_drawdown"`
	MaxBreachesPerDay float64 `json:"max_breaches_per_day"`
	MaxSlippageBps    float64 `json:"max_slippage_bps"`

	// R3 전용: 아웃오브샘플 검증 통과 + go/no-go 승인
	RequireOOSPass bool `json:"require_oos_pass,omitempty"`
	RequireGoFlag  bool `json:"require_go_flag,omitempty"`
}

// StageConfig binds a stage to its capital tier and promotion criteria
type StageConfig struct {
	Stage           Stage             `json:"stage"`
	PoolID          string            `json:"pool_id"`
	RiskLevel       capital.RiskLevel `json:"risk_level"`
	CapitalMin      float64           `json:"capital_min"`
	CapitalMax      float64           `json:"capital_max"`
	MinDurationDays int               `json:"min_duration_days"`
	MinTrades       int               `json:"min_trades"`
	Criteria        Criteria          `json:"criteria"`
}

// DefaultStages returns the built-in tier ladder.
// ⭐ 기준 강화는 상위 라운드로 갈수록 단조 증가해야 함
func DefaultStages() map[Stage]StageConfig {
	return map[Stage]StageConfig{
		StageR1: {
			Stage:           StageR1,
			PoolID:          "research",
			RiskLevel:       capital.RiskLow,
			CapitalMin:      100,
			CapitalMax:      1000,
			MinDurationDays: 7,
			MinTrades:       20,
			Criteria: Criteria{
				MinSharpe:         0.5,
				MinProfitFactor:   1.1,
				MaxDrawdown:       0.15,
				MaxBreachesPerDay: 1.0,
				MaxSlippageBps:    20,
			},
		},
		StageR2: {
			Stage:           StageR2,
			PoolID:          "competition",
			RiskLevel:       capital.RiskMedium,
			CapitalMin:      1000,
			CapitalMax:      5000,
			MinDurationDays: 14,
			MinTrades:       50,
			Criteria: Criteria{
				MinSharpe:         0.8,
				MinProfitFactor:   1.2,
				MaxDrawdown:       0.12,
				MaxBreachesPerDay: 0.5,
				MaxSlippageBps:    15,
			},
		},
		StageR3: {
			Stage:           StageR3,
			PoolID:          "validation",
			RiskLevel:       capital.RiskMedium,
			CapitalMin:      5000,
			CapitalMax:      10000,
			MinDurationDays: 21,
			MinTrades:       100,
			Criteria: Criteria{
				MinSharpe:         1.0,
				MinProfitFactor:   1.3,
				MaxDrawdown:       0.10,
				MaxBreachesPerDay: 0.2,
				MaxSlippageBps:    10,
				RequireOOSPass:    true,
				RequireGoFlag:     true,
			},
		},
		StageLive: {
			Stage:      StageLive,
			PoolID:     "live",
			RiskLevel:  capital.RiskHigh,
			CapitalMin: 10000,
			CapitalMax: 50000,
			// LIVE에는 승격이 없음; Criteria는 보호관찰 하한
			Criteria: Criteria{
				MinSharpe:         0.7,
				MaxDrawdown:       0.15,
				MaxBreachesPerDay: 1.0,
				MaxSlippageBps:    20,
			},
		},
	}
}
