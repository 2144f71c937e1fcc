package contracts

import "time"

// StrategyStyle 전략 유형 (배분 컨텍스트 보정용)
type StrategyStyle string

const (
	StyleMomentum      StrategyStyle = "momentum"
	StyleMeanReversion StrategyStyle = "mean_reversion"
	StyleOther         StrategyStyle = "other"
)

// StrategyStats is the per-strategy track record supplied by the external
// performance-tracking collaborator. Read-only to this core.
// ⭐ 계약: 옵션 필드는 포인터, 기본값은 Normalize()에서 한 번만 해소
type StrategyStats struct {
	StrategyID string `json:"strategy_id"`

	Trades  int     `json:"trades"`
	Sharpe  float64 `json:"sharpe"`
	WinRate float64 `json:"win_rate"` // 0.0 ~ 1.0

	// ProfitFactor is optional; nil falls back to a win-rate-derived proxy
	ProfitFactor *float64 `json:"profit_factor,omitempty"`

	MaxDrawdown     float64 `json:"max_drawdown"`     // 0.0 ~ 1.0
	CurrentDrawdown float64 `json:"current_drawdown"` // 0.0 ~ 1.0

	GateBreaches int     `json:"gate_breaches"`
	AvgSlippage  float64 `json:"avg_slippage"` // bps vs model

	Style       StrategyStyle `json:"style,omitempty"`
	VolTolerant bool          `json:"vol_tolerant,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// EffectiveProfitFactor resolves the optional profit factor once at the
// boundary. The proxy maps win rate to a pseudo profit factor: a 50% win
// rate with symmetric payoffs is 1.0.
func (s *StrategyStats) EffectiveProfitFactor() float64 {
	if s.ProfitFactor != nil {
		return *s.ProfitFactor
	}
	if s.WinRate <= 0 || s.WinRate >= 1 {
		return 0
	}
	return s.WinRate / (1 - s.WinRate)
}

// Normalize fills zero-value defaults in place. Called once when stats cross
// into the core; scoring logic never re-checks defaults.
func (s *StrategyStats) Normalize() {
	if s.Style == "" {
		s.Style = StyleOther
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
}

// AgeDays returns whole days since the strategy was created
func (s *StrategyStats) AgeDays(now time.Time) int {
	return int(now.Sub(s.CreatedAt).Hours() / 24)
}
