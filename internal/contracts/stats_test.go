package contracts

import (
	"math"
	"testing"
	"time"
)

func TestEffectiveProfitFactor(t *testing.T) {
	pf := 1.8

	tests := []struct {
		name  string
		stats StrategyStats
		want  float64
	}{
		{
			name:  "explicit profit factor",
			stats: StrategyStats{ProfitFactor: &pf, WinRate: 0.9},
			want:  1.8,
		},
		{
			name:  "proxy from win rate 50%",
			stats: StrategyStats{WinRate: 0.5},
			want:  1.0,
		},
		{
			name:  "proxy from win rate 60%",
			stats: StrategyStats{WinRate: 0.6},
			want:  1.5,
		},
		{
			name:  "zero win rate",
			stats: StrategyStats{WinRate: 0},
			want:  0,
		},
		{
			name:  "degenerate 100% win rate",
			stats: StrategyStats{WinRate: 1.0},
			want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.stats.EffectiveProfitFactor()
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("EffectiveProfitFactor() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	s := StrategyStats{StrategyID: "s1"}
	s.Normalize()

	if s.Style != StyleOther {
		t.Errorf("Style = %s, want %s", s.Style, StyleOther)
	}
	if s.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}

	// Normalize must not overwrite explicit values
	created := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	s2 := StrategyStats{Style: StyleMeanReversion, CreatedAt: created}
	s2.Normalize()
	if s2.Style != StyleMeanReversion {
		t.Errorf("Style overwritten: %s", s2.Style)
	}
	if !s2.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt overwritten: %v", s2.CreatedAt)
	}
}

func TestAgeDays(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	s := StrategyStats{CreatedAt: now.AddDate(0, 0, -7)}

	if got := s.AgeDays(now); got != 7 {
		t.Errorf("AgeDays() = %d, want 7", got)
	}
}

func TestTradeIntent_Notional(t *testing.T) {
	intent := TradeIntent{Quantity: 10, Price: 150.5}
	if got := intent.Notional(); got != 1505 {
		t.Errorf("Notional() = %v, want 1505", got)
	}
}
