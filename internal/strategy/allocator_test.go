package strategy

import (
	"math"
	"testing"

	"github.com/wonny/arena/internal/contracts"
	"github.com/wonny/arena/pkg/config"
	"github.com/wonny/arena/pkg/logger"
)

func testStrategyConfig() config.StrategyConfig {
	return config.StrategyConfig{
		MinTrades:       20,
		MinSharpe:       0.5,
		MaxDrawdown:     0.25,
		MaxActive:       10,
		MinAllocation:   0.02,
		MaxAllocation:   0.30,
		TotalRiskBudget: 0.50,
		HistorySize:     100,
	}
}

func pf(v float64) *float64 { return &v }

func goodStats(id string) contracts.StrategyStats {
	return contracts.StrategyStats{
		StrategyID:   id,
		Trades:       100,
		Sharpe:       1.0,
		WinRate:      0.55,
		ProfitFactor: pf(1.5),
	}
}

func testContext() AllocationContext {
	return AllocationContext{Equity: 100000, Regime: contracts.RegimeNormal}
}

func TestAllocateCapital_Filter(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*contracts.StrategyStats)
	}{
		{"too few trades", func(s *contracts.StrategyStats) { s.Trades = 10 }},
		{"low sharpe", func(s *contracts.StrategyStats) { s.Sharpe = 0.3 }},
		{"excess drawdown", func(s *contracts.StrategyStats) { s.MaxDrawdown = 0.30 }},
		{"profit factor at 1", func(s *contracts.StrategyStats) { s.ProfitFactor = pf(1.0) }},
		{"losing win-rate proxy", func(s *contracts.StrategyStats) {
			s.ProfitFactor = nil
			s.WinRate = 0.40 // proxy 0.67 <= 1.0
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAllocator(testStrategyConfig(), logger.Nop())
			bad := goodStats("bad")
			tt.mutate(&bad)

			result := a.AllocateCapital([]contracts.StrategyStats{goodStats("ok"), bad}, testContext())
			if result.Summary.Selected != 1 {
				t.Fatalf("selected = %d, want 1", result.Summary.Selected)
			}
			if result.Allocations[0].StrategyID != "ok" {
				t.Errorf("selected %s, want ok", result.Allocations[0].StrategyID)
			}
			if _, ok := result.Rejected["bad"]; !ok {
				t.Error("rejection reason not recorded for bad")
			}
		})
	}
}

func TestAllocateCapital_WeightsSumToOne(t *testing.T) {
	a := NewAllocator(testStrategyConfig(), logger.Nop())

	stats := []contracts.StrategyStats{
		goodStats("s1"), goodStats("s2"), goodStats("s3"),
	}
	stats[0].Sharpe = 2.5 // 지배적 점수 → clamp 후 재정규화 확인
	stats[1].Sharpe = 0.8
	stats[2].Sharpe = 0.6

	result := a.AllocateCapital(stats, testContext())

	sum := 0.0
	for _, alloc := range result.Allocations {
		sum += alloc.Weight
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("Σ weights = %v, want 1.0", sum)
	}
}

func TestAllocateCapital_EqualWeightFallback(t *testing.T) {
	cfg := testStrategyConfig()
	cfg.MinSharpe = -5 // 음수 샤프를 통과시켜 총점 ≤ 0 유도
	a := NewAllocator(cfg, logger.Nop())

	s1 := goodStats("s1")
	s1.Sharpe = -1
	s2 := goodStats("s2")
	s2.Sharpe = -1

	result := a.AllocateCapital([]contracts.StrategyStats{s1, s2}, testContext())
	if !result.Summary.EqualWeight {
		t.Fatal("expected equal-weight fallback")
	}
	for _, alloc := range result.Allocations {
		if math.Abs(alloc.Weight-0.5) > 1e-9 {
			t.Errorf("weight = %v, want 0.5", alloc.Weight)
		}
	}
}

func TestAllocateCapital_TopN(t *testing.T) {
	cfg := testStrategyConfig()
	cfg.MaxActive = 2
	a := NewAllocator(cfg, logger.Nop())

	s1 := goodStats("s1")
	s1.Sharpe = 2.0
	s2 := goodStats("s2")
	s2.Sharpe = 1.5
	s3 := goodStats("s3")
	s3.Sharpe = 0.6

	result := a.AllocateCapital([]contracts.StrategyStats{s3, s1, s2}, testContext())
	if len(result.Allocations) != 2 {
		t.Fatalf("allocations = %d, want 2", len(result.Allocations))
	}
	if result.Allocations[0].StrategyID != "s1" || result.Allocations[1].StrategyID != "s2" {
		t.Errorf("selection order = %s, %s", result.Allocations[0].StrategyID, result.Allocations[1].StrategyID)
	}
}

func TestAllocateCapital_RiskBudgets(t *testing.T) {
	a := NewAllocator(testStrategyConfig(), logger.Nop())

	result := a.AllocateCapital([]contracts.StrategyStats{goodStats("s1")}, testContext())
	alloc := result.Allocations[0]

	// 단독 선택 → weight 1.0; dollar = 1.0 × 100000 × 0.5
	if math.Abs(alloc.Weight-1.0) > 1e-9 {
		t.Errorf("weight = %v, want 1.0", alloc.Weight)
	}
	if math.Abs(alloc.Dollar-50000) > 1e-6 {
		t.Errorf("dollar = %v, want 50000", alloc.Dollar)
	}
	if math.Abs(alloc.VaRBudget-0.5) > 1e-9 {
		t.Errorf("var budget = %v, want 0.5", alloc.VaRBudget)
	}
	if math.Abs(alloc.MaxPosSize-5000) > 1e-6 {
		t.Errorf("max pos size = %v, want 5000", alloc.MaxPosSize)
	}
}

func TestScore_ContextMultipliers(t *testing.T) {
	a := NewAllocator(testStrategyConfig(), logger.Nop())

	base := goodStats("s1")
	base.Normalize()
	baseScore := a.score(&base, contracts.RegimeNormal)

	volTol := base
	volTol.VolTolerant = true
	if got := a.score(&volTol, contracts.RegimeHigh); math.Abs(got-baseScore*1.2) > 1e-9 {
		t.Errorf("high-vol tolerant score = %v, want %v", got, baseScore*1.2)
	}
	// 고변동 국면이라도 비허용 전략은 보정 없음
	if got := a.score(&base, contracts.RegimeHigh); math.Abs(got-baseScore) > 1e-9 {
		t.Errorf("high-vol plain score = %v, want %v", got, baseScore)
	}

	meanRev := base
	meanRev.Style = contracts.StyleMeanReversion
	if got := a.score(&meanRev, contracts.RegimeLow); math.Abs(got-baseScore*1.1) > 1e-9 {
		t.Errorf("low-vol mean-reversion score = %v, want %v", got, baseScore*1.1)
	}
}

func TestScore_RiskAndStabilityAdjustments(t *testing.T) {
	a := NewAllocator(testStrategyConfig(), logger.Nop())

	s := goodStats("s1")
	s.Normalize()
	s.Trades = 200 // stabilityBonus = 1.0
	s.CurrentDrawdown = 0.20

	// 1.0 × 1.5 × 0.8 × 1.0 × 1.0
	if got := a.score(&s, contracts.RegimeNormal); math.Abs(got-1.2) > 1e-9 {
		t.Errorf("score = %v, want 1.2", got)
	}

	// 드로다운이 커도 riskAdjustment는 0.1 밑으로 내려가지 않음
	s.CurrentDrawdown = 0.99
	if got := a.score(&s, contracts.RegimeNormal); math.Abs(got-1.0*1.5*0.1) > 1e-9 {
		t.Errorf("score = %v, want 0.15", got)
	}

	s.CurrentDrawdown = 0
	s.Trades = 50 // stabilityBonus = 0.25
	if got := a.score(&s, contracts.RegimeNormal); math.Abs(got-1.0*1.5*0.25) > 1e-9 {
		t.Errorf("score = %v, want 0.375", got)
	}
}

func TestEmergencyDerisk(t *testing.T) {
	a := NewAllocator(testStrategyConfig(), logger.Nop())
	a.AllocateCapital([]contracts.StrategyStats{goodStats("s1"), goodStats("s2")}, testContext())

	before := a.CurrentAllocation()
	result := a.EmergencyDerisk(0.5)
	if result == nil || !result.Emergency {
		t.Fatal("expected emergency-marked result")
	}

	for i, alloc := range result.Allocations {
		if math.Abs(alloc.Dollar-before.Allocations[i].Dollar*0.5) > 1e-6 {
			t.Errorf("dollar = %v, want %v", alloc.Dollar, before.Allocations[i].Dollar*0.5)
		}
		if math.Abs(alloc.Weight-before.Allocations[i].Weight*0.5) > 1e-9 {
			t.Errorf("weight = %v, want %v", alloc.Weight, before.Allocations[i].Weight*0.5)
		}
	}
}

func TestEmergencyDerisk_NoCurrent(t *testing.T) {
	a := NewAllocator(testStrategyConfig(), logger.Nop())
	if got := a.EmergencyDerisk(0.5); got != nil {
		t.Errorf("expected nil without a prior allocation, got %+v", got)
	}
}

func TestStability(t *testing.T) {
	a := NewAllocator(testStrategyConfig(), logger.Nop())

	// 동일 셋 반복 → 안정성 1.0
	for i := 0; i < 3; i++ {
		a.AllocateCapital([]contracts.StrategyStats{goodStats("s1"), goodStats("s2")}, testContext())
	}
	if got := a.Stability(); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("stability = %v, want 1.0", got)
	}

	// 완전히 다른 셋으로 교체 → 마지막 전환의 turnover = 1.0
	a.AllocateCapital([]contracts.StrategyStats{goodStats("s3"), goodStats("s4")}, testContext())
	got := a.Stability()
	want := 1.0 - (0.0+0.0+1.0)/3.0
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("stability = %v, want %v", got, want)
	}
}

func TestHistoryBounded(t *testing.T) {
	cfg := testStrategyConfig()
	cfg.HistorySize = 5
	a := NewAllocator(cfg, logger.Nop())

	for i := 0; i < 12; i++ {
		a.AllocateCapital([]contracts.StrategyStats{goodStats("s1")}, testContext())
	}

	a.mu.Lock()
	n := len(a.history)
	a.mu.Unlock()
	if n != 5 {
		t.Errorf("history length = %d, want 5", n)
	}
}
