package strategy

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/wonny/arena/internal/contracts"
	"github.com/wonny/arena/pkg/config"
	"github.com/wonny/arena/pkg/logger"
)

// 점수 보정 상수
const (
	minRiskAdjustment  = 0.1
	stabilityFullAt    = 200 // 이 거래 수부터 stabilityBonus = 1.0
	highVolMultiplier  = 1.2
	lowVolMultiplier   = 1.1
	maxPositionOfAlloc = 0.10 // 전략 달러 배분 대비 단일 포지션 상한
)

// Allocator computes risk-adjusted capital weights across eligible
// strategies. It never touches pools directly; callers apply the resulting
// dollar figures through the capital allocator.
// ⭐ SSOT: 전략 가중치 계산은 여기서만
type Allocator struct {
	cfg    config.StrategyConfig
	logger *logger.Logger

	mu      sync.Mutex
	current *AllocationResult
	history []historyRecord
}

// NewAllocator creates a new strategy allocator
func NewAllocator(cfg config.StrategyConfig, log *logger.Logger) *Allocator {
	return &Allocator{
		cfg:     cfg,
		logger:  log,
		history: make([]historyRecord, 0, cfg.HistorySize),
	}
}

// AllocateCapital runs the filter → score → select → weight → budget pipeline
// over the supplied track records and returns the new allocation set.
func (a *Allocator) AllocateCapital(stats []contracts.StrategyStats, actx AllocationContext) *AllocationResult {
	result := &AllocationResult{
		Rejected:   make(map[string]string),
		ComputedAt: actx.At(),
	}
	result.Summary.Candidates = len(stats)

	// 1. Filter
	eligible := make([]contracts.StrategyStats, 0, len(stats))
	for i := range stats {
		s := stats[i]
		s.Normalize()
		if reason := a.filterReason(&s); reason != "" {
			result.Rejected[s.StrategyID] = reason
			continue
		}
		eligible = append(eligible, s)
	}
	result.Summary.Eligible = len(eligible)

	// 2. Score
	type scored struct {
		id    string
		score float64
	}
	scoredList := make([]scored, 0, len(eligible))
	for i := range eligible {
		scoredList = append(scoredList, scored{
			id:    eligible[i].StrategyID,
			score: a.score(&eligible[i], actx.Regime),
		})
	}

	// 3. Select top-N (점수 내림차순, 동점은 ID 순으로 결정적)
	sort.Slice(scoredList, func(i, j int) bool {
		if scoredList[i].score != scoredList[j].score {
			return scoredList[i].score > scoredList[j].score
		}
		return scoredList[i].id < scoredList[j].id
	})
	if a.cfg.MaxActive > 0 && len(scoredList) > a.cfg.MaxActive {
		scoredList = scoredList[:a.cfg.MaxActive]
	}
	result.Summary.Selected = len(scoredList)

	if len(scoredList) == 0 {
		a.commit(result)
		return result
	}

	// 4. Weights: raw → clamp → renormalize (Σ = 1.0)
	totalScore := 0.0
	for _, s := range scoredList {
		totalScore += s.score
	}
	result.Summary.TotalScore = totalScore

	weights := make([]float64, len(scoredList))
	if totalScore <= 0 {
		// 점수가 무의미하면 동일 가중
		result.Summary.EqualWeight = true
		for i := range weights {
			weights[i] = 1.0 / float64(len(weights))
		}
	} else {
		for i, s := range scoredList {
			weights[i] = s.score / totalScore
		}
	}

	clampedSum := 0.0
	for i := range weights {
		weights[i] = clamp(weights[i], a.cfg.MinAllocation, a.cfg.MaxAllocation)
		clampedSum += weights[i]
	}
	for i := range weights {
		weights[i] /= clampedSum
	}

	// 5. Risk budgets
	result.Allocations = make([]StrategyAllocation, len(scoredList))
	for i, s := range scoredList {
		dollar := weights[i] * actx.Equity * a.cfg.TotalRiskBudget
		result.Allocations[i] = StrategyAllocation{
			StrategyID: s.id,
			Score:      s.score,
			Weight:     weights[i],
			Dollar:     dollar,
			VaRBudget:  weights[i] * a.cfg.TotalRiskBudget,
			MaxPosSize: dollar * maxPositionOfAlloc,
		}
		result.Summary.TotalDollar += dollar
	}

	a.commit(result)

	a.logger.WithFields(map[string]interface{}{
		"candidates": result.Summary.Candidates,
		"selected":   result.Summary.Selected,
		"rejected":   len(result.Rejected),
		"regime":     actx.Regime,
	}).Info("Capital allocation computed")

	return result
}

// filterReason returns the first disqualifying reason, or "" when eligible
func (a *Allocator) filterReason(s *contracts.StrategyStats) string {
	if s.Trades < a.cfg.MinTrades {
		return fmt.Sprintf("trades %d < %d", s.Trades, a.cfg.MinTrades)
	}
	if s.Sharpe < a.cfg.MinSharpe {
		return fmt.Sprintf("sharpe %.2f < %.2f", s.Sharpe, a.cfg.MinSharpe)
	}
	if s.MaxDrawdown > a.cfg.MaxDrawdown {
		return fmt.Sprintf("drawdown %.2f > %.2f", s.MaxDrawdown, a.cfg.MaxDrawdown)
	}
	if pf := s.EffectiveProfitFactor(); pf <= 1.0 {
		return fmt.Sprintf("profit factor %.2f <= 1.0", pf)
	}
	return ""
}

// score = IR × PF × riskAdjustment × stabilityBonus × contextMultiplier
func (a *Allocator) score(s *contracts.StrategyStats, regime contracts.VolatilityRegime) float64 {
	riskAdjustment := math.Max(minRiskAdjustment, 1-s.CurrentDrawdown)
	stabilityBonus := math.Min(1.0, float64(s.Trades)/stabilityFullAt)

	contextMultiplier := 1.0
	switch {
	case regime == contracts.RegimeHigh && s.VolTolerant:
		contextMultiplier = highVolMultiplier
	case regime == contracts.RegimeLow && s.Style == contracts.StyleMeanReversion:
		contextMultiplier = lowVolMultiplier
	}

	return s.Sharpe * s.EffectiveProfitFactor() * riskAdjustment * stabilityBonus * contextMultiplier
}

// EmergencyDerisk scales every current allocation's weight and dollar amount
// by reductionFactor. The reduced set stays current until the next cycle.
func (a *Allocator) EmergencyDerisk(reductionFactor float64) *AllocationResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.current == nil {
		return nil
	}
	if reductionFactor < 0 {
		reductionFactor = 0
	}
	if reductionFactor > 1 {
		reductionFactor = 1
	}

	a.current.Emergency = true
	a.current.Summary.TotalDollar = 0
	for i := range a.current.Allocations {
		alloc := &a.current.Allocations[i]
		alloc.Weight *= reductionFactor
		alloc.Dollar *= reductionFactor
		alloc.VaRBudget *= reductionFactor
		alloc.MaxPosSize *= reductionFactor
		a.current.Summary.TotalDollar += alloc.Dollar
	}

	a.logger.WithFields(map[string]interface{}{
		"reduction_factor": reductionFactor,
		"strategies":       len(a.current.Allocations),
	}).Warn("Emergency derisk applied")

	return a.snapshotLocked()
}

// CurrentAllocation returns a copy of the latest allocation result
func (a *Allocator) CurrentAllocation() *AllocationResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

// Stability returns 1 − average turnover of selected-strategy sets between
// consecutive allocation cycles. 1.0 means the selection never changed.
func (a *Allocator) Stability() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.history) < 2 {
		return 1.0
	}

	totalTurnover := 0.0
	pairs := 0
	for i := 1; i < len(a.history); i++ {
		totalTurnover += turnover(a.history[i-1].selected, a.history[i].selected)
		pairs++
	}
	return 1.0 - totalTurnover/float64(pairs)
}

// commit stores the result as current and appends the selection to history
func (a *Allocator) commit(result *AllocationResult) {
	selected := make(map[string]bool, len(result.Allocations))
	for _, alloc := range result.Allocations {
		selected[alloc.StrategyID] = true
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.current = result
	a.history = append(a.history, historyRecord{selected: selected, computedAt: result.ComputedAt})
	if limit := a.cfg.HistorySize; limit > 0 && len(a.history) > limit {
		a.history = a.history[len(a.history)-limit:]
	}
}

func (a *Allocator) snapshotLocked() *AllocationResult {
	if a.current == nil {
		return nil
	}
	cp := *a.current
	cp.Allocations = append([]StrategyAllocation(nil), a.current.Allocations...)
	cp.Rejected = make(map[string]string, len(a.current.Rejected))
	for k, v := range a.current.Rejected {
		cp.Rejected[k] = v
	}
	return &cp
}

// turnover is the Jaccard distance between two selection sets
func turnover(prev, next map[string]bool) float64 {
	if len(prev) == 0 && len(next) == 0 {
		return 0
	}
	intersection := 0
	for id := range prev {
		if next[id] {
			intersection++
		}
	}
	union := len(prev) + len(next) - intersection
	return 1.0 - float64(intersection)/float64(union)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
