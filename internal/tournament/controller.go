package tournament

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wonny/arena/internal/capital"
	"github.com/wonny/arena/internal/contracts"
	"github.com/wonny/arena/pkg/config"
	"github.com/wonny/arena/pkg/logger"
)

// Decision 사이클별 판정
type Decision string

const (
	DecisionPromote Decision = "promote"
	DecisionDemote  Decision = "demote"
	DecisionHold    Decision = "hold"
	DecisionSkip    Decision = "skip" // 최소 기간/거래 수 미달
)

// liveSoftFailureLimit LIVE 강등에 필요한 동시 소프트 실패 수.
// 단일 실패는 노이즈로 간주하고 유예한다.
const liveSoftFailureLimit = 2

// DecisionRecord is one strategy's outcome for one cycle
type DecisionRecord struct {
	StrategyID string             `json:"strategy_id"`
	Decision   Decision           `json:"decision"`
	FromStage  Stage              `json:"from_stage"`
	ToStage    Stage              `json:"to_stage"`
	Reason     string             `json:"reason"`
	Metrics    map[string]float64 `json:"metrics"`
	At         time.Time          `json:"at"`
}

// ReviewBoard answers the R3-only human/OOS gates.
// A nil board fails closed: R3 strategies stay put.
type ReviewBoard interface {
	OOSPassed(strategyID string) bool
	GoApproved(strategyID string) bool
}

// StageStats 단계별 승격/강등 누계
type StageStats struct {
	Promotions int `json:"promotions"`
	Demotions  int `json:"demotions"`
}

// Stats is the dashboard view of tournament activity
type Stats struct {
	Cycles      int                  `json:"cycles"`
	Generation  int                  `json:"generation"`
	LastCycleAt time.Time            `json:"last_cycle_at"`
	ByStage     map[Stage]StageStats `json:"by_stage"`
}

type strategyState struct {
	stage     Stage
	enteredAt time.Time
}

// Controller runs the R1 → R2 → R3 → LIVE promotion ladder on a fixed
// interval. All capital tier changes flow through the capital allocator;
// the controller never mutates pools directly.
// ⭐ SSOT: 승격/강등 판정은 여기서만
type Controller struct {
	cfg      config.TournamentConfig
	stages   map[Stage]StageConfig
	capital  *capital.Allocator
	perf     contracts.PerformanceSource
	bus      contracts.EventBus
	feedback contracts.FeedbackSink
	board    ReviewBoard
	repo     *Repository
	logger   *logger.Logger
	clock    func() time.Time

	mu         sync.Mutex
	states     map[string]*strategyState
	generation int
	stats      Stats
}

// Option configures optional collaborators
type Option func(*Controller)

// WithEventBus attaches the decision event bus
func WithEventBus(bus contracts.EventBus) Option {
	return func(c *Controller) { c.bus = bus }
}

// WithFeedbackSink attaches the strategy-generation feedback sink
func WithFeedbackSink(sink contracts.FeedbackSink) Option {
	return func(c *Controller) { c.feedback = sink }
}

// WithReviewBoard attaches the R3 OOS/go-no-go gate source
func WithReviewBoard(board ReviewBoard) Option {
	return func(c *Controller) { c.board = board }
}

// WithRepository attaches optional decision persistence
func WithRepository(repo *Repository) Option {
	return func(c *Controller) { c.repo = repo }
}

// WithClock overrides the cycle clock
func WithClock(clock func() time.Time) Option {
	return func(c *Controller) { c.clock = clock }
}

// NewController creates a new tournament controller
func NewController(
	cfg config.TournamentConfig,
	stages map[Stage]StageConfig,
	alloc *capital.Allocator,
	perf contracts.PerformanceSource,
	log *logger.Logger,
	opts ...Option,
) *Controller {
	if stages == nil {
		stages = DefaultStages()
	}
	c := &Controller{
		cfg:     cfg,
		stages:  stages,
		capital: alloc,
		perf:    perf,
		logger:  log,
		clock:   time.Now,
		states:  make(map[string]*strategyState),
		stats:   Stats{ByStage: make(map[Stage]StageStats)},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunCycle evaluates every strategy once and applies promotion/demotion
// decisions. Invokable on the scheduler or manually.
func (c *Controller) RunCycle(ctx context.Context) ([]DecisionRecord, error) {
	statsByID, err := c.perf.GetStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch strategy stats: %w", err)
	}

	now := c.clock()

	// 결정적 순회 순서
	ids := make([]string, 0, len(statsByID))
	for id := range statsByID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	records := make([]DecisionRecord, 0, len(ids))
	for _, id := range ids {
		s := statsByID[id]
		s.Normalize()
		record := c.evaluate(ctx, &s, now)
		records = append(records, record)

		if record.Decision == DecisionPromote || record.Decision == DecisionDemote {
			c.publish(record)
			c.persist(ctx, record)
		}
	}

	c.mu.Lock()
	c.stats.Cycles++
	c.stats.LastCycleAt = now
	c.mu.Unlock()

	c.submitFeedback(ctx, statsByID, records)

	c.logger.WithFields(map[string]interface{}{
		"strategies": len(records),
		"cycle":      c.Stats().Cycles,
	}).Info("Tournament cycle completed")

	return records, nil
}

// evaluate judges one strategy against its current stage
func (c *Controller) evaluate(ctx context.Context, s *contracts.StrategyStats, now time.Time) DecisionRecord {
	state := c.ensureState(s, now)
	stageCfg := c.stages[state.stage]

	record := DecisionRecord{
		StrategyID: s.StrategyID,
		Decision:   DecisionHold,
		FromStage:  state.stage,
		ToStage:    state.stage,
		Metrics:    c.metrics(s, now),
		At:         now,
	}

	if state.stage == StageLive {
		failures := c.softFailures(s, stageCfg.Criteria, now)
		if len(failures) >= liveSoftFailureLimit {
			record.Decision = DecisionDemote
			record.ToStage = StageR1
			record.Reason = fmt.Sprintf("probation failed: %s", strings.Join(failures, ", "))
			c.apply(ctx, &record, now)
		} else if len(failures) == 1 {
			record.Reason = fmt.Sprintf("probation warning: %s", failures[0])
		} else {
			record.Reason = "probation ok"
		}
		return record
	}

	stageDays := int(now.Sub(state.enteredAt).Hours() / 24)
	if stageDays < stageCfg.MinDurationDays || s.Trades < stageCfg.MinTrades {
		record.Decision = DecisionSkip
		record.Reason = fmt.Sprintf("stage minimums not met (%dd/%d trades, need %dd/%d)",
			stageDays, s.Trades, stageCfg.MinDurationDays, stageCfg.MinTrades)
		return record
	}

	if unmet := c.unmetCriteria(s, stageCfg.Criteria, now); len(unmet) > 0 {
		record.Reason = fmt.Sprintf("criteria not met: %s", strings.Join(unmet, ", "))
		return record
	}

	next, ok := state.stage.Next()
	if !ok {
		record.Reason = "no next stage"
		return record
	}

	record.Decision = DecisionPromote
	record.ToStage = next
	record.Reason = fmt.Sprintf("all %s criteria met", state.stage)
	c.apply(ctx, &record, now)
	return record
}

// unmetCriteria returns every promotion criterion the strategy fails.
// 하나라도 미달이면 승격 불가.
func (c *Controller) unmetCriteria(s *contracts.StrategyStats, cr Criteria, now time.Time) []string {
	var unmet []string
	if s.Sharpe < cr.MinSharpe {
		unmet = append(unmet, fmt.Sprintf("sharpe %.2f < %.2f", s.Sharpe, cr.MinSharpe))
	}
	if pf := s.EffectiveProfitFactor(); pf < cr.MinProfitFactor {
		unmet = append(unmet, fmt.Sprintf("profit factor %.2f < %.2f", pf, cr.MinProfitFactor))
	}
	if s.MaxDrawdown > cr.MaxDrawdown {
		unmet = append(unmet, fmt.Sprintf("drawdown %.2f > %.2f", s.MaxDrawdown, cr.MaxDrawdown))
	}
	if bpd := c.breachesPerDay(s, now); bpd > cr.MaxBreachesPerDay {
		unmet = append(unmet, fmt.Sprintf("breaches/day %.2f > %.2f", bpd, cr.MaxBreachesPerDay))
	}
	if s.AvgSlippage > cr.MaxSlippageBps {
		unmet = append(unmet, fmt.Sprintf("slippage %.1fbps > %.1fbps", s.AvgSlippage, cr.MaxSlippageBps))
	}
	if cr.RequireOOSPass && (c.board == nil || !c.board.OOSPassed(s.StrategyID)) {
		unmet = append(unmet, "out-of-sample gate not passed")
	}
	if cr.RequireGoFlag && (c.board == nil || !c.board.GoApproved(s.StrategyID)) {
		unmet = append(unmet, "go/no-go not approved")
	}
	return unmet
}

// softFailures returns the LIVE probation floors the strategy breaches
func (c *Controller) softFailures(s *contracts.StrategyStats, cr Criteria, now time.Time) []string {
	var failures []string
	if s.Sharpe < cr.MinSharpe {
		failures = append(failures, fmt.Sprintf("sharpe %.2f below floor %.2f", s.Sharpe, cr.MinSharpe))
	}
	if s.CurrentDrawdown > cr.MaxDrawdown {
		failures = append(failures, fmt.Sprintf("drawdown %.2f breach", s.CurrentDrawdown))
	}
	if bpd := c.breachesPerDay(s, now); bpd > cr.MaxBreachesPerDay {
		failures = append(failures, fmt.Sprintf("gate breaches %.2f/day", bpd))
	}
	if s.AvgSlippage > cr.MaxSlippageBps {
		failures = append(failures, fmt.Sprintf("slippage %.1fbps vs model", s.AvgSlippage))
	}
	return failures
}

// apply commits the stage change: release the current allocation, fund the
// target tier's entry stake, then record the new stage. Capital errors abort
// the stage change for this cycle.
func (c *Controller) apply(ctx context.Context, record *DecisionRecord, now time.Time) {
	target := c.stages[record.ToStage]

	if alloc, ok := c.capital.ActiveAllocationForStrategy(record.StrategyID); ok {
		if _, err := c.capital.Release(ctx, alloc.ID, alloc.PnL); err != nil {
			c.abort(record, fmt.Errorf("release %s: %w", alloc.ID, err))
			return
		}
	}

	if _, err := c.capital.Allocate(ctx, target.PoolID, record.StrategyID, target.CapitalMin, target.RiskLevel); err != nil {
		c.abort(record, fmt.Errorf("allocate in %s: %w", target.PoolID, err))
		return
	}

	c.mu.Lock()
	c.states[record.StrategyID] = &strategyState{stage: record.ToStage, enteredAt: now}
	st := c.stats.ByStage[record.FromStage]
	switch record.Decision {
	case DecisionPromote:
		st.Promotions++
	case DecisionDemote:
		st.Demotions++
	}
	c.stats.ByStage[record.FromStage] = st
	c.mu.Unlock()

	c.logger.WithFields(map[string]interface{}{
		"strategy":   record.StrategyID,
		"decision":   record.Decision,
		"from_stage": record.FromStage,
		"to_stage":   record.ToStage,
		"reason":     record.Reason,
	}).Info("Tournament decision applied")
}

// abort downgrades a decision to hold when capital reassignment fails.
// 이번 사이클은 건너뛰고 다음 사이클에 재시도된다.
func (c *Controller) abort(record *DecisionRecord, err error) {
	c.logger.WithError(err).WithFields(map[string]interface{}{
		"strategy": record.StrategyID,
		"decision": record.Decision,
	}).Warn("Capital reassignment failed, decision deferred")

	record.Decision = DecisionHold
	record.ToStage = record.FromStage
	record.Reason = fmt.Sprintf("capital reassignment failed: %v", err)
}

func (c *Controller) publish(record DecisionRecord) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(contracts.Event{
		Type:      "tournament_update",
		Data:      record,
		Timestamp: record.At,
	})
}

func (c *Controller) persist(ctx context.Context, record DecisionRecord) {
	if c.repo == nil {
		return
	}
	if err := c.repo.SaveDecision(ctx, record); err != nil {
		c.logger.WithError(err).Warn("Failed to persist tournament decision")
	}
}

// submitFeedback forwards the cycle's outcomes to the strategy-generation
// collaborator and bumps the generation counter
func (c *Controller) submitFeedback(ctx context.Context, statsByID map[string]contracts.StrategyStats, records []DecisionRecord) {
	if c.feedback == nil || !c.cfg.FeedbackEnabled {
		return
	}

	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.stats.Generation = gen
	c.mu.Unlock()

	batch := contracts.FeedbackBatch{Generation: gen}
	for _, record := range records {
		s := statsByID[record.StrategyID]
		batch.Results = append(batch.Results, contracts.StrategyOutcome{
			StrategyID: record.StrategyID,
			Stage:      string(record.ToStage),
			Decision:   string(record.Decision),
			Sharpe:     s.Sharpe,
			Drawdown:   s.CurrentDrawdown,
		})
	}

	if err := c.feedback.SubmitFeedback(ctx, batch); err != nil {
		c.logger.WithError(err).Warn("Failed to submit tournament feedback")
	}
}

// ensureState returns the tracked state for a strategy, seeding new entries
// at R1 as of their creation time
func (c *Controller) ensureState(s *contracts.StrategyStats, now time.Time) *strategyState {
	c.mu.Lock()
	defer c.mu.Unlock()

	if state, ok := c.states[s.StrategyID]; ok {
		return state
	}

	entered := s.CreatedAt
	if entered.IsZero() || entered.After(now) {
		entered = now
	}
	state := &strategyState{stage: StageR1, enteredAt: entered}
	c.states[s.StrategyID] = state
	return state
}

// breachesPerDay normalizes lifetime gate breaches by strategy age
func (c *Controller) breachesPerDay(s *contracts.StrategyStats, now time.Time) float64 {
	days := math.Max(1, float64(s.AgeDays(now)))
	return float64(s.GateBreaches) / days
}

func (c *Controller) metrics(s *contracts.StrategyStats, now time.Time) map[string]float64 {
	return map[string]float64{
		"sharpe":           s.Sharpe,
		"profit_factor":    s.EffectiveProfitFactor(),
		"max_drawdown":     s.MaxDrawdown,
		"current_drawdown": s.CurrentDrawdown,
		"trades":           float64(s.Trades),
		"breaches_per_day": c.breachesPerDay(s, now),
		"avg_slippage":     s.AvgSlippage,
	}
}

// StageOf returns a strategy's current stage
func (c *Controller) StageOf(strategyID string) (Stage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, ok := c.states[strategyID]
	if !ok {
		return "", false
	}
	return state.stage, true
}

// SetStage force-places a strategy in a stage (bootstrap/recovery)
func (c *Controller) SetStage(strategyID string, stage Stage, enteredAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states[strategyID] = &strategyState{stage: stage, enteredAt: enteredAt}
}

// Stats returns a snapshot of tournament statistics
func (c *Controller) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := c.stats
	snapshot.ByStage = make(map[Stage]StageStats, len(c.stats.ByStage))
	for stage, st := range c.stats.ByStage {
		snapshot.ByStage[stage] = st
	}
	return snapshot
}
