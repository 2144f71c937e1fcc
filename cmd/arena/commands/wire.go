package commands

import (
	"context"

	"github.com/wonny/arena/internal/capital"
	"github.com/wonny/arena/internal/contracts"
	"github.com/wonny/arena/internal/events"
	"github.com/wonny/arena/internal/gate"
	"github.com/wonny/arena/internal/orders"
	"github.com/wonny/arena/internal/positions"
	"github.com/wonny/arena/internal/risk"
	"github.com/wonny/arena/internal/scheduler"
	"github.com/wonny/arena/internal/scheduler/jobs"
	"github.com/wonny/arena/internal/strategy"
	"github.com/wonny/arena/internal/tournament"
	"github.com/wonny/arena/pkg/config"
	"github.com/wonny/arena/pkg/database"
	"github.com/wonny/arena/pkg/logger"
	redispkg "github.com/wonny/arena/pkg/redis"
)

// 기본 풀 규모 (스테이지 사다리와 1:1)
var defaultPoolCapital = map[string]float64{
	"research":    10_000,
	"competition": 50_000,
	"validation":  100_000,
	"live":        500_000,
}

// core bundles the wired subsystems a command operates on
type core struct {
	cfg *config.Config
	log *logger.Logger

	db    *database.DB
	redis *redispkg.Client

	capital    *capital.Allocator
	gate       *gate.RiskGate
	validator  *gate.SignalValidator
	breaker    *risk.DrawdownBreaker
	strategies *strategy.Allocator
	tournament *tournament.Controller
	bus        *events.Bus
	hub        *events.Hub
	scheduler  *scheduler.Scheduler
	executor   *orders.Executor
	cache      *positions.Cache
}

// buildCore assembles the governance engine from configuration.
// External collaborators (broker, breaker, performance source) default to
// local stand-ins until real adapters are registered.
func buildCore(cfg *config.Config, log *logger.Logger) (*core, error) {
	c := &core{cfg: cfg, log: log}

	// Optional persistence
	var capitalOpts []capital.Option
	var tournamentOpts []tournament.Option
	if cfg.Database.Enabled {
		db, err := database.New(cfg)
		if err != nil {
			return nil, err
		}
		c.db = db

		capRepo := capital.NewRepository(db)
		tourRepo := tournament.NewRepository(db)
		ctx := context.Background()
		if err := capRepo.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		if err := tourRepo.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		capitalOpts = append(capitalOpts, capital.WithRepository(capRepo))
		tournamentOpts = append(tournamentOpts, tournament.WithRepository(tourRepo))
	}

	// Events
	c.bus = events.NewBus(log)
	c.hub = events.NewHub(log)
	c.hub.Attach(c.bus)
	capitalOpts = append(capitalOpts, capital.WithEventBus(c.bus))
	tournamentOpts = append(tournamentOpts, tournament.WithEventBus(c.bus))

	// Capital pools, one per tournament tier
	c.capital = capital.NewAllocator(capital.Limits{
		MaxPerExperiment: map[capital.RiskLevel]float64{
			capital.RiskLow:    cfg.Capital.MaxPerExperimentLow,
			capital.RiskMedium: cfg.Capital.MaxPerExperimentMedium,
			capital.RiskHigh:   cfg.Capital.MaxPerExperimentHigh,
		},
		MaxConcurrent:     cfg.Capital.MaxConcurrent,
		MaxTotalDrawdown:  cfg.Capital.MaxTotalDrawdown,
		EmergencyStopLoss: cfg.Capital.EmergencyStopLoss,
	}, cfg.Capital.TransactionHistory, log, capitalOpts...)

	stages := tournament.DefaultStages()
	purposes := map[string]capital.PoolPurpose{
		"research":    capital.PurposeResearch,
		"competition": capital.PurposeCompetition,
		"validation":  capital.PurposeValidation,
		"live":        capital.PurposeLive,
	}
	for _, stage := range stages {
		if _, err := c.capital.CreatePool(
			stage.PoolID, stage.PoolID,
			defaultPoolCapital[stage.PoolID],
			stage.RiskLevel, purposes[stage.PoolID],
			cfg.Capital.MaxTotalDrawdown,
		); err != nil {
			return nil, err
		}
	}

	// Gate + positions + signal validation
	c.gate = gate.NewRiskGate(cfg.Gate, gate.DefaultClassifier(), log)
	c.cache = positions.NewCache(noopBroker{}, positions.DefaultTTL, log)

	account := &staticAccount{}
	c.breaker = risk.NewDrawdownBreaker(risk.BreakerConfig{
		MaxDailyLossPct: cfg.Gate.MaxDailyVaR,
		HaltOnExtreme:   true,
	}, account, log)
	c.validator = gate.NewSignalValidator(c.cache, c.breaker, capitalView{c.capital}, account, log)

	// Strategy weights + tournament ladder
	c.strategies = strategy.NewAllocator(cfg.Strategy, log)
	c.tournament = tournament.NewController(
		cfg.Tournament, stages, c.capital, emptyPerf{}, log, tournamentOpts...,
	)

	// Orders: redis-backed idempotency when available
	var store orders.ResultStore = orders.NewMemoryStore(cfg.Orders.IdempotencyTTL)
	if cfg.Redis.Enabled {
		rc, err := redispkg.New(cfg)
		if err != nil {
			return nil, err
		}
		c.redis = rc
		if rc.Enabled() {
			store = redispkg.NewIdempotencyStore(rc, "arena", cfg.Orders.IdempotencyTTL)
		}
	}
	c.executor = orders.NewExecutor(cfg.Orders, orders.NewPaperAdapter(), store, log)

	// Scheduler with the tournament cycle job
	c.scheduler = scheduler.New(log)
	if err := c.scheduler.AddJob(jobs.NewTournamentJob(c.tournament, cfg.Tournament.CycleInterval, log)); err != nil {
		return nil, err
	}

	return c, nil
}

// close releases the core's external connections
func (c *core) close() {
	if c.hub != nil {
		c.hub.Close()
	}
	if c.bus != nil {
		c.bus.Close()
	}
	if c.redis != nil {
		c.redis.Close()
	}
	if c.db != nil {
		c.db.Close()
	}
}

// noopBroker reports no holdings until a real broker adapter is registered
type noopBroker struct{}

func (noopBroker) GetPositions(ctx context.Context) ([]contracts.Position, error) {
	return nil, nil
}

func (noopBroker) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	return 0, nil
}

// capitalView answers available capital per strategy from the allocator
type capitalView struct {
	alloc *capital.Allocator
}

func (v capitalView) AvailableFor(strategyID string) float64 {
	if a, ok := v.alloc.ActiveAllocationForStrategy(strategyID); ok {
		return a.Amount + a.PnL
	}
	return 0
}

// staticAccount is the account stand-in until a broker adapter reports
// real equity and daily P&L
type staticAccount struct{}

func (staticAccount) Equity() float64   { return 0 }
func (staticAccount) DailyPnL() float64 { return 0 }

// emptyPerf yields no track records; tournament cycles are no-ops until a
// performance source is registered
type emptyPerf struct{}

func (emptyPerf) GetStats(ctx context.Context) (map[string]contracts.StrategyStats, error) {
	return map[string]contracts.StrategyStats{}, nil
}
