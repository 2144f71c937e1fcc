package capital

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wonny/arena/internal/contracts"
	"github.com/wonny/arena/pkg/logger"
)

// Allocator owns all capital pool and allocation state
// ⭐ SSOT: 풀 변경은 전부 이 API를 통해서만 (raw map 노출 금지)
// A single writer lock serializes every mutation so AvailableCapital can never
// be overcommitted under concurrent allocate/release/updatePnl calls.
type Allocator struct {
	mu sync.RWMutex

	pools       map[string]*Pool
	allocations map[string]*Allocation

	// bounded ring of audit transactions
	transactions []Transaction
	txHead       int
	txCount      int

	limits Limits
	seq    int

	logger *logger.Logger
	bus    contracts.EventBus // optional
	repo   *Repository        // optional persistence
}

// Option configures the allocator
type Option func(*Allocator)

// WithEventBus attaches an event bus for emergency alerts
func WithEventBus(bus contracts.EventBus) Option {
	return func(a *Allocator) { a.bus = bus }
}

// WithRepository attaches optional transaction persistence
func WithRepository(repo *Repository) Option {
	return func(a *Allocator) { a.repo = repo }
}

// NewAllocator creates a new capital allocator
func NewAllocator(limits Limits, txHistory int, log *logger.Logger, opts ...Option) *Allocator {
	if txHistory <= 0 {
		txHistory = 1000
	}
	if limits.MaxPerExperiment == nil {
		limits.MaxPerExperiment = map[RiskLevel]float64{
			RiskLow:    1000,
			RiskMedium: 5000,
			RiskHigh:   10000,
		}
	}

	a := &Allocator{
		pools:        make(map[string]*Pool),
		allocations:  make(map[string]*Allocation),
		transactions: make([]Transaction, txHistory),
		limits:       limits,
		logger:       log,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// CreatePool registers a new capital pool
func (a *Allocator) CreatePool(id, name string, total float64, riskLevel RiskLevel, purpose PoolPurpose, maxDrawdown float64) (*Pool, error) {
	if total <= 0 {
		return nil, ErrInvalidAmount
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.pools[id]; exists {
		return nil, fmt.Errorf("%w: %s", ErrPoolExists, id)
	}

	pool := &Pool{
		ID:               id,
		Name:             name,
		TotalCapital:     total,
		AvailableCapital: total,
		RiskLevel:        riskLevel,
		Purpose:          purpose,
		MaxDrawdown:      maxDrawdown,
		LastUpdated:      time.Now(),
	}
	a.pools[id] = pool

	a.logger.WithFields(map[string]interface{}{
		"pool":    id,
		"total":   total,
		"purpose": purpose,
	}).Info("Capital pool created")

	return snapshotPool(pool), nil
}

// Allocate moves capital from available to allocated for a strategy
func (a *Allocator) Allocate(ctx context.Context, poolID, strategyID string, amount float64, riskLevel RiskLevel) (*Allocation, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	pool, exists := a.pools[poolID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrPoolNotFound, poolID)
	}

	if cap, ok := a.limits.MaxPerExperiment[riskLevel]; ok && amount > cap {
		return nil, fmt.Errorf("%w: %.2f > %.2f (%s)", ErrRiskCapExceeded, amount, cap, riskLevel)
	}

	if amount > pool.AvailableCapital {
		return nil, fmt.Errorf("%w: need %.2f, have %.2f", ErrInsufficientCapital, amount, pool.AvailableCapital)
	}

	if a.activeCountLocked(poolID) >= a.limits.MaxConcurrent {
		return nil, fmt.Errorf("%w: limit %d", ErrTooManyExperiments, a.limits.MaxConcurrent)
	}

	a.seq++
	alloc := &Allocation{
		ID:          fmt.Sprintf("alloc_%06d", a.seq),
		PoolID:      poolID,
		StrategyID:  strategyID,
		Amount:      amount,
		AllocatedAt: time.Now(),
		Status:      StatusActive,
		RiskLevel:   riskLevel,
	}
	a.allocations[alloc.ID] = alloc

	pool.AvailableCapital -= amount
	pool.AllocatedCapital += amount
	pool.LastUpdated = time.Now()

	a.recordTxLocked(ctx, Transaction{
		Type:        TxAllocation,
		PoolID:      poolID,
		StrategyID:  strategyID,
		Amount:      amount,
		Timestamp:   time.Now(),
		Description: fmt.Sprintf("allocated %.2f to %s (%s)", amount, strategyID, riskLevel),
	})

	a.logger.WithFields(map[string]interface{}{
		"allocation": alloc.ID,
		"pool":       poolID,
		"strategy":   strategyID,
		"amount":     amount,
	}).Info("Capital allocated")

	return snapshotAllocation(alloc), nil
}

// Release terminates an active allocation and returns amount + finalPnl to
// the pool. Losses are reconciled into TotalCapital and CurrentDrawdown.
func (a *Allocator) Release(ctx context.Context, allocationID string, finalPnl float64) (*Allocation, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.releaseLocked(ctx, allocationID, finalPnl)
}

func (a *Allocator) releaseLocked(ctx context.Context, allocationID string, finalPnl float64) (*Allocation, error) {
	alloc, exists := a.allocations[allocationID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrAllocationNotFound, allocationID)
	}
	if alloc.Status != StatusActive {
		return nil, fmt.Errorf("%w: %s is %s", ErrAllocationNotActive, allocationID, alloc.Status)
	}

	pool, exists := a.pools[alloc.PoolID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrPoolNotFound, alloc.PoolID)
	}

	// 손실은 할당 원금까지만 인정 (풀 불변식 유지)
	effective := finalPnl
	if effective < -alloc.Amount {
		effective = -alloc.Amount
	}

	returned := alloc.Amount + effective

	pool.AvailableCapital += returned
	pool.AllocatedCapital -= alloc.Amount
	pool.TotalCapital += effective
	if effective < 0 {
		pool.CurrentDrawdown += -effective / (pool.TotalCapital - effective)
	}
	pool.LastUpdated = time.Now()

	now := time.Now()
	alloc.Status = StatusReleased
	alloc.ReleasedAt = &now
	alloc.PnL = finalPnl

	a.recordTxLocked(ctx, Transaction{
		Type:        TxRelease,
		PoolID:      alloc.PoolID,
		StrategyID:  alloc.StrategyID,
		Amount:      returned,
		Timestamp:   now,
		Description: fmt.Sprintf("released %s with pnl %.2f", allocationID, finalPnl),
	})

	a.logger.WithFields(map[string]interface{}{
		"allocation": allocationID,
		"pool":       alloc.PoolID,
		"pnl":        finalPnl,
		"returned":   returned,
	}).Info("Capital released")

	return snapshotAllocation(alloc), nil
}

// UpdatePnL accumulates unrealized P&L on an active allocation. When the
// pool's aggregate unrealized loss breaches the emergency stop-loss fraction,
// every active allocation in the pool is force-released.
func (a *Allocator) UpdatePnL(ctx context.Context, allocationID string, delta float64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	alloc, exists := a.allocations[allocationID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrAllocationNotFound, allocationID)
	}
	if alloc.Status != StatusActive {
		return fmt.Errorf("%w: %s is %s", ErrAllocationNotActive, allocationID, alloc.Status)
	}

	alloc.PnL += delta

	a.recordTxLocked(ctx, Transaction{
		Type:        TxPnLUpdate,
		PoolID:      alloc.PoolID,
		StrategyID:  alloc.StrategyID,
		Amount:      delta,
		Timestamp:   time.Now(),
		Description: fmt.Sprintf("pnl update %s: %+.2f (total %+.2f)", allocationID, delta, alloc.PnL),
	})

	pool := a.pools[alloc.PoolID]
	unrealized := a.unrealizedPnLLocked(alloc.PoolID)
	if unrealized < 0 && -unrealized > a.limits.EmergencyStopLoss*pool.TotalCapital {
		a.emergencyStopLocked(ctx, alloc.PoolID, unrealized)
	}

	return nil
}

// EmergencyStop force-releases every active allocation in a pool
func (a *Allocator) EmergencyStop(ctx context.Context, poolID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.pools[poolID]; !exists {
		return fmt.Errorf("%w: %s", ErrPoolNotFound, poolID)
	}

	a.emergencyStopLocked(ctx, poolID, a.unrealizedPnLLocked(poolID))
	return nil
}

// emergencyStopLocked assumes the writer lock is held
func (a *Allocator) emergencyStopLocked(ctx context.Context, poolID string, unrealized float64) {
	a.logger.WithFields(map[string]interface{}{
		"pool":       poolID,
		"unrealized": unrealized,
	}).Error("EMERGENCY STOP: forced release of all active allocations")

	var released int
	for id, alloc := range a.allocations {
		if alloc.PoolID != poolID || alloc.Status != StatusActive {
			continue
		}
		// last known P&L becomes the final P&L
		if _, err := a.releaseLocked(ctx, id, alloc.PnL); err != nil {
			a.logger.WithError(err).WithField("allocation", id).Error("Forced release failed")
			continue
		}
		released++
	}

	if a.bus != nil {
		a.bus.Publish(contracts.Event{
			Type: "emergency_stop",
			Data: map[string]interface{}{
				"pool_id":    poolID,
				"unrealized": unrealized,
				"released":   released,
			},
			Timestamp: time.Now(),
		})
	}
}

// TransferCapital moves available capital between two pools atomically
func (a *Allocator) TransferCapital(ctx context.Context, fromPoolID, toPoolID string, amount float64, reason string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	from, exists := a.pools[fromPoolID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrPoolNotFound, fromPoolID)
	}
	to, exists := a.pools[toPoolID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrPoolNotFound, toPoolID)
	}

	if from.AvailableCapital < amount {
		return fmt.Errorf("%w: need %.2f, have %.2f", ErrInsufficientCapital, amount, from.AvailableCapital)
	}

	now := time.Now()
	from.AvailableCapital -= amount
	from.TotalCapital -= amount
	from.LastUpdated = now
	to.AvailableCapital += amount
	to.TotalCapital += amount
	to.LastUpdated = now

	// paired transactions, one per side
	a.recordTxLocked(ctx, Transaction{
		Type:        TxTransfer,
		PoolID:      fromPoolID,
		Amount:      -amount,
		Timestamp:   now,
		Description: fmt.Sprintf("transfer %.2f to %s: %s", amount, toPoolID, reason),
	})
	a.recordTxLocked(ctx, Transaction{
		Type:        TxTransfer,
		PoolID:      toPoolID,
		Amount:      amount,
		Timestamp:   now,
		Description: fmt.Sprintf("transfer %.2f from %s: %s", amount, fromPoolID, reason),
	})

	a.logger.WithFields(map[string]interface{}{
		"from":   fromPoolID,
		"to":     toPoolID,
		"amount": amount,
		"reason": reason,
	}).Info("Capital transferred")

	return nil
}

// =============================================================================
// Read-only accessors (copies only, never internal references)
// =============================================================================

// Pool returns a snapshot of a single pool
func (a *Allocator) Pool(poolID string) (*Pool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	pool, exists := a.pools[poolID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrPoolNotFound, poolID)
	}
	return snapshotPool(pool), nil
}

// Pools returns snapshots of all pools
func (a *Allocator) Pools() []*Pool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	result := make([]*Pool, 0, len(a.pools))
	for _, pool := range a.pools {
		result = append(result, snapshotPool(pool))
	}
	return result
}

// Allocation returns a snapshot of a single allocation
func (a *Allocator) Allocation(allocationID string) (*Allocation, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	alloc, exists := a.allocations[allocationID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrAllocationNotFound, allocationID)
	}
	return snapshotAllocation(alloc), nil
}

// ActiveAllocations returns active allocation snapshots for a pool
// (all pools when poolID is empty)
func (a *Allocator) ActiveAllocations(poolID string) []*Allocation {
	a.mu.RLock()
	defer a.mu.RUnlock()

	result := make([]*Allocation, 0)
	for _, alloc := range a.allocations {
		if alloc.Status != StatusActive {
			continue
		}
		if poolID != "" && alloc.PoolID != poolID {
			continue
		}
		result = append(result, snapshotAllocation(alloc))
	}
	return result
}

// ActiveAllocationForStrategy finds a strategy's active allocation, if any
func (a *Allocator) ActiveAllocationForStrategy(strategyID string) (*Allocation, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	for _, alloc := range a.allocations {
		if alloc.Status == StatusActive && alloc.StrategyID == strategyID {
			return snapshotAllocation(alloc), true
		}
	}
	return nil, false
}

// Transactions returns the audit ring in chronological order
func (a *Allocator) Transactions() []Transaction {
	a.mu.RLock()
	defer a.mu.RUnlock()

	result := make([]Transaction, 0, a.txCount)
	size := len(a.transactions)
	start := (a.txHead - a.txCount + size) % size
	for i := 0; i < a.txCount; i++ {
		result = append(result, a.transactions[(start+i)%size])
	}
	return result
}

// UnrealizedPnL returns the sum of P&L across a pool's active allocations
func (a *Allocator) UnrealizedPnL(poolID string) float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.unrealizedPnLLocked(poolID)
}

// =============================================================================
// Internal helpers (lock held)
// =============================================================================

func (a *Allocator) activeCountLocked(poolID string) int {
	count := 0
	for _, alloc := range a.allocations {
		if alloc.PoolID == poolID && alloc.Status == StatusActive {
			count++
		}
	}
	return count
}

func (a *Allocator) unrealizedPnLLocked(poolID string) float64 {
	var sum float64
	for _, alloc := range a.allocations {
		if alloc.PoolID == poolID && alloc.Status == StatusActive {
			sum += alloc.PnL
		}
	}
	return sum
}

func (a *Allocator) recordTxLocked(ctx context.Context, tx Transaction) {
	a.transactions[a.txHead] = tx
	a.txHead = (a.txHead + 1) % len(a.transactions)
	if a.txCount < len(a.transactions) {
		a.txCount++
	}

	if a.repo != nil {
		if err := a.repo.SaveTransaction(ctx, &tx); err != nil {
			a.logger.WithError(err).Warn("Failed to persist capital transaction")
		}
	}
}

func snapshotPool(p *Pool) *Pool {
	cp := *p
	return &cp
}

func snapshotAllocation(al *Allocation) *Allocation {
	cp := *al
	return &cp
}
