package capital

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/wonny/arena/internal/contracts"
	"github.com/wonny/arena/pkg/logger"
)

func testLimits() Limits {
	return Limits{
		MaxPerExperiment: map[RiskLevel]float64{
			RiskLow:    1000,
			RiskMedium: 5000,
			RiskHigh:   10000,
		},
		MaxConcurrent:     10,
		MaxTotalDrawdown:  0.20,
		EmergencyStopLoss: 0.05,
	}
}

func newTestAllocator(t *testing.T) *Allocator {
	t.Helper()
	return NewAllocator(testLimits(), 100, logger.Nop())
}

func mustPool(t *testing.T, a *Allocator, id string, total float64) {
	t.Helper()
	if _, err := a.CreatePool(id, id, total, RiskMedium, PurposeResearch, 0.20); err != nil {
		t.Fatalf("CreatePool(%s) failed: %v", id, err)
	}
}

func poolInvariant(t *testing.T, a *Allocator, poolID string) {
	t.Helper()
	pool, err := a.Pool(poolID)
	if err != nil {
		t.Fatalf("Pool(%s) failed: %v", poolID, err)
	}
	sum := pool.AllocatedCapital + pool.AvailableCapital + pool.LockedCapital
	if math.Abs(sum-pool.TotalCapital) > 1e-6 {
		t.Errorf("pool %s invariant broken: alloc+avail+locked=%.4f, total=%.4f", poolID, sum, pool.TotalCapital)
	}
	if pool.AvailableCapital < 0 {
		t.Errorf("pool %s has negative available capital: %.4f", poolID, pool.AvailableCapital)
	}
}

func TestAllocate_RiskCap(t *testing.T) {
	a := newTestAllocator(t)
	mustPool(t, a, "pool", 10000)
	ctx := context.Background()

	// spec example: low cap is 1000, 2000 must fail
	if _, err := a.Allocate(ctx, "pool", "s1", 2000, RiskLow); !errors.Is(err, ErrRiskCapExceeded) {
		t.Errorf("expected ErrRiskCapExceeded, got %v", err)
	}

	// 900 succeeds and leaves 9100 available
	if _, err := a.Allocate(ctx, "pool", "s1", 900, RiskLow); err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}

	pool, _ := a.Pool("pool")
	if pool.AvailableCapital != 9100 {
		t.Errorf("AvailableCapital = %.2f, want 9100", pool.AvailableCapital)
	}
	if pool.AllocatedCapital != 900 {
		t.Errorf("AllocatedCapital = %.2f, want 900", pool.AllocatedCapital)
	}
	poolInvariant(t, a, "pool")
}

func TestAllocate_InsufficientCapital(t *testing.T) {
	a := newTestAllocator(t)
	mustPool(t, a, "pool", 3000)
	ctx := context.Background()

	if _, err := a.Allocate(ctx, "pool", "s1", 4000, RiskMedium); !errors.Is(err, ErrInsufficientCapital) {
		t.Errorf("expected ErrInsufficientCapital, got %v", err)
	}
	poolInvariant(t, a, "pool")
}

func TestAllocate_MaxConcurrent(t *testing.T) {
	limits := testLimits()
	limits.MaxConcurrent = 2
	a := NewAllocator(limits, 100, logger.Nop())
	mustPool(t, a, "pool", 100000)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := a.Allocate(ctx, "pool", "s", 100, RiskLow); err != nil {
			t.Fatalf("Allocate %d failed: %v", i, err)
		}
	}

	if _, err := a.Allocate(ctx, "pool", "s", 100, RiskLow); !errors.Is(err, ErrTooManyExperiments) {
		t.Errorf("expected ErrTooManyExperiments, got %v", err)
	}
}

func TestRelease_LossUpdatesDrawdown(t *testing.T) {
	a := newTestAllocator(t)
	mustPool(t, a, "pool", 10000)
	ctx := context.Background()

	alloc, err := a.Allocate(ctx, "pool", "s1", 900, RiskLow)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}

	// spec example: release with -200 returns 700 to the pool
	released, err := a.Release(ctx, alloc.ID, -200)
	if err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if released.Status != StatusReleased {
		t.Errorf("Status = %s, want released", released.Status)
	}

	pool, _ := a.Pool("pool")
	if math.Abs(pool.AvailableCapital-9800) > 1e-9 {
		t.Errorf("AvailableCapital = %.2f, want 9800 (9100 + 700)", pool.AvailableCapital)
	}
	if math.Abs(pool.TotalCapital-9800) > 1e-9 {
		t.Errorf("TotalCapital = %.2f, want 9800", pool.TotalCapital)
	}
	wantDD := 200.0 / 10000.0
	if math.Abs(pool.CurrentDrawdown-wantDD) > 1e-9 {
		t.Errorf("CurrentDrawdown = %.6f, want %.6f", pool.CurrentDrawdown, wantDD)
	}
	poolInvariant(t, a, "pool")
}

func TestRelease_NotActive(t *testing.T) {
	a := newTestAllocator(t)
	mustPool(t, a, "pool", 10000)
	ctx := context.Background()

	alloc, _ := a.Allocate(ctx, "pool", "s1", 500, RiskLow)
	if _, err := a.Release(ctx, alloc.ID, 50); err != nil {
		t.Fatalf("first Release failed: %v", err)
	}

	if _, err := a.Release(ctx, alloc.ID, 50); !errors.Is(err, ErrAllocationNotActive) {
		t.Errorf("expected ErrAllocationNotActive, got %v", err)
	}

	if _, err := a.Release(ctx, "alloc_999999", 0); !errors.Is(err, ErrAllocationNotFound) {
		t.Errorf("expected ErrAllocationNotFound, got %v", err)
	}
}

func TestUpdatePnL_EmergencyStop(t *testing.T) {
	a := newTestAllocator(t)
	mustPool(t, a, "pool", 10000)
	ctx := context.Background()

	a1, _ := a.Allocate(ctx, "pool", "s1", 800, RiskLow)
	a2, _ := a.Allocate(ctx, "pool", "s2", 800, RiskLow)

	// Aggregate loss below the 5% threshold: nothing happens
	if err := a.UpdatePnL(ctx, a1.ID, -300); err != nil {
		t.Fatalf("UpdatePnL failed: %v", err)
	}
	if len(a.ActiveAllocations("pool")) != 2 {
		t.Fatal("allocations should still be active")
	}

	// Push aggregate loss beyond 5% of 10000 → forced release of both
	if err := a.UpdatePnL(ctx, a2.ID, -250); err != nil {
		t.Fatalf("UpdatePnL failed: %v", err)
	}

	if n := len(a.ActiveAllocations("pool")); n != 0 {
		t.Errorf("active allocations after emergency stop = %d, want 0", n)
	}

	// Last known P&L became final
	rel1, _ := a.Allocation(a1.ID)
	if rel1.PnL != -300 {
		t.Errorf("a1 final pnl = %.2f, want -300", rel1.PnL)
	}
	poolInvariant(t, a, "pool")
}

func TestEmergencyStop_PublishesEvent(t *testing.T) {
	var events []contracts.Event
	bus := busFunc(func(e contracts.Event) { events = append(events, e) })

	a := NewAllocator(testLimits(), 100, logger.Nop(), WithEventBus(bus))
	mustPool(t, a, "pool", 10000)
	ctx := context.Background()

	alloc, _ := a.Allocate(ctx, "pool", "s1", 900, RiskLow)
	_ = a.UpdatePnL(ctx, alloc.ID, -600)

	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if events[0].Type != "emergency_stop" {
		t.Errorf("event type = %s, want emergency_stop", events[0].Type)
	}
}

type busFunc func(contracts.Event)

func (f busFunc) Publish(e contracts.Event) { f(e) }

func TestTransferCapital(t *testing.T) {
	a := newTestAllocator(t)
	mustPool(t, a, "A", 10000)
	mustPool(t, a, "B", 5000)
	ctx := context.Background()

	if err := a.TransferCapital(ctx, "A", "B", 1000, "rebalance"); err != nil {
		t.Fatalf("TransferCapital failed: %v", err)
	}

	pa, _ := a.Pool("A")
	pb, _ := a.Pool("B")
	if pa.AvailableCapital != 9000 {
		t.Errorf("A.AvailableCapital = %.2f, want 9000", pa.AvailableCapital)
	}
	if pb.AvailableCapital != 6000 {
		t.Errorf("B.AvailableCapital = %.2f, want 6000", pb.AvailableCapital)
	}
	if total := pa.TotalCapital + pb.TotalCapital; total != 15000 {
		t.Errorf("total across pools = %.2f, want 15000", total)
	}
	poolInvariant(t, a, "A")
	poolInvariant(t, a, "B")

	// Insufficient funds fails without mutation
	if err := a.TransferCapital(ctx, "B", "A", 99999, "too much"); !errors.Is(err, ErrInsufficientCapital) {
		t.Errorf("expected ErrInsufficientCapital, got %v", err)
	}
	pb2, _ := a.Pool("B")
	if pb2.AvailableCapital != 6000 {
		t.Errorf("failed transfer mutated pool: %.2f", pb2.AvailableCapital)
	}
}

func TestTransactions_RingBuffer(t *testing.T) {
	a := NewAllocator(testLimits(), 4, logger.Nop())
	mustPool(t, a, "pool", 100000)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		if _, err := a.Allocate(ctx, "pool", "s", 10, RiskLow); err != nil {
			t.Fatalf("Allocate failed: %v", err)
		}
	}

	txs := a.Transactions()
	if len(txs) != 4 {
		t.Fatalf("Transactions() = %d records, want ring size 4", len(txs))
	}
	// Oldest entries were dropped; the ring holds the last four
	for _, tx := range txs {
		if tx.Type != TxAllocation {
			t.Errorf("unexpected tx type %s", tx.Type)
		}
	}
}

func TestConcurrentAllocateNeverOvercommits(t *testing.T) {
	limits := testLimits()
	limits.MaxConcurrent = 1000
	a := NewAllocator(limits, 100, logger.Nop())
	mustPool(t, a, "pool", 1000)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = a.Allocate(ctx, "pool", "s", 100, RiskLow)
		}()
	}
	wg.Wait()

	pool, _ := a.Pool("pool")
	if pool.AvailableCapital < 0 {
		t.Errorf("available capital overcommitted: %.2f", pool.AvailableCapital)
	}
	if pool.AllocatedCapital > 1000 {
		t.Errorf("allocated beyond pool total: %.2f", pool.AllocatedCapital)
	}
	poolInvariant(t, a, "pool")
}
