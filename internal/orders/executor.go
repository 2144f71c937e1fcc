package orders

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"github.com/wonny/arena/internal/contracts"
	"github.com/wonny/arena/pkg/config"
	"github.com/wonny/arena/pkg/logger"
)

// 하드 스톱: 게이트 이전에 검사되는 전역 차단 조건
var (
	ErrKillSwitch       = errors.New("KILL_SWITCH_ENABLED")
	ErrRateLimit        = errors.New("RATE_LIMIT")
	ErrDuplicateRequest = errors.New("DUPLICATE_REQUEST") // 같은 키의 주문이 처리 중
)

// ResultStore records order results by idempotency key. The redis store is
// the production backend; MemoryStore serves when redis is disabled.
type ResultStore interface {
	Reserve(ctx context.Context, key string) (bool, error)
	Record(ctx context.Context, key string, result interface{}) error
	Get(ctx context.Context, key string, out interface{}) (bool, error)
	Release(ctx context.Context, key string) error
}

// Executor guards the order adapter with the kill switch, a token-bucket
// rate limiter, and idempotent result recording.
// ⭐ SSOT: 주문 전 하드 스톱 검사는 여기서만
type Executor struct {
	adapter contracts.OrderAdapter
	limiter *rate.Limiter
	store   ResultStore
	logger  *logger.Logger

	mu         sync.RWMutex
	killSwitch bool
}

// NewExecutor creates a new guarded order executor
func NewExecutor(cfg config.OrdersConfig, adapter contracts.OrderAdapter, store ResultStore, log *logger.Logger) *Executor {
	return &Executor{
		adapter:    adapter,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		store:      store,
		logger:     log,
		killSwitch: cfg.KillSwitch,
	}
}

// SetKillSwitch flips the global order block
func (e *Executor) SetKillSwitch(enabled bool) {
	e.mu.Lock()
	e.killSwitch = enabled
	e.mu.Unlock()

	e.logger.WithFields(map[string]interface{}{
		"enabled": enabled,
	}).Warn("Kill switch changed")
}

// KillSwitchEnabled reports the current kill switch state
func (e *Executor) KillSwitchEnabled() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.killSwitch
}

// PlaceOrder executes one order. A retried call with the same idempotency
// key returns the previously recorded result without re-executing.
func (e *Executor) PlaceOrder(ctx context.Context, req contracts.OrderRequest, idempotencyKey string) (*contracts.OrderResult, error) {
	// 1. Kill switch (fail-closed)
	if e.KillSwitchEnabled() {
		return nil, ErrKillSwitch
	}

	// 2. Idempotency: 기록된 결과가 있으면 재실행 없이 반환
	reserved := false
	if idempotencyKey != "" {
		var cached contracts.OrderResult
		found, err := e.store.Get(ctx, idempotencyKey, &cached)
		if err != nil {
			return nil, fmt.Errorf("idempotency lookup: %w", err)
		}
		if found {
			return &cached, nil
		}

		ok, err := e.store.Reserve(ctx, idempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("idempotency reserve: %w", err)
		}
		if !ok {
			// 예약 경합: 그 사이 결과가 기록됐으면 그걸 반환
			if found, err := e.store.Get(ctx, idempotencyKey, &cached); err == nil && found {
				return &cached, nil
			}
			return nil, ErrDuplicateRequest
		}
		reserved = true
	}

	// 3. Rate limit (token bucket)
	if !e.limiter.Allow() {
		e.releaseReservation(ctx, reserved, idempotencyKey)
		return nil, ErrRateLimit
	}

	// 4. Execute
	result, err := e.adapter.PlaceOrder(ctx, req)
	if err != nil {
		e.releaseReservation(ctx, reserved, idempotencyKey)
		return nil, fmt.Errorf("place order %s %s: %w", req.Side, req.Symbol, err)
	}

	// 5. Record (best effort; 주문은 이미 체결됨)
	if reserved {
		if err := e.store.Record(ctx, idempotencyKey, result); err != nil {
			e.logger.WithError(err).WithFields(map[string]interface{}{
				"key":   idempotencyKey,
				"order": result.ID,
			}).Warn("Failed to record order result")
		}
	}

	e.logger.WithFields(map[string]interface{}{
		"symbol":   req.Symbol,
		"side":     req.Side,
		"quantity": req.Quantity,
		"order_id": result.ID,
		"status":   result.Status,
	}).Info("Order placed")

	return result, nil
}

// releaseReservation drops a claimed key after a failed execution so the
// caller may retry with the same key
func (e *Executor) releaseReservation(ctx context.Context, reserved bool, key string) {
	if !reserved {
		return
	}
	if err := e.store.Release(ctx, key); err != nil {
		e.logger.WithError(err).WithFields(map[string]interface{}{
			"key": key,
		}).Warn("Failed to release idempotency reservation")
	}
}
