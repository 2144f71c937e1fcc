package risk

import (
	"context"
	"fmt"
	"sync"

	"github.com/wonny/arena/internal/contracts"
	"github.com/wonny/arena/pkg/logger"
)

// AccountSource supplies the account figures the breaker watches
type AccountSource interface {
	Equity() float64
	DailyPnL() float64
}

// BreakerConfig holds the halt thresholds
type BreakerConfig struct {
	MaxDailyLossPct float64 // equity 대비 일일 손실 한도 (예: 0.03)
	HaltOnExtreme   bool    // 극단 변동성 국면에서 전면 중단
}

// DrawdownBreaker is the built-in circuit breaker: halts trading on a daily
// loss breach, an extreme regime, or a manual trip.
// ⭐ SSOT: 계좌 단위 서킷 브레이커 판정은 여기서만
type DrawdownBreaker struct {
	cfg     BreakerConfig
	account AccountSource
	logger  *logger.Logger

	mu         sync.RWMutex
	tripped    bool
	tripReason string
	regime     contracts.VolatilityRegime
}

// NewDrawdownBreaker creates the account-level circuit breaker
func NewDrawdownBreaker(cfg BreakerConfig, account AccountSource, log *logger.Logger) *DrawdownBreaker {
	return &DrawdownBreaker{
		cfg:     cfg,
		account: account,
		logger:  log,
		regime:  contracts.RegimeNormal,
	}
}

// CanTrade answers whether trading is currently allowed
func (b *DrawdownBreaker) CanTrade(ctx context.Context) contracts.BreakerVerdict {
	b.mu.RLock()
	tripped, reason, regime := b.tripped, b.tripReason, b.regime
	b.mu.RUnlock()

	if tripped {
		return contracts.BreakerVerdict{Allowed: false, Reason: reason}
	}

	if b.cfg.HaltOnExtreme && regime == contracts.RegimeExtreme {
		return contracts.BreakerVerdict{Allowed: false, Reason: "extreme volatility regime"}
	}

	equity := b.account.Equity()
	if equity > 0 && b.cfg.MaxDailyLossPct > 0 {
		if loss := -b.account.DailyPnL(); loss > b.cfg.MaxDailyLossPct*equity {
			return contracts.BreakerVerdict{
				Allowed: false,
				Reason:  fmt.Sprintf("daily loss %.2f exceeds %.1f%% of equity", loss, b.cfg.MaxDailyLossPct*100),
			}
		}
	}

	return contracts.BreakerVerdict{Allowed: true}
}

// SetRegime updates the observed volatility regime
func (b *DrawdownBreaker) SetRegime(regime contracts.VolatilityRegime) {
	b.mu.Lock()
	b.regime = regime
	b.mu.Unlock()
}

// Trip halts trading manually until Reset
func (b *DrawdownBreaker) Trip(reason string) {
	b.mu.Lock()
	b.tripped = true
	b.tripReason = reason
	b.mu.Unlock()

	b.logger.WithFields(map[string]interface{}{
		"reason": reason,
	}).Warn("Circuit breaker tripped")
}

// Reset re-enables trading after a manual trip
func (b *DrawdownBreaker) Reset() {
	b.mu.Lock()
	b.tripped = false
	b.tripReason = ""
	b.mu.Unlock()

	b.logger.Info("Circuit breaker reset")
}

// Tripped reports whether a manual trip is active
func (b *DrawdownBreaker) Tripped() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.tripped
}
