package gate

import (
	"context"
	"fmt"

	"github.com/wonny/arena/internal/contracts"
	"github.com/wonny/arena/internal/positions"
	"github.com/wonny/arena/pkg/logger"
)

// 포트폴리오 전역 캡
const (
	maxPositionPct    = 0.10  // 단일 포지션 최대 비중
	dailyLossLimitPct = -0.02 // 일일 실현손익 한도 (equity 대비)
)

// CapitalView answers how much capital currently backs a strategy
type CapitalView interface {
	AvailableFor(strategyID string) float64
}

// AccountView supplies portfolio-level figures for the risk caps
type AccountView interface {
	Equity() float64
	DailyPnL() float64
}

// SignalValidator answers "can this buy/sell happen right now" for a single
// proposed signal. Thin layer atop the position cache and the capital state.
type SignalValidator struct {
	cache   *positions.Cache
	breaker contracts.CircuitBreaker
	capital CapitalView
	account AccountView
	logger  *logger.Logger
}

// NewSignalValidator creates a new signal validator
func NewSignalValidator(
	cache *positions.Cache,
	breaker contracts.CircuitBreaker,
	capital CapitalView,
	account AccountView,
	log *logger.Logger,
) *SignalValidator {
	return &SignalValidator{
		cache:   cache,
		breaker: breaker,
		capital: capital,
		account: account,
		logger:  log,
	}
}

// ValidateSignal validates one proposed signal against positions, capital,
// portfolio caps and the circuit breaker
func (v *SignalValidator) ValidateSignal(ctx context.Context, sig *contracts.Signal) *contracts.SignalCheck {
	// 실패 시 마지막 스냅샷 사용 (Refresh는 에러를 내지 않음)
	v.cache.Refresh(ctx)

	check := &contracts.SignalCheck{Errors: make([]string, 0)}

	pos, exists := v.cache.Get(sig.Symbol)
	check.HasPosition = exists && pos.Qty != 0
	if check.HasPosition {
		check.PositionSize = pos.Qty
	}

	// Circuit breaker
	verdict := v.breaker.CanTrade(ctx)
	check.CircuitBreakerOk = verdict.Allowed
	if !verdict.Allowed {
		check.Errors = append(check.Errors, fmt.Sprintf("circuit breaker: %s", verdict.Reason))
	}

	need := sig.Quantity * sig.Price
	available := v.capital.AvailableFor(sig.StrategyID)
	check.CapitalAvailable = available >= need
	if !check.CapitalAvailable {
		check.Errors = append(check.Errors, fmt.Sprintf("insufficient capital: need %.2f, have %.2f", need, available))
	}

	switch sig.Action {
	case contracts.SignalBuy:
		if check.HasPosition {
			check.Errors = append(check.Errors, fmt.Sprintf("position already exists for %s", sig.Symbol))
		}
		check.CanBuy = !check.HasPosition && check.CapitalAvailable

	case contracts.SignalSell:
		if !check.HasPosition {
			check.Errors = append(check.Errors, fmt.Sprintf("no position to sell for %s", sig.Symbol))
		} else if sig.Quantity > pos.Qty {
			check.Errors = append(check.Errors, fmt.Sprintf("sell quantity %.2f exceeds held %.2f", sig.Quantity, pos.Qty))
		} else {
			check.CanSell = true
		}

	default:
		check.Errors = append(check.Errors, fmt.Sprintf("unknown action %q", sig.Action))
	}

	check.RiskAllowed = v.riskAllowed(sig, check)

	switch sig.Action {
	case contracts.SignalBuy:
		check.IsValid = check.CanBuy && check.RiskAllowed && check.CircuitBreakerOk
	case contracts.SignalSell:
		check.IsValid = check.CanSell && check.RiskAllowed && check.CircuitBreakerOk
	}

	if !check.IsValid {
		v.logger.WithFields(map[string]interface{}{
			"strategy": sig.StrategyID,
			"symbol":   sig.Symbol,
			"action":   sig.Action,
			"errors":   check.Errors,
		}).Debug("Signal rejected")
	}

	return check
}

// riskAllowed applies the two portfolio-wide caps
func (v *SignalValidator) riskAllowed(sig *contracts.Signal, check *contracts.SignalCheck) bool {
	equity := v.account.Equity()
	if equity <= 0 {
		check.Errors = append(check.Errors, "no equity")
		return false
	}

	// 일일 손실 한도: 초과 시 나머지 체크와 무관하게 거부
	if v.account.DailyPnL() < dailyLossLimitPct*equity {
		check.Errors = append(check.Errors, "daily loss limit reached")
		return false
	}

	if sig.Action == contracts.SignalBuy {
		notional := sig.Quantity * sig.Price
		if notional > maxPositionPct*equity {
			check.Errors = append(check.Errors,
				fmt.Sprintf("position notional %.2f exceeds %.0f%% of equity", notional, maxPositionPct*100))
			return false
		}
	}

	return true
}
