package gate

import (
	"math"
	"time"

	"github.com/wonny/arena/internal/contracts"
)

// VaR 추정 파라미터 — 하위 승격 기준이 이 스케일에 의존하므로 변경 금지
const (
	varZScore          = 1.96
	defaultHorizonDays = 1.0
	maxSpreadFraction  = 0.02
)

// checkHealth 시세/브로커 신선도 체크
// Bypassable only when safety breakers are explicitly disabled (non-prod)
func (g *RiskGate) checkHealth(intent *contracts.TradeIntent, gctx *contracts.GateContext) (string, bool) {
	if g.cfg.DisableBreakers {
		return "", true
	}

	if !gctx.BrokerUp {
		return contracts.ReasonBrokerDown, false
	}
	if gctx.QuoteAge > g.cfg.MaxQuoteStaleness {
		return contracts.ReasonStaleQuote, false
	}
	if gctx.BrokerAge > g.cfg.MaxBrokerStaleness {
		return contracts.ReasonBrokerDown, false
	}
	return "", true
}

// checkTradingHours 거래 시간 체크 (09:30–16:00, 주말 제외)
func (g *RiskGate) checkTradingHours(intent *contracts.TradeIntent, gctx *contracts.GateContext) (string, bool) {
	if g.cfg.AllowOffHours {
		return "", true
	}

	now := gctx.At().In(g.market)
	if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
		return contracts.ReasonMarketClosed, false
	}

	minutes := now.Hour()*60 + now.Minute()
	if minutes < 9*60+30 || minutes >= 16*60 {
		return contracts.ReasonMarketClosed, false
	}
	return "", true
}

// checkLiquidity 스프레드 체크
func (g *RiskGate) checkLiquidity(intent *contracts.TradeIntent, gctx *contracts.GateContext) (string, bool) {
	if intent.SpreadBps > g.cfg.MaxSpreadBps {
		return contracts.ReasonSpreadTooWide, false
	}
	if intent.SpreadBps/10000 > maxSpreadFraction {
		return contracts.ReasonSpreadTooWide, false
	}
	return "", true
}

// checkPositionLimits 단일 주문 비중 및 포지션 개수 체크
func (g *RiskGate) checkPositionLimits(intent *contracts.TradeIntent, gctx *contracts.GateContext) (string, bool) {
	if gctx.Equity > 0 && intent.Notional() > g.cfg.MaxNotionalPct*gctx.Equity {
		return contracts.ReasonPositionSizeExceeded, false
	}
	if gctx.OpenPositions >= g.cfg.MaxOpenPositions {
		return contracts.ReasonTooManyPositions, false
	}
	return "", true
}

// checkPortfolioRisk VaR 및 상관 버킷 체크
func (g *RiskGate) checkPortfolioRisk(intent *contracts.TradeIntent, gctx *contracts.GateContext) (string, bool) {
	if gctx.Equity <= 0 {
		return contracts.ReasonVaRLimit, false
	}

	tradeVaR := g.EstimateTradeVaR(intent, gctx.Equity)
	if gctx.CurrentDailyVaR+tradeVaR > g.cfg.MaxDailyVaR {
		return contracts.ReasonVaRLimit, false
	}

	bucket := g.classifier.Bucket(intent.Symbol)
	exposure := gctx.BucketExposure[bucket] + intent.Notional()
	if exposure/gctx.Equity > g.cfg.MaxCorrelationPct {
		return contracts.ReasonCorrelationLimit, false
	}
	return "", true
}

// checkStrategyLimits 전략 상태 체크
func (g *RiskGate) checkStrategyLimits(intent *contracts.TradeIntent, gctx *contracts.GateContext) (string, bool) {
	if gctx.StrategyDrawdown > g.cfg.MaxStrategyDD {
		return contracts.ReasonStrategyDrawdown, false
	}
	if gctx.StrategyHeat > g.cfg.MaxStrategyHeat {
		return contracts.ReasonStrategyHeat, false
	}
	return "", true
}

// checkMarketConditions 변동성 국면 및 이벤트 체크
func (g *RiskGate) checkMarketConditions(intent *contracts.TradeIntent, gctx *contracts.GateContext) (string, bool) {
	if gctx.Regime == contracts.RegimeExtreme && !intent.VolTolerant {
		return contracts.ReasonExtremeVolatility, false
	}
	if gctx.PendingEvents[intent.Symbol] {
		return contracts.ReasonPendingEvent, false
	}
	return "", true
}

// checkSize 최소 수량 및 현금 체크
func (g *RiskGate) checkSize(intent *contracts.TradeIntent, gctx *contracts.GateContext) (string, bool) {
	if intent.Quantity < g.cfg.MinQty {
		return contracts.ReasonQtyTooSmall, false
	}
	if intent.Side == contracts.SideBuy && intent.Notional() > gctx.Cash {
		return contracts.ReasonInsufficientCash, false
	}
	return "", true
}

// EstimateTradeVaR computes the incremental VaR of one trade as a fraction
// of equity: notional × volatility × 1.96 × sqrt(horizonDays) / equity
func (g *RiskGate) EstimateTradeVaR(intent *contracts.TradeIntent, equity float64) float64 {
	if equity <= 0 {
		return 0
	}

	vol := intent.Volatility
	if vol <= 0 {
		vol = g.cfg.DefaultVolatility
	}
	horizon := intent.HorizonDays
	if horizon <= 0 {
		horizon = defaultHorizonDays
	}

	return intent.Notional() * vol * varZScore * math.Sqrt(horizon) / equity
}
