package tournament

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStage_Next(t *testing.T) {
	tests := []struct {
		from Stage
		want Stage
		ok   bool
	}{
		{StageR1, StageR2, true},
		{StageR2, StageR3, true},
		{StageR3, StageLive, true},
		{StageLive, StageLive, false},
	}

	for _, tt := range tests {
		got, ok := tt.from.Next()
		assert.Equal(t, tt.ok, ok, "Next(%s) ok", tt.from)
		assert.Equal(t, tt.want, got, "Next(%s)", tt.from)
	}
}

func TestDefaultStages_LadderConsistency(t *testing.T) {
	stages := DefaultStages()
	require.Len(t, stages, 4)

	// 기준은 R1→R2→R3로 갈수록 단조 강화 (LIVE의 Criteria는 보호관찰 하한이라 제외)
	for _, s := range []Stage{StageR1, StageR2} {
		cfg, ok := stages[s]
		require.True(t, ok, "stage %s missing", s)

		next, _ := s.Next()
		nextCfg := stages[next]

		assert.GreaterOrEqual(t, nextCfg.Criteria.MinSharpe, cfg.Criteria.MinSharpe, "sharpe %s→%s", s, next)
		assert.GreaterOrEqual(t, nextCfg.Criteria.MinProfitFactor, cfg.Criteria.MinProfitFactor, "profit factor %s→%s", s, next)
		assert.LessOrEqual(t, nextCfg.Criteria.MaxDrawdown, cfg.Criteria.MaxDrawdown, "drawdown %s→%s", s, next)
		assert.LessOrEqual(t, nextCfg.Criteria.MaxBreachesPerDay, cfg.Criteria.MaxBreachesPerDay, "breaches %s→%s", s, next)
		assert.LessOrEqual(t, nextCfg.Criteria.MaxSlippageBps, cfg.Criteria.MaxSlippageBps, "slippage %s→%s", s, next)
	}

	// 승격 자본은 현재 스테이지 상한과 연속, 평가 최소 조건은 필수
	for _, s := range []Stage{StageR1, StageR2, StageR3} {
		cfg := stages[s]
		next, _ := s.Next()
		assert.GreaterOrEqual(t, stages[next].CapitalMin, cfg.CapitalMax, "capital ladder %s→%s", s, next)
		assert.NotZero(t, cfg.MinDurationDays, "%s needs a minimum duration", s)
		assert.NotZero(t, cfg.MinTrades, "%s needs a minimum trade count", s)
	}

	// R3만 OOS/승인 게이트를 요구
	assert.True(t, stages[StageR3].Criteria.RequireOOSPass)
	assert.True(t, stages[StageR3].Criteria.RequireGoFlag)
	assert.False(t, stages[StageR1].Criteria.RequireOOSPass)
	assert.False(t, stages[StageR2].Criteria.RequireGoFlag)

	// LIVE는 보호관찰 하한만 가짐
	live := stages[StageLive]
	assert.Zero(t, live.MinDurationDays)
	assert.Zero(t, live.Criteria.MinProfitFactor)
	assert.Equal(t, "live", live.PoolID)
}
