package reward_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/delve/internal/game/dice"
	"github.com/cory-johannsen/delve/internal/game/reward"
)

func TestTierFor_Bands(t *testing.T) {
	cases := map[int]reward.Tier{
		0: reward.TierCommon, 9: reward.TierCommon,
		10: reward.TierUncommon, 19: reward.TierUncommon,
		20: reward.TierRare, 29: reward.TierRare,
		30: reward.TierEpic, 39: reward.TierEpic,
		40: reward.TierLegendary, 400: reward.TierLegendary,
	}
	for depth, want := range cases {
		assert.Equal(t, want, reward.TierFor(depth), "depth %d", depth)
	}
}

func TestTierFor_Property_LegendaryFrom40(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		depth := rapid.IntRange(40, 100000).Draw(rt, "depth")
		assert.Equal(rt, reward.TierLegendary, reward.TierFor(depth))
	})
}

func TestLadder_OrderAndCopy(t *testing.T) {
	l := reward.Ladder()
	require.Equal(t, []reward.Tier{
		reward.TierCommon, reward.TierUncommon, reward.TierRare, reward.TierEpic, reward.TierLegendary,
	}, l)
	l[0] = "mutated"
	assert.Equal(t, reward.TierCommon, reward.Ladder()[0])
}

func TestRewardFor_ValueScalesWithLevel(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		depth := rapid.IntRange(0, 60).Draw(rt, "depth")
		level := rapid.IntRange(0, 100).Draw(rt, "level")
		e := reward.NewEngine(dice.NewSeededSource(rapid.Uint64().Draw(rt, "seed")))

		r := e.RewardFor(depth, level)
		rng := reward.RangeFor(reward.TierFor(depth))
		factor := 1 + float64(level)/100
		assert.Equal(rt, r.Tier, r.Rarity)
		assert.GreaterOrEqual(rt, r.Value, int(float64(rng.Min)*factor))
		assert.LessOrEqual(rt, r.Value, int(float64(rng.Max)*factor))
		assert.Contains(rt, reward.AllTypes, r.Type)
		assert.NotEmpty(rt, r.InstanceID)
	})
}

func TestProgressive_CheckpointsFiltered(t *testing.T) {
	e := reward.NewEngine(dice.NewSeededSource(1))
	assert.Empty(t, e.Progressive(4, 10))
	assert.Len(t, e.Progressive(5, 10), 1)
	assert.Len(t, e.Progressive(10, 10), 2)
	assert.Len(t, e.Progressive(24, 10), 4)
}

func TestProgressive_MonotonicWithBossSpike(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		level := rapid.IntRange(1, 50).Draw(rt, "level")
		maxDepth := rapid.IntRange(25, 60).Draw(rt, "max_depth")
		e := reward.NewEngine(dice.NewSeededSource(rapid.Uint64().Draw(rt, "seed")))

		rewards := e.Progressive(maxDepth, level)
		require.Len(rt, rewards, len(reward.Checkpoints)+1)

		body := rewards[:len(rewards)-1]
		for i := 1; i < len(body); i++ {
			assert.LessOrEqual(rt, body[i-1].Value, body[i].Value)
			assert.False(rt, body[i].Boss)
		}

		boss := rewards[len(rewards)-1]
		assert.True(rt, boss.Boss)
		assert.Equal(rt, reward.TierLegendary, boss.Tier)
		assert.GreaterOrEqual(rt, boss.Value, body[len(body)-1].Value)
	})
}

func TestNewEngine_PanicsOnNil(t *testing.T) {
	assert.Panics(t, func() { reward.NewEngine(nil) })
}
