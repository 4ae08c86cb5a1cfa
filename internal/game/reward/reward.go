// Package reward computes depth-scaled reward tiers and values.
package reward

import (
	"sort"

	"github.com/google/uuid"

	"github.com/cory-johannsen/delve/internal/game/dice"
)

// Tier is one of five quality bands.
type Tier string

// The five-tier ladder, lowest first.
const (
	TierCommon    Tier = "common"
	TierUncommon  Tier = "uncommon"
	TierRare      Tier = "rare"
	TierEpic      Tier = "epic"
	TierLegendary Tier = "legendary"
)

var ladder = [...]Tier{TierCommon, TierUncommon, TierRare, TierEpic, TierLegendary}

// Ladder returns a fresh copy of the tier ladder, lowest first.
func Ladder() []Tier {
	return append([]Tier(nil), ladder[:]...)
}

// ValueRange is the inclusive base value range of a tier.
type ValueRange struct {
	Min, Max int
}

var tierRanges = map[Tier]ValueRange{
	TierCommon:    {50, 200},
	TierUncommon:  {200, 500},
	TierRare:      {500, 1200},
	TierEpic:      {1200, 2500},
	TierLegendary: {2500, 10000},
}

// RangeFor returns the base value range of t.
func RangeFor(t Tier) ValueRange { return tierRanges[t] }

// Type is the kind of item a reward grants.
type Type string

// Reward types.
const (
	TypeWeapon     Type = "weapon"
	TypeArmor      Type = "armor"
	TypeAccessory  Type = "accessory"
	TypeConsumable Type = "consumable"
	TypeMaterial   Type = "material"
)

// AllTypes lists every reward type.
var AllTypes = []Type{TypeWeapon, TypeArmor, TypeAccessory, TypeConsumable, TypeMaterial}

// Reward is an ephemeral value object emitted into an expedition's reward list.
type Reward struct {
	// InstanceID distinguishes otherwise identical rewards.
	InstanceID string
	Tier       Tier
	Type       Type
	Value      int
	// Rarity mirrors Tier.
	Rarity Tier
	// Depth is the depth the reward was earned at.
	Depth int
	// Boss marks the terminal legendary spike of a progressive run.
	Boss bool
}

// Checkpoints are the depths at which progressive rewards are emitted.
var Checkpoints = []int{5, 10, 15, 20, 25}

// bossDepth is the depth at which a progressive run earns its boss reward.
const bossDepth = 25

// TierFor maps depth onto the ladder: one tier per 10 depth, capped at legendary.
//
// Postcondition: depth <= 9 → common; depth >= 40 → legendary.
func TierFor(depth int) Tier {
	i := depth / 10
	if i < 0 {
		i = 0
	}
	return ladder[min(i, len(ladder)-1)]
}

// Engine rolls rewards from an injected Source.
type Engine struct {
	src dice.Source
}

// NewEngine creates an Engine.
//
// Precondition: src must be non-nil.
func NewEngine(src dice.Source) *Engine {
	if src == nil {
		panic("reward: NewEngine requires a non-nil Source")
	}
	return &Engine{src: src}
}

// RewardFor rolls one reward for depth in a dungeon of dungeonLevel.
//
// Postcondition: Value == trunc(base * (1 + dungeonLevel/100)) with base in
// RangeFor(TierFor(depth)).
func (e *Engine) RewardFor(depth, dungeonLevel int) Reward {
	tier := TierFor(depth)
	return Reward{
		InstanceID: uuid.NewString(),
		Tier:       tier,
		Type:       dice.Pick(e.src, AllTypes),
		Value:      e.value(tier, dungeonLevel),
		Rarity:     tier,
		Depth:      depth,
	}
}

func (e *Engine) value(t Tier, dungeonLevel int) int {
	r := tierRanges[t]
	base := dice.Between(e.src, r.Min, r.Max)
	return int(float64(base) * (1 + float64(dungeonLevel)/100))
}

// Progressive emits one reward per checkpoint depth <= maxDepth, sorted by
// ascending value. When maxDepth >= 25 a legendary boss reward is appended
// whose value is its rolled value multiplied by the highest value before it.
//
// Postcondition: every entry except a trailing Boss entry is in
// non-decreasing value order.
func (e *Engine) Progressive(maxDepth, dungeonLevel int) []Reward {
	var out []Reward
	for _, depth := range Checkpoints {
		if depth > maxDepth {
			break
		}
		out = append(out, e.RewardFor(depth, dungeonLevel))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value < out[j].Value })

	if maxDepth >= bossDepth {
		boss := Reward{
			InstanceID: uuid.NewString(),
			Tier:       TierLegendary,
			Type:       dice.Pick(e.src, AllTypes),
			Value:      e.value(TierLegendary, dungeonLevel),
			Rarity:     TierLegendary,
			Depth:      maxDepth,
			Boss:       true,
		}
		if n := len(out); n > 0 {
			boss.Value *= out[n-1].Value
		}
		out = append(out, boss)
	}
	return out
}
