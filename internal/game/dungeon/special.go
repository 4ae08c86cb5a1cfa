package dungeon

import (
	"fmt"

	"github.com/cory-johannsen/delve/internal/game/dice"
)

var secretTags = []string{
	"hidden_cache", "false_wall", "secret_passage", "ancient_stash",
	"concealed_altar", "trapdoor", "sealed_reliquary",
}

// SpecialCounts reports how many of each special room were injected.
type SpecialCounts struct {
	Treasure int
	Secret   int
}

// InjectSpecialRooms adds the entrance at (0,0) as index 0, one boss room
// past the generated extent, 1–3 treasure rooms, and 1–2 secret rooms each
// holding two secret tags.
//
// Precondition: g holds only base rooms.
// Postcondition: g holds exactly one entrance and one boss room.
func InjectSpecialRooms(g *Graph, dungeonID string, src dice.Source) SpecialCounts {
	minX, minY, maxX, maxY := g.Extent()

	g.Prepend(&Room{
		ID:       dungeonID + "_entrance",
		Kind:     KindEntrance,
		Contents: []string{"entrance"},
	})

	g.Add(&Room{
		ID:       dungeonID + "_boss",
		Kind:     KindBoss,
		X:        maxX + 2,
		Y:        0,
		Contents: []string{"boss"},
	})

	counts := SpecialCounts{Treasure: dice.Between(src, 1, 3), Secret: dice.Between(src, 1, 2)}
	for i := 0; i < counts.Treasure; i++ {
		g.Add(&Room{
			ID:       fmt.Sprintf("%s_treasure_%d", dungeonID, i),
			Kind:     KindTreasure,
			X:        maxX - i,
			Y:        maxY + 2,
			Contents: []string{"treasure_chest"},
		})
	}
	for i := 0; i < counts.Secret; i++ {
		g.Add(&Room{
			ID:       fmt.Sprintf("%s_secret_%d", dungeonID, i),
			Kind:     KindSecret,
			X:        minX - 2,
			Y:        minY - 2 - i,
			Contents: []string{"hidden_area"},
			Secrets:  pickSecretTags(src, 2),
		})
	}
	return counts
}

func pickSecretTags(src dice.Source, n int) []string {
	pool := append([]string(nil), secretTags...)
	dice.Shuffle(src, pool)
	return pool[:n]
}

type kindWeight struct {
	kind   RoomKind
	weight int
}

var baseKindWeights = []kindWeight{
	{KindChamber, 30},
	{KindCorridor, 20},
	{KindPuzzle, 15},
	{KindTrap, 12},
	{KindLore, 13},
	{KindRest, 10},
}

func pickBaseKind(src dice.Source) RoomKind {
	total := 0
	for _, kw := range baseKindWeights {
		total += kw.weight
	}
	roll := src.Intn(total)
	for _, kw := range baseKindWeights {
		if roll < kw.weight {
			return kw.kind
		}
		roll -= kw.weight
	}
	return KindChamber
}

// furnish assigns a kind and content to every base room.
//
// Precondition: len(puzzles) > 0 and len(challenges) > 0.
func furnish(rooms []*Room, puzzles []PuzzleType, challenges []Challenge, src dice.Source) {
	for _, r := range rooms {
		r.Kind = pickBaseKind(src)
		switch r.Kind {
		case KindPuzzle:
			r.Puzzle = dice.Pick(src, puzzles)
			r.Contents = []string{"puzzle"}
		case KindTrap:
			r.Challenge = dice.Pick(src, challenges)
			r.Contents = []string{"trap"}
		case KindLore:
			r.Lore = dice.Pick(src, AllLore)
			r.Contents = []string{"lore"}
		case KindRest:
			r.Contents = []string{"campfire"}
		case KindCorridor:
			r.Contents = []string{"passage"}
			if dice.Percent(src, 15) {
				r.Challenge = dice.Pick(src, challenges)
			}
		default:
			if dice.Percent(src, 50) {
				r.Contents = []string{"monster"}
			} else {
				r.Contents = []string{"empty"}
			}
			if dice.Percent(src, 25) {
				r.Challenge = dice.Pick(src, challenges)
			}
			if dice.Percent(src, 10) {
				r.Secrets = []string{"loose_stone"}
			}
		}
	}
}
