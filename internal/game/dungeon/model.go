// Package dungeon generates immutable dungeon graphs: six layout strategies,
// theme-driven content, special-room injection, and connectivity repair.
package dungeon

import (
	"fmt"

	"github.com/cory-johannsen/delve/internal/game/reward"
)

// RoomKind classifies a room's role in the dungeon.
type RoomKind string

// Room kinds.
const (
	KindEntrance RoomKind = "entrance"
	KindChamber  RoomKind = "chamber"
	KindCorridor RoomKind = "corridor"
	KindPuzzle   RoomKind = "puzzle_room"
	KindTrap     RoomKind = "trap_room"
	KindTreasure RoomKind = "treasure_room"
	KindBoss     RoomKind = "boss_room"
	KindSecret   RoomKind = "secret_room"
	KindLore     RoomKind = "lore_room"
	KindRest     RoomKind = "rest_area"
)

// LayoutKind names one of the six graph-shape algorithms.
type LayoutKind string

// Layout kinds.
const (
	LayoutLinear     LayoutKind = "linear"
	LayoutBranching  LayoutKind = "branching"
	LayoutCircular   LayoutKind = "circular"
	LayoutMaze       LayoutKind = "maze"
	LayoutSpiral     LayoutKind = "spiral"
	LayoutMultilevel LayoutKind = "multilevel"
)

// AllLayouts lists every layout kind in a stable order.
var AllLayouts = []LayoutKind{
	LayoutLinear, LayoutBranching, LayoutCircular,
	LayoutMaze, LayoutSpiral, LayoutMultilevel,
}

// PuzzleType is the flavour of puzzle a room holds.
type PuzzleType string

// Puzzle types.
const (
	PuzzleRiddle        PuzzleType = "riddle"
	PuzzleMagical       PuzzleType = "magical"
	PuzzleLogical       PuzzleType = "logical"
	PuzzleMechanical    PuzzleType = "mechanical"
	PuzzleEnvironmental PuzzleType = "environmental"
	PuzzlePressurePlate PuzzleType = "pressure_plate"
	PuzzlePattern       PuzzleType = "pattern_matching"
	PuzzleMusical       PuzzleType = "musical"
	PuzzleElemental     PuzzleType = "elemental"
	PuzzleSlidingBlock  PuzzleType = "sliding_block"
	PuzzleMirror        PuzzleType = "mirror_alignment"
	PuzzleRuneSequence  PuzzleType = "rune_sequence"
)

// AllPuzzles is the full puzzle enumeration.
var AllPuzzles = []PuzzleType{
	PuzzleRiddle, PuzzleMagical, PuzzleLogical, PuzzleMechanical,
	PuzzleEnvironmental, PuzzlePressurePlate, PuzzlePattern, PuzzleMusical,
	PuzzleElemental, PuzzleSlidingBlock, PuzzleMirror, PuzzleRuneSequence,
}

// Challenge is an environmental hazard.
type Challenge string

// Environmental challenges.
const (
	ChallengeFire        Challenge = "fire"
	ChallengeIce         Challenge = "ice"
	ChallengePoison      Challenge = "poison"
	ChallengeFlooding    Challenge = "flooding"
	ChallengeDarkness    Challenge = "darkness"
	ChallengeLightning   Challenge = "lightning"
	ChallengeAcid        Challenge = "acid"
	ChallengeCollapse    Challenge = "collapsing_floor"
	ChallengeGravity     Challenge = "gravity_shift"
	ChallengeArcaneStorm Challenge = "arcane_storm"
)

// AllChallenges is the full environmental-challenge enumeration.
var AllChallenges = []Challenge{
	ChallengeFire, ChallengeIce, ChallengePoison, ChallengeFlooding,
	ChallengeDarkness, ChallengeLightning, ChallengeAcid, ChallengeCollapse,
	ChallengeGravity, ChallengeArcaneStorm,
}

// LoreType is the medium a piece of lore is found in.
type LoreType string

// Lore types.
const (
	LoreInscription LoreType = "inscription"
	LoreJournal     LoreType = "journal"
	LoreMural       LoreType = "mural"
	LoreArtifact    LoreType = "artifact"
	LoreEcho        LoreType = "spectral_echo"
	LoreTome        LoreType = "tome"
)

// AllLore is the full lore enumeration.
var AllLore = []LoreType{LoreInscription, LoreJournal, LoreMural, LoreArtifact, LoreEcho, LoreTome}

// Room is a node in the dungeon graph. Connections live in the owning
// Graph's adjacency list; use Dungeon.Connections to read them by id.
type Room struct {
	// ID is unique within the owning dungeon.
	ID   string
	Kind RoomKind
	X, Y int
	// Contents are free-form content tags ("puzzle", "monster", "cache", ...).
	Contents []string
	// Secrets are the secret tags a visit reveals.
	Secrets   []string
	Challenge Challenge  // empty when the room has no hazard
	Puzzle    PuzzleType // empty when the room has no puzzle
	Lore      LoreType   // empty when the room has no lore
	// Explored flips false→true once, on the first visit.
	Explored bool
}

// Depth is the room's Manhattan distance from the entrance at (0,0).
func (r *Room) Depth() int {
	return abs(r.X) + abs(r.Y)
}

// Dungeon is the generated aggregate. Everything except each Room's Explored
// flag is immutable once Generate returns.
type Dungeon struct {
	ID     string
	Name   string
	Theme  Theme
	Level  int
	Layout LayoutKind
	// RoomCount is the drawn room count in [10, 50]; the graph additionally
	// holds the boss, treasure, and secret rooms.
	RoomCount    int
	Puzzles      []PuzzleType
	Challenges   []Challenge
	Secrets      int
	HiddenAreas  int
	LoreElements int
	RewardTiers  []reward.Tier

	graph *Graph
}

// Rooms returns every room in arena order; index 0 is the entrance.
func (d *Dungeon) Rooms() []*Room { return d.graph.Rooms() }

// Size returns the total number of rooms including specials.
func (d *Dungeon) Size() int { return d.graph.Len() }

// Room returns the room with the given id.
//
// Postcondition: Returns (room, true) if found, or (nil, false) otherwise.
func (d *Dungeon) Room(id string) (*Room, bool) {
	i, ok := d.graph.Index(id)
	if !ok {
		return nil, false
	}
	return d.graph.Room(i), true
}

// RoomAt returns the room at arena index i.
func (d *Dungeon) RoomAt(i int) *Room { return d.graph.Room(i) }

// IndexOf returns the arena index for id.
func (d *Dungeon) IndexOf(id string) (int, bool) { return d.graph.Index(id) }

// Entrance returns the single entrance room.
func (d *Dungeon) Entrance() *Room { return d.graph.Room(0) }

// Connections returns the ids of the rooms connected to id.
//
// Postcondition: Returns nil for an unknown id.
func (d *Dungeon) Connections(id string) []string {
	i, ok := d.graph.Index(id)
	if !ok {
		return nil
	}
	return d.graph.NeighborIDs(i)
}

// Neighbors returns the arena indices adjacent to index i.
func (d *Dungeon) Neighbors(i int) []int { return d.graph.Neighbors(i) }

// Graph exposes the underlying arena for traversal.
func (d *Dungeon) Graph() *Graph { return d.graph }

// MarkExplored flips the Explored flag of room i.
//
// Postcondition: Returns true only on the first call for a given room.
func (d *Dungeon) MarkExplored(i int) bool {
	r := d.graph.Room(i)
	if r.Explored {
		return false
	}
	r.Explored = true
	return true
}

// ExploredCount returns how many rooms have been explored.
func (d *Dungeon) ExploredCount() int {
	n := 0
	for _, r := range d.graph.Rooms() {
		if r.Explored {
			n++
		}
	}
	return n
}

// CountKind returns the number of rooms of the given kind.
func (d *Dungeon) CountKind(k RoomKind) int {
	n := 0
	for _, r := range d.graph.Rooms() {
		if r.Kind == k {
			n++
		}
	}
	return n
}

// ValidationError reports degenerate generation input: a programming error
// upstream rather than a runtime player action.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("dungeon: invalid %s: %s", e.Field, e.Reason)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
