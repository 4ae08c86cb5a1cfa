// Package session tracks exploration progress: the per-dungeon Expedition
// state machine and the Manager facade owning the dungeon catalog.
package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/cory-johannsen/delve/internal/game/dungeon"
	"github.com/cory-johannsen/delve/internal/game/reward"
)

// State is an expedition's lifecycle stage.
type State string

// Expedition states.
const (
	StatePlanning   State = "planning"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
)

// Time cost, in game minutes, of each expedition action.
const (
	minutesPerRoom      = 10
	minutesPerDecision  = 2
	minutesPerChallenge = 5
	minutesPerDepth     = 3
)

// maxCurvePoints caps the navigation difficulty curve.
const maxCurvePoints = 5

// Counters are the aggregate progress of an expedition. Every field is
// monotonically non-decreasing.
type Counters struct {
	RoomsExplored          int
	PuzzlesSolved          int
	SecretsFound           int
	HiddenAreasDiscovered  int
	LorePiecesFound        int
	StrategicDecisionsMade int
	BossesDefeated         int
	DepthReached           int
	TimeSpent              int
}

// Discovery is the snapshot returned by a first visit to a room.
type Discovery struct {
	RoomID    string
	Kind      dungeon.RoomKind
	Contents  []string
	Secrets   []string
	Challenge dungeon.Challenge
	Puzzle    dungeon.PuzzleType
	Lore      dungeon.LoreType
	Depth     int
	// Reward is set for treasure and boss rooms.
	Reward *reward.Reward
	// Notes are extra lines contributed by theme scripts.
	Notes []string
}

// Navigation is the outcome of a coarse depth-budget descent.
type Navigation struct {
	DepthReached    int
	DifficultyCurve []float64
	Rewards         []reward.Reward
}

// Expedition is one player's attempt at one dungeon. It holds the dungeon by
// shared pointer and refers to rooms by arena index only.
//
// Expedition is not safe for concurrent use; Manager serializes access.
type Expedition struct {
	id          string
	dungeon     *dungeon.Dungeon
	engine      *reward.Engine
	playerLevel int
	state       State
	counters    Counters
	current     int
	resources   map[string]int
	discoveries []Discovery
	rewards     []reward.Reward
	decisions   []string
	challenges  []dungeon.Challenge
	startedAt   time.Time
}

// NewExpedition creates an expedition in the planning state.
//
// Precondition: d and engine must be non-nil.
func NewExpedition(d *dungeon.Dungeon, playerLevel int, engine *reward.Engine) *Expedition {
	return &Expedition{
		id:          uuid.NewString(),
		dungeon:     d,
		engine:      engine,
		playerLevel: playerLevel,
		state:       StatePlanning,
		resources:   make(map[string]int),
	}
}

// Begin moves the expedition to in_progress at the entrance.
//
// Postcondition: State() == StateInProgress; CurrentRoom() is the entrance id.
func (e *Expedition) Begin(now time.Time) {
	e.state = StateInProgress
	e.current = 0
	e.startedAt = now
}

// ID returns the expedition's unique id.
func (e *Expedition) ID() string { return e.id }

// Dungeon returns the explored dungeon.
func (e *Expedition) Dungeon() *dungeon.Dungeon { return e.dungeon }

// PlayerLevel returns the player level captured at entry.
func (e *Expedition) PlayerLevel() int { return e.playerLevel }

// State returns the lifecycle stage.
func (e *Expedition) State() State { return e.state }

// Counters returns a copy of the progress counters.
func (e *Expedition) Counters() Counters { return e.counters }

// CurrentRoom returns the id of the room the party stands in.
func (e *Expedition) CurrentRoom() string { return e.dungeon.RoomAt(e.current).ID }

// CurrentIndex returns the arena index of the current room.
func (e *Expedition) CurrentIndex() int { return e.current }

// Discoveries returns a copy of the discovery log.
func (e *Expedition) Discoveries() []Discovery { return append([]Discovery(nil), e.discoveries...) }

// Rewards returns a copy of every reward found.
func (e *Expedition) Rewards() []reward.Reward { return append([]reward.Reward(nil), e.rewards...) }

// ExploreRoom visits room i. A room already explored yields (Discovery{}, false)
// and changes nothing.
//
// Precondition: 0 <= i < Dungeon().Size().
// Postcondition: on first visit the room is explored, the party stands in it,
// and counters reflect its contents.
func (e *Expedition) ExploreRoom(i int) (Discovery, bool) {
	if !e.dungeon.MarkExplored(i) {
		return Discovery{}, false
	}
	room := e.dungeon.RoomAt(i)
	e.current = i

	c := &e.counters
	c.RoomsExplored++
	c.TimeSpent += minutesPerRoom
	if room.Puzzle != "" {
		c.PuzzlesSolved++
	}
	c.SecretsFound += len(room.Secrets)
	if room.Kind == dungeon.KindSecret {
		c.HiddenAreasDiscovered++
	}
	if room.Lore != "" {
		c.LorePiecesFound++
	}
	if room.Kind == dungeon.KindBoss {
		c.BossesDefeated++
	}
	c.DepthReached = max(c.DepthReached, room.Depth())

	d := Discovery{
		RoomID:    room.ID,
		Kind:      room.Kind,
		Contents:  append([]string(nil), room.Contents...),
		Secrets:   append([]string(nil), room.Secrets...),
		Challenge: room.Challenge,
		Puzzle:    room.Puzzle,
		Lore:      room.Lore,
		Depth:     room.Depth(),
	}
	if room.Kind == dungeon.KindTreasure || room.Kind == dungeon.KindBoss {
		r := e.engine.RewardFor(room.Depth(), e.dungeon.Level)
		e.rewards = append(e.rewards, r)
		d.Reward = &r
	}
	e.discoveries = append(e.discoveries, d)
	return d, true
}

// annotate appends notes to the most recent discovery of roomID.
func (e *Expedition) annotate(roomID string, notes []string) {
	for i := len(e.discoveries) - 1; i >= 0; i-- {
		if e.discoveries[i].RoomID == roomID {
			e.discoveries[i].Notes = append(e.discoveries[i].Notes, notes...)
			return
		}
	}
}

// MakeStrategicDecision records a decision. It has no effect beyond the
// counter and the decision log.
func (e *Expedition) MakeStrategicDecision(kind string) {
	e.counters.StrategicDecisionsMade++
	e.counters.TimeSpent += minutesPerDecision
	e.decisions = append(e.decisions, kind)
}

// FaceChallenge records facing c.
//
// Postcondition: Returns true the first time c is faced in this expedition.
func (e *Expedition) FaceChallenge(c dungeon.Challenge) bool {
	e.counters.TimeSpent += minutesPerChallenge
	for _, seen := range e.challenges {
		if seen == c {
			return false
		}
	}
	e.challenges = append(e.challenges, c)
	return true
}

// Consume adds n units of resource to the usage ledger.
func (e *Expedition) Consume(resource string, n int) {
	if n > 0 {
		e.resources[resource] += n
	}
}

// Navigate descends up to budget depth without visiting rooms one by one.
//
// Postcondition: DepthReached == min(budget, RoomCount/2), where RoomCount
// excludes the injected special rooms; the curve holds at
// most 5 strictly increasing points; rewards are appended to the expedition.
func (e *Expedition) Navigate(budget int) Navigation {
	depth := min(max(budget, 0), e.dungeon.RoomCount/2)
	e.counters.DepthReached = max(e.counters.DepthReached, depth)
	e.counters.TimeSpent += depth * minutesPerDepth

	nav := Navigation{DepthReached: depth}
	for i := 0; i < depth && len(nav.DifficultyCurve) < maxCurvePoints; i += 2 {
		nav.DifficultyCurve = append(nav.DifficultyCurve, 1.0+(float64(i*2)/10)*0.3)
	}

	nav.Rewards = e.engine.Progressive(depth, e.dungeon.Level)
	if len(nav.Rewards) == 0 && depth > 0 {
		nav.Rewards = []reward.Reward{e.engine.RewardFor(depth, e.dungeon.Level)}
	}
	e.rewards = append(e.rewards, nav.Rewards...)
	return nav
}

// Summary is the read-only snapshot produced when an expedition ends.
type Summary struct {
	ExpeditionID       string
	DungeonID          string
	DungeonName        string
	Theme              dungeon.Theme
	DungeonLevel       int
	PlayerLevel        int
	State              State
	Counters           Counters
	ExploredRooms      int
	TotalRooms         int
	ExploredPercentage float64
	Discoveries        int
	Rewards            []reward.Reward
	ChallengesFaced    []dungeon.Challenge
	Decisions          []string
	Resources          map[string]int
	StartedAt          time.Time
	EndedAt            time.Time
}

// Finish completes the expedition and snapshots it.
//
// Postcondition: State() == StateCompleted; 0 <= ExploredPercentage <= 100.
func (e *Expedition) Finish(now time.Time) Summary {
	e.state = StateCompleted
	explored, total := e.dungeon.ExploredCount(), e.dungeon.Size()
	pct := 0.0
	if total > 0 {
		pct = float64(explored) / float64(total) * 100
	}
	resources := make(map[string]int, len(e.resources))
	for k, v := range e.resources {
		resources[k] = v
	}
	return Summary{
		ExpeditionID:       e.id,
		DungeonID:          e.dungeon.ID,
		DungeonName:        e.dungeon.Name,
		Theme:              e.dungeon.Theme,
		DungeonLevel:       e.dungeon.Level,
		PlayerLevel:        e.playerLevel,
		State:              e.state,
		Counters:           e.counters,
		ExploredRooms:      explored,
		TotalRooms:         total,
		ExploredPercentage: pct,
		Discoveries:        len(e.discoveries),
		Rewards:            e.Rewards(),
		ChallengesFaced:    append([]dungeon.Challenge(nil), e.challenges...),
		Decisions:          append([]string(nil), e.decisions...),
		Resources:          resources,
		StartedAt:          e.startedAt,
		EndedAt:            now,
	}
}
