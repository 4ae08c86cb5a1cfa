package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/delve/internal/game/dice"
	"github.com/cory-johannsen/delve/internal/game/dungeon"
	"github.com/cory-johannsen/delve/internal/game/reward"
)

var (
	// ErrDungeonNotFound is returned when a dungeon id is not in the catalog.
	ErrDungeonNotFound = errors.New("dungeon not found")
	// ErrNoActiveExpedition is returned when a dungeon has no running expedition.
	ErrNoActiveExpedition = errors.New("no active expedition")
)

// Action is one step requested by Explore.
type Action string

// Explore actions.
const (
	ActionExploreRoom     Action = "explore_room"
	ActionStrategicChoice Action = "make_strategic_choice"
	ActionFaceChallenge   Action = "face_challenge"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionExploreRoom, ActionStrategicChoice, ActionFaceChallenge:
		return true
	}
	return false
}

// StrategicChoices are the decisions make_strategic_choice draws from.
var StrategicChoices = []string{"scout_ahead", "conserve_resources", "take_shortcut", "rest", "study_lore"}

// Resource names reported by Navigate.
const (
	ResourceHealthPotions = "health_potions"
	ResourceManaPotions   = "mana_potions"
	ResourceSpecialItems  = "special_items"
)

var (
	healthPotionDraw = dice.MustParse("1d4-1")
	manaPotionDraw   = dice.MustParse("1d3-1")
	specialItemDraw  = dice.MustParse("1d2-1")
)

// MaxPlayerLevel bounds the random catalog dungeon level.
const MaxPlayerLevel = 50

// DungeonSummary describes one catalog entry.
type DungeonSummary struct {
	ID             string
	Name           string
	Theme          dungeon.Theme
	Level          int
	RoomCount      int
	Layout         dungeon.LayoutKind
	PuzzleCount    int
	ChallengeCount int
	Secrets        int
	HiddenAreas    int
	LoreElements   int
}

// EnterSummary describes a freshly started expedition.
type EnterSummary struct {
	ExpeditionID   string
	DungeonID      string
	DungeonName    string
	Theme          dungeon.Theme
	DungeonLevel   int
	PlayerLevel    int
	Layout         dungeon.LayoutKind
	TotalRooms     int
	EntranceRoomID string
	State          State
}

// ExploreResult aggregates the counters gained by one Explore call.
type ExploreResult struct {
	RoomsExplored         int
	PuzzlesSolved         int
	SecretsFound          int
	HiddenAreasDiscovered int
	LorePiecesFound       int
	StrategicDecisions    int
	BossesDefeated        int
	ChallengesFaced       []dungeon.Challenge
	Discoveries           []Discovery
	Rewards               []reward.Reward
	CurrentRoom           string
}

// NavigateResult is the outcome of Navigate.
type NavigateResult struct {
	DepthReached    int
	DifficultyCurve []float64
	Rewards         []reward.Reward
	Resources       map[string]int
}

// ExploreHook contributes notes to a discovery. It is called with the
// manager's lock held and must not call back into the Manager.
type ExploreHook func(theme dungeon.Theme, d Discovery) []string

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithExploreHook installs a hook run on every first room visit.
func WithExploreHook(h ExploreHook) ManagerOption {
	return func(m *Manager) { m.hook = h }
}

// WithClock replaces time.Now for expedition timestamps.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// Manager owns the dungeon catalog and the active expedition per dungeon.
// All methods are safe for concurrent use.
type Manager struct {
	mu      sync.Mutex
	gen     *dungeon.Generator
	roller  *dice.Roller
	rewards *reward.Engine
	logger  *zap.Logger
	hook    ExploreHook
	now     func() time.Time

	catalog map[string]*dungeon.Dungeon
	order   []string
	active  map[string]*Expedition
}

// NewManager creates an empty Manager.
//
// Precondition: gen, roller, and logger must be non-nil.
func NewManager(gen *dungeon.Generator, roller *dice.Roller, logger *zap.Logger, opts ...ManagerOption) *Manager {
	if gen == nil {
		panic("session: NewManager requires a non-nil Generator")
	}
	if roller == nil {
		panic("session: NewManager requires a non-nil Roller")
	}
	if logger == nil {
		panic("session: NewManager requires a non-nil logger")
	}
	m := &Manager{
		gen:     gen,
		roller:  roller,
		rewards: reward.NewEngine(roller.Source()),
		logger:  logger,
		now:     time.Now,
		catalog: make(map[string]*dungeon.Dungeon),
		active:  make(map[string]*Expedition),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// InitializeCatalog replaces the catalog with count dungeons, one per distinct
// theme, each at a random level in [1, 50]. Active expeditions are dropped.
//
// Precondition: 1 <= count <= len(dungeon.AllThemes).
// Postcondition: ListDungeons() has exactly count entries with unique themes.
func (m *Manager) InitializeCatalog(ctx context.Context, count int) error {
	if count < 1 || count > len(dungeon.AllThemes) {
		return &dungeon.ValidationError{
			Field:  "count",
			Reason: fmt.Sprintf("must be in [1, %d], got %d", len(dungeon.AllThemes), count),
		}
	}
	src := m.roller.Source()
	themes := slices.Clone(dungeon.AllThemes)
	dice.Shuffle(src, themes)

	catalog := make(map[string]*dungeon.Dungeon, count)
	order := make([]string, 0, count)
	for i, theme := range themes[:count] {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("initializing catalog: %w", err)
		}
		id := fmt.Sprintf("dungeon_%d", i)
		d, err := m.gen.Generate(ctx, id, theme, dice.Between(src, 1, MaxPlayerLevel))
		if err != nil {
			return fmt.Errorf("generating %s: %w", id, err)
		}
		catalog[id] = d
		order = append(order, id)
	}

	m.mu.Lock()
	m.catalog = catalog
	m.order = order
	m.active = make(map[string]*Expedition)
	m.mu.Unlock()

	m.logger.Info("dungeon catalog initialized", zap.Int("count", count))
	return nil
}

// Register adds d to the catalog, replacing any dungeon with the same id.
//
// Precondition: d must be non-nil.
func (m *Manager) Register(d *dungeon.Dungeon) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.catalog[d.ID]; !ok {
		m.order = append(m.order, d.ID)
	}
	m.catalog[d.ID] = d
	delete(m.active, d.ID)
}

// ListDungeons returns summaries in catalog order.
func (m *Manager) ListDungeons() []DungeonSummary {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]DungeonSummary, 0, len(m.order))
	for _, id := range m.order {
		d := m.catalog[id]
		out = append(out, DungeonSummary{
			ID:             d.ID,
			Name:           d.Name,
			Theme:          d.Theme,
			Level:          d.Level,
			RoomCount:      d.Size(),
			Layout:         d.Layout,
			PuzzleCount:    len(d.Puzzles),
			ChallengeCount: len(d.Challenges),
			Secrets:        d.Secrets,
			HiddenAreas:    d.HiddenAreas,
			LoreElements:   d.LoreElements,
		})
	}
	return out
}

// Enter starts an expedition, replacing any running one for the dungeon.
//
// Postcondition: Returns ErrDungeonNotFound when id is not in the catalog.
func (m *Manager) Enter(id string, playerLevel int) (EnterSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.catalog[id]
	if !ok {
		return EnterSummary{}, fmt.Errorf("entering %q: %w", id, ErrDungeonNotFound)
	}
	if prev, ok := m.active[id]; ok {
		m.logger.Info("replacing active expedition",
			zap.String("dungeon_id", id),
			zap.String("expedition_id", prev.ID()),
		)
	}
	e := NewExpedition(d, playerLevel, m.rewards)
	e.Begin(m.now())
	m.active[id] = e

	m.logger.Info("expedition started",
		zap.String("dungeon_id", id),
		zap.String("expedition_id", e.ID()),
		zap.Int("player_level", playerLevel),
	)
	return EnterSummary{
		ExpeditionID:   e.ID(),
		DungeonID:      d.ID,
		DungeonName:    d.Name,
		Theme:          d.Theme,
		DungeonLevel:   d.Level,
		PlayerLevel:    playerLevel,
		Layout:         d.Layout,
		TotalRooms:     d.Size(),
		EntranceRoomID: d.Entrance().ID,
		State:          e.State(),
	}, nil
}

// Explore applies actions in order to the dungeon's active expedition.
//
// Precondition: every action must be Valid; otherwise nothing is applied.
// Postcondition: Returns ErrNoActiveExpedition when the dungeon has none.
func (m *Manager) Explore(id string, actions []Action) (ExploreResult, error) {
	for i, a := range actions {
		if !a.Valid() {
			return ExploreResult{}, &dungeon.ValidationError{
				Field:  fmt.Sprintf("actions[%d]", i),
				Reason: fmt.Sprintf("unknown action %q", a),
			}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.active[id]
	if !ok {
		return ExploreResult{}, fmt.Errorf("exploring %q: %w", id, ErrNoActiveExpedition)
	}

	src := m.roller.Source()
	before := e.Counters()
	var res ExploreResult
	for _, a := range actions {
		switch a {
		case ActionExploreRoom:
			next, ok := nextRoom(e, src)
			if !ok {
				continue
			}
			disc, ok := e.ExploreRoom(next)
			if !ok {
				continue
			}
			if m.hook != nil {
				if notes := m.hook(e.Dungeon().Theme, disc); len(notes) > 0 {
					e.annotate(disc.RoomID, notes)
					disc.Notes = append(disc.Notes, notes...)
				}
			}
			res.Discoveries = append(res.Discoveries, disc)
			if disc.Reward != nil {
				res.Rewards = append(res.Rewards, *disc.Reward)
			}
		case ActionStrategicChoice:
			e.MakeStrategicDecision(dice.Pick(src, StrategicChoices))
		case ActionFaceChallenge:
			c, ok := pickChallenge(e, src)
			if !ok {
				continue
			}
			e.FaceChallenge(c)
			if !slices.Contains(res.ChallengesFaced, c) {
				res.ChallengesFaced = append(res.ChallengesFaced, c)
			}
		}
	}

	after := e.Counters()
	res.RoomsExplored = after.RoomsExplored - before.RoomsExplored
	res.PuzzlesSolved = after.PuzzlesSolved - before.PuzzlesSolved
	res.SecretsFound = after.SecretsFound - before.SecretsFound
	res.HiddenAreasDiscovered = after.HiddenAreasDiscovered - before.HiddenAreasDiscovered
	res.LorePiecesFound = after.LorePiecesFound - before.LorePiecesFound
	res.StrategicDecisions = after.StrategicDecisionsMade - before.StrategicDecisionsMade
	res.BossesDefeated = after.BossesDefeated - before.BossesDefeated
	res.CurrentRoom = e.CurrentRoom()

	m.logger.Debug("expedition explored",
		zap.String("dungeon_id", id),
		zap.Int("actions", len(actions)),
		zap.Int("rooms_explored", res.RoomsExplored),
		zap.String("current_room", res.CurrentRoom),
	)
	return res, nil
}

// nextRoom picks an unexplored neighbour of the current room, or failing that
// the nearest unexplored room by graph distance.
func nextRoom(e *Expedition, src dice.Source) (int, bool) {
	d := e.Dungeon()
	cur := e.CurrentIndex()
	if !d.RoomAt(cur).Explored {
		return cur, true
	}
	var open []int
	for _, n := range d.Neighbors(cur) {
		if !d.RoomAt(n).Explored {
			open = append(open, n)
		}
	}
	if len(open) > 0 {
		return dice.Pick(src, open), true
	}
	path := d.Graph().PathTo(cur, func(i int) bool { return !d.RoomAt(i).Explored })
	if len(path) == 0 {
		return 0, false
	}
	return path[len(path)-1], true
}

// pickChallenge prefers the current room's hazard over the dungeon's list.
func pickChallenge(e *Expedition, src dice.Source) (dungeon.Challenge, bool) {
	d := e.Dungeon()
	if c := d.RoomAt(e.CurrentIndex()).Challenge; c != "" {
		return c, true
	}
	if len(d.Challenges) == 0 {
		return "", false
	}
	return dice.Pick(src, d.Challenges), true
}

// Navigate descends up to depth on the dungeon's active expedition.
//
// Postcondition: Returns ErrNoActiveExpedition when the dungeon has none;
// resource draws are each clamped at zero.
func (m *Manager) Navigate(id string, depth int) (NavigateResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.active[id]
	if !ok {
		return NavigateResult{}, fmt.Errorf("navigating %q: %w", id, ErrNoActiveExpedition)
	}
	nav := e.Navigate(depth)
	resources := map[string]int{
		ResourceHealthPotions: m.roller.RollAtLeastZero(healthPotionDraw),
		ResourceManaPotions:   m.roller.RollAtLeastZero(manaPotionDraw),
		ResourceSpecialItems:  m.roller.RollAtLeastZero(specialItemDraw),
	}
	for k, v := range resources {
		e.Consume(k, v)
	}
	m.logger.Debug("expedition navigated",
		zap.String("dungeon_id", id),
		zap.Int("depth_reached", nav.DepthReached),
		zap.Int("rewards", len(nav.Rewards)),
	)
	return NavigateResult{
		DepthReached:    nav.DepthReached,
		DifficultyCurve: nav.DifficultyCurve,
		Rewards:         nav.Rewards,
		Resources:       resources,
	}, nil
}

// End completes and removes the dungeon's active expedition.
//
// Postcondition: Returns (Summary{}, false) when the dungeon has none.
func (m *Manager) End(id string) (Summary, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.active[id]
	if !ok {
		return Summary{}, false
	}
	delete(m.active, id)
	s := e.Finish(m.now())
	m.logger.Info("expedition ended",
		zap.String("dungeon_id", id),
		zap.String("expedition_id", s.ExpeditionID),
		zap.Int("rooms_explored", s.Counters.RoomsExplored),
		zap.Float64("explored_percentage", s.ExploredPercentage),
	)
	return s, true
}

// Active reports whether the dungeon has a running expedition.
func (m *Manager) Active(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.active[id]
	return ok
}
