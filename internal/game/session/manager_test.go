package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/delve/internal/game/dice"
	"github.com/cory-johannsen/delve/internal/game/dungeon"
)

func newManager(t testing.TB, seed uint64, opts ...ManagerOption) *Manager {
	t.Helper()
	logger := zaptest.NewLogger(t)
	src := dice.NewSeededSource(seed)
	return NewManager(dungeon.NewGenerator(src, logger), dice.NewLoggedRoller(src, logger), logger, opts...)
}

func TestManager_InitializeCatalog(t *testing.T) {
	m := newManager(t, 1)
	require.NoError(t, m.InitializeCatalog(context.Background(), len(dungeon.AllThemes)))

	list := m.ListDungeons()
	require.Len(t, list, len(dungeon.AllThemes))
	themes := make(map[dungeon.Theme]bool)
	for i, s := range list {
		assert.Equal(t, fmt.Sprintf("dungeon_%d", i), s.ID)
		assert.False(t, themes[s.Theme], "duplicate theme %s", s.Theme)
		themes[s.Theme] = true
		assert.GreaterOrEqual(t, s.Level, 1)
		assert.LessOrEqual(t, s.Level, MaxPlayerLevel)
		assert.NotEmpty(t, s.Name)
		assert.GreaterOrEqual(t, s.PuzzleCount, 2)
		assert.GreaterOrEqual(t, s.ChallengeCount, 1)
	}
}

func TestManager_InitializeCatalogRejectsBadCount(t *testing.T) {
	m := newManager(t, 2)
	for _, n := range []int{0, -1, len(dungeon.AllThemes) + 1} {
		err := m.InitializeCatalog(context.Background(), n)
		var verr *dungeon.ValidationError
		require.ErrorAs(t, err, &verr, "count %d", n)
		assert.Equal(t, "count", verr.Field)
	}
	assert.Empty(t, m.ListDungeons())
}

func TestManager_InitializeCatalogHonoursContext(t *testing.T) {
	m := newManager(t, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := m.InitializeCatalog(ctx, 5)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestManager_EnterUnknownDungeon(t *testing.T) {
	m := newManager(t, 4)
	_, err := m.Enter("nowhere", 1)
	assert.ErrorIs(t, err, ErrDungeonNotFound)
}

func TestManager_EnterThenEndWithNothingExplored(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := newManager(t, 5, WithClock(func() time.Time { return clock }))
	d := twentyRooms(t, 5)
	m.Register(d)

	enter, err := m.Enter(d.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, d.Entrance().ID, enter.EntranceRoomID)
	assert.Equal(t, StateInProgress, enter.State)
	assert.Equal(t, d.Size(), enter.TotalRooms)
	assert.True(t, m.Active(d.ID))

	s, ok := m.End(d.ID)
	require.True(t, ok)
	assert.Equal(t, Counters{}, s.Counters)
	assert.Equal(t, 0.0, s.ExploredPercentage)
	assert.Equal(t, enter.ExpeditionID, s.ExpeditionID)
	assert.Equal(t, clock, s.StartedAt)
	assert.Equal(t, clock, s.EndedAt)
	assert.False(t, m.Active(d.ID))

	_, ok = m.End(d.ID)
	assert.False(t, ok)
}

func TestManager_EnterReplacesExpedition(t *testing.T) {
	m := newManager(t, 6)
	d := twentyRooms(t, 6)
	m.Register(d)

	first, err := m.Enter(d.ID, 1)
	require.NoError(t, err)
	_, err = m.Explore(d.ID, []Action{ActionStrategicChoice})
	require.NoError(t, err)

	second, err := m.Enter(d.ID, 2)
	require.NoError(t, err)
	assert.NotEqual(t, first.ExpeditionID, second.ExpeditionID)

	s, ok := m.End(d.ID)
	require.True(t, ok)
	assert.Equal(t, second.ExpeditionID, s.ExpeditionID)
	assert.Equal(t, 0, s.Counters.StrategicDecisionsMade)
	assert.Equal(t, 2, s.PlayerLevel)
}

func TestManager_ExploreWithoutExpedition(t *testing.T) {
	m := newManager(t, 7)
	m.Register(twentyRooms(t, 7))
	_, err := m.Explore("dungeon_0", []Action{ActionExploreRoom})
	assert.ErrorIs(t, err, ErrNoActiveExpedition)
	_, err = m.Navigate("dungeon_0", 10)
	assert.ErrorIs(t, err, ErrNoActiveExpedition)
}

func TestManager_ExploreRejectsUnknownAction(t *testing.T) {
	m := newManager(t, 8)
	d := twentyRooms(t, 8)
	m.Register(d)
	_, err := m.Enter(d.ID, 1)
	require.NoError(t, err)

	_, err = m.Explore(d.ID, []Action{ActionExploreRoom, "dance"})
	var verr *dungeon.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "actions[1]", verr.Field)
	assert.Equal(t, 0, d.ExploredCount(), "no action applies when any is invalid")
}

func TestManager_ExploreEveryRoom(t *testing.T) {
	m := newManager(t, 9)
	d := generate(t, 9, dungeon.Params{
		ID: "dungeon_maze", Theme: dungeon.ThemeHauntedCrypt, PlayerLevel: 3,
		RoomCount: 30, Layout: dungeon.LayoutMaze,
	})
	m.Register(d)
	_, err := m.Enter(d.ID, 3)
	require.NoError(t, err)

	actions := make([]Action, d.Size()+3)
	for i := range actions {
		actions[i] = ActionExploreRoom
	}
	res, err := m.Explore(d.ID, actions)
	require.NoError(t, err)
	assert.Equal(t, d.Size(), res.RoomsExplored)
	assert.Len(t, res.Discoveries, d.Size())
	assert.Equal(t, 1, res.BossesDefeated)
	assert.GreaterOrEqual(t, len(res.Rewards), 2, "boss and at least one treasure room")

	s, ok := m.End(d.ID)
	require.True(t, ok)
	assert.Equal(t, 100.0, s.ExploredPercentage)
}

func TestManager_ExploredFlagsPersistAcrossExpeditions(t *testing.T) {
	m := newManager(t, 10)
	d := twentyRooms(t, 10)
	m.Register(d)

	_, err := m.Enter(d.ID, 1)
	require.NoError(t, err)
	res, err := m.Explore(d.ID, []Action{ActionExploreRoom, ActionExploreRoom})
	require.NoError(t, err)
	assert.Equal(t, 2, res.RoomsExplored)
	m.End(d.ID)

	_, err = m.Enter(d.ID, 1)
	require.NoError(t, err)
	s, ok := m.End(d.ID)
	require.True(t, ok)
	assert.Equal(t, 2, s.ExploredRooms)
	assert.Equal(t, 0, s.Counters.RoomsExplored)
}

func TestManager_FaceChallengeDedupes(t *testing.T) {
	m := newManager(t, 11)
	d := twentyRooms(t, 11)
	m.Register(d)
	_, err := m.Enter(d.ID, 1)
	require.NoError(t, err)

	res, err := m.Explore(d.ID, []Action{ActionFaceChallenge, ActionFaceChallenge, ActionFaceChallenge, ActionStrategicChoice})
	require.NoError(t, err)
	require.NotEmpty(t, res.ChallengesFaced)
	seen := make(map[dungeon.Challenge]bool)
	for _, c := range res.ChallengesFaced {
		assert.False(t, seen[c])
		seen[c] = true
		assert.Contains(t, append(append([]dungeon.Challenge(nil), d.Challenges...), roomChallenges(d)...), c)
	}
	assert.Equal(t, 1, res.StrategicDecisions)
}

func roomChallenges(d *dungeon.Dungeon) []dungeon.Challenge {
	var out []dungeon.Challenge
	for _, r := range d.Rooms() {
		if r.Challenge != "" {
			out = append(out, r.Challenge)
		}
	}
	return out
}

func TestManager_NavigateTwentyRoomDungeon(t *testing.T) {
	m := newManager(t, 12)
	d := twentyRooms(t, 12)
	m.Register(d)
	_, err := m.Enter(d.ID, 5)
	require.NoError(t, err)

	res, err := m.Navigate(d.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, res.DepthReached)
	assert.Len(t, res.DifficultyCurve, 5)
	assert.Len(t, res.Rewards, 2)
	assert.LessOrEqual(t, res.Resources[ResourceHealthPotions], 3)
	assert.LessOrEqual(t, res.Resources[ResourceManaPotions], 2)
	assert.LessOrEqual(t, res.Resources[ResourceSpecialItems], 1)
	for _, v := range res.Resources {
		assert.GreaterOrEqual(t, v, 0)
	}

	s, ok := m.End(d.ID)
	require.True(t, ok)
	assert.Equal(t, 10, s.Counters.DepthReached)
	assert.Len(t, s.Rewards, 2)
}

func TestManager_ExploreHookAddsNotes(t *testing.T) {
	var themes []dungeon.Theme
	hook := func(theme dungeon.Theme, d Discovery) []string {
		themes = append(themes, theme)
		return []string{"note for " + d.RoomID}
	}
	m := newManager(t, 13, WithExploreHook(hook))
	d := twentyRooms(t, 13)
	m.Register(d)
	_, err := m.Enter(d.ID, 1)
	require.NoError(t, err)

	res, err := m.Explore(d.ID, []Action{ActionExploreRoom})
	require.NoError(t, err)
	require.Len(t, res.Discoveries, 1)
	assert.Equal(t, []string{"note for " + d.Entrance().ID}, res.Discoveries[0].Notes)
	assert.Equal(t, []dungeon.Theme{dungeon.ThemeAncientTemple}, themes)
}

func TestManager_LogsLifecycle(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)
	src := dice.NewSeededSource(14)
	m := NewManager(dungeon.NewGenerator(src, logger), dice.NewLoggedRoller(src, logger), logger)
	d := twentyRooms(t, 14)
	m.Register(d)

	_, err := m.Enter(d.ID, 1)
	require.NoError(t, err)
	m.End(d.ID)

	assert.Equal(t, 1, logs.FilterMessage("expedition started").Len())
	ended := logs.FilterMessage("expedition ended").All()
	require.Len(t, ended, 1)
	assert.Equal(t, d.ID, ended[0].ContextMap()["dungeon_id"])
}

func TestManager_ConcurrentAccess(t *testing.T) {
	m := newManager(t, 15)
	require.NoError(t, m.InitializeCatalog(context.Background(), 8))
	list := m.ListDungeons()

	var wg sync.WaitGroup
	for _, s := range list {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for i := 0; i < 5; i++ {
				if _, err := m.Enter(id, 1); err != nil {
					t.Error(err)
					return
				}
				if _, err := m.Explore(id, []Action{ActionExploreRoom, ActionFaceChallenge}); err != nil && !errors.Is(err, ErrNoActiveExpedition) {
					t.Error(err)
				}
				_, _ = m.Navigate(id, 5)
				m.End(id)
			}
		}(s.ID)
	}
	wg.Wait()
	for _, s := range list {
		assert.False(t, m.Active(s.ID))
	}
}

func TestNewManager_NilArgumentsPanic(t *testing.T) {
	logger := zaptest.NewLogger(t)
	src := dice.NewSeededSource(1)
	gen := dungeon.NewGenerator(src, logger)
	roller := dice.NewLoggedRoller(src, logger)
	assert.Panics(t, func() { NewManager(nil, roller, logger) })
	assert.Panics(t, func() { NewManager(gen, nil, logger) })
	assert.Panics(t, func() { NewManager(gen, roller, nil) })
}
