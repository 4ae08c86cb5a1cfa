package scripting_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/delve/internal/game/dice"
	"github.com/cory-johannsen/delve/internal/scripting"
)

func newTestManager(t testing.TB) (*scripting.Manager, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)
	roller := dice.NewLoggedRoller(dice.NewSeededSource(1), logger)
	return scripting.NewManager(roller, logger), logs
}

func writeTempLua(t testing.TB, filename, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), []byte(src), 0644))
	return dir
}

func TestManager_LoadTheme_CallsHook(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := writeTempLua(t, "hooks.lua", `
		function test_hook(a, b)
			return a + b
		end
	`)
	require.NoError(t, mgr.LoadTheme("haunted_crypt", dir, 0))
	assert.Equal(t, lua.LNumber(7), mgr.CallHook("haunted_crypt", "test_hook", lua.LNumber(3), lua.LNumber(4)))
	assert.Equal(t, []string{"haunted_crypt"}, mgr.Themes())
}

func TestManager_LoadTheme_RejectsEmptyTheme(t *testing.T) {
	mgr, _ := newTestManager(t)
	assert.Error(t, mgr.LoadTheme("", t.TempDir(), 0))
}

func TestManager_CallHook_MissingHook_NoOp(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := writeTempLua(t, "empty.lua", `-- no functions`)
	require.NoError(t, mgr.LoadTheme("frozen_citadel", dir, 0))
	assert.Equal(t, lua.LNil, mgr.CallHook("frozen_citadel", "nonexistent_hook"))
}

func TestManager_CallHook_UnknownTheme_LogsDebug(t *testing.T) {
	mgr, logs := newTestManager(t)
	assert.Equal(t, lua.LNil, mgr.CallHook("no_such_theme", "some_hook"))
	assert.Equal(t, 1, logs.FilterMessage("scripting: no VM for theme").Len())
}

func TestManager_CallHook_RuntimeError_WarnLogNoPanic(t *testing.T) {
	mgr, logs := newTestManager(t)
	dir := writeTempLua(t, "bad.lua", `
		function bad_hook()
			error("intentional error")
		end
	`)
	require.NoError(t, mgr.LoadTheme("sunken_city", dir, 0))
	assert.Equal(t, lua.LNil, mgr.CallHook("sunken_city", "bad_hook"))
	assert.Equal(t, 1, logs.FilterLevelExact(zap.WarnLevel).Len())
}

func TestManager_CallHook_BudgetIsPerCall(t *testing.T) {
	mgr, logs := newTestManager(t)
	dir := writeTempLua(t, "loop.lua", `
		function spin() while true do end end
		function ok() return 1 end
	`)
	require.NoError(t, mgr.LoadTheme("clockwork_tower", dir, 100))
	assert.Equal(t, lua.LNil, mgr.CallHook("clockwork_tower", "spin"))
	assert.Equal(t, 1, logs.FilterLevelExact(zap.WarnLevel).Len())
	assert.Equal(t, lua.LNumber(1), mgr.CallHook("clockwork_tower", "ok"))
}

func TestManager_LoadGlobal_CallHookFallback(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := writeTempLua(t, "global.lua", `
		function global_hook()
			return 42
		end
	`)
	require.NoError(t, mgr.LoadGlobal(dir, 0))
	assert.Equal(t, lua.LNumber(42), mgr.CallHook("unknown_theme", "global_hook"))
	assert.Empty(t, mgr.Themes())
}

func TestManager_LoadTheme_InvalidLua_ReturnsError(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := writeTempLua(t, "bad.lua", `this is not valid lua @@@@`)
	assert.Error(t, mgr.LoadTheme("bad", dir, 0))
	assert.Empty(t, mgr.Themes())
}

func TestManager_LoadTheme_MultipleFiles_OrderedByName(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.lua"), []byte(`base_val = 10`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.lua"), []byte(`
		function get_val() return base_val end
	`), 0644))
	require.NoError(t, mgr.LoadTheme("ordered", dir, 0))
	assert.Equal(t, lua.LNumber(10), mgr.CallHook("ordered", "get_val"))
}

func TestManager_LoadTheme_ReplacesVM(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadTheme("t", writeTempLua(t, "a.lua", `function v() return 1 end`), 0))
	require.NoError(t, mgr.LoadTheme("t", writeTempLua(t, "a.lua", `function v() return 2 end`), 0))
	assert.Equal(t, lua.LNumber(2), mgr.CallHook("t", "v"))
}

func TestManager_LoadThemesFromDir(t *testing.T) {
	mgr, _ := newTestManager(t)
	root := t.TempDir()
	for dir, src := range map[string]string{
		"haunted_crypt": `function on_room_explored(room) return "cold air in " .. room.id end`,
		"_global":       `function on_room_explored(room) return { "depth " .. room.depth, "kind " .. room.kind } end`,
	} {
		require.NoError(t, os.Mkdir(filepath.Join(root, dir), 0755))
		require.NoError(t, os.WriteFile(filepath.Join(root, dir, "hooks.lua"), []byte(src), 0644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "README"), []byte("ignored"), 0644))

	n, err := mgr.LoadThemesFromDir(root, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"haunted_crypt"}, mgr.Themes())

	room := scripting.RoomInfo{ID: "d_room_3", Kind: "chamber", Depth: 4}
	assert.Equal(t, []string{"cold air in d_room_3"}, mgr.RoomNotes("haunted_crypt", room))
	assert.Equal(t, []string{"depth 4", "kind chamber"}, mgr.RoomNotes("ancient_temple", room))
}

func TestManager_LoadThemesFromDir_MissingRoot(t *testing.T) {
	mgr, _ := newTestManager(t)
	_, err := mgr.LoadThemesFromDir(filepath.Join(t.TempDir(), "absent"), 0)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestManager_RoomNotes_SeesRoomFields(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := writeTempLua(t, "hooks.lua", `
		function on_room_explored(room)
			if #room.secrets == 0 then return nil end
			return room.theme .. ":" .. room.secrets[1] .. ":" .. room.puzzle
		end
	`)
	require.NoError(t, mgr.LoadTheme("dragon_lair", dir, 0))
	assert.Nil(t, mgr.RoomNotes("dragon_lair", scripting.RoomInfo{ID: "r"}))
	assert.Equal(t, []string{"dragon_lair:hidden_lever:riddle"}, mgr.RoomNotes("dragon_lair", scripting.RoomInfo{
		ID: "r", Puzzle: "riddle", Secrets: []string{"hidden_lever"},
	}))
}

func TestManager_DelveModule(t *testing.T) {
	mgr, logs := newTestManager(t)
	dir := writeTempLua(t, "hooks.lua", `
		function roll_it()
			delve.log("rolling")
			return delve.roll("1d2+3")
		end
		function bad_roll()
			return delve.roll("banana")
		end
		function huge_roll()
			return delve.roll("1000000000d6")
		end
	`)
	require.NoError(t, mgr.LoadTheme("mine", dir, 0))
	got := mgr.CallHook("mine", "roll_it")
	assert.Contains(t, []lua.LValue{lua.LNumber(4), lua.LNumber(5)}, got)
	assert.Equal(t, 1, logs.FilterMessage("lua").Len())
	assert.Equal(t, lua.LNil, mgr.CallHook("mine", "bad_roll"))
	assert.Equal(t, lua.LNil, mgr.CallHook("mine", "huge_roll"))
}

func TestProperty_CallHookMissingThemeNeverPanics(t *testing.T) {
	mgr, _ := newTestManager(t)
	rapid.Check(t, func(rt *rapid.T) {
		theme := rapid.StringMatching(`[a-z]{1,10}`).Draw(rt, "theme")
		hook := rapid.StringMatching(`[a-z]{1,10}`).Draw(rt, "hook")
		assert.Equal(rt, lua.LNil, mgr.CallHook(theme, hook))
	})
}

func TestManager_CallHookConcurrentSameTheme(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := writeTempLua(t, "hooks.lua", `
		function concurrent_hook(a, b)
			return a + b
		end
	`)
	require.NoError(t, mgr.LoadTheme("conc", dir, 0))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				assert.Equal(t, lua.LNumber(3), mgr.CallHook("conc", "concurrent_hook", lua.LNumber(1), lua.LNumber(2)))
			}
		}()
	}
	wg.Wait()
}

func TestNewManager_PanicsOnNilArguments(t *testing.T) {
	roller := dice.NewLoggedRoller(dice.NewSeededSource(1), zap.NewNop())
	assert.Panics(t, func() { scripting.NewManager(nil, zap.NewNop()) })
	assert.Panics(t, func() { scripting.NewManager(roller, nil) })
}

func TestManager_Close_ReleasesThemes(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadTheme("closing", writeTempLua(t, "init.lua", `function get_x() return 1 end`), 0))
	mgr.Close()
	assert.Equal(t, lua.LNil, mgr.CallHook("closing", "get_x"))
	assert.Empty(t, mgr.Themes())
}
