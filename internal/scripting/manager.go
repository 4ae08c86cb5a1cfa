package scripting

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/delve/internal/game/dice"
)

// globalKey is the reserved key for shared scripts loaded via LoadGlobal.
// CallHook falls back to this VM when no theme VM is found.
const globalKey = "__global__"

// globalDir is the directory under a script root that LoadThemesFromDir
// loads into the global VM.
const globalDir = "_global"

// RoomExploredHook is the Lua global called on a first room visit.
const RoomExploredHook = "on_room_explored"

// RoomInfo is a snapshot of an explored room passed to Lua callbacks.
type RoomInfo struct {
	ID        string
	Kind      string
	Depth     int
	Puzzle    string
	Challenge string
	Lore      string
	Secrets   []string
}

type vm struct {
	mu     sync.Mutex
	L      *lua.LState
	limit  int
	closed bool
}

func (v *vm) close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.closed {
		v.closed = true
		v.L.Close()
	}
}

// Manager owns one sandboxed LState per theme and exposes hook dispatch.
//
// Manager is safe for concurrent use. Each LState is single-threaded; a
// per-VM lock serializes calls into the same theme while different themes
// run concurrently.
type Manager struct {
	mu     sync.RWMutex
	vms    map[string]*vm
	roller *dice.Roller
	logger *zap.Logger
}

// NewManager creates a Manager.
//
// Precondition: roller and logger must be non-nil.
// Postcondition: Returns a non-nil Manager with an empty theme map.
func NewManager(roller *dice.Roller, logger *zap.Logger) *Manager {
	if roller == nil {
		panic("scripting: NewManager requires a non-nil Roller")
	}
	if logger == nil {
		panic("scripting: NewManager requires a non-nil logger")
	}
	return &Manager{
		vms:    make(map[string]*vm),
		roller: roller,
		logger: logger,
	}
}

// LoadTheme creates a sandboxed VM for theme, registers the delve.* module,
// then executes every *.lua file in scriptDir in lexicographic order.
//
// Precondition: theme must be non-empty; scriptDir must be a readable directory.
// Postcondition: Theme VM is registered; returns error on Lua load failure.
func (m *Manager) LoadTheme(theme, scriptDir string, instLimit int) error {
	if theme == "" {
		return errors.New("scripting: theme must not be empty")
	}
	return m.loadInto(theme, scriptDir, instLimit)
}

// LoadGlobal creates the fallback VM consulted for themes without scripts.
//
// Precondition: scriptDir must be a readable directory.
func (m *Manager) LoadGlobal(scriptDir string, instLimit int) error {
	return m.loadInto(globalKey, scriptDir, instLimit)
}

// LoadThemesFromDir loads every subdirectory of root as a theme named after
// the directory; the "_global" subdirectory becomes the fallback VM.
//
// Postcondition: Returns the number of VMs loaded, or the first load error.
func (m *Manager) LoadThemesFromDir(root string, instLimit int) (int, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return 0, fmt.Errorf("scripting: reading script root %q: %w", root, err)
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(root, e.Name())
		if e.Name() == globalDir {
			err = m.LoadGlobal(dir, instLimit)
		} else {
			err = m.LoadTheme(e.Name(), dir, instLimit)
		}
		if err != nil {
			return n, err
		}
		n++
	}
	m.logger.Info("theme scripts loaded", zap.String("root", root), zap.Int("count", n))
	return n, nil
}

func (m *Manager) loadInto(key, scriptDir string, instLimit int) error {
	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q for %q: %w", scriptDir, key, err)
	}
	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	L, release := NewSandboxedState(instLimit)
	m.RegisterModules(L)
	for _, path := range luaFiles {
		if err := L.DoFile(path); err != nil {
			release()
			L.Close()
			return fmt.Errorf("scripting: loading %q for %q: %w", path, key, err)
		}
	}
	release()

	m.mu.Lock()
	old := m.vms[key]
	m.vms[key] = &vm{L: L, limit: instLimit}
	m.mu.Unlock()

	if old != nil {
		old.close()
	}
	return nil
}

// Themes returns the loaded theme keys in sorted order, excluding the global VM.
func (m *Manager) Themes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.vms))
	for k := range m.vms {
		if k != globalKey {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func (m *Manager) lookup(theme string) *vm {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.vms[theme]; ok {
		return v
	}
	return m.vms[globalKey]
}

// call runs hook in theme's VM under its lock. build constructs arguments in
// that VM and read consumes the return value before the lock is released.
func (m *Manager) call(theme, hook string, build func(L *lua.LState) []lua.LValue, read func(ret lua.LValue)) {
	v := m.lookup(theme)
	if v == nil {
		m.logger.Debug("scripting: no VM for theme",
			zap.String("theme", theme),
			zap.String("hook", hook),
		)
		return
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	fn := v.L.GetGlobal(hook)
	if fn == lua.LNil {
		return
	}

	var args []lua.LValue
	if build != nil {
		args = build(v.L)
	}
	release := arm(v.L, v.limit)
	defer release()
	if err := v.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...); err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("theme", theme),
			zap.String("hook", hook),
			zap.Error(err),
		)
		return
	}
	ret := v.L.Get(-1)
	v.L.Pop(1)
	if read != nil {
		read(ret)
	}
}

// CallHook calls the named Lua global function in theme's VM. If the theme
// has no VM, the global VM is tried as a fallback. Returns LNil when the hook
// is not defined or no VM exists. Lua runtime errors, including an exhausted
// instruction budget, are logged at Warn level and never propagated.
//
// Precondition: args must be scalar lua.LValue instances (numbers, strings,
// booleans); tables belong to a single LState.
// Postcondition: Returns the first return value of the hook, or LNil.
func (m *Manager) CallHook(theme, hook string, args ...lua.LValue) lua.LValue {
	var out lua.LValue = lua.LNil
	m.call(theme, hook,
		func(*lua.LState) []lua.LValue { return args },
		func(ret lua.LValue) { out = ret },
	)
	return out
}

// RoomNotes runs on_room_explored(room) for theme and returns the notes it
// produced: a single string or an array of strings. Anything else yields nil.
func (m *Manager) RoomNotes(theme string, info RoomInfo) []string {
	var notes []string
	m.call(theme, RoomExploredHook,
		func(L *lua.LState) []lua.LValue { return []lua.LValue{roomTable(L, theme, info)} },
		func(ret lua.LValue) { notes = toNotes(ret) },
	)
	return notes
}

func roomTable(L *lua.LState, theme string, info RoomInfo) *lua.LTable {
	t := L.NewTable()
	L.SetField(t, "id", lua.LString(info.ID))
	L.SetField(t, "kind", lua.LString(info.Kind))
	L.SetField(t, "theme", lua.LString(theme))
	L.SetField(t, "depth", lua.LNumber(info.Depth))
	L.SetField(t, "puzzle", lua.LString(info.Puzzle))
	L.SetField(t, "challenge", lua.LString(info.Challenge))
	L.SetField(t, "lore", lua.LString(info.Lore))
	secrets := L.NewTable()
	for _, s := range info.Secrets {
		secrets.Append(lua.LString(s))
	}
	L.SetField(t, "secrets", secrets)
	return t
}

func toNotes(v lua.LValue) []string {
	switch val := v.(type) {
	case lua.LString:
		if val == "" {
			return nil
		}
		return []string{string(val)}
	case *lua.LTable:
		var out []string
		for i := 1; i <= val.Len(); i++ {
			if s, ok := val.RawGetInt(i).(lua.LString); ok && s != "" {
				out = append(out, string(s))
			}
		}
		return out
	}
	return nil
}

// Close releases every VM. Subsequent calls find no VM.
func (m *Manager) Close() {
	m.mu.Lock()
	vms := m.vms
	m.vms = make(map[string]*vm)
	m.mu.Unlock()
	for _, v := range vms {
		v.close()
	}
}
