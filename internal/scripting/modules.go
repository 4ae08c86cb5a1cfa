package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/delve/internal/game/dice"
)

// RegisterModules registers the delve.* Lua table into L:
//
//	delve.roll(expr)  -> total of a dice expression such as "2d6+1"
//	delve.log(msg)    -> writes msg to the server log at info level
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: delve global is defined in L.
func (m *Manager) RegisterModules(L *lua.LState) {
	mod := L.NewTable()
	L.SetField(mod, "roll", L.NewFunction(m.luaRoll))
	L.SetField(mod, "log", L.NewFunction(m.luaLog))
	L.SetGlobal("delve", mod)
}

func (m *Manager) luaRoll(L *lua.LState) int {
	expr, err := dice.Parse(L.CheckString(1))
	if err != nil {
		L.ArgError(1, err.Error())
		return 0
	}
	L.Push(lua.LNumber(m.roller.Roll(expr).Total()))
	return 1
}

func (m *Manager) luaLog(L *lua.LState) int {
	m.logger.Info("lua", zap.String("message", L.CheckString(1)))
	return 0
}
