package system

import (
	"time"

	coresys "github.com/l1jgo/liveobj/internal/core/system"
	"github.com/l1jgo/liveobj/internal/scripting"
)

// ScriptSystem gives Lua its on_tick hook before the sweeps run.
// Phase 0 (Input).
type ScriptSystem struct {
	lua  *scripting.Engine
	tick uint64
}

func NewScriptSystem(lua *scripting.Engine) *ScriptSystem {
	return &ScriptSystem{lua: lua}
}

func (s *ScriptSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *ScriptSystem) Update(_ time.Duration) {
	s.tick++
	s.lua.OnTick(s.tick)
}
