package scripting

import (
	"github.com/l1jgo/liveobj/internal/core/ecs"
	"github.com/l1jgo/liveobj/internal/core/pool"
	"github.com/l1jgo/liveobj/internal/enchant"
	"github.com/l1jgo/liveobj/internal/particle"
	lua "github.com/yuin/gopher-lua"
)

// Refs cross into Lua as numbers: slot index in the high 32 bits, generation
// in the low 32. Character ids use their own packed form. Both fit a float64
// exactly for any realistic capacity.

func refValue(r pool.Ref) lua.LValue {
	if r.IsZero() {
		return lua.LNil
	}
	return lua.LNumber(uint64(uint32(r.Index))<<32 | uint64(r.Gen))
}

func toRef(v lua.LValue) pool.Ref {
	n, ok := v.(lua.LNumber)
	if !ok {
		return pool.NoRef
	}
	u := uint64(n)
	return pool.Ref{Index: pool.Index(int32(u >> 32)), Gen: uint32(u)}
}

func idValue(id ecs.EntityID) lua.LValue {
	if id.IsZero() {
		return lua.LNil
	}
	return lua.LNumber(id)
}

func toID(v lua.LValue) ecs.EntityID {
	n, ok := v.(lua.LNumber)
	if !ok {
		return 0
	}
	return ecs.EntityID(uint64(n))
}

// lInt reads an integer field from a Lua table.
func lInt(t *lua.LTable, key string) int {
	return int(lua.LVAsNumber(t.RawGetString(key)))
}

// lFloat reads a float field from a Lua table.
func lFloat(t *lua.LTable, key string) float32 {
	return float32(lua.LVAsNumber(t.RawGetString(key)))
}

func lBool(t *lua.LTable, key string) bool {
	return lua.LVAsBool(t.RawGetString(key))
}

func (e *Engine) register() {
	for name, fn := range map[string]lua.LGFunction{
		"spawn_particle":           e.spawnParticle,
		"free_particle":            e.freeParticle,
		"particle_live":            e.particleLive,
		"nearest_particle":         e.nearestParticle,
		"spawn_enchant":            e.spawnEnchant,
		"remove_enchant":           e.removeEnchant,
		"remove_enchants_with_tag": e.removeEnchantsWithTag,
		"enchant_live":             e.enchantLive,
		"char_alive":               e.charAlive,
		"char_pos":                 e.charPos,
	} {
		e.vm.SetGlobal(name, e.vm.NewFunction(fn))
	}
}

// pushSpawn returns ref on success, or nil plus the error text.
func pushSpawn(L *lua.LState, ref pool.Ref, err error) int {
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(refValue(ref))
	return 1
}

// spawn_particle{profile=, x=, y=, z=, vx=, vy=, vz=, facing=, team=,
// owner=, attached=, target=, force=}
func (e *Engine) spawnParticle(L *lua.LState) int {
	t := L.CheckTable(1)
	ref, err := e.host.Particles.Spawn(particle.SpawnRequest{
		Profile:  int32(lInt(t, "profile")),
		X:        lFloat(t, "x"),
		Y:        lFloat(t, "y"),
		Z:        lFloat(t, "z"),
		VX:       lFloat(t, "vx"),
		VY:       lFloat(t, "vy"),
		VZ:       lFloat(t, "vz"),
		Facing:   uint16(lInt(t, "facing")),
		Team:     lInt(t, "team"),
		Owner:    toID(t.RawGetString("owner")),
		Attached: toID(t.RawGetString("attached")),
		Target:   toID(t.RawGetString("target")),
		Force:    lBool(t, "force"),
	})
	return pushSpawn(L, ref, err)
}

// free_particle(ref) -> bool
func (e *Engine) freeParticle(L *lua.LState) int {
	ref := toRef(L.Get(1))
	live := e.host.Particles.Live(ref)
	_ = e.host.Particles.Free(ref)
	L.Push(lua.LBool(live))
	return 1
}

// particle_live(ref) -> bool
func (e *Engine) particleLive(L *lua.LState) int {
	L.Push(lua.LBool(e.host.Particles.Live(toRef(L.Get(1)))))
	return 1
}

// nearest_particle(x, y [, owner]) -> ref or nil
func (e *Engine) nearestParticle(L *lua.LState) int {
	x := float32(L.CheckNumber(1))
	y := float32(L.CheckNumber(2))
	ref, ok := e.host.Particles.Nearest(x, y, toID(L.Get(3)))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(refValue(ref))
	return 1
}

// spawn_enchant{profile=, target=, owner=, spawner=, force=}
func (e *Engine) spawnEnchant(L *lua.LState) int {
	t := L.CheckTable(1)
	ref, err := e.host.Enchants.Spawn(enchant.SpawnRequest{
		Profile: int32(lInt(t, "profile")),
		Target:  toID(t.RawGetString("target")),
		Owner:   toID(t.RawGetString("owner")),
		Spawner: toID(t.RawGetString("spawner")),
		Force:   lBool(t, "force"),
	})
	return pushSpawn(L, ref, err)
}

// remove_enchant(ref) -> bool
func (e *Engine) removeEnchant(L *lua.LState) int {
	L.Push(lua.LBool(e.host.Enchants.Remove(toRef(L.Get(1)))))
	return 1
}

// remove_enchants_with_tag(char, tag) -> count
func (e *Engine) removeEnchantsWithTag(L *lua.LState) int {
	id := toID(L.Get(1))
	tag := L.CheckString(2)
	L.Push(lua.LNumber(e.host.Enchants.RemoveAllWithTag(id, tag)))
	return 1
}

// enchant_live(ref) -> bool
func (e *Engine) enchantLive(L *lua.LState) int {
	L.Push(lua.LBool(e.host.Enchants.Live(toRef(L.Get(1)))))
	return 1
}

// char_alive(id) -> bool
func (e *Engine) charAlive(L *lua.LState) int {
	L.Push(lua.LBool(e.host.Chars.Alive(toID(L.Get(1)))))
	return 1
}

// char_pos(id) -> x, y, z or nil
func (e *Engine) charPos(L *lua.LState) int {
	c, ok := e.host.Chars.Get(toID(L.Get(1)))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LNumber(c.X))
	L.Push(lua.LNumber(c.Y))
	L.Push(lua.LNumber(c.Z))
	return 3
}
