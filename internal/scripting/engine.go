package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/l1jgo/liveobj/internal/core/pool"
	"github.com/l1jgo/liveobj/internal/enchant"
	"github.com/l1jgo/liveobj/internal/particle"
	"github.com/l1jgo/liveobj/internal/world"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Host is the set of live-object services scripts may drive.
type Host struct {
	Particles *particle.Pool
	Enchants  *enchant.Engine
	Chars     *world.State
}

// Engine wraps a single gopher-lua VM for spawn scripts and particle end
// hooks. Single-goroutine access only (game loop).
type Engine struct {
	vm   *lua.LState
	host Host
	log  *zap.Logger
}

// NewEngine creates a Lua engine, registers the live-object API and loads
// all scripts from the given directory.
func NewEngine(scriptsDir string, host Host, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, host: host, log: log}
	e.register()
	if host.Particles != nil {
		host.Particles.SetEndHook(e.particleEnded)
	}

	// Load core scripts first, then feature scripts
	for _, sub := range []string{"core", "particle", "enchant", "ai"} {
		p := filepath.Join(scriptsDir, sub)
		if err := e.loadDir(p); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}

	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// Exec runs a chunk of Lua source. Used by the host for scenario commands.
func (e *Engine) Exec(src string) error {
	return e.vm.DoString(src)
}

// OnTick calls the optional Lua on_tick(tick) function.
func (e *Engine) OnTick(tick uint64) {
	fn := e.vm.GetGlobal("on_tick")
	if fn == lua.LNil {
		return
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, lua.LNumber(tick)); err != nil {
		e.log.Error("lua on_tick error", zap.Uint64("tick", tick), zap.Error(err))
	}
}

// particleEnded calls the Lua function named by the particle's profile while
// the particle's termination is applied. The record is still readable;
// spawns and frees made by the script follow the usual sweep rules.
func (e *Engine) particleEnded(ref pool.Ref, p *particle.Particle) {
	name := p.Pip().OnEnd
	fn := e.vm.GetGlobal(name)
	if fn == lua.LNil {
		e.log.Error("lua function not found", zap.String("name", name))
		return
	}

	t := e.vm.NewTable()
	t.RawSetString("ref", refValue(ref))
	t.RawSetString("profile", lua.LNumber(p.Profile))
	t.RawSetString("x", lua.LNumber(p.X))
	t.RawSetString("y", lua.LNumber(p.Y))
	t.RawSetString("z", lua.LNumber(p.Z))
	t.RawSetString("team", lua.LNumber(p.Team))
	t.RawSetString("owner", idValue(p.Owner))
	t.RawSetString("target", idValue(p.Target))
	t.RawSetString("damage", lua.LNumber(p.Damage))

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua particle end hook error", zap.String("func", name), zap.Error(err))
	}
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
