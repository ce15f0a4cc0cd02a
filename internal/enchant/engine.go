package enchant

import (
	"fmt"

	"github.com/l1jgo/liveobj/internal/core/ecs"
	"github.com/l1jgo/liveobj/internal/core/event"
	"github.com/l1jgo/liveobj/internal/core/pool"
	"github.com/l1jgo/liveobj/internal/data"
	"github.com/l1jgo/liveobj/internal/particle"
	"github.com/l1jgo/liveobj/internal/world"
	"go.uber.org/zap"
)

// Options configure an Engine.
type Options struct {
	Capacity int
	Strict   bool
	// StatTickInterval is the number of ticks between life and mana payments.
	StatTickInterval int
	Bus              *event.Bus
	Log              *zap.Logger
}

// Engine owns every live enchant and applies and reverts their modifiers.
// Single-goroutine access only (game loop).
type Engine struct {
	objs      *pool.Pool[Enchant]
	profiles  *data.EnchantTable
	chars     *world.State
	particles *particle.Pool // nil disables end particles
	statTick  int
	bus       *event.Bus
	log       *zap.Logger
}

func New(profiles *data.EnchantTable, chars *world.State, particles *particle.Pool, opts Options) *Engine {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		profiles:  profiles,
		chars:     chars,
		particles: particles,
		statTick:  max(opts.StatTickInterval, 1),
		bus:       opts.Bus,
		log:       log,
	}
	e.objs = pool.New[Enchant](opts.Capacity, hooks{e}, pool.Options{
		Name:   "enchant",
		Strict: opts.Strict,
		Log:    log,
	})
	return e
}

// Objects exposes the underlying arena for iteration, stats and repair.
func (e *Engine) Objects() *pool.Pool[Enchant] { return e.objs }

// Get resolves a weak enchant reference.
func (e *Engine) Get(ref pool.Ref) (*Enchant, bool) { return e.objs.Resolve(ref) }

// Live reports whether ref names an enchant that has not been removed.
func (e *Engine) Live(ref pool.Ref) bool { return e.objs.Live(ref) }

// Spawn validates req and puts a new enchant on the target. Validation
// failures consume no slot.
func (e *Engine) Spawn(req SpawnRequest) (pool.Ref, error) {
	eve := e.profiles.Get(req.Profile)
	if eve == nil {
		e.log.Warn("spawn of unloaded enchant profile", zap.Int32("profile", req.Profile))
		return pool.NoRef, fmt.Errorf("spawn enchant %d: %w", req.Profile, ErrUnknownProfile)
	}

	targetID := req.Target
	if eve.Retarget {
		targetID = e.heldWeapon(targetID)
	}
	tgt, ok := e.chars.Get(targetID)
	if !ok || (!tgt.Alive && !eve.StayIfTargetDead) {
		return pool.NoRef, fmt.Errorf("spawn enchant %d: %w", req.Profile, ErrMissingTarget)
	}
	if !eve.StayIfNoOwner && !e.chars.Alive(req.Owner) {
		return pool.NoRef, fmt.Errorf("spawn enchant %d: %w", req.Profile, ErrInvalidOwner)
	}
	if eve.RequiredDamageType != data.DamageNone && tgt.ResistTo(eve.RequiredDamageType) >= data.ImmuneResist {
		return pool.NoRef, fmt.Errorf("spawn enchant %d: resists %v: %w", req.Profile, eve.RequiredDamageType, ErrImmune)
	}
	if eve.RequireDamageTargetType != data.DamageNone && tgt.DamageTargetType != eve.RequireDamageTargetType {
		return pool.NoRef, fmt.Errorf("spawn enchant %d: target type %v: %w", req.Profile, tgt.DamageTargetType, ErrImmune)
	}

	idx, err := e.objs.Allocate(req.Force)
	if err != nil {
		e.log.Debug("enchant dropped", zap.Int32("profile", req.Profile))
		return pool.NoRef, fmt.Errorf("spawn enchant %d: %w", req.Profile, err)
	}
	obj := e.objs.Get(idx)
	*obj = Enchant{
		Profile:  eve.ID,
		eve:      eve,
		Target:   targetID,
		Owner:    req.Owner,
		Spawner:  req.Spawner,
		Lifetime: eve.Lifetime,
		Next:     tgt.FirstEnchant, // read after Allocate, an eviction may have unlinked the old head
	}
	e.objs.Initialize(idx)
	tgt.FirstEnchant = idx

	for _, s := range eve.Sets {
		e.applySet(idx, obj, tgt, s)
	}
	for _, a := range eve.Adds {
		obj.addDelta[a.Kind] += tgt.ApplyAdd(a.Kind, int32(a.Value))
		obj.addApplied[a.Kind] = true
	}

	ref := e.objs.RefOf(idx)
	if sp, ok := e.chars.Get(req.Spawner); ok {
		sp.UndoEnchant = ref
	}
	if eve.Overlay != "" {
		obj.Overlay = e.chars.Spawn(world.Character{
			Name:   eve.Overlay,
			Team:   tgt.Team,
			X:      tgt.X,
			Y:      tgt.Y,
			Z:      tgt.Z,
			Alive:  true,
			IsItem: true,
		})
		e.chars.Attach(obj.Overlay, targetID)
	}
	e.objs.Activate(idx)
	return ref, nil
}

// heldWeapon redirects an enchant to the item in the target's left hand,
// then right hand. Zero when neither hand holds an item.
func (e *Engine) heldWeapon(id ecs.EntityID) ecs.EntityID {
	c, ok := e.chars.Get(id)
	if !ok {
		return 0
	}
	for _, held := range [2]ecs.EntityID{c.HeldLeft, c.HeldRight} {
		if item, ok := e.chars.Get(held); ok && item.IsItem {
			return held
		}
	}
	return 0
}

// Remove undoes the enchant now and returns its slot, deferred while a sweep
// is open. Returns false for stale refs and enchants already removed.
func (e *Engine) Remove(ref pool.Ref) bool {
	if _, ok := e.objs.Resolve(ref); !ok {
		return false
	}
	removed := e.objs.Deinitialize(ref.Index)
	_ = e.objs.Free(ref.Index)
	return removed
}

// RemoveAllWithTag removes every enchant on target whose removed-by tag
// matches; data.TagWildcard matches all. Returns the number removed.
func (e *Engine) RemoveAllWithTag(target ecs.EntityID, tag string) int {
	tgt, ok := e.chars.Get(target)
	if !ok {
		return 0
	}
	n := 0
	idx := tgt.FirstEnchant
	for steps := 0; idx != pool.NoIndex && steps < e.objs.Capacity(); steps++ {
		obj := e.objs.Get(idx)
		if obj == nil {
			break
		}
		next := obj.Next
		if obj.eve != nil && obj.eve.MatchesTag(tag) && e.Remove(e.objs.RefOf(idx)) {
			n++
		}
		idx = next
	}
	return n
}

// Chain returns refs to the enchants on target, newest first.
func (e *Engine) Chain(target ecs.EntityID) []pool.Ref {
	tgt, ok := e.chars.Get(target)
	if !ok {
		return nil
	}
	var refs []pool.Ref
	idx := tgt.FirstEnchant
	for steps := 0; idx != pool.NoIndex && steps < e.objs.Capacity(); steps++ {
		refs = append(refs, e.objs.RefOf(idx))
		idx = e.objs.Get(idx).Next
	}
	return refs
}

// Prune repairs both lists and returns the number of fixes.
func (e *Engine) Prune() int {
	return e.objs.PruneUsed() + e.objs.PruneFree()
}

type hooks struct{ e *Engine }

// Deinit unlinks the enchant, reverts its modifiers and runs its end effects.
func (h hooks) Deinit(idx pool.Index, obj *Enchant) {
	e := h.e
	eve := obj.eve
	if eve == nil {
		return
	}
	ref := e.objs.RefOf(idx)
	if tgt, ok := e.chars.Get(obj.Target); ok {
		above := e.unlink(tgt, idx)
		e.revert(obj, tgt, above)
	}
	if sp, ok := e.chars.Get(obj.Spawner); ok && sp.UndoEnchant == ref {
		sp.UndoEnchant = pool.NoRef
	}
	if !obj.Overlay.IsZero() {
		e.chars.Destroy(obj.Overlay)
	}
	if eve.KillTargetOnEnd {
		e.chars.Kill(obj.Target, obj.Owner)
	}
	if eve.EndParticle != 0 && e.particles != nil {
		req := particle.SpawnRequest{Profile: eve.EndParticle, Owner: obj.Owner}
		if tgt, ok := e.chars.Get(obj.Target); ok {
			req.X, req.Y, req.Z, req.Team = tgt.X, tgt.Y, tgt.Z, tgt.Team
		}
		_, _ = e.particles.Spawn(req)
	}
	if e.bus != nil {
		event.Emit(e.bus, event.EnchantEnded{
			Target:  obj.Target,
			Owner:   obj.Owner,
			Profile: obj.Profile,
			Message: eve.EndMessage,
		})
	}
}

func (h hooks) Destruct(pool.Index, *Enchant) {}

func (h hooks) Eviction(_ pool.Index, obj *Enchant) pool.EvictInfo {
	if obj.eve == nil {
		return pool.EvictInfo{}
	}
	return pool.EvictInfo{
		Defined:       true,
		ProfileLoaded: h.e.profiles.Loaded(obj.Profile),
		Lifetime:      obj.Lifetime,
		Frames:        -1,
	}
}
