package particle

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/l1jgo/liveobj/internal/core/ecs"
	"github.com/l1jgo/liveobj/internal/core/event"
	"github.com/l1jgo/liveobj/internal/core/pool"
	"github.com/l1jgo/liveobj/internal/data"
	"github.com/l1jgo/liveobj/internal/world"
	"go.uber.org/zap"
)

var (
	// ErrUnknownProfile means the requested profile is not loaded.
	ErrUnknownProfile = errors.New("particle profile not loaded")
	// ErrMissingTarget means the profile needs a target and none resolved.
	ErrMissingTarget = errors.New("particle needs a target")
)

// EndHook runs when a particle that went live reaches end of life, while
// its record is still readable.
type EndHook func(ref pool.Ref, p *Particle)

// Options configure a particle Pool.
type Options struct {
	Capacity int
	Strict   bool
	Bounds   Bounds
	Mover    Mover // nil means Ballistic
	Seed     int64
	Bus      *event.Bus
	Log      *zap.Logger
}

// Pool owns every live particle. Single-goroutine access only (game loop).
type Pool struct {
	objs     *pool.Pool[Particle]
	profiles *data.ParticleTable
	chars    *world.State
	mover    Mover
	bounds   Bounds
	onEnd    EndHook
	rng      *rand.Rand
	bus      *event.Bus
	log      *zap.Logger
}

func New(profiles *data.ParticleTable, chars *world.State, opts Options) *Pool {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	mover := opts.Mover
	if mover == nil {
		mover = Ballistic{}
	}
	p := &Pool{
		profiles: profiles,
		chars:    chars,
		mover:    mover,
		bounds:   opts.Bounds,
		rng:      rand.New(rand.NewSource(opts.Seed)),
		bus:      opts.Bus,
		log:      log,
	}
	p.objs = pool.New[Particle](opts.Capacity, hooks{p}, pool.Options{
		Name:   "particle",
		Strict: opts.Strict,
		Log:    log,
	})
	return p
}

// Objects exposes the underlying arena for iteration, stats and repair.
func (p *Pool) Objects() *pool.Pool[Particle] { return p.objs }

// SetEndHook installs the callback run for profiles naming an end hook.
func (p *Pool) SetEndHook(fn EndHook) { p.onEnd = fn }

// Get resolves a weak particle reference.
func (p *Pool) Get(ref pool.Ref) (*Particle, bool) { return p.objs.Resolve(ref) }

// Live reports whether ref names a particle with no termination request.
func (p *Pool) Live(ref pool.Ref) bool { return p.objs.Live(ref) }

// Free requests termination of the particle named by ref. Stale refs and
// repeated calls are no-ops.
func (p *Pool) Free(ref pool.Ref) error { return p.objs.FreeRef(ref) }

// Each visits every active particle inside a sweep.
func (p *Pool) Each(fn func(pool.Ref, *Particle)) {
	p.objs.Each(func(idx pool.Index, obj *Particle) {
		fn(p.objs.RefOf(idx), obj)
	})
}

// Spawn creates a particle from req. On success the particle is active now,
// or at the end of the current sweep when called from inside one.
func (p *Pool) Spawn(req SpawnRequest) (pool.Ref, error) {
	pip := p.profiles.Get(req.Profile)
	if pip == nil {
		p.log.Warn("spawn of unloaded particle profile", zap.Int32("profile", req.Profile))
		return pool.NoRef, fmt.Errorf("spawn particle %d: %w", req.Profile, ErrUnknownProfile)
	}
	force := req.Force || pip.ForceSpawn
	idx, err := p.objs.Allocate(force)
	if err != nil {
		p.log.Debug("particle dropped", zap.Int32("profile", req.Profile), zap.Bool("forced", force))
		if p.bus != nil {
			event.Emit(p.bus, event.ParticleDropped{Profile: req.Profile, Forced: force})
		}
		return pool.NoRef, fmt.Errorf("spawn particle %d: %w", req.Profile, err)
	}

	obj := p.objs.Get(idx)
	*obj = Particle{
		Profile:    pip.ID,
		pip:        pip,
		X:          req.X,
		Y:          req.Y,
		Z:          req.Z,
		VX:         pip.VelX + req.VX,
		VY:         pip.VelY + req.VY,
		VZ:         pip.VelZ + req.VZ,
		Facing:     req.Facing,
		Team:       req.Team,
		Lifetime:   pip.Lifetime,
		Frames:     pip.Frames,
		Damage:     pip.DamageBase,
		Owner:      req.Owner,
		spawnTimer: pip.ContSpawn.Delay,
	}
	if pip.DamageRand > 0 {
		obj.Damage += p.rng.Intn(pip.DamageRand + 1)
	}
	p.objs.Initialize(idx)

	if c, ok := p.chars.Get(req.Attached); ok {
		obj.Attached = req.Attached
		obj.X, obj.Y, obj.Z = c.X, c.Y, c.Z
	}
	if p.chars.Alive(req.Target) {
		obj.Target = req.Target
	} else if pip.NeedsTarget || pip.Homing {
		obj.Target = p.chars.NearestEnemy(obj.X, obj.Y, obj.Team, pip.TargetRange)
	}
	if pip.NeedsTarget && obj.Target.IsZero() {
		_ = p.objs.Free(idx)
		return pool.NoRef, fmt.Errorf("spawn particle %d: %w", req.Profile, ErrMissingTarget)
	}

	obj.activated = true
	p.objs.Activate(idx)
	return p.objs.RefOf(idx), nil
}

// Tick advances every active particle by one tick inside a sweep. Particles
// spawned or freed during the tick take effect when the sweep closes.
func (p *Pool) Tick() {
	p.objs.Each(p.update)
}

func (p *Pool) update(idx pool.Index, obj *Particle) {
	pip := obj.pip
	ref := p.objs.RefOf(idx)

	if !obj.Attached.IsZero() {
		if c, ok := p.chars.Get(obj.Attached); ok {
			obj.X, obj.Y, obj.Z = c.X, c.Y, c.Z
		} else {
			obj.Attached = 0
			if pip.DieWithAttachment {
				_ = p.objs.Free(idx)
				return
			}
		}
	}
	var target *world.Character
	if !obj.Target.IsZero() {
		if c, ok := p.chars.Get(obj.Target); ok && c.Alive {
			target = c
		} else {
			obj.Target = 0
		}
	}

	if obj.Attached.IsZero() {
		p.mover.Move(obj, target)
	}
	if !p.bounds.contains(obj.X, obj.Y) {
		_ = p.objs.Free(idx)
		return
	}

	if cs := pip.ContSpawn; cs.Amount > 0 {
		obj.spawnTimer--
		if obj.spawnTimer <= 0 {
			obj.spawnTimer = max(cs.Delay, 1)
			p.spawnChildren(obj, cs)
			// a forced child may have evicted this particle
			if !p.objs.Live(ref) {
				return
			}
		}
	}

	if obj.Lifetime > 0 {
		obj.Lifetime--
	}
	if obj.Frames > 0 {
		obj.Frames--
	}
	expired := (pip.Lifetime > 0 && obj.Lifetime == 0) || (pip.Frames > 0 && obj.Frames == 0)
	if expired && !pip.Eternal {
		_ = p.objs.Free(idx)
	}
}

func (p *Pool) spawnChildren(parent *Particle, spec data.SpawnSpec) {
	req := SpawnRequest{
		Profile: spec.Profile,
		X:       parent.X,
		Y:       parent.Y,
		Z:       parent.Z,
		Facing:  parent.Facing,
		Team:    parent.Team,
		Owner:   parent.Owner,
		Target:  parent.Target,
	}
	for i := 0; i < spec.Amount; i++ {
		if _, err := p.Spawn(req); err != nil {
			return
		}
	}
}

// Prune repairs both lists and returns the number of fixes.
func (p *Pool) Prune() int {
	return p.objs.PruneUsed() + p.objs.PruneFree()
}

// Nearest returns the live particle closest to (x, y) owned by someone other
// than owner, for script queries.
func (p *Pool) Nearest(x, y float32, owner ecs.EntityID) (pool.Ref, bool) {
	best := pool.NoRef
	bestDist := float32(-1)
	p.Each(func(ref pool.Ref, obj *Particle) {
		if obj.Owner == owner && !owner.IsZero() {
			return
		}
		dx, dy := obj.X-x, obj.Y-y
		d := dx*dx + dy*dy
		if bestDist < 0 || d < bestDist {
			best, bestDist = ref, d
		}
	})
	return best, bestDist >= 0
}

type hooks struct{ p *Pool }

// Deinit runs end-of-life effects for particles that went live. Children
// spawned here follow the usual sweep rules.
func (h hooks) Deinit(idx pool.Index, obj *Particle) {
	if !obj.activated || obj.pip == nil {
		return
	}
	p := h.p
	if es := obj.pip.EndSpawn; es.Amount > 0 {
		p.spawnChildren(obj, es)
	}
	if obj.pip.OnEnd != "" && p.onEnd != nil {
		p.onEnd(p.objs.RefOf(idx), obj)
	}
}

func (h hooks) Destruct(pool.Index, *Particle) {}

func (h hooks) Eviction(_ pool.Index, obj *Particle) pool.EvictInfo {
	if obj.pip == nil {
		return pool.EvictInfo{}
	}
	info := pool.EvictInfo{
		Defined:       true,
		ProfileLoaded: h.p.profiles.Loaded(obj.Profile),
		Lifetime:      -1,
		Frames:        -1,
		DoNotEvict:    obj.pip.DoNotEvict,
	}
	if !obj.pip.Eternal && obj.pip.Lifetime > 0 {
		info.Lifetime = obj.Lifetime
	}
	if obj.pip.Frames > 0 {
		info.Frames = obj.Frames
	}
	return info
}
