package pool

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var (
	// ErrPoolExhausted means no slot could be handed out. Callers drop the spawn.
	ErrPoolExhausted = errors.New("pool exhausted")
	// ErrReentrancy means EndSweep was called without a matching BeginSweep.
	ErrReentrancy = errors.New("sweep bracketing violated")
)

// Hooks are the per-type callbacks the pool runs while tearing a slot down
// and while choosing an eviction victim. Hooks may allocate or free in the
// same pool; those requests follow the usual sweep rules.
type Hooks[T any] interface {
	// Deinit undoes everything the object did to the rest of the simulation.
	// It runs at most once per allocation.
	Deinit(idx Index, obj *T)
	// Destruct releases what the record itself holds. The pool zeroes the
	// record afterwards.
	Destruct(idx Index, obj *T)
	// Eviction describes how disposable the object is for a forced allocation.
	Eviction(idx Index, obj *T) EvictInfo
}

// Options configure a Pool.
type Options struct {
	Name string
	// Strict panics on mismatched sweep bracketing instead of resetting the depth.
	Strict bool
	Log    *zap.Logger
}

// Stats is a snapshot of pool counters.
type Stats struct {
	Name        string
	Capacity    int
	Used        int
	Free        int
	Allocations uint64
	Frees       uint64
	Evictions   uint64
	Exhausted   uint64
	Repairs     uint64
	Violations  uint64
}

// Pool is a fixed-capacity arena of T with free/used partitioning and
// deferred mutation while a sweep is in progress.
// Single-goroutine access only (game loop).
type Pool[T any] struct {
	name  string
	objs  []T
	ents  []Entity
	free  IndexList
	used  IndexList
	hooks Hooks[T]

	depth       int
	flushing    bool
	activation  []Ref
	termination []Ref

	guid   uint64
	strict bool
	log    *zap.Logger
	stats  Stats
}

// New creates a pool with every slot in the free list. Slots are handed out
// in ascending index order on a fresh pool.
func New[T any](capacity int, hooks Hooks[T], opts Options) *Pool[T] {
	if capacity < 0 {
		capacity = 0
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	p := &Pool[T]{
		name:        opts.Name,
		objs:        make([]T, capacity),
		ents:        make([]Entity, capacity),
		free:        NewIndexList(capacity),
		used:        NewIndexList(capacity),
		hooks:       hooks,
		activation:  make([]Ref, 0, 16),
		termination: make([]Ref, 0, 16),
		strict:      opts.Strict,
		log:         log.With(zap.String("pool", opts.Name)),
	}
	for i := capacity - 1; i >= 0; i-- {
		p.pushFree(Index(i))
		p.ents[i].state = StateTerminated
	}
	return p
}

func (p *Pool[T]) Name() string  { return p.name }
func (p *Pool[T]) Capacity() int { return len(p.objs) }
func (p *Pool[T]) UsedLen() int  { return p.used.Len() }
func (p *Pool[T]) FreeLen() int  { return p.free.Len() }
func (p *Pool[T]) Depth() int    { return p.depth }
func (p *Pool[T]) InSweep() bool { return p.depth > 0 }

// UpdateGUID changes whenever pool membership changes. Spatial caches compare
// it against the value they last built from.
func (p *Pool[T]) UpdateGUID() uint64 { return p.guid }

// UsedAt returns the i-th entry of the used list.
func (p *Pool[T]) UsedAt(i int) Index { return p.used.At(i) }

func (p *Pool[T]) valid(idx Index) bool {
	return idx >= 0 && int(idx) < len(p.objs)
}

// Get returns the record in slot idx regardless of its state, nil when out of range.
func (p *Pool[T]) Get(idx Index) *T {
	if !p.valid(idx) {
		return nil
	}
	return &p.objs[idx]
}

// Entity returns a copy of the slot header.
func (p *Pool[T]) Entity(idx Index) Entity {
	if !p.valid(idx) {
		return Entity{}
	}
	return p.ents[idx]
}

// RefOf returns a weak reference to the current occupant of idx.
func (p *Pool[T]) RefOf(idx Index) Ref {
	if !p.valid(idx) || !p.ents[idx].allocated {
		return NoRef
	}
	return Ref{Index: idx, Gen: p.ents[idx].gen}
}

// Resolve validates a weak reference. It succeeds while the referenced
// occupant still owns the slot, including while its termination is pending.
func (p *Pool[T]) Resolve(r Ref) (*T, bool) {
	if r.IsZero() || !p.valid(r.Index) {
		return nil, false
	}
	e := &p.ents[r.Index]
	if !e.allocated || e.gen != r.Gen {
		return nil, false
	}
	return &p.objs[r.Index], true
}

// Live is Resolve restricted to occupants with no termination request.
func (p *Pool[T]) Live(r Ref) bool {
	if _, ok := p.Resolve(r); !ok {
		return false
	}
	return !p.ents[r.Index].killMe
}

func (p *Pool[T]) Stats() Stats {
	s := p.stats
	s.Name = p.name
	s.Capacity = len(p.objs)
	s.Used = p.used.Len()
	s.Free = p.free.Len()
	return s
}

// Allocate hands out a slot in StateConstructing. When the free list is empty
// and force is set, the best eviction candidate is finalised and reused.
//
// Outside a sweep the slot joins the used list immediately. During a sweep it
// joins on activation, at the outermost EndSweep, unless it was evicted from
// the used list (then it stays there with on=false).
func (p *Pool[T]) Allocate(force bool) (Index, error) {
	idx, ok := p.free.Pop()
	if ok {
		p.ents[idx].inFreeList = false
	} else {
		if !force {
			p.stats.Exhausted++
			return NoIndex, ErrPoolExhausted
		}
		idx = p.evictCandidate()
		if idx == NoIndex {
			p.stats.Exhausted++
			return NoIndex, ErrPoolExhausted
		}
		p.evict(idx)
	}

	e := &p.ents[idx]
	e.gen++
	if e.gen == 0 {
		e.gen = 1
	}
	e.allocated = true
	e.on = false
	e.killMe = false
	e.deinited = false
	e.state = StateConstructing
	var zero T
	p.objs[idx] = zero

	if p.depth == 0 && !e.inUsedList {
		p.pushUsed(idx)
	}
	p.touch(idx)
	p.stats.Allocations++
	return idx, nil
}

// Initialize moves a freshly allocated slot to StateInitializing.
func (p *Pool[T]) Initialize(idx Index) bool {
	if !p.valid(idx) {
		return false
	}
	e := &p.ents[idx]
	if !e.allocated || e.state != StateConstructing {
		return false
	}
	e.state = StateInitializing
	return true
}

// Activate makes an initialised slot live. During a sweep only the state
// changes now; on=true (and used-list membership) waits for the outermost EndSweep.
func (p *Pool[T]) Activate(idx Index) bool {
	if !p.valid(idx) {
		return false
	}
	e := &p.ents[idx]
	if !e.allocated || e.killMe || e.state > StateActive {
		return false
	}
	e.state = StateActive
	if p.depth > 0 {
		p.activation = append(p.activation, Ref{Index: idx, Gen: e.gen})
		return true
	}
	if !e.inUsedList {
		p.pushUsed(idx)
		p.touch(idx)
	}
	e.on = true
	return true
}

// Deinitialize runs the Deinit hook now and flags the slot for termination
// without touching the lists. Returns false if the slot is free or already
// deinitialised. Free must still be called to return the slot.
func (p *Pool[T]) Deinitialize(idx Index) bool {
	if !p.valid(idx) {
		return false
	}
	e := &p.ents[idx]
	if !e.allocated || e.deinited {
		return false
	}
	e.killMe = true
	e.on = false
	p.deinit(idx)
	return true
}

// Free returns a slot to the pool. Freeing a free or never-allocated slot is
// a no-op. During a sweep the slot is parked in StateWaiting and reclaimed at
// the outermost EndSweep; a slot that never reached the used list is invisible
// to iterators and is reclaimed at once.
func (p *Pool[T]) Free(idx Index) error {
	if !p.valid(idx) {
		return nil
	}
	e := &p.ents[idx]
	if !e.allocated {
		return nil
	}
	if p.depth > 0 && (e.inUsedList || e.state == StateActive) {
		if e.state == StateWaiting {
			return nil
		}
		e.killMe = true
		e.on = false
		e.state = StateWaiting
		p.termination = append(p.termination, Ref{Index: idx, Gen: e.gen})
		return nil
	}
	p.release(idx)
	return nil
}

// FreeRef frees the occupant named by r, ignoring stale references.
func (p *Pool[T]) FreeRef(r Ref) error {
	if _, ok := p.Resolve(r); !ok {
		return nil
	}
	return p.Free(r.Index)
}

func (p *Pool[T]) release(idx Index) {
	p.finalize(idx)
	e := &p.ents[idx]
	if e.inUsedList {
		p.removeUsed(idx)
	}
	if !e.inFreeList {
		p.pushFree(idx)
	}
	p.touch(idx)
	p.stats.Frees++
}

// finalize runs deinit then destruct and clears the record. List membership
// is left to the caller.
func (p *Pool[T]) finalize(idx Index) {
	e := &p.ents[idx]
	if !e.allocated {
		return
	}
	e.killMe = true
	e.on = false
	p.deinit(idx)
	e.state = StateDestructing
	p.hooks.Destruct(idx, &p.objs[idx])
	e.state = StateTerminated
	e.allocated = false
	e.killMe = false
	var zero T
	p.objs[idx] = zero
}

func (p *Pool[T]) deinit(idx Index) {
	e := &p.ents[idx]
	if e.deinited {
		return
	}
	e.deinited = true
	waiting := e.state == StateWaiting
	e.state = StateDeinitializing
	p.hooks.Deinit(idx, &p.objs[idx])
	if waiting && e.allocated {
		e.state = StateWaiting
	}
}

// BeginSweep opens a pass over the used list. Nesting is allowed.
func (p *Pool[T]) BeginSweep() {
	p.depth++
}

// EndSweep closes a pass. When the outermost pass closes, queued terminations
// and then queued activations are applied.
func (p *Pool[T]) EndSweep() error {
	if p.depth <= 0 {
		p.stats.Violations++
		err := fmt.Errorf("%s: end sweep at depth %d: %w", p.name, p.depth, ErrReentrancy)
		if p.strict {
			panic(err)
		}
		p.log.Error("sweep bracketing mismatch, resetting depth", zap.Int("depth", p.depth))
		p.depth = 0
		p.flush()
		return err
	}
	p.depth--
	if p.depth == 0 {
		p.flush()
	}
	return nil
}

// flush drains both queues. Hooks run during the flush may open and close
// sweeps of their own; anything they queue is picked up by the same loops.
func (p *Pool[T]) flush() {
	if p.flushing {
		return
	}
	p.flushing = true
	for i := 0; i < len(p.termination); i++ {
		r := p.termination[i]
		e := &p.ents[r.Index]
		if !e.allocated || e.gen != r.Gen {
			continue
		}
		p.release(r.Index)
	}
	p.termination = p.termination[:0]

	for i := 0; i < len(p.activation); i++ {
		r := p.activation[i]
		e := &p.ents[r.Index]
		if !e.allocated || e.gen != r.Gen || e.killMe {
			continue
		}
		if !e.inUsedList {
			p.pushUsed(r.Index)
			p.touch(r.Index)
		}
		e.on = true
	}
	p.activation = p.activation[:0]
	p.flushing = false
}

// Each visits every active object in the used list inside a sweep.
func (p *Pool[T]) Each(fn func(Index, *T)) {
	p.BeginSweep()
	defer p.EndSweep()
	for i := 0; i < p.used.Len(); i++ {
		idx := p.used.At(i)
		if !p.ents[idx].Active() {
			continue
		}
		fn(idx, &p.objs[idx])
	}
}

// EachUsed visits every allocated object in the used list inside a sweep,
// including ones that are not yet on or are waiting for termination.
func (p *Pool[T]) EachUsed(fn func(Index, *T)) {
	p.BeginSweep()
	defer p.EndSweep()
	for i := 0; i < p.used.Len(); i++ {
		idx := p.used.At(i)
		if !p.ents[idx].allocated {
			continue
		}
		fn(idx, &p.objs[idx])
	}
}

func (p *Pool[T]) pushFree(idx Index) {
	p.free.Push(idx)
	p.ents[idx].inFreeList = true
}

func (p *Pool[T]) pushUsed(idx Index) {
	p.used.Push(idx)
	p.ents[idx].inUsedList = true
}

func (p *Pool[T]) removeUsed(idx Index) {
	p.used.Remove(idx)
	p.ents[idx].inUsedList = false
}

func (p *Pool[T]) removeFree(idx Index) {
	p.free.Remove(idx)
	p.ents[idx].inFreeList = false
}

func (p *Pool[T]) touch(idx Index) {
	p.guid++
	p.ents[idx].updateGUID = p.guid
}
