package pool

import (
	"math"

	"go.uber.org/zap"
)

// EvictInfo is what the owning pool reports about one occupant when a forced
// allocation is looking for a victim.
type EvictInfo struct {
	Defined       bool // record is coherent; false means reuse it immediately
	ProfileLoaded bool // backing profile still exists; false means reuse it immediately
	Lifetime      int  // remaining lifetime ticks, negative when the object has no lifetime
	Frames        int  // remaining frames, negative when the object has no frame count
	DoNotEvict    bool // profile protects the occupant
}

const noSignal = math.MaxInt

type evictTier uint8

const (
	tierNone evictTier = iota
	tierBroken
	tierUnloaded
	tierWaiting
	tierActive
)

// evictCandidate picks the victim for a forced allocation in one pass over
// the used list. Lower tiers win; within the waiting tier the smaller
// min(lifetime, frames) wins; within the active tier lifetime is the primary
// key and frames the secondary key. Ties keep the earlier entry.
func (p *Pool[T]) evictCandidate() Index {
	best := NoIndex
	bestTier := tierNone
	bestKey1, bestKey2 := noSignal, noSignal

	for i := 0; i < p.used.Len(); i++ {
		idx := p.used.At(i)
		e := &p.ents[idx]
		if !e.allocated {
			return idx
		}
		if e.state.transitional() {
			continue
		}
		info := p.hooks.Eviction(idx, &p.objs[idx])
		if !info.Defined {
			return idx
		}
		if !info.ProfileLoaded {
			if bestTier != tierUnloaded {
				best, bestTier = idx, tierUnloaded
			}
			continue
		}
		if bestTier == tierUnloaded {
			continue
		}

		life, frames := signal(info.Lifetime), signal(info.Frames)
		if e.killMe || e.state == StateWaiting {
			key := min(life, frames)
			if bestTier != tierWaiting || key < bestKey1 {
				best, bestTier = idx, tierWaiting
				bestKey1, bestKey2 = key, 0
			}
			continue
		}
		if bestTier == tierWaiting || info.DoNotEvict {
			continue
		}
		if bestTier != tierActive || life < bestKey1 || (life == bestKey1 && frames < bestKey2) {
			best, bestTier = idx, tierActive
			bestKey1, bestKey2 = life, frames
		}
	}
	return best
}

func signal(v int) int {
	if v < 0 {
		return noSignal
	}
	return v
}

// evict finalises the occupant of idx so the slot can be handed out again.
// During a sweep the slot keeps its used-list position; the new occupant
// stays invisible to iterators until it is activated.
func (p *Pool[T]) evict(idx Index) {
	p.log.Debug("evicting slot for forced allocation",
		zap.Int32("index", int32(idx)),
		zap.Stringer("state", p.ents[idx].state))
	p.finalize(idx)
	e := &p.ents[idx]
	if p.depth == 0 && e.inUsedList {
		p.removeUsed(idx)
	}
	if e.inFreeList {
		p.removeFree(idx)
	}
	p.touch(idx)
	p.stats.Evictions++
}
