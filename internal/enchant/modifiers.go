package enchant

import (
	"github.com/l1jgo/liveobj/internal/core/pool"
	"github.com/l1jgo/liveobj/internal/data"
	"github.com/l1jgo/liveobj/internal/world"
	"go.uber.org/zap"
)

// Set modifiers on one target form a stack per kind, ordered by the chain
// (newest first). Every holder saves the value it replaced. Removing the top
// holder restores its saved value; removing a lower holder hands its saved
// value to the holder directly above it and leaves the stat alone. Either way
// the stat is back to its original value once every holder is gone.

type holders [data.SetKindCount]pool.Index

func noHolders() holders {
	var h holders
	for i := range h {
		h[i] = pool.NoIndex
	}
	return h
}

// applySet puts one set modifier of the enchant in slot idx onto tgt,
// resolving a conflict with an older holder per the profile's override flags.
func (e *Engine) applySet(idx pool.Index, obj *Enchant, tgt *world.Character, s data.SetModifier) {
	k := s.Kind
	if obj.setApplied[k] {
		return
	}
	if holder := e.setHolder(tgt, k, idx); holder != pool.NoIndex {
		if !obj.eve.Override {
			return
		}
		if obj.eve.RemoveOverridden {
			e.Remove(e.objs.RefOf(holder))
		}
	}
	obj.setSave[k] = tgt.SetValue(k)
	tgt.ApplySet(k, int32(s.Value))
	obj.setApplied[k] = true
}

// setHolder returns the newest enchant on tgt other than self holding kind k.
func (e *Engine) setHolder(tgt *world.Character, k data.SetKind, self pool.Index) pool.Index {
	idx := tgt.FirstEnchant
	for steps := 0; idx != pool.NoIndex && steps < e.objs.Capacity(); steps++ {
		obj := e.objs.Get(idx)
		if idx != self && obj.setApplied[k] {
			return idx
		}
		idx = obj.Next
	}
	return pool.NoIndex
}

// unlink removes idx from tgt's chain and reports, per set kind, the closest
// newer enchant holding it.
func (e *Engine) unlink(tgt *world.Character, idx pool.Index) holders {
	above := noHolders()
	prev := pool.NoIndex
	cur := tgt.FirstEnchant
	for steps := 0; cur != pool.NoIndex && steps < e.objs.Capacity(); steps++ {
		obj := e.objs.Get(cur)
		if cur == idx {
			if prev == pool.NoIndex {
				tgt.FirstEnchant = obj.Next
			} else {
				e.objs.Get(prev).Next = obj.Next
			}
			obj.Next = pool.NoIndex
			return above
		}
		for k, held := range obj.setApplied {
			if held {
				above[k] = cur
			}
		}
		prev, cur = cur, obj.Next
	}
	e.log.Warn("enchant missing from its target chain", zap.Int32("index", int32(idx)))
	return noHolders()
}

// revert undoes adds in reverse declared order, then sets in reverse
// declared order.
func (e *Engine) revert(obj *Enchant, tgt *world.Character, above holders) {
	adds := obj.eve.Adds
	for i := len(adds) - 1; i >= 0; i-- {
		k := adds[i].Kind
		if !obj.addApplied[k] {
			continue
		}
		tgt.ApplyAdd(k, -obj.addDelta[k])
		obj.addApplied[k] = false
		obj.addDelta[k] = 0
	}
	sets := obj.eve.Sets
	for i := len(sets) - 1; i >= 0; i-- {
		k := sets[i].Kind
		if !obj.setApplied[k] {
			continue
		}
		obj.setApplied[k] = false
		if up := above[k]; up != pool.NoIndex {
			e.objs.Get(up).setSave[k] = obj.setSave[k]
			continue
		}
		tgt.ApplySet(k, obj.setSave[k])
	}
}
