package enchant

import (
	"github.com/l1jgo/liveobj/internal/core/ecs"
	"github.com/l1jgo/liveobj/internal/core/pool"
)

// Tick advances every active enchant inside a sweep: lifetimes count down
// and, once per stat tick, owners and targets pay or receive life and mana.
// An enchant whose payer cannot afford an upkeep it must pay is flagged and
// removed by the next Cleanup.
func (e *Engine) Tick() {
	e.objs.Each(e.update)
}

func (e *Engine) update(_ pool.Index, obj *Enchant) {
	if obj.Lifetime > 0 {
		obj.Lifetime--
	}
	obj.statClock++
	if obj.statClock < e.statTick {
		return
	}
	obj.statClock = 0

	eve := obj.eve
	if eve.OwnerLife != 0 || eve.OwnerMana != 0 {
		if !e.pay(obj.Owner, int32(eve.OwnerLife), int32(eve.OwnerMana), obj.Owner) && eve.EndIfCantPay {
			obj.unpaid = true
		}
	}
	if eve.TargetLife != 0 || eve.TargetMana != 0 {
		if !e.pay(obj.Target, int32(eve.TargetLife), int32(eve.TargetMana), obj.Owner) && eve.EndIfCantPay {
			obj.unpaid = true
		}
	}
}

// pay applies life and mana deltas to id. Negative deltas are costs; when
// id cannot cover a cost nothing is paid and pay returns false. Life costs
// never kill the payer by themselves, life drains do when they come from
// someone else.
func (e *Engine) pay(id ecs.EntityID, life, mana int32, source ecs.EntityID) bool {
	c, ok := e.chars.Get(id)
	if !ok || !c.Alive {
		return false
	}
	selfPaid := id == source
	if mana < 0 && c.Mana+mana < 0 {
		return false
	}
	if life < 0 && selfPaid && c.Life+life < 1 {
		return false
	}
	if mana != 0 {
		e.chars.AdjustMana(id, mana)
	}
	if life != 0 {
		e.chars.AdjustLife(id, life, source)
	}
	return true
}

// Cleanup removes every enchant whose owner or target no longer qualifies,
// whose upkeep went unpaid or whose lifetime ran out. Victims are collected
// in one pass and removed after it.
func (e *Engine) Cleanup() int {
	var victims []pool.Ref
	e.objs.Each(func(idx pool.Index, obj *Enchant) {
		if e.expired(obj) {
			victims = append(victims, e.objs.RefOf(idx))
		}
	})
	n := 0
	for _, ref := range victims {
		if e.Remove(ref) {
			n++
		}
	}
	return n
}

func (e *Engine) expired(obj *Enchant) bool {
	eve := obj.eve
	switch {
	case obj.unpaid:
		return true
	case obj.Lifetime == 0:
		return true
	case !e.chars.Exists(obj.Target):
		return true
	case !eve.StayIfTargetDead && !e.chars.Alive(obj.Target):
		return true
	case !eve.StayIfNoOwner && !e.chars.Alive(obj.Owner):
		return true
	}
	return false
}
