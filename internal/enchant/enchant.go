package enchant

import (
	"errors"

	"github.com/l1jgo/liveobj/internal/core/ecs"
	"github.com/l1jgo/liveobj/internal/core/pool"
	"github.com/l1jgo/liveobj/internal/data"
)

var (
	ErrUnknownProfile = errors.New("enchant profile not loaded")
	ErrMissingTarget  = errors.New("enchant target missing")
	ErrInvalidOwner   = errors.New("enchant owner missing or dead")
	ErrImmune         = errors.New("enchant target immune")
)

// Enchant is one live status effect. It sits in its target's chain, newest
// first, and records exactly which modifiers it applied so removal can undo
// them.
type Enchant struct {
	Profile int32
	eve     *data.EnchantProfile

	Target  ecs.EntityID // weak
	Owner   ecs.EntityID // weak, zero for ownerless enchants
	Spawner ecs.EntityID // weak
	Overlay ecs.EntityID // cosmetic character destroyed with the enchant

	Lifetime int        // remaining ticks, negative = until removed
	Next     pool.Index // next (older) enchant on the same target

	setApplied [data.SetKindCount]bool
	setSave    [data.SetKindCount]int32 // value to restore when this enchant is the top holder
	addApplied [data.AddKindCount]bool
	addDelta   [data.AddKindCount]int32 // delta that actually took effect

	unpaid    bool // upkeep failed, removed by the next cleanup
	statClock int
}

// Eve returns the profile the enchant was spawned from.
func (e *Enchant) Eve() *data.EnchantProfile { return e.eve }

// HoldsSet reports whether the enchant currently owns the value of kind k.
func (e *Enchant) HoldsSet(k data.SetKind) bool { return e.setApplied[k] }

// AddApplied returns the delta this enchant applied for kind k.
func (e *Enchant) AddApplied(k data.AddKind) (int32, bool) {
	return e.addDelta[k], e.addApplied[k]
}

// Unpaid reports whether the enchant failed its upkeep.
func (e *Enchant) Unpaid() bool { return e.unpaid }

// SpawnRequest describes an enchant to create.
type SpawnRequest struct {
	Profile int32
	Target  ecs.EntityID
	Owner   ecs.EntityID
	Spawner ecs.EntityID
	// Force lets the spawn evict another enchant when the pool is full.
	Force bool
}
