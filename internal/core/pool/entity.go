package pool

import "fmt"

// Index is an owning slot index into a Pool. Only the pool and the structure
// that owns the object (e.g. an enchant chain) hold Index values.
type Index int32

// NoIndex marks an empty slot link.
const NoIndex Index = -1

// Ref is a weak reference to a pooled object. The generation is bumped every
// time the slot is handed out again, so a Ref to a recycled slot stops resolving.
type Ref struct {
	Index Index
	Gen   uint32
}

// NoRef is the absent reference. Generations start at 1, so the zero Ref never resolves.
var NoRef = Ref{Index: NoIndex}

func (r Ref) IsZero() bool { return r.Gen == 0 }

func (r Ref) String() string {
	if r.IsZero() {
		return "ref(none)"
	}
	return fmt.Sprintf("ref(%d#%d)", r.Index, r.Gen)
}

// State is the lifecycle stage of a slot.
type State uint8

const (
	StateConstructing   State = iota // handed out by Allocate, record not yet filled
	StateInitializing                // record filled, effects being applied
	StateActive                      // eligible for update and render
	StateDeinitializing              // effects being undone
	StateDestructing                 // record being cleared
	StateWaiting                     // termination requested during a sweep
	StateTerminated                  // back in the free list
)

var stateNames = [...]string{
	"constructing", "initializing", "active", "deinitializing",
	"destructing", "waiting", "terminated",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", s)
}

// transitional states belong to a call that is still on the stack.
func (s State) transitional() bool {
	switch s {
	case StateConstructing, StateInitializing, StateDeinitializing, StateDestructing:
		return true
	}
	return false
}

// Entity is the bookkeeping header every slot carries.
// in_free_list and in_used_list are never both true.
type Entity struct {
	allocated  bool
	on         bool
	killMe     bool
	inFreeList bool
	inUsedList bool
	deinited   bool
	updateGUID uint64
	state      State
	gen        uint32
}

func (e Entity) Allocated() bool    { return e.allocated }
func (e Entity) On() bool           { return e.on }
func (e Entity) KillMe() bool       { return e.killMe }
func (e Entity) InFreeList() bool   { return e.inFreeList }
func (e Entity) InUsedList() bool   { return e.inUsedList }
func (e Entity) UpdateGUID() uint64 { return e.updateGUID }
func (e Entity) State() State       { return e.state }
func (e Entity) Gen() uint32        { return e.gen }

// Active reports whether the slot takes part in ordinary update passes.
func (e Entity) Active() bool {
	return e.allocated && e.on && !e.killMe && e.state == StateActive
}
