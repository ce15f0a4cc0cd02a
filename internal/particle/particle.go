package particle

import (
	"github.com/l1jgo/liveobj/internal/core/ecs"
	"github.com/l1jgo/liveobj/internal/data"
)

// Particle is one live particle record. Position and velocity belong to the
// Mover; the pool only reads them for bounds checks and child spawns.
type Particle struct {
	Profile int32
	pip     *data.ParticleProfile

	X, Y, Z    float32
	VX, VY, VZ float32
	Facing     uint16
	Team       int

	Lifetime int // remaining ticks
	Frames   int // remaining frames
	Damage   int

	Owner    ecs.EntityID // weak
	Attached ecs.EntityID // weak, particle rides on this character
	Target   ecs.EntityID // weak, homing or hit target

	spawnTimer int
	activated  bool
}

// Pip returns the profile the particle was spawned from.
func (p *Particle) Pip() *data.ParticleProfile { return p.pip }

// SpawnRequest describes a particle to create.
type SpawnRequest struct {
	Profile    int32
	X, Y, Z    float32
	VX, VY, VZ float32 // added to the profile velocity
	Facing     uint16
	Team       int
	Owner      ecs.EntityID
	Attached   ecs.EntityID
	Target     ecs.EntityID
	// Force lets the spawn evict another particle when the pool is full.
	// Profiles with force_spawn always force.
	Force bool
}

// Bounds is the playable area. A zero Bounds is unbounded.
type Bounds struct {
	MinX, MinY float32
	MaxX, MaxY float32
}

func (b Bounds) contains(x, y float32) bool {
	if b == (Bounds{}) {
		return true
	}
	return x >= b.MinX && x <= b.MaxX && y >= b.MinY && y <= b.MaxY
}
