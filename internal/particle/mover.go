package particle

import (
	"math"

	"github.com/l1jgo/liveobj/internal/world"
)

// Mover advances a particle by one tick. target is nil when the particle has
// no live target. Physics engines plug in here.
type Mover interface {
	Move(p *Particle, target *world.Character)
}

// Ballistic integrates velocity once per tick and steers homing particles
// towards their target at constant speed.
type Ballistic struct{}

func (Ballistic) Move(p *Particle, target *world.Character) {
	if target != nil && p.pip != nil && p.pip.Homing {
		dx, dy := float64(target.X-p.X), float64(target.Y-p.Y)
		dist := math.Hypot(dx, dy)
		speed := math.Hypot(float64(p.VX), float64(p.VY))
		if dist > 0 && speed > 0 {
			p.VX = float32(dx / dist * speed)
			p.VY = float32(dy / dist * speed)
		}
	}
	p.X += p.VX
	p.Y += p.VY
	p.Z += p.VZ
}
