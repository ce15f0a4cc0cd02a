package system

import (
	"time"

	coresys "github.com/l1jgo/liveobj/internal/core/system"
	"github.com/l1jgo/liveobj/internal/particle"
)

// ParticleSystem sweeps the particle pool once per tick. Register it before
// EnchantSystem. Phase 2 (Update).
type ParticleSystem struct {
	parts *particle.Pool
}

func NewParticleSystem(parts *particle.Pool) *ParticleSystem {
	return &ParticleSystem{parts: parts}
}

func (s *ParticleSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *ParticleSystem) Update(_ time.Duration) {
	s.parts.Tick()
}
