package system

import (
	"time"

	coresys "github.com/l1jgo/liveobj/internal/core/system"
	"github.com/l1jgo/liveobj/internal/particle"
	"github.com/l1jgo/liveobj/internal/spatial"
)

// BroadphaseSystem keeps the particle cell cache current after the sweeps.
// Phase 3 (PostUpdate).
type BroadphaseSystem struct {
	grid  *spatial.Grid
	parts *particle.Pool
}

func NewBroadphaseSystem(grid *spatial.Grid, parts *particle.Pool) *BroadphaseSystem {
	return &BroadphaseSystem{grid: grid, parts: parts}
}

func (s *BroadphaseSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *BroadphaseSystem) Update(_ time.Duration) {
	s.grid.Sync(s.parts)
}
