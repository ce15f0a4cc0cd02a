package system

import (
	"time"

	coresys "github.com/l1jgo/liveobj/internal/core/system"
	"github.com/l1jgo/liveobj/internal/world"
)

// OverlaySystem moves overlay characters onto their hosts and queues
// orphaned overlays for destruction. Phase 3 (PostUpdate).
type OverlaySystem struct {
	chars *world.State
}

func NewOverlaySystem(chars *world.State) *OverlaySystem {
	return &OverlaySystem{chars: chars}
}

func (s *OverlaySystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *OverlaySystem) Update(_ time.Duration) {
	s.chars.FollowHosts()
}
