package system

import (
	"time"

	coresys "github.com/l1jgo/liveobj/internal/core/system"
	"github.com/l1jgo/liveobj/internal/enchant"
	"github.com/l1jgo/liveobj/internal/particle"
	"go.uber.org/zap"
)

// PruneSystem periodically repairs the free and used lists of both pools.
// Phase 6 (Cleanup).
type PruneSystem struct {
	parts     *particle.Pool
	enchants  *enchant.Engine
	log       *zap.Logger
	tickCount int
	interval  int // prune every N ticks, 0 disables
}

func NewPruneSystem(parts *particle.Pool, enchants *enchant.Engine, log *zap.Logger, intervalTicks int) *PruneSystem {
	return &PruneSystem{
		parts:    parts,
		enchants: enchants,
		log:      log,
		interval: intervalTicks,
	}
}

func (s *PruneSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *PruneSystem) Update(_ time.Duration) {
	if s.interval <= 0 {
		return
	}
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	fixed := s.parts.Prune() + s.enchants.Prune()
	s.log.Debug("pool prune pass", zap.Int("repairs", fixed))
}
