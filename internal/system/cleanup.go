package system

import (
	"time"

	coresys "github.com/l1jgo/liveobj/internal/core/system"
	"github.com/l1jgo/liveobj/internal/world"
	"go.uber.org/zap"
)

// CleanupSystem flushes the deferred character destruction queue at tick end.
// Phase 6 (Cleanup).
type CleanupSystem struct {
	chars *world.State
	log   *zap.Logger
}

func NewCleanupSystem(chars *world.State, log *zap.Logger) *CleanupSystem {
	return &CleanupSystem{chars: chars, log: log}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	if n := s.chars.FlushDestroyed(); n > 0 {
		s.log.Debug("characters destroyed", zap.Int("count", n))
	}
}
