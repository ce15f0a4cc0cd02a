package system

import (
	"time"

	coresys "github.com/l1jgo/liveobj/internal/core/system"
	"github.com/l1jgo/liveobj/internal/enchant"
	"go.uber.org/zap"
)

// EnchantSystem counts down enchant lifetimes and settles upkeep every tick.
// Phase 2 (Update).
type EnchantSystem struct {
	enchants *enchant.Engine
}

func NewEnchantSystem(enchants *enchant.Engine) *EnchantSystem {
	return &EnchantSystem{enchants: enchants}
}

func (s *EnchantSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *EnchantSystem) Update(_ time.Duration) {
	s.enchants.Tick()
}

// EnchantCleanupSystem removes enchants that expired, went unpaid or lost
// their owner or target this tick. Phase 3 (PostUpdate).
type EnchantCleanupSystem struct {
	enchants *enchant.Engine
	log      *zap.Logger
}

func NewEnchantCleanupSystem(enchants *enchant.Engine, log *zap.Logger) *EnchantCleanupSystem {
	return &EnchantCleanupSystem{enchants: enchants, log: log}
}

func (s *EnchantCleanupSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *EnchantCleanupSystem) Update(_ time.Duration) {
	if n := s.enchants.Cleanup(); n > 0 {
		s.log.Debug("enchants removed", zap.Int("count", n))
	}
}
