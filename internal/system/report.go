package system

import (
	"time"

	coresys "github.com/l1jgo/liveobj/internal/core/system"
	"go.uber.org/zap"
)

// ReportSystem logs pool occupancy periodically. Phase 4 (Output).
type ReportSystem struct {
	sources   []StatsSource
	log       *zap.Logger
	tickCount int
	interval  int
}

func NewReportSystem(sources []StatsSource, log *zap.Logger, intervalTicks int) *ReportSystem {
	return &ReportSystem{sources: sources, log: log, interval: max(intervalTicks, 1)}
}

func (s *ReportSystem) Phase() coresys.Phase { return coresys.PhaseOutput }

func (s *ReportSystem) Update(_ time.Duration) {
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	for _, src := range s.sources {
		st := src()
		s.log.Info("pool usage",
			zap.String("pool", st.Name),
			zap.Int("used", st.Used),
			zap.Int("free", st.Free),
			zap.Uint64("evictions", st.Evictions),
			zap.Uint64("exhausted", st.Exhausted),
		)
	}
}
