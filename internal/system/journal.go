package system

import (
	"context"
	"time"

	"github.com/l1jgo/liveobj/internal/core/pool"
	coresys "github.com/l1jgo/liveobj/internal/core/system"
	"github.com/l1jgo/liveobj/internal/persist"
	"go.uber.org/zap"
)

// StatsWriter stores journal samples. *persist.StatsRepo implements it.
type StatsWriter interface {
	InsertBatch(ctx context.Context, samples []persist.PoolSample) error
}

// StatsSource reports a pool snapshot. Pool.Stats has this shape.
type StatsSource func() pool.Stats

// JournalSystem samples every pool periodically and writes the samples in one
// batch. Phase 5 (Persist).
type JournalSystem struct {
	writer    StatsWriter
	sources   []StatsSource
	log       *zap.Logger
	tick      uint64
	tickCount int
	interval  int // sample every N ticks
	timeout   time.Duration
}

func NewJournalSystem(writer StatsWriter, sources []StatsSource, log *zap.Logger, intervalTicks int) *JournalSystem {
	return &JournalSystem{
		writer:   writer,
		sources:  sources,
		log:      log,
		interval: max(intervalTicks, 1),
		timeout:  5 * time.Second,
	}
}

func (s *JournalSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *JournalSystem) Update(_ time.Duration) {
	s.tick++
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	s.Flush()
}

// Flush samples and writes immediately. Called for graceful shutdown.
func (s *JournalSystem) Flush() {
	samples := make([]persist.PoolSample, 0, len(s.sources))
	for _, src := range s.sources {
		samples = append(samples, persist.SampleOf(s.tick, src()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.writer.InsertBatch(ctx, samples); err != nil {
		s.log.Error("stats journal write failed", zap.Uint64("tick", s.tick), zap.Error(err))
	}
}
