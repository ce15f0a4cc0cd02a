package persist

import (
	"context"
	"fmt"

	"github.com/l1jgo/liveobj/internal/core/pool"
)

// PoolSample is one row of the pool statistics journal.
type PoolSample struct {
	Tick        uint64
	Pool        string
	Capacity    int
	Used        int
	Free        int
	Allocations uint64
	Frees       uint64
	Evictions   uint64
	Exhausted   uint64
	Repairs     uint64
	Violations  uint64
}

// SampleOf converts a pool snapshot taken at tick into a journal row.
func SampleOf(tick uint64, s pool.Stats) PoolSample {
	return PoolSample{
		Tick:        tick,
		Pool:        s.Name,
		Capacity:    s.Capacity,
		Used:        s.Used,
		Free:        s.Free,
		Allocations: s.Allocations,
		Frees:       s.Frees,
		Evictions:   s.Evictions,
		Exhausted:   s.Exhausted,
		Repairs:     s.Repairs,
		Violations:  s.Violations,
	}
}

type StatsRepo struct {
	db *DB
}

func NewStatsRepo(db *DB) *StatsRepo {
	return &StatsRepo{db: db}
}

// InsertBatch writes samples in a single transaction.
func (r *StatsRepo) InsertBatch(ctx context.Context, samples []PoolSample) error {
	if len(samples) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("stats begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, s := range samples {
		if _, err := tx.Exec(ctx,
			`INSERT INTO pool_stats (tick, pool, capacity, used, free, allocations, frees, evictions, exhausted, repairs, violations)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			int64(s.Tick), s.Pool, s.Capacity, s.Used, s.Free,
			int64(s.Allocations), int64(s.Frees), int64(s.Evictions),
			int64(s.Exhausted), int64(s.Repairs), int64(s.Violations),
		); err != nil {
			return fmt.Errorf("stats insert: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// Latest returns the most recent sample recorded for the named pool.
func (r *StatsRepo) Latest(ctx context.Context, poolName string) (PoolSample, error) {
	var s PoolSample
	var tick, allocs, frees, evictions, exhausted, repairs, violations int64
	err := r.db.Pool.QueryRow(ctx,
		`SELECT tick, pool, capacity, used, free, allocations, frees, evictions, exhausted, repairs, violations
		 FROM pool_stats WHERE pool = $1 ORDER BY tick DESC, id DESC LIMIT 1`, poolName,
	).Scan(&tick, &s.Pool, &s.Capacity, &s.Used, &s.Free,
		&allocs, &frees, &evictions, &exhausted, &repairs, &violations)
	if err != nil {
		return PoolSample{}, err
	}
	s.Tick = uint64(tick)
	s.Allocations, s.Frees, s.Evictions = uint64(allocs), uint64(frees), uint64(evictions)
	s.Exhausted, s.Repairs, s.Violations = uint64(exhausted), uint64(repairs), uint64(violations)
	return s, nil
}
