package spatial

import (
	"math"

	"github.com/l1jgo/liveobj/internal/core/pool"
	"github.com/l1jgo/liveobj/internal/particle"
)

// Grid is the broad-phase cell cache over live particles. Membership is
// rebuilt only when the particle pool's update GUID moved since the last
// Sync; otherwise tracked particles are re-bucketed by position.
// Accessed only from the game loop goroutine, no locks.
type Grid struct {
	cellSize float32
	cells    map[cellKey][]pool.Ref
	tracked  map[pool.Index]entry

	synced   bool
	guid     uint64
	rebuilds int
}

type cellKey struct {
	cx int32
	cy int32
}

type entry struct {
	ref pool.Ref
	key cellKey
}

func NewGrid(cellSize float32) *Grid {
	if cellSize <= 0 {
		cellSize = 64
	}
	return &Grid{
		cellSize: cellSize,
		cells:    make(map[cellKey][]pool.Ref),
		tracked:  make(map[pool.Index]entry),
	}
}

func (g *Grid) toCell(v float32) int32 {
	return int32(math.Floor(float64(v / g.cellSize)))
}

func (g *Grid) key(x, y float32) cellKey {
	return cellKey{cx: g.toCell(x), cy: g.toCell(y)}
}

// Sync brings the grid up to date with parts. Returns true when membership
// was rebuilt.
func (g *Grid) Sync(parts *particle.Pool) bool {
	objs := parts.Objects()
	if g.synced && objs.UpdateGUID() == g.guid {
		g.rebucket(parts)
		return false
	}
	clear(g.cells)
	clear(g.tracked)
	parts.Each(func(ref pool.Ref, p *particle.Particle) {
		k := g.key(p.X, p.Y)
		g.cells[k] = append(g.cells[k], ref)
		g.tracked[ref.Index] = entry{ref: ref, key: k}
	})
	g.guid = objs.UpdateGUID()
	g.synced = true
	g.rebuilds++
	return true
}

func (g *Grid) rebucket(parts *particle.Pool) {
	for idx, en := range g.tracked {
		p, ok := parts.Get(en.ref)
		if !ok {
			continue
		}
		k := g.key(p.X, p.Y)
		if k == en.key {
			continue
		}
		g.remove(en.key, en.ref)
		g.cells[k] = append(g.cells[k], en.ref)
		g.tracked[idx] = entry{ref: en.ref, key: k}
	}
}

func (g *Grid) remove(k cellKey, ref pool.Ref) {
	cell := g.cells[k]
	for i, o := range cell {
		if o == ref {
			cell = append(cell[:i], cell[i+1:]...)
			break
		}
	}
	if len(cell) == 0 {
		delete(g.cells, k)
		return
	}
	g.cells[k] = cell
}

// Nearby returns candidate particles in every cell overlapping the square of
// half-width radius around (x, y). Callers do the exact test.
func (g *Grid) Nearby(x, y, radius float32) []pool.Ref {
	minX, maxX := g.toCell(x-radius), g.toCell(x+radius)
	minY, maxY := g.toCell(y-radius), g.toCell(y+radius)
	var out []pool.Ref
	for cy := minY; cy <= maxY; cy++ {
		for cx := minX; cx <= maxX; cx++ {
			out = append(out, g.cells[cellKey{cx: cx, cy: cy}]...)
		}
	}
	return out
}

// Len is the number of tracked particles.
func (g *Grid) Len() int { return len(g.tracked) }

// Rebuilds counts membership rebuilds since creation.
func (g *Grid) Rebuilds() int { return g.rebuilds }
