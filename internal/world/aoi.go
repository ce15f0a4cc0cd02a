package world

import (
	"math"

	"github.com/l1jgo/liveobj/internal/core/ecs"
)

// AOIGrid is a cell-based area-of-interest index over character positions.
// Accessed only from the game loop goroutine, no locks.
type AOIGrid struct {
	cellSize float32
	cells    map[cellKey][]ecs.EntityID
}

type cellKey struct {
	cx int32
	cy int32
}

func NewAOIGrid(cellSize float32) *AOIGrid {
	if cellSize <= 0 {
		cellSize = 64
	}
	return &AOIGrid{
		cellSize: cellSize,
		cells:    make(map[cellKey][]ecs.EntityID),
	}
}

func (g *AOIGrid) toCell(v float32) int32 {
	return int32(math.Floor(float64(v / g.cellSize)))
}

func (g *AOIGrid) key(x, y float32) cellKey {
	return cellKey{cx: g.toCell(x), cy: g.toCell(y)}
}

// Add places an entity into the grid.
func (g *AOIGrid) Add(id ecs.EntityID, x, y float32) {
	k := g.key(x, y)
	g.cells[k] = append(g.cells[k], id)
}

// Remove takes an entity out of the cell for (x, y).
func (g *AOIGrid) Remove(id ecs.EntityID, x, y float32) {
	k := g.key(x, y)
	cell := g.cells[k]
	for i, o := range cell {
		if o == id {
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

// Move updates an entity's cell when its position changes.
func (g *AOIGrid) Move(id ecs.EntityID, oldX, oldY, newX, newY float32) {
	if g.key(oldX, oldY) == g.key(newX, newY) {
		return
	}
	g.Remove(id, oldX, oldY)
	g.Add(id, newX, newY)
}

// Nearby returns every entity in the cells overlapping the square of half
// side radius around (x, y). Caller does fine-grained distance filtering.
// Results are ordered by cell (row-major) then insertion.
func (g *AOIGrid) Nearby(x, y, radius float32) []ecs.EntityID {
	if radius < 0 {
		radius = 0
	}
	x0, x1 := g.toCell(x-radius), g.toCell(x+radius)
	y0, y1 := g.toCell(y-radius), g.toCell(y+radius)
	var result []ecs.EntityID
	for cy := y0; cy <= y1; cy++ {
		for cx := x0; cx <= x1; cx++ {
			result = append(result, g.cells[cellKey{cx: cx, cy: cy}]...)
		}
	}
	return result
}

// Len returns the number of occupied cells.
func (g *AOIGrid) Len() int { return len(g.cells) }
