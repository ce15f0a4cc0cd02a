package world

import (
	"math"

	"github.com/l1jgo/liveobj/internal/core/ecs"
	"github.com/l1jgo/liveobj/internal/core/event"
	"github.com/l1jgo/liveobj/internal/core/pool"
	"go.uber.org/zap"
)

// Attachment makes a character (an overlay) follow its host.
type Attachment struct {
	Host ecs.EntityID
}

// State is the central in-memory character registry. Characters are ECS
// entities; an EntityID held elsewhere is a weak reference that stops
// resolving once the entity is destroyed.
// Accessed only from the game loop goroutine, no locks needed.
type State struct {
	ecs      *ecs.World
	chars    *ecs.PtrComponentStore[Character]
	attached *ecs.PtrComponentStore[Attachment]
	grid     *AOIGrid
	bus      *event.Bus
	log      *zap.Logger
}

func NewState(bus *event.Bus, cellSize float32, log *zap.Logger) *State {
	if log == nil {
		log = zap.NewNop()
	}
	s := &State{
		ecs:      ecs.NewWorld(),
		chars:    ecs.NewPtrComponentStore[Character](),
		attached: ecs.NewPtrComponentStore[Attachment](),
		grid:     NewAOIGrid(cellSize),
		bus:      bus,
		log:      log,
	}
	s.ecs.Registry().Register(s.chars)
	s.ecs.Registry().Register(s.attached)
	s.ecs.OnDestroy(func(id ecs.EntityID) {
		if c, ok := s.chars.Get(id); ok {
			s.grid.Remove(id, c.X, c.Y)
		}
	})
	return s
}

// Spawn adds a character and returns its id. The enchant chain starts empty.
func (s *State) Spawn(c Character) ecs.EntityID {
	id := s.ecs.CreateEntity()
	rec := c
	rec.FirstEnchant = pool.NoIndex
	rec.UndoEnchant = pool.NoRef
	s.chars.Set(id, &rec)
	s.grid.Add(id, rec.X, rec.Y)
	s.log.Debug("character spawned", zap.String("name", rec.Name), zap.Uint64("id", uint64(id)))
	return id
}

// Get resolves a weak character reference.
func (s *State) Get(id ecs.EntityID) (*Character, bool) {
	if id.IsZero() || !s.ecs.Alive(id) {
		return nil, false
	}
	return s.chars.Get(id)
}

// Exists reports whether id still names a character, dead or alive.
func (s *State) Exists(id ecs.EntityID) bool {
	_, ok := s.Get(id)
	return ok
}

// Alive reports whether id names a living character.
func (s *State) Alive(id ecs.EntityID) bool {
	c, ok := s.Get(id)
	return ok && c.Alive
}

// Count returns the number of characters, including dead ones not yet destroyed.
func (s *State) Count() int { return s.chars.Len() }

// Each visits characters in spawn order.
func (s *State) Each(fn func(ecs.EntityID, *Character)) {
	s.chars.Each(func(id ecs.EntityID, c *Character) {
		if s.ecs.Alive(id) {
			fn(id, c)
		}
	})
}

// Kill marks a character dead and emits CharacterKilled. Returns false if it
// was already dead or gone.
func (s *State) Kill(id, killer ecs.EntityID) bool {
	c, ok := s.Get(id)
	if !ok || !c.Alive {
		return false
	}
	c.Alive = false
	c.Life = 0
	if s.bus != nil {
		event.Emit(s.bus, event.CharacterKilled{Victim: id, Killer: killer})
	}
	s.log.Debug("character killed", zap.String("name", c.Name))
	return true
}

// AdjustLife adds delta to current life, clamped to [0, MaxLife]. A living
// character reduced to zero is killed by killer.
func (s *State) AdjustLife(id ecs.EntityID, delta int32, killer ecs.EntityID) {
	c, ok := s.Get(id)
	if !ok || !c.Alive {
		return
	}
	c.Life = min(max(c.Life+delta, 0), c.MaxLife)
	if c.Life == 0 {
		s.Kill(id, killer)
	}
}

// AdjustMana adds delta to current mana, clamped to [0, MaxMana].
func (s *State) AdjustMana(id ecs.EntityID, delta int32) {
	c, ok := s.Get(id)
	if !ok {
		return
	}
	c.Mana = min(max(c.Mana+delta, 0), c.MaxMana)
}

// Destroy queues the character for removal at the end of the tick.
func (s *State) Destroy(id ecs.EntityID) {
	s.ecs.MarkForDestruction(id)
}

// FlushDestroyed removes every queued character. Called by CleanupSystem.
func (s *State) FlushDestroyed() int {
	return s.ecs.FlushDestroyQueue()
}

// Move relocates a character and keeps the AOI grid in sync.
func (s *State) Move(id ecs.EntityID, x, y float32) {
	c, ok := s.Get(id)
	if !ok {
		return
	}
	s.grid.Move(id, c.X, c.Y, x, y)
	c.X, c.Y = x, y
}

// Attach makes overlay follow host until either is destroyed.
func (s *State) Attach(overlay, host ecs.EntityID) {
	if !s.Exists(overlay) || !s.Exists(host) {
		return
	}
	s.attached.Set(overlay, &Attachment{Host: host})
}

// HostOf returns the host an overlay follows.
func (s *State) HostOf(overlay ecs.EntityID) (ecs.EntityID, bool) {
	if !s.Exists(overlay) {
		return 0, false
	}
	a, ok := s.attached.Get(overlay)
	if !ok {
		return 0, false
	}
	return a.Host, true
}

// FollowHosts moves overlays onto their hosts and queues destruction of
// overlays whose host is gone.
func (s *State) FollowHosts() {
	type move struct {
		id   ecs.EntityID
		x, y float32
	}
	var moves []move
	var orphans []ecs.EntityID
	ecs.Each2(s.chars, s.attached, func(id ecs.EntityID, c *Character, a *Attachment) {
		host, ok := s.Get(a.Host)
		if !ok {
			orphans = append(orphans, id)
			return
		}
		if host.X != c.X || host.Y != c.Y {
			moves = append(moves, move{id, host.X, host.Y})
		}
		c.Z = host.Z
	})
	for _, m := range moves {
		s.Move(m.id, m.x, m.y)
	}
	for _, id := range orphans {
		s.Destroy(id)
	}
}

// NearestEnemy returns the closest living non-item character not on team
// within radius of (x, y), or zero.
func (s *State) NearestEnemy(x, y float32, team int, radius float32) ecs.EntityID {
	var best ecs.EntityID
	bestDist := float32(math.MaxFloat32)
	r2 := radius * radius
	for _, id := range s.grid.Nearby(x, y, radius) {
		c, ok := s.Get(id)
		if !ok || !c.Alive || c.IsItem || c.Team == team {
			continue
		}
		dx, dy := c.X-x, c.Y-y
		d := dx*dx + dy*dy
		if d > r2 {
			continue
		}
		if d < bestDist || (d == bestDist && id < best) {
			best, bestDist = id, d
		}
	}
	return best
}
