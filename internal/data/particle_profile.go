package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ParticleProfile is a particle template, loaded once per level.
type ParticleProfile struct {
	ID       int32
	Name     string
	Lifetime int // ticks
	Frames   int // animation frames before the particle ends
	Eternal  bool

	ForceSpawn  bool // may evict another particle when the pool is full
	DoNotEvict  bool // never chosen as an eviction victim
	NeedsTarget bool
	TargetRange float32 // enemy search radius when no explicit target is given
	Homing      bool

	DieWithAttachment bool

	DamageBase int
	DamageRand int
	DamageType DamageType

	VelX, VelY, VelZ float32

	EndSpawn  SpawnSpec
	ContSpawn SpawnSpec

	OnEnd string // Lua function name called at end of life
}

// SpawnSpec describes child particles: Amount of Profile, every Delay ticks
// for continuous spawns.
type SpawnSpec struct {
	Profile int32
	Amount  int
	Delay   int
}

// ParticleTable holds particle profiles indexed by ID.
type ParticleTable struct {
	profiles map[int32]*ParticleProfile
	byName   map[string]*ParticleProfile
}

// NewParticleTable builds a table from already-decoded profiles.
func NewParticleTable(profiles ...*ParticleProfile) *ParticleTable {
	t := &ParticleTable{
		profiles: make(map[int32]*ParticleProfile, len(profiles)),
		byName:   make(map[string]*ParticleProfile, len(profiles)),
	}
	for _, p := range profiles {
		t.profiles[p.ID] = p
		if p.Name != "" {
			t.byName[p.Name] = p
		}
	}
	return t
}

// Get returns a profile by ID, or nil if not loaded.
func (t *ParticleTable) Get(id int32) *ParticleProfile {
	if t == nil {
		return nil
	}
	return t.profiles[id]
}

// GetByName returns a profile by name, or nil if not loaded.
func (t *ParticleTable) GetByName(name string) *ParticleProfile {
	if t == nil {
		return nil
	}
	return t.byName[name]
}

// Loaded reports whether id still names a profile.
func (t *ParticleTable) Loaded(id int32) bool {
	return t.Get(id) != nil
}

// Release unloads a profile. Particles that still point at it become the
// first choice for eviction.
func (t *ParticleTable) Release(id int32) {
	p := t.profiles[id]
	if p == nil {
		return
	}
	delete(t.profiles, id)
	if t.byName[p.Name] == p {
		delete(t.byName, p.Name)
	}
}

func (t *ParticleTable) Count() int {
	if t == nil {
		return 0
	}
	return len(t.profiles)
}

// --- YAML loading ---

type spawnEntry struct {
	Profile int32 `yaml:"profile"`
	Amount  int   `yaml:"amount"`
	Delay   int   `yaml:"delay"`
}

type particleEntry struct {
	ID                int32      `yaml:"id"`
	Name              string     `yaml:"name"`
	Lifetime          int        `yaml:"lifetime"`
	Frames            int        `yaml:"frames"`
	Eternal           bool       `yaml:"eternal"`
	ForceSpawn        bool       `yaml:"force_spawn"`
	DoNotEvict        bool       `yaml:"do_not_evict"`
	NeedsTarget       bool       `yaml:"needs_target"`
	TargetRange       float32    `yaml:"target_range"`
	Homing            bool       `yaml:"homing"`
	DieWithAttachment bool       `yaml:"die_with_attachment"`
	Damage            struct {
		Base int    `yaml:"base"`
		Rand int    `yaml:"rand"`
		Type string `yaml:"type"`
	} `yaml:"damage"`
	Velocity struct {
		X float32 `yaml:"x"`
		Y float32 `yaml:"y"`
		Z float32 `yaml:"z"`
	} `yaml:"velocity"`
	EndSpawn  spawnEntry `yaml:"end_spawn"`
	ContSpawn spawnEntry `yaml:"cont_spawn"`
	OnEnd     string     `yaml:"on_end"`
}

type particleListFile struct {
	Particles []particleEntry `yaml:"particles"`
}

// LoadParticleTable loads particle profiles from YAML.
func LoadParticleTable(path string) (*ParticleTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read particles: %w", err)
	}
	return ParseParticleTable(raw)
}

// ParseParticleTable decodes particle profiles from YAML bytes.
func ParseParticleTable(raw []byte) (*ParticleTable, error) {
	var f particleListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse particles: %w", err)
	}
	profiles := make([]*ParticleProfile, 0, len(f.Particles))
	seen := make(map[int32]bool, len(f.Particles))
	for i := range f.Particles {
		e := &f.Particles[i]
		if seen[e.ID] {
			return nil, fmt.Errorf("parse particles: duplicate id %d", e.ID)
		}
		seen[e.ID] = true
		dt, err := ParseDamageType(e.Damage.Type)
		if err != nil {
			return nil, fmt.Errorf("parse particles: id %d: %w", e.ID, err)
		}
		p := &ParticleProfile{
			ID:                e.ID,
			Name:              e.Name,
			Lifetime:          e.Lifetime,
			Frames:            e.Frames,
			Eternal:           e.Eternal,
			ForceSpawn:        e.ForceSpawn,
			DoNotEvict:        e.DoNotEvict,
			NeedsTarget:       e.NeedsTarget,
			TargetRange:       e.TargetRange,
			Homing:            e.Homing,
			DieWithAttachment: e.DieWithAttachment,
			DamageBase:        e.Damage.Base,
			DamageRand:        e.Damage.Rand,
			DamageType:        dt,
			VelX:              e.Velocity.X,
			VelY:              e.Velocity.Y,
			VelZ:              e.Velocity.Z,
			EndSpawn:          SpawnSpec(e.EndSpawn),
			ContSpawn:         SpawnSpec(e.ContSpawn),
			OnEnd:             e.OnEnd,
		}
		if p.Name == "" {
			p.Name = fmt.Sprintf("particle_%d", p.ID)
		}
		profiles = append(profiles, p)
	}
	return NewParticleTable(profiles...), nil
}
