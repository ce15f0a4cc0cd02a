package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TagWildcard matches every enchant in a removal-by-tag request.
const TagWildcard = "*"

// ImmuneResist is the resistance (percent) at which a target shrugs off an
// enchant gated on that damage family.
const ImmuneResist = 90

// SetModifier overrides one stat with Value while the enchant lives.
type SetModifier struct {
	Kind  SetKind
	Value StatValue
}

// AddModifier shifts one stat by Value while the enchant lives.
type AddModifier struct {
	Kind  AddKind
	Value StatValue
}

// EnchantProfile is an enchant template, loaded once per level.
type EnchantProfile struct {
	ID       int32
	Name     string
	Lifetime int // ticks, negative = until removed

	Sets []SetModifier // applied in declared order, reverted in reverse
	Adds []AddModifier

	Override         bool // sets replace those held by older enchants
	RemoveOverridden bool // ...and the older enchant is removed outright
	Retarget         bool // lands on the target's held weapon instead

	RequiredDamageType      DamageType // target immune at ImmuneResist or more
	RequireDamageTargetType DamageType // target must have this damage target type

	// Per stat tick. Negative values are upkeep costs.
	OwnerLife  int
	OwnerMana  int
	TargetLife int
	TargetMana int

	EndIfCantPay     bool
	StayIfNoOwner    bool
	StayIfTargetDead bool
	KillTargetOnEnd  bool

	RemovedBy string // tag matched by remove-all-with-tag

	Overlay     string // overlay character name, empty for none
	EndParticle int32  // particle profile spawned on removal, 0 for none
	EndMessage  string
}

// EnchantTable holds enchant profiles indexed by ID.
type EnchantTable struct {
	profiles map[int32]*EnchantProfile
	byName   map[string]*EnchantProfile
}

func NewEnchantTable(profiles ...*EnchantProfile) *EnchantTable {
	t := &EnchantTable{
		profiles: make(map[int32]*EnchantProfile, len(profiles)),
		byName:   make(map[string]*EnchantProfile, len(profiles)),
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
func (t *EnchantTable) Get(id int32) *EnchantProfile {
	if t == nil {
		return nil
	}
	return t.profiles[id]
}

// GetByName returns a profile by name, or nil if not loaded.
func (t *EnchantTable) GetByName(name string) *EnchantProfile {
	if t == nil {
		return nil
	}
	return t.byName[name]
}

func (t *EnchantTable) Loaded(id int32) bool {
	return t.Get(id) != nil
}

// Release unloads a profile.
func (t *EnchantTable) Release(id int32) {
	p := t.profiles[id]
	if p == nil {
		return
	}
	delete(t.profiles, id)
	if t.byName[p.Name] == p {
		delete(t.byName, p.Name)
	}
}

func (t *EnchantTable) Count() int {
	if t == nil {
		return 0
	}
	return len(t.profiles)
}

// MatchesTag reports whether a remove-all-with-tag request for tag covers p.
func (p *EnchantProfile) MatchesTag(tag string) bool {
	return tag == TagWildcard || (tag != "" && p.RemovedBy == tag)
}

// --- YAML loading ---

type setEntry struct {
	Kind  SetKind   `yaml:"kind"`
	Value StatValue `yaml:"value"`
}

type addEntry struct {
	Kind  AddKind   `yaml:"kind"`
	Value StatValue `yaml:"value"`
}

type enchantEntry struct {
	ID                      int32      `yaml:"id"`
	Name                    string     `yaml:"name"`
	Lifetime                *int       `yaml:"lifetime"`
	Set                     []setEntry `yaml:"set"`
	Add                     []addEntry `yaml:"add"`
	Override                bool       `yaml:"override"`
	RemoveOverridden        bool       `yaml:"remove_overridden"`
	Retarget                bool       `yaml:"retarget"`
	RequiredDamageType      string     `yaml:"required_damage_type"`
	RequireDamageTargetType string     `yaml:"require_damage_target_type"`
	OwnerLife               int        `yaml:"owner_life"`
	OwnerMana               int        `yaml:"owner_mana"`
	TargetLife              int        `yaml:"target_life"`
	TargetMana              int        `yaml:"target_mana"`
	EndIfCantPay            bool       `yaml:"end_if_cant_pay"`
	StayIfNoOwner           bool       `yaml:"stay_if_no_owner"`
	StayIfTargetDead        bool       `yaml:"stay_if_target_dead"`
	KillTargetOnEnd         bool       `yaml:"kill_target_on_end"`
	RemovedBy               string     `yaml:"removed_by"`
	Overlay                 string     `yaml:"overlay"`
	EndParticle             int32      `yaml:"end_particle"`
	EndMessage              string     `yaml:"end_message"`
}

type enchantListFile struct {
	Enchants []enchantEntry `yaml:"enchants"`
}

// LoadEnchantTable loads enchant profiles from YAML.
func LoadEnchantTable(path string) (*EnchantTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read enchants: %w", err)
	}
	return ParseEnchantTable(raw)
}

// ParseEnchantTable decodes enchant profiles from YAML bytes. Unknown
// modifier names are errors.
func ParseEnchantTable(raw []byte) (*EnchantTable, error) {
	var f enchantListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse enchants: %w", err)
	}
	profiles := make([]*EnchantProfile, 0, len(f.Enchants))
	seen := make(map[int32]bool, len(f.Enchants))
	for i := range f.Enchants {
		e := &f.Enchants[i]
		if seen[e.ID] {
			return nil, fmt.Errorf("parse enchants: duplicate id %d", e.ID)
		}
		seen[e.ID] = true
		req, err := ParseDamageType(e.RequiredDamageType)
		if err != nil {
			return nil, fmt.Errorf("parse enchants: id %d: %w", e.ID, err)
		}
		reqTarget, err := ParseDamageType(e.RequireDamageTargetType)
		if err != nil {
			return nil, fmt.Errorf("parse enchants: id %d: %w", e.ID, err)
		}
		p := &EnchantProfile{
			ID:                      e.ID,
			Name:                    e.Name,
			Lifetime:                -1,
			Override:                e.Override,
			RemoveOverridden:        e.RemoveOverridden,
			Retarget:                e.Retarget,
			RequiredDamageType:      req,
			RequireDamageTargetType: reqTarget,
			OwnerLife:               e.OwnerLife,
			OwnerMana:               e.OwnerMana,
			TargetLife:              e.TargetLife,
			TargetMana:              e.TargetMana,
			EndIfCantPay:            e.EndIfCantPay,
			StayIfNoOwner:           e.StayIfNoOwner,
			StayIfTargetDead:        e.StayIfTargetDead,
			KillTargetOnEnd:         e.KillTargetOnEnd,
			RemovedBy:               e.RemovedBy,
			Overlay:                 e.Overlay,
			EndParticle:             e.EndParticle,
			EndMessage:              e.EndMessage,
		}
		if e.Lifetime != nil {
			p.Lifetime = *e.Lifetime
		}
		if p.Name == "" {
			p.Name = fmt.Sprintf("enchant_%d", p.ID)
		}
		for _, s := range e.Set {
			p.Sets = append(p.Sets, SetModifier(s))
		}
		for _, a := range e.Add {
			p.Adds = append(p.Adds, AddModifier(a))
		}
		profiles = append(profiles, p)
	}
	return NewEnchantTable(profiles...), nil
}
