package data

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// DamageType is one of the eight damage families. DamageNone disables a gate.
type DamageType int8

const (
	DamageNone DamageType = -1

	DamageSlash DamageType = iota - 1
	DamageCrush
	DamagePoke
	DamageHoly
	DamageEvil
	DamageFire
	DamageIce
	DamageZap

	DamageCount = 8
)

var damageNames = [DamageCount]string{"slash", "crush", "poke", "holy", "evil", "fire", "ice", "zap"}

func (d DamageType) String() string {
	if d >= 0 && int(d) < DamageCount {
		return damageNames[d]
	}
	return "none"
}

// ParseDamageType accepts a damage family name; "" and "none" give DamageNone.
func ParseDamageType(s string) (DamageType, error) {
	if s == "" || s == "none" {
		return DamageNone, nil
	}
	for i, n := range damageNames {
		if n == s {
			return DamageType(i), nil
		}
	}
	return DamageNone, fmt.Errorf("unknown damage type %q", s)
}

// SetKind names a stat an enchant overrides with an explicit value.
type SetKind uint8

const (
	SetDamageType SetKind = iota
	SetNumJumps
	SetLifeColor
	SetManaColor
	SetSlashModifier
	SetCrushModifier
	SetPokeModifier
	SetHolyModifier
	SetEvilModifier
	SetFireModifier
	SetIceModifier
	SetZapModifier
	SetFlyHeight
	SetWalkOnWater
	SetSeeInvisible
	SetMissileTreatment
	SetMissileCost
	SetChannel

	SetKindCount
)

var setNames = [SetKindCount]string{
	"damage_type", "num_jumps", "life_color", "mana_color",
	"slash_modifier", "crush_modifier", "poke_modifier", "holy_modifier",
	"evil_modifier", "fire_modifier", "ice_modifier", "zap_modifier",
	"fly_height", "walk_on_water", "see_invisible", "missile_treatment",
	"missile_cost", "channel",
}

func (k SetKind) String() string {
	if k < SetKindCount {
		return setNames[k]
	}
	return fmt.Sprintf("set(%d)", k)
}

func (k *SetKind) UnmarshalYAML(n *yaml.Node) error {
	for i, name := range setNames {
		if name == n.Value {
			*k = SetKind(i)
			return nil
		}
	}
	return fmt.Errorf("line %d: unknown set modifier %q", n.Line, n.Value)
}

// AddKind names a stat an enchant shifts by a cumulative delta.
type AddKind uint8

const (
	AddJumpPower AddKind = iota
	AddBumpDampen
	AddBounciness
	AddDamage
	AddSize
	AddAccel
	AddRed
	AddGreen
	AddBlue
	AddDefense
	AddMana
	AddLife
	AddStrength
	AddWisdom
	AddIntelligence
	AddDexterity
	AddSlashResist
	AddCrushResist
	AddPokeResist
	AddHolyResist
	AddEvilResist
	AddFireResist
	AddIceResist
	AddZapResist

	AddKindCount
)

var addNames = [AddKindCount]string{
	"jump_power", "bump_dampen", "bounciness", "damage", "size", "accel",
	"red", "green", "blue", "defense", "mana", "life",
	"strength", "wisdom", "intelligence", "dexterity",
	"slash_resist", "crush_resist", "poke_resist", "holy_resist",
	"evil_resist", "fire_resist", "ice_resist", "zap_resist",
}

func (k AddKind) String() string {
	if k < AddKindCount {
		return addNames[k]
	}
	return fmt.Sprintf("add(%d)", k)
}

func (k *AddKind) UnmarshalYAML(n *yaml.Node) error {
	for i, name := range addNames {
		if name == n.Value {
			*k = AddKind(i)
			return nil
		}
	}
	return fmt.Errorf("line %d: unknown add modifier %q", n.Line, n.Value)
}

// ResistKind maps a damage family to its resistance add-kind.
func ResistKind(d DamageType) AddKind {
	return AddSlashResist + AddKind(d)
}

// StatValue is a modifier value. YAML may give an integer, a bool or a
// damage family name ("fire"), which is stored as its DamageType number.
type StatValue int32

func (v *StatValue) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: modifier value must be a scalar", n.Line)
	}
	switch n.Value {
	case "true", "yes", "on":
		*v = 1
		return nil
	case "false", "no", "off":
		*v = 0
		return nil
	}
	if i, err := strconv.ParseInt(n.Value, 0, 32); err == nil {
		*v = StatValue(i)
		return nil
	}
	d, err := ParseDamageType(n.Value)
	if err != nil {
		return fmt.Errorf("line %d: modifier value %q: %w", n.Line, n.Value, err)
	}
	*v = StatValue(d)
	return nil
}
