package world

import (
	"github.com/l1jgo/liveobj/internal/core/ecs"
	"github.com/l1jgo/liveobj/internal/core/pool"
	"github.com/l1jgo/liveobj/internal/data"
)

// Character is the in-world record of a creature or item. Particles and
// enchants refer to characters weakly by ecs.EntityID.
// Accessed only from the game loop goroutine, no locks needed.
type Character struct {
	Name    string
	Team    int
	X, Y, Z float32
	Facing  uint16
	Alive   bool
	IsItem  bool

	DamageTargetType data.DamageType

	Life, MaxLife int32
	Mana, MaxMana int32

	Strength     int32
	Wisdom       int32
	Intelligence int32
	Dexterity    int32
	Defense      int32
	DamageBonus  int32
	JumpPower    int32
	BumpDampen   int32
	Bounciness   int32
	Size         int32
	Accel        int32
	RedShift     int32
	GreenShift   int32
	BlueShift    int32
	Resist       [data.DamageCount]int32 // percent

	DamageType       data.DamageType
	NumJumps         int32
	LifeColor        int32
	ManaColor        int32
	DamageModifier   [data.DamageCount]int32
	FlyHeight        int32
	WalkOnWater      bool
	SeeInvisible     bool
	MissileTreatment int32
	MissileCost      int32
	Channel          bool

	HeldLeft  ecs.EntityID
	HeldRight ecs.EntityID

	FirstEnchant pool.Index // head of the enchant chain, NoIndex when empty
	UndoEnchant  pool.Ref   // last enchant this character spawned
}

// SetValue reads the stat a set modifier of kind k overrides.
func (c *Character) SetValue(k data.SetKind) int32 {
	switch k {
	case data.SetDamageType:
		return int32(c.DamageType)
	case data.SetNumJumps:
		return c.NumJumps
	case data.SetLifeColor:
		return c.LifeColor
	case data.SetManaColor:
		return c.ManaColor
	case data.SetSlashModifier, data.SetCrushModifier, data.SetPokeModifier, data.SetHolyModifier,
		data.SetEvilModifier, data.SetFireModifier, data.SetIceModifier, data.SetZapModifier:
		return c.DamageModifier[k-data.SetSlashModifier]
	case data.SetFlyHeight:
		return c.FlyHeight
	case data.SetWalkOnWater:
		return b2i(c.WalkOnWater)
	case data.SetSeeInvisible:
		return b2i(c.SeeInvisible)
	case data.SetMissileTreatment:
		return c.MissileTreatment
	case data.SetMissileCost:
		return c.MissileCost
	case data.SetChannel:
		return b2i(c.Channel)
	}
	return 0
}

// ApplySet overwrites the stat for kind k.
func (c *Character) ApplySet(k data.SetKind, v int32) {
	switch k {
	case data.SetDamageType:
		c.DamageType = data.DamageType(v)
	case data.SetNumJumps:
		c.NumJumps = v
	case data.SetLifeColor:
		c.LifeColor = v
	case data.SetManaColor:
		c.ManaColor = v
	case data.SetSlashModifier, data.SetCrushModifier, data.SetPokeModifier, data.SetHolyModifier,
		data.SetEvilModifier, data.SetFireModifier, data.SetIceModifier, data.SetZapModifier:
		c.DamageModifier[k-data.SetSlashModifier] = v
	case data.SetFlyHeight:
		c.FlyHeight = v
	case data.SetWalkOnWater:
		c.WalkOnWater = v != 0
	case data.SetSeeInvisible:
		c.SeeInvisible = v != 0
	case data.SetMissileTreatment:
		c.MissileTreatment = v
	case data.SetMissileCost:
		c.MissileCost = v
	case data.SetChannel:
		c.Channel = v != 0
	}
}

// AddValue reads the stat an add modifier of kind k shifts. For life and
// mana that is the maximum.
func (c *Character) AddValue(k data.AddKind) int32 {
	if p := c.addField(k); p != nil {
		return *p
	}
	return 0
}

// ApplyAdd shifts the stat for kind k by delta and returns the delta that
// actually took effect. Life and mana maxima never drop below zero and the
// current value is clamped to the new maximum. Every other stat is shifted
// unclamped so a later revert restores it exactly.
func (c *Character) ApplyAdd(k data.AddKind, delta int32) int32 {
	switch k {
	case data.AddLife:
		delta = max(delta, -c.MaxLife)
		c.MaxLife += delta
		c.Life = min(c.Life, c.MaxLife)
		if c.Alive && c.Life < 1 && c.MaxLife > 0 {
			c.Life = 1
		}
		return delta
	case data.AddMana:
		delta = max(delta, -c.MaxMana)
		c.MaxMana += delta
		c.Mana = min(c.Mana, c.MaxMana)
		return delta
	}
	if p := c.addField(k); p != nil {
		*p += delta
		return delta
	}
	return 0
}

func (c *Character) addField(k data.AddKind) *int32 {
	switch k {
	case data.AddJumpPower:
		return &c.JumpPower
	case data.AddBumpDampen:
		return &c.BumpDampen
	case data.AddBounciness:
		return &c.Bounciness
	case data.AddDamage:
		return &c.DamageBonus
	case data.AddSize:
		return &c.Size
	case data.AddAccel:
		return &c.Accel
	case data.AddRed:
		return &c.RedShift
	case data.AddGreen:
		return &c.GreenShift
	case data.AddBlue:
		return &c.BlueShift
	case data.AddDefense:
		return &c.Defense
	case data.AddMana:
		return &c.MaxMana
	case data.AddLife:
		return &c.MaxLife
	case data.AddStrength:
		return &c.Strength
	case data.AddWisdom:
		return &c.Wisdom
	case data.AddIntelligence:
		return &c.Intelligence
	case data.AddDexterity:
		return &c.Dexterity
	}
	if k >= data.AddSlashResist && k <= data.AddZapResist {
		return &c.Resist[k-data.AddSlashResist]
	}
	return nil
}

// ResistTo returns the resistance percent against damage family d.
func (c *Character) ResistTo(d data.DamageType) int32 {
	if d < 0 || int(d) >= data.DamageCount {
		return 0
	}
	return c.Resist[d]
}

func b2i(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
