package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ScenarioCharacter is one character placed by a scenario file.
type ScenarioCharacter struct {
	Name         string
	Team         int
	X, Y, Z      float32
	Life         int32
	Mana         int32
	Strength     int32
	Wisdom       int32
	Intelligence int32
	Dexterity    int32
	Defense      int32
	Resist       [DamageCount]int32
	DamageType   DamageType
	TargetType   DamageType
	Item         bool
	HeldBy       string // name of the character holding this item
	LeftHand     bool   // held in the left hand instead of the right
}

// Scenario is the starting population of a headless run plus a Lua chunk
// executed once the population exists.
type Scenario struct {
	Characters []ScenarioCharacter
	Setup      string
	Ticks      int // 0 = run until signalled
}

type scenarioCharEntry struct {
	Name         string           `yaml:"name"`
	Team         int              `yaml:"team"`
	X            float32          `yaml:"x"`
	Y            float32          `yaml:"y"`
	Z            float32          `yaml:"z"`
	Life         int32            `yaml:"life"`
	Mana         int32            `yaml:"mana"`
	Strength     int32            `yaml:"strength"`
	Wisdom       int32            `yaml:"wisdom"`
	Intelligence int32            `yaml:"intelligence"`
	Dexterity    int32            `yaml:"dexterity"`
	Defense      int32            `yaml:"defense"`
	Resist       map[string]int32 `yaml:"resist"`
	DamageType   string           `yaml:"damage_type"`
	TargetType   string           `yaml:"target_type"`
	Item         bool             `yaml:"item"`
	HeldBy       string           `yaml:"held_by"`
	Hand         string           `yaml:"hand"`
}

type scenarioFile struct {
	Characters []scenarioCharEntry `yaml:"characters"`
	Setup      string              `yaml:"setup"`
	Ticks      int                 `yaml:"ticks"`
}

// LoadScenario loads a scenario from YAML.
func LoadScenario(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return ParseScenario(raw)
}

// ParseScenario decodes a scenario from YAML bytes. Character names must be
// unique and held_by must name an earlier or later character.
func ParseScenario(raw []byte) (*Scenario, error) {
	var f scenarioFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	sc := &Scenario{Setup: f.Setup, Ticks: f.Ticks}
	names := make(map[string]bool, len(f.Characters))
	for _, e := range f.Characters {
		if e.Name == "" {
			return nil, fmt.Errorf("parse scenario: character without a name")
		}
		if names[e.Name] {
			return nil, fmt.Errorf("parse scenario: duplicate character %q", e.Name)
		}
		names[e.Name] = true

		c := ScenarioCharacter{
			Name:         e.Name,
			Team:         e.Team,
			X:            e.X,
			Y:            e.Y,
			Z:            e.Z,
			Life:         e.Life,
			Mana:         e.Mana,
			Strength:     e.Strength,
			Wisdom:       e.Wisdom,
			Intelligence: e.Intelligence,
			Dexterity:    e.Dexterity,
			Defense:      e.Defense,
			Item:         e.Item,
			HeldBy:       e.HeldBy,
		}
		var err error
		if c.DamageType, err = ParseDamageType(e.DamageType); err != nil {
			return nil, fmt.Errorf("parse scenario: %s: %w", e.Name, err)
		}
		if c.TargetType, err = ParseDamageType(e.TargetType); err != nil {
			return nil, fmt.Errorf("parse scenario: %s: %w", e.Name, err)
		}
		for k, v := range e.Resist {
			d, err := ParseDamageType(k)
			if err != nil || d == DamageNone {
				return nil, fmt.Errorf("parse scenario: %s: bad resist %q", e.Name, k)
			}
			c.Resist[d] = v
		}
		switch e.Hand {
		case "", "right":
		case "left":
			c.LeftHand = true
		default:
			return nil, fmt.Errorf("parse scenario: %s: unknown hand %q", e.Name, e.Hand)
		}
		sc.Characters = append(sc.Characters, c)
	}
	for _, c := range sc.Characters {
		if c.HeldBy != "" && !names[c.HeldBy] {
			return nil, fmt.Errorf("parse scenario: %s held by unknown %q", c.Name, c.HeldBy)
		}
	}
	return sc, nil
}
