package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/l1jgo/liveobj/internal/core/ecs"
	"github.com/l1jgo/liveobj/internal/data"
	"github.com/l1jgo/liveobj/internal/world"
)

// populate spawns the scenario's characters and puts held items in hands.
func populate(chars *world.State, sc *data.Scenario) map[string]ecs.EntityID {
	ids := make(map[string]ecs.EntityID, len(sc.Characters))
	for _, c := range sc.Characters {
		ids[c.Name] = chars.Spawn(world.Character{
			Name:             c.Name,
			Team:             c.Team,
			X:                c.X,
			Y:                c.Y,
			Z:                c.Z,
			Alive:            true,
			IsItem:           c.Item,
			DamageTargetType: c.TargetType,
			Life:             c.Life,
			MaxLife:          c.Life,
			Mana:             c.Mana,
			MaxMana:          c.Mana,
			Strength:         c.Strength,
			Wisdom:           c.Wisdom,
			Intelligence:     c.Intelligence,
			Dexterity:        c.Dexterity,
			Defense:          c.Defense,
			Resist:           c.Resist,
			DamageType:       c.DamageType,
		})
	}
	for _, c := range sc.Characters {
		if c.HeldBy == "" {
			continue
		}
		holder, ok := chars.Get(ids[c.HeldBy])
		if !ok {
			continue
		}
		if c.LeftHand {
			holder.HeldLeft = ids[c.Name]
		} else {
			holder.HeldRight = ids[c.Name]
		}
	}
	return ids
}

// scenarioPrelude defines the Lua table chars mapping names to ids.
func scenarioPrelude(ids map[string]ecs.EntityID) string {
	names := make([]string, 0, len(ids))
	for n := range ids {
		names = append(names, n)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("chars = {}\n")
	for _, n := range names {
		fmt.Fprintf(&b, "chars[%q] = %d\n", n, uint64(ids[n]))
	}
	return b.String()
}
