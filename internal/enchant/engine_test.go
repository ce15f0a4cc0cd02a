package enchant

import (
	"errors"
	"testing"

	"github.com/l1jgo/liveobj/internal/core/ecs"
	"github.com/l1jgo/liveobj/internal/core/event"
	"github.com/l1jgo/liveobj/internal/core/pool"
	"github.com/l1jgo/liveobj/internal/data"
	"github.com/l1jgo/liveobj/internal/particle"
	"github.com/l1jgo/liveobj/internal/world"
	"go.uber.org/zap/zaptest"
)

const (
	profMight = iota + 1
	profGuard
	profFireblade
	profFrost
	profPurge
	profMeek
	profWard
	profBane
	profOil
	profDrain
	profDoom
	profPoison
	profStorm
)

const endParticle = 1

func prof(id int32, name string, fn func(p *data.EnchantProfile)) *data.EnchantProfile {
	p := &data.EnchantProfile{
		ID:                      id,
		Name:                    name,
		Lifetime:                -1,
		RequiredDamageType:      data.DamageNone,
		RequireDamageTargetType: data.DamageNone,
	}
	if fn != nil {
		fn(p)
	}
	return p
}

func setDamageType(d data.DamageType) []data.SetModifier {
	return []data.SetModifier{{Kind: data.SetDamageType, Value: data.StatValue(d)}}
}

func testProfiles() *data.EnchantTable {
	return data.NewEnchantTable(
		prof(profMight, "might", func(p *data.EnchantProfile) {
			p.Adds = []data.AddModifier{{Kind: data.AddStrength, Value: 5}}
		}),
		prof(profGuard, "guard", func(p *data.EnchantProfile) {
			p.Adds = []data.AddModifier{{Kind: data.AddDefense, Value: 10}}
			p.StayIfNoOwner = true
		}),
		prof(profFireblade, "fireblade", func(p *data.EnchantProfile) {
			p.Sets = setDamageType(data.DamageFire)
			p.StayIfNoOwner = true
		}),
		prof(profFrost, "frost", func(p *data.EnchantProfile) {
			p.Sets = setDamageType(data.DamageIce)
			p.Override = true
			p.StayIfNoOwner = true
		}),
		prof(profPurge, "purge", func(p *data.EnchantProfile) {
			p.Sets = setDamageType(data.DamageHoly)
			p.Override = true
			p.RemoveOverridden = true
			p.StayIfNoOwner = true
		}),
		prof(profMeek, "meek", func(p *data.EnchantProfile) {
			p.Sets = setDamageType(data.DamageEvil)
			p.StayIfNoOwner = true
		}),
		prof(profWard, "ward", func(p *data.EnchantProfile) {
			p.RequiredDamageType = data.DamageFire
			p.StayIfNoOwner = true
		}),
		prof(profBane, "bane", func(p *data.EnchantProfile) {
			p.RequireDamageTargetType = data.DamageEvil
			p.StayIfNoOwner = true
		}),
		prof(profOil, "oil", func(p *data.EnchantProfile) {
			p.Retarget = true
			p.Adds = []data.AddModifier{{Kind: data.AddDamage, Value: 3}}
			p.StayIfNoOwner = true
		}),
		prof(profDrain, "drain", func(p *data.EnchantProfile) {
			p.OwnerMana = -5
			p.EndIfCantPay = true
		}),
		prof(profDoom, "doom", func(p *data.EnchantProfile) {
			p.Lifetime = 2
			p.KillTargetOnEnd = true
			p.StayIfNoOwner = true
			p.Overlay = "skull"
			p.EndParticle = endParticle
			p.EndMessage = "doomed"
			p.RemovedBy = "DOOM"
		}),
		prof(profPoison, "poison", func(p *data.EnchantProfile) {
			p.TargetLife = -3
			p.StayIfNoOwner = true
			p.RemovedBy = "POIS"
		}),
		prof(profStorm, "storm", func(p *data.EnchantProfile) {
			p.Sets = setDamageType(data.DamageZap)
			p.Override = true
			p.StayIfNoOwner = true
		}),
	)
}

type fixture struct {
	eng    *Engine
	chars  *world.State
	parts  *particle.Pool
	bus    *event.Bus
	hero   ecs.EntityID
	caster ecs.EntityID
}

func newFixture(t *testing.T, capacity int) *fixture {
	t.Helper()
	bus := event.NewBus()
	log := zaptest.NewLogger(t)
	chars := world.NewState(bus, 16, log)
	parts := particle.New(
		data.NewParticleTable(&data.ParticleProfile{ID: endParticle, Name: "puff", Lifetime: 5}),
		chars,
		particle.Options{Capacity: 8, Strict: true, Log: log},
	)
	eng := New(testProfiles(), chars, parts, Options{
		Capacity:         capacity,
		Strict:           true,
		StatTickInterval: 1,
		Bus:              bus,
		Log:              log,
	})
	f := &fixture{eng: eng, chars: chars, parts: parts, bus: bus}
	f.hero = chars.Spawn(world.Character{
		Name: "hero", Alive: true, Team: 1,
		Life: 50, MaxLife: 50, Mana: 20, MaxMana: 20,
		Strength: 10, Defense: 4, DamageType: data.DamageCrush,
	})
	f.caster = chars.Spawn(world.Character{
		Name: "caster", Alive: true, Team: 1,
		Life: 30, MaxLife: 30, Mana: 7, MaxMana: 20,
	})
	return f
}

func (f *fixture) spawn(t *testing.T, profile int32, target ecs.EntityID) pool.Ref {
	t.Helper()
	ref, err := f.eng.Spawn(SpawnRequest{Profile: profile, Target: target, Owner: f.caster, Spawner: f.caster})
	if err != nil {
		t.Fatalf("spawn enchant %d: %v", profile, err)
	}
	return ref
}

func (f *fixture) char(t *testing.T, id ecs.EntityID) *world.Character {
	t.Helper()
	c, ok := f.chars.Get(id)
	if !ok {
		t.Fatalf("character %v missing", id)
	}
	return c
}

func TestAddModifierAppliesAndReverts(t *testing.T) {
	f := newFixture(t, 8)
	ref := f.spawn(t, profMight, f.hero)
	if got := f.char(t, f.hero).Strength; got != 15 {
		t.Fatalf("strength after spawn = %d, want 15", got)
	}
	if !f.eng.Remove(ref) {
		t.Fatal("Remove returned false")
	}
	if got := f.char(t, f.hero).Strength; got != 10 {
		t.Fatalf("strength after remove = %d, want 10", got)
	}
	if f.eng.Remove(ref) {
		t.Error("second Remove reported success")
	}
}

func TestRemovalOrderDoesNotMatter(t *testing.T) {
	for _, order := range []string{"guard-first", "fireblade-first"} {
		t.Run(order, func(t *testing.T) {
			f := newFixture(t, 8)
			e1 := f.spawn(t, profGuard, f.hero)
			e2 := f.spawn(t, profFireblade, f.hero)
			hero := f.char(t, f.hero)
			if hero.Defense != 14 || hero.DamageType != data.DamageFire {
				t.Fatalf("after spawn defense=%d type=%v", hero.Defense, hero.DamageType)
			}
			if e, _ := f.eng.Get(e2); e.setSave[data.SetDamageType] != int32(data.DamageCrush) {
				t.Fatalf("fireblade saved %d, want crush", e.setSave[data.SetDamageType])
			}
			if order == "guard-first" {
				f.eng.Remove(e1)
				f.eng.Remove(e2)
			} else {
				f.eng.Remove(e2)
				f.eng.Remove(e1)
			}
			if hero.Defense != 4 || hero.DamageType != data.DamageCrush {
				t.Fatalf("after remove defense=%d type=%v", hero.Defense, hero.DamageType)
			}
		})
	}
}

func TestInvalidOwnerConsumesNoSlot(t *testing.T) {
	f := newFixture(t, 4)
	free := f.eng.Objects().FreeLen()
	ghost := ecs.NewEntityID(999, 1)
	ref, err := f.eng.Spawn(SpawnRequest{Profile: profMight, Target: f.hero, Owner: ghost})
	if !errors.Is(err, ErrInvalidOwner) {
		t.Fatalf("err = %v, want ErrInvalidOwner", err)
	}
	if !ref.IsZero() {
		t.Errorf("ref = %v, want none", ref)
	}
	if got := f.eng.Objects().FreeLen(); got != free {
		t.Fatalf("free count %d -> %d", free, got)
	}
}

func TestSetStackRevertsInAnyOrder(t *testing.T) {
	profiles := []int32{profFireblade, profFrost, profStorm}
	values := map[int32]data.DamageType{
		profFireblade: data.DamageFire,
		profFrost:     data.DamageIce,
		profStorm:     data.DamageZap,
	}
	orders := [][]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}
	for _, order := range orders {
		f := newFixture(t, 8)
		refs := make([]pool.Ref, len(profiles))
		for i, p := range profiles {
			refs[i] = f.spawn(t, p, f.hero)
		}
		hero := f.char(t, f.hero)
		if hero.DamageType != data.DamageZap {
			t.Fatalf("top of stack = %v, want zap", hero.DamageType)
		}
		alive := []bool{true, true, true}
		for _, i := range order {
			f.eng.Remove(refs[i])
			alive[i] = false
			want := data.DamageCrush
			for j := len(profiles) - 1; j >= 0; j-- {
				if alive[j] {
					want = values[profiles[j]]
					break
				}
			}
			if hero.DamageType != want {
				t.Fatalf("order %v: after removing %d type = %v, want %v", order, i, hero.DamageType, want)
			}
		}
	}
}

func TestSetWithoutOverrideIsSkipped(t *testing.T) {
	f := newFixture(t, 8)
	fire := f.spawn(t, profFireblade, f.hero)
	meek := f.spawn(t, profMeek, f.hero)
	hero := f.char(t, f.hero)
	if hero.DamageType != data.DamageFire {
		t.Fatalf("type = %v, non-override set must not apply", hero.DamageType)
	}
	if e, _ := f.eng.Get(meek); e.HoldsSet(data.SetDamageType) {
		t.Fatal("skipped set recorded as applied")
	}
	f.eng.Remove(meek)
	if hero.DamageType != data.DamageFire {
		t.Fatalf("removing skipped set changed type to %v", hero.DamageType)
	}
	f.eng.Remove(fire)
	if hero.DamageType != data.DamageCrush {
		t.Fatalf("type = %v, want crush", hero.DamageType)
	}
}

func TestRemoveOverriddenDropsOlderEnchant(t *testing.T) {
	f := newFixture(t, 8)
	fire := f.spawn(t, profFireblade, f.hero)
	purge := f.spawn(t, profPurge, f.hero)
	if f.eng.Live(fire) {
		t.Fatal("overridden enchant still live")
	}
	hero := f.char(t, f.hero)
	if hero.DamageType != data.DamageHoly {
		t.Fatalf("type = %v, want holy", hero.DamageType)
	}
	if chain := f.eng.Chain(f.hero); len(chain) != 1 || chain[0] != purge {
		t.Fatalf("chain = %v", chain)
	}
	f.eng.Remove(purge)
	if hero.DamageType != data.DamageCrush {
		t.Fatalf("type = %v, want crush", hero.DamageType)
	}
}

func TestChainIntegrity(t *testing.T) {
	f := newFixture(t, 8)
	var refs []pool.Ref
	for i := 0; i < 5; i++ {
		refs = append(refs, f.spawn(t, profGuard, f.hero))
	}
	f.eng.Remove(refs[1])
	f.eng.Remove(refs[3])
	f.eng.Remove(refs[3])

	chain := f.eng.Chain(f.hero)
	want := []pool.Ref{refs[4], refs[2], refs[0]}
	if len(chain) != len(want) {
		t.Fatalf("chain = %v, want %v", chain, want)
	}
	for i := range want {
		if chain[i] != want[i] || !f.eng.Live(chain[i]) {
			t.Fatalf("chain = %v, want %v", chain, want)
		}
	}
	if d := f.char(t, f.hero).Defense; d != 34 {
		t.Fatalf("defense = %d, want 34", d)
	}

	refs = append(refs, f.spawn(t, profGuard, f.hero))
	if chain := f.eng.Chain(f.hero); len(chain) != 4 || chain[0] != refs[5] {
		t.Fatalf("new enchant not at head: %v", chain)
	}
}

func TestRemoveAllWithTag(t *testing.T) {
	f := newFixture(t, 8)
	f.spawn(t, profPoison, f.hero)
	might := f.spawn(t, profMight, f.hero)
	f.spawn(t, profPoison, f.hero)
	f.spawn(t, profGuard, f.hero)

	if n := f.eng.RemoveAllWithTag(f.hero, "POIS"); n != 2 {
		t.Fatalf("removed %d poison, want 2", n)
	}
	if n := len(f.eng.Chain(f.hero)); n != 2 {
		t.Fatalf("chain length = %d, want 2", n)
	}
	if !f.eng.Live(might) {
		t.Fatal("untagged enchant removed")
	}
	if n := f.eng.RemoveAllWithTag(f.hero, data.TagWildcard); n != 2 {
		t.Fatalf("wildcard removed %d, want 2", n)
	}
	hero := f.char(t, f.hero)
	if hero.FirstEnchant != pool.NoIndex || hero.Strength != 10 || hero.Defense != 4 {
		t.Fatalf("hero not restored: chain %d str %d def %d", hero.FirstEnchant, hero.Strength, hero.Defense)
	}
	if f.eng.Objects().UsedLen() != 0 {
		t.Fatalf("used = %d", f.eng.Objects().UsedLen())
	}
}

func TestImmunityGates(t *testing.T) {
	f := newFixture(t, 8)
	hero := f.char(t, f.hero)

	hero.Resist[data.DamageFire] = data.ImmuneResist
	if _, err := f.eng.Spawn(SpawnRequest{Profile: profWard, Target: f.hero}); !errors.Is(err, ErrImmune) {
		t.Fatalf("resist gate: err = %v", err)
	}
	hero.Resist[data.DamageFire] = data.ImmuneResist - 1
	if _, err := f.eng.Spawn(SpawnRequest{Profile: profWard, Target: f.hero}); err != nil {
		t.Fatalf("below threshold: %v", err)
	}

	if _, err := f.eng.Spawn(SpawnRequest{Profile: profBane, Target: f.hero}); !errors.Is(err, ErrImmune) {
		t.Fatalf("target type gate: err = %v", err)
	}
	hero.DamageTargetType = data.DamageEvil
	if _, err := f.eng.Spawn(SpawnRequest{Profile: profBane, Target: f.hero}); err != nil {
		t.Fatalf("matching target type: %v", err)
	}
	if _, err := f.eng.Spawn(SpawnRequest{Profile: 404, Target: f.hero}); !errors.Is(err, ErrUnknownProfile) {
		t.Fatalf("unknown profile: err = %v", err)
	}
}

func TestRetargetToHeldWeapon(t *testing.T) {
	f := newFixture(t, 8)
	sword := f.chars.Spawn(world.Character{Name: "sword", Alive: true, IsItem: true})
	f.char(t, f.hero).HeldRight = sword

	f.spawn(t, profOil, f.hero)
	if got := f.char(t, sword).DamageBonus; got != 3 {
		t.Fatalf("sword damage bonus = %d, want 3", got)
	}
	if got := f.char(t, f.hero).DamageBonus; got != 0 {
		t.Fatalf("hero damage bonus = %d, want 0", got)
	}
	if len(f.eng.Chain(sword)) != 1 || len(f.eng.Chain(f.hero)) != 0 {
		t.Fatal("enchant linked on the wrong chain")
	}

	if _, err := f.eng.Spawn(SpawnRequest{Profile: profOil, Target: f.caster}); !errors.Is(err, ErrMissingTarget) {
		t.Fatalf("unarmed target: err = %v", err)
	}
}

func TestUpkeepFailureRemovedAtCleanup(t *testing.T) {
	f := newFixture(t, 8)
	var ended []event.EnchantEnded
	event.Subscribe(f.bus, func(e event.EnchantEnded) { ended = append(ended, e) })

	ref := f.spawn(t, profDrain, f.hero)
	f.eng.Tick()
	if got := f.char(t, f.caster).Mana; got != 2 {
		t.Fatalf("caster mana = %d, want 2", got)
	}
	f.eng.Tick()
	e, _ := f.eng.Get(ref)
	if !e.Unpaid() || !f.eng.Live(ref) {
		t.Fatal("unpaid enchant must stay until cleanup")
	}
	if got := f.char(t, f.caster).Mana; got != 2 {
		t.Fatalf("unaffordable upkeep was charged: mana %d", got)
	}
	if n := f.eng.Cleanup(); n != 1 {
		t.Fatalf("Cleanup removed %d, want 1", n)
	}
	if f.eng.Live(ref) {
		t.Fatal("enchant survived cleanup")
	}
	f.bus.SwapBuffers()
	f.bus.DispatchAll()
	if len(ended) != 1 || ended[0].Profile != profDrain {
		t.Fatalf("ended events = %+v", ended)
	}
}

func TestDoomEndsWithEffects(t *testing.T) {
	f := newFixture(t, 8)
	var ended []event.EnchantEnded
	var killed []event.CharacterKilled
	event.Subscribe(f.bus, func(e event.EnchantEnded) { ended = append(ended, e) })
	event.Subscribe(f.bus, func(e event.CharacterKilled) { killed = append(killed, e) })

	f.spawn(t, profDoom, f.hero)
	if f.chars.Count() != 3 {
		t.Fatalf("overlay not spawned: %d characters", f.chars.Count())
	}
	f.eng.Tick()
	if n := f.eng.Cleanup(); n != 0 {
		t.Fatalf("removed %d before lifetime ran out", n)
	}
	f.eng.Tick()
	if n := f.eng.Cleanup(); n != 1 {
		t.Fatalf("Cleanup removed %d, want 1", n)
	}
	if f.chars.Alive(f.hero) {
		t.Fatal("target survived kill-on-end")
	}
	if f.parts.Objects().UsedLen() != 1 {
		t.Fatalf("end particle count = %d", f.parts.Objects().UsedLen())
	}
	f.chars.FlushDestroyed()
	if f.chars.Count() != 2 {
		t.Fatalf("overlay not destroyed: %d characters", f.chars.Count())
	}

	f.bus.SwapBuffers()
	f.bus.DispatchAll()
	if len(ended) != 1 || ended[0].Message != "doomed" {
		t.Fatalf("ended = %+v", ended)
	}
	if len(killed) != 1 || killed[0].Victim != f.hero || killed[0].Killer != f.caster {
		t.Fatalf("killed = %+v", killed)
	}
}

func TestOwnerDeathUnravelsEnchant(t *testing.T) {
	f := newFixture(t, 8)
	poison := f.spawn(t, profPoison, f.hero)
	f.spawn(t, profMight, f.hero)
	f.chars.Kill(f.caster, 0)

	if n := f.eng.Cleanup(); n != 1 {
		t.Fatalf("Cleanup removed %d, want 1", n)
	}
	if got := f.char(t, f.hero).Strength; got != 10 {
		t.Fatalf("strength = %d, want 10", got)
	}
	if !f.eng.Live(poison) {
		t.Fatal("ownerless-tolerant enchant removed")
	}
	f.eng.Tick()
	if got := f.char(t, f.hero).Life; got != 47 {
		t.Fatalf("life = %d, want 47 after one poison tick", got)
	}
}

func TestRemoveDuringSweepRevertsNowFreesLater(t *testing.T) {
	f := newFixture(t, 4)
	ref := f.spawn(t, profMight, f.hero)
	objs := f.eng.Objects()

	objs.Each(func(pool.Index, *Enchant) {
		f.eng.Remove(ref)
		if got := f.char(t, f.hero).Strength; got != 10 {
			t.Errorf("strength = %d inside sweep, want 10", got)
		}
		if objs.UsedLen() != 1 {
			t.Errorf("used list changed mid-sweep")
		}
		if f.eng.Live(ref) {
			t.Errorf("removed enchant reported live")
		}
		if len(f.eng.Chain(f.hero)) != 0 {
			t.Errorf("removed enchant still chained")
		}
	})
	if objs.UsedLen() != 0 || objs.FreeLen() != 4 {
		t.Fatalf("used=%d free=%d after sweep", objs.UsedLen(), objs.FreeLen())
	}
	if _, ok := f.eng.Get(ref); ok {
		t.Fatal("ref still resolves after sweep")
	}
}

func TestUndoPointerTracksLastSpawn(t *testing.T) {
	f := newFixture(t, 8)
	first := f.spawn(t, profGuard, f.hero)
	second := f.spawn(t, profMight, f.hero)
	caster := f.char(t, f.caster)
	if caster.UndoEnchant != second {
		t.Fatalf("undo = %v, want %v", caster.UndoEnchant, second)
	}
	f.eng.Remove(first)
	if caster.UndoEnchant != second {
		t.Fatal("removing another enchant cleared the undo pointer")
	}
	f.eng.Remove(second)
	if !caster.UndoEnchant.IsZero() {
		t.Fatalf("undo = %v after removal", caster.UndoEnchant)
	}
}

func TestForcedSpawnEvictsAndReverts(t *testing.T) {
	f := newFixture(t, 1)
	might := f.spawn(t, profMight, f.hero)
	if _, err := f.eng.Spawn(SpawnRequest{Profile: profGuard, Target: f.hero}); !errors.Is(err, pool.ErrPoolExhausted) {
		t.Fatalf("unforced: err = %v", err)
	}
	guard, err := f.eng.Spawn(SpawnRequest{Profile: profGuard, Target: f.hero, Force: true})
	if err != nil {
		t.Fatalf("forced: %v", err)
	}
	hero := f.char(t, f.hero)
	if f.eng.Live(might) || hero.Strength != 10 {
		t.Fatalf("evicted enchant not reverted: strength %d", hero.Strength)
	}
	if hero.Defense != 14 {
		t.Fatalf("defense = %d, want 14", hero.Defense)
	}
	if chain := f.eng.Chain(f.hero); len(chain) != 1 || chain[0] != guard {
		t.Fatalf("chain = %v", chain)
	}
}
