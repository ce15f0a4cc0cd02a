package particle

import (
	"errors"
	"testing"

	"github.com/l1jgo/liveobj/internal/core/event"
	"github.com/l1jgo/liveobj/internal/core/pool"
	"github.com/l1jgo/liveobj/internal/data"
	"github.com/l1jgo/liveobj/internal/world"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

const (
	profSpark    = 1
	profEmber    = 2
	profSeeker   = 3
	profFountain = 4
	profCoin     = 5
	profAura     = 6
	profStatue   = 7
)

func testProfiles() *data.ParticleTable {
	return data.NewParticleTable(
		&data.ParticleProfile{ID: profSpark, Name: "spark", Lifetime: 1, EndSpawn: data.SpawnSpec{Profile: profEmber, Amount: 2}},
		&data.ParticleProfile{ID: profEmber, Name: "ember", Lifetime: 3},
		&data.ParticleProfile{ID: profSeeker, Name: "seeker", Lifetime: 10, NeedsTarget: true, Homing: true, TargetRange: 50, VelX: 1},
		&data.ParticleProfile{ID: profFountain, Name: "fountain", Eternal: true, Lifetime: 2, ContSpawn: data.SpawnSpec{Profile: profEmber, Amount: 1, Delay: 1}},
		&data.ParticleProfile{ID: profCoin, Name: "coin", Lifetime: 50, ForceSpawn: true},
		&data.ParticleProfile{ID: profAura, Name: "aura", Lifetime: 100, DieWithAttachment: true, OnEnd: "aura_end"},
		&data.ParticleProfile{ID: profStatue, Name: "statue", Lifetime: 5, DoNotEvict: true},
	)
}

type fixture struct {
	parts *Pool
	chars *world.State
	bus   *event.Bus
}

func newFixture(t *testing.T, capacity int, opts ...func(*Options)) *fixture {
	t.Helper()
	bus := event.NewBus()
	chars := world.NewState(bus, 16, zaptest.NewLogger(t))
	o := Options{Capacity: capacity, Strict: true, Bus: bus, Log: zaptest.NewLogger(t)}
	for _, fn := range opts {
		fn(&o)
	}
	return &fixture{parts: New(testProfiles(), chars, o), chars: chars, bus: bus}
}

func (f *fixture) mustSpawn(t *testing.T, req SpawnRequest) pool.Ref {
	t.Helper()
	ref, err := f.parts.Spawn(req)
	if err != nil {
		t.Fatalf("spawn %d: %v", req.Profile, err)
	}
	return ref
}

func (f *fixture) count() int {
	n := 0
	f.parts.Each(func(pool.Ref, *Particle) { n++ })
	return n
}

func TestSpawnUnknownProfileWarns(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	f := newFixture(t, 4, func(o *Options) { o.Log = zap.New(core) })

	ref, err := f.parts.Spawn(SpawnRequest{Profile: 99})
	if !errors.Is(err, ErrUnknownProfile) {
		t.Fatalf("err = %v, want ErrUnknownProfile", err)
	}
	if !ref.IsZero() {
		t.Errorf("ref = %v, want none", ref)
	}
	if n := logs.FilterMessage("spawn of unloaded particle profile").Len(); n != 1 {
		t.Errorf("warnings = %d, want 1", n)
	}
	if f.parts.Objects().FreeLen() != 4 {
		t.Error("failed spawn consumed a slot")
	}
}

func TestMissingTargetReleasesSlot(t *testing.T) {
	f := newFixture(t, 4)
	f.chars.Spawn(world.Character{Name: "ally", Alive: true, Team: 1, X: 5})

	_, err := f.parts.Spawn(SpawnRequest{Profile: profSeeker, Team: 1})
	if !errors.Is(err, ErrMissingTarget) {
		t.Fatalf("err = %v, want ErrMissingTarget", err)
	}
	objs := f.parts.Objects()
	if objs.FreeLen() != 4 || objs.UsedLen() != 0 {
		t.Fatalf("free=%d used=%d, slot leaked", objs.FreeLen(), objs.UsedLen())
	}
}

func TestMissingTargetInsideSweepReleasesSlot(t *testing.T) {
	f := newFixture(t, 4)
	f.mustSpawn(t, SpawnRequest{Profile: profEmber})
	objs := f.parts.Objects()

	f.parts.Each(func(pool.Ref, *Particle) {
		if _, err := f.parts.Spawn(SpawnRequest{Profile: profSeeker}); !errors.Is(err, ErrMissingTarget) {
			t.Errorf("err = %v", err)
		}
	})
	if objs.FreeLen() != 3 || objs.UsedLen() != 1 {
		t.Fatalf("free=%d used=%d", objs.FreeLen(), objs.UsedLen())
	}
}

func TestSeekerFindsAndTracksEnemy(t *testing.T) {
	f := newFixture(t, 4)
	enemy := f.chars.Spawn(world.Character{Name: "orc", Alive: true, Team: 2, X: 0, Y: 20})

	ref := f.mustSpawn(t, SpawnRequest{Profile: profSeeker, Team: 1})
	p, _ := f.parts.Get(ref)
	if p.Target != enemy {
		t.Fatalf("target = %v, want %v", p.Target, enemy)
	}
	f.parts.Tick()
	p, _ = f.parts.Get(ref)
	if p.Y <= 0 || p.X != 0 {
		t.Errorf("homing particle at %v,%v, expected to move towards +y", p.X, p.Y)
	}

	f.chars.Destroy(enemy)
	f.chars.FlushDestroyed()
	f.parts.Tick()
	p, ok := f.parts.Get(ref)
	if !ok {
		t.Fatal("particle died with its target")
	}
	if !p.Target.IsZero() {
		t.Error("stale target not cleared")
	}
}

func TestTickExpiresAfterLifetime(t *testing.T) {
	f := newFixture(t, 8)
	ember := f.mustSpawn(t, SpawnRequest{Profile: profEmber})
	for i := 0; i < 2; i++ {
		f.parts.Tick()
		if !f.parts.Live(ember) {
			t.Fatalf("ember died after %d ticks", i+1)
		}
	}
	f.parts.Tick()
	if _, ok := f.parts.Get(ember); ok {
		t.Fatal("ember outlived its lifetime")
	}
}

func TestEndSpawnRunsAfterSweep(t *testing.T) {
	f := newFixture(t, 8)
	spark := f.mustSpawn(t, SpawnRequest{Profile: profSpark, X: 3, Y: 4})

	f.parts.Tick()
	if _, ok := f.parts.Get(spark); ok {
		t.Fatal("spark still allocated")
	}
	var embers []*Particle
	f.parts.Each(func(_ pool.Ref, p *Particle) { embers = append(embers, p) })
	if len(embers) != 2 {
		t.Fatalf("embers = %d, want 2", len(embers))
	}
	for _, e := range embers {
		if e.Lifetime != 3 {
			t.Errorf("ember ticked in its birth sweep: lifetime %d", e.Lifetime)
		}
		if e.X != 3 || e.Y != 4 {
			t.Errorf("ember at %v,%v, want spark position", e.X, e.Y)
		}
	}
	if f.parts.Objects().Depth() != 0 {
		t.Fatal("sweep depth not restored")
	}
}

func TestContinuousSpawnDuringSweep(t *testing.T) {
	f := newFixture(t, 8)
	fountain := f.mustSpawn(t, SpawnRequest{Profile: profFountain})

	f.parts.Tick()
	if got := f.count(); got != 2 {
		t.Fatalf("after 1 tick count = %d, want 2", got)
	}
	f.parts.Tick()
	f.parts.Tick()
	if !f.parts.Live(fountain) {
		t.Fatal("eternal fountain expired")
	}
	if got := f.count(); got != 4 {
		t.Fatalf("after 3 ticks count = %d, want 4", got)
	}
	// the first ember ends as the fourth one is born
	f.parts.Tick()
	if got := f.count(); got != 4 {
		t.Fatalf("after 4 ticks count = %d, want 4", got)
	}
}

func TestAttachmentFollowAndDie(t *testing.T) {
	f := newFixture(t, 4)
	var ended []pool.Ref
	f.parts.SetEndHook(func(ref pool.Ref, p *Particle) {
		if p.Pip().OnEnd != "aura_end" {
			t.Errorf("hook name = %q", p.Pip().OnEnd)
		}
		ended = append(ended, ref)
	})
	host := f.chars.Spawn(world.Character{Name: "mage", Alive: true, X: 7, Y: 7})
	aura := f.mustSpawn(t, SpawnRequest{Profile: profAura, Attached: host})

	f.chars.Move(host, 9, 1)
	f.parts.Tick()
	p, _ := f.parts.Get(aura)
	if p.X != 9 || p.Y != 1 {
		t.Fatalf("aura at %v,%v, want host position", p.X, p.Y)
	}

	f.chars.Destroy(host)
	f.chars.FlushDestroyed()
	f.parts.Tick()
	if _, ok := f.parts.Get(aura); ok {
		t.Fatal("aura survived its attachment")
	}
	if len(ended) != 1 || ended[0] != aura {
		t.Fatalf("end hook refs = %v", ended)
	}
}

func TestOutOfBoundsExpires(t *testing.T) {
	f := newFixture(t, 4, func(o *Options) { o.Bounds = Bounds{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10} })
	ref := f.mustSpawn(t, SpawnRequest{Profile: profEmber, X: 9.5, VX: 1})
	f.parts.Tick()
	if _, ok := f.parts.Get(ref); ok {
		t.Fatal("particle outside bounds still allocated")
	}
}

func TestForcedSpawnEvictsShortestLived(t *testing.T) {
	f := newFixture(t, 3)
	var dropped []event.ParticleDropped
	event.Subscribe(f.bus, func(e event.ParticleDropped) { dropped = append(dropped, e) })

	f.mustSpawn(t, SpawnRequest{Profile: profStatue})
	long := f.mustSpawn(t, SpawnRequest{Profile: profCoin})
	short := f.mustSpawn(t, SpawnRequest{Profile: profEmber})

	if _, err := f.parts.Spawn(SpawnRequest{Profile: profEmber}); !errors.Is(err, pool.ErrPoolExhausted) {
		t.Fatalf("unforced spawn on full pool: err = %v", err)
	}
	coin := f.mustSpawn(t, SpawnRequest{Profile: profCoin})
	if f.parts.Live(short) {
		t.Error("shortest-lived particle was not evicted")
	}
	if !f.parts.Live(long) || !f.parts.Live(coin) {
		t.Error("wrong particle evicted")
	}
	if st := f.parts.Objects().Stats(); st.Evictions != 1 || st.Exhausted != 1 {
		t.Errorf("stats = %+v", st)
	}

	f.bus.SwapBuffers()
	f.bus.DispatchAll()
	if len(dropped) != 1 || dropped[0].Profile != profEmber || dropped[0].Forced {
		t.Fatalf("dropped = %+v", dropped)
	}
}

func TestFreeIsIdempotentAndIgnoresStaleRefs(t *testing.T) {
	f := newFixture(t, 2)
	ref := f.mustSpawn(t, SpawnRequest{Profile: profEmber})
	if err := f.parts.Free(ref); err != nil {
		t.Fatal(err)
	}
	if err := f.parts.Free(ref); err != nil {
		t.Fatal(err)
	}
	again := f.mustSpawn(t, SpawnRequest{Profile: profEmber})
	if err := f.parts.Free(ref); err != nil {
		t.Fatal(err)
	}
	if !f.parts.Live(again) {
		t.Fatal("stale free killed the new occupant")
	}
	if f.parts.Prune() != 0 {
		t.Error("prune found damage after clean operations")
	}
}
