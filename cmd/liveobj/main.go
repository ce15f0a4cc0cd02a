package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/l1jgo/liveobj/internal/config"
	"github.com/l1jgo/liveobj/internal/core/event"
	coresys "github.com/l1jgo/liveobj/internal/core/system"
	"github.com/l1jgo/liveobj/internal/data"
	"github.com/l1jgo/liveobj/internal/enchant"
	"github.com/l1jgo/liveobj/internal/particle"
	"github.com/l1jgo/liveobj/internal/persist"
	"github.com/l1jgo/liveobj/internal/scripting"
	"github.com/l1jgo/liveobj/internal/spatial"
	"github.com/l1jgo/liveobj/internal/system"
	"github.com/l1jgo/liveobj/internal/world"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfgFlag := flag.String("config", "config/liveobj.toml", "config file")
	maxTicks := flag.Int("ticks", 0, "stop after this many ticks (0 = scenario value, or run until signalled)")
	flag.Parse()

	// 1. Load config
	cfgPath := *cfgFlag
	if p := os.Getenv("L1JGO_LIVEOBJ_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	// 3. Load profiles
	particleTable, err := data.LoadParticleTable(cfg.Data.Particles)
	if err != nil {
		return fmt.Errorf("particles: %w", err)
	}
	enchantTable, err := data.LoadEnchantTable(cfg.Data.Enchants)
	if err != nil {
		return fmt.Errorf("enchants: %w", err)
	}
	log.Info("profiles loaded",
		zap.Int("particles", particleTable.Count()),
		zap.Int("enchants", enchantTable.Count()),
	)

	// 4. Build the live-object core
	bus := event.NewBus()
	chars := world.NewState(bus, cfg.Simulation.CellSize, log.Named("world"))
	parts := particle.New(particleTable, chars, particle.Options{
		Capacity: cfg.Pools.ParticleCapacity,
		Strict:   cfg.Debug.StrictSweeps,
		Bounds:   particle.Bounds{MaxX: cfg.Simulation.WorldWidth, MaxY: cfg.Simulation.WorldHeight},
		Seed:     time.Now().UnixNano(),
		Bus:      bus,
		Log:      log.Named("particle"),
	})
	enchants := enchant.New(enchantTable, chars, parts, enchant.Options{
		Capacity:         cfg.Pools.EnchantCapacity,
		Strict:           cfg.Debug.StrictSweeps,
		StatTickInterval: cfg.Simulation.StatTickInterval,
		Bus:              bus,
		Log:              log.Named("enchant"),
	})
	grid := spatial.NewGrid(cfg.Simulation.CellSize)
	subscribeLogging(bus, log)

	// 5. Lua scripting
	luaEngine, err := scripting.NewEngine(cfg.Data.ScriptsDir, scripting.Host{
		Particles: parts,
		Enchants:  enchants,
		Chars:     chars,
	}, log.Named("lua"))
	if err != nil {
		return fmt.Errorf("lua engine: %w", err)
	}
	defer luaEngine.Close()

	// 6. Scenario
	limit := *maxTicks
	if cfg.Data.Scenario != "" {
		sc, err := data.LoadScenario(cfg.Data.Scenario)
		if err != nil {
			return fmt.Errorf("scenario: %w", err)
		}
		ids := populate(chars, sc)
		if err := luaEngine.Exec(scenarioPrelude(ids) + sc.Setup); err != nil {
			return fmt.Errorf("scenario setup: %w", err)
		}
		if limit == 0 {
			limit = sc.Ticks
		}
		log.Info("scenario loaded",
			zap.String("file", cfg.Data.Scenario),
			zap.Int("characters", len(ids)),
			zap.Int("particles", parts.Objects().UsedLen()),
			zap.Int("enchants", enchants.Objects().UsedLen()),
		)
	}

	// 7. Optional stats journal
	sources := []system.StatsSource{parts.Objects().Stats, enchants.Objects().Stats}
	var journal *system.JournalSystem
	if cfg.Database.DSN != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		db, err := persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()

		if err := persist.RunMigrations(ctx, db.Pool); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		journal = system.NewJournalSystem(persist.NewStatsRepo(db), sources, log, cfg.Database.JournalInterval)
	}

	// 8. Create systems and register with runner
	runner := coresys.NewRunner()
	runner.Register(system.NewScriptSystem(luaEngine))
	runner.Register(system.NewEventDispatchSystem(bus))
	runner.Register(system.NewParticleSystem(parts))
	runner.Register(system.NewEnchantSystem(enchants))
	runner.Register(system.NewEnchantCleanupSystem(enchants, log))
	runner.Register(system.NewOverlaySystem(chars))
	runner.Register(system.NewBroadphaseSystem(grid, parts))
	runner.Register(system.NewReportSystem(sources, log, reportInterval(cfg.Simulation.TickRate)))
	if journal != nil {
		runner.Register(journal)
	}
	runner.Register(system.NewPruneSystem(parts, enchants, log, cfg.Simulation.PruneInterval))
	runner.Register(system.NewCleanupSystem(chars, log))

	// 9. Start game loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Simulation.TickRate)
	defer ticker.Stop()

	log.Info("simulation started",
		zap.Duration("tick", cfg.Simulation.TickRate),
		zap.Int("max_ticks", limit),
	)

	for {
		select {
		case <-ticker.C:
			runner.Tick(cfg.Simulation.TickRate)
			if limit > 0 && runner.Ticks() >= uint64(limit) {
				shutdown(log, journal, runner, sources)
				return nil
			}
		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			shutdown(log, journal, runner, sources)
			return nil
		}
	}
}

func shutdown(log *zap.Logger, journal *system.JournalSystem, runner *coresys.Runner, sources []system.StatsSource) {
	if journal != nil {
		journal.Flush()
	}
	for _, src := range sources {
		st := src()
		log.Info("pool totals",
			zap.String("pool", st.Name),
			zap.Uint64("allocations", st.Allocations),
			zap.Uint64("frees", st.Frees),
			zap.Uint64("evictions", st.Evictions),
			zap.Uint64("exhausted", st.Exhausted),
			zap.Uint64("repairs", st.Repairs),
			zap.Uint64("violations", st.Violations),
		)
	}
	log.Info("simulation stopped", zap.Uint64("ticks", runner.Ticks()))
}

// reportInterval logs pool usage roughly every five seconds.
func reportInterval(tick time.Duration) int {
	if tick <= 0 {
		return 1
	}
	return max(int(5*time.Second/tick), 1)
}

func subscribeLogging(bus *event.Bus, log *zap.Logger) {
	event.Subscribe(bus, func(e event.CharacterKilled) {
		log.Info("character killed", zap.Uint64("victim", uint64(e.Victim)), zap.Uint64("killer", uint64(e.Killer)))
	})
	event.Subscribe(bus, func(e event.EnchantEnded) {
		if e.Message == "" {
			return
		}
		log.Info(e.Message, zap.Int32("enchant", e.Profile), zap.Uint64("target", uint64(e.Target)))
	})
	event.Subscribe(bus, func(e event.ParticleDropped) {
		log.Debug("particle spawn dropped", zap.Int32("profile", e.Profile), zap.Bool("forced", e.Forced))
	})
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
