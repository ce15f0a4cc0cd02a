package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Pools      PoolsConfig      `toml:"pools"`
	Simulation SimulationConfig `toml:"simulation"`
	Debug      DebugConfig      `toml:"debug"`
	Data       DataConfig       `toml:"data"`
	Logging    LoggingConfig    `toml:"logging"`
	Database   DatabaseConfig   `toml:"database"`
}

type PoolsConfig struct {
	ParticleCapacity int `toml:"particle_capacity"`
	EnchantCapacity  int `toml:"enchant_capacity"`
}

type SimulationConfig struct {
	TickRate         time.Duration `toml:"tick_rate"`
	StatTickInterval int           `toml:"stat_tick_interval"` // ticks between enchant upkeep payments
	PruneInterval    int           `toml:"prune_interval"`     // ticks between pool list repairs (0 = never)
	WorldWidth       float32       `toml:"world_width"`
	WorldHeight      float32       `toml:"world_height"`
	CellSize         float32       `toml:"cell_size"` // broad-phase and AOI cell edge
}

type DebugConfig struct {
	StrictSweeps bool `toml:"strict_sweeps"` // panic on mismatched sweep bracketing
}

type DataConfig struct {
	Particles  string `toml:"particles"`
	Enchants   string `toml:"enchants"`
	ScriptsDir string `toml:"scripts_dir"`
	Scenario   string `toml:"scenario"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

type DatabaseConfig struct {
	DSN             string        `toml:"dsn"` // empty disables the stats journal
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
	JournalInterval int           `toml:"journal_interval"` // ticks between pool samples
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes TOML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Pools.ParticleCapacity <= 0 || c.Pools.EnchantCapacity <= 0 {
		return fmt.Errorf("pools: capacities must be positive (particle=%d, enchant=%d)",
			c.Pools.ParticleCapacity, c.Pools.EnchantCapacity)
	}
	if c.Simulation.TickRate <= 0 {
		return fmt.Errorf("simulation: tick_rate must be positive")
	}
	if c.Simulation.StatTickInterval <= 0 {
		return fmt.Errorf("simulation: stat_tick_interval must be positive")
	}
	if c.Simulation.CellSize <= 0 {
		return fmt.Errorf("simulation: cell_size must be positive")
	}
	return nil
}

// Defaults returns the configuration used when a key is absent.
func Defaults() *Config {
	return &Config{
		Pools: PoolsConfig{
			ParticleCapacity: 512,
			EnchantCapacity:  128,
		},
		Simulation: SimulationConfig{
			TickRate:         20 * time.Millisecond,
			StatTickInterval: 20,
			PruneInterval:    250,
			WorldWidth:       2048,
			WorldHeight:      2048,
			CellSize:         64,
		},
		Data: DataConfig{
			Particles:  "data/yaml/particles.yaml",
			Enchants:   "data/yaml/enchants.yaml",
			ScriptsDir: "scripts",
			Scenario:   "data/yaml/scenario.yaml",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Database: DatabaseConfig{
			MaxOpenConns:    4,
			MaxIdleConns:    1,
			ConnMaxLifetime: 30 * time.Minute,
			JournalInterval: 50,
		},
	}
}
