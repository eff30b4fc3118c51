package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// EnvPath overrides the config path given on the command line.
const EnvPath = "SCENETREE_CONFIG"

type Config struct {
	Host      HostConfig      `toml:"host"`
	Scenes    ScenesConfig    `toml:"scenes"`
	Scripting ScriptingConfig `toml:"scripting"`
	Logging   LoggingConfig   `toml:"logging"`
	Metrics   MetricsConfig   `toml:"metrics"`
}

type HostConfig struct {
	FrameRate time.Duration `toml:"frame_rate"` // wall-clock time between frames
	MaxFrames int           `toml:"max_frames"` // 0 = run until signalled
	// DeltaTime is the simulated frame delta; 0 uses the measured wall time.
	DeltaTime time.Duration `toml:"delta_time"`
	// LoadLatency is how many frames a scene load or unload stays pending.
	LoadLatency int `toml:"load_latency"`
}

type ScenesConfig struct {
	Manifest string `toml:"manifest"`
	Startup  []int  `toml:"startup"` // build indices loaded at boot
}

type ScriptingConfig struct {
	Dir       string `toml:"dir"`
	HotReload bool   `toml:"hot_reload"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

type MetricsConfig struct {
	Enabled    bool `toml:"enabled"`
	DumpOnExit bool `toml:"dump_on_exit"`
}

// Load reads the TOML file at path over the defaults. When SCENETREE_CONFIG
// is set it wins over path.
func Load(path string) (*Config, error) {
	if p := os.Getenv(EnvPath); p != "" {
		path = p
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return defaults()
}

func (c *Config) validate() error {
	if c.Host.FrameRate <= 0 {
		return fmt.Errorf("host.frame_rate must be positive, got %s", c.Host.FrameRate)
	}
	if c.Host.MaxFrames < 0 {
		return fmt.Errorf("host.max_frames must not be negative, got %d", c.Host.MaxFrames)
	}
	if c.Host.DeltaTime < 0 {
		return fmt.Errorf("host.delta_time must not be negative, got %s", c.Host.DeltaTime)
	}
	if c.Host.LoadLatency < 0 {
		return fmt.Errorf("host.load_latency must not be negative, got %d", c.Host.LoadLatency)
	}
	return nil
}

func defaults() *Config {
	return &Config{
		Host: HostConfig{
			FrameRate:   16 * time.Millisecond,
			LoadLatency: 1,
		},
		Scenes: ScenesConfig{
			Manifest: "data/scenes.yaml",
			Startup:  []int{0},
		},
		Scripting: ScriptingConfig{
			Dir: "scripts",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}
