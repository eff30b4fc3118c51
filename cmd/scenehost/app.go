package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/scenekit/scenetree/internal/config"
	coresys "github.com/scenekit/scenetree/internal/core/system"
	"github.com/scenekit/scenetree/internal/data"
	"github.com/scenekit/scenetree/internal/host"
	"github.com/scenekit/scenetree/internal/metrics"
	"github.com/scenekit/scenetree/internal/runtime"
	"github.com/scenekit/scenetree/internal/scripting"
)

const envConfigHint = "$" + config.EnvPath + " wins when set"

// settleLimit bounds the pumps spent finishing scene operations outside the
// frame loop.
const settleLimit = 64

// app is the fully wired process: runtime, host, scripts and frame runner.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	rt       *runtime.Runtime
	world    *host.World
	scenes   *host.SceneManager
	scripts  *scripting.Engine
	runner   *coresys.Runner
	metrics  *metrics.Collectors
	gatherer prometheus.Gatherer
	reloads  chan string
}

func loadConfig() (*config.Config, error) {
	if configPath == "" && os.Getenv(config.EnvPath) == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

func newApp(cfg *config.Config) (*app, error) {
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &app{cfg: cfg, log: log, runner: coresys.NewRunner()}
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		m, err := metrics.New(reg)
		if err != nil {
			return nil, fmt.Errorf("init metrics: %w", err)
		}
		a.metrics, a.gatherer = m, reg
	}

	manifest, err := data.LoadManifest(cfg.Scenes.Manifest)
	if err != nil {
		return nil, fmt.Errorf("load scenes: %w", err)
	}
	log.Info("scene manifest loaded", zap.String("path", cfg.Scenes.Manifest), zap.Int("scenes", manifest.Count()))

	a.rt = runtime.New(log, a.metrics)
	a.scripts = scripting.NewEngine(a.rt, log.Named("lua"))
	if err := a.scripts.LoadDir(cfg.Scripting.Dir); err != nil {
		a.scripts.Close()
		return nil, fmt.Errorf("load scripts: %w", err)
	}
	log.Info("lua classes loaded", zap.Strings("classes", a.scripts.Classes()))

	a.world = host.NewWorld(a.rt, log.Named("host"))
	a.scenes = host.NewSceneManager(a.world, manifest, cfg.Host.LoadLatency, log.Named("host"))
	a.scenes.SetFactory(host.NewFactory(a.rt, a.scripts, a.scenes))

	// early phase: last frame's events, then scene operations
	a.rt.Install(a.runner)
	host.Install(a.runner, a.world, a.scenes)
	return a, nil
}

// watchScripts starts the hot reload watcher. Reloads are applied on the
// frame goroutine in the early phase.
func (a *app) watchScripts(ctx context.Context) error {
	a.reloads = make(chan string, 16)
	if err := scripting.Watch(ctx, a.cfg.Scripting.Dir, a.reloads, a.log.Named("lua")); err != nil {
		return err
	}
	a.runner.Register(coresys.Func{P: coresys.PhaseEarly, Fn: func(time.Duration) {
		a.scripts.ApplyReloads(a.reloads)
	}})
	return nil
}

// loadStartup starts loading the configured startup scenes.
func (a *app) loadStartup() error {
	for _, bi := range a.cfg.Scenes.Startup {
		if _, err := a.scenes.LoadAdditive(bi); err != nil {
			return fmt.Errorf("startup scene: %w", err)
		}
	}
	return nil
}

// unloadAll unloads the startup scenes and finishes the resulting
// operations. Nested scenes go with the instances owning them.
func (a *app) unloadAll() error {
	for _, bi := range a.cfg.Scenes.Startup {
		if a.scenes.HandleOf(bi) < 0 {
			continue
		}
		if _, err := a.scenes.Unload(bi); err != nil {
			return err
		}
	}
	return a.scenes.Settle(settleLimit)
}

func (a *app) close() {
	a.scripts.Close()
	_ = a.log.Sync()
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
