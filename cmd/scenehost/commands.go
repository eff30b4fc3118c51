package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scenekit/scenetree/internal/metrics"
)

func runHost(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if maxFrames >= 0 {
		cfg.Host.MaxFrames = maxFrames
	}
	if dumpMetrics {
		cfg.Metrics.Enabled = true
		cfg.Metrics.DumpOnExit = true
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()
	log := a.log

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	if cfg.Scripting.HotReload {
		if err := a.watchScripts(ctx); err != nil {
			log.Warn("script hot reload disabled", zap.Error(err))
		}
	}
	if err := a.loadStartup(); err != nil {
		return err
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(shutdownCh)

	ticker := time.NewTicker(cfg.Host.FrameRate)
	defer ticker.Stop()

	log.Info("frame loop started",
		zap.Duration("frame_rate", cfg.Host.FrameRate),
		zap.Int("max_frames", cfg.Host.MaxFrames))

	last := time.Now()
	for {
		select {
		case now := <-ticker.C:
			dt := cfg.Host.DeltaTime
			if dt == 0 {
				dt = now.Sub(last)
			}
			last = now
			a.runner.Tick(dt)
			if cfg.Host.MaxFrames > 0 && a.runner.Frame() >= uint64(cfg.Host.MaxFrames) {
				log.Info("frame limit reached", zap.Uint64("frames", a.runner.Frame()))
				return a.shutdown(cmd)
			}
		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			return a.shutdown(cmd)
		}
	}
}

func (a *app) shutdown(cmd *cobra.Command) error {
	loaded := a.rt.Registry().All()
	names := make([]string, 0, len(loaded))
	for _, inst := range loaded {
		names = append(names, inst.Name())
	}
	a.log.Info("unloading scenes", zap.Strings("instances", names))
	if err := a.unloadAll(); err != nil {
		a.log.Error("scene unload on shutdown", zap.Error(err))
	}
	a.log.Info("host stopped",
		zap.Uint64("frames", a.runner.Frame()),
		zap.Int("nodes", a.rt.Tree().Len()))
	if a.cfg.Metrics.DumpOnExit && a.gatherer != nil {
		return metrics.Dump(a.gatherer, cmd.OutOrStdout())
	}
	return nil
}

func printTree(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.loadStartup(); err != nil {
		return err
	}
	if err := a.scenes.Settle(settleLimit); err != nil {
		return err
	}
	if allScenes {
		for _, entry := range a.scenes.Manifest().Scenes() {
			if a.scenes.HandleOf(entry.BuildIndex) >= 0 {
				continue
			}
			if _, err := a.scenes.LoadAdditive(entry.BuildIndex); err != nil {
				return err
			}
		}
		if err := a.scenes.Settle(settleLimit); err != nil {
			return err
		}
	}
	if err := a.rt.Tree().Validate(); err != nil {
		return fmt.Errorf("tree invariants: %w", err)
	}
	if err := a.rt.Tree().Dump(cmd.OutOrStdout()); err != nil {
		return err
	}
	if listScenes {
		return a.printScenes(cmd.OutOrStdout())
	}
	return nil
}

// printScenes lists the loaded scene instances by handle.
func (a *app) printScenes(w io.Writer) error {
	if _, err := fmt.Fprintln(w, "scene instances:"); err != nil {
		return err
	}
	for _, inst := range a.rt.Registry().All() {
		if _, err := fmt.Fprintf(w, "  %d %s build=%d asset=%s\n",
			inst.Handle(), inst.Name(), inst.BuildIndex(), inst.AssetPath()); err != nil {
			return err
		}
	}
	return nil
}
