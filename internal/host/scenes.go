package host

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/scenekit/scenetree/internal/behaviour"
	coresys "github.com/scenekit/scenetree/internal/core/system"
	"github.com/scenekit/scenetree/internal/data"
	"github.com/scenekit/scenetree/internal/scene"
)

var (
	ErrUnknownScene  = errors.New("unknown scene")
	ErrSceneLoaded   = errors.New("scene already loaded")
	ErrSceneNotFound = errors.New("scene not loaded")
	ErrNotSettled    = errors.New("scene operations still pending")
)

// Factory builds the component for one manifest object.
type Factory func(obj data.ObjectEntry) (Component, error)

type opKind int

const (
	opLoad opKind = iota
	opUnload
)

// operation implements scene.Operation. Callbacks run from Pump.
type operation struct {
	kind       opKind
	buildIndex int
	handle     behaviour.SceneHandle
	allow      bool
	wait       int
	done       bool
	err        error
	callbacks  []func(error)
}

func (o *operation) SetAllowActivation(allow bool) { o.allow = allow }

func (o *operation) OnComplete(fn func(err error)) {
	if o.done {
		fn(o.err)
		return
	}
	o.callbacks = append(o.callbacks, fn)
}

func (o *operation) complete(err error) {
	o.done = true
	o.err = err
	for _, fn := range o.callbacks {
		fn(err)
	}
	o.callbacks = nil
}

// SceneManager loads manifest scenes into a World. Loads and unloads stay
// pending for a configurable number of frames and finish inside Pump.
type SceneManager struct {
	world    *World
	manifest *data.Manifest
	build    Factory
	latency  int
	next     behaviour.SceneHandle
	loaded   map[int]behaviour.SceneHandle
	pending  []*operation
	log      *zap.Logger
}

// NewSceneManager creates a manager. latency is the number of Pump calls an
// operation waits before it can finish; 0 finishes on the next Pump.
func NewSceneManager(world *World, manifest *data.Manifest, latency int, log *zap.Logger) *SceneManager {
	if log == nil {
		log = zap.NewNop()
	}
	m := &SceneManager{
		world:    world,
		manifest: manifest,
		latency:  latency,
		next:     1,
		loaded:   make(map[int]behaviour.SceneHandle),
		log:      log,
	}
	m.build = func(obj data.ObjectEntry) (Component, error) {
		return behaviour.NewBase(obj.Name), nil
	}
	return m
}

// SetFactory replaces the component factory. The default gives every
// object a plain behaviour.
func (m *SceneManager) SetFactory(f Factory) { m.build = f }

func (m *SceneManager) Manifest() *data.Manifest { return m.manifest }

// Pending returns the number of unfinished operations.
func (m *SceneManager) Pending() int { return len(m.pending) }

// LoadAdditive implements scene.Manager.
func (m *SceneManager) LoadAdditive(buildIndex int) (scene.Operation, error) {
	if m.manifest.Scene(buildIndex) == nil {
		return nil, fmt.Errorf("load scene %d: %w", buildIndex, ErrUnknownScene)
	}
	if _, ok := m.loaded[buildIndex]; ok {
		return nil, fmt.Errorf("load scene %d: %w", buildIndex, ErrSceneLoaded)
	}
	handle := m.next
	m.next++
	m.loaded[buildIndex] = handle

	op := &operation{kind: opLoad, buildIndex: buildIndex, handle: handle, allow: true, wait: m.latency}
	m.pending = append(m.pending, op)
	m.log.Debug("scene load started", zap.Int("build_index", buildIndex), zap.Int("handle", int(handle)))
	return op, nil
}

// HandleOf implements scene.Manager.
func (m *SceneManager) HandleOf(buildIndex int) behaviour.SceneHandle {
	if h, ok := m.loaded[buildIndex]; ok {
		return h
	}
	return behaviour.InvalidSceneHandle
}

// Unload implements scene.Manager. The build index is free for a new load
// as soon as Unload returns.
func (m *SceneManager) Unload(buildIndex int) (scene.Operation, error) {
	handle, ok := m.loaded[buildIndex]
	if !ok {
		return nil, fmt.Errorf("unload scene %d: %w", buildIndex, ErrSceneNotFound)
	}
	delete(m.loaded, buildIndex)

	op := &operation{kind: opUnload, buildIndex: buildIndex, handle: handle, allow: true, wait: m.latency}
	m.pending = append(m.pending, op)
	m.log.Debug("scene unload started", zap.Int("build_index", buildIndex), zap.Int("handle", int(handle)))
	return op, nil
}

// Pump advances pending operations. Loads whose activation is allowed
// instantiate their objects; unloads destroy the scene's objects.
// Operations started by completion callbacks wait for the next Pump.
func (m *SceneManager) Pump() {
	ops := m.pending
	m.pending = nil
	var kept []*operation
	for _, op := range ops {
		if op.wait > 0 {
			op.wait--
			kept = append(kept, op)
			continue
		}
		switch op.kind {
		case opLoad:
			if !op.allow {
				kept = append(kept, op)
				continue
			}
			op.complete(m.instantiate(op.buildIndex, op.handle))
		case opUnload:
			n := m.world.DestroyScene(op.handle)
			m.log.Debug("scene objects destroyed", zap.Int("handle", int(op.handle)), zap.Int("count", n))
			op.complete(nil)
		}
	}
	m.pending = append(kept, m.pending...)
	m.world.results.poll()
}

// Settle pumps until no operation is pending, at most maxPumps times.
func (m *SceneManager) Settle(maxPumps int) error {
	for i := 0; i < maxPumps && len(m.pending) > 0; i++ {
		m.Pump()
	}
	if len(m.pending) > 0 {
		return fmt.Errorf("settle after %d pumps: %d left: %w", maxPumps, len(m.pending), ErrNotSettled)
	}
	return nil
}

// instantiate spawns the scene's objects in manifest order. A failing
// object is skipped along with everything parented to it.
func (m *SceneManager) instantiate(buildIndex int, handle behaviour.SceneHandle) error {
	entry := m.manifest.Scene(buildIndex)
	byName := make(map[string]*Object, len(entry.Objects))
	var errs []error
	for _, obj := range entry.Objects {
		var parent *Object
		if obj.Parent != "" {
			if parent = byName[obj.Parent]; parent == nil {
				errs = append(errs, fmt.Errorf("object %q: parent %q was not spawned", obj.Name, obj.Parent))
				continue
			}
		}
		comp, err := m.build(obj)
		if err != nil {
			errs = append(errs, fmt.Errorf("object %q: %w", obj.Name, err))
			continue
		}
		comp.SetRelativeTimeScale(obj.Scale())
		comp.SetEnabled(!obj.Disabled)

		o, err := m.world.Spawn(SpawnParams{
			Name:        obj.Name,
			Component:   comp,
			Parent:      parent,
			RootCapable: obj.Root,
			Scene:       handle,
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		byName[obj.Name] = o
		if obj.Paused {
			m.world.reg.Pause(comp)
		}
		if loader, ok := comp.(interface{ LoadAsync() <-chan error }); ok && obj.Load {
			m.world.results.add(obj.Name, loader.LoadAsync())
		}
	}
	if err := errors.Join(errs...); err != nil {
		m.log.Error("scene instantiated with errors", zap.String("asset", entry.AssetPath), zap.Error(err))
		return fmt.Errorf("instantiate scene %d: %w", buildIndex, err)
	}
	m.log.Info("scene activated",
		zap.String("asset", entry.AssetPath),
		zap.Int("handle", int(handle)),
		zap.Int("objects", len(byName)))
	return nil
}

// System returns the PhaseEarly system that pumps the manager.
func (m *SceneManager) System() coresys.System {
	return coresys.Func{P: coresys.PhaseEarly, Fn: func(time.Duration) { m.Pump() }}
}
