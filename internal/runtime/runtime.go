// Package runtime ties the behaviour tree, the scene registry, the phase
// scheduler and the event bus into the surface a host talks to.
package runtime

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/scenekit/scenetree/internal/behaviour"
	"github.com/scenekit/scenetree/internal/core/event"
	coresys "github.com/scenekit/scenetree/internal/core/system"
	"github.com/scenekit/scenetree/internal/hierarchy"
	"github.com/scenekit/scenetree/internal/metrics"
	"github.com/scenekit/scenetree/internal/scene"
	"github.com/scenekit/scenetree/internal/scheduler"
)

// Runtime is the process-level entry point. Like the tree and registry it
// wraps, it belongs to the frame loop goroutine.
type Runtime struct {
	tree      *hierarchy.Tree
	registry  *scene.Registry
	scheduler *scheduler.Scheduler
	bus       *event.Bus
	parentOf  behaviour.ParentFunc
	log       *zap.Logger
}

// New builds a runtime. m may be nil.
func New(log *zap.Logger, m *metrics.Collectors) *Runtime {
	if log == nil {
		log = zap.NewNop()
	}
	rt := &Runtime{
		bus: event.NewBus(),
		log: log,
	}
	rt.registry = scene.NewRegistry(log.Named("scene"), m)
	rt.parentOf = behaviour.ResolveParent(rt.registry.Owner)
	rt.tree = hierarchy.New(rt.parentOf,
		hierarchy.WithLogger(log.Named("tree")),
		hierarchy.WithBus(rt.bus),
		hierarchy.WithMetrics(m),
	)
	rt.scheduler = scheduler.New(rt.tree, log.Named("scheduler"), m)
	return rt
}

func (rt *Runtime) Tree() *hierarchy.Tree            { return rt.tree }
func (rt *Runtime) Registry() *scene.Registry        { return rt.registry }
func (rt *Runtime) Bus() *event.Bus                  { return rt.bus }
func (rt *Runtime) ParentFunc() behaviour.ParentFunc { return rt.parentOf }

// Install splices the scheduler's four passes into loop and adds the event
// dispatch to PhaseEarly.
func (rt *Runtime) Install(loop scheduler.Loop) {
	loop.Register(coresys.Func{P: coresys.PhaseEarly, Fn: func(time.Duration) { rt.bus.Flush() }})
	rt.scheduler.Install(loop)
}

// Register adds b to the tree. Call it when the object initialises.
func (rt *Runtime) Register(b behaviour.Behaviour) error {
	if err := rt.tree.Add(b); err != nil {
		return fmt.Errorf("register behaviour: %w", err)
	}
	return nil
}

// Unregister removes b and its subtree from the tree.
func (rt *Runtime) Unregister(b behaviour.Behaviour) error {
	if err := rt.tree.Remove(b); err != nil {
		return fmt.Errorf("unregister behaviour: %w", err)
	}
	return nil
}

// RefreshParent re-resolves b's parent after its explicit root changed.
func (rt *Runtime) RefreshParent(b behaviour.Behaviour) error {
	return rt.tree.RefreshParent(b)
}

func (rt *Runtime) Pause(b behaviour.Behaviour)         { rt.tree.Pause(b) }
func (rt *Runtime) Unpause(b behaviour.Behaviour)       { rt.tree.Unpause(b) }
func (rt *Runtime) IsPaused(b behaviour.Behaviour) bool { return rt.tree.IsPaused(b) }

func (rt *Runtime) RegisterSceneInstance(inst *scene.Instance) error {
	return rt.registry.Register(inst)
}

func (rt *Runtime) UnregisterSceneInstance(inst *scene.Instance) bool {
	return rt.registry.Unregister(inst)
}

func (rt *Runtime) FindSceneInstance(h behaviour.SceneHandle) *scene.Instance {
	return rt.registry.Find(h)
}

// NewSceneInstance creates a scene instance wired to this runtime's
// registry and bus. The caller registers it like any other behaviour.
func (rt *Runtime) NewSceneInstance(name string, buildIndex int, assetPath string, m scene.Manager) *scene.Instance {
	return scene.NewInstance(name, buildIndex, assetPath, m, rt.registry, rt.bus, rt.log.Named("scene"))
}

// TimeScale returns b's effective time scale.
func (rt *Runtime) TimeScale(b behaviour.Behaviour) float64 {
	return behaviour.TimeScale(b, rt.parentOf)
}

// DeltaTime returns the current frame delta scaled for b.
func (rt *Runtime) DeltaTime(b behaviour.Behaviour) time.Duration {
	return behaviour.DeltaTime(b, rt.parentOf, rt.scheduler.FrameDelta())
}
