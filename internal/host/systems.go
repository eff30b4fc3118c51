package host

import (
	"time"

	coresys "github.com/scenekit/scenetree/internal/core/system"
)

// UpdateSystem is the host's per-object Update dispatch.
// Phase 2 (Update). Pause does not apply here: it only gates the tree's
// own passes.
type UpdateSystem struct {
	world *World
}

func NewUpdateSystem(world *World) *UpdateSystem {
	return &UpdateSystem{world: world}
}

func (s *UpdateSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *UpdateSystem) Update(_ time.Duration) {
	for _, o := range s.world.Objects() {
		if o.destroyed || !o.comp.ActiveAndEnabled() {
			continue
		}
		if u, ok := o.comp.(Updater); ok {
			u.Update()
		}
	}
}

// LateUpdateSystem is the host's per-object LateUpdate dispatch.
// Phase 5 (LateUpdate).
type LateUpdateSystem struct {
	world *World
}

func NewLateUpdateSystem(world *World) *LateUpdateSystem {
	return &LateUpdateSystem{world: world}
}

func (s *LateUpdateSystem) Phase() coresys.Phase { return coresys.PhaseLateUpdate }

func (s *LateUpdateSystem) Update(_ time.Duration) {
	for _, o := range s.world.Objects() {
		if o.destroyed || !o.comp.ActiveAndEnabled() {
			continue
		}
		if u, ok := o.comp.(LateUpdater); ok {
			u.LateUpdate()
		}
	}
}

// CleanupSystem flushes the deferred object destruction queue at frame end.
// Phase 7 (Cleanup).
type CleanupSystem struct {
	world *World
}

func NewCleanupSystem(world *World) *CleanupSystem {
	return &CleanupSystem{world: world}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	s.world.FlushDestroyQueue()
}

// Loop is the frame loop the host systems register on.
type Loop interface {
	Register(s coresys.System)
}

// Install registers the scene pump and the host dispatch systems on loop.
func Install(loop Loop, world *World, scenes *SceneManager) {
	if scenes != nil {
		loop.Register(scenes.System())
	}
	loop.Register(NewUpdateSystem(world))
	loop.Register(NewLateUpdateSystem(world))
	loop.Register(NewCleanupSystem(world))
}
