package scene

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/scenekit/scenetree/internal/behaviour"
	"github.com/scenekit/scenetree/internal/metrics"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrDuplicateHandle = errors.New("scene handle already registered")
	ErrInvalidScene    = errors.New("scene not set or not in the scene list")
)

// Registry maps loaded scene handles to the instance that owns each scene.
// Owned by the frame loop goroutine.
type Registry struct {
	byHandle map[behaviour.SceneHandle]*Instance
	log      *zap.Logger
	metrics  *metrics.Collectors
}

func NewRegistry(log *zap.Logger, m *metrics.Collectors) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		byHandle: make(map[behaviour.SceneHandle]*Instance),
		log:      log,
		metrics:  m,
	}
}

// Register records inst under its current scene handle. The handle must be
// valid and not already taken.
func (r *Registry) Register(inst *Instance) error {
	if inst == nil {
		return fmt.Errorf("register scene instance: %w", ErrInvalidArgument)
	}
	h := inst.Handle()
	if h == behaviour.InvalidSceneHandle {
		return fmt.Errorf("register scene instance %q: %w", inst.Name(), ErrInvalidArgument)
	}
	if prev, ok := r.byHandle[h]; ok {
		return fmt.Errorf("register scene instance %q (handle %d held by %q): %w",
			inst.Name(), h, prev.Name(), ErrDuplicateHandle)
	}
	r.byHandle[h] = inst
	r.metrics.SetScenes(len(r.byHandle))
	r.log.Info("scene instance registered", zap.String("name", inst.Name()), zap.Int("handle", int(h)))
	return nil
}

// Unregister drops inst's handle. It reports whether an entry was removed;
// a missing handle is logged as a warning.
func (r *Registry) Unregister(inst *Instance) bool {
	if inst == nil {
		return false
	}
	h := inst.Handle()
	if cur, ok := r.byHandle[h]; !ok || cur != inst {
		r.log.Warn("scene instance not found", zap.String("name", inst.Name()), zap.Int("handle", int(h)))
		return false
	}
	delete(r.byHandle, h)
	r.metrics.SetScenes(len(r.byHandle))
	r.log.Info("scene instance unregistered", zap.String("name", inst.Name()), zap.Int("handle", int(h)))
	return true
}

// Find returns the instance owning the scene, or nil.
func (r *Registry) Find(h behaviour.SceneHandle) *Instance {
	return r.byHandle[h]
}

// Owner is Find typed for behaviour.ResolveParent.
func (r *Registry) Owner(h behaviour.SceneHandle) behaviour.Behaviour {
	if inst := r.byHandle[h]; inst != nil {
		return inst
	}
	return nil
}

// All returns every registered instance that has not been destroyed,
// ordered by handle.
func (r *Registry) All() []*Instance {
	out := make([]*Instance, 0, len(r.byHandle))
	for _, inst := range r.byHandle {
		if inst.Destroyed() {
			continue
		}
		out = append(out, inst)
	}
	sortByHandle(out)
	return out
}

func (r *Registry) Len() int { return len(r.byHandle) }
