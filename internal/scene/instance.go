package scene

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/scenekit/scenetree/internal/behaviour"
	"github.com/scenekit/scenetree/internal/core/event"
)

// InvalidBuildIndex marks an instance with no scene assigned.
const InvalidBuildIndex = -1

// Manager is the host's scene loading primitive.
type Manager interface {
	// LoadAdditive starts loading the scene at buildIndex next to the
	// already loaded ones. The handle of the new scene must be available
	// from HandleOf as soon as LoadAdditive returns.
	LoadAdditive(buildIndex int) (Operation, error)
	HandleOf(buildIndex int) behaviour.SceneHandle
	Unload(buildIndex int) (Operation, error)
}

// Operation is an in-flight load or unload.
type Operation interface {
	// SetAllowActivation gates object initialisation of a loading scene.
	// Unload operations ignore it.
	SetAllowActivation(allow bool)
	// OnComplete registers fn to run on the frame loop goroutine once the
	// operation has finished.
	OnComplete(fn func(err error))
}

// Instance is a behaviour that owns a scene. Objects of that scene without
// an explicit root resolve to it as their parent.
type Instance struct {
	*behaviour.Base

	buildIndex int
	assetPath  string
	handle     behaviour.SceneHandle

	manager  Manager
	registry *Registry
	bus      *event.Bus
	log      *zap.Logger
}

// NewInstance creates an unloaded scene instance for the scene at
// buildIndex. bus may be nil.
func NewInstance(name string, buildIndex int, assetPath string, m Manager, reg *Registry, bus *event.Bus, log *zap.Logger) *Instance {
	if log == nil {
		log = zap.NewNop()
	}
	return &Instance{
		Base:       behaviour.NewBase(name),
		buildIndex: buildIndex,
		assetPath:  assetPath,
		handle:     behaviour.InvalidSceneHandle,
		manager:    m,
		registry:   reg,
		bus:        bus,
		log:        log,
	}
}

// Handle returns the handle of the owned scene, InvalidSceneHandle when not
// loaded. SceneHandle (from Base) is the scene this instance itself lives in.
func (s *Instance) Handle() behaviour.SceneHandle { return s.handle }

func (s *Instance) BuildIndex() int   { return s.buildIndex }
func (s *Instance) AssetPath() string { return s.assetPath }

func (s *Instance) IsLoaded() bool { return s.handle != behaviour.InvalidSceneHandle }

// LoadAsync starts loading the owned scene. The instance is registered
// under the new handle before the scene's objects are allowed to
// initialise, so they can resolve it as their parent. The returned channel
// yields the load result once and is then closed.
func (s *Instance) LoadAsync() <-chan error {
	if s.IsLoaded() {
		return done(nil)
	}
	if s.buildIndex < 0 {
		s.log.Error("scene can't be loaded", zap.String("name", s.Name()), zap.Error(ErrInvalidScene))
		return done(fmt.Errorf("load scene %q: %w", s.Name(), ErrInvalidScene))
	}

	op, err := s.manager.LoadAdditive(s.buildIndex)
	if err != nil {
		return done(fmt.Errorf("load scene %q: %w", s.Name(), err))
	}

	op.SetAllowActivation(false)
	s.handle = s.manager.HandleOf(s.buildIndex)
	regErr := s.registry.Register(s)
	if regErr != nil {
		s.log.Error("scene instance registration failed", zap.String("name", s.Name()), zap.Error(regErr))
	}
	op.SetAllowActivation(true)

	result := make(chan error, 1)
	op.OnComplete(func(err error) {
		if err == nil {
			err = regErr
		}
		if err == nil {
			s.log.Info("scene loaded", zap.String("asset", s.assetPath), zap.Int("handle", int(s.handle)))
			event.Emit(s.bus, event.SceneLoaded{Handle: int(s.handle), BuildIndex: s.buildIndex, AssetPath: s.assetPath})
		} else {
			err = fmt.Errorf("load scene %q: %w", s.Name(), err)
		}
		result <- err
		close(result)
	})
	return result
}

// UnloadAsync unregisters the instance, forgets the handle and then starts
// unloading the owned scene. Unloading a scene that is not loaded is a
// no-op.
func (s *Instance) UnloadAsync() <-chan error {
	if !s.IsLoaded() {
		return done(nil)
	}
	if s.buildIndex < 0 {
		s.log.Error("scene can't be unloaded", zap.String("name", s.Name()), zap.Error(ErrInvalidScene))
		return done(fmt.Errorf("unload scene %q: %w", s.Name(), ErrInvalidScene))
	}

	s.registry.Unregister(s)
	s.handle = behaviour.InvalidSceneHandle

	op, err := s.manager.Unload(s.buildIndex)
	if err != nil {
		return done(fmt.Errorf("unload scene %q: %w", s.Name(), err))
	}

	result := make(chan error, 1)
	op.OnComplete(func(err error) {
		if err == nil {
			s.log.Info("scene unloaded", zap.String("asset", s.assetPath))
			event.Emit(s.bus, event.SceneUnloaded{BuildIndex: s.buildIndex, AssetPath: s.assetPath})
		} else {
			err = fmt.Errorf("unload scene %q: %w", s.Name(), err)
		}
		result <- err
		close(result)
	})
	return result
}

// Destroy unloads the owned scene if loaded and marks the instance gone.
func (s *Instance) Destroy() <-chan error {
	ch := s.UnloadAsync()
	s.MarkDestroyed()
	return ch
}

func done(err error) <-chan error {
	ch := make(chan error, 1)
	ch <- err
	close(ch)
	return ch
}

func sortByHandle(list []*Instance) {
	sort.Slice(list, func(i, j int) bool { return list[i].handle < list[j].handle })
}
