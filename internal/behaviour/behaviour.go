// Package behaviour defines the contract every tree element satisfies:
// identity, the explicit root reference, owning scene, relative time scale,
// the active query and the frame and pause hooks.
package behaviour

import (
	"sync/atomic"
)

// ID is the stable per-instance identity of a behaviour.
type ID uint64

// SceneHandle identifies a loaded scene. Handles are allocated by the host.
type SceneHandle int

// InvalidSceneHandle marks an object or scene instance with no loaded scene.
const InvalidSceneHandle SceneHandle = -1

var lastID atomic.Uint64

// NewID returns a process-unique behaviour identity. Never zero.
func NewID() ID {
	return ID(lastID.Add(1))
}

// Behaviour is the capability set the hierarchy and scheduler consume.
type Behaviour interface {
	ID() ID
	Name() string

	// Root is the explicit root reference set by the embedding environment,
	// usually the nearest ancestor object that is itself root-capable.
	Root() Behaviour
	// SceneHandle is the handle of the scene that owns this object.
	SceneHandle() SceneHandle

	RelativeTimeScale() float64
	SetRelativeTimeScale(scale float64)

	ActiveAndEnabled() bool
	// Destroyed reports that the underlying object is gone even though the
	// Go value may still be referenced.
	Destroyed() bool

	BeforeUpdate()
	AfterUpdate()
	BeforeLateUpdate()
	AfterLateUpdate()

	OnPause()
	OnUnpause()
}
