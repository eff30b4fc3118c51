// Package host simulates the engine side the behaviour tree plugs into:
// objects with transform parents, additive scene loading and the per-object
// Update and LateUpdate dispatch.
package host

import (
	"errors"
	"fmt"

	"cogentcore.org/core/base/ordmap"
	"go.uber.org/zap"

	"github.com/scenekit/scenetree/internal/behaviour"
)

var (
	ErrNilComponent = errors.New("nil component")
	ErrDestroyed    = errors.New("object destroyed")
	ErrCycle        = errors.New("object would become its own ancestor")
)

// Registrar is the part of the runtime the host drives as objects come and
// go.
type Registrar interface {
	Register(b behaviour.Behaviour) error
	Unregister(b behaviour.Behaviour) error
	RefreshParent(b behaviour.Behaviour) error
	Pause(b behaviour.Behaviour)
}

// SpawnParams describes a new object. Scene is ignored when Parent is set:
// children live in their parent's scene.
type SpawnParams struct {
	Name        string
	Component   Component
	Parent      *Object
	RootCapable bool
	Scene       behaviour.SceneHandle
}

// World owns every live object, in spawn order, and a deferred destruction
// queue flushed by CleanupSystem each frame.
type World struct {
	reg          Registrar
	objects      *ordmap.Map[behaviour.ID, *Object]
	destroyQueue []*Object
	results      watches
	log          *zap.Logger
}

func NewWorld(reg Registrar, log *zap.Logger) *World {
	if log == nil {
		log = zap.NewNop()
	}
	return &World{
		reg:          reg,
		objects:      ordmap.New[behaviour.ID, *Object](),
		destroyQueue: make([]*Object, 0, 16),
		results:      watches{log: log},
		log:          log,
	}
}

func (w *World) Len() int { return w.objects.Len() }

// Objects returns the live objects in spawn order.
func (w *World) Objects() []*Object {
	return append([]*Object(nil), w.objects.Values()...)
}

// Find returns the first live object with the given name.
func (w *World) Find(name string) *Object {
	for _, o := range w.objects.Values() {
		if o.name == name {
			return o
		}
	}
	return nil
}

// Spawn creates an object and registers its component. The explicit root
// is set before registration so the component lands under it.
func (w *World) Spawn(p SpawnParams) (*Object, error) {
	if behaviour.IsNil(p.Component) {
		return nil, fmt.Errorf("spawn %q: %w", p.Name, ErrNilComponent)
	}
	if p.Parent != nil && p.Parent.destroyed {
		return nil, fmt.Errorf("spawn %q under %q: %w", p.Name, p.Parent.name, ErrDestroyed)
	}
	o := &Object{
		name:        p.Name,
		comp:        p.Component,
		parent:      p.Parent,
		rootCapable: p.RootCapable,
		scene:       p.Scene,
	}
	if p.Parent != nil {
		o.scene = p.Parent.scene
		p.Parent.children = append(p.Parent.children, o)
	}
	o.comp.SetSceneHandle(o.scene)
	o.comp.SetRoot(o.nearestRoot())
	w.objects.Add(o.comp.ID(), o)

	if err := w.reg.Register(o.comp); err != nil {
		w.objects.DeleteKey(o.comp.ID())
		if o.parent != nil {
			o.parent.removeChild(o)
		}
		return nil, fmt.Errorf("spawn %q: %w", p.Name, err)
	}
	w.log.Debug("object spawned",
		zap.String("name", o.name),
		zap.Int("scene", int(o.scene)),
		zap.Bool("root", o.rootCapable))
	return o, nil
}

// SetParent moves o under parent (nil detaches it). Every object in o's
// subtree whose explicit root or scene changed has its tree parent
// refreshed.
func (w *World) SetParent(o, parent *Object) error {
	if o.destroyed || (parent != nil && parent.destroyed) {
		return fmt.Errorf("set parent of %q: %w", o.name, ErrDestroyed)
	}
	if parent != nil && o.isAncestorOf(parent) {
		return fmt.Errorf("set parent of %q to %q: %w", o.name, parent.name, ErrCycle)
	}
	if o.parent == parent {
		return nil
	}
	if o.parent != nil {
		o.parent.removeChild(o)
	}
	o.parent = parent
	scene := o.scene
	if parent != nil {
		parent.children = append(parent.children, o)
		scene = parent.scene
	}

	var errs []error
	for _, x := range o.subtree() {
		root := x.nearestRoot()
		if sameBehaviour(root, x.comp.Root()) && x.scene == scene {
			continue
		}
		x.scene = scene
		x.comp.SetSceneHandle(scene)
		x.comp.SetRoot(root)
		if err := w.reg.RefreshParent(x.comp); err != nil {
			errs = append(errs, fmt.Errorf("refresh %q: %w", x.name, err))
		}
	}
	return errors.Join(errs...)
}

// Destroy queues o and its subtree for destruction at the end of the frame.
func (w *World) Destroy(o *Object) {
	if o == nil || o.destroyed || o.queued {
		return
	}
	o.queued = true
	w.destroyQueue = append(w.destroyQueue, o)
}

// DestroyImmediate destroys o and its subtree now: components are marked
// destroyed and unregistered, scene instances unload their scene.
func (w *World) DestroyImmediate(o *Object) {
	if o == nil || o.destroyed {
		return
	}
	if o.parent != nil {
		o.parent.removeChild(o)
	}
	for _, x := range o.subtree() {
		x.destroyed = true
		if owner, ok := x.comp.(interface{ Destroy() <-chan error }); ok {
			w.results.add(x.name, owner.Destroy())
		} else {
			x.comp.MarkDestroyed()
		}
		if err := w.reg.Unregister(x.comp); err != nil {
			w.log.Warn("unregister destroyed object", zap.String("name", x.name), zap.Error(err))
		}
		w.objects.DeleteKey(x.comp.ID())
	}
	w.log.Debug("object destroyed", zap.String("name", o.name))
}

// DestroyScene destroys every object living in the scene.
func (w *World) DestroyScene(handle behaviour.SceneHandle) int {
	n := 0
	for _, o := range w.Objects() {
		if o.destroyed || o.scene != handle {
			continue
		}
		if o.parent != nil && o.parent.scene == handle {
			continue // goes with its parent
		}
		w.DestroyImmediate(o)
		n++
	}
	return n
}

// FlushDestroyQueue destroys all queued objects.
// Called by CleanupSystem at the end of each frame.
func (w *World) FlushDestroyQueue() {
	for _, o := range w.destroyQueue {
		w.DestroyImmediate(o)
	}
	w.destroyQueue = w.destroyQueue[:0]
	w.results.poll()
}
