package host

import (
	"github.com/scenekit/scenetree/internal/behaviour"
)

// Component is the behaviour attached to a host object.
type Component interface {
	behaviour.Behaviour
	SetRoot(root behaviour.Behaviour)
	SetSceneHandle(handle behaviour.SceneHandle)
	SetEnabled(enabled bool)
	MarkDestroyed()
}

// Updater is implemented by components with a host Update hook.
type Updater interface {
	Update()
}

// LateUpdater is implemented by components with a host LateUpdate hook.
type LateUpdater interface {
	LateUpdate()
}

// Object is a host object: a transform node carrying one component.
type Object struct {
	name        string
	comp        Component
	parent      *Object
	children    []*Object
	rootCapable bool
	scene       behaviour.SceneHandle
	destroyed   bool
	queued      bool
}

func (o *Object) Name() string                 { return o.name }
func (o *Object) Component() Component         { return o.comp }
func (o *Object) Parent() *Object              { return o.parent }
func (o *Object) RootCapable() bool            { return o.rootCapable }
func (o *Object) Scene() behaviour.SceneHandle { return o.scene }
func (o *Object) Destroyed() bool              { return o.destroyed }

// Children returns a copy of the transform children.
func (o *Object) Children() []*Object {
	return append([]*Object(nil), o.children...)
}

// nearestRoot is the component of the closest live root-capable ancestor,
// excluding o itself.
func (o *Object) nearestRoot() behaviour.Behaviour {
	for p := o.parent; p != nil; p = p.parent {
		if p.rootCapable && !p.destroyed {
			return p.comp
		}
	}
	return nil
}

// isAncestorOf reports whether o is x or one of x's transform ancestors.
func (o *Object) isAncestorOf(x *Object) bool {
	for p := x; p != nil; p = p.parent {
		if p == o {
			return true
		}
	}
	return false
}

// subtree returns o and its descendants, parents before children.
func (o *Object) subtree() []*Object {
	out := []*Object{o}
	for i := 0; i < len(out); i++ {
		out = append(out, out[i].children...)
	}
	return out
}

func (o *Object) removeChild(c *Object) {
	for i, x := range o.children {
		if x == c {
			o.children = append(o.children[:i], o.children[i+1:]...)
			return
		}
	}
}

func sameBehaviour(a, b behaviour.Behaviour) bool {
	if behaviour.IsNil(a) || behaviour.IsNil(b) {
		return behaviour.IsNil(a) && behaviour.IsNil(b)
	}
	return a.ID() == b.ID()
}
