package hierarchy

import (
	"go.uber.org/zap"

	"github.com/scenekit/scenetree/internal/behaviour"
	"github.com/scenekit/scenetree/internal/core/arena"
	"github.com/scenekit/scenetree/internal/core/event"
)

// Pause sets b's own pause flag. OnPause fires on b and on every descendant
// that was not already effectively paused. Unknown or nil behaviours are
// ignored.
func (t *Tree) Pause(b behaviour.Behaviour) {
	id, ok := t.lookup(b)
	if !ok {
		return
	}
	n := t.nodes.MustGet(id)
	if n.selfPaused {
		return
	}
	n.selfPaused = true

	// An ancestor pause already reached this subtree.
	if n.ancestorPaused {
		return
	}
	t.notifyPause(n)
	for _, cid := range n.childIDs() {
		t.onAncestorPaused(cid)
	}
}

// Unpause clears b's own pause flag. OnUnpause fires on b and on every
// descendant that is no longer paused by anything.
func (t *Tree) Unpause(b behaviour.Behaviour) {
	id, ok := t.lookup(b)
	if !ok {
		return
	}
	n := t.nodes.MustGet(id)
	if !n.selfPaused {
		return
	}
	n.selfPaused = false

	if n.ancestorPaused {
		return
	}
	t.notifyUnpause(n)
	for _, cid := range n.childIDs() {
		t.onAncestorUnpaused(cid)
	}
}

// IsPaused reports b's effective pause state. Unknown behaviours are not
// paused.
func (t *Tree) IsPaused(b behaviour.Behaviour) bool {
	n, ok := t.Find(b)
	if !ok {
		return false
	}
	return n.IsPaused()
}

func (t *Tree) onAncestorPaused(id arena.ID) {
	n, ok := t.nodes.Get(id)
	if !ok || n.ancestorPaused {
		return
	}
	n.ancestorPaused = true

	// Self-paused: descendants already carry the flag from our own pause.
	if n.selfPaused {
		return
	}
	t.notifyPause(n)
	for _, cid := range n.childIDs() {
		t.onAncestorPaused(cid)
	}
}

func (t *Tree) onAncestorUnpaused(id arena.ID) {
	n, ok := t.nodes.Get(id)
	if !ok || !n.ancestorPaused {
		return
	}
	// Another ancestor may still hold its own pause.
	n.ancestorPaused = t.pausedAbove(n)
	if n.ancestorPaused || n.selfPaused {
		return
	}
	t.notifyUnpause(n)
	for _, cid := range n.childIDs() {
		t.onAncestorUnpaused(cid)
	}
}

// pausedAbove walks every strict ancestor of n looking for a self pause.
// It does not trust cached flags.
func (t *Tree) pausedAbove(n *Node) bool {
	for cur := n.parent; !cur.IsZero(); {
		p, ok := t.nodes.Get(cur)
		if !ok {
			return false
		}
		if p.selfPaused {
			return true
		}
		cur = p.parent
	}
	return false
}

func (t *Tree) notifyPause(n *Node) {
	if n.behaviour == nil {
		return
	}
	t.metrics.ObserveTransition("pause")
	event.Emit(t.bus, event.NodePaused{BehaviourID: uint64(n.behaviour.ID()), Name: n.behaviour.Name()})
	t.invoke("on_pause", n.behaviour, n.behaviour.OnPause)
}

func (t *Tree) notifyUnpause(n *Node) {
	if n.behaviour == nil {
		return
	}
	t.metrics.ObserveTransition("unpause")
	event.Emit(t.bus, event.NodeUnpaused{BehaviourID: uint64(n.behaviour.ID()), Name: n.behaviour.Name()})
	t.invoke("on_unpause", n.behaviour, n.behaviour.OnUnpause)
}

// invoke runs a behaviour hook. A panic is logged and swallowed; propagation
// carries on.
func (t *Tree) invoke(hook string, b behaviour.Behaviour, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			t.log.Error("behaviour hook panicked",
				zap.String("hook", hook), zap.String("name", b.Name()), zap.Any("panic", r))
		}
	}()
	fn()
}
