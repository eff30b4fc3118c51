package hierarchy

import (
	"cogentcore.org/core/base/ordmap"

	"github.com/scenekit/scenetree/internal/behaviour"
	"github.com/scenekit/scenetree/internal/core/arena"
)

// Node is one element of the tree. Parent and child links are arena IDs,
// never owning pointers.
type Node struct {
	behaviour behaviour.Behaviour
	parent    arena.ID
	children  *ordmap.Map[arena.ID, struct{}]

	// selfPaused changes only through Pause/Unpause on this node.
	selfPaused bool
	// ancestorPaused caches "some strict ancestor is self-paused" and is kept
	// current on every structural or pause change.
	ancestorPaused bool
	// implicit marks an ancestor created on demand for a descendant. It
	// lives only while it has children, until its behaviour registers.
	implicit bool
}

func newNode(b behaviour.Behaviour, parent arena.ID) *Node {
	return &Node{
		behaviour: b,
		parent:    parent,
		children:  ordmap.New[arena.ID, struct{}](),
	}
}

// Behaviour returns the wrapped behaviour, nil for the synthetic root.
func (n *Node) Behaviour() behaviour.Behaviour { return n.behaviour }

func (n *Node) IsPaused() bool       { return n.selfPaused || n.ancestorPaused }
func (n *Node) SelfPaused() bool     { return n.selfPaused }
func (n *Node) AncestorPaused() bool { return n.ancestorPaused }

// Implicit reports whether the node exists only to hold registered
// descendants.
func (n *Node) Implicit() bool { return n.implicit }

// Synthetic reports whether the node carries no behaviour.
func (n *Node) Synthetic() bool { return n.behaviour == nil }

func (n *Node) addChild(id arena.ID) {
	n.children.Add(id, struct{}{})
}

func (n *Node) removeChild(id arena.ID) {
	n.children.DeleteKey(id)
}

func (n *Node) childIDs() []arena.ID {
	return n.children.Keys()
}

func (n *Node) NumChildren() int { return n.children.Len() }
