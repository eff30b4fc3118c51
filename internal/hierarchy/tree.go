// Package hierarchy owns the behaviour tree: node creation with lazy
// ancestor materialisation, cascade removal, reparenting, and pause
// propagation with cached ancestor state.
//
// A Tree is not safe for concurrent use. It is owned by the frame loop
// goroutine; hooks fire synchronously inside the mutating call.
package hierarchy

import (
	"errors"
	"fmt"

	"cogentcore.org/core/base/ordmap"
	"go.uber.org/zap"

	"github.com/scenekit/scenetree/internal/behaviour"
	"github.com/scenekit/scenetree/internal/core/arena"
	"github.com/scenekit/scenetree/internal/core/event"
	"github.com/scenekit/scenetree/internal/metrics"
)

var (
	// ErrInvalidArgument is returned for nil behaviours on mutating calls.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrCycle is returned when a parent chain loops back on itself or
	// would place a node under its own descendant.
	ErrCycle = errors.New("parent chain cycle")
)

// MaxDepth bounds the external ancestor chain walked during resolution.
const MaxDepth = 256

// Tree is the behaviour hierarchy.
type Tree struct {
	nodes    *arena.Arena[Node]
	root     arena.ID
	byID     *ordmap.Map[behaviour.ID, arena.ID]
	parentOf behaviour.ParentFunc

	log     *zap.Logger
	bus     *event.Bus
	metrics *metrics.Collectors
}

// Option configures a Tree.
type Option func(*Tree)

func WithLogger(log *zap.Logger) Option { return func(t *Tree) { t.log = log } }

// WithBus makes the tree emit NodePaused/NodeUnpaused on every transition.
func WithBus(bus *event.Bus) Option { return func(t *Tree) { t.bus = bus } }

func WithMetrics(m *metrics.Collectors) Option { return func(t *Tree) { t.metrics = m } }

// New creates an empty tree. parentOf resolves a behaviour's implicit
// parent; nil treats every behaviour as top level.
func New(parentOf behaviour.ParentFunc, opts ...Option) *Tree {
	if parentOf == nil {
		parentOf = func(behaviour.Behaviour) behaviour.Behaviour { return nil }
	}
	t := &Tree{
		nodes:    arena.New[Node](),
		byID:     ordmap.New[behaviour.ID, arena.ID](),
		parentOf: parentOf,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.root = t.nodes.Insert(newNode(nil, 0))
	return t
}

// Len returns the number of registered behaviours (the synthetic root is
// not counted).
func (t *Tree) Len() int { return t.byID.Len() }

// Contains reports whether b has a node.
func (t *Tree) Contains(b behaviour.Behaviour) bool {
	_, ok := t.lookup(b)
	return ok
}

// Find returns b's node.
func (t *Tree) Find(b behaviour.Behaviour) (*Node, bool) {
	id, ok := t.lookup(b)
	if !ok {
		return nil, false
	}
	return t.nodes.Get(id)
}

// ParentOf returns the behaviour of b's parent node, nil when b is top level
// or unknown.
func (t *Tree) ParentOf(b behaviour.Behaviour) behaviour.Behaviour {
	n, ok := t.Find(b)
	if !ok {
		return nil
	}
	p, ok := t.nodes.Get(n.parent)
	if !ok {
		return nil
	}
	return p.behaviour
}

// ChildrenOf returns the behaviours directly under b, in insertion order.
func (t *Tree) ChildrenOf(b behaviour.Behaviour) []behaviour.Behaviour {
	n, ok := t.Find(b)
	if !ok {
		return nil
	}
	out := make([]behaviour.Behaviour, 0, n.NumChildren())
	for _, cid := range n.childIDs() {
		if c, ok := t.nodes.Get(cid); ok {
			out = append(out, c.behaviour)
		}
	}
	return out
}

// Add registers b. Adding an already registered behaviour is a no-op.
// Ancestors returned by the parent resolver that have no node yet are
// created on the way as implicit nodes, so registration order between a
// parent and its descendants does not matter. Adding a behaviour that only
// has an implicit node makes it registered in place.
func (t *Tree) Add(b behaviour.Behaviour) error {
	if behaviour.IsNil(b) {
		return fmt.Errorf("add node: %w", ErrInvalidArgument)
	}
	if id, ok := t.lookup(b); ok {
		if n := t.nodes.MustGet(id); n.implicit {
			n.implicit = false
			t.log.Debug("implicit node registered", zap.String("name", b.Name()))
		}
		return nil
	}
	chain, anchor, err := t.findAnchor(b)
	if err != nil {
		return fmt.Errorf("add node %q: %w", b.Name(), err)
	}
	parent := t.materialize(chain, anchor)
	t.attachNew(b, parent)
	t.log.Debug("node added", zap.String("name", b.Name()), zap.Uint64("id", uint64(b.ID())))
	return nil
}

// Remove unregisters b together with its whole subtree. Removing an unknown
// behaviour is a no-op; a later Remove of a descendant is a no-op too.
// Implicit ancestors left without children are dropped as well.
func (t *Tree) Remove(b behaviour.Behaviour) error {
	if behaviour.IsNil(b) {
		return fmt.Errorf("remove node: %w", ErrInvalidArgument)
	}
	id, ok := t.lookup(b)
	if !ok {
		return nil
	}
	parent := t.nodes.MustGet(id).parent
	t.detach(id)

	removed := 0
	stack := []arena.ID{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n, ok := t.nodes.Get(cur)
		if !ok {
			continue
		}
		stack = append(stack, n.childIDs()...)
		t.byID.DeleteKey(n.behaviour.ID())
		t.nodes.Free(cur)
		removed++
	}
	t.prune(parent)
	t.metrics.SetNodes(t.Len())
	if removed > 1 {
		t.log.Debug("node removed with descendants",
			zap.String("name", b.Name()), zap.Int("descendants", removed-1))
	} else {
		t.log.Debug("node removed", zap.String("name", b.Name()))
	}
	return nil
}

// RefreshParent moves b under its newly resolved parent after its explicit
// ancestor changed. The subtree moves with it. If the move flips whether any
// strict ancestor is paused, the pause transition propagates from b down;
// b's own pause flag is untouched.
func (t *Tree) RefreshParent(b behaviour.Behaviour) error {
	if behaviour.IsNil(b) {
		return fmt.Errorf("refresh parent: %w", ErrInvalidArgument)
	}
	id, ok := t.lookup(b)
	if !ok {
		return nil
	}
	n := t.nodes.MustGet(id)

	wasPaused := t.pausedAbove(n)
	oldParent := n.parent
	t.detach(id)

	chain, anchor, err := t.findAnchor(b)
	if err == nil && t.within(anchor, id) {
		err = ErrCycle
	}
	if err != nil {
		t.attach(id, oldParent)
		return fmt.Errorf("refresh parent %q: %w", b.Name(), err)
	}
	t.attach(id, t.materialize(chain, anchor))
	t.prune(oldParent)

	willBePaused := t.pausedAbove(n)
	if wasPaused != willBePaused {
		if willBePaused {
			t.onAncestorPaused(id)
		} else {
			t.onAncestorUnpaused(id)
		}
	}
	t.log.Debug("node reparented", zap.String("name", b.Name()),
		zap.Bool("was_paused", wasPaused), zap.Bool("will_be_paused", willBePaused))
	return nil
}

// findAnchor walks the external ancestor chain of b up to the first ancestor
// that already has a node. It returns the unmaterialised ancestors nearest
// first, and the node to hang them from.
func (t *Tree) findAnchor(b behaviour.Behaviour) ([]behaviour.Behaviour, arena.ID, error) {
	var chain []behaviour.Behaviour
	seen := map[behaviour.ID]struct{}{b.ID(): {}}
	for cur := t.parentOf(b); !behaviour.IsNil(cur); cur = t.parentOf(cur) {
		if _, dup := seen[cur.ID()]; dup || len(chain) >= MaxDepth {
			return nil, 0, ErrCycle
		}
		if id, ok := t.lookup(cur); ok {
			return chain, id, nil
		}
		seen[cur.ID()] = struct{}{}
		chain = append(chain, cur)
	}
	return chain, t.root, nil
}

// materialize creates nodes for chain (nearest ancestor first) from the
// farthest down, starting under anchor. It returns the node the caller
// should attach to.
func (t *Tree) materialize(chain []behaviour.Behaviour, anchor arena.ID) arena.ID {
	parent := anchor
	for i := len(chain) - 1; i >= 0; i-- {
		parent = t.attachNew(chain[i], parent)
		t.nodes.MustGet(parent).implicit = true
		t.log.Debug("ancestor node materialized", zap.String("name", chain[i].Name()))
	}
	return parent
}

// prune frees id if it is an implicit node without children, then repeats
// for its parent.
func (t *Tree) prune(id arena.ID) {
	pruned := false
	for id != t.root {
		n, ok := t.nodes.Get(id)
		if !ok || !n.implicit || n.NumChildren() > 0 {
			break
		}
		parent := n.parent
		t.detach(id)
		t.byID.DeleteKey(n.behaviour.ID())
		t.nodes.Free(id)
		t.log.Debug("implicit ancestor dropped", zap.String("name", n.behaviour.Name()))
		pruned = true
		id = parent
	}
	if pruned {
		t.metrics.SetNodes(t.Len())
	}
}

// attachNew creates b's node under parent. The new node inherits the
// parent's effective pause state at creation.
func (t *Tree) attachNew(b behaviour.Behaviour, parent arena.ID) arena.ID {
	n := newNode(b, 0)
	id := t.nodes.Insert(n)
	t.byID.Add(b.ID(), id)
	t.attach(id, parent)
	n.ancestorPaused = t.pausedAbove(n)
	t.metrics.SetNodes(t.Len())
	return id
}

func (t *Tree) attach(id, parent arena.ID) {
	n := t.nodes.MustGet(id)
	p := t.nodes.MustGet(parent)
	n.parent = parent
	p.addChild(id)
}

func (t *Tree) detach(id arena.ID) {
	n := t.nodes.MustGet(id)
	if p, ok := t.nodes.Get(n.parent); ok {
		p.removeChild(id)
	}
	n.parent = 0
}

// within reports whether id lies in the subtree rooted at top.
func (t *Tree) within(id, top arena.ID) bool {
	for cur := id; !cur.IsZero(); {
		if cur == top {
			return true
		}
		n, ok := t.nodes.Get(cur)
		if !ok {
			return false
		}
		cur = n.parent
	}
	return false
}

func (t *Tree) lookup(b behaviour.Behaviour) (arena.ID, bool) {
	if behaviour.IsNil(b) {
		return 0, false
	}
	return t.byID.ValueByKeyTry(b.ID())
}
