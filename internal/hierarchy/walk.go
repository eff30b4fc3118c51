package hierarchy

import (
	"fmt"
	"io"
	"strings"

	"github.com/scenekit/scenetree/internal/core/arena"
)

// Each calls fn for every registered node in registration order. Implicit
// ancestors are skipped. The node set is snapshotted first: nodes removed
// by fn are skipped, nodes added by fn are not visited.
func (t *Tree) Each(fn func(n *Node)) {
	ids := t.byID.Values()
	for _, id := range ids {
		n, ok := t.nodes.Get(id)
		if !ok || n.implicit {
			continue
		}
		fn(n)
	}
}

// Walk visits the tree depth first from the synthetic root, children in
// insertion order. depth is 0 for top-level behaviours. The root itself is
// not visited.
func (t *Tree) Walk(fn func(n *Node, depth int)) {
	t.walk(t.root, -1, fn)
}

func (t *Tree) walk(id arena.ID, depth int, fn func(n *Node, depth int)) {
	n, ok := t.nodes.Get(id)
	if !ok {
		return
	}
	if depth >= 0 {
		fn(n, depth)
	}
	for _, cid := range n.childIDs() {
		t.walk(cid, depth+1, fn)
	}
}

// Dump writes an indented view of the tree, one behaviour per line.
// Implicit ancestors carry an [implicit] mark.
func (t *Tree) Dump(w io.Writer) error {
	var err error
	t.Walk(func(n *Node, depth int) {
		if err != nil {
			return
		}
		state := ""
		if n.Implicit() {
			state = " [implicit]"
		}
		switch {
		case n.selfPaused:
			state += " [paused]"
		case n.ancestorPaused:
			state += " [paused by ancestor]"
		}
		_, err = fmt.Fprintf(w, "%s%s%s\n", strings.Repeat("  ", depth), n.behaviour.Name(), state)
	})
	return err
}

// Validate checks the structural and pause invariants of the whole tree and
// returns the first violation found.
func (t *Tree) Validate() error {
	reachable := 0
	var err error
	t.Walk(func(n *Node, _ int) {
		reachable++
		if err != nil {
			return
		}
		id, ok := t.byID.ValueByKeyTry(n.behaviour.ID())
		if !ok {
			err = fmt.Errorf("node %q reachable but not registered", n.behaviour.Name())
			return
		}
		p, ok := t.nodes.Get(n.parent)
		if !ok {
			err = fmt.Errorf("node %q has dangling parent", n.behaviour.Name())
			return
		}
		if _, ok := p.children.ValueByKeyTry(id); !ok {
			err = fmt.Errorf("node %q missing from parent's children", n.behaviour.Name())
			return
		}
		if n.implicit && n.NumChildren() == 0 {
			err = fmt.Errorf("implicit node %q has no children", n.behaviour.Name())
			return
		}
		if want := t.pausedAbove(n); n.ancestorPaused != want {
			err = fmt.Errorf("node %q ancestor pause cache is %v, want %v", n.behaviour.Name(), n.ancestorPaused, want)
		}
	})
	if err != nil {
		return err
	}
	if reachable != t.Len() {
		return fmt.Errorf("%d nodes reachable from root, %d registered", reachable, t.Len())
	}
	if t.nodes.Len() != t.Len()+1 {
		return fmt.Errorf("arena holds %d nodes, want %d", t.nodes.Len(), t.Len()+1)
	}
	return nil
}
