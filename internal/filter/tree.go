package filter

import (
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"hash"
	"time"

	"github.com/madmaxoft/skautan-go/internal/library"
)

// NodeKind distinguishes the tagged-union variants of FilterNode
//.
type NodeKind int

const (
	NodeAnd NodeKind = iota
	NodeOr
	NodeComparison
)

// noParent marks the root node, which has no parent index.
const noParent = -1

// node is one arena-allocated entry in a Tree. Children and the parent are
// addressed by index rather than pointer, design note:
// "use arena-allocated nodes addressed by index, with the parent field
// storing an optional index. The tree owns the arena; clones produce a new
// arena." This sidesteps the cyclic-pointer-graph problem C++ solves with
// weak back-pointers.
type node struct {
	kind NodeKind

	// Comparison fields (valid when kind == NodeComparison).
	property SongProperty
	cmp Comparator
	value string

	// And/Or fields.
	children []int // indices into Tree.nodes

	parent int // index into Tree.nodes, or noParent for the root
}

// Tree is an arena of filter nodes with a designated root. It implements
// the recursive boolean/comparison predicate described in.
type Tree struct {
	nodes []node
	root int
}

// NewComparisonTree returns a Tree whose root is a single Comparison leaf.
func NewComparisonTree(prop SongProperty, cmp Comparator, value string) *Tree {
	t := &Tree{}
	t.root = t.alloc(node{kind: NodeComparison, property: prop, cmp: cmp, value: value, parent: noParent})
	return t
}

// NewBoolTree returns a Tree whose root is an empty And or Or node.
func NewBoolTree(kind NodeKind) *Tree {
	if kind != NodeAnd && kind != NodeOr {
		panic("filter: NewBoolTree requires NodeAnd or NodeOr")
	}
	t := &Tree{}
	t.root = t.alloc(node{kind: kind, parent: noParent})
	return t
}

func (t *Tree) alloc(n node) int {
	t.nodes = append(t.nodes, n)
	return len(t.nodes) - 1
}

// Root returns the index of the tree's root node.
func (t *Tree) Root() int { return t.root }

// Kind returns the kind of the node at idx.
func (t *Tree) Kind(idx int) NodeKind { return t.nodes[idx].kind }

// Children returns the child indices of the node at idx.
func (t *Tree) Children(idx int) []int {
	return append([]int(nil), t.nodes[idx].children...)
}

// Parent returns the parent index of the node at idx, or (0, false) for
// the root.
func (t *Tree) Parent(idx int) (int, bool) {
	p := t.nodes[idx].parent
	if p == noParent {
		return 0, false
	}
	return p, true
}

// Comparison returns the property/comparator/value of a Comparison node.
func (t *Tree) Comparison(idx int) (SongProperty, Comparator, string) {
	n := t.nodes[idx]
	return n.property, n.cmp, n.value
}

// AddChild appends a new And, Or, or Comparison node as a child of parent
// and returns its index. It maintains the parent back-pointer invariant
// from #3.
func (t *Tree) AddChild(parent int, n node) int {
	n.parent = parent
	idx := t.alloc(n)
	t.nodes[parent].children = append(t.nodes[parent].children, idx)
	return idx
}

// AddAndChild adds an empty And node under parent.
func (t *Tree) AddAndChild(parent int) int { return t.AddChild(parent, node{kind: NodeAnd}) }

// AddOrChild adds an empty Or node under parent.
func (t *Tree) AddOrChild(parent int) int { return t.AddChild(parent, node{kind: NodeOr}) }

// AddComparisonChild adds a Comparison leaf under parent.
func (t *Tree) AddComparisonChild(parent int, prop SongProperty, cmp Comparator, value string) int {
	return t.AddChild(parent, node{kind: NodeComparison, property: prop, cmp: cmp, value: value})
}

// ReplaceChild replaces the node at idx in place with a Comparison leaf,
// preserving idx's position among its parent's children. The old node's
// children are not carried over: they stay in the arena but are no longer
// reachable from idx.
func (t *Tree) ReplaceChild(idx int, prop SongProperty, cmp Comparator, value string) {
	t.nodes[idx] = node{
		kind: NodeComparison,
		property: prop,
		cmp: cmp,
		value: value,
		parent: t.nodes[idx].parent,
	}
}

// RemoveChild detaches the child at childIdx from parent's children list.
// The node itself and its subtree remain allocated in the arena (indices
// are never reused or compacted) but are no longer reachable from the
// root, matching the "remove from collection" semantics named in
// ; CheckConsistency still passes since unreachable nodes
// aren't walked.
func (t *Tree) RemoveChild(parent, childIdx int) {
	children := t.nodes[parent].children
	for i, c := range children {
		if c == childIdx {
			t.nodes[parent].children = append(children[:i], children[i+1:]...)
			return
		}
	}
}

// IsSatisfiedBy evaluates the tree against song.
func (t *Tree) IsSatisfiedBy(song *library.Song) bool {
	return t.satisfied(t.root, song)
}

func (t *Tree) satisfied(idx int, song *library.Song) bool {
	n := t.nodes[idx]
	switch n.kind {
	case NodeAnd:
		for _, c := range n.children {
			if !t.satisfied(c, song) {
				return false
			}
		}
		return true
	case NodeOr:
		for _, c := range n.children {
			if t.satisfied(c, song) {
				return true
			}
		}
		return false
	case NodeComparison:
		actual, ok := Value(song, n.property)
		switch n.property.Kind() {
		case KindString:
			s, _ := actual.(string)
			return CompareString(n.cmp, s, n.value)
		case KindNumber:
			f, _ := actual.(float64)
			return CompareNumber(n.cmp, f, ok, n.value)
		case KindDate:
			tt, _ := actual.(time.Time)
			return CompareDate(n.cmp, tt, ok, n.value)
		}
	}
	return false
}

// CheckConsistency is a self-test verifying that every child's parent
// pointer equals its actual parent and the invariant in
// #3. It's invoked from debug tooling, not on every mutation.
func (t *Tree) CheckConsistency() error {
	for i, n := range t.nodes {
		for _, c := range n.children {
			if t.nodes[c].parent != i {
				return fmt.Errorf("filter: node %d's child %d has parent %d, want %d",
					i, c, t.nodes[c].parent, i)
			}
		}
	}
	return nil
}

// Hash returns a SHA-1 summarizing the tree's kind, properties, and
// children's hashes, used to match filters across import boundaries
//.
func (t *Tree) Hash() [20]byte {
	h := sha1.New()
	t.hashNode(h, t.root)
	var out [20]byte
	copy(out[:], h.Sum(nil))
	return out
}

func (t *Tree) hashNode(h hash.Hash, idx int) {
	n := t.nodes[idx]
	var buf [8]byte
	binary.LittleEndian.PutUint32(buf[:4], uint32(n.kind))
	h.Write(buf[:4])
	switch n.kind {
	case NodeComparison:
		binary.LittleEndian.PutUint32(buf[:4], uint32(n.property))
		h.Write(buf[:4])
		binary.LittleEndian.PutUint32(buf[:4], uint32(n.cmp))
		h.Write(buf[:4])
		h.Write([]byte(n.value))
	default:
		for _, c := range n.children {
			t.hashNode(h, c)
		}
	}
}

// Clone returns a deep copy of t with its own arena:
// "clones produce a new arena."
func (t *Tree) Clone() *Tree {
	c := &Tree{nodes: make([]node, len(t.nodes)), root: t.root}
	for i, n := range t.nodes {
		c.nodes[i] = node{
			kind: n.kind,
			property: n.property,
			cmp: n.cmp,
			value: n.value,
			children: append([]int(nil), n.children...),
			parent: n.parent,
		}
	}
	return c
}
