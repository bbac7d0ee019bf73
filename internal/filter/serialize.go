package filter

// NodeData is the JSON-friendly projection of one arena node, used by
// internal/store to persist and reload a Tree without exposing the
// package-private node type.
type NodeData struct {
	Kind NodeKind `json:"kind"`
	Property SongProperty `json:"property,omitempty"`
	Cmp Comparator `json:"cmp,omitempty"`
	Value string `json:"value,omitempty"`
	Children []int `json:"children,omitempty"`
	Parent int `json:"parent"`
}

// Export returns t's entire arena as NodeData, plus the root index, ready
// for JSON encoding.
func (t *Tree) Export() (nodes []NodeData, root int) {
	nodes = make([]NodeData, len(t.nodes))
	for i, n := range t.nodes {
		nodes[i] = NodeData{
			Kind: n.kind,
			Property: n.property,
			Cmp: n.cmp,
			Value: n.value,
			Children: append([]int(nil), n.children...),
			Parent: n.parent,
		}
	}
	return nodes, t.root
}

// ImportTree rebuilds a Tree from the NodeData produced by a prior Export.
func ImportTree(nodes []NodeData, root int) *Tree {
	t := &Tree{nodes: make([]node, len(nodes)), root: root}
	for i, d := range nodes {
		t.nodes[i] = node{
			kind: d.Kind,
			property: d.Property,
			cmp: d.Cmp,
			value: d.Value,
			children: append([]int(nil), d.Children...),
			parent: d.Parent,
		}
	}
	return t
}
