// Package dtree implements the device-tree node/property data model: an
// n-ary tree of named nodes carrying typed byte-blob properties, with
// parent pointers that are non-owning so the only cycle in the structure
// (parent<->child) never needs a cycle collector.
package dtree

import "sync"

// Flag is a bitfield of node-lifecycle markers.
type Flag uint32

const (
	// FlagOverlay marks a node created by the overlay engine. Such a node
	// is owned by exactly one overlay changeset and is only ever removed
	// when that changeset is removed.
	FlagOverlay Flag = 1 << iota
	// FlagDynamic marks a node allocated at runtime rather than present
	// in the system's original static tree (e.g. the overlay root).
	FlagDynamic
	// FlagDetached marks a node that is not linked into any parent's
	// children list: an overlay root, or a pending child made by
	// NewPendingChild (which has a parent pointer). AddChild clears it.
	FlagDetached
)

// Pseudo-property and cell-property names. Pseudo-properties are
// identity/phandle bookkeeping filtered out of overlay translation; cell
// properties may not change value once present in the live tree.
const (
	NameProp          = "name"
	PhandleProp       = "phandle"
	LinuxPhandleProp  = "linux,phandle"
	AddressCellsProp  = "#address-cells"
	SizeCellsProp     = "#size-cells"
	SymbolsNodeName   = "__symbols__"
	OverlayNodeName   = "__overlay__"
	TargetProp        = "target"
	TargetPathProp    = "target-path"
)

// IsPseudoProperty reports whether name is filtered from overlay
// translation: it identifies a node rather than describing it, so the
// overlay engine never adds, updates, or duplicates it.
func IsPseudoProperty(name string) bool {
	switch name {
	case NameProp, PhandleProp, LinuxPhandleProp:
		return true
	default:
		return false
	}
}

// Node is a member of the live (or overlay) device tree.
type Node struct {
	mu sync.RWMutex

	name     string
	parent   *Node
	children []*Node
	props    []*Property
	phandle  uint32
	flags    Flag
}

// NewNode allocates a detached node with the given basename.
func NewNode(name string) *Node {
	return &Node{name: name}
}

// NewPendingChild allocates a node whose parent pointer is set to parent
// for path-printing purposes, without linking it into parent's children
// list. The overlay walker (pkg/overlay) uses this to synthesize nodes
// that a changeset will attach later: PathOf and further recursion need a
// working parent chain before the ATTACH_NODE entry is ever committed,
// but the node must stay invisible to Children()/ChildByName() until the
// changeset executor actually links it in.
func NewPendingChild(parent *Node, name string) *Node {
	n := &Node{name: name, parent: parent}
	n.SetFlag(FlagDetached)
	return n
}

// Name returns the node's basename.
func (n *Node) Name() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.name
}

// SetName overrides the node's basename; used when a synthesized child
// carries an explicit "name" property distinct from its fragment-derived
// basename.
func (n *Node) SetName(name string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.name = name
}

// Parent returns the node's parent, or nil for a detached/root node.
func (n *Node) Parent() *Node {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.parent
}

// Phandle returns the node's phandle, 0 meaning "none".
func (n *Node) Phandle() uint32 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.phandle
}

// SetPhandle assigns the node's phandle.
func (n *Node) SetPhandle(p uint32) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.phandle = p
}

// HasFlag reports whether all bits of f are set.
func (n *Node) HasFlag(f Flag) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.flags&f == f
}

// SetFlag sets all bits of f.
func (n *Node) SetFlag(f Flag) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.flags |= f
}

// Children returns a snapshot slice of the node's direct children.
func (n *Node) Children() []*Node {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// ChildByName returns the direct child with the given basename, or nil.
func (n *Node) ChildByName(name string) *Node {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, c := range n.children {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

// AddChild appends child to n's children and sets child's parent to n. It
// does not check for a duplicate basename; callers (dtblob decode, the
// changeset executor) are responsible for that.
func (n *Node) AddChild(child *Node) {
	n.mu.Lock()
	child.mu.Lock()
	child.parent = n
	child.flags &^= FlagDetached
	n.children = append(n.children, child)
	child.mu.Unlock()
	n.mu.Unlock()
}

// RemoveChild detaches child from n's children, leaving child's parent
// pointer cleared. It is a no-op if child is not a direct child of n.
func (n *Node) RemoveChild(child *Node) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, c := range n.children {
		if c == child {
			n.children = append(n.children[:i], n.children[i+1:]...)
			child.mu.Lock()
			child.parent = nil
			child.mu.Unlock()
			return
		}
	}
}

// InsertChildAt re-attaches child to n's children at position idx,
// clamping idx into range. Used by the changeset executor to revert a
// DetachNode entry to its original position.
func (n *Node) InsertChildAt(child *Node, idx int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if idx < 0 {
		idx = 0
	}
	if idx > len(n.children) {
		idx = len(n.children)
	}
	n.children = append(n.children, nil)
	copy(n.children[idx+1:], n.children[idx:])
	n.children[idx] = child
	child.mu.Lock()
	child.parent = n
	child.mu.Unlock()
}

// IndexOfChild returns child's position among n's children, or -1.
func (n *Node) IndexOfChild(child *Node) int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for i, c := range n.children {
		if c == child {
			return i
		}
	}
	return -1
}

// Contains reports whether target is n itself or is found anywhere in the
// subtree rooted at n, by pointer identity. Used by the registry's
// topmost check.
func (n *Node) Contains(target *Node) bool {
	if n == target {
		return true
	}
	for _, c := range n.Children() {
		if c.Contains(target) {
			return true
		}
	}
	return false
}
