package changeset

import "github.com/ofkit/dtoverlay/pkg/dtree"

// Changeset is an ordered list of primitive edits that can be applied or
// reverted as a group.
type Changeset struct {
	entries []*Entry
}

// New returns an empty changeset.
func New() *Changeset {
	return &Changeset{}
}

// Entries returns a snapshot of the accumulated entries, in the order
// they were added.
func (c *Changeset) Entries() []*Entry {
	out := make([]*Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Len reports the number of accumulated entries.
func (c *Changeset) Len() int {
	return len(c.entries)
}

// AddAttachNode records an ATTACH_NODE entry: child has already been
// parented under parent by the caller (pkg/overlay's walker), this just
// logs the edit for later apply/revert.
func (c *Changeset) AddAttachNode(parent, child *dtree.Node) {
	c.entries = append(c.entries, &Entry{Kind: AttachNode, Node: child, parent: parent})
}

// AddDetachNode records a DETACH_NODE entry for node, which must still be
// attached to its live parent at record time (the index is captured so a
// later revert reinserts it at the same position).
func (c *Changeset) AddDetachNode(node *dtree.Node) {
	parent := node.Parent()
	idx := -1
	if parent != nil {
		idx = parent.IndexOfChild(node)
	}
	c.entries = append(c.entries, &Entry{Kind: DetachNode, Node: node, parent: parent, index: idx})
}

// AddAddProperty records an ADD_PROPERTY entry: target does not yet carry a
// property of this name.
func (c *Changeset) AddAddProperty(node *dtree.Node, prop *dtree.Property) {
	c.entries = append(c.entries, &Entry{Kind: AddProperty, Node: node, Prop: prop})
}

// AddUpdateProperty records an UPDATE_PROPERTY entry: target already
// carries a property of this name, oldProp is its current value so
// revert can restore it.
func (c *Changeset) AddUpdateProperty(node *dtree.Node, prop, oldProp *dtree.Property) {
	c.entries = append(c.entries, &Entry{Kind: UpdateProperty, Node: node, Prop: prop, oldProp: oldProp})
}

// AddRemoveProperty records a REMOVE_PROPERTY entry.
func (c *Changeset) AddRemoveProperty(node *dtree.Node, prop *dtree.Property) {
	c.entries = append(c.entries, &Entry{Kind: RemoveProperty, Node: node, Prop: prop})
}
