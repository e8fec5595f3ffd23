package dtree

import "bytes"

// Property is a named byte blob attached to a Node.
type Property struct {
	Name  string
	Value []byte
}

// NewProperty builds a property, copying value so later mutation of the
// caller's slice cannot alias into the tree.
func NewProperty(name string, value []byte) *Property {
	v := make([]byte, len(value))
	copy(v, value)
	return &Property{Name: name, Value: v}
}

// Len returns the property value length in bytes.
func (p *Property) Len() int {
	return len(p.Value)
}

// Equal reports value-equality: same length and identical bytes. The
// engine never diffs property values for semantic equivalence beyond
// this.
func (p *Property) Equal(other *Property) bool {
	if p == nil || other == nil {
		return p == other
	}
	return bytes.Equal(p.Value, other.Value)
}

// Dup returns a value-copy of p with the same name.
func (p *Property) Dup() *Property {
	return NewProperty(p.Name, p.Value)
}

// Property returns the direct property named name, or nil.
func (n *Node) Property(name string) *Property {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, p := range n.props {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Properties returns a snapshot slice of the node's properties, in
// insertion order (the order overlay fragments are walked depends on
// this being stable).
func (n *Node) Properties() []*Property {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]*Property, len(n.props))
	copy(out, n.props)
	return out
}

// AddProperty appends prop, or replaces an existing property of the same
// name in place (preserving its position) if one exists.
func (n *Node) AddProperty(prop *Property) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, p := range n.props {
		if p.Name == prop.Name {
			n.props[i] = prop
			return
		}
	}
	n.props = append(n.props, prop)
}

// RemoveProperty deletes the property named name, returning the removed
// property (or nil if absent) so a caller can restore it on revert.
func (n *Node) RemoveProperty(name string) *Property {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, p := range n.props {
		if p.Name == name {
			n.props = append(n.props[:i], n.props[i+1:]...)
			return p
		}
	}
	return nil
}
