package overlay

import (
	"bytes"
	"fmt"

	"github.com/golang/glog"

	"github.com/ofkit/dtoverlay/pkg/changeset"
	"github.com/ofkit/dtoverlay/pkg/dtree"
)

// target pairs the current live-tree recursion point with whether it is
// actually in the live tree yet.
type target struct {
	node       *dtree.Node
	inLiveTree bool
}

// buildState carries the per-apply bookkeeping the fragment walker needs
// across the whole recursion: the changeset being built, and a side map
// from synthesized (not-yet-live) node to the properties staged onto it
// so far, keyed by name, used in place of dtree.Node.Property for nodes
// the executor hasn't attached yet.
type buildState struct {
	cs          *changeset.Changeset
	dead        map[*dtree.Node]map[string]*dtree.Property
	overlayRoot *dtree.Node
	fragments   []fragment
}

func newBuildState(cs *changeset.Changeset, overlayRoot *dtree.Node, fragments []fragment) *buildState {
	return &buildState{
		cs:          cs,
		dead:        make(map[*dtree.Node]map[string]*dtree.Property),
		overlayRoot: overlayRoot,
		fragments:   fragments,
	}
}

func (b *buildState) deadProp(node *dtree.Node, name string) *dtree.Property {
	m := b.dead[node]
	if m == nil {
		return nil
	}
	return m[name]
}

func (b *buildState) stageDeadProp(node *dtree.Node, p *dtree.Property) {
	m := b.dead[node]
	if m == nil {
		m = make(map[string]*dtree.Property)
		b.dead[node] = m
	}
	m[p.Name] = p
}

// addProperty decides whether an overlay property adds, updates, or is
// rejected against its target node.
func (b *buildState) addProperty(t target, overlayProp *dtree.Property, isSymbolsProp bool) error {
	if t.inLiveTree && dtree.IsPseudoProperty(overlayProp.Name) {
		return nil
	}

	var existing *dtree.Property
	if t.inLiveTree {
		existing = t.node.Property(overlayProp.Name)
	} else {
		existing = b.deadProp(t.node, overlayProp.Name)
	}

	if existing != nil && (overlayProp.Name == dtree.AddressCellsProp || overlayProp.Name == dtree.SizeCellsProp) {
		if !existing.Equal(overlayProp) {
			return fmt.Errorf("%w: changing value of %s is not allowed in %s", ErrInvalid, overlayProp.Name, dtree.PathOf(t.node))
		}
		return nil
	}

	var newProp *dtree.Property
	if isSymbolsProp {
		if existing != nil {
			return fmt.Errorf("%w: update of property in symbols node is not allowed: %s", ErrInvalid, overlayProp.Name)
		}
		np, ok := dupAndFixupSymbolProp(b.overlayRoot, b.fragments, overlayProp)
		if !ok {
			return ErrNoMem
		}
		newProp = np
	} else {
		newProp = overlayProp.Dup()
	}

	if !t.node.HasFlag(dtree.FlagOverlay) {
		glog.V(2).Infof("overlay: memory leak risk if overlay is ever removed, property %s/%s added to a non-overlay node", dtree.PathOf(t.node), newProp.Name)
	}

	if existing == nil {
		if !t.inLiveTree {
			b.stageDeadProp(t.node, newProp)
		}
		b.cs.AddAddProperty(t.node, newProp)
	} else {
		b.cs.AddUpdateProperty(t.node, newProp, existing)
	}
	return nil
}

// addNode merges an overlay child node into its target: attaching a new
// pending node if no live child shares its name, or recursing into the
// existing child otherwise.
func (b *buildState) addNode(t target, overlayChild *dtree.Node) error {
	basename := overlayChild.Name()

	var tchild *dtree.Node
	if t.inLiveTree {
		tchild = t.node.ChildByName(basename)
	}

	if tchild == nil {
		newNode := dtree.NewPendingChild(t.node, basename)

		if nameProp := overlayChild.Property(dtree.NameProp); nameProp != nil {
			newNode.SetName(string(bytes.TrimRight(nameProp.Value, "\x00")))
		} else {
			glog.V(2).Infof("overlay: node %s: no explicit \"name\" property, using basename %q", dtree.PathOf(newNode), basename)
		}

		if ph := overlayChild.Property(dtree.PhandleProp); ph != nil {
			if val, ok := propUint32(ph); ok {
				newNode.SetPhandle(val)
			}
		}
		newNode.SetFlag(dtree.FlagOverlay)

		b.cs.AddAttachNode(t.node, newNode)

		return b.buildChangesetNextLevel(target{node: newNode, inLiveTree: false}, overlayChild)
	}

	if overlayChild.Phandle() != 0 && tchild.Phandle() != 0 {
		return fmt.Errorf("%w: node %s: overlay may not replace an existing phandle", ErrInvalid, dtree.PathOf(tchild))
	}

	return b.buildChangesetNextLevel(target{node: tchild, inLiveTree: t.inLiveTree}, overlayChild)
}

// buildChangesetNextLevel recurses one level of an overlay fragment
// subtree: all properties before all children, in the overlay's own
// order.
func (b *buildState) buildChangesetNextLevel(t target, overlayNode *dtree.Node) error {
	for _, p := range overlayNode.Properties() {
		if err := b.addProperty(t, p, false); err != nil {
			return err
		}
	}
	for _, c := range overlayNode.Children() {
		if err := b.addNode(t, c); err != nil {
			return err
		}
	}
	return nil
}

// buildChangesetSymbolsNode translates only the properties of the
// overlay's "__symbols__" node: a symbols node carries nothing but path
// properties, so any child node on it is rejected outright rather than
// silently ignored.
func (b *buildState) buildChangesetSymbolsNode(t target, overlaySymbolsNode *dtree.Node) error {
	if len(overlaySymbolsNode.Children()) > 0 {
		return fmt.Errorf("%w: __symbols__ node must not contain child nodes", ErrInvalid)
	}
	for _, p := range overlaySymbolsNode.Properties() {
		if err := b.addProperty(t, p, true); err != nil {
			return err
		}
	}
	return nil
}
