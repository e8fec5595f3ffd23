package overlay

import (
	"fmt"

	"github.com/ofkit/dtoverlay/pkg/changeset"
	"github.com/ofkit/dtoverlay/pkg/dtree"
)

func isNodeEntry(k changeset.Kind) bool {
	return k == changeset.AttachNode || k == changeset.DetachNode
}

func isPropEntry(k changeset.Kind) bool {
	return k == changeset.AddProperty || k == changeset.RemoveProperty || k == changeset.UpdateProperty
}

// checkDuplicates scans a fully-built changeset for two fragments racing
// to attach/detach the same node path, or to add, remove, or update the
// same property on the same node path. Comparison uses the tree's
// printed path rather than pointer identity, because a
// fragment-synthesized node and a live-tree node may coexist at the same
// path mid-build.
func checkDuplicates(cs *changeset.Changeset) error {
	entries := cs.Entries()
	for i, e1 := range entries {
		for j := i + 1; j < len(entries); j++ {
			e2 := entries[j]

			if isNodeEntry(e1.Kind) && isNodeEntry(e2.Kind) {
				if dtree.PathOf(e1.Node) == dtree.PathOf(e2.Node) {
					return fmt.Errorf("%w: multiple fragments add and/or delete node %s", ErrInvalid, dtree.PathOf(e1.Node))
				}
			}

			if isPropEntry(e1.Kind) && isPropEntry(e2.Kind) {
				if e1.Prop.Name == e2.Prop.Name && dtree.PathOf(e1.Node) == dtree.PathOf(e2.Node) {
					return fmt.Errorf("%w: multiple fragments add, update, and/or delete property %s/%s", ErrInvalid, dtree.PathOf(e1.Node), e1.Prop.Name)
				}
			}
		}
	}
	return nil
}
