package overlay

import (
	"fmt"

	"github.com/ofkit/dtoverlay/pkg/dtree"
	"github.com/ofkit/dtoverlay/pkg/phandle"
)

// resolveTarget maps a fragment info node to its live-tree target: the
// "target" phandle property is tried first, "target-path" second, and
// target wins the tie-break if both are present.
func resolveTarget(info *dtree.Node, base, liveRoot *dtree.Node) (*dtree.Node, error) {
	if tp := info.Property(dtree.TargetProp); tp != nil {
		val, ok := propUint32(tp)
		if !ok {
			return nil, fmt.Errorf("%w: fragment %s: target property is not a 32-bit phandle", ErrInvalid, info.Name())
		}
		node := phandle.FindByPhandle(liveRoot, val)
		if node == nil {
			return nil, fmt.Errorf("%w: fragment %s: target phandle 0x%x not found", ErrInvalid, info.Name(), val)
		}
		return node, nil
	}

	if tp := info.Property(dtree.TargetPathProp); tp != nil {
		path, ok := propCString(tp)
		if !ok {
			return nil, fmt.Errorf("%w: fragment %s: target-path is not a valid string", ErrInvalid, info.Name())
		}
		full := path
		if base != nil {
			full = dtree.PathOf(base) + path
		}
		node := dtree.FindByPath(liveRoot, full)
		if node == nil {
			return nil, fmt.Errorf("%w: fragment %s: target-path %q not found", ErrInvalid, info.Name(), full)
		}
		return node, nil
	}

	return nil, fmt.Errorf("%w: fragment %s: no target property", ErrInvalid, info.Name())
}
