package overlay

import (
	"strings"

	"github.com/ofkit/dtoverlay/pkg/dtree"
)

// dupAndFixupSymbolProp duplicates a "/__symbols__" property and rewrites
// its value from an overlay-internal path to the corresponding live-tree
// path.
//
// ok is false whenever the value can't be mapped to a live-tree path —
// a malformed path, an unknown fragment, or an owner fragment the walker
// never resolved. The caller treats that as an allocation failure
// (ErrNoMem).
func dupAndFixupSymbolProp(overlayRoot *dtree.Node, fragments []fragment, prop *dtree.Property) (*dtree.Property, bool) {
	path, ok := propCString(prop)
	if !ok {
		return nil, false
	}

	trimmed := strings.TrimPrefix(path, "/")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) == 0 || parts[0] == "" {
		return nil, false
	}
	fragmentNode := overlayRoot.ChildByName(parts[0])
	if fragmentNode == nil {
		return nil, false
	}
	overlayNode := fragmentNode.ChildByName(dtree.OverlayNodeName)
	if overlayNode == nil {
		return nil, false
	}

	var owner *fragment
	for i := range fragments {
		if fragments[i].overlay == overlayNode {
			owner = &fragments[i]
			break
		}
	}
	if owner == nil {
		return nil, false
	}

	overlayNameLen := len(dtree.PathOf(owner.overlay))
	if overlayNameLen > len(path) {
		return nil, false
	}
	tail := path[overlayNameLen:]
	targetPath := dtree.PathOf(owner.target)

	newValue := []byte(targetPath + tail + "\x00")
	return dtree.NewProperty(prop.Name, newValue), true
}
