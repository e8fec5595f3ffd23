// Package changeset implements the primitive edit-list model the overlay
// engine builds against the live tree, and a default in-process executor
// that applies or reverts that list. Both the entry shape and the
// executor are collaborators the core engine consumes through a small
// interface, so a caller can substitute its own.
package changeset

import (
	"fmt"

	"github.com/golang/glog"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"

	"github.com/ofkit/dtoverlay/pkg/dtree"
)

// Kind tags the primitive action a changeset Entry performs.
type Kind int

const (
	AttachNode Kind = iota
	DetachNode
	AddProperty
	RemoveProperty
	UpdateProperty
)

func (k Kind) String() string {
	switch k {
	case AttachNode:
		return "ATTACH_NODE"
	case DetachNode:
		return "DETACH_NODE"
	case AddProperty:
		return "ADD_PROPERTY"
	case RemoveProperty:
		return "REMOVE_PROPERTY"
	case UpdateProperty:
		return "UPDATE_PROPERTY"
	default:
		return "UNKNOWN"
	}
}

// Entry is one primitive edit: a tagged variant over {ATTACH_NODE,
// DETACH_NODE, ADD_PROPERTY, REMOVE_PROPERTY, UPDATE_PROPERTY}, each
// carrying the affected node and, where applicable, the affected
// property.
type Entry struct {
	Kind Kind
	Node *dtree.Node
	Prop *dtree.Property

	// oldProp is the property value replaced by an UpdateProperty entry,
	// recorded so revert can restore it. It is nil for every other kind.
	oldProp *dtree.Property
	// parent and index record where a DetachNode/AttachNode entry's node
	// lived, so revert can put it back in the same position.
	parent *dtree.Node
	index  int

	applied bool
}

// NotifyData is the (target, overlay) pair delivered to observers for one
// fragment; changeset entries don't carry it directly, but pkg/overlay
// attaches it when emitting PRE/POST events. Declared here so pkg/audit
// (and any other observer) can depend on changeset without an import
// cycle back into pkg/overlay.
type NotifyData struct {
	Target  *dtree.Node
	Overlay *dtree.Node
}

// logNotifyErr is the shared "log it, the real error already went back to
// the caller" helper used for per-entry notification failures: they are
// logged and never fatal.
func logNotifyErr(phase string, err error) {
	if err == nil {
		return
	}
	utilruntime.HandleError(fmt.Errorf("changeset entry notify (%s): %w", phase, err))
	glog.V(3).Infof("changeset entry notify (%s) error: %v", phase, err)
}
