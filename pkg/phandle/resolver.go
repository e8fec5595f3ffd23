// Package phandle implements the phandle cross-reference resolver the
// overlay engine treats as an external collaborator: given a freshly
// unflattened overlay tree, renumber every dtc-assigned local phandle
// placeholder so `target` properties elsewhere in the same overlay can
// reference it, without colliding with a phandle already live in the
// base tree.
//
// Scanning the live tree's maximum phandle and applying the renumbered
// overlay must happen without another overlay sneaking a conflicting
// phandle in between, so Resolver exposes a lock that callers hold
// across both steps.
package phandle

import (
	"sync"

	"github.com/golang/glog"

	"github.com/ofkit/dtoverlay/pkg/dtree"
)

// Resolver assigns phandle values to overlay nodes, guarded by a mutex
// that callers are expected to hold across both resolution and apply.
type Resolver struct {
	mu sync.Mutex

	// next is the next phandle value to hand out; kept across calls so
	// concurrently-unflattened overlays never see a value handed out
	// to one still being applied.
	next uint32
}

// NewResolver returns a resolver with no prior knowledge of the live
// tree's phandle space; the first Resolve call seeds it from base.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Lock acquires the resolver's mutex. Callers take this once and hold it
// across both Resolve and the changeset apply that follows, so a racing
// overlay can't claim a phandle this one is about to use.
func (r *Resolver) Lock() { r.mu.Lock() }

// Unlock releases the lock taken by Lock.
func (r *Resolver) Unlock() { r.mu.Unlock() }

// Resolve walks overlayRoot depth-first and renumbers every node that
// already carries a nonzero phandle (a dtc-assigned local placeholder
// supporting &label references within the overlay itself) into a value
// guaranteed not to collide with base's existing phandle space. Nodes
// with no phandle property (the common case for a freshly synthesized
// node with no overlay-internal back-references) are left at 0 — they
// need no cross-reference fixup, and giving them one would falsely
// reject the merge the first time that node is matched against an
// existing live node of the same name.
//
// base is the live tree the assigned values must not collide with;
// Resolve rescans base's maximum phandle every call because the live
// tree can grow between overlays.
//
// Callers must hold Lock() across this call and the subsequent apply.
func (r *Resolver) Resolve(base, overlayRoot *dtree.Node) {
	max := maxPhandle(base)
	if max+1 > r.next {
		r.next = max + 1
	}
	assigned := 0
	r.assign(overlayRoot, &assigned)
	if assigned > 0 {
		glog.V(3).Infof("phandle: remapped %d overlay-local phandle(s) starting at %d", assigned, r.next-uint32(assigned))
	}
}

func (r *Resolver) assign(n *dtree.Node, count *int) {
	if n.Phandle() != 0 {
		n.SetPhandle(r.next)
		r.next++
		*count++
	}
	for _, c := range n.Children() {
		r.assign(c, count)
	}
}

func maxPhandle(n *dtree.Node) uint32 {
	if n == nil {
		return 0
	}
	max := n.Phandle()
	for _, c := range n.Children() {
		if m := maxPhandle(c); m > max {
			max = m
		}
	}
	return max
}

// FindByPhandle searches the subtree rooted at n for the node carrying
// ph, or nil if none does. Used by the target resolver (pkg/overlay's
// target.go) to map a fragment's numeric `target` property to a live
// node.
func FindByPhandle(n *dtree.Node, ph uint32) *dtree.Node {
	if n == nil || ph == 0 {
		return nil
	}
	if n.Phandle() == ph {
		return n
	}
	for _, c := range n.Children() {
		if found := FindByPhandle(c, ph); found != nil {
			return found
		}
	}
	return nil
}
