package overlay

import (
	"github.com/ofkit/dtoverlay/pkg/changeset"
	"github.com/ofkit/dtoverlay/pkg/dtree"
)

// LifecycleState is the most recent notification phase an ovcs has
// entered.
type LifecycleState int

const (
	StateInit LifecycleState = iota
	StatePreApply
	StatePostApply
	StatePreRemove
	StatePostRemove
)

func (s LifecycleState) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StatePreApply:
		return "PRE_APPLY"
	case StatePostApply:
		return "POST_APPLY"
	case StatePreRemove:
		return "PRE_REMOVE"
	case StatePostRemove:
		return "POST_REMOVE"
	default:
		return "UNKNOWN"
	}
}

// fragment is the (overlay-subtree, live-tree-target) pair produced by
// the target resolver.
type fragment struct {
	overlay *dtree.Node
	target  *dtree.Node
}

// ovcs is a single applied overlay changeset together with the
// bookkeeping needed to revert it later: its fragments, its built
// changeset, and the last notification phase it reached.
type ovcs struct {
	id              int
	overlayRoot     *dtree.Node
	fragments       []fragment
	symbolsFragment bool
	cset            *changeset.Changeset
	notifyState     LifecycleState
}

// registry is the ordered list of live ovcs plus an id lookup map,
// manipulated only while the engine holds its registryMu lock.
type registry struct {
	byID   map[int]*ovcs
	stack  []*ovcs // application order, tail = most recently applied
	nextID int
}

func newRegistry() *registry {
	return &registry{byID: make(map[int]*ovcs)}
}

// insert assigns o a fresh positive id, and appends it to the stack and
// id map.
func (r *registry) insert(o *ovcs) {
	r.nextID++
	o.id = r.nextID
	r.byID[o.id] = o
	r.stack = append(r.stack, o)
}

func (r *registry) lookup(id int) *ovcs {
	return r.byID[id]
}

// remove detaches o from both the id map and the stack. It is a no-op if
// o is not currently registered.
func (r *registry) remove(o *ovcs) {
	delete(r.byID, o.id)
	for i, cand := range r.stack {
		if cand == o {
			r.stack = append(r.stack[:i], r.stack[i+1:]...)
			return
		}
	}
}

// tail returns the most recently applied ovcs, or nil if the registry is
// empty — the only entry remove_all is guaranteed safe to remove first.
func (r *registry) tail() *ovcs {
	if len(r.stack) == 0 {
		return nil
	}
	return r.stack[len(r.stack)-1]
}

func (r *registry) indexOf(o *ovcs) int {
	for i, cand := range r.stack {
		if cand == o {
			return i
		}
	}
	return -1
}

// isTopmost reports whether candidate may still be removed: for every
// node touched by candidate's changeset, no ovcs applied later in the
// stack may touch that node or any of its ancestors/descendants.
func (r *registry) isTopmost(candidate *ovcs) bool {
	idx := r.indexOf(candidate)
	if idx < 0 {
		return false
	}
	if candidate.cset == nil {
		return true
	}
	for _, e := range candidate.cset.Entries() {
		n := e.Node
		for i := idx + 1; i < len(r.stack); i++ {
			later := r.stack[i]
			if later.cset == nil {
				continue
			}
			for _, f := range later.cset.Entries() {
				if f.Node.Contains(n) || n.Contains(f.Node) {
					return false
				}
			}
		}
	}
	return true
}
