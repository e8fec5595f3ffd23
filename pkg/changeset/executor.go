package changeset

import (
	"fmt"

	"github.com/golang/glog"
)

// EntryObserver is called once per entry after a successful Apply or
// Revert. Observer errors here are logged, never fatal: they cannot undo
// a commit that has already succeeded.
type EntryObserver func(e *Entry, applied bool) error

// Executor applies and reverts a Changeset's primitive entries against
// the live tree. pkg/overlay depends on it only through the small
// interface surface it exercises, so a caller embedding this module in a
// real device tree runtime can swap in a different Executor.
type Executor struct {
	// FailOn, if set, is consulted before applying/reverting each entry
	// and lets tests simulate executor failures (ENOMEM-equivalent)
	// without touching the tree.
	FailOn func(e *Entry, applying bool) error

	OnEntry EntryObserver
}

// NewExecutor returns a ready-to-use in-memory executor.
func NewExecutor() *Executor {
	return &Executor{}
}

// Apply commits every entry of cs to the live tree, in order. If an entry
// fails partway, Apply attempts to revert every entry already applied, in
// reverse order, and returns both the original failure and the revert
// outcome.
func (ex *Executor) Apply(cs *Changeset) (err error, revertErr error) {
	entries := cs.Entries()
	for i, e := range entries {
		if ex.FailOn != nil {
			if ferr := ex.FailOn(e, true); ferr != nil {
				revertErr = ex.revertRange(entries, i-1)
				return ferr, revertErr
			}
		}
		if aerr := ex.applyOne(e); aerr != nil {
			revertErr = ex.revertRange(entries, i-1)
			return aerr, revertErr
		}
		e.applied = true
	}
	return nil, nil
}

// NotifyApplied fires the per-entry "applied" notification for every
// entry, in forward order. Every error is logged — none can trigger a
// revert, the commit already succeeded — but the last one observed is
// returned so the caller can still surface it as the operation's result.
func (ex *Executor) NotifyApplied(cs *Changeset) error {
	if ex.OnEntry == nil {
		return nil
	}
	var last error
	for _, e := range cs.Entries() {
		if err := ex.OnEntry(e, true); err != nil {
			logNotifyErr(fmt.Sprintf("applied %s", e.Kind), err)
			last = err
		}
	}
	return last
}

// Revert undoes every entry of cs, in the executor's reverse order. If an
// entry fails to revert, Revert attempts to re-apply everything already
// reverted (in their original forward order) and returns both errors, so
// the caller can mark its state corrupt when re-apply also fails.
func (ex *Executor) Revert(cs *Changeset) (err error, reapplyErr error) {
	entries := cs.Entries()
	revertedFrom := len(entries)
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if ex.FailOn != nil {
			if ferr := ex.FailOn(e, false); ferr != nil {
				reapplyErr = ex.reapplyRange(entries, revertedFrom, len(entries))
				return ferr, reapplyErr
			}
		}
		if rerr := ex.revertOne(e); rerr != nil {
			reapplyErr = ex.reapplyRange(entries, revertedFrom, len(entries))
			return rerr, reapplyErr
		}
		e.applied = false
		revertedFrom = i
	}
	return nil, nil
}

// NotifyReverted fires the per-entry "reverted" notification for every
// entry, in the executor's reverse order. Every error is logged and
// never fatal, but the last one observed is returned so the caller can
// still surface it as the operation's result.
func (ex *Executor) NotifyReverted(cs *Changeset) error {
	if ex.OnEntry == nil {
		return nil
	}
	var last error
	entries := cs.Entries()
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if err := ex.OnEntry(e, false); err != nil {
			logNotifyErr(fmt.Sprintf("reverted %s", e.Kind), err)
			last = err
		}
	}
	return last
}

func (ex *Executor) applyOne(e *Entry) error {
	switch e.Kind {
	case AttachNode:
		if e.parent == nil {
			return fmt.Errorf("attach node %s: no recorded parent", e.Node.Name())
		}
		e.parent.AddChild(e.Node)
	case DetachNode:
		if e.parent == nil {
			return fmt.Errorf("detach node %s: no recorded parent", e.Node.Name())
		}
		e.parent.RemoveChild(e.Node)
	case AddProperty:
		e.Node.AddProperty(e.Prop)
	case UpdateProperty:
		e.oldProp = e.Node.Property(e.Prop.Name)
		e.Node.AddProperty(e.Prop)
	case RemoveProperty:
		e.oldProp = e.Node.RemoveProperty(e.Prop.Name)
	default:
		return fmt.Errorf("unknown changeset entry kind %v", e.Kind)
	}
	glog.V(4).Infof("changeset: applied %s on %s", e.Kind, e.Node.Name())
	return nil
}

func (ex *Executor) revertOne(e *Entry) error {
	switch e.Kind {
	case AttachNode:
		if e.parent == nil {
			return fmt.Errorf("revert attach node %s: no recorded parent", e.Node.Name())
		}
		e.parent.RemoveChild(e.Node)
	case DetachNode:
		if e.parent == nil {
			return fmt.Errorf("revert detach node %s: no recorded parent", e.Node.Name())
		}
		e.parent.InsertChildAt(e.Node, e.index)
	case AddProperty:
		e.Node.RemoveProperty(e.Prop.Name)
	case UpdateProperty:
		if e.oldProp != nil {
			e.Node.AddProperty(e.oldProp)
		}
	case RemoveProperty:
		if e.oldProp != nil {
			e.Node.AddProperty(e.oldProp)
		}
	default:
		return fmt.Errorf("unknown changeset entry kind %v", e.Kind)
	}
	glog.V(4).Infof("changeset: reverted %s on %s", e.Kind, e.Node.Name())
	return nil
}

// revertRange reverts entries[0:upTo] inclusive, in reverse order, used
// when Apply fails partway through entries[:upTo+1].
func (ex *Executor) revertRange(entries []*Entry, upTo int) error {
	for i := upTo; i >= 0; i-- {
		if err := ex.revertOne(entries[i]); err != nil {
			return err
		}
		entries[i].applied = false
	}
	return nil
}

// reapplyRange re-applies entries[from:upTo] in forward order, used when
// Revert fails partway and the already-reverted suffix must be restored.
func (ex *Executor) reapplyRange(entries []*Entry, from, upTo int) error {
	for i := from; i < upTo; i++ {
		if err := ex.applyOne(entries[i]); err != nil {
			return err
		}
		entries[i].applied = true
	}
	return nil
}
