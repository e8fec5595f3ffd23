package overlay

import (
	"fmt"

	"github.com/golang/glog"

	"github.com/ofkit/dtoverlay/pkg/changeset"
	"github.com/ofkit/dtoverlay/pkg/dtree"
)

// Apply unflattens blob, resolves its phandles, grafts it onto the live
// tree rooted at base (or the live-tree root if base is nil), and
// registers the resulting overlay changeset. The returned id is set
// whenever an ovcs was registered — even if apply later fails — so the
// caller can call Remove(id) to clean up a partially-applied overlay.
func (e *Engine) Apply(blob []byte, base *dtree.Node) (int, error) {
	e.resolver.Lock()
	defer e.resolver.Unlock()
	e.registryMu.Lock()
	defer e.registryMu.Unlock()

	if e.corruption.IsCorrupt() {
		return 0, fmt.Errorf("%w: devicetree state suspect, refuse to apply overlay", ErrBusy)
	}

	overlayRoot, err := e.decode(blob)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	overlayRoot.SetFlag(dtree.FlagDynamic)
	overlayRoot.SetFlag(dtree.FlagDetached)

	o := &ovcs{overlayRoot: overlayRoot, notifyState: StateInit}
	e.reg.insert(o)
	id := o.id

	e.resolver.Resolve(e.live, overlayRoot)

	if err := e.initOvcs(o, base); err != nil {
		return id, err
	}

	if err := e.notify(o, PreApply); err != nil {
		return id, err
	}

	cs, err := e.buildChangeset(o)
	if err != nil {
		return id, err
	}
	o.cset = cs

	applyErr, revertErr := e.executor.Apply(cs)
	if applyErr != nil {
		if revertErr != nil {
			e.corruption = e.corruption.withApplyFailed()
			glog.Errorf("overlay changeset %d: apply failed (%v) and revert also failed (%v), devicetree state suspect", id, applyErr, revertErr)
		}
		return id, applyErr
	}

	entryErr := e.executor.NotifyApplied(cs)

	postErr := e.notify(o, PostApply)
	return id, lastNonNil(entryErr, postErr)
}

// Remove reverts and retires the overlay identified by *id, clearing it
// to 0 on success.
func (e *Engine) Remove(id *int) error {
	e.registryMu.Lock()
	defer e.registryMu.Unlock()

	if e.corruption.IsCorrupt() {
		return fmt.Errorf("%w: devicetree state suspect, refuse to remove overlay", ErrBusy)
	}

	o := e.reg.lookup(*id)
	if o == nil {
		return fmt.Errorf("%w: could not find overlay #%d", ErrNoDev, *id)
	}

	if !e.reg.isTopmost(o) {
		return fmt.Errorf("%w: overlay #%d is not topmost", ErrBusy, o.id)
	}

	if err := e.notify(o, PreRemove); err != nil {
		return err
	}

	revertErr, reapplyErr := e.executor.Revert(o.cset)
	if revertErr != nil {
		if reapplyErr != nil {
			e.corruption = e.corruption.withRevertFailed()
			glog.Errorf("overlay changeset %d: revert failed (%v) and re-apply also failed (%v), devicetree state suspect", o.id, revertErr, reapplyErr)
		}
		return revertErr
	}

	entryErr := e.executor.NotifyReverted(o.cset)

	*id = 0

	postErr := e.notify(o, PostRemove)
	e.reg.remove(o)
	return lastNonNil(entryErr, postErr)
}

// lastNonNil returns the last non-nil error in errs, in the order they
// fired, so a later phase's error takes precedence over an earlier one
// when both a per-entry notification and a lifecycle notification fail.
func lastNonNil(errs ...error) error {
	var last error
	for _, err := range errs {
		if err != nil {
			last = err
		}
	}
	return last
}

// RemoveAll reverts every registered overlay, most recently applied
// first, stopping at the first failure.
func (e *Engine) RemoveAll() error {
	for {
		e.registryMu.Lock()
		tail := e.reg.tail()
		e.registryMu.Unlock()
		if tail == nil {
			return nil
		}
		id := tail.id
		if err := e.Remove(&id); err != nil {
			return err
		}
	}
}

// notify sets o's lifecycle state and fires the bus for action, the Go
// shape of overlay_notify().
func (e *Engine) notify(o *ovcs, action Action) error {
	o.notifyState = lifecycleStateFor(action)
	return e.observers.deliver(action, o.fragments)
}

func lifecycleStateFor(a Action) LifecycleState {
	switch a {
	case PreApply:
		return StatePreApply
	case PostApply:
		return StatePostApply
	case PreRemove:
		return StatePreRemove
	case PostRemove:
		return StatePostRemove
	default:
		return StateInit
	}
}

// initOvcs enumerates the overlay root's fragment nodes and its optional
// __symbols__ node, resolving each fragment's live-tree target.
func (e *Engine) initOvcs(o *ovcs, base *dtree.Node) error {
	for _, child := range o.overlayRoot.Children() {
		overlayNode := child.ChildByName(dtree.OverlayNodeName)
		if overlayNode == nil {
			continue
		}
		t, err := resolveTarget(child, base, e.live)
		if err != nil {
			return err
		}
		o.fragments = append(o.fragments, fragment{overlay: overlayNode, target: t})
	}

	if symbols := o.overlayRoot.ChildByName(dtree.SymbolsNodeName); symbols != nil {
		liveSymbols := dtree.FindByPath(e.live, dtree.SymbolsNodeName)
		if liveSymbols == nil {
			return fmt.Errorf("%w: symbols in overlay, but not in live tree", ErrInvalid)
		}
		o.symbolsFragment = true
		o.fragments = append(o.fragments, fragment{overlay: symbols, target: liveSymbols})
	}

	if len(o.fragments) == 0 {
		return fmt.Errorf("%w: no fragments or symbols in overlay", ErrInvalid)
	}
	return nil
}

// buildChangeset runs the fragment walker over every fragment, the
// symbols fragment last, then the duplicate detector.
func (e *Engine) buildChangeset(o *ovcs) (*changeset.Changeset, error) {
	cs := changeset.New()
	b := newBuildState(cs, o.overlayRoot, o.fragments)

	count := len(o.fragments)
	if o.symbolsFragment {
		count--
	}

	for i := 0; i < count; i++ {
		f := o.fragments[i]
		t := target{node: f.target, inLiveTree: true}
		if err := b.buildChangesetNextLevel(t, f.overlay); err != nil {
			return nil, err
		}
	}

	if o.symbolsFragment {
		f := o.fragments[len(o.fragments)-1]
		t := target{node: f.target, inLiveTree: true}
		if err := b.buildChangesetSymbolsNode(t, f.overlay); err != nil {
			return nil, err
		}
	}

	if err := checkDuplicates(cs); err != nil {
		return nil, err
	}
	return cs, nil
}
