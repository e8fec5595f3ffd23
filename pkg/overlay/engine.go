package overlay

import (
	"sync"

	"github.com/ofkit/dtoverlay/pkg/changeset"
	"github.com/ofkit/dtoverlay/pkg/dtblob"
	"github.com/ofkit/dtoverlay/pkg/dtree"
	"github.com/ofkit/dtoverlay/pkg/phandle"
)

// BlobDecoder unflattens a packed overlay blob into a detached tree.
type BlobDecoder func([]byte) (*dtree.Node, error)

// PhandleResolver fixes up phandle cross-references in a freshly
// unflattened overlay tree, serialized against the live tree's own
// phandle space by its own lock.
type PhandleResolver interface {
	Lock()
	Unlock()
	Resolve(base, overlayRoot *dtree.Node)
}

// ChangesetExecutor commits or reverts a changeset's primitive entries
// against the live tree and fires the per-entry notifications.
// NotifyApplied/NotifyReverted return the last per-entry observer error
// (nil if every observer succeeded); such errors are always logged and
// never undo the commit, but the caller still reports the last one as
// the operation's result.
type ChangesetExecutor interface {
	Apply(cs *changeset.Changeset) (err error, revertErr error)
	Revert(cs *changeset.Changeset) (err error, reapplyErr error)
	NotifyApplied(cs *changeset.Changeset) error
	NotifyReverted(cs *changeset.Changeset) error
}

// Engine is the overlay changeset lifecycle orchestrator plus the
// registry and notification bus it owns, collected into a single value
// rather than package globals so tests stay hermetic.
type Engine struct {
	live *dtree.Node

	decode   BlobDecoder
	resolver PhandleResolver
	executor ChangesetExecutor

	registryMu sync.Mutex
	reg        *registry
	corruption Corruption

	observers *ObserverChain
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithDecoder overrides the default dtblob.Decode blob unflattener.
func WithDecoder(d BlobDecoder) Option {
	return func(e *Engine) { e.decode = d }
}

// WithResolver overrides the default phandle.Resolver.
func WithResolver(r PhandleResolver) Option {
	return func(e *Engine) { e.resolver = r }
}

// WithExecutor overrides the default changeset.Executor.
func WithExecutor(ex ChangesetExecutor) Option {
	return func(e *Engine) { e.executor = ex }
}

// NewEngine returns an engine grafting and reverting overlays onto live,
// which becomes the engine's live-tree root. Defaults to the module's own
// dtblob decoder, phandle resolver, and changeset executor; Option values
// substitute any of the three external collaborators.
func NewEngine(live *dtree.Node, opts ...Option) *Engine {
	e := &Engine{
		live:      live,
		decode:    dtblob.Decode,
		resolver:  phandle.NewResolver(),
		executor:  changeset.NewExecutor(),
		reg:       newRegistry(),
		observers: NewObserverChain(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RegisterObserver adds fn to the notification bus.
func (e *Engine) RegisterObserver(fn ObserverFunc) Handle {
	return e.observers.Register(fn)
}

// UnregisterObserver removes the observer registered under h.
func (e *Engine) UnregisterObserver(h Handle) {
	e.observers.Unregister(h)
}

// ListIDs returns every currently-registered overlay id, oldest (least
// recently applied) first, for diagnostics and CLI listing.
func (e *Engine) ListIDs() []int {
	e.registryMu.Lock()
	defer e.registryMu.Unlock()
	ids := make([]int, len(e.reg.stack))
	for i, o := range e.reg.stack {
		ids[i] = o.id
	}
	return ids
}

// Summary is a point-in-time snapshot of a registered overlay, for
// diagnostics and CLI listing.
type Summary struct {
	ID            int
	FragmentCount int
	NotifyState   LifecycleState
}

// ListSummaries returns a Summary for every currently-registered
// overlay, oldest (least recently applied) first.
func (e *Engine) ListSummaries() []Summary {
	e.registryMu.Lock()
	defer e.registryMu.Unlock()
	summaries := make([]Summary, len(e.reg.stack))
	for i, o := range e.reg.stack {
		summaries[i] = Summary{
			ID:            o.id,
			FragmentCount: len(o.fragments),
			NotifyState:   o.notifyState,
		}
	}
	return summaries
}

// MutexLockOverlay exposes the engine's outer phandle lock to external
// phandle-producing callers that need to synchronize with apply/remove.
func (e *Engine) MutexLockOverlay() { e.resolver.Lock() }

// MutexUnlockOverlay releases the lock taken by MutexLockOverlay.
func (e *Engine) MutexUnlockOverlay() { e.resolver.Unlock() }

// Corruption is the sticky state set once an apply or revert fails so
// badly its own rollback also fails, modeled as a tagged variant rather
// than raw bit-ORs.
type Corruption int

const (
	Healthy Corruption = iota
	ApplyFailed
	RevertFailed
	Both
)

func (c Corruption) withApplyFailed() Corruption {
	if c == RevertFailed || c == Both {
		return Both
	}
	return ApplyFailed
}

func (c Corruption) withRevertFailed() Corruption {
	if c == ApplyFailed || c == Both {
		return Both
	}
	return RevertFailed
}

// IsCorrupt reports whether either sticky bit is set.
func (c Corruption) IsCorrupt() bool { return c != Healthy }

// Corruption returns the engine's current sticky corruption state.
func (e *Engine) Corruption() Corruption {
	e.registryMu.Lock()
	defer e.registryMu.Unlock()
	return e.corruption
}
