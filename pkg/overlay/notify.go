package overlay

import (
	"sync"

	"github.com/ofkit/dtoverlay/pkg/changeset"
)

// Action identifies which of the four notifiable lifecycle transitions a
// bus delivery belongs to.
type Action int

const (
	PreApply Action = iota
	PostApply
	PreRemove
	PostRemove
)

func (a Action) String() string {
	switch a {
	case PreApply:
		return "PRE_APPLY"
	case PostApply:
		return "POST_APPLY"
	case PreRemove:
		return "PRE_REMOVE"
	case PostRemove:
		return "POST_REMOVE"
	default:
		return "UNKNOWN"
	}
}

// ObserverFunc is the callback shape registered observers implement,
// receiving one (target, overlay) pair per fragment per delivery.
type ObserverFunc func(action Action, data changeset.NotifyData) error

// Handle identifies a registered observer for later unregistration.
type Handle uint64

// ObserverChain is the single process-wide notification bus that delivers
// each lifecycle Action to every registered observer in registration
// order.
type ObserverChain struct {
	mu        sync.RWMutex
	observers map[Handle]ObserverFunc
	order     []Handle
	next      Handle
}

// NewObserverChain returns an empty notification bus.
func NewObserverChain() *ObserverChain {
	return &ObserverChain{observers: make(map[Handle]ObserverFunc)}
}

// Register adds fn to the chain and returns a handle for Unregister.
func (c *ObserverChain) Register(fn ObserverFunc) Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next++
	h := c.next
	c.observers[h] = fn
	c.order = append(c.order, h)
	return h
}

// Unregister removes the observer registered under h. No-op if h is
// unknown (already unregistered, or never registered).
func (c *ObserverChain) Unregister(h Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.observers, h)
	for i, cand := range c.order {
		if cand == h {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// deliver fires action for each fragment, fragment index ascending. All
// registered observers are called for a given fragment regardless of
// individual failures — the last error returned by the chain for that
// fragment wins — but an erroring fragment stops delivery to any
// subsequent fragment in this phase.
func (c *ObserverChain) deliver(action Action, fragments []fragment) error {
	c.mu.RLock()
	observers := make([]ObserverFunc, 0, len(c.order))
	for _, h := range c.order {
		observers = append(observers, c.observers[h])
	}
	c.mu.RUnlock()

	for _, frag := range fragments {
		data := changeset.NotifyData{Target: frag.target, Overlay: frag.overlay}
		var lastErr error
		for _, fn := range observers {
			if err := fn(action, data); err != nil {
				lastErr = err
			}
		}
		if lastErr != nil {
			return lastErr
		}
	}
	return nil
}
