package overlay

import (
	"errors"
	"testing"

	"gotest.tools/assert"

	"github.com/ofkit/dtoverlay/pkg/changeset"
	"github.com/ofkit/dtoverlay/pkg/dtree"
)

func TestObserverChainDeliversInRegistrationOrder(t *testing.T) {
	c := NewObserverChain()
	var calls []int
	c.Register(func(action Action, data changeset.NotifyData) error {
		calls = append(calls, 1)
		return nil
	})
	c.Register(func(action Action, data changeset.NotifyData) error {
		calls = append(calls, 2)
		return nil
	})
	c.Register(func(action Action, data changeset.NotifyData) error {
		calls = append(calls, 3)
		return nil
	})

	target := dtree.NewNode("target")
	overlay := dtree.NewNode("overlay")
	err := c.deliver(PreApply, []fragment{{overlay: overlay, target: target}})
	assert.NilError(t, err)
	assert.DeepEqual(t, calls, []int{1, 2, 3})
}

func TestObserverChainUnregisterStopsDelivery(t *testing.T) {
	c := NewObserverChain()
	fired := false
	h := c.Register(func(action Action, data changeset.NotifyData) error {
		fired = true
		return nil
	})
	c.Unregister(h)

	err := c.deliver(PreApply, []fragment{{overlay: dtree.NewNode("o"), target: dtree.NewNode("t")}})
	assert.NilError(t, err)
	assert.Assert(t, !fired)
}

func TestObserverChainLastErrorWinsWithinFragment(t *testing.T) {
	c := NewObserverChain()
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	c.Register(func(action Action, data changeset.NotifyData) error { return errA })
	c.Register(func(action Action, data changeset.NotifyData) error { return errB })

	err := c.deliver(PreApply, []fragment{{overlay: dtree.NewNode("o"), target: dtree.NewNode("t")}})
	assert.Equal(t, err, errB)
}

func TestObserverChainErrorShortCircuitsLaterFragments(t *testing.T) {
	c := NewObserverChain()
	var seen []*dtree.Node
	c.Register(func(action Action, data changeset.NotifyData) error {
		seen = append(seen, data.Target)
		if len(seen) == 1 {
			return errors.New("first fragment failed")
		}
		return nil
	})

	f1 := fragment{overlay: dtree.NewNode("o1"), target: dtree.NewNode("t1")}
	f2 := fragment{overlay: dtree.NewNode("o2"), target: dtree.NewNode("t2")}
	err := c.deliver(PreApply, []fragment{f1, f2})

	assert.Assert(t, err != nil)
	assert.Equal(t, len(seen), 1)
	assert.Equal(t, seen[0], f1.target)
}
