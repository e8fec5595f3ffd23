package changeset

import (
	"errors"
	"testing"

	"gotest.tools/assert"

	"github.com/ofkit/dtoverlay/pkg/dtree"
)

func TestNotifyAppliedReturnsLastObserverError(t *testing.T) {
	cs := New()
	a := dtree.NewNode("a")
	b := dtree.NewNode("b")
	cs.AddAttachNode(nil, a)
	cs.AddAttachNode(nil, b)

	errA := errors.New("observer failed on a")
	errB := errors.New("observer failed on b")

	ex := NewExecutor()
	ex.OnEntry = func(e *Entry, applied bool) error {
		assert.Equal(t, applied, true)
		if e.Node == a {
			return errA
		}
		return errB
	}

	err := ex.NotifyApplied(cs)
	assert.Equal(t, err, errB)
}

func TestNotifyAppliedReturnsNilWhenNoObserverSet(t *testing.T) {
	cs := New()
	cs.AddAttachNode(nil, dtree.NewNode("a"))

	ex := NewExecutor()
	assert.NilError(t, ex.NotifyApplied(cs))
}

func TestNotifyRevertedVisitsEntriesInReverseAndReturnsLastError(t *testing.T) {
	cs := New()
	a := dtree.NewNode("a")
	b := dtree.NewNode("b")
	cs.AddAttachNode(nil, a)
	cs.AddAttachNode(nil, b)

	errA := errors.New("observer failed on a")

	var visited []*dtree.Node
	ex := NewExecutor()
	ex.OnEntry = func(e *Entry, applied bool) error {
		assert.Equal(t, applied, false)
		visited = append(visited, e.Node)
		if e.Node == a {
			return errA
		}
		return nil
	}

	err := ex.NotifyReverted(cs)
	assert.Equal(t, err, errA)
	assert.DeepEqual(t, visited, []*dtree.Node{b, a})
}
