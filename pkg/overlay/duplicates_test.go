package overlay

import (
	"errors"
	"testing"

	"gotest.tools/assert"

	"github.com/ofkit/dtoverlay/pkg/changeset"
	"github.com/ofkit/dtoverlay/pkg/dtree"
)

func TestCheckDuplicatesAllowsDistinctTargets(t *testing.T) {
	cs := changeset.New()
	a := dtree.NewNode("a")
	b := dtree.NewNode("b")
	cs.AddAddProperty(a, dtree.NewProperty("status", nil))
	cs.AddAddProperty(b, dtree.NewProperty("status", nil))

	assert.NilError(t, checkDuplicates(cs))
}

func TestCheckDuplicatesRejectsDoubleNodeAttach(t *testing.T) {
	root := dtree.NewNode("")
	a := dtree.NewPendingChild(root, "dup")
	b := dtree.NewPendingChild(root, "dup")

	cs := changeset.New()
	cs.AddAttachNode(root, a)
	cs.AddAttachNode(root, b)

	err := checkDuplicates(cs)
	assert.Assert(t, errors.Is(err, ErrInvalid))
}

func TestCheckDuplicatesRejectsDoublePropertyEdit(t *testing.T) {
	node := dtree.NewNode("dev")
	cs := changeset.New()
	cs.AddAddProperty(node, dtree.NewProperty("status", []byte("okay\x00")))
	cs.AddUpdateProperty(node, dtree.NewProperty("status", []byte("disabled\x00")), nil)

	err := checkDuplicates(cs)
	assert.Assert(t, errors.Is(err, ErrInvalid))
}

func TestCheckDuplicatesAllowsDifferentPropertiesOnSameNode(t *testing.T) {
	node := dtree.NewNode("dev")
	cs := changeset.New()
	cs.AddAddProperty(node, dtree.NewProperty("status", []byte("okay\x00")))
	cs.AddAddProperty(node, dtree.NewProperty("compatible", []byte("acme,widget\x00")))

	assert.NilError(t, checkDuplicates(cs))
}
