package overlay

import (
	"errors"
	"testing"

	"gotest.tools/assert"

	"github.com/ofkit/dtoverlay/pkg/dtree"
)

func buildLiveForTarget() (*dtree.Node, *dtree.Node) {
	root := dtree.NewNode("")
	bus := dtree.NewNode("bus")
	root.AddChild(bus)
	dev := dtree.NewNode("dev")
	bus.AddChild(dev)
	dev.SetPhandle(7)
	return root, dev
}

func TestResolveTargetByPhandle(t *testing.T) {
	root, dev := buildLiveForTarget()
	info := dtree.NewNode("fragment@0")
	info.AddProperty(dtree.NewProperty(dtree.TargetProp, []byte{0, 0, 0, 7}))

	got, err := resolveTarget(info, nil, root)
	assert.NilError(t, err)
	assert.Equal(t, got, dev)
}

func TestResolveTargetByPhandleNotFound(t *testing.T) {
	root, _ := buildLiveForTarget()
	info := dtree.NewNode("fragment@0")
	info.AddProperty(dtree.NewProperty(dtree.TargetProp, []byte{0, 0, 0, 99}))

	_, err := resolveTarget(info, nil, root)
	assert.Assert(t, errors.Is(err, ErrInvalid))
}

func TestResolveTargetByPath(t *testing.T) {
	root, dev := buildLiveForTarget()
	info := dtree.NewNode("fragment@0")
	info.AddProperty(dtree.NewProperty(dtree.TargetPathProp, []byte("/bus/dev\x00")))

	got, err := resolveTarget(info, nil, root)
	assert.NilError(t, err)
	assert.Equal(t, got, dev)
}

func TestResolveTargetByPathRelativeToBase(t *testing.T) {
	root, dev := buildLiveForTarget()
	bus := root.ChildByName("bus")
	info := dtree.NewNode("fragment@0")
	info.AddProperty(dtree.NewProperty(dtree.TargetPathProp, []byte("/dev\x00")))

	got, err := resolveTarget(info, bus, root)
	assert.NilError(t, err)
	assert.Equal(t, got, dev)
}

func TestResolveTargetMissingProperty(t *testing.T) {
	root, _ := buildLiveForTarget()
	info := dtree.NewNode("fragment@0")

	_, err := resolveTarget(info, nil, root)
	assert.Assert(t, errors.Is(err, ErrInvalid))
}

func TestResolveTargetPrefersPhandleOverPath(t *testing.T) {
	root, dev := buildLiveForTarget()
	info := dtree.NewNode("fragment@0")
	info.AddProperty(dtree.NewProperty(dtree.TargetProp, []byte{0, 0, 0, 7}))
	info.AddProperty(dtree.NewProperty(dtree.TargetPathProp, []byte("/nonexistent\x00")))

	got, err := resolveTarget(info, nil, root)
	assert.NilError(t, err)
	assert.Equal(t, got, dev)
}
