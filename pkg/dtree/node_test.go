package dtree

import (
	"testing"

	"gotest.tools/assert"
)

func TestPathOf(t *testing.T) {
	root := NewNode("")
	bus := NewNode("bus")
	root.AddChild(bus)
	dev := NewNode("dev")
	bus.AddChild(dev)

	assert.Equal(t, PathOf(root), "/")
	assert.Equal(t, PathOf(bus), "/bus")
	assert.Equal(t, PathOf(dev), "/bus/dev")
}

func TestFindByPath(t *testing.T) {
	root := NewNode("")
	bus := NewNode("bus")
	root.AddChild(bus)
	dev := NewNode("dev")
	bus.AddChild(dev)

	assert.Equal(t, FindByPath(root, "/bus/dev"), dev)
	assert.Equal(t, FindByPath(root, "bus"), bus)
	assert.Assert(t, FindByPath(root, "/bus/missing") == nil)
}

func TestPropertyEqual(t *testing.T) {
	p1 := NewProperty("compatible", []byte("x,y\x00"))
	p2 := NewProperty("compatible", []byte("x,y\x00"))
	p3 := NewProperty("compatible", []byte("x,z\x00"))

	assert.Assert(t, p1.Equal(p2))
	assert.Assert(t, !p1.Equal(p3))
}

func TestAddRemoveProperty(t *testing.T) {
	n := NewNode("dev")
	n.AddProperty(NewProperty("status", []byte("disabled\x00")))
	assert.Equal(t, string(n.Property("status").Value), "disabled\x00")

	n.AddProperty(NewProperty("status", []byte("okay\x00")))
	assert.Equal(t, string(n.Property("status").Value), "okay\x00")
	assert.Equal(t, len(n.Properties()), 1)

	removed := n.RemoveProperty("status")
	assert.Equal(t, string(removed.Value), "okay\x00")
	assert.Assert(t, n.Property("status") == nil)
}

func TestContains(t *testing.T) {
	root := NewNode("")
	bus := NewNode("bus")
	root.AddChild(bus)
	dev := NewNode("dev")
	bus.AddChild(dev)
	other := NewNode("other")

	assert.Assert(t, root.Contains(dev))
	assert.Assert(t, bus.Contains(dev))
	assert.Assert(t, !dev.Contains(bus))
	assert.Assert(t, !root.Contains(other))
}

func TestNodeFlags(t *testing.T) {
	n := NewNode("dev")
	assert.Assert(t, !n.HasFlag(FlagOverlay))
	n.SetFlag(FlagOverlay)
	assert.Assert(t, n.HasFlag(FlagOverlay))
}
