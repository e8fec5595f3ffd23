package overlay

import (
	"testing"

	"gotest.tools/assert"

	"github.com/ofkit/dtoverlay/pkg/dtree"
)

// buildSymbolFixture constructs an overlay root with a single fragment
// ("fragment@0" -> "__overlay__" -> "leaf") whose target in the live tree
// is /bus, mirroring the shape dup_and_fixup_symbol_prop expects: a
// "/fragment@0/__overlay__/leaf" symbol path rewritten to "/bus/leaf".
func buildSymbolFixture() (overlayRoot *dtree.Node, frag fragment) {
	liveBus := dtree.NewNode("bus")

	overlayRoot = dtree.NewNode("")
	fragNode := dtree.NewNode("fragment@0")
	overlayRoot.AddChild(fragNode)
	ovNode := dtree.NewNode(dtree.OverlayNodeName)
	fragNode.AddChild(ovNode)
	leaf := dtree.NewNode("leaf")
	ovNode.AddChild(leaf)

	frag = fragment{overlay: ovNode, target: liveBus}
	return overlayRoot, frag
}

func TestDupAndFixupSymbolPropRewritesPath(t *testing.T) {
	overlayRoot, frag := buildSymbolFixture()
	prop := dtree.NewProperty("leafsym", []byte("/fragment@0/__overlay__/leaf\x00"))

	got, ok := dupAndFixupSymbolProp(overlayRoot, []fragment{frag}, prop)
	assert.Assert(t, ok)
	assert.Equal(t, got.Name, "leafsym")
	assert.Equal(t, string(got.Value), "/bus/leaf\x00")
}

func TestDupAndFixupSymbolPropRejectsMalformedPath(t *testing.T) {
	overlayRoot, frag := buildSymbolFixture()
	prop := dtree.NewProperty("badsym", []byte("not-nul-terminated"))

	_, ok := dupAndFixupSymbolProp(overlayRoot, []fragment{frag}, prop)
	assert.Assert(t, !ok)
}

func TestDupAndFixupSymbolPropRejectsUnknownFragment(t *testing.T) {
	overlayRoot, frag := buildSymbolFixture()
	prop := dtree.NewProperty("sym", []byte("/fragment@99/__overlay__/leaf\x00"))

	_, ok := dupAndFixupSymbolProp(overlayRoot, []fragment{frag}, prop)
	assert.Assert(t, !ok)
}
