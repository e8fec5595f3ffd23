package dtblob

import (
	"testing"

	"gotest.tools/assert"

	"github.com/ofkit/dtoverlay/pkg/dtree"
)

func buildSample() *dtree.Node {
	root := dtree.NewNode("")
	frag := dtree.NewNode("fragment@0")
	root.AddChild(frag)
	frag.AddProperty(dtree.NewProperty("target-path", []byte("/soc/bus\x00")))
	overlay := dtree.NewNode("__overlay__")
	frag.AddChild(overlay)
	overlay.AddProperty(dtree.NewProperty("status", []byte("okay\x00")))
	dev := dtree.NewNode("dev@0")
	overlay.AddChild(dev)
	dev.AddProperty(dtree.NewProperty("compatible", []byte("vendor,dev\x00")))
	return root
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	root := buildSample()
	buf := Encode(root)

	decoded, err := Decode(buf)
	assert.NilError(t, err)

	frag := decoded.ChildByName("fragment@0")
	assert.Assert(t, frag != nil)
	assert.Equal(t, string(frag.Property("target-path").Value), "/soc/bus\x00")

	overlay := frag.ChildByName("__overlay__")
	assert.Assert(t, overlay != nil)
	dev := overlay.ChildByName("dev@0")
	assert.Assert(t, dev != nil)
	assert.Equal(t, string(dev.Property("compatible").Value), "vendor,dev\x00")
}

func TestDecodeBadMagic(t *testing.T) {
	buf := Encode(buildSample())
	buf[0] = 0x00
	_, err := Decode(buf)
	assert.Equal(t, err, ErrBadMagic)
}

func TestDecodeShortBuffer(t *testing.T) {
	_, err := Decode([]byte{0x01, 0x02})
	assert.Equal(t, err, ErrShortBuffer)

	buf := Encode(buildSample())
	_, err = Decode(buf[:len(buf)-3])
	assert.Equal(t, err, ErrShortBuffer)
}

func TestDecodeBadVersion(t *testing.T) {
	buf := Encode(buildSample())
	buf[11] = 0x09
	_, err := Decode(buf)
	assert.Equal(t, err, ErrBadVersion)
}
