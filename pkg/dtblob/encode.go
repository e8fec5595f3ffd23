package dtblob

import (
	"bytes"
	"encoding/binary"

	"github.com/ofkit/dtoverlay/pkg/dtree"
)

// Encode serializes root's children as a sequence of depth-first node
// records under a Magic/Version header. root itself is not written (it
// is the synthetic parent Decode also synthesizes); this is the inverse
// of Decode and exists mainly so tests and cmd/overlayctl fixtures don't
// need to hand-assemble binary blobs.
func Encode(root *dtree.Node) []byte {
	var body bytes.Buffer
	for _, child := range root.Children() {
		encodeNode(&body, child)
	}

	var out bytes.Buffer
	var hdr [headerLen]byte
	binary.BigEndian.PutUint32(hdr[0:4], Magic)
	binary.BigEndian.PutUint32(hdr[4:8], uint32(headerLen+body.Len()))
	binary.BigEndian.PutUint32(hdr[8:12], Version)
	out.Write(hdr[:])
	out.Write(body.Bytes())
	return out.Bytes()
}

func encodeNode(buf *bytes.Buffer, n *dtree.Node) {
	writeU16(buf, uint16(len(n.Name())))
	buf.WriteString(n.Name())

	props := n.Properties()
	writeU16(buf, uint16(len(props)))
	for _, p := range props {
		writeU16(buf, uint16(len(p.Name)))
		buf.WriteString(p.Name)
		writeU32(buf, uint32(len(p.Value)))
		buf.Write(p.Value)
	}

	children := n.Children()
	writeU16(buf, uint16(len(children)))
	for _, c := range children {
		encodeNode(buf, c)
	}
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}
