// Package dtblob decodes the compact binary tree format overlay blobs
// are packed in: a self-describing header followed by depth-first node
// records. It is the default implementation of pkg/overlay's
// BlobDecoder collaborator.
package dtblob

import (
	"encoding/binary"
	"fmt"

	"github.com/ofkit/dtoverlay/pkg/dtree"
)

// Magic is the fixed 4-byte header tag, "OVLY" read as a big-endian
// uint32.
const Magic uint32 = 0x4F56_4C59

// Version is the only blob format version this decoder understands.
const Version uint32 = 1

const headerLen = 12

// ErrShortBuffer is returned when buf is too small to hold a header, or
// the header's total field claims more bytes than buf actually has.
var ErrShortBuffer = fmt.Errorf("dtblob: buffer shorter than declared total size")

// ErrBadMagic is returned when the header's magic field doesn't match Magic.
var ErrBadMagic = fmt.Errorf("dtblob: bad magic")

// ErrBadVersion is returned when the header's version field is not one
// this decoder understands.
var ErrBadVersion = fmt.Errorf("dtblob: unsupported version")

// Decode validates buf's header and parses the depth-first node records
// that follow it, returning the root of a detached overlay tree: a
// synthetic root node whose children are the overlay's top-level
// fragments.
func Decode(buf []byte) (*dtree.Node, error) {
	if len(buf) < headerLen {
		return nil, ErrShortBuffer
	}
	magic := binary.BigEndian.Uint32(buf[0:4])
	if magic != Magic {
		return nil, ErrBadMagic
	}
	total := binary.BigEndian.Uint32(buf[4:8])
	if uint64(total) > uint64(len(buf)) {
		return nil, ErrShortBuffer
	}
	version := binary.BigEndian.Uint32(buf[8:12])
	if version != Version {
		return nil, ErrBadVersion
	}

	root := dtree.NewNode("")
	root.SetFlag(dtree.FlagDynamic)
	d := &decoder{buf: buf[:total], off: headerLen}
	if err := d.decodeChildren(root); err != nil {
		return nil, err
	}
	return root, nil
}

type decoder struct {
	buf []byte
	off int
}

func (d *decoder) need(n int) error {
	if d.off+n > len(d.buf) {
		return ErrShortBuffer
	}
	return nil
}

func (d *decoder) u16() (uint16, error) {
	if err := d.need(2); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(d.buf[d.off : d.off+2])
	d.off += 2
	return v, nil
}

func (d *decoder) u32() (uint32, error) {
	if err := d.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(d.buf[d.off : d.off+4])
	d.off += 4
	return v, nil
}

func (d *decoder) bytes(n int) ([]byte, error) {
	if err := d.need(n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, d.buf[d.off:d.off+n])
	d.off += n
	return out, nil
}

// decodeChildren parses sibling node records into parent until buf is
// exhausted; it is used only for the top-level records under the
// synthetic root (nested children are read by decodeNode using each
// record's own child count).
func (d *decoder) decodeChildren(parent *dtree.Node) error {
	for d.off < len(d.buf) {
		child, err := d.decodeNode()
		if err != nil {
			return err
		}
		parent.AddChild(child)
	}
	return nil
}

func (d *decoder) decodeNode() (*dtree.Node, error) {
	nameLen, err := d.u16()
	if err != nil {
		return nil, err
	}
	nameBytes, err := d.bytes(int(nameLen))
	if err != nil {
		return nil, err
	}
	node := dtree.NewNode(string(nameBytes))

	nprops, err := d.u16()
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(nprops); i++ {
		pNameLen, err := d.u16()
		if err != nil {
			return nil, err
		}
		pName, err := d.bytes(int(pNameLen))
		if err != nil {
			return nil, err
		}
		valLen, err := d.u32()
		if err != nil {
			return nil, err
		}
		val, err := d.bytes(int(valLen))
		if err != nil {
			return nil, err
		}
		node.AddProperty(dtree.NewProperty(string(pName), val))
	}

	nchildren, err := d.u16()
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(nchildren); i++ {
		child, err := d.decodeNode()
		if err != nil {
			return nil, err
		}
		node.AddChild(child)
	}
	return node, nil
}
