package overlay

import (
	"bytes"
	"encoding/binary"

	"github.com/ofkit/dtoverlay/pkg/dtree"
)

// propUint32 decodes a property's value as a single big-endian uint32,
// the wire shape of a phandle reference. ok is false if the property is
// nil or not exactly 4 bytes.
func propUint32(p *dtree.Property) (val uint32, ok bool) {
	if p == nil || len(p.Value) != 4 {
		return 0, false
	}
	return binary.BigEndian.Uint32(p.Value), true
}

// propCString decodes a property's value as a NUL-terminated, non-empty
// string, the wire shape of a path property. ok is false if the
// property is nil, has no NUL terminator, or is empty before the first
// NUL.
func propCString(p *dtree.Property) (s string, ok bool) {
	if p == nil {
		return "", false
	}
	idx := bytes.IndexByte(p.Value, 0)
	if idx <= 0 {
		return "", false
	}
	return string(p.Value[:idx]), true
}
