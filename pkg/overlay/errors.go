// Package overlay implements the device-tree overlay engine core: the
// overlay-to-changeset translator, the changeset lifecycle (apply/remove
// with partial-failure rollback), and the notification bus. The blob
// decoder (pkg/dtblob), phandle resolver (pkg/phandle), and changeset
// executor (pkg/changeset) are consumed as external collaborators
// through small interfaces so a caller can substitute its own.
package overlay

import "errors"

// Stable error values returned to callers.
var (
	ErrNoMem   = errors.New("overlay: out of memory")
	ErrInvalid = errors.New("overlay: invalid overlay")
	ErrBusy    = errors.New("overlay: busy")
	ErrNoDev   = errors.New("overlay: no such overlay")
)
