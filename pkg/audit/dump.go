// Package audit renders a changeset entry as an RFC6902 JSON Patch
// operation purely for diagnostics: apply/remove in pkg/overlay never
// goes through JSON Patch, but printing each primitive edit in that
// well-known shape gives operators a familiar diff to read in logs. Each
// rendered operation is round-tripped through jsonpatch.DecodePatch to
// validate its shape before it's ever logged.
package audit

import (
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/golang/glog"

	"github.com/ofkit/dtoverlay/pkg/changeset"
	"github.com/ofkit/dtoverlay/pkg/dtree"
)

// Dumper renders and logs changeset entries as RFC6902 JSON Patch lines
// through OnEntry, a changeset.EntryObserver.
type Dumper struct {
	// Sink receives the rendered JSON Patch op line; defaults to
	// glog.V(2).Info when nil.
	Sink func(line string)
}

// NewDumper returns a Dumper logging through glog.
func NewDumper() *Dumper {
	return &Dumper{}
}

func (d *Dumper) log(line string) {
	if d.Sink != nil {
		d.Sink(line)
		return
	}
	glog.V(2).Info(line)
}

// EntryLine renders a single changeset entry as one RFC6902 operation,
// validating it with jsonpatch.DecodePatch before returning it. An
// entry whose shape fails to validate is itself a bug in the walker or
// executor, so this is asserted with an error return rather than
// silently skipped.
func EntryLine(e *changeset.Entry) (string, error) {
	op, path, value, err := entryOp(e)
	if err != nil {
		return "", err
	}

	patchStr := fmt.Sprintf(`{ "op": "%s", "path": "%s", "value": %s }`, op, path, value)
	if _, err := jsonpatch.DecodePatch([]byte("[" + patchStr + "]")); err != nil {
		return "", fmt.Errorf("audit: entry %s on %s produced an invalid patch: %w", e.Kind, path, err)
	}
	return patchStr, nil
}

// OnEntry is a changeset.EntryObserver (see pkg/changeset.Executor.OnEntry)
// logging every applied/reverted primitive entry as its JSON Patch line.
func (d *Dumper) OnEntry(e *changeset.Entry, applied bool) error {
	line, err := EntryLine(e)
	if err != nil {
		return err
	}
	state := "reverted"
	if applied {
		state = "applied"
	}
	d.log(fmt.Sprintf("%s: %s", state, line))
	return nil
}

func entryOp(e *changeset.Entry) (op, path, value string, err error) {
	path = dtree.PathOf(e.Node)

	switch e.Kind {
	case changeset.AttachNode:
		return "add", path, propsValue(e.Node.Properties()), nil
	case changeset.DetachNode:
		return "remove", path, "null", nil
	case changeset.AddProperty:
		return "add", path + "/" + e.Prop.Name, scalarValue(e.Prop), nil
	case changeset.UpdateProperty:
		return "replace", path + "/" + e.Prop.Name, scalarValue(e.Prop), nil
	case changeset.RemoveProperty:
		return "remove", path + "/" + e.Prop.Name, "null", nil
	default:
		return "", "", "", fmt.Errorf("audit: unknown changeset entry kind %v", e.Kind)
	}
}

func scalarValue(p *dtree.Property) string {
	b, err := json.Marshal(string(p.Value))
	if err != nil {
		return `""`
	}
	return string(b)
}

func propsValue(props []*dtree.Property) string {
	m := make(map[string]string, len(props))
	for _, p := range props {
		m[p.Name] = string(p.Value)
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(b)
}
