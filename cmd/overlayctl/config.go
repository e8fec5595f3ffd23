package main

import (
	"os"

	yaml "gopkg.in/yaml.v2"

	"github.com/ofkit/dtoverlay/pkg/dtree"
)

// nodeSpec is one entry of a config file's "live" list: a node path plus
// the string properties to set on it, intermediate path components
// created (with no properties) if not already present.
type nodeSpec struct {
	Path       string            `yaml:"path"`
	Phandle    uint32            `yaml:"phandle"`
	Properties map[string]string `yaml:"properties"`
}

// config is the YAML shape loaded via --config: an initial live tree plus
// the overlay blobs already considered applied, replayed in order so
// every subcommand invocation starts from the same state. The engine
// itself keeps no on-disk state of its own; this harness rebuilds it
// from the config file on every run instead.
type config struct {
	Live     []nodeSpec `yaml:"live"`
	Overlays []string   `yaml:"overlays"`
}

func loadConfig(path string) (*config, error) {
	if path == "" {
		return &config{}, nil
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c config
	if err := yaml.Unmarshal(buf, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// buildLiveTree constructs the live tree a config file describes, string
// property values stored NUL-terminated to match the engine's own
// property-value convention.
func buildLiveTree(c *config) *dtree.Node {
	root := dtree.NewNode("")
	for _, spec := range c.Live {
		n := ensurePath(root, spec.Path)
		if spec.Phandle != 0 {
			n.SetPhandle(spec.Phandle)
		}
		for name, value := range spec.Properties {
			n.AddProperty(dtree.NewProperty(name, []byte(value+"\x00")))
		}
	}
	return root
}

func ensurePath(root *dtree.Node, path string) *dtree.Node {
	cur := dtree.FindByPath(root, path)
	if cur != nil {
		return cur
	}
	segs := splitPath(path)
	cur = root
	for _, seg := range segs {
		next := cur.ChildByName(seg)
		if next == nil {
			next = dtree.NewNode(seg)
			cur.AddChild(next)
		}
		cur = next
	}
	return cur
}

func splitPath(path string) []string {
	var segs []string
	start := 0
	for i := 0; i <= len(path); i++ {
		if i == len(path) || path[i] == '/' {
			if i > start {
				segs = append(segs, path[start:i])
			}
			start = i + 1
		}
	}
	return segs
}
