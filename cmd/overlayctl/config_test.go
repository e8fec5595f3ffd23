package main

import (
	"testing"

	"gotest.tools/assert"

	"github.com/ofkit/dtoverlay/pkg/dtree"
)

func TestBuildLiveTreeCreatesIntermediateNodes(t *testing.T) {
	c := &config{
		Live: []nodeSpec{
			{Path: "/soc/bus/dev", Properties: map[string]string{"status": "okay"}},
		},
	}

	root := buildLiveTree(c)
	dev := dtree.FindByPath(root, "/soc/bus/dev")
	assert.Assert(t, dev != nil)
	assert.Equal(t, string(dev.Property("status").Value), "okay\x00")
	assert.Assert(t, dtree.FindByPath(root, "/soc/bus") != nil)
}

func TestBuildLiveTreeSetsPhandle(t *testing.T) {
	c := &config{
		Live: []nodeSpec{
			{Path: "/soc/gpio", Phandle: 5},
		},
	}

	root := buildLiveTree(c)
	gpio := dtree.FindByPath(root, "/soc/gpio")
	assert.Assert(t, gpio != nil)
	assert.Equal(t, gpio.Phandle(), uint32(5))
}

func TestSplitPath(t *testing.T) {
	assert.DeepEqual(t, splitPath("/a/b/c"), []string{"a", "b", "c"})
	assert.DeepEqual(t, splitPath("/"), []string(nil))
	assert.DeepEqual(t, splitPath(""), []string(nil))
}

func TestLoadConfigEmptyPath(t *testing.T) {
	c, err := loadConfig("")
	assert.NilError(t, err)
	assert.Equal(t, len(c.Live), 0)
	assert.Equal(t, len(c.Overlays), 0)
}
