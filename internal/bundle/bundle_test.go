package bundle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MicroFrontend-Portal/internal/descriptor"
	"MicroFrontend-Portal/pkg/component"
	"MicroFrontend-Portal/pkg/plugin"
)

func TestSamples(t *testing.T) {
	store, err := Samples()
	require.NoError(t, err)
	assert.Equal(t, []string{"/plugin-a.js"}, store.Entries())

	m, ok := store.Lookup("/plugin-a.js")
	require.True(t, ok)
	assert.Equal(t, "PluginA", m.Name)
	assert.Equal(t, component.KindText, m.Component.Kind)
	assert.Equal(t, "Plugin A Component", m.Component.Props["text"])
	assert.Contains(t, m.Exports, "PluginAPage")
	assert.ElementsMatch(t, []string{"react", "react-dom"}, m.Shared)

	_, ok = store.Lookup("/plugin-b.js")
	assert.False(t, ok)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	write("b.json", `{"entry": "/plugin-b.js", "name": "PluginB", "component": {"kind": "text", "props": {"text": "B"}}}`)
	write("c.yml", "entry: /plugin-c.js\nname: PluginC\ncomponent:\n  kind: text\n  props:\n    text: C\n")
	write("README.md", "ignored")

	store, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"/plugin-b.js", "/plugin-c.js"}, store.Entries())

	m, ok := store.Lookup("/plugin-b.js")
	require.True(t, ok)
	assert.Equal(t, "PluginB", m.Name)
}

func TestLoadDirRejectsDuplicateEntries(t *testing.T) {
	dir := t.TempDir()
	content := "entry: /plugin-a.js\nname: PluginA\ncomponent:\n  kind: text\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "one.yaml"), []byte(content), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "two.yaml"), []byte(content), 0o644))

	_, err := LoadDir(dir)
	assert.ErrorContains(t, err, "duplicate bundle entry")
}

func TestNewStoreValidation(t *testing.T) {
	_, err := NewStore([]Bundle{{Entry: "plugin-a.js"}})
	assert.Error(t, err)

	b := Bundle{Entry: "/plugin-a.js"}
	_, err = NewStore([]Bundle{b})
	assert.Error(t, err, "manifest without a name must be rejected")
}

func TestOpen(t *testing.T) {
	store, err := Open("")
	require.NoError(t, err)
	assert.Len(t, store.Entries(), 1)

	_, err = Open(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestExampleBundlesMatchExampleDescriptors(t *testing.T) {
	store, err := LoadDir(filepath.Join("..", "..", "examples", "bundles"))
	require.NoError(t, err)
	assert.Equal(t, []string{"/plugin-a.js", "/plugin-b.js"}, store.Entries())

	descs, err := descriptor.LoadFile(filepath.Join("..", "..", "examples", "descriptors.yaml"))
	require.NoError(t, err)
	reg := plugin.NewRegistry()
	for _, d := range descs {
		m, ok := store.Lookup(d.Entry)
		require.True(t, ok, d.Entry)
		_, err := reg.Register(d, m)
		require.NoError(t, err, d.Name)
	}
	assert.Equal(t, 2, reg.Len())
}
