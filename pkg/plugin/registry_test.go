package plugin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"MicroFrontend-Portal/pkg/component"
)

func sampleDescriptor(name string) Descriptor {
	slug := strings.ToLower(name)
	return Descriptor{
		Name:  name,
		Entry: "/" + slug + ".js",
		URL:   "http://localhost:5000/" + slug + ".js",
		Routes: []RouteDescriptor{
			{Path: "/" + slug, Component: name + "Page"},
		},
	}
}

func sampleManifest(name string) Manifest {
	return Manifest{
		Name:      name,
		Version:   "1.0.0",
		Component: component.Spec{Kind: component.KindText, Props: map[string]any{"text": name + " Component"}},
		Exports: map[string]component.Spec{
			name + "Page": {Kind: component.KindTemplate, Props: map[string]any{"template": "<h2>{{.Name}} page</h2>"}},
		},
		Shared: []string{"react", "react-dom"},
	}
}

func mapLoader(manifests map[string]Manifest) LoaderFunc {
	return func(_ context.Context, d Descriptor) (Manifest, error) {
		m, ok := manifests[d.URL]
		if !ok {
			return Manifest{}, fmt.Errorf("%w: %s", ErrBundleUnavailable, d.URL)
		}
		return m, nil
	}
}

func renderString(t *testing.T, c component.Component, props component.Props) string {
	t.Helper()
	var sb strings.Builder
	if err := c.Render(&sb, props); err != nil {
		t.Fatalf("render: %v", err)
	}
	return sb.String()
}

func TestLoadPluginsRegistersEveryDescriptor(t *testing.T) {
	descs := []Descriptor{sampleDescriptor("PluginA"), sampleDescriptor("PluginB"), sampleDescriptor("PluginC")}
	manifests := map[string]Manifest{}
	for _, d := range descs {
		manifests[d.URL] = sampleManifest(d.Name)
	}
	reg := NewRegistry(WithLoader(mapLoader(manifests)))

	if err := reg.LoadPlugins(context.Background(), descs); err != nil {
		t.Fatalf("load plugins: %v", err)
	}

	all := reg.GetAll()
	if len(all) != len(descs) {
		t.Fatalf("expected %d plugins, got %d", len(descs), len(all))
	}
	seen := map[string]bool{}
	for i, p := range all {
		if p.Name != descs[i].Name {
			t.Fatalf("plugin %d: got %s want %s", i, p.Name, descs[i].Name)
		}
		if seen[p.Name] {
			t.Fatalf("duplicate plugin %s", p.Name)
		}
		seen[p.Name] = true
		if p.State != StateReady {
			t.Fatalf("plugin %s state %s", p.Name, p.State)
		}
	}

	a, ok := reg.Get("PluginA")
	if !ok {
		t.Fatal("PluginA not found")
	}
	if got := renderString(t, a.Component, component.Props{Name: "PluginA"}); got != "<div>PluginA Component</div>" {
		t.Fatalf("unexpected component output %q", got)
	}
	if len(a.Routes) != 1 || a.Routes[0].Path != "/plugina" {
		t.Fatalf("unexpected routes: %+v", a.Routes)
	}
	if got := renderString(t, a.Routes[0].Component, component.Props{Name: "PluginA"}); got != "<h2>PluginA page</h2>" {
		t.Fatalf("unexpected route output %q", got)
	}
}

func TestGetUnknownName(t *testing.T) {
	reg := NewRegistry(WithLoader(mapLoader(nil)))
	if _, ok := reg.Get("PluginA"); ok {
		t.Fatal("expected absent plugin before load")
	}
	if len(reg.GetAll()) != 0 {
		t.Fatal("expected empty registry")
	}
}

func TestLoadPluginsAbortsOnFailure(t *testing.T) {
	descs := []Descriptor{sampleDescriptor("PluginA"), sampleDescriptor("Broken"), sampleDescriptor("PluginC")}
	manifests := map[string]Manifest{
		descs[0].URL: sampleManifest("PluginA"),
		descs[2].URL: sampleManifest("PluginC"),
	}
	var fetched []string
	loader := LoaderFunc(func(ctx context.Context, d Descriptor) (Manifest, error) {
		fetched = append(fetched, d.Name)
		return mapLoader(manifests)(ctx, d)
	})

	var events []Event
	reg := NewRegistry(WithLoader(loader), WithEventSink(func(_ context.Context, ev Event) {
		events = append(events, ev)
	}))

	err := reg.LoadPlugins(context.Background(), descs)
	if err == nil {
		t.Fatal("expected load failure")
	}
	if !errors.Is(err, ErrBundleUnavailable) {
		t.Fatalf("expected ErrBundleUnavailable, got %v", err)
	}
	if _, ok := reg.Get("PluginA"); ok {
		t.Fatal("plugin loaded before the failure must not be queryable")
	}
	if reg.Len() != 0 {
		t.Fatalf("expected empty registry, got %d", reg.Len())
	}
	if strings.Join(fetched, ",") != "PluginA,Broken" {
		t.Fatalf("sequential load should stop at the failure, fetched %v", fetched)
	}
	if len(events) != 1 || events[0].Type != EventFailed || events[0].Plugin != "Broken" {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestLoadPluginsRejectsMalformedBundles(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Manifest)
		want   error
	}{
		{"name mismatch", func(m *Manifest) { m.Name = "Other" }, ErrBundleMalformed},
		{"missing export", func(m *Manifest) { m.Exports = nil }, ErrUnknownComponent},
		{"unknown kind", func(m *Manifest) { m.Component.Kind = "react" }, ErrUnknownComponent},
		{"bad props", func(m *Manifest) { m.Component.Props = nil }, ErrBundleMalformed},
		{"route template reads an unknown field", func(m *Manifest) {
			m.Exports["PluginAPage"] = component.Spec{Kind: component.KindTemplate, Props: map[string]any{"template": "<h2>{{.Title}}</h2>"}}
		}, ErrBundleMalformed},
		{"shared library missing", func(m *Manifest) { m.Shared = append(m.Shared, "vue") }, ErrPolicyViolation},
		{"unknown capability", func(m *Manifest) { m.Capabilities = []Capability{CapabilityNavigate, "clipboard"} }, ErrBundleMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := sampleDescriptor("PluginA")
			m := sampleManifest("PluginA")
			tt.mutate(&m)
			reg := NewRegistry(WithLoader(mapLoader(map[string]Manifest{d.URL: m})))

			err := reg.LoadPlugins(context.Background(), []Descriptor{d})
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if _, ok := reg.Get("PluginA"); ok {
				t.Fatal("malformed plugin must not be registered")
			}
		})
	}
}

func TestRegisterLastWinsKeepsOrder(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"PluginA", "PluginB"} {
		if _, err := reg.Register(sampleDescriptor(name), sampleManifest(name)); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}

	replacement := sampleManifest("PluginA")
	replacement.Version = "2.0.0"
	if _, err := reg.Register(sampleDescriptor("PluginA"), replacement); err != nil {
		t.Fatalf("re-register: %v", err)
	}

	all := reg.GetAll()
	if len(all) != 2 {
		t.Fatalf("expected 2 plugins, got %d", len(all))
	}
	if all[0].Name != "PluginA" || all[0].Manifest.Version != "2.0.0" {
		t.Fatalf("expected replaced PluginA first, got %+v", all[0].Manifest)
	}
}

func TestLoadPluginsDuplicateNamesInOneCall(t *testing.T) {
	first := sampleDescriptor("PluginA")
	second := sampleDescriptor("PluginA")
	second.URL = "http://localhost:5000/plugin-a-v2.js"
	m2 := sampleManifest("PluginA")
	m2.Version = "2.0.0"
	reg := NewRegistry(WithLoader(mapLoader(map[string]Manifest{
		first.URL:  sampleManifest("PluginA"),
		second.URL: m2,
	})))

	if err := reg.LoadPlugins(context.Background(), []Descriptor{first, second}); err != nil {
		t.Fatalf("load: %v", err)
	}
	p, _ := reg.Get("PluginA")
	if reg.Len() != 1 || p.Manifest.Version != "2.0.0" {
		t.Fatalf("expected last registration to win, got len=%d version=%s", reg.Len(), p.Manifest.Version)
	}
}

func TestLoadPluginsConcurrentKeepsListOrder(t *testing.T) {
	var descs []Descriptor
	manifests := map[string]Manifest{}
	for i := 0; i < 12; i++ {
		d := sampleDescriptor(fmt.Sprintf("Plugin%02d", i))
		descs = append(descs, d)
		manifests[d.URL] = sampleManifest(d.Name)
	}

	var inFlight, peak atomic.Int32
	loader := LoaderFunc(func(ctx context.Context, d Descriptor) (Manifest, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return mapLoader(manifests)(ctx, d)
	})

	var mu sync.Mutex
	registered := 0
	reg := NewRegistry(WithLoader(loader), WithConcurrency(4), WithEventSink(func(_ context.Context, ev Event) {
		mu.Lock()
		defer mu.Unlock()
		if ev.Type == EventRegistered {
			registered++
		}
	}))

	if err := reg.LoadPlugins(context.Background(), descs); err != nil {
		t.Fatalf("load: %v", err)
	}
	if peak.Load() > 4 {
		t.Fatalf("concurrency bound exceeded: %d", peak.Load())
	}
	for i, p := range reg.GetAll() {
		if p.Name != descs[i].Name {
			t.Fatalf("position %d: got %s want %s", i, p.Name, descs[i].Name)
		}
	}
	if registered != len(descs) {
		t.Fatalf("expected %d registered events, got %d", len(descs), registered)
	}
}

func TestLoadPluginsHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := sampleDescriptor("PluginA")
	reg := NewRegistry(WithLoader(mapLoader(map[string]Manifest{d.URL: sampleManifest("PluginA")})))

	if err := reg.LoadPlugins(ctx, []Descriptor{d}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if reg.Len() != 0 {
		t.Fatal("nothing should be registered after cancellation")
	}
}

func TestLoadPluginsReportsOnlyTheFailingPlugin(t *testing.T) {
	good, bad := sampleDescriptor("Good"), sampleDescriptor("Bad")
	started := make(chan struct{})
	loader := LoaderFunc(func(ctx context.Context, d Descriptor) (Manifest, error) {
		if d.Name == "Good" {
			close(started)
			<-ctx.Done()
			return Manifest{}, fmt.Errorf("%w: %w", ErrBundleUnavailable, ctx.Err())
		}
		<-started
		return Manifest{}, fmt.Errorf("%w: %s", ErrBundleUnavailable, d.URL)
	})

	var mu sync.Mutex
	var failed []string
	reg := NewRegistry(WithLoader(loader), WithConcurrency(2), WithEventSink(func(_ context.Context, ev Event) {
		mu.Lock()
		defer mu.Unlock()
		if ev.Type == EventFailed {
			failed = append(failed, ev.Plugin)
		}
	}))

	err := reg.LoadPlugins(context.Background(), []Descriptor{good, bad})
	if !errors.Is(err, ErrBundleUnavailable) {
		t.Fatalf("expected ErrBundleUnavailable, got %v", err)
	}
	if !strings.Contains(err.Error(), "Bad") {
		t.Fatalf("expected the failing plugin in the error, got %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(failed) != 1 || failed[0] != "Bad" {
		t.Fatalf("expected a single failure event for Bad, got %v", failed)
	}
}

func TestLoadPluginsCallerCancellationStillReported(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	loader := LoaderFunc(func(ctx context.Context, d Descriptor) (Manifest, error) {
		cancel()
		<-ctx.Done()
		return Manifest{}, ctx.Err()
	})
	var failed []string
	reg := NewRegistry(WithLoader(loader), WithEventSink(func(_ context.Context, ev Event) {
		if ev.Type == EventFailed {
			failed = append(failed, ev.Plugin)
		}
	}))

	if err := reg.LoadPlugins(ctx, []Descriptor{sampleDescriptor("PluginA")}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(failed) != 1 {
		t.Fatalf("expected the cancelled fetch to be reported, got %v", failed)
	}
}
