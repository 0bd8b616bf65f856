package plugin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"MicroFrontend-Portal/pkg/component"
)

// Registry keeps loaded plugins keyed by name and remembers the order in
// which names were first registered.
type Registry struct {
	mu          sync.RWMutex
	plugins     map[string]*Plugin
	order       []string
	loader      Loader
	catalog     *component.Catalog
	policy      Policy
	concurrency int
	sinks       []EventSink
}

// NewRegistry constructs an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		plugins:     make(map[string]*Plugin),
		loader:      NewHTTPLoader(),
		catalog:     component.Default(),
		policy:      DefaultPolicy(),
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the plugin registered under name.
func (r *Registry) Get(name string) (*Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[name]
	return p, ok
}

// GetAll returns every plugin in registration order.
func (r *Registry) GetAll() []*Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]*Plugin, 0, len(r.order))
	for _, name := range r.order {
		all = append(all, r.plugins[name])
	}
	return all
}

// Len returns the number of registered plugins.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Register resolves a single manifest and stores it immediately. A plugin with
// the same name is replaced.
func (r *Registry) Register(d Descriptor, m Manifest) (*Plugin, error) {
	p, err := r.Resolve(d, m)
	if err != nil {
		return nil, err
	}
	r.commit([]*Plugin{p})
	return p, nil
}

// Resolve turns a descriptor and its manifest into a ready plugin without
// touching the registry.
func (r *Registry) Resolve(d Descriptor, m Manifest) (*Plugin, error) {
	if d.Name == "" {
		return nil, errors.New("plugin name cannot be empty")
	}
	if m.Name != d.Name {
		return nil, fmt.Errorf("%w: bundle at %s exports %q, want %q", ErrBundleMalformed, d.URL, m.Name, d.Name)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if err := r.policy.Check(m); err != nil {
		return nil, fmt.Errorf("plugin %s: %w", d.Name, err)
	}

	main, err := r.build(d.Name, "component", m.Component)
	if err != nil {
		return nil, err
	}

	built := make(map[string]component.Component, len(m.Exports))
	routes := make([]Route, 0, len(d.Routes))
	for _, rd := range d.Routes {
		if !strings.HasPrefix(rd.Path, "/") {
			return nil, fmt.Errorf("plugin %s: route path %q must start with /", d.Name, rd.Path)
		}
		comp, ok := built[rd.Component]
		if !ok {
			spec, exported := m.Exports[rd.Component]
			if !exported {
				return nil, fmt.Errorf("%w: %s does not export %s", ErrUnknownComponent, d.Name, rd.Component)
			}
			comp, err = r.build(d.Name, rd.Component, spec)
			if err != nil {
				return nil, err
			}
			built[rd.Component] = comp
		}
		routes = append(routes, Route{Path: rd.Path, Name: rd.Component, Component: comp})
	}

	return &Plugin{
		Name:       d.Name,
		Component:  main,
		Routes:     routes,
		Manifest:   m,
		Descriptor: d.Clone(),
		State:      StateReady,
	}, nil
}

func (r *Registry) build(pluginName, export string, spec component.Spec) (component.Component, error) {
	comp, err := r.catalog.Build(spec)
	if err == nil {
		return comp, nil
	}
	if errors.Is(err, component.ErrUnknownKind) {
		return nil, fmt.Errorf("%w: %s.%s: %v", ErrUnknownComponent, pluginName, export, err)
	}
	return nil, fmt.Errorf("%w: %s.%s: %v", ErrBundleMalformed, pluginName, export, err)
}

// LoadPlugins fetches every bundle, resolves it, and registers the result.
// The first failure aborts the whole call and nothing from it is registered.
func (r *Registry) LoadPlugins(ctx context.Context, descriptors []Descriptor) error {
	session := uuid.NewString()
	started := time.Now()

	manifests := make([]Manifest, len(descriptors))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, d := range descriptors {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fetchStart := time.Now()
			m, err := r.loader.Load(gctx, d)
			if err != nil {
				// A fetch cut short because another bundle already failed is
				// not a failure of this plugin.
				if gctx.Err() == nil || ctx.Err() != nil {
					r.emit(ctx, Event{Type: EventFailed, Session: session, Plugin: d.Name, Err: err, Duration: time.Since(fetchStart)})
				}
				return fmt.Errorf("load plugin %s: %w", d.Name, err)
			}
			manifests[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	staged := make([]*Plugin, 0, len(descriptors))
	for i, d := range descriptors {
		p, err := r.Resolve(d, manifests[i])
		if err != nil {
			r.emit(ctx, Event{Type: EventFailed, Session: session, Plugin: d.Name, Err: err})
			return fmt.Errorf("register plugin %s: %w", d.Name, err)
		}
		staged = append(staged, p)
	}

	r.commit(staged)
	for _, p := range staged {
		r.emit(ctx, Event{Type: EventRegistered, Session: session, Plugin: p.Name})
	}
	r.emit(ctx, Event{Type: EventCompleted, Session: session, Duration: time.Since(started)})
	return nil
}

func (r *Registry) commit(staged []*Plugin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range staged {
		if _, exists := r.plugins[p.Name]; !exists {
			r.order = append(r.order, p.Name)
		}
		r.plugins[p.Name] = p
	}
}

func (r *Registry) emit(ctx context.Context, ev Event) {
	if len(r.sinks) == 0 {
		return
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now()
	}
	for _, sink := range r.sinks {
		sink(ctx, ev)
	}
}
