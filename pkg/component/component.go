// Package component resolves the component identifiers carried by plugin
// bundles into renderable components. Kinds are registered statically by the
// host so a bundle can only reference behaviour the host already ships.
package component

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
)

var (
	// ErrUnknownKind is returned when a spec names a kind nobody registered.
	ErrUnknownKind = errors.New("unknown component kind")
	// ErrInvalidProps is returned by factories when required props are missing.
	ErrInvalidProps = errors.New("invalid component props")
)

// Props is the data handed to a component at render time.
type Props struct {
	Name string
	Path string
}

// Component renders an HTML fragment.
type Component interface {
	Kind() string
	Render(w io.Writer, props Props) error
}

// Spec declares a component by kind and static properties.
type Spec struct {
	Kind  string         `json:"kind" yaml:"kind"`
	Props map[string]any `json:"props,omitempty" yaml:"props,omitempty"`
}

// Factory builds a component from its static properties.
type Factory func(props map[string]any) (Component, error)

// Catalog maps stable kind identifiers to factories.
type Catalog struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{factories: make(map[string]Factory)}
}

// Register adds a factory under kind. Kinds cannot be registered twice.
func (c *Catalog) Register(kind string, factory Factory) error {
	if kind == "" {
		return errors.New("component kind cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("component kind %s: factory cannot be nil", kind)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.factories[kind]; exists {
		return fmt.Errorf("component kind %s already registered", kind)
	}
	c.factories[kind] = factory
	return nil
}

// MustRegister is Register for package initialisation paths.
func (c *Catalog) MustRegister(kind string, factory Factory) {
	if err := c.Register(kind, factory); err != nil {
		panic(err)
	}
}

// Build validates the spec and returns the component it describes.
func (c *Catalog) Build(spec Spec) (Component, error) {
	c.mu.RLock()
	factory, ok := c.factories[spec.Kind]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, spec.Kind)
	}
	props := spec.Props
	if props == nil {
		props = map[string]any{}
	}
	comp, err := factory(props)
	if err != nil {
		return nil, fmt.Errorf("build %s component: %w", spec.Kind, err)
	}
	return comp, nil
}

// Kinds lists the registered kinds in lexical order.
func (c *Catalog) Kinds() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	kinds := make([]string, 0, len(c.factories))
	for kind := range c.factories {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the process-wide catalog populated with the built-in kinds.
func Default() *Catalog {
	defaultOnce.Do(func() {
		defaultCatalog = NewCatalog()
		RegisterBuiltins(defaultCatalog)
	})
	return defaultCatalog
}
