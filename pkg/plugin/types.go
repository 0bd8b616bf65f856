package plugin

import "MicroFrontend-Portal/pkg/component"

// RouteDescriptor binds a URL path to a component exported by the plugin bundle.
type RouteDescriptor struct {
	Path      string `json:"path" yaml:"path"`
	Component string `json:"component" yaml:"component"`
}

// Descriptor is the metadata the config service hands out for one plugin.
type Descriptor struct {
	Name   string            `json:"name" yaml:"name"`
	Entry  string            `json:"entry" yaml:"entry"`
	URL    string            `json:"url,omitempty" yaml:"url,omitempty"`
	Routes []RouteDescriptor `json:"routes" yaml:"routes"`
}

// Clone returns a deep copy so callers may mutate the result freely.
func (d Descriptor) Clone() Descriptor {
	dup := d
	if d.Routes != nil {
		dup.Routes = append([]RouteDescriptor(nil), d.Routes...)
	}
	return dup
}

// WithOrigin returns a copy whose URL is origin concatenated with the entry path.
func (d Descriptor) WithOrigin(origin string) Descriptor {
	dup := d.Clone()
	dup.URL = origin + d.Entry
	if dup.Routes == nil {
		dup.Routes = []RouteDescriptor{}
	}
	return dup
}

// Capability expresses optional host features a bundle may request access to.
type Capability string

const (
	CapabilityNetwork  Capability = "network"
	CapabilityStorage  Capability = "storage"
	CapabilityNavigate Capability = "navigate"
)

// Known reports whether the host understands c.
func (c Capability) Known() bool {
	switch c {
	case CapabilityNetwork, CapabilityStorage, CapabilityNavigate:
		return true
	}
	return false
}

// Manifest is the document a bundle publishes in place of a global export.
type Manifest struct {
	Name         string                    `json:"name" yaml:"name"`
	Version      string                    `json:"version,omitempty" yaml:"version,omitempty"`
	Description  string                    `json:"description,omitempty" yaml:"description,omitempty"`
	Component    component.Spec            `json:"component" yaml:"component"`
	Exports      map[string]component.Spec `json:"exports,omitempty" yaml:"exports,omitempty"`
	Shared       []string                  `json:"shared,omitempty" yaml:"shared,omitempty"`
	Capabilities []Capability              `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
}

// State represents the lifecycle position of a plugin in the registry.
type State string

// StateReady is the only state a committed plugin can be in; failed loads
// never reach the registry.
const StateReady State = "ready"

// Route is a resolved route: path plus the component that renders it.
type Route struct {
	Path      string
	Name      string
	Component component.Component
}

// Plugin is a loaded plugin owned by the registry.
type Plugin struct {
	Name       string
	Component  component.Component
	Routes     []Route
	Manifest   Manifest
	Descriptor Descriptor
	State      State
}
