package plugin

import (
	"context"
	"errors"
	"time"

	"MicroFrontend-Portal/pkg/component"
)

var (
	// ErrBundleUnavailable means the bundle could not be fetched.
	ErrBundleUnavailable = errors.New("bundle unavailable")
	// ErrBundleMalformed means the bundle was fetched but does not describe the plugin.
	ErrBundleMalformed = errors.New("bundle malformed")
	// ErrUnknownComponent means a route or export references a component that cannot be resolved.
	ErrUnknownComponent = errors.New("unknown component")
	// ErrPolicyViolation means the bundle requires something the host refuses to provide.
	ErrPolicyViolation = errors.New("policy violation")
)

// EventType identifies a step of a bulk load.
type EventType string

const (
	EventRegistered EventType = "plugin_registered"
	EventFailed     EventType = "load_failed"
	EventCompleted  EventType = "load_completed"
)

// Event is emitted to every sink while LoadPlugins runs.
type Event struct {
	Type       EventType
	Session    string
	Plugin     string
	Err        error
	Duration   time.Duration
	OccurredAt time.Time
}

// EventSink receives load events. Failure events may arrive from concurrent
// fetches, so sinks must be safe for concurrent use.
type EventSink func(ctx context.Context, ev Event)

// Option modifies the behaviour of a registry instance.
type Option func(*Registry)

// WithLoader overrides the default HTTP bundle loader.
func WithLoader(loader Loader) Option {
	return func(r *Registry) {
		if loader != nil {
			r.loader = loader
		}
	}
}

// WithCatalog sets the component catalog used to resolve exports.
func WithCatalog(catalog *component.Catalog) Option {
	return func(r *Registry) {
		if catalog != nil {
			r.catalog = catalog
		}
	}
}

// WithPolicy sets the shared library and capability policy.
func WithPolicy(policy Policy) Option {
	return func(r *Registry) {
		r.policy = policy
	}
}

// WithConcurrency bounds how many bundles are fetched at once. Values below
// one fall back to sequential loading.
func WithConcurrency(n int) Option {
	return func(r *Registry) {
		if n < 1 {
			n = 1
		}
		r.concurrency = n
	}
}

// WithEventSink adds a receiver for load events.
func WithEventSink(sink EventSink) Option {
	return func(r *Registry) {
		if sink != nil {
			r.sinks = append(r.sinks, sink)
		}
	}
}
