package plugin

import (
	"fmt"
	"slices"
)

// Policy describes what the host provides to bundles and what it refuses.
type Policy struct {
	// Shared lists the libraries the host supplies to every bundle.
	Shared []string `json:"shared" yaml:"shared"`
	// AllowedCapabilities restricts requested capabilities when non-empty.
	AllowedCapabilities []Capability `json:"allowed_capabilities" yaml:"allowed_capabilities"`
	// DeniedCapabilities are always rejected.
	DeniedCapabilities []Capability `json:"denied_capabilities" yaml:"denied_capabilities"`
}

// DefaultPolicy mirrors the sample host: react and react-dom are supplied,
// any capability is accepted.
func DefaultPolicy() Policy {
	return Policy{Shared: []string{"react", "react-dom"}}
}

// Merge returns a new policy using values from other when not present.
func (p Policy) Merge(other Policy) Policy {
	if len(p.Shared) == 0 {
		p.Shared = other.Shared
	}
	if len(p.AllowedCapabilities) == 0 {
		p.AllowedCapabilities = other.AllowedCapabilities
	}
	if len(p.DeniedCapabilities) == 0 {
		p.DeniedCapabilities = other.DeniedCapabilities
	}
	return p
}

// Check validates a manifest's shared libraries and capabilities.
func (p Policy) Check(m Manifest) error {
	for _, lib := range m.Shared {
		if !slices.Contains(p.Shared, lib) {
			return fmt.Errorf("%w: shared library %s is not provided by the host", ErrPolicyViolation, lib)
		}
	}
	for _, cap := range m.Capabilities {
		if slices.Contains(p.DeniedCapabilities, cap) {
			return fmt.Errorf("%w: capability %s is explicitly denied", ErrPolicyViolation, cap)
		}
	}
	if len(p.AllowedCapabilities) == 0 {
		return nil
	}
	for _, cap := range m.Capabilities {
		if !slices.Contains(p.AllowedCapabilities, cap) {
			return fmt.Errorf("%w: capability %s not permitted", ErrPolicyViolation, cap)
		}
	}
	return nil
}
