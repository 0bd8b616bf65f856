package plugin

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// DecodeManifest parses a bundle manifest. Documents starting with '{' are
// decoded as JSON, anything else as YAML.
func DecodeManifest(raw []byte) (Manifest, error) {
	var m Manifest
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return m, fmt.Errorf("%w: empty document", ErrBundleMalformed)
	}
	var err error
	if trimmed[0] == '{' {
		err = json.Unmarshal(trimmed, &m)
	} else {
		err = yaml.Unmarshal(trimmed, &m)
	}
	if err != nil {
		return m, fmt.Errorf("%w: %v", ErrBundleMalformed, err)
	}
	if err := m.Validate(); err != nil {
		return m, err
	}
	return m, nil
}

// Validate ensures the manifest is internally consistent. Component kinds are
// checked later against the host catalog.
func (m Manifest) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrBundleMalformed)
	}
	if m.Component.Kind == "" {
		return fmt.Errorf("%w: %s declares no component", ErrBundleMalformed, m.Name)
	}
	for _, c := range m.Capabilities {
		if !c.Known() {
			return fmt.Errorf("%w: %s requests unknown capability %q", ErrBundleMalformed, m.Name, c)
		}
	}
	for name, spec := range m.Exports {
		if name == "" {
			return fmt.Errorf("%w: %s has an unnamed export", ErrBundleMalformed, m.Name)
		}
		if spec.Kind == "" {
			return fmt.Errorf("%w: export %s.%s has no kind", ErrBundleMalformed, m.Name, name)
		}
	}
	return nil
}
