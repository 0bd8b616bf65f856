// Package config loads the portal configuration from a JSON or YAML file and
// fills in defaults for the config server, bundle server, shell, storage,
// cache, events, logging and metrics sections.
package config
