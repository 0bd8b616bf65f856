// Package bundle loads the plugin bundles published by the bundle server.
// A bundle file pairs the entry path it is served under with the manifest the
// shell registers.
package bundle
