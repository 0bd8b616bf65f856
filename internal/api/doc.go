// Package api exposes the portal's HTTP services: the config server that
// hands out plugin descriptors and the bundle server that publishes plugin
// manifests at their entry paths.
package api
