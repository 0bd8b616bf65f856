// Package shell implements the host application. On start it fetches the
// plugin descriptors from the config server, loads every bundle into a
// registry, then serves a navigation and route table that merges the built-in
// Home and About pages with the routes the plugins declared.
package shell
