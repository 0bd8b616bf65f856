// Package redis provides the read-through cache placed in front of a plugin
// descriptor store when the redis cache driver is selected.
package redis
