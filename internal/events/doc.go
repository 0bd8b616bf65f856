// Package events carries plugin load lifecycle events from the shell's
// registry to a memory, Redis or RabbitMQ backed bus so they can be tailed
// from another process.
package events
