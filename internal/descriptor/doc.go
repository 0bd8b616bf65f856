// Package descriptor defines where the config server reads plugin descriptors
// from. The in-memory store ships with the PluginA sample; MySQL and the Redis
// read-through cache live under internal/storage.
package descriptor
