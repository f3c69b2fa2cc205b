// Package cache defines named cache partitions for intercepted responses.
//
// A partition is an isolated key-value region identified by a version-stamped
// name (static assets, API responses, images). Partitions are wholesale
// deletable, which is how generation cleanup retires stale versions.
// Implementations live in subpackages: memory (in-process) and sqlite
// (durable across restarts).
package cache
