// Package proxy intercepts every outbound request of the point-of-sale
// client and enforces the offline caching strategies: network-first for API
// traffic, bounded cache-first for images, cache-first for static assets,
// and network-first with a cached application-shell fallback for navigation.
//
// The package also owns the worker generation lifecycle: install pre-warms
// the static partition from the asset manifest, activation purges cache
// partitions from older generations, and a waiting generation is promoted
// through an update signal as soon as a navigation fetch succeeds.
package proxy
