// Package timeouts defines shared timeout constants for the HTTP surface.
// Centralizing these values keeps the server and shutdown paths in sync and
// makes the durations discoverable.
package timeouts

import "time"

// ReadHeader limits how long the HTTP server waits for request headers.
const ReadHeader = 10 * time.Second

// Shutdown limits how long the HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 10 * time.Second

// TracerShutdown limits how long trace export flushing may take on exit.
const TracerShutdown = 5 * time.Second
