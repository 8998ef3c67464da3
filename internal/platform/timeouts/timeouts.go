// Package timeouts defines shared timeout constants used across the worker.
// Centralizing these values prevents drift between process boundaries and
// makes the durations discoverable.
package timeouts

import "time"

// SynthesisCall caps one remote narrative-synthesis exchange, including
// retries inside the connector.
const SynthesisCall = 90 * time.Second

// Shutdown limits how long the worker waits for in-flight analyses during
// graceful shutdown.
const Shutdown = 30 * time.Second

// CacheOpen caps the wait when opening the bbolt cache file.
const CacheOpen = time.Second
