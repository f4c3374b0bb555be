// Package timeouts defines shared timeout constants used across services.
// Centralizing these values prevents drift between service boundaries and
// makes the durations discoverable.
package timeouts

import "time"

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long an HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// AuxiliaryCall caps short auxiliary model calls such as title generation.
const AuxiliaryCall = 5 * time.Second

// DeliberationCall caps a single primary council model call. Retries run
// their own fresh budget on top of this per-attempt limit.
const DeliberationCall = 120 * time.Second

// WebhookDelivery caps a single webhook POST attempt.
const WebhookDelivery = 10 * time.Second
