// Package trail wraps *http.Client so that every exchange a call produces
// is captured and queryable after the fact:
// - per-hop transaction history, one entry per request/response pair
//   (redirect chains yield one entry per hop, in dispatch order)
// - connection-level debug telemetry keyed by the originating URL
// - transport failures mapped to synthetic JSON error responses instead
//   of surfacing as errors
// - read-only views over the capture: last transaction, full chain, and
//   a condensed columnar summary
// - reset that rebinds the transport while preserving externally shared
//   history handles
//
// Captured bodies are buffered in full so a transaction can be inspected
// at any time; callers still receive a readable body. The wrapper is a
// diagnostic tool first and sized for debug traffic, not bulk transfer.
package trail
