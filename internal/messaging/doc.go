// Package messaging persists chat messages through the messages collection.
// Message timestamps are assigned from a per-service monotonic clock, so the
// chronological listing a conversation view depends on never reorders, even
// across wall-clock steps. The encrypted flag on stored messages is
// informational only; no cryptographic protocol lives here.
package messaging
