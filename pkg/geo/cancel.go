package geo

import "sync/atomic"

// CancelToken is a shared cooperative cancellation flag.
//
// Exactly one external actor is expected to call Cancel; any number of
// components may poll IsCancelled. Cancellation is observed only at poll
// points: no error is raised and nothing is interrupted preemptively.
// A nil token is never cancelled, so callers that do not need
// cancellation may pass nil.
type CancelToken struct {
	cancelled atomic.Bool
}

// Cancel sets the flag. Idempotent.
func (t *CancelToken) Cancel() {
	t.cancelled.Store(true)
}

// IsCancelled reports whether Cancel has been called.
func (t *CancelToken) IsCancelled() bool {
	return t != nil && t.cancelled.Load()
}
