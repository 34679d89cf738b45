package domain

import "errors"

// ErrRateLimited is returned when the switch gate denies a filter
// change. The caller surfaces the restriction instead of retrying.
var ErrRateLimited = errors.New("rate limited")

// ConnectionError wraps a stream failure. It is recovered locally by
// reconnecting and is never fatal to the process.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return "stream connection: " + e.Err.Error()
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// PollError wraps a failed or rejected stats poll cycle. The cycle is
// skipped and the previous snapshots stay in place.
type PollError struct {
	Err error
}

func (e *PollError) Error() string {
	return "stats poll: " + e.Err.Error()
}

func (e *PollError) Unwrap() error { return e.Err }
