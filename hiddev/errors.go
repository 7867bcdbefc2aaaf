package hiddev

import "errors"

// ErrNoRegistry is returned by OpenAndGetDevice if no signature registry
// has called SetInstantiator yet -- a wiring bug, not a runtime condition
// a client should see in a correctly assembled binary.
var ErrNoRegistry = errors.New("hiddev: no device signature registry registered")

// ErrClosed names the state of a device that has been disconnected or
// explicitly closed. No Base method returns it: Base's transfer methods
// report failure through their bool/int results.
var ErrClosed = errors.New("hiddev: device closed")

// OpenFailedError is the Error-kind for "transport could not acquire the
// device" (spec.md §7). Exclusive access is distinguished by its own
// typed error below so a client can tell the two apart without string
// matching.
type OpenFailedError struct {
	Path string
	Err  error
}

func (e *OpenFailedError) Error() string {
	return "hiddev: open failed for " + e.Path + ": " + e.Err.Error()
}
func (e *OpenFailedError) Unwrap() error { return e.Err }

// ExclusiveAccessError distinguishes "another process holds the device"
// from a generic open failure so callers can show the right message.
type ExclusiveAccessError struct {
	Path string
}

func (e *ExclusiveAccessError) Error() string {
	return "hiddev: device already open by another process: " + e.Path
}
