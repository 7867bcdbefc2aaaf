package hiddev

import "sync"

// CallbackBox is the generic form of the source's TDeviceBase<CB>: a
// mutex-guarded slot for a user-supplied event callback. Setting the
// callback and dispatching an event both acquire the same mutex, so a
// dispatch in progress can never observe a torn Set -- the property
// spec.md §4.C calls out and the PowerA-equality test scenario depends
// on (the driver's own equality suppression must not be reordered by a
// concurrent setCallback).
type CallbackBox[CB any] struct {
	mu sync.Mutex
	cb CB
}

// Set replaces the callback, blocking until any in-flight Dispatch call
// completes.
func (b *CallbackBox[CB]) Set(cb CB) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cb = cb
}

// Dispatch calls f with the current callback while holding the lock, so
// Set cannot interleave mid-dispatch. f must itself check for a nil/zero
// callback if CB is a pointer or interface type.
func (b *CallbackBox[CB]) Dispatch(f func(CB)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	f(b.cb)
}
