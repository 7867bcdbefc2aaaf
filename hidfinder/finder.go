// Package hidfinder implements spec.md's Component E: the process-wide
// singleton registry of live device tokens, and the per-OS listener that
// feeds it. Grounded on the original's DeviceFinder.hpp/.cpp
// (skDevFinder, _insertToken/_removeToken, CDeviceTokensHandle).
package hidfinder

import (
	"fmt"
	"sync"

	"github.com/hidfw/hidinput/hiddev"
	"github.com/hidfw/hidinput/hidlog"
)

// Listener is the platform-specific event source a Finder drives.
// Exactly one concrete implementation exists per OS (see listener_*.go).
type Listener interface {
	StartScanning() error
	StopScanning()
	ScanNow()
}

// Finder is the process-wide singleton registry of connected tokens
// matching an interest set of device-kind/VID/PID signatures. Only one
// Finder may exist at a time; constructing a second is fatal, mirroring
// the original's abort() on a duplicate skDevFinder assignment.
type Finder struct {
	interest map[uint64]bool // type hashes this finder cares about; empty means "all"

	mu     sync.Mutex
	tokens map[string]*hiddev.Token

	listener       Listener
	scanningEnabled bool

	onConnected    func(tok *hiddev.Token)
	onDisconnected func(tok *hiddev.Token, base *hiddev.Base)
}

var (
	instanceMu sync.Mutex
	instance   *Finder
)

// New constructs the Finder singleton. types selects which driver-class
// type hashes to admit; a nil or empty set admits every signature.
// Constructing a second Finder while one is live is a programming error,
// not a runtime condition -- it panics, matching the original's abort().
func New(types []uint64) *Finder {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	if instance != nil {
		panic("hidfinder: only one Finder may be constructed at a time")
	}
	f := &Finder{
		interest: make(map[uint64]bool, len(types)),
		tokens:   make(map[string]*hiddev.Token),
	}
	for _, h := range types {
		f.interest[h] = true
	}
	instance = f
	return f
}

// Instance returns the process-wide Finder, or nil if none has been
// constructed yet.
func Instance() *Finder {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	return instance
}

// Release drops the singleton guard, stopping the listener first if one
// is running. Tests that construct more than one Finder in a process
// must call this between them.
func (f *Finder) Release() {
	f.StopScanning()
	instanceMu.Lock()
	defer instanceMu.Unlock()
	if instance == f {
		instance = nil
	}
}

// OnConnected/OnDisconnected register the client-visible hooks the
// listener-driven insert/remove path invokes. Neither is required; a
// Finder with none set is still a usable passive token registry.
func (f *Finder) OnConnected(fn func(tok *hiddev.Token))                     { f.onConnected = fn }
func (f *Finder) OnDisconnected(fn func(tok *hiddev.Token, base *hiddev.Base)) { f.onDisconnected = fn }

// Matches reports whether tok should be admitted by this Finder. A
// KindHID token always matches, independent of typeHash or the interest
// set -- DeviceMatchToken in the original returns true unconditionally
// for DEVTYPE_GENERICHID, since a generic HID token has no driver-class
// type hash of its own to filter on and spec.md requires every Finder to
// see it regardless of what narrower classes it was scoped to. Anything
// else is admitted only if the interest set is empty (no filter) or
// contains typeHash.
func (f *Finder) Matches(tok *hiddev.Token, typeHash uint64) bool {
	if tok.Kind() == hiddev.KindHID {
		return true
	}
	if len(f.interest) == 0 {
		return true
	}
	return f.interest[typeHash]
}

// StartScanning installs (if needed) and starts the platform listener.
func (f *Finder) StartScanning() error {
	f.mu.Lock()
	f.scanningEnabled = true
	listener := f.listener
	f.mu.Unlock()

	if listener == nil {
		l, err := newPlatformListener(f)
		if err != nil {
			return fmt.Errorf("hidfinder: start scanning: %w", err)
		}
		f.mu.Lock()
		f.listener = l
		f.mu.Unlock()
		listener = l
	}
	return listener.StartScanning()
}

// StopScanning stops the platform listener without dropping already
// discovered tokens.
func (f *Finder) StopScanning() {
	f.mu.Lock()
	f.scanningEnabled = false
	listener := f.listener
	f.mu.Unlock()
	if listener != nil {
		listener.StopScanning()
	}
}

// ScanNow runs a one-shot enumeration, seeding initial state without
// waiting for a hot-plug event -- used both standalone and internally
// before a listener's event thread starts.
func (f *Finder) ScanNow() {
	f.mu.Lock()
	listener := f.listener
	f.mu.Unlock()
	if listener == nil {
		l, err := newPlatformListener(f)
		if err != nil {
			hidlog.Warnf("hidfinder: scanNow: %v", err)
			return
		}
		f.mu.Lock()
		f.listener = l
		f.mu.Unlock()
		listener = l
	}
	listener.ScanNow()
}

// TokensHandle is a scoped snapshot iterator: it holds the internal
// mutex only long enough to copy the current token set, the idiomatic-Go
// replacement for the original's CDeviceTokensHandle RAII lock guard
// (holding a mutex across caller-supplied iteration in Go invites
// deadlocks the moment a callback re-enters the Finder).
func (f *Finder) TokensHandle() []*hiddev.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*hiddev.Token, 0, len(f.tokens))
	for _, tok := range f.tokens {
		out = append(out, tok)
	}
	return out
}

// Len reports the number of currently-tracked tokens.
func (f *Finder) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tokens)
}

// insertToken is the listener-facing hook. The listener has already
// rejected paths with no matching hidsig.Signature at all (the
// Signature-reject scenario requires "no admission", not "admission
// followed by an un-openable token"); insertToken applies this Finder's
// own narrower interest set on top of that, via typeHash -- a Finder
// constructed with hidsig.TypeHash("gcadapter") only, for example, never
// admits a matched DS3 token even though hidsig itself claimed it. A
// KindHID token is the one exception: Matches always admits it, so a
// generic HID gamepad still shows up even in a Finder scoped to a
// narrower driver class. On
// success it stores the token and invokes onConnected -- never holding
// the mutex across that callback, the lock-discipline invariant
// spec.md's concurrency section requires.
func (f *Finder) insertToken(tok *hiddev.Token, typeHash uint64) bool {
	if !f.Matches(tok, typeHash) {
		return false
	}
	f.mu.Lock()
	if _, exists := f.tokens[tok.Path()]; exists {
		f.mu.Unlock()
		return false
	}
	f.tokens[tok.Path()] = tok
	f.mu.Unlock()

	if f.onConnected != nil {
		f.onConnected(tok)
	}
	return true
}

// removeToken tears down and forgets the token at path, in the order
// spec.md's Disconnect-sequence scenario requires: token.Close() (which
// runs finalCycle then deviceDisconnected on the Base) happens-before
// this Finder's own onDisconnected hook, which happens-before the map
// entry is erased.
func (f *Finder) removeToken(path string) {
	f.mu.Lock()
	tok, ok := f.tokens[path]
	f.mu.Unlock()
	if !ok {
		return
	}

	var base *hiddev.Base
	if tok.IsOpen() {
		base, _ = tok.OpenAndGetDevice()
	}
	tok.Close()

	if f.onDisconnected != nil {
		f.onDisconnected(tok, base)
	}

	f.mu.Lock()
	delete(f.tokens, path)
	f.mu.Unlock()
}
