// Package hidsig implements spec.md's Component B, the Device Signature
// Registry: a static table mapping a device's (vendor ID, product ID,
// kind) onto the driver-class factory that should own it, translating
// the original's DEVICE_SIG/dev_typeid macro table (DeviceSignature.hpp)
// into a slice of Go structs populated by each driver package's own
// init().
package hidsig

import (
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/hidfw/hidinput/hiddev"
)

// Factory builds and opens a driver for a matched token, wiring its
// transport and returning a ready hiddev.Base. Each driver package
// supplies one.
type Factory func(token *hiddev.Token) (*hiddev.Base, error)

// Signature is this module's equivalent of DeviceSignature: a name (for
// diagnostics), a type hash (so a client can filter connected devices by
// driver class without importing the concrete driver package), a
// VID/PID pair, the device kind it applies to, and the factory that
// instantiates it.
type Signature struct {
	Name      string
	TypeHash  uint64
	VendorID  uint16
	ProductID uint16
	Kind      hiddev.Kind
	Factory   Factory

	// Wildcard signatures match any token of Kind that no specific
	// signature claimed first; their VendorID/ProductID are not compared
	// (a non-wildcard signature with VID/PID 0, such as xinputpad's slot 0,
	// still matches only VID 0/PID 0). genericpad
	// registers itself this way for KindHID, reproducing the original's
	// GenericPad fallback in HIDListenerUdev/WinHID.
	Wildcard bool
}

// TypeHash returns a stable hash of name, equivalent to the original's
// dev_typeid(name) macro (std::hash<std::string> over the type name).
func TypeHash(name string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return h.Sum64()
}

var (
	mu          sync.Mutex
	table       []Signature
	wildcards   []Signature
)

// Register adds a signature to the registry. Called from each driver
// package's init(); panics on a duplicate VID/PID/Kind, which can only
// happen from a programming error in this module itself, not from
// anything a caller controls at runtime.
func Register(sig Signature) {
	mu.Lock()
	defer mu.Unlock()
	if sig.Wildcard {
		wildcards = append(wildcards, sig)
		return
	}
	for _, existing := range table {
		if existing.VendorID == sig.VendorID && existing.ProductID == sig.ProductID && existing.Kind == sig.Kind {
			panic(fmt.Sprintf("hidsig: duplicate signature for vid=%#04x pid=%#04x kind=%s", sig.VendorID, sig.ProductID, sig.Kind))
		}
	}
	table = append(table, sig)
}

// Match returns the signature spec.md §4.B says should own token, per the
// literal Signature-reject test scenario: a VID/PID pair with no exact
// registration, and no applicable wildcard, matches nothing.
func Match(token *hiddev.Token) (Signature, bool) {
	mu.Lock()
	defer mu.Unlock()
	for _, sig := range table {
		if sig.Kind == token.Kind() && sig.VendorID == token.VendorID() && sig.ProductID == token.ProductID() {
			return sig, true
		}
	}
	for _, sig := range wildcards {
		if sig.Kind == token.Kind() {
			return sig, true
		}
	}
	return Signature{}, false
}

// Instantiate finds the matching signature for token and runs its
// factory, or reports ErrNoSignature if the token's VID/PID/kind matches
// nothing registered -- the "unrecognized signatures are silently
// skipped by the Finder, not surfaced as device errors" behavior spec.md
// §7 assigns to the caller of Instantiate, not to this function.
func Instantiate(token *hiddev.Token) (*hiddev.Base, error) {
	sig, ok := Match(token)
	if !ok {
		return nil, ErrNoSignature
	}
	return sig.Factory(token)
}

func init() {
	hiddev.SetInstantiator(Instantiate)
}
