// Package hiddev defines the immutable discovery record (Token) and the
// live per-device driver (Base) that sits behind it once opened.
package hiddev

import "sync"

// Kind distinguishes how a device was discovered and therefore which
// Platform Transport variant backs it once opened.
type Kind uint8

const (
	KindUSB Kind = iota
	KindBluetooth
	KindHID
	KindXInput
)

func (k Kind) String() string {
	switch k {
	case KindUSB:
		return "usb"
	case KindBluetooth:
		return "bluetooth"
	case KindHID:
		return "hid"
	case KindXInput:
		return "xinput"
	default:
		return "unknown"
	}
}

// instantiate is set by hidsig's init() to break the import cycle that
// would otherwise exist between the token (which must open a device) and
// the signature registry (which knows how). This mirrors the "global
// accessor, asserted present at call time" idiom spec.md's design notes
// describe for the finder singleton.
var instantiate func(*Token) (*Base, error)

// SetInstantiator registers the factory a Token.OpenAndGetDevice call
// delegates to. Called exactly once, from hidsig's package init.
func SetInstantiator(f func(*Token) (*Base, error)) {
	instantiate = f
}

// Token is an immutable discovery record: everything the core and a
// client know about a device before it is opened. Tokens are produced
// only by a Finder's platform listener.
type Token struct {
	kind         Kind
	vendorID     uint16
	productID    uint16
	vendorName   string
	productName  string
	path         string // opaque, platform-specific, compared by equality

	mu   sync.Mutex
	base *Base // cached handle from the first OpenAndGetDevice call
}

// New constructs a Token. Only listeners construct tokens; everyone else
// receives them already built.
func New(kind Kind, vendorID, productID uint16, vendorName, productName, path string) *Token {
	return &Token{
		kind:        kind,
		vendorID:    vendorID,
		productID:   productID,
		vendorName:  vendorName,
		productName: productName,
		path:        path,
	}
}

func (t *Token) Kind() Kind           { return t.kind }
func (t *Token) VendorID() uint16     { return t.vendorID }
func (t *Token) ProductID() uint16    { return t.productID }
func (t *Token) VendorName() string   { return t.vendorName }
func (t *Token) ProductName() string  { return t.productName }
func (t *Token) Path() string         { return t.path }

// Equal compares tokens by path only, per spec.md §3 ("platform path ...
// used as primary key").
func (t *Token) Equal(o *Token) bool {
	if t == nil || o == nil {
		return t == o
	}
	return t.path == o.path
}

// IsOpen reports whether OpenAndGetDevice has produced a live Base.
func (t *Token) IsOpen() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.base != nil
}

// OpenAndGetDevice is idempotent: the first call asks the signature
// registry to instantiate a Base and caches it; subsequent calls return
// the cached Base without re-instantiating, per spec.md §4.C.
func (t *Token) OpenAndGetDevice() (*Base, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.base != nil {
		return t.base, nil
	}
	if instantiate == nil {
		return nil, ErrNoRegistry
	}
	base, err := instantiate(t)
	if err != nil {
		return nil, err
	}
	t.base = base
	return base, nil
}

// close drops the cached Base after running its disconnect sequence. It is
// the only path that may clear t.base; called by the finder when a device
// is removed, and by Base.CloseDevice on an explicit client close.
func (t *Token) close() {
	t.mu.Lock()
	base := t.base
	t.base = nil
	t.mu.Unlock()
	if base != nil {
		base.disconnect()
	}
}

// Close is the client-facing explicit close; it routes to the same path a
// hot-unplug takes so a Base is never left half torn-down.
func (t *Token) Close() { t.close() }
