package hiddev

import (
	"sync"

	"github.com/hidfw/hidinput/hidparser"
)

// Driver is the capability set spec.md §3/§9 assigns to a Device Base: the
// lifecycle callbacks the core invokes on the worker thread, plus the
// type hash a client can filter on without depending on concrete type
// identity. Every concrete device-class driver (gcadapter, ds3, powera,
// genericpad, xinputpad) implements this.
type Driver interface {
	TypeHash() uint64
	InitialCycle()
	TransferCycle()
	FinalCycle()
	DeviceDisconnected()
	ReceivedHIDReport(data []byte, kind hidparser.ReportKind, reportID byte)
}

// Transport is the uniform surface hidtransport's platform-specific
// implementations expose to a Base (spec.md §4.D). Close must not return
// until the worker thread has run FinalCycle and exited, so that
// disconnect ordering (FinalCycle happens-before DeviceDisconnected) is
// observable without the Base needing to know about threads at all --
// a deliberate simplification over the source's detach-and-rely-on-a-
// shared-reference approach, recorded in DESIGN.md.
type Transport interface {
	SendUSBInterruptTransfer(data []byte) bool
	ReceiveUSBInterruptTransfer(data []byte) int
	SendHIDReport(data []byte, kind hidparser.ReportKind, reportID byte) bool
	ReceiveHIDReport(data []byte, kind hidparser.ReportKind, reportID byte) int
	ReportDescriptor() []byte
	Close() error
}

// Base is the live driver attached to an open Token: spec.md's polymorphic
// Device Base. It owns the Transport and the Driver, and provides the
// token-routed close path every driver package shares.
type Base struct {
	driver    Driver
	transport Transport

	mu      sync.Mutex
	token   *Token // weak back-reference, cleared on disconnect
	closed  bool
}

// NewBase wires a driver to its transport and back-reference token. Called
// once per device by a signature factory, immediately after opening the
// transport and before returning control to the Token.
func NewBase(driver Driver, transport Transport, token *Token) *Base {
	return &Base{driver: driver, transport: transport, token: token}
}

func (b *Base) TypeHash() uint64 { return b.driver.TypeHash() }

// Token returns the back-reference, or nil once disconnected.
func (b *Base) Token() *Token {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.token
}

// Driver exposes the concrete driver for capability-specific APIs (rumble,
// callback registration) that don't belong in the core contract.
func (b *Base) Driver() Driver { return b.driver }

// CloseDevice routes through the token so the path-keyed finder mapping
// stays consistent, per spec.md §4.C.
func (b *Base) CloseDevice() {
	b.mu.Lock()
	tok := b.token
	b.mu.Unlock()
	if tok != nil {
		tok.close()
	}
}

// disconnect runs the full teardown sequence exactly once: stop the
// transport (which blocks until FinalCycle has run), then invoke the
// driver's DeviceDisconnected callback, then drop the back-reference.
// Called only by Token.close.
func (b *Base) disconnect() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	_ = b.transport.Close()
	b.driver.DeviceDisconnected()

	b.mu.Lock()
	b.token = nil
	b.mu.Unlock()
}

// --- Low-level and high-level API the driver calls on itself (spec.md §3) ---

func (b *Base) SendUSBInterruptTransfer(data []byte) bool {
	return b.transport.SendUSBInterruptTransfer(data)
}

func (b *Base) ReceiveUSBInterruptTransfer(data []byte) int {
	return b.transport.ReceiveUSBInterruptTransfer(data)
}

func (b *Base) SendHIDReport(data []byte, kind hidparser.ReportKind, reportID byte) bool {
	return b.transport.SendHIDReport(data, kind, reportID)
}

func (b *Base) ReceiveHIDReport(data []byte, kind hidparser.ReportKind, reportID byte) int {
	return b.transport.ReceiveHIDReport(data, kind, reportID)
}

func (b *Base) GetReportDescriptor() []byte {
	return b.transport.ReportDescriptor()
}
