// Package hidtransport implements spec.md's Component D: the per-OS class
// that opens a device, sizes and runs its transfer thread, and exposes
// uniform send/receive primitives to a Device Base.
package hidtransport

import (
	"errors"

	"github.com/hidfw/hidinput/hidparser"
)

// Callbacks is the subset of hiddev.Driver a Transport's worker goroutine
// drives directly. DeviceDisconnected is deliberately excluded: it is
// invoked by hiddev.Base.disconnect only after Close has returned, so the
// happens-before ordering in spec.md §5 holds without the transport
// needing to know about the Base at all. Defined locally (rather than
// imported from hiddev) so this package has no dependency on hiddev --
// drivers satisfy both interfaces structurally.
type Callbacks interface {
	InitialCycle()
	TransferCycle()
	FinalCycle()
	ReceivedHIDReport(data []byte, kind hidparser.ReportKind, reportID byte)
	DeviceError(format string, args ...any)
}

// ErrOpenFailed and ErrExclusiveAccess classify why OpenUSB/OpenHID/OpenBluetooth
// could not acquire a device, per spec.md §7.
var (
	ErrOpenFailed      = errors.New("hidtransport: open failed")
	ErrExclusiveAccess = errors.New("hidtransport: device exclusively held by another process")
	ErrUnsupported     = errors.New("hidtransport: unsupported on this platform")
)

// Transport is the uniform surface a Base drives; see hiddev.Transport for
// the consumer-side view (identical method set, declared independently to
// avoid a dependency edge from this package back to hiddev).
type Transport interface {
	SendUSBInterruptTransfer(data []byte) bool
	ReceiveUSBInterruptTransfer(data []byte) int
	SendHIDReport(data []byte, kind hidparser.ReportKind, reportID byte) bool
	ReceiveHIDReport(data []byte, kind hidparser.ReportKind, reportID byte) int
	ReportDescriptor() []byte
	Close() error
}

// usbTransferTimeoutMS is the interrupt-transfer timeout spec.md §4.D
// assigns to the USB transport's transferCycle.
const usbTransferTimeoutMS = 30

// hidPollTimeoutMS is the HID transport's poll timeout for available
// input reports.
const hidPollTimeoutMS = 10

// xinputPollHz is the XInput arbiter's fixed poll rate (spec.md §4.D).
const xinputPollHz = 100
