// Package ds3 drives the Sony DualShock 3 controller, a standard USB HID
// device whose button mask is packed big-endian inside an otherwise
// little-endian report stream -- the byte-swap spec.md §4.A's glossary
// calls out as living in device-class driver code, not the core parser.
package ds3

import (
	"github.com/hidfw/hidinput/hiddev"
	"github.com/hidfw/hidinput/hidlog"
	"github.com/hidfw/hidinput/hidparser"
	"github.com/hidfw/hidinput/hidsig"
	"github.com/hidfw/hidinput/hidtransport"
)

const (
	VendorID  uint16 = 0x054C
	ProductID uint16 = 0x0268
)

// Button is a bit position in the combined 16-bit mask produced by
// packing the device's two button bytes big-endian (data[2]<<8|data[3]):
// the first byte's bits land at positions 8-15, the second byte's at 0-7.
type Button uint16

const (
	ButtonL2 Button = 1 << iota
	ButtonR2
	ButtonL1
	ButtonR1
	ButtonTriangle
	ButtonCircle
	ButtonCross
	ButtonSquare
	ButtonSelect
	ButtonL3
	ButtonR3
	ButtonStart
	ButtonUp
	ButtonRight
	ButtonDown
	ButtonLeft
)

// State is the decoded report: the button mask plus the four analog
// stick axes, each a raw 0-255 byte as the device reports them.
type State struct {
	Buttons                      uint16
	LeftStickX, LeftStickY       uint8
	RightStickX, RightStickY     uint8
}

// Callback receives decoded state updates.
type Callback interface {
	ControllerUpdate(state State)
}

// Driver implements hiddev.Driver for the DS3.
type Driver struct {
	base *hiddev.Base
	cb   hiddev.CallbackBox[Callback]
}

func init() {
	hidsig.Register(hidsig.Signature{
		Name:      "ds3",
		TypeHash:  hidsig.TypeHash("ds3"),
		VendorID:  VendorID,
		ProductID: ProductID,
		Kind:      hiddev.KindHID,
		Factory:   newBase,
	})
}

func newBase(token *hiddev.Token) (*hiddev.Base, error) {
	d := &Driver{}
	transport, err := hidtransport.OpenHID(token.Path(), driverCallbacks{d: d})
	if err != nil {
		return nil, err
	}
	base := hiddev.NewBase(d, transport, token)
	d.base = base
	return base, nil
}

func (d *Driver) TypeHash() uint64 { return hidsig.TypeHash("ds3") }

func (d *Driver) SetCallback(cb Callback) { d.cb.Set(cb) }

func (d *Driver) InitialCycle()  {}
func (d *Driver) TransferCycle() {}
func (d *Driver) FinalCycle()    {}
func (d *Driver) DeviceDisconnected() {}

// ReceivedHIDReport decodes the input report spec.md's DS3 button-mask
// scenario describes. data is the transport's full buffer, report-id
// byte included (data[0]); a padding byte follows at data[1], then the
// button mask packed big-endian across the next two bytes, matching
// DualshockPadState's field layout (m_reportType, m_reserved1,
// m_buttonState, ...) byte for byte.
func (d *Driver) ReceivedHIDReport(data []byte, kind hidparser.ReportKind, reportID byte) {
	if kind != hidparser.ReportInput || len(data) < 10 {
		return
	}
	state := State{
		Buttons:     uint16(data[2])<<8 | uint16(data[3]),
		LeftStickX:  data[6],
		LeftStickY:  data[7],
		RightStickX: data[8],
		RightStickY: data[9],
	}
	d.cb.Dispatch(func(cb Callback) {
		if cb == nil {
			return
		}
		cb.ControllerUpdate(state)
	})
}

// IsPressed reports whether a button is set in a decoded mask.
func (b Button) IsPressed(mask uint16) bool { return mask&uint16(b) != 0 }

type driverCallbacks struct{ d *Driver }

func (c driverCallbacks) InitialCycle()  { c.d.InitialCycle() }
func (c driverCallbacks) TransferCycle() { c.d.TransferCycle() }
func (c driverCallbacks) FinalCycle()    { c.d.FinalCycle() }
func (c driverCallbacks) ReceivedHIDReport(data []byte, kind hidparser.ReportKind, reportID byte) {
	c.d.ReceivedHIDReport(data, kind, reportID)
}
func (c driverCallbacks) DeviceError(format string, args ...any) {
	hidlog.Warnf("ds3: "+format, args...)
}
