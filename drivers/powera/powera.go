// Package powera drives PowerA-class HID gamepads: plain 8-byte input
// reports with no report-id framing, deduplicated by payload equality so
// a client's ControllerUpdate only fires on an actual state change --
// spec.md's PowerA-equality scenario, and the reason this driver stores
// its last-seen report behind the same CallbackBox mutex the dispatch
// uses, so a concurrent SetCallback can never interleave with the
// equality check and callback it guards.
package powera

import (
	"bytes"

	"github.com/hidfw/hidinput/hiddev"
	"github.com/hidfw/hidinput/hidlog"
	"github.com/hidfw/hidinput/hidparser"
	"github.com/hidfw/hidinput/hidsig"
	"github.com/hidfw/hidinput/hidtransport"
)

const (
	VendorID  uint16 = 0x20D6
	ProductID uint16 = 0xA711
)

const reportSize = 8

// Callback receives a decoded state update, but only when it differs from
// the previously dispatched one.
type Callback interface {
	ControllerUpdate(report [reportSize]byte)
}

// Driver implements hiddev.Driver for PowerA pads.
type Driver struct {
	base *hiddev.Base
	cb   hiddev.CallbackBox[Callback]

	hasLast bool
	last    [reportSize]byte
}

func init() {
	hidsig.Register(hidsig.Signature{
		Name:      "powera",
		TypeHash:  hidsig.TypeHash("powera"),
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

func (d *Driver) TypeHash() uint64        { return hidsig.TypeHash("powera") }
func (d *Driver) SetCallback(cb Callback) { d.cb.Set(cb) }

func (d *Driver) InitialCycle()       {}
func (d *Driver) TransferCycle()      {}
func (d *Driver) FinalCycle()         {}
func (d *Driver) DeviceDisconnected() {}

// ReceivedHIDReport suppresses a repeat of the immediately prior report.
// The equality check, the "last seen" update, and the dispatch all run
// inside the single CallbackBox.Dispatch call so a concurrent SetCallback
// cannot reorder around them -- exactly the property spec.md's
// PowerA-equality scenario tests.
func (d *Driver) ReceivedHIDReport(data []byte, kind hidparser.ReportKind, reportID byte) {
	if kind != hidparser.ReportInput || len(data) < reportSize {
		return
	}
	var report [reportSize]byte
	copy(report[:], data[:reportSize])

	d.cb.Dispatch(func(cb Callback) {
		if d.hasLast && bytes.Equal(d.last[:], report[:]) {
			return
		}
		d.hasLast = true
		d.last = report
		if cb != nil {
			cb.ControllerUpdate(report)
		}
	})
}

type driverCallbacks struct{ d *Driver }

func (c driverCallbacks) InitialCycle()  { c.d.InitialCycle() }
func (c driverCallbacks) TransferCycle() { c.d.TransferCycle() }
func (c driverCallbacks) FinalCycle()    { c.d.FinalCycle() }
func (c driverCallbacks) ReceivedHIDReport(data []byte, kind hidparser.ReportKind, reportID byte) {
	c.d.ReceivedHIDReport(data, kind, reportID)
}
func (c driverCallbacks) DeviceError(format string, args ...any) {
	hidlog.Warnf("powera: "+format, args...)
}
