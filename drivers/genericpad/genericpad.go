// Package genericpad is the descriptor-driven fallback driver for any HID
// gamepad/joystick that has no dedicated device-class driver: it parses
// the device's own report descriptor on InitialCycle and re-scans every
// inbound report against it, surfacing each non-constant item's value
// through Callback.ValueUpdate. Grounded directly on the original's
// GenericPad.hpp/.cpp (TDeviceBase<IGenericPadCallback>).
package genericpad

import (
	"github.com/hidfw/hidinput/hiddev"
	"github.com/hidfw/hidinput/hidlog"
	"github.com/hidfw/hidinput/hidparser"
	"github.com/hidfw/hidinput/hidsig"
	"github.com/hidfw/hidinput/hidtransport"
)

// Callback mirrors the original's IGenericPadCallback: every method has a
// usable zero behavior, so embedding an unexported struct isn't required
// the way a virtual base class needs default no-op overrides -- a nil
// Callback is simply skipped.
type Callback interface {
	ControllerConnected()
	ControllerDisconnected()
	ValueUpdate(item hidparser.MainItem, value int32)
}

// Driver implements hiddev.Driver by owning a hidparser.Parser seeded
// from the device's own report descriptor.
type Driver struct {
	base   *hiddev.Base
	cb     hiddev.CallbackBox[Callback]
	parser hidparser.Parser
}

func init() {
	// Registered as a wildcard: any KindHID token no specific signature
	// has already claimed falls through to this driver, the same role
	// the original's enumeration code gives GenericPad for unrecognized
	// Joystick/GamePad application-usage devices.
	hidsig.Register(hidsig.Signature{
		Name:     "genericpad",
		TypeHash: hidsig.TypeHash("genericpad"),
		Kind:     hiddev.KindHID,
		Wildcard: true,
		Factory:  newBase,
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

func (d *Driver) TypeHash() uint64        { return hidsig.TypeHash("genericpad") }
func (d *Driver) SetCallback(cb Callback) { d.cb.Set(cb) }

// InitialCycle parses the device's own report descriptor before
// announcing the controller as connected, so the first ValueUpdate call
// a client sees is guaranteed to come from a Done-status parser.
func (d *Driver) InitialCycle() {
	desc := d.base.GetReportDescriptor()
	d.parser.Parse(desc)

	d.cb.Dispatch(func(cb Callback) {
		if cb != nil {
			cb.ControllerConnected()
		}
	})
}

func (d *Driver) TransferCycle() {}
func (d *Driver) FinalCycle()    {}

func (d *Driver) DeviceDisconnected() {
	d.cb.Dispatch(func(cb Callback) {
		if cb != nil {
			cb.ControllerDisconnected()
		}
	})
}

// ReceivedHIDReport re-scans an inbound input report against the parsed
// descriptor and forwards every non-constant item's decoded value.
func (d *Driver) ReceivedHIDReport(data []byte, kind hidparser.ReportKind, reportID byte) {
	if len(data) == 0 || kind != hidparser.ReportInput {
		return
	}
	d.cb.Dispatch(func(cb Callback) {
		if cb == nil {
			return
		}
		_ = d.parser.ScanValues(func(item hidparser.MainItem, value uint32) bool {
			cb.ValueUpdate(item, int32(value))
			return true
		}, data)
	})
}

// EnumerateValues exposes the parsed item set, mirroring the original's
// public enumerateValues passthrough.
func (d *Driver) EnumerateValues(cb func(item hidparser.MainItem) bool) {
	d.parser.EnumerateValues(cb)
}

type driverCallbacks struct{ d *Driver }

func (c driverCallbacks) InitialCycle()  { c.d.InitialCycle() }
func (c driverCallbacks) TransferCycle() { c.d.TransferCycle() }
func (c driverCallbacks) FinalCycle()    { c.d.FinalCycle() }
func (c driverCallbacks) ReceivedHIDReport(data []byte, kind hidparser.ReportKind, reportID byte) {
	c.d.ReceivedHIDReport(data, kind, reportID)
}
func (c driverCallbacks) DeviceError(format string, args ...any) {
	hidlog.Warnf("genericpad: "+format, args...)
}
