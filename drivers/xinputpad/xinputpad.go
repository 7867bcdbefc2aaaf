// Package xinputpad drives Windows XInput pads: it registers one
// KindXInput signature per XInput slot 0-3, each backed by a
// hidtransport.XInputTransport that polls its own slot at ~100Hz. The
// package allocates no tokens, and no listener in hidfinder produces
// KindXInput tokens, so a driver is instantiated only for a token a caller
// builds itself. Slot presence changes do not produce connect or
// disconnect events: InitialCycle reports the slot connected when the
// transport starts, polls of an empty slot are skipped, and
// DeviceDisconnected reports the disconnect when the device is closed.
// The driver writes no rumble state.
package xinputpad

import (
	"github.com/hidfw/hidinput/hiddev"
	"github.com/hidfw/hidinput/hidparser"
	"github.com/hidfw/hidinput/hidsig"
)

const SlotCount = 4

// Callback receives decoded pad state for one slot.
type Callback interface {
	ControllerConnected(slot int)
	ControllerDisconnected(slot int)
	ControllerUpdate(slot int, state State)
}

// State is the decoded XInput gamepad state, unpacked from the 12-byte
// wire encoding hidtransport's Windows arbiter produces.
type State struct {
	Buttons      uint16
	LeftTrigger  uint8
	RightTrigger uint8
	ThumbLX      int16
	ThumbLY      int16
	ThumbRX      int16
	ThumbRY      int16
}

// Driver implements hiddev.Driver for one XInput slot. Its
// hidtransport.XInputTransport runs one polling goroutine for that slot
// alone and drives the Driver like any other transport's worker loop.
type Driver struct {
	slot int
	base *hiddev.Base
	cb   hiddev.CallbackBox[Callback]

	connected bool
}

func init() {
	for slot := 0; slot < SlotCount; slot++ {
		s := slot
		hidsig.Register(hidsig.Signature{
			Name:      xinputSignatureName(s),
			TypeHash:  hidsig.TypeHash(xinputSignatureName(s)),
			VendorID:  0,
			ProductID: uint16(s),
			Kind:      hiddev.KindXInput,
			Factory: func(token *hiddev.Token) (*hiddev.Base, error) {
				return newBase(token, s)
			},
		})
	}
}

func xinputSignatureName(slot int) string {
	return "xinputpad-" + string(rune('0'+slot))
}

func (d *Driver) TypeHash() uint64        { return hidsig.TypeHash(xinputSignatureName(d.slot)) }
func (d *Driver) SetCallback(cb Callback) { d.cb.Set(cb) }

func (d *Driver) InitialCycle() {
	d.connected = true
	slot := d.slot
	d.cb.Dispatch(func(cb Callback) {
		if cb != nil {
			cb.ControllerConnected(slot)
		}
	})
}

func (d *Driver) TransferCycle() {}
func (d *Driver) FinalCycle()    {}

func (d *Driver) DeviceDisconnected() {
	if !d.connected {
		return
	}
	d.connected = false
	slot := d.slot
	d.cb.Dispatch(func(cb Callback) {
		if cb != nil {
			cb.ControllerDisconnected(slot)
		}
	})
}

// ReceivedHIDReport decodes the 12-byte wire packing
// hidtransport.encodeXInputState produces per poll.
func (d *Driver) ReceivedHIDReport(data []byte, kind hidparser.ReportKind, reportID byte) {
	if kind != hidparser.ReportInput || len(data) < 12 {
		return
	}
	state := State{
		Buttons:      uint16(data[0]) | uint16(data[1])<<8,
		LeftTrigger:  data[2],
		RightTrigger: data[3],
		ThumbLX:      int16(uint16(data[4]) | uint16(data[5])<<8),
		ThumbLY:      int16(uint16(data[6]) | uint16(data[7])<<8),
		ThumbRX:      int16(uint16(data[8]) | uint16(data[9])<<8),
		ThumbRY:      int16(uint16(data[10]) | uint16(data[11])<<8),
	}
	slot := d.slot
	d.cb.Dispatch(func(cb Callback) {
		if cb != nil {
			cb.ControllerUpdate(slot, state)
		}
	})
}
