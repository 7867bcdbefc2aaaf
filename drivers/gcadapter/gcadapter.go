// Package gcadapter drives the Nintendo/Wii U/Switch GameCube USB
// adapter: a single USB device multiplexing up to four GameCube
// controller ports over one interrupt endpoint pair. Grounded on the
// behavior spec.md's literal GCadapter scenario describes and on the
// original's GCAdapter-equivalent driver in lib/inputdev (a
// TDeviceBase<IGCAdapterCallback> specialization).
package gcadapter

import (
	"github.com/hidfw/hidinput/hiddev"
	"github.com/hidfw/hidinput/hidparser"
	"github.com/hidfw/hidinput/hidsig"
)

const (
	VendorID  uint16 = 0x057E
	ProductID uint16 = 0x0337
)

// Callback is the event surface a client registers to receive per-port
// connect/disconnect/state-update notifications.
type Callback interface {
	ControllerConnected(port int, state State)
	ControllerDisconnected(port int)
	ControllerUpdate(port int, state State)
}

// State is one port's decoded GameCube controller report.
type State struct {
	Buttons               uint16
	LeftStickX, LeftStickY   int
	RightStickX, RightStickY int
	TriggerL, TriggerR       uint8
}

const portCount = 4
const reportSize = 1 + portCount*9 // leading type byte + 4*9-byte ports

// enableRumbleCommand is the single byte the adapter expects on
// InitialCycle to start streaming port reports and enable rumble.
var enableRumbleCommand = []byte{0x13}

// Driver implements hiddev.Driver for the adapter.
type Driver struct {
	base *hiddev.Base
	cb   hiddev.CallbackBox[Callback]

	connected [portCount]bool
}

func init() {
	hidsig.Register(hidsig.Signature{
		Name:      "gcadapter",
		TypeHash:  hidsig.TypeHash("gcadapter"),
		VendorID:  VendorID,
		ProductID: ProductID,
		Kind:      hiddev.KindUSB,
		Factory:   newBase,
	})
}

func newBase(token *hiddev.Token) (*hiddev.Base, error) {
	d := &Driver{}
	transport, err := openTransport(token, d)
	if err != nil {
		return nil, err
	}
	base := hiddev.NewBase(d, transport, token)
	d.base = base
	return base, nil
}

func (d *Driver) TypeHash() uint64 { return hidsig.TypeHash("gcadapter") }

// SetCallback installs the client's callback under the shared lock, so a
// concurrent InitialCycle/TransferCycle dispatch never observes a torn
// pointer.
func (d *Driver) SetCallback(cb Callback) { d.cb.Set(cb) }

func (d *Driver) InitialCycle() {
	d.base.SendUSBInterruptTransfer(enableRumbleCommand)
}

func (d *Driver) TransferCycle() {
	buf := make([]byte, reportSize)
	n := d.base.ReceiveUSBInterruptTransfer(buf)
	if n < reportSize {
		return
	}
	for port := 0; port < portCount; port++ {
		off := 1 + port*9
		d.handlePort(port, buf[off:off+9])
	}
}

func (d *Driver) handlePort(port int, p []byte) {
	portType := p[0]
	wasConnected := d.connected[port]
	nowConnected := portType != 0x00

	if !wasConnected && nowConnected {
		d.connected[port] = true
		d.cb.Dispatch(func(cb Callback) {
			if cb == nil {
				return
			}
			cb.ControllerConnected(port, decodePort(p))
		})
		return
	}
	if wasConnected && !nowConnected {
		d.connected[port] = false
		d.cb.Dispatch(func(cb Callback) {
			if cb == nil {
				return
			}
			cb.ControllerDisconnected(port)
		})
		return
	}
	if nowConnected {
		d.cb.Dispatch(func(cb Callback) {
			if cb == nil {
				return
			}
			cb.ControllerUpdate(port, decodePort(p))
		})
	}
}

// decodePort decodes the 9-byte port payload per spec.md's GCadapter
// scenario: buttons are a 16-bit combination of the two button bytes,
// sticks are centered-int8 offsets from the 0x80 rest position, triggers
// are the raw analog bytes.
func decodePort(p []byte) State {
	return State{
		Buttons:     uint16(p[2])<<8 | uint16(p[1]),
		LeftStickX:  int(p[3]) - 0x80,
		LeftStickY:  int(p[4]) - 0x80,
		RightStickX: int(p[5]) - 0x80,
		RightStickY: int(p[6]) - 0x80,
		TriggerL:    p[7],
		TriggerR:    p[8],
	}
}

func (d *Driver) FinalCycle() {}

func (d *Driver) DeviceDisconnected() {
	for port := 0; port < portCount; port++ {
		if d.connected[port] {
			d.connected[port] = false
			p := port
			d.cb.Dispatch(func(cb Callback) {
				if cb == nil {
					return
				}
				cb.ControllerDisconnected(p)
			})
		}
	}
}

func (d *Driver) ReceivedHIDReport(data []byte, kind hidparser.ReportKind, reportID byte) {}
