//go:build windows

package hidtransport

import (
	"time"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/hidfw/hidinput/hidparser"
)

// XInputTransport polls one of the four XInput controller slots at a
// fixed rate instead of driving a worker thread off device I/O readiness,
// since xinput.dll exposes no blocking read primitive -- the arbiter
// model spec.md's glossary describes for this device kind.
type XInputTransport struct {
	slot uint32

	cb Callbacks

	stop chan struct{}
	done chan struct{}
}

// XInputState mirrors XINPUT_STATE: the packet number followed by
// XINPUT_GAMEPAD's 12-byte layout.
type XInputState struct {
	PacketNumber  uint32
	Buttons       uint16
	LeftTrigger   uint8
	RightTrigger  uint8
	ThumbLX       int16
	ThumbLY       int16
	ThumbRX       int16
	ThumbRY       int16
}

var (
	modXInput              = windows.NewLazySystemDLL("xinput1_4.dll")
	procXInputGetState     = modXInput.NewProc("XInputGetState")
	procXInputSetState     = modXInput.NewProc("XInputSetState")
)

type xinputVibration struct {
	LeftMotorSpeed  uint16
	RightMotorSpeed uint16
}

// OpenXInput starts polling the given slot (0-3) at xinputPollHz.
func OpenXInput(slot uint32, cb Callbacks) *XInputTransport {
	t := &XInputTransport{slot: slot, cb: cb, stop: make(chan struct{}), done: make(chan struct{})}
	go t.run()
	return t
}

func (t *XInputTransport) run() {
	defer close(t.done)
	t.cb.InitialCycle()
	period := time.Second / xinputPollHz
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-t.stop:
			t.cb.FinalCycle()
			return
		case <-ticker.C:
			if state, ok := t.poll(); ok {
				t.cb.ReceivedHIDReport(encodeXInputState(state), hidparser.ReportInput, 0)
			}
			t.cb.TransferCycle()
		}
	}
}

func (t *XInputTransport) poll() (XInputState, bool) {
	var raw [16]uint32 // oversized XINPUT_STATE buffer: packet number + XINPUT_GAMEPAD fields
	r1, _, _ := procXInputGetState.Call(uintptr(t.slot), uintptr(unsafe.Pointer(&raw[0])))
	if r1 != 0 { // ERROR_SUCCESS == 0; nonzero means the slot is unplugged
		return XInputState{}, false
	}
	return *(*XInputState)(unsafe.Pointer(&raw[0])), true
}

// encodeXInputState packs the state into the byte layout drivers/xinputpad
// expects from ReceivedHIDReport, keeping this transport's wire shape
// independent of the struct layout above.
func encodeXInputState(s XInputState) []byte {
	buf := make([]byte, 12)
	buf[0] = byte(s.Buttons)
	buf[1] = byte(s.Buttons >> 8)
	buf[2] = s.LeftTrigger
	buf[3] = s.RightTrigger
	buf[4] = byte(s.ThumbLX)
	buf[5] = byte(s.ThumbLX >> 8)
	buf[6] = byte(s.ThumbLY)
	buf[7] = byte(s.ThumbLY >> 8)
	buf[8] = byte(s.ThumbRX)
	buf[9] = byte(s.ThumbRX >> 8)
	buf[10] = byte(s.ThumbRY)
	buf[11] = byte(s.ThumbRY >> 8)
	return buf
}

// Rumble writes a vibration state to the slot.
func (t *XInputTransport) Rumble(leftMotor, rightMotor uint16) bool {
	v := xinputVibration{LeftMotorSpeed: leftMotor, RightMotorSpeed: rightMotor}
	r1, _, _ := procXInputSetState.Call(uintptr(t.slot), uintptr(unsafe.Pointer(&v)))
	return r1 == 0
}

func (t *XInputTransport) SendUSBInterruptTransfer(data []byte) bool   { return false }
func (t *XInputTransport) ReceiveUSBInterruptTransfer(data []byte) int { return 0 }
func (t *XInputTransport) SendHIDReport(data []byte, kind hidparser.ReportKind, reportID byte) bool {
	return false
}
func (t *XInputTransport) ReceiveHIDReport(data []byte, kind hidparser.ReportKind, reportID byte) int {
	return 0
}
func (t *XInputTransport) ReportDescriptor() []byte { return nil }

func (t *XInputTransport) Close() error {
	close(t.stop)
	<-t.done
	return nil
}
