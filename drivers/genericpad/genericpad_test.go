package genericpad

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hidfw/hidinput/hiddev"
	"github.com/hidfw/hidinput/hidparser"
)

// simpleGamePadDescriptor: Usage Page Generic Desktop, Usage Game Pad,
// Collection Application, one 8-bit X axis, End Collection.
var simpleGamePadDescriptor = []byte{
	0x05, 0x01, // Usage Page (Generic Desktop)
	0x09, 0x05, // Usage (Game Pad)
	0xA1, 0x01, // Collection (Application)
	0x09, 0x30, // Usage (X)
	0x15, 0x00, // Logical Minimum 0
	0x26, 0xFF, 0x00, // Logical Maximum 255
	0x75, 0x08, // Report Size 8
	0x95, 0x01, // Report Count 1
	0x81, 0x02, // Input (Data,Var,Abs)
	0xC0, // End Collection
}

type recordingCallback struct {
	connected    bool
	disconnected bool
	values       []int32
}

func (r *recordingCallback) ControllerConnected()    { r.connected = true }
func (r *recordingCallback) ControllerDisconnected() { r.disconnected = true }
func (r *recordingCallback) ValueUpdate(item hidparser.MainItem, value int32) {
	r.values = append(r.values, value)
}

// descTransport is a hiddev.Transport that only serves a fixed report
// descriptor, enough for InitialCycle to run without a device.
type descTransport struct{ desc []byte }

func (s descTransport) SendUSBInterruptTransfer(data []byte) bool   { return false }
func (s descTransport) ReceiveUSBInterruptTransfer(data []byte) int { return 0 }
func (s descTransport) SendHIDReport(data []byte, kind hidparser.ReportKind, reportID byte) bool {
	return false
}
func (s descTransport) ReceiveHIDReport(data []byte, kind hidparser.ReportKind, reportID byte) int {
	return 0
}
func (s descTransport) ReportDescriptor() []byte { return s.desc }
func (s descTransport) Close() error             { return nil }

func TestInitialCycleParsesDescriptorThenConnects(t *testing.T) {
	d := &Driver{}
	rec := &recordingCallback{}
	d.SetCallback(rec)
	d.base = hiddev.NewBase(d, descTransport{desc: simpleGamePadDescriptor}, nil)

	d.InitialCycle()

	require.Equal(t, hidparser.StatusDone, d.parser.Status())
	assert.True(t, rec.connected)
}

func TestReceivedHIDReportScansAndForwardsValue(t *testing.T) {
	d := &Driver{}
	rec := &recordingCallback{}
	d.SetCallback(rec)
	d.parser.Parse(simpleGamePadDescriptor)

	d.ReceivedHIDReport([]byte{0x42}, hidparser.ReportInput, 0)

	require.Len(t, rec.values, 1)
	assert.Equal(t, int32(0x42), rec.values[0])
}

func TestDeviceDisconnectedNotifiesCallback(t *testing.T) {
	d := &Driver{}
	rec := &recordingCallback{}
	d.SetCallback(rec)

	d.DeviceDisconnected()
	assert.True(t, rec.disconnected)
}
