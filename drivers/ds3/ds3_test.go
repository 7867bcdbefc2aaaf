package ds3

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hidfw/hidinput/hidparser"
)

type recordingCallback struct {
	last State
	n    int
}

func (r *recordingCallback) ControllerUpdate(state State) {
	r.last = state
	r.n++
}

func TestButtonMaskBigEndianDecode(t *testing.T) {
	d := &Driver{}
	rec := &recordingCallback{}
	d.SetCallback(rec)

	// data is the transport's full buffer: data[0] is the report-id byte
	// (0x01), data[1] padding, data[2:4] the big-endian button mask,
	// data[6:10] the four analog sticks.
	data := []byte{0x01, 0x00, 0x08, 0x00, 0x80, 0x00, 0x80, 0x80, 0x80, 0x80}
	d.ReceivedHIDReport(data, hidparser.ReportInput, 0x01)

	assert.Equal(t, 1, rec.n)
	assert.Equal(t, uint16(0x0800), rec.last.Buttons)
	assert.True(t, ButtonStart.IsPressed(rec.last.Buttons))
	assert.False(t, ButtonCross.IsPressed(rec.last.Buttons))
}

func TestNonInputReportIgnored(t *testing.T) {
	d := &Driver{}
	rec := &recordingCallback{}
	d.SetCallback(rec)

	d.ReceivedHIDReport([]byte{0, 0, 0, 0, 0, 0, 0}, hidparser.ReportFeature, 0x01)
	assert.Equal(t, 0, rec.n)
}
