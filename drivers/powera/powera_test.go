package powera

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hidfw/hidinput/hidparser"
)

type countingCallback struct {
	n    int
	last [reportSize]byte
}

func (c *countingCallback) ControllerUpdate(report [reportSize]byte) {
	c.n++
	c.last = report
}

func TestIdenticalReportsSuppressed(t *testing.T) {
	d := &Driver{}
	cb := &countingCallback{}
	d.SetCallback(cb)

	report := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	d.ReceivedHIDReport(report, hidparser.ReportInput, 0)
	d.ReceivedHIDReport(report, hidparser.ReportInput, 0)

	assert.Equal(t, 1, cb.n, "a repeated identical report must not dispatch twice")
}

func TestChangedReportDispatches(t *testing.T) {
	d := &Driver{}
	cb := &countingCallback{}
	d.SetCallback(cb)

	d.ReceivedHIDReport([]byte{1, 2, 3, 4, 5, 6, 7, 8}, hidparser.ReportInput, 0)
	d.ReceivedHIDReport([]byte{1, 2, 3, 4, 5, 6, 7, 9}, hidparser.ReportInput, 0)

	assert.Equal(t, 2, cb.n)
}
