//go:build windows

package hidtransport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hidfw/hidinput/hidparser"
)

func TestSynthesizeDescriptorEncodesUsageAndReportLength(t *testing.T) {
	caps := hidpCaps{
		Usage:                 uint16(hidparser.UsageGamePad),
		UsagePage:             uint16(hidparser.UsagePageGenericDesktop),
		InputReportByteLength: 8,
	}

	desc := synthesizeDescriptor(caps)
	require.NotEmpty(t, desc)

	page, usage := hidparser.ApplicationUsage(desc)
	assert.Equal(t, hidparser.UsagePageGenericDesktop, page)
	assert.Equal(t, hidparser.UsageGamePad, usage)

	var p hidparser.Parser
	require.Equal(t, hidparser.StatusDone, p.Parse(desc))
	assert.Equal(t, 8, p.MaxInputReportSize())
}

func TestSynthesizeDescriptorZeroLengthDefaultsToOneByte(t *testing.T) {
	desc := synthesizeDescriptor(hidpCaps{
		Usage:     uint16(hidparser.UsageJoystick),
		UsagePage: uint16(hidparser.UsagePageGenericDesktop),
	})
	require.NotEmpty(t, desc)

	page, usage := hidparser.ApplicationUsage(desc)
	assert.Equal(t, hidparser.UsagePageGenericDesktop, page)
	assert.Equal(t, hidparser.UsageJoystick, usage)

	var p hidparser.Parser
	require.Equal(t, hidparser.StatusDone, p.Parse(desc))
	assert.Equal(t, 1, p.MaxInputReportSize())
}
