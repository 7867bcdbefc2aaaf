//go:build windows

package hidtransport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeXInputStatePacksLittleEndianFields(t *testing.T) {
	state := XInputState{
		Buttons:      0x0800,
		LeftTrigger:  0x12,
		RightTrigger: 0x34,
		ThumbLX:      -1,
		ThumbLY:      0x0100,
		ThumbRX:      1,
		ThumbRY:      -2,
	}

	buf := encodeXInputState(state)

	assert.Len(t, buf, 12)
	assert.Equal(t, []byte{0x00, 0x08}, buf[0:2], "buttons packed little-endian")
	assert.Equal(t, byte(0x12), buf[2])
	assert.Equal(t, byte(0x34), buf[3])
	assert.Equal(t, []byte{0xFF, 0xFF}, buf[4:6], "ThumbLX=-1 packed as 0xFFFF")
	assert.Equal(t, []byte{0x00, 0x01}, buf[6:8])
	assert.Equal(t, []byte{0x01, 0x00}, buf[8:10])
	assert.Equal(t, []byte{0xFE, 0xFF}, buf[10:12], "ThumbRY=-2 packed as 0xFFFE")
}

func TestEncodeXInputStateZeroValue(t *testing.T) {
	buf := encodeXInputState(XInputState{})
	assert.Equal(t, make([]byte, 12), buf)
}
