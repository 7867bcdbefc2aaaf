package hiddev

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hidfw/hidinput/hidparser"
)

type stubDriver struct {
	typeHash   uint64
	disconnect int
}

func (d *stubDriver) TypeHash() uint64        { return d.typeHash }
func (d *stubDriver) InitialCycle()           {}
func (d *stubDriver) TransferCycle()          {}
func (d *stubDriver) FinalCycle()             {}
func (d *stubDriver) DeviceDisconnected()     { d.disconnect++ }
func (d *stubDriver) ReceivedHIDReport(data []byte, kind hidparser.ReportKind, reportID byte) {}

type stubTransport struct {
	closed bool
}

func (s *stubTransport) SendUSBInterruptTransfer(data []byte) bool   { return true }
func (s *stubTransport) ReceiveUSBInterruptTransfer(data []byte) int { return 0 }
func (s *stubTransport) SendHIDReport(data []byte, kind hidparser.ReportKind, reportID byte) bool {
	return true
}
func (s *stubTransport) ReceiveHIDReport(data []byte, kind hidparser.ReportKind, reportID byte) int {
	return 0
}
func (s *stubTransport) ReportDescriptor() []byte { return nil }
func (s *stubTransport) Close() error             { s.closed = true; return nil }

func TestOpenAndGetDeviceIsIdempotent(t *testing.T) {
	driver := &stubDriver{typeHash: 42}
	transport := &stubTransport{}
	var gotToken *Token

	SetInstantiator(func(tok *Token) (*Base, error) {
		gotToken = tok
		return NewBase(driver, transport, tok), nil
	})
	defer SetInstantiator(nil)

	tok := New(KindUSB, 0x01, 0x02, "Vendor", "Product", "/dev/test0")
	base1, err := tok.OpenAndGetDevice()
	require.NoError(t, err)
	require.NotNil(t, base1)
	assert.Same(t, tok, gotToken)

	base2, err := tok.OpenAndGetDevice()
	require.NoError(t, err)
	assert.Same(t, base1, base2, "second open must return the cached Base, not instantiate again")
}

func TestOpenAndGetDeviceWithoutRegistry(t *testing.T) {
	SetInstantiator(nil)
	tok := New(KindUSB, 0x01, 0x02, "Vendor", "Product", "/dev/test1")
	_, err := tok.OpenAndGetDevice()
	assert.True(t, errors.Is(err, ErrNoRegistry))
}

func TestCloseRunsDisconnectOnce(t *testing.T) {
	driver := &stubDriver{typeHash: 7}
	transport := &stubTransport{}
	SetInstantiator(func(tok *Token) (*Base, error) {
		return NewBase(driver, transport, tok), nil
	})
	defer SetInstantiator(nil)

	tok := New(KindHID, 0x10, 0x20, "V", "P", "/dev/test2")
	_, err := tok.OpenAndGetDevice()
	require.NoError(t, err)

	tok.Close()
	assert.True(t, transport.closed)
	assert.Equal(t, 1, driver.disconnect)

	// Closing again must not run DeviceDisconnected a second time.
	tok.Close()
	assert.Equal(t, 1, driver.disconnect)
	assert.False(t, tok.IsOpen())
}

func TestTokenEqualComparesPathOnly(t *testing.T) {
	a := New(KindUSB, 1, 2, "A", "A", "/dev/same")
	b := New(KindBluetooth, 9, 9, "B", "B", "/dev/same")
	c := New(KindUSB, 1, 2, "A", "A", "/dev/other")

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(nil))
}
