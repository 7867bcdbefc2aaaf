package hidfinder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hidfw/hidinput/hiddev"
)

func newTestFinder(t *testing.T, types []uint64) *Finder {
	t.Helper()
	f := New(types)
	t.Cleanup(f.Release)
	return f
}

func TestNewPanicsOnDuplicateConstruction(t *testing.T) {
	f := newTestFinder(t, nil)
	assert.Same(t, f, Instance())
	assert.Panics(t, func() { New(nil) })
}

func TestReleaseClearsSingleton(t *testing.T) {
	f := New(nil)
	f.Release()
	assert.Nil(t, Instance())
}

func TestInsertTokenRejectsUnmatchedInterestSet(t *testing.T) {
	f := newTestFinder(t, []uint64{1})
	tok := hiddev.New(hiddev.KindUSB, 0x1234, 0x5678, "", "", "/dev/bus/usb/001/002")

	ok := f.insertToken(tok, 2)
	require.False(t, ok)
	assert.Equal(t, 0, f.Len())
}

func TestInsertTokenAlwaysAdmitsHIDKindRegardlessOfInterestSet(t *testing.T) {
	f := newTestFinder(t, []uint64{1})
	tok := hiddev.New(hiddev.KindHID, 0x1234, 0x5678, "", "", "/dev/hidraw0")

	ok := f.insertToken(tok, 2)
	require.True(t, ok, "a KindHID token must be admitted even when its typeHash is outside the interest set")
	assert.Equal(t, 1, f.Len())
}

func TestInsertTokenAdmitsMatchedInterestSet(t *testing.T) {
	f := newTestFinder(t, []uint64{42})
	tok := hiddev.New(hiddev.KindHID, 0x1234, 0x5678, "", "", "/dev/hidraw0")

	ok := f.insertToken(tok, 42)
	require.True(t, ok)
	assert.Equal(t, 1, f.Len())
}

func TestInsertTokenWithEmptyInterestSetAdmitsAny(t *testing.T) {
	f := newTestFinder(t, nil)
	tok := hiddev.New(hiddev.KindHID, 0x1234, 0x5678, "", "", "/dev/hidraw0")

	ok := f.insertToken(tok, 999)
	require.True(t, ok)
	assert.Equal(t, 1, f.Len())
}

func TestInsertTokenRejectsDuplicatePath(t *testing.T) {
	f := newTestFinder(t, nil)
	tok := hiddev.New(hiddev.KindHID, 0x1234, 0x5678, "", "", "/dev/hidraw0")

	require.True(t, f.insertToken(tok, 1))
	assert.False(t, f.insertToken(tok, 1))
	assert.Equal(t, 1, f.Len())
}

func TestInsertTokenInvokesOnConnected(t *testing.T) {
	f := newTestFinder(t, nil)
	var connected *hiddev.Token
	f.OnConnected(func(tok *hiddev.Token) { connected = tok })

	tok := hiddev.New(hiddev.KindHID, 0x1234, 0x5678, "", "", "/dev/hidraw0")
	f.insertToken(tok, 1)

	require.NotNil(t, connected)
	assert.True(t, connected.Equal(tok))
}

func TestRemoveTokenInvokesOnDisconnectedThenForgetsToken(t *testing.T) {
	f := newTestFinder(t, nil)
	var disconnected bool
	f.OnDisconnected(func(tok *hiddev.Token, base *hiddev.Base) { disconnected = true })

	tok := hiddev.New(hiddev.KindHID, 0x1234, 0x5678, "", "", "/dev/hidraw0")
	require.True(t, f.insertToken(tok, 1))
	require.Equal(t, 1, f.Len())

	f.removeToken(tok.Path())

	assert.True(t, disconnected)
	assert.Equal(t, 0, f.Len())
}

func TestRemoveTokenOnUnknownPathIsNoop(t *testing.T) {
	f := newTestFinder(t, nil)
	called := false
	f.OnDisconnected(func(tok *hiddev.Token, base *hiddev.Base) { called = true })

	f.removeToken("/dev/does-not-exist")

	assert.False(t, called)
}

func TestTokensHandleReturnsIndependentSnapshot(t *testing.T) {
	f := newTestFinder(t, nil)
	f.insertToken(hiddev.New(hiddev.KindHID, 1, 1, "", "", "/dev/hidraw0"), 1)
	f.insertToken(hiddev.New(hiddev.KindHID, 2, 2, "", "", "/dev/hidraw1"), 1)

	snapshot := f.TokensHandle()
	require.Len(t, snapshot, 2)

	f.insertToken(hiddev.New(hiddev.KindHID, 3, 3, "", "", "/dev/hidraw2"), 1)
	assert.Len(t, snapshot, 2, "snapshot must not observe inserts that happen after it was taken")
	assert.Equal(t, 3, f.Len())
}

func TestMatchesWithEmptyInterestSetAcceptsEverything(t *testing.T) {
	f := newTestFinder(t, nil)
	usbTok := hiddev.New(hiddev.KindUSB, 0, 0, "", "", "/dev/bus/usb/001/001")
	assert.True(t, f.Matches(usbTok, 0))
	assert.True(t, f.Matches(usbTok, 123456))
}

func TestMatchesWithInterestSetIsExact(t *testing.T) {
	f := newTestFinder(t, []uint64{7, 9})
	usbTok := hiddev.New(hiddev.KindUSB, 0, 0, "", "", "/dev/bus/usb/001/001")
	assert.True(t, f.Matches(usbTok, 7))
	assert.True(t, f.Matches(usbTok, 9))
	assert.False(t, f.Matches(usbTok, 8))
}

func TestMatchesAlwaysAdmitsHIDKind(t *testing.T) {
	f := newTestFinder(t, []uint64{7, 9})
	hidTok := hiddev.New(hiddev.KindHID, 0, 0, "", "", "/dev/hidraw0")
	assert.True(t, f.Matches(hidTok, 8), "KindHID short-circuits the interest-set check")
}
