package hidsig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hidfw/hidinput/hiddev"
)

func TestMatchExactVendorProduct(t *testing.T) {
	called := false
	Register(Signature{
		Name:      "test-device",
		TypeHash:  TypeHash("test-device"),
		VendorID:  0x1234,
		ProductID: 0x5678,
		Kind:      hiddev.KindUSB,
		Factory: func(tok *hiddev.Token) (*hiddev.Base, error) {
			called = true
			return nil, nil
		},
	})

	tok := hiddev.New(hiddev.KindUSB, 0x1234, 0x5678, "Test", "Device", "/test/path")
	sig, ok := Match(tok)
	require.True(t, ok)
	assert.Equal(t, "test-device", sig.Name)

	_, _ = sig.Factory(tok)
	assert.True(t, called)
}

func TestSignatureReject(t *testing.T) {
	// No signature registered for this VID/PID pair (spec.md's
	// Signature-reject scenario): Match must report false, not fall
	// through to an unrelated entry.
	tok := hiddev.New(hiddev.KindUSB, 0xDEAD, 0xBEEF, "Unknown", "Unknown", "/test/unknown")
	_, ok := Match(tok)
	assert.False(t, ok)

	_, err := Instantiate(tok)
	assert.ErrorIs(t, err, ErrNoSignature)
}

func TestWildcardMatchesUnclaimedHIDKind(t *testing.T) {
	Register(Signature{
		Name:     "generic-fallback",
		TypeHash: TypeHash("generic-fallback"),
		Kind:     hiddev.KindHID,
		Wildcard: true,
		Factory: func(tok *hiddev.Token) (*hiddev.Base, error) {
			return nil, nil
		},
	})

	tok := hiddev.New(hiddev.KindHID, 0x9999, 0x8888, "Some", "Pad", "/test/pad")
	sig, ok := Match(tok)
	require.True(t, ok)
	assert.Equal(t, "generic-fallback", sig.Name)
}

func TestDuplicateSignaturePanics(t *testing.T) {
	Register(Signature{Name: "dup-a", VendorID: 0x1111, ProductID: 0x2222, Kind: hiddev.KindUSB})
	assert.Panics(t, func() {
		Register(Signature{Name: "dup-b", VendorID: 0x1111, ProductID: 0x2222, Kind: hiddev.KindUSB})
	})
}
