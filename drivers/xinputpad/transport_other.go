//go:build !windows

package xinputpad

import (
	"errors"

	"github.com/hidfw/hidinput/hiddev"
)

// ErrUnsupported is returned on any platform but Windows: XInput has no
// equivalent elsewhere, so the four xinputpad signatures never match a
// real token outside a Windows build.
var ErrUnsupported = errors.New("xinputpad: unsupported outside windows")

func newBase(token *hiddev.Token, slot int) (*hiddev.Base, error) {
	return nil, ErrUnsupported
}
