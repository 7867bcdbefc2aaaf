//go:build (!linux && !windows && !darwin) || (darwin && !cgo)

package hidtransport

// Supported reports whether this platform has a transport implementation.
// Modeled on karalabe/hid's Supported(). It is declared only in this stub
// build, where it returns false; the linux, windows and darwin+cgo builds
// do not define it.
func Supported() bool { return false }

func OpenUSB(path string, iface int, cb Callbacks) (Transport, error) {
	return nil, ErrUnsupported
}

func OpenHID(path string, cb Callbacks) (Transport, error) {
	return nil, ErrUnsupported
}

func OpenBluetooth(path string, cb Callbacks) (Transport, error) {
	return nil, ErrUnsupported
}
