//go:build linux

package hidtransport

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/hidfw/hidinput/hidparser"
)

// usbTransport drives a raw usbfs device node directly, for devices like
// the GameCube adapter that speak vendor-specific USB interrupt transfers
// and never bind hid-generic, so no /dev/hidrawN node exists for them.
type usbTransport struct {
	f        *os.File
	fd       int
	iface    int32
	inEP     byte
	outEP    byte
	detached bool

	cb Callbacks

	closeOnce sync.Once
	stop      chan struct{}
	done      chan struct{}
	closed    atomic.Bool
}

// OpenUSB opens a usbfs device node at path (e.g. "/dev/bus/usb/001/004"),
// claims the given interface, and discovers its first IN and OUT
// endpoint addresses from sysfs (their transfer type is not checked).
func OpenUSB(path string, iface int, cb Callbacks) (Transport, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		if os.IsPermission(err) {
			return nil, &exclusiveOrOpenError{path: path, err: err, exclusive: true}
		}
		return nil, &exclusiveOrOpenError{path: path, err: err}
	}
	fd := int(f.Fd())

	inEP, outEP, err := discoverInterruptEndpoints(path, iface)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrOpenFailed, path, err)
	}

	t := &usbTransport{
		f:     f,
		fd:    fd,
		iface: int32(iface),
		inEP:  inEP,
		outEP: outEP,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
		cb:    cb,
	}

	// Detach whatever kernel driver (often usbhid) is bound, then claim.
	_ = t.ioctlDisconnect()
	if err := t.claim(); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: claim interface %d: %v", ErrOpenFailed, iface, err)
	}

	go t.run()
	return t, nil
}

// discoverInterruptEndpoints walks the sysfs USB device tree for the
// interface's first IN and OUT endpoint addresses, in directory-name
// order, reading only bEndpointAddress (the endpoint's type attribute is
// not consulted),
// following the same idBus-walk idiom malivvan/aegis/hid's Enumerate
// uses for idVendor/idProduct lookups.
func discoverInterruptEndpoints(devPath string, iface int) (in, out byte, err error) {
	busDevDir, err := resolveSysfsUSBDevice(devPath)
	if err != nil {
		return 0, 0, err
	}
	ifaceDirGlob := filepath.Join(busDevDir, fmt.Sprintf("*:1.%d", iface))
	matches, _ := filepath.Glob(ifaceDirGlob)
	if len(matches) == 0 {
		return 0, 0, fmt.Errorf("interface %d not found under %s", iface, busDevDir)
	}
	epEntries, err := os.ReadDir(matches[0])
	if err != nil {
		return 0, 0, err
	}
	for _, e := range epEntries {
		if !strings.HasPrefix(e.Name(), "ep_") {
			continue
		}
		addrPath := filepath.Join(matches[0], e.Name(), "bEndpointAddress")
		b, err := os.ReadFile(addrPath)
		if err != nil {
			continue
		}
		v, err := strconv.ParseUint(strings.TrimSpace(string(b)), 0, 8)
		if err != nil {
			continue
		}
		addr := byte(v)
		if addr&0x80 != 0 {
			if in == 0 {
				in = addr
			}
		} else {
			if out == 0 {
				out = addr
			}
		}
	}
	if in == 0 && out == 0 {
		return 0, 0, fmt.Errorf("no interrupt endpoints found for interface %d", iface)
	}
	return in, out, nil
}

// sysfsUSBDevicesRoot is a var rather than a const so tests can point it
// at a fake tree instead of the real /sys.
var sysfsUSBDevicesRoot = "/sys/bus/usb/devices"

// resolveSysfsUSBDevice maps a /dev/bus/usb/BBB/DDD node to its
// /sys/bus/usb/devices/* directory via the bus/device numbers baked into
// the path.
func resolveSysfsUSBDevice(devPath string) (string, error) {
	bus := filepath.Base(filepath.Dir(devPath))
	dev := filepath.Base(devPath)
	busN, err := strconv.Atoi(bus)
	if err != nil {
		return "", err
	}
	devN, err := strconv.Atoi(dev)
	if err != nil {
		return "", err
	}
	entries, err := os.ReadDir(sysfsUSBDevicesRoot)
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		busAttr, err1 := os.ReadFile(filepath.Join(sysfsUSBDevicesRoot, e.Name(), "busnum"))
		devAttr, err2 := os.ReadFile(filepath.Join(sysfsUSBDevicesRoot, e.Name(), "devnum"))
		if err1 != nil || err2 != nil {
			continue
		}
		if strings.TrimSpace(string(busAttr)) == strconv.Itoa(busN) &&
			strings.TrimSpace(string(devAttr)) == strconv.Itoa(devN) {
			return filepath.Join(sysfsUSBDevicesRoot, e.Name()), nil
		}
	}
	return "", fmt.Errorf("no sysfs entry for bus %d dev %d", busN, devN)
}

func (t *usbTransport) ioctlDisconnect() error {
	req := ioctlStruct{IfNo: t.iface, IoctlCode: usbdevfsDisconnectCode}
	return ioctl(t.fd, usbdevfsIoctl, unsafe.Pointer(&req))
}

func (t *usbTransport) claim() error {
	iface := uint32(t.iface)
	return ioctl(t.fd, usbdevfsClaimInterface, unsafe.Pointer(&iface))
}

func (t *usbTransport) release() error {
	iface := uint32(t.iface)
	return ioctl(t.fd, usbdevfsReleaseInterface, unsafe.Pointer(&iface))
}

func (t *usbTransport) run() {
	defer close(t.done)
	t.cb.InitialCycle()
	for {
		select {
		case <-t.stop:
			t.cb.FinalCycle()
			return
		default:
		}
		t.cb.TransferCycle()
	}
}

func (t *usbTransport) SendUSBInterruptTransfer(data []byte) bool {
	if t.outEP == 0 {
		return false
	}
	xfer := bulkTransfer{
		Endpoint: uint32(t.outEP),
		Length:   uint32(len(data)),
		Timeout:  usbTransferTimeoutMS,
	}
	if len(data) > 0 {
		xfer.Data = uintptr(unsafe.Pointer(&data[0]))
	}
	return ioctl(t.fd, usbdevfsBulk, unsafe.Pointer(&xfer)) == nil
}

func (t *usbTransport) ReceiveUSBInterruptTransfer(data []byte) int {
	if t.inEP == 0 || len(data) == 0 {
		return 0
	}
	xfer := bulkTransfer{
		Endpoint: uint32(t.inEP),
		Length:   uint32(len(data)),
		Timeout:  usbTransferTimeoutMS,
		Data:     uintptr(unsafe.Pointer(&data[0])),
	}
	if err := ioctl(t.fd, usbdevfsBulk, unsafe.Pointer(&xfer)); err != nil {
		return 0
	}
	return int(xfer.Length)
}

// SendHIDReport/ReceiveHIDReport are unavailable over a raw usbfs node --
// vendor-class devices like the GameCube adapter have no HID report
// descriptor, only interrupt transfers.
func (t *usbTransport) SendHIDReport(data []byte, kind hidparser.ReportKind, reportID byte) bool {
	return false
}
func (t *usbTransport) ReceiveHIDReport(data []byte, kind hidparser.ReportKind, reportID byte) int {
	return 0
}
func (t *usbTransport) ReportDescriptor() []byte { return nil }

func (t *usbTransport) Close() error {
	t.closeOnce.Do(func() {
		close(t.stop)
	})
	<-t.done
	t.closed.Store(true)
	_ = t.release()
	return t.f.Close()
}
