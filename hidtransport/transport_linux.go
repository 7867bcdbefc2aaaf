//go:build linux

package hidtransport

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/hidfw/hidinput/hidparser"
)

// hidrawTransport backs both the USB and Bluetooth HID transports on
// Linux: both classes surface through the same /dev/hidrawN node once the
// kernel's hid-generic or a class-specific driver has bound, so there is
// no separate code path for "USB HID" vs "Bluetooth HID" the way the
// source's HIDListenerUdev.cpp distinguishes usb_device from
// bluetooth_device only for enumeration purposes, not I/O.
type hidrawTransport struct {
	f    *os.File
	fd   int
	desc []byte

	cb Callbacks

	closeOnce sync.Once
	stop      chan struct{}
	done      chan struct{}
	closed    atomic.Bool
}

// openHidraw reads the report descriptor and starts the worker goroutine
// that drives InitialCycle -> TransferCycle*/ReceivedHIDReport -> FinalCycle.
func openHidraw(path string, cb Callbacks) (*hidrawTransport, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		if os.IsPermission(err) {
			return nil, &exclusiveOrOpenError{path: path, err: err, exclusive: true}
		}
		return nil, &exclusiveOrOpenError{path: path, err: err}
	}
	fd := int(f.Fd())

	desc, err := readHidrawDescriptor(fd)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrOpenFailed, path, err)
	}

	t := &hidrawTransport{
		f:    f,
		fd:   fd,
		desc: desc,
		cb:   cb,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go t.run()
	return t, nil
}

type exclusiveOrOpenError struct {
	path      string
	err       error
	exclusive bool
}

func (e *exclusiveOrOpenError) Error() string {
	if e.exclusive {
		return fmt.Sprintf("%v: %s: %v", ErrExclusiveAccess, e.path, e.err)
	}
	return fmt.Sprintf("%v: %s: %v", ErrOpenFailed, e.path, e.err)
}
func (e *exclusiveOrOpenError) Unwrap() error {
	if e.exclusive {
		return ErrExclusiveAccess
	}
	return ErrOpenFailed
}

func readHidrawDescriptor(fd int) ([]byte, error) {
	var size int32
	if err := ioctl(fd, hidiocGRDescSize, unsafe.Pointer(&size)); err != nil {
		return nil, err
	}
	var rd hidrawReportDescriptor
	rd.Size = uint32(size)
	if err := ioctl(fd, hidiocGRDesc, unsafe.Pointer(&rd)); err != nil {
		return nil, err
	}
	return append([]byte(nil), rd.Value[:size]...), nil
}

func ioctl(fd int, req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

// run is the per-device worker thread spec.md §4.D assigns to the
// transport: InitialCycle once, then alternating poll/ReceivedHIDReport
// as TransferCycle, until Close signals stop, then FinalCycle.
func (t *hidrawTransport) run() {
	defer close(t.done)
	t.cb.InitialCycle()

	maxReport := 64
	buf := make([]byte, maxReport)

	for {
		select {
		case <-t.stop:
			t.cb.FinalCycle()
			return
		default:
		}

		n, err := t.pollRead(buf, hidPollTimeoutMS*time.Millisecond)
		if err != nil {
			t.cb.DeviceError("hidraw read: %v", err)
			continue
		}
		if n > 0 {
			t.cb.ReceivedHIDReport(append([]byte(nil), buf[:n]...), hidparser.ReportInput, buf[0])
		}
		t.cb.TransferCycle()
	}
}

// pollRead waits up to timeout for hidraw data, returning 0 bytes on a
// timeout (not an error) so the worker loop can re-check the stop channel
// frequently without blocking indefinitely on Read.
func (t *hidrawTransport) pollRead(buf []byte, timeout time.Duration) (int, error) {
	fds := []unix.PollFd{{Fd: int32(t.fd), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, int(timeout.Milliseconds()))
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}
	return unix.Read(t.fd, buf)
}

func (t *hidrawTransport) SendUSBInterruptTransfer(data []byte) bool { return false }
func (t *hidrawTransport) ReceiveUSBInterruptTransfer(data []byte) int { return 0 }

func (t *hidrawTransport) SendHIDReport(data []byte, kind hidparser.ReportKind, reportID byte) bool {
	if kind != hidparser.ReportOutput && kind != hidparser.ReportFeature {
		return false
	}
	buf := make([]byte, 1+len(data))
	buf[0] = reportID
	copy(buf[1:], data)
	if kind == hidparser.ReportFeature {
		req := iowr('H', 0x06, uintptr(len(buf)))
		return ioctl(t.fd, req, unsafe.Pointer(&buf[0])) == nil
	}
	_, err := unix.Write(t.fd, buf)
	return err == nil
}

func (t *hidrawTransport) ReceiveHIDReport(data []byte, kind hidparser.ReportKind, reportID byte) int {
	if kind != hidparser.ReportFeature {
		return 0
	}
	buf := make([]byte, 1+len(data))
	buf[0] = reportID
	req := iowr('H', 0x07, uintptr(len(buf)))
	if err := ioctl(t.fd, req, unsafe.Pointer(&buf[0])); err != nil {
		return 0
	}
	n := copy(data, buf[1:])
	return n
}

func (t *hidrawTransport) ReportDescriptor() []byte { return t.desc }

// Close signals the worker to stop, blocks until FinalCycle has run and
// the goroutine has exited, then releases the file handle -- the join
// semantics hiddev.Transport's doc comment requires.
func (t *hidrawTransport) Close() error {
	t.closeOnce.Do(func() {
		close(t.stop)
	})
	<-t.done
	t.closed.Store(true)
	return t.f.Close()
}

// OpenHID opens a hidraw device node as a pure HID transport (spec.md's
// "HID" device kind: no USB interrupt endpoints, feature/output reports
// only).
func OpenHID(path string, cb Callbacks) (Transport, error) {
	return openHidraw(path, cb)
}

// OpenBluetooth opens a Bluetooth HID device. On Linux this is the same
// hidraw node a paired Bluetooth HID peripheral exposes once bound, so it
// shares hidrawTransport outright; USB-interrupt calls against it always
// report failure since no USB transfer layer exists underneath.
func OpenBluetooth(path string, cb Callbacks) (Transport, error) {
	return openHidraw(path, cb)
}
