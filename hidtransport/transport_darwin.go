//go:build darwin && cgo

package hidtransport

/*
#cgo LDFLAGS: -framework IOKit -framework CoreFoundation
#include <IOKit/hid/IOHIDManager.h>
#include <IOKit/hid/IOHIDDevice.h>
#include <CoreFoundation/CoreFoundation.h>
#include <stdlib.h>

extern void goInputReportCallback(void *context, IOReturn result, void *sender,
                                   IOHIDReportType type, uint32_t reportID,
                                   uint8_t *report, CFIndex reportLength);

static void inputReportCallback(void *context, IOReturn result, void *sender,
                                 IOHIDReportType type, uint32_t reportID,
                                 uint8_t *report, CFIndex reportLength) {
	goInputReportCallback(context, result, sender, type, reportID, report, reportLength);
}

static IOHIDDeviceRef openDeviceAtPath(io_service_t service) {
	IOHIDDeviceRef dev = IOHIDDeviceCreate(kCFAllocatorDefault, service);
	if (dev == NULL) {
		return NULL;
	}
	if (IOHIDDeviceOpen(dev, kIOHIDOptionsTypeNone) != kIOReturnSuccess) {
		CFRelease(dev);
		return NULL;
	}
	return dev;
}

static void scheduleWithRunLoop(IOHIDDeviceRef dev) {
	IOHIDDeviceScheduleWithRunLoop(dev, CFRunLoopGetCurrent(), kCFRunLoopDefaultMode);
}

static void registerInputCallback(IOHIDDeviceRef dev, uint8_t *buf, CFIndex bufLen, void *ctx) {
	IOHIDDeviceRegisterInputReportCallback(dev, buf, bufLen, inputReportCallback, ctx);
}
*/
import "C"

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/hidfw/hidinput/hidparser"
)

// darwinHIDTransport drives an IOHIDDeviceRef the way IOKit's own model
// requires: registered on a CFRunLoop owned by the worker goroutine, with
// InitialCycle/TransferCycle/FinalCycle mapped onto run-loop start,
// CFRunLoopRunInMode ticks, and run-loop teardown respectively. Both the
// USB and Bluetooth HID device kinds reach IOKit through IOHIDManager
// identically -- the transport transport is not transport-class-specific
// on Darwin the way raw usbfs access is on Linux.
type darwinHIDTransport struct {
	dev  C.IOHIDDeviceRef
	desc []byte

	cb Callbacks

	reportBuf []byte

	closeOnce sync.Once
	stop      chan struct{}
	done      chan struct{}
	closed    atomic.Bool
}

var darwinTransportsMu sync.Mutex
var darwinTransports = map[unsafe.Pointer]*darwinHIDTransport{}

func openIOHIDDevice(service C.io_service_t, cb Callbacks) (*darwinHIDTransport, error) {
	dev := C.openDeviceAtPath(service)
	if dev == 0 {
		return nil, fmt.Errorf("%w: IOHIDDeviceOpen failed", ErrOpenFailed)
	}

	desc := readIOHIDDescriptor(dev)

	t := &darwinHIDTransport{
		dev:       dev,
		desc:      desc,
		cb:        cb,
		reportBuf: make([]byte, 64),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}

	ctx := unsafe.Pointer(t)
	darwinTransportsMu.Lock()
	darwinTransports[ctx] = t
	darwinTransportsMu.Unlock()

	go t.run(ctx)
	return t, nil
}

// readIOHIDDescriptor reads the kIOHIDReportDescriptorKey property IOKit
// exposes on every HID device, so Darwin, like Linux's hidraw ioctl path,
// hands hidparser the device's real descriptor bytes unmodified.
func readIOHIDDescriptor(dev C.IOHIDDeviceRef) []byte {
	key := C.CFStringCreateWithCString(C.kCFAllocatorDefault, C.CString("ReportDescriptor"), C.kCFStringEncodingUTF8)
	defer C.CFRelease(C.CFTypeRef(key))
	val := C.IOHIDDeviceGetProperty(dev, key)
	if val == 0 {
		return nil
	}
	length := C.CFDataGetLength(C.CFDataRef(val))
	if length == 0 {
		return nil
	}
	ptr := C.CFDataGetBytePtr(C.CFDataRef(val))
	return C.GoBytes(unsafe.Pointer(ptr), C.int(length))
}

//export goInputReportCallback
func goInputReportCallback(context unsafe.Pointer, result C.IOReturn, sender unsafe.Pointer,
	reportType C.IOHIDReportType, reportID C.uint32_t, report *C.uint8_t, reportLength C.CFIndex) {
	darwinTransportsMu.Lock()
	t := darwinTransports[context]
	darwinTransportsMu.Unlock()
	if t == nil {
		return
	}
	data := C.GoBytes(unsafe.Pointer(report), C.int(reportLength))
	t.cb.ReceivedHIDReport(data, hidparser.ReportInput, byte(reportID))
}

func (t *darwinHIDTransport) run(ctx unsafe.Pointer) {
	defer close(t.done)
	t.cb.InitialCycle()

	C.scheduleWithRunLoop(t.dev)
	C.registerInputCallback(t.dev, (*C.uint8_t)(unsafe.Pointer(&t.reportBuf[0])), C.CFIndex(len(t.reportBuf)), ctx)

	for {
		select {
		case <-t.stop:
			C.IOHIDDeviceUnscheduleFromRunLoop(t.dev, C.CFRunLoopGetCurrent(), C.kCFRunLoopDefaultMode)
			t.cb.FinalCycle()
			return
		default:
		}
		// Pump the run loop briefly so the registered input-report callback
		// fires, then hand control back for TransferCycle, matching the
		// cooperative per-device worker model every transport shares.
		C.CFRunLoopRunInMode(C.kCFRunLoopDefaultMode, 0.01, 1)
		t.cb.TransferCycle()
	}
}

func (t *darwinHIDTransport) SendUSBInterruptTransfer(data []byte) bool   { return false }
func (t *darwinHIDTransport) ReceiveUSBInterruptTransfer(data []byte) int { return 0 }

func (t *darwinHIDTransport) SendHIDReport(data []byte, kind hidparser.ReportKind, reportID byte) bool {
	if len(data) == 0 {
		return false
	}
	var reportType C.IOHIDReportType
	switch kind {
	case hidparser.ReportOutput:
		reportType = C.kIOHIDReportTypeOutput
	case hidparser.ReportFeature:
		reportType = C.kIOHIDReportTypeFeature
	default:
		return false
	}
	ret := C.IOHIDDeviceSetReport(t.dev, reportType, C.CFIndex(reportID),
		(*C.uint8_t)(unsafe.Pointer(&data[0])), C.CFIndex(len(data)))
	return ret == C.kIOReturnSuccess
}

func (t *darwinHIDTransport) ReceiveHIDReport(data []byte, kind hidparser.ReportKind, reportID byte) int {
	if kind != hidparser.ReportFeature || len(data) == 0 {
		return 0
	}
	length := C.CFIndex(len(data))
	ret := C.IOHIDDeviceGetReport(t.dev, C.kIOHIDReportTypeFeature, C.CFIndex(reportID),
		(*C.uint8_t)(unsafe.Pointer(&data[0])), &length)
	if ret != C.kIOReturnSuccess {
		return 0
	}
	return int(length)
}

func (t *darwinHIDTransport) ReportDescriptor() []byte { return t.desc }

func (t *darwinHIDTransport) Close() error {
	t.closeOnce.Do(func() {
		close(t.stop)
	})
	<-t.done
	t.closed.Store(true)
	darwinTransportsMu.Lock()
	delete(darwinTransports, unsafe.Pointer(t))
	darwinTransportsMu.Unlock()
	C.IOHIDDeviceClose(t.dev, C.kIOHIDOptionsTypeNone)
	C.CFRelease(C.CFTypeRef(t.dev))
	return nil
}

// OpenHID resolves path to an IOKit registry entry path and opens it as a
// HID transport. Path is produced by hidfinder's Darwin listener from the
// io_service_t it already holds while enumerating.
func OpenHID(path string, cb Callbacks) (Transport, error) {
	service, err := lookupIOService(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrOpenFailed, path, err)
	}
	return openIOHIDDevice(service, cb)
}

// OpenBluetooth: paired Bluetooth HID peripherals enumerate through the
// same IOHIDManager device set as USB ones on Darwin.
func OpenBluetooth(path string, cb Callbacks) (Transport, error) {
	return OpenHID(path, cb)
}

// OpenUSB: vendor-specific (non-HID) USB devices such as the GameCube
// adapter require IOUSBHostDevice/IOUSBInterface bulk-pipe access rather
// than IOHIDManager; out of SPEC_FULL.md's Darwin scope, see DESIGN.md.
func OpenUSB(path string, iface int, cb Callbacks) (Transport, error) {
	return nil, ErrUnsupported
}

func lookupIOService(path string) (C.io_service_t, error) {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))
	service := C.IORegistryEntryFromPath(C.kIOMasterPortDefault, cpath)
	if service == 0 {
		return 0, fmt.Errorf("no IOKit registry entry at %s", path)
	}
	return service, nil
}
