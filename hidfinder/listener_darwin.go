//go:build darwin && cgo

package hidfinder

/*
#cgo LDFLAGS: -framework IOKit -framework CoreFoundation
#include <IOKit/hid/IOHIDManager.h>
#include <IOKit/IOKitLib.h>
#include <CoreFoundation/CoreFoundation.h>
#include <stdlib.h>
#include <string.h>

extern void goHIDDeviceMatched(void *context, IOHIDDeviceRef device);
extern void goHIDDeviceRemoved(void *context, IOHIDDeviceRef device);
extern void goHIDDeviceEnumerated(void *device, void *context);

static void matchingCallback(void *context, IOReturn result, void *sender, IOHIDDeviceRef device) {
	goHIDDeviceMatched(context, device);
}

static void removalCallback(void *context, IOReturn result, void *sender, IOHIDDeviceRef device) {
	goHIDDeviceRemoved(context, device);
}

static void enumerateApplier(const void *value, void *context) {
	goHIDDeviceEnumerated((void *)value, context);
}

// newHIDManager creates a manager matching every HID device, subscribed to
// both arrival and removal and scheduled on the calling goroutine's run
// loop -- the IOHIDManager equivalent of HIDListenerIOKit.cpp's
// IOServiceAddMatchingNotification pair against "IOHIDDevice".
static IOHIDManagerRef newHIDManager(void *context) {
	IOHIDManagerRef mgr = IOHIDManagerCreate(kCFAllocatorDefault, kIOHIDOptionsTypeNone);
	if (mgr == NULL) {
		return NULL;
	}
	IOHIDManagerSetDeviceMatching(mgr, NULL);
	IOHIDManagerRegisterDeviceMatchingCallback(mgr, matchingCallback, context);
	IOHIDManagerRegisterDeviceRemovalCallback(mgr, removalCallback, context);
	IOHIDManagerScheduleWithRunLoop(mgr, CFRunLoopGetCurrent(), kCFRunLoopDefaultMode);
	if (IOHIDManagerOpen(mgr, kIOHIDOptionsTypeNone) != kIOReturnSuccess) {
		CFRelease(mgr);
		return NULL;
	}
	return mgr;
}

// newHIDManagerPlain opens a manager with no callbacks and no run loop,
// just enough to issue one IOHIDManagerCopyDevices query -- the
// IOHIDManager equivalent of the original's scanNow(), which runs its own
// independent IOServiceGetMatchingServices query rather than reusing the
// persistent notification port.
static IOHIDManagerRef newHIDManagerPlain(void) {
	IOHIDManagerRef mgr = IOHIDManagerCreate(kCFAllocatorDefault, kIOHIDOptionsTypeNone);
	if (mgr == NULL) {
		return NULL;
	}
	IOHIDManagerSetDeviceMatching(mgr, NULL);
	if (IOHIDManagerOpen(mgr, kIOHIDOptionsTypeNone) != kIOReturnSuccess) {
		CFRelease(mgr);
		return NULL;
	}
	return mgr;
}

static void copyAndApply(IOHIDManagerRef mgr, void *context) {
	CFSetRef devices = IOHIDManagerCopyDevices(mgr);
	if (devices == NULL) {
		return;
	}
	CFSetApplyFunction(devices, enumerateApplier, context);
	CFRelease(devices);
}

static int deviceServicePath(IOHIDDeviceRef device, char *out, int outLen) {
	io_service_t service = IOHIDDeviceGetService(device);
	if (service == 0) {
		return 0;
	}
	io_string_t path;
	if (IORegistryEntryGetPath(service, kIOServicePlane, path) != 0) {
		return 0;
	}
	strncpy(out, path, outLen - 1);
	out[outLen - 1] = 0;
	return 1;
}

static int deviceIntProperty(IOHIDDeviceRef device, const char *keyName, int *out) {
	CFStringRef key = CFStringCreateWithCString(kCFAllocatorDefault, keyName, kCFStringEncodingUTF8);
	if (key == NULL) {
		return 0;
	}
	CFTypeRef val = IOHIDDeviceGetProperty(device, key);
	CFRelease(key);
	if (val == NULL || CFGetTypeID(val) != CFNumberGetTypeID()) {
		return 0;
	}
	CFNumberGetValue((CFNumberRef)val, kCFNumberIntType, out);
	return 1;
}

static int deviceStringProperty(IOHIDDeviceRef device, const char *keyName, char *out, int outLen) {
	CFStringRef key = CFStringCreateWithCString(kCFAllocatorDefault, keyName, kCFStringEncodingUTF8);
	if (key == NULL) {
		return 0;
	}
	CFTypeRef val = IOHIDDeviceGetProperty(device, key);
	CFRelease(key);
	if (val == NULL || CFGetTypeID(val) != CFStringGetTypeID()) {
		return 0;
	}
	if (!CFStringGetCString((CFStringRef)val, out, outLen, kCFStringEncodingUTF8)) {
		return 0;
	}
	return 1;
}
*/
import "C"

import (
	"sync"
	"unsafe"

	"github.com/hidfw/hidinput/hiddev"
	"github.com/hidfw/hidinput/hidlog"
	"github.com/hidfw/hidinput/hidparser"
	"github.com/hidfw/hidinput/hidsig"
)

// darwinListener is the IOHIDManager-based replacement for the
// "IOHIDDevice" half of HIDListenerIOKit.cpp's pair of
// IOServiceAddMatchingNotification registrations: one matching/removal
// callback pair over every HID collection, which this module then filters
// down to Generic Desktop Joystick/GamePad the same way the original's
// devicesConnectedHID does. IOHIDManager sees HID devices only; the
// low-level USB-class registration has no counterpart here.
type darwinListener struct {
	finder *Finder

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
	mgr     C.IOHIDManagerRef

	paths map[C.IOHIDDeviceRef]string
}

func newPlatformListener(f *Finder) (Listener, error) {
	return &darwinListener{finder: f, paths: make(map[C.IOHIDDeviceRef]string)}, nil
}

var (
	darwinListenersMu sync.Mutex
	darwinListeners   = map[unsafe.Pointer]*darwinListener{}
)

func (l *darwinListener) StartScanning() error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return nil
	}
	l.running = true
	l.stop = make(chan struct{})
	l.done = make(chan struct{})
	l.mu.Unlock()

	go l.run()
	return nil
}

func (l *darwinListener) StopScanning() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	stop, done := l.stop, l.done
	l.mu.Unlock()
	close(stop)
	<-done
}

// run owns the manager for as long as scanning is enabled, pumping its
// run loop in short ticks between stop-channel checks -- the same
// cooperative worker shape hidtransport's darwinHIDTransport.run uses for
// its per-device run loop.
func (l *darwinListener) run() {
	defer close(l.done)

	ctx := unsafe.Pointer(l)
	darwinListenersMu.Lock()
	darwinListeners[ctx] = l
	darwinListenersMu.Unlock()
	defer func() {
		darwinListenersMu.Lock()
		delete(darwinListeners, ctx)
		darwinListenersMu.Unlock()
	}()

	mgr := C.newHIDManager(ctx)
	if mgr == 0 {
		hidlog.Errorf("hidfinder: failed to create IOHIDManager")
		return
	}
	l.mu.Lock()
	l.mgr = mgr
	l.mu.Unlock()

	for {
		select {
		case <-l.stop:
			C.IOHIDManagerClose(mgr, C.kIOHIDOptionsTypeNone)
			C.CFRelease(C.CFTypeRef(mgr))
			l.mu.Lock()
			l.mgr = 0
			l.mu.Unlock()
			return
		default:
		}
		C.CFRunLoopRunInMode(C.kCFRunLoopDefaultMode, 0.1, 1)
	}
}

// ScanNow runs a one-shot enumeration through its own throwaway manager,
// independent of whatever persistent manager run owns, matching the
// original's scanNow() semantics.
func (l *darwinListener) ScanNow() {
	mgr := C.newHIDManagerPlain()
	if mgr == 0 {
		return
	}
	defer func() {
		C.IOHIDManagerClose(mgr, C.kIOHIDOptionsTypeNone)
		C.CFRelease(C.CFTypeRef(mgr))
	}()

	ctx := unsafe.Pointer(l)
	darwinListenersMu.Lock()
	_, alreadyRegistered := darwinListeners[ctx]
	darwinListeners[ctx] = l
	darwinListenersMu.Unlock()
	if !alreadyRegistered {
		defer func() {
			darwinListenersMu.Lock()
			delete(darwinListeners, ctx)
			darwinListenersMu.Unlock()
		}()
	}

	C.copyAndApply(mgr, ctx)
}

//export goHIDDeviceMatched
func goHIDDeviceMatched(context unsafe.Pointer, device C.IOHIDDeviceRef) {
	if l := lookupDarwinListener(context); l != nil {
		l.handleMatched(device, true)
	}
}

//export goHIDDeviceRemoved
func goHIDDeviceRemoved(context unsafe.Pointer, device C.IOHIDDeviceRef) {
	if l := lookupDarwinListener(context); l != nil {
		l.handleRemoved(device)
	}
}

//export goHIDDeviceEnumerated
func goHIDDeviceEnumerated(device unsafe.Pointer, context unsafe.Pointer) {
	if l := lookupDarwinListener(context); l != nil {
		l.handleMatched(C.IOHIDDeviceRef(device), false)
	}
}

func lookupDarwinListener(context unsafe.Pointer) *darwinListener {
	darwinListenersMu.Lock()
	defer darwinListenersMu.Unlock()
	return darwinListeners[context]
}

// handleMatched classifies device and admits it to the Finder. gated
// mirrors listener_linux.go's handleUevent add-case check: the async
// notification path only admits while the Finder's scanningEnabled flag
// is set, closing the same StopScanning race window (a straggler
// callback arriving between scanningEnabled flipping false and the
// manager actually closing); the explicit ScanNow path never gates, since
// a manual scan is meant to seed state unconditionally.
func (l *darwinListener) handleMatched(device C.IOHIDDeviceRef, gated bool) {
	if gated {
		l.finder.mu.Lock()
		gateOpen := l.finder.scanningEnabled
		l.finder.mu.Unlock()
		if !gateOpen {
			return
		}
	}

	tok, sig, ok := classifyIOHIDDevice(device)
	if !ok {
		return
	}

	l.mu.Lock()
	l.paths[device] = tok.Path()
	l.mu.Unlock()

	l.finder.insertToken(tok, sig.TypeHash)
}

func (l *darwinListener) handleRemoved(device C.IOHIDDeviceRef) {
	l.mu.Lock()
	path, ok := l.paths[device]
	if ok {
		delete(l.paths, device)
	}
	l.mu.Unlock()
	if !ok {
		return
	}
	l.finder.removeToken(path)
}

// classifyIOHIDDevice reads the IOKit registry path and the handful of
// IOHIDDevice properties HIDListenerIOKit.cpp's devicesConnectedHID pulls
// -- PrimaryUsagePage/PrimaryUsage for the Generic Desktop Joystick/
// GamePad filter, then VendorID/ProductID/Manufacturer/Product -- before
// handing the result to hidsig.Match.
func classifyIOHIDDevice(device C.IOHIDDeviceRef) (*hiddev.Token, hidsig.Signature, bool) {
	var zero hidsig.Signature

	path, ok := devicePath(device)
	if !ok {
		return nil, zero, false
	}

	usagePage, ok := cIntProperty(device, "PrimaryUsagePage")
	if !ok || usagePage != int(hidparser.UsagePageGenericDesktop) {
		return nil, zero, false
	}
	usage, ok := cIntProperty(device, "PrimaryUsage")
	if !ok || (usage != int(hidparser.UsageJoystick) && usage != int(hidparser.UsageGamePad)) {
		return nil, zero, false
	}

	vendorID, _ := cIntProperty(device, "VendorID")
	productID, _ := cIntProperty(device, "ProductID")
	manufacturer := cStringProperty(device, "Manufacturer")
	product := cStringProperty(device, "Product")

	tok := hiddev.New(hiddev.KindHID, uint16(vendorID), uint16(productID), manufacturer, product, path)
	sig, ok := hidsig.Match(tok)
	if !ok {
		return nil, zero, false
	}
	return tok, sig, true
}

func devicePath(device C.IOHIDDeviceRef) (string, bool) {
	buf := make([]C.char, 512)
	if C.deviceServicePath(device, &buf[0], C.int(len(buf))) == 0 {
		return "", false
	}
	return C.GoString(&buf[0]), true
}

func cIntProperty(device C.IOHIDDeviceRef, key string) (int, bool) {
	ckey := C.CString(key)
	defer C.free(unsafe.Pointer(ckey))
	var out C.int
	if C.deviceIntProperty(device, ckey, &out) == 0 {
		return 0, false
	}
	return int(out), true
}

func cStringProperty(device C.IOHIDDeviceRef, key string) string {
	ckey := C.CString(key)
	defer C.free(unsafe.Pointer(ckey))
	buf := make([]C.char, 256)
	if C.deviceStringProperty(device, ckey, &buf[0], C.int(len(buf))) == 0 {
		return ""
	}
	return C.GoString(&buf[0])
}
