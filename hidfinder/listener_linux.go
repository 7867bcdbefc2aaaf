//go:build linux

package hidfinder

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/hidfw/hidinput/hiddev"
	"github.com/hidfw/hidinput/hidlog"
	"github.com/hidfw/hidinput/hidparser"
	"github.com/hidfw/hidinput/hidsig"
)

// udevListener reproduces HIDListenerUdev.cpp's shape: a udev-flavored
// netlink monitor filtered to usb/usb_device, bluetooth/bluetooth_device
// and hidraw subsystems, read on a dedicated goroutine that blocks in a
// poll equivalent to the original's pselect-with-unblocked-SIGTERM, woken
// early by a self-pipe instead of a signal.
type udevListener struct {
	finder *Finder

	sock       int
	wakeR, wakeW int

	mu      sync.Mutex
	running bool
	done    chan struct{}
}

func newPlatformListener(f *Finder) (Listener, error) {
	sock, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_RAW, unix.NETLINK_KOBJECT_UEVENT)
	if err != nil {
		return nil, fmt.Errorf("hidfinder: open netlink socket: %w", err)
	}
	addr := &unix.SockaddrNetlink{Family: unix.AF_NETLINK, Groups: 1}
	if err := unix.Bind(sock, addr); err != nil {
		_ = unix.Close(sock)
		return nil, fmt.Errorf("hidfinder: bind netlink socket: %w", err)
	}

	fds := make([]int, 2)
	if err := unix.Pipe(fds); err != nil {
		_ = unix.Close(sock)
		return nil, fmt.Errorf("hidfinder: create wake pipe: %w", err)
	}

	return &udevListener{finder: f, sock: sock, wakeR: fds[0], wakeW: fds[1]}, nil
}

func (l *udevListener) StartScanning() error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return nil
	}
	l.running = true
	l.done = make(chan struct{})
	l.mu.Unlock()

	l.ScanNow()
	go l.run()
	return nil
}

func (l *udevListener) StopScanning() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	done := l.done
	l.mu.Unlock()

	_, _ = unix.Write(l.wakeW, []byte{0})
	<-done
}

// ScanNow seeds initial state via sysfs, unconditionally inserting --
// this runs before the hotplug gate is meaningful, per spec.md's
// scanning-enabled gate note.
func (l *udevListener) ScanNow() {
	for _, dir := range []string{"/sys/class/hidraw"} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			path := filepath.Join("/dev", e.Name())
			if tok, sig, ok := l.classifyHidraw(path); ok {
				l.finder.insertToken(tok, sig.TypeHash)
			}
		}
	}
}

func (l *udevListener) run() {
	defer close(l.done)
	buf := make([]byte, 8192)
	for {
		fds := []unix.PollFd{
			{Fd: int32(l.sock), Events: unix.POLLIN},
			{Fd: int32(l.wakeR), Events: unix.POLLIN},
		}
		n, err := unix.Poll(fds, -1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			hidlog.Errorf("hidfinder: poll: %v", err)
			return
		}
		if n == 0 {
			continue
		}
		if fds[1].Revents&unix.POLLIN != 0 {
			return
		}
		if fds[0].Revents&unix.POLLIN != 0 {
			l.drainEvents(buf)
		}
	}
}

func (l *udevListener) drainEvents(buf []byte) {
	for {
		n, _, err := unix.Recvfrom(l.sock, buf, unix.MSG_DONTWAIT)
		if err != nil {
			return
		}
		l.handleUevent(buf[:n])
	}
}

// handleUevent parses a single netlink uevent packet's NUL-separated
// KEY=VALUE lines (ACTION, SUBSYSTEM, DEVPATH) and routes add/remove to
// the Finder, mirroring HIDListenerUdev.cpp's udev_monitor_receive_device
// handling without libudev itself.
func (l *udevListener) handleUevent(raw []byte) {
	fields := strings.Split(string(raw), "\x00")
	var action, subsystem, devpath string
	for _, f := range fields {
		switch {
		case strings.HasPrefix(f, "ACTION="):
			action = strings.TrimPrefix(f, "ACTION=")
		case strings.HasPrefix(f, "SUBSYSTEM="):
			subsystem = strings.TrimPrefix(f, "SUBSYSTEM=")
		case strings.HasPrefix(f, "DEVPATH="):
			devpath = strings.TrimPrefix(f, "DEVPATH=")
		}
	}
	if subsystem != "hidraw" && subsystem != "usb" && subsystem != "bluetooth" {
		return
	}

	l.mu.Lock()
	gateOpen := l.finder.scanningEnabled
	l.mu.Unlock()

	name := filepath.Base(devpath)
	switch action {
	case "add":
		if !gateOpen {
			return
		}
		path := filepath.Join("/dev", name)
		if tok, sig, ok := l.classifyHidraw(path); ok {
			l.finder.insertToken(tok, sig.TypeHash)
		}
	case "remove":
		l.finder.removeToken(filepath.Join("/dev", name))
	}
}

// classifyHidraw reads VID/PID/manufacturer/product from sysfs and the
// device's own report descriptor, rejecting application usages outside
// Generic Desktop Joystick/GamePad the way HIDListenerUdev.cpp does.
func (l *udevListener) classifyHidraw(path string) (*hiddev.Token, hidsig.Signature, bool) {
	var zero hidsig.Signature
	name := filepath.Base(path)
	sysPath := filepath.Join("/sys/class/hidraw", name)
	realDev, err := filepath.EvalSymlinks(filepath.Join(sysPath, "device"))
	if err != nil {
		return nil, zero, false
	}

	devDir := realDev
	for {
		if _, err := os.Stat(filepath.Join(devDir, "idVendor")); err == nil {
			break
		}
		parent := filepath.Dir(devDir)
		if parent == devDir {
			return nil, zero, false
		}
		devDir = parent
	}

	vendorID := readHex16(filepath.Join(devDir, "idVendor"))
	productID := readHex16(filepath.Join(devDir, "idProduct"))
	manufacturer := readString(filepath.Join(devDir, "manufacturer"))
	product := readString(filepath.Join(devDir, "product"))

	desc, err := readHidrawDescriptorSysfs(name)
	if err == nil && len(desc) > 0 {
		page, usage := hidparser.ApplicationUsage(desc)
		if page != hidparser.UsagePageGenericDesktop ||
			(usage != hidparser.UsageJoystick && usage != hidparser.UsageGamePad) {
			return nil, zero, false
		}
	}

	tok := hiddev.New(hiddev.KindHID, vendorID, productID, manufacturer, product, path)
	sig, ok := hidsig.Match(tok)
	if !ok {
		return nil, zero, false
	}
	return tok, sig, true
}

func readHex16(path string) uint16 {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	v, _ := strconv.ParseUint(strings.TrimSpace(string(b)), 16, 16)
	return uint16(v)
}

func readString(path string) string {
	b, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

// readHidrawDescriptorSysfs opens the hidraw node briefly just to pull
// its report descriptor for classification, then closes it -- the actual
// driver-owned open happens later, inside hidtransport, once a signature
// has matched and a client calls Token.OpenAndGetDevice.
func readHidrawDescriptorSysfs(name string) ([]byte, error) {
	f, err := os.OpenFile(filepath.Join("/dev", name), os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fd := int(f.Fd())
	var size int32
	if err := ioctlGet(fd, &size); err != nil {
		return nil, err
	}
	var rd hidrawReportDescriptorSysfs
	rd.Size = uint32(size)
	if err := ioctlGet(fd, &rd); err != nil {
		return nil, err
	}
	return append([]byte(nil), rd.Value[:size]...), nil
}
