//go:build linux

package hidfinder

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// Minimal hidraw descriptor-read ioctls, duplicated from
// hidtransport's own (unexported) _IOC helpers rather than imported:
// this package only ever needs a best-effort classification read before
// handing the device off to hidtransport for its real open, so it is not
// worth creating a dependency edge just to share four constants.
const (
	iocNrbits   = 8
	iocTypebits = 8
	iocSizebits = 14

	iocNrshift   = 0
	iocTypeshift = iocNrshift + iocNrbits
	iocSizeshift = iocTypeshift + iocTypebits
	iocDirshift  = iocSizeshift + iocSizebits

	iocRead = 2
)

func iocRd(typ byte, nr byte, size uintptr) uintptr {
	return (uintptr(iocRead) << iocDirshift) | (uintptr(typ) << iocTypeshift) | (uintptr(nr) << iocNrshift) | (size << iocSizeshift)
}

const (
	hidiocGRDescSizeNr = 0x01
	hidiocGRDescNr     = 0x02
)

var (
	hidiocGRDescSizeReq = iocRd('H', hidiocGRDescSizeNr, unsafe.Sizeof(int32(0)))
)

type hidrawReportDescriptorSysfs struct {
	Size  uint32
	Value [4096]byte
}

var hidiocGRDescReq = iocRd('H', hidiocGRDescNr, unsafe.Sizeof(hidrawReportDescriptorSysfs{}))

func ioctlGet(fd int, out any) error {
	var req uintptr
	var ptr unsafe.Pointer
	switch v := out.(type) {
	case *int32:
		req = hidiocGRDescSizeReq
		ptr = unsafe.Pointer(v)
	case *hidrawReportDescriptorSysfs:
		req = hidiocGRDescReq
		ptr = unsafe.Pointer(v)
	}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(ptr))
	if errno != 0 {
		return errno
	}
	return nil
}
