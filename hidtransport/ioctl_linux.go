//go:build linux

package hidtransport

import "unsafe"

// _IOC and friends mirror the kernel's asm-generic/ioctl.h macros, the
// same arch-independent helper malivvan/aegis's hid_linux.go builds HID
// feature-report ioctls with.
const (
	iocNrbits   = 8
	iocTypebits = 8
	iocSizebits = 14

	iocNrshift   = 0
	iocTypeshift = iocNrshift + iocNrbits
	iocSizeshift = iocTypeshift + iocTypebits
	iocDirshift  = iocSizeshift + iocSizebits

	iocWrite = 1
	iocRead  = 2
)

func ioc(dir, typ, nr, size uintptr) uintptr {
	return (dir << iocDirshift) | (typ << iocTypeshift) | (nr << iocNrshift) | (size << iocSizeshift)
}

func ior(typ byte, nr byte, size uintptr) uintptr  { return ioc(iocRead, uintptr(typ), uintptr(nr), size) }
func iow(typ byte, nr byte, size uintptr) uintptr  { return ioc(iocWrite, uintptr(typ), uintptr(nr), size) }
func iowr(typ byte, nr byte, size uintptr) uintptr { return ioc(iocRead|iocWrite, uintptr(typ), uintptr(nr), size) }

// ctrlTransfer matches the kernel's struct usbdevfs_ctrltransfer.
type ctrlTransfer struct {
	RequestType uint8
	Request     uint8
	Value       uint16
	Index       uint16
	Length      uint16
	Timeout     uint32
	Data        uintptr
}

// bulkTransfer matches struct usbdevfs_bulktransfer; used here for both
// bulk and interrupt endpoints, the way libusb's USBDEVFS_BULK ioctl does
// for synchronous interrupt reads/writes on low-speed devices.
type bulkTransfer struct {
	Endpoint uint32
	Length   uint32
	Timeout  uint32
	Data     uintptr
}

// ioctlStruct matches struct usbdevfs_ioctl, used to forward
// USBDEVFS_DISCONNECT to a specific interface.
type ioctlStruct struct {
	IfNo   int32
	IoctlCode int32
	Data   uintptr
}

var (
	usbdevfsControl          = iowr('U', 0, unsafe.Sizeof(ctrlTransfer{}))
	usbdevfsBulk             = iowr('U', 2, unsafe.Sizeof(bulkTransfer{}))
	usbdevfsClaimInterface   = ior('U', 15, unsafe.Sizeof(uint32(0)))
	usbdevfsReleaseInterface = ior('U', 16, unsafe.Sizeof(uint32(0)))
	usbdevfsIoctl            = iowr('U', 18, unsafe.Sizeof(ioctlStruct{}))

	hidiocGRDescSize = ior('H', 0x01, unsafe.Sizeof(int32(0)))
	hidiocGFeature   = iowr('H', 0x07, 4096)
	hidiocSFeature   = iowr('H', 0x06, 4096)
)

// hidrawReportDescriptor matches struct hidraw_report_descriptor, sized
// for the maximum HID descriptor length the kernel allows (HID_MAX_DESCRIPTOR_SIZE).
type hidrawReportDescriptor struct {
	Size  uint32
	Value [4096]byte
}

var hidiocGRDesc = ior('H', 0x02, unsafe.Sizeof(hidrawReportDescriptor{}))

// usbdevfsDisconnectCode is USBDEVFS_DISCONNECT's own ioctl number
// (_IO('U', 22)), forwarded as the inner code of USBDEVFS_IOCTL to detach
// whatever in-kernel driver is bound to an interface before claiming it.
const usbdevfsDisconnectCode = int32(0x5516)
