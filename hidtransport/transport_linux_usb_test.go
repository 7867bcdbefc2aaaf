//go:build linux

package hidtransport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeSysfsFile creates path's parent directories and writes contents,
// trimming the need for every test to repeat os.MkdirAll boilerplate.
func writeSysfsFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}

func TestResolveSysfsUSBDeviceMatchesByBusAndDevNum(t *testing.T) {
	root := t.TempDir()
	old := sysfsUSBDevicesRoot
	sysfsUSBDevicesRoot = root
	t.Cleanup(func() { sysfsUSBDevicesRoot = old })

	devDir := filepath.Join(root, "1-2")
	writeSysfsFile(t, filepath.Join(devDir, "busnum"), "1\n")
	writeSysfsFile(t, filepath.Join(devDir, "devnum"), "4\n")

	got, err := resolveSysfsUSBDevice("/dev/bus/usb/001/004")
	require.NoError(t, err)
	require.Equal(t, devDir, got)
}

func TestResolveSysfsUSBDeviceNoMatch(t *testing.T) {
	root := t.TempDir()
	old := sysfsUSBDevicesRoot
	sysfsUSBDevicesRoot = root
	t.Cleanup(func() { sysfsUSBDevicesRoot = old })

	_, err := resolveSysfsUSBDevice("/dev/bus/usb/001/004")
	require.Error(t, err)
}

func TestDiscoverInterruptEndpointsFindsInAndOut(t *testing.T) {
	root := t.TempDir()
	old := sysfsUSBDevicesRoot
	sysfsUSBDevicesRoot = root
	t.Cleanup(func() { sysfsUSBDevicesRoot = old })

	devDir := filepath.Join(root, "1-2")
	writeSysfsFile(t, filepath.Join(devDir, "busnum"), "1\n")
	writeSysfsFile(t, filepath.Join(devDir, "devnum"), "4\n")

	ifaceDir := filepath.Join(devDir, "1-2:1.0")
	writeSysfsFile(t, filepath.Join(ifaceDir, "ep_81", "bEndpointAddress"), "0x81\n")
	writeSysfsFile(t, filepath.Join(ifaceDir, "ep_02", "bEndpointAddress"), "0x02\n")

	in, out, err := discoverInterruptEndpoints("/dev/bus/usb/001/004", 0)
	require.NoError(t, err)
	require.Equal(t, byte(0x81), in)
	require.Equal(t, byte(0x02), out)
}

func TestDiscoverInterruptEndpointsNoEndpointsIsError(t *testing.T) {
	root := t.TempDir()
	old := sysfsUSBDevicesRoot
	sysfsUSBDevicesRoot = root
	t.Cleanup(func() { sysfsUSBDevicesRoot = old })

	devDir := filepath.Join(root, "1-2")
	writeSysfsFile(t, filepath.Join(devDir, "busnum"), "1\n")
	writeSysfsFile(t, filepath.Join(devDir, "devnum"), "4\n")
	require.NoError(t, os.MkdirAll(filepath.Join(devDir, "1-2:1.0"), 0o755))

	_, _, err := discoverInterruptEndpoints("/dev/bus/usb/001/004", 0)
	require.Error(t, err)
}
