//go:build windows

package xinputpad

import (
	"github.com/hidfw/hidinput/hiddev"
	"github.com/hidfw/hidinput/hidlog"
	"github.com/hidfw/hidinput/hidparser"
	"github.com/hidfw/hidinput/hidtransport"
)

type driverCallbacks struct{ d *Driver }

func (c driverCallbacks) InitialCycle()  { c.d.InitialCycle() }
func (c driverCallbacks) TransferCycle() { c.d.TransferCycle() }
func (c driverCallbacks) FinalCycle()    { c.d.FinalCycle() }
func (c driverCallbacks) ReceivedHIDReport(data []byte, kind hidparser.ReportKind, reportID byte) {
	c.d.ReceivedHIDReport(data, kind, reportID)
}
func (c driverCallbacks) DeviceError(format string, args ...any) {
	hidlog.Warnf("xinputpad: "+format, args...)
}

func newBase(token *hiddev.Token, slot int) (*hiddev.Base, error) {
	d := &Driver{slot: slot}
	transport := hidtransport.OpenXInput(uint32(slot), driverCallbacks{d: d})
	base := hiddev.NewBase(d, transport, token)
	d.base = base
	return base, nil
}
