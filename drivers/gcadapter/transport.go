package gcadapter

import (
	"github.com/hidfw/hidinput/hiddev"
	"github.com/hidfw/hidinput/hidlog"
	"github.com/hidfw/hidinput/hidparser"
	"github.com/hidfw/hidinput/hidtransport"
)

// driverCallbacks adapts Driver to hidtransport.Callbacks, the narrower
// surface the worker thread drives directly.
type driverCallbacks struct{ d *Driver }

func (c driverCallbacks) InitialCycle()  { c.d.InitialCycle() }
func (c driverCallbacks) TransferCycle() { c.d.TransferCycle() }
func (c driverCallbacks) FinalCycle()    { c.d.FinalCycle() }
func (c driverCallbacks) ReceivedHIDReport(data []byte, kind hidparser.ReportKind, reportID byte) {
	c.d.ReceivedHIDReport(data, kind, reportID)
}
func (c driverCallbacks) DeviceError(format string, args ...any) {
	hidlog.Warnf("gcadapter: "+format, args...)
}

func openTransport(token *hiddev.Token, d *Driver) (hiddev.Transport, error) {
	return hidtransport.OpenUSB(token.Path(), 0, driverCallbacks{d: d})
}
