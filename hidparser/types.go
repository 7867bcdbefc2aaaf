// Package hidparser decodes USB HID 1.11 report descriptors into a flat,
// indexable pool of main items and scans inbound reports against that
// pool.
package hidparser

// UsagePage identifies the namespace a Usage is drawn from (HID 1.11 §3.2).
type UsagePage uint16

const (
	UsagePageUndefined      UsagePage = 0
	UsagePageGenericDesktop UsagePage = 1
	UsagePageSimulation     UsagePage = 2
	UsagePageVR             UsagePage = 3
	UsagePageSport          UsagePage = 4
	UsagePageGame           UsagePage = 5
	UsagePageGenericDevice  UsagePage = 6
	UsagePageKeyboard       UsagePage = 7
	UsagePageLEDs           UsagePage = 8
	UsagePageButton         UsagePage = 9
	UsagePageOrdinal        UsagePage = 10
	UsagePageTelephony      UsagePage = 11
	UsagePageConsumer       UsagePage = 12
	UsagePageDigitizer      UsagePage = 13
)

// Usage identifies a control within a UsagePage.
type Usage uint16

// Generic Desktop and Game Controls usages referenced by this package's
// device drivers. Not exhaustive -- only the ones the core needs to
// compare against by name.
const (
	UsageUndefined Usage = 0
	UsagePointer   Usage = 1
	UsageMouse     Usage = 2
	UsageJoystick  Usage = 4
	UsageGamePad   Usage = 5
	UsageKeyboard  Usage = 6
	UsageKeypad    Usage = 7

	UsageX         Usage = 0x30
	UsageY         Usage = 0x31
	UsageZ         Usage = 0x32
	UsageRx        Usage = 0x33
	UsageRy        Usage = 0x34
	UsageRz        Usage = 0x35
	UsageSlider    Usage = 0x36
	UsageDial      Usage = 0x37
	UsageWheel     Usage = 0x38
	UsageHatSwitch Usage = 0x39
)

// Range is an inclusive (min, max) pair as found in LogicalMinimum/Maximum,
// PhysicalMinimum/Maximum and UsageMinimum/Maximum items.
type Range struct {
	Min, Max int32
}

// Extent returns Max-Min. The parser treats a zero extent as "no usage
// range", so a range spanning a single value (Min == Max) is handled the
// same as an absent UsageMinimum/UsageMaximum pair.
func (r Range) Extent() int32 { return r.Max - r.Min }

// item flag bits, HID 1.11 §6.2.2.5.
const (
	flagConstant uint16 = 1 << iota
	flagVariable
	flagRelative
	flagWrap
	flagNonlinear
	flagNoPreferred
	flagNullState
	flagVolatile
	flagBufferedBytes
)

// MainItem is one field of an Input, Output or Feature report: the global
// state in effect plus the local usage resolved for its position within a
// ReportCount run.
type MainItem struct {
	Flags       uint16
	UsagePage   UsagePage
	Usage       Usage
	LogicalMin  int32
	LogicalMax  int32
	ReportSize  uint32 // bits
	ReportID    uint32
	ReportCount uint32 // count within its declaring Main item, for reference only
}

func (m MainItem) IsConstant() bool      { return m.Flags&flagConstant != 0 }
func (m MainItem) IsVariable() bool      { return m.Flags&flagVariable != 0 }
func (m MainItem) IsRelative() bool      { return m.Flags&flagRelative != 0 }
func (m MainItem) IsWrap() bool          { return m.Flags&flagWrap != 0 }
func (m MainItem) IsNonlinear() bool     { return m.Flags&flagNonlinear != 0 }
func (m MainItem) IsNoPreferred() bool   { return m.Flags&flagNoPreferred != 0 }
func (m MainItem) IsNullState() bool     { return m.Flags&flagNullState != 0 }
func (m MainItem) IsVolatile() bool      { return m.Flags&flagVolatile != 0 }
func (m MainItem) IsBufferedBytes() bool { return m.Flags&flagBufferedBytes != 0 }

// LogicalRange reconstructs the Range a MainItem's value is drawn from.
func (m MainItem) LogicalRange() Range { return Range{Min: m.LogicalMin, Max: m.LogicalMax} }

// UsagePageName returns a human-readable name for the item's usage page, or
// "" if unknown. Diagnostic only -- never consulted by the parser itself.
func (m MainItem) UsagePageName() string {
	if int(m.UsagePage) >= len(usagePageNames) {
		return ""
	}
	return usagePageNames[m.UsagePage]
}

// UsageName returns a human-readable name for the item's usage within its
// page, or "" if unknown or the page has no name table.
func (m MainItem) UsageName() string {
	switch m.UsagePage {
	case UsagePageGenericDesktop:
		return genericDesktopUsageNames[m.Usage]
	case UsagePageGame:
		return gameUsageNames[m.Usage]
	default:
		return ""
	}
}

// ReportKind selects which of a device's three report tables a transfer
// belongs to.
type ReportKind uint8

const (
	ReportInput ReportKind = iota
	ReportOutput
	ReportFeature
)

// Status is the terminal state of a parse.
type Status uint8

const (
	StatusOK Status = iota
	StatusDone
	StatusError
)
