package hidparser

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

// descBuilder assembles short HID items by hand, mirroring how the
// fixtures in the original boo test suite were built byte-by-byte.
type descBuilder struct {
	buf []byte
}

func (b *descBuilder) short(typ itemType, tag uint8, val uint32, size int) *descBuilder {
	var sizeCode uint8
	switch size {
	case 0:
		sizeCode = 0
	case 1:
		sizeCode = 1
	case 2:
		sizeCode = 2
	case 4:
		sizeCode = 3
	}
	head := (tag << 4) | (uint8(typ) << 2) | sizeCode
	b.buf = append(b.buf, head)
	switch size {
	case 1:
		b.buf = append(b.buf, byte(val))
	case 2:
		b.buf = append(b.buf, byte(val), byte(val>>8))
	case 4:
		b.buf = append(b.buf, byte(val), byte(val>>8), byte(val>>16), byte(val>>24))
	}
	return b
}

func (b *descBuilder) usagePage(v uint32) *descBuilder      { return b.short(itemGlobal, uint8(tagUsagePage), v, 1) }
func (b *descBuilder) logicalMin(v int32) *descBuilder      { return b.short(itemGlobal, uint8(tagLogicalMinimum), uint32(v), 1) }
func (b *descBuilder) logicalMax(v int32) *descBuilder      { return b.short(itemGlobal, uint8(tagLogicalMaximum), uint32(v), 1) }
func (b *descBuilder) reportSize(v uint32) *descBuilder     { return b.short(itemGlobal, uint8(tagReportSize), v, 1) }
func (b *descBuilder) reportCount(v uint32) *descBuilder    { return b.short(itemGlobal, uint8(tagReportCount), v, 1) }
func (b *descBuilder) reportID(v uint32) *descBuilder       { return b.short(itemGlobal, uint8(tagReportID), v, 1) }
func (b *descBuilder) push() *descBuilder                   { return b.short(itemGlobal, uint8(tagPush), 0, 0) }
func (b *descBuilder) pop() *descBuilder                    { return b.short(itemGlobal, uint8(tagPop), 0, 0) }
func (b *descBuilder) usage(v uint32) *descBuilder          { return b.short(itemLocal, uint8(tagUsage), v, 1) }
func (b *descBuilder) usageMin(v uint32) *descBuilder       { return b.short(itemLocal, uint8(tagUsageMinimum), v, 1) }
func (b *descBuilder) usageMax(v uint32) *descBuilder       { return b.short(itemLocal, uint8(tagUsageMaximum), v, 1) }
func (b *descBuilder) collection(v uint32) *descBuilder     { return b.short(itemMain, uint8(tagCollection), v, 1) }
func (b *descBuilder) endCollection() *descBuilder          { return b.short(itemMain, uint8(tagEndCollection), 0, 0) }
func (b *descBuilder) input(flags uint32) *descBuilder      { return b.short(itemMain, uint8(tagInput), flags, 1) }
func (b *descBuilder) output(flags uint32) *descBuilder     { return b.short(itemMain, uint8(tagOutput), flags, 1) }

func TestApplicationUsageGamePad(t *testing.T) {
	desc := []byte{0x05, 0x01, 0x09, 0x05, 0xA1, 0x01, 0xC0}
	page, usage := ApplicationUsage(desc)
	require.Equal(t, UsagePageGenericDesktop, page)
	require.Equal(t, UsageGamePad, usage)
}

func TestParseSimpleGamePad(t *testing.T) {
	var b descBuilder
	b.usagePage(uint32(UsagePageGenericDesktop)).
		usage(uint32(UsageGamePad)).
		collection(uint32(collectionApplication)).
		usagePage(uint32(UsagePageButton)).
		usageMin(1).usageMax(4).
		logicalMin(0).logicalMax(1).
		reportSize(1).reportCount(4).
		input(0x02). // Data,Var,Abs
		reportSize(4).reportCount(1).
		input(0x01). // Constant padding
		usagePage(uint32(UsagePageGenericDesktop)).
		usage(uint32(UsageX)).
		usage(uint32(UsageY)).
		logicalMin(-128).logicalMax(127).
		reportSize(8).reportCount(2).
		input(0x02).
		endCollection()

	var p Parser
	require.Equal(t, StatusDone, p.Parse(b.buf))

	var items []MainItem
	p.EnumerateValues(func(item MainItem) bool {
		items = append(items, item)
		return true
	})

	// 4 buttons + 2 axes == 6 non-constant items; the 4-bit pad is skipped.
	require.Len(t, items, 6)
	for i := 0; i < 4; i++ {
		require.False(t, items[i].IsConstant())
		require.Equal(t, UsagePageButton, items[i].UsagePage)
		require.Equal(t, Usage(i+1), items[i].Usage)
	}
	require.Equal(t, UsageX, items[4].Usage)
	require.Equal(t, UsageY, items[5].Usage)
}

func TestScanValuesBitwiseDecode(t *testing.T) {
	var b descBuilder
	b.usagePage(uint32(UsagePageButton)).
		logicalMin(0).logicalMax(1).
		reportSize(3).reportCount(1).
		usage(1).
		input(0x02).
		reportSize(5).reportCount(1).
		usage(2).
		input(0x02).
		reportSize(8).reportCount(1).
		usage(3).
		input(0x02)

	var p Parser
	require.Equal(t, StatusDone, p.Parse(b.buf))

	// Field 1: 3 bits = 0b101 (5); field 2: 5 bits = 0b10110 (22);
	// field 3: 8 bits = 0xAB. Packed LSB-first across 2 bytes.
	byte0 := byte(5) | byte(22)<<3
	byte1 := byte(0xAB)
	report := []byte{byte0, byte1}

	var got []uint32
	err := p.ScanValues(func(item MainItem, value uint32) bool {
		got = append(got, value)
		return true
	}, report)
	require.NoError(t, err)
	require.Equal(t, []uint32{5, 22, 0xAB}, got)
}

func TestScanValuesReportIDRouting(t *testing.T) {
	var b descBuilder
	b.reportID(1).
		usagePage(uint32(UsagePageButton)).
		logicalMin(0).logicalMax(1).
		reportSize(8).reportCount(1).
		usage(1).
		input(0x02).
		reportID(2).
		reportSize(8).reportCount(1).
		usage(2).
		input(0x02)

	var p Parser
	require.Equal(t, StatusDone, p.Parse(b.buf))

	var gotUsage Usage
	var gotVal uint32
	err := p.ScanValues(func(item MainItem, value uint32) bool {
		gotUsage = item.Usage
		gotVal = value
		return true
	}, []byte{0x02, 0x2A})
	require.NoError(t, err)
	require.Equal(t, Usage(2), gotUsage)
	require.Equal(t, uint32(0x2A), gotVal)
}

func TestScanValuesOverflowErrors(t *testing.T) {
	var b descBuilder
	b.usagePage(uint32(UsagePageButton)).
		logicalMin(0).logicalMax(1).
		reportSize(32).reportCount(1).
		usage(1).
		input(0x02)

	var p Parser
	require.Equal(t, StatusDone, p.Parse(b.buf))

	err := p.ScanValues(func(MainItem, uint32) bool { return true }, []byte{0x00, 0x00})
	require.ErrorIs(t, err, ErrOverflow)
}

func TestParseErrorStopsEnumerateAndScan(t *testing.T) {
	// EndCollection with no matching Collection: malformed.
	var b descBuilder
	b.endCollection()

	var p Parser
	require.Equal(t, StatusError, p.Parse(b.buf))

	called := false
	p.EnumerateValues(func(MainItem) bool { called = true; return true })
	require.False(t, called)

	err := p.ScanValues(func(MainItem, uint32) bool { called = true; return true }, []byte{0})
	require.NoError(t, err)
	require.False(t, called)
}

func TestMaxInputReportSize(t *testing.T) {
	var b descBuilder
	b.usagePage(uint32(UsagePageButton)).
		logicalMin(0).logicalMax(1).
		reportSize(1).reportCount(10).
		usage(1).
		input(0x02)

	var p Parser
	require.Equal(t, StatusDone, p.Parse(b.buf))
	require.Equal(t, 2, p.MaxInputReportSize()) // 10 bits rounds up to 2 bytes
}

func TestItemDiffWithGoCmp(t *testing.T) {
	var b descBuilder
	b.usagePage(uint32(UsagePageButton)).
		logicalMin(0).logicalMax(1).
		reportSize(1).reportCount(1).
		usage(1).
		input(0x02)

	var p1, p2 Parser
	require.Equal(t, StatusDone, p1.Parse(b.buf))
	require.Equal(t, StatusDone, p2.Parse(b.buf))

	var items1, items2 []MainItem
	p1.EnumerateValues(func(i MainItem) bool { items1 = append(items1, i); return true })
	p2.EnumerateValues(func(i MainItem) bool { items2 = append(items2, i); return true })

	if diff := cmp.Diff(items1, items2); diff != "" {
		t.Fatalf("identical descriptors produced different item pools (-a +b):\n%s", diff)
	}
}
