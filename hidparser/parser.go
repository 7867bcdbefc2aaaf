package hidparser

import "errors"

// ErrOverflow is returned by ScanValues (via the bitwise reader) when the
// sum of a report's field sizes exceeds the inbound buffer's bit length.
// Per the chosen overflow policy (see SPEC_FULL.md), this always halts the
// scan rather than truncating silently.
var ErrOverflow = errors.New("hidparser: report field overflows buffer")

// itemType is the HID item type bitfield (HID 1.11 §6.2.2.3).
type itemType uint8

const (
	itemMain itemType = iota
	itemGlobal
	itemLocal
	itemReserved
)

// mainTag, globalTag and localTag are the item tags (HID 1.11 §6.2.2.4/7/8).
type mainTag uint8

const (
	tagInput         mainTag = 0b1000
	tagOutput        mainTag = 0b1001
	tagCollection    mainTag = 0b1010
	tagFeature       mainTag = 0b1011
	tagEndCollection mainTag = 0b1100
)

type globalTag uint8

const (
	tagUsagePage       globalTag = 0b0000
	tagLogicalMinimum  globalTag = 0b0001
	tagLogicalMaximum  globalTag = 0b0010
	tagPhysicalMinimum globalTag = 0b0011
	tagPhysicalMaximum globalTag = 0b0100
	tagUnitExponent    globalTag = 0b0101
	tagUnit            globalTag = 0b0110
	tagReportSize      globalTag = 0b0111
	tagReportID        globalTag = 0b1000
	tagReportCount     globalTag = 0b1001
	tagPush            globalTag = 0b1010
	tagPop             globalTag = 0b1011
)

type localTag uint8

const (
	tagUsage              localTag = 0b0000
	tagUsageMinimum       localTag = 0b0001
	tagUsageMaximum       localTag = 0b0010
	tagDesignatorIndex    localTag = 0b0011
	tagDesignatorMinimum  localTag = 0b0100
	tagDesignatorMaximum  localTag = 0b0101
	tagStringIndex        localTag = 0b0111
	tagStringMinimum      localTag = 0b1000
	tagStringMaximum      localTag = 0b1001
	tagDelimiter          localTag = 0b1010
)

// collectionType is the data payload of a Collection item (HID 1.11 §6.2.2.6).
type collectionType uint8

const (
	collectionPhysical collectionType = iota
	collectionApplication
	collectionLogical
)

// globalState is the Global item context, duplicated by Push and restored
// by Pop, and carried unchanged across Main items until explicitly
// overwritten (HID 1.11 §6.2.2.7).
type globalState struct {
	usagePage      UsagePage
	logicalRange   Range
	physicalRange  Range
	unitExponent   int32
	unit           uint32
	reportSize     uint32
	reportID       uint32
	reportCount    uint32
}

// localState is the Local item context, cleared after every Main item
// (HID 1.11 §6.2.2.8).
type localState struct {
	usage      []Usage
	usageRange Range
}

func (l *localState) reset() { l.usage = l.usage[:0]; l.usageRange = Range{} }

// usageAt resolves the usage for the i-th MainItem generated from a single
// Main item declaring reportCount fields, per spec.md §4.A's usage-
// selection rule: a non-empty UsageMinimum/Maximum range wins, else the
// i-th entry of the Usage list (clamped to the first entry), else zero.
func (l *localState) usageAt(i uint32) Usage {
	if l.usageRange.Extent() != 0 {
		return Usage(int32(l.usageRange.Min) + int32(i))
	}
	if len(l.usage) == 0 {
		return UsageUndefined
	}
	if int(i) >= len(l.usage) {
		return l.usage[0]
	}
	return l.usage[i]
}

type collectionFrame struct {
	kind      collectionType
	usagePage UsagePage
	usage     Usage
}

// reportTable is a report-id-keyed, declaration-ordered pool of MainItems.
type reportTable struct {
	order []uint32
	items map[uint32][]MainItem
}

func newReportTable() reportTable {
	return reportTable{items: make(map[uint32][]MainItem)}
}

func (t *reportTable) add(flags uint16, g globalState, l *localState) {
	id := g.reportID
	if _, ok := t.items[id]; !ok {
		t.order = append(t.order, id)
	}
	bucket := t.items[id]
	for i := uint32(0); i < g.reportCount; i++ {
		bucket = append(bucket, MainItem{
			Flags:       flags,
			UsagePage:   g.usagePage,
			Usage:       l.usageAt(i),
			LogicalMin:  g.logicalRange.Min,
			LogicalMax:  g.logicalRange.Max,
			ReportSize:  g.reportSize,
			ReportID:    id,
			ReportCount: g.reportCount,
		})
	}
	t.items[id] = bucket
}

func (t *reportTable) byID(id uint32) ([]MainItem, bool) {
	items, ok := t.items[id]
	return items, ok
}

func (t *reportTable) all() []MainItem {
	var out []MainItem
	for _, id := range t.order {
		out = append(out, t.items[id]...)
	}
	return out
}

func (t *reportTable) totalBits(id uint32) uint32 {
	var sum uint32
	for _, it := range t.items[id] {
		sum += it.ReportSize
	}
	return sum
}

// Parser parses one HID report descriptor and answers queries against its
// Input/Output/Feature report tables. A Parser is reusable across Parse
// calls but not safe for concurrent use.
type Parser struct {
	status          Status
	multipleReports bool
	input           reportTable
	output          reportTable
	feature         reportTable
}

// Status reports the outcome of the most recent Parse call.
func (p *Parser) Status() Status { return p.status }

// Parse consumes a raw HID report descriptor (HID 1.11 §6.2.2). On success
// Status() becomes StatusDone and EnumerateValues/ScanValues become
// meaningful; on any malformed item it becomes StatusError and both become
// no-ops, per spec.md §3's invariant that partial results are never
// surfaced.
func (p *Parser) Parse(desc []byte) Status {
	p.input = newReportTable()
	p.output = newReportTable()
	p.feature = newReportTable()
	p.multipleReports = false

	globals := []globalState{{}}
	var locals localState
	var collections []collectionFrame

	i := 0
	for i < len(desc) {
		advance, err := p.parseItem(desc, i, &globals, &locals, &collections)
		if err != nil {
			p.status = StatusError
			return p.status
		}
		i += advance
	}

	if len(collections) != 0 {
		p.status = StatusError
		return p.status
	}

	p.status = StatusDone
	return p.status
}

// parseItem consumes exactly one item (short or long) starting at desc[i]
// and returns the number of bytes consumed.
func (p *Parser) parseItem(desc []byte, i int, globals *[]globalState, locals *localState, collections *[]collectionFrame) (int, error) {
	head := desc[i]
	if head == 0xFE {
		// Long item: header, size byte, tag byte, then size bytes of payload.
		if i+2 >= len(desc) {
			return 0, errors.New("hidparser: truncated long item header")
		}
		size := int(desc[i+1])
		end := i + 3 + size
		if end > len(desc) {
			return 0, errors.New("hidparser: truncated long item payload")
		}
		return end - i, nil
	}

	sizeCode := head & 0x3
	size := [4]int{0, 1, 2, 4}[sizeCode]
	typ := itemType((head >> 2) & 0x3)
	tag := head >> 4

	if i+1+size > len(desc) {
		return 0, errors.New("hidparser: truncated short item payload")
	}
	var data uint32
	switch size {
	case 1:
		data = uint32(desc[i+1])
	case 2:
		data = uint32(desc[i+1]) | uint32(desc[i+2])<<8
	case 4:
		data = uint32(desc[i+1]) | uint32(desc[i+2])<<8 | uint32(desc[i+3])<<16 | uint32(desc[i+4])<<24
	}
	// sdata is data sign-extended from its payload width, for the
	// LogicalMinimum/LogicalMaximum items whose values HID defines as signed.
	sdata := int32(data)
	switch size {
	case 1:
		sdata = int32(int8(data))
	case 2:
		sdata = int32(int16(data))
	}

	top := &(*globals)[len(*globals)-1]

	switch typ {
	case itemMain:
		switch mainTag(tag) {
		case tagInput:
			p.input.add(uint16(data), *top, locals)
		case tagOutput:
			p.output.add(uint16(data), *top, locals)
		case tagFeature:
			p.feature.add(uint16(data), *top, locals)
		case tagCollection:
			*collections = append(*collections, collectionFrame{
				kind:      collectionType(data),
				usagePage: top.usagePage,
				usage:     locals.usageAt(0),
			})
		case tagEndCollection:
			if len(*collections) == 0 {
				return 0, errors.New("hidparser: EndCollection without matching Collection")
			}
			*collections = (*collections)[:len(*collections)-1]
		default:
			return 0, errors.New("hidparser: unknown Main item tag")
		}
		locals.reset()

	case itemGlobal:
		switch globalTag(tag) {
		case tagUsagePage:
			top.usagePage = UsagePage(data)
		case tagLogicalMinimum:
			top.logicalRange.Min = sdata
		case tagLogicalMaximum:
			top.logicalRange.Max = sdata
		case tagPhysicalMinimum:
			top.physicalRange.Min = int32(data)
		case tagPhysicalMaximum:
			top.physicalRange.Max = int32(data)
		case tagUnitExponent:
			top.unitExponent = int32(data)
		case tagUnit:
			top.unit = data
		case tagReportSize:
			top.reportSize = data
		case tagReportID:
			p.multipleReports = true
			top.reportID = data
		case tagReportCount:
			top.reportCount = data
		case tagPush:
			dup := *top
			*globals = append(*globals, dup)
		case tagPop:
			if len(*globals) <= 1 {
				return 0, errors.New("hidparser: Pop with empty global stack")
			}
			*globals = (*globals)[:len(*globals)-1]
		default:
			return 0, errors.New("hidparser: unknown Global item tag")
		}

	case itemLocal:
		switch localTag(tag) {
		case tagUsage:
			locals.usage = append(locals.usage, Usage(data))
		case tagUsageMinimum:
			locals.usageRange.Min = int32(data)
		case tagUsageMaximum:
			locals.usageRange.Max = int32(data)
		case tagDesignatorIndex, tagDesignatorMinimum, tagDesignatorMaximum,
			tagStringIndex, tagStringMinimum, tagStringMaximum, tagDelimiter:
			// accepted and ignored, per spec.md §4.A
		default:
			return 0, errors.New("hidparser: unknown Local item tag")
		}

	default:
		return 0, errors.New("hidparser: reserved item type")
	}

	return 1 + size, nil
}

// EnumerateValues invokes cb for every non-Constant Input MainItem in
// declaration order, stopping early if cb returns false. A no-op unless
// Status() is StatusDone.
func (p *Parser) EnumerateValues(cb func(item MainItem) bool) {
	if p.status != StatusDone {
		return
	}
	for _, item := range p.input.all() {
		if item.IsConstant() {
			continue
		}
		if !cb(item) {
			return
		}
	}
}

// ScanValues decodes one inbound Input report and invokes cb(item, value)
// for every non-Constant item in that report, in declaration order. A
// no-op unless Status() is StatusDone. Returns ErrOverflow if the report's
// declared fields don't fit in reportBytes; the scan halts at that point
// without invoking cb for the remainder.
func (p *Parser) ScanValues(cb func(item MainItem, value uint32) bool, reportBytes []byte) error {
	if p.status != StatusDone {
		return nil
	}

	data := reportBytes
	var reportID uint32
	if p.multipleReports {
		if len(data) == 0 {
			return nil
		}
		reportID = uint32(data[0])
		data = data[1:]
	}

	items, ok := p.input.byID(reportID)
	if !ok {
		return nil
	}

	if p.input.totalBits(reportID) > uint32(len(data))*8 {
		return ErrOverflow
	}

	r := bitReader{buf: data}
	for _, item := range items {
		val, err := r.read(item.ReportSize)
		if err != nil {
			return err
		}
		if item.IsConstant() {
			continue
		}
		if !cb(item, val) {
			return nil
		}
	}
	return nil
}

// MaxInputReportSize returns the number of bytes needed to hold the
// largest Input report the descriptor declares, including the leading
// report-id byte when the descriptor uses multiple reports.
func (p *Parser) MaxInputReportSize() int {
	if p.status != StatusDone {
		return 0
	}
	var maxBits uint32
	for _, id := range p.input.order {
		if bits := p.input.totalBits(id); bits > maxBits {
			maxBits = bits
		}
	}
	bytes := int((maxBits + 7) / 8)
	if p.multipleReports {
		bytes++
	}
	return bytes
}

// ApplicationUsage returns the (UsagePage, Usage) of the descriptor's first
// Application-type Collection, used by listeners to classify a device as a
// Joystick/GamePad before surfacing it as a token.
func ApplicationUsage(desc []byte) (UsagePage, Usage) {
	globals := []globalState{{}}
	var locals localState
	i := 0
	for i < len(desc) {
		head := desc[i]
		if head == 0xFE {
			if i+2 >= len(desc) {
				return UsagePageUndefined, UsageUndefined
			}
			size := int(desc[i+1])
			i += 3 + size
			continue
		}
		sizeCode := head & 0x3
		size := [4]int{0, 1, 2, 4}[sizeCode]
		if i+1+size > len(desc) {
			return UsagePageUndefined, UsageUndefined
		}
		var data uint32
		switch size {
		case 1:
			data = uint32(desc[i+1])
		case 2:
			data = uint32(desc[i+1]) | uint32(desc[i+2])<<8
		case 4:
			data = uint32(desc[i+1]) | uint32(desc[i+2])<<8 | uint32(desc[i+3])<<16 | uint32(desc[i+4])<<24
		}
		typ := itemType((head >> 2) & 0x3)
		tag := head >> 4
		top := &globals[len(globals)-1]
		switch typ {
		case itemGlobal:
			if globalTag(tag) == tagUsagePage {
				top.usagePage = UsagePage(data)
			} else if globalTag(tag) == tagPush {
				globals = append(globals, *top)
			} else if globalTag(tag) == tagPop && len(globals) > 1 {
				globals = globals[:len(globals)-1]
			}
		case itemLocal:
			if localTag(tag) == tagUsage {
				locals.usage = append(locals.usage, Usage(data))
			}
		case itemMain:
			if mainTag(tag) == tagCollection && collectionType(data) == collectionApplication {
				return top.usagePage, locals.usageAt(0)
			}
			if mainTag(tag) == tagCollection {
				locals.reset()
			}
		}
		i += 1 + size
	}
	return UsagePageUndefined, UsageUndefined
}

// bitReader walks a byte buffer least-significant-bit first within each
// byte, with fields crossing byte boundaries little-endian, per
// spec.md §4.A's report-scan rule.
type bitReader struct {
	buf    []byte
	byteAt int
	bitAt  int
}

func (r *bitReader) read(numBits uint32) (uint32, error) {
	var val uint32
	for i := uint32(0); i < numBits; {
		if r.byteAt >= len(r.buf) {
			return 0, ErrOverflow
		}
		remBits := 8 - r.bitAt
		if want := int(numBits - i); remBits > want {
			remBits = want
		}
		mask := uint32((1 << uint(remBits)) - 1)
		val |= ((uint32(r.buf[r.byteAt]) >> uint(r.bitAt)) & mask) << i
		i += uint32(remBits)
		r.bitAt += remBits
		if r.bitAt == 8 {
			r.bitAt = 0
			r.byteAt++
		}
	}
	return val, nil
}
