package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/malivvan/cui"
	"golang.org/x/exp/slices"

	"github.com/hidfw/hidinput/hiddev"
	"github.com/hidfw/hidinput/hidfinder"

	_ "github.com/hidfw/hidinput/drivers/ds3"
	_ "github.com/hidfw/hidinput/drivers/gcadapter"
	_ "github.com/hidfw/hidinput/drivers/genericpad"
	_ "github.com/hidfw/hidinput/drivers/powera"
	_ "github.com/hidfw/hidinput/drivers/xinputpad"
)

// runDashboard builds a Finder scoped to types (empty admits every
// registered driver class), starts scanning, and renders its token set
// in a cui.Flex the way cui/cui.go's three-column header does -- here a
// header row plus a body TextView redrawn on every deviceConnected and
// deviceDisconnected.
func runDashboard(version string, types []uint64) error {
	finder := hidfinder.New(types)
	defer finder.Release()

	app := cui.NewApplication()

	header := cui.NewFlex()
	header.SetDirection(cui.FlexColumn)
	title := cui.NewTextView()
	title.SetText("hidmon " + version)
	title.SetTextAlign(cui.AlignLeft)
	hint := cui.NewTextView()
	hint.SetText("Press Ctrl+C to exit")
	hint.SetTextAlign(cui.AlignRight)
	header.AddItem(title, 0, 1, false)
	header.AddItem(hint, 0, 1, false)

	body := cui.NewTextView()
	body.SetTextAlign(cui.AlignLeft)

	root := cui.NewFlex()
	root.AddItem(header, 1, 0, false)
	root.AddItem(body, 0, 1, false)
	app.SetRoot(root, true)

	redraw := func() {
		text := renderTokens(finder.TokensHandle())
		app.QueueUpdateDraw(func() { body.SetText(text) })
	}

	finder.OnConnected(func(tok *hiddev.Token) { redraw() })
	finder.OnDisconnected(func(tok *hiddev.Token, base *hiddev.Base) { redraw() })

	if err := finder.StartScanning(); err != nil {
		return fmt.Errorf("hidmon: start scanning: %w", err)
	}
	defer finder.StopScanning()

	// ScanNow already seeds the initial set, but the listener's own
	// hotplug thread takes a moment to come up on some platforms; a
	// trailing redraw a tick later catches anything that arrived in the
	// window between StartScanning returning and the first event.
	go func() {
		time.Sleep(200 * time.Millisecond)
		redraw()
	}()

	return app.Run()
}

// renderTokens formats the Finder's current token set one line per
// device, sorted by path for a stable display ordering -- the
// golang.org/x/exp/slices job this module gives a dependency the
// teacher declares but never calls.
func renderTokens(tokens []*hiddev.Token) string {
	if len(tokens) == 0 {
		return "no devices connected"
	}
	slices.SortFunc(tokens, func(a, b *hiddev.Token) int {
		return strings.Compare(a.Path(), b.Path())
	})
	var b strings.Builder
	for _, tok := range tokens {
		fmt.Fprintf(&b, "%-20s vid=%#04x pid=%#04x %s %s\n",
			tok.Kind(), tok.VendorID(), tok.ProductID(), tok.VendorName(), tok.ProductName())
	}
	return b.String()
}
