// Command hidmon is the demo client built on top of the hidinput
// subsystem: a cobra root command that drives a hidfinder.Finder and
// renders its live token set in a cui dashboard, the same shape as the
// teacher's cmd/cli + cui pairing.
package main

import (
	"fmt"
	"os"
)

var version = "dev"

func main() {
	root := New(version)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "hidmon: %v\n", err)
		os.Exit(1)
	}
}
