package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hidfw/hidinput/hidsig"
)

// New builds the root command, the cmd/cli.New equivalent for this
// module: one persistent flag (--types) gating which driver classes the
// dashboard's Finder admits, mirroring cmd/cli's --keyring.
func New(version string) *cobra.Command {
	var types []string

	root := &cobra.Command{
		Use:     "hidmon",
		Short:   "live dashboard for connected HID input devices",
		Version: version,
		Run: func(cmd *cobra.Command, args []string) {
			if err := runDashboard(version, resolveTypeHashes(types)); err != nil {
				cmd.PrintErrf("error: %s\n", err)
			}
		},
	}
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(cmd.Parent().Version)
		},
	})
	root.CompletionOptions = cobra.CompletionOptions{DisableDefaultCmd: true}
	root.PersistentFlags().StringSliceVarP(&types, "types", "t", nil,
		"driver classes to watch (gcadapter,ds3,powera,genericpad,xinputpad-0..xinputpad-3); default all")
	return root
}

// resolveTypeHashes turns the --types flag's driver-class names into the
// type hashes hidfinder.New expects, trimming whitespace the way
// cmd/cli's --keyring path-prefix handling trims its own input.
func resolveTypeHashes(names []string) []uint64 {
	hashes := make([]uint64, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		hashes = append(hashes, hidsig.TypeHash(n))
	}
	return hashes
}
