// wlchewing is a Wayland input method for zhuyin (bopomofo) input built on
// libchewing.
//
//	wlchewing                 Run the input method on the current seat
//	wlchewing -e              Start in English (pass-through) mode
//	wlchewing config init     Write a default configuration file
//	wlchewing config path     Print the configuration file in use
//	wlchewing config check    Validate the configuration file
//	wlchewing version         Print the version
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var rootCmd = &cobra.Command{
	Use:           "wlchewing",
	Short:         "Wayland zhuyin input method with libchewing",
	Long:          "wlchewing grabs the keyboard through input-method-unstable-v2, composes zhuyin with libchewing and forwards every other key through a virtual keyboard.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, flags)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "wlchewing:", err)
		os.Exit(1)
	}
}
