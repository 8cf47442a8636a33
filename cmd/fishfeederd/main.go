// Fishfeederd is the control daemon for a standalone aquarium fish feeder.
//
// It drives the feed servo and physical button, keeps the device joined to
// the household WiFi (hosting its own access point while unprovisioned),
// maintains an MQTT session for remote feed and restart commands, and
// serves the embedded configuration page over HTTP.
//
// Usage:
//
//	fishfeederd [flags]
//
// Running without a subcommand starts the daemon. See 'fishfeederd --help'
// for available flags.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/IM-Lab-france/fishfeeder/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "fishfeederd",
	Short: "Aquarium fish feeder control daemon",
	Long: `The control daemon for a standalone aquarium fish feeder appliance.

Runs the feed servo, the physical feed button, WiFi provisioning with an
access point fallback, the MQTT command session, and the HTTP
configuration interface, all from a single control loop.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runDaemon,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(defaultsCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("fishfeederd %s\n", version.Full())
	},
}
