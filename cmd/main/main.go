package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// errGateBlocked signals a completed run whose gate refused publication. The
// run summary already explains it; main only turns it into exit code 1.
var errGateBlocked = errors.New("release gate blocked publication")

var configPath string

// -----------------------------------------------------------------------------

func main() {
	root := &cobra.Command{
		Use:   "truenorth",
		Short: "Daily inflation nowcast for Canada from public price signals",
		Long: "truenorth collects public category price feeds, aggregates them into a\n" +
			"daily inflation nowcast and publishes the snapshot only when the release\n" +
			"gate passes.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config/default.yaml", "path to config file")

	root.AddCommand(newRunCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newSeedCmd())
	root.AddCommand(newCheckGateCmd())

	if err := root.Execute(); err != nil {
		if !errors.Is(err, errGateBlocked) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
