package main

import (
	"fmt"

	"github.com/lucasbarnes96/truenorth-index/src/gate"
	"github.com/lucasbarnes96/truenorth-index/src/storage"

	"github.com/spf13/cobra"
)

// -----------------------------------------------------------------------------

func newCheckGateCmd() *cobra.Command {
	var minCoverage float64
	var minLiveDays int

	cmd := &cobra.Command{
		Use:   "check-gate",
		Short: "Re-evaluate the release gate and launch readiness over stored artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, appLogger, err := loadConfig()
			if err != nil {
				return err
			}
			defer appLogger.Close()

			store := storage.NewRunStore(conf.DataDir, appLogger)

			snapshot, err := store.LoadLatest()
			if err != nil {
				return err
			}
			if snapshot == nil {
				return fmt.Errorf("no runs recorded under %s", conf.DataDir)
			}

			history, err := store.LoadHistory()
			if err != nil {
				return err
			}
			liveDays := len(history.LiveEntries())

			// The gate re-runs against current config, so a threshold change
			// is visible without waiting for the next pipeline pass.
			result := gate.Evaluate(conf.MConfig, snapshot)

			fmt.Printf("run %s (as of %s)\n", snapshot.RunID, snapshot.AsOfDate)

			ready := true
			if result.Passed {
				fmt.Println("gate:        ok")
			} else {
				ready = false
				fmt.Printf("gate:        FAIL (%d conditions)\n", len(result.FailedConditions))
				for _, condition := range result.FailedConditions {
					fmt.Printf("  - %s: %s\n", condition.Code, condition.Message)
				}
			}

			if snapshot.CoverageRatio >= minCoverage {
				fmt.Printf("coverage:    ok (%.1f%% >= %.1f%%)\n", snapshot.CoverageRatio*100, minCoverage*100)
			} else {
				ready = false
				fmt.Printf("coverage:    FAIL (%.1f%% < %.1f%%)\n", snapshot.CoverageRatio*100, minCoverage*100)
			}

			if liveDays >= minLiveDays {
				fmt.Printf("live days:   ok (%d >= %d)\n", liveDays, minLiveDays)
			} else {
				ready = false
				fmt.Printf("live days:   FAIL (%d < %d)\n", liveDays, minLiveDays)
			}

			if !ready {
				return errGateBlocked
			}
			fmt.Println("ready")
			return nil
		},
	}

	cmd.Flags().Float64Var(&minCoverage, "min-coverage", 0.80, "launch-readiness coverage threshold")
	cmd.Flags().IntVar(&minLiveDays, "min-live-days", 30, "required live published days")
	return cmd
}
