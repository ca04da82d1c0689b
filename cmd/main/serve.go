package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/lucasbarnes96/truenorth-index/src/interfaces"
	"github.com/lucasbarnes96/truenorth-index/src/server"
	"github.com/lucasbarnes96/truenorth-index/src/storage"
	"github.com/lucasbarnes96/truenorth-index/src/utils"

	"github.com/spf13/cobra"
)

// -----------------------------------------------------------------------------

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the nowcast API and websocket push over the stored artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, appLogger, err := loadConfig()
			if err != nil {
				return err
			}
			defer appLogger.Close()

			store := storage.NewRunStore(conf.DataDir, appLogger)
			if err := store.EnsureDirs(); err != nil {
				return err
			}

			// A missing audit log only degrades /v1/releases/latest.
			releaseLog := openReleaseLog(conf.MConfig, appLogger)
			if releaseLog != nil {
				defer releaseLog.Close()
			}

			var srv interfaces.IDataExchanger = server.NewFastAPIServer(conf.MConfig, store, releaseLog, utils.NewReleaseCalendar(), appLogger)

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case <-quit:
				appLogger.Info("Shutting down...")
				return srv.Stop()
			}
		},
	}
}
