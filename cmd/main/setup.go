package main

import (
	"github.com/lucasbarnes96/truenorth-index/src/config"
	"github.com/lucasbarnes96/truenorth-index/src/interfaces"
	"github.com/lucasbarnes96/truenorth-index/src/logger"
	"github.com/lucasbarnes96/truenorth-index/src/models"
	"github.com/lucasbarnes96/truenorth-index/src/storage"
)

// -----------------------------------------------------------------------------

// loadConfig reads the YAML config named by the persistent flag and builds
// the application logger.
func loadConfig() (*config.Config, *logger.Logger, error) {
	conf, err := config.NewConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	appLogger := logger.NewLogger(conf.LogLevel, conf.LogFile, conf.Name)
	return conf, appLogger, nil
}

// -----------------------------------------------------------------------------

// openReleaseLog initializes the release_runs audit log selected by config.
// A broken audit database never blocks a run: failures log a warning and the
// caller continues with a nil log.
func openReleaseLog(config *models.MConfig, appLogger *logger.Logger) interfaces.IReleaseLog {
	var db interfaces.IReleaseLog
	var err error

	switch config.Storage.DBType {
	case "postgres":
		db, err = storage.NewPostgresReleaseLog(config, logger.NewLogger(config.LogLevel, config.LogFile, "PostgresReleaseLog"))
	default:
		// Default to SQLite
		db, err = storage.NewSQLiteReleaseLog(config, logger.NewLogger(config.LogLevel, config.LogFile, "SQLiteReleaseLog"))
	}

	if err != nil {
		appLogger.Warning("Failed to init release log: %v", err)
		return nil
	}
	if err := db.Initialize(); err != nil {
		appLogger.Warning("Failed to migrate release log: %v", err)
		return nil
	}
	return db
}
