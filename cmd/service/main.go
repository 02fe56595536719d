package main

import (
	"context"
	"fmt"
	"os"

	"gitlab.com/dirk.krummacker/address-book/internal/backup"
	"gitlab.com/dirk.krummacker/address-book/internal/config"
	"gitlab.com/dirk.krummacker/address-book/internal/logging"
	"gitlab.com/dirk.krummacker/address-book/internal/service"
	"gitlab.com/dirk.krummacker/address-book/internal/store"
	"go.uber.org/zap"
)

// Usage example on the command line:
// > PORT=8080 DBUSER=dirk DBPWD=bullo92 GIN_MODE=release GIN_LOGGING=OFF go run main.go
// > DBDRIVER=sqlite DBPATH=address-book.db BACKUP_DIR=data go run main.go
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "could not load configuration:", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "could not create logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	sqlDB, err := store.Open(cfg.DBDriver, cfg.DSN())
	if err != nil {
		logger.Fatal("could not open database", zap.Error(err))
	}
	if err := sqlDB.Ping(); err != nil {
		logger.Fatal("could not reach database", zap.String("driver", cfg.DBDriver), zap.Error(err))
	}
	// MySQL schemas are created by the migration tool; SQLite files are set up on the fly.
	if cfg.DBDriver == store.DriverSQLite {
		if err := store.Migrate(context.Background(), sqlDB, cfg.DBDriver); err != nil {
			logger.Fatal("could not create schema", zap.Error(err))
		}
	}
	contacts, err := store.New(sqlDB, cfg.DBDriver)
	if err != nil {
		logger.Fatal("could not prepare statements", zap.Error(err))
	}
	defer contacts.Close()
	contacts.SetPasswordCost(cfg.PasswordCost)

	codec := backup.NewCodec(cfg.BackupDir, cfg.BackupFile, logger)
	router := service.New(contacts, codec, logger, cfg.DeleteAllScope).SetupHttpRouter(cfg.RequestLogging())
	logger.Info("starting address book service",
		zap.String("port", cfg.Port),
		zap.String("driver", cfg.DBDriver),
		zap.String("backup_dir", cfg.BackupDir),
		zap.String("delete_all_scope", string(cfg.DeleteAllScope)))
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
