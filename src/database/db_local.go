package database

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// LocalDB is the embedded SQLite connection backing the local ledger store.
var LocalDB *gorm.DB

// InitLocalDB opens (or creates) the SQLite file at LOCAL_DB_PATH and migrates it.
func InitLocalDB() error {
	config := GetConfig()
	db, err := OpenLocal(config.LocalDBPath, logger.LogLevel(config.GormLogLevel))
	if err != nil {
		return err
	}

	LocalDB = db

	logrus.WithField("path", config.LocalDBPath).Info("[database] LocalDB opened")

	if err := Migrate(LocalDB); err != nil {
		return err
	}

	logrus.Info("[database] LocalDB migrations completed")

	return nil
}

// OpenLocal opens a SQLite database without migrating it. Tests pass
// "file:<name>?mode=memory&cache=shared" for an in-memory instance.
func OpenLocal(dsn string, level logger.LogLevel) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %q: %w", dsn, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB from gorm: %w", err)
	}
	// SQLite allows a single writer; the local store serialises per account
	// on top of this.
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}
