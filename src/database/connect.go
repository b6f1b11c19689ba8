package database

import (
	"fmt"

	"papertrader/src/database/migrations"
	"papertrader/src/model"

	"gorm.io/gorm"
)

// Models lists every table owned by the ledger.
func Models() []interface{} {
	return []interface{}{
		&model.Account{},
		&model.Holding{},
		&model.HistoryEntry{},
		&model.WatchlistEntry{},
		&model.Exception{},
		&migrations.DataMigration{},
	}
}

// Migrate runs AutoMigrate for all models followed by the data migrations.
func Migrate(db *gorm.DB) error {
	if err := migrations.PrepareLegacyAccountColumns(db); err != nil {
		return fmt.Errorf("failed to prepare legacy account columns: %w", err)
	}

	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to run schema migrations: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		return fmt.Errorf("failed to run data migrations: %w", err)
	}

	return nil
}

// Init opens the database selected by LEDGER_BACKEND and returns it.
func Init() (*gorm.DB, string, error) {
	config := GetConfig()

	switch config.LedgerBackend {
	case BackendPostgres:
		if err := InitMainDB(); err != nil {
			return nil, "", err
		}
		return MainDB, BackendPostgres, nil
	case BackendLocal, "":
		if err := InitLocalDB(); err != nil {
			return nil, "", err
		}
		return LocalDB, BackendLocal, nil
	default:
		return nil, "", fmt.Errorf("unknown LEDGER_BACKEND %q", config.LedgerBackend)
	}
}
