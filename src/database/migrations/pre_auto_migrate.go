package migrations

import (
	"fmt"

	"papertrader/src/model"

	"gorm.io/gorm"
)

// legacyAccountColumns maps column names used by the first schema revision
// (when Zerodha was the only brokerage) to their current names.
var legacyAccountColumns = map[string]string{
	"zerodha_synced_once":  "brokerage_synced_once",
	"zerodha_access_token": "brokerage_token",
}

// PrepareLegacyAccountColumns renames legacy account columns before
// AutoMigrate runs, so AutoMigrate does not add empty duplicates and the
// stored values survive.
func PrepareLegacyAccountColumns(db *gorm.DB) error {
	m := db.Migrator()
	if !m.HasTable(&model.Account{}) {
		return nil
	}

	for legacy, current := range legacyAccountColumns {
		if !m.HasColumn(&model.Account{}, legacy) || m.HasColumn(&model.Account{}, current) {
			continue
		}
		if err := m.RenameColumn(&model.Account{}, legacy, current); err != nil {
			return fmt.Errorf("rename accounts.%s to %s: %w", legacy, current, err)
		}
	}

	return nil
}
