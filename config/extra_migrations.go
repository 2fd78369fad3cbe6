package config

import "gorm.io/gorm"

// naturalKeyIndexes enforce one row per natural key. They back the import
// engine's duplicate handling: a racing insert on an existing key fails and the
// row is reported as Failed instead of silently creating a second record.
var naturalKeyIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_branches_name_key ON branches (LOWER(name))`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_dealers_dealercode_key ON dealers (LOWER(dealercode))`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_equipment_serialnumber_key ON equipment (LOWER(serialnumber))`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_customers_customercodeid_key ON customers (LOWER(customercodeid))`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_amc_contracts_key ON amc_contracts ((LOWER(salesdoc) || '|' || LOWER(serialnumber)))`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_pending_complaints_key ON pending_complaints (LOWER(notification_complaintid))`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_pms_serial_type ON pms (serialnumber, pm_type)`,
}

// CreateNaturalKeyIndexes creates the expression indexes AutoMigrate cannot express.
func CreateNaturalKeyIndexes(db *gorm.DB) error {
	for _, stmt := range naturalKeyIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
