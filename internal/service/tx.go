package service

import "gorm.io/gorm"

// runTx executes fn inside a database transaction. A nil db invokes fn with a
// nil tx, which lets unit tests drive services through stub repositories
// without a live database.
func runTx(db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.Transaction(fn)
}
