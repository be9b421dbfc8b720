// Package store wraps every durable read/write the control loops and
// their consumers need behind one GORM-backed type, so workers take one
// dependency instead of one per table.
package store

import (
	"time"

	"gorm.io/gorm"
)

// Store is the shared data-access layer. All seven control-loop components
// take a *Store instead of touching *gorm.DB directly.
type Store struct {
	DB *gorm.DB
}

// New wraps an already-connected *gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{DB: db}
}

// Now is the single indirection point for "current time" across the store
// layer, so tests can inject a fixed clock by reassigning this package
// variable in-process. Production code always uses time.Now.
var Now = time.Now
