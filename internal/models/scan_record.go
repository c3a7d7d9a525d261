package models

import "time"

type ScanScope string

const (
	ScopeStockIn    ScanScope = "STOCK_IN"
	ScopeStockOut   ScanScope = "STOCK_OUT"
	ScopeProduction ScanScope = "PRODUCTION"
)

// ScanRecord marks a code as consumed within a scope. Rows are never updated or removed.
type ScanRecord struct {
	ID        uint      `gorm:"primaryKey"`
	Scope     ScanScope `gorm:"size:20;not null;uniqueIndex:idx_scan_scope_code,priority:1"`
	Code      string    `gorm:"size:255;not null;uniqueIndex:idx_scan_scope_code,priority:2"`
	ClaimedAt time.Time `gorm:"not null"`
}
