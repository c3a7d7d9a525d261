package models

import "time"

// StockLot counts units of one (mesa, variety, size) opened on a given day.
type StockLot struct {
	ID          uint      `gorm:"primaryKey"`
	TableNumber int       `gorm:"index:idx_stock_lot_key,priority:1;not null"`
	Variety     string    `gorm:"size:100;index:idx_stock_lot_key,priority:2;not null"`
	Size        string    `gorm:"size:50;index:idx_stock_lot_key,priority:3;not null"`
	Quantity    int       `gorm:"not null;default:0"`
	OpenedAt    time.Time `gorm:"index;not null"`
	ClosedAt    *time.Time
	UpdatedAt   time.Time
}

func (l *StockLot) IsOpen() bool {
	return l.ClosedAt == nil
}
