package models

import "time"

// Mesa is a physical work table.
type Mesa struct {
	ID        uint   `gorm:"primaryKey"`
	Number    int    `gorm:"uniqueIndex;not null"`
	Name      string `gorm:"size:100"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
