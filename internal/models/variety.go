package models

import "time"

type Variety struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:120;not null"`
	// NameKey is the lower-cased name, unique so two spellings of one variety cannot coexist.
	NameKey   string `gorm:"size:120;uniqueIndex;not null"`
	CreatedAt time.Time
}
