package models

import "time"

// Shift is one work session of a mesa. At most one row per mesa has EndedAt nil.
type Shift struct {
	ID            uint      `gorm:"primaryKey"`
	TableNumber   int       `gorm:"index;not null"`
	StartedAt     time.Time `gorm:"index;not null"`
	EndedAt       *time.Time
	HourlyRate    int `gorm:"not null"`
	BaseUnits     int `gorm:"not null;default:0"`
	ProducedUnits int `gorm:"not null;default:0"`

	// Derived by perf.Compute, nil until both ends of the shift are known.
	HoursWorked   *float64
	ExpectedUnits *float64
	SurplusUnits  *float64
	SurplusHours  *float64

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s *Shift) IsOpen() bool {
	return s.EndedAt == nil
}
