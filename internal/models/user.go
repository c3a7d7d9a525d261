package models

import "time"

type UserRole string

const (
	RoleAdmin      UserRole = "admin"
	RoleSupervisor UserRole = "supervisor"
	RoleOperator   UserRole = "operador"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleSupervisor, RoleOperator:
		return true
	}
	return false
}

// HasGlobalMesaAccess reports whether the role may act on any mesa.
func (r UserRole) HasGlobalMesaAccess() bool {
	return r == RoleAdmin || r == RoleSupervisor
}

type User struct {
	ID           uint     `gorm:"primaryKey"`
	Username     string   `gorm:"size:150;uniqueIndex;not null"` // always lower-case
	FirstName    string   `gorm:"size:100"`
	LastName     string   `gorm:"size:100"`
	PasswordHash string   `gorm:"size:255;not null"`
	Role         UserRole `gorm:"size:20;not null"`
	Mesa         *int     // assigned work table, nil for staff without one
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u *User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Username
	}
}
