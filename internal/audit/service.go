package audit

import (
	"encoding/json"
	"fmt"

	"comexiger-backend/internal/models"

	"gorm.io/gorm"
)

// Actor identifies who performed an administrative change.
type Actor struct {
	UserID   uint
	UserName string
}

type LogOptions struct {
	Actor       Actor
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

// WriteLog stores one audit entry. Pass the transaction of the change being
// audited so both commit together.
func WriteLog(db *gorm.DB, opts LogOptions) error {
	beforeStr := "null"
	afterStr := "null"

	if opts.Before != nil {
		if b, err := json.Marshal(opts.Before); err == nil {
			beforeStr = string(b)
		}
	}
	if opts.After != nil {
		if b, err := json.Marshal(opts.After); err == nil {
			afterStr = string(b)
		}
	}

	log := models.AuditLog{
		UserID:      opts.Actor.UserID,
		UserName:    opts.Actor.UserName,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  beforeStr,
		AfterData:   afterStr,
	}

	if err := db.Create(&log).Error; err != nil {
		return fmt.Errorf("no se pudo guardar el registro de auditoría: %w", err)
	}
	return nil
}
