package stock

import (
	"context"
	"fmt"
	"strings"

	"comexiger-backend/internal/apperr"
	"comexiger-backend/internal/audit"
	"comexiger-backend/internal/database"
	"comexiger-backend/internal/metrics"
	"comexiger-backend/internal/models"

	"gorm.io/gorm"
)

// ManualLotInput describes an administrative lot creation.
type ManualLotInput struct {
	Table        int
	Variety      string
	Size         string
	Quantity     int
	OperatorMesa *int
	Actor        audit.Actor
}

// CreateLot opens a lot without a scan. The mesa comes from ResolveTable.
func (l *Ledger) CreateLot(ctx context.Context, in ManualLotInput) (*models.StockLot, error) {
	in.Variety = strings.TrimSpace(in.Variety)
	in.Size = strings.TrimSpace(in.Size)
	if in.Variety == "" || in.Size == "" {
		return nil, apperr.New(apperr.KindInvalidInput, "Variedad y medida son obligatorias")
	}
	if in.Quantity < 0 {
		return nil, apperr.New(apperr.KindInvalidInput, "El stock debe ser un número entero no negativo")
	}

	table, err := ResolveTable(ctx, l.db, TableRequest{
		Explicit:     in.Table,
		Variety:      in.Variety,
		Size:         in.Size,
		OperatorMesa: in.OperatorMesa,
	})
	if err != nil {
		return nil, l.fail("crear", err)
	}

	key := lotKey(table, in.Variety, in.Size)
	unlock := l.locks.Lock(key)
	defer unlock()

	now := l.now().UTC()
	lot := models.StockLot{
		TableNumber: table,
		Variety:     in.Variety,
		Size:        in.Size,
		Quantity:    in.Quantity,
		OpenedAt:    now,
	}
	if lot.Quantity == 0 {
		lot.ClosedAt = &now
	}

	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := database.AdvisoryLock(tx, key); err != nil {
			return err
		}
		if err := tx.Create(&lot).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			Actor:       in.Actor,
			EntityType:  "stock_lot",
			EntityID:    lot.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Mesa %d - %s %s: %d", lot.TableNumber, lot.Variety, lot.Size, lot.Quantity),
			After:       ToResponse(&lot, l.loc),
		})
	})
	if err != nil {
		return nil, l.fail("crear", err)
	}

	metrics.StockMovements.WithLabelValues("manual").Inc()
	l.publish(ctx, &lot)
	return &lot, nil
}

// SetQuantity overwrites the count of a lot. Reaching zero closes the lot,
// a positive count reopens it.
func (l *Ledger) SetQuantity(ctx context.Context, id uint, quantity int, actor audit.Actor) (*models.StockLot, error) {
	if quantity < 0 {
		return nil, apperr.New(apperr.KindInvalidInput, "El stock debe ser un número entero no negativo")
	}

	existing, err := l.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	key := lotKey(existing.TableNumber, existing.Variety, existing.Size)
	unlock := l.locks.Lock(key)
	defer unlock()

	var lot models.StockLot
	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := database.AdvisoryLock(tx, key); err != nil {
			return err
		}
		if err := database.ForUpdate(tx).First(&lot, id).Error; err != nil {
			return err
		}
		before := ToResponse(&lot, l.loc)

		lot.Quantity = quantity
		switch {
		case quantity > 0:
			lot.ClosedAt = nil
		case lot.ClosedAt == nil:
			closed := l.now().UTC()
			lot.ClosedAt = &closed
		}
		if err := tx.Save(&lot).Error; err != nil {
			return err
		}

		return audit.WriteLog(tx, audit.LogOptions{
			Actor:       actor,
			EntityType:  "stock_lot",
			EntityID:    lot.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Stock %d -> %d", before.Quantity, lot.Quantity),
			Before:      before,
			After:       ToResponse(&lot, l.loc),
		})
	})
	if err != nil {
		return nil, l.fail("editar", err)
	}

	metrics.StockMovements.WithLabelValues("manual").Inc()
	l.publish(ctx, &lot)
	return &lot, nil
}

// DeleteLot removes a lot under the same key lock as the scans.
func (l *Ledger) DeleteLot(ctx context.Context, id uint, actor audit.Actor) error {
	existing, err := l.Get(ctx, id)
	if err != nil {
		return err
	}

	key := lotKey(existing.TableNumber, existing.Variety, existing.Size)
	unlock := l.locks.Lock(key)
	defer unlock()

	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := database.AdvisoryLock(tx, key); err != nil {
			return err
		}
		var lot models.StockLot
		if err := database.ForUpdate(tx).First(&lot, id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&lot).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			Actor:       actor,
			EntityType:  "stock_lot",
			EntityID:    lot.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Mesa %d - %s %s eliminado", lot.TableNumber, lot.Variety, lot.Size),
			Before:      ToResponse(&lot, l.loc),
		})
	})
	if err != nil {
		return l.fail("eliminar", err)
	}
	return nil
}
