package shift

import (
	"context"
	"fmt"
	"sort"
	"time"

	"comexiger-backend/internal/apperr"
	"comexiger-backend/internal/audit"
	"comexiger-backend/internal/database"
	"comexiger-backend/internal/metrics"
	"comexiger-backend/internal/models"
	"comexiger-backend/internal/scan"

	"gorm.io/gorm"
)

// Patch holds the fields an admin may correct. The hourly rate is fixed at start.
type Patch struct {
	Table         *int
	ProducedUnits *int
	StartedAt     *time.Time
	EndedAt       *time.Time
}

func (p Patch) validate() error {
	if p.Table != nil && *p.Table <= 0 {
		return apperr.New(apperr.KindInvalidInput, "Número de mesa inválido")
	}
	if p.ProducedUnits != nil && *p.ProducedUnits < 0 {
		return apperr.New(apperr.KindInvalidInput, "Bonches inválido")
	}
	return nil
}

// Update applies an admin correction and recomputes the derived figures.
func (l *Ledger) Update(ctx context.Context, id uint, p Patch, actor audit.Actor) (*models.Shift, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	existing, err := l.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	keys := []string{tableKey(existing.TableNumber)}
	if p.Table != nil && *p.Table != existing.TableNumber {
		keys = append(keys, tableKey(*p.Table))
	}
	sort.Strings(keys)
	for _, k := range keys {
		unlock := l.locks.Lock(k)
		defer unlock()
	}

	var sh models.Shift
	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, k := range keys {
			if err := database.AdvisoryLock(tx, k); err != nil {
				return err
			}
		}
		if err := database.ForUpdate(tx).First(&sh, id).Error; err != nil {
			return err
		}
		before := ToResponse(&sh, l.loc)

		if p.Table != nil {
			sh.TableNumber = *p.Table
		}
		if p.ProducedUnits != nil {
			sh.ProducedUnits = *p.ProducedUnits
		}
		if p.StartedAt != nil {
			sh.StartedAt = p.StartedAt.UTC()
		}
		if p.EndedAt != nil {
			ended := p.EndedAt.UTC()
			sh.EndedAt = &ended
		}
		if sh.EndedAt != nil && sh.EndedAt.Before(sh.StartedAt) {
			return apperr.New(apperr.KindInvalidInput, "La hora final no puede ser menor que la hora de inicio")
		}

		l.recompute(&sh, l.now().UTC())
		if err := tx.Save(&sh).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			Actor:       actor,
			EntityType:  "shift",
			EntityID:    sh.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Jornada mesa %d corregida", sh.TableNumber),
			Before:      before,
			After:       ToResponse(&sh, l.loc),
		})
	})
	if err != nil {
		if scan.IsUniqueViolation(err) {
			return nil, apperr.New(apperr.KindShiftAlreadyOpen, "Ya existe una jornada activa para esta mesa")
		}
		return nil, l.fail("editar", err)
	}

	metrics.ShiftEvents.WithLabelValues("update").Inc()
	l.publish(ctx, &sh)
	return &sh, nil
}

// Delete removes a shift while holding its mesa lock.
func (l *Ledger) Delete(ctx context.Context, id uint, actor audit.Actor) error {
	existing, err := l.Get(ctx, id)
	if err != nil {
		return err
	}

	key := tableKey(existing.TableNumber)
	unlock := l.locks.Lock(key)
	defer unlock()

	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := database.AdvisoryLock(tx, key); err != nil {
			return err
		}
		var sh models.Shift
		if err := database.ForUpdate(tx).First(&sh, id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&sh).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			Actor:       actor,
			EntityType:  "shift",
			EntityID:    sh.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Jornada mesa %d eliminada", sh.TableNumber),
			Before:      ToResponse(&sh, l.loc),
		})
	})
	if err != nil {
		return l.fail("eliminar", err)
	}
	metrics.ShiftEvents.WithLabelValues("delete").Inc()
	return nil
}
