// Package shift tracks work shifts per mesa and the production counted
// against them.
package shift

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"comexiger-backend/internal/apperr"
	"comexiger-backend/internal/database"
	"comexiger-backend/internal/locks"
	"comexiger-backend/internal/metrics"
	"comexiger-backend/internal/models"
	"comexiger-backend/internal/notify"
	"comexiger-backend/internal/perf"
	"comexiger-backend/internal/scan"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const DefaultHourlyRate = 20

type Options struct {
	DB       *gorm.DB
	Scans    *scan.Ledger
	Locks    *locks.Keyed
	Notifier notify.Notifier
	Log      zerolog.Logger
	Location *time.Location
	Now      func() time.Time

	// DefaultRate is used when Start is called without a rate.
	DefaultRate int
}

type Ledger struct {
	db          *gorm.DB
	scans       *scan.Ledger
	locks       *locks.Keyed
	notifier    notify.Notifier
	log         zerolog.Logger
	loc         *time.Location
	now         func() time.Time
	defaultRate int
}

func NewLedger(opts Options) *Ledger {
	l := &Ledger{
		db:          opts.DB,
		scans:       opts.Scans,
		locks:       opts.Locks,
		notifier:    opts.Notifier,
		log:         opts.Log.With().Str("component", "shift").Logger(),
		loc:         opts.Location,
		now:         opts.Now,
		defaultRate: opts.DefaultRate,
	}
	if l.loc == nil {
		l.loc = time.UTC
	}
	if l.now == nil {
		l.now = time.Now
	}
	if l.scans == nil {
		l.scans = scan.NewLedger(l.now)
	}
	if l.locks == nil {
		l.locks = locks.NewKeyed()
	}
	if l.notifier == nil {
		l.notifier = notify.NewLog(opts.Log)
	}
	if l.defaultRate <= 0 {
		l.defaultRate = DefaultHourlyRate
	}
	return l
}

func (l *Ledger) Location() *time.Location { return l.loc }

func tableKey(table int) string {
	return fmt.Sprintf("shift|%d", table)
}

// Start opens a shift for table. A nil rate or base falls back to the
// configured rate and zero.
func (l *Ledger) Start(ctx context.Context, table int, rate, base *int) (*models.Shift, error) {
	if table <= 0 {
		return nil, apperr.New(apperr.KindInvalidInput, "La mesa es requerida")
	}
	hourly := l.defaultRate
	if rate != nil {
		hourly = *rate
	}
	baseUnits := 0
	if base != nil {
		baseUnits = *base
	}
	if hourly < 0 || baseUnits < 0 {
		return nil, apperr.New(apperr.KindInvalidInput, "Rendimiento y ramos base no pueden ser negativos")
	}

	key := tableKey(table)
	unlock := l.locks.Lock(key)
	defer unlock()

	var sh models.Shift
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := database.AdvisoryLock(tx, key); err != nil {
			return err
		}
		existing, err := findOpen(tx, table)
		if err != nil {
			return err
		}
		if existing != nil {
			return l.alreadyOpen(existing)
		}

		now := l.now().UTC()
		sh = models.Shift{
			TableNumber: table,
			StartedAt:   now,
			CreatedAt:   now,
			HourlyRate:  hourly,
			BaseUnits:   baseUnits,
		}
		return tx.Create(&sh).Error
	})
	if err != nil {
		if scan.IsUniqueViolation(err) {
			// Another process opened the shift between our read and insert.
			existing, ferr := findOpen(l.db.WithContext(ctx), table)
			if ferr == nil && existing != nil {
				return nil, l.alreadyOpen(existing)
			}
			return nil, apperr.New(apperr.KindShiftAlreadyOpen, "Ya existe una jornada activa para esta mesa")
		}
		return nil, l.fail("iniciar", err)
	}

	metrics.ShiftEvents.WithLabelValues("start").Inc()
	l.log.Info().Int("mesa", table).Uint("shift_id", sh.ID).Msg("jornada iniciada")
	l.publish(ctx, &sh)
	return &sh, nil
}

// End closes the open shift of table and stores its final figures.
func (l *Ledger) End(ctx context.Context, table int) (*models.Shift, error) {
	if table <= 0 {
		return nil, apperr.New(apperr.KindInvalidInput, "La mesa es requerida")
	}

	key := tableKey(table)
	unlock := l.locks.Lock(key)
	defer unlock()

	var sh *models.Shift
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := database.AdvisoryLock(tx, key); err != nil {
			return err
		}
		open, err := findOpen(tx, table)
		if err != nil {
			return err
		}
		if open == nil {
			return apperr.New(apperr.KindNoOpenShift, "No hay jornada activa para esta mesa")
		}

		ended := l.now().UTC()
		open.EndedAt = &ended
		l.recompute(open, ended)
		sh = open
		return tx.Save(open).Error
	})
	if err != nil {
		return nil, l.fail("finalizar", err)
	}

	metrics.ShiftEvents.WithLabelValues("end").Inc()
	l.log.Info().Int("mesa", table).Uint("shift_id", sh.ID).Msg("jornada finalizada")
	l.publish(ctx, sh)
	return sh, nil
}

// RecordProduction counts one scanned bundle against the open shift of table.
// Without an open shift the claim is rolled back and the code stays usable.
func (l *Ledger) RecordProduction(ctx context.Context, code string, table int) (*models.Shift, error) {
	code = strings.TrimSpace(code)
	if code == "" || table <= 0 {
		return nil, apperr.New(apperr.KindInvalidInput, "Datos incompletos")
	}

	key := tableKey(table)
	unlock := l.locks.Lock(key)
	defer unlock()

	var sh *models.Shift
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := l.scans.Claim(ctx, tx, code, models.ScopeProduction); err != nil {
			return err
		}
		if err := database.AdvisoryLock(tx, key); err != nil {
			return err
		}
		open, err := findOpen(tx, table)
		if err != nil {
			return err
		}
		if open == nil {
			return apperr.New(apperr.KindNoOpenShift, "No hay jornada iniciada para esta mesa hoy. Primero inicia jornada.")
		}

		open.ProducedUnits++
		l.recompute(open, l.now().UTC())
		sh = open
		return tx.Save(open).Error
	})
	if err != nil {
		return nil, l.fail("produccion", err)
	}

	metrics.ShiftEvents.WithLabelValues("production").Inc()
	l.publish(ctx, sh)
	return sh, nil
}

// findOpen returns the open shift of table, or nil.
func findOpen(tx *gorm.DB, table int) (*models.Shift, error) {
	var sh models.Shift
	res := database.ForUpdate(tx).
		Where("table_number = ? AND ended_at IS NULL", table).
		Order("started_at DESC, id DESC").
		Limit(1).
		Find(&sh)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &sh, nil
}

// recompute refreshes the derived figures. Open shifts use now as their end.
func (l *Ledger) recompute(sh *models.Shift, now time.Time) {
	start := sh.StartedAt.In(l.loc)
	end := now.In(l.loc)
	if sh.EndedAt != nil {
		end = sh.EndedAt.In(l.loc)
	}
	d := perf.Compute(perf.Input{
		StartedAt:     &start,
		EndedAt:       &end,
		HourlyRate:    sh.HourlyRate,
		ProducedUnits: sh.ProducedUnits,
	})
	sh.HoursWorked, sh.ExpectedUnits, sh.SurplusUnits, sh.SurplusHours = d.Floats()
}

func (l *Ledger) alreadyOpen(existing *models.Shift) *apperr.Error {
	e := apperr.New(apperr.KindShiftAlreadyOpen, "Ya existe una jornada activa para esta mesa")
	e.Detail = ToResponse(existing, l.loc)
	return e
}

func (l *Ledger) publish(ctx context.Context, sh *models.Shift) {
	ev := notify.Event{Type: notify.EventPerformanceChanged, Data: ToResponse(sh, l.loc)}
	if err := l.notifier.Publish(ctx, notify.ChannelPerformance, ev); err != nil {
		l.log.Warn().Err(err).Uint("shift_id", sh.ID).Msg("no se pudo notificar el rendimiento")
	}
}

func (l *Ledger) fail(op string, err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Wrap(apperr.KindNotFound, "Rendimiento no encontrado", err)
	}
	if scan.IsUniqueViolation(err) {
		return apperr.Wrap(apperr.KindStorageConflict, "Conflicto al guardar la jornada", err)
	}
	l.log.Error().Err(err).Str("op", op).Msg("error de almacenamiento")
	return apperr.Internal("No se pudo actualizar el rendimiento", err)
}
