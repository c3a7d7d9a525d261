// Package stock keeps per-mesa lot counters driven by inbound and outbound scans.
package stock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"comexiger-backend/internal/apperr"
	"comexiger-backend/internal/clock"
	"comexiger-backend/internal/database"
	"comexiger-backend/internal/locks"
	"comexiger-backend/internal/metrics"
	"comexiger-backend/internal/models"
	"comexiger-backend/internal/notify"
	"comexiger-backend/internal/scan"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type Options struct {
	DB       *gorm.DB
	Scans    *scan.Ledger
	Locks    *locks.Keyed
	Notifier notify.Notifier
	Log      zerolog.Logger
	Location *time.Location
	Now      func() time.Time

	// BurnOutboundOnEmpty claims outbound codes before looking for stock, so
	// a scan rejected for lack of stock still consumes its code.
	BurnOutboundOnEmpty bool
}

type Ledger struct {
	db       *gorm.DB
	scans    *scan.Ledger
	locks    *locks.Keyed
	notifier notify.Notifier
	log      zerolog.Logger
	loc      *time.Location
	now      func() time.Time
	burn     bool
}

func NewLedger(opts Options) *Ledger {
	l := &Ledger{
		db:       opts.DB,
		scans:    opts.Scans,
		locks:    opts.Locks,
		notifier: opts.Notifier,
		log:      opts.Log.With().Str("component", "stock").Logger(),
		loc:      opts.Location,
		now:      opts.Now,
		burn:     opts.BurnOutboundOnEmpty,
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
	return l
}

func (l *Ledger) Location() *time.Location { return l.loc }

// ScanInput is one scanned bundle.
type ScanInput struct {
	Code    string
	Table   int
	Variety string
	Size    string
}

func (in ScanInput) normalize() (ScanInput, error) {
	in.Code = strings.TrimSpace(in.Code)
	in.Variety = strings.TrimSpace(in.Variety)
	in.Size = strings.TrimSpace(in.Size)
	if in.Code == "" || in.Variety == "" || in.Size == "" || in.Table <= 0 {
		return in, apperr.New(apperr.KindInvalidInput, "Datos incompletos: qr_id, numero_mesa, variedad y medida son obligatorios")
	}
	return in, nil
}

func lotKey(table int, variety, size string) string {
	return fmt.Sprintf("stock|%d|%s|%s", table, variety, size)
}

// RegisterInbound adds one unit to today's lot for the scanned key, creating
// the lot when none exists. created reports whether a new lot was opened.
// An open lot wins; a lot closed earlier today is reopened only when the
// key has no open lot today.
func (l *Ledger) RegisterInbound(ctx context.Context, in ScanInput) (lot *models.StockLot, created bool, err error) {
	in, err = in.normalize()
	if err != nil {
		return nil, false, err
	}

	key := lotKey(in.Table, in.Variety, in.Size)
	unlock := l.locks.Lock(key)
	defer unlock()

	now := l.now().UTC()
	from, to := clock.DayBounds(now, l.loc)

	var current models.StockLot
	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := l.scans.Claim(ctx, tx, in.Code, models.ScopeStockIn); err != nil {
			return err
		}
		if err := database.AdvisoryLock(tx, key); err != nil {
			return err
		}

		res := database.ForUpdate(tx).
			Where("table_number = ? AND variety = ? AND size = ?", in.Table, in.Variety, in.Size).
			Where("opened_at >= ? AND opened_at < ?", from, to).
			Order("closed_at IS NOT NULL, opened_at DESC, id DESC").
			Limit(1).
			Find(&current)
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			current = models.StockLot{
				TableNumber: in.Table,
				Variety:     in.Variety,
				Size:        in.Size,
				Quantity:    1,
				OpenedAt:    now,
			}
			created = true
			return tx.Create(&current).Error
		}

		current.Quantity++
		current.ClosedAt = nil
		return tx.Save(&current).Error
	})
	if err != nil {
		return nil, false, l.fail("ingreso", err)
	}

	metrics.StockMovements.WithLabelValues("in").Inc()
	l.publish(ctx, &current)
	return &current, created, nil
}

// RegisterOutbound removes one unit from the oldest open lot with stock.
func (l *Ledger) RegisterOutbound(ctx context.Context, in ScanInput) (*models.StockLot, error) {
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}

	if l.burn {
		if err := l.scans.Claim(ctx, l.db, in.Code, models.ScopeStockOut); err != nil {
			return nil, err
		}
	}

	key := lotKey(in.Table, in.Variety, in.Size)
	unlock := l.locks.Lock(key)
	defer unlock()

	var lot models.StockLot
	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if !l.burn {
			if err := l.scans.Claim(ctx, tx, in.Code, models.ScopeStockOut); err != nil {
				return err
			}
		}
		if err := database.AdvisoryLock(tx, key); err != nil {
			return err
		}

		res := database.ForUpdate(tx).
			Where("table_number = ? AND variety = ? AND size = ?", in.Table, in.Variety, in.Size).
			Where("closed_at IS NULL AND quantity > 0").
			Order("opened_at ASC, id ASC").
			Limit(1).
			Find(&lot)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.New(apperr.KindNoStock, "No hay stock disponible para esa variedad y medida")
		}

		lot.Quantity--
		if lot.Quantity == 0 {
			closed := l.now().UTC()
			lot.ClosedAt = &closed
		}
		return tx.Save(&lot).Error
	})
	if err != nil {
		return nil, l.fail("salida", err)
	}

	metrics.StockMovements.WithLabelValues("out").Inc()
	l.publish(ctx, &lot)
	return &lot, nil
}

func (l *Ledger) publish(ctx context.Context, lot *models.StockLot) {
	ev := notify.Event{Type: notify.EventStockChanged, Data: ToResponse(lot, l.loc)}
	if err := l.notifier.Publish(ctx, notify.ChannelStock, ev); err != nil {
		l.log.Warn().Err(err).Uint("lot_id", lot.ID).Msg("no se pudo notificar el cambio de disponibilidad")
	}
}

// fail keeps domain errors as they are and wraps everything else as internal.
func (l *Ledger) fail(op string, err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Wrap(apperr.KindNotFound, "Registro no encontrado", err)
	}
	if scan.IsUniqueViolation(err) {
		return apperr.Wrap(apperr.KindStorageConflict, "Conflicto al guardar el registro", err)
	}
	l.log.Error().Err(err).Str("op", op).Msg("error de almacenamiento")
	return apperr.Internal("No se pudo actualizar la disponibilidad", err)
}
