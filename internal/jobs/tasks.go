package jobs

import (
	"context"
	"errors"
	"time"

	"comexiger-backend/internal/models"
	"comexiger-backend/internal/notify"
	"comexiger-backend/internal/shift"
	"comexiger-backend/internal/stock"

	"github.com/rs/zerolog"
)

const (
	JobStatsBroadcast = "stats:broadcast"
	JobStaleShifts    = "shifts:stale"
)

type StockStats interface {
	Stats(ctx context.Context) (stock.Stats, error)
}

type ShiftStats interface {
	Stats(ctx context.Context) (shift.Stats, error)
}

type StaleShifts interface {
	StaleOpen(ctx context.Context, maxAge time.Duration) ([]models.Shift, error)
}

// StatsBroadcast pushes the current counters of both ledgers to their
// channels so dashboards refresh without polling.
func StatsBroadcast(st StockStats, sh ShiftStats, n notify.Notifier) func(context.Context) error {
	return func(ctx context.Context) error {
		var errs []error

		s, err := st.Stats(ctx)
		if err == nil {
			err = n.Publish(ctx, notify.ChannelStock, notify.Event{Type: notify.EventStats, Data: s})
		}
		errs = append(errs, err)

		p, err := sh.Stats(ctx)
		if err == nil {
			err = n.Publish(ctx, notify.ChannelPerformance, notify.Event{Type: notify.EventStats, Data: p})
		}
		errs = append(errs, err)

		return errors.Join(errs...)
	}
}

// StaleShiftWarning logs every shift left open longer than maxAge.
func StaleShiftWarning(src StaleShifts, maxAge time.Duration, l zerolog.Logger) func(context.Context) error {
	return func(ctx context.Context) error {
		open, err := src.StaleOpen(ctx, maxAge)
		if err != nil {
			return err
		}
		for _, s := range open {
			l.Warn().
				Uint("shift_id", s.ID).
				Int("mesa", s.TableNumber).
				Time("started_at", s.StartedAt).
				Msg("jornada abierta demasiado tiempo, ¿olvidaron finalizarla?")
		}
		return nil
	}
}

// Sources bundles what the standard jobs read from.
type Sources struct {
	Stock    StockStats
	Shifts   ShiftSource
	Notifier notify.Notifier
}

type ShiftSource interface {
	ShiftStats
	StaleShifts
}

// RegisterDefaults adds the stats broadcast and the stale shift warning.
func RegisterDefaults(s *Scheduler, src Sources, statsSchedule, staleSchedule string, staleAfter time.Duration) error {
	if err := s.Register(Job{
		Name:     JobStatsBroadcast,
		Schedule: statsSchedule,
		Run:      StatsBroadcast(src.Stock, src.Shifts, src.Notifier),
	}); err != nil {
		return err
	}
	return s.Register(Job{
		Name:     JobStaleShifts,
		Schedule: staleSchedule,
		Run:      StaleShiftWarning(src.Shifts, staleAfter, s.log),
	})
}
