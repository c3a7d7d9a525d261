package shift

import (
	"context"
	"errors"
	"time"

	"comexiger-backend/internal/apperr"
	"comexiger-backend/internal/clock"
	"comexiger-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	DefaultHistoryLimit = 30
	MaxHistoryLimit     = 365
)

type ListFilter struct {
	Date   string
	From   string
	To     string
	Order  string // mesa | fecha
	Recent bool
}

var orderColumns = map[string]string{
	"mesa":  "table_number",
	"fecha": "started_at",
}

func (l *Ledger) Get(ctx context.Context, id uint) (*models.Shift, error) {
	var sh models.Shift
	if err := l.db.WithContext(ctx).First(&sh, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "Rendimiento no encontrado")
		}
		return nil, apperr.Internal("No se pudo leer el rendimiento", err)
	}
	return &sh, nil
}

func (l *Ledger) List(ctx context.Context, f ListFilter) ([]models.Shift, error) {
	q := l.db.WithContext(ctx).Model(&models.Shift{})

	if f.Date != "" {
		from, to, err := clock.ParseDayRange(f.Date, f.Date, l.loc)
		if err != nil {
			return nil, err
		}
		q = q.Where("started_at >= ? AND started_at < ?", from, to)
	}
	if f.From != "" || f.To != "" {
		fromStr, toStr := f.From, f.To
		if fromStr == "" {
			fromStr = "1970-01-01"
		}
		if toStr == "" {
			toStr = "9999-12-30"
		}
		from, to, err := clock.ParseDayRange(fromStr, toStr, l.loc)
		if err != nil {
			return nil, err
		}
		q = q.Where("started_at >= ? AND started_at < ?", from, to)
	}

	if col, ok := orderColumns[f.Order]; ok {
		if f.Recent {
			col += " DESC"
		}
		q = q.Order(col).Order("id")
	} else {
		q = q.Order("started_at DESC, id DESC")
	}

	var shifts []models.Shift
	if err := q.Find(&shifts).Error; err != nil {
		return nil, apperr.Internal("No se pudo listar el rendimiento", err)
	}
	return shifts, nil
}

func (l *Ledger) Active(ctx context.Context) ([]models.Shift, error) {
	var shifts []models.Shift
	err := l.db.WithContext(ctx).
		Where("ended_at IS NULL").
		Order("started_at DESC, id DESC").
		Find(&shifts).Error
	if err != nil {
		return nil, apperr.Internal("No se pudo listar el rendimiento", err)
	}
	return shifts, nil
}

func (l *Ledger) ByTable(ctx context.Context, table int) ([]models.Shift, error) {
	if table <= 0 {
		return nil, apperr.New(apperr.KindInvalidInput, "Parámetro mesa requerido")
	}
	var shifts []models.Shift
	err := l.db.WithContext(ctx).
		Where("table_number = ?", table).
		Order("started_at DESC, id DESC").
		Find(&shifts).Error
	if err != nil {
		return nil, apperr.Internal("No se pudo listar el rendimiento", err)
	}
	return shifts, nil
}

// Current reports the open shift of table and its most recent shift.
func (l *Ledger) Current(ctx context.Context, table int) (Current, error) {
	var cur Current
	if table <= 0 {
		return cur, apperr.New(apperr.KindInvalidInput, "El parámetro 'mesa' es requerido")
	}
	db := l.db.WithContext(ctx)

	var open models.Shift
	res := db.Where("table_number = ? AND ended_at IS NULL", table).
		Order("started_at DESC, id DESC").Limit(1).Find(&open)
	if res.Error != nil {
		return cur, apperr.Internal("No se pudo consultar la jornada", res.Error)
	}
	if res.RowsAffected > 0 {
		r := ToResponse(&open, l.loc)
		cur.HasOpen = true
		cur.Open = &r
	}

	var last models.Shift
	res = db.Where("table_number = ?", table).
		Order("started_at DESC, id DESC").Limit(1).Find(&last)
	if res.Error != nil {
		return cur, apperr.Internal("No se pudo consultar la jornada", res.Error)
	}
	if res.RowsAffected > 0 {
		r := ToResponse(&last, l.loc)
		cur.Last = &r
	}
	return cur, nil
}

// History returns the latest shifts of table, newest first, and the sum of
// their worked hours. limit <= 0 means DefaultHistoryLimit.
func (l *Ledger) History(ctx context.Context, table, limit int) (History, error) {
	h := History{Shifts: []ShiftResponse{}}
	if table <= 0 {
		return h, apperr.New(apperr.KindInvalidInput, "El parámetro 'mesa' es requerido")
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	var shifts []models.Shift
	err := l.db.WithContext(ctx).
		Where("table_number = ?", table).
		Order("started_at DESC, id DESC").
		Limit(limit).
		Find(&shifts).Error
	if err != nil {
		return h, apperr.Internal("No se pudo consultar el historial", err)
	}

	total := decimal.Zero
	for i := range shifts {
		if shifts[i].HoursWorked != nil {
			total = total.Add(decimal.NewFromFloat(*shifts[i].HoursWorked))
		}
	}
	h.Count = len(shifts)
	h.TotalHours = total.RoundBank(2).InexactFloat64()
	h.Shifts = ToResponses(shifts, l.loc)
	return h, nil
}

func (l *Ledger) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	db := l.db.WithContext(ctx)

	if err := db.Model(&models.Shift{}).Count(&s.TotalShifts).Error; err != nil {
		return s, apperr.Internal("No se pudieron calcular las estadísticas", err)
	}
	if err := db.Model(&models.Shift{}).Where("ended_at IS NULL").Count(&s.OpenShifts).Error; err != nil {
		return s, apperr.Internal("No se pudieron calcular las estadísticas", err)
	}
	if err := db.Model(&models.Shift{}).Select("COALESCE(SUM(produced_units), 0)").Scan(&s.TotalProduced).Error; err != nil {
		return s, apperr.Internal("No se pudieron calcular las estadísticas", err)
	}
	if err := db.Model(&models.Shift{}).Where("ended_at IS NULL").Distinct("table_number").Count(&s.ActiveTables).Error; err != nil {
		return s, apperr.Internal("No se pudieron calcular las estadísticas", err)
	}
	return s, nil
}

// StaleOpen lists shifts still open after maxAge.
func (l *Ledger) StaleOpen(ctx context.Context, maxAge time.Duration) ([]models.Shift, error) {
	cutoff := l.now().UTC().Add(-maxAge)
	var shifts []models.Shift
	err := l.db.WithContext(ctx).
		Where("ended_at IS NULL AND started_at < ?", cutoff).
		Order("started_at ASC, id ASC").
		Find(&shifts).Error
	if err != nil {
		return nil, apperr.Internal("No se pudo listar las jornadas abiertas", err)
	}
	return shifts, nil
}
