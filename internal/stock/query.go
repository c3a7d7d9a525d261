package stock

import (
	"context"
	"errors"

	"comexiger-backend/internal/apperr"
	"comexiger-backend/internal/clock"
	"comexiger-backend/internal/models"

	"gorm.io/gorm"
)

// ListFilter mirrors the query string of the lot listing.
type ListFilter struct {
	Date   string // YYYY-MM-DD, matches opened_at
	From   string // inclusive range, both ends required
	To     string
	Order  string // mesa | variedad | medida | fecha
	Recent bool   // descending order
}

var orderColumns = map[string]string{
	"mesa":     "table_number",
	"variedad": "variety",
	"medida":   "size",
	"fecha":    "opened_at",
}

func (l *Ledger) Get(ctx context.Context, id uint) (*models.StockLot, error) {
	var lot models.StockLot
	if err := l.db.WithContext(ctx).First(&lot, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "Registro no encontrado")
		}
		return nil, apperr.Internal("No se pudo leer el registro", err)
	}
	return &lot, nil
}

func (l *Ledger) List(ctx context.Context, f ListFilter) ([]models.StockLot, error) {
	q := l.db.WithContext(ctx).Model(&models.StockLot{})

	if f.Date != "" {
		from, to, err := clock.ParseDayRange(f.Date, f.Date, l.loc)
		if err != nil {
			return nil, err
		}
		q = q.Where("opened_at >= ? AND opened_at < ?", from, to)
	}
	if f.From != "" && f.To != "" {
		from, to, err := clock.ParseDayRange(f.From, f.To, l.loc)
		if err != nil {
			return nil, err
		}
		q = q.Where("opened_at >= ? AND opened_at < ?", from, to)
	}

	if col, ok := orderColumns[f.Order]; ok {
		if f.Recent {
			col += " DESC"
		}
		q = q.Order(col).Order("id")
	} else {
		q = q.Order("opened_at DESC, id DESC")
	}

	var lots []models.StockLot
	if err := q.Find(&lots).Error; err != nil {
		return nil, apperr.Internal("No se pudo listar la disponibilidad", err)
	}
	return lots, nil
}

// Active returns lots that have not been emptied by an outbound scan.
func (l *Ledger) Active(ctx context.Context) ([]models.StockLot, error) {
	var lots []models.StockLot
	err := l.db.WithContext(ctx).
		Where("closed_at IS NULL").
		Order("opened_at DESC, id DESC").
		Find(&lots).Error
	if err != nil {
		return nil, apperr.Internal("No se pudo listar la disponibilidad", err)
	}
	return lots, nil
}

func (l *Ledger) ByTable(ctx context.Context, table int) ([]models.StockLot, error) {
	if table <= 0 {
		return nil, apperr.New(apperr.KindInvalidInput, "Parámetro mesa requerido")
	}
	var lots []models.StockLot
	err := l.db.WithContext(ctx).
		Where("table_number = ?", table).
		Order("opened_at DESC, id DESC").
		Find(&lots).Error
	if err != nil {
		return nil, apperr.Internal("No se pudo listar la disponibilidad", err)
	}
	return lots, nil
}

func (l *Ledger) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	db := l.db.WithContext(ctx)

	if err := db.Model(&models.StockLot{}).Count(&s.TotalRecords).Error; err != nil {
		return s, apperr.Internal("No se pudieron calcular las estadísticas", err)
	}
	if err := db.Model(&models.StockLot{}).Where("closed_at IS NULL").Count(&s.ActiveRecords).Error; err != nil {
		return s, apperr.Internal("No se pudieron calcular las estadísticas", err)
	}
	if err := db.Model(&models.StockLot{}).Select("COALESCE(SUM(quantity), 0)").Scan(&s.TotalStock).Error; err != nil {
		return s, apperr.Internal("No se pudieron calcular las estadísticas", err)
	}
	if err := db.Model(&models.StockLot{}).Where("closed_at IS NULL").Distinct("table_number").Count(&s.ActiveTables).Error; err != nil {
		return s, apperr.Internal("No se pudieron calcular las estadísticas", err)
	}
	return s, nil
}
