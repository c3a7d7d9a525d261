package stock

import (
	"time"

	"comexiger-backend/internal/models"
)

// LotResponse is the REST and notification representation of a lot.
type LotResponse struct {
	ID          uint       `json:"id"`
	TableNumber int        `json:"numero_mesa"`
	Variety     string     `json:"variedad"`
	Size        string     `json:"medida"`
	Quantity    int        `json:"stock"`
	OpenedAt    time.Time  `json:"fecha_entrada"`
	ClosedAt    *time.Time `json:"fecha_salida"`
}

func ToResponse(l *models.StockLot, loc *time.Location) LotResponse {
	resp := LotResponse{
		ID:          l.ID,
		TableNumber: l.TableNumber,
		Variety:     l.Variety,
		Size:        l.Size,
		Quantity:    l.Quantity,
		OpenedAt:    l.OpenedAt.In(loc),
	}
	if l.ClosedAt != nil {
		closed := l.ClosedAt.In(loc)
		resp.ClosedAt = &closed
	}
	return resp
}

func ToResponses(lots []models.StockLot, loc *time.Location) []LotResponse {
	out := make([]LotResponse, 0, len(lots))
	for i := range lots {
		out = append(out, ToResponse(&lots[i], loc))
	}
	return out
}

type Stats struct {
	TotalRecords  int64 `json:"total_registros"`
	ActiveRecords int64 `json:"registros_activos"`
	TotalStock    int64 `json:"stock_total"`
	ActiveTables  int64 `json:"mesas_activas"`
}
