package shift

import (
	"time"

	"comexiger-backend/internal/models"
)

// ShiftResponse is the REST and notification representation of a shift.
type ShiftResponse struct {
	ID            uint       `json:"id"`
	TableNumber   int        `json:"numero_mesa"`
	EnteredAt     time.Time  `json:"fecha_entrada"`
	StartedAt     time.Time  `json:"hora_inicio"`
	EndedAt       *time.Time `json:"hora_final"`
	HourlyRate    int        `json:"rendimiento"`
	BaseUnits     int        `json:"ramos_base"`
	ProducedUnits int        `json:"bonches"`
	HoursWorked   *float64   `json:"horas_trabajadas"`
	ExpectedUnits *float64   `json:"ramos_esperados"`
	SurplusUnits  *float64   `json:"ramos_extras"`
	SurplusHours  *float64   `json:"extras_por_hora"`
}

func ToResponse(s *models.Shift, loc *time.Location) ShiftResponse {
	resp := ShiftResponse{
		ID:            s.ID,
		TableNumber:   s.TableNumber,
		EnteredAt:     s.CreatedAt.In(loc),
		StartedAt:     s.StartedAt.In(loc),
		HourlyRate:    s.HourlyRate,
		BaseUnits:     s.BaseUnits,
		ProducedUnits: s.ProducedUnits,
		HoursWorked:   s.HoursWorked,
		ExpectedUnits: s.ExpectedUnits,
		SurplusUnits:  s.SurplusUnits,
		SurplusHours:  s.SurplusHours,
	}
	if s.CreatedAt.IsZero() {
		resp.EnteredAt = resp.StartedAt
	}
	if s.EndedAt != nil {
		ended := s.EndedAt.In(loc)
		resp.EndedAt = &ended
	}
	return resp
}

func ToResponses(shifts []models.Shift, loc *time.Location) []ShiftResponse {
	out := make([]ShiftResponse, 0, len(shifts))
	for i := range shifts {
		out = append(out, ToResponse(&shifts[i], loc))
	}
	return out
}

// Current answers GET /api/jornada/actual.
type Current struct {
	HasOpen bool           `json:"tiene_jornada_activa"`
	Open    *ShiftResponse `json:"jornada_activa"`
	Last    *ShiftResponse `json:"ultima_jornada"`
}

// History answers GET /api/jornada/historial.
type History struct {
	Count      int             `json:"total_jornadas"`
	TotalHours float64         `json:"total_horas"`
	Shifts     []ShiftResponse `json:"jornadas"`
}

type Stats struct {
	TotalShifts   int64 `json:"total_rendimientos"`
	OpenShifts    int64 `json:"rendimientos_activos"`
	TotalProduced int64 `json:"total_bonches"`
	ActiveTables  int64 `json:"mesas_activas"`
}
