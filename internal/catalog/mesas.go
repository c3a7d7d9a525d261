package catalog

import (
	"context"
	"fmt"
	"strings"

	"comexiger-backend/internal/apperr"
	"comexiger-backend/internal/audit"
	"comexiger-backend/internal/models"
	"comexiger-backend/internal/scan"

	"gorm.io/gorm"
)

type MesaResponse struct {
	ID     uint   `json:"id"`
	Number int    `json:"numero_mesa"`
	Name   string `json:"nombre"`
}

func mesaResponse(m *models.Mesa) MesaResponse {
	return MesaResponse{ID: m.ID, Number: m.Number, Name: m.Name}
}

func (c *Catalog) ListMesas(ctx context.Context) ([]MesaResponse, error) {
	var ms []models.Mesa
	if err := c.db.WithContext(ctx).Order("number").Find(&ms).Error; err != nil {
		return nil, apperr.Internal("No se pudieron listar las mesas", err)
	}
	out := make([]MesaResponse, 0, len(ms))
	for i := range ms {
		out = append(out, mesaResponse(&ms[i]))
	}
	return out, nil
}

// CreateMesa registers a table. An empty name becomes "Mesa <number>".
func (c *Catalog) CreateMesa(ctx context.Context, number int, name string, actor audit.Actor) (*MesaResponse, error) {
	if number <= 0 {
		return nil, apperr.New(apperr.KindInvalidInput, "Número de mesa inválido")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = fmt.Sprintf("Mesa %d", number)
	}

	m := models.Mesa{Number: number, Name: name}
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&m).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			Actor:       actor,
			EntityType:  "mesa",
			EntityID:    m.ID,
			Action:      models.AuditActionCreate,
			Description: m.Name,
			After:       mesaResponse(&m),
		})
	})
	if err != nil {
		if scan.IsUniqueViolation(err) {
			return nil, apperr.Newf(apperr.KindConflict, "La mesa %d ya existe", number)
		}
		return nil, c.fail("No se pudo crear la mesa", "", err)
	}

	resp := mesaResponse(&m)
	return &resp, nil
}

// DeleteMesa refuses while the table has an open shift.
func (c *Catalog) DeleteMesa(ctx context.Context, id uint, actor audit.Actor) error {
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m models.Mesa
		if err := tx.First(&m, id).Error; err != nil {
			return err
		}

		var open int64
		if err := tx.Model(&models.Shift{}).Where("table_number = ? AND ended_at IS NULL", m.Number).Count(&open).Error; err != nil {
			return err
		}
		if open > 0 {
			return apperr.New(apperr.KindConflict, "La mesa tiene una jornada activa")
		}

		if err := tx.Delete(&m).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			Actor:       actor,
			EntityType:  "mesa",
			EntityID:    m.ID,
			Action:      models.AuditActionDelete,
			Description: m.Name + " eliminada",
			Before:      mesaResponse(&m),
		})
	})
	return c.fail("No se pudo eliminar la mesa", "Mesa no encontrada", err)
}
