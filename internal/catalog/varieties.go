// Package catalog manages the reference data scans point at: flower
// varieties and work tables.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"comexiger-backend/internal/apperr"
	"comexiger-backend/internal/audit"
	"comexiger-backend/internal/models"
	"comexiger-backend/internal/scan"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type Catalog struct {
	db  *gorm.DB
	log zerolog.Logger
	loc *time.Location
}

func New(db *gorm.DB, l zerolog.Logger, loc *time.Location) *Catalog {
	if loc == nil {
		loc = time.UTC
	}
	return &Catalog{db: db, log: l.With().Str("component", "catalog").Logger(), loc: loc}
}

type VarietyResponse struct {
	ID        uint      `json:"id"`
	Name      string    `json:"nombre"`
	CreatedAt time.Time `json:"fecha_creacion"`
}

func (c *Catalog) varietyResponse(v *models.Variety) VarietyResponse {
	return VarietyResponse{ID: v.ID, Name: v.Name, CreatedAt: v.CreatedAt.In(c.loc)}
}

// NormalizeVarietyName trims the name and capitalizes only its first letter:
// "  fREEDOM " becomes "Freedom".
func NormalizeVarietyName(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

func varietyKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (c *Catalog) ListVarieties(ctx context.Context) ([]VarietyResponse, error) {
	var vs []models.Variety
	if err := c.db.WithContext(ctx).Order("name").Find(&vs).Error; err != nil {
		return nil, apperr.Internal("No se pudieron listar las variedades", err)
	}
	out := make([]VarietyResponse, 0, len(vs))
	for i := range vs {
		out = append(out, c.varietyResponse(&vs[i]))
	}
	return out, nil
}

func (c *Catalog) CreateVariety(ctx context.Context, raw string, actor audit.Actor) (*VarietyResponse, error) {
	name := NormalizeVarietyName(raw)
	if name == "" {
		return nil, apperr.New(apperr.KindInvalidInput, "El nombre es obligatorio.")
	}

	v := models.Variety{Name: name, NameKey: varietyKey(name)}
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&v).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			Actor:       actor,
			EntityType:  "variety",
			EntityID:    v.ID,
			Action:      models.AuditActionCreate,
			Description: "Variedad " + v.Name,
			After:       c.varietyResponse(&v),
		})
	})
	if err != nil {
		if scan.IsUniqueViolation(err) {
			return nil, apperr.New(apperr.KindConflict, "La variedad ya se encuentra agregada.")
		}
		return nil, apperr.Internal("No se pudo crear la variedad", err)
	}

	resp := c.varietyResponse(&v)
	return &resp, nil
}

// DeleteVariety refuses while any lot of the variety, matched without
// regard to case, still holds stock.
func (c *Catalog) DeleteVariety(ctx context.Context, id uint, actor audit.Actor) error {
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var v models.Variety
		if err := tx.First(&v, id).Error; err != nil {
			return err
		}

		// Folded in Go: sqlite's LOWER only handles ASCII.
		var stocked []string
		err := tx.Model(&models.StockLot{}).
			Where("quantity > 0").
			Distinct().
			Pluck("variety", &stocked).Error
		if err != nil {
			return err
		}
		for _, name := range stocked {
			if varietyKey(name) == v.NameKey {
				return apperr.New(apperr.KindConflict, "No puedes borrar esta variedad porque tiene stock mayor a 0.")
			}
		}

		if err := tx.Delete(&v).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			Actor:       actor,
			EntityType:  "variety",
			EntityID:    v.ID,
			Action:      models.AuditActionDelete,
			Description: "Variedad " + v.Name + " eliminada",
			Before:      c.varietyResponse(&v),
		})
	})
	return c.fail("No se pudo eliminar la variedad", "Variedad no encontrada", err)
}

// ImportResult summarizes a bulk variety upload.
type ImportResult struct {
	Created  int `json:"creadas"`
	Existing int `json:"existentes"`
	Total    int `json:"total"`
}

// ImportVarieties creates every name not yet present. Names are compared
// without regard to case, both within the batch and against the catalog.
func (c *Catalog) ImportVarieties(ctx context.Context, names []string, actor audit.Actor) (ImportResult, error) {
	var res ImportResult

	seen := make(map[string]bool)
	unique := make([]string, 0, len(names))
	for _, n := range names {
		name := NormalizeVarietyName(n)
		if name == "" || seen[varietyKey(name)] {
			continue
		}
		seen[varietyKey(name)] = true
		unique = append(unique, name)
	}
	res.Total = len(unique)

	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, name := range unique {
			var count int64
			if err := tx.Model(&models.Variety{}).Where("name_key = ?", varietyKey(name)).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				res.Existing++
				continue
			}
			v := models.Variety{Name: name, NameKey: varietyKey(name)}
			if err := tx.Create(&v).Error; err != nil {
				return err
			}
			res.Created++
		}
		if res.Created == 0 {
			return nil
		}
		return audit.WriteLog(tx, audit.LogOptions{
			Actor:       actor,
			EntityType:  "variety",
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Importación de variedades: %d creadas, %d existentes", res.Created, res.Existing),
			After:       res,
		})
	})
	if err != nil {
		return ImportResult{}, c.fail("No se pudieron importar las variedades", "", err)
	}
	return res, nil
}

func (c *Catalog) fail(internalMsg, notFoundMsg string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if notFoundMsg != "" && errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.New(apperr.KindNotFound, notFoundMsg)
	}
	if scan.IsUniqueViolation(err) {
		return apperr.Wrap(apperr.KindConflict, "El registro ya existe", err)
	}
	c.log.Error().Err(err).Msg(internalMsg)
	return apperr.Internal(internalMsg, err)
}
