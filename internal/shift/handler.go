package shift

import (
	"strconv"
	"strings"
	"time"

	"comexiger-backend/internal/apperr"
	"comexiger-backend/internal/auth"
	"comexiger-backend/internal/httpx"

	"github.com/gofiber/fiber/v2"
)

type StartRequest struct {
	Mesa       httpx.FlexInt `json:"mesa"`
	HourlyRate httpx.FlexInt `json:"rendimiento"`
	BaseUnits  httpx.FlexInt `json:"ramos_base"`
}

type EndRequest struct {
	Mesa httpx.FlexInt `json:"mesa"`
}

type ProductionRequest struct {
	QRID        string        `json:"qr_id"`
	TableNumber httpx.FlexInt `json:"numero_mesa"`
}

// UpdateRequest accepts RFC 3339 times or the "2006-01-02T15:04" form of a
// datetime-local input, read in the business time zone.
type UpdateRequest struct {
	TableNumber   httpx.FlexInt `json:"numero_mesa"`
	ProducedUnits httpx.FlexInt `json:"bonches"`
	StartedAt     string        `json:"hora_inicio"`
	EndedAt       string        `json:"hora_final"`
}

func parseTime(raw string, loc *time.Location) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation("2006-01-02T15:04", raw, loc)
	if err != nil {
		return nil, apperr.New(apperr.KindInvalidInput, "Formato de fecha u hora inválido")
	}
	return &t, nil
}

func requireMesa(f httpx.FlexInt) (int, error) {
	if !f.Set || f.Value <= 0 {
		return 0, apperr.New(apperr.KindInvalidInput, "La mesa es requerida")
	}
	return f.Value, nil
}

// POST /api/jornada/iniciar
func StartHandler(l *Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body StartRequest
		if err := httpx.ParseBody(c, &body); err != nil {
			return err
		}
		mesa, err := requireMesa(body.Mesa)
		if err != nil {
			return err
		}
		if err := auth.EnforceMesa(c, mesa); err != nil {
			return err
		}

		sh, err := l.Start(c.UserContext(), mesa, body.HourlyRate.Ptr(), body.BaseUnits.Ptr())
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message": "Jornada iniciada exitosamente",
			"data":    ToResponse(sh, l.loc),
		})
	}
}

// POST /api/jornada/finalizar
func EndHandler(l *Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body EndRequest
		if err := httpx.ParseBody(c, &body); err != nil {
			return err
		}
		mesa, err := requireMesa(body.Mesa)
		if err != nil {
			return err
		}
		if err := auth.EnforceMesa(c, mesa); err != nil {
			return err
		}

		sh, err := l.End(c.UserContext(), mesa)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"message": "Jornada finalizada exitosamente",
			"data":    ToResponse(sh, l.loc),
		})
	}
}

// GET /api/jornada/actual?mesa=3
func CurrentHandler(l *Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		mesa, err := httpx.QueryMesa(c)
		if err != nil {
			return err
		}
		if err := auth.EnforceMesa(c, mesa); err != nil {
			return err
		}
		cur, err := l.Current(c.UserContext(), mesa)
		if err != nil {
			return err
		}
		return c.JSON(cur)
	}
}

// GET /api/jornada/historial?mesa=3&limit=30
func HistoryHandler(l *Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		mesa, err := httpx.QueryMesa(c)
		if err != nil {
			return err
		}
		if err := auth.EnforceMesa(c, mesa); err != nil {
			return err
		}

		limit := DefaultHistoryLimit
		if raw := c.Query("limit"); raw != "" {
			limit, err = strconv.Atoi(raw)
			if err != nil || limit <= 0 {
				return apperr.New(apperr.KindInvalidInput, "limit debe ser un entero positivo")
			}
		}

		h, err := l.History(c.UserContext(), mesa, limit)
		if err != nil {
			return err
		}
		return c.JSON(h)
	}
}

// POST /api/rendimiento
func ProductionHandler(l *Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ProductionRequest
		if err := httpx.ParseBody(c, &body); err != nil {
			return err
		}
		if strings.TrimSpace(body.QRID) == "" || !body.TableNumber.Set {
			return apperr.New(apperr.KindInvalidInput, "Datos incompletos")
		}

		sh, err := l.RecordProduction(c.UserContext(), body.QRID, body.TableNumber.Value)
		if err != nil {
			if apperr.Is(err, apperr.KindNoOpenShift) {
				return apperr.WithStatus(err, fiber.StatusConflict)
			}
			return err
		}
		return c.JSON(ToResponse(sh, l.loc))
	}
}

// GET /api/rendimiento?fecha=&desde=&hasta=&ordenar=&reciente=true
func ListHandler(l *Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		shifts, err := l.List(c.UserContext(), ListFilter{
			Date:   c.Query("fecha"),
			From:   c.Query("desde"),
			To:     c.Query("hasta"),
			Order:  c.Query("ordenar"),
			Recent: c.Query("reciente") == "true",
		})
		if err != nil {
			return err
		}
		return c.JSON(ToResponses(shifts, l.loc))
	}
}

// GET /api/rendimiento/activos
func ActiveHandler(l *Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		shifts, err := l.Active(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(ToResponses(shifts, l.loc))
	}
}

// GET /api/rendimiento/por-mesa?mesa=3
func ByTableHandler(l *Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		mesa, err := httpx.QueryMesa(c)
		if err != nil {
			return err
		}
		shifts, err := l.ByTable(c.UserContext(), mesa)
		if err != nil {
			return err
		}
		return c.JSON(ToResponses(shifts, l.loc))
	}
}

// GET /api/rendimiento/stats
func StatsHandler(l *Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := l.Stats(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(s)
	}
}

// GET /api/rendimiento/:id
func GetHandler(l *Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		sh, err := l.Get(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(ToResponse(sh, l.loc))
	}
}

// PUT /api/admin/rendimiento/:id
func UpdateHandler(l *Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		var body UpdateRequest
		if err := httpx.ParseBody(c, &body); err != nil {
			return err
		}

		started, err := parseTime(body.StartedAt, l.loc)
		if err != nil {
			return err
		}
		ended, err := parseTime(body.EndedAt, l.loc)
		if err != nil {
			return err
		}

		p, _ := auth.PrincipalFrom(c)
		sh, err := l.Update(c.UserContext(), id, Patch{
			Table:         body.TableNumber.Ptr(),
			ProducedUnits: body.ProducedUnits.Ptr(),
			StartedAt:     started,
			EndedAt:       ended,
		}, p.Actor())
		if err != nil {
			return err
		}
		return c.JSON(ToResponse(sh, l.loc))
	}
}

// DELETE /api/admin/rendimiento/:id
func DeleteHandler(l *Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		p, _ := auth.PrincipalFrom(c)
		if err := l.Delete(c.UserContext(), id, p.Actor()); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
