package stock

import (
	"comexiger-backend/internal/apperr"
	"comexiger-backend/internal/auth"
	"comexiger-backend/internal/httpx"

	"github.com/gofiber/fiber/v2"
)

type ScanRequest struct {
	QRID        string        `json:"qr_id"`
	TableNumber httpx.FlexInt `json:"numero_mesa"`
	Variety     string        `json:"variedad"`
	Size        string        `json:"medida"`
}

func (r ScanRequest) input() ScanInput {
	return ScanInput{Code: r.QRID, Table: r.TableNumber.Value, Variety: r.Variety, Size: r.Size}
}

type ManualLotRequest struct {
	TableNumber httpx.FlexInt `json:"numero_mesa"`
	Variety     string        `json:"variedad"`
	Size        string        `json:"medida"`
	Quantity    httpx.FlexInt `json:"stock"`
}

type SetQuantityRequest struct {
	Quantity httpx.FlexInt `json:"stock"`
}

// POST /api/disponibilidad
func InboundHandler(l *Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ScanRequest
		if err := httpx.ParseBody(c, &body); err != nil {
			return err
		}

		lot, created, err := l.RegisterInbound(c.UserContext(), body.input())
		if err != nil {
			return err
		}

		status := fiber.StatusOK
		if created {
			status = fiber.StatusCreated
		}
		return c.Status(status).JSON(ToResponse(lot, l.loc))
	}
}

// POST /api/disponibilidad/salida
func OutboundHandler(l *Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ScanRequest
		if err := httpx.ParseBody(c, &body); err != nil {
			return err
		}

		lot, err := l.RegisterOutbound(c.UserContext(), body.input())
		if err != nil {
			return err
		}
		return c.JSON(ToResponse(lot, l.loc))
	}
}

// GET /api/disponibilidad?fecha=&desde=&hasta=&ordenar=&reciente=true
func ListHandler(l *Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lots, err := l.List(c.UserContext(), ListFilter{
			Date:   c.Query("fecha"),
			From:   c.Query("desde"),
			To:     c.Query("hasta"),
			Order:  c.Query("ordenar"),
			Recent: c.Query("reciente") == "true",
		})
		if err != nil {
			return err
		}
		return c.JSON(ToResponses(lots, l.loc))
	}
}

// GET /api/disponibilidad/activos
func ActiveHandler(l *Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lots, err := l.Active(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(ToResponses(lots, l.loc))
	}
}

// GET /api/disponibilidad/por-mesa?mesa=3
func ByTableHandler(l *Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		mesa, err := httpx.QueryMesa(c)
		if err != nil {
			return err
		}
		lots, err := l.ByTable(c.UserContext(), mesa)
		if err != nil {
			return err
		}
		return c.JSON(ToResponses(lots, l.loc))
	}
}

// GET /api/disponibilidad/stats
func StatsHandler(l *Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := l.Stats(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(s)
	}
}

// GET /api/disponibilidad/:id
func GetHandler(l *Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		lot, err := l.Get(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(ToResponse(lot, l.loc))
	}
}

// POST /api/admin/disponibilidad
func CreateLotHandler(l *Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ManualLotRequest
		if err := httpx.ParseBody(c, &body); err != nil {
			return err
		}
		if !body.Quantity.Set {
			return apperr.New(apperr.KindInvalidInput, "El stock es obligatorio")
		}

		p, _ := auth.PrincipalFrom(c)
		lot, err := l.CreateLot(c.UserContext(), ManualLotInput{
			Table:        body.TableNumber.Value,
			Variety:      body.Variety,
			Size:         body.Size,
			Quantity:     body.Quantity.Value,
			OperatorMesa: p.Mesa,
			Actor:        p.Actor(),
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(ToResponse(lot, l.loc))
	}
}

// PUT /api/admin/disponibilidad/:id
func SetQuantityHandler(l *Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		var body SetQuantityRequest
		if err := httpx.ParseBody(c, &body); err != nil {
			return apperr.New(apperr.KindInvalidInput, "El stock debe ser un número entero no negativo")
		}
		if !body.Quantity.Set {
			return apperr.New(apperr.KindInvalidInput, "El stock es obligatorio")
		}

		p, _ := auth.PrincipalFrom(c)
		lot, err := l.SetQuantity(c.UserContext(), id, body.Quantity.Value, p.Actor())
		if err != nil {
			return err
		}
		return c.JSON(ToResponse(lot, l.loc))
	}
}

// DELETE /api/admin/disponibilidad/:id
func DeleteHandler(l *Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		p, _ := auth.PrincipalFrom(c)
		if err := l.DeleteLot(c.UserContext(), id, p.Actor()); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
