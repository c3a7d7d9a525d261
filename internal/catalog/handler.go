package catalog

import (
	"strings"

	"comexiger-backend/internal/apperr"
	"comexiger-backend/internal/auth"
	"comexiger-backend/internal/httpx"

	"github.com/gofiber/fiber/v2"
)

type CreateVarietyRequest struct {
	Name string `json:"nombre"`
}

type CreateMesaRequest struct {
	Number httpx.FlexInt `json:"numero_mesa"`
	Name   string        `json:"nombre"`
}

// GET /api/variedades
func ListVarietiesHandler(c *Catalog) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		vs, err := c.ListVarieties(ctx.UserContext())
		if err != nil {
			return err
		}
		return ctx.JSON(vs)
	}
}

// POST /api/variedades
func CreateVarietyHandler(c *Catalog) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		var body CreateVarietyRequest
		if err := httpx.ParseBody(ctx, &body); err != nil {
			return err
		}
		p, _ := auth.PrincipalFrom(ctx)
		v, err := c.CreateVariety(ctx.UserContext(), body.Name, p.Actor())
		if err != nil {
			return err
		}
		return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{
			"detail":   "Variedad agregada correctamente.",
			"variedad": v,
		})
	}
}

// POST /api/variedades/excel (multipart, field "file")
func ImportVarietiesHandler(c *Catalog) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		fh, err := ctx.FormFile("file")
		if err != nil {
			return apperr.New(apperr.KindInvalidInput, "Debes enviar un archivo en 'file'.")
		}
		if !strings.HasSuffix(strings.ToLower(fh.Filename), ".xlsx") {
			return apperr.New(apperr.KindInvalidInput, "Solo se aceptan archivos .xlsx")
		}
		file, err := fh.Open()
		if err != nil {
			return apperr.Internal("No se pudo abrir el archivo", err)
		}
		defer file.Close()

		names, err := ReadVarietyNames(file)
		if err != nil {
			return err
		}
		p, _ := auth.PrincipalFrom(ctx)
		res, err := c.ImportVarieties(ctx.UserContext(), names, p.Actor())
		if err != nil {
			return err
		}
		return ctx.JSON(res)
	}
}

// DELETE /api/variedades/:id
func DeleteVarietyHandler(c *Catalog) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		id, err := httpx.ParamID(ctx, "id")
		if err != nil {
			return err
		}
		p, _ := auth.PrincipalFrom(ctx)
		if err := c.DeleteVariety(ctx.UserContext(), id, p.Actor()); err != nil {
			return err
		}
		return ctx.SendStatus(fiber.StatusNoContent)
	}
}

// GET /api/mesas
func ListMesasHandler(c *Catalog) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		ms, err := c.ListMesas(ctx.UserContext())
		if err != nil {
			return err
		}
		return ctx.JSON(ms)
	}
}

// POST /api/admin/mesas
func CreateMesaHandler(c *Catalog) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		var body CreateMesaRequest
		if err := httpx.ParseBody(ctx, &body); err != nil {
			return err
		}
		p, _ := auth.PrincipalFrom(ctx)
		m, err := c.CreateMesa(ctx.UserContext(), body.Number.Value, body.Name, p.Actor())
		if err != nil {
			return err
		}
		return ctx.Status(fiber.StatusCreated).JSON(m)
	}
}

// DELETE /api/admin/mesas/:id
func DeleteMesaHandler(c *Catalog) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		id, err := httpx.ParamID(ctx, "id")
		if err != nil {
			return err
		}
		p, _ := auth.PrincipalFrom(ctx)
		if err := c.DeleteMesa(ctx.UserContext(), id, p.Actor()); err != nil {
			return err
		}
		return ctx.SendStatus(fiber.StatusNoContent)
	}
}
