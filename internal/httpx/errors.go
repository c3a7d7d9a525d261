package httpx

import (
	"errors"

	"comexiger-backend/internal/apperr"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// ErrorHandler renders every handler error as {"error": ..., "kind": ...}.
func ErrorHandler(l zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{
				"error": fe.Message,
			})
		}

		var ae *apperr.Error
		if errors.As(err, &ae) {
			status := apperr.HTTPStatus(ae)
			if status >= fiber.StatusInternalServerError {
				l.Error().Err(err).Str("path", c.Path()).Msg("error interno")
			}
			body := fiber.Map{
				"error": ae.Message,
				"kind":  ae.Kind,
			}
			if ae.Detail != nil {
				body["detail"] = ae.Detail
			}
			return c.Status(status).JSON(body)
		}

		l.Error().Err(err).Str("path", c.Path()).Msg("error inesperado")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Error inesperado del servidor",
			"kind":  apperr.KindInternal,
		})
	}
}

// StatusOf returns the status ErrorHandler will answer err with.
func StatusOf(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return apperr.HTTPStatus(err)
}
