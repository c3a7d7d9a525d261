// Package httpx has small request helpers shared by the Fiber handlers.
package httpx

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"comexiger-backend/internal/apperr"

	"github.com/gofiber/fiber/v2"
)

// FlexInt accepts 3, "3" and null; mobile clients send mesa numbers as strings.
type FlexInt struct {
	Value int
	Set   bool
}

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = FlexInt{}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*f = FlexInt{}
			return nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return err
		}
		*f = FlexInt{Value: n, Set: true}
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexInt{Value: n, Set: true}
	return nil
}

func (f FlexInt) MarshalJSON() ([]byte, error) {
	if !f.Set {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(f.Value)), nil
}

// Ptr returns nil when the field was absent.
func (f FlexInt) Ptr() *int {
	if !f.Set {
		return nil
	}
	v := f.Value
	return &v
}

// ParamID reads a positive numeric route parameter.
func ParamID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.New(apperr.KindInvalidInput, "ID inválido")
	}
	return uint(id), nil
}

// QueryMesa reads the required positive "mesa" query parameter.
func QueryMesa(c *fiber.Ctx) (int, error) {
	mesa, err := strconv.Atoi(strings.TrimSpace(c.Query("mesa")))
	if err != nil || mesa <= 0 {
		return 0, apperr.New(apperr.KindInvalidInput, "Parámetro mesa requerido")
	}
	return mesa, nil
}

// ParseBody decodes the request body or fails with InvalidInput.
func ParseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperr.Wrap(apperr.KindInvalidInput, "Cuerpo de la solicitud inválido", err)
	}
	return nil
}
