package stock

import (
	"bytes"
	"context"
	"fmt"

	"comexiger-backend/internal/apperr"
	"comexiger-backend/internal/clock"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
)

var exportHeader = []any{"ID", "Mesa", "Variedad", "Medida", "Stock", "Fecha entrada", "Fecha salida"}

const exportTimeLayout = "2006-01-02 15:04"

// ExportXLSX writes the lots selected by f as a one-sheet workbook.
func (l *Ledger) ExportXLSX(ctx context.Context, f ListFilter) (*bytes.Buffer, error) {
	lots, err := l.List(ctx, f)
	if err != nil {
		return nil, err
	}

	x := excelize.NewFile()
	defer x.Close()

	sheet := "Disponibilidad"
	if err := x.SetSheetName(x.GetSheetName(x.GetActiveSheetIndex()), sheet); err != nil {
		return nil, apperr.Internal("No se pudo generar el Excel", err)
	}
	if err := x.SetSheetRow(sheet, "A1", &exportHeader); err != nil {
		return nil, apperr.Internal("No se pudo generar el Excel", err)
	}

	for i := range lots {
		lot := ToResponse(&lots[i], l.loc)
		closed := ""
		if lot.ClosedAt != nil {
			closed = lot.ClosedAt.Format(exportTimeLayout)
		}
		row := []any{lot.ID, lot.TableNumber, lot.Variety, lot.Size, lot.Quantity, lot.OpenedAt.Format(exportTimeLayout), closed}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, apperr.Internal("No se pudo generar el Excel", err)
		}
		if err := x.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, apperr.Internal("No se pudo generar el Excel", err)
		}
	}

	buf, err := x.WriteToBuffer()
	if err != nil {
		return nil, apperr.Internal("No se pudo generar el Excel", err)
	}
	return buf, nil
}

// GET /api/disponibilidad/export?fecha=&desde=&hasta=&ordenar=&reciente=true
func ExportHandler(l *Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		buf, err := l.ExportXLSX(c.UserContext(), ListFilter{
			Date:   c.Query("fecha"),
			From:   c.Query("desde"),
			To:     c.Query("hasta"),
			Order:  c.Query("ordenar"),
			Recent: c.Query("reciente") == "true",
		})
		if err != nil {
			return err
		}

		name := fmt.Sprintf("disponibilidad_%s.xlsx", l.now().In(l.loc).Format(clock.DateLayout))
		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, name))
		return c.Send(buf.Bytes())
	}
}
