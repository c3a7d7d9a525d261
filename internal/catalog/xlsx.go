package catalog

import (
	"io"
	"strings"

	"comexiger-backend/internal/apperr"

	"github.com/xuri/excelize/v2"
)

// ReadVarietyNames extracts names from the first sheet of an .xlsx file.
// A "variedad" header selects its column; without one the first column is
// read from the first row on.
func ReadVarietyNames(r io.Reader) ([]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidInput, "Error leyendo Excel", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperr.New(apperr.KindInvalidInput, "El Excel no tiene hojas.")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidInput, "Error leyendo Excel", err)
	}
	if len(rows) == 0 {
		return nil, apperr.New(apperr.KindInvalidInput, "El Excel está vacío.")
	}

	col, start := 0, 0
	for i, cell := range rows[0] {
		if strings.EqualFold(strings.TrimSpace(cell), "variedad") {
			col, start = i, 1
			break
		}
	}

	var names []string
	for _, row := range rows[start:] {
		if len(row) <= col {
			continue
		}
		if name := strings.TrimSpace(row[col]); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}
