// Package clock holds the calendar helpers shared by the ledgers.
package clock

import (
	"time"

	"comexiger-backend/internal/apperr"
)

const DateLayout = "2006-01-02"

// DayBounds returns the UTC instants delimiting the local day of t.
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	lt := t.In(loc)
	start := time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
	return start.UTC(), start.AddDate(0, 0, 1).UTC()
}

// ParseDayRange turns two local dates into a half-open UTC interval that
// includes the whole of the last day.
func ParseDayRange(fromStr, toStr string, loc *time.Location) (time.Time, time.Time, error) {
	from, err := time.ParseInLocation(DateLayout, fromStr, loc)
	if err != nil {
		return time.Time{}, time.Time{}, apperr.New(apperr.KindInvalidInput, "El formato de fecha debe ser 'YYYY-MM-DD'")
	}
	to, err := time.ParseInLocation(DateLayout, toStr, loc)
	if err != nil {
		return time.Time{}, time.Time{}, apperr.New(apperr.KindInvalidInput, "El formato de fecha debe ser 'YYYY-MM-DD'")
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, apperr.New(apperr.KindInvalidInput, "La fecha 'hasta' no puede ser anterior a 'desde'")
	}
	return from.UTC(), to.AddDate(0, 0, 1).UTC(), nil
}
