package reports

import (
	"strconv"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/ticket_backend/models"
	"bitbucket.org/mmdatafocus/ticket_backend/utils"
)

type ColumnKind int

const (
	KindText ColumnKind = iota
	KindNumeric
	KindDate
)

// ColumnRole binds a presentation kind to a column by name. A role whose
// column is not present in the data is ignored.
type ColumnRole struct {
	Name string
	Kind ColumnKind
}

// DefaultTicketRoles are the typed columns of the ticket column set.
var DefaultTicketRoles = []ColumnRole{
	{Name: models.ColumnPriceDDU, Kind: KindNumeric},
	{Name: models.ColumnAvailableStock, Kind: KindNumeric},
	{Name: models.ColumnExpiryDate, Kind: KindDate},
	{Name: models.ColumnQuantity, Kind: KindNumeric},
	{Name: models.ColumnSalePrice, Kind: KindNumeric},
}

func roleKinds(roles []ColumnRole) map[string]ColumnKind {
	kinds := make(map[string]ColumnKind, len(roles))
	for _, r := range roles {
		kinds[r.Name] = r.Kind
	}
	return kinds
}

const (
	// excelEpochOffset is the number of days between 1899-12-30 and 1970-01-01.
	excelEpochOffset = 25569
	msPerDay         = 86400000
)

// ParseDate reads dd/mm/yyyy or dd-mm-yyyy and returns the spreadsheet serial
// day number. Out-of-range or malformed dates are not parsed.
func ParseDate(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	var parts []string
	switch {
	case strings.Contains(s, "/"):
		parts = strings.Split(s, "/")
	case strings.Contains(s, "-"):
		parts = strings.Split(s, "-")
	default:
		return 0, false
	}
	if len(parts) != 3 {
		return 0, false
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return 0, false
		}
		nums[i] = n
	}
	day, month, year := nums[0], nums[1], nums[2]
	if year < 1 || year > 9999 || month < 1 || month > 12 || day < 1 {
		return 0, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return 0, false
	}
	return DateToSerial(t), true
}

// DateToSerial converts the calendar day of t (UTC) to a serial day number.
func DateToSerial(t time.Time) int64 {
	t = t.UTC()
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return excelEpochOffset + floorDiv(midnight.UnixMilli(), msPerDay)
}

// CalendarDay is the wall-clock day of t in its own location, as UTC
// midnight. Report dates go through it so every sheet of a run shows the same
// day.
func CalendarDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SerialToDate is the inverse of DateToSerial.
func SerialToDate(serial int64) time.Time {
	return time.UnixMilli((serial - excelEpochOffset) * msPerDay).UTC()
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// CoerceNumeric returns the leading number of s as float64, or s unchanged
// when it does not start with one.
func CoerceNumeric(s string) interface{} {
	d, ok := utils.ParseLeadingDecimal(s)
	if !ok {
		return s
	}
	f, _ := d.Float64()
	return f
}

// typedCell applies a column kind to raw text.
func typedCell(kind ColumnKind, raw string) Cell {
	switch kind {
	case KindNumeric:
		return Cell{Value: CoerceNumeric(raw)}
	case KindDate:
		if serial, ok := ParseDate(raw); ok {
			return Cell{Value: float64(serial), Style: CellStyle{NumFmt: NumFmtDate}}
		}
	}
	return Cell{Value: raw}
}

// IsStockZero reports whether the "Stock disponible" field of a record reads
// as exactly zero. Absent or non-numeric stock is not zero.
func IsStockZero(rec models.Record) bool {
	raw, ok := rec.Get(models.ColumnAvailableStock)
	if !ok {
		return false
	}
	d, ok := utils.ParseLeadingDecimal(raw)
	return ok && d.IsZero()
}
