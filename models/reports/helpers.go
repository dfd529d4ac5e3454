package reports

import (
	"strconv"

	"github.com/xuri/excelize/v2"
)

func itoa(n int) string {
	return strconv.Itoa(n)
}

// columnName turns a 1-based column number into its letter name.
func columnName(col int) string {
	name, err := excelize.ColumnNumberToName(col)
	if err != nil {
		return "A"
	}
	return name
}
