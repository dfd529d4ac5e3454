package reports

import (
	"bitbucket.org/mmdatafocus/ticket_backend/models"
)

const FormattedSheetName = "Ticket"

type rowClass int

const (
	rowNormal rowClass = iota
	rowStockZero
	rowException
)

var headerStyle = CellStyle{Bold: true, Fill: FillLightGrey}

// formattedCellStyle is the style of a data cell of the formatted sheet.
func formattedCellStyle(kind ColumnKind, typed Cell, class rowClass) CellStyle {
	style := CellStyle{}
	if kind == KindDate {
		style.NumFmt = typed.Style.NumFmt
	}
	if class == rowStockZero {
		style.Fill = FillLightRed
	}
	return style
}

// RenderFormattedReport writes a record set as a single typed table: header
// on row 1, one row per record after it. Roles decide which columns are
// numeric or dates; everything else stays text.
func RenderFormattedReport(set models.RecordSet, roles []ColumnRole) *Sheet {
	sheet := NewSheet(FormattedSheetName)
	kinds := roleKinds(roles)

	header := make([]Cell, len(set.Headers))
	for i, h := range set.Headers {
		header[i] = Cell{Value: h, Style: headerStyle}
	}
	sheet.AppendRow(header...)

	for _, rec := range set.Rows {
		class := rowNormal
		if IsStockZero(rec) {
			class = rowStockZero
		}
		cells := make([]Cell, len(set.Headers))
		for i, h := range set.Headers {
			kind := kinds[h]
			typed := typedCell(kind, rec.Value(h))
			cells[i] = Cell{Value: typed.Value, Style: formattedCellStyle(kind, typed, class)}
		}
		sheet.AppendRow(cells...)
	}

	sheet.AutoFitColumns()
	return sheet
}
