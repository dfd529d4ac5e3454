package reports

import (
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/ticket_backend/models"
)

const (
	SinStockSheetName = "Sin Stock"

	existsYes = "Sí"
	existsNo  = "No"
)

var sinStockHeaders = []string{"Código", "Producto", "Existe en BD", "Stock", "Motivo"}

var (
	sinStockTitleStyle  = CellStyle{Bold: true, FontSize: 14, FontFamily: DefaultFontFamily, HAlign: "center"}
	sinStockHeaderStyle = CellStyle{Bold: true, FontSize: 11, FontFamily: DefaultFontFamily, Fill: FillLightGrey}
)

// sinStockCellStyle: the report only holds exceptions, so every data row is red.
func sinStockCellStyle(class rowClass) CellStyle {
	style := CellStyle{FontSize: 11, FontFamily: DefaultFontFamily}
	if class != rowNormal {
		style.Fill = FillLightRed
	}
	return style
}

// SinStockTitle is the report title for the given day.
func SinStockTitle(now time.Time) string {
	return "Productos sin stock - " + CalendarDay(now).Format("02/01/2006")
}

// RenderSinStockReport lays out the exception records: a merged title on
// row 1, the header on row 2 and one exception per row from row 3.
func RenderSinStockReport(records []models.Record, now time.Time) *Sheet {
	sheet := NewSheet(SinStockSheetName)

	lastCol := columnName(len(sinStockHeaders))
	sheet.AppendRow(Cell{Value: SinStockTitle(now), Style: sinStockTitleStyle})
	sheet.Merges = append(sheet.Merges, "A1:"+lastCol+"1")

	header := make([]Cell, len(sinStockHeaders))
	for i, h := range sinStockHeaders {
		header[i] = Cell{Value: h, Style: sinStockHeaderStyle}
	}
	sheet.AppendRow(header...)

	for _, rec := range records {
		reason := rec.Value(models.ColumnReason)
		exists := existsYes
		if strings.Contains(reason, "No encontrado") {
			exists = existsNo
		}
		stock := rec.Value(models.ColumnStockText)
		if stock == "" && exists == existsYes {
			stock = "0"
		}

		style := sinStockCellStyle(rowException)
		sheet.AppendRow(
			Cell{Value: rec.Value(models.ColumnCode), Style: style},
			Cell{Value: rec.Value(models.ColumnProduct), Style: style},
			Cell{Value: exists, Style: style},
			Cell{Value: stock, Style: style},
			Cell{Value: reason, Style: style},
		)
	}

	sheet.Freeze = &FreezePane{Rows: 2, TopLeftCell: "A3"}
	sheet.AutoFitColumns()
	return sheet
}
