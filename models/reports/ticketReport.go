package reports

import (
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/ticket_backend/models"
	"bitbucket.org/mmdatafocus/ticket_backend/utils"
	"github.com/shopspring/decimal"
)

const (
	TicketSheetName = "Pedido"

	ticketHeaderRow = 11
	ticketFirstRow  = 12
)

// TicketHeader fills the document skeleton above the product table. Blank
// values are left for the operator.
type TicketHeader struct {
	ClientCode   string `form:"clientCode" json:"client_code"`
	ClientName   string `form:"clientName" json:"client_name"`
	Agent        string `form:"agent" json:"agent"`
	Address      string `form:"address" json:"address"`
	City         string `form:"city" json:"city"`
	Phone        string `form:"phone" json:"phone"`
	PaymentTerms string `form:"paymentTerms" json:"payment_terms"`
	Notes        string `form:"notes" json:"notes"`
}

type ticketColumn int

const (
	tcLabel ticketColumn = iota
	tcCode
	tcProduct
	tcPrice
	tcPallet
	tcCase
	tcQuantity
	tcAmount
	ticketColumnCount
)

var ticketHeaders = [ticketColumnCount]string{
	tcLabel:    "",
	tcCode:     "Codigo",
	tcProduct:  "Producto",
	tcPrice:    "Precio venta",
	tcPallet:   "Un Palet",
	tcCase:     "Un Caja",
	tcQuantity: "Cantidad de pedido",
	tcAmount:   "Importe linea",
}

var labelStyle = CellStyle{Bold: true}

// ticketCellStyle is evaluated once per data cell. The code column keeps its
// green fill on stock-zero rows; every other column turns red.
func ticketCellStyle(col ticketColumn, class rowClass) CellStyle {
	style := CellStyle{}
	switch col {
	case tcPrice, tcAmount:
		style.NumFmt = NumFmtTwoDecimals
	case tcCase, tcQuantity:
		style.NumFmt = NumFmtInteger
	}
	switch {
	case col == tcCode:
		style.Fill = FillLightGreen
	case class == rowStockZero:
		style.Fill = FillLightRed
	}
	return style
}

// RenderTicketReport lays the ticket out as an order form ("Pedido"): ten
// metadata rows, the table header on row 11 and one product per row from
// row 12. now stamps the Fecha row.
func RenderTicketReport(records []models.Record, header TicketHeader, now time.Time) *Sheet {
	sheet := NewSheet(TicketSheetName)

	lines := make([][ticketColumnCount]Cell, 0, len(records))
	classes := make([]rowClass, 0, len(records))
	total := decimal.Zero
	for _, rec := range records {
		cells, amount := ticketLineCells(rec)
		total = total.Add(amount)
		lines = append(lines, cells)
		class := rowNormal
		if IsStockZero(rec) {
			class = rowStockZero
		}
		classes = append(classes, class)
	}

	totalValue, _ := total.Round(2).Float64()
	metadata := []struct {
		label string
		value Cell
	}{
		{"Código cliente", Cell{Value: header.ClientCode}},
		{"Nombre cliente", Cell{Value: header.ClientName}},
		{"Comercial", Cell{Value: header.Agent}},
		{"Dirección", Cell{Value: header.Address}},
		{"Población", Cell{Value: header.City}},
		{"Teléfono", Cell{Value: header.Phone}},
		{"Fecha", Cell{Value: float64(DateToSerial(CalendarDay(now))), Style: CellStyle{NumFmt: NumFmtDate}}},
		{"Forma de pago", Cell{Value: header.PaymentTerms}},
		{"Observaciones", Cell{Value: header.Notes}},
		{"Importe total", Cell{Value: totalValue, Style: CellStyle{Bold: true, NumFmt: NumFmtTwoDecimals}}},
	}
	for _, m := range metadata {
		sheet.AppendRow(Cell{Value: m.label, Style: labelStyle}, m.value)
	}

	headerCells := make([]Cell, ticketColumnCount)
	for i, h := range ticketHeaders {
		headerCells[i] = Cell{Value: h, Style: headerStyle}
	}
	sheet.AppendRow(headerCells...)

	for i, cells := range lines {
		row := make([]Cell, ticketColumnCount)
		for col := range cells {
			row[col] = Cell{Value: cells[col].Value, Style: ticketCellStyle(ticketColumn(col), classes[i])}
		}
		sheet.AppendRow(row...)
	}

	lastCol := columnName(int(ticketColumnCount))
	sheet.AutoFilter = "A" + itoa(ticketHeaderRow) + ":" + lastCol + itoa(ticketHeaderRow)
	sheet.Freeze = &FreezePane{Cols: 1, Rows: ticketHeaderRow, TopLeftCell: "B" + itoa(ticketFirstRow)}
	sheet.AutoFitColumns()
	return sheet
}

// ticketLineCells maps one ticket record onto the form columns and returns the
// line amount (price x quantity, zero when either is not numeric).
func ticketLineCells(rec models.Record) ([ticketColumnCount]Cell, decimal.Decimal) {
	var cells [ticketColumnCount]Cell
	priceText := rec.Value(models.ColumnSalePrice)
	qtyText := rec.Value(models.ColumnQuantity)

	cells[tcLabel] = Cell{}
	cells[tcCode] = Cell{Value: rec.Value(models.ColumnCode)}
	cells[tcProduct] = Cell{Value: rec.Value(models.ColumnProduct)}
	cells[tcPrice] = Cell{Value: CoerceNumeric(priceText)}
	cells[tcPallet] = Cell{}
	cells[tcCase] = Cell{Value: CoerceNumeric(unitsPerCase(rec.Value(models.ColumnUnitsPerPackage)))}
	cells[tcQuantity] = Cell{Value: CoerceNumeric(qtyText)}

	price, priceOK := utils.ParseLeadingDecimal(priceText)
	qty, qtyOK := utils.ParseLeadingDecimal(qtyText)
	if !priceOK || !qtyOK {
		cells[tcAmount] = Cell{}
		return cells, decimal.Zero
	}
	amount := price.Mul(qty).Round(2)
	f, _ := amount.Float64()
	cells[tcAmount] = Cell{Value: f}
	return cells, amount
}

// unitsPerCase strips the "Un. Caja:" label from a packaging descriptor.
func unitsPerCase(descriptor string) string {
	s := strings.TrimSpace(descriptor)
	if len(s) >= len("Un. Caja:") && strings.EqualFold(s[:len("Un. Caja:")], "Un. Caja:") {
		return strings.TrimSpace(s[len("Un. Caja:"):])
	}
	return s
}
