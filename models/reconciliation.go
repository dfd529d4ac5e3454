package models

import (
	"fmt"
	"strconv"
	"strings"

	"bitbucket.org/mmdatafocus/ticket_backend/utils"
)

// Policy selects the output shape of a reconciliation run.
type Policy string

const (
	// PolicyComplete produces a single ticket with every order line; misses
	// are filled with NotAvailable and stock level is never checked.
	PolicyComplete Policy = "complete"
	// PolicySplit produces a ticket of lines with stock > 0 and an exception
	// report with everything else.
	PolicySplit Policy = "split"
)

func (p Policy) IsValid() bool {
	return p == PolicyComplete || p == PolicySplit
}

func ParsePolicy(s string) (Policy, error) {
	p := Policy(strings.ToLower(strings.TrimSpace(s)))
	if p == "" {
		return PolicySplit, nil
	}
	if !p.IsValid() {
		return "", fmt.Errorf("unknown policy %q: %w", s, utils.ErrBadRequest)
	}
	return p, nil
}

type LineStatus string

const (
	LineFulfilled LineStatus = "Fulfilled"
	LineDepleted  LineStatus = "Depleted"
	LineUnmatched LineStatus = "Unmatched"
)

const (
	ReasonStockZero       = "Stock 0"
	ReasonStockNotNumeric = "Stock no numérico"
	ReasonNotFound        = "No encontrado en CSV"

	// NotAvailable fills every stock-sourced field of an unmatched line on a
	// complete ticket.
	NotAvailable = "no disponible"
)

// Ticket columns.
const (
	ColumnWarehouse       = "Almacén"
	ColumnCode            = "Código"
	ColumnProduct         = "Producto"
	ColumnPriceDDU        = "Precio DDU"
	ColumnRate            = "Tarifa"
	ColumnAvailableStock  = "Stock disponible"
	ColumnExpiryDate      = "Fecha Caducidad"
	ColumnCategory        = "Categoría producto"
	ColumnSlot            = "Hueco"
	ColumnSupplier        = "Proveedor"
	ColumnQuantity        = "Cantidad Pedida"
	ColumnSalePrice       = "Precio Venta"
	ColumnUnitsPerPackage = "Cada Producto Contiene"
)

// Exception columns.
const (
	ColumnReason    = "Motivo"
	ColumnStockText = "Stock CSV"
)

// TicketColumns is the ticket column order.
var TicketColumns = []string{
	ColumnWarehouse, ColumnCode, ColumnProduct, ColumnPriceDDU, ColumnRate,
	ColumnAvailableStock, ColumnExpiryDate, ColumnCategory, ColumnSlot,
	ColumnSupplier, ColumnQuantity, ColumnSalePrice, ColumnUnitsPerPackage,
}

// ticketStockColumns maps the stock-sourced ticket columns to stock columns.
var ticketStockColumns = []struct{ ticket, stock string }{
	{ColumnWarehouse, StockColumnWarehouse},
	{ColumnProduct, StockColumnProduct},
	{ColumnPriceDDU, StockColumnPriceDDU},
	{ColumnRate, StockColumnRate},
	{ColumnAvailableStock, StockColumnAvailableStock},
	{ColumnExpiryDate, StockColumnExpiryDate},
	{ColumnCategory, StockColumnCategory},
	{ColumnSlot, StockColumnSlot},
	{ColumnSupplier, StockColumnSupplier},
}

// ReconciledLine is the classification of one order line.
type ReconciledLine struct {
	Status LineStatus
	Order  OrderLine
	// Stock is nil for LineUnmatched.
	Stock  *StockRecord
	Reason string
}

// Reconciliation is the outcome of one run.
type Reconciliation struct {
	Policy     Policy
	Ticket     []ReconciledLine
	Exceptions []ReconciledLine
}

// Summary counts lines per outcome.
type Summary struct {
	Policy     Policy `json:"policy"`
	Orders     int    `json:"orders"`
	Fulfilled  int    `json:"fulfilled"`
	Depleted   int    `json:"depleted"`
	Unmatched  int    `json:"unmatched"`
	TicketRows int    `json:"ticket_rows"`
	Exceptions int    `json:"exceptions"`
}

// Reconcile joins the order lines against the stock index. It is a pure
// function of its inputs; output order follows the order lines.
func Reconcile(orders []OrderLine, index *StockIndex, policy Policy) Reconciliation {
	result := Reconciliation{Policy: policy}
	for _, order := range orders {
		line := classify(order, index, policy)
		switch {
		case policy == PolicyComplete, line.Status == LineFulfilled:
			result.Ticket = append(result.Ticket, line)
		default:
			result.Exceptions = append(result.Exceptions, line)
		}
	}
	return result
}

func classify(order OrderLine, index *StockIndex, policy Policy) ReconciledLine {
	stock, ok := index.Lookup(order.Code)
	if !ok {
		return ReconciledLine{Status: LineUnmatched, Order: order, Reason: ReasonNotFound}
	}
	if policy == PolicyComplete {
		return ReconciledLine{Status: LineFulfilled, Order: order, Stock: stock}
	}
	level, numeric := utils.ParseLeadingDecimal(stock.AvailableStock)
	switch {
	case !numeric:
		return ReconciledLine{Status: LineDepleted, Order: order, Stock: stock, Reason: ReasonStockNotNumeric}
	case !level.IsPositive():
		return ReconciledLine{Status: LineDepleted, Order: order, Stock: stock, Reason: ReasonStockZero}
	}
	return ReconciledLine{Status: LineFulfilled, Order: order, Stock: stock}
}

func (r Reconciliation) Summary() Summary {
	s := Summary{
		Policy:     r.Policy,
		TicketRows: len(r.Ticket),
		Exceptions: len(r.Exceptions),
	}
	for _, lines := range [][]ReconciledLine{r.Ticket, r.Exceptions} {
		for _, line := range lines {
			s.Orders++
			switch line.Status {
			case LineFulfilled:
				s.Fulfilled++
			case LineDepleted:
				s.Depleted++
			case LineUnmatched:
				s.Unmatched++
			}
		}
	}
	return s
}

// TicketRecords flattens the ticket lines into the ticket column set.
func (r Reconciliation) TicketRecords() []Record {
	records := make([]Record, 0, len(r.Ticket))
	for _, line := range r.Ticket {
		records = append(records, line.TicketRecord())
	}
	return records
}

// ExceptionRecords flattens the exception lines. Only depleted lines carry
// the raw stock text.
func (r Reconciliation) ExceptionRecords() []Record {
	records := make([]Record, 0, len(r.Exceptions))
	for _, line := range r.Exceptions {
		records = append(records, line.ExceptionRecord())
	}
	return records
}

// TicketRecord renders the line with the ticket columns. A matched line
// passes the stock fields through whatever the stock level is.
func (l ReconciledLine) TicketRecord() Record {
	rec := make(Record, 0, len(TicketColumns))
	if l.Stock == nil {
		for _, col := range TicketColumns {
			value := NotAvailable
			switch col {
			case ColumnCode:
				value = l.Order.Code
			case ColumnProduct:
				value = l.Order.Name
			case ColumnQuantity:
				value = strconv.Itoa(l.Order.Quantity)
			case ColumnSalePrice:
				value = l.Order.UnitPrice.String()
			}
			rec = append(rec, Field{Name: col, Value: value})
		}
		return rec
	}

	stockValues := make(map[string]string, len(ticketStockColumns))
	for _, m := range ticketStockColumns {
		stockValues[m.ticket] = l.Stock.Value(m.stock)
	}
	for _, col := range TicketColumns {
		var value string
		switch col {
		case ColumnCode:
			value = l.Stock.CleanCode
		case ColumnQuantity:
			value = strconv.Itoa(l.Order.Quantity)
		case ColumnSalePrice:
			value = l.Order.UnitPrice.String()
		case ColumnUnitsPerPackage:
			value = l.Stock.PackagingDescriptor
		default:
			value = stockValues[col]
		}
		rec = append(rec, Field{Name: col, Value: value})
	}
	return rec
}

func (l ReconciledLine) ExceptionRecord() Record {
	rec := Record{
		{Name: ColumnCode, Value: l.Order.Code},
		{Name: ColumnProduct, Value: l.Order.Name},
		{Name: ColumnReason, Value: l.Reason},
		{Name: ColumnQuantity, Value: strconv.Itoa(l.Order.Quantity)},
		{Name: ColumnSalePrice, Value: l.Order.UnitPrice.String()},
	}
	if l.Status == LineDepleted && l.Stock != nil {
		rec = append(rec, Field{Name: ColumnStockText, Value: l.Stock.AvailableStock})
	}
	return rec
}
