package models

import (
	"regexp"
	"strings"
)

const (
	StockColumnCompositeCode  = "Código producto"
	StockColumnWarehouse      = "Almacén"
	StockColumnProduct        = "Producto"
	StockColumnPriceDDU       = "Precio DDU"
	StockColumnRate           = "Tarifa"
	StockColumnAvailableStock = "Stock disponible"
	StockColumnExpiryDate     = "Fecha Caducidad"
	StockColumnCategory       = "Categoría producto"
	StockColumnSlot           = "Hueco"
	StockColumnSupplier       = "Proveedor"

	// Derived fields stored next to the passed-through columns.
	StockFieldCleanCode = "codigoLimpio"
	StockFieldPackaging = "contenidoUnidad"

	packagingPrefix = "Un. Caja: "
)

// DefaultDroppedStockColumns are the trailing bookkeeping columns of the
// stock extract.
var DefaultDroppedStockColumns = []string{"K", "L", "M", "N"}

var compositeCodeRegex = regexp.MustCompile(`(?i)^(.+?)\s*-\s*Un\.\s*Caja:\s*(.+)$`)

// StockRecord is one stock extract entry keyed by its clean code.
type StockRecord struct {
	CleanCode           string `json:"clean_code"`
	PackagingDescriptor string `json:"packaging_descriptor"`
	// AvailableStock is kept as raw text; it is interpreted at classification time.
	AvailableStock string `json:"available_stock"`
	Fields         Record `json:"fields"`
}

// StockIndex is a first-wins lookup of stock records by clean code.
type StockIndex struct {
	records map[string]*StockRecord
	order   []string
	skipped int
	dupes   int
}

type stockIndexOptions struct {
	dropped []string
}

type StockIndexOption func(*stockIndexOptions)

// WithDroppedColumns replaces the default set of dropped bookkeeping columns.
func WithDroppedColumns(names ...string) StockIndexOption {
	return func(o *stockIndexOptions) {
		o.dropped = append([]string(nil), names...)
	}
}

// ParseCompositeCode splits "<code> - Un. Caja: <packaging>". A blank code
// does not match.
func ParseCompositeCode(composite string) (cleanCode, packaging string, ok bool) {
	m := compositeCodeRegex.FindStringSubmatch(composite)
	if m == nil {
		return "", "", false
	}
	cleanCode = strings.TrimSpace(m[1])
	if cleanCode == "" {
		return "", "", false
	}
	return cleanCode, packagingPrefix + strings.TrimSpace(m[2]), true
}

// BuildStockIndex indexes stock rows in input order. Rows whose composite code
// does not match are skipped; on a repeated clean code the first row wins.
func BuildStockIndex(rows []Record, opts ...StockIndexOption) *StockIndex {
	o := stockIndexOptions{dropped: DefaultDroppedStockColumns}
	for _, opt := range opts {
		opt(&o)
	}

	idx := &StockIndex{records: make(map[string]*StockRecord, len(rows))}
	for _, row := range rows {
		cleanCode, packaging, ok := ParseCompositeCode(row.Value(StockColumnCompositeCode))
		if !ok {
			idx.skipped++
			continue
		}
		if _, exists := idx.records[cleanCode]; exists {
			idx.dupes++
			continue
		}

		fields := row.Without(o.dropped...)
		fields = append(fields,
			Field{Name: StockFieldCleanCode, Value: cleanCode},
			Field{Name: StockFieldPackaging, Value: packaging},
		)
		idx.records[cleanCode] = &StockRecord{
			CleanCode:           cleanCode,
			PackagingDescriptor: packaging,
			AvailableStock:      row.Value(StockColumnAvailableStock),
			Fields:              fields,
		}
		idx.order = append(idx.order, cleanCode)
	}
	return idx
}

func (idx *StockIndex) Lookup(code string) (*StockRecord, bool) {
	if idx == nil {
		return nil, false
	}
	rec, ok := idx.records[code]
	return rec, ok
}

func (idx *StockIndex) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.order)
}

// Codes lists clean codes in the order they were first seen.
func (idx *StockIndex) Codes() []string {
	return append([]string(nil), idx.order...)
}

// Skipped counts rows without a usable composite code.
func (idx *StockIndex) Skipped() int {
	return idx.skipped
}

// Duplicates counts rows discarded because their clean code was already indexed.
func (idx *StockIndex) Duplicates() int {
	return idx.dupes
}

// Value reads a passed-through column of the stock row.
func (s *StockRecord) Value(name string) string {
	return s.Fields.Value(name)
}
