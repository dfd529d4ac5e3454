package models

import (
	"regexp"
	"strconv"
	"strings"

	"bitbucket.org/mmdatafocus/ticket_backend/utils"
	"github.com/shopspring/decimal"
)

// OrderLine is one ordered product read from the order sheet.
type OrderLine struct {
	Code      string          `json:"code"`
	Quantity  int             `json:"quantity"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

var orderQuantityPrefixRegex = regexp.MustCompile(`^(\d+)\s*-\s*`)

// ParseOrderRows reads the order sheet. The first row is a header; rows with
// an empty first cell are skipped. Order of appearance is kept.
//
// The description cell has the shape "<qty> - <sku fragment> - <description...>",
// where the quantity prefix is optional.
func ParseOrderRows(rows [][]string) []OrderLine {
	if len(rows) <= 1 {
		return nil
	}
	lines := make([]OrderLine, 0, len(rows)-1)
	for _, row := range rows[1:] {
		code := strings.TrimSpace(cell(row, 0))
		if code == "" {
			continue
		}
		qty, name := parseOrderDescription(strings.TrimSpace(cell(row, 1)))
		lines = append(lines, OrderLine{
			Code:      code,
			Quantity:  qty,
			Name:      name,
			UnitPrice: parseOrderPrice(cell(row, 2)),
		})
	}
	return lines
}

// parseOrderDescription splits "<qty> - <sku fragment> - <description...>".
// Segments are counted over the whole text so index 2 onward is the
// description; with fewer segments the text minus any quantity prefix is used.
func parseOrderDescription(fullName string) (int, string) {
	qty := 1
	candidate := fullName
	if m := orderQuantityPrefixRegex.FindStringSubmatch(fullName); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			qty = n
			candidate = fullName[len(m[0]):]
		}
	}

	parts := strings.Split(fullName, "-")
	if len(parts) < 3 {
		return qty, candidate
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return qty, strings.Join(parts[2:], " - ")
}

func parseOrderPrice(raw string) decimal.Decimal {
	price := utils.ParseCommaDecimal(strings.TrimSpace(raw))
	if price.IsNegative() {
		return decimal.Zero
	}
	return price
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
