package reports

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// Fill colours (RGB hex).
const (
	FillLightRed   = "FFC0C0"
	FillLightGrey  = "E0E0E0"
	FillLightGreen = "C1F0C8"
)

// Number formats.
const (
	NumFmtDate        = "dd/mm/yyyy"
	NumFmtTwoDecimals = "0.00"
	NumFmtInteger     = "0"
)

const (
	DefaultFontFamily = "Aptos Narrow"
	maxColumnWidth    = 50
)

// CellStyle is the presentation of one cell. The zero value means default style.
type CellStyle struct {
	Bold       bool
	FontSize   float64
	FontFamily string
	Fill       string
	NumFmt     string
	HAlign     string
}

func (s CellStyle) IsZero() bool {
	return s == CellStyle{}
}

// Cell holds a string, a float64 or nil (empty).
type Cell struct {
	Value interface{}
	Style CellStyle
}

type Row []Cell

type FreezePane struct {
	Cols        int
	Rows        int
	TopLeftCell string
}

// Sheet is a renderer's output: a styled grid ready to be serialized.
type Sheet struct {
	Name       string
	Rows       []Row
	ColWidths  map[int]float64
	Merges     []string
	Freeze     *FreezePane
	AutoFilter string
}

func NewSheet(name string) *Sheet {
	return &Sheet{Name: name, ColWidths: make(map[int]float64)}
}

// AppendRow adds a row and returns its 1-based number.
func (s *Sheet) AppendRow(cells ...Cell) int {
	s.Rows = append(s.Rows, Row(cells))
	return len(s.Rows)
}

// CellAt addresses a cell by 1-based column and row.
func (s *Sheet) CellAt(col, row int) (Cell, bool) {
	if row < 1 || row > len(s.Rows) {
		return Cell{}, false
	}
	r := s.Rows[row-1]
	if col < 1 || col > len(r) {
		return Cell{}, false
	}
	return r[col-1], true
}

func (s *Sheet) ColumnCount() int {
	n := 0
	for _, r := range s.Rows {
		n = max(n, len(r))
	}
	return n
}

// AutoFitColumns sets each column to the longest stringified value + 2,
// capped at 50. Cells inside merged ranges are not measured.
func (s *Sheet) AutoFitColumns() {
	merged := s.mergedCells()
	for col := 1; col <= s.ColumnCount(); col++ {
		longest := 0
		for rowIdx, r := range s.Rows {
			if col > len(r) || merged[[2]int{col, rowIdx + 1}] {
				continue
			}
			longest = max(longest, utf8.RuneCountInString(CellText(r[col-1].Value)))
		}
		s.ColWidths[col] = float64(min(longest+2, maxColumnWidth))
	}
}

func (s *Sheet) mergedCells() map[[2]int]bool {
	covered := make(map[[2]int]bool)
	for _, ref := range s.Merges {
		from, to, ok := strings.Cut(ref, ":")
		if !ok {
			continue
		}
		c1, r1, err1 := excelize.CellNameToCoordinates(from)
		c2, r2, err2 := excelize.CellNameToCoordinates(to)
		if err1 != nil || err2 != nil {
			continue
		}
		for c := c1; c <= c2; c++ {
			for r := r1; r <= r2; r++ {
				covered[[2]int{c, r}] = true
			}
		}
	}
	return covered
}

// CellText stringifies a cell value.
func CellText(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	}
	return fmt.Sprint(v)
}
