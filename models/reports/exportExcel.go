package reports

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// WriteWorkbook serializes sheets, in order, into an xlsx buffer.
func WriteWorkbook(sheets ...*Sheet) (*bytes.Buffer, error) {
	if len(sheets) == 0 {
		return nil, errors.New("no sheets to write")
	}

	f := excelize.NewFile()
	defer f.Close()

	w := &workbookWriter{f: f, styles: make(map[CellStyle]int)}
	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet.Name); err != nil {
				return nil, err
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			return nil, err
		}
		if err := w.writeSheet(sheet); err != nil {
			return nil, fmt.Errorf("sheet %q: %w", sheet.Name, err)
		}
	}
	f.SetActiveSheet(0)

	return f.WriteToBuffer()
}

type workbookWriter struct {
	f      *excelize.File
	styles map[CellStyle]int
}

func (w *workbookWriter) writeSheet(sheet *Sheet) error {
	name := sheet.Name
	for r, row := range sheet.Rows {
		for c, cell := range row {
			ref, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}
			if cell.Value != nil {
				if err := w.f.SetCellValue(name, ref, cell.Value); err != nil {
					return err
				}
			}
			if cell.Style.IsZero() {
				continue
			}
			styleID, err := w.styleID(cell.Style)
			if err != nil {
				return err
			}
			if err := w.f.SetCellStyle(name, ref, ref, styleID); err != nil {
				return err
			}
		}
	}

	for col, width := range sheet.ColWidths {
		colName, err := excelize.ColumnNumberToName(col)
		if err != nil {
			return err
		}
		if err := w.f.SetColWidth(name, colName, colName, width); err != nil {
			return err
		}
	}

	for _, ref := range sheet.Merges {
		from, to, err := splitRange(ref)
		if err != nil {
			return err
		}
		if err := w.f.MergeCell(name, from, to); err != nil {
			return err
		}
	}

	if sheet.AutoFilter != "" {
		if err := w.f.AutoFilter(name, sheet.AutoFilter, nil); err != nil {
			return err
		}
	}

	if sheet.Freeze != nil {
		if err := w.f.SetPanes(name, freezePanes(sheet.Freeze)); err != nil {
			return err
		}
	}
	return nil
}

// styleID registers each distinct CellStyle once.
func (w *workbookWriter) styleID(style CellStyle) (int, error) {
	if id, ok := w.styles[style]; ok {
		return id, nil
	}
	s := &excelize.Style{}
	if style.Bold || style.FontSize > 0 || style.FontFamily != "" {
		s.Font = &excelize.Font{Bold: style.Bold, Size: style.FontSize, Family: style.FontFamily}
	}
	if style.Fill != "" {
		s.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#" + style.Fill}}
	}
	if style.NumFmt != "" {
		numFmt := style.NumFmt
		s.CustomNumFmt = &numFmt
	}
	if style.HAlign != "" {
		s.Alignment = &excelize.Alignment{Horizontal: style.HAlign}
	}
	id, err := w.f.NewStyle(s)
	if err != nil {
		return 0, err
	}
	w.styles[style] = id
	return id, nil
}

func freezePanes(p *FreezePane) *excelize.Panes {
	pane := "bottomRight"
	switch {
	case p.Cols == 0:
		pane = "bottomLeft"
	case p.Rows == 0:
		pane = "topRight"
	}
	return &excelize.Panes{
		Freeze:      true,
		XSplit:      p.Cols,
		YSplit:      p.Rows,
		TopLeftCell: p.TopLeftCell,
		ActivePane:  pane,
		Selection: []excelize.Selection{
			{SQRef: p.TopLeftCell, ActiveCell: p.TopLeftCell, Pane: pane},
		},
	}
}

func splitRange(ref string) (string, string, error) {
	from, to, ok := strings.Cut(ref, ":")
	if !ok {
		return "", "", fmt.Errorf("invalid range %q", ref)
	}
	return from, to, nil
}
