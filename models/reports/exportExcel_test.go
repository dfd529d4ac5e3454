package reports

import (
	"testing"

	"bitbucket.org/mmdatafocus/ticket_backend/models"
	"github.com/xuri/excelize/v2"
)

func TestWriteWorkbook_RoundTrip(t *testing.T) {
	set := models.NewRecordSet([]models.Record{
		ticketRecord("SKU1", "12", "10.5", "3"),
		ticketRecord("SKU2", "0", "2", "1"),
	})
	formatted := RenderFormattedReport(set, DefaultTicketRoles)
	sinStock := RenderSinStockReport([]models.Record{{
		{Name: models.ColumnCode, Value: "SKU9"},
		{Name: models.ColumnProduct, Value: "Nueve"},
		{Name: models.ColumnReason, Value: models.ReasonNotFound},
	}}, renderDay)

	buf, err := WriteWorkbook(formatted, sinStock)
	if err != nil {
		t.Fatalf("WriteWorkbook: %v", err)
	}

	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[0] != FormattedSheetName || sheets[1] != SinStockSheetName {
		t.Fatalf("unexpected sheets %v", sheets)
	}

	if v, _ := f.GetCellValue(FormattedSheetName, "B2"); v != "SKU1" {
		t.Fatalf("expected SKU1 in B2, got %q", v)
	}
	raw, err := f.GetCellValue(FormattedSheetName, "G2", excelize.Options{RawCellValue: true})
	if err != nil {
		t.Fatalf("GetCellValue: %v", err)
	}
	if raw != "45285" {
		t.Fatalf("expected date serial 45285, got %q", raw)
	}

	if styleID, err := f.GetCellStyle(FormattedSheetName, "A3"); err != nil || styleID == 0 {
		t.Fatalf("expected styled stock-zero row, got style %d err %v", styleID, err)
	}

	merges, err := f.GetMergeCells(SinStockSheetName)
	if err != nil {
		t.Fatalf("GetMergeCells: %v", err)
	}
	if len(merges) != 1 || merges[0].GetStartAxis() != "A1" || merges[0].GetEndAxis() != "E1" {
		t.Fatalf("unexpected merges %v", merges)
	}
	if v, _ := f.GetCellValue(SinStockSheetName, "C3"); v != "No" {
		t.Fatalf("expected Existe en BD = No, got %q", v)
	}

	width, err := f.GetColWidth(SinStockSheetName, "A")
	if err != nil {
		t.Fatalf("GetColWidth: %v", err)
	}
	if width != 8 {
		t.Fatalf("expected column A width 8, got %v", width)
	}
}

func TestWriteWorkbook_NoSheets(t *testing.T) {
	if _, err := WriteWorkbook(); err == nil {
		t.Fatalf("expected error for empty workbook")
	}
}
