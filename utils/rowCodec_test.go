package utils

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestAllowedUpload(t *testing.T) {
	cases := []struct {
		name, mime string
		want       bool
	}{
		{"pedido.xlsx", MimeTypeXlsx, true},
		{"pedido.XLS", MimeTypeXls, true},
		{"stock.csv", "text/csv; charset=utf-8", true},
		{"stock.csv", "", true},
		{"stock.csv", "application/octet-stream", true},
		{"stock.csv", "application/pdf", false},
		{"stock.pdf", MimeTypeCsv, false},
		{"stock", MimeTypeCsv, false},
	}
	for _, tc := range cases {
		if got := AllowedUpload(tc.name, tc.mime); got != tc.want {
			t.Fatalf("AllowedUpload(%q, %q) = %v, want %v", tc.name, tc.mime, got, tc.want)
		}
	}
}

func TestReadCSVRows(t *testing.T) {
	in := "\xef\xbb\xbfa,b,c\n1,\"2,5\"\n\n3,4,5,6\n"
	rows, err := ReadCSVRows(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadCSVRows: %v", err)
	}
	want := [][]string{{"a", "b", "c"}, {"1", "2,5"}, {"3", "4", "5", "6"}}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("got %v, want %v", rows, want)
	}
}

func TestReadWorkbookRows(t *testing.T) {
	f := excelize.NewFile()
	_ = f.SetCellValue("Sheet1", "A1", "Código")
	_ = f.SetCellValue("Sheet1", "B1", "Precio")
	_ = f.SetCellValue("Sheet1", "A2", "SKU1")
	_ = f.SetCellValue("Sheet1", "B2", "10,50")
	_, _ = f.NewSheet("Otra")
	_ = f.SetCellValue("Otra", "A1", "ignored")
	buf, err := f.WriteToBuffer()
	f.Close()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}

	rows, err := ReadTableRows("pedido.xlsx", buf)
	if err != nil {
		t.Fatalf("ReadTableRows: %v", err)
	}
	want := [][]string{{"Código", "Precio"}, {"SKU1", "10,50"}}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("got %v, want %v", rows, want)
	}
}

func TestReadCSVRows_DetectsDelimiter(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want [][]string
	}{
		{"semicolon", "Código producto;Stock disponible\nSKU1 - Un. Caja: 6;12\n",
			[][]string{{"Código producto", "Stock disponible"}, {"SKU1 - Un. Caja: 6", "12"}}},
		{"semicolon with decimal comma", "\xef\xbb\xbfa;b\n\"x;y\";0,5\n",
			[][]string{{"a", "b"}, {"x;y", "0,5"}}},
		{"tab", "a\tb\n1\t2\n", [][]string{{"a", "b"}, {"1", "2"}}},
		{"pipe", "\n\na|b\n1|2\n", [][]string{{"a", "b"}, {"1", "2"}}},
		{"single column", "a\n1\n", [][]string{{"a"}, {"1"}}},
	}
	for _, tc := range cases {
		rows, err := ReadCSVRows(strings.NewReader(tc.in))
		if err != nil {
			t.Fatalf("%s: ReadCSVRows: %v", tc.name, err)
		}
		if !reflect.DeepEqual(rows, tc.want) {
			t.Fatalf("%s: got %q, want %q", tc.name, rows, tc.want)
		}
	}
}

func TestDetectDelimiter(t *testing.T) {
	cases := []struct {
		in   string
		want rune
	}{
		{"a,b;c,d", ','},
		{"a;b;c,d", ';'},
		{`"a,b,c";d`, ';'},
		{"a;b,c", ','},
		{"", ','},
	}
	for _, tc := range cases {
		if got := DetectDelimiter([]byte(tc.in)); got != tc.want {
			t.Fatalf("DetectDelimiter(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestReadWorkbookRows_StoredNumbers(t *testing.T) {
	f := excelize.NewFile()
	_ = f.SetCellValue("Sheet1", "A1", "Precio")
	_ = f.SetCellValue("Sheet1", "A2", 1234.5)
	style, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		t.Fatalf("NewStyle: %v", err)
	}
	_ = f.SetCellStyle("Sheet1", "A2", "A2", style)
	buf, err := f.WriteToBuffer()
	f.Close()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	data := buf.Bytes()

	rows, err := ReadWorkbookRows(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadWorkbookRows: %v", err)
	}
	if got := rows[1][0]; got != "1234.5" {
		t.Fatalf("expected stored value 1234.5, got %q", got)
	}

	display, err := ReadDisplayRows("pedido.xlsx", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadDisplayRows: %v", err)
	}
	if got := display[1][0]; got != "1,234.50" {
		t.Fatalf("expected formatted text 1,234.50, got %q", got)
	}
}

func TestReadWorkbookRows_NotAWorkbook(t *testing.T) {
	_, err := ReadWorkbookRows(bytes.NewReader([]byte("plain text")))
	if !errors.Is(err, ErrUnsupportedFile) {
		t.Fatalf("expected ErrUnsupportedFile, got %v", err)
	}
}

func TestWriteCSV_PadsRows(t *testing.T) {
	out, err := WriteCSV([][]string{{"a", "b", "c"}, {"1"}, {"x,y", "2", "3"}})
	if err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	want := "a,b,c\n1,,\n\"x,y\",2,3\n"
	if out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}
