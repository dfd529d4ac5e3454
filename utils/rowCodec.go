package utils

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	MimeTypeXls  = "application/vnd.ms-excel"
	MimeTypeXlsx = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MimeTypeCsv  = "text/csv"
)

var uploadMimeTypes = map[string]bool{
	MimeTypeXls:  true,
	MimeTypeXlsx: true,
	MimeTypeCsv:  true,
}

var uploadExtensions = map[string]bool{
	".xls":  true,
	".xlsx": true,
	".csv":  true,
}

// AllowedUpload mirrors the upload filter: a known spreadsheet extension and,
// when the client declares one, a known MIME type.
func AllowedUpload(fileName, mimeType string) bool {
	if !uploadExtensions[strings.ToLower(filepath.Ext(fileName))] {
		return false
	}
	mimeType = strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0])
	if mimeType == "" || mimeType == "application/octet-stream" {
		return true
	}
	return uploadMimeTypes[mimeType]
}

func ContentTypeForName(fileName string) string {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xlsx":
		return MimeTypeXlsx
	case ".xls":
		return MimeTypeXls
	case ".csv":
		return MimeTypeCsv
	}
	return "application/octet-stream"
}

func IsCSVName(fileName string) bool {
	return strings.EqualFold(filepath.Ext(fileName), ".csv")
}

// ReadWorkbookRows returns the stored cell values of the first sheet of a
// workbook. Number formats are not applied, so a price styled "#,##0.00" reads
// back as "1234.5" rather than "1,234.50".
func ReadWorkbookRows(r io.Reader) ([][]string, error) {
	return readFirstSheet(r, excelize.Options{RawCellValue: true})
}

// ReadWorkbookDisplayRows returns the first sheet as the user sees it, with
// number and date formats applied.
func ReadWorkbookDisplayRows(r io.Reader) ([][]string, error) {
	return readFirstSheet(r)
}

func readFirstSheet(r io.Reader, opts ...excelize.Options) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		// legacy BIFF .xls lands here too; excelize reads OOXML only
		return nil, fmt.Errorf("failed to open Excel file: %v: %w", err, ErrUnsupportedFile)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets: %w", ErrBadRequest)
	}
	rows, err := f.GetRows(sheets[0], opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to read sheet: %w", err)
	}
	return rows, nil
}

var csvDelimiters = []rune{',', ';', '\t', '|'}

// DetectDelimiter picks the separator of delimited text from its first
// non-blank line: the candidate seen most often outside quotes. Comma wins
// ties and is the fallback.
func DetectDelimiter(data []byte) rune {
	var line []byte
	for _, l := range bytes.Split(data, []byte("\n")) {
		if len(bytes.TrimSpace(l)) > 0 {
			line = l
			break
		}
	}

	counts := make(map[rune]int, len(csvDelimiters))
	quoted := false
	for _, c := range string(line) {
		if c == '"' {
			quoted = !quoted
			continue
		}
		if !quoted {
			counts[c]++
		}
	}
	best := ','
	for _, d := range csvDelimiters {
		if counts[d] > counts[best] {
			best = d
		}
	}
	return best
}

// ReadCSVRows parses delimited text. The delimiter is detected from the header
// line, blank lines are skipped and rows may have different lengths.
func ReadCSVRows(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = DetectDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	return rows, nil
}

// ReadTableRows reads either a workbook or delimited text, chosen by file name.
func ReadTableRows(fileName string, r io.Reader) ([][]string, error) {
	if IsCSVName(fileName) {
		return ReadCSVRows(r)
	}
	return ReadWorkbookRows(r)
}

// ReadDisplayRows is ReadTableRows with workbook number formats applied.
func ReadDisplayRows(fileName string, r io.Reader) ([][]string, error) {
	if IsCSVName(fileName) {
		return ReadCSVRows(r)
	}
	return ReadWorkbookDisplayRows(r)
}

// WriteCSV renders rows as delimited text. Short rows are padded to the widest
// row so every line carries the same number of fields.
func WriteCSV(rows [][]string) (string, error) {
	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, row := range rows {
		if len(row) < width {
			padded := make([]string, width)
			copy(padded, row)
			row = padded
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
