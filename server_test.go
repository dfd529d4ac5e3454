package main

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"bitbucket.org/mmdatafocus/ticket_backend/metrics"
	"bitbucket.org/mmdatafocus/ticket_backend/models/reports"
	"bitbucket.org/mmdatafocus/ticket_backend/utils"
	"bitbucket.org/mmdatafocus/ticket_backend/workflow"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

const testStockCSV = "Código producto,Almacén,Producto,Stock disponible\n" +
	"SKU1 - Un. Caja: 6,Central,Uno,12\n" +
	"SKU2 - Un. Caja: 12,Central,Dos,0\n"

type formFile struct {
	field, name, mime string
	body              []byte
}

func testOrderWorkbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	rows := [][]string{
		{"Código", "Descripción", "Precio"},
		{"SKU1", "3 - A - B - Widget", "10,50"},
		{"SKU2", "2 - X - Y - Gadget", "2"},
		{"SKU9", "Cosa", "1"},
	}
	for r, row := range rows {
		for c, v := range row {
			ref, _ := excelize.CoordinatesToCellName(c+1, r+1)
			_ = f.SetCellValue("Sheet1", ref, v)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	return buf.Bytes()
}

func multipartRequest(t *testing.T, target string, fields map[string]string, files ...formFile) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.name+`"`)
		h.Set("Content-Type", f.mime)
		part, err := w.CreatePart(h)
		if err != nil {
			t.Fatalf("CreatePart: %v", err)
		}
		_, _ = part.Write(f.body)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store, err := utils.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	reg := metrics.NewRegistry()
	wf := workflow.NewTicketWorkflow(store, logger, workflow.WithMetrics(reg))
	return newRouter(wf, reg, logger, nil)
}

func bothFiles(t *testing.T) []formFile {
	return []formFile{
		{field: orderFileField, name: "pedido.xlsx", mime: utils.MimeTypeXlsx, body: testOrderWorkbook(t)},
		{field: stockFileField, name: "stock.csv", mime: utils.MimeTypeCsv, body: []byte(testStockCSV)},
	}
}

func TestHealthzAndCorrelationId(t *testing.T) {
	r := testRouter(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(correlationIdHeader, "cid-123")
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if got := rec.Header().Get(correlationIdHeader); got != "cid-123" {
		t.Fatalf("expected correlation id echoed, got %q", got)
	}
}

func TestNotFound(t *testing.T) {
	r := testRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if rec.Header().Get(correlationIdHeader) == "" {
		t.Fatalf("expected generated correlation id")
	}
}

func TestTicketCSVHandler(t *testing.T) {
	cases := []struct {
		policy       string
		wantTicket   int
		wantSinStock bool
	}{
		{"", 1, true},
		{"split", 1, true},
		{"complete", 3, false},
	}
	for _, tc := range cases {
		t.Run("policy="+tc.policy, func(t *testing.T) {
			r := testRouter(t)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, multipartRequest(t, "/api/ticket/csv", map[string]string{"policy": tc.policy}, bothFiles(t)...))
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
			}

			var resp ticketCSVResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if resp.Summary.TicketRows != tc.wantTicket {
				t.Fatalf("expected %d ticket rows, got %+v", tc.wantTicket, resp.Summary)
			}
			if lines := strings.Count(resp.TicketCsv, "\n"); lines != tc.wantTicket+1 {
				t.Fatalf("expected %d csv lines, got %d:\n%s", tc.wantTicket+1, lines, resp.TicketCsv)
			}
			if (resp.SinStockCsv != nil) != tc.wantSinStock {
				t.Fatalf("sinStockCsv presence = %v, want %v", resp.SinStockCsv != nil, tc.wantSinStock)
			}
		})
	}
}

func TestTicketHandlers_BadRequests(t *testing.T) {
	cases := []struct {
		name   string
		target string
		fields map[string]string
		files  func(t *testing.T) []formFile
		status int
	}{
		{
			name:   "missing stock file",
			target: "/api/ticket/csv",
			files: func(t *testing.T) []formFile {
				return bothFiles(t)[:1]
			},
			status: http.StatusBadRequest,
		},
		{
			name:   "unknown policy",
			target: "/api/ticket/csv",
			fields: map[string]string{"policy": "partial"},
			files:  bothFiles,
			status: http.StatusBadRequest,
		},
		{
			name:   "unknown layout",
			target: "/api/ticket/xlsx",
			fields: map[string]string{"layout": "pdf"},
			files:  bothFiles,
			status: http.StatusBadRequest,
		},
		{
			name:   "unsupported file type",
			target: "/api/sin-stock/xlsx",
			files: func(t *testing.T) []formFile {
				files := bothFiles(t)
				files[1] = formFile{field: stockFileField, name: "stock.pdf", mime: "application/pdf", body: []byte("%PDF")}
				return files
			},
			status: http.StatusBadRequest,
		},
		{
			name:   "corrupt workbook",
			target: "/api/excel/convert",
			files: func(t *testing.T) []formFile {
				return []formFile{{field: orderFileField, name: "pedido.xlsx", mime: utils.MimeTypeXlsx, body: []byte("not a zip")}}
			},
			status: http.StatusBadRequest,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := testRouter(t)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, multipartRequest(t, tc.target, tc.fields, tc.files(t)...))
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
			var body map[string]any
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body["error"] == nil {
				t.Fatalf("expected json error body, got %s", rec.Body.String())
			}
		})
	}
}

func TestWorkbookHandlers(t *testing.T) {
	cases := []struct {
		target   string
		fields   map[string]string
		sheet    string
		fileName string
	}{
		{"/api/ticket/xlsx", map[string]string{"clientName": "Bar Pepe"}, reports.TicketSheetName, "pedido_ticket.xlsx"},
		{"/api/ticket/xlsx", map[string]string{"layout": "formatted"}, reports.FormattedSheetName, "pedido_ticket.xlsx"},
		{"/api/sin-stock/xlsx", nil, reports.SinStockSheetName, "pedido_sin_stock.xlsx"},
	}
	for _, tc := range cases {
		t.Run(tc.sheet, func(t *testing.T) {
			r := testRouter(t)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, multipartRequest(t, tc.target, tc.fields, bothFiles(t)...))
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
			}
			if ct := rec.Header().Get("Content-Type"); ct != utils.MimeTypeXlsx {
				t.Fatalf("unexpected content type %q", ct)
			}
			if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, tc.fileName) {
				t.Fatalf("expected %q in %q", tc.fileName, cd)
			}
			f, err := excelize.OpenReader(rec.Body)
			if err != nil {
				t.Fatalf("OpenReader: %v", err)
			}
			defer f.Close()
			if sheets := f.GetSheetList(); len(sheets) != 1 || sheets[0] != tc.sheet {
				t.Fatalf("expected sheet %q, got %v", tc.sheet, sheets)
			}
			if tc.sheet == reports.TicketSheetName {
				if v, _ := f.GetCellValue(tc.sheet, "B2"); v != "Bar Pepe" {
					t.Fatalf("expected client name in B2, got %q", v)
				}
			}
		})
	}
}

func TestConvertHandler(t *testing.T) {
	r := testRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, multipartRequest(t, "/api/excel/convert", nil,
		formFile{field: orderFileField, name: "pedido.xlsx", mime: utils.MimeTypeXlsx, body: testOrderWorkbook(t)}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, `filename="pedido.csv"`) {
		t.Fatalf("unexpected disposition %q", cd)
	}
	if !strings.HasPrefix(rec.Body.String(), "Código,Descripción,Precio\n") {
		t.Fatalf("unexpected csv:\n%s", rec.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r := testRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, multipartRequest(t, "/api/ticket/csv", nil, bothFiles(t)...))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), `ticket_runs_total{policy="split"} 1`) {
		t.Fatalf("expected run counter in exposition:\n%s", rec.Body.String())
	}
}

func TestRateLimiter_PassesWithoutRedis(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := NewRateLimiter(func() *redis.Client { return nil }, 1, 0)
	r := gin.New()
	r.Use(limiter.RateLimitMiddleware)
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}
}
