package workflow

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"bitbucket.org/mmdatafocus/ticket_backend/config"
	"bitbucket.org/mmdatafocus/ticket_backend/metrics"
	"bitbucket.org/mmdatafocus/ticket_backend/models"
	"bitbucket.org/mmdatafocus/ticket_backend/models/reports"
	"bitbucket.org/mmdatafocus/ticket_backend/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Layout selects how the ticket workbook is laid out.
type Layout string

const (
	LayoutPedido    Layout = "pedido"
	LayoutFormatted Layout = "formatted"
)

// ParseLayout accepts "" (pedido), "pedido" or "formatted".
func ParseLayout(s string) (Layout, error) {
	switch Layout(s) {
	case "", LayoutPedido:
		return LayoutPedido, nil
	case LayoutFormatted:
		return LayoutFormatted, nil
	}
	return "", fmt.Errorf("unknown layout %q: %w", s, utils.ErrBadRequest)
}

// Upload is one input file as received from the caller.
type Upload struct {
	Field    string
	FileName string
	Body     io.Reader
}

// TicketInput is everything a single reconciliation run needs.
type TicketInput struct {
	Order  Upload
	Stock  Upload
	Policy models.Policy
}

// Run is the result of one reconciliation.
type Run struct {
	ID             string
	Reconciliation models.Reconciliation
	StockRows      int
	At             time.Time
}

type TicketWorkflow struct {
	store          utils.UploadStore
	logger         *logrus.Logger
	metrics        *metrics.Registry
	tracer         trace.Tracer
	droppedColumns []string
	now            func() time.Time
}

type Option func(*TicketWorkflow)

func WithMetrics(m *metrics.Registry) Option {
	return func(w *TicketWorkflow) { w.metrics = m }
}

func WithDroppedColumns(names []string) Option {
	return func(w *TicketWorkflow) { w.droppedColumns = names }
}

func WithClock(now func() time.Time) Option {
	return func(w *TicketWorkflow) { w.now = now }
}

func NewTicketWorkflow(store utils.UploadStore, logger *logrus.Logger, opts ...Option) *TicketWorkflow {
	w := &TicketWorkflow{
		store:          store,
		logger:         logger,
		tracer:         otel.Tracer("ticket-workflow"),
		droppedColumns: models.DefaultDroppedStockColumns,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Reconcile stores both uploads, reads them and joins the order against the
// stock extract. Stored uploads are removed before it returns.
func (w *TicketWorkflow) Reconcile(ctx context.Context, in TicketInput) (*Run, error) {
	runID := uuid.NewString()
	ctx = utils.SetRunIdInContext(ctx, runID)
	ctx, span := w.tracer.Start(ctx, "TicketWorkflow.Reconcile",
		trace.WithAttributes(attribute.String("run_id", runID), attribute.String("policy", string(in.Policy))))
	defer span.End()
	started := w.now()
	files := map[string]string{"order": in.Order.FileName, "stock": in.Stock.FileName}

	if !in.Policy.IsValid() {
		err := fmt.Errorf("unknown policy %q: %w", in.Policy, utils.ErrBadRequest)
		w.fail(ctx, span, "validate", files, err)
		return nil, err
	}

	orderRows, err := w.readUpload(ctx, in.Order, utils.ReadTableRows)
	if err != nil {
		w.fail(ctx, span, "read_order", files, err)
		return nil, err
	}
	stockRows, err := w.readUpload(ctx, in.Stock, utils.ReadTableRows)
	if err != nil {
		w.fail(ctx, span, "read_stock", files, err)
		return nil, err
	}

	orders := models.ParseOrderRows(orderRows)
	stockRecords := models.RecordsFromRows(stockRows)
	index := models.BuildStockIndex(stockRecords, models.WithDroppedColumns(w.droppedColumns...))
	result := models.Reconcile(orders, index, in.Policy)
	summary := result.Summary()

	span.SetAttributes(
		attribute.Int("orders", summary.Orders),
		attribute.Int("ticket_rows", summary.TicketRows),
		attribute.Int("exceptions", summary.Exceptions),
	)
	w.observe(summary, index, w.now().Sub(started))

	cid, _ := utils.GetCorrelationIdFromContext(ctx)
	w.logger.WithFields(logrus.Fields{
		"field":          "TicketWorkflow.Reconcile",
		"run_id":         runID,
		"correlation_id": cid,
		"policy":         summary.Policy,
		"orders":         summary.Orders,
		"fulfilled":      summary.Fulfilled,
		"depleted":       summary.Depleted,
		"unmatched":      summary.Unmatched,
		"stock_codes":    index.Len(),
		"stock_skipped":  index.Skipped(),
		"stock_dupes":    index.Duplicates(),
	}).Info("reconciliation finished")

	return &Run{ID: runID, Reconciliation: result, StockRows: len(stockRecords), At: started}, nil
}

// Convert returns the first sheet of an uploaded workbook as CSV, cells
// rendered with their number formats.
func (w *TicketWorkflow) Convert(ctx context.Context, in Upload) (string, error) {
	ctx, span := w.tracer.Start(ctx, "TicketWorkflow.Convert")
	defer span.End()

	rows, err := w.readUpload(ctx, in, utils.ReadDisplayRows)
	if err != nil {
		w.fail(ctx, span, "convert", in.FileName, err)
		return "", err
	}
	return utils.WriteCSV(rows)
}

type rowReader func(fileName string, r io.Reader) ([][]string, error)

func (w *TicketWorkflow) readUpload(ctx context.Context, in Upload, read rowReader) ([][]string, error) {
	if in.Body == nil {
		return nil, fmt.Errorf("%s: %w", in.Field, utils.ErrMissingFile)
	}
	key, err := w.store.Save(ctx, utils.ObjectKey(in.Field, in.FileName), in.Body)
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", in.Field, err)
	}
	defer utils.DeleteUpload(context.WithoutCancel(ctx), w.store, key)

	rc, err := w.store.Open(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", in.Field, err)
	}
	defer rc.Close()

	rows, err := read(in.FileName, rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", in.Field, err)
	}
	return rows, nil
}

func (w *TicketWorkflow) observe(s models.Summary, index *models.StockIndex, elapsed time.Duration) {
	if w.metrics == nil {
		return
	}
	w.metrics.Runs.WithLabelValues(string(s.Policy)).Inc()
	w.metrics.Lines.WithLabelValues(string(models.LineFulfilled)).Add(float64(s.Fulfilled))
	w.metrics.Lines.WithLabelValues(string(models.LineDepleted)).Add(float64(s.Depleted))
	w.metrics.Lines.WithLabelValues(string(models.LineUnmatched)).Add(float64(s.Unmatched))
	w.metrics.StockSkipped.Add(float64(index.Skipped()))
	w.metrics.StockDuplicates.Add(float64(index.Duplicates()))
	w.metrics.RunDuration.Observe(elapsed.Seconds())
}

func (w *TicketWorkflow) fail(ctx context.Context, span trace.Span, stage string, data any, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, stage)
	w.metrics.Fail(stage)
	if utils.IsBadRequest(err) {
		return
	}
	cid, _ := utils.GetCorrelationIdFromContext(ctx)
	rid, _ := utils.GetRunIdFromContext(ctx)
	config.LogError(w.logger, "workflow/ticketWorkflow.go", "TicketWorkflow", stage+" correlation_id="+cid+" run_id="+rid, data, err)
}

// TicketCSV is the ticket as delimited text.
func (r *Run) TicketCSV() (string, error) {
	return utils.WriteCSV(models.NewRecordSet(r.Reconciliation.TicketRecords()).Table())
}

// SinStockCSV is the exception report as delimited text. The complete policy
// keeps every line on the ticket, so it has no exception report.
func (r *Run) SinStockCSV() (string, bool, error) {
	if r.Reconciliation.Policy == models.PolicyComplete {
		return "", false, nil
	}
	out, err := utils.WriteCSV(models.NewRecordSet(r.Reconciliation.ExceptionRecords()).Table())
	return out, true, err
}

// TicketWorkbook renders the ticket in the requested layout.
func (r *Run) TicketWorkbook(layout Layout, header reports.TicketHeader) (*bytes.Buffer, error) {
	records := r.Reconciliation.TicketRecords()
	if layout == LayoutFormatted {
		return reports.WriteWorkbook(reports.RenderFormattedReport(models.NewRecordSet(records), reports.DefaultTicketRoles))
	}
	return reports.WriteWorkbook(reports.RenderTicketReport(records, header, r.At))
}

// SinStockWorkbook renders the exception report.
func (r *Run) SinStockWorkbook() (*bytes.Buffer, error) {
	return reports.WriteWorkbook(reports.RenderSinStockReport(r.Reconciliation.ExceptionRecords(), r.At))
}
