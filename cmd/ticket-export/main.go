package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"bitbucket.org/mmdatafocus/ticket_backend/config"
	"bitbucket.org/mmdatafocus/ticket_backend/models"
	"bitbucket.org/mmdatafocus/ticket_backend/models/reports"
	"bitbucket.org/mmdatafocus/ticket_backend/utils"
	"bitbucket.org/mmdatafocus/ticket_backend/workflow"
)

type exportOptions struct {
	orderPath string
	stockPath string
	policy    models.Policy
	layout    workflow.Layout
	outDir    string
	client    string
}

func main() {
	orderPath := flag.String("order", "", "Order workbook (.xlsx) or CSV. Required.")
	stockPath := flag.String("stock", "", "Stock extract (.csv or .xlsx). Required.")
	policyFlag := flag.String("policy", "split", "Reconciliation policy: split or complete.")
	layoutFlag := flag.String("layout", "pedido", "Ticket workbook layout: pedido or formatted.")
	outDir := flag.String("out", ".", "Output directory.")
	client := flag.String("client", "", "Optional: client name for the Pedido header.")
	flag.Parse()

	if strings.TrimSpace(*orderPath) == "" || strings.TrimSpace(*stockPath) == "" {
		flag.Usage()
		os.Exit(2)
	}
	policy, err := models.ParsePolicy(*policyFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	layout, err := workflow.ParseLayout(*layoutFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	s, err := run(exportOptions{
		orderPath: *orderPath,
		stockPath: *stockPath,
		policy:    policy,
		layout:    layout,
		outDir:    *outDir,
		client:    *client,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("policy=%s orders=%d ticket=%d exceptions=%d (fulfilled=%d depleted=%d unmatched=%d)\n",
		s.Policy, s.Orders, s.TicketRows, s.Exceptions, s.Fulfilled, s.Depleted, s.Unmatched)
}

// run reconciles the two files and writes the reports next to each other in
// opts.outDir. The scratch upload dir is removed on every return path.
func run(opts exportOptions) (models.Summary, error) {
	logger := config.GetLogger()
	scratch, err := os.MkdirTemp("", "ticket-export-")
	if err != nil {
		return models.Summary{}, fmt.Errorf("failed to create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)
	store, err := utils.NewLocalStore(scratch)
	if err != nil {
		return models.Summary{}, fmt.Errorf("failed to create store: %w", err)
	}
	wf := workflow.NewTicketWorkflow(store, logger, workflow.WithDroppedColumns(config.DroppedStockColumns()))

	orderFile, err := os.Open(opts.orderPath)
	if err != nil {
		return models.Summary{}, fmt.Errorf("failed to open order: %w", err)
	}
	defer orderFile.Close()
	stockFile, err := os.Open(opts.stockPath)
	if err != nil {
		return models.Summary{}, fmt.Errorf("failed to open stock: %w", err)
	}
	defer stockFile.Close()

	ctx := utils.SetCorrelationIdInContext(context.Background(), "ticket-export")
	result, err := wf.Reconcile(ctx, workflow.TicketInput{
		Order:  workflow.Upload{Field: "excelFile", FileName: filepath.Base(opts.orderPath), Body: orderFile},
		Stock:  workflow.Upload{Field: "csvFile", FileName: filepath.Base(opts.stockPath), Body: stockFile},
		Policy: opts.policy,
	})
	if err != nil {
		return models.Summary{}, fmt.Errorf("reconciliation failed: %w", err)
	}

	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return models.Summary{}, fmt.Errorf("failed to create output dir: %w", err)
	}
	base := filepath.Join(opts.outDir, strings.TrimSuffix(filepath.Base(opts.orderPath), filepath.Ext(opts.orderPath)))

	ticketCSV, err := result.TicketCSV()
	if err != nil {
		return models.Summary{}, fmt.Errorf("ticket csv: %w", err)
	}
	if err := os.WriteFile(base+"_ticket.csv", []byte(ticketCSV), 0o644); err != nil {
		return models.Summary{}, fmt.Errorf("write ticket csv: %w", err)
	}
	ticketBook, err := result.TicketWorkbook(opts.layout, reports.TicketHeader{ClientName: opts.client})
	if err != nil {
		return models.Summary{}, fmt.Errorf("ticket workbook: %w", err)
	}
	if err := writeBuffer(base+"_ticket.xlsx", ticketBook); err != nil {
		return models.Summary{}, fmt.Errorf("write ticket workbook: %w", err)
	}

	sinStockCSV, ok, err := result.SinStockCSV()
	if err != nil {
		return models.Summary{}, fmt.Errorf("sin stock csv: %w", err)
	}
	if ok {
		if err := os.WriteFile(base+"_sin_stock.csv", []byte(sinStockCSV), 0o644); err != nil {
			return models.Summary{}, fmt.Errorf("write sin stock csv: %w", err)
		}
		sinStockBook, err := result.SinStockWorkbook()
		if err != nil {
			return models.Summary{}, fmt.Errorf("sin stock workbook: %w", err)
		}
		if err := writeBuffer(base+"_sin_stock.xlsx", sinStockBook); err != nil {
			return models.Summary{}, fmt.Errorf("write sin stock workbook: %w", err)
		}
	}

	return result.Reconciliation.Summary(), nil
}

func writeBuffer(path string, buf *bytes.Buffer) error {
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
