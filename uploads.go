package main

import (
	"bytes"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"bitbucket.org/mmdatafocus/ticket_backend/config"
	"bitbucket.org/mmdatafocus/ticket_backend/models"
	"bitbucket.org/mmdatafocus/ticket_backend/models/reports"
	"bitbucket.org/mmdatafocus/ticket_backend/utils"
	"bitbucket.org/mmdatafocus/ticket_backend/workflow"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

const (
	orderFileField = "excelFile"
	stockFileField = "csvFile"
)

type ticketRequest struct {
	Policy string `form:"policy" validate:"omitempty,oneof=complete split"`
	Layout string `form:"layout" validate:"omitempty,oneof=pedido formatted"`
	reports.TicketHeader
}

type ticketCSVResponse struct {
	TicketCsv   string         `json:"ticketCsv"`
	SinStockCsv *string        `json:"sinStockCsv,omitempty"`
	Summary     models.Summary `json:"summary"`
}

// formUpload opens a multipart file after checking its name, declared MIME
// type and size.
func formUpload(c *gin.Context, field string) (workflow.Upload, multipart.File, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return workflow.Upload{}, nil, fmt.Errorf("%s: %w", field, utils.ErrMissingFile)
		}
		return workflow.Upload{}, nil, fmt.Errorf("%s: %v: %w", field, err, utils.ErrBadRequest)
	}
	if fh.Size > config.MaxUploadBytes() {
		return workflow.Upload{}, nil, fmt.Errorf("%s (%d bytes): %w", field, fh.Size, utils.ErrFileTooLarge)
	}
	if !utils.AllowedUpload(fh.Filename, fh.Header.Get("Content-Type")) {
		return workflow.Upload{}, nil, fmt.Errorf("%s %q: %w", field, fh.Filename, utils.ErrUnsupportedFile)
	}
	f, err := fh.Open()
	if err != nil {
		return workflow.Upload{}, nil, fmt.Errorf("open %s: %w", field, err)
	}
	return workflow.Upload{Field: field, FileName: fh.Filename, Body: f}, f, nil
}

// bindTicketRequest reads the form fields shared by the ticket routes.
func bindTicketRequest(c *gin.Context) (ticketRequest, error) {
	var req ticketRequest
	if err := c.ShouldBind(&req); err != nil {
		return req, fmt.Errorf("invalid form: %v: %w", err, utils.ErrBadRequest)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return req, err
	}
	return req, nil
}

// reconcileForm runs one reconciliation over the two uploaded files.
func reconcileForm(c *gin.Context, wf *workflow.TicketWorkflow, policy models.Policy) (*workflow.Run, error) {
	order, orderFile, err := formUpload(c, orderFileField)
	if err != nil {
		return nil, err
	}
	defer orderFile.Close()
	stock, stockFile, err := formUpload(c, stockFileField)
	if err != nil {
		return nil, err
	}
	defer stockFile.Close()

	return wf.Reconcile(c.Request.Context(), workflow.TicketInput{Order: order, Stock: stock, Policy: policy})
}

func respondError(c *gin.Context, logger *logrus.Logger, funcName string, err error) {
	if utils.IsBadRequest(err) {
		body := gin.H{"error": err.Error()}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			body["fields"] = utils.ProcessValidationErrors(err)
		}
		status := http.StatusBadRequest
		if errors.Is(err, utils.ErrFileTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		c.JSON(status, body)
		return
	}
	cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
	config.LogError(logger, "uploads.go", funcName, "correlation_id="+cid, nil, err)
	_ = c.Error(err)
	message := "failed to process files"
	if !config.IsProduction() {
		message = fmt.Sprintf("failed to process files: %v", err)
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": message})
}

func sendWorkbook(c *gin.Context, fileName string, buf *bytes.Buffer) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, fileName))
	c.Data(http.StatusOK, utils.MimeTypeXlsx, buf.Bytes())
}

func baseName(fileName string) string {
	base := filepath.Base(fileName)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// convertHandler returns the first sheet of the uploaded workbook as CSV.
func convertHandler(wf *workflow.TicketWorkflow, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		upload, f, err := formUpload(c, orderFileField)
		if err != nil {
			respondError(c, logger, "convertHandler", err)
			return
		}
		defer f.Close()

		out, err := wf.Convert(c.Request.Context(), upload)
		if err != nil {
			respondError(c, logger, "convertHandler", err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.csv"`, baseName(upload.FileName)))
		c.Data(http.StatusOK, utils.MimeTypeCsv+"; charset=utf-8", []byte(out))
	}
}

// ticketCSVHandler returns the ticket (and, for the split policy, the sin
// stock report) as CSV text with the run summary.
func ticketCSVHandler(wf *workflow.TicketWorkflow, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, err := bindTicketRequest(c)
		if err != nil {
			respondError(c, logger, "ticketCSVHandler", err)
			return
		}
		policy, err := models.ParsePolicy(req.Policy)
		if err != nil {
			respondError(c, logger, "ticketCSVHandler", err)
			return
		}
		run, err := reconcileForm(c, wf, policy)
		if err != nil {
			respondError(c, logger, "ticketCSVHandler", err)
			return
		}

		resp := ticketCSVResponse{Summary: run.Reconciliation.Summary()}
		if resp.TicketCsv, err = run.TicketCSV(); err != nil {
			respondError(c, logger, "ticketCSVHandler", err)
			return
		}
		sinStock, ok, err := run.SinStockCSV()
		if err != nil {
			respondError(c, logger, "ticketCSVHandler", err)
			return
		}
		if ok {
			resp.SinStockCsv = &sinStock
		}
		c.JSON(http.StatusOK, resp)
	}
}

// ticketXlsxHandler returns the ticket workbook in the requested layout.
func ticketXlsxHandler(wf *workflow.TicketWorkflow, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, err := bindTicketRequest(c)
		if err != nil {
			respondError(c, logger, "ticketXlsxHandler", err)
			return
		}
		policy, err := models.ParsePolicy(req.Policy)
		if err != nil {
			respondError(c, logger, "ticketXlsxHandler", err)
			return
		}
		layout, err := workflow.ParseLayout(req.Layout)
		if err != nil {
			respondError(c, logger, "ticketXlsxHandler", err)
			return
		}
		run, err := reconcileForm(c, wf, policy)
		if err != nil {
			respondError(c, logger, "ticketXlsxHandler", err)
			return
		}
		buf, err := run.TicketWorkbook(layout, req.TicketHeader)
		if err != nil {
			respondError(c, logger, "ticketXlsxHandler", err)
			return
		}
		fh, _ := c.FormFile(orderFileField)
		sendWorkbook(c, baseName(fh.Filename)+"_ticket.xlsx", buf)
	}
}

// sinStockXlsxHandler returns the exception workbook. The report only exists
// for the split policy.
func sinStockXlsxHandler(wf *workflow.TicketWorkflow, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		run, err := reconcileForm(c, wf, models.PolicySplit)
		if err != nil {
			respondError(c, logger, "sinStockXlsxHandler", err)
			return
		}
		buf, err := run.SinStockWorkbook()
		if err != nil {
			respondError(c, logger, "sinStockXlsxHandler", err)
			return
		}
		fh, _ := c.FormFile(orderFileField)
		sendWorkbook(c, baseName(fh.Filename)+"_sin_stock.xlsx", buf)
	}
}
