package http

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/isnex/invoice-loader/internal/application/port"
	"github.com/isnex/invoice-loader/internal/application/service"
	"github.com/isnex/invoice-loader/internal/domain/entity"
)

// Version is reported by the service info endpoint
var Version = "2.0.0"

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Ingester processes one submitted document
type Ingester interface {
	Process(ctx context.Context, sub entity.Submission) *service.Result
}

// Summarizer sends daily digests
type Summarizer interface {
	Send(ctx context.Context, tenant string, day time.Time) (*port.DailySummary, error)
	SendAll(ctx context.Context, day time.Time) ([]*port.DailySummary, error)
}

// WritableChecker reports whether artifact storage accepts files
type WritableChecker interface {
	CheckWritable() error
}

// Handlers contains all HTTP request handlers
type Handlers struct {
	ingest   Ingester
	summary  Summarizer
	invoices port.PrimaryStore
	staging  port.SecondaryStore
	storage  WritableChecker
	logger   *zap.Logger
}

// NewHandlers creates a new Handlers instance. staging may be nil.
func NewHandlers(
	ingest Ingester,
	summary Summarizer,
	invoices port.PrimaryStore,
	staging port.SecondaryStore,
	storage WritableChecker,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		ingest:   ingest,
		summary:  summary,
		invoices: invoices,
		staging:  staging,
		storage:  storage,
		logger:   logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string `json:"status"`
	Timestamp  string `json:"timestamp"`
	StorageOK  bool   `json:"storage_ok"`
	DatabaseOK bool   `json:"database_ok"`
}

// InvoiceRequest is the intake payload sent by the mail poller
type InvoiceRequest struct {
	FileB64      string `json:"file_b64" binding:"required"`
	Filename     string `json:"filename"`
	MessageID    string `json:"message_id"`
	GmailID      string `json:"gmail_id"`
	From         string `json:"from"`
	Subject      string `json:"subject"`
	ReceivedDate string `json:"received_date"`
	Tenant       string `json:"customer_name"`
}

// SyncStatusRequest reports the downstream accounting outcome of an invoice
type SyncStatusRequest struct {
	SyncID       *int64 `json:"nex_genesis_id"`
	Status       string `json:"status" binding:"required"`
	ErrorMessage string `json:"error_message"`
}

// DailySummaryRequest selects the digest to send
type DailySummaryRequest struct {
	Tenant string `json:"customer_name"`
	Day    string `json:"day"`
}

// ServiceInfo handles GET /
func (h *Handlers) ServiceInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "Supplier Invoice Loader",
		"version": Version,
		"status":  "operational",
	})
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	resp := HealthResponse{
		Status:     "healthy",
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		StorageOK:  true,
		DatabaseOK: true,
	}

	if err := h.storage.CheckWritable(); err != nil {
		h.logger.Warn("Storage check failed", zap.Error(err))
		resp.StorageOK = false
	}
	if err := h.invoices.Ping(c.Request.Context()); err != nil {
		h.logger.Warn("Database check failed", zap.Error(err))
		resp.DatabaseOK = false
	}

	status := http.StatusOK
	if !resp.StorageOK || !resp.DatabaseOK {
		resp.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

// SubmitInvoice handles POST /api/v1/invoice
func (h *Handlers) SubmitInvoice(c *gin.Context) {
	var req InvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid invoice request", zap.Error(err))
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, Response{Success: false, Error: "payload too large"})
			return
		}
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	content, err := base64.StdEncoding.DecodeString(strings.TrimSpace(req.FileB64))
	if err != nil {
		h.logger.Warn("Invalid base64 payload", zap.String("filename", req.Filename), zap.Error(err))
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "file_b64 is not valid base64"})
		return
	}

	filename := req.Filename
	if filename == "" {
		filename = "invoice.pdf"
	}

	result := h.ingest.Process(c.Request.Context(), entity.Submission{
		Content:    content,
		Filename:   filename,
		MessageID:  req.MessageID,
		GmailID:    req.GmailID,
		Sender:     req.From,
		Subject:    req.Subject,
		ReceivedAt: parseReceivedDate(req.ReceivedDate),
		Tenant:     req.Tenant,
	})

	c.JSON(resultStatus(result), result)
}

// ListInvoices handles GET /api/v1/invoices
func (h *Handlers) ListInvoices(c *gin.Context) {
	records, err := h.invoices.List(c.Request.Context(), c.Query("tenant"), listLimit(c))
	if err != nil {
		h.logger.Error("Failed to list invoices", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to retrieve invoices"})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: nonNil(records)})
}

// GetInvoice handles GET /api/v1/invoices/:id
func (h *Handlers) GetInvoice(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	h.respondRecord(c, func(ctx context.Context) (*entity.InvoiceRecord, error) {
		return h.invoices.GetByID(ctx, id)
	})
}

// GetBySyncID handles GET /api/v1/sync/:sync_id
func (h *Handlers) GetBySyncID(c *gin.Context) {
	id, ok := h.parseID(c, "sync_id")
	if !ok {
		return
	}
	h.respondRecord(c, func(ctx context.Context) (*entity.InvoiceRecord, error) {
		return h.invoices.GetBySyncID(ctx, id)
	})
}

// UpdateSyncStatus handles POST /api/v1/invoices/:id/sync
func (h *Handlers) UpdateSyncStatus(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	var req SyncStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}
	if !entity.IsValidSyncStatus(req.Status) {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "unknown sync status"})
		return
	}

	updated, err := h.invoices.UpdateSyncStatus(c.Request.Context(), id, entity.SyncUpdate{
		SyncID:       req.SyncID,
		Status:       req.Status,
		ErrorMessage: req.ErrorMessage,
	})
	if err != nil {
		h.logger.Error("Failed to update sync status", zap.Int64("invoice_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to update sync status"})
		return
	}
	if !updated {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "invoice not found"})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true})
}

// ListPendingSync handles GET /api/v1/sync/pending
func (h *Handlers) ListPendingSync(c *gin.Context) {
	records, err := h.invoices.ListPendingSync(c.Request.Context(), c.Query("tenant"), listLimit(c))
	if err != nil {
		h.logger.Error("Failed to list pending invoices", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to retrieve invoices"})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: nonNil(records)})
}

// Stats handles GET /api/v1/stats
func (h *Handlers) Stats(c *gin.Context) {
	stats, err := h.invoices.Stats(c.Request.Context(), c.Query("tenant"))
	if err != nil {
		h.logger.Error("Failed to compute stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to compute stats"})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: stats})
}

// Tenants handles GET /api/v1/tenants
func (h *Handlers) Tenants(c *gin.Context) {
	tenants, err := h.invoices.Tenants(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list tenants", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to list tenants"})
		return
	}
	if tenants == nil {
		tenants = []string{}
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: tenants})
}

// StagingHealth handles GET /api/v1/staging/health
func (h *Handlers) StagingHealth(c *gin.Context) {
	if h.staging == nil {
		c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{"enabled": false}})
		return
	}
	if err := h.staging.TestConnection(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, Response{
			Success: false,
			Data:    gin.H{"enabled": true, "connected": false},
			Error:   err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{"enabled": true, "connected": true}})
}

// SendDailySummary handles POST /api/v1/admin/daily-summary
func (h *Handlers) SendDailySummary(c *gin.Context) {
	var req DailySummaryRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
			return
		}
	}

	day := time.Now().UTC()
	if req.Day != "" {
		parsed, err := time.Parse("2006-01-02", req.Day)
		if err != nil {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: "day must be YYYY-MM-DD"})
			return
		}
		day = parsed
	}

	var (
		summaries []*port.DailySummary
		err       error
	)
	if req.Tenant != "" {
		var summary *port.DailySummary
		summary, err = h.summary.Send(c.Request.Context(), req.Tenant, day)
		if summary != nil {
			summaries = append(summaries, summary)
		}
	} else {
		summaries, err = h.summary.SendAll(c.Request.Context(), day)
	}

	if err != nil {
		h.logger.Error("Daily summary failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, Response{Success: false, Data: nonNil(summaries), Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: nonNil(summaries)})
}

func (h *Handlers) parseID(c *gin.Context, param string) (int64, bool) {
	raw := c.Param(param)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		h.logger.Warn("Invalid ID", zap.String(param, raw))
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid " + param})
		return 0, false
	}
	return id, true
}

func (h *Handlers) respondRecord(c *gin.Context, get func(ctx context.Context) (*entity.InvoiceRecord, error)) {
	rec, err := get(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to get invoice", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to retrieve invoice"})
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "invoice not found"})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: rec})
}

// resultStatus maps a pipeline outcome to an HTTP status.
// Accepted and duplicate submissions are both 200.
func resultStatus(res *service.Result) int {
	if res.Outcome != service.OutcomeFailed {
		return http.StatusOK
	}
	switch res.ErrorKind {
	case service.KindInvalidInput:
		return http.StatusBadRequest
	case service.KindExtraction:
		return http.StatusUnprocessableEntity
	case service.KindPrimaryStore:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

var receivedLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseReceivedDate accepts ISO timestamps and mail Date headers.
// Unparseable values are dropped.
func parseReceivedDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range receivedLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	if t, err := mail.ParseDate(raw); err == nil {
		return t
	}
	return time.Time{}
}

func listLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultListLimit)))
	if err != nil || limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
