package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/RishiKendai/textguard/internal/config"
	"github.com/RishiKendai/textguard/internal/models"
	"github.com/RishiKendai/textguard/internal/plagiarism"
	"github.com/RishiKendai/textguard/internal/repository"
	"github.com/RishiKendai/textguard/internal/vault"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	defaultReportLimit = 20
	maxReportLimit     = 100
)

type DocumentStore interface {
	ListDocuments(ctx context.Context) ([]*models.Document, error)
	CountDocuments(ctx context.Context) (int64, error)
	DeleteDocument(ctx context.Context, id string) error
}

type ReportStore interface {
	InsertReport(ctx context.Context, record *models.ReportRecord) error
	GetReport(ctx context.Context, runID string) (*models.ReportRecord, error)
	ListReports(ctx context.Context, limit int64) ([]*models.ReportRecord, error)
	CompleteReport(ctx context.Context, runID string, report *plagiarism.Report) error
	UpdateReportStatus(ctx context.Context, runID, status, errMsg string) error
}

type StatusTracker interface {
	UpdateStatus(ctx context.Context, runID string, step models.Step) error
	GetStatus(ctx context.Context, runID string) (models.Step, error)
}

// DocumentReader decrypts stored documents for comparison and download
type DocumentReader interface {
	plagiarism.TextLoader
	LoadDocument(ctx context.Context, id string) (*models.Document, []byte, error)
}

type Ingester interface {
	Ingest(ctx context.Context, submission *models.Submission) (*models.Document, error)
}

// Handler holds dependencies for handlers
type Handler struct {
	cfg            *config.Config
	documents      DocumentStore
	reports        ReportStore
	status         StatusTracker
	ingester       Ingester
	loader         DocumentReader
	comparator     *plagiarism.Comparator
	computeSem     chan struct{}
	computeTimeout time.Duration
}

func NewHandler(
	cfg *config.Config,
	documents DocumentStore,
	reports ReportStore,
	status StatusTracker,
	ingester Ingester,
	loader DocumentReader,
	comparator *plagiarism.Comparator,
) *Handler {
	return &Handler{
		cfg:            cfg,
		documents:      documents,
		reports:        reports,
		status:         status,
		ingester:       ingester,
		loader:         loader,
		comparator:     comparator,
		computeSem:     make(chan struct{}, cfg.MaxConcurrentCompute),
		computeTimeout: cfg.ComputationTimeout,
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// UploadDocuments ingests every file of the multipart "files" field.
// Rejected files are reported alongside the stored ones.
func (h *Handler) UploadDocuments(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Expected multipart form with files",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "No files provided",
			Code:  "NO_FILES",
		})
		return
	}

	ctx := c.Request.Context()
	resp := models.UploadResponse{
		UploadedFiles: make([]*models.Document, 0, len(files)),
	}

	for _, fh := range files {
		if fh.Size > h.cfg.MaxUploadBytes {
			resp.Errors = append(resp.Errors, fmt.Sprintf("%s: exceeds %d bytes", fh.Filename, h.cfg.MaxUploadBytes))
			continue
		}

		content, err := readFormFile(fh.Open, h.cfg.MaxUploadBytes)
		if err != nil {
			resp.Errors = append(resp.Errors, fmt.Sprintf("%s: %v", fh.Filename, err))
			continue
		}

		doc, err := h.ingester.Ingest(ctx, &models.Submission{
			Filename: fh.Filename,
			Content:  content,
			Source:   models.SourceUpload,
		})
		if err != nil {
			log.Warn().Err(err).Str("filename", fh.Filename).Msg("Upload rejected")
			resp.Errors = append(resp.Errors, fmt.Sprintf("%s: %v", fh.Filename, err))
			continue
		}
		resp.UploadedFiles = append(resp.UploadedFiles, doc)
	}

	resp.TotalUploaded = len(resp.UploadedFiles)
	resp.Message = fmt.Sprintf("Successfully uploaded %d files", resp.TotalUploaded)

	statusCode := http.StatusOK
	if resp.TotalUploaded == 0 {
		statusCode = http.StatusBadRequest
	}
	c.JSON(statusCode, resp)
}

func readFormFile(open func() (multipart.File, error), limit int64) ([]byte, error) {
	f, err := open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(content)) > limit {
		return nil, fmt.Errorf("exceeds %d bytes", limit)
	}
	return content, nil
}

func (h *Handler) ListDocuments(c *gin.Context) {
	docs, err := h.documents.ListDocuments(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list documents")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "Failed to list documents",
			Code:  "INTERNAL_ERROR",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"documents": docs,
		"total":     len(docs),
	})
}

// DownloadDocument returns the decrypted text of one stored document as a file
func (h *Handler) DownloadDocument(c *gin.Context) {
	id := c.Param("id")

	doc, content, err := h.loader.LoadDocument(c.Request.Context(), id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "Document not found",
			Code:  "DOCUMENT_NOT_FOUND",
		})
		return
	case errors.Is(err, vault.ErrInvalidCiphertext):
		log.Error().Err(err).Str("documentId", id).Msg("Stored document cannot be decrypted")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "Failed to decrypt document",
			Code:  "DECRYPT_FAILED",
		})
		return
	case err != nil:
		log.Error().Err(err).Str("documentId", id).Msg("Failed to load document")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "Failed to load document",
			Code:  "INTERNAL_ERROR",
		})
		return
	}

	filename := doc.Filename
	if filename == "" {
		filename = id + ".txt"
	}
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", content)
}

func (h *Handler) DeleteDocument(c *gin.Context) {
	id := c.Param("id")

	err := h.documents.DeleteDocument(c.Request.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "Document not found",
			Code:  "DOCUMENT_NOT_FOUND",
		})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("documentId", id).Msg("Failed to delete document")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "Failed to delete document",
			Code:  "INTERNAL_ERROR",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// CreateReport starts an asynchronous comparison run and answers 202 with its run id
func (h *Handler) CreateReport(c *gin.Context) {
	var req models.ComputeRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	ctx := c.Request.Context()
	method := plagiarism.ParseMethod(req.Method)
	ids := uniqueIDs(req.DocumentIDs)

	if err := h.validateComputePayload(ctx, ids); err != nil {
		if errors.Is(err, plagiarism.ErrInsufficientDocuments) {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: err.Error(),
				Code:  "INSUFFICIENT_DOCUMENTS",
			})
			return
		}
		log.Error().Err(err).Msg("Failed to check documents")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "Failed to check documents",
			Code:  "INTERNAL_ERROR",
		})
		return
	}

	// Bounded concurrency
	select {
	case h.computeSem <- struct{}{}:
	case <-ctx.Done():
		c.JSON(http.StatusRequestTimeout, ErrorResponse{
			Error: "Request cancelled",
			Code:  "REQUEST_TIMEOUT",
		})
		return
	}

	runID := uuid.NewString()
	record := &models.ReportRecord{
		RunID:       runID,
		Method:      method,
		DocumentIDs: ids,
		Status:      models.ReportPending,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.reports.InsertReport(ctx, record); err != nil {
		<-h.computeSem
		log.Error().Err(err).Str("runId", runID).Msg("Failed to create pending report")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "Failed to create report",
			Code:  "INTERNAL_ERROR",
		})
		return
	}

	if err := h.status.UpdateStatus(ctx, runID, models.StepInitiated); err != nil {
		log.Warn().Err(err).Str("runId", runID).Msg("Failed to update initiated status")
	}

	c.JSON(http.StatusAccepted, models.ComputeResponse{
		Step:  models.StepInitiated,
		RunID: runID,
	})

	go h.processComputation(runID, method, ids)
}

func (h *Handler) validateComputePayload(ctx context.Context, ids []string) error {
	if len(ids) > 0 {
		if len(ids) < 2 {
			return fmt.Errorf("%w: got %d", plagiarism.ErrInsufficientDocuments, len(ids))
		}
		return nil
	}

	count, err := h.documents.CountDocuments(ctx)
	if err != nil {
		return err
	}
	if count < 2 {
		return fmt.Errorf("%w: %d stored", plagiarism.ErrInsufficientDocuments, count)
	}
	return nil
}

// processComputation runs a comparison in the background and records its outcome
func (h *Handler) processComputation(runID string, method plagiarism.Method, ids []string) {
	defer func() { <-h.computeSem }()

	ctx, cancel := context.WithTimeout(context.Background(), h.computeTimeout)
	defer cancel()

	h.setStep(ctx, runID, models.StepLoading)

	if len(ids) == 0 {
		docs, err := h.documents.ListDocuments(ctx)
		if err != nil {
			h.failComputation(ctx, runID, fmt.Errorf("failed to list documents: %w", err))
			return
		}
		ids = make([]string, 0, len(docs))
		for _, doc := range docs {
			ids = append(ids, doc.ID)
		}
	}

	h.setStep(ctx, runID, models.StepComparing)

	report, err := h.comparator.CompareFrom(ctx, h.loader, ids, method)
	if err != nil {
		h.failComputation(ctx, runID, err)
		return
	}

	if err := h.reports.CompleteReport(ctx, runID, report); err != nil {
		h.failComputation(ctx, runID, fmt.Errorf("failed to store report: %w", err))
		return
	}

	h.setStep(ctx, runID, models.StepCompleted)
	log.Info().
		Str("runId", runID).
		Str("method", string(report.Method)).
		Int("comparisons", report.Summary.TotalComparisons).
		Msg("Report completed")
}

func (h *Handler) failComputation(ctx context.Context, runID string, cause error) {
	log.Error().Err(cause).Str("runId", runID).Msg("Computation failed")

	// The run context may already be done; the failure still has to be recorded
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := h.reports.UpdateReportStatus(storeCtx, runID, models.ReportFailed, cause.Error()); err != nil {
		log.Error().Err(err).Str("runId", runID).Msg("Failed to mark report as failed")
	}
	h.setStep(storeCtx, runID, models.StepFailed)
}

func (h *Handler) setStep(ctx context.Context, runID string, step models.Step) {
	if err := h.status.UpdateStatus(ctx, runID, step); err != nil {
		log.Warn().Err(err).Str("runId", runID).Str("step", string(step)).Msg("Failed to update status")
	}
}

func (h *Handler) ListReports(c *gin.Context) {
	limit := defaultReportLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: "limit must be a positive integer",
				Code:  "INVALID_LIMIT",
			})
			return
		}
		limit = min(n, maxReportLimit)
	}

	records, err := h.reports.ListReports(c.Request.Context(), int64(limit))
	if err != nil {
		log.Error().Err(err).Msg("Failed to list reports")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "Failed to list reports",
			Code:  "INTERNAL_ERROR",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reports": records,
		"total":   len(records),
	})
}

func (h *Handler) GetReport(c *gin.Context) {
	record, ok := h.lookupReport(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, record)
}

// GetReportStatus answers from Redis and falls back to the stored record once the status key expired
func (h *Handler) GetReportStatus(c *gin.Context) {
	runID := c.Param("runId")

	step, err := h.status.GetStatus(c.Request.Context(), runID)
	if err != nil {
		log.Warn().Err(err).Str("runId", runID).Msg("Failed to read status")
	}
	if err == nil && step != models.StepIdle {
		c.JSON(http.StatusOK, models.StatusResponse{RunID: runID, Step: step})
		return
	}

	record, ok := h.lookupReport(c)
	if !ok {
		return
	}

	switch record.Status {
	case models.ReportCompleted:
		step = models.StepCompleted
	case models.ReportFailed:
		step = models.StepFailed
	default:
		step = models.StepInitiated
	}
	c.JSON(http.StatusOK, models.StatusResponse{RunID: runID, Step: step})
}

func (h *Handler) lookupReport(c *gin.Context) (*models.ReportRecord, bool) {
	runID := c.Param("runId")

	record, err := h.reports.GetReport(c.Request.Context(), runID)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "Report not found",
			Code:  "REPORT_NOT_FOUND",
		})
		return nil, false
	}
	if err != nil {
		log.Error().Err(err).Str("runId", runID).Msg("Failed to get report")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "Failed to get report",
			Code:  "INTERNAL_ERROR",
		})
		return nil, false
	}
	return record, true
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
