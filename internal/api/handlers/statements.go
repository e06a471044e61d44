package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hy4k/aurelius/internal/api/middleware"
	"github.com/hy4k/aurelius/internal/dataset"
	"github.com/hy4k/aurelius/internal/jobs"
)

// allowedMIMETypes is the upload whitelist: statements arrive as PDF, CSV,
// XLSX or a photo/scan.
var allowedMIMETypes = map[string]struct{}{
	"application/pdf": {},
	"text/csv":        {},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": {},
	"image/jpeg": {},
	"image/png":  {},
}

// StatementsHandler handles statement upload and lifecycle endpoints.
type StatementsHandler struct {
	holder         *dataset.Holder
	publisher      jobs.Publisher
	maxUploadBytes int64
	log            zerolog.Logger
}

// NewStatementsHandler creates a new statements handler.
func NewStatementsHandler(holder *dataset.Holder, publisher jobs.Publisher, maxUploadBytes int64, log zerolog.Logger) *StatementsHandler {
	return &StatementsHandler{
		holder:         holder,
		publisher:      publisher,
		maxUploadBytes: maxUploadBytes,
		log:            log,
	}
}

// Upload handles POST /api/statements.
// The local guards run before anything else: an oversize or unsupported file
// is rejected here and never reaches the extraction model.
func (h *StatementsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Slack for multipart framing on top of the file size limit.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+1<<20)

	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			middleware.WriteError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("File exceeds the %d MB upload limit", h.maxUploadBytes>>20))
			return
		}
		middleware.WriteError(w, http.StatusBadRequest, "Invalid multipart request")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "A 'file' form field is required")
		return
	}
	defer file.Close()

	if header.Size > h.maxUploadBytes {
		middleware.WriteError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("File exceeds the %d MB upload limit", h.maxUploadBytes>>20))
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if _, ok := allowedMIMETypes[mimeType]; !ok {
		middleware.WriteError(w, http.StatusUnsupportedMediaType,
			"Unsupported file type: upload a PDF, CSV, XLSX, JPEG or PNG statement")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read upload")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to read uploaded file")
		return
	}

	job := &jobs.ExtractStatementJob{
		JobID:    uuid.New().String(),
		Filename: filepath.Base(header.Filename),
		MIMEType: mimeType,
		Data:     data,
		Status:   jobs.JobStatusPending,
	}

	// Once published, the job pointer belongs to the worker; respond from
	// values captured before the handoff.
	jobID := job.JobID
	filename := job.Filename
	status := job.Status

	if err := h.publisher.PublishExtractStatement(ctx, job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue extraction job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue extraction")
		return
	}

	h.log.Info().
		Str("job_id", jobID).
		Str("filename", filename).
		Str("mime_type", mimeType).
		Int("bytes", len(data)).
		Msg("Extraction job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id":   jobID,
		"filename": filename,
		"status":   string(status),
	})
}

// Get handles GET /api/statements: metadata of the currently loaded result.
func (h *StatementsHandler) Get(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.holder.Snapshot()
	if !ok {
		middleware.WriteError(w, http.StatusNotFound, "No statement loaded")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"bank_name":         snap.BankName,
		"account_number":    snap.AccountNumber,
		"currency":          snap.Currency,
		"transaction_count": len(snap.Transactions),
	})
}

// Delete handles DELETE /api/statements: the "start over" action.
func (h *StatementsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.holder.Clear()
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// JobsHandler handles extraction-job status endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{store: store, log: log}
}

// GetJob handles GET /api/jobs/{id}.
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs.
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	filter := jobs.JobFilter{
		Status: jobs.JobStatus(r.URL.Query().Get("status")),
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
