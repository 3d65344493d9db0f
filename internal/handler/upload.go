package handler

import (
	"log/slog"
	"net/http"

	"github.com/riskinn/riskinn-api/internal/apperror"
	"github.com/riskinn/riskinn-api/internal/service"
)

// UploadHandler accepts multipart file uploads and stores them in the
// object store.
type UploadHandler struct {
	svc    *service.UploadService
	logger *slog.Logger
}

func NewUploadHandler(svc *service.UploadService, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{svc: svc, logger: logger}
}

// HandleUpload stores one file from the "file" multipart field.
//
// POST /api/v1/upload (authenticated)
func (h *UploadHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if !h.svc.Enabled() {
		writeError(w, apperror.Configuration("object storage bucket"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, service.MaxUploadSize+1<<20)
	if err := r.ParseMultipartForm(service.MaxUploadSize); err != nil {
		writeError(w, apperror.ValidationFailed("file", "Invalid or oversized multipart request"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, apperror.ValidationFailed("file", "A file is required in the \"file\" field"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	result, err := h.svc.Upload(r.Context(), header.Filename, contentType, file, header.Size)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}
