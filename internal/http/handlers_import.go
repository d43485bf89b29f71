package http

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/core"
	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/importer"
)

var zipMagic = []byte("PK\x03\x04")

// allowedUploadType accepts the spreadsheet MIME types plus the generic
// ones browsers fall back to; the zip magic check covers the rest.
func allowedUploadType(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	switch mediaType {
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"application/vnd.ms-excel.sheet.macroenabled.12",
		"application/zip",
		"application/octet-stream":
		return true
	}
	return false
}

// handleImport accepts a multipart spreadsheet upload and runs the
// import pipeline. Fatal preconditions map to 4xx with the failed
// result body; a completed run always answers 200, its per-row outcome
// is inside the ImportResult.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.identify(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds the size limit")
			return
		}
		writeError(w, http.StatusBadRequest, "expected a multipart form upload")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	if ext := strings.ToLower(filepath.Ext(header.Filename)); ext != ".xlsx" && ext != ".xlsm" {
		writeError(w, http.StatusUnsupportedMediaType, "only .xlsx uploads are supported")
		return
	}
	if !allowedUploadType(header.Header.Get("Content-Type")) {
		writeError(w, http.StatusUnsupportedMediaType, "only .xlsx uploads are supported")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read upload")
		return
	}

	// An .xlsx file is a zip archive; check the magic bytes rather than
	// trusting the client-declared type.
	if !bytes.HasPrefix(data, zipMagic) {
		writeError(w, http.StatusUnsupportedMediaType, "upload is not a spreadsheet file")
		return
	}

	result, err := s.planning.ImportWorkbook(r.Context(), identity.UserID, data)
	if err != nil {
		slog.ErrorContext(r.Context(), "Import failed",
			"user_id", identity.UserID,
			"file", header.Filename,
			"error", err)
		writeJSON(w, importStatus(err), result)
		return
	}
	if result.ImportedCount > 0 {
		s.overviewCache.InvalidateUser(identity.UserID)
	}
	writeJSON(w, http.StatusOK, result)
}

// handleImportSheet runs the import pipeline against the configured
// shared-sheet invoice source instead of an uploaded file.
func (s *Server) handleImportSheet(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.identify(w, r)
	if !ok {
		return
	}
	if s.invoiceSource == nil {
		writeError(w, http.StatusServiceUnavailable, "no invoice sheet is configured")
		return
	}

	result, err := s.planning.ImportFromSource(r.Context(), identity.UserID, s.invoiceSource)
	if err != nil {
		slog.ErrorContext(r.Context(), "Sheet import failed",
			"user_id", identity.UserID,
			"error", err)
		if result == nil {
			writeError(w, importStatus(err), "sheet import failed")
			return
		}
		writeJSON(w, importStatus(err), result)
		return
	}
	if result.ImportedCount > 0 {
		s.overviewCache.InvalidateUser(identity.UserID)
	}
	writeJSON(w, http.StatusOK, result)
}

// importStatus maps fatal pipeline errors onto HTTP statuses.
func importStatus(err error) int {
	switch {
	case errors.Is(err, core.ErrMissingIdentity):
		return http.StatusUnauthorized
	case errors.Is(err, importer.ErrUnreadable),
		errors.Is(err, importer.ErrBadTemplate),
		errors.Is(err, importer.ErrNoDataRows):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
