package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/JonMunkholm/inventory/internal/importer"
	"github.com/JonMunkholm/inventory/internal/logging"
	"github.com/JonMunkholm/inventory/internal/web/templates"
)

var errNoFile = errors.New("no file provided")

// importResponse is the JSON result of a bulk import.
type importResponse struct {
	*importer.Summary
	Message string `json:"message"`
}

// handleImportProducts imports a CSV or XLSX file from the multipart field
// "file". HTMX callers get the summary as an HTML fragment.
func (s *Server) handleImportProducts(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, r, fmt.Errorf("file too large: %w", err), http.StatusRequestEntityTooLarge)
			return
		}
		s.respondError(w, r, fmt.Errorf("%w: %v", errNoFile, err), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, errNoFile, http.StatusBadRequest)
		return
	}
	defer file.Close()

	release, err := s.service.AcquireImport(r.Context())
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	defer release()

	ctx := r.Context()
	if s.cfg.Import.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Import.Timeout)
		defer cancel()
	}

	table, err := importer.Parse(header.Filename, file)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	summary, err := s.importer.Run(ctx, table)
	if summary == nil {
		s.respondErr(w, r, err)
		return
	}
	if err != nil {
		logging.FromContext(ctx).Warn("import stopped early",
			"file", header.Filename,
			"added", summary.AddedCount,
			"error", err,
		)
	}

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		templates.ImportSummary(summary).Render(r.Context(), w)
		return
	}
	writeJSON(w, http.StatusOK, importResponse{Summary: summary, Message: summary.Text()})
}
