package web

import (
	"net/http"

	"github.com/JonMunkholm/inventory/internal/core"
)

// handleUploadURL issues a pre-signed image upload URL.
func (s *Server) handleUploadURL(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

	var req core.UploadRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondErr(w, r, err)
		return
	}

	ticket, err := s.service.UploadURL(r.Context(), req)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

// handleImageURL returns a short-lived download URL for ?key=.
func (s *Server) handleImageURL(w http.ResponseWriter, r *http.Request) {
	url, err := s.service.ImageURL(r.Context(), r.URL.Query().Get("key"))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}
