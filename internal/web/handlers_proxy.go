package web

import (
	"net/http"

	"github.com/JonMunkholm/inventory/internal/lookup"
)

type imageProxyRequest struct {
	URL string `json:"url"`
}

// handleBarcodeLookup forwards a barcode query and relays the upstream
// status and body unchanged.
func (s *Server) handleBarcodeLookup(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

	var req lookup.BarcodeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondErr(w, r, err)
		return
	}

	resp, err := s.proxies.Barcodes.Lookup(r.Context(), req)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	contentType := resp.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(resp.Status)
	w.Write(resp.Body)
}

// handleImageProxy downloads a remote image and returns it as a data URL.
func (s *Server) handleImageProxy(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

	var req imageProxyRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondErr(w, r, err)
		return
	}

	img, err := s.proxies.Images.Fetch(r.Context(), req.URL)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, img)
}
