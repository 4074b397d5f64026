package web

import (
	"net/http"
	"strconv"

	"github.com/JonMunkholm/inventory/internal/core"
	"github.com/JonMunkholm/inventory/internal/importer"
	"github.com/JonMunkholm/inventory/internal/logging"
	"github.com/go-chi/chi/v5"
)

// maxJSONBody bounds product and proxy request bodies.
const maxJSONBody = 1 << 20

// listResponse is one page of the product list. LastKey is omitted on the
// last page.
type listResponse struct {
	Items   []core.Product `json:"items"`
	LastKey string         `json:"lastKey,omitempty"`
}

// handleCreateProduct creates a product from the JSON body.
func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

	in, err := core.DecodeProductInput(r.Body)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	p, err := s.service.CreateProduct(r.Context(), in)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, p)
}

// handleUpdateProduct replaces the product named in the path.
func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

	in, err := core.DecodeProductInput(r.Body)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	p, err := s.service.UpdateProduct(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// handleDeleteProduct deletes the product named in the path.
func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetProduct returns one product.
func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := s.service.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleListProducts returns one page of products.
//
// Query parameters: limit, availability, lastKey.
func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, err := s.service.ListProducts(r.Context(), core.ListQuery{
		Limit:        parseLimit(q.Get("limit")),
		Availability: q.Get("availability"),
		PageToken:    q.Get("lastKey"),
	})
	if err != nil {
		s.respondErr(w, r, err)
		return
	}

	items := page.Items
	if items == nil {
		items = []core.Product{}
	}
	writeJSON(w, http.StatusOK, listResponse{Items: items, LastKey: page.NextToken})
}

// handleExportProducts streams the whole catalogue as CSV.
func (s *Server) handleExportProducts(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="products.csv"`)

	n, err := importer.Export(r.Context(), s.service, w)
	if err != nil {
		// Nothing has been written yet: Export buffers rows until every page
		// has been read.
		w.Header().Del("Content-Disposition")
		s.respondErr(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("products exported", "count", n)
}

// parseLimit parses the limit query parameter. Missing or malformed
// values become 0, which the service replaces with its default.
func parseLimit(raw string) int {
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0
	}
	return n
}
