package web

// errors.go turns handler errors into responses.
//
// The technical error is logged with the request id; the client gets the
// core.MapError message as JSON, an HTMX fragment, or plain text.

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/JonMunkholm/inventory/internal/core"
	"github.com/JonMunkholm/inventory/internal/importer"
	"github.com/JonMunkholm/inventory/internal/logging"
	"github.com/JonMunkholm/inventory/internal/lookup"
	"github.com/JonMunkholm/inventory/internal/web/templates"
	"github.com/go-chi/chi/v5"
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor picks the HTTP status for err.
func statusFor(err error) int {
	var (
		le       *lookup.Error
		tooLarge *http.MaxBytesError
	)
	switch {
	case core.IsValidation(err):
		return http.StatusBadRequest
	case core.IsNotFound(err):
		return http.StatusNotFound
	case core.IsConflict(err):
		return http.StatusConflict
	case errors.As(err, &le):
		return le.Status
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusServiceUnavailable
	case errors.Is(err, importer.ErrHeaderMismatch),
		errors.Is(err, importer.ErrEmptyFile),
		errors.Is(err, errNoFile),
		strings.Contains(err.Error(), "invalid csv"),
		strings.Contains(err.Error(), "invalid workbook"):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// userMessage maps err for the client. Proxy failures keep their own
// message.
func userMessage(err error) core.UserMessage {
	var le *lookup.Error
	if errors.As(err, &le) {
		return core.UserMessage{Message: le.Message, Action: "Check the request and try again", Code: "LKP001"}
	}
	return core.MapError(err)
}

// failureMessages names the operation behind each route, for 500 bodies.
var failureMessages = map[string]string{
	"POST /api/products":        "Failed to create product",
	"GET /api/products":         "Failed to list products",
	"GET /api/products/export":  "Failed to export products",
	"POST /api/products/import": "Failed to import products",
	"GET /api/products/{id}":    "Failed to get product",
	"PUT /api/products/{id}":    "Failed to update product",
	"DELETE /api/products/{id}": "Failed to delete product",
	"POST /api/upload-url":      "Failed to create upload URL",
	"GET /api/image-url":        "Failed to create image URL",
	"POST /api/barcode-lookup":  "Barcode lookup proxy failed",
	"POST /api/image-proxy":     "Image proxy failed",
}

// failureMessage returns the operation message for the matched route.
func failureMessage(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if msg, ok := failureMessages[r.Method+" "+rctx.RoutePattern()]; ok {
			return msg
		}
	}
	return "Request failed"
}

// errorBody builds the response body for err. A 500 names the failed
// operation in message and carries the technical cause in error.
func errorBody(r *http.Request, err error, statusCode int) ErrorResponse {
	body := bodyOf(userMessage(err))
	var le *lookup.Error
	if statusCode == http.StatusInternalServerError && !errors.As(err, &le) {
		body.Message = failureMessage(r)
		body.Error = err.Error()
	}
	return body
}

func bodyOf(msg core.UserMessage) ErrorResponse {
	return ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	}
}

// respondError logs err and writes the response for the request type.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	body := errorBody(r, err, statusCode)

	log := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", body.Code,
	}
	if statusCode >= http.StatusInternalServerError {
		log.Error("request error", attrs...)
	} else {
		log.Warn("request rejected", attrs...)
	}

	switch {
	case isHTMX(r):
		renderErrorPartial(w, r, body, statusCode)
	case wantsJSON(r):
		respondErrorJSON(w, body, statusCode)
	default:
		http.Error(w, body.Message+" ("+body.Code+")", statusCode)
	}
}

// respondErr is respondError with the status derived from err.
func (s *Server) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	s.respondError(w, r, err, statusFor(err))
}

// respondErrorJSON writes a JSON error response.
func respondErrorJSON(w http.ResponseWriter, body ErrorResponse, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// renderErrorPartial renders an HTMX-compatible error fragment.
func renderErrorPartial(w http.ResponseWriter, r *http.Request, body ErrorResponse, statusCode int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	templates.ErrorAlert(body.Message, body.Action, body.Code).Render(r.Context(), w)
}

// isHTMX checks if the request is an HTMX request.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON checks if the client prefers a JSON response. API routes
// default to JSON.
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.Contains(r.Header.Get("Content-Type"), "application/json") ||
		strings.HasPrefix(r.URL.Path, "/api/")
}

// clientIP returns the request's client address without the port.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
