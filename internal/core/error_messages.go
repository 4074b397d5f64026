package core

// error_messages.go maps errors to user-facing messages with support codes.
//
// Domain errors keep their own message, since it was written for the user:
//
//	VAL001 - Validation: the request was rejected by a product rule
//	CON001 - Conflict: barcode or record already exists
//	NF001  - Not found: the product does not exist
//
// Everything else is matched case-insensitively against the pattern table
// below; the first match wins, so specific patterns come first:
//
//	DB004   - Store unreachable                 "connection refused"
//	DB005   - Store connection interrupted      "connection reset"
//	DB006   - Store timed out                   "timeout", "i/o timeout"
//	FILE001 - Upload too large                  "file too large", "request body too large"
//	FILE002 - Not a readable CSV                "invalid csv"
//	FILE003 - Not a readable workbook           "invalid workbook"
//	FILE004 - No file                           "no file provided"
//	FILE005 - Empty file                        "empty file"
//	IMP001  - Import slots exhausted            "too many imports"
//	IMP002  - Header did not resolve            "csv header mismatch"
//	UPL004  - Request cancelled                 "context canceled"
//	UPL005  - Request deadline exceeded         "context deadline exceeded"
//	RATE001 - Rate limited                      "rate limit"
//	ERR000  - Anything else; check the server log for the technical error

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Cancellation is checked before "timeout" so deadlines keep their own code.
	{"context canceled", UserMessage{"Request was cancelled", "Please try again", "UPL004"}},
	{"context deadline exceeded", UserMessage{"Request timed out", "Try again, or import a smaller file", "UPL005"}},

	// =========================================================================
	// Store connectivity
	// =========================================================================
	{"connection refused", UserMessage{"Unable to reach the product store", "Please try again in a few moments", "DB004"}},
	{"connection reset", UserMessage{"Product store connection was interrupted", "Please try again", "DB005"}},
	{"timeout", UserMessage{"Operation timed out", "Please try again later", "DB006"}},

	// =========================================================================
	// Files and imports
	// =========================================================================
	{"file too large", UserMessage{"File exceeds the maximum upload size", "Split the file into smaller chunks", "FILE001"}},
	{"request body too large", UserMessage{"File exceeds the maximum upload size", "Split the file into smaller chunks", "FILE001"}},
	{"invalid csv", UserMessage{"File is not a valid CSV", "Ensure the file is comma-separated text", "FILE002"}},
	{"invalid workbook", UserMessage{"File is not a valid Excel workbook", "Save the file as .xlsx or export it as CSV", "FILE003"}},
	{"no file provided", UserMessage{"No file was selected", "Please select a CSV or XLSX file", "FILE004"}},
	{"empty file", UserMessage{"The uploaded file is empty", "Please upload a file with a header and data rows", "FILE005"}},
	{"too many imports", UserMessage{"Other imports are still running", "Please wait a moment and try again", "IMP001"}},
	{"csv header mismatch", UserMessage{
		"CSV header mismatch. Required columns: name, description, category, price, barcode, availability, priceUnit",
		"Rename the header row or add the missing columns",
		"IMP002",
	}},

	// =========================================================================
	// Rate limiting
	// =========================================================================
	{"rate limit", UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error to a user-facing message.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var ve ValidationError
	var ce ConflictError
	var ne NotFoundError
	switch {
	case errors.As(err, &ve):
		return UserMessage{Message: ve.Message, Action: "Correct the highlighted field and resubmit", Code: "VAL001"}
	case errors.As(err, &ce):
		return UserMessage{Message: ce.Message, Action: "Use a different barcode or refresh and try again", Code: "CON001"}
	case errors.As(err, &ne):
		return UserMessage{Message: ne.Message, Action: "Refresh the product list", Code: "NF001"}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}
