package core

// input.go defines the typed request payload for product writes.
//
// Bodies are decoded strictly: unknown fields and JSON type mismatches are
// rejected here, before any business rule runs. A JSON null is treated the
// same as an absent field.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ProductInput is the payload accepted by create and update.
type ProductInput struct {
	Name           string   `json:"name" validate:"required"`
	Description    string   `json:"description" validate:"required"`
	Category       string   `json:"category" validate:"required"`
	Price          Price    `json:"price" validate:"required,finite,nonnegative"`
	Barcode        string   `json:"barcode" validate:"required"`
	Availability   string   `json:"availability" validate:"required,availability"`
	PriceUnit      string   `json:"priceUnit,omitempty" validate:"omitempty,priceunit"`
	AreaLocation   string   `json:"areaLocation,omitempty" validate:"omitempty,arealocation"`
	ScaleNeed      *bool    `json:"scaleNeed,omitempty"`
	ImageKeys      []string `json:"imageKeys,omitempty" validate:"omitempty,max=2"`
	DeleteKeys     []string `json:"deleteKeys,omitempty"`
	AllergySummary *string  `json:"allergySummary,omitempty"`
}

// Price holds the JSON literal of a price exactly as it was sent, so the
// validator can tell a missing price from one that is not a number.
// Only JSON numbers parse; a quoted "12" is present but invalid.
type Price string

// PriceOf returns the Price for a parsed amount.
func PriceOf(v float64) Price {
	return Price(strconv.FormatFloat(v, 'f', -1, 64))
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Price) UnmarshalJSON(b []byte) error {
	lit := strings.TrimSpace(string(b))
	if lit == "null" || lit == `""` {
		*p = ""
		return nil
	}
	*p = Price(lit)
	return nil
}

// Float returns the price and whether it is a finite number.
func (p Price) Float() (float64, bool) {
	f, err := strconv.ParseFloat(string(p), 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// typeMessages gives the message for a JSON type mismatch per field.
var typeMessages = map[string]string{
	"imageKeys":  "imageKeys must be an array of strings",
	"deleteKeys": "deleteKeys must be an array of strings",
	"scaleNeed":  "scaleNeed must be a boolean",
}

// DecodeProductInput reads one JSON object from r into a ProductInput.
// Decoding problems are returned as ValidationError.
func DecodeProductInput(r io.Reader) (ProductInput, error) {
	var in ProductInput

	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&in); err != nil {
		return ProductInput{}, decodeError(err)
	}
	if dec.More() {
		return ProductInput{}, ValidationError{Message: "request body must contain a single JSON object"}
	}

	return in, nil
}

func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError

	switch {
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if i := strings.IndexAny(field, ".["); i >= 0 {
			field = field[:i]
		}
		if msg, ok := typeMessages[field]; ok {
			return ValidationError{Field: field, Message: msg}
		}
		if field == "" {
			return ValidationError{Message: "request body must be a JSON object"}
		}
		return ValidationError{Field: field, Message: fmt.Sprintf("%s must be a string", field)}

	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return ValidationError{Message: "request body is not valid JSON"}

	case errors.Is(err, io.EOF):
		return ValidationError{Message: "request body is required"}

	case strings.HasPrefix(err.Error(), "json: unknown field "):
		name := strings.TrimPrefix(err.Error(), "json: unknown field ")
		return ValidationError{Field: strings.Trim(name, `"`), Message: "unknown field " + name}
	}

	return ValidationError{Message: err.Error()}
}
