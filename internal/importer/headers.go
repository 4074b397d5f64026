package importer

import (
	"errors"
	"regexp"
	"strings"
)

// Import field names, in the order they are reported.
const (
	FieldName         = "name"
	FieldDescription  = "description"
	FieldCategory     = "category"
	FieldPrice        = "price"
	FieldBarcode      = "barcode"
	FieldAvailability = "availability"
	FieldPriceUnit    = "priceUnit"
)

// RequiredColumns must all resolve for an import to start.
var RequiredColumns = []string{
	FieldName, FieldDescription, FieldAvailability, FieldBarcode,
	FieldCategory, FieldPrice, FieldPriceUnit,
}

// ErrHeaderMismatch rejects an upload whose header does not cover every
// required column.
var ErrHeaderMismatch = errors.New("CSV header mismatch. Required columns: name, description, category, price, barcode, availability, priceUnit")

// headerSynonyms lists the accepted spellings per field, before
// canonicalization.
var headerSynonyms = map[string][]string{
	FieldName:         {"name", "product", "productname"},
	FieldDescription:  {"description", "desc", "details"},
	FieldAvailability: {"availability", "status", "stock"},
	FieldBarcode:      {"barcode", "sku", "code", "upc", "ean"},
	FieldCategory:     {"category", "cat", "type"},
	FieldPrice:        {"price", "amount", "cost"},
	FieldPriceUnit:    {"priceunit", "unit", "uom", "price_unit", "per", "perunit"},
}

// canonicalHeaders maps a canonical header spelling to its field.
var canonicalHeaders = func() map[string]string {
	m := make(map[string]string)
	for field, names := range headerSynonyms {
		for _, n := range names {
			m[canonicalHeader(n)] = field
		}
	}
	return m
}()

var headerNoise = regexp.MustCompile(`[_\s]+`)

// canonicalHeader lowercases h and removes whitespace and underscores, so
// "Price Unit", "price_unit" and "PRICEUNIT" compare equal.
func canonicalHeader(h string) string {
	return headerNoise.ReplaceAllString(strings.ToLower(h), "")
}

// HeaderMap records which column holds each field.
type HeaderMap struct {
	// OK is true when every required column resolved.
	OK bool

	// Columns maps field name to zero-based column index.
	Columns map[string]int

	// Count is the number of fields that resolved.
	Count int
}

// Column returns the index of field, or -1.
func (h HeaderMap) Column(field string) int {
	if i, ok := h.Columns[field]; ok {
		return i
	}
	return -1
}

// BuildHeaderMap resolves header names onto fields. When two columns name
// the same field the first one wins.
func BuildHeaderMap(header []string) HeaderMap {
	cols := make(map[string]int, len(RequiredColumns))
	for i, h := range header {
		field, ok := canonicalHeaders[canonicalHeader(h)]
		if !ok {
			continue
		}
		if _, seen := cols[field]; !seen {
			cols[field] = i
		}
	}

	ok := true
	for _, f := range RequiredColumns {
		if _, found := cols[f]; !found {
			ok = false
			break
		}
	}

	return HeaderMap{OK: ok, Columns: cols, Count: len(cols)}
}
