package importer

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/JonMunkholm/inventory/internal/core"
	"github.com/shopspring/decimal"
)

// headerRowOffset turns a zero-based data row index into the line number a
// user sees in a spreadsheet: one for the header and one for 1-based counting.
const headerRowOffset = 2

// requiredFields are checked in this order; the first empty one is reported.
var requiredFields = []string{
	FieldName, FieldDescription, FieldCategory, FieldPrice, FieldBarcode, FieldAvailability,
}

var errPriceNotNumber = errors.New("price must be a number")

// RowError reports why one row was not imported.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// Candidate is a fully normalized row ready to be created.
type Candidate struct {
	Row   int
	Input core.ProductInput
}

// ValidateRows normalizes every row and splits them into candidates and row
// errors. A bad row never stops the rows after it.
func ValidateRows(rows [][]string, hm HeaderMap) ([]Candidate, []RowError) {
	var (
		candidates []Candidate
		rowErrors  []RowError
	)

	for i, row := range rows {
		line := i + headerRowOffset

		if len(row) < hm.Count {
			rowErrors = append(rowErrors, RowError{
				Row:     line,
				Message: fmt.Sprintf("Expected at least %d columns, got %d", hm.Count, len(row)),
			})
			continue
		}

		in, err := normalizeRow(row, hm)
		if err != nil {
			rowErrors = append(rowErrors, RowError{Row: line, Message: err.Error()})
			continue
		}

		candidates = append(candidates, Candidate{Row: line, Input: in})
	}

	return candidates, rowErrors
}

func normalizeRow(row []string, hm HeaderMap) (core.ProductInput, error) {
	values := make(map[string]string, len(hm.Columns))
	for field, idx := range hm.Columns {
		if idx < len(row) {
			values[field] = strings.TrimSpace(row[idx])
		}
	}

	for _, f := range requiredFields {
		if values[f] == "" {
			return core.ProductInput{}, fmt.Errorf("%s is required", f)
		}
	}

	price, err := parsePrice(values[FieldPrice])
	if err != nil {
		return core.ProductInput{}, err
	}

	availability := core.NormalizeAvailability(values[FieldAvailability])
	if availability == "" {
		return core.ProductInput{}, fmt.Errorf("availability must be %s or %s", core.InStock, core.OutOfStock)
	}

	unit := core.NormalizeUnit(values[FieldPriceUnit])
	if !core.IsPriceUnit(unit) {
		return core.ProductInput{}, fmt.Errorf("priceUnit must be one of %s", strings.Join(core.PriceUnits, ", "))
	}

	return core.ProductInput{
		Name:         values[FieldName],
		Description:  values[FieldDescription],
		Category:     values[FieldCategory],
		Price:        core.PriceOf(price),
		Barcode:      values[FieldBarcode],
		Availability: availability,
		PriceUnit:    unit,
		ImageKeys:    []string{},
	}, nil
}

// parsePrice reads a spreadsheet price such as "$1,234.50". A cell holding
// only currency symbols cleans to "" and is rejected rather than read as 0.
func parsePrice(raw string) (float64, error) {
	d, err := decimal.NewFromString(core.CleanPriceString(raw))
	if err != nil {
		return 0, errPriceNotNumber
	}
	f, _ := d.Float64()
	if math.IsInf(f, 0) {
		return 0, errPriceNotNumber
	}
	return f, nil
}
