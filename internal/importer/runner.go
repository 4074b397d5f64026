package importer

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/JonMunkholm/inventory/internal/core"
	"github.com/JonMunkholm/inventory/internal/logging"
)

// Creator creates one product. *core.Service satisfies it.
type Creator interface {
	CreateProduct(ctx context.Context, in core.ProductInput) (*core.Product, error)
}

// Summary is the outcome of one import.
type Summary struct {
	AddedCount            int        `json:"addedCount"`
	FailedCount           int        `json:"failedCount"`
	ValidationFailedCount int        `json:"validationFailedCount"`
	WriteFailedCount      int        `json:"writeFailedCount"`
	RowErrors             []RowError `json:"rowErrors"`
	Cancelled             bool       `json:"cancelled,omitempty"`
}

// Text renders the summary line shown after an import.
func (s *Summary) Text() string {
	return fmt.Sprintf("Import complete. Added: %d. Failed: %d.", s.AddedCount, s.FailedCount)
}

// Importer runs validated rows through a Creator.
type Importer struct {
	creator Creator
}

// New returns an Importer that writes through c.
func New(c Creator) *Importer {
	return &Importer{creator: c}
}

// Run imports t and returns its summary.
//
// Rows are created one at a time in input order. A failed create is
// recorded against its row and the import carries on. If ctx ends, no
// further rows are submitted and the partial summary is returned together
// with ctx's error.
func (im *Importer) Run(ctx context.Context, t Table) (*Summary, error) {
	hm := BuildHeaderMap(t.Header)
	if !hm.OK {
		return nil, ErrHeaderMismatch
	}

	log := logging.WithFields(ctx, "component", "importer")
	start := time.Now()

	candidates, rowErrors := ValidateRows(t.Rows, hm)

	summary := &Summary{
		ValidationFailedCount: len(rowErrors),
		RowErrors:             rowErrors,
	}

	var runErr error
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			summary.Cancelled = true
			runErr = fmt.Errorf("import cancelled at row %d: %w", c.Row, err)
			break
		}

		if _, err := im.creator.CreateProduct(ctx, c.Input); err != nil {
			summary.WriteFailedCount++
			summary.RowErrors = append(summary.RowErrors, RowError{
				Row:     c.Row,
				Message: core.MapError(err).Message,
			})
			log.Debug("import row rejected", "row", c.Row, "error", err)
			continue
		}
		summary.AddedCount++
	}

	summary.FailedCount = summary.ValidationFailedCount + summary.WriteFailedCount
	slices.SortStableFunc(summary.RowErrors, func(a, b RowError) int {
		return cmp.Compare(a.Row, b.Row)
	})
	if summary.RowErrors == nil {
		summary.RowErrors = []RowError{}
	}

	log.Info("import finished",
		"rows", len(t.Rows),
		"added", summary.AddedCount,
		"validation_failed", summary.ValidationFailedCount,
		"write_failed", summary.WriteFailedCount,
		"cancelled", summary.Cancelled,
		"bytes", t.Bytes,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return summary, runErr
}
