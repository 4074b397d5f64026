package importer

import (
	"context"
	"fmt"
	"io"

	"github.com/JonMunkholm/inventory/internal/core"
	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
)

// ExportRow is one exported product. Column names resolve back through
// BuildHeaderMap, so an export can be re-imported unchanged.
type ExportRow struct {
	ID           string `csv:"id"`
	Name         string `csv:"name"`
	Description  string `csv:"description"`
	Category     string `csv:"category"`
	Price        string `csv:"price"`
	PriceUnit    string `csv:"priceUnit"`
	Barcode      string `csv:"barcode"`
	Availability string `csv:"availability"`
	AreaLocation string `csv:"areaLocation"`
}

// Lister pages through products. *core.Service satisfies it.
type Lister interface {
	ListProducts(ctx context.Context, q core.ListQuery) (core.Page, error)
}

// exportPageSize is the page size used while walking the catalogue.
const exportPageSize = core.MaxPageSize

// Export writes every product as CSV. The header row is written even when
// there are no products.
func Export(ctx context.Context, l Lister, w io.Writer) (int, error) {
	rows := []*ExportRow{}

	token := ""
	for {
		page, err := l.ListProducts(ctx, core.ListQuery{Limit: exportPageSize, PageToken: token})
		if err != nil {
			return 0, fmt.Errorf("list products: %w", err)
		}
		for i := range page.Items {
			rows = append(rows, exportRow(&page.Items[i]))
		}
		if page.NextToken == "" {
			break
		}
		token = page.NextToken
	}

	if err := gocsv.Marshal(rows, w); err != nil {
		return 0, fmt.Errorf("write csv: %w", err)
	}
	return len(rows), nil
}

func exportRow(p *core.Product) *ExportRow {
	return &ExportRow{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		Category:     p.Category,
		Price:        decimal.NewFromFloat(p.Price).String(),
		PriceUnit:    p.PriceUnit,
		Barcode:      p.Barcode,
		Availability: p.Availability,
		AreaLocation: p.AreaLocation,
	}
}
