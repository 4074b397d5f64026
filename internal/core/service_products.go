package core

import (
	"context"
	"errors"
	"slices"
)

// List limits.
const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// ListQuery selects a page of products. An empty Availability lists every
// product; otherwise the availability index is used, newest first.
type ListQuery struct {
	Limit        int
	Availability string
	PageToken    string
}

// CreateProduct validates in, checks the barcode is free and inserts a new
// product under a freshly minted id.
func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (*Product, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}

	if err := s.checkBarcodeFree(ctx, in.Barcode); err != nil {
		return nil, err
	}

	id, err := s.newID()
	if err != nil {
		return nil, collaborator("id.mint", err)
	}

	price, _ := in.Price.Float()
	now := s.now().UTC()

	p := &Product{
		ID:             id,
		Name:           in.Name,
		Description:    in.Description,
		Category:       NormalizeCategory(in.Category),
		Price:          price,
		PriceUnit:      firstNonEmpty(in.PriceUnit, DefaultPriceUnit),
		Barcode:        in.Barcode,
		Availability:   in.Availability,
		AreaLocation:   firstNonEmpty(in.AreaLocation, DefaultAreaLocation),
		ScaleNeed:      in.ScaleNeed != nil && *in.ScaleNeed,
		ImageKeys:      append([]string{}, in.ImageKeys...),
		AllergySummary: DefaultAllergySummary,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if in.AllergySummary != nil {
		p.AllergySummary = *in.AllergySummary
	}
	p.deriveIndexKeys()

	if err := s.store.ConditionalPut(ctx, p, MustNotExist); err != nil {
		switch {
		case errors.Is(err, ErrBarcodeTaken):
			return nil, ConflictError{Message: "Barcode already exists"}
		case errors.Is(err, ErrConditionFailed):
			return nil, ConflictError{Message: "Product already exists"}
		}
		return nil, collaborator("store.put", err)
	}

	s.logger(ctx).Info("product created", "product_id", p.ID, "barcode", p.Barcode)
	s.publish(ctx, EventProductCreated, p)

	return p, nil
}

// UpdateProduct replaces the editable fields of an existing product.
//
// Optional fields missing from in keep their stored values. Images are
// recomputed as the stored keys minus in.DeleteKeys followed by
// in.ImageKeys, truncated to MaxImageKeys.
func (s *Service) UpdateProduct(ctx context.Context, id string, in ProductInput) (*Product, error) {
	if id == "" {
		return nil, ValidationError{Field: "id", Message: "id path param is required"}
	}
	if err := Validate(in); err != nil {
		return nil, err
	}

	current, err := s.store.Get(ctx, id)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, NotFoundError{Message: "Not found"}
	}
	if err != nil {
		return nil, collaborator("store.get", err)
	}

	if in.Barcode != current.Barcode {
		if err := s.checkBarcodeFree(ctx, in.Barcode); err != nil {
			return nil, err
		}
	}

	if len(in.DeleteKeys) > 0 {
		s.releaser.Release(ctx, in.DeleteKeys)
	}

	price, _ := in.Price.Float()

	next := &Product{
		ID:             current.ID,
		Name:           in.Name,
		Description:    in.Description,
		Category:       NormalizeCategory(in.Category),
		Price:          price,
		PriceUnit:      firstNonEmpty(in.PriceUnit, current.PriceUnit, DefaultPriceUnit),
		Barcode:        in.Barcode,
		Availability:   in.Availability,
		AreaLocation:   firstNonEmpty(in.AreaLocation, current.AreaLocation, DefaultAreaLocation),
		ScaleNeed:      current.ScaleNeed,
		ImageKeys:      MergeImageKeys(current.ImageKeys, in.DeleteKeys, in.ImageKeys),
		AllergySummary: firstNonEmpty(current.AllergySummary, DefaultAllergySummary),
		CreatedAt:      current.CreatedAt,
		UpdatedAt:      s.now().UTC(),
		CreatedKey:     current.CreatedKey,
	}
	if in.ScaleNeed != nil {
		next.ScaleNeed = *in.ScaleNeed
	}
	if in.AllergySummary != nil {
		next.AllergySummary = *in.AllergySummary
	}
	next.deriveIndexKeys()

	if err := s.store.ConditionalPut(ctx, next, MustExist); err != nil {
		switch {
		case errors.Is(err, ErrBarcodeTaken):
			return nil, ConflictError{Message: "Barcode already exists"}
		case errors.Is(err, ErrConditionFailed):
			return nil, NotFoundError{Message: "Not found"}
		}
		return nil, collaborator("store.put", err)
	}

	s.logger(ctx).Info("product updated", "product_id", next.ID, "images", len(next.ImageKeys))
	s.publish(ctx, EventProductUpdated, next)

	return next, nil
}

// DeleteProduct releases the product's images and removes the record.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if id == "" {
		return ValidationError{Field: "id", Message: "id path param is required"}
	}

	current, err := s.store.Get(ctx, id)
	if errors.Is(err, ErrRecordNotFound) {
		return NotFoundError{Message: "Not found"}
	}
	if err != nil {
		return collaborator("store.get", err)
	}

	s.releaser.Release(ctx, current.ImageKeys)

	if err := s.store.Delete(ctx, id); err != nil {
		return collaborator("store.delete", err)
	}

	s.logger(ctx).Info("product deleted", "product_id", id)
	s.publish(ctx, EventProductDeleted, current)

	return nil
}

// GetProduct returns one product with its category normalized.
func (s *Service) GetProduct(ctx context.Context, id string) (*Product, error) {
	if id == "" {
		return nil, ValidationError{Field: "id", Message: "Product ID is required"}
	}

	p, err := s.store.Get(ctx, id)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, NotFoundError{Message: "Product not found"}
	}
	if err != nil {
		return nil, collaborator("store.get", err)
	}

	p.Category = NormalizeCategory(p.Category)
	return p, nil
}

// ListProducts returns one page of products.
func (s *Service) ListProducts(ctx context.Context, q ListQuery) (Page, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	limit = min(limit, MaxPageSize)

	var (
		page Page
		err  error
	)
	if q.Availability != "" {
		page, err = s.store.QueryByIndex(ctx, IndexQuery{
			Availability: q.Availability,
			Descending:   true,
			Limit:        limit,
			PageToken:    q.PageToken,
		})
	} else {
		page, err = s.store.Scan(ctx, limit, q.PageToken)
	}
	if errors.Is(err, ErrInvalidPageToken) {
		return Page{}, ValidationError{Field: "lastKey", Message: "invalid page token"}
	}
	if err != nil {
		return Page{}, collaborator("store.list", err)
	}

	for i := range page.Items {
		page.Items[i].Category = NormalizeCategory(page.Items[i].Category)
	}
	if page.Items == nil {
		page.Items = []Product{}
	}

	return page, nil
}

// checkBarcodeFree is the advisory uniqueness check run before writes.
func (s *Service) checkBarcodeFree(ctx context.Context, barcode string) error {
	existing, err := s.store.QueryByBarcode(ctx, barcode)
	if err != nil {
		return collaborator("store.query_barcode", err)
	}
	if len(existing) > 0 {
		return ConflictError{Message: "Barcode already exists"}
	}
	return nil
}

// MergeImageKeys removes deleted keys from current, appends added keys and
// keeps the first MaxImageKeys. Order is preserved throughout.
func MergeImageKeys(current, deleted, added []string) []string {
	merged := make([]string, 0, len(current)+len(added))
	for _, k := range current {
		if !slices.Contains(deleted, k) {
			merged = append(merged, k)
		}
	}
	merged = append(merged, added...)
	if len(merged) > MaxImageKeys {
		merged = merged[:MaxImageKeys]
	}
	return merged
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
