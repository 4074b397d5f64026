// Package pgstore is the PostgreSQL product store.
//
// Barcode uniqueness is a UNIQUE constraint, so a concurrent writer that
// passes the service's advisory check still fails here with
// core.ErrBarcodeTaken.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/inventory/internal/core"
	"github.com/JonMunkholm/inventory/internal/store/pagetoken"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the subset of pgx used by the store.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// Schema creates the products table and its indexes.
const Schema = `
CREATE TABLE IF NOT EXISTS products (
    id              TEXT PRIMARY KEY,
    name            TEXT NOT NULL,
    description     TEXT NOT NULL,
    category        TEXT NOT NULL,
    price           DOUBLE PRECISION NOT NULL CHECK (price >= 0),
    price_unit      TEXT NOT NULL,
    barcode         TEXT NOT NULL,
    availability    TEXT NOT NULL,
    area_location   TEXT NOT NULL,
    scale_need      BOOLEAN NOT NULL DEFAULT FALSE,
    image_keys      TEXT[] NOT NULL DEFAULT '{}',
    allergy_summary TEXT NOT NULL DEFAULT 'none',
    created_at      TIMESTAMPTZ NOT NULL,
    updated_at      TIMESTAMPTZ NOT NULL,
    sort_key        TEXT NOT NULL,
    CONSTRAINT products_barcode_key UNIQUE (barcode)
);
CREATE INDEX IF NOT EXISTS products_availability_idx ON products (availability, sort_key, id);
`

// Constraint names reported in unique violations.
const (
	constraintPrimaryKey = "products_pkey"
	constraintBarcode    = "products_barcode_key"
)

const columns = `id, name, description, category, price, price_unit, barcode,
	availability, area_location, scale_need, image_keys, allergy_summary,
	created_at, updated_at, sort_key`

// Store implements core.Store.
type Store struct {
	db DBTX
}

// New returns a store over db.
func New(db DBTX) *Store {
	return &Store{db: db}
}

// Migrate applies Schema. It is safe to run on every start.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Get returns the product with id.
func (s *Store) Get(ctx context.Context, id string) (*core.Product, error) {
	row := s.db.QueryRow(ctx, "SELECT "+columns+" FROM products WHERE id = $1", id)

	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}
	return p, nil
}

// ConditionalPut inserts (MustNotExist) or replaces (MustExist) p.
func (s *Store) ConditionalPut(ctx context.Context, p *core.Product, cond core.PutCondition) error {
	sortKey := p.CreatedKey
	if sortKey == "" {
		sortKey = core.SortKey(p.CreatedAt)
	}
	imageKeys := p.ImageKeys
	if imageKeys == nil {
		imageKeys = []string{}
	}
	args := []any{
		p.ID, p.Name, p.Description, p.Category, p.Price, p.PriceUnit, p.Barcode,
		p.Availability, p.AreaLocation, p.ScaleNeed, imageKeys, p.AllergySummary,
		p.UpdatedAt,
	}

	switch cond {
	case core.MustNotExist:
		args = append(args, p.CreatedAt, sortKey)
		_, err := s.db.Exec(ctx, `INSERT INTO products (id, name, description, category, price,
			price_unit, barcode, availability, area_location, scale_need, image_keys,
			allergy_summary, updated_at, created_at, sort_key)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`, args...)
		return classifyWriteError(err)

	case core.MustExist:
		// created_at and sort_key never change after insert.
		tag, err := s.db.Exec(ctx, `UPDATE products SET
			name = $2, description = $3, category = $4, price = $5, price_unit = $6,
			barcode = $7, availability = $8, area_location = $9, scale_need = $10,
			image_keys = $11, allergy_summary = $12, updated_at = $13
			WHERE id = $1`, args...)
		if err != nil {
			return classifyWriteError(err)
		}
		if tag.RowsAffected() == 0 {
			return core.ErrConditionFailed
		}
		return nil
	}

	return fmt.Errorf("unknown put condition %v", cond)
}

// classifyWriteError maps constraint violations onto store condition errors.
func classifyWriteError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
		switch pgErr.ConstraintName {
		case constraintBarcode:
			return core.ErrBarcodeTaken
		case constraintPrimaryKey:
			return core.ErrConditionFailed
		}
	}
	return fmt.Errorf("write product: %w", err)
}

// Delete removes the product with id.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.Exec(ctx, "DELETE FROM products WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete product %s: %w", id, err)
	}
	return nil
}

// QueryByBarcode returns products with barcode.
func (s *Store) QueryByBarcode(ctx context.Context, barcode string) ([]core.Product, error) {
	wb := newWhereBuilder()
	wb.Add("barcode", barcode)
	where, args := wb.Build()

	items, err := s.query(ctx, "SELECT "+columns+" FROM products"+where, args)
	if err != nil {
		return nil, fmt.Errorf("query barcode: %w", err)
	}
	return items, nil
}

type indexCursor struct {
	SortKey string `json:"s"`
	ID      string `json:"id"`
}

// QueryByIndex lists products with one availability ordered by creation time.
func (s *Store) QueryByIndex(ctx context.Context, q core.IndexQuery) (core.Page, error) {
	var after *indexCursor
	if q.PageToken != "" {
		var c indexCursor
		if err := pagetoken.Decode(q.PageToken, &c); err != nil {
			return core.Page{}, err
		}
		after = &c
	}

	sql, args := indexQuerySQL(q, after)

	items, err := s.query(ctx, sql, args)
	if err != nil {
		return core.Page{}, fmt.Errorf("query availability index: %w", err)
	}

	return pageOf(items, pageLimit(q.Limit), func(last core.Product) any {
		return indexCursor{SortKey: last.CreatedKey, ID: last.ID}
	})
}

// indexQuerySQL builds a keyset-paginated availability query. One extra row
// is fetched to learn whether another page exists.
func indexQuerySQL(q core.IndexQuery, after *indexCursor) (string, []any) {
	wb := newWhereBuilder()
	wb.Add("availability", q.Availability)

	dir, cmp := "ASC", ">"
	if q.Descending {
		dir, cmp = "DESC", "<"
	}
	if after != nil {
		wb.AddTuple([]string{"sort_key", "id"}, cmp, after.SortKey, after.ID)
	}

	where, args := wb.Build()
	args = append(args, pageLimit(q.Limit)+1)

	sql := fmt.Sprintf("SELECT %s FROM products%s ORDER BY sort_key %s, id %s LIMIT $%d",
		columns, where, dir, dir, len(args))
	return sql, args
}

type scanCursor struct {
	ID string `json:"id"`
}

// Scan lists all products in id order.
func (s *Store) Scan(ctx context.Context, limit int, pageToken string) (core.Page, error) {
	wb := newWhereBuilder()
	if pageToken != "" {
		var c scanCursor
		if err := pagetoken.Decode(pageToken, &c); err != nil {
			return core.Page{}, err
		}
		wb.AddTuple([]string{"id"}, ">", c.ID)
	}

	limit = pageLimit(limit)
	where, args := wb.Build()
	args = append(args, limit+1)

	sql := fmt.Sprintf("SELECT %s FROM products%s ORDER BY id LIMIT $%d", columns, where, len(args))
	items, err := s.query(ctx, sql, args)
	if err != nil {
		return core.Page{}, fmt.Errorf("scan products: %w", err)
	}

	return pageOf(items, limit, func(last core.Product) any {
		return scanCursor{ID: last.ID}
	})
}

func (s *Store) query(ctx context.Context, sql string, args []any) ([]core.Product, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func scanProduct(row pgx.Row) (*core.Product, error) {
	var p core.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Category, &p.Price, &p.PriceUnit, &p.Barcode,
		&p.Availability, &p.AreaLocation, &p.ScaleNeed, &p.ImageKeys, &p.AllergySummary,
		&p.CreatedAt, &p.UpdatedAt, &p.CreatedKey,
	)
	if err != nil {
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	p.AvailabilityKey = p.Availability
	p.BarcodeKey = p.Barcode
	if p.ImageKeys == nil {
		p.ImageKeys = []string{}
	}
	return &p, nil
}

// pageOf trims the look-ahead row and turns it into a next-page token.
func pageOf(items []core.Product, limit int, cursor func(core.Product) any) (core.Page, error) {
	if len(items) <= limit {
		return core.Page{Items: items}, nil
	}
	items = items[:limit]
	token, err := pagetoken.Encode(cursor(items[len(items)-1]))
	if err != nil {
		return core.Page{}, err
	}
	return core.Page{Items: items, NextToken: token}, nil
}

func pageLimit(n int) int {
	if n <= 0 || n > core.MaxPageSize {
		return core.MaxPageSize
	}
	return n
}

// ----------------------------------------------------------------------------
// whereBuilder
// ----------------------------------------------------------------------------

// whereBuilder accumulates AND-ed conditions with numbered placeholders.
type whereBuilder struct {
	conditions []string
	args       []any
	argIndex   int
}

func newWhereBuilder() *whereBuilder {
	return &whereBuilder{argIndex: 1}
}

// Add appends "col = $n". Empty values are skipped.
func (wb *whereBuilder) Add(col, value string) {
	if value == "" {
		return
	}
	wb.conditions = append(wb.conditions, fmt.Sprintf("%s = $%d", col, wb.argIndex))
	wb.args = append(wb.args, value)
	wb.argIndex++
}

// AddTuple appends a row comparison such as "(a, b) < ($1, $2)".
func (wb *whereBuilder) AddTuple(cols []string, op string, values ...any) {
	placeholders := make([]string, len(values))
	for i := range values {
		placeholders[i] = fmt.Sprintf("$%d", wb.argIndex)
		wb.argIndex++
	}
	wb.conditions = append(wb.conditions, fmt.Sprintf("(%s) %s (%s)",
		strings.Join(cols, ", "), op, strings.Join(placeholders, ", ")))
	wb.args = append(wb.args, values...)
}

// Build returns the WHERE clause (with leading space) and its arguments.
func (wb *whereBuilder) Build() (string, []any) {
	if len(wb.conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(wb.conditions, " AND "), wb.args
}
