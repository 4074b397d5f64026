// Package boltstore is an embedded, single-file product store on bbolt.
//
// Layout:
//
//	products      id                          -> JSON record
//	barcodes      barcode                     -> id
//	availability  availability 0x00 sortKey 0x00 id -> id
//
// Every write runs in one bbolt transaction, so the barcode guard and the
// index entries always agree with the product bucket.
package boltstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/inventory/internal/core"
	"github.com/JonMunkholm/inventory/internal/store/pagetoken"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketProducts     = []byte("products")
	bucketBarcodes     = []byte("barcodes")
	bucketAvailability = []byte("availability")
)

const sep = 0x00

// Store implements core.Store.
type Store struct {
	db *bolt.DB
}

// record is the persisted form. The index sort key is kept alongside the
// product because it never changes after create.
type record struct {
	Product *core.Product `json:"product"`
	SortKey string        `json:"sortKey"`
}

// Open opens or creates the database file at path.
func Open(path string, timeout time.Duration) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("open bolt database %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketProducts, bucketBarcodes, bucketAvailability} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close releases the database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the product with id.
func (s *Store) Get(ctx context.Context, id string) (*core.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var p *core.Product
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		p, err = load(tx, []byte(id))
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ConditionalPut writes p if cond holds and p's barcode is free.
func (s *Store) ConditionalPut(ctx context.Context, p *core.Product, cond core.PutCondition) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		id := []byte(p.ID)

		current, err := load(tx, id)
		exists := err == nil
		if err != nil && !errors.Is(err, core.ErrRecordNotFound) {
			return err
		}

		if cond == core.MustNotExist && exists || cond == core.MustExist && !exists {
			return core.ErrConditionFailed
		}

		barcodes := tx.Bucket(bucketBarcodes)
		if owner := barcodes.Get([]byte(p.Barcode)); owner != nil && !bytes.Equal(owner, id) {
			return core.ErrBarcodeTaken
		}

		if exists {
			if err := unindex(tx, current); err != nil {
				return err
			}
		}

		return put(tx, p)
	})
}

// Delete removes the product with id. Deleting a missing id is a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		current, err := load(tx, []byte(id))
		if errors.Is(err, core.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := unindex(tx, current); err != nil {
			return err
		}
		return tx.Bucket(bucketProducts).Delete([]byte(id))
	})
}

// QueryByBarcode returns the product owning barcode, if any.
func (s *Store) QueryByBarcode(ctx context.Context, barcode string) ([]core.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []core.Product
	err := s.db.View(func(tx *bolt.Tx) error {
		id := tx.Bucket(bucketBarcodes).Get([]byte(barcode))
		if id == nil {
			return nil
		}
		p, err := load(tx, id)
		if errors.Is(err, core.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		out = append(out, *p)
		return nil
	})
	return out, err
}

type indexCursor struct {
	Key []byte `json:"k"`
}

// QueryByIndex lists products with one availability ordered by creation time.
func (s *Store) QueryByIndex(ctx context.Context, q core.IndexQuery) (core.Page, error) {
	if err := ctx.Err(); err != nil {
		return core.Page{}, err
	}

	prefix := append([]byte(q.Availability), sep)

	var after []byte
	if q.PageToken != "" {
		var c indexCursor
		if err := pagetoken.Decode(q.PageToken, &c); err != nil {
			return core.Page{}, err
		}
		if !bytes.HasPrefix(c.Key, prefix) {
			return core.Page{}, core.ErrInvalidPageToken
		}
		after = c.Key
	}

	limit := pageLimit(q.Limit)

	var page core.Page
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketAvailability).Cursor()

		var k, v []byte
		next := c.Next
		switch {
		case q.Descending && after != nil:
			k, v = seekBefore(c, after)
			next = c.Prev
		case q.Descending:
			k, v = seekLast(c, prefix)
			next = c.Prev
		case after != nil:
			k, v = c.Seek(after)
			if bytes.Equal(k, after) {
				k, v = c.Next()
			}
		default:
			k, v = c.Seek(prefix)
		}

		var last []byte
		for ; k != nil && bytes.HasPrefix(k, prefix); k, v = next() {
			if len(page.Items) == limit {
				return setNext(&page, indexCursor{Key: last})
			}
			p, err := load(tx, v)
			if err != nil {
				return fmt.Errorf("availability index points at %s: %w", v, err)
			}
			page.Items = append(page.Items, *p)
			last = append(last[:0], k...)
		}
		return nil
	})
	return page, err
}

type scanCursor struct {
	ID string `json:"id"`
}

// Scan lists all products in id order.
func (s *Store) Scan(ctx context.Context, limit int, pageToken string) (core.Page, error) {
	if err := ctx.Err(); err != nil {
		return core.Page{}, err
	}

	var after []byte
	if pageToken != "" {
		var c scanCursor
		if err := pagetoken.Decode(pageToken, &c); err != nil {
			return core.Page{}, err
		}
		after = []byte(c.ID)
	}

	limit = pageLimit(limit)

	var page core.Page
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketProducts).Cursor()

		var k, v []byte
		if after == nil {
			k, v = c.First()
		} else {
			k, v = c.Seek(after)
			if bytes.Equal(k, after) {
				k, v = c.Next()
			}
		}

		for ; k != nil; k, v = c.Next() {
			if len(page.Items) == limit {
				return setNext(&page, scanCursor{ID: page.Items[len(page.Items)-1].ID})
			}
			p, err := decode(v)
			if err != nil {
				return err
			}
			page.Items = append(page.Items, *p)
		}
		return nil
	})
	return page, err
}

func pageLimit(n int) int {
	if n <= 0 || n > core.MaxPageSize {
		return core.MaxPageSize
	}
	return n
}

func setNext(page *core.Page, cursor any) error {
	token, err := pagetoken.Encode(cursor)
	if err != nil {
		return err
	}
	page.NextToken = token
	return nil
}

// seekLast positions c on the last key with prefix.
func seekLast(c *bolt.Cursor, prefix []byte) ([]byte, []byte) {
	upper := append(bytes.Clone(prefix[:len(prefix)-1]), sep+1)
	return seekBefore(c, upper)
}

// seekBefore positions c on the greatest key below bound.
func seekBefore(c *bolt.Cursor, bound []byte) ([]byte, []byte) {
	if k, _ := c.Seek(bound); k == nil {
		return c.Last()
	}
	return c.Prev()
}

func indexKey(availability, sortKey, id string) []byte {
	k := make([]byte, 0, len(availability)+len(sortKey)+len(id)+2)
	k = append(k, availability...)
	k = append(k, sep)
	k = append(k, sortKey...)
	k = append(k, sep)
	return append(k, id...)
}

func load(tx *bolt.Tx, id []byte) (*core.Product, error) {
	v := tx.Bucket(bucketProducts).Get(id)
	if v == nil {
		return nil, core.ErrRecordNotFound
	}
	return decode(v)
}

func decode(v []byte) (*core.Product, error) {
	var r record
	if err := json.Unmarshal(v, &r); err != nil {
		return nil, fmt.Errorf("decode product: %w", err)
	}
	p := r.Product
	if p == nil {
		return nil, errors.New("decode product: empty record")
	}
	p.AvailabilityKey = p.Availability
	p.BarcodeKey = p.Barcode
	p.CreatedKey = r.SortKey
	return p, nil
}

func put(tx *bolt.Tx, p *core.Product) error {
	sortKey := p.CreatedKey
	if sortKey == "" {
		sortKey = core.SortKey(p.CreatedAt)
	}

	v, err := json.Marshal(record{Product: p, SortKey: sortKey})
	if err != nil {
		return fmt.Errorf("encode product: %w", err)
	}

	if err := tx.Bucket(bucketProducts).Put([]byte(p.ID), v); err != nil {
		return err
	}
	if err := tx.Bucket(bucketBarcodes).Put([]byte(p.Barcode), []byte(p.ID)); err != nil {
		return err
	}
	return tx.Bucket(bucketAvailability).Put(indexKey(p.Availability, sortKey, p.ID), []byte(p.ID))
}

// unindex removes p's barcode guard and availability entry.
func unindex(tx *bolt.Tx, p *core.Product) error {
	barcodes := tx.Bucket(bucketBarcodes)
	if owner := barcodes.Get([]byte(p.Barcode)); bytes.Equal(owner, []byte(p.ID)) {
		if err := barcodes.Delete([]byte(p.Barcode)); err != nil {
			return err
		}
	}
	return tx.Bucket(bucketAvailability).Delete(indexKey(p.Availability, p.CreatedKey, p.ID))
}
