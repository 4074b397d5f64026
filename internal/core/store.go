package core

import (
	"context"
	"time"
)

// PutCondition is the existence precondition of a conditional write.
type PutCondition int

const (
	// MustNotExist fails the write when a record with the id exists.
	MustNotExist PutCondition = iota
	// MustExist fails the write when no record with the id exists.
	MustExist
)

func (c PutCondition) String() string {
	if c == MustExist {
		return "must-exist"
	}
	return "must-not-exist"
}

// IndexQuery selects products from the availability index.
type IndexQuery struct {
	Availability string
	Descending   bool // newest first
	Limit        int
	PageToken    string
}

// Page is one page of products plus an opaque token for the next page.
// NextToken is empty on the last page.
type Page struct {
	Items     []Product
	NextToken string
}

// Store persists products. Every method must be safe for concurrent use,
// and ConditionalPut must be atomic per record.
//
// ConditionalPut also owns barcode uniqueness: it returns ErrBarcodeTaken
// when a different record holds p.Barcode, and releases the previous
// barcode of the record when it changes.
type Store interface {
	Get(ctx context.Context, id string) (*Product, error)
	ConditionalPut(ctx context.Context, p *Product, cond PutCondition) error
	Delete(ctx context.Context, id string) error
	QueryByBarcode(ctx context.Context, barcode string) ([]Product, error)
	QueryByIndex(ctx context.Context, q IndexQuery) (Page, error)
	Scan(ctx context.Context, limit int, pageToken string) (Page, error)
}

// BlobStore holds product images.
type BlobStore interface {
	DeleteObjects(ctx context.Context, keys []string) error
	PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// URLCache caches signed download URLs by object key.
type URLCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, url string, ttl time.Duration)
}
