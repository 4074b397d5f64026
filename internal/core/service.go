package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/JonMunkholm/inventory/internal/logging"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// Defaults for Options fields left at zero.
const (
	DefaultURLExpiry = 60 * time.Second
	DefaultCacheTTL  = 50 * time.Second
)

// Options configures a Service. Zero values get defaults.
type Options struct {
	// URLCache caches signed download URLs. Nil disables caching.
	URLCache URLCache

	// Events receives product change events. Nil discards them.
	Events EventPublisher

	// URLExpiry is the lifetime of pre-signed URLs.
	URLExpiry time.Duration

	// CacheTTL is how long a signed URL stays cached; keep it below URLExpiry.
	CacheTTL time.Duration

	// MaxConcurrentImports and ImportWait configure the import limiter.
	MaxConcurrentImports int
	ImportWait           time.Duration

	// Now and NewID are replaceable for tests.
	Now   func() time.Time
	NewID func() (string, error)
}

// Service provides the product business logic.
type Service struct {
	store    Store
	blobs    BlobStore
	releaser BlobReleaser
	cache    URLCache
	events   EventPublisher
	imports  *ImportLimiter

	urlExpiry time.Duration
	cacheTTL  time.Duration

	now   func() time.Time
	newID func() (string, error)

	signing singleflight.Group
}

// NewService creates a Service over the given store and blob store.
func NewService(store Store, blobs BlobStore, opts Options) *Service {
	s := &Service{
		store:     store,
		blobs:     blobs,
		releaser:  NewBlobReleaser(blobs),
		cache:     opts.URLCache,
		events:    opts.Events,
		imports:   NewImportLimiter(opts.MaxConcurrentImports, opts.ImportWait),
		urlExpiry: opts.URLExpiry,
		cacheTTL:  opts.CacheTTL,
		now:       opts.Now,
		newID:     opts.NewID,
	}

	if s.events == nil {
		s.events = NopPublisher{}
	}
	if s.urlExpiry <= 0 {
		s.urlExpiry = DefaultURLExpiry
	}
	if s.cacheTTL <= 0 || s.cacheTTL >= s.urlExpiry {
		s.cacheTTL = s.urlExpiry * 5 / 6
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = NewProductID
	}

	return s
}

// NewProductID mints a UUIDv7: a 48-bit millisecond timestamp followed by
// random bits. Its canonical text form sorts in creation order.
func NewProductID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("mint product id: %w", err)
	}
	return id.String(), nil
}

func (s *Service) logger(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}
