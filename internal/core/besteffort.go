package core

import (
	"context"
	"log/slog"

	"github.com/JonMunkholm/inventory/internal/logging"
)

// BlobReleaser deletes image objects on a best-effort basis.
//
// Release has no error result: a failed delete is logged and dropped, so a
// dangling object can never fail or block the metadata write around it.
type BlobReleaser struct {
	blobs BlobStore
}

// NewBlobReleaser returns a releaser over blobs.
func NewBlobReleaser(blobs BlobStore) BlobReleaser {
	return BlobReleaser{blobs: blobs}
}

// Release deletes keys in one call. Empty input issues no call.
func (r BlobReleaser) Release(ctx context.Context, keys []string) {
	if len(keys) == 0 || r.blobs == nil {
		return
	}

	if err := r.blobs.DeleteObjects(ctx, keys); err != nil {
		logging.FromContext(ctx).Warn("image release failed, objects left behind",
			"keys", keys,
			"error", err,
		)
		return
	}

	logging.FromContext(ctx).Debug("images released", slog.Int("count", len(keys)))
}
