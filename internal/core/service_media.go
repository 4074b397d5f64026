package core

import (
	"context"
	"fmt"
	"regexp"
)

// UploadRequest asks for a pre-signed image upload URL.
type UploadRequest struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	ProductID   string `json:"productId,omitempty"`
}

// UploadTicket is a pre-signed PUT URL and the object key it writes.
type UploadTicket struct {
	UploadURL string `json:"uploadUrl"`
	Key       string `json:"key"`
}

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// ImageKey builds the object key for an uploaded file. Keys are grouped
// under products/{id}/ when the product is known and uploads/ otherwise.
func ImageKey(productID, fileName string, unixMilli int64) string {
	prefix := "uploads/"
	if productID != "" {
		prefix = "products/" + productID + "/"
	}
	return fmt.Sprintf("%s%d-%s", prefix, unixMilli, unsafeKeyChars.ReplaceAllString(fileName, "_"))
}

// UploadURL returns a short-lived URL the client can PUT an image to.
func (s *Service) UploadURL(ctx context.Context, req UploadRequest) (*UploadTicket, error) {
	if req.FileName == "" || req.ContentType == "" {
		return nil, ValidationError{Message: "fileName and contentType are required"}
	}

	key := ImageKey(req.ProductID, req.FileName, s.now().UnixMilli())

	url, err := s.blobs.PresignPut(ctx, key, req.ContentType, s.urlExpiry)
	if err != nil {
		return nil, collaborator("blob.presign_put", err)
	}

	return &UploadTicket{UploadURL: url, Key: key}, nil
}

// ImageURL returns a short-lived download URL for key.
//
// URLs are cached for less than their lifetime, and concurrent misses for
// the same key share one signing call.
func (s *Service) ImageURL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", ValidationError{Field: "key", Message: "key is required"}
	}

	if s.cache != nil {
		if url, ok := s.cache.Get(ctx, key); ok {
			return url, nil
		}
	}

	v, err, _ := s.signing.Do(key, func() (any, error) {
		url, err := s.blobs.PresignGet(ctx, key, s.urlExpiry)
		if err != nil {
			return "", err
		}
		if s.cache != nil {
			s.cache.Set(ctx, key, url, s.cacheTTL)
		}
		return url, nil
	})
	if err != nil {
		return "", collaborator("blob.presign_get", err)
	}

	return v.(string), nil
}
