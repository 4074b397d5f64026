package lookup

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/JonMunkholm/inventory/internal/config"
	"github.com/JonMunkholm/inventory/internal/core"
	"github.com/go-resty/resty/v2"
)

const defaultImageType = "image/jpeg"

// Image is a downloaded image inlined as a data URL.
type Image struct {
	DataURL     string `json:"dataUrl"`
	ContentType string `json:"contentType"`
	Size        int    `json:"size"`
}

// ImageFetcher downloads remote images on behalf of the browser.
type ImageFetcher struct {
	http     *resty.Client
	timeout  time.Duration
	maxBytes int64
}

// NewImageFetcher returns a fetcher bounded by cfg's timeout and size limit.
func NewImageFetcher(cfg config.LookupConfig) *ImageFetcher {
	return &ImageFetcher{
		http: resty.New().
			SetHeader("User-Agent", "Mozilla/5.0 (compatible; ImageProxy/1.0)").
			SetHeader("Accept", "image/*,*/*"),
		timeout:  cfg.ImageTimeout,
		maxBytes: cfg.ImageMaxBytes,
	}
}

// Fetch downloads rawURL.
func (f *ImageFetcher) Fetch(ctx context.Context, rawURL string) (*Image, error) {
	target, err := checkImageURL(rawURL)
	if err != nil {
		return nil, err
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	resp, err := f.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(target)
	if err != nil {
		return nil, fetchError(ctx, err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return nil, upstreamError(resp.StatusCode(), "Image fetch failed: "+resp.Status(), nil)
	}

	data, err := io.ReadAll(io.LimitReader(body, f.maxBytes+1))
	if err != nil {
		return nil, fetchError(ctx, err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, upstreamError(http.StatusRequestEntityTooLarge, fmt.Sprintf("Image too large (max %d MB)", f.maxBytes>>20), nil)
	}

	contentType := resp.Header().Get("Content-Type")
	if contentType == "" {
		contentType = defaultImageType
	}

	return &Image{
		DataURL:     "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data),
		ContentType: contentType,
		Size:        len(data),
	}, nil
}

func checkImageURL(raw string) (string, error) {
	if raw == "" {
		return "", core.ValidationError{Field: "url", Message: "url is required"}
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return "", core.ValidationError{Field: "url", Value: raw, Message: "Invalid URL"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", core.ValidationError{Field: "url", Value: raw, Message: "Only http and https URLs are allowed"}
	}
	if u.Host == "" {
		return "", core.ValidationError{Field: "url", Value: raw, Message: "Invalid URL"}
	}
	return u.String(), nil
}

func fetchError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return upstreamError(0, "Image download timed out", err)
	}
	return upstreamError(0, "Image proxy failed: "+err.Error(), err)
}
