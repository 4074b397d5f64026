package lookup

import (
	"context"
	"strings"
	"unicode"

	"github.com/JonMunkholm/inventory/internal/config"
	"github.com/JonMunkholm/inventory/internal/core"
	"github.com/go-resty/resty/v2"
)

const minBarcodeDigits = 6

// BarcodeRequest is the proxy request body.
type BarcodeRequest struct {
	Barcode string `json:"barcode"`
	APIKey  string `json:"apiKey"`
}

// Response is an upstream answer forwarded as is.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// BarcodeClient queries the barcode database.
type BarcodeClient struct {
	http    *resty.Client
	baseURL string
	apiKey  string
}

// NewBarcodeClient returns a client for cfg.BarcodeBaseURL. cfg.BarcodeAPIKey
// is used when a request carries no key.
func NewBarcodeClient(cfg config.LookupConfig) *BarcodeClient {
	return &BarcodeClient{
		http:    resty.New().SetTimeout(cfg.BarcodeTimeout),
		baseURL: cfg.BarcodeBaseURL,
		apiKey:  cfg.BarcodeAPIKey,
	}
}

// Lookup validates req and forwards it. Any upstream status, error statuses
// included, is returned as a Response; only transport failures are errors.
func (c *BarcodeClient) Lookup(ctx context.Context, req BarcodeRequest) (*Response, error) {
	if strings.TrimSpace(req.Barcode) == "" {
		return nil, core.ValidationError{Field: "barcode", Message: "barcode is required"}
	}

	apiKey := strings.TrimSpace(req.APIKey)
	if apiKey == "" {
		apiKey = c.apiKey
	}
	if apiKey == "" {
		return nil, core.ValidationError{Field: "apiKey", Message: "apiKey is required"}
	}

	digits := digitsOnly(req.Barcode)
	if len(digits) < minBarcodeDigits {
		return nil, core.ValidationError{
			Field:   "barcode",
			Value:   req.Barcode,
			Message: "barcode must be at least 6 digits",
		}
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"barcode":   digits,
			"formatted": "y",
			"key":       apiKey,
		}).
		Get(c.baseURL)
	if err != nil {
		return nil, upstreamError(0, "Barcode lookup proxy failed", err)
	}

	return &Response{
		Status:      resp.StatusCode(),
		ContentType: resp.Header().Get("Content-Type"),
		Body:        resp.Body(),
	}, nil
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}
