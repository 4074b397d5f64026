// Package pagetoken encodes store cursors as opaque, URL-safe strings.
//
// A token is the base64url (unpadded) encoding of a small JSON object. The
// stores decide what goes into the object; callers only pass tokens back.
package pagetoken

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/JonMunkholm/inventory/internal/core"
)

// Encode returns the token for cursor.
func Encode(cursor any) (string, error) {
	b, err := json.Marshal(cursor)
	if err != nil {
		return "", fmt.Errorf("encode page token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Decode fills cursor from token. Any malformed token yields
// core.ErrInvalidPageToken.
func Decode(token string, cursor any) error {
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return core.ErrInvalidPageToken
	}
	if err := json.Unmarshal(b, cursor); err != nil {
		return core.ErrInvalidPageToken
	}
	return nil
}
