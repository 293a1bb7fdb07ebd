// Package storage keeps recipe images outside the database and hands back
// the URL clients use to fetch them.
package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// BlobStore persists uploaded files
type BlobStore interface {
	// Put stores data under key and returns the public URL of the object
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	// Delete removes the object; a missing object is not an error
	Delete(ctx context.Context, key string) error
}

// ErrInvalidDataURI is returned for anything that is not a base64 data URI
var ErrInvalidDataURI = errors.New("image must be a base64 data URI")

// Image is a decoded data URI
type Image struct {
	ContentType string
	Extension   string
	Data        []byte
}

// imageExtensions lists the accepted image types and the extension each is stored with
var imageExtensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// DecodeDataURI parses "data:<mime>;base64,<payload>". Only png, jpeg, gif and
// webp are accepted, and the payload must actually be of the declared type.
func DecodeDataURI(uri string) (*Image, error) {
	header, payload, found := strings.Cut(uri, ";base64,")
	if !found || !strings.HasPrefix(header, "data:") {
		return nil, ErrInvalidDataURI
	}

	contentType := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(header, "data:")))
	ext, ok := imageExtensions[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported image type %q", ErrInvalidDataURI, contentType)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidDataURI)
	}

	if detected := mimetype.Detect(data); !detected.Is(contentType) {
		return nil, fmt.Errorf("%w: content is %s, not %s", ErrInvalidDataURI, detected.String(), contentType)
	}

	return &Image{ContentType: contentType, Extension: ext, Data: data}, nil
}

// NewRecipeImageKey returns a fresh object key for a recipe image
func NewRecipeImageKey(ext string) string {
	return fmt.Sprintf("recipes/%s.%s", uuid.New().String(), ext)
}
