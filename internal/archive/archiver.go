// Package archive persists uploaded assets to durable object storage and
// returns a stable retrieval URL. Filenames are validated against an
// extension allow-list and sanitized into collision-safe storage keys.
package archive

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidAsset marks an upload with an empty filename or an
	// extension outside the allow-list.
	ErrInvalidAsset = errors.New("invalid asset")
	// ErrStorageUnavailable marks a transient object-storage fault.
	ErrStorageUnavailable = errors.New("object storage unavailable")
)

var allowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Asset is one uploaded file: raw bytes plus the declared filename and
// content type. It lives for a single request.
type Asset struct {
	Data        []byte
	Filename    string
	ContentType string
}

// BlobStore is the narrow object-storage capability: one durable write and
// a stable URL for the written key.
type BlobStore interface {
	Write(ctx context.Context, key, contentType string, data []byte) error
	URL(key string) string
}

// Archiver validates assets and writes them through the blob store.
type Archiver struct {
	store   BlobStore
	timeout time.Duration
	newKey  func() string
}

func NewArchiver(store BlobStore, timeout time.Duration) *Archiver {
	return &Archiver{
		store:   store,
		timeout: timeout,
		newKey:  uuid.NewString,
	}
}

// Archive performs exactly one durable write for a valid asset and returns
// the public URL of the stored object.
func (a *Archiver) Archive(ctx context.Context, asset Asset) (string, error) {
	if strings.TrimSpace(asset.Filename) == "" {
		return "", fmt.Errorf("%w: empty filename", ErrInvalidAsset)
	}

	ext := strings.ToLower(filepath.Ext(asset.Filename))
	if !allowedExtensions[ext] {
		return "", fmt.Errorf("%w: extension %q not allowed", ErrInvalidAsset, ext)
	}

	key := a.newKey() + "_" + SanitizeFilename(asset.Filename)

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	if err := a.store.Write(ctx, key, asset.ContentType, asset.Data); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	return a.store.URL(key), nil
}

// SanitizeFilename reduces a declared filename to a safe storage form:
// path components are stripped and anything outside [A-Za-z0-9._-] becomes
// an underscore.
func SanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = unsafeChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._")
	if base == "" {
		base = "upload"
	}
	return base
}
