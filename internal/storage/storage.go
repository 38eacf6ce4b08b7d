// Package storage provides the image store used for profile photos and
// published artworks. Backends are interchangeable: the rest of the
// application only ever sees opaque keys.
package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/artgallerycloud/server/internal/config"
)

// Folders used by the application
const (
	FolderProfilePhotos = "Fotos_Perfil"
	FolderArtworks      = "Fotos_Publicadas"
)

// Store is the image store interface. Upload returns an opaque key;
// PublicURL resolves a key to a URL a browser can fetch.
type Store interface {
	Upload(ctx context.Context, data []byte, contentType, folder, nameHint string) (string, error)
	PublicURL(key string) string
}

// NewStoreFromConfig creates a Store implementation based on the configured
// driver.
func NewStoreFromConfig(cfg config.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case "local":
		if cfg.LocalDir == "" {
			return nil, fmt.Errorf("local storage requires LOCAL_UPLOAD_DIR to be set")
		}
		return NewLocalStore(cfg.LocalDir)
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("s3 storage requires S3_BUCKET_NAME to be set")
		}
		return NewS3Store(cfg)
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Driver)
	}
}

// extFromContentType maps a MIME type to a filename extension.
func extFromContentType(contentType string) string {
	m := strings.ToLower(contentType)
	switch {
	case strings.Contains(m, "jpeg"):
		return "jpg"
	case strings.Contains(m, "png"):
		return "png"
	case strings.Contains(m, "gif"):
		return "gif"
	case strings.Contains(m, "webp"):
		return "webp"
	case strings.Contains(m, "svg"):
		return "svg"
	}
	if i := strings.Index(m, "/"); i >= 0 && i+1 < len(m) {
		return m[i+1:]
	}
	return "bin"
}
