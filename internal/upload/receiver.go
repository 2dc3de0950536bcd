// Package upload validates inbound image files before they are stored.
package upload

import (
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/laotie567/ComfyUI-test-03-Qwen/internal/models"
	"github.com/laotie567/ComfyUI-test-03-Qwen/internal/storage"
)

// MaxUploadSize is the maximum accepted image payload, 10 MiB.
const MaxUploadSize = 10 << 20

var (
	// ErrPayloadTooLarge is returned when the upload exceeds MaxUploadSize.
	ErrPayloadTooLarge = errors.New("file size exceeds limit")

	// ErrUnsupportedMediaType is returned when either the declared content
	// type or the filename extension is not an allowed image format.
	ErrUnsupportedMediaType = errors.New("unsupported file format")
)

var allowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
}

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// Receiver validates uploaded files and persists accepted ones.
type Receiver struct {
	store storage.Store
}

// NewReceiver creates a Receiver backed by the given store.
func NewReceiver(store storage.Store) *Receiver {
	return &Receiver{store: store}
}

// Accept validates the uploaded file's size, content type, and extension,
// then persists it. The caller owns the returned file and is responsible
// for its eventual removal.
func (r *Receiver) Accept(fh *multipart.FileHeader) (*models.StoredFile, error) {
	if fh.Size > MaxUploadSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, fh.Size, MaxUploadSize)
	}

	contentType := fh.Header.Get("Content-Type")
	if !allowedContentTypes[strings.ToLower(contentType)] {
		return nil, fmt.Errorf("%w: content type %q", ErrUnsupportedMediaType, contentType)
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !allowedExtensions[ext] {
		return nil, fmt.Errorf("%w: extension %q", ErrUnsupportedMediaType, ext)
	}

	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("opening uploaded file: %w", err)
	}
	defer src.Close()

	info, err := r.store.Save(fh.Filename, src)
	if err != nil {
		return nil, fmt.Errorf("storing uploaded file: %w", err)
	}

	log.Debug().Str("id", info.ID).Int64("size", info.Size).Msg("stored uploaded image")

	return info, nil
}

// Discard removes a previously accepted file.
func (r *Receiver) Discard(f *models.StoredFile) {
	if f == nil {
		return
	}
	if err := r.store.Remove(f.ID); err != nil {
		log.Warn().Str("id", f.ID).Err(err).Msg("could not clean up uploaded file")
		return
	}
	log.Debug().Str("id", f.ID).Msg("cleaned up uploaded file")
}
